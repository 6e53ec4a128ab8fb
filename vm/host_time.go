package vm

import (
	"time"

	"github.com/nic-obert/rusty-vm/isa"
)

// hostTimer backs both the elapsed-time interrupt (measured from VM
// startup) and the one-shot SET_TIMER_NANOS deadline. A fired timer does
// not touch any flag register — it records the handler address supplied
// at arm time and the processor's fetch/decode/execute loop jumps `pc`
// there once the deadline passes. Grounded on program_executor.go's
// frame-timer field, generalized from a fixed 1/60s tick to an arbitrary
// deadline set by bytecode.
type hostTimer struct {
	start    time.Time
	deadline time.Time
	armed    bool
	handler  uint64
}

func newHostTimer() *hostTimer {
	return &hostTimer{start: time.Now()}
}

func (h *HostModules) handleHostTimeNanos(p *Processor) error {
	p.regs.Set(isa.R1, uint64(time.Now().UnixNano()))
	p.regs.SetError(isa.NoError)
	return nil
}

func (h *HostModules) handleElapsedTimeNanos(p *Processor) error {
	p.regs.Set(isa.R1, uint64(time.Since(h.timer.start).Nanoseconds()))
	p.regs.SetError(isa.NoError)
	return nil
}

// handleSetTimerNanos arms a one-shot timer: r1 holds the delay in
// nanoseconds, r2 the address control jumps to once it fires.
func (h *HostModules) handleSetTimerNanos(p *Processor) error {
	d := time.Duration(p.regs.Get(isa.R1))
	h.timer.deadline = time.Now().Add(d)
	h.timer.handler = p.regs.Get(isa.R2)
	h.timer.armed = true
	p.regs.SetError(isa.NoError)
	return nil
}

// timerFired is polled once per fetch/decode/execute cycle so the VM can
// jump to the armed handler without a dedicated interrupt instruction.
// It disarms the timer and returns the handler address; the caller is
// responsible for setting pc.
func (h *HostModules) timerFired() (uint64, bool) {
	if !h.timer.armed {
		return 0, false
	}
	if time.Now().After(h.timer.deadline) {
		h.timer.armed = false
		return h.timer.handler, true
	}
	return 0, false
}
