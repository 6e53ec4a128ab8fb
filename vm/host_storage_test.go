package vm

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nic-obert/rusty-vm/isa"
)

// memDisk is a ReadWriterAt backed by a plain byte slice, safe for the
// concurrent ReadAt/WriteAt calls stripedTransfer issues.
type memDisk struct {
	mu   sync.Mutex
	data []byte
}

func newMemDisk(size int) *memDisk { return &memDisk{data: make([]byte, size)} }

func (d *memDisk) ReadAt(p []byte, off int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := copy(p, d.data[off:])
	return n, nil
}

func (d *memDisk) WriteAt(p []byte, off int64) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := copy(d.data[off:], p)
	return n, nil
}

func TestDiskWriteThenReadRoundTripsSmallTransfer(t *testing.T) {
	p, _ := newTestProcessor(t)
	host := &HostModules{}
	host.AttachDisk(newMemDisk(4096))

	payload := []byte("hello disk")
	require.NoError(t, p.Memory().WriteBytes(0, payload))
	p.Registers().Set(isa.R1, 0)
	p.Registers().Set(isa.R2, 0)
	p.Registers().Set(isa.R3, uint64(len(payload)))

	require.NoError(t, host.handleDiskWrite(p))
	assert.Equal(t, isa.NoError, p.Registers().GetError())
	assert.Equal(t, uint64(len(payload)), p.Registers().Get(isa.R1))

	require.NoError(t, p.Memory().WriteBytes(0, make([]byte, len(payload))))
	p.Registers().Set(isa.R1, 0) // r1 now holds the write's byte count
	require.NoError(t, host.handleDiskRead(p))
	assert.Equal(t, isa.NoError, p.Registers().GetError())

	got, err := p.Memory().ReadBytes(0, uint64(len(payload)))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDiskReadWriteStripesLargeTransferAcrossGoroutines(t *testing.T) {
	mem := NewMemory(1 << 20)
	host := &HostModules{}
	p := NewProcessor(mem, host)
	host.AttachDisk(newMemDisk(1 << 18))

	size := diskStripeThreshold * 3
	payload := make([]byte, size)
	for i := range payload {
		payload[i] = byte(i)
	}
	require.NoError(t, mem.WriteBytes(0, payload))
	p.Registers().Set(isa.R1, 0)
	p.Registers().Set(isa.R2, 0)
	p.Registers().Set(isa.R3, uint64(size))

	require.NoError(t, host.handleDiskWrite(p))
	assert.Equal(t, uint64(size), p.Registers().Get(isa.R1))

	require.NoError(t, mem.WriteBytes(0, make([]byte, size)))
	p.Registers().Set(isa.R1, 0) // r1 now holds the write's byte count
	require.NoError(t, host.handleDiskRead(p))
	assert.Equal(t, uint64(size), p.Registers().Get(isa.R1))

	got, err := mem.ReadBytes(0, uint64(size))
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestDiskOpsWithoutAttachedDiskReportModuleUnavailable(t *testing.T) {
	p, _ := newTestProcessor(t)
	host := &HostModules{}

	require.NoError(t, host.handleDiskRead(p))
	assert.Equal(t, isa.ModuleUnavailable, p.Registers().GetError())

	require.NoError(t, host.handleDiskWrite(p))
	assert.Equal(t, isa.ModuleUnavailable, p.Registers().GetError())
}
