// Package debugipc exposes a read-only HTTP JSON view of a running
// Processor, plus run/resume controls, grounded on
// krehermann-goblockchain/api/server.go's echo.Context handler style.
// It backs the rvm CLI's -md flag: the VM halts on every breakpoint
// opcode and waits for a client to inspect state and resume it, rather
// than running to completion unattended.
package debugipc

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/nic-obert/rusty-vm/isa"
	"github.com/nic-obert/rusty-vm/vm"
)

// ServerConfig configures one debug IPC server instance.
type ServerConfig struct {
	ListenerAddr string
	Logger       *zap.Logger
}

// Server serves the debug IPC surface for a single Processor. It runs
// the processor's fetch/decode/execute loop on its own goroutine,
// pausing it at every breakpoint trap and resuming only when a client
// calls POST /resume.
type Server struct {
	ServerConfig
	proc  *vm.Processor
	debug *vm.DebugInfo

	mu      sync.Mutex
	running bool
	runErr  error
}

// New builds a Server over proc. debug may be nil if the loaded image
// carried no debug-info prefix.
func New(config ServerConfig, proc *vm.Processor, debug *vm.DebugInfo) *Server {
	if config.Logger == nil {
		config.Logger, _ = zap.NewDevelopment()
	}
	s := &Server{ServerConfig: config, proc: proc, debug: debug}
	proc.SetBreakpointHandler(func(*vm.Processor) {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	})
	return s
}

// Start registers the routes and blocks serving HTTP until the listener
// fails or the process is run to completion and the caller returns.
func (s *Server) Start() error {
	s.Logger.Info("debug ipc server starting", zap.String("addr", s.ListenerAddr))
	echoer := echo.New()
	echoer.HideBanner = true

	echoer.GET("/state", s.handleState)
	echoer.GET("/memory", s.handleMemory)
	echoer.GET("/debuginfo", s.handleDebugInfo)
	echoer.POST("/run", s.handleRun)
	echoer.POST("/resume", s.handleResume)

	return echoer.Start(s.ListenerAddr)
}

func (s *Server) handleState(ectx echo.Context) error {
	regs := s.proc.Registers().Snapshot()
	named := make(map[string]uint64, isa.RegisterCount)
	for r := isa.Register(0); r < isa.RegisterCount; r++ {
		named[r.String()] = regs[r]
	}

	s.mu.Lock()
	running, runErr := s.running, s.runErr
	s.mu.Unlock()

	resp := map[string]any{
		"registers":     named,
		"halted":        s.proc.Halted(),
		"running":       running,
		"breakpointHit": s.proc.BreakpointHit(),
	}
	if runErr != nil {
		resp["error"] = runErr.Error()
	}
	return ectx.JSON(http.StatusOK, resp)
}

func (s *Server) handleMemory(ectx echo.Context) error {
	addr, err := strconv.ParseUint(ectx.QueryParam("addr"), 0, 64)
	if err != nil {
		return ectx.JSON(http.StatusBadRequest, map[string]any{"error": "addr must be a valid uint: " + err.Error()})
	}
	n, err := strconv.ParseUint(ectx.QueryParam("len"), 0, 64)
	if err != nil {
		return ectx.JSON(http.StatusBadRequest, map[string]any{"error": "len must be a valid uint: " + err.Error()})
	}

	bytes, err := s.proc.Memory().ReadBytes(addr, n)
	if err != nil {
		return ectx.JSON(http.StatusNotFound, map[string]any{"error": err.Error()})
	}
	return ectx.JSON(http.StatusOK, map[string]any{"addr": addr, "bytes": bytes})
}

func (s *Server) handleDebugInfo(ectx echo.Context) error {
	if s.debug == nil {
		return ectx.JSON(http.StatusNotFound, map[string]any{"error": "image carries no debug-info section"})
	}
	return ectx.JSON(http.StatusOK, map[string]any{
		"labelNames":   s.debug.LabelNames,
		"sourceFiles":  s.debug.SourceFiles,
		"labels":       s.debug.Labels,
		"instructions": s.debug.Instruction,
	})
}

// handleRun starts the processor's run loop on a background goroutine,
// if it is not already running. It returns immediately; poll /state to
// observe progress.
func (s *Server) handleRun(ectx echo.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ectx.JSON(http.StatusConflict, map[string]any{"error": "already running"})
	}
	s.running = true
	s.runErr = nil
	s.mu.Unlock()

	go func() {
		err := s.proc.Run()
		s.mu.Lock()
		s.running = false
		s.runErr = err
		s.mu.Unlock()
	}()

	return ectx.JSON(http.StatusAccepted, map[string]any{"status": "started"})
}

// handleResume clears a breakpoint halt and restarts the run loop.
func (s *Server) handleResume(ectx echo.Context) error {
	if !s.proc.Halted() {
		return ectx.JSON(http.StatusConflict, map[string]any{"error": "processor is not halted"})
	}
	s.proc.Resume()
	return s.handleRun(ectx)
}
