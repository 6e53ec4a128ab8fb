package debugipc

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nic-obert/rusty-vm/isa"
	"github.com/nic-obert/rusty-vm/vm"
)

type nopHost struct{}

func (nopHost) Dispatch(isa.InterruptCode, *vm.Processor) error { return nil }

func newTestServer(t *testing.T) (*Server, *vm.Processor) {
	t.Helper()
	mem := vm.NewMemory(256)
	require.NoError(t, mem.WriteBytes(0, []byte{byte(isa.Exit_)}))
	proc := vm.NewProcessor(mem, nopHost{})
	proc.Registers().Set(isa.R1, 7)
	s := New(ServerConfig{ListenerAddr: ":0"}, proc, nil)
	return s, proc
}

func TestHandleStateReportsRegistersAndHaltedFlag(t *testing.T) {
	s, _ := newTestServer(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/state", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	require.NoError(t, s.handleState(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"r1":7`)
}

func TestHandleMemoryReturnsBytes(t *testing.T) {
	s, _ := newTestServer(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/memory?addr=0&len=1", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	require.NoError(t, s.handleMemory(ctx))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHandleMemoryRejectsBadQuery(t *testing.T) {
	s, _ := newTestServer(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/memory?addr=notanumber&len=1", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	require.NoError(t, s.handleMemory(ctx))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleDebugInfoMissingReturnsNotFound(t *testing.T) {
	s, _ := newTestServer(t)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/debuginfo", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	require.NoError(t, s.handleDebugInfo(ctx))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandleRunAcceptsStartRequest(t *testing.T) {
	mem := vm.NewMemory(256)
	require.NoError(t, mem.WriteBytes(0, []byte{byte(isa.Breakpoint), byte(isa.Exit_)}))
	proc := vm.NewProcessor(mem, nopHost{})
	s := New(ServerConfig{ListenerAddr: ":0"}, proc, nil)

	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/run", nil)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)
	require.NoError(t, s.handleRun(ctx))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}
