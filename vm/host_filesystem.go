package vm

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/nic-obert/rusty-vm/isa"
)

// HOST_FS_INTR convention: `print` selects the FsOp sub-operation; r1/r2
// give the address and length of the path string, common to every
// sub-op. ReadAll additionally takes the destination buffer in r3/r4;
// WriteAll takes the source buffer in r3/r4. CreateFile creates an empty
// file and takes no buffer. Grounded on
// file_io.go's path-plus-buffer calling shape, extended with
// exists/create-dir operations beyond that file's read/write pair.
func (h *HostModules) handleHostFsIntr(p *Processor) error {
	path, err := h.readSandboxedPath(p)
	if err != nil {
		p.regs.SetError(isa.InvalidInput)
		return nil
	}
	switch isa.FsOp(p.regs.Get(isa.Print)) {
	case isa.FsExists:
		return h.fsExists(p, path)
	case isa.FsReadAll:
		return h.fsReadAll(p, path)
	case isa.FsWriteAll:
		return h.fsWriteAll(p, path)
	case isa.FsCreateFile:
		return h.fsCreateFile(p, path)
	case isa.FsCreateDir:
		return h.fsCreateDir(p, path)
	default:
		p.regs.SetError(isa.InvalidInput)
		return nil
	}
}

// readSandboxedPath reads the path string named by r1/r2 and resolves it
// against fsRoot, rejecting any path that would escape it.
func (h *HostModules) readSandboxedPath(p *Processor) (string, error) {
	addr, length := p.regs.Get(isa.R1), p.regs.Get(isa.R2)
	raw, err := p.mem.ReadBytes(addr, length)
	if err != nil {
		return "", err
	}
	rel := string(raw)
	joined := filepath.Join(h.fsRoot, rel)
	root, err := filepath.Abs(h.fsRoot)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(joined)
	if err != nil {
		return "", err
	}
	inside, err := filepath.Rel(root, abs)
	if err != nil || inside == ".." || strings.HasPrefix(inside, ".."+string(filepath.Separator)) {
		return "", os.ErrPermission
	}
	return abs, nil
}

func (h *HostModules) fsExists(p *Processor, path string) error {
	_, err := os.Stat(path)
	p.regs.Set(isa.R1, boolToUint(err == nil))
	p.regs.SetError(isa.NoError)
	return nil
}

func (h *HostModules) fsReadAll(p *Processor, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		p.regs.SetError(isa.FromIOError(err))
		return nil
	}
	dstAddr, capacity := p.regs.Get(isa.R3), p.regs.Get(isa.R4)
	if uint64(len(data)) > capacity {
		p.regs.SetError(isa.WriteZero)
		return nil
	}
	if err := p.mem.WriteBytes(dstAddr, data); err != nil {
		p.regs.SetError(isa.OutOfBounds)
		return nil
	}
	p.regs.Set(isa.R1, uint64(len(data)))
	p.regs.SetError(isa.NoError)
	return nil
}

func (h *HostModules) fsWriteAll(p *Processor, path string) error {
	srcAddr, length := p.regs.Get(isa.R3), p.regs.Get(isa.R4)
	data, err := p.mem.ReadBytes(srcAddr, length)
	if err != nil {
		p.regs.SetError(isa.OutOfBounds)
		return nil
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		p.regs.SetError(isa.FromIOError(err))
		return nil
	}
	p.regs.SetError(isa.NoError)
	return nil
}

func (h *HostModules) fsCreateFile(p *Processor, path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		p.regs.SetError(isa.FromIOError(err))
		return nil
	}
	f.Close()
	p.regs.SetError(isa.NoError)
	return nil
}

func (h *HostModules) fsCreateDir(p *Processor, path string) error {
	if err := os.Mkdir(path, 0755); err != nil {
		p.regs.SetError(isa.FromIOError(err))
		return nil
	}
	p.regs.SetError(isa.NoError)
	return nil
}
