// Command rvm runs a rusty-vm bytecode image: it loads the file named on
// the command line, installs it into a fresh Memory, and runs the
// processor to completion.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"

	"github.com/nic-obert/rusty-vm/isa"
	"github.com/nic-obert/rusty-vm/vm"
	"github.com/nic-obert/rusty-vm/vm/debugipc"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	var (
		verbose   bool
		stackSize uint64
		debugMode bool
		debugAddr string
		diskPath  string
		fsRoot    string
	)

	flagSet := flag.NewFlagSet("rvm", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.BoolVar(&verbose, "v", false, "print pc and mnemonic for every executed instruction")
	flagSet.Uint64Var(&stackSize, "s", 1<<20, "stack size in bytes, reserved past the loaded code")
	flagSet.BoolVar(&debugMode, "md", false, "halt on breakpoint opcodes and serve the debug IPC surface instead of exiting")
	flagSet.StringVar(&debugAddr, "debug-addr", ":7777", "listen address for the debug IPC server when -md is set")
	flagSet.StringVar(&diskPath, "disk", "", "path to a file backing DISK_READ/DISK_WRITE")
	flagSet.StringVar(&fsRoot, "fs-root", ".", "root directory HOST_FS_INTR operations are sandboxed to")

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Println("Usage: rvm [-v] [-s stack_size_bytes] [-md] [-debug-addr addr] [-disk path] [-fs-root dir] bytecode_file")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fmt.Fprintf(os.Stderr, "rvm: %v\n", err)
		return 2
	}

	path := flagSet.Arg(0)
	if path == "" {
		flagSet.Usage()
		return 2
	}

	image, err := os.ReadFile(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rvm: %v\n", err)
		return 1
	}

	log := newLogger(verbose)
	defer log.Sync()

	mem := vm.NewMemory(uint64(len(image)) + stackSize + 1<<20)
	loader := &vm.Loader{StackSize: stackSize}
	entry, debug, err := loader.Load(mem, image)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rvm: loading %s: %v\n", path, err)
		return 1
	}

	heapBase := uint64(len(image)) + stackSize
	heapSize := mem.Size() - heapBase
	host := vm.NewHostModules(log, heapBase, heapSize)
	if diskPath != "" {
		f, err := os.OpenFile(diskPath, os.O_RDWR|os.O_CREATE, 0o644)
		if err != nil {
			fmt.Fprintf(os.Stderr, "rvm: opening disk %s: %v\n", diskPath, err)
			return 1
		}
		defer f.Close()
		host.AttachDisk(f)
	}
	host.SetFilesystemRoot(fsRoot)

	proc := vm.NewProcessor(mem, host)
	loader.Install(proc, entry, uint64(len(image)))

	if verbose {
		proc.SetStepHandler(func(pc uint64, op isa.Opcode) {
			log.Debug("step", zap.Uint64("pc", pc), zap.String("op", op.String()))
		})
	}

	if debugMode {
		srv := debugipc.New(debugipc.ServerConfig{ListenerAddr: debugAddr, Logger: log}, proc, debug)
		if err := srv.Start(); err != nil {
			fmt.Fprintf(os.Stderr, "rvm: debug server: %v\n", err)
			return 1
		}
		return 0
	}

	if err := proc.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "rvm: %v\n", err)
		return int(isa.GenericError)
	}

	exitCode := proc.Registers().Get(isa.Exit)
	return int(int64(exitCode)) & 0xff
}

func newLogger(verbose bool) *zap.Logger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}
