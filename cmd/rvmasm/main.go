// Command rvmasm assembles a rusty-vm source file into a bytecode image.
package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/nic-obert/rusty-vm/asm"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

type libPaths []string

func (l *libPaths) String() string { return strings.Join(*l, ",") }
func (l *libPaths) Set(v string) error {
	*l = append(*l, v)
	return nil
}

func run(args []string) int {
	var (
		output    string
		entry     string
		debugInfo bool
		verbose   bool
		libs      libPaths
	)

	flagSet := flag.NewFlagSet("rvmasm", flag.ContinueOnError)
	flagSet.SetOutput(io.Discard)
	flagSet.StringVar(&output, "o", "", "output path (default: input path with its extension replaced by .rvm)")
	flagSet.StringVar(&entry, "entry", "main", "name of the label execution starts at")
	flagSet.BoolVar(&debugInfo, "d", false, "prepend a debug-info section to the output image")
	flagSet.BoolVar(&verbose, "v", false, "log each assembly stage")
	flagSet.Var(&libs, "L", "library search path for .include resolution (repeatable)")

	flagSet.Usage = func() {
		flagSet.SetOutput(os.Stdout)
		fmt.Println("Usage: rvmasm [-o output] [-L lib_search_path]... [-v] [-d] input_file")
		flagSet.PrintDefaults()
	}

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fmt.Fprintf(os.Stderr, "rvmasm: %v\n", err)
		return 2
	}

	input := flagSet.Arg(0)
	if input == "" {
		flagSet.Usage()
		return 2
	}
	if output == "" {
		output = strings.TrimSuffix(input, filepath.Ext(input)) + ".rvm"
	}

	log := newLogger(verbose)
	defer log.Sync()

	a := asm.NewAssembler(asm.Options{
		EntryLabel: entry,
		LibPaths:   []string(libs),
		DebugInfo:  debugInfo,
	}, log)

	out, err := a.AssembleFile(input)
	if err != nil {
		fmt.Fprintf(os.Stderr, "rvmasm: %v\n", err)
		return 1
	}

	if err := os.WriteFile(output, out, 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "rvmasm: writing %s: %v\n", output, err)
		return 1
	}
	return 0
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
