package main

import (
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/joomcode/errorx"

	"github.com/chazu/fe/compiler"
	"github.com/chazu/fe/manifest"
	"github.com/chazu/fe/vm"
)

// runOptions are the command-line settings for one build and run.
type runOptions struct {
	Path        string // source file; empty means the fe.toml entry
	ListingOnly bool
	Fingerprint bool
	Trace       bool
	Record      bool
	Profile     bool
	StackSize   int // 0 keeps the configured size
}

// run builds the program at opts.Path and executes it, writing the listing,
// fingerprint, and result to stdout. Warnings and traces go to stderr.
func run(opts runOptions, stdout, stderr io.Writer) error {
	m, err := loadManifest(opts.Path)
	if err != nil {
		return err
	}

	path := opts.Path
	if path == "" {
		path = m.EntryPath()
	}
	if path == "" {
		return errorx.IllegalArgument.New("no source file given and no [project] entry in %s", manifest.FileName)
	}

	cfg, err := m.MachineConfig()
	if err != nil {
		return errorx.Decorate(err, "invalid machine configuration")
	}
	if opts.StackSize > 0 {
		cfg.StackSize = opts.StackSize
	}

	src, err := os.ReadFile(path)
	if err != nil {
		return errorx.Decorate(err, "cannot read source")
	}

	log.Debugf("building %s", path)
	out, err := compiler.Build(string(src), compiler.Options{Layout: cfg.Layout})
	if err != nil {
		return errorx.Decorate(err, "%s", path)
	}
	for _, w := range out.Warnings {
		fmt.Fprintf(stderr, "%s:%d:%d: warning: %s\n", path, w.Pos.Line, w.Pos.Column, w.Message)
	}

	if opts.ListingOnly || m.Output.Listing {
		fmt.Fprint(stdout, vm.Disassemble(out.Program))
		if opts.ListingOnly {
			return nil
		}
	}

	if opts.Fingerprint || opts.Record || m.Output.Fingerprint {
		sum, err := vm.Fingerprint(out.Program)
		if err != nil {
			return errorx.Decorate(err, "cannot fingerprint program")
		}
		fp := hex.EncodeToString(sum[:])
		if opts.Fingerprint || m.Output.Fingerprint {
			fmt.Fprintf(stdout, "fingerprint %s\n", fp)
		}
		if opts.Record {
			changed, err := m.RecordBuild(path, fp, out.Program.Len())
			if err != nil {
				return errorx.Decorate(err, "cannot record build")
			}
			if changed {
				log.Noticef("recorded new fingerprint for %s", path)
			} else {
				log.Infof("fingerprint of %s unchanged", path)
			}
		}
	}

	machine := vm.NewMachine(out.Program, cfg)
	var prof *vm.Profiler
	if opts.Profile {
		prof = vm.NewProfiler(out.Program)
	}
	if opts.Trace || prof != nil {
		machine.SetTraceHook(func(pc int, in vm.Instruction, sp int) {
			if opts.Trace {
				fmt.Fprintf(stderr, "%04d  %-16s sp=%d\n", pc, in, sp)
			}
			if prof != nil {
				prof.Record(pc, in, sp)
			}
		})
	}
	result, err := machine.Run()
	if prof != nil {
		writeProfile(stderr, out.Result, prof)
	}
	if err != nil {
		if pc, ok := vm.FaultPC(err); ok {
			return errorx.Decorate(err, "%s: run failed at instruction %d", path, pc)
		}
		return errorx.Decorate(err, "%s: run failed", path)
	}
	log.Debugf("run %s halted after %d step(s)", machine.ID(), machine.Steps())

	fmt.Fprintln(stdout, result)
	return nil
}

// loadManifest finds fe.toml starting from the source file's directory, or
// the working directory when no file is given. Without one, the defaults
// apply and the working directory stands in as the project directory.
func loadManifest(path string) (*manifest.Manifest, error) {
	dir := "."
	if path != "" {
		dir = filepath.Dir(path)
	}
	m, err := manifest.FindAndLoad(dir)
	if err != nil {
		return nil, errorx.Decorate(err, "cannot load %s", manifest.FileName)
	}
	if m == nil {
		m = manifest.Default()
		if m.Dir, err = filepath.Abs("."); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// writeProfile summarizes a run: calls per function, then the most executed
// instructions.
func writeProfile(w io.Writer, res *compiler.Result, prof *vm.Profiler) {
	fmt.Fprintf(w, "profile: %d instruction(s) dispatched\n", prof.Total())
	for _, f := range res.Functions {
		if f.Resolved() {
			fmt.Fprintf(w, "  %-16s calls=%d\n", f.Name, prof.Hits(f.Entry))
		}
	}
	for _, c := range prof.Top(5) {
		fmt.Fprintf(w, "  %04d  %-16s %d\n", c.PC, res.Program.Code[c.PC], c.Count)
	}
}
