// fe CLI - compiles fe source files and runs them on the stack machine
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	"github.com/chazu/fe/compiler"
	"github.com/chazu/fe/manifest"
	"github.com/chazu/fe/server"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("fe.cli")

func main() {
	var opts runOptions
	verbose := flag.Bool("v", false, "Verbose output")
	lspMode := flag.Bool("lsp", false, "Start the language server on stdio")
	flag.BoolVar(&opts.ListingOnly, "S", false, "Print the instruction listing and stop")
	flag.BoolVar(&opts.Fingerprint, "fingerprint", false, "Print the program fingerprint")
	flag.BoolVar(&opts.Trace, "trace", false, "Trace every executed instruction to stderr")
	flag.BoolVar(&opts.Profile, "profile", false, "Print instruction counts after the run")
	flag.BoolVar(&opts.Record, "record", false, "Record the build fingerprint in .fe/lock.toml")
	flag.IntVar(&opts.StackSize, "stack", 0, "Stack capacity in words (overrides fe.toml)")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: fe [options] [file.fe]\n\n")
		fmt.Fprintf(os.Stderr, "Compiles an fe program and runs it. Without a file, runs the entry named in fe.toml.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  fe main.fe               # Compile and run, print the result\n")
		fmt.Fprintf(os.Stderr, "  fe -S main.fe            # Print the listing only\n")
		fmt.Fprintf(os.Stderr, "  fe -fingerprint -record  # Run the project entry, record its fingerprint\n")
		fmt.Fprintf(os.Stderr, "  fe -lsp                  # Language server for editors\n")
	}
	flag.Parse()

	verbosity := 0
	if *verbose {
		verbosity = 2
	}
	commonlog.Configure(verbosity, nil)

	if *lspMode {
		if err := runLSP(); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	if flag.NArg() > 1 {
		flag.Usage()
		os.Exit(1)
	}
	opts.Path = flag.Arg(0)

	if err := run(opts, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// runLSP serves editors with the memory layout of the enclosing project.
func runLSP() error {
	opts := compiler.DefaultOptions()
	m, err := manifest.FindAndLoad(".")
	if err != nil {
		return err
	}
	if m != nil {
		if opts.Layout, err = m.Layout(); err != nil {
			return err
		}
		log.Infof("using layout from %s", m.Dir)
	}
	return server.NewLSP(opts).Run()
}
