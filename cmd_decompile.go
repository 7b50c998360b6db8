package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"pydecomp/ast"
	"pydecomp/decompile"
)

// decompileCmd runs the full pipeline and prints recovered Python
// source, the pydecomp analogue of the teacher's emitBytecodeCmd but
// running the pipeline in the opposite direction (bytecode -> source
// rather than source -> bytecode).
type decompileCmd struct {
	focus     string
	jsonTrace string
}

func (*decompileCmd) Name() string     { return "decompile" }
func (*decompileCmd) Synopsis() string { return "Decompile a .pyc file to Python source" }
func (*decompileCmd) Usage() string {
	return `decompile <file.pyc>:
  Recover Python source for a code object and every function/class
  nested in its constant pool.
`
}

func (cmd *decompileCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&cmd.focus, "focus", "", "dotted path of a nested code object to decompile instead of the module")
	f.StringVar(&cmd.jsonTrace, "trace-out", "", "file path to write JSONL structuring-trace events to")
}

func (cmd *decompileCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
	args := f.Args()
	if len(args) < 1 {
		fmt.Fprintf(os.Stderr, "💥 File not provided\n")
		return subcommands.ExitUsageError
	}

	co, version, err := loadPyc(args[0])
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return subcommands.ExitFailure
	}

	opts := decompile.Options{Version: version, Focus: cmd.focus}
	if cmd.jsonTrace != "" {
		traceFile, err := os.Create(cmd.jsonTrace)
		if err != nil {
			fmt.Fprintf(os.Stderr, "💥 Failed to open trace output:\n\t%v\n", err)
			return subcommands.ExitFailure
		}
		defer traceFile.Close()
		opts.Trace = decompile.NewTracer(traceFile)
	}

	unit, err := decompile.Decompile(co, opts)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Decompile error:\n\t%v\n", err)
		return subcommands.ExitFailure
	}

	fmt.Print(ast.Print(unit.Stmts))
	return subcommands.ExitSuccess
}
