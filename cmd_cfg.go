package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"pydecomp/cfg"
	"pydecomp/decompile"
	"pydecomp/dom"
)

// cfgCmd prints a code object's basic-block graph: each block's
// instruction range, its successor edges (with kind), and whether it is
// a loop header per the dominator analysis.
type cfgCmd struct {
	focus string
}

func (*cfgCmd) Name() string     { return "cfg" }
func (*cfgCmd) Synopsis() string { return "Print a .pyc file's control-flow graph" }
func (*cfgCmd) Usage() string {
	return `cfg <file.pyc>:
  Build and print the basic-block graph for a code object.
`
}

func (cmd *cfgCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&cmd.focus, "focus", "", "dotted path of a nested code object to inspect instead of the module")
}

func (cmd *cfgCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	if cmd.focus != "" {
		co, err = focusInto(co, cmd.focus)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			return subcommands.ExitFailure
		}
	}

	graph, err := decompile.BuildGraph(co, version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return subcommands.ExitFailure
	}
	tree, err := dom.Build(graph)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return subcommands.ExitFailure
	}
	loopHeaders := map[int]bool{}
	for _, h := range dom.LoopHeaders(graph, tree) {
		loopHeaders[h] = true
	}

	for _, b := range graph.Blocks {
		marker := ""
		if loopHeaders[b.ID] {
			marker = " [loop header]"
		}
		fmt.Printf("block %d [%d, %d)%s\n", b.ID, b.StartOffset, b.EndOffset, marker)
		for _, e := range b.Successors {
			fmt.Printf("    -> block %d (%s)\n", e.TargetBlockID, edgeKindName(e.Kind))
		}
	}
	return subcommands.ExitSuccess
}

func edgeKindName(k cfg.EdgeKind) string {
	switch k {
	case cfg.EdgeTrue:
		return "true"
	case cfg.EdgeFalse:
		return "false"
	case cfg.EdgeLoopBack:
		return "loop-back"
	case cfg.EdgeException:
		return "exception"
	default:
		return "normal"
	}
}
