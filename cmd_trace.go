package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/google/subcommands"

	"pydecomp/cfg"
	"pydecomp/decompile"
	"pydecomp/dom"
)

// traceCmd is an interactive block-stepping shell over a decompiled
// CFG: the natural extrapolation of the teacher's cRepl REPL loop
// (scan a line, evaluate, print) onto inspecting a control-flow graph
// block by block instead of evaluating source expressions.
type traceCmd struct {
	focus string
}

func (*traceCmd) Name() string     { return "trace" }
func (*traceCmd) Synopsis() string { return "Step through a .pyc file's CFG interactively" }
func (*traceCmd) Usage() string {
	return `trace <file.pyc>:
  Open an interactive shell over the decoded control-flow graph. Commands:
    next          move to the first successor block
    goto <id>     jump to a specific block id
    preds         list the current block's predecessors
    show          print the current block's instruction range and edges
    loops         list loop header block ids
    exit          quit
`
}

func (cmd *traceCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&cmd.focus, "focus", "", "dotted path of a nested code object to trace instead of the module")
}

func (cmd *traceCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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
	if len(graph.Blocks) == 0 {
		fmt.Println("(empty graph)")
		return subcommands.ExitSuccess
	}

	rl, err := readline.New("trace> ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Failed to start shell:\n\t%v\n", err)
		return subcommands.ExitFailure
	}
	defer rl.Close()

	current := graph.Blocks[0]
	for {
		line, err := rl.Readline()
		if err == readline.ErrInterrupt {
			continue // ^C clears the current line, same as a shell
		}
		if err != nil { // io.EOF on ^D
			return subcommands.ExitSuccess
		}
		fields := strings.Fields(strings.TrimSpace(line))
		if len(fields) == 0 {
			continue
		}

		switch fields[0] {
		case "exit", "quit":
			return subcommands.ExitSuccess
		case "show":
			printBlock(current, tree)
		case "next":
			if len(current.Successors) == 0 {
				fmt.Println("(no successors)")
				continue
			}
			next := graph.BlockByID(current.Successors[0].TargetBlockID)
			if next == nil {
				fmt.Println("(dangling successor)")
				continue
			}
			current = next
			printBlock(current, tree)
		case "goto":
			if len(fields) < 2 {
				fmt.Println("usage: goto <id>")
				continue
			}
			id, err := strconv.Atoi(fields[1])
			if err != nil {
				fmt.Printf("not a block id: %q\n", fields[1])
				continue
			}
			blk := graph.BlockByID(id)
			if blk == nil {
				fmt.Printf("no such block: %d\n", id)
				continue
			}
			current = blk
			printBlock(current, tree)
		case "preds":
			for _, e := range current.Predecessors {
				fmt.Printf("  block %d (%s)\n", e.TargetBlockID, edgeKindName(e.Kind))
			}
		case "loops":
			for _, h := range dom.LoopHeaders(graph, tree) {
				fmt.Printf("  block %d\n", h)
			}
		default:
			fmt.Printf("unknown command %q\n", fields[0])
		}
	}
}

func printBlock(b *cfg.Block, tree *dom.Tree) {
	fmt.Printf("block %d [%d, %d)\n", b.ID, b.StartOffset, b.EndOffset)
	if idom, ok := tree.ImmediateDominator(b.ID); ok {
		fmt.Printf("  idom: block %d\n", idom)
	}
	for _, e := range b.Successors {
		fmt.Printf("  -> block %d (%s)\n", e.TargetBlockID, edgeKindName(e.Kind))
	}
}
