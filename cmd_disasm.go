package main

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/google/subcommands"

	"pydecomp/decode"
)

// disasmCmd prints one line per decoded instruction, the pydecomp
// analogue of the teacher's emitBytecodeCmd -diassemble flag, grounded
// on compiler.DiassembleBytecode's text-table output.
type disasmCmd struct {
	focus string
}

func (*disasmCmd) Name() string     { return "disasm" }
func (*disasmCmd) Synopsis() string { return "Disassemble a .pyc file's bytecode" }
func (*disasmCmd) Usage() string {
	return `disasm <file.pyc>:
  Decode and print every instruction in a code object.
`
}

func (cmd *disasmCmd) SetFlags(f *flag.FlagSet) {
	f.StringVar(&cmd.focus, "focus", "", "dotted path of a nested code object to disassemble instead of the module")
}

func (cmd *disasmCmd) Execute(ctx context.Context, f *flag.FlagSet, _ ...interface{}) subcommands.ExitStatus {
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

	insts, err := decode.Decode(co.Bytecode, version)
	if err != nil {
		fmt.Fprintf(os.Stderr, "💥 Decode error:\n\t%v\n", err)
		return subcommands.ExitFailure
	}
	for _, inst := range insts {
		if inst.Invalid {
			fmt.Printf("%6d  <invalid byte 0x%02x>\n", inst.Offset, inst.InvalidByte)
			continue
		}
		fmt.Printf("%6d  %-24s %d\n", inst.Offset, inst.Info.Name, inst.Arg)
	}
	return subcommands.ExitSuccess
}
