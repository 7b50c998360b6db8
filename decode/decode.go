// Package decode turns a code object's raw bytecode string into a linear
// sequence of Instruction values, folding EXTENDED_ARG prefixes and
// skipping inline CACHE filler (spec.md §4.B: "callers see only real
// instructions, at their true offsets").
//
// The walking loop is grounded on the teacher's byte-at-a-time scanning
// idiom (lexer.go's position/readPosition/peek/advance loop, and
// vm/vm.go's fetch-decode-execute loop): decode.Decode advances through
// the bytecode the same way, one 2-byte word at a time, carrying forward
// state (the accumulated EXTENDED_ARG value) between iterations.
package decode

import (
	"fmt"

	"pydecomp/opcode"
)

// Instruction is one decoded bytecode instruction, already folded for any
// EXTENDED_ARG prefix and with inline-cache filler accounted for in Size.
type Instruction struct {
	Offset       int // byte offset of the instruction's first byte (its first EXTENDED_ARG prefix, if any)
	Opcode       opcode.Opcode
	Arg          int // fully folded argument; 0 if the opcode has none
	Size         int // total bytes consumed, including EXTENDED_ARG prefixes and CACHE filler
	CacheEntries int
	Invalid      bool   // true if Opcode names an undefined byte
	InvalidByte  byte   // the raw byte, when Invalid
	Info         opcode.Info
}

const wordSize = 2 // one opcode byte + one arg byte, per version.WordAligned

// maxExtendedArgChain bounds how many EXTENDED_ARG prefixes decode will
// fold before giving up (spec.md §5's "hard failure, not silent
// truncation" on run-away input). CPython itself never emits more than
// three chained EXTENDED_ARGs (a 32-bit argument is the instruction's own
// arg byte plus at most three prefix bytes); the limit of four leaves one
// prefix of headroom.
const maxExtendedArgChain = 4

// Decode walks bytecode and returns its instructions in offset order.
// Every non-Invalid instruction's Offset+Size equals the next
// instruction's Offset — the monotonic-offset invariant exercised in
// decode_test.go and relied on by cfg.Build's leader discovery.
func Decode(bytecode []byte, version opcode.Version) ([]Instruction, error) {
	table, err := opcode.TableFor(version)
	if err != nil {
		return nil, err
	}
	if !version.WordAligned() {
		return nil, fmt.Errorf("💥 Unsupported: decode only implements the word-aligned (3.6+) instruction layout, got %s", version)
	}

	var out []Instruction
	extArg := 0
	extChain := 0
	prefixOffset := -1

	for i := 0; i < len(bytecode); {
		if i+wordSize > len(bytecode) {
			out = append(out, Instruction{
				Offset:      i,
				Invalid:     true,
				InvalidByte: bytecode[i],
				Size:        len(bytecode) - i,
			})
			break
		}

		opByte := bytecode[i]
		argByte := int(bytecode[i+1])

		if opByte == extendedArgByte(table) {
			if prefixOffset < 0 {
				prefixOffset = i
			}
			extArg = extArg<<8 | argByte
			extChain++
			if extChain > maxExtendedArgChain {
				return nil, fmt.Errorf("💥 Malformed: more than %d chained EXTENDED_ARG prefixes at offset %d", maxExtendedArgChain, prefixOffset)
			}
			i += wordSize
			continue
		}

		info, lookupErr := table.Lookup(opByte)
		startOffset := i
		if prefixOffset >= 0 {
			startOffset = prefixOffset
		}

		if lookupErr != nil {
			out = append(out, Instruction{
				Offset:      startOffset,
				Invalid:     true,
				InvalidByte: opByte,
				Size:        i + wordSize - startOffset,
			})
			i += wordSize
			extArg, extChain, prefixOffset = 0, 0, -1
			continue
		}

		arg := 0
		if info.HasArg {
			arg = extArg<<8 | argByte
		}

		cacheBytes := info.CacheEntries * wordSize
		size := (i + wordSize - startOffset) + cacheBytes
		if i+wordSize+cacheBytes > len(bytecode) {
			return nil, fmt.Errorf("💥 Malformed: %s at offset %d expects %d cache bytes past end of bytecode", info.Name, i, cacheBytes)
		}

		out = append(out, Instruction{
			Offset:       startOffset,
			Opcode:       info.Opcode,
			Arg:          arg,
			Size:         size,
			CacheEntries: info.CacheEntries,
			Info:         info,
		})

		i += wordSize + cacheBytes
		extArg, extChain, prefixOffset = 0, 0, -1
	}

	return out, nil
}

func extendedArgByte(table *opcode.Table) byte {
	for b := 0; b < 256; b++ {
		if table[b].Name == "EXTENDED_ARG" {
			return byte(b)
		}
	}
	return 0xff // unreachable: every supported table defines EXTENDED_ARG
}

// JumpTarget computes the byte offset an instruction's jump argument
// resolves to, given the version's jump-addressing convention
// (spec.md §3: absolute pre-3.10, word-scaled relative 3.10+). ok is
// false for non-jump instructions.
func JumpTarget(inst Instruction, version opcode.Version) (offset int, ok bool) {
	if !inst.Info.IsJump() {
		return 0, false
	}

	// Pre-3.10, every jump argument — conditional or not — is an
	// absolute byte offset into the bytecode string.
	if !version.JumpsAreWordAddressed() {
		return inst.Arg, true
	}

	// 3.10+: arguments are instruction counts (word-scaled) relative to
	// the instruction following this one. Only the JUMP_BACKWARD family
	// (3.11+) counts backward; everything else, forward.
	next := inst.Offset + inst.Size
	if inst.Info.JumpKind == opcode.JumpRelativeBackward {
		return next - inst.Arg*wordSize, true
	}
	return next + inst.Arg*wordSize, true
}
