package decode

import (
	"testing"

	"pydecomp/opcode"
)

func TestDecode_EmptyBytecodeYieldsNoInstructions(t *testing.T) {
	insts, err := Decode(nil, opcode.V312)
	if err != nil {
		t.Fatal(err)
	}
	if len(insts) != 0 {
		t.Fatalf("expected 0 instructions, got %d", len(insts))
	}
}

func TestDecode_MonotonicOffsets(t *testing.T) {
	// LOAD_CONST 1; LOAD_CONST 2; RETURN_VALUE
	bytecode := []byte{100, 1, 100, 2, 83, 0}
	insts, err := Decode(bytecode, opcode.V39)
	if err != nil {
		t.Fatal(err)
	}
	if len(insts) != 3 {
		t.Fatalf("expected 3 instructions, got %d", len(insts))
	}
	for i := 0; i+1 < len(insts); i++ {
		if insts[i].Offset+insts[i].Size != insts[i+1].Offset {
			t.Fatalf("instruction %d: offset+size (%d) != next offset (%d)", i, insts[i].Offset+insts[i].Size, insts[i+1].Offset)
		}
	}
	if insts[0].Arg != 1 || insts[1].Arg != 2 {
		t.Fatalf("got args %d, %d; want 1, 2", insts[0].Arg, insts[1].Arg)
	}
}

func TestDecode_FoldsExtendedArg(t *testing.T) {
	// EXTENDED_ARG 1; LOAD_CONST 44 -> arg == (1<<8)|44 == 300
	bytecode := []byte{144, 1, 100, 44}
	insts, err := Decode(bytecode, opcode.V39)
	if err != nil {
		t.Fatal(err)
	}
	if len(insts) != 1 {
		t.Fatalf("expected EXTENDED_ARG to fold into one instruction, got %d", len(insts))
	}
	if insts[0].Offset != 0 {
		t.Fatalf("folded instruction should report the EXTENDED_ARG's offset, got %d", insts[0].Offset)
	}
	if insts[0].Arg != 300 {
		t.Fatalf("got arg %d, want 300", insts[0].Arg)
	}
	if insts[0].Size != 4 {
		t.Fatalf("got size %d, want 4 (prefix + real instruction)", insts[0].Size)
	}
}

func TestDecode_UnknownByteIsInvalidNotFatal(t *testing.T) {
	bytecode := []byte{100, 1, 0xfe, 0, 83, 0}
	insts, err := Decode(bytecode, opcode.V39)
	if err != nil {
		t.Fatal(err)
	}
	if len(insts) != 3 {
		t.Fatalf("expected 3 instructions (including the invalid one), got %d", len(insts))
	}
	if !insts[1].Invalid {
		t.Fatalf("expected instruction at offset 2 to be marked invalid")
	}
}

func TestDecode_SkipsInlineCacheFillerFor311(t *testing.T) {
	// LOAD_GLOBAL (5 cache entries in 3.11) followed by RETURN_VALUE.
	bytecode := make([]byte, 0, 14)
	bytecode = append(bytecode, 116, 0) // LOAD_GLOBAL 0
	for i := 0; i < 5; i++ {
		bytecode = append(bytecode, 0, 0) // CACHE filler
	}
	bytecode = append(bytecode, 83, 0) // RETURN_VALUE

	insts, err := Decode(bytecode, opcode.V311)
	if err != nil {
		t.Fatal(err)
	}
	if len(insts) != 2 {
		t.Fatalf("expected 2 real instructions, got %d", len(insts))
	}
	if insts[0].Size != 12 {
		t.Fatalf("expected LOAD_GLOBAL to consume 12 bytes (2 + 5*2 cache), got %d", insts[0].Size)
	}
	if insts[1].Offset != 12 {
		t.Fatalf("expected RETURN_VALUE at offset 12, got %d", insts[1].Offset)
	}
}

func TestJumpTarget_AbsolutePre310(t *testing.T) {
	insts, err := Decode([]byte{113, 10}, opcode.V39) // JUMP_ABSOLUTE 10
	if err != nil {
		t.Fatal(err)
	}
	target, ok := JumpTarget(insts[0], opcode.V39)
	if !ok || target != 10 {
		t.Fatalf("got (%d, %v), want (10, true)", target, ok)
	}
}

func TestJumpTarget_RelativeForward310(t *testing.T) {
	insts, err := Decode([]byte{110, 3}, opcode.V310) // JUMP_FORWARD 3
	if err != nil {
		t.Fatal(err)
	}
	target, ok := JumpTarget(insts[0], opcode.V310)
	// next instruction offset (2) + 3*2 == 8
	if !ok || target != 8 {
		t.Fatalf("got (%d, %v), want (8, true)", target, ok)
	}
}

func TestDecode_TruncatedTrailingByteIsInvalid(t *testing.T) {
	insts, err := Decode([]byte{100}, opcode.V39)
	if err != nil {
		t.Fatal(err)
	}
	if len(insts) != 1 || !insts[0].Invalid {
		t.Fatalf("expected a single invalid instruction for truncated input, got %+v", insts)
	}
}
