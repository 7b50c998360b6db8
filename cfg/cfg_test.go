package cfg

import (
	"testing"

	"pydecomp/decode"
	"pydecomp/opcode"
)

func TestBuild_EmptyBytecodeYieldsNoBlocks(t *testing.T) {
	c, err := Build(nil, nil, opcode.V39)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Blocks) != 0 {
		t.Fatalf("expected 0 blocks, got %d", len(c.Blocks))
	}
}

func TestBuild_StraightLineIsOneBlock(t *testing.T) {
	bytecode := []byte{100, 1, 100, 2, 83, 0} // LOAD_CONST, LOAD_CONST, RETURN_VALUE
	insts, err := decode.Decode(bytecode, opcode.V39)
	if err != nil {
		t.Fatal(err)
	}
	c, err := Build(insts, nil, opcode.V39)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Blocks) != 1 {
		t.Fatalf("expected 1 block, got %d", len(c.Blocks))
	}
	if len(c.Blocks[0].Successors) != 0 {
		t.Fatalf("RETURN_VALUE block should have no successors, got %d", len(c.Blocks[0].Successors))
	}
}

func TestBuild_ConditionalJumpSplitsIntoTrueFalseBlocks(t *testing.T) {
	// LOAD_FAST 0; POP_JUMP_IF_FALSE -> offset 8; LOAD_CONST 1; RETURN_VALUE
	// [offset 8]: LOAD_CONST 2; RETURN_VALUE
	bytecode := []byte{
		124, 0, // 0: LOAD_FAST 0
		114, 8, // 2: POP_JUMP_IF_FALSE 8 (absolute, pre-3.10)
		100, 1, // 4: LOAD_CONST 1
		83, 0, // 6: RETURN_VALUE
		100, 2, // 8: LOAD_CONST 2
		83, 0, // 10: RETURN_VALUE
	}
	insts, err := decode.Decode(bytecode, opcode.V39)
	if err != nil {
		t.Fatal(err)
	}
	c, err := Build(insts, nil, opcode.V39)
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Blocks) != 3 {
		t.Fatalf("expected 3 blocks (header, true-path, false-path), got %d", len(c.Blocks))
	}
	header := c.BlockStartingAt(0)
	if len(header.Successors) != 2 {
		t.Fatalf("expected header to have 2 successors, got %d", len(header.Successors))
	}
}

func TestBuild_BackwardJumpFlagsLoopHeader(t *testing.T) {
	// [0] LOAD_FAST 0 ; JUMP_ABSOLUTE 0
	bytecode := []byte{
		124, 0, // 0: LOAD_FAST 0
		113, 0, // 2: JUMP_ABSOLUTE 0
	}
	insts, err := decode.Decode(bytecode, opcode.V39)
	if err != nil {
		t.Fatal(err)
	}
	c, err := Build(insts, nil, opcode.V39)
	if err != nil {
		t.Fatal(err)
	}
	header := c.BlockStartingAt(0)
	if header == nil || !header.IsLoopHeader {
		t.Fatalf("expected block at offset 0 to be flagged as a loop header")
	}
}

func TestBuild_ExceptionTableEntryMarksHandler(t *testing.T) {
	bytecode := []byte{
		100, 1, // 0: LOAD_CONST 1
		83, 0, // 2: RETURN_VALUE
		1, 0, // 4: POP_TOP (handler)
		83, 0, // 6: RETURN_VALUE
	}
	insts, err := decode.Decode(bytecode, opcode.V39)
	if err != nil {
		t.Fatal(err)
	}
	exctable := []ExceptionTableEntry{{Start: 0, End: 4, Handler: 4, StackDepth: 0}}
	c, err := Build(insts, exctable, opcode.V39)
	if err != nil {
		t.Fatal(err)
	}
	handler := c.BlockStartingAt(4)
	if handler == nil || !handler.IsExceptionHandler {
		t.Fatal("expected block at offset 4 to be flagged as an exception handler")
	}
	entry := c.BlockStartingAt(0)
	foundException := false
	for _, e := range entry.Successors {
		if e.Kind == EdgeException && e.TargetBlockID == handler.ID {
			foundException = true
		}
	}
	if !foundException {
		t.Fatal("expected an EdgeException successor from the covered block to the handler")
	}
	foundPredecessor := false
	for _, e := range handler.Predecessors {
		if e.Kind == EdgeException && e.TargetBlockID == entry.ID {
			foundPredecessor = true
		}
	}
	if !foundPredecessor {
		t.Fatal("expected the handler's Predecessors to carry the exception edge back from the covered block")
	}
}

func TestBuild_MidInstructionJumpTargetErrors(t *testing.T) {
	bytecode := []byte{
		113, 3, // 0: JUMP_ABSOLUTE 3 (offset 3 is mid-instruction)
		100, 1, // 2: LOAD_CONST 1
		83, 0, // 4: RETURN_VALUE
	}
	insts, err := decode.Decode(bytecode, opcode.V39)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := Build(insts, nil, opcode.V39); err == nil {
		t.Fatal("expected an error for a jump targeting a mid-instruction offset")
	}
}
