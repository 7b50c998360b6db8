package simulate

import (
	"testing"

	"pydecomp/ast"
	"pydecomp/cfg"
	"pydecomp/decode"
	"pydecomp/opcode"
)

func newSim(consts []ast.Expr, names, varnames []string) *Simulator {
	return &Simulator{
		Consts:   consts,
		Names:    names,
		VarNames: varnames,
		Version:  opcode.V39,
		Arena:    ast.NewArena(),
	}
}

func buildBlocks(t *testing.T, bytecode []byte) []*cfg.Block {
	t.Helper()
	insts, err := decode.Decode(bytecode, opcode.V39)
	if err != nil {
		t.Fatal(err)
	}
	graph, err := cfg.Build(insts, nil, opcode.V39)
	if err != nil {
		t.Fatal(err)
	}
	return graph.Blocks
}

func TestSimulateBlock_LoadConstReturn(t *testing.T) {
	bytecode := []byte{100, 0, 83, 0} // LOAD_CONST 0; RETURN_VALUE
	blocks := buildBlocks(t, bytecode)
	sim := newSim([]ast.Expr{ast.Constant{Value: int64(42), Kind: "int"}}, nil, nil)

	res, err := sim.SimulateBlock(blocks[0], nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(res.Stmts))
	}
	ret, ok := res.Stmts[0].(*ast.Return)
	if !ok {
		t.Fatalf("expected *ast.Return, got %T", res.Stmts[0])
	}
	c, ok := ret.Value.(ast.Constant)
	if !ok || c.Value.(int64) != 42 {
		t.Fatalf("expected constant 42, got %v", ret.Value)
	}
}

func TestSimulateBlock_StoreFastEmitsAssign(t *testing.T) {
	bytecode := []byte{100, 0, 125, 0} // LOAD_CONST 0; STORE_FAST 0
	blocks := buildBlocks(t, bytecode)
	sim := newSim([]ast.Expr{ast.Constant{Value: int64(1), Kind: "int"}}, nil, []string{"x"})

	res, err := sim.SimulateBlock(blocks[0], nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(res.Stmts))
	}
	assign, ok := res.Stmts[0].(*ast.Assign)
	if !ok {
		t.Fatalf("expected *ast.Assign, got %T", res.Stmts[0])
	}
	target, ok := assign.Targets[0].(ast.Name)
	if !ok || target.Id != "x" {
		t.Fatalf("expected target x, got %v", assign.Targets[0])
	}
}

func TestSimulateBlock_BinaryAddProducesBinOp(t *testing.T) {
	bytecode := []byte{124, 0, 124, 1, 60, 0, 83, 0} // LOAD_FAST 0; LOAD_FAST 1; BINARY_ADD; RETURN_VALUE
	blocks := buildBlocks(t, bytecode)
	sim := newSim(nil, nil, []string{"a", "b"})

	res, err := sim.SimulateBlock(blocks[0], nil)
	if err != nil {
		t.Fatal(err)
	}
	ret := res.Stmts[0].(*ast.Return)
	bin, ok := ret.Value.(*ast.BinOp)
	if !ok || bin.Op != "+" {
		t.Fatalf("expected a + binop, got %v", ret.Value)
	}
}

func TestSimulateBlock_ChainedCompareFolds(t *testing.T) {
	// a < b < c, lowered the way CPython does: LOAD a; LOAD b; DUP_TOP;
	// ROT_THREE; COMPARE_OP <; JUMP_IF_FALSE_OR_POP end; LOAD c;
	// COMPARE_OP <. Simplified here to exercise just the folding rule
	// directly on two back-to-back COMPARE_OPs sharing the middle value.
	bytecode := []byte{
		124, 0, // LOAD_FAST a
		124, 1, // LOAD_FAST b
		107, 0, // COMPARE_OP <
		124, 2, // LOAD_FAST c
		107, 0, // COMPARE_OP <
		83, 0, // RETURN_VALUE
	}
	blocks := buildBlocks(t, bytecode)
	sim := newSim(nil, nil, []string{"a", "b", "c"})

	res, err := sim.SimulateBlock(blocks[0], nil)
	if err != nil {
		t.Fatal(err)
	}
	ret := res.Stmts[0].(*ast.Return)
	cmp, ok := ret.Value.(*ast.Compare)
	if !ok {
		t.Fatalf("expected *ast.Compare, got %T", ret.Value)
	}
	if len(cmp.Ops) != 2 || len(cmp.Comparators) != 2 {
		t.Fatalf("expected a folded chained comparison with 2 ops, got %+v", cmp)
	}
}

func TestSimulateBlock_ConditionalJumpLeavesConditionPopped(t *testing.T) {
	bytecode := []byte{
		124, 0, // 0: LOAD_FAST 0
		114, 6, // 2: POP_JUMP_IF_FALSE 6
		100, 0, // 4: LOAD_CONST 0
		83, 0, // 6: RETURN_VALUE
	}
	blocks := buildBlocks(t, bytecode)
	sim := newSim([]ast.Expr{ast.Constant{Value: int64(0), Kind: "int"}}, nil, []string{"x"})

	res, err := sim.SimulateBlock(blocks[0], nil)
	if err != nil {
		t.Fatal(err)
	}
	if res.TrailingJump == nil {
		t.Fatal("expected a trailing conditional jump")
	}
	if res.Condition == nil {
		t.Fatal("expected the popped condition expression")
	}
	if len(res.OutStack) != 0 {
		t.Fatalf("expected an empty out-stack after the condition is popped, got %d", len(res.OutStack))
	}
}

func TestSimulateBlock_StackUnderflowErrors(t *testing.T) {
	bytecode := []byte{83, 0} // RETURN_VALUE with nothing pushed
	blocks := buildBlocks(t, bytecode)
	sim := newSim(nil, nil, nil)

	if _, err := sim.SimulateBlock(blocks[0], nil); err == nil {
		t.Fatal("expected a stack underflow error")
	}
}
