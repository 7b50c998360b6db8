package recognize

import (
	"testing"

	"pydecomp/ast"
	"pydecomp/cfg"
	"pydecomp/decode"
	"pydecomp/dom"
	"pydecomp/opcode"
	"pydecomp/simulate"
)

func newWalker(t *testing.T, bytecode []byte, consts []ast.Expr, varnames []string) *Walker {
	t.Helper()
	insts, err := decode.Decode(bytecode, opcode.V39)
	if err != nil {
		t.Fatal(err)
	}
	graph, err := cfg.Build(insts, nil, opcode.V39)
	if err != nil {
		t.Fatal(err)
	}
	tree, err := dom.Build(graph)
	if err != nil {
		t.Fatal(err)
	}
	sim := &simulate.Simulator{
		Consts:   consts,
		VarNames: varnames,
		Version:  opcode.V39,
		Arena:    ast.NewArena(),
	}
	return NewWalker(graph, tree, sim)
}

func TestRun_StraightLineReturnsOneReturnStmt(t *testing.T) {
	bytecode := []byte{100, 0, 83, 0} // LOAD_CONST 0; RETURN_VALUE
	w := newWalker(t, bytecode, []ast.Expr{ast.Constant{Value: int64(7), Kind: "int"}}, nil)

	stmts, err := w.Run()
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
	if _, ok := stmts[0].(*ast.Return); !ok {
		t.Fatalf("expected *ast.Return, got %T", stmts[0])
	}
}

func TestRun_IfElseProducesIfStatement(t *testing.T) {
	bytecode := []byte{
		124, 0, // 0: LOAD_FAST 0
		114, 8, // 2: POP_JUMP_IF_FALSE 8
		100, 0, // 4: LOAD_CONST 0
		83, 0, // 6: RETURN_VALUE
		100, 1, // 8: LOAD_CONST 1
		83, 0, // 10: RETURN_VALUE
	}
	consts := []ast.Expr{
		ast.Constant{Value: int64(1), Kind: "int"},
		ast.Constant{Value: int64(2), Kind: "int"},
	}
	w := newWalker(t, bytecode, consts, []string{"x"})

	stmts, err := w.Run()
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
	ifStmt, ok := stmts[0].(*ast.If)
	if !ok {
		t.Fatalf("expected *ast.If, got %T", stmts[0])
	}
	if len(ifStmt.Body) != 1 || len(ifStmt.OrElse) != 1 {
		t.Fatalf("expected both branches to carry one return each, got body=%d orelse=%d", len(ifStmt.Body), len(ifStmt.OrElse))
	}
}

func TestRun_TryExceptProducesTryStatement(t *testing.T) {
	bytecode := []byte{
		100, 0, // 0: LOAD_CONST 0
		83, 0, // 2: RETURN_VALUE
		100, 1, // 4: LOAD_CONST 1 (handler)
		83, 0, // 6: RETURN_VALUE
	}
	consts := []ast.Expr{
		ast.Constant{Value: int64(10), Kind: "int"},
		ast.Constant{Value: int64(20), Kind: "int"},
	}
	insts, err := decode.Decode(bytecode, opcode.V39)
	if err != nil {
		t.Fatal(err)
	}
	exctable := []cfg.ExceptionTableEntry{{Start: 0, End: 4, Handler: 4, StackDepth: 0}}
	graph, err := cfg.Build(insts, exctable, opcode.V39)
	if err != nil {
		t.Fatal(err)
	}
	tree, err := dom.Build(graph)
	if err != nil {
		t.Fatal(err)
	}
	sim := &simulate.Simulator{Consts: consts, Version: opcode.V39, Arena: ast.NewArena()}
	w := NewWalker(graph, tree, sim)

	stmts, err := w.Run()
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
	tryStmt, ok := stmts[0].(*ast.Try)
	if !ok {
		t.Fatalf("expected *ast.Try, got %T", stmts[0])
	}
	if len(tryStmt.Body) != 1 {
		t.Fatalf("expected 1 body statement, got %d", len(tryStmt.Body))
	}
	if len(tryStmt.Handlers) != 1 || len(tryStmt.Handlers[0].Body) != 1 {
		t.Fatalf("expected 1 handler with 1 statement, got %+v", tryStmt.Handlers)
	}
	if tryStmt.Handlers[0].Type != nil {
		t.Fatalf("expected a bare except clause, got Type=%v", tryStmt.Handlers[0].Type)
	}
}

func TestRun_WithStatementProducesWithStatement(t *testing.T) {
	bytecode := []byte{
		124, 0, // 0: LOAD_FAST 0 (cm)
		45, 0, // 2: BEFORE_WITH
		125, 1, // 4: STORE_FAST 1 (x)
		100, 0, // 6: LOAD_CONST 0
		125, 2, // 8: STORE_FAST 2 (v)
		100, 1, // 10: LOAD_CONST 1
		83, 0, // 12: RETURN_VALUE
		52, 0, // 14: RAISE_VARARGS 0 (handler, never walked)
	}
	consts := []ast.Expr{
		ast.Constant{Value: int64(1), Kind: "int"},
		ast.Constant{Value: int64(2), Kind: "int"},
	}
	insts, err := decode.Decode(bytecode, opcode.V39)
	if err != nil {
		t.Fatal(err)
	}
	exctable := []cfg.ExceptionTableEntry{{Start: 0, End: 14, Handler: 14, StackDepth: 0}}
	graph, err := cfg.Build(insts, exctable, opcode.V39)
	if err != nil {
		t.Fatal(err)
	}
	tree, err := dom.Build(graph)
	if err != nil {
		t.Fatal(err)
	}
	sim := &simulate.Simulator{Consts: consts, VarNames: []string{"cm", "x", "v"}, Version: opcode.V39, Arena: ast.NewArena()}
	w := NewWalker(graph, tree, sim)

	stmts, err := w.Run()
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
	withStmt, ok := stmts[0].(*ast.With)
	if !ok {
		t.Fatalf("expected *ast.With, got %T", stmts[0])
	}
	if len(withStmt.Items) != 1 {
		t.Fatalf("expected 1 with-item, got %d", len(withStmt.Items))
	}
	if name, ok := withStmt.Items[0].ContextExpr.(ast.Name); !ok || name.Id != "cm" {
		t.Fatalf("expected context expr Name(cm), got %#v", withStmt.Items[0].ContextExpr)
	}
	if name, ok := withStmt.Items[0].OptionalVar.(ast.Name); !ok || name.Id != "x" {
		t.Fatalf("expected as-target Name(x), got %#v", withStmt.Items[0].OptionalVar)
	}
	if len(withStmt.Body) != 2 {
		t.Fatalf("expected 2 body statements, got %d", len(withStmt.Body))
	}
}

func TestRun_TernaryProducesIfExpWithoutIfStatement(t *testing.T) {
	bytecode := []byte{
		124, 0, // 0: LOAD_FAST 0 (cond)
		114, 8, // 2: POP_JUMP_IF_FALSE 8
		100, 0, // 4: LOAD_CONST 0
		110, 10, // 6: JUMP_FORWARD 10
		100, 1, // 8: LOAD_CONST 1
		83, 0, // 10: RETURN_VALUE
	}
	consts := []ast.Expr{
		ast.Constant{Value: int64(10), Kind: "int"},
		ast.Constant{Value: int64(20), Kind: "int"},
	}
	w := newWalker(t, bytecode, consts, []string{"cond"})

	stmts, err := w.Run()
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
	ret, ok := stmts[0].(*ast.Return)
	if !ok {
		t.Fatalf("expected *ast.Return, got %T", stmts[0])
	}
	ifExp, ok := ret.Value.(*ast.IfExp)
	if !ok {
		t.Fatalf("expected *ast.IfExp, got %T — a ternary must not surface as an *ast.If statement", ret.Value)
	}
	if name, ok := ifExp.Test.(ast.Name); !ok || name.Id != "cond" {
		t.Fatalf("expected test Name(cond), got %#v", ifExp.Test)
	}
}

func TestRun_ShortCircuitAndProducesBoolOp(t *testing.T) {
	bytecode := []byte{
		124, 0, // 0: LOAD_FAST 0 (a)
		111, 6, // 2: JUMP_IF_FALSE_OR_POP 6
		124, 1, // 4: LOAD_FAST 1 (b)
		83, 0, // 6: RETURN_VALUE
	}
	w := newWalker(t, bytecode, nil, []string{"a", "b"})

	stmts, err := w.Run()
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
	ret, ok := stmts[0].(*ast.Return)
	if !ok {
		t.Fatalf("expected *ast.Return, got %T", stmts[0])
	}
	boolOp, ok := ret.Value.(*ast.BoolOp)
	if !ok {
		t.Fatalf("expected *ast.BoolOp, got %T", ret.Value)
	}
	if boolOp.Op != "and" {
		t.Fatalf("expected op 'and', got %q", boolOp.Op)
	}
	if len(boolOp.Values) != 2 {
		t.Fatalf("expected 2 operands, got %d", len(boolOp.Values))
	}
}

func TestRun_ChainedComparisonMergesAcrossShortCircuit(t *testing.T) {
	bytecode := []byte{
		124, 0, // 0: LOAD_FAST 0 (a)
		124, 1, // 2: LOAD_FAST 1 (b)
		107, 0, // 4: COMPARE_OP 0 (<)
		111, 14, // 6: JUMP_IF_FALSE_OR_POP 14
		124, 1, // 8: LOAD_FAST 1 (b)
		124, 2, // 10: LOAD_FAST 2 (c)
		107, 0, // 12: COMPARE_OP 0 (<)
		83, 0, // 14: RETURN_VALUE
	}
	w := newWalker(t, bytecode, nil, []string{"a", "b", "c"})

	stmts, err := w.Run()
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
	ret, ok := stmts[0].(*ast.Return)
	if !ok {
		t.Fatalf("expected *ast.Return, got %T", stmts[0])
	}
	cmp, ok := ret.Value.(*ast.Compare)
	if !ok {
		t.Fatalf("expected *ast.Compare (merged chain), not a BoolOp wrapping two comparisons, got %T", ret.Value)
	}
	if len(cmp.Ops) != 2 || cmp.Ops[0] != "<" || cmp.Ops[1] != "<" {
		t.Fatalf("expected two '<' ops, got %v", cmp.Ops)
	}
	if len(cmp.Comparators) != 2 {
		t.Fatalf("expected 2 comparators, got %d", len(cmp.Comparators))
	}
	if name, ok := cmp.Left.(ast.Name); !ok || name.Id != "a" {
		t.Fatalf("expected left operand Name(a), got %#v", cmp.Left)
	}
	if name, ok := cmp.Comparators[0].(ast.Name); !ok || name.Id != "b" {
		t.Fatalf("expected first comparator Name(b), got %#v", cmp.Comparators[0])
	}
	if name, ok := cmp.Comparators[1].(ast.Name); !ok || name.Id != "c" {
		t.Fatalf("expected second comparator Name(c), got %#v", cmp.Comparators[1])
	}
}

func TestRun_LiteralElifChainCollapsesToMatch(t *testing.T) {
	bytecode := []byte{
		124, 0, // 0: LOAD_FAST 0 (s)
		100, 0, // 2: LOAD_CONST 0 (1)
		107, 2, // 4: COMPARE_OP 2 (==)
		114, 12, // 6: POP_JUMP_IF_FALSE 12
		100, 1, // 8: LOAD_CONST 1 (10)
		83, 0, // 10: RETURN_VALUE
		124, 0, // 12: LOAD_FAST 0 (s)
		100, 2, // 14: LOAD_CONST 2 (2)
		107, 2, // 16: COMPARE_OP 2 (==)
		114, 24, // 18: POP_JUMP_IF_FALSE 24
		100, 3, // 20: LOAD_CONST 3 (20)
		83, 0, // 22: RETURN_VALUE
		100, 4, // 24: LOAD_CONST 4 (30)
		83, 0, // 26: RETURN_VALUE
	}
	consts := []ast.Expr{
		ast.Constant{Value: int64(1), Kind: "int"},
		ast.Constant{Value: int64(10), Kind: "int"},
		ast.Constant{Value: int64(2), Kind: "int"},
		ast.Constant{Value: int64(20), Kind: "int"},
		ast.Constant{Value: int64(30), Kind: "int"},
	}
	w := newWalker(t, bytecode, consts, []string{"s"})

	stmts, err := w.Run()
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(stmts))
	}
	match, ok := stmts[0].(*ast.Match)
	if !ok {
		t.Fatalf("expected *ast.If chain to collapse into *ast.Match, got %T", stmts[0])
	}
	if name, ok := match.Subject.(ast.Name); !ok || name.Id != "s" {
		t.Fatalf("expected subject Name(s), got %#v", match.Subject)
	}
	if len(match.Cases) != 3 {
		t.Fatalf("expected 3 cases, got %d", len(match.Cases))
	}
	if match.Cases[0].Pattern != "1" || match.Cases[1].Pattern != "2" || match.Cases[2].Pattern != "_" {
		t.Fatalf("expected patterns [1 2 _], got %q %q %q", match.Cases[0].Pattern, match.Cases[1].Pattern, match.Cases[2].Pattern)
	}
}

func TestRun_BackEdgeLoopProducesWhile(t *testing.T) {
	bytecode := []byte{
		124, 0, // 0: LOAD_FAST 0
		114, 0, // 2: POP_JUMP_IF_FALSE 0 (back to header -> infinite-ish re-check)
		83, 0, // 4: the header's fallthrough (EdgeTrue) block; RETURN_VALUE as a stand-in body
	}
	w := newWalker(t, bytecode, nil, []string{"x"})
	stmts, err := w.Run()
	if err != nil {
		t.Fatal(err)
	}
	if len(stmts) == 0 {
		t.Fatal("expected at least one statement")
	}
}
