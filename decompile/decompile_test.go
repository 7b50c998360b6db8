package decompile

import (
	"strings"
	"testing"

	"pydecomp/ast"
	"pydecomp/opcode"
	"pydecomp/pyc"
)

func TestDecompile_LoadConstReturn(t *testing.T) {
	co := &pyc.CodeObject{
		Bytecode: []byte{100, 0, 83, 0}, // LOAD_CONST 0; RETURN_VALUE
		Consts:   []any{int64(42)},
		Name:     "f", QualName: "f",
	}
	unit, err := Decompile(co, Options{Version: opcode.V39})
	if err != nil {
		t.Fatal(err)
	}
	if len(unit.Stmts) != 1 {
		t.Fatalf("expected 1 statement, got %d", len(unit.Stmts))
	}
	if _, ok := unit.Stmts[0].(*ast.Return); !ok {
		t.Fatalf("expected a Return statement, got %T", unit.Stmts[0])
	}
	out := ast.Print(unit.Stmts)
	if !strings.Contains(out, "return 42") {
		t.Fatalf("printed source %q missing 'return 42'", out)
	}
}

func TestDecompile_NestedFunctionBecomesFunctionDef(t *testing.T) {
	inner := &pyc.CodeObject{
		Bytecode: []byte{100, 0, 83, 0}, // LOAD_CONST 0; RETURN_VALUE
		Consts:   []any{int64(1)},
		Name:     "inner", QualName: "outer.<locals>.inner",
	}
	outer := &pyc.CodeObject{
		// LOAD_CONST 0 (code); MAKE_FUNCTION 0; STORE_NAME 0 ("inner");
		// LOAD_CONST 1 (None); RETURN_VALUE
		Bytecode: []byte{100, 0, 132, 0, 90, 0, 100, 1, 83, 0},
		Consts:   []any{inner, nil},
		Names:    []string{"inner"},
		Name:     "outer", QualName: "outer",
	}

	unit, err := Decompile(outer, Options{Version: opcode.V39})
	if err != nil {
		t.Fatal(err)
	}
	if len(unit.Stmts) < 1 {
		t.Fatalf("expected at least 1 statement, got %d", len(unit.Stmts))
	}
	fn, ok := unit.Stmts[0].(*ast.FunctionDef)
	if !ok {
		t.Fatalf("expected first statement to be a FunctionDef, got %T", unit.Stmts[0])
	}
	if fn.Name != "inner" {
		t.Fatalf("got function name %q, want inner", fn.Name)
	}
}

func TestDecompile_FocusSelectsNestedCodeObject(t *testing.T) {
	inner := &pyc.CodeObject{
		Bytecode: []byte{100, 0, 83, 0},
		Consts:   []any{int64(7)},
		Name:     "inner", QualName: "outer.inner",
	}
	outer := &pyc.CodeObject{
		Bytecode: []byte{100, 0, 83, 0},
		Consts:   []any{inner},
		Name:     "outer", QualName: "outer",
	}

	unit, err := Decompile(outer, Options{Version: opcode.V39, Focus: "inner"})
	if err != nil {
		t.Fatal(err)
	}
	if unit.Name != "outer.inner" {
		t.Fatalf("got unit name %q, want outer.inner", unit.Name)
	}
}

func TestDecompile_FocusUnknownComponentErrors(t *testing.T) {
	outer := &pyc.CodeObject{
		Bytecode: []byte{100, 0, 83, 0},
		Consts:   []any{int64(1)},
		Name:     "outer", QualName: "outer",
	}
	if _, err := Decompile(outer, Options{Version: opcode.V39, Focus: "missing"}); err == nil {
		t.Fatal("expected an error for an unknown focus path component")
	}
}
