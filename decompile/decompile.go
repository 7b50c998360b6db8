// Package decompile is the structural driver (spec.md §4.G): given a
// pyc.CodeObject, it runs decode -> cfg -> dom -> simulate -> recognize
// and hands the result to ast.Print, recursing into nested code objects
// (functions, classes, comprehensions) found in the constant pool.
//
// The top-level Decompile entry point and the --focus
// dotted-path scoping are grounded on the teacher's own top-level
// "compile a whole program" driver (compiler/compiler.go's Compile
// entry point, which walks a single AST root and recurses into nested
// scopes the same shape as pydecomp's nested code objects).
package decompile

import (
	"fmt"
	"math/big"
	"strings"

	"pydecomp/ast"
	"pydecomp/cfg"
	"pydecomp/decode"
	"pydecomp/dom"
	"pydecomp/opcode"
	"pydecomp/pyc"
	"pydecomp/recognize"
	"pydecomp/simulate"
)

// Options configures one decompilation run.
type Options struct {
	Version opcode.Version
	// Focus, if non-empty, is a dotted path (e.g. "Outer.method.<locals>.inner")
	// naming a single nested code object to decompile instead of the
	// whole module.
	Focus string
	Trace *Tracer
}

// Unit is one decompiled code object: its reconstructed statements and
// any nested FunctionDef/ClassDef units folded into Stmts already.
type Unit struct {
	Name  string
	Stmts []ast.Stmt
}

// Decompile recovers Python source for co and (unless Options.Focus
// narrows the scope) every code object nested in its constant pool.
func Decompile(co *pyc.CodeObject, opts Options) (*Unit, error) {
	if opts.Focus != "" {
		target, err := FindFocus(co, opts.Focus)
		if err != nil {
			return nil, err
		}
		co = target
	}
	return decompileOne(co, opts, co.QualName)
}

// FindFocus resolves a dotted path (e.g. "Outer.method.<locals>.inner")
// to the nested code object it names, for any caller that needs the raw
// code object before/without running the full decompile pipeline (the
// disasm and cfg CLI verbs' own -focus flags, in particular).
func FindFocus(co *pyc.CodeObject, path string) (*pyc.CodeObject, error) {
	return findFocus(co, strings.Split(path, "."))
}

func findFocus(co *pyc.CodeObject, path []string) (*pyc.CodeObject, error) {
	if len(path) == 0 {
		return co, nil
	}
	head := path[0]
	if head == "<locals>" {
		return findFocus(co, path[1:])
	}
	for _, c := range co.Consts {
		nested, ok := c.(*pyc.CodeObject)
		if !ok {
			continue
		}
		if nested.Name == head {
			return findFocus(nested, path[1:])
		}
	}
	return nil, fmt.Errorf("💥 focus path component %q not found under %s", head, co.Name)
}

// decompileOne structures a single code object's own bytecode. Every
// code object in its constant pool is decompiled first (by
// convertConsts), whether or not a MAKE_FUNCTION in this body
// references it.
func decompileOne(co *pyc.CodeObject, opts Options, qualName string) (*Unit, error) {
	if opts.Trace != nil {
		opts.Trace.Sink("decompile_unit", map[string]any{"name": qualName})
	}

	graph, err := BuildGraph(co, opts.Version)
	if err != nil {
		return nil, err
	}
	tree, err := dom.Build(graph)
	if err != nil {
		return nil, err
	}
	if opts.Trace != nil {
		opts.Trace.Sink("trace_loop_guards", map[string]any{
			"name":  qualName,
			"loops": len(dom.NaturalLoops(graph, tree)),
		})
	}

	arena := ast.NewArena()
	consts, err := convertConsts(co, opts, arena)
	if err != nil {
		return nil, err
	}

	sim := &simulate.Simulator{
		Consts:   consts,
		Names:    co.Names,
		VarNames: co.VarNames,
		FreeVars: append(append([]string{}, co.CellVars...), co.FreeVars...),
		Version:  opts.Version,
		Arena:    arena,
	}

	walker := recognize.NewWalker(graph, tree, sim)
	if opts.Trace != nil {
		walker.Trace = opts.Trace
	}
	stmts, err := walker.Run()
	if err != nil {
		return nil, fmt.Errorf("decompiling %s: %w", qualName, err)
	}

	if opts.Trace != nil {
		opts.Trace.Sink("trace_sim_block", map[string]any{"name": qualName, "blocks": len(graph.Blocks)})
	}

	return &Unit{Name: qualName, Stmts: stmts}, nil
}

// BuildGraph decodes co's bytecode and builds its control-flow graph,
// wiring in a 3.11+ exception table as EdgeException edges when the
// version carries one. Exposed so CLI verbs that want the graph without
// running the full recognizer (cfg, trace) share this exact pipeline
// stage rather than re-deriving it.
func BuildGraph(co *pyc.CodeObject, version opcode.Version) (*cfg.CFG, error) {
	insts, err := decode.Decode(co.Bytecode, version)
	if err != nil {
		return nil, err
	}
	var exctable []cfg.ExceptionTableEntry
	if version.HasExceptionTable() {
		entries, err := pyc.DecodeExceptionTable(co.ExceptionTable)
		if err != nil {
			return nil, err
		}
		for _, e := range entries {
			exctable = append(exctable, cfg.ExceptionTableEntry{
				Start: e.Start, End: e.End, Handler: e.Target,
				StackDepth: e.StackDepth, PushLasti: e.PushLasti,
			})
		}
	}
	return cfg.Build(insts, exctable, version)
}

// convertConsts turns a code object's raw constant pool into AST
// expression literals, recursively decompiling any nested code object
// it finds into a FunctionDef stand-in so MAKE_FUNCTION's consumer in
// simulate has a real AST node to attach.
func convertConsts(co *pyc.CodeObject, opts Options, arena *ast.Arena) ([]ast.Expr, error) {
	out := make([]ast.Expr, len(co.Consts))
	for i, c := range co.Consts {
		expr, err := convertConst(c, opts, arena)
		if err != nil {
			return nil, err
		}
		out[i] = expr
	}
	return out, nil
}

func convertConst(c any, opts Options, arena *ast.Arena) (ast.Expr, error) {
	switch v := c.(type) {
	case nil:
		return ast.Constant{Value: nil, Kind: "none"}, nil
	case bool:
		return ast.Constant{Value: v, Kind: "bool"}, nil
	case int64:
		return ast.Constant{Value: v, Kind: "int"}, nil
	case float64:
		return ast.Constant{Value: v, Kind: "float"}, nil
	case complex128:
		return ast.Constant{Value: v, Kind: "complex"}, nil
	case *big.Int:
		return ast.Constant{Value: v.String(), Kind: "int"}, nil
	case pyc.Ellipsis:
		return ast.Constant{Value: nil, Kind: "ellipsis"}, nil
	case string:
		return ast.Constant{Value: v, Kind: "str"}, nil
	case []byte:
		return ast.Constant{Value: v, Kind: "bytes"}, nil
	case []any:
		elts := make([]ast.Expr, len(v))
		for i, e := range v {
			conv, err := convertConst(e, opts, arena)
			if err != nil {
				return nil, err
			}
			elts[i] = conv
		}
		return arena.E(&ast.Tuple{Elts: elts, Ctx: ast.Load}), nil
	case map[any]bool:
		var elts []ast.Expr
		for e := range v {
			conv, err := convertConst(e, opts, arena)
			if err != nil {
				return nil, err
			}
			elts = append(elts, conv)
		}
		return arena.E(&ast.Set{Elts: elts}), nil
	case *pyc.CodeObject:
		nested, err := decompileOne(v, opts, v.QualName)
		if err != nil {
			return nil, err
		}
		// MAKE_FUNCTION consumes this placeholder as its code operand;
		// simulate.storeTo folds it into a real FunctionDef (or, via the
		// __build_class__ calling convention, a ClassDef) once it learns
		// where the result is stored.
		return &ast.CodeRef{
			Name:        v.Name,
			Args:        buildArguments(v),
			Body:        nested.Stmts,
			IsGenerator: v.IsGenerator(),
			IsAsync:     v.IsCoroutine() || v.IsAsyncGenerator(),
		}, nil
	default:
		return ast.Constant{Value: fmt.Sprintf("%v", v), Kind: "str"}, nil
	}
}

// buildArguments recovers a parameter list from a code object's
// argcount/posonlyargcount/kwonlyargcount fields and CO_VARARGS/
// CO_VARKEYWORDS flags. varnames is laid out by CPython as posonly args,
// then the rest of the positional args, then *args, then kwonly args,
// then **kwargs, then ordinary locals — in that fixed order.
//
// Parameter defaults are not recovered: MAKE_FUNCTION's default-tuple and
// kwonly-default-dict operands are arbitrary expressions built earlier in
// the *enclosing* frame, several blocks before the MAKE_FUNCTION
// instruction itself, and by the time simulate reaches MAKE_FUNCTION the
// defaults have already been popped and discarded for stack-depth
// purposes only (see simulate.Simulator.makeFunction). Recovering them
// would mean threading extra simulator state purely for cosmetics; the
// signature is still correct, just defaultless.
func buildArguments(co *pyc.CodeObject) *ast.Arguments {
	args := &ast.Arguments{}
	idx := 0
	if co.PosOnlyArgCount > 0 && co.PosOnlyArgCount <= len(co.VarNames) {
		args.PosOnly = append(args.PosOnly, co.VarNames[idx:co.PosOnlyArgCount]...)
		idx = co.PosOnlyArgCount
	}
	if co.ArgCount <= len(co.VarNames) {
		args.Args = append(args.Args, co.VarNames[idx:co.ArgCount]...)
		idx = co.ArgCount
	}
	if co.Flags&pyc.FlagVarArgs != 0 && idx < len(co.VarNames) {
		args.Vararg = co.VarNames[idx]
		idx++
	}
	end := idx + co.KwOnlyArgCount
	if end <= len(co.VarNames) {
		args.KwOnly = append(args.KwOnly, co.VarNames[idx:end]...)
		idx = end
	}
	if co.Flags&pyc.FlagVarKeywords != 0 && idx < len(co.VarNames) {
		args.Kwarg = co.VarNames[idx]
	}
	return args
}
