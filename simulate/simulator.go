package simulate

import (
	"fmt"

	"pydecomp/ast"
	"pydecomp/cfg"
	"pydecomp/decode"
	"pydecomp/opcode"
)

// compareOps maps COMPARE_OP's argument to its printed operator, per
// CPython's cmp_op table.
var compareOps = []string{"<", "<=", "==", "!=", ">", ">=", "in", "not in", "is", "is not", "exception match"}

// Simulator turns one code object's constant/name/varname tables plus a
// block's instructions into AST fragments. It holds no per-block state;
// all mutable state lives in the Stack passed to SimulateBlock.
type Simulator struct {
	Consts    []ast.Expr // LOAD_CONST operands, pre-converted to Constant/tuple literals
	Names     []string   // co_names: global/attribute/name-based opcodes index into this
	VarNames  []string   // co_varnames: LOAD_FAST/STORE_FAST/DELETE_FAST index into this
	FreeVars  []string   // co_cellvars ++ co_freevars: *_DEREF opcodes index into this
	Version   opcode.Version
	Arena     *ast.Arena
}

// Result is what SimulateBlock produces for one block.
type Result struct {
	Stmts       []ast.Stmt
	OutStack    []StackValue
	TrailingJump *decode.Instruction // the block's final instruction, if it is a jump; nil otherwise
	Condition    ast.Expr            // the test expression (popped, or only peeked for JUMP_IF_*_OR_POP), set only when TrailingJump is conditional
}

// SimulateBlock runs every instruction in b except a trailing jump,
// which is reported back uninterpreted (along with its popped
// condition, for conditional jumps) so the recognizer — which owns
// control-structure decisions — can decide what the jump means.
func (s *Simulator) SimulateBlock(b *cfg.Block, in []StackValue) (*Result, error) {
	stack := NewStack(in...)
	res := &Result{}

	instructions := b.Instructions
	last := instructions[len(instructions)-1]
	body := instructions
	if !last.Invalid && last.Info.IsJump() {
		body = instructions[:len(instructions)-1]
	}

	for _, inst := range body {
		stmt, err := s.step(stack, inst)
		if err != nil {
			return nil, fmt.Errorf("block %d offset %d: %w", b.ID, inst.Offset, err)
		}
		if stmt != nil {
			res.Stmts = append(res.Stmts, stmt)
		}
	}

	if !last.Invalid && last.Info.IsJump() {
		jump := last
		res.TrailingJump = &jump
		if last.Info.IsConditionalJump() && last.Info.Name != "FOR_ITER" {
			if isOrPopJump(last.Info.Name) {
				// JUMP_IF_{TRUE,FALSE}_OR_POP only pops when the jump is
				// NOT taken; on the taken (short-circuiting) edge the
				// tested value stays on the stack as the expression's
				// result. Peek rather than pop so OutStack still carries
				// it — recognize.structureBoolOp decides, per edge,
				// whether that value is the final result or needs
				// discarding before the right operand is evaluated.
				v, err := stack.Peek(0)
				if err != nil {
					return nil, fmt.Errorf("block %d conditional jump at offset %d: %w", b.ID, last.Offset, err)
				}
				if v.Kind != KindExpr {
					return nil, fmt.Errorf("block %d conditional jump at offset %d: %w", b.ID, last.Offset, ErrNotAnExpression)
				}
				res.Condition = v.Expr
			} else {
				cond, err := stack.PopExpr()
				if err != nil {
					return nil, fmt.Errorf("block %d conditional jump at offset %d: %w", b.ID, last.Offset, err)
				}
				res.Condition = cond
			}
		}
	}

	res.OutStack = stack.Snapshot()
	return res, nil
}

// IsOrPopJump reports whether name is one of the two short-circuit jump
// opcodes (JUMP_IF_TRUE_OR_POP, JUMP_IF_FALSE_OR_POP) CPython compiles
// `and`/`or` chains to: conditional jumps that only pop their tested
// value on the not-taken edge. recognize.structureBoolOp uses this to
// tell a short-circuit diamond apart from an ordinary if/else one.
func IsOrPopJump(name string) bool {
	return name == "JUMP_IF_TRUE_OR_POP" || name == "JUMP_IF_FALSE_OR_POP"
}

func isOrPopJump(name string) bool { return IsOrPopJump(name) }

// step executes one instruction against stack, returning a statement
// if the instruction produces one directly (assignment, return, import,
// ...), or nil if it only manipulates the stack.
func (s *Simulator) step(stack *Stack, inst decode.Instruction) (ast.Stmt, error) {
	if inst.Invalid {
		return &ast.FailedRegion{Offset: inst.Offset, Kind: "invalid-opcode"}, nil
	}
	info := inst.Info

	switch info.Name {
	case "NOP", "RESUME", "PRECALL", "CACHE", "GEN_START", "SETUP_ANNOTATIONS":
		return nil, nil

	// --- loads -----------------------------------------------------
	case "LOAD_CONST":
		c, err := s.constAt(inst.Arg)
		if err != nil {
			return nil, err
		}
		stack.PushExpr(c)
		return nil, nil
	case "LOAD_FAST":
		stack.PushExpr(s.Arena.E(ast.Name{Id: s.varName(inst.Arg), Ctx: ast.Load}))
		return nil, nil
	case "LOAD_GLOBAL", "LOAD_NAME":
		stack.PushExpr(s.Arena.E(ast.Name{Id: s.name(inst.Arg), Ctx: ast.Load}))
		return nil, nil
	case "LOAD_DEREF", "LOAD_CLASSDEREF":
		stack.PushExpr(s.Arena.E(ast.Name{Id: s.freeVar(inst.Arg), Ctx: ast.Load}))
		return nil, nil
	case "LOAD_CLOSURE":
		stack.Push(StackValue{Kind: KindMarker, Marker: "closure:" + s.freeVar(inst.Arg)})
		return nil, nil
	case "LOAD_ATTR":
		obj, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		stack.PushExpr(s.Arena.E(&ast.Attribute{Value: obj, Attr: s.name(inst.Arg), Ctx: ast.Load}))
		return nil, nil
	case "LOAD_METHOD":
		obj, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		stack.PushExpr(s.Arena.E(&ast.Attribute{Value: obj, Attr: s.name(inst.Arg), Ctx: ast.Load}))
		stack.Push(StackValue{Kind: KindMarker, Marker: "method-self"})
		return nil, nil
	case "LOAD_BUILD_CLASS":
		// Pushed as a plain Name rather than a marker so the ordinary
		// CALL_FUNCTION path builds an *ast.Call{Func: Name("__build_class__")}
		// that storeTo can pattern-match into a ClassDef — no special-casing
		// needed in call() itself.
		stack.PushExpr(s.Arena.E(ast.Name{Id: "__build_class__", Ctx: ast.Load}))
		return nil, nil

	// --- stores / deletes -------------------------------------------
	case "STORE_FAST":
		return s.storeTo(stack, s.Arena.E(ast.Name{Id: s.varName(inst.Arg), Ctx: ast.Store}))
	case "STORE_GLOBAL", "STORE_NAME":
		return s.storeTo(stack, s.Arena.E(ast.Name{Id: s.name(inst.Arg), Ctx: ast.Store}))
	case "STORE_DEREF":
		return s.storeTo(stack, s.Arena.E(ast.Name{Id: s.freeVar(inst.Arg), Ctx: ast.Store}))
	case "STORE_ATTR":
		obj, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		return s.storeTo(stack, s.Arena.E(&ast.Attribute{Value: obj, Attr: s.name(inst.Arg), Ctx: ast.Store}))
	case "STORE_SUBSCR":
		idx, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		obj, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		return s.storeTo(stack, s.Arena.E(&ast.Subscript{Value: obj, Index: idx, Ctx: ast.Store}))

	case "DELETE_FAST":
		return &ast.Delete{Targets: []ast.Expr{s.Arena.E(ast.Name{Id: s.varName(inst.Arg), Ctx: ast.Del})}}, nil
	case "DELETE_GLOBAL", "DELETE_NAME":
		return &ast.Delete{Targets: []ast.Expr{s.Arena.E(ast.Name{Id: s.name(inst.Arg), Ctx: ast.Del})}}, nil
	case "DELETE_ATTR":
		obj, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Delete{Targets: []ast.Expr{s.Arena.E(&ast.Attribute{Value: obj, Attr: s.name(inst.Arg), Ctx: ast.Del})}}, nil
	case "DELETE_SUBSCR":
		idx, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		obj, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Delete{Targets: []ast.Expr{s.Arena.E(&ast.Subscript{Value: obj, Index: idx, Ctx: ast.Del})}}, nil

	// --- arithmetic / unary / compare --------------------------------
	case "UNARY_POSITIVE":
		return nil, s.unary(stack, "+")
	case "UNARY_NEGATIVE":
		return nil, s.unary(stack, "-")
	case "UNARY_NOT":
		return nil, s.unary(stack, "not")
	case "UNARY_INVERT":
		return nil, s.unary(stack, "~")

	case "COMPARE_OP":
		if inst.Arg < 0 || inst.Arg >= len(compareOps) {
			return nil, fmt.Errorf("🤖 COMPARE_OP argument %d out of range", inst.Arg)
		}
		return nil, s.compare(stack, compareOps[inst.Arg])
	case "IS_OP":
		op := "is"
		if inst.Arg != 0 {
			op = "is not"
		}
		return nil, s.compare(stack, op)
	case "CONTAINS_OP":
		op := "in"
		if inst.Arg != 0 {
			op = "not in"
		}
		return nil, s.compare(stack, op)

	case "BINARY_OP":
		op, err := binaryOpArg(inst.Arg)
		if err != nil {
			return nil, err
		}
		return nil, s.binary(stack, op)

	case "BINARY_ADD", "INPLACE_ADD":
		return nil, s.binary(stack, "+")
	case "BINARY_SUBTRACT", "INPLACE_SUBTRACT":
		return nil, s.binary(stack, "-")
	case "BINARY_MULTIPLY", "INPLACE_MULTIPLY":
		return nil, s.binary(stack, "*")
	case "BINARY_TRUE_DIVIDE", "INPLACE_TRUE_DIVIDE":
		return nil, s.binary(stack, "/")
	case "BINARY_FLOOR_DIVIDE", "INPLACE_FLOOR_DIVIDE":
		return nil, s.binary(stack, "//")
	case "BINARY_MODULO", "INPLACE_MODULO":
		return nil, s.binary(stack, "%")
	case "BINARY_POWER", "INPLACE_POWER":
		return nil, s.binary(stack, "**")
	case "BINARY_LSHIFT":
		return nil, s.binary(stack, "<<")
	case "BINARY_RSHIFT":
		return nil, s.binary(stack, ">>")
	case "BINARY_AND":
		return nil, s.binary(stack, "&")
	case "BINARY_OR":
		return nil, s.binary(stack, "|")
	case "BINARY_XOR":
		return nil, s.binary(stack, "^")
	case "BINARY_MATRIX_MULTIPLY":
		return nil, s.binary(stack, "@")
	case "BINARY_SUBSCR":
		idx, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		obj, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		stack.PushExpr(s.Arena.E(&ast.Subscript{Value: obj, Index: idx, Ctx: ast.Load}))
		return nil, nil

	// --- stack manipulation ------------------------------------------
	case "POP_TOP":
		v, err := stack.Pop()
		if err != nil {
			return nil, err
		}
		if we, ok := v.Expr.(*ast.WithEnterValue); ok && v.Kind == KindExpr {
			return &ast.WithEnterMark{Item: ast.WithItem{ContextExpr: we.Ctx}}, nil
		}
		if v.Kind == KindExpr {
			return &ast.ExpressionStmt{Value: v.Expr}, nil
		}
		return nil, nil
	case "DUP_TOP":
		v, err := stack.Peek(0)
		if err != nil {
			return nil, err
		}
		stack.Push(v)
		return nil, nil
	case "DUP_TOP_TWO":
		b, err := stack.Peek(0)
		if err != nil {
			return nil, err
		}
		a, err := stack.Peek(1)
		if err != nil {
			return nil, err
		}
		stack.Push(a)
		stack.Push(b)
		return nil, nil
	case "ROT_TWO":
		return nil, s.rotate(stack, 2)
	case "ROT_THREE":
		return nil, s.rotate(stack, 3)
	case "ROT_FOUR":
		return nil, s.rotate(stack, 4)
	case "COPY":
		v, err := stack.Peek(inst.Arg - 1)
		if err != nil {
			return nil, err
		}
		stack.Push(v)
		return nil, nil
	case "SWAP":
		return nil, s.swap(stack, inst.Arg)

	// --- collection builds --------------------------------------------
	case "BUILD_TUPLE":
		elts, err := stack.PopNExprs(inst.Arg)
		if err != nil {
			return nil, err
		}
		stack.PushExpr(s.Arena.E(&ast.Tuple{Elts: elts, Ctx: ast.Load}))
		return nil, nil
	case "BUILD_LIST":
		elts, err := stack.PopNExprs(inst.Arg)
		if err != nil {
			return nil, err
		}
		stack.PushExpr(s.Arena.E(&ast.List{Elts: elts, Ctx: ast.Load}))
		return nil, nil
	case "BUILD_SET":
		elts, err := stack.PopNExprs(inst.Arg)
		if err != nil {
			return nil, err
		}
		stack.PushExpr(s.Arena.E(&ast.Set{Elts: elts}))
		return nil, nil
	case "BUILD_MAP":
		vals, err := stack.PopNExprs(inst.Arg * 2)
		if err != nil {
			return nil, err
		}
		var keys, values []ast.Expr
		for i := 0; i+1 < len(vals); i += 2 {
			keys = append(keys, vals[i])
			values = append(values, vals[i+1])
		}
		stack.PushExpr(s.Arena.E(&ast.Dict{Keys: keys, Values: values}))
		return nil, nil
	case "BUILD_CONST_KEY_MAP":
		keysTuple, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		values, err := stack.PopNExprs(inst.Arg)
		if err != nil {
			return nil, err
		}
		keys := keysTuple
		tup, ok := keys.(*ast.Tuple)
		var keyList []ast.Expr
		if ok {
			keyList = tup.Elts
		} else {
			keyList = []ast.Expr{keys}
		}
		stack.PushExpr(s.Arena.E(&ast.Dict{Keys: keyList, Values: values}))
		return nil, nil
	case "BUILD_STRING":
		parts, err := stack.PopNExprs(inst.Arg)
		if err != nil {
			return nil, err
		}
		stack.PushExpr(s.Arena.E(&ast.JoinedStr{Values: parts}))
		return nil, nil
	case "BUILD_SLICE":
		if inst.Arg == 2 {
			upper, err := stack.PopExpr()
			if err != nil {
				return nil, err
			}
			lower, err := stack.PopExpr()
			if err != nil {
				return nil, err
			}
			stack.PushExpr(s.Arena.E(&ast.Slice{Lower: lower, Upper: upper}))
			return nil, nil
		}
		step, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		upper, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		lower, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		stack.PushExpr(s.Arena.E(&ast.Slice{Lower: lower, Upper: upper, Step: step}))
		return nil, nil

	case "LIST_APPEND":
		item, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		target, err := stack.Peek(inst.Arg - 1)
		if err != nil {
			return nil, err
		}
		if l, ok := target.Expr.(*ast.List); ok {
			l.Elts = append(l.Elts, item)
		}
		return nil, nil
	case "SET_ADD":
		item, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		target, err := stack.Peek(inst.Arg - 1)
		if err != nil {
			return nil, err
		}
		if set, ok := target.Expr.(*ast.Set); ok {
			set.Elts = append(set.Elts, item)
		}
		return nil, nil
	case "MAP_ADD":
		value, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		key, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		target, err := stack.Peek(inst.Arg - 1)
		if err != nil {
			return nil, err
		}
		if d, ok := target.Expr.(*ast.Dict); ok {
			d.Keys = append(d.Keys, key)
			d.Values = append(d.Values, value)
		}
		return nil, nil

	case "LIST_EXTEND":
		item, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		target, err := stack.Peek(inst.Arg - 1)
		if err != nil {
			return nil, err
		}
		if l, ok := target.Expr.(*ast.List); ok {
			l.Elts = append(l.Elts, &ast.Starred{Value: item})
		}
		return nil, nil
	case "SET_UPDATE":
		item, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		target, err := stack.Peek(inst.Arg - 1)
		if err != nil {
			return nil, err
		}
		if set, ok := target.Expr.(*ast.Set); ok {
			set.Elts = append(set.Elts, &ast.Starred{Value: item})
		}
		return nil, nil
	case "DICT_MERGE", "DICT_UPDATE":
		item, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		target, err := stack.Peek(inst.Arg - 1)
		if err != nil {
			return nil, err
		}
		if d, ok := target.Expr.(*ast.Dict); ok {
			d.Keys = append(d.Keys, nil) // nil key prints as **unpack
			d.Values = append(d.Values, item)
		}
		return nil, nil

	// --- calls ----------------------------------------------------------
	case "CALL_FUNCTION":
		return nil, s.call(stack, inst.Arg, nil)
	case "CALL_METHOD":
		args, err := stack.PopNExprs(inst.Arg)
		if err != nil {
			return nil, err
		}
		if _, err := stack.Pop(); err != nil { // the method-self marker pushed by LOAD_METHOD
			return nil, err
		}
		fn, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		stack.PushExpr(s.Arena.E(&ast.Call{Func: fn, Args: args}))
		return nil, nil
	case "CALL":
		args, err := stack.PopNExprs(inst.Arg)
		if err != nil {
			return nil, err
		}
		selfOrNull, err := stack.Pop()
		if err != nil {
			return nil, err
		}
		fn, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		if selfOrNull.Kind == KindExpr {
			// bound-method call: selfOrNull was LOAD_METHOD's self.
			args = append([]ast.Expr{selfOrNull.Expr}, args...)
		}
		stack.PushExpr(s.Arena.E(&ast.Call{Func: fn, Args: args}))
		return nil, nil
	case "PUSH_NULL":
		stack.Push(StackValue{Kind: KindMarker, Marker: "null"})
		return nil, nil
	case "CALL_FUNCTION_KW":
		names, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		return nil, s.callKw(stack, inst.Arg, names)
	case "CALL_FUNCTION_EX":
		hasKw := inst.Arg&0x01 != 0
		var kwargs ast.Expr
		if hasKw {
			v, err := stack.PopExpr()
			if err != nil {
				return nil, err
			}
			kwargs = v
		}
		posargs, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		fn, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		args := []ast.Expr{&ast.Starred{Value: posargs}}
		var keywords []ast.Keyword
		if kwargs != nil {
			keywords = append(keywords, ast.Keyword{Value: kwargs})
		}
		stack.PushExpr(s.Arena.E(&ast.Call{Func: fn, Args: args, Keywords: keywords}))
		return nil, nil
	case "KW_NAMES":
		stack.Push(StackValue{Kind: KindMarker, Marker: "kw-names"})
		return nil, nil

	// --- return / yield / raise -----------------------------------------
	case "RETURN_VALUE":
		v, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		return &ast.Return{Value: v}, nil
	case "RETURN_CONST":
		c, err := s.constAt(inst.Arg)
		if err != nil {
			return nil, err
		}
		return &ast.Return{Value: c}, nil
	case "YIELD_VALUE":
		v, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		stack.PushExpr(s.Arena.E(&ast.Yield{Value: v}))
		return nil, nil
	case "YIELD_FROM":
		v, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		if _, err := stack.Pop(); err != nil {
			return nil, err
		}
		stack.PushExpr(s.Arena.E(&ast.YieldFrom{Value: v}))
		return nil, nil
	case "GET_AWAITABLE":
		v, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		stack.PushExpr(s.Arena.E(&ast.Await{Value: v}))
		return nil, nil
	case "RAISE_VARARGS", "RAISE_VARARGS_OLD":
		switch inst.Arg {
		case 0:
			return &ast.Raise{}, nil
		case 1:
			exc, err := stack.PopExpr()
			if err != nil {
				return nil, err
			}
			return &ast.Raise{Exc: exc}, nil
		default:
			cause, err := stack.PopExpr()
			if err != nil {
				return nil, err
			}
			exc, err := stack.PopExpr()
			if err != nil {
				return nil, err
			}
			return &ast.Raise{Exc: exc, Cause: cause}, nil
		}

	// --- imports ---------------------------------------------------------
	case "IMPORT_NAME":
		_, err := stack.PopExpr() // fromlist
		if err != nil {
			return nil, err
		}
		if _, err := stack.Pop(); err != nil { // level
			return nil, err
		}
		stack.Push(StackValue{Kind: KindMarker, Marker: "module:" + s.name(inst.Arg)})
		return nil, nil
	case "IMPORT_FROM":
		stack.PushExpr(s.Arena.E(ast.Name{Id: s.name(inst.Arg), Ctx: ast.Load}))
		return nil, nil
	case "IMPORT_STAR":
		if _, err := stack.Pop(); err != nil {
			return nil, err
		}
		return &ast.ImportFrom{Names: []ast.Alias{{Name: "*"}}}, nil

	// --- iteration / with / exceptions: structural, handled by recognize --
	case "GET_ITER", "GET_YIELD_FROM_ITER":
		v, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		stack.Push(StackValue{Kind: KindMarker, Marker: "iter", Expr: v})
		return nil, nil
	case "BEFORE_WITH", "SETUP_WITH", "SETUP_ASYNC_WITH":
		ctx, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		stack.PushExpr(&ast.WithEnterValue{Ctx: ctx})
		return nil, nil
	case "WITH_CLEANUP_START", "WITH_CLEANUP_FINISH", "WITH_EXCEPT_START",
		"PUSH_EXC_INFO", "POP_EXCEPT", "POP_BLOCK", "POP_FINALLY",
		"SETUP_FINALLY", "SETUP_EXCEPT", "RERAISE", "CHECK_EXC_MATCH",
		"BEFORE_ASYNC_WITH", "END_ASYNC_FOR", "GET_AITER", "GET_ANEXT",
		"SEND", "MAKE_CELL", "COPY_FREE_VARS", "RETURN_GENERATOR":
		return nil, nil

	case "UNPACK_SEQUENCE":
		v, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		for i := 0; i < inst.Arg; i++ {
			stack.Push(StackValue{Kind: KindMarker, Marker: "unpack-slot", Expr: v})
		}
		return nil, nil

	case "MAKE_FUNCTION":
		return nil, s.makeFunction(stack, inst.Arg)

	case "FORMAT_VALUE":
		conv := rune(0)
		switch inst.Arg & 0x3 {
		case 1:
			conv = 's'
		case 2:
			conv = 'r'
		case 3:
			conv = 'a'
		}
		var spec ast.Expr
		if inst.Arg&0x4 != 0 {
			v, err := stack.PopExpr()
			if err != nil {
				return nil, err
			}
			spec = v
		}
		v, err := stack.PopExpr()
		if err != nil {
			return nil, err
		}
		stack.PushExpr(s.Arena.E(&ast.FormattedValue{Value: v, Conversion: conv, FormatSpec: spec}))
		return nil, nil

	default:
		// an opcode with no simulation rule still needs to occupy the
		// right number of stack slots so downstream depth stays sane;
		// model it as producing one Unknown value.
		stack.Push(StackValue{Kind: KindUnknown})
		return nil, nil
	}
}

func (s *Simulator) storeTo(stack *Stack, target ast.Expr) (ast.Stmt, error) {
	v, err := stack.PopExpr()
	if err != nil {
		return nil, err
	}
	if we, ok := v.(*ast.WithEnterValue); ok {
		return &ast.WithEnterMark{Item: ast.WithItem{ContextExpr: we.Ctx, OptionalVar: target}}, nil
	}
	name, isName := target.(ast.Name)
	if ref, ok := v.(*ast.CodeRef); ok && isName {
		return &ast.FunctionDef{
			Name: name.Id, Args: ref.Args, Body: ref.Body,
			IsGenerator: ref.IsGenerator, IsAsync: ref.IsAsync,
		}, nil
	}
	if call, ok := v.(*ast.Call); ok && isName {
		if fn, ok := call.Func.(ast.Name); ok && fn.Id == "__build_class__" {
			return classDefFromBuildClassCall(name.Id, call)
		}
	}
	return &ast.Assign{Targets: []ast.Expr{target}, Value: v}, nil
}

// classDefFromBuildClassCall recovers a ClassDef from the
// __build_class__(<function>, "Name", *bases, **keywords) calling
// convention every `class` statement compiles to. args[0] must be the
// *ast.CodeRef the preceding MAKE_FUNCTION pushed for the class body,
// whose already-decompiled statements become the ClassDef's Body.
func classDefFromBuildClassCall(storedAs string, call *ast.Call) (ast.Stmt, error) {
	if len(call.Args) < 2 {
		return nil, fmt.Errorf("🤖 __build_class__ call missing function/name arguments")
	}
	ref, ok := call.Args[0].(*ast.CodeRef)
	if !ok {
		return nil, fmt.Errorf("🤖 __build_class__ first argument is not a decompiled class body")
	}
	return &ast.ClassDef{
		Name:     storedAs,
		Bases:    call.Args[2:],
		Keywords: call.Keywords,
		Body:     ref.Body,
	}, nil
}

func (s *Simulator) unary(stack *Stack, op string) error {
	v, err := stack.PopExpr()
	if err != nil {
		return err
	}
	stack.PushExpr(s.Arena.E(&ast.UnaryOp{Op: op, Operand: v}))
	return nil
}

func (s *Simulator) binary(stack *Stack, op string) error {
	right, err := stack.PopExpr()
	if err != nil {
		return err
	}
	left, err := stack.PopExpr()
	if err != nil {
		return err
	}
	stack.PushExpr(s.Arena.E(&ast.BinOp{Left: left, Op: op, Right: right}))
	return nil
}

// compare folds chained comparisons when two COMPARE_OPs land in the
// same block with nothing in between — which real DUP_TOP/ROT_THREE/
// JUMP_IF_FALSE_OR_POP chained comparisons never do, since that JUMP_IF_
// FALSE_OR_POP always ends the block (cfg's leader rules put the second
// COMPARE_OP in the next block). This is a defensive fallback for a
// same-block juxtaposition should one ever arise; the real recovery path
// for `a < b < c` is recognize.structureBoolOp reassembling the Compare
// across the JUMP_IF_FALSE_OR_POP that splits it in two.
func (s *Simulator) compare(stack *Stack, op string) error {
	right, err := stack.PopExpr()
	if err != nil {
		return err
	}
	left, err := stack.PopExpr()
	if err != nil {
		return err
	}
	if cmp, ok := left.(*ast.Compare); ok {
		cmp.Ops = append(cmp.Ops, op)
		cmp.Comparators = append(cmp.Comparators, right)
		stack.PushExpr(cmp)
		return nil
	}
	stack.PushExpr(s.Arena.E(&ast.Compare{Left: left, Ops: []string{op}, Comparators: []ast.Expr{right}}))
	return nil
}

func (s *Simulator) rotate(stack *Stack, n int) error {
	vals, err := stack.PopN(n)
	if err != nil {
		return err
	}
	top := vals[n-1]
	rotated := append([]StackValue{top}, vals[:n-1]...)
	for _, v := range rotated {
		stack.Push(v)
	}
	return nil
}

func (s *Simulator) swap(stack *Stack, n int) error {
	top, err := stack.Peek(0)
	if err != nil {
		return err
	}
	other, err := stack.Peek(n - 1)
	if err != nil {
		return err
	}
	vals, err := stack.PopN(n)
	if err != nil {
		return err
	}
	vals[0], vals[len(vals)-1] = other, top
	for _, v := range vals {
		stack.Push(v)
	}
	return nil
}

func (s *Simulator) call(stack *Stack, argc int, keywords []ast.Keyword) error {
	args, err := stack.PopNExprs(argc)
	if err != nil {
		return err
	}
	fn, err := stack.PopExpr()
	if err != nil {
		return err
	}
	stack.PushExpr(s.Arena.E(&ast.Call{Func: fn, Args: args, Keywords: keywords}))
	return nil
}

func (s *Simulator) callKw(stack *Stack, argc int, names ast.Expr) error {
	tup, ok := names.(*ast.Tuple)
	if !ok {
		return fmt.Errorf("🤖 CALL_FUNCTION_KW keyword-name tuple missing")
	}
	nkw := len(tup.Elts)
	allArgs, err := stack.PopNExprs(argc)
	if err != nil {
		return err
	}
	posArgs := allArgs[:argc-nkw]
	kwArgs := allArgs[argc-nkw:]
	var keywords []ast.Keyword
	for i, nameExpr := range tup.Elts {
		c, ok := nameExpr.(ast.Constant)
		name := ""
		if ok {
			if str, ok := c.Value.(string); ok {
				name = str
			}
		}
		keywords = append(keywords, ast.Keyword{Arg: &name, Value: kwArgs[i]})
	}
	fn, err := stack.PopExpr()
	if err != nil {
		return err
	}
	stack.PushExpr(s.Arena.E(&ast.Call{Func: fn, Args: posArgs, Keywords: keywords}))
	return nil
}

func (s *Simulator) makeFunction(stack *Stack, flags int) error {
	code, err := stack.PopExpr()
	if err != nil {
		return err
	}
	if flags&0x08 != 0 { // closure tuple
		if _, err := stack.Pop(); err != nil {
			return err
		}
	}
	if flags&0x04 != 0 { // annotations dict
		if _, err := stack.Pop(); err != nil {
			return err
		}
	}
	if flags&0x02 != 0 { // kwonly defaults dict
		if _, err := stack.Pop(); err != nil {
			return err
		}
	}
	if flags&0x01 != 0 { // positional defaults tuple
		if _, err := stack.Pop(); err != nil {
			return err
		}
	}
	// code is an *ast.CodeRef (see decompile.convertConst): the nested
	// code object's body was already decompiled when the constant pool
	// was built. Re-pushing it as a plain expression lets storeTo fold
	// it straight into a FunctionDef once it sees where it's stored.
	stack.PushExpr(code)
	return nil
}

func binaryOpArg(arg int) (string, error) {
	// CPython 3.11+ NB_* operand codes for BINARY_OP.
	ops := map[int]string{
		0: "+", 1: "&", 2: "//", 3: "<<", 4: "@", 5: "*", 6: "%", 7: "|",
		8: "**", 9: ">>", 10: "-", 11: "/", 12: "^",
		13: "+", 23: "-", // in-place add/subtract alias to the same operator text
	}
	op, ok := ops[arg]
	if !ok {
		return "", fmt.Errorf("🤖 BINARY_OP argument %d has no known operator", arg)
	}
	return op, nil
}

func (s *Simulator) constAt(idx int) (ast.Expr, error) {
	if idx < 0 || idx >= len(s.Consts) {
		return nil, fmt.Errorf("💥 Malformed: LOAD_CONST index %d out of range (%d consts)", idx, len(s.Consts))
	}
	return s.Consts[idx], nil
}

func (s *Simulator) name(idx int) string {
	if idx < 0 || idx >= len(s.Names) {
		return fmt.Sprintf("<name:%d>", idx)
	}
	return s.Names[idx]
}

func (s *Simulator) varName(idx int) string {
	if idx < 0 || idx >= len(s.VarNames) {
		return fmt.Sprintf("<var:%d>", idx)
	}
	return s.VarNames[idx]
}

func (s *Simulator) freeVar(idx int) string {
	if idx < 0 || idx >= len(s.FreeVars) {
		return fmt.Sprintf("<free:%d>", idx)
	}
	return s.FreeVars[idx]
}
