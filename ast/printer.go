// printer.go turns an AST (component H) back into Python source text, and
// also supports a secondary JSON dump used for debugging — the same two
// jobs the teacher's parser.printer.go does for Nilan's much smaller
// grammar, generalized from its per-node Visit methods to a single type
// switch per spec.md's Design Notes ("the printer is a single match").

package ast

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
)

const indentUnit = "    "

// Print renders a statement list as Python source text.
func Print(stmts []Stmt) string {
	var b strings.Builder
	printBlock(&b, stmts, 0)
	return b.String()
}

// PrintExpr renders a single expression as Python source text, with no
// surrounding parentheses beyond what its own precedence requires. The
// match-case recognizer uses this to derive a MatchCase.Pattern string
// (see that type's doc comment) from whatever expression it matched a
// case subject against.
func PrintExpr(e Expr) string {
	return printExprBare(e)
}

// printBlock prints each statement at the given indent depth, emitting a
// lone `pass` if the block is empty so the output stays syntactically
// valid Python (spec.md §8 boundary behavior: an empty body must still
// print as something).
func printBlock(b *strings.Builder, stmts []Stmt, depth int) {
	if len(stmts) == 0 {
		writeIndent(b, depth)
		b.WriteString("pass\n")
		return
	}
	for _, s := range stmts {
		printStmt(b, s, depth)
	}
}

func writeIndent(b *strings.Builder, depth int) {
	for i := 0; i < depth; i++ {
		b.WriteString(indentUnit)
	}
}

func printStmt(b *strings.Builder, s Stmt, depth int) {
	writeIndent(b, depth)
	switch n := s.(type) {
	case *ExpressionStmt:
		b.WriteString(printExpr(n.Value, 0))
		b.WriteString("\n")

	case *Assign:
		for _, t := range n.Targets {
			b.WriteString(printExpr(t, 0))
			b.WriteString(" = ")
		}
		b.WriteString(printExpr(n.Value, 0))
		b.WriteString("\n")

	case *AugAssign:
		fmt.Fprintf(b, "%s %s= %s\n", printExpr(n.Target, 0), n.Op, printExpr(n.Value, 0))

	case *Return:
		if n.Value == nil {
			b.WriteString("return\n")
		} else {
			b.WriteString("return " + printExpr(n.Value, 0) + "\n")
		}

	case Pass:
		b.WriteString("pass\n")

	case Break:
		b.WriteString("break\n")

	case Continue:
		b.WriteString("continue\n")

	case *Global:
		fmt.Fprintf(b, "global %s\n", strings.Join(n.Names, ", "))

	case *Nonlocal:
		fmt.Fprintf(b, "nonlocal %s\n", strings.Join(n.Names, ", "))

	case *Delete:
		b.WriteString("del " + joinExprs(n.Targets) + "\n")

	case *If:
		printIf(b, n, depth, "if")

	case *While:
		fmt.Fprintf(b, "while %s:\n", printExpr(n.Test, 0))
		printBlock(b, n.Body, depth+1)

	case *For:
		fmt.Fprintf(b, "for %s in %s:\n", printExpr(n.Target, 0), printExpr(n.Iter, 0))
		printBlock(b, n.Body, depth+1)
		if len(n.OrElse) > 0 {
			writeIndent(b, depth)
			b.WriteString("else:\n")
			printBlock(b, n.OrElse, depth+1)
		}

	case *Try:
		b.WriteString("try:\n")
		printBlock(b, n.Body, depth+1)
		for _, h := range n.Handlers {
			writeIndent(b, depth)
			switch {
			case h.Type == nil:
				b.WriteString("except:\n")
			case h.Name != "":
				fmt.Fprintf(b, "except %s as %s:\n", printExpr(h.Type, 0), h.Name)
			default:
				fmt.Fprintf(b, "except %s:\n", printExpr(h.Type, 0))
			}
			printBlock(b, h.Body, depth+1)
		}
		if len(n.OrElse) > 0 {
			writeIndent(b, depth)
			b.WriteString("else:\n")
			printBlock(b, n.OrElse, depth+1)
		}
		if len(n.Finally) > 0 {
			writeIndent(b, depth)
			b.WriteString("finally:\n")
			printBlock(b, n.Finally, depth+1)
		}

	case *With:
		b.WriteString("with ")
		items := make([]string, len(n.Items))
		for i, it := range n.Items {
			if it.OptionalVar != nil {
				items[i] = printExpr(it.ContextExpr, 0) + " as " + printExpr(it.OptionalVar, 0)
			} else {
				items[i] = printExpr(it.ContextExpr, 0)
			}
		}
		b.WriteString(strings.Join(items, ", "))
		b.WriteString(":\n")
		printBlock(b, n.Body, depth+1)

	case *FunctionDef:
		for _, d := range n.Decorators {
			writeIndent(b, depth)
			fmt.Fprintf(b, "@%s\n", printExpr(d, 0))
		}
		writeIndent(b, depth)
		kw := "def"
		if n.IsAsync {
			kw = "async def"
		}
		fmt.Fprintf(b, "%s %s(%s):\n", kw, n.Name, printArguments(n.Args))
		printBlock(b, n.Body, depth+1)

	case *ClassDef:
		for _, d := range n.Decorators {
			writeIndent(b, depth)
			fmt.Fprintf(b, "@%s\n", printExpr(d, 0))
		}
		writeIndent(b, depth)
		b.WriteString("class " + n.Name)
		if len(n.Bases) > 0 || len(n.Keywords) > 0 {
			args := joinExprs(n.Bases)
			for _, kw := range n.Keywords {
				if args != "" {
					args += ", "
				}
				args += printKeyword(kw)
			}
			b.WriteString("(" + args + ")")
		}
		b.WriteString(":\n")
		printBlock(b, n.Body, depth+1)

	case *Match:
		fmt.Fprintf(b, "match %s:\n", printExpr(n.Subject, 0))
		for _, c := range n.Cases {
			writeIndent(b, depth+1)
			if c.Guard != nil {
				fmt.Fprintf(b, "case %s if %s:\n", c.Pattern, printExpr(c.Guard, 0))
			} else {
				fmt.Fprintf(b, "case %s:\n", c.Pattern)
			}
			printBlock(b, c.Body, depth+2)
		}

	case *Raise:
		switch {
		case n.Exc == nil:
			b.WriteString("raise\n")
		case n.Cause != nil:
			fmt.Fprintf(b, "raise %s from %s\n", printExpr(n.Exc, 0), printExpr(n.Cause, 0))
		default:
			fmt.Fprintf(b, "raise %s\n", printExpr(n.Exc, 0))
		}

	case *Assert:
		if n.Msg != nil {
			fmt.Fprintf(b, "assert %s, %s\n", printExpr(n.Test, 0), printExpr(n.Msg, 0))
		} else {
			fmt.Fprintf(b, "assert %s\n", printExpr(n.Test, 0))
		}

	case *Import:
		b.WriteString("import " + joinAliases(n.Names) + "\n")

	case *ImportFrom:
		fmt.Fprintf(b, "from %s%s import %s\n", strings.Repeat(".", n.Level), n.Module, joinAliases(n.Names))

	case *FailedRegion:
		fmt.Fprintf(b, "# <decompilation failed at offset %d: %s>\n", n.Offset, n.Kind)

	default:
		fmt.Fprintf(b, "# <unprintable statement %T>\n", s)
	}
}

// printIf handles the elif-collapsing described in ast.If's doc comment:
// a single nested *If in OrElse is re-rendered as `elif` rather than a
// separate `else: if ...` block.
func printIf(b *strings.Builder, n *If, depth int, keyword string) {
	fmt.Fprintf(b, "%s %s:\n", keyword, printExpr(n.Test, 0))
	printBlock(b, n.Body, depth+1)

	if len(n.OrElse) == 1 {
		if nested, ok := n.OrElse[0].(*If); ok {
			writeIndent(b, depth)
			printIf(b, nested, depth, "elif")
			return
		}
	}
	if len(n.OrElse) > 0 {
		writeIndent(b, depth)
		b.WriteString("else:\n")
		printBlock(b, n.OrElse, depth+1)
	}
}

func printArguments(a *Arguments) string {
	if a == nil {
		return ""
	}
	var parts []string
	for _, p := range a.PosOnly {
		parts = append(parts, p)
	}
	if len(a.PosOnly) > 0 {
		parts = append(parts, "/")
	}
	firstDefault := len(a.Args) - len(a.Defaults)
	for i, p := range a.Args {
		if i >= firstDefault && i-firstDefault < len(a.Defaults) {
			parts = append(parts, p+"="+printExpr(a.Defaults[i-firstDefault], 0))
		} else {
			parts = append(parts, p)
		}
	}
	if a.Vararg != "" {
		parts = append(parts, "*"+a.Vararg)
	} else if len(a.KwOnly) > 0 {
		parts = append(parts, "*")
	}
	for i, p := range a.KwOnly {
		if i < len(a.KwOnlyDefs) && a.KwOnlyDefs[i] != nil {
			parts = append(parts, p+"="+printExpr(a.KwOnlyDefs[i], 0))
		} else {
			parts = append(parts, p)
		}
	}
	if a.Kwarg != "" {
		parts = append(parts, "**"+a.Kwarg)
	}
	return strings.Join(parts, ", ")
}

// printExpr renders an expression, parenthesizing it if its precedence is
// lower than parentPrec (the precedence level it's embedded in).
func printExpr(e Expr, parentPrec int) string {
	if e == nil {
		return ""
	}
	s := printExprBare(e)
	if e.Prec() < parentPrec {
		return "(" + s + ")"
	}
	return s
}

func printExprBare(e Expr) string {
	switch n := e.(type) {
	case Constant:
		return printConstant(n)

	case Name:
		return n.Id

	case *Attribute:
		return printExpr(n.Value, PrecAtom) + "." + n.Attr

	case *Subscript:
		return printExpr(n.Value, PrecAtom) + "[" + printExpr(n.Index, PrecLambda) + "]"

	case *Slice:
		parts := []string{"", "", ""}
		if n.Lower != nil {
			parts[0] = printExpr(n.Lower, PrecLambda)
		}
		if n.Upper != nil {
			parts[1] = printExpr(n.Upper, PrecLambda)
		}
		out := parts[0] + ":" + parts[1]
		if n.Step != nil {
			out += ":" + printExpr(n.Step, PrecLambda)
		}
		return out

	case *Starred:
		return "*" + printExpr(n.Value, PrecUnary)

	case *BinOp:
		p := n.Prec()
		childPrec := p
		if n.Op == "**" {
			// ** is right-associative: 2**3**4 is 2**(3**4) and prints
			// without parens, while a ** left operand needs them.
			return printExpr(n.Left, p+1) + " " + n.Op + " " + printExpr(n.Right, p)
		}
		return printExpr(n.Left, childPrec) + " " + n.Op + " " + printExpr(n.Right, childPrec+1)

	case *UnaryOp:
		sym := n.Op
		if sym == "not" {
			return "not " + printExpr(n.Operand, n.Prec())
		}
		return sym + printExpr(n.Operand, n.Prec())

	case *BoolOp:
		parts := make([]string, len(n.Values))
		for i, v := range n.Values {
			parts[i] = printExpr(v, n.Prec()+1)
		}
		return strings.Join(parts, " "+n.Op+" ")

	case *Compare:
		var b strings.Builder
		b.WriteString(printExpr(n.Left, PrecComparison+1))
		for i, op := range n.Ops {
			b.WriteString(" " + op + " ")
			b.WriteString(printExpr(n.Comparators[i], PrecComparison+1))
		}
		return b.String()

	case *Call:
		var args []string
		for _, a := range n.Args {
			args = append(args, printExpr(a, PrecLambda))
		}
		for _, kw := range n.Keywords {
			args = append(args, printKeyword(kw))
		}
		return printExpr(n.Func, PrecAtom) + "(" + strings.Join(args, ", ") + ")"

	case *List:
		return "[" + joinExprsAt(n.Elts, PrecLambda) + "]"

	case *Tuple:
		s := joinExprsAt(n.Elts, PrecLambda)
		if len(n.Elts) == 1 {
			s += ","
		}
		return "(" + s + ")"

	case *Set:
		if len(n.Elts) == 0 {
			return "set()"
		}
		return "{" + joinExprsAt(n.Elts, PrecLambda) + "}"

	case *Dict:
		parts := make([]string, len(n.Keys))
		for i, k := range n.Keys {
			if k == nil {
				parts[i] = "**" + printExpr(n.Values[i], PrecAtom)
			} else {
				parts[i] = printExpr(k, PrecLambda) + ": " + printExpr(n.Values[i], PrecLambda)
			}
		}
		return "{" + strings.Join(parts, ", ") + "}"

	case *IfExp:
		return printExpr(n.Body, PrecTernary+1) + " if " + printExpr(n.Test, PrecTernary+1) + " else " + printExpr(n.OrElse, PrecTernary)

	case *Lambda:
		return "lambda " + printArguments(n.Args) + ": " + printExpr(n.Body, PrecLambda)

	case *Yield:
		if n.Value == nil {
			return "yield"
		}
		return "yield " + printExpr(n.Value, PrecLambda)

	case *YieldFrom:
		return "yield from " + printExpr(n.Value, PrecLambda)

	case *Await:
		return "await " + printExpr(n.Value, n.Prec())

	case *NamedExpr:
		return n.Target.Id + " := " + printExpr(n.Value, PrecLambda)

	case *JoinedStr:
		var b strings.Builder
		b.WriteString("f\"")
		for _, v := range n.Values {
			switch p := v.(type) {
			case Constant:
				b.WriteString(strings.ReplaceAll(fmt.Sprint(p.Value), "\"", "\\\""))
			case *FormattedValue:
				b.WriteString(printFormattedValue(p))
			}
		}
		b.WriteString("\"")
		return b.String()

	case *FormattedValue:
		return "f\"" + printFormattedValue(n) + "\""

	case *ListComp:
		return "[" + printExpr(n.Elt, PrecLambda) + printComprehensions(n.Generators) + "]"

	case *SetComp:
		return "{" + printExpr(n.Elt, PrecLambda) + printComprehensions(n.Generators) + "}"

	case *DictComp:
		return "{" + printExpr(n.Key, PrecLambda) + ": " + printExpr(n.Value, PrecLambda) + printComprehensions(n.Generators) + "}"

	case *GeneratorExp:
		return "(" + printExpr(n.Elt, PrecLambda) + printComprehensions(n.Generators) + ")"

	default:
		return fmt.Sprintf("<unprintable expr %T>", e)
	}
}

func printFormattedValue(n *FormattedValue) string {
	s := "{" + printExpr(n.Value, PrecLambda)
	if n.Conversion != 0 {
		s += "!" + string(n.Conversion)
	}
	if n.FormatSpec != nil {
		if c, ok := n.FormatSpec.(Constant); ok {
			s += ":" + fmt.Sprint(c.Value)
		} else {
			s += ":" + printExpr(n.FormatSpec, PrecLambda)
		}
	}
	return s + "}"
}

func printComprehensions(gens []Comprehension) string {
	var b strings.Builder
	for _, g := range gens {
		kw := " for "
		if g.IsAsync {
			kw = " async for "
		}
		b.WriteString(kw + printExpr(g.Target, PrecLambda) + " in " + printExpr(g.Iter, PrecOr+1))
		for _, ifExpr := range g.Ifs {
			b.WriteString(" if " + printExpr(ifExpr, PrecOr+1))
		}
	}
	return b.String()
}

func printConstant(c Constant) string {
	switch c.Kind {
	case "none":
		return "None"
	case "bool":
		if b, ok := c.Value.(bool); ok && b {
			return "True"
		}
		return "False"
	case "str":
		return strconv.Quote(fmt.Sprint(c.Value))
	case "bytes":
		return "b" + strconv.Quote(fmt.Sprint(c.Value))
	case "ellipsis":
		return "..."
	default:
		return fmt.Sprint(c.Value)
	}
}

func printKeyword(kw Keyword) string {
	if kw.Arg == nil {
		return "**" + printExpr(kw.Value, PrecAtom)
	}
	return *kw.Arg + "=" + printExpr(kw.Value, PrecLambda)
}

func joinExprs(es []Expr) string {
	return joinExprsAt(es, PrecLambda)
}

func joinExprsAt(es []Expr, prec int) string {
	parts := make([]string, len(es))
	for i, e := range es {
		parts[i] = printExpr(e, prec)
	}
	return strings.Join(parts, ", ")
}

func joinAliases(as []Alias) string {
	parts := make([]string, len(as))
	for i, a := range as {
		if a.AsName != "" {
			parts[i] = a.Name + " as " + a.AsName
		} else {
			parts[i] = a.Name
		}
	}
	return strings.Join(parts, ", ")
}

// PrintJSON converts a statement list into a prettified JSON string for
// debugging, the same role the teacher's parser.PrintASTJSON serves for
// Nilan's AST.
func PrintJSON(stmts []Stmt) (string, error) {
	out := make([]any, 0, len(stmts))
	for _, s := range stmts {
		out = append(out, jsonify(s))
	}
	bytes, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return "", err
	}
	return string(bytes), nil
}

// WriteJSONToFile writes the prettified AST JSON to the given file path.
func WriteJSONToFile(stmts []Stmt, path string) error {
	s, err := PrintJSON(stmts)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("💥 error creating AST file: %s", err.Error())
	}
	defer f.Close()
	if _, err := f.Write([]byte(s)); err != nil {
		return fmt.Errorf("💥 error writing AST to file: %s", err.Error())
	}
	return nil
}

// jsonify builds a JSON-friendly representation (maps/slices/scalars) for
// one node, recursively. It intentionally mirrors printExprBare/printStmt's
// type switches rather than sharing code with them: the two serve
// different audiences (machine-readable dump vs. printed source) and
// diverging independently is cheaper than a shared abstraction that has to
// satisfy both.
func jsonify(n Node) any {
	switch v := n.(type) {
	case *ExpressionStmt:
		return m("ExpressionStmt", "value", jsonify(v.Value))
	case *Assign:
		return map[string]any{"type": "Assign", "targets": jsonifyList(exprsToNodes(v.Targets)), "value": jsonify(v.Value)}
	case *AugAssign:
		return map[string]any{"type": "AugAssign", "target": jsonify(v.Target), "op": v.Op, "value": jsonify(v.Value)}
	case *Return:
		return map[string]any{"type": "Return", "value": jsonifyMaybe(v.Value)}
	case Pass:
		return map[string]any{"type": "Pass"}
	case Break:
		return map[string]any{"type": "Break"}
	case Continue:
		return map[string]any{"type": "Continue"}
	case *If:
		return map[string]any{"type": "If", "test": jsonify(v.Test), "body": jsonifyList(stmtsToNodes(v.Body)), "orelse": jsonifyList(stmtsToNodes(v.OrElse))}
	case *While:
		return map[string]any{"type": "While", "test": jsonify(v.Test), "body": jsonifyList(stmtsToNodes(v.Body))}
	case *For:
		return map[string]any{"type": "For", "target": jsonify(v.Target), "iter": jsonify(v.Iter), "body": jsonifyList(stmtsToNodes(v.Body))}
	case *Try:
		return map[string]any{"type": "Try", "body": jsonifyList(stmtsToNodes(v.Body))}
	case *With:
		return map[string]any{"type": "With", "body": jsonifyList(stmtsToNodes(v.Body))}
	case *FunctionDef:
		return map[string]any{"type": "FunctionDef", "name": v.Name, "body": jsonifyList(stmtsToNodes(v.Body))}
	case *ClassDef:
		return map[string]any{"type": "ClassDef", "name": v.Name, "body": jsonifyList(stmtsToNodes(v.Body))}
	case *Match:
		return map[string]any{"type": "Match", "subject": jsonify(v.Subject)}
	case *Raise:
		return map[string]any{"type": "Raise", "exc": jsonifyMaybe(v.Exc)}
	case *Assert:
		return map[string]any{"type": "Assert", "test": jsonify(v.Test)}
	case *Import:
		return map[string]any{"type": "Import"}
	case *ImportFrom:
		return map[string]any{"type": "ImportFrom", "module": v.Module}
	case *FailedRegion:
		return map[string]any{"type": "FailedRegion", "offset": v.Offset, "kind": v.Kind}

	case Constant:
		return v.Value
	case Name:
		return map[string]any{"type": "Name", "id": v.Id}
	case *Attribute:
		return map[string]any{"type": "Attribute", "value": jsonify(v.Value), "attr": v.Attr}
	case *Subscript:
		return map[string]any{"type": "Subscript", "value": jsonify(v.Value), "index": jsonify(v.Index)}
	case *BinOp:
		return map[string]any{"type": "BinOp", "op": v.Op, "left": jsonify(v.Left), "right": jsonify(v.Right)}
	case *UnaryOp:
		return map[string]any{"type": "UnaryOp", "op": v.Op, "operand": jsonify(v.Operand)}
	case *BoolOp:
		return map[string]any{"type": "BoolOp", "op": v.Op, "values": jsonifyList(exprsToNodes(v.Values))}
	case *Compare:
		return map[string]any{"type": "Compare", "left": jsonify(v.Left), "ops": v.Ops}
	case *Call:
		return map[string]any{"type": "Call", "func": jsonify(v.Func), "args": jsonifyList(exprsToNodes(v.Args))}
	case *List:
		return map[string]any{"type": "List", "elts": jsonifyList(exprsToNodes(v.Elts))}
	case *Tuple:
		return map[string]any{"type": "Tuple", "elts": jsonifyList(exprsToNodes(v.Elts))}
	case *Set:
		return map[string]any{"type": "Set", "elts": jsonifyList(exprsToNodes(v.Elts))}
	case *Dict:
		return map[string]any{"type": "Dict"}
	case *IfExp:
		return map[string]any{"type": "IfExp", "test": jsonify(v.Test), "body": jsonify(v.Body), "orelse": jsonify(v.OrElse)}
	default:
		return fmt.Sprintf("%T", n)
	}
}

func jsonifyMaybe(e Expr) any {
	if e == nil {
		return nil
	}
	return jsonify(e)
}

func jsonifyList(ns []Node) []any {
	out := make([]any, 0, len(ns))
	for _, n := range ns {
		out = append(out, jsonify(n))
	}
	return out
}

func exprsToNodes(es []Expr) []Node {
	out := make([]Node, len(es))
	for i, e := range es {
		out[i] = e
	}
	return out
}

func stmtsToNodes(ss []Stmt) []Node {
	out := make([]Node, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

func m(typ string, kv ...any) map[string]any {
	out := map[string]any{"type": typ}
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		out[key] = kv[i+1]
	}
	return out
}
