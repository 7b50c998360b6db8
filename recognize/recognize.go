// Package recognize turns a cfg.CFG's shape — together with dom.Tree's
// dominance relation and the stack fragments simulate.Simulator
// produces per block — into the control-structure statements spec.md
// §4.E names: if/elif, while, for, try/except/finally, with, match,
// ternary, and short-circuit and/or.
//
// It is the mutually-recursive partner the spec describes for the
// symbolic simulator: in Go, two packages cannot import each other, so
// the dependency runs one way (recognize depends on simulate, not the
// reverse) and the "mutual" recursion is expressed as recognize calling
// simulate.SimulateBlock once per block as it walks the graph,
// threading the resulting stack state to the next block itself — the
// same repeated back-and-forth the spec describes, just not a circular
// package import. This tradeoff is recorded in DESIGN.md.
package recognize

import (
	"fmt"
	"reflect"

	"pydecomp/ast"
	"pydecomp/cfg"
	"pydecomp/dom"
	"pydecomp/simulate"
)

// Tracer receives structuring decisions as Walker makes them. Defined
// here (rather than importing decompile.Tracer, which would create an
// import cycle since decompile depends on recognize) as the minimal
// interface decompile.Tracer already satisfies.
type Tracer interface {
	Sink(kind string, fields map[string]any)
}

// Walker structures one code object's CFG into a statement list.
type Walker struct {
	Graph *cfg.CFG
	Tree  *dom.Tree
	Loops []dom.Loop
	Sim   *simulate.Simulator
	Trace Tracer

	visited map[int]bool
	// protectedHandlers holds the handler block IDs of every try/with
	// whose body is currently being gathered. cfg's exception-edge
	// wiring stamps an EdgeException successor onto every block inside
	// the protected range, not just its first block, so without this the
	// main loop in structure would recognize a fresh nested Try/With at
	// every single block of a region it is already inside of.
	protectedHandlers []int
}

func (w *Walker) inProtectedRegion(handlerID int) bool {
	for _, h := range w.protectedHandlers {
		if h == handlerID {
			return true
		}
	}
	return false
}

func (w *Walker) pushProtected(handlerID int) { w.protectedHandlers = append(w.protectedHandlers, handlerID) }

func (w *Walker) popProtected() {
	w.protectedHandlers = w.protectedHandlers[:len(w.protectedHandlers)-1]
}

// NewWalker builds a Walker ready to structure graph.
func NewWalker(graph *cfg.CFG, tree *dom.Tree, sim *simulate.Simulator) *Walker {
	return &Walker{
		Graph:   graph,
		Tree:    tree,
		Loops:   dom.NaturalLoops(graph, tree),
		Sim:     sim,
		visited: map[int]bool{},
	}
}

// Run structures the entire graph starting at its entry block.
func (w *Walker) Run() ([]ast.Stmt, error) {
	if len(w.Graph.Blocks) == 0 {
		return nil, nil
	}
	stmts, _, _, err := w.structure(w.Graph.Blocks[0].ID, nil, nil)
	return stmts, err
}

// structure emits statements for the region reachable from blockID
// without crossing stopSet, threading stack from the incoming in
// state. It returns the produced statements, the stack state live at
// the point execution leaves the region, and the block ID it stopped
// at (a member of stopSet, or -1 if the region ran off the end via a
// return/raise/infinite loop with no further successor).
func (w *Walker) structure(blockID int, stopSet map[int]bool, in []simulate.StackValue) ([]ast.Stmt, []simulate.StackValue, int, error) {
	var out []ast.Stmt
	stack := in

	for {
		if blockID < 0 || stopSet[blockID] {
			return out, stack, blockID, nil
		}
		if w.visited[blockID] {
			// re-entering an already-emitted block means a structuring
			// bug upstream (e.g. an unhandled irreducible loop shape);
			// stop rather than duplicate or infinite-loop.
			return out, stack, -1, fmt.Errorf("🤖 block %d visited twice while structuring", blockID)
		}

		if loop := w.loopHeader(blockID); loop != nil {
			w.trace("trace_decisions", map[string]any{"block": blockID, "decision": "loop"})
			stmt, exit, err := w.structureLoop(*loop, stack)
			if err != nil {
				return nil, nil, -1, err
			}
			out = append(out, stmt)
			blockID = exit
			stack = nil
			continue
		}

		b := w.Graph.BlockByID(blockID)
		if b == nil {
			return nil, nil, -1, fmt.Errorf("🤖 structure reached unknown block %d", blockID)
		}
		w.visited[blockID] = true

		res, err := w.Sim.SimulateBlock(b, stack)
		if err != nil {
			return nil, nil, -1, err
		}

		if handlerID, ok := exceptionHandlerOf(b); ok && !w.inProtectedRegion(handlerID) {
			w.trace("trace_decisions", map[string]any{"block": blockID, "decision": "protected-region"})
			pre, stmt, next, outStack, err := w.structureProtected(b, res, handlerID, stopSet)
			if err != nil {
				return nil, nil, -1, err
			}
			out = append(out, pre...)
			out = append(out, stmt)
			blockID, stack = next, outStack
			continue
		}

		out = append(out, res.Stmts...)

		leading, next, outStack, err := w.afterBlock(b, res, stopSet)
		if err != nil {
			return nil, nil, -1, err
		}
		if leading != nil {
			out = append(out, collapseMatchIfPossible(leading))
		}
		blockID, stack = next, outStack
	}
}

// afterBlock decides where control goes once a block's own straight-
// line statements have already been gathered — the same branch the top
// of structure's loop used to inline, factored out so structureWith/
// structureTry can keep collecting a protected region's body through
// the ordinary if/loop/fallthrough machinery instead of duplicating it.
func (w *Walker) afterBlock(b *cfg.Block, res *simulate.Result, stopSet map[int]bool) (ast.Stmt, int, []simulate.StackValue, error) {
	if res.TrailingJump == nil {
		// a block with no trailing jump either falls straight into the
		// next block (EdgeNormal/EdgeLoopBack) or is a true terminator
		// (RETURN_VALUE, RAISE_VARARGS, ...) whose only successors, if
		// any, are EdgeException — which is not a fallthrough and must
		// not be picked up here.
		return nil, fallthroughTarget(b), res.OutStack, nil
	}

	if !res.TrailingJump.Info.IsConditionalJump() {
		// unconditional jump: keep walking at its target (loop
		// continues, `else` chains, etc. were already peeled off by
		// structureLoop/structureIf as appropriate). Its target is
		// tagged EdgeNormal ordinarily, or EdgeLoopBack for a back edge
		// to an enclosing loop's header.
		return nil, fallthroughTarget(b), res.OutStack, nil
	}

	if simulate.IsOrPopJump(res.TrailingJump.Info.Name) {
		w.trace("trace_decisions", map[string]any{"block": b.ID, "decision": "shortcircuit"})
		next, mergeStack, err := w.structureBoolOp(b, res, stopSet)
		return nil, next, mergeStack, err
	}

	w.trace("trace_decisions", map[string]any{"block": b.ID, "decision": "if"})
	ifStmt, merge, mergeStack, err := w.structureIf(b, res, stopSet)
	return ifStmt, merge, mergeStack, err
}

// collapseMatchIfPossible rewrites an equality elif-chain into an
// ast.Match when every test compares the same subject against a
// literal (see collapseMatch); any other statement passes through
// unchanged.
func collapseMatchIfPossible(stmt ast.Stmt) ast.Stmt {
	ifNode, ok := stmt.(*ast.If)
	if !ok {
		return stmt
	}
	if match, ok := collapseMatch(ifNode); ok {
		return match
	}
	return stmt
}

// trace is a nil-safe Sink call so every structuring function can emit
// trace_decisions events without checking Trace itself for nil first.
func (w *Walker) trace(kind string, fields map[string]any) {
	if w.Trace == nil {
		return
	}
	w.Trace.Sink(kind, fields)
}

func (w *Walker) loopHeader(id int) *dom.Loop {
	for i := range w.Loops {
		if w.Loops[i].Header == id {
			return &w.Loops[i]
		}
	}
	return nil
}

func successorByKind(b *cfg.Block, kind cfg.EdgeKind) int {
	for _, e := range b.Successors {
		if e.Kind == kind {
			return e.TargetBlockID
		}
	}
	return -1
}

// fallthroughTarget returns the block a non-branching block hands
// control to: its EdgeNormal successor, or its EdgeLoopBack successor
// for a loop's closing back edge. EdgeException successors never count
// as fallthrough even when they are a block's only successor (a
// RETURN_VALUE/RAISE_VARARGS terminator inside a try body, say).
func fallthroughTarget(b *cfg.Block) int {
	if t := successorByKind(b, cfg.EdgeNormal); t >= 0 {
		return t
	}
	return successorByKind(b, cfg.EdgeLoopBack)
}

// exceptionHandlerOf returns the block ID an EdgeException successor of
// b targets, and whether b has one at all. A block guards a try body or
// a with body whenever it (or one of the blocks it falls into) carries
// one of these; structureProtected tells the two apart by whether
// simulate left a *ast.WithEnterMark in the block's own statements.
func exceptionHandlerOf(b *cfg.Block) (int, bool) {
	for _, e := range b.Successors {
		if e.Kind == cfg.EdgeException {
			return e.TargetBlockID, true
		}
	}
	return -1, false
}

// structureLoop emits a While (general case) for loop whose header's
// trailing jump is a conditional re-check, threading the header's own
// condition as the while test. The loop body is everything dominated by
// the header that isn't the header itself or outside the loop's natural
// body; the exit block is whichever successor of the header lies
// outside the loop.
func (w *Walker) structureLoop(loop dom.Loop, in []simulate.StackValue) (ast.Stmt, int, error) {
	header := w.Graph.BlockByID(loop.Header)
	if header == nil {
		return nil, -1, fmt.Errorf("🤖 loop header %d not found", loop.Header)
	}
	w.visited[loop.Header] = true

	res, err := w.Sim.SimulateBlock(header, in)
	if err != nil {
		return nil, -1, err
	}

	if res.TrailingJump != nil && res.TrailingJump.Info.Name == "FOR_ITER" {
		return w.structureForLoop(loop, header, res)
	}

	var test ast.Expr = ast.Constant{Value: true, Kind: "bool"}
	var bodyStart, exit int = -1, -1
	if res.Condition != nil {
		test = res.Condition
		for _, e := range header.Successors {
			switch e.Kind {
			case cfg.EdgeTrue:
				bodyStart = e.TargetBlockID
			case cfg.EdgeFalse:
				exit = e.TargetBlockID
			}
		}
	} else if len(header.Successors) > 0 {
		bodyStart = header.Successors[0].TargetBlockID
	}

	stop := map[int]bool{loop.Header: true}
	if exit >= 0 {
		stop[exit] = true
	}
	var bodyStmts []ast.Stmt
	if bodyStart >= 0 && loop.IsInLoop(bodyStart) {
		stmts, _, _, err := w.structure(bodyStart, stop, res.OutStack)
		if err != nil {
			return nil, -1, err
		}
		bodyStmts = stmts
	}

	// the header's own statements belong to the loop-condition check,
	// not the loop body, except for a `while True:` header (no
	// Condition at all), where they legitimately run every iteration.
	if res.Condition == nil {
		bodyStmts = append(append([]ast.Stmt{}, res.Stmts...), bodyStmts...)
	}

	if len(bodyStmts) == 0 {
		bodyStmts = []ast.Stmt{ast.Pass{}}
	}

	return &ast.While{Test: test, Body: bodyStmts}, exit, nil
}

// structureForLoop builds an ast.For from a FOR_ITER-headed loop: the
// iterator expression comes from the GET_ITER marker simulate left on
// the stack, and the loop target comes from the true-branch's leading
// store, which consumed the synthetic "next value" this function seeds
// the branch's stack with.
func (w *Walker) structureForLoop(loop dom.Loop, header *cfg.Block, res *simulate.Result) (ast.Stmt, int, error) {
	stackBeforeIter := res.OutStack
	if len(stackBeforeIter) == 0 {
		return nil, -1, fmt.Errorf("🤖 FOR_ITER block %d has no iterator on its stack", header.ID)
	}
	iterVal := stackBeforeIter[len(stackBeforeIter)-1]
	rest := stackBeforeIter[:len(stackBeforeIter)-1]

	var iterExpr ast.Expr = ast.Constant{Value: nil, Kind: "none"}
	if iterVal.Expr != nil {
		iterExpr = iterVal.Expr
	}

	bodyStart, exit := -1, -1
	for _, e := range header.Successors {
		switch e.Kind {
		case cfg.EdgeTrue:
			bodyStart = e.TargetBlockID
		case cfg.EdgeFalse:
			exit = e.TargetBlockID
		}
	}
	if bodyStart < 0 {
		return nil, -1, fmt.Errorf("🤖 FOR_ITER block %d missing a body edge", header.ID)
	}

	const forNextPlaceholder = "__for_next__"
	nextValue := simulate.StackValue{Kind: simulate.KindExpr, Expr: ast.Name{Id: forNextPlaceholder, Ctx: ast.Load}}
	inStack := append(append([]simulate.StackValue{}, rest...), nextValue)

	stop := map[int]bool{loop.Header: true}
	if exit >= 0 {
		stop[exit] = true
	}
	bodyStmts, _, _, err := w.structure(bodyStart, stop, inStack)
	if err != nil {
		return nil, -1, err
	}

	var target ast.Expr = ast.Name{Id: "_", Ctx: ast.Store}
	if len(bodyStmts) > 0 {
		if assign, ok := bodyStmts[0].(*ast.Assign); ok {
			if name, ok := assign.Value.(ast.Name); ok && name.Id == forNextPlaceholder {
				target = assign.Targets[0]
				bodyStmts = bodyStmts[1:]
			}
		}
	}
	if len(bodyStmts) == 0 {
		bodyStmts = []ast.Stmt{ast.Pass{}}
	}

	return &ast.For{Target: target, Iter: iterExpr, Body: bodyStmts}, exit, nil
}

// structureIf recognizes an if/else (or, when one branch is empty, a
// bare if) from a block whose trailing instruction is a two-way
// conditional jump. It recurses into each branch up to their common
// merge point and, when the else branch is itself a single nested if
// with no other predecessors, lets ast.Print's elif-collapsing handle
// the rendering (structureIf just nests the If values; it does not
// special-case elif itself).
//
// When both branches turn out to produce no statements at all, only a
// single value pushed on top of the stack each, the diamond isn't an if
// statement at all but a ternary expression (`body if test else
// orelse`): structureIf returns a nil ast.Stmt and folds the IfExp into
// the merge stack instead, the same way structureBoolOp folds a
// short-circuit and/or into the stack rather than emitting a statement.
func (w *Walker) structureIf(header *cfg.Block, res *simulate.Result, outerStop map[int]bool) (ast.Stmt, int, []simulate.StackValue, error) {
	trueID := successorByKind(header, cfg.EdgeTrue)
	falseID := successorByKind(header, cfg.EdgeFalse)
	if trueID < 0 || falseID < 0 {
		return nil, -1, nil, fmt.Errorf("🤖 conditional block %d missing a true/false edge", header.ID)
	}

	merge := findMergePoint(w.Graph, trueID, falseID, outerStop)
	stop := map[int]bool{}
	for k := range outerStop {
		stop[k] = true
	}
	if merge >= 0 {
		stop[merge] = true
	}

	trueStmts, trueStack, _, err := w.structure(trueID, stop, res.OutStack)
	if err != nil {
		return nil, -1, nil, err
	}
	falseStmts, falseStack, _, err := w.structure(falseID, stop, res.OutStack)
	if err != nil {
		return nil, -1, nil, err
	}

	if merge >= 0 && len(trueStmts) == 0 && len(falseStmts) == 0 {
		if ternary, ok := tryTernary(res.Condition, res.OutStack, trueStack, falseStack); ok {
			return nil, merge, ternary, nil
		}
	}

	if len(trueStmts) == 0 {
		trueStmts = []ast.Stmt{ast.Pass{}}
	}

	mergeStack := trueStack
	if mergeStack == nil {
		mergeStack = falseStack
	}

	ifStmt := &ast.If{Test: res.Condition, Body: trueStmts, OrElse: falseStmts}
	return ifStmt, merge, mergeStack, nil
}

// tryTernary recognizes the `body if test else orelse` shape: both
// branches of a diamond produced no statements, each leaving exactly
// one more value on the stack than they started with. base is the
// stack both branches started from (res.OutStack); the recovered
// IfExp replaces the one value they each pushed.
func tryTernary(test ast.Expr, base, trueStack, falseStack []simulate.StackValue) ([]simulate.StackValue, bool) {
	if test == nil {
		return nil, false
	}
	if len(trueStack) != len(base)+1 || len(falseStack) != len(base)+1 {
		return nil, false
	}
	body := trueStack[len(trueStack)-1]
	orelse := falseStack[len(falseStack)-1]
	if body.Kind != simulate.KindExpr || orelse.Kind != simulate.KindExpr {
		return nil, false
	}
	merged := append(append([]simulate.StackValue{}, base...), simulate.StackValue{
		Kind: simulate.KindExpr,
		Expr: &ast.IfExp{Test: test, Body: body.Expr, OrElse: orelse.Expr},
	})
	return merged, true
}

// structureBoolOp recognizes short-circuit `and`/`or` from a block
// whose trailing jump is JUMP_IF_TRUE_OR_POP/JUMP_IF_FALSE_OR_POP: that
// jump leaves the tested left operand on the stack and goes straight to
// the merge point when it already decides the result (a falsy `and`
// operand, a truthy `or` operand); otherwise it pops the operand and
// falls through to evaluate the right-hand side. There is no statement
// here — like a ternary, the merge point simply inherits one extra
// stack value, the recovered BoolOp (or, when both sides are single-op
// Compares sharing the same middle term, a single chained Compare —
// this is also the cross-block path real `a < b < c` recovery takes,
// since the DUP_TOP/ROT_THREE/COMPARE_OP/JUMP_IF_FALSE_OR_POP idiom
// always ends its first block at that JUMP_IF_FALSE_OR_POP).
func (w *Walker) structureBoolOp(header *cfg.Block, res *simulate.Result, outerStop map[int]bool) (int, []simulate.StackValue, error) {
	op := "or"
	takenKind, fallKind := cfg.EdgeTrue, cfg.EdgeFalse
	if res.TrailingJump.Info.Name == "JUMP_IF_FALSE_OR_POP" {
		op = "and"
		takenKind, fallKind = cfg.EdgeFalse, cfg.EdgeTrue
	}

	takenID := successorByKind(header, takenKind)
	fallID := successorByKind(header, fallKind)
	if takenID < 0 || fallID < 0 {
		return -1, nil, fmt.Errorf("🤖 short-circuit block %d missing an edge", header.ID)
	}
	left := res.Condition
	if left == nil {
		return -1, nil, fmt.Errorf("🤖 short-circuit block %d has no tested value", header.ID)
	}
	base := res.OutStack
	if len(base) == 0 {
		return -1, nil, fmt.Errorf("🤖 short-circuit block %d has nothing on its stack", header.ID)
	}
	popped := base[:len(base)-1]

	stop := map[int]bool{}
	for k := range outerStop {
		stop[k] = true
	}
	stop[takenID] = true

	_, rightStack, _, err := w.structure(fallID, stop, popped)
	if err != nil {
		return -1, nil, err
	}
	if len(rightStack) == 0 {
		return -1, nil, fmt.Errorf("🤖 short-circuit right operand at block %d left nothing on the stack", fallID)
	}
	right := rightStack[len(rightStack)-1]
	if right.Kind != simulate.KindExpr {
		return -1, nil, fmt.Errorf("🤖 short-circuit right operand at block %d is not an expression", fallID)
	}

	var merged ast.Expr
	if op == "and" {
		if lc, ok := left.(*ast.Compare); ok && len(lc.Comparators) > 0 {
			if rc, ok := right.Expr.(*ast.Compare); ok {
				if reflect.DeepEqual(lc.Comparators[len(lc.Comparators)-1], rc.Left) {
					merged = &ast.Compare{
						Left:        lc.Left,
						Ops:         append(append([]string{}, lc.Ops...), rc.Ops...),
						Comparators: append(append([]ast.Expr{}, lc.Comparators...), rc.Comparators...),
					}
				}
			}
		}
	}
	if merged == nil {
		merged = &ast.BoolOp{Op: op, Values: flattenBoolOp(op, left, right.Expr)}
	}

	// rightStack is popped's contents plus whatever the right operand's
	// region pushed; replace its top (the un-merged right value) with
	// the merged expression. Any statements the right operand's region
	// produced (rightStmts) are dropped: a side-effecting right operand
	// doesn't fit this expression-only shape and would mean the jump
	// wasn't actually a short-circuit and/or to begin with.
	restOfRight := rightStack[:len(rightStack)-1]
	mergeStack := append(append([]simulate.StackValue{}, restOfRight...), simulate.StackValue{Kind: simulate.KindExpr, Expr: merged})

	return takenID, mergeStack, nil
}

// flattenBoolOp merges right into left's Values when they share the
// same operator, recovering `a and b and c` as one three-operand BoolOp
// instead of nesting `(a and b) and c`.
func flattenBoolOp(op string, left, right ast.Expr) []ast.Expr {
	var values []ast.Expr
	if lb, ok := left.(*ast.BoolOp); ok && lb.Op == op {
		values = append(values, lb.Values...)
	} else {
		values = append(values, left)
	}
	if rb, ok := right.(*ast.BoolOp); ok && rb.Op == op {
		values = append(values, rb.Values...)
	} else {
		values = append(values, right)
	}
	return values
}

// extractWithEnterMark scans stmts for the first *ast.WithEnterMark
// simulate left behind for a BEFORE_WITH/SETUP_WITH/SETUP_ASYNC_WITH's
// bound value, splitting stmts around it. pre is everything before the
// mark (ordinary statements preceding the with-statement in the same
// block); rest is everything after it (the start of the with-body that
// happened to simulate within this same block).
func extractWithEnterMark(stmts []ast.Stmt) (mark *ast.WithEnterMark, pre, rest []ast.Stmt, ok bool) {
	for i, s := range stmts {
		if m, isMark := s.(*ast.WithEnterMark); isMark {
			return m, stmts[:i], stmts[i+1:], true
		}
	}
	return nil, nil, nil, false
}

// structureProtected dispatches a block guarded by an exception edge to
// structureWith (when simulate left a with-enter marker in its
// statements) or structureTry (a plain try body) otherwise.
func (w *Walker) structureProtected(b *cfg.Block, res *simulate.Result, handlerID int, stopSet map[int]bool) ([]ast.Stmt, ast.Stmt, int, []simulate.StackValue, error) {
	if mark, pre, rest, ok := extractWithEnterMark(res.Stmts); ok {
		return w.structureWith(b, res, mark, pre, rest, handlerID, stopSet)
	}
	return w.structureTry(b, res, handlerID, stopSet)
}

// structureWith recovers `with ctx as name: body` from a block carrying
// both a *ast.WithEnterMark (BEFORE_WITH's bound value, consumed by a
// STORE_* or POP_TOP) and an exception edge to the cleanup handler
// BEFORE_WITH also sets up. The body is whatever follows the mark,
// gathered the same way an ordinary block's tail is, stopping at the
// handler; 3.11+ bytecode never routes the normal exit path through
// that handler, so this naturally finds the real post-with block, while
// pre-3.11 bytecode does share the normal exit with the (already
// no-op-modeled) cleanup opcodes, so this walks through the handler once
// more in that case to find where flow actually resumes.
func (w *Walker) structureWith(b *cfg.Block, res *simulate.Result, mark *ast.WithEnterMark, pre, rest []ast.Stmt, handlerID int, stopSet map[int]bool) ([]ast.Stmt, ast.Stmt, int, []simulate.StackValue, error) {
	bodyStop := map[int]bool{handlerID: true}
	for k := range stopSet {
		bodyStop[k] = true
	}

	w.pushProtected(handlerID)
	leading, next, outStack, err := w.afterBlock(b, res, bodyStop)
	if err != nil {
		w.popProtected()
		return nil, nil, -1, nil, err
	}
	bodyStmts := append([]ast.Stmt{}, rest...)
	if leading != nil {
		bodyStmts = append(bodyStmts, collapseMatchIfPossible(leading))
	}

	if next >= 0 && next != handlerID {
		more, moreStack, stoppedAt, err := w.structure(next, bodyStop, outStack)
		if err != nil {
			w.popProtected()
			return nil, nil, -1, nil, err
		}
		bodyStmts = append(bodyStmts, more...)
		outStack, next = moreStack, stoppedAt
	}
	w.popProtected()

	if next == handlerID {
		more, moreStack, stoppedAt, err := w.structure(handlerID, stopSet, outStack)
		if err != nil {
			return nil, nil, -1, nil, err
		}
		bodyStmts = append(bodyStmts, more...)
		outStack, next = moreStack, stoppedAt
	}

	if len(bodyStmts) == 0 {
		bodyStmts = []ast.Stmt{ast.Pass{}}
	}

	withStmt := &ast.With{Items: []ast.WithItem{mark.Item}, Body: bodyStmts}
	return pre, withStmt, next, outStack, nil
}

// structureTry recovers `try: body except: handler` from a block
// protected by an exception edge with no with-enter marker. The except
// clause recovered is always bare (Type nil, no bound name): recovering
// the matched exception type/name would mean decoding the
// CHECK_EXC_MATCH/JUMP_IF_NOT_EXC_MATCH dispatch chain multiple except
// clauses compile to, which is future work (see DESIGN.md); the clause
// body itself is fully recovered regardless.
func (w *Walker) structureTry(b *cfg.Block, res *simulate.Result, handlerID int, stopSet map[int]bool) ([]ast.Stmt, ast.Stmt, int, []simulate.StackValue, error) {
	bodyStop := map[int]bool{handlerID: true}
	for k := range stopSet {
		bodyStop[k] = true
	}

	w.pushProtected(handlerID)
	leading, next, outStack, err := w.afterBlock(b, res, bodyStop)
	if err != nil {
		w.popProtected()
		return nil, nil, -1, nil, err
	}
	bodyStmts := append([]ast.Stmt{}, res.Stmts...)
	if leading != nil {
		bodyStmts = append(bodyStmts, collapseMatchIfPossible(leading))
	}
	bodyExit := next
	if next >= 0 && next != handlerID {
		more, moreStack, stoppedAt, err := w.structure(next, bodyStop, outStack)
		if err != nil {
			w.popProtected()
			return nil, nil, -1, nil, err
		}
		bodyStmts = append(bodyStmts, more...)
		outStack, bodyExit = moreStack, stoppedAt
	}
	w.popProtected()
	if len(bodyStmts) == 0 {
		bodyStmts = []ast.Stmt{ast.Pass{}}
	}

	handlerStmts, _, handlerExit, err := w.structure(handlerID, stopSet, nil)
	if err != nil {
		return nil, nil, -1, nil, err
	}
	if len(handlerStmts) == 0 {
		handlerStmts = []ast.Stmt{ast.Pass{}}
	}

	merge := mergeExits(w.Graph, bodyExit, handlerExit, stopSet)

	tryStmt := &ast.Try{Body: bodyStmts, Handlers: []ast.ExceptHandler{{Body: handlerStmts}}}
	return nil, tryStmt, merge, outStack, nil
}

// mergeExits picks the block where two regions (a try body and its
// handler, or any two siblings) reconverge, given each one's own exit
// block (-1 if that region ran off the end without a further
// successor).
func mergeExits(graph *cfg.CFG, a, b int, stop map[int]bool) int {
	switch {
	case a < 0 && b < 0:
		return -1
	case a < 0:
		return b
	case b < 0:
		return a
	case a == b:
		return a
	default:
		if m := findMergePoint(graph, a, b, stop); m >= 0 {
			return m
		}
		return a
	}
}

// collapseMatch rewrites an equality elif-chain into an ast.Match when
// every test in the chain compares the same subject expression against
// a literal with `==` — the shape CPython's match statement compiles a
// run of literal-pattern cases to. Class/sequence/mapping patterns
// (compiled via the MATCH_* opcode family instead of COMPARE_OP) are
// not recovered this way; see DESIGN.md.
func collapseMatch(top *ast.If) (*ast.Match, bool) {
	subject, pattern, ok := matchArm(top.Test)
	if !ok {
		return nil, false
	}
	cases := []ast.MatchCase{{Pattern: pattern, Body: top.Body}}
	orelse := top.OrElse
	for len(orelse) == 1 {
		next, ok := orelse[0].(*ast.If)
		if !ok {
			break
		}
		s2, p2, ok2 := matchArm(next.Test)
		if !ok2 || !reflect.DeepEqual(s2, subject) {
			break
		}
		cases = append(cases, ast.MatchCase{Pattern: p2, Body: next.Body})
		orelse = next.OrElse
	}
	if len(cases) < 2 {
		return nil, false // not worth rewriting a plain if/else
	}
	if len(orelse) > 0 {
		cases = append(cases, ast.MatchCase{Pattern: "_", Body: orelse})
	}
	return &ast.Match{Subject: subject, Cases: cases}, true
}

// matchArm reports whether test is a single `subject == literal`
// comparison, returning the subject and the literal's printed form as a
// match pattern.
func matchArm(test ast.Expr) (ast.Expr, string, bool) {
	cmp, ok := test.(*ast.Compare)
	if !ok || len(cmp.Ops) != 1 || cmp.Ops[0] != "==" || len(cmp.Comparators) != 1 {
		return nil, "", false
	}
	return cmp.Left, ast.PrintExpr(cmp.Comparators[0]), true
}

// findMergePoint returns the nearest block both a and b can reach —
// computed as the first block, walking forward from a and b in
// lockstep breadth-first order, that both searches reach — or -1 if
// they never reconverge within the graph (the branch bodies both
// terminate the function, e.g. two RETURN_VALUEs).
func findMergePoint(graph *cfg.CFG, a, b int, stop map[int]bool) int {
	reachableFrom := func(start int) map[int]int {
		dist := map[int]int{start: 0}
		queue := []int{start}
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			if stop[id] {
				continue
			}
			blk := graph.BlockByID(id)
			if blk == nil {
				continue
			}
			for _, e := range blk.Successors {
				if _, seen := dist[e.TargetBlockID]; !seen {
					dist[e.TargetBlockID] = dist[id] + 1
					queue = append(queue, e.TargetBlockID)
				}
			}
		}
		return dist
	}

	distA := reachableFrom(a)
	distB := reachableFrom(b)

	best, bestDist := -1, -1
	for id, da := range distA {
		db, ok := distB[id]
		if !ok {
			continue
		}
		total := da + db
		if best == -1 || total < bestDist {
			best, bestDist = id, total
		}
	}
	return best
}
