// Package dom computes immediate dominators and natural loops over a
// cfg.CFG, using the iterative Cooper-Harvey-Kennedy algorithm
// (spec.md §4.D). Blocks the entry can't reach are not a pipeline
// failure: they get themselves as idom (a sentinel) and never
// dominate anything but themselves, so Dominates/NaturalLoops simply
// ignore them. A runaway fixed-point iteration is the only condition
// that still aborts Build, since it indicates malformed edges rather
// than ordinary dead code.
package dom

import (
	"fmt"

	"pydecomp/cfg"
)

// maxIterations bounds the dominator fixed-point loop. A correct
// implementation converges in O(blocks) passes; anything past this is
// almost certainly a bug in edge construction upstream, not slow
// convergence, so it is reported rather than looped on forever.
const maxIterations = 10000

// Tree is the computed dominator relation over one CFG, rooted at the
// CFG's entry block (block ID 0).
type Tree struct {
	idom    map[int]int // block ID -> immediate dominator's block ID; entry maps to itself
	rpo     []int       // block IDs in reverse postorder
	rpoRank map[int]int
}

// Dominates reports whether block a dominates block b (every path from
// the entry to b passes through a). Every block dominates itself.
func (t *Tree) Dominates(a, b int) bool {
	if a == b {
		return true
	}
	cur := b
	for {
		parent, ok := t.idom[cur]
		if !ok {
			return false
		}
		if parent == cur {
			return false // reached the entry without finding a
		}
		if parent == a {
			return true
		}
		cur = parent
	}
}

// ImmediateDominator returns id's immediate dominator, or id itself for
// the entry block.
func (t *Tree) ImmediateDominator(id int) (int, bool) {
	v, ok := t.idom[id]
	return v, ok
}

// Loop is one natural loop: Header is the block all back-edges target,
// Body is every block in the loop, Header included.
type Loop struct {
	Header int
	Body   map[int]bool
}

// Build computes the dominator tree for graph. Blocks unreachable from
// the entry block (ID 0) are not an error: each gets idom[n] = n (a
// sentinel meaning "dominated by nothing but itself") and is excluded
// from the iterative relation entirely.
func Build(graph *cfg.CFG) (*Tree, error) {
	if len(graph.Blocks) == 0 {
		return &Tree{idom: map[int]int{}, rpoRank: map[int]int{}}, nil
	}

	rpo := reversePostorder(graph)
	rank := map[int]int{}
	for i, id := range rpo {
		rank[id] = i
	}

	idom := map[int]int{rpo[0]: rpo[0]}
	changed := true
	iterations := 0
	for changed {
		iterations++
		if iterations > maxIterations {
			return nil, fmt.Errorf("🤖 dominator computation failed to converge after %d iterations", maxIterations)
		}
		changed = false
		for _, id := range rpo[1:] {
			newIdom := -1
			for _, pred := range predecessorsOf(graph, id) {
				if _, ok := idom[pred]; !ok {
					continue
				}
				if newIdom == -1 {
					newIdom = pred
					continue
				}
				newIdom = intersect(idom, rank, newIdom, pred)
			}
			if newIdom == -1 {
				return nil, fmt.Errorf("🤖 block %d is reachable from the entry but has no reachable predecessor in its edge list", id)
			}
			if cur, ok := idom[id]; !ok || cur != newIdom {
				idom[id] = newIdom
				changed = true
			}
		}
	}

	// Blocks the entry-rooted DFS never reached (dead code, or code
	// only entered through an edge this build forgot to wire) get
	// themselves as idom, per spec.md §3/§4.D's unreachable-block
	// sentinel: they dominate nothing but themselves and Dominates
	// reports that correctly without any special-casing there.
	for _, b := range graph.Blocks {
		if _, ok := idom[b.ID]; !ok {
			idom[b.ID] = b.ID
		}
	}

	return &Tree{idom: idom, rpo: rpo, rpoRank: rank}, nil
}

func intersect(idom map[int]int, rank map[int]int, a, b int) int {
	for a != b {
		for rank[a] > rank[b] {
			a = idom[a]
		}
		for rank[b] > rank[a] {
			b = idom[b]
		}
	}
	return a
}

func predecessorsOf(graph *cfg.CFG, id int) []int {
	b := graph.BlockByID(id)
	if b == nil {
		return nil
	}
	var preds []int
	for _, e := range b.Predecessors {
		preds = append(preds, e.TargetBlockID)
	}
	return preds
}

// reversePostorder returns the reverse postorder of every block reached
// from the entry by a DFS over Successors. Blocks dead code leaves
// unreached (no caller, an always-false guard, whatever) simply don't
// appear here; Build gives them the idom[n] = n sentinel afterward
// rather than treating their absence as malformed input.
func reversePostorder(graph *cfg.CFG) []int {
	visited := map[int]bool{}
	var post []int

	var visit func(id int)
	visit = func(id int) {
		if visited[id] {
			return
		}
		visited[id] = true
		b := graph.BlockByID(id)
		if b == nil {
			return
		}
		for _, e := range b.Successors {
			visit(e.TargetBlockID)
		}
		post = append(post, id)
	}

	visit(graph.Blocks[0].ID)

	rpo := make([]int, len(post))
	for i, id := range post {
		rpo[len(post)-1-i] = id
	}
	return rpo
}

// NaturalLoops returns every natural loop in graph, one per back edge's
// distinct header, found via t's dominator relation: an edge n -> h is
// a back edge iff h dominates n, and the loop body is h plus every
// block that can reach n without leaving through h.
func NaturalLoops(graph *cfg.CFG, t *Tree) []Loop {
	var loops []Loop
	seen := map[int]*Loop{}

	for _, b := range graph.Blocks {
		for _, e := range b.Successors {
			header := e.TargetBlockID
			if !t.Dominates(header, b.ID) {
				continue
			}
			if existing, ok := seen[header]; ok {
				growLoopBody(graph, existing, b.ID)
				continue
			}
			l := &Loop{Header: header, Body: map[int]bool{header: true}}
			growLoopBody(graph, l, b.ID)
			seen[header] = l
			loops = append(loops, *l)
		}
	}

	// growLoopBody mutates through the seen map's pointers; re-read the
	// final state into the returned slice.
	for i := range loops {
		loops[i] = *seen[loops[i].Header]
	}
	return loops
}

func growLoopBody(graph *cfg.CFG, l *Loop, from int) {
	if l.Body[from] {
		return
	}
	stack := []int{from}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if l.Body[id] {
			continue
		}
		l.Body[id] = true
		b := graph.BlockByID(id)
		if b == nil {
			continue
		}
		for _, e := range b.Predecessors {
			if !l.Body[e.TargetBlockID] {
				stack = append(stack, e.TargetBlockID)
			}
		}
	}
}

// IsInLoop reports whether block id is a member of l's body.
func (l Loop) IsInLoop(id int) bool {
	return l.Body[id]
}

// LoopHeaders returns the header block ID of every loop found in graph.
func LoopHeaders(graph *cfg.CFG, t *Tree) []int {
	var headers []int
	seen := map[int]bool{}
	for _, l := range NaturalLoops(graph, t) {
		if !seen[l.Header] {
			seen[l.Header] = true
			headers = append(headers, l.Header)
		}
	}
	return headers
}
