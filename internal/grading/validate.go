package grading

import (
	"container/heap"
	"errors"
	"fmt"
	"sort"
)

// ValidationResult is the outcome of Validate. Errors are fatal; Warnings are
// modeling hints (orphan sources) that do not block evaluation.
type ValidationResult struct {
	Errors   []*StructuralError
	Warnings []Warning
}

// OK reports whether the graph may be evaluated.
func (r ValidationResult) OK() bool { return len(r.Errors) == 0 }

// Err joins all structural errors, or returns nil.
func (r ValidationResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, 0, len(r.Errors))
	for _, e := range r.Errors {
		errs = append(errs, e)
	}
	return errors.Join(errs...)
}

// Has reports whether any error of the given kind was found.
func (r ValidationResult) Has(kind error) bool {
	for _, e := range r.Errors {
		if errors.Is(e, kind) {
			return true
		}
	}
	return false
}

// index is the adjacency form of a Graph. Node positions are canonical: nodes
// sorted by id, so ordering by position is ordering by id.
type index struct {
	ids   []string
	pos   map[string]int
	kinds []Kind
	in    [][]int // sorted ascending, deduplicated
	out   [][]int // sorted ascending, deduplicated
}

// buildIndex indexes the well-formed part of g and reports node and edge level
// problems. Duplicate nodes keep their first declaration; dangling edges are dropped.
func buildIndex(g *Graph) (*index, []*StructuralError) {
	var errs []*StructuralError

	kinds := make(map[string]Kind, len(g.Nodes))
	ids := make([]string, 0, len(g.Nodes))
	for _, n := range g.Nodes {
		if _, dup := kinds[n.ID]; dup {
			errs = append(errs, structuralf(ErrDuplicateNode, []string{n.ID}, "%q", n.ID))
			continue
		}
		if !n.Kind.Valid() {
			errs = append(errs, structuralf(ErrUnknownKind, []string{n.ID}, "node %q has kind %q", n.ID, n.Kind))
		}
		kinds[n.ID] = n.Kind
		ids = append(ids, n.ID)
	}
	sort.Strings(ids)

	ix := &index{
		ids:   ids,
		pos:   make(map[string]int, len(ids)),
		kinds: make([]Kind, len(ids)),
		in:    make([][]int, len(ids)),
		out:   make([][]int, len(ids)),
	}
	for i, id := range ids {
		ix.pos[id] = i
		ix.kinds[i] = kinds[id]
	}

	seen := make(map[[2]int]struct{}, len(g.Edges))
	for _, e := range g.Edges {
		from, okFrom := ix.pos[e.From]
		to, okTo := ix.pos[e.To]
		if !okFrom || !okTo {
			errs = append(errs, structuralf(ErrDanglingEdge, []string{e.From, e.To}, "%q -> %q", e.From, e.To))
			continue
		}
		pair := [2]int{from, to}
		if _, dup := seen[pair]; dup {
			continue
		}
		seen[pair] = struct{}{}
		ix.out[from] = append(ix.out[from], to)
		ix.in[to] = append(ix.in[to], from)
	}
	for i := range ix.ids {
		sort.Ints(ix.in[i])
		sort.Ints(ix.out[i])
	}
	return ix, errs
}

// Validate checks g for well-formedness. It is meant to run once per model
// version; see PlanCache.
func Validate(g *Graph) ValidationResult {
	ix, errs := buildIndex(g)
	res := ValidationResult{Errors: errs}

	terminals := 0
	for i, id := range ix.ids {
		kind := ix.kinds[i]
		indeg, outdeg := len(ix.in[i]), len(ix.out[i])
		switch kind {
		case KindSource:
			if indeg > 0 {
				res.Errors = append(res.Errors, structuralf(ErrSourceHasInputs, []string{id}, "%q", id))
			}
			if outdeg == 0 {
				res.Warnings = append(res.Warnings, Warning{
					Kind:    WarnOrphanSource,
					NodeID:  id,
					Message: fmt.Sprintf("source %q is not connected to anything", id),
				})
			}
		case KindTerminal:
			terminals++
			if outdeg > 0 {
				res.Errors = append(res.Errors, structuralf(ErrTerminalHasOutputs, []string{id}, "%q", id))
			}
			if indeg > 1 {
				res.Errors = append(res.Errors, structuralf(ErrMultipleInputsToTerminal, []string{id}, "%q has %d inputs", id, indeg))
			}
		case KindManual:
			// A manual override is a constant and may stand without inputs.
		default:
			if kind.singleInput() && indeg > 1 {
				res.Errors = append(res.Errors, structuralf(ErrMultipleInputs, []string{id}, "%s node %q has %d inputs", kind, id, indeg))
			}
		}
		if kind != KindSource && kind != KindManual && kind.Valid() && indeg == 0 {
			res.Errors = append(res.Errors, structuralf(ErrStarvedNode, []string{id}, "%q", id))
		}
		if err := validateConfig(id, kind, g.Config(id)); err != nil {
			res.Errors = append(res.Errors, err)
		}
	}
	if terminals != 1 {
		res.Errors = append(res.Errors, structuralf(ErrMultipleOrMissingTerminal, nil, "found %d", terminals))
	}

	if order := ix.topoOrder(); len(order) != len(ix.ids) {
		res.Errors = append(res.Errors, cycleError(ix.findCycle()))
	}
	return res
}

func validateConfig(id string, kind Kind, cfg NodeConfig) *StructuralError {
	switch kind {
	case KindAverage:
		for k, w := range cfg.Weights {
			if w < 0 {
				return structuralf(ErrInvalidConfig, []string{id}, "average %q: negative weight for %q", id, k)
			}
		}
	case KindRound:
		switch cfg.Rounding {
		case RoundUp, RoundClosest, RoundDown:
		default:
			return structuralf(ErrInvalidConfig, []string{id}, "round %q: unknown rounding %q", id, cfg.Rounding)
		}
	case KindStepper:
		n := len(cfg.OutputValues)
		if n == 0 {
			return structuralf(ErrInvalidConfig, []string{id}, "stepper %q: no output values", id)
		}
		if len(cfg.MiddlePoints) != n-1 {
			return structuralf(ErrInvalidConfig, []string{id}, "stepper %q: %d outputs need %d middle points, got %d",
				id, n, n-1, len(cfg.MiddlePoints))
		}
		for i := 1; i < len(cfg.MiddlePoints); i++ {
			if cfg.MiddlePoints[i] < cfg.MiddlePoints[i-1] {
				return structuralf(ErrInvalidConfig, []string{id}, "stepper %q: middle points not ascending", id)
			}
		}
	case KindMinPoints, KindSource:
		switch cfg.OnFail {
		case "", OnFailFail, OnFailCourseFail:
		default:
			return structuralf(ErrInvalidConfig, []string{id}, "%s %q: unknown onFailSetting %q", kind, id, cfg.OnFail)
		}
	}
	return nil
}

// TopologicalOrder returns node ids in dependency order. Among ready nodes the
// lexically smallest id goes first, so the order is stable for a given graph.
func TopologicalOrder(g *Graph) ([]string, error) {
	ix, _ := buildIndex(g)
	order := ix.topoOrder()
	if len(order) != len(ix.ids) {
		return nil, cycleError(ix.findCycle())
	}
	out := make([]string, len(order))
	for i, n := range order {
		out[i] = ix.ids[n]
	}
	return out, nil
}

type intMinHeap []int

func (h intMinHeap) Len() int           { return len(h) }
func (h intMinHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h intMinHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *intMinHeap) Push(x any)        { *h = append(*h, x.(int)) }
func (h *intMinHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}

// topoOrder runs Kahn's algorithm. A result shorter than the node count means
// the remaining nodes sit on or behind a cycle.
func (ix *index) topoOrder() []int {
	indeg := make([]int, len(ix.ids))
	for i := range ix.in {
		indeg[i] = len(ix.in[i])
	}

	ready := &intMinHeap{}
	for i, d := range indeg {
		if d == 0 {
			*ready = append(*ready, i)
		}
	}
	heap.Init(ready)

	out := make([]int, 0, len(indeg))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(int)
		out = append(out, n)
		for _, m := range ix.out[n] {
			indeg[m]--
			if indeg[m] == 0 {
				heap.Push(ready, m)
			}
		}
	}
	return out
}

// findCycle extracts one cycle as a closed path of ids, e.g. [a b a].
func (ix *index) findCycle() []string {
	const (
		white = iota
		gray
		black
	)
	color := make([]int, len(ix.ids))
	parent := make([]int, len(ix.ids))
	for i := range parent {
		parent[i] = -1
	}

	var cycle []int
	var dfs func(u int) bool
	dfs = func(u int) bool {
		color[u] = gray
		for _, v := range ix.out[u] {
			switch color[v] {
			case white:
				parent[v] = u
				if dfs(v) {
					return true
				}
			case gray:
				// back edge u -> v closes v ... u -> v
				cycle = append(cycle, v)
				for cur := u; cur != -1 && cur != v; cur = parent[cur] {
					cycle = append(cycle, cur)
				}
				cycle = append(cycle, v)
				return true
			}
		}
		color[u] = black
		return false
	}
	for i := range ix.ids {
		if color[i] == white && dfs(i) {
			break
		}
	}

	out := make([]string, 0, len(cycle))
	for i := len(cycle) - 1; i >= 0; i-- {
		out = append(out, ix.ids[cycle[i]])
	}
	return out
}
