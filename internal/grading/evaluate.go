package grading

import (
	"fmt"
)

// Plan is a graph prepared for repeated evaluation: ordering, predecessor
// lists and configs are resolved once and shared by every subject. A Plan is
// read-only after construction and safe for concurrent use.
type Plan struct {
	ids      []string
	kinds    []Kind
	in       [][]int
	configs  []NodeConfig
	order    []int
	terminal int
	maxIn    int

	// Validation holds the result of the check performed by Compile.
	Validation ValidationResult
}

// Compile validates g and prepares it for evaluation. Invalid graphs are
// rejected with the joined structural errors.
func Compile(g *Graph) (*Plan, error) {
	res := Validate(g)
	if err := res.Err(); err != nil {
		return nil, fmt.Errorf("invalid grading graph: %w", err)
	}
	ix, _ := buildIndex(g)
	p := newPlan(g, ix, ix.topoOrder())
	p.Validation = res
	return p, nil
}

func newPlan(g *Graph, ix *index, order []int) *Plan {
	p := &Plan{
		ids:      ix.ids,
		kinds:    ix.kinds,
		in:       ix.in,
		configs:  make([]NodeConfig, len(ix.ids)),
		order:    order,
		terminal: -1,
	}
	for i, id := range ix.ids {
		p.configs[i] = g.Config(id)
		if ix.kinds[i] == KindTerminal && p.terminal < 0 {
			p.terminal = i
		}
		if len(ix.in[i]) > p.maxIn {
			p.maxIn = len(ix.in[i])
		}
	}
	return p
}

// Order returns the node ids in evaluation order.
func (p *Plan) Order() []string {
	out := make([]string, len(p.order))
	for i, n := range p.order {
		out[i] = p.ids[n]
	}
	return out
}

// Evaluate walks g in the given order. Ids in order that are not nodes of g
// are skipped. The graph is assumed valid; use Validate or Compile first.
func Evaluate(g *Graph, order []string, sources map[string]SourceValue) Result {
	ix, _ := buildIndex(g)
	idx := make([]int, 0, len(order))
	for _, id := range order {
		if n, ok := ix.pos[id]; ok {
			idx = append(idx, n)
		}
	}
	return newPlan(g, ix, idx).Evaluate(sources)
}

// Evaluate computes every node for one subject. Sources without an entry in
// sources count as absent with value 0 and produce a MissingSource warning.
func (p *Plan) Evaluate(sources map[string]SourceValue) Result {
	outs := make([]Output, len(p.ids))
	inputs := make([]Input, 0, p.maxIn)
	res := Result{NodeValues: make(map[string]float64, len(p.order))}

	for _, n := range p.order {
		id := p.ids[n]
		if p.kinds[n] == KindSource {
			sv, ok := sources[id]
			switch {
			case !ok:
				outs[n] = Output{Missing: true, Absent: true}
				res.Warnings = append(res.Warnings, missingSource(id, "no value supplied"))
			case sv.Missing:
				outs[n] = Output{Value: sv.Value, Missing: true, Absent: true}
				res.Warnings = append(res.Warnings, missingSource(id, "no grade recorded"))
			default:
				outs[n] = Output{Value: sv.Value}
			}
			outs[n] = sourceThreshold(outs[n], p.configs[n])
		} else {
			inputs = inputs[:0]
			for _, from := range p.in[n] {
				o := outs[from]
				inputs = append(inputs, Input{NodeID: p.ids[from], Value: o.Value, Missing: o.Missing, Absent: o.Absent})
			}
			outs[n] = evaluateNode(p.kinds[n], inputs, p.configs[n])
		}

		o := outs[n]
		res.NodeValues[id] = o.Value
		if o.Missing {
			if res.Missing == nil {
				res.Missing = make(map[string]bool)
			}
			res.Missing[id] = true
		}
		if o.Failed {
			if res.Failed == nil {
				res.Failed = make(map[string]bool)
			}
			res.Failed[id] = true
		}
		if o.CourseFail && !res.CourseFail {
			res.CourseFail = true
			res.Warnings = append(res.Warnings, Warning{
				Kind:    WarnCourseFail,
				NodeID:  id,
				Value:   o.Value,
				Message: fmt.Sprintf("node %q is below its minimum and fails the course", id),
			})
		}
	}

	if p.terminal >= 0 {
		res.TerminalValue = outs[p.terminal].Value
	}
	if res.CourseFail {
		res.TerminalValue = 0
		if p.terminal >= 0 {
			res.NodeValues[p.ids[p.terminal]] = 0
		}
	}
	return res
}

func missingSource(id, why string) Warning {
	return Warning{
		Kind:    WarnMissingSource,
		NodeID:  id,
		Message: fmt.Sprintf("source %q: %s", id, why),
	}
}
