package grading

import (
	"fmt"
	"math"
)

// Template names a starting layout for a new grading model.
type Template string

const (
	TemplateNone     Template = "none"
	TemplateAddition Template = "addition"
	TemplateAverage  Template = "average"
)

// TerminalNodeID is the id templates give the terminal node.
const TerminalNodeID = "final-grade"

// TemplateSource is a task or course part a template wires in.
type TemplateSource struct {
	ID    int
	Kind  SourceKind
	Title string
}

// NewTemplate builds a model graph over sources. The addition and average
// templates feed every source into one aggregator followed by a six-step
// stepper mapping the aggregate to 0-5. The none template only lays out the
// sources and the terminal; it does not validate until it is wired.
func NewTemplate(tmpl Template, sources []TemplateSource, title string) (*Graph, error) {
	if title == "" {
		title = "Final grade"
	}
	g := &Graph{
		Nodes:      []Node{{ID: TerminalNodeID, Kind: KindTerminal}},
		NodeConfig: map[string]NodeConfig{TerminalNodeID: {Title: title}},
	}
	ids := make([]string, len(sources))
	for i, s := range sources {
		kind := s.Kind
		if kind == "" {
			kind = SourceTask
		}
		ids[i] = SourceNodeID(kind, s.ID)
		g.Nodes = append(g.Nodes, Node{ID: ids[i], Kind: KindSource})
		id := s.ID
		g.NodeConfig[ids[i]] = NodeConfig{Title: s.Title, SourceID: &id, SourceKind: kind}
	}

	var middle []float64
	switch tmpl {
	case TemplateNone:
		return g, nil
	case TemplateAddition:
		g.NodeConfig[string(KindAddition)] = NodeConfig{Title: "Addition"}
		middle = make([]float64, 5)
		for i := range middle {
			middle[i] = round1(float64((i+1)*10*len(sources)) / 6)
		}
	case TemplateAverage:
		weights := make(map[string]float64, len(sources))
		for _, id := range ids {
			weights[id] = round1(100 / float64(len(sources)))
		}
		g.NodeConfig[string(KindAverage)] = NodeConfig{Title: "Average", Weights: weights}
		middle = []float64{1.7, 3.3, 5, 6.7, 8.3}
	default:
		return nil, fmt.Errorf("unknown template %q", tmpl)
	}
	if len(sources) == 0 {
		return nil, fmt.Errorf("template %q needs at least one source", tmpl)
	}

	agg := string(tmpl)
	g.Nodes = append(g.Nodes, Node{ID: agg, Kind: Kind(tmpl)}, Node{ID: "stepper", Kind: KindStepper})
	for _, id := range ids {
		g.Edges = append(g.Edges, Edge{From: id, To: agg})
	}
	g.Edges = append(g.Edges, Edge{From: agg, To: "stepper"}, Edge{From: "stepper", To: TerminalNodeID})

	outputs := make([]StepOutput, 6)
	for i := range outputs {
		outputs[i] = StepOutput{Value: float64(i)}
	}
	g.NodeConfig["stepper"] = NodeConfig{Title: "Convert to grade", MiddlePoints: middle, OutputValues: outputs}
	return g, nil
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }
