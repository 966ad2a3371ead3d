package grading

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies the evaluation semantics of a node.
type Kind string

const (
	KindSource    Kind = "source"
	KindAddition  Kind = "addition"
	KindAverage   Kind = "average"
	KindMax       Kind = "max"
	KindManual    Kind = "manual"
	KindTerminal  Kind = "terminal"
	KindRound     Kind = "round"
	KindStepper   Kind = "stepper"
	KindMinPoints Kind = "minpoints"
)

// Valid reports whether k is one of the known node kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindSource, KindAddition, KindAverage, KindMax, KindManual,
		KindTerminal, KindRound, KindStepper, KindMinPoints:
		return true
	}
	return false
}

// singleInput reports whether nodes of this kind consume exactly one input.
func (k Kind) singleInput() bool {
	switch k {
	case KindTerminal, KindRound, KindStepper, KindMinPoints:
		return true
	}
	return false
}

// SourceKind tells what a source node measures.
type SourceKind string

const (
	SourceTask       SourceKind = "task"
	SourceCoursePart SourceKind = "coursepart"
)

// Node is a DAG vertex. Presentation fields of the editor document are not kept.
type Node struct {
	ID   string `json:"id"`
	Kind Kind   `json:"type"`
}

// Edge is a directed input -> consumer connection.
type Edge struct {
	From string `json:"source"`
	To   string `json:"target"`
}

// Rounding is the mode of a round node.
type Rounding string

const (
	RoundUp      Rounding = "round-up"
	RoundClosest Rounding = "round-closest"
	RoundDown    Rounding = "round-down"
)

// OnFail decides what a minpoints node does when its input is below the limit.
type OnFail string

const (
	OnFailFail       OnFail = "fail"
	OnFailCourseFail OnFail = "coursefail"
)

// StepOutput is one stepper output: a fixed number, or the input passed through.
type StepOutput struct {
	Same  bool
	Value float64
}

func (s StepOutput) MarshalJSON() ([]byte, error) {
	if s.Same {
		return []byte(`"same"`), nil
	}
	return json.Marshal(s.Value)
}

func (s *StepOutput) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var str string
		if err := json.Unmarshal(b, &str); err != nil {
			return err
		}
		if str != "same" {
			return fmt.Errorf("stepper output %q: want a number or \"same\"", str)
		}
		*s = StepOutput{Same: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	*s = StepOutput{Value: v}
	return nil
}

// NodeConfig carries per-node settings. Only the fields relevant to the node's
// kind are read.
type NodeConfig struct {
	Title string `json:"title,omitempty"`

	// source
	SourceID   *int       `json:"sourceId,omitempty"`
	SourceKind SourceKind `json:"sourceKind,omitempty"`

	// average: weight per upstream node id, missing keys weigh 1
	Weights map[string]float64 `json:"weights,omitempty"`

	// max
	MinValue *float64 `json:"minValue,omitempty"`

	// manual
	Value float64 `json:"value,omitempty"`

	// round
	Rounding Rounding `json:"roundingSetting,omitempty"`

	// stepper
	MiddlePoints []float64    `json:"middlePoints,omitempty"`
	OutputValues []StepOutput `json:"outputValues,omitempty"`

	// minpoints
	MinPoints float64 `json:"minPoints,omitempty"`
	OnFail    OnFail  `json:"onFailSetting,omitempty"`
}

// Graph is the evaluable structure of a grading model. The engine never mutates it.
type Graph struct {
	Nodes      []Node                `json:"nodes"`
	Edges      []Edge                `json:"edges"`
	NodeConfig map[string]NodeConfig `json:"nodeData,omitempty"`
}

// Config returns the configuration of a node, or the zero value.
func (g *Graph) Config(id string) NodeConfig {
	if g.NodeConfig == nil {
		return NodeConfig{}
	}
	return g.NodeConfig[id]
}

// Node returns the node with the given id.
func (g *Graph) Node(id string) (Node, bool) {
	for _, n := range g.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}

// SourceNodes returns the ids of all source nodes in declaration order.
func (g *Graph) SourceNodes() []string {
	var out []string
	for _, n := range g.Nodes {
		if n.Kind == KindSource {
			out = append(out, n.ID)
		}
	}
	return out
}

// SourceRef resolves which task or course part a source node measures. The
// node's config wins; otherwise ids of the form "source-<id>" (task) and
// "coursepart-<id>" are understood.
func (g *Graph) SourceRef(nodeID string) (SourceKind, int, bool) {
	return g.sourceRef(nodeID, SourceTask)
}

// FinalSourceRef is SourceRef for a final-grade model, where an unconfigured
// "source-<id>" names a course part the way the model editor writes it.
func (g *Graph) FinalSourceRef(nodeID string) (SourceKind, int, bool) {
	return g.sourceRef(nodeID, SourceCoursePart)
}

func (g *Graph) sourceRef(nodeID string, bare SourceKind) (SourceKind, int, bool) {
	cfg := g.Config(nodeID)
	kind := cfg.SourceKind
	if kind == "" {
		kind = bare
	}
	if cfg.SourceID != nil {
		return kind, *cfg.SourceID, true
	}
	prefix, rest, ok := strings.Cut(nodeID, "-")
	if !ok {
		return "", 0, false
	}
	id, err := strconv.Atoi(rest)
	if err != nil {
		return "", 0, false
	}
	switch prefix {
	case "source":
		return kind, id, true
	case "coursepart":
		return SourceCoursePart, id, true
	}
	return "", 0, false
}

// SourceNodeID is the conventional node id for a source.
func SourceNodeID(kind SourceKind, id int) string {
	if kind == SourceCoursePart {
		return "coursepart-" + strconv.Itoa(id)
	}
	return "source-" + strconv.Itoa(id)
}
