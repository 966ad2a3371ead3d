package grading

// WarningKind classifies a non-fatal finding.
type WarningKind string

const (
	// validation time
	WarnOrphanSource WarningKind = "OrphanSource"

	// per subject
	WarnMissingSource   WarningKind = "MissingSource"
	WarnNonIntegerGrade WarningKind = "NonIntegerGrade"
	WarnOutOfRangeGrade WarningKind = "OutOfRangeGrade"
	WarnCourseFail      WarningKind = "CourseFail"
)

// Warning is a data-quality or modeling note attached to a result.
type Warning struct {
	Kind    WarningKind `json:"kind"`
	NodeID  string      `json:"nodeId,omitempty"`
	Value   float64     `json:"value,omitempty"`
	Message string      `json:"message"`
}

// SourceValue is the externally supplied value of one source node.
type SourceValue struct {
	Value   float64 `json:"value"`
	Missing bool    `json:"missing,omitempty"`
}

// Present wraps a known value.
func Present(v float64) SourceValue { return SourceValue{Value: v} }

// Absent is the substitute for a source without a record.
func Absent() SourceValue { return SourceValue{Missing: true} }

// Result is the evaluation of one graph for one subject. It is recomputed on
// every call and never stored by the engine.
type Result struct {
	TerminalValue float64            `json:"terminalValue"`
	NodeValues    map[string]float64 `json:"nodeValues"`
	Missing       map[string]bool    `json:"missing,omitempty"`
	// Failed lists the nodes whose value fell below their minimum and was
	// replaced by 0.
	Failed     map[string]bool `json:"failed,omitempty"`
	CourseFail bool            `json:"courseFail,omitempty"`
	Warnings   []Warning       `json:"warnings"`
}

// HasWarning reports whether r carries a warning of the given kind.
func (r Result) HasWarning(kind WarningKind) bool {
	for _, w := range r.Warnings {
		if w.Kind == kind {
			return true
		}
	}
	return false
}
