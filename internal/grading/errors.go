package grading

import (
	"errors"
	"fmt"
	"strings"
)

// Structural error kinds. A graph reporting any of these must not be evaluated.
var (
	ErrCycleDetected             = errors.New("cycle detected")
	ErrMultipleOrMissingTerminal = errors.New("graph must have exactly one terminal node")
	ErrDanglingEdge              = errors.New("edge references unknown node")
	ErrStarvedNode               = errors.New("node has no inputs")
	ErrMultipleInputsToTerminal  = errors.New("terminal node has more than one input")
	ErrMultipleInputs            = errors.New("single-input node has more than one input")
	ErrDuplicateNode             = errors.New("duplicate node id")
	ErrUnknownKind               = errors.New("unknown node kind")
	ErrSourceHasInputs           = errors.New("source node has inputs")
	ErrTerminalHasOutputs        = errors.New("terminal node has outputs")
	ErrInvalidConfig             = errors.New("invalid node configuration")
)

// ErrInvalidPolicy is returned when a selection policy is missing or unknown.
var ErrInvalidPolicy = errors.New("invalid selection policy")

// StructuralError reports one malformation found by Validate.
type StructuralError struct {
	Kind    error
	NodeIDs []string
	Msg     string
}

func (e *StructuralError) Error() string {
	if e == nil {
		return ""
	}
	if e.Msg == "" {
		return e.Kind.Error()
	}
	return fmt.Sprintf("%s: %s", e.Kind.Error(), e.Msg)
}

func (e *StructuralError) Unwrap() error { return e.Kind }

func structuralf(kind error, ids []string, format string, args ...any) *StructuralError {
	return &StructuralError{Kind: kind, NodeIDs: ids, Msg: fmt.Sprintf(format, args...)}
}

func cycleError(path []string) *StructuralError {
	msg := "cycle"
	if len(path) > 0 {
		msg = "cycle: " + strings.Join(path, " -> ")
	}
	return &StructuralError{Kind: ErrCycleDetected, NodeIDs: path, Msg: msg}
}
