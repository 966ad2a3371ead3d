package grading

import "math"

// Input is one resolved upstream value as seen by a consumer.
type Input struct {
	NodeID string
	Value  float64
	// Missing is set when any source feeding this value lacked a record.
	Missing bool
	// Absent is set when there is no value at all; Value is a substituted 0.
	Absent bool
}

// Output is what a node evaluator produces.
type Output struct {
	Value   float64
	Missing bool
	Absent  bool
	// Failed marks a value rejected by a minpoints node. Consumers read it as 0.
	Failed bool
	// CourseFail fails the whole model; the terminal value becomes 0.
	CourseFail bool
}

// evaluateNode dispatches to the evaluator of kind. Source nodes are not
// computed here; their value comes from the caller.
func evaluateNode(kind Kind, inputs []Input, cfg NodeConfig) Output {
	switch kind {
	case KindAddition:
		return evalAddition(inputs)
	case KindAverage:
		return evalAverage(inputs, cfg)
	case KindMax:
		return evalMax(inputs, cfg)
	case KindManual:
		return Output{Value: cfg.Value}
	case KindTerminal:
		return evalPassthrough(inputs)
	case KindRound:
		return evalRound(inputs, cfg)
	case KindStepper:
		return evalStepper(inputs, cfg)
	case KindMinPoints:
		return evalMinPoints(inputs, cfg)
	}
	return Output{Missing: true, Absent: true}
}

func anyMissing(inputs []Input) bool {
	for _, in := range inputs {
		if in.Missing || in.Absent {
			return true
		}
	}
	return false
}

func allAbsent(inputs []Input) bool {
	for _, in := range inputs {
		if !in.Absent {
			return false
		}
	}
	return len(inputs) > 0
}

// evalAddition sums substituted values of absent inputs too (0 by default).
func evalAddition(inputs []Input) Output {
	var sum float64
	for _, in := range inputs {
		sum += in.Value
	}
	return Output{Value: sum, Missing: anyMissing(inputs), Absent: allAbsent(inputs)}
}

// evalAverage divides by the weight of the present inputs only.
func evalAverage(inputs []Input, cfg NodeConfig) Output {
	var sum, weights float64
	for _, in := range inputs {
		if in.Absent {
			continue
		}
		w := 1.0
		if cw, ok := cfg.Weights[in.NodeID]; ok {
			w = cw
		}
		sum += in.Value * w
		weights += w
	}
	if weights == 0 {
		return Output{Missing: true, Absent: allAbsent(inputs)}
	}
	return Output{Value: sum / weights, Missing: anyMissing(inputs)}
}

func evalMax(inputs []Input, cfg NodeConfig) Output {
	best, found := math.Inf(-1), false
	for _, in := range inputs {
		if in.Absent {
			continue
		}
		found = true
		best = math.Max(best, in.Value)
	}
	if !found {
		return Output{Missing: true, Absent: true}
	}
	if cfg.MinValue != nil {
		best = math.Max(best, *cfg.MinValue)
	}
	return Output{Value: best, Missing: anyMissing(inputs)}
}

func single(inputs []Input) Input {
	if len(inputs) == 0 {
		return Input{Missing: true, Absent: true}
	}
	return inputs[0]
}

func evalPassthrough(inputs []Input) Output {
	in := single(inputs)
	return Output{Value: in.Value, Missing: in.Missing, Absent: in.Absent}
}

func evalRound(inputs []Input, cfg NodeConfig) Output {
	in := single(inputs)
	v := in.Value
	switch cfg.Rounding {
	case RoundUp:
		v = math.Ceil(v)
	case RoundDown:
		v = math.Floor(v)
	default:
		// half up, 2.5 -> 3 and -2.5 -> -2
		v = math.Floor(v + 0.5)
	}
	return Output{Value: v, Missing: in.Missing, Absent: in.Absent}
}

// evalStepper picks the output of the first step whose middle point is not
// below the input; inputs above every middle point take the last output.
func evalStepper(inputs []Input, cfg NodeConfig) Output {
	in := single(inputs)
	out := Output{Value: in.Value, Missing: in.Missing, Absent: in.Absent}
	n := len(cfg.OutputValues)
	for i := 0; i < n; i++ {
		if i+1 != n && i < len(cfg.MiddlePoints) && in.Value > cfg.MiddlePoints[i] {
			continue
		}
		if step := cfg.OutputValues[i]; !step.Same {
			out.Value = step.Value
		}
		break
	}
	return out
}

func evalMinPoints(inputs []Input, cfg NodeConfig) Output {
	in := single(inputs)
	out := Output{Value: in.Value, Missing: in.Missing, Absent: in.Absent}
	if in.Value >= cfg.MinPoints {
		return out
	}
	if cfg.OnFail == OnFailCourseFail {
		out.CourseFail = true
		return out
	}
	out.Failed = true
	out.Value = 0
	return out
}

// sourceThreshold applies a source node's own minimum. It is active only when
// the node sets onFailSetting, and never for a source without a value.
func sourceThreshold(out Output, cfg NodeConfig) Output {
	if cfg.OnFail == "" || out.Absent {
		return out
	}
	return evalMinPoints([]Input{{Value: out.Value, Missing: out.Missing}}, cfg)
}
