package grading

import (
	"fmt"
	"math"
)

// Scale is the grading scale of a course.
type Scale string

const (
	ScaleNumerical              Scale = "NUMERICAL"
	ScalePassFail               Scale = "PASS_FAIL"
	ScaleSecondNationalLanguage Scale = "SECOND_NATIONAL_LANGUAGE"
)

// Max returns the highest grade of the scale. All scales start at 0.
func (s Scale) Max() (float64, bool) {
	switch s {
	case ScaleNumerical:
		return 5, true
	case ScalePassFail:
		return 1, true
	case ScaleSecondNationalLanguage:
		return 2, true
	}
	return 0, false
}

// CheckRange checks a final-grade terminal value against scale. Unknown
// scales are only checked for integrality.
func CheckRange(value float64, scale Scale) []Warning {
	var out []Warning
	if value != math.Trunc(value) {
		out = append(out, Warning{
			Kind:    WarnNonIntegerGrade,
			Value:   value,
			Message: fmt.Sprintf("final grade %g is not an integer", value),
		})
	}
	if max, ok := scale.Max(); ok && (value < 0 || value > max) {
		out = append(out, Warning{
			Kind:    WarnOutOfRangeGrade,
			Value:   value,
			Message: fmt.Sprintf("final grade %g is outside 0-%g of scale %s", value, max, scale),
		})
	}
	return out
}

// CheckPartRange checks a course-part terminal value against the part's own
// maximum. Fractions are fine for course parts. A max of 0 disables the check.
func CheckPartRange(value, max float64) []Warning {
	if value >= 0 && (max <= 0 || value <= max) {
		return nil
	}
	return []Warning{{
		Kind:    WarnOutOfRangeGrade,
		Value:   value,
		Message: fmt.Sprintf("course part value %g is outside 0-%g", value, max),
	}}
}
