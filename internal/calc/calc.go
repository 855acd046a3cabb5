// Package calc executes the report-supplied calculation routine against the
// observation table and produces the name->value mapping consumed by the
// analysis template. The script is AI-generated and untrusted: execution is
// confined to pure computation over its input, with no ambient capability
// (no filesystem, network, clock or host functions) and a hard execution
// budget so a runaway script cannot wedge the view.
//
// Two dialects are supported behind one interface. The generation prompt
// asks for a JavaScript function body over `rows` (the original contract),
// run under goja. A script that defines a top-level `func Calculate` is
// treated as Go and run under yaegi with a stdlib whitelist.
package calc

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"
)

// DefaultBudget bounds a single evaluation. Tables are tens of rows; any
// honest script finishes in microseconds.
const DefaultBudget = 2 * time.Second

// CalculationError reports a failed evaluation: malformed script, runtime
// error, bad arithmetic, or budget exhaustion. The analysis section degrades
// to a fallback message; nothing else about the report is affected.
type CalculationError struct {
	Err error
}

func (e *CalculationError) Error() string {
	return fmt.Sprintf("calculation failed: %v", e.Err)
}

func (e *CalculationError) Unwrap() error { return e.Err }

// IsCalculationError reports whether err is a CalculationError.
func IsCalculationError(err error) bool {
	var ce *CalculationError
	return errors.As(err, &ce)
}

// Engine evaluates a calculation script against the current table rows.
type Engine interface {
	// Evaluate runs script with rows as its only input and returns the
	// result mapping. Values are float64 or string. Any failure is a
	// *CalculationError.
	Evaluate(ctx context.Context, script string, rows [][]float64) (map[string]any, error)
}

var goCalculateRe = regexp.MustCompile(`(?m)^\s*func\s+Calculate\s*\(`)

// ForScript picks the engine for a script's dialect. JavaScript is the
// default; only an explicit top-level Calculate function selects Go.
func ForScript(script string) Engine {
	if goCalculateRe.MatchString(script) {
		return NewGoEngine(DefaultBudget)
	}
	return NewJSEngine(DefaultBudget)
}

// normalizeResults coerces interpreter values into the mapping contract:
// numbers become float64, strings pass through, anything else stringifies.
func normalizeResults(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		switch n := v.(type) {
		case float64:
			out[k] = n
		case float32:
			out[k] = float64(n)
		case int:
			out[k] = float64(n)
		case int32:
			out[k] = float64(n)
		case int64:
			out[k] = float64(n)
		case string:
			out[k] = n
		default:
			out[k] = fmt.Sprintf("%v", v)
		}
	}
	return out
}
