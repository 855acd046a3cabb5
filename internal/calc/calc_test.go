package calc

import (
	"context"
	"testing"
	"time"
)

var testRows = [][]float64{{1, 2}, {2, 4}}

func TestJSEvaluateSlope(t *testing.T) {
	eng := NewJSEngine(0)
	results, err := eng.Evaluate(context.Background(), "return {slope: rows[1][1]/rows[1][0]};", testRows)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if got := results["slope"]; got != 2.0 {
		t.Errorf("slope = %v (%T), want 2.0", got, got)
	}
}

func TestJSEvaluateMixedValues(t *testing.T) {
	eng := NewJSEngine(0)
	results, err := eng.Evaluate(context.Background(),
		"return {g: 9.8, verdict: 'within tolerance', n: rows.length};", testRows)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if results["g"] != 9.8 {
		t.Errorf("g = %v, want 9.8", results["g"])
	}
	if results["verdict"] != "within tolerance" {
		t.Errorf("verdict = %v", results["verdict"])
	}
	if results["n"] != 2.0 {
		t.Errorf("n = %v (%T), want float64 2", results["n"], results["n"])
	}
}

func TestJSEvaluateMalformedScript(t *testing.T) {
	eng := NewJSEngine(0)
	_, err := eng.Evaluate(context.Background(), "return {slope: ;", testRows)
	if !IsCalculationError(err) {
		t.Fatalf("want CalculationError, got %v", err)
	}
}

func TestJSEvaluateRuntimeError(t *testing.T) {
	eng := NewJSEngine(0)
	_, err := eng.Evaluate(context.Background(), "return {v: noSuchThing.at.all};", testRows)
	if !IsCalculationError(err) {
		t.Fatalf("want CalculationError, got %v", err)
	}
}

func TestJSEvaluateNonObjectReturn(t *testing.T) {
	eng := NewJSEngine(0)
	_, err := eng.Evaluate(context.Background(), "return 42;", testRows)
	if !IsCalculationError(err) {
		t.Fatalf("want CalculationError for scalar return, got %v", err)
	}
}

func TestJSEvaluateBudget(t *testing.T) {
	eng := NewJSEngine(50 * time.Millisecond)
	start := time.Now()
	_, err := eng.Evaluate(context.Background(), "while(true){}", testRows)
	if !IsCalculationError(err) {
		t.Fatalf("want CalculationError for runaway script, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Errorf("interrupt took too long: %v", elapsed)
	}
}

func TestJSEvaluateNoAmbientCapability(t *testing.T) {
	eng := NewJSEngine(0)
	for _, script := range []string{
		"return {v: require('fs')};",
		"return {v: fetch('http://example.com')};",
		"return {v: process.env};",
	} {
		if _, err := eng.Evaluate(context.Background(), script, testRows); !IsCalculationError(err) {
			t.Errorf("script %q: want CalculationError (no host access), got %v", script, err)
		}
	}
}

func TestGoEvaluate(t *testing.T) {
	eng := NewGoEngine(0)
	script := `
func Calculate(rows [][]float64) map[string]interface{} {
	return map[string]interface{}{"slope": rows[1][1] / rows[1][0]}
}`
	results, err := eng.Evaluate(context.Background(), script, testRows)
	if err != nil {
		t.Fatalf("Evaluate failed: %v", err)
	}
	if results["slope"] != 2.0 {
		t.Errorf("slope = %v, want 2.0", results["slope"])
	}
}

func TestGoEvaluateForbiddenImport(t *testing.T) {
	eng := NewGoEngine(0)
	script := `
import "os"

func Calculate(rows [][]float64) map[string]interface{} {
	os.Remove("x")
	return nil
}`
	_, err := eng.Evaluate(context.Background(), script, testRows)
	if !IsCalculationError(err) {
		t.Fatalf("want CalculationError for forbidden import, got %v", err)
	}
}

func TestForScriptDialect(t *testing.T) {
	if _, ok := ForScript("return {a: 1};").(*JSEngine); !ok {
		t.Error("JS body should select JSEngine")
	}
	if _, ok := ForScript("func Calculate(rows [][]float64) map[string]interface{} { return nil }").(*GoEngine); !ok {
		t.Error("Go Calculate should select GoEngine")
	}
}
