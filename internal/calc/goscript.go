package calc

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"
)

// GoEngine interprets a Go calculation snippet with yaegi. The snippet must
// define:
//
//	func Calculate(rows [][]float64) map[string]interface{}
//
// Only pure-computation stdlib imports are allowed; os, net, exec and
// friends are rejected before the interpreter ever sees the code.
type GoEngine struct {
	budget  time.Duration
	allowed map[string]bool
}

// NewGoEngine creates a Go-dialect calculation engine.
func NewGoEngine(budget time.Duration) *GoEngine {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &GoEngine{
		budget: budget,
		allowed: map[string]bool{
			"math":    true,
			"sort":    true,
			"strings": true,
			"strconv": true,
			"fmt":     true,
		},
	}
}

// Evaluate implements Engine.
func (e *GoEngine) Evaluate(ctx context.Context, script string, rows [][]float64) (map[string]any, error) {
	if err := e.validateImports(script); err != nil {
		return nil, &CalculationError{Err: err}
	}

	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, &CalculationError{Err: fmt.Errorf("load stdlib: %w", err)}
	}

	code := script
	if !strings.Contains(code, "package ") {
		code = "package main\n\n" + code
	}
	if _, err := i.Eval(code); err != nil {
		return nil, &CalculationError{Err: fmt.Errorf("compile: %w", err)}
	}

	v, err := i.Eval("main.Calculate")
	if err != nil {
		return nil, &CalculationError{Err: fmt.Errorf("Calculate not found: %w", err)}
	}
	fn, ok := v.Interface().(func([][]float64) map[string]interface{})
	if !ok {
		return nil, &CalculationError{Err: fmt.Errorf("Calculate has wrong signature (want func(rows [][]float64) map[string]interface{})")}
	}

	// The interpreter has no interrupt hook, so the call runs on its own
	// goroutine and loses the race against the budget if it will not halt.
	ctx, cancel := context.WithTimeout(ctx, e.budget)
	defer cancel()

	resultCh := make(chan map[string]interface{}, 1)
	errCh := make(chan error, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				errCh <- fmt.Errorf("script panicked: %v", r)
			}
		}()
		resultCh <- fn(rows)
	}()

	select {
	case result := <-resultCh:
		return normalizeResults(result), nil
	case err := <-errCh:
		return nil, &CalculationError{Err: err}
	case <-ctx.Done():
		return nil, &CalculationError{Err: fmt.Errorf("execution budget exceeded: %w", ctx.Err())}
	}
}

// validateImports rejects any import outside the whitelist.
func (e *GoEngine) validateImports(code string) error {
	var forbidden []string
	inBlock := false
	for _, line := range strings.Split(code, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(trimmed, "import ("):
			inBlock = true
		case inBlock && strings.HasPrefix(trimmed, ")"):
			inBlock = false
		case inBlock:
			pkg := strings.Trim(trimmed, `"`)
			if pkg != "" && !e.allowed[pkg] {
				forbidden = append(forbidden, pkg)
			}
		case strings.HasPrefix(trimmed, "import "):
			pkg := strings.Trim(strings.TrimPrefix(trimmed, "import "), `"`)
			if !e.allowed[pkg] {
				forbidden = append(forbidden, pkg)
			}
		}
	}
	if len(forbidden) > 0 {
		return fmt.Errorf("forbidden imports in calculation script: %v", forbidden)
	}
	return nil
}
