package calc

import (
	"context"
	"fmt"
	"time"

	"github.com/dop251/goja"
)

// JSEngine runs a JavaScript function body with `rows` as its sole argument,
// matching the payload contract `new Function('rows', script)` of the
// interactive document. A fresh VM is built per evaluation so no state leaks
// between runs, and the VM is interrupted when the budget expires.
type JSEngine struct {
	budget time.Duration
}

// NewJSEngine creates a JavaScript calculation engine.
func NewJSEngine(budget time.Duration) *JSEngine {
	if budget <= 0 {
		budget = DefaultBudget
	}
	return &JSEngine{budget: budget}
}

// Evaluate implements Engine.
func (e *JSEngine) Evaluate(ctx context.Context, script string, rows [][]float64) (result map[string]any, err error) {
	// goja reports fatal interpreter conditions (stack exhaustion) by panic.
	defer func() {
		if r := recover(); r != nil {
			result = nil
			err = &CalculationError{Err: fmt.Errorf("script panicked: %v", r)}
		}
	}()

	vm := goja.New()

	interrupt := time.AfterFunc(e.budget, func() {
		vm.Interrupt("execution budget exceeded")
	})
	defer interrupt.Stop()
	if deadline, ok := ctx.Deadline(); ok && time.Until(deadline) < e.budget {
		interrupt.Reset(time.Until(deadline))
	}

	fn, err := vm.RunString("(function(rows){\n" + script + "\n})")
	if err != nil {
		return nil, &CalculationError{Err: fmt.Errorf("compile: %w", err)}
	}
	callable, ok := goja.AssertFunction(fn)
	if !ok {
		return nil, &CalculationError{Err: fmt.Errorf("script did not compile to a function")}
	}

	val, err := callable(goja.Undefined(), vm.ToValue(rows))
	if err != nil {
		return nil, &CalculationError{Err: fmt.Errorf("run: %w", err)}
	}

	exported := val.Export()
	mapping, ok := exported.(map[string]any)
	if !ok {
		return nil, &CalculationError{Err: fmt.Errorf("script returned %T, want an object of named values", exported)}
	}
	return normalizeResults(mapping), nil
}
