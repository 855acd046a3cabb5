// Package gen turns an experiment code into a validated report model by
// prompting an LLM with the lab manual context and parsing its JSON reply.
package gen

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/logging"
	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/report"
)

// LLMClient abstracts the model behind report generation.
type LLMClient interface {
	// Complete sends one prompt and returns the model's raw JSON reply.
	Complete(ctx context.Context, prompt string) (string, error)
}

// ContextProvider supplies the grounding context (manual + admin
// references) for a generation. The store implements this.
type ContextProvider interface {
	FullContext(manual string) (string, error)
}

// Generator builds prompts, calls the LLM and validates the reply.
type Generator struct {
	client  LLMClient
	context ContextProvider

	mu     sync.RWMutex
	manual string // replaced when a manual file is hot-loaded
}

// New creates a generator backed by client. provider may be nil, in which
// case the embedded manual is used without admin references.
func New(client LLMClient, provider ContextProvider) *Generator {
	return &Generator{client: client, context: provider, manual: labManualContext}
}

// SetManual replaces the manual context used for future generations.
func (g *Generator) SetManual(text string) {
	g.mu.Lock()
	g.manual = text
	g.mu.Unlock()
	logging.Gen("manual context replaced (%d bytes)", len(text))
}

// Manual returns the manual context currently in effect.
func (g *Generator) Manual() string {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.manual
}

// Generate produces a validated report for an experiment code. The raw JSON
// is returned alongside the model so the caller can persist it verbatim.
func (g *Generator) Generate(ctx context.Context, experimentCode string) (*report.Model, []byte, error) {
	timer := logging.StartTimer(logging.CategoryGen, "Generate "+experimentCode)
	defer timer.Stop()

	manual := g.Manual()
	grounding := manual
	if g.context != nil {
		full, err := g.context.FullContext(manual)
		if err != nil {
			return nil, nil, fmt.Errorf("build grounding context: %w", err)
		}
		grounding = full
	}

	prompt := buildPrompt(experimentCode, grounding)
	logging.API("generation request for %q (%d byte prompt)", experimentCode, len(prompt))

	raw, err := g.client.Complete(ctx, prompt)
	if err != nil {
		logging.APIError("generation failed for %q: %v", experimentCode, err)
		return nil, nil, fmt.Errorf("generate report: %w", err)
	}

	// Models occasionally wrap JSON in a markdown fence despite instructions.
	raw = stripFence(raw)

	m, err := report.Parse([]byte(raw))
	if err != nil {
		logging.GenError("model reply rejected for %q: %v", experimentCode, err)
		return nil, nil, err
	}
	logging.Gen("generated %q: %d table rows, sim=%s", m.Title, len(m.TableData), m.SimulationType)
	return m, []byte(raw), nil
}

func buildPrompt(experimentCode, grounding string) string {
	var b strings.Builder
	b.WriteString("You are an expert physics lab assistant at the University of Nairobi.\n\n")
	fmt.Fprintf(&b, "Using the Manual Context provided below, generate a structured JSON lab report for Experiment Code: %q.\n\n", experimentCode)
	b.WriteString(`Instructions:
1. Return ONLY valid JSON. Do not wrap in markdown code blocks.
2. **STRICTLY** follow the manual content.
3. The JSON must follow this exact schema:
{
  "title": "Experiment Title",
  "objectives": ["obj1", "obj2"],
  "apparatus": ["item1", "item2"],
  "theory": "Brief theory in plain text or simple markdown.",
  "procedure": ["step1", "step2"],
  "tableHeaders": ["Col 1 (units)", "Col 2 (units)"],
  "tableData": [[1.0, 2.0], [2.0, 4.0]],
  "graphConfig": {
    "xColumnIndex": 0,
    "yColumnIndex": 1,
    "xLabel": "Label X",
    "yLabel": "Label Y",
    "title": "Graph Title"
  } OR null,
  "questions": [
    { "question": "Question text from manual?", "answer": "Answer based on theory/results." }
  ] OR [],
  "calculationScript": "A JavaScript function body (string) that takes 'rows' (array of number arrays) as input and returns an object of calculated values. Example: 'const m = rows[0][0]; return { slope: m * 2, g: 9.8 };'",
  "analysisTemplate": "Analysis text with placeholders like {{slope}} and {{g}} which match keys from calculationScript return object.",
  "discussion": "Discussion text",
  "conclusion": "Conclusion text",
  "simulationType": "one of: 'pendulum', 'heating', 'spring', 'circuit', 'wave', 'optics', 'general'"
}

Specific Rules:
- **Graphs**: If the experiment in the manual DOES NOT explicitly require plotting a graph, set "graphConfig" to null. Do not invent a graph.
- **Questions**: If the manual lists specific questions for this experiment, include them and their correct answers in the "questions" array. If there are no specific questions, return an empty array.
- **Data**: Generate PLAUSIBLE FAKE DATA for 'tableData' that follows physics laws.
- **Calculations**: Ensure 'calculationScript' is valid ES6 JavaScript code that does not use external libraries.

MANUAL CONTEXT:
`)
	b.WriteString(grounding)
	return b.String()
}

// stripFence removes a surrounding ```json fence if present.
func stripFence(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}
