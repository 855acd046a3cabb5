// Package report defines the validated lab report model and the schema
// validator that guards rendering. A Model is produced exactly once per
// payload; downstream components never see unvalidated data.
package report

// Simulation type tags understood by the simulation engine. Anything else
// (including absence) renders as the general fallback.
const (
	SimPendulum = "pendulum"
	SimHeating  = "heating"
	SimSpring   = "spring"
	SimCircuit  = "circuit"
	SimWave     = "wave"
	SimGeneral  = "general"
)

// GraphConfig selects two table columns for the live analysis graph.
// A nil GraphConfig means the report has no graph.
type GraphConfig struct {
	XColumnIndex int    `json:"xColumnIndex"`
	YColumnIndex int    `json:"yColumnIndex"`
	XLabel       string `json:"xLabel"`
	YLabel       string `json:"yLabel"`
	Title        string `json:"title"`
}

// Question is one manual question with its model answer.
type Question struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Model is a validated AI-generated lab report. TableData is the only part
// mutated after validation (through the table store); everything else is
// rendered verbatim.
type Model struct {
	Title      string   `json:"title"`
	Objectives []string `json:"objectives"`
	Apparatus  []string `json:"apparatus"`
	Theory     string   `json:"theory"`
	Procedure  []string `json:"procedure"`

	TableHeaders []string     `json:"tableHeaders"`
	TableData    [][]float64  `json:"tableData"`
	GraphConfig  *GraphConfig `json:"graphConfig,omitempty"`

	Questions []Question `json:"questions"`

	// CalculationScript is untrusted source text. Contract: it receives the
	// table rows as its only input and returns a name->value mapping. It is
	// executed only inside the sandboxed calculator.
	CalculationScript string `json:"calculationScript"`

	// AnalysisTemplate is free text with zero or more {{name}} placeholders
	// bound at render time against the calculator's result mapping.
	AnalysisTemplate string `json:"analysisTemplate"`

	Discussion string `json:"discussion"`
	Conclusion string `json:"conclusion"`

	SimulationType string `json:"simulationType"`
}

// Columns returns the table width the row-length invariant is checked against.
func (m *Model) Columns() int { return len(m.TableHeaders) }
