package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
)

// Parse validates raw JSON against the report schema and returns the Model.
// It is a pure function: no partial Model is ever returned alongside an
// error. Unknown extra fields are ignored for forward compatibility.
func Parse(raw []byte) (*Model, error) {
	// Parseability first, shape second: a payload that is not one complete
	// JSON value is malformed; a complete value of the wrong shape (say a
	// top-level array) is a schema violation.
	dec := json.NewDecoder(bytes.NewReader(raw))
	var top json.RawMessage
	if err := dec.Decode(&top); err != nil {
		return nil, &MalformedPayloadError{Err: err}
	}
	if _, err := dec.Token(); err != io.EOF {
		if err == nil {
			err = errors.New("trailing data after the report value")
		}
		return nil, &MalformedPayloadError{Err: err}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(top, &fields); err != nil || fields == nil {
		return nil, &SchemaViolationError{Field: "report", Reason: "top-level value must be a JSON object"}
	}

	m := &Model{}

	var err error
	if m.Title, err = requiredString(fields, "title"); err != nil {
		return nil, err
	}
	if m.Theory, err = requiredString(fields, "theory"); err != nil {
		return nil, err
	}
	if m.Discussion, err = requiredString(fields, "discussion"); err != nil {
		return nil, err
	}
	if m.Conclusion, err = requiredString(fields, "conclusion"); err != nil {
		return nil, err
	}
	if m.CalculationScript, err = requiredString(fields, "calculationScript"); err != nil {
		return nil, err
	}
	if m.AnalysisTemplate, err = requiredString(fields, "analysisTemplate"); err != nil {
		return nil, err
	}

	if m.Objectives, err = requiredStringList(fields, "objectives"); err != nil {
		return nil, err
	}
	if m.Apparatus, err = requiredStringList(fields, "apparatus"); err != nil {
		return nil, err
	}
	if m.Procedure, err = requiredStringList(fields, "procedure"); err != nil {
		return nil, err
	}
	if m.TableHeaders, err = requiredStringList(fields, "tableHeaders"); err != nil {
		return nil, err
	}

	if err := parseTableData(fields, m); err != nil {
		return nil, err
	}
	if err := parseGraphConfig(fields, m); err != nil {
		return nil, err
	}
	if err := parseQuestions(fields, m); err != nil {
		return nil, err
	}

	// simulationType is optional; unknown tags are accepted and resolve to
	// the general simulation at selection time.
	if raw, ok := present(fields, "simulationType"); ok {
		if err := json.Unmarshal(raw, &m.SimulationType); err != nil {
			return nil, &SchemaViolationError{Field: "simulationType", Reason: "expected string"}
		}
	}

	return m, nil
}

func present(fields map[string]json.RawMessage, name string) (json.RawMessage, bool) {
	raw, ok := fields[name]
	if !ok || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, false
	}
	return raw, true
}

func requiredString(fields map[string]json.RawMessage, name string) (string, error) {
	raw, ok := present(fields, name)
	if !ok {
		return "", &SchemaViolationError{Field: name, Reason: "required field is missing"}
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return "", &SchemaViolationError{Field: name, Reason: "expected string"}
	}
	return s, nil
}

func requiredStringList(fields map[string]json.RawMessage, name string) ([]string, error) {
	raw, ok := present(fields, name)
	if !ok {
		return nil, &SchemaViolationError{Field: name, Reason: "required field is missing"}
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, &SchemaViolationError{Field: name, Reason: "expected array of strings"}
	}
	return list, nil
}

func parseTableData(fields map[string]json.RawMessage, m *Model) error {
	raw, ok := present(fields, "tableData")
	if !ok {
		return &SchemaViolationError{Field: "tableData", Reason: "required field is missing"}
	}
	var rows [][]float64
	if err := json.Unmarshal(raw, &rows); err != nil {
		return &SchemaViolationError{Field: "tableData", Reason: "expected array of numeric rows"}
	}
	want := len(m.TableHeaders)
	for i, row := range rows {
		if len(row) != want {
			return &SchemaViolationError{
				Field:  "tableData",
				Reason: fmt.Sprintf("row %d has %d cells, want %d (tableHeaders length)", i, len(row), want),
			}
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return &SchemaViolationError{
					Field:  "tableData",
					Reason: fmt.Sprintf("cell [%d][%d] is not a finite number", i, j),
				}
			}
		}
	}
	m.TableData = rows
	return nil
}

func parseGraphConfig(fields map[string]json.RawMessage, m *Model) error {
	raw, ok := present(fields, "graphConfig")
	if !ok {
		return nil // absence means "no chart"
	}
	var gc GraphConfig
	if err := json.Unmarshal(raw, &gc); err != nil {
		return &SchemaViolationError{Field: "graphConfig", Reason: "expected object with column indices and labels"}
	}
	cols := len(m.TableHeaders)
	if gc.XColumnIndex < 0 || gc.XColumnIndex >= cols {
		return &SchemaViolationError{
			Field:  "graphConfig.xColumnIndex",
			Reason: fmt.Sprintf("index %d out of range for %d columns", gc.XColumnIndex, cols),
		}
	}
	if gc.YColumnIndex < 0 || gc.YColumnIndex >= cols {
		return &SchemaViolationError{
			Field:  "graphConfig.yColumnIndex",
			Reason: fmt.Sprintf("index %d out of range for %d columns", gc.YColumnIndex, cols),
		}
	}
	m.GraphConfig = &gc
	return nil
}

func parseQuestions(fields map[string]json.RawMessage, m *Model) error {
	raw, ok := present(fields, "questions")
	if !ok {
		return nil // possibly empty; absence is an empty list
	}
	var qs []Question
	if err := json.Unmarshal(raw, &qs); err != nil {
		return &SchemaViolationError{Field: "questions", Reason: "expected array of question/answer objects"}
	}
	m.Questions = qs
	return nil
}
