package assemble

import (
	"bytes"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-pdf/fpdf"

	"github.com/royalmintdev-stack/Galvaniy-Labs/internal/report"
)

// placeholderRe matches {{name}} placeholders in the analysis template.
var placeholderRe = regexp.MustCompile(`\{\{.*?\}\}`)

// pdfWriter keeps a manual y cursor so sections break pages the same way
// regardless of font size.
type pdfWriter struct {
	doc *fpdf.Fpdf
	y   float64
}

func (w *pdfWriter) addText(text string, size float64, bold bool) {
	style := ""
	if bold {
		style = "B"
	}
	w.doc.SetFont("Helvetica", style, size)
	lines := w.doc.SplitText(text, 180)
	if len(lines) == 0 {
		lines = []string{""}
	}
	if w.y+float64(len(lines))*5 > 280 {
		w.doc.AddPage()
		w.y = 10
	}
	for _, line := range lines {
		w.doc.Text(10, w.y, line)
		w.y += 5
	}
	w.y += 2
}

func (w *pdfWriter) gap(h float64) { w.y += h }

// StaticPDF renders the report as a printable PDF. It carries the same
// factual content as the interactive document; placeholders in the analysis
// are stripped to "[calculated]" because the static form cannot run the
// calculator.
func StaticPDF(m *report.Model, code string) ([]byte, error) {
	return staticPDF(m, code, true)
}

// staticPDF is the real renderer; tests disable stream compression so the
// section text stays greppable in the output.
func staticPDF(m *report.Model, code string, compress bool) ([]byte, error) {
	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetCompression(compress)
	doc.AddPage()
	w := &pdfWriter{doc: doc, y: 10}

	w.addText("Lab Report: "+code, 18, true)
	w.gap(5)
	w.addText(m.Title, 14, true)
	w.gap(5)

	w.addText("Objectives:", 12, true)
	for _, obj := range m.Objectives {
		w.addText("- "+obj, 11, false)
	}
	w.gap(5)

	w.addText("Apparatus:", 12, true)
	for _, app := range m.Apparatus {
		w.addText("- "+app, 11, false)
	}
	w.gap(5)

	w.addText("Theory:", 12, true)
	w.addText(m.Theory, 11, false)
	w.gap(5)

	w.addText("Procedure:", 12, true)
	for i, step := range m.Procedure {
		w.addText(fmt.Sprintf("%d. %s", i+1, step), 11, false)
	}
	w.gap(5)

	w.addText("Results (Data Table):", 12, true)
	w.addText(strings.Join(m.TableHeaders, " | "), 10, true)
	for _, row := range m.TableData {
		w.addText(joinRow(row), 11, false)
	}
	w.gap(5)

	w.addText("Analysis:", 12, true)
	w.addText(placeholderRe.ReplaceAllString(m.AnalysisTemplate, "[calculated]"), 11, false)
	w.gap(5)

	if len(m.Questions) > 0 {
		w.addText("Questions & Answers:", 12, true)
		for i, q := range m.Questions {
			w.addText(fmt.Sprintf("Q%d: %s", i+1, q.Question), 11, true)
			w.addText("A: "+q.Answer, 11, false)
			w.gap(2)
		}
		w.gap(5)
	}

	w.addText("Discussion:", 12, true)
	w.addText(m.Discussion, 11, false)
	w.gap(5)

	w.addText("Conclusion:", 12, true)
	w.addText(m.Conclusion, 11, false)

	var buf bytes.Buffer
	if err := doc.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

func joinRow(row []float64) string {
	parts := make([]string, len(row))
	for i, v := range row {
		parts[i] = strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, " | ")
}
