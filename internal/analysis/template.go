// Package analysis renders the report's analysis template against the
// calculator's result mapping. Placeholders look like {{name}}; binding is a
// runtime concern, and a placeholder with no matching result key is left as
// literal dead text rather than blanking the section (fail open).
package analysis

import (
	"fmt"
	"html"
	"strconv"
	"strings"
)

// Fallback is shown in place of the analysis section when the calculator
// fails; the rest of the document still renders.
const Fallback = "Error calculating analysis data. Check table inputs."

// FormatValue stringifies one result value: numbers to 4 decimal places,
// strings verbatim.
func FormatValue(v any) string {
	switch n := v.(type) {
	case float64:
		return strconv.FormatFloat(n, 'f', 4, 64)
	case string:
		return n
	default:
		// The calculator normalizes values, so this is unreachable for its
		// output; tolerate foreign values anyway.
		return fmt.Sprintf("%v", v)
	}
}

// Render substitutes every bound {{name}} placeholder and returns plain
// text. Pure and idempotent for a fixed result mapping.
func Render(template string, results map[string]any) string {
	out := template
	for key, value := range results {
		out = strings.ReplaceAll(out, "{{"+key+"}}", FormatValue(value))
	}
	return out
}

// RenderHTML substitutes placeholders into an HTML fragment: source text is
// escaped, substituted values are escaped and wrapped in a highlight span,
// and newlines become <br> line breaks.
func RenderHTML(template string, results map[string]any) string {
	out := html.EscapeString(template)
	for key, value := range results {
		highlighted := `<span class="calc-value">` + html.EscapeString(FormatValue(value)) + `</span>`
		out = strings.ReplaceAll(out, "{{"+key+"}}", highlighted)
	}
	return strings.ReplaceAll(out, "\n", "<br>")
}
