// Package format renders store rows and canned reports as chat markdown.
package format

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/urbanbot/server/internal/agent/model"
)

// NoRecords is returned for an empty result set.
const NoRecords = "No records found."

// Value prepares a single cell for display. Fixed-point and floating values
// are rounded to 2 places.
func Value(v any) any {
	switch x := v.(type) {
	case decimal.Decimal:
		return x.Round(2).InexactFloat64()
	case *decimal.Decimal:
		if x == nil {
			return nil
		}
		return x.Round(2).InexactFloat64()
	case float64:
		return decimal.NewFromFloat(x).Round(2).InexactFloat64()
	case float32:
		return decimal.NewFromFloat32(x).Round(2).InexactFloat64()
	case []byte:
		return string(x)
	}
	return v
}

// Result renders rows with cols as markdown. The first column of each row is
// its label and the remaining columns are rendered as "metric value" pairs.
func Result(rows [][]any, cols []string, title string) string {
	if len(rows) == 0 {
		return NoRecords
	}
	if len(rows) == 1 && len(rows[0]) == 1 {
		return fmt.Sprintf("**Total:** %v", Value(rows[0][0]))
	}

	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		if len(row) == 0 {
			continue
		}
		label := fmt.Sprint(Value(row[0]))
		metrics := make([]string, 0, len(row)-1)
		for i := 1; i < len(row); i++ {
			name := ""
			if i < len(cols) {
				name = strings.ReplaceAll(cols[i], "_", " ")
			}
			metrics = append(metrics, strings.TrimSpace(fmt.Sprintf("%s %v", name, Value(row[i]))))
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", label, strings.Join(metrics, ", ")))
	}

	return fmt.Sprintf("\n### %s\n\n%s\n", title, strings.Join(lines, "\n"))
}

// QueryResult is Result over a store result.
func QueryResult(res model.QueryResult, title string) string {
	return Result(res.Rows, res.Columns, title)
}

var titles = []struct {
	keyword string
	title   string
}{
	{"accident", "🚨 Accident Insight"},
	{"traffic", "🚗 Traffic Insight"},
	{"aqi", "🌫 AQI Insight"},
	{"crowd", "👥 Crowd Insight"},
	{"complaint", "📣 Complaint Insight"},
	{"alert", "📬 Alert Insight"},
	{"damage", "🛣 Road Damage Insight"},
}

// DefaultTitle is used when no domain keyword appears in the question.
const DefaultTitle = "📊 Data Insight"

// DetectTitle picks the insight title for a question.
func DetectTitle(question string) string {
	q := strings.ToLower(question)
	for _, t := range titles {
		if strings.Contains(q, t.keyword) {
			return t.title
		}
	}
	return DefaultTitle
}

// Report renders a canned report block.
func Report(r model.ReportResult) string {
	totalLabel := r.TotalLabel
	if totalLabel == "" {
		totalLabel = "Total"
	}
	breakdownLabel := r.BreakdownLabel
	if breakdownLabel == "" {
		breakdownLabel = "Category Breakdown"
	}

	lines := make([]string, 0, len(r.Breakdown))
	for _, c := range r.Breakdown {
		lines = append(lines, fmt.Sprintf("- %s: %d", c.Category, c.Count))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "\n### %s\n\n", r.Title)
	fmt.Fprintf(&b, "**%s:** %d\n\n", totalLabel, r.Total)
	fmt.Fprintf(&b, "**%s:**\n\n", breakdownLabel)
	b.WriteString(strings.Join(lines, "\n"))
	b.WriteString("\n")
	return b.String()
}
