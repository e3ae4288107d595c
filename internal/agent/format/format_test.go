package format

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/urbanbot/server/internal/agent/model"
)

func TestResultEmpty(t *testing.T) {
	assert.Equal(t, NoRecords, Result(nil, []string{"count"}, "x"))
}

func TestResultScalar(t *testing.T) {
	got := Result([][]any{{int64(42)}}, []string{"count"}, "ignored")
	assert.Equal(t, "**Total:** 42", got)
}

func TestResultMultiRowKeepsOrder(t *testing.T) {
	rows := [][]any{{"high", int64(3)}, {"low", int64(7)}}
	got := Result(rows, []string{"severity", "n"}, "🚨 Accident Insight")

	assert.Equal(t, "\n### 🚨 Accident Insight\n\n- high: n 3\n- low: n 7\n", got)
}

func TestResultMetricNamesAndDecimals(t *testing.T) {
	rows := [][]any{
		{"Chennai", decimal.RequireFromString("12.3456"), int64(4)},
		{[]byte("Pune"), 2.005, int64(1)},
	}
	got := Result(rows, []string{"city", "avg_vehicle_count", "peak_hours"}, "🚗 Traffic Insight")

	assert.Contains(t, got, "- Chennai: avg vehicle count 12.35, peak hours 4")
	assert.Contains(t, got, "- Pune: avg vehicle count 2.01, peak hours 1")
}

func TestValue(t *testing.T) {
	assert.Equal(t, 1.5, Value(decimal.RequireFromString("1.499")))
	assert.Equal(t, 3.14, Value(3.14159))
	assert.Equal(t, "abc", Value([]byte("abc")))
	assert.Equal(t, int64(9), Value(int64(9)))
	assert.Nil(t, Value(nil))
}

func TestDetectTitle(t *testing.T) {
	cases := map[string]string{
		"How many accidents and traffic jams today": "🚨 Accident Insight",
		"traffic count by city":                     "🚗 Traffic Insight",
		"AQI this week":                             "🌫 AQI Insight",
		"crowd count yesterday":                     "👥 Crowd Insight",
		"how many complaints":                       "📣 Complaint Insight",
		"alert count":                               "📬 Alert Insight",
		"road damage this week":                     "🛣 Road Damage Insight",
		"how many rows":                             DefaultTitle,
	}
	for q, want := range cases {
		assert.Equal(t, want, DetectTitle(q), q)
	}
}

func TestReport(t *testing.T) {
	got := Report(model.ReportResult{
		Title:          "👥 Crowd Density Report",
		TotalLabel:     "Total Records",
		BreakdownLabel: "Density Breakdown",
		Total:          5,
		Breakdown: []model.CategoryCount{
			{Category: "Low", Count: 3},
			{Category: "High", Count: 2},
		},
	})
	assert.Equal(t,
		"\n### 👥 Crowd Density Report\n\n**Total Records:** 5\n\n**Density Breakdown:**\n\n- Low: 3\n- High: 2\n",
		got)
}

func TestReportDefaultsLabels(t *testing.T) {
	got := Report(model.ReportResult{Title: "🚗 Traffic Report", Total: 0})
	assert.Contains(t, got, "**Total:** 0")
	assert.Contains(t, got, "**Category Breakdown:**")
}
