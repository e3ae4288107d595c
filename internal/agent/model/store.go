package model

import (
	"fmt"
	"strings"
)

// TableSchema lists the columns of one table in store order.
type TableSchema struct {
	Name    string   `json:"name"`
	Columns []string `json:"columns"`
}

// SchemaDescription maps every accessible table to its columns.
type SchemaDescription struct {
	Dialect string        `json:"dialect"`
	Tables  []TableSchema `json:"tables"`
}

// Lines renders "table: col1, col2" per table, the form used in prompts.
func (s SchemaDescription) Lines() []string {
	lines := make([]string, 0, len(s.Tables))
	for _, t := range s.Tables {
		lines = append(lines, fmt.Sprintf("%s: %s", t.Name, strings.Join(t.Columns, ", ")))
	}
	return lines
}

// Columns returns the columns of table, if present.
func (s SchemaDescription) Columns(table string) ([]string, bool) {
	for _, t := range s.Tables {
		if t.Name == table {
			return t.Columns, true
		}
	}
	return nil, false
}

// QueryResult holds rows as returned by the store, in order.
type QueryResult struct {
	Columns []string `json:"columns"`
	Rows    [][]any  `json:"rows"`
}

// CategoryCount is one GROUP BY bucket of a canned report.
type CategoryCount struct {
	Category string `json:"category"`
	Count    int64  `json:"count"`
}

// ReportResult is derived on demand from store aggregates.
type ReportResult struct {
	Domain         string          `json:"domain"`
	Title          string          `json:"title"`
	TotalLabel     string          `json:"-"`
	BreakdownLabel string          `json:"-"`
	Total          int64           `json:"total"`
	Breakdown      []CategoryCount `json:"breakdown"`
}
