// Package reports holds the fixed aggregate reports per domain table.
package reports

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/urbanbot/server/internal/agent/model"
	errx "github.com/urbanbot/server/internal/core/error"
	"github.com/urbanbot/server/internal/sqlguard"
	logx "github.com/urbanbot/server/pkg/logger"
)

//go:embed reports.yaml
var defaultDefinitions []byte

// Querier is the subset of the store a report needs.
type Querier interface {
	Query(ctx context.Context, q sqlguard.SafeQuery) (model.QueryResult, error)
	QueryScalar(ctx context.Context, q sqlguard.SafeQuery) (int64, error)
}

// Definition is one report as declared in YAML.
type Definition struct {
	Domain         string `yaml:"domain"`
	Title          string `yaml:"title"`
	TotalLabel     string `yaml:"total_label"`
	BreakdownLabel string `yaml:"breakdown_label"`
	Total          string `yaml:"total"`
	Breakdown      string `yaml:"breakdown"`
}

type report struct {
	def       Definition
	total     sqlguard.SafeQuery
	breakdown sqlguard.SafeQuery
}

// Registry is an ordered set of reports.
type Registry struct {
	reports []report
}

// Default loads the embedded definitions.
func Default() (*Registry, error) {
	return Load(defaultDefinitions)
}

// MustDefault is Default for package initialization in commands and tests.
func MustDefault() *Registry {
	r, err := Default()
	if err != nil {
		panic(err)
	}
	return r
}

// Load parses YAML definitions. Every query has to pass the SQL guard.
func Load(data []byte) (*Registry, error) {
	var defs []Definition
	if err := yaml.Unmarshal(data, &defs); err != nil {
		return nil, fmt.Errorf("parse report definitions: %w", err)
	}

	reg := &Registry{reports: make([]report, 0, len(defs))}
	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		d.Domain = strings.ToLower(strings.TrimSpace(d.Domain))
		if d.Domain == "" {
			return nil, fmt.Errorf("report without domain")
		}
		if seen[d.Domain] {
			return nil, fmt.Errorf("duplicate report domain %q", d.Domain)
		}
		seen[d.Domain] = true

		total, err := sqlguard.Filter(d.Total)
		if err != nil {
			return nil, fmt.Errorf("report %s total query: %w", d.Domain, err)
		}
		breakdown, err := sqlguard.Filter(d.Breakdown)
		if err != nil {
			return nil, fmt.Errorf("report %s breakdown query: %w", d.Domain, err)
		}
		reg.reports = append(reg.reports, report{def: d, total: total, breakdown: breakdown})
	}
	return reg, nil
}

// Domains lists the registered domains in match order.
func (r *Registry) Domains() []string {
	out := make([]string, 0, len(r.reports))
	for _, rep := range r.reports {
		out = append(out, rep.def.Domain)
	}
	return out
}

// Match returns the first domain whose keyword appears in question, provided
// the question also asks for a report.
func (r *Registry) Match(question string) (string, bool) {
	q := strings.ToLower(question)
	if !strings.Contains(q, "report") {
		return "", false
	}
	for _, rep := range r.reports {
		if strings.Contains(q, rep.def.Domain) {
			return rep.def.Domain, true
		}
	}
	return "", false
}

// Run executes the report for domain.
func (r *Registry) Run(ctx context.Context, db Querier, domain string) (model.ReportResult, error) {
	rep, ok := r.lookup(domain)
	if !ok {
		return model.ReportResult{}, errx.New(errx.ErrUnknownReport, 404, fmt.Sprintf("unknown report %q", domain))
	}

	total, err := db.QueryScalar(ctx, rep.total)
	if err != nil {
		logx.Error().Err(err).Str("domain", domain).Msg("report total failed")
		return model.ReportResult{}, err
	}
	rows, err := db.Query(ctx, rep.breakdown)
	if err != nil {
		logx.Error().Err(err).Str("domain", domain).Msg("report breakdown failed")
		return model.ReportResult{}, err
	}

	out := model.ReportResult{
		Domain:         rep.def.Domain,
		Title:          rep.def.Title,
		TotalLabel:     rep.def.TotalLabel,
		BreakdownLabel: rep.def.BreakdownLabel,
		Total:          total,
		Breakdown:      make([]model.CategoryCount, 0, len(rows.Rows)),
	}
	for _, row := range rows.Rows {
		if len(row) < 2 {
			continue
		}
		n, err := asCount(row[1])
		if err != nil {
			return model.ReportResult{}, err
		}
		out.Breakdown = append(out.Breakdown, model.CategoryCount{Category: fmt.Sprint(row[0]), Count: n})
	}
	return out, nil
}

func (r *Registry) lookup(domain string) (report, bool) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	for _, rep := range r.reports {
		if rep.def.Domain == domain {
			return rep, true
		}
	}
	return report{}, false
}

func asCount(v any) (int64, error) {
	switch n := v.(type) {
	case int64:
		return n, nil
	case int:
		return int64(n), nil
	case float64:
		return int64(n), nil
	case []byte:
		var x int64
		_, err := fmt.Sscan(string(n), &x)
		return x, err
	}
	return 0, fmt.Errorf("unexpected count type %T", v)
}
