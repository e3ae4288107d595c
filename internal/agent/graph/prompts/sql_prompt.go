package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/urbanbot/server/internal/agent/model"
)

//go:embed template/sql_prompt.txt
var sqlPrompt string

type dateRules struct {
	name                       string
	today, yesterday, lastWeek string
}

var dialects = map[string]dateRules{
	"mysql": {
		name:      "MySQL",
		today:     "DATE(timestamp)=CURDATE()",
		yesterday: "DATE(timestamp)=CURDATE()-INTERVAL 1 DAY",
		lastWeek:  "timestamp >= CURDATE()-INTERVAL 7 DAY",
	},
	"sqlite": {
		name:      "SQLite",
		today:     "DATE(timestamp)=DATE('now')",
		yesterday: "DATE(timestamp)=DATE('now','-1 day')",
		lastWeek:  "timestamp >= DATE('now','-7 day')",
	},
}

// RenderSQLPrompt renders the query-generation prompt via the Eino prompt
// component, so prompt callbacks fire for it.
func RenderSQLPrompt(ctx context.Context, desc model.SchemaDescription, question string, rowLimit int) ([]*schema.Message, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("sql prompt: empty question")
	}
	rules, ok := dialects[strings.ToLower(desc.Dialect)]
	if !ok {
		rules = dialects["mysql"]
	}
	if rowLimit <= 0 {
		rowLimit = 100
	}

	tpl := prompt.FromMessages(
		schema.GoTemplate,
		schema.UserMessage(sqlPrompt),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"DialectName": rules.name,
		"Tables":      desc.Lines(),
		"RowLimit":    rowLimit,
		"Today":       rules.today,
		"Yesterday":   rules.yesterday,
		"LastWeek":    rules.lastWeek,
		"Question":    question,
	})
	if err != nil {
		return nil, fmt.Errorf("sql prompt render: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return nil, fmt.Errorf("sql prompt render: empty result")
	}
	return msgs, nil
}
