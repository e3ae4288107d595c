// Package router picks the agent for a question. Rules are evaluated in
// order and the first match wins.
package router

import (
	"strings"

	"github.com/urbanbot/server/internal/agent/model"
)

// Predicate inspects the lower-cased question.
type Predicate func(q string) bool

type Rule struct {
	Name  string
	Match Predicate
	Agent model.AgentTag
}

// DomainKeywords are the tables a canned report exists for, in priority order.
var DomainKeywords = []string{"accident", "traffic", "complaint", "crowd", "aqi", "alert"}

var dbKeywords = []string{"how many", "count", "today", "yesterday", "week"}

// DefaultRules returns the routing table. The last rule always matches.
func DefaultRules() []Rule {
	return []Rule{
		{Name: "email", Match: All("send", "email"), Agent: model.AgentEmail},
		{Name: "report", Match: Both(Any(DomainKeywords...), All("report")), Agent: model.AgentReport},
		{Name: "db", Match: Any(dbKeywords...), Agent: model.AgentDB},
		{Name: "llm", Match: Always, Agent: model.AgentLLM},
	}
}

// Classify returns the first rule matching question. An empty rule list, or
// one with no match, falls back to the llm agent.
func Classify(rules []Rule, question string) Rule {
	q := strings.ToLower(question)
	for _, r := range rules {
		if r.Match != nil && r.Match(q) {
			return r
		}
	}
	return Rule{Name: "llm", Match: Always, Agent: model.AgentLLM}
}

// All matches when every word is a substring of q.
func All(words ...string) Predicate {
	return func(q string) bool {
		for _, w := range words {
			if !strings.Contains(q, w) {
				return false
			}
		}
		return true
	}
}

// Any matches when at least one word is a substring of q.
func Any(words ...string) Predicate {
	return func(q string) bool {
		for _, w := range words {
			if strings.Contains(q, w) {
				return true
			}
		}
		return false
	}
}

func Both(a, b Predicate) Predicate {
	return func(q string) bool { return a(q) && b(q) }
}

func Always(string) bool { return true }
