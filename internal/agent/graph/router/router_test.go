package router

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/urbanbot/server/internal/agent/model"
)

func TestClassify(t *testing.T) {
	rules := DefaultRules()
	cases := []struct {
		q    string
		want model.AgentTag
	}{
		{"Please SEND this by EMAIL", model.AgentEmail},
		{"send the traffic report by email", model.AgentEmail},
		{"traffic report", model.AgentReport},
		{"How many in the traffic report", model.AgentReport},
		{"Crowd report for today", model.AgentReport},
		{"how many accidents today", model.AgentDB},
		{"count complaints by city", model.AgentDB},
		{"aqi last week", model.AgentDB},
		{"accidents yesterday", model.AgentDB},
		{"road damage report", model.AgentLLM},
		{"what is urbanbot?", model.AgentLLM},
		{"send me a report", model.AgentLLM},
		{"", model.AgentLLM},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, Classify(rules, c.q).Agent, c.q)
	}
}

func TestReportOutranksGeneratedQuery(t *testing.T) {
	r := Classify(DefaultRules(), "traffic report: how many vehicles?")
	assert.Equal(t, "report", r.Name)
	assert.Equal(t, model.AgentReport, r.Agent)
}

func TestClassifyWithoutRulesFallsBack(t *testing.T) {
	assert.Equal(t, model.AgentLLM, Classify(nil, "anything").Agent)
}

func TestCustomRuleOrder(t *testing.T) {
	rules := []Rule{
		{Name: "db", Match: Any("count"), Agent: model.AgentDB},
		{Name: "report", Match: All("report"), Agent: model.AgentReport},
	}
	assert.Equal(t, model.AgentDB, Classify(rules, "count report").Agent)
}
