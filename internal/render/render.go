// Package render draws conversation entries for the terminal.
package render

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/urbanbot/server/internal/agent/model"
)

var (
	badgeStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("230")).
			Padding(0, 1)

	userStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("39")).
			Bold(true)

	textStyle = lipgloss.NewStyle().
			PaddingLeft(2)

	timestampStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("212"))
)

// badgeColors gives every agent tag its own background.
var badgeColors = map[model.AgentTag]lipgloss.Color{
	model.AgentLLM:    lipgloss.Color("62"),
	model.AgentDB:     lipgloss.Color("28"),
	model.AgentReport: lipgloss.Color("130"),
	model.AgentEmail:  lipgloss.Color("161"),
}

// Badge renders the agent tag, e.g. " DB ".
func Badge(tag model.AgentTag) string {
	if tag == "" {
		tag = model.AgentLLM
	}
	bg, ok := badgeColors[tag]
	if !ok {
		bg = lipgloss.Color("240")
	}
	return badgeStyle.Background(bg).Render(strings.ToUpper(string(tag)))
}

// Entry renders one conversation entry.
func Entry(e model.ConversationEntry) string {
	var who string
	if e.Role == model.RoleUser {
		who = userStyle.Render("you")
	} else {
		who = Badge(e.Agent)
	}
	ts := ""
	if !e.Timestamp.IsZero() {
		ts = " " + timestampStyle.Render(e.Timestamp.Local().Format("15:04"))
	}
	return fmt.Sprintf("%s%s\n%s\n", who, ts, textStyle.Render(e.Text))
}

// Conversation renders a whole session.
func Conversation(s model.ConversationState) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("UrbanBot session " + s.SessionID))
	b.WriteString("\n\n")
	for _, e := range s.Entries {
		b.WriteString(Entry(e))
		b.WriteString("\n")
	}
	return b.String()
}

// Schema renders the introspected tables.
func Schema(desc model.SchemaDescription) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Schema (%s)", desc.Dialect)))
	b.WriteString("\n")
	for _, line := range desc.Lines() {
		b.WriteString("  ")
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}
