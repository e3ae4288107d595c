package model

// AppState stores per-invocation state for the Eino Graph.
// All reads/writes happen inside Eino state handlers or compose.ProcessState,
// which serialize access, so no extra locking is needed.
type AppState struct {
	Conversation ConversationState
	Question     string
	Agent        AgentTag

	// Accumulated total LLM cost (USD) across model invocations for this question
	TotalCostUSD float64
}

// QueryInput is the graph input: the session state and the new question.
type QueryInput struct {
	State    ConversationState `json:"state"`
	Question string            `json:"question"`
}

// Turn is what the router and the agent nodes see.
type Turn struct {
	SessionID string
	Question  string
	Lowered   string
	State     ConversationState
}

// Answer is the text an agent node produced, before it joins the conversation.
type Answer struct {
	Text  string
	Agent AgentTag
	SQL   string
}

// Reply is the graph output.
type Reply struct {
	State ConversationState `json:"state"`
	Entry ConversationEntry `json:"entry"`
	SQL   string            `json:"sql,omitempty"`
}
