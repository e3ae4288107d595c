package model

// ================ Config ================
type ConversationConfig struct {
	TTL      string `envconfig:"CONVERSATION_TTL" default:"24h"`
	RowLimit int    `envconfig:"QUERY_ROW_LIMIT" default:"100"`
}

type SQLModelConfig struct {
	Model       string  `envconfig:"SQL_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"SQL_MAX_TOKENS" default:"1024"`
	Temperature float32 `envconfig:"SQL_TEMPERATURE" default:"0"`
}

type ChatModelConfig struct {
	Model       string  `envconfig:"CHAT_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"CHAT_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"CHAT_TEMPERATURE" default:"0"`
}
