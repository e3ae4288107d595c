package nodes

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/urbanbot/server/internal/agent/model"
	logx "github.com/urbanbot/server/pkg/logger"
)

// ChatModelConfig holds the configuration for chat model creation
type ChatModelConfig struct {
	APIKey     string
	BaseURL    string
	SQLConfig  *model.SQLModelConfig
	ChatConfig *model.ChatModelConfig
}

// ChatModels holds the query-generation and open-ended chat models
type ChatModels struct {
	SQL           einomodel.BaseChatModel
	Chat          einomodel.BaseChatModel
	SQLModelName  string
	ChatModelName string
}

// NewChatModels creates both Gemini chat models sharing one client
func NewChatModels(ctx context.Context, config ChatModelConfig) (*ChatModels, error) {
	if config.SQLConfig == nil || config.ChatConfig == nil {
		return nil, fmt.Errorf("chat model config is nil")
	}

	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	// Query generation wants plain SQL back, so no thinking output
	sqlModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.SQLConfig.Model,
		Temperature: &config.SQLConfig.Temperature,
		MaxTokens:   &config.SQLConfig.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating SQL model")
		return nil, fmt.Errorf("error creating SQL model: %w", err)
	}

	chatModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.ChatConfig.Model,
		Temperature: &config.ChatConfig.Temperature,
		MaxTokens:   &config.ChatConfig.MaxTokens,
		ThinkingConfig: &genai.ThinkingConfig{
			IncludeThoughts: false,
			ThinkingBudget:  genai.Ptr(int32(1024)),
		},
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating chat model")
		return nil, fmt.Errorf("error creating chat model: %w", err)
	}

	return &ChatModels{
		SQL:           sqlModel,
		Chat:          chatModel,
		SQLModelName:  config.SQLConfig.Model,
		ChatModelName: config.ChatConfig.Model,
	}, nil
}
