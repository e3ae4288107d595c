// Package cmd is the urbanbot command line.
package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"github.com/spf13/cobra"

	"github.com/urbanbot/server/internal/agent/model"
	"github.com/urbanbot/server/internal/core"
	"github.com/urbanbot/server/internal/notify"
	"github.com/urbanbot/server/internal/store"
	logx "github.com/urbanbot/server/pkg/logger"
	pkgredis "github.com/urbanbot/server/pkg/redis"
	"github.com/urbanbot/server/pkg/telemetry"
)

var (
	envFile string
	version = "dev"
)

// AppConfig defines every configurable parameter, sourced from environment
// variables (loaded from .env for local runs).
type AppConfig struct {
	Environment string `envconfig:"ENVIRONMENT" default:"development"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`

	// Infrastructure
	Log       logx.Config
	Redis     pkgredis.Config
	Store     store.Config
	Email     notify.Config
	Telemetry telemetry.Config

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	SQL          model.SQLModelConfig
	Chat         model.ChatModelConfig
	Conversation model.ConversationConfig
}

var cfg AppConfig

var rootCmd = &cobra.Command{
	Use:   "urbanbot",
	Short: "Smart-city query agent and incident recorder",
	Long: `UrbanBot answers natural-language questions about city event logs
(traffic, crowd density, accidents, air quality, complaints, road damage)
and records new incidents from the detection models.

Quick Start:
  urbanbot migrate                         # create the event-log tables
  urbanbot serve                           # start the HTTP API
  urbanbot ask "how many accidents today"  # one question
  urbanbot ask                             # interactive session`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return loadConfig()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Path to a .env file to load before reading the environment")
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)
}

func loadConfig() error {
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load %s: %w", envFile, err)
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return fmt.Errorf("failed to process environment config: %w", err)
	}
	logx.Init(logx.LoggerOpts{
		Environment: core.ParseEnvironment(cfg.Environment),
		Config:      cfg.Log,
	})
	return nil
}
