package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/urbanbot/server/internal/agent/graph/conversations"
	"github.com/urbanbot/server/internal/render"
)

var sessionFlag string

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask one question, or start an interactive session",
	Long: `Ask UrbanBot a question. Without a question an interactive session
starts; type /clear to reset the conversation and /quit to leave.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := newAgentApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()

		id := sessionFlag
		if id == "" {
			id = uuid.NewString()
		}
		out := cmd.OutOrStdout()

		if len(args) > 0 {
			return askOnce(ctx, a.manager, out, id, strings.Join(args, " "))
		}
		return repl(ctx, a.manager, cmd.InOrStdin(), out, id)
	},
}

func init() {
	askCmd.Flags().StringVar(&sessionFlag, "session", "", "Session id to continue (default: a new session)")
	rootCmd.AddCommand(askCmd)
}

func askOnce(ctx context.Context, m *conversations.Manager, out io.Writer, id, question string) error {
	entry, err := m.Ask(ctx, id, question)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprint(out, render.Entry(entry))
	return nil
}

func repl(ctx context.Context, m *conversations.Manager, in io.Reader, out io.Writer, id string) error {
	state, err := m.Start(ctx, id)
	if err != nil {
		return err
	}
	_, _ = fmt.Fprint(out, render.Conversation(state))

	scanner := bufio.NewScanner(in)
	for {
		_, _ = fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch line {
		case "":
			continue
		case "/quit", "/exit":
			return nil
		case "/clear":
			state, err := m.Clear(ctx, id)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprint(out, render.Conversation(state))
			continue
		}
		if err := askOnce(ctx, m, out, id, line); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
	}
	return scanner.Err()
}
