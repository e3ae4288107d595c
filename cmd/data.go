package cmd

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/urbanbot/server/internal/agent/format"
	"github.com/urbanbot/server/internal/agent/reports"
	"github.com/urbanbot/server/internal/render"
)

var schemaJSON bool

var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Print the introspected database schema",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newStoreApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		desc, err := a.store.Introspect(cmd.Context())
		if err != nil {
			return err
		}
		if schemaJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(desc)
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), render.Schema(desc))
		return err
	},
}

var reportCmd = &cobra.Command{
	Use:   "report <domain>",
	Short: "Run a canned report",
	Long:  "Run a canned report. Domains: " + strings.Join(reports.MustDefault().Domains(), ", "),
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newStoreApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.reports.Run(cmd.Context(), a.store, args[0])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintln(cmd.OutOrStdout(), format.Report(res))
		return err
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Create the event-log tables for the configured driver",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newStoreApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.store.Migrate(cmd.Context()); err != nil {
			return err
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "Migrated %s event log\n", a.store.Dialect())
		return err
	},
}

func init() {
	schemaCmd.Flags().BoolVar(&schemaJSON, "json", false, "Print the schema as JSON")
	rootCmd.AddCommand(schemaCmd, reportCmd, migrateCmd)
}
