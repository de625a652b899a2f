package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zxsted/dialogmanager/internal/cli"
)

var validateCmd = &cobra.Command{
	Use:   "validate [actions]",
	Short: "Check the action catalog for consistency",
	Long:  `Compiles every action and reports duplicates, dependency cycles and references to unknown actions.`,
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path, _ := cmd.Flags().GetString("actions")
		if len(args) > 0 {
			path = args[0]
		}
		if path == "" {
			app, err := newApp(cmd)
			if err != nil {
				return err
			}
			defer app.Close()
			path = app.Config.Actions
		}

		source, err := cli.OpenSource(path)
		if err != nil {
			return err
		}
		report, err := cli.Validate(cmd.Context(), source)
		if err != nil {
			return fmt.Errorf("validation failed: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%d action(s)\n", report.Actions)
		fmt.Fprintf(out, "intents:  %s\n", strings.Join(report.Intents, ", "))
		fmt.Fprintf(out, "entities: %s\n", strings.Join(report.Entities, ", "))
		fmt.Fprintln(out, "Catalog is valid! ✅")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
}
