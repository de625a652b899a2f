package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/zxsted/dialogmanager/internal/cli"
)

var rootCmd = &cobra.Command{
	Use:   "dialogmanager",
	Short: "dialogmanager runs goal-driven conversations",
	Long: `dialogmanager drives conversations over a graph of actions: each action
declares the intent that triggers it, the notions it must collect and the
actions it depends on. Actions are loaded from a YAML catalog or a
directory of Markdown/JSON documents.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands)
	rootCmd.PersistentFlags().StringP("config", "c", "dialogmanager.yaml", "Configuration file")
	rootCmd.PersistentFlags().StringP("actions", "a", "", "Action catalog file or directory (overrides the configuration)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn or error")
}

// newApp builds the application from the persistent flags.
func newApp(cmd *cobra.Command) (*cli.App, error) {
	configPath, _ := cmd.Flags().GetString("config")
	actions, _ := cmd.Flags().GetString("actions")
	logLevel, _ := cmd.Flags().GetString("log-level")

	return cli.NewApp(cmd.Context(), cli.Options{
		ConfigPath: configPath,
		Actions:    actions,
		LogLevel:   logLevel,
	})
}
