package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/zxsted/dialogmanager/internal/presentation/graph"
	"github.com/zxsted/dialogmanager/pkg/domain"
)

var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the action graph as a Mermaid diagram",
	Long: `Outputs a Mermaid diagram (graph TD) of the actions and their dependencies.
With --conversation, the actions done in that conversation are highlighted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		var overlay *graph.GraphOverlay
		if id, _ := cmd.Flags().GetString("conversation"); id != "" {
			state, err := app.Conversation(cmd.Context(), id)
			if err != nil && !errors.Is(err, domain.ErrSessionNotFound) {
				return err
			}
			overlay = graph.OverlayFromState(state)
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(app.Actions(), overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("conversation", "", "Highlight the progress of this conversation")
}
