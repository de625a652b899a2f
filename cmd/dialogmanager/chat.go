package main

import (
	"os"

	"github.com/spf13/cobra"
	"github.com/zxsted/dialogmanager/internal/cli"
	"github.com/zxsted/dialogmanager/internal/presentation/tui"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Talk to the bot from the terminal",
	Long: `Starts an interactive conversation on Stdin/Stdout.
With --json, every input line is a JSON message and every output line a JSON
object, which suits scripting and other processes.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		jsonMode, _ := cmd.Flags().GetBool("json")
		watchMode, _ := cmd.Flags().GetBool("watch")
		fresh, _ := cmd.Flags().GetBool("fresh")
		id, _ := cmd.Flags().GetString("conversation")
		language, _ := cmd.Flags().GetString("language")

		sc := cli.NewSignalContext(cmd.Context())
		defer sc.Cancel()
		cmd.SetContext(sc)

		app, err := newApp(cmd)
		if err != nil {
			return err
		}
		defer app.Close()

		return cli.RunChat(sc, app, cli.ChatOptions{
			ConversationID: id,
			Language:       language,
			JSON:           jsonMode,
			Watch:          watchMode,
			Fresh:          fresh,
			In:             os.Stdin,
			Out:            os.Stdout,
			Interactive:    !jsonMode && tui.IsInteractive(),
		})
	},
}

func init() {
	rootCmd.AddCommand(chatCmd)

	chatCmd.Flags().String("conversation", "", "Conversation ID to resume (a new one is generated by default)")
	chatCmd.Flags().String("language", "", "Language of the messages")
	chatCmd.Flags().Bool("json", false, "Run in JSON mode (NDJSON input/output)")
	chatCmd.Flags().BoolP("watch", "w", false, "Reload the actions when the catalog changes")
	chatCmd.Flags().Bool("fresh", false, "Reset the conversation before starting")

	// Make 'chat' the default if no command is provided.
	rootCmd.RunE = chatCmd.RunE
	rootCmd.Flags().AddFlagSet(chatCmd.Flags())
}
