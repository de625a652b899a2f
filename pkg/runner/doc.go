/*
Package runner implements an interactive chat loop on top of a bot.

The runner reads user messages through a pluggable IOHandler, submits
them to a Replier (usually *dialogmanager.Bot) and writes the replies
back. Messages the bot cannot handle are reported as system output and
the conversation goes on.

# Key Components

  - Runner: the loop, stopped by EOF, an exit command, ctx or SIGINT.
  - TextHandler: line-based terminal IO with an optional renderer.
  - JSONHandler: JSON-Lines IO for scripted clients.
  - SanitizeInput: size and control-character checks on user input.

# Usage

	r := runner.NewRunner(
		runner.WithConversationID("user-1"),
		runner.WithInputHandler(runner.NewTextHandler(os.Stdin, os.Stdout)),
	)

	if err := r.Run(ctx, bot); err != nil {
		log.Fatal(err)
	}
*/
package runner
