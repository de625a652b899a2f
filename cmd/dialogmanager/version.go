package main

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
	"github.com/zxsted/dialogmanager"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version of dialogmanager",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "dialogmanager version %s (%s %s/%s)\n",
			strings.TrimSpace(dialogmanager.Version), runtime.Version(), runtime.GOOS, runtime.GOARCH)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
