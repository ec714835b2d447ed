package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Version is the build version, injected at link time.
var Version = "dev"

// Commit is the build commit, injected at link time.
var Commit = "unknown"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("helios %s (%s)\n", Version, Commit)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
