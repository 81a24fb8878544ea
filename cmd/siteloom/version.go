package main

import (
	"fmt"

	"github.com/spf13/cobra"

	siteloom "github.com/kjhansen/siteloom"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the siteloom version and exit.",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Printf("siteloom %d (%s)\n", siteloom.BinaryVersion, siteloom.BinaryGitHash)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
