package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "derby",
	Short: "Fixed-odds lane race engine",
	Long:  "Runs the recurring fixed-odds lane race: entrant queue, lineup assembly, odds, betting, deterministic settlement and claims.",
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
