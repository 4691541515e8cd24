// Package main implements the care CLI, the operator-facing entry point to
// the CARE engine: indexing a project into the vector store and assembling
// review context for a file or pull request.
package main

import (
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	version    = "dev"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "care",
	Short:   "Context-augmented retrieval engine for code review",
	Long:    `care indexes a project's code and documentation into a local vector store, then assembles review context for a file or pull request for a downstream LLM reviewer.`,
	Version: version,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config.yaml (default ~/.config/care-engine/config.yaml)")
	rootCmd.AddCommand(indexCmd)
	rootCmd.AddCommand(reviewCmd)
}
