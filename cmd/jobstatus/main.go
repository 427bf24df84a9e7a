// Package main is the jobstatus operator CLI.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "jobstatus",
		Short:         "Job automation-exposure analysis tools",
		Long:          "Runs job title analyses in-process, inspects prompts and cache keys, and loads the job catalog.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(newAnalyzeCmd(), newPromptCmd(), newKeyCmd(), newCatalogCmd())
	return root
}

func main() {
	// Diagnostics go to stderr so stdout stays parseable.
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))

	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
