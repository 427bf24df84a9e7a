package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kiranshivaraju/jobstatus/internal/cache"
	"github.com/kiranshivaraju/jobstatus/internal/prompt"
)

func newPromptCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prompt <job title>",
		Short: "Print the model prompt built for a job title",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text, err := prompt.Build(strings.TrimSpace(strings.Join(args, " ")))
			if err != nil {
				return fmt.Errorf("build prompt: %w", err)
			}
			_, err = fmt.Fprint(cmd.OutOrStdout(), text)
			return err
		},
	}
}

func newKeyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "key <job title>",
		Short: "Print the cache key a job title maps to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), cache.AnalysisKey(strings.Join(args, " ")))
			return err
		},
	}
}
