package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/linnemanlabs/opsgenix/internal/triage/local"
)

func newModelCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "model",
		Short: "Show the persisted local model",
		Long: `Loads the local model from --local-model-path and prints its metadata. A
missing or unreadable model is replaced with a freshly bootstrapped one.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b, err := local.Open(cmd.Context(), c.localStore(), c.logger)
			if err != nil {
				return fmt.Errorf("open local model: %w", err)
			}
			info, _ := b.Info()
			return printJSON(cmd.OutOrStdout(), info)
		},
	}
}
