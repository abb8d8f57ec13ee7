package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/linnemanlabs/opsgenix/internal/triage"
	"github.com/linnemanlabs/opsgenix/internal/triage/backends"
)

func newScoreCommand(c *cli) *cobra.Command {
	var (
		text          triage.AlertText
		heuristicOnly bool
	)

	cmd := &cobra.Command{
		Use:   "score [title]",
		Short: "Triage one alert and print the decision",
		Long: `Runs the same decision engine the server uses on a single alert. The title
comes from --title or the positional argument. Nothing is persisted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 && text.Title == "" {
				text.Title = args[0]
			}
			if strings.TrimSpace(text.Title) == "" {
				return fmt.Errorf("an alert title is required")
			}

			var backend triage.Backend
			if !heuristicOnly {
				set, err := backends.Build(cmd.Context(), c.triage, backends.Options{Logger: c.logger})
				if err != nil {
					return fmt.Errorf("triage backend: %w", err)
				}
				backend = set.Active
			}

			engine := triage.NewEngine(backend, c.logger, triage.EngineHooks{})
			res := engine.Decide(cmd.Context(), text)
			return printJSON(cmd.OutOrStdout(), struct {
				triage.Result
				Backend string `json:"backend"`
			}{res, engine.BackendName()})
		},
	}

	cmd.Flags().StringVar(&text.Title, "title", "", "alert title")
	cmd.Flags().StringVar(&text.Description, "description", "", "alert description")
	cmd.Flags().BoolVar(&heuristicOnly, "heuristic-only", false, "skip model backends and use the keyword heuristic")

	return cmd
}
