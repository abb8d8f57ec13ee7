package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/linnemanlabs/opsgenix/internal/triage/local"
)

func newTrainCommand(c *cli) *cobra.Command {
	var samplesPath string

	cmd := &cobra.Command{
		Use:   "train",
		Short: "Retrain the local model from labelled samples",
		Long: `Reads labelled alerts from a YAML file, retrains the local classifier and
persists it to --local-model-path. A running server picks the new model up on
restart. Labels other than critical, high, medium and low train as medium.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			f, err := os.Open(samplesPath)
			if err != nil {
				return fmt.Errorf("open samples: %w", err)
			}
			defer func() { _ = f.Close() }()

			samples, err := loadSamples(f)
			if err != nil {
				return fmt.Errorf("%s: %w", samplesPath, err)
			}

			b, err := local.Open(cmd.Context(), c.localStore(), c.logger)
			if err != nil {
				return fmt.Errorf("open local model: %w", err)
			}
			sum, err := b.Retrain(cmd.Context(), samples)
			if err != nil {
				return err
			}
			if sum.UnknownLabels > 0 {
				c.logger.Warn(cmd.Context(), "samples with unknown labels trained as medium", "count", sum.UnknownLabels)
			}
			return printJSON(cmd.OutOrStdout(), sum)
		},
	}

	cmd.Flags().StringVar(&samplesPath, "samples", "", "YAML file of labelled samples")
	_ = cmd.MarkFlagRequired("samples")

	return cmd
}
