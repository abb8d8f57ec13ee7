package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/linnemanlabs/go-core/cfg"
	"github.com/linnemanlabs/go-core/log"

	vc "github.com/linnemanlabs/opsgenix/internal/cfg"
	"github.com/linnemanlabs/opsgenix/internal/triage/local"
)

const appName = "triagectl"

// cli holds configuration shared by every subcommand.
type cli struct {
	triage vc.TriageConfig
	log    log.Config
	logger log.Logger
}

func newRootCommand() *cobra.Command {
	c := &cli{}

	fs := flag.NewFlagSet(appName, flag.ContinueOnError)
	c.triage.RegisterFlags(fs)
	c.log.RegisterFlags(fs)

	// env first so explicit flags parsed by cobra take precedence
	cfg.FillFromEnv(fs, "OPSGENIX_", func(format string, args ...any) {
		fmt.Fprintf(os.Stderr, format+"\n", args...)
	})

	root := &cobra.Command{
		Use:   appName,
		Short: "Opsgenix triage toolkit",
		Long: `triagectl runs the opsgenix triage engine outside the server: score an alert
with the configured backend, inspect the local model, or retrain it from a
YAML file of labelled samples.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := errors.Join(c.triage.Validate(), c.log.Validate()); err != nil {
				return fmt.Errorf("configuration validation failed: %w", err)
			}
			lg, err := log.New(c.log.ToOptions(appName))
			if err != nil {
				return fmt.Errorf("logger init: %w", err)
			}
			c.logger = lg.With("component", cmd.Name())
			return nil
		},
	}
	root.PersistentFlags().AddGoFlagSet(fs)

	root.AddCommand(newScoreCommand(c))
	root.AddCommand(newTrainCommand(c))
	root.AddCommand(newModelCommand(c))

	return root
}

func (c *cli) localStore() *local.FileStore {
	return local.NewFileStore(c.triage.LocalModelPath)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
