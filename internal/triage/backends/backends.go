// Package backends builds the triage backend selected by configuration.
package backends

import (
	"context"
	"fmt"
	"time"

	"github.com/linnemanlabs/go-core/log"

	"github.com/linnemanlabs/opsgenix/internal/cfg"
	"github.com/linnemanlabs/opsgenix/internal/llm/claude"
	"github.com/linnemanlabs/opsgenix/internal/llm/gemini"
	"github.com/linnemanlabs/opsgenix/internal/triage"
	"github.com/linnemanlabs/opsgenix/internal/triage/local"
	"github.com/linnemanlabs/opsgenix/internal/triage/rediscache"
	"github.com/linnemanlabs/opsgenix/internal/triage/remote"
)

// Set is the resolved backend configuration. Active is nil when every model
// backend is disabled. Remote and Local are set when that variant was chosen.
type Set struct {
	Active triage.Backend
	Remote *remote.Backend
	Local  *local.Backend
}

// Options carries the optional collaborators of Build.
type Options struct {
	// Cache, when set, memoizes remote results.
	Cache    rediscache.Client
	CacheTTL time.Duration
	Logger   log.Logger
}

// Build resolves the single active backend: remote when enabled, else local
// when enabled, else none.
func Build(ctx context.Context, c cfg.TriageConfig, opts Options) (*Set, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.Nop()
	}

	set := &Set{}
	active, err := triage.SelectBackend(
		triage.Candidate{
			Enabled: c.RemoteEnabled,
			Build: func() (triage.Backend, error) {
				gen, err := newGenerator(ctx, c, logger)
				if err != nil {
					return nil, err
				}
				set.Remote = remote.New(gen, remote.Options{
					MaxTokens:   c.RemoteMaxTokens,
					Temperature: c.RemoteTemperature,
					Timeout:     time.Duration(c.RemoteTimeoutSeconds) * time.Second,
				})
				// A keyless remote never produces a result worth caching.
				if opts.Cache != nil && gen != nil {
					return rediscache.New(set.Remote, opts.Cache, opts.CacheTTL, logger), nil
				}
				return set.Remote, nil
			},
		},
		triage.Candidate{
			Enabled: c.LocalEnabled,
			Build: func() (triage.Backend, error) {
				b, err := local.Open(ctx, local.NewFileStore(c.LocalModelPath), logger)
				if err != nil {
					return nil, fmt.Errorf("open local model: %w", err)
				}
				set.Local = b
				return b, nil
			},
		},
	)
	if err != nil {
		return nil, err
	}
	set.Active = active
	return set, nil
}

// newGenerator returns nil without error when no API key is configured, which
// leaves the remote backend permanently unavailable.
func newGenerator(ctx context.Context, c cfg.TriageConfig, logger log.Logger) (remote.Generator, error) {
	if c.RemoteAPIKey == "" {
		logger.Warn(ctx, "remote triage backend enabled without an API key, every alert will use the heuristic",
			"provider", c.RemoteProvider,
		)
		return nil, nil
	}

	switch c.RemoteProvider {
	case cfg.ProviderClaude:
		return claude.New(c.RemoteAPIKey, c.ModelName()), nil
	case cfg.ProviderGemini:
		g, err := gemini.New(ctx, c.RemoteAPIKey, c.ModelName())
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("unknown remote provider %q", c.RemoteProvider)
	}
}
