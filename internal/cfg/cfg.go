package cfg

import (
	"errors"
	"flag"
	"fmt"
	"math"
)

// Remote model providers.
const (
	ProviderGemini = "gemini"
	ProviderClaude = "claude"
)

// Default model names per provider.
const (
	DefaultGeminiModel = "gemini-1.5-flash"
	DefaultClaudeModel = "claude-sonnet-4-20250514"
)

// Config adds service configuration fields to the
// common cfg.Registerable and cfg.Validatable interfaces
type Config struct {
	DrainSeconds          int
	ShutdownBudgetSeconds int
	APIPort               int
	DatabaseURL           string
	RedisURL              string
	RedisCacheTTLSeconds  int
	SlackWebhookURL       string
	NotifyMinPriority     int
	AdminToken            string

	Triage TriageConfig
}

// TriageConfig selects and tunes the triage model backend.
type TriageConfig struct {
	RemoteEnabled        bool
	RemoteProvider       string
	RemoteModel          string
	RemoteMaxTokens      int
	RemoteTemperature    float64
	RemoteAPIKey         string
	RemoteTimeoutSeconds int
	LocalEnabled         bool
	LocalModelPath       string
}

// RegisterFlags binds Config fields to the given FlagSet with defaults inline
func (c *Config) RegisterFlags(fs *flag.FlagSet) {
	fs.IntVar(&c.DrainSeconds, "drain-seconds", 60, "seconds to wait for in-flight requests to drain before shutdown (1..300)")
	fs.IntVar(&c.ShutdownBudgetSeconds, "shutdown-budget-seconds", 90, "total seconds for component shutdown after drain (1..300)")
	fs.IntVar(&c.APIPort, "http-port", 8080, "API listen TCP port (1..65535)")
	fs.StringVar(&c.DatabaseURL, "database-url", "", "PostgreSQL connection URL (empty = in-memory store)")
	fs.StringVar(&c.RedisURL, "redis-url", "", "Redis URL for the triage decision cache (empty = no cache)")
	fs.IntVar(&c.RedisCacheTTLSeconds, "redis-cache-ttl-seconds", 3600, "seconds a cached triage decision stays valid (1..604800)")
	fs.StringVar(&c.SlackWebhookURL, "slack-webhook-url", "", "Slack webhook URL for notifications")
	fs.IntVar(&c.NotifyMinPriority, "notify-min-priority", 80, "minimum triage priority score that triggers a notification (0..100)")
	fs.StringVar(&c.AdminToken, "admin-token", "", "bearer token for model administration endpoints (empty = endpoints disabled)")
	c.Triage.RegisterFlags(fs)
}

// RegisterFlags binds TriageConfig fields to the given FlagSet.
func (c *TriageConfig) RegisterFlags(fs *flag.FlagSet) {
	fs.BoolVar(&c.RemoteEnabled, "remote-backend-enabled", false, "use a remote generative model for triage")
	fs.StringVar(&c.RemoteProvider, "remote-provider", ProviderGemini, "remote model provider (gemini|claude)")
	fs.StringVar(&c.RemoteModel, "remote-model", "", "remote model name (empty = provider default)")
	fs.IntVar(&c.RemoteMaxTokens, "remote-max-tokens", 1000, "maximum output tokens per remote call (1..65536)")
	fs.Float64Var(&c.RemoteTemperature, "remote-temperature", 0.3, "remote sampling temperature (0..1)")
	fs.StringVar(&c.RemoteAPIKey, "remote-api-key", "", "API key for the remote provider (empty = remote backend unavailable)")
	fs.IntVar(&c.RemoteTimeoutSeconds, "remote-timeout-seconds", 30, "timeout for a single remote call (1..300)")
	fs.BoolVar(&c.LocalEnabled, "local-backend-enabled", true, "use the local statistical classifier when the remote backend is disabled")
	fs.StringVar(&c.LocalModelPath, "local-model-path", "/var/lib/opsgenix/models", "directory holding the persisted local model")
}

// ModelName returns the configured remote model, or the provider default.
func (c *TriageConfig) ModelName() string {
	if c.RemoteModel != "" {
		return c.RemoteModel
	}
	if c.RemoteProvider == ProviderClaude {
		return DefaultClaudeModel
	}
	return DefaultGeminiModel
}

// Validate checks all configuration fields for correctness.
// It returns an error if any field is invalid, or nil if all fields are valid.
func (c *Config) Validate() error {
	var errs []error

	// Drain and shutdown budgets
	if c.DrainSeconds <= 0 || c.DrainSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid DRAIN_SECONDS %d (must be 1..300)", c.DrainSeconds))
	}
	if c.ShutdownBudgetSeconds <= 0 || c.ShutdownBudgetSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid SHUTDOWN_BUDGET_SECONDS %d (must be 1..300)", c.ShutdownBudgetSeconds))
	}

	// Shutdown budget must be greater than drain time
	if c.ShutdownBudgetSeconds <= c.DrainSeconds {
		errs = append(errs, fmt.Errorf("SHUTDOWN_BUDGET_SECONDS %d must be greater than DRAIN_SECONDS %d", c.ShutdownBudgetSeconds, c.DrainSeconds))
	}

	// API port must be valid TCP port number
	if c.APIPort <= 0 || c.APIPort > 65535 {
		errs = append(errs, fmt.Errorf("invalid HTTP_PORT %d (must be 1..65535)", c.APIPort))
	}

	if c.RedisURL != "" && (c.RedisCacheTTLSeconds <= 0 || c.RedisCacheTTLSeconds > 604800) {
		errs = append(errs, fmt.Errorf("invalid REDIS_CACHE_TTL_SECONDS %d (must be 1..604800)", c.RedisCacheTTLSeconds))
	}

	if c.NotifyMinPriority < 0 || c.NotifyMinPriority > 100 {
		errs = append(errs, fmt.Errorf("invalid NOTIFY_MIN_PRIORITY %d (must be 0..100)", c.NotifyMinPriority))
	}

	if err := c.Triage.Validate(); err != nil {
		errs = append(errs, err)
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}

// Validate checks the triage settings. An enabled remote backend without an
// API key is valid; it degrades to the heuristic at runtime.
func (c *TriageConfig) Validate() error {
	var errs []error

	switch c.RemoteProvider {
	case ProviderGemini, ProviderClaude:
	default:
		errs = append(errs, fmt.Errorf("invalid REMOTE_PROVIDER %q (must be %s or %s)", c.RemoteProvider, ProviderGemini, ProviderClaude))
	}

	if c.RemoteMaxTokens <= 0 || c.RemoteMaxTokens > 65536 {
		errs = append(errs, fmt.Errorf("invalid REMOTE_MAX_TOKENS %d (must be 1..65536)", c.RemoteMaxTokens))
	}

	if math.IsNaN(c.RemoteTemperature) || c.RemoteTemperature < 0 || c.RemoteTemperature > 1 {
		errs = append(errs, fmt.Errorf("invalid REMOTE_TEMPERATURE %v (must be 0..1)", c.RemoteTemperature))
	}

	if c.RemoteTimeoutSeconds <= 0 || c.RemoteTimeoutSeconds > 300 {
		errs = append(errs, fmt.Errorf("invalid REMOTE_TIMEOUT_SECONDS %d (must be 1..300)", c.RemoteTimeoutSeconds))
	}

	if c.LocalEnabled && c.LocalModelPath == "" {
		errs = append(errs, errors.New("LOCAL_MODEL_PATH is required when the local backend is enabled"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
