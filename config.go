package reconciler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/viant/afs"
	"github.com/viant/reconciler/internal/logger"
	"github.com/viant/reconciler/policy"
	"github.com/viant/reconciler/service/capability/drafter"
	"github.com/viant/reconciler/service/capability/matcher"
	"github.com/viant/reconciler/service/decision"
	"gopkg.in/yaml.v3"
)

// Matcher kinds.
const (
	MatcherFacts  = "facts"
	MatcherScript = "script"
)

// Audit store kinds.
const (
	AuditMemory = "memory"
	AuditFs     = "fs"
	AuditSqlite = "sqlite"
)

// Config is a serialisable representation of the engine configuration. It is
// read from YAML and overridden by RECONCILER_* environment variables.
type Config struct {
	MinConfidence float64           `json:"minConfidence" yaml:"minConfidence" env:"RECONCILER_MIN_CONFIDENCE"`
	Workers       int               `json:"workers" yaml:"workers" env:"RECONCILER_WORKERS"`
	Gateway       GatewayConfig     `json:"gateway" yaml:"gateway"`
	Matcher       MatcherConfig     `json:"matcher" yaml:"matcher"`
	Decision      DecisionConfig    `json:"decision" yaml:"decision"`
	Audit         AuditConfig       `json:"audit" yaml:"audit"`
	Signature     drafter.Signature `json:"signature" yaml:"signature" envPrefix:"RECONCILER_SIGNATURE_"`
	Tracing       TracingConfig     `json:"tracing" yaml:"tracing"`
	Log           logger.Config     `json:"log" yaml:"log" envPrefix:"RECONCILER_LOG_"`
}

// GatewayConfig bounds and filters capability calls.
type GatewayConfig struct {
	Timeout time.Duration `json:"timeout" yaml:"timeout" env:"RECONCILER_GATEWAY_TIMEOUT"`
	Policy  policy.Config `json:"policy" yaml:"policy" envPrefix:"RECONCILER_POLICY_"`
}

// MatcherConfig selects the matcher capability.
type MatcherConfig struct {
	Kind   string               `json:"kind" yaml:"kind" env:"RECONCILER_MATCHER"`
	Script matcher.ScriptConfig `json:"script" yaml:"script"`
}

// DecisionConfig enables optional materiality rules.
type DecisionConfig struct {
	AmountVariance AmountVarianceConfig `json:"amountVariance" yaml:"amountVariance"`
}

// AmountVarianceConfig places the amount variance rule in the chain.
type AmountVarianceConfig struct {
	Enabled   bool    `json:"enabled" yaml:"enabled" env:"RECONCILER_AMOUNT_VARIANCE"`
	Threshold float64 `json:"threshold" yaml:"threshold" env:"RECONCILER_AMOUNT_VARIANCE_THRESHOLD"`
	Priority  int     `json:"priority" yaml:"priority" env:"RECONCILER_AMOUNT_VARIANCE_PRIORITY"`
}

// AuditConfig selects the audit store.
type AuditConfig struct {
	Store string `json:"store" yaml:"store" env:"RECONCILER_AUDIT_STORE"`
	URL   string `json:"url" yaml:"url" env:"RECONCILER_AUDIT_URL"`
}

// TracingConfig enables the stdout span exporter.
type TracingConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled" env:"RECONCILER_TRACING"`
	File    string `json:"file" yaml:"file" env:"RECONCILER_TRACING_FILE"`
}

// DefaultConfig returns the built in defaults.
func DefaultConfig() *Config {
	return &Config{
		MinConfidence: 0.75,
		Workers:       4,
		Gateway:       GatewayConfig{Timeout: time.Minute},
		Matcher:       MatcherConfig{Kind: MatcherFacts},
		Decision: DecisionConfig{AmountVariance: AmountVarianceConfig{
			Threshold: 100,
			Priority:  (decision.PriorityPartial + decision.PriorityLowConfidence) / 2,
		}},
		Audit:     AuditConfig{Store: AuditMemory},
		Signature: drafter.DefaultSignature(),
		Log:       logger.Config{Level: "info", Format: logger.FormatConsole},
	}
}

// Validate returns the first invalid setting or nil.
func (c *Config) Validate() error {
	if c == nil {
		return nil
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("minConfidence %v outside [0,1]", c.MinConfidence)
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be > 0")
	}
	if c.Gateway.Timeout < 0 {
		return fmt.Errorf("gateway.timeout must be >= 0")
	}
	switch strings.ToLower(c.Gateway.Policy.Mode) {
	case "", policy.ModeAuto, policy.ModeDeny:
	case policy.ModeAsk:
		return fmt.Errorf("policy mode %q needs an approver; configure it with WithPolicy", c.Gateway.Policy.Mode)
	default:
		return fmt.Errorf("unsupported policy mode %q", c.Gateway.Policy.Mode)
	}
	switch c.Matcher.Kind {
	case MatcherFacts:
	case MatcherScript:
		if strings.TrimSpace(c.Matcher.Script.Command) == "" {
			return fmt.Errorf("matcher.script.command is required for script matcher")
		}
	default:
		return fmt.Errorf("unsupported matcher kind %q", c.Matcher.Kind)
	}
	switch c.Audit.Store {
	case AuditMemory:
	case AuditFs, AuditSqlite:
		if c.Audit.URL == "" {
			return fmt.Errorf("audit.url is required for %v store", c.Audit.Store)
		}
	default:
		return fmt.Errorf("unsupported audit store %q", c.Audit.Store)
	}
	if err := c.Log.Validate(); err != nil {
		return err
	}
	if av := c.Decision.AmountVariance; av.Enabled && av.Threshold < 0 {
		return fmt.Errorf("decision.amountVariance.threshold must be >= 0")
	}
	return nil
}

// LoadConfig reads YAML from URL over the defaults, then applies environment
// overrides. An empty URL yields defaults plus environment.
func LoadConfig(ctx context.Context, URL string) (*Config, error) {
	ret := DefaultConfig()
	if URL != "" {
		data, err := afs.New().DownloadWithURL(ctx, URL)
		if err != nil {
			return nil, fmt.Errorf("failed to load config %v: %w", URL, err)
		}
		if err = yaml.Unmarshal(data, ret); err != nil {
			return nil, fmt.Errorf("failed to decode config %v: %w", URL, err)
		}
	}
	if err := env.Parse(ret); err != nil {
		return nil, fmt.Errorf("failed to apply environment: %w", err)
	}
	if err := ret.Validate(); err != nil {
		return nil, err
	}
	return ret, nil
}

// ParseAudit maps an audit location into an AuditConfig: "memory" (or empty),
// "sqlite://<path>", otherwise any afs URL holding one file per entry.
func ParseAudit(location string) AuditConfig {
	switch {
	case location == "" || location == AuditMemory:
		return AuditConfig{Store: AuditMemory}
	case strings.HasPrefix(location, AuditSqlite+"://"):
		return AuditConfig{Store: AuditSqlite, URL: strings.TrimPrefix(location, AuditSqlite+"://")}
	}
	return AuditConfig{Store: AuditFs, URL: location}
}
