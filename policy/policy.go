// Package policy evaluates allow / block lists for capability invocations.
// A nil *Policy allows everything the registry holds.

package policy

import (
	"context"
	"strings"
)

// Execution modes.
const (
	ModeAsk  = "ask"  // ask before every invocation
	ModeAuto = "auto" // invoke when the lists permit (default)
	ModeDeny = "deny" // block every invocation
)

// AskFunc is invoked when Mode==ask. Returning true permits the invocation.
type AskFunc func(
	ctx context.Context,
	capability string,
	args []interface{},
	p *Policy,
) bool

// Policy represents the invocation settings for a gateway.
//
//   - Mode controls the high-level behaviour (ask / auto / deny).
//   - AllowList, BlockList filter capability names regardless of Mode.
//   - Ask is only used when Mode==ask.
type Policy struct {
	Mode      string
	AllowList []string // empty => every registered capability
	BlockList []string
	Ask       AskFunc
}

// Config represents the declarative, serialisable part of a Policy.
type Config struct {
	Mode      string   `json:"mode,omitempty" yaml:"mode,omitempty" env:"MODE"`
	AllowList []string `json:"allow,omitempty" yaml:"allow,omitempty" env:"ALLOW"`
	BlockList []string `json:"block,omitempty" yaml:"block,omitempty" env:"BLOCK"`
}

// ToConfig converts a runtime Policy into a persistable Config.
func ToConfig(p *Policy) *Config {
	if p == nil {
		return nil
	}
	return &Config{
		Mode:      p.Mode,
		AllowList: append([]string(nil), p.AllowList...),
		BlockList: append([]string(nil), p.BlockList...),
	}
}

// FromConfig converts a stored Config back to a runtime Policy (without
// AskFunc).
func FromConfig(c *Config) *Policy {
	if c == nil {
		return nil
	}
	return &Policy{
		Mode:      c.Mode,
		AllowList: append([]string(nil), c.AllowList...),
		BlockList: append([]string(nil), c.BlockList...),
	}
}

// IsAllowed evaluates AllowList / BlockList by case-insensitive exact match.
func (p *Policy) IsAllowed(capability string) bool {
	if p == nil {
		return true
	}

	normalized := strings.ToLower(capability)

	// BlockList has priority.
	for _, b := range p.BlockList {
		if normalized == strings.ToLower(b) {
			return false
		}
	}

	if len(p.AllowList) == 0 {
		return true
	}

	for _, a := range p.AllowList {
		if normalized == strings.ToLower(a) {
			return true
		}
	}

	return false
}

// Evaluate combines the lists with Mode. The returned reason is empty when
// the invocation is permitted.
func (p *Policy) Evaluate(ctx context.Context, capability string, args []interface{}) (bool, string) {
	if p == nil {
		return true, ""
	}
	if !p.IsAllowed(capability) {
		return false, "blocked by policy"
	}
	switch strings.ToLower(p.Mode) {
	case ModeDeny:
		return false, "policy mode deny"
	case ModeAsk:
		if p.Ask == nil {
			return false, "policy mode ask without approver"
		}
		if !p.Ask(ctx, capability, args, p) {
			return false, "rejected by approver"
		}
	}
	return true, ""
}
