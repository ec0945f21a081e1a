package matcher

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/viant/gosh"
	"github.com/viant/gosh/runner"
	"github.com/viant/gosh/runner/local"
	"github.com/viant/reconciler/service/gateway"
)

// Command placeholders substituted with shell quoted input values.
const (
	PlaceholderInvoiceID = "{invoice_id}"
	PlaceholderPONumber  = "{po_number}"
	PlaceholderData      = "{data_location}"
	PlaceholderModel     = "{model_location}"
)

// ScriptConfig configures ScriptMatcher.
type ScriptConfig struct {
	Command string            `json:"command,omitempty" yaml:"command,omitempty"`
	Env     map[string]string `json:"env,omitempty" yaml:"env,omitempty"`
	Timeout time.Duration     `json:"timeout,omitempty" yaml:"timeout,omitempty"`
	// Raw returns the decoded document as is instead of classifying a scorer
	// output ({found, confidence, facts}).
	Raw bool `json:"raw,omitempty" yaml:"raw,omitempty"`
}

// scorerOutput is what a classifying scorer prints.
type scorerOutput struct {
	Found      bool                   `json:"found"`
	Confidence float64                `json:"confidence"`
	Facts      map[string]interface{} `json:"facts"`
	Message    string                 `json:"message,omitempty"`
}

// ScriptMatcher runs an external scorer in a local shell session. Commands
// are serialised over one session.
type ScriptMatcher struct {
	config  ScriptConfig
	logger  zerolog.Logger
	mux     sync.Mutex
	service *gosh.Service
}

// NewScriptMatcher creates a matcher; the shell session starts lazily.
func NewScriptMatcher(config ScriptConfig, logger zerolog.Logger) (*ScriptMatcher, error) {
	if strings.TrimSpace(config.Command) == "" {
		return nil, fmt.Errorf("scorer command was empty")
	}
	if config.Timeout <= 0 {
		config.Timeout = 30 * time.Second
	}
	return &ScriptMatcher{config: config, logger: logger}, nil
}

// Match implements gateway.MatcherFunc.
func (m *ScriptMatcher) Match(ctx context.Context, input *gateway.MatchInput) (interface{}, error) {
	command := m.command(input)
	m.mux.Lock()
	defer m.mux.Unlock()
	if err := m.ensureSession(ctx); err != nil {
		return nil, err
	}
	stdout, status, err := m.service.Run(ctx, command, runner.WithTimeout(int(m.config.Timeout.Milliseconds())))
	if err != nil {
		return nil, fmt.Errorf("scorer %q failed: %w", command, err)
	}
	if status != 0 {
		return nil, fmt.Errorf("scorer %q exited with %d: %s", command, status, strings.TrimSpace(stdout))
	}
	document, err := extractJSON(stdout)
	if err != nil {
		return nil, err
	}
	m.logger.Debug().Str("invoice_id", input.InvoiceID).Int("bytes", len(document)).Msg("scorer output")
	if m.config.Raw {
		var raw map[string]interface{}
		if err = json.Unmarshal(document, &raw); err != nil {
			return nil, fmt.Errorf("failed to decode scorer output: %w", err)
		}
		return raw, nil
	}
	output := &scorerOutput{}
	if err = json.Unmarshal(document, output); err != nil {
		return nil, fmt.Errorf("failed to decode scorer output: %w", err)
	}
	if !output.Found {
		return NotFound(), nil
	}
	if output.Facts == nil {
		output.Facts = map[string]interface{}{}
	}
	return Classify(output.Confidence, output.Facts)
}

// Close terminates the shell session.
func (m *ScriptMatcher) Close() error {
	m.mux.Lock()
	defer m.mux.Unlock()
	if m.service == nil {
		return nil
	}
	err := m.service.Close()
	m.service = nil
	return err
}

func (m *ScriptMatcher) ensureSession(ctx context.Context) error {
	if m.service != nil {
		return nil
	}
	var options []runner.Option
	if len(m.config.Env) > 0 {
		options = append(options, runner.WithEnvironment(m.config.Env))
	}
	service, err := gosh.New(ctx, local.New(options...))
	if err != nil {
		return fmt.Errorf("failed to start scorer shell: %w", err)
	}
	m.service = service
	return nil
}

func (m *ScriptMatcher) command(input *gateway.MatchInput) string {
	return strings.NewReplacer(
		PlaceholderInvoiceID, shellQuote(input.InvoiceID),
		PlaceholderPONumber, shellQuote(input.PONumber),
		PlaceholderData, shellQuote(input.DataLocation),
		PlaceholderModel, shellQuote(input.ModelLocation),
	).Replace(m.config.Command)
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", `'\''`) + "'"
}

// extractJSON returns the outermost JSON object printed to stdout; shells may
// surround it with banner lines.
func extractJSON(stdout string) ([]byte, error) {
	start := strings.Index(stdout, "{")
	end := strings.LastIndex(stdout, "}")
	if start == -1 || end < start {
		return nil, fmt.Errorf("scorer printed no JSON document: %q", strings.TrimSpace(stdout))
	}
	return []byte(stdout[start : end+1]), nil
}
