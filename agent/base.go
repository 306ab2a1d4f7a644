package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/internal/util"
	"github.com/hupe1980/supportmesh/llm"
	"github.com/hupe1980/supportmesh/logging"
)

// handoffConfidence is the analysis confidence below which the intake and
// analysis agents route to the expert.
const handoffConfidence = 0.7

// Options configures the behavior shared by all pipeline agents.
//
// Use functional options with the agent constructors to override defaults.
type Options struct {
	// Name overrides the default human-readable agent name.
	Name string

	// Instruction overrides the role's built-in system instruction. Static
	// text may carry template placeholders resolved against the session.
	Instruction Instruction

	// Temperature passed on each model call. Zero keeps the completer default.
	Temperature float64

	// MaxTokens caps completions. Zero keeps the completer default.
	MaxTokens int

	// Logger receives diagnostic output.
	Logger logging.Logger
}

// Base carries the identity and model plumbing shared by the pipeline
// agents. Concrete agents embed it and add their Process and ShouldHandoff
// logic.
type Base struct {
	role        core.AgentRole
	name        string
	completer   llm.Completer
	instruction Instruction
	temperature float64
	maxTokens   int
	logger      logging.Logger
}

func newBase(role core.AgentRole, completer llm.Completer, opts Options) *Base {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	return &Base{
		role:        role,
		name:        opts.Name,
		completer:   completer,
		instruction: opts.Instruction,
		temperature: opts.Temperature,
		maxTokens:   opts.MaxTokens,
		logger:      logger,
	}
}

// Role implements core.Agent.
func (b *Base) Role() core.AgentRole { return b.role }

// Name implements core.Agent.
func (b *Base) Name() string { return b.name }

// systemPrompt resolves the instruction for this invocation. Static text may
// reference the session through template placeholders: {{.query}},
// {{.category}}, {{.severity}} and {{.session_id}}.
func (b *Base) systemPrompt(state *core.SessionState) (string, error) {
	text, err := b.instruction.Resolve(state)
	if err != nil {
		return "", fmt.Errorf("failed to resolve instruction: %w", err)
	}

	if !strings.Contains(text, "{{") {
		return text, nil
	}

	return util.RenderTemplate(text, templateContext(state))
}

func templateContext(state *core.SessionState) map[string]any {
	fields := map[string]any{
		"session_id": state.SessionID,
		"query":      state.LastUserMessage(),
		"category":   "",
		"severity":   "",
	}

	if state.Analysis != nil {
		fields["category"] = state.Analysis.Category
		fields["severity"] = string(state.Analysis.Severity)
	}

	return fields
}

// complete invokes the model with the resolved instruction and the given
// prompt, returning the completion text.
func (b *Base) complete(ctx context.Context, state *core.SessionState, prompt string) (string, error) {
	system, err := b.systemPrompt(state)
	if err != nil {
		return "", err
	}

	req := llm.Request{
		System:      system,
		Prompt:      prompt,
		Temperature: b.temperature,
		MaxTokens:   b.maxTokens,
	}

	start := time.Now()

	resp, err := b.completer.Complete(ctx, req)
	if err != nil {
		b.logger.Error("model call failed", "agent", string(b.role), "error", err)
		return "", fmt.Errorf("%s model call failed: %w", b.role, err)
	}

	args := []any{"agent", string(b.role), "model", resp.Model, "duration", time.Since(start)}
	if resp.Usage != nil {
		args = append(args, "total_tokens", resp.Usage.TotalTokens)
	}
	b.logger.Debug("model call completed", args...)

	return resp.Text, nil
}

// structuredFields extracts the control JSON object an agent asked the model
// to produce. A missing or invalid object yields a zero Result; lookups on
// it return defaults, so callers degrade without branching.
func structuredFields(reply string) gjson.Result {
	obj, ok := util.ExtractJSONObject(reply)
	if !ok {
		return gjson.Result{}
	}

	return gjson.Parse(obj)
}

// replyText returns the model's human-readable reply: the "reply" field when
// the structured object carries one, otherwise the whole completion.
func replyText(fields gjson.Result, raw string) string {
	return fieldString(fields, "reply", strings.TrimSpace(raw))
}

// fieldString returns the named field as a string, or def when absent or
// blank.
func fieldString(fields gjson.Result, key, def string) string {
	value := strings.TrimSpace(fields.Get(key).String())
	if value == "" {
		return def
	}

	return value
}

// fieldFloat returns the named numeric field, tolerating numbers delivered
// as prose ("**0.85**"), or def when nothing parses.
func fieldFloat(fields gjson.Result, key string, def float64) float64 {
	value := fields.Get(key)

	switch value.Type {
	case gjson.Number:
		return value.Float()
	case gjson.String:
		return util.ParseFloat(value.Str, def)
	default:
		return def
	}
}

// fieldStrings returns the named array field as strings. A scalar value
// becomes a single-element slice.
func fieldStrings(fields gjson.Result, key string) []string {
	value := fields.Get(key)
	if !value.Exists() {
		return nil
	}

	if value.IsArray() {
		var out []string
		for _, item := range value.Array() {
			if s := strings.TrimSpace(item.String()); s != "" {
				out = append(out, s)
			}
		}

		return out
	}

	if s := strings.TrimSpace(value.String()); s != "" {
		return []string{s}
	}

	return nil
}

// fieldBool returns the named boolean field. String values containing "yes"
// or "true" count as true.
func fieldBool(fields gjson.Result, key string, def bool) bool {
	value := fields.Get(key)

	switch value.Type {
	case gjson.True:
		return true
	case gjson.False:
		return false
	case gjson.String:
		lower := strings.ToLower(value.Str)
		return strings.Contains(lower, "yes") || strings.Contains(lower, "true")
	default:
		return def
	}
}

// parseSeverity normalizes a model-reported severity, falling back to def.
func parseSeverity(s string, def core.Severity) core.Severity {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low":
		return core.SeverityLow
	case "medium", "moderate":
		return core.SeverityMedium
	case "high":
		return core.SeverityHigh
	case "critical", "urgent":
		return core.SeverityCritical
	default:
		return def
	}
}

// parseRole normalizes a model-reported agent role, falling back to def.
func parseRole(s string, def core.AgentRole) core.AgentRole {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case string(core.RoleReceptionist):
		return core.RoleReceptionist
	case string(core.RoleAnalyst), "analyst":
		return core.RoleAnalyst
	case string(core.RoleExpert), "expert":
		return core.RoleExpert
	default:
		return def
	}
}
