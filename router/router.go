package router

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/supportmesh/core"
)

// DecisionType enumerates the routing outcomes.
type DecisionType string

const (
	// DecisionContinue keeps the session with the current agent.
	DecisionContinue DecisionType = "continue"
	// DecisionHandoff moves the session to the target agent.
	DecisionHandoff DecisionType = "handoff"
	// DecisionEscalate moves the session to the escalation target.
	DecisionEscalate DecisionType = "escalate"
	// DecisionEnd terminates the session.
	DecisionEnd DecisionType = "end"
)

// Decision is the structured outcome of one routing evaluation.
type Decision struct {
	Type   DecisionType   `json:"type"`
	Target core.AgentRole `json:"target,omitempty"`
	Reason string         `json:"reason"`
}

// Record captures one evaluated decision in the process-local log.
type Record struct {
	Timestamp time.Time `json:"timestamp"`
	SessionID string    `json:"session_id"`
	Summary   string    `json:"session_summary"`
	Decision  Decision  `json:"decision"`
}

// Options configures the routing rules.
type Options struct {
	// EscalationKeywords trigger escalation when found in the recent
	// conversation window.
	EscalationKeywords []string

	// ResolutionKeywords end the session when found in the recent window.
	ResolutionKeywords []string

	// CategoryRoutes maps an analysis category to its preferred agent.
	CategoryRoutes map[string]core.AgentRole

	// EscalationTarget receives escalations, elevated severities and low
	// confidence sessions.
	EscalationTarget core.AgentRole

	// ConfidenceThreshold is the exclusive lower bound below which a
	// session is handed to the escalation target.
	ConfidenceThreshold float64

	// RecentWindow is the number of newest messages scanned for keywords.
	RecentWindow int
}

// Router evaluates the ordered routing rules against a session state.
// Decide is pure with respect to the session; its only side effect is the
// in-memory decision log. Safe for concurrent use.
type Router struct {
	opts Options

	mu      sync.Mutex
	history []Record
}

// New creates a Router with support-desk defaults.
func New(optFns ...func(o *Options)) *Router {
	opts := Options{
		EscalationKeywords: []string{"urgent", "emergency", "critical", "escalate", "manager", "supervisor"},
		ResolutionKeywords: []string{"resolved", "fixed", "solved", "working now", "thank you", "thanks"},
		CategoryRoutes: map[string]core.AgentRole{
			"technical": core.RoleExpert,
			"billing":   core.RoleAnalyst,
			"account":   core.RoleAnalyst,
			"general":   core.RoleReceptionist,
		},
		EscalationTarget:    core.RoleExpert,
		ConfidenceThreshold: 0.6,
		RecentWindow:        3,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	opts.EscalationKeywords = lowercaseAll(opts.EscalationKeywords)
	opts.ResolutionKeywords = lowercaseAll(opts.ResolutionKeywords)

	return &Router{opts: opts}
}

// Decide evaluates the rules for state (which must be non-nil) with current
// as the active agent, records the outcome and returns it.
func (r *Router) Decide(state *core.SessionState, current core.AgentRole) Decision {
	decision := r.evaluate(state, current)
	r.record(state, current, decision)

	return decision
}

// History returns a copy of the decision log, oldest first.
func (r *Router) History() []Record {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]Record(nil), r.history...)
}

func (r *Router) evaluate(state *core.SessionState, current core.AgentRole) Decision {
	recent := state.RecentMessages(r.opts.RecentWindow)

	if keyword, ok := containsKeyword(recent, r.opts.EscalationKeywords); ok {
		return Decision{
			Type:   DecisionEscalate,
			Target: r.opts.EscalationTarget,
			Reason: fmt.Sprintf("escalation keyword %q detected", keyword),
		}
	}

	if keyword, ok := containsKeyword(recent, r.opts.ResolutionKeywords); ok {
		return Decision{
			Type:   DecisionEnd,
			Reason: fmt.Sprintf("resolution keyword %q detected", keyword),
		}
	}

	if analysis := state.Analysis; analysis != nil {
		if analysis.Severity.IsElevated() {
			return Decision{
				Type:   DecisionHandoff,
				Target: r.opts.EscalationTarget,
				Reason: fmt.Sprintf("%s severity requires %s", analysis.Severity, r.opts.EscalationTarget),
			}
		}

		if target, ok := r.opts.CategoryRoutes[analysis.Category]; ok && target != current {
			return Decision{
				Type:   DecisionHandoff,
				Target: target,
				Reason: fmt.Sprintf("category %q is handled by %s", analysis.Category, target),
			}
		}

		if analysis.Confidence < r.opts.ConfidenceThreshold {
			return Decision{
				Type:   DecisionHandoff,
				Target: r.opts.EscalationTarget,
				Reason: fmt.Sprintf("low confidence %.2f", analysis.Confidence),
			}
		}
	}

	return Decision{
		Type:   DecisionContinue,
		Target: current,
		Reason: "no routing rule matched",
	}
}

func (r *Router) record(state *core.SessionState, current core.AgentRole, decision Decision) {
	record := Record{
		Timestamp: time.Now().UTC(),
		SessionID: state.SessionID,
		Summary:   fmt.Sprintf("agent=%s messages=%d query=%q", current, len(state.History), truncate(state.Query.OriginalMessage, 60)),
		Decision:  decision,
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.history = append(r.history, record)
}

func containsKeyword(messages []core.Message, keywords []string) (string, bool) {
	for _, msg := range messages {
		content := strings.ToLower(msg.Content)
		for _, keyword := range keywords {
			if strings.Contains(content, keyword) {
				return keyword, true
			}
		}
	}

	return "", false
}

func lowercaseAll(keywords []string) []string {
	lowered := make([]string, len(keywords))
	for i, keyword := range keywords {
		lowered[i] = strings.ToLower(keyword)
	}

	return lowered
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}

	return s[:n] + "..."
}
