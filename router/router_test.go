package router

import (
	"fmt"
	"testing"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/internal/testutil"
)

func analyzedState(severity core.Severity, category string, confidence float64) *core.SessionState {
	state := testutil.NewStateBuilder("My app keeps freezing during export").Build()
	state.Analysis = &core.AnalysisResult{
		QueryID:    state.Query.ID,
		Category:   category,
		Severity:   severity,
		Confidence: confidence,
	}

	return state
}

func TestRouter_EscalationKeywordWinsOverEverything(t *testing.T) {
	r := New()

	state := analyzedState(core.SeverityCritical, "billing", 0.1)
	state.AddMessage(core.NewUserMessage("This is urgent, production is down"))

	decision := r.Decide(state, core.RoleReceptionist)

	if decision.Type != DecisionEscalate {
		t.Fatalf("expected escalate, got %s (%s)", decision.Type, decision.Reason)
	}

	if decision.Target != core.RoleExpert {
		t.Errorf("expected expert target, got %s", decision.Target)
	}
}

func TestRouter_EscalationKeywordOutsideWindowIgnored(t *testing.T) {
	r := New()

	state := testutil.NewStateBuilder("I need my manager informed").Build()
	for i := 0; i < 3; i++ {
		state.AddMessage(core.NewAgentMessage(core.RoleReceptionist, fmt.Sprintf("noted %d", i)))
	}

	decision := r.Decide(state, core.RoleReceptionist)

	if decision.Type != DecisionContinue {
		t.Errorf("keyword outside the window should not fire, got %s (%s)", decision.Type, decision.Reason)
	}
}

func TestRouter_ResolutionKeywordEndsSession(t *testing.T) {
	r := New()

	state := analyzedState(core.SeverityHigh, "technical", 0.9)
	state.AddMessage(core.NewUserMessage("That fixed it, thank you!"))

	decision := r.Decide(state, core.RoleExpert)

	if decision.Type != DecisionEnd {
		t.Fatalf("expected end, got %s (%s)", decision.Type, decision.Reason)
	}
}

func TestRouter_RuleOrderingMatrix(t *testing.T) {
	tests := []struct {
		name       string
		severity   core.Severity
		category   string
		confidence float64
		current    core.AgentRole
		wantType   DecisionType
		wantTarget core.AgentRole
	}{
		{
			name:     "high severity wins over category route",
			severity: core.SeverityHigh, category: "billing", confidence: 0.9,
			current:  core.RoleReceptionist,
			wantType: DecisionHandoff, wantTarget: core.RoleExpert,
		},
		{
			name:     "critical severity wins over low confidence",
			severity: core.SeverityCritical, category: "gardening", confidence: 0.1,
			current:  core.RoleAnalyst,
			wantType: DecisionHandoff, wantTarget: core.RoleExpert,
		},
		{
			name:     "category route beats low confidence",
			severity: core.SeverityMedium, category: "billing", confidence: 0.2,
			current:  core.RoleReceptionist,
			wantType: DecisionHandoff, wantTarget: core.RoleAnalyst,
		},
		{
			name:     "technical category routes to expert",
			severity: core.SeverityLow, category: "technical", confidence: 0.9,
			current:  core.RoleReceptionist,
			wantType: DecisionHandoff, wantTarget: core.RoleExpert,
		},
		{
			name:     "low confidence fires when category matches current",
			severity: core.SeverityLow, category: "billing", confidence: 0.5,
			current:  core.RoleAnalyst,
			wantType: DecisionHandoff, wantTarget: core.RoleExpert,
		},
		{
			name:     "unmapped category falls through to confidence",
			severity: core.SeverityLow, category: "gardening", confidence: 0.59,
			current:  core.RoleAnalyst,
			wantType: DecisionHandoff, wantTarget: core.RoleExpert,
		},
		{
			name:     "threshold is exclusive",
			severity: core.SeverityLow, category: "gardening", confidence: 0.6,
			current:  core.RoleAnalyst,
			wantType: DecisionContinue, wantTarget: core.RoleAnalyst,
		},
		{
			name:     "default continue",
			severity: core.SeverityLow, category: "billing", confidence: 0.8,
			current:  core.RoleAnalyst,
			wantType: DecisionContinue, wantTarget: core.RoleAnalyst,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := New()

			decision := r.Decide(analyzedState(tt.severity, tt.category, tt.confidence), tt.current)

			if decision.Type != tt.wantType {
				t.Errorf("expected %s, got %s (%s)", tt.wantType, decision.Type, decision.Reason)
			}

			if decision.Target != tt.wantTarget {
				t.Errorf("expected target %s, got %s", tt.wantTarget, decision.Target)
			}
		})
	}
}

func TestRouter_NoAnalysisContinues(t *testing.T) {
	r := New()

	state := testutil.NewStateBuilder("Where do I change my address?").Build()

	decision := r.Decide(state, core.RoleReceptionist)

	if decision.Type != DecisionContinue || decision.Target != core.RoleReceptionist {
		t.Errorf("expected continue with current agent, got %s -> %s", decision.Type, decision.Target)
	}
}

func TestRouter_CustomOptions(t *testing.T) {
	r := New(func(o *Options) {
		o.EscalationKeywords = []string{"OUTAGE"}
		o.CategoryRoutes = map[string]core.AgentRole{"hardware": core.RoleExpert}
		o.ConfidenceThreshold = 0.3
		o.RecentWindow = 1
	})

	state := analyzedState(core.SeverityLow, "hardware", 0.9)
	state.AddMessage(core.NewAgentMessage(core.RoleReceptionist, "looking into the outage report"))

	// Keyword matching is case-insensitive on both sides.
	decision := r.Decide(state, core.RoleReceptionist)
	if decision.Type != DecisionEscalate {
		t.Fatalf("expected escalate on custom keyword, got %s (%s)", decision.Type, decision.Reason)
	}

	state = analyzedState(core.SeverityLow, "hardware", 0.9)

	decision = r.Decide(state, core.RoleReceptionist)
	if decision.Type != DecisionHandoff || decision.Target != core.RoleExpert {
		t.Errorf("expected custom category route, got %s -> %s", decision.Type, decision.Target)
	}

	state = analyzedState(core.SeverityLow, "unknown", 0.4)

	decision = r.Decide(state, core.RoleAnalyst)
	if decision.Type != DecisionContinue {
		t.Errorf("confidence above custom threshold should continue, got %s", decision.Type)
	}
}

func TestRouter_DecisionLog(t *testing.T) {
	r := New()

	state := analyzedState(core.SeverityLow, "billing", 0.9)

	r.Decide(state, core.RoleReceptionist)
	r.Decide(state, core.RoleAnalyst)

	history := r.History()
	if len(history) != 2 {
		t.Fatalf("expected 2 records, got %d", len(history))
	}

	if history[0].SessionID != state.SessionID {
		t.Errorf("unexpected session id: %s", history[0].SessionID)
	}

	if history[0].Decision.Type != DecisionHandoff || history[1].Decision.Type != DecisionContinue {
		t.Errorf("unexpected decision order: %s, %s", history[0].Decision.Type, history[1].Decision.Type)
	}

	if history[0].Timestamp.IsZero() || history[0].Summary == "" {
		t.Error("records should carry a timestamp and summary")
	}

	// The returned log is a copy.
	history[0].SessionID = "mutated"
	if r.History()[0].SessionID == "mutated" {
		t.Error("expected history copy isolation")
	}
}
