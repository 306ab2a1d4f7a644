// Package testutil provides helpers for constructing test fixtures.
package testutil

import (
	"github.com/hupe1980/supportmesh/core"
)

// StateBuilder builds core.SessionState values for tests using a fluent
// interface.
type StateBuilder struct {
	state *core.SessionState
}

// NewStateBuilder creates a builder seeded with the given customer query.
func NewStateBuilder(query string) *StateBuilder {
	return &StateBuilder{
		state: core.NewSessionState(core.NewID(), query),
	}
}

// WithSessionID overrides the generated session ID.
func (b *StateBuilder) WithSessionID(id string) *StateBuilder {
	b.state.SessionID = id
	return b
}

// WithCurrentAgent sets the agent currently handling the session.
func (b *StateBuilder) WithCurrentAgent(role core.AgentRole) *StateBuilder {
	b.state.CurrentAgent = role
	return b
}

// WithAnalysis attaches an analysis result.
func (b *StateBuilder) WithAnalysis(analysis *core.AnalysisResult) *StateBuilder {
	b.state.Analysis = analysis
	return b
}

// WithSolution attaches a solution.
func (b *StateBuilder) WithSolution(solution *core.Solution) *StateBuilder {
	b.state.Solution = solution
	return b
}

// WithAgentMessage appends an agent response to the history.
func (b *StateBuilder) WithAgentMessage(role core.AgentRole, content string) *StateBuilder {
	b.state.AddMessage(core.NewAgentMessage(role, content))
	return b
}

// WithUserMessage appends a customer message to the history.
func (b *StateBuilder) WithUserMessage(content string) *StateBuilder {
	b.state.AddMessage(core.NewUserMessage(content))
	return b
}

// WithMetadata sets a metadata entry.
func (b *StateBuilder) WithMetadata(key string, value any) *StateBuilder {
	b.state.SetMetadata(key, value)
	return b
}

// Build returns the constructed session state.
func (b *StateBuilder) Build() *core.SessionState {
	return b.state
}

// Analysis returns an analysis result populated with common defaults for
// tests. Fields can be adjusted on the returned value.
func Analysis(queryID string) *core.AnalysisResult {
	return &core.AnalysisResult{
		QueryID:          queryID,
		Category:         "technical",
		Severity:         core.SeverityMedium,
		Keywords:         []string{"error", "login"},
		Sentiment:        "neutral",
		Confidence:       0.8,
		Summary:          "Customer cannot log in.",
		RecommendedAgent: core.RoleAnalyst,
	}
}

// Solution returns a solution populated with common defaults for tests.
func Solution(queryID string) *core.Solution {
	return &core.Solution{
		QueryID:       queryID,
		Type:          "troubleshooting",
		Steps:         []string{"Reset the password", "Clear the browser cache"},
		Resources:     []string{"https://support.example.com/login"},
		Confidence:    0.9,
		EstimatedTime: "10 minutes",
	}
}
