package agent

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/llm"
)

const deepAnalysis = `{
  "reply": "I traced this to a duplicate transaction and our billing expert will sort out the refund.",
  "category": "billing",
  "severity": "medium",
  "keywords": ["duplicate", "transaction", "refund"],
  "confidence": 0.88,
  "summary": "Duplicate transaction confirmed against the payment log.",
  "recommended_agent": "solution_expert"
}`

const quickFixAnalysis = `{
  "reply": "Good news, this looks like a stale cache. Try the steps below.",
  "category": "technical",
  "severity": "low",
  "keywords": ["cache", "dashboard"],
  "confidence": 0.9,
  "summary": "Stale browser cache causing the dashboard display issue.",
  "recommended_agent": "problem_analyst",
  "quick_fix": {"solution_type": "cache_reset", "steps": ["Clear the browser cache", "Reload the dashboard"], "confidence": 0.85}
}`

func TestAnalyst_ProcessReplacesAnalysis(t *testing.T) {
	mock := llm.NewMockCompleter()
	mock.AddResponse("comprehensive analysis", deepAnalysis)

	analyst := NewAnalyst(mock)

	state := core.NewSessionState("sess-1", "I was charged twice for my subscription")
	state.Analysis = &core.AnalysisResult{Category: "general", Severity: core.SeverityMedium, Confidence: 0.6}

	next, err := analyst.Process(context.Background(), state)
	require.NoError(t, err)

	require.NotNil(t, next.Analysis)
	assert.Equal(t, state.Query.ID, next.Analysis.QueryID)
	assert.Equal(t, "billing", next.Analysis.Category)
	assert.Equal(t, core.SeverityMedium, next.Analysis.Severity)
	assert.Equal(t, []string{"duplicate", "transaction", "refund"}, next.Analysis.Keywords)
	assert.Equal(t, "analytical", next.Analysis.Sentiment)
	assert.Equal(t, 0.88, next.Analysis.Confidence)
	assert.Equal(t, core.RoleExpert, next.Analysis.RecommendedAgent)

	// Medium severity never gets a preliminary solution.
	assert.Nil(t, next.Solution)

	require.Len(t, next.History, 2)
	assert.Equal(t, string(core.RoleAnalyst), next.History[1].Sender)
	assert.Contains(t, next.History[1].Content, "duplicate transaction")
}

func TestAnalyst_PromptCarriesInvestigation(t *testing.T) {
	mock := llm.NewMockCompleter()
	mock.AddResponse("comprehensive analysis", deepAnalysis)

	analyst := NewAnalyst(mock)

	state := core.NewSessionState("sess-1", "I was charged twice for my subscription")
	state.Analysis = &core.AnalysisResult{Category: "billing", Severity: core.SeverityMedium}

	_, err := analyst.Process(context.Background(), state)
	require.NoError(t, err)

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "Complexity: medium")
	assert.Contains(t, calls[0].Prompt, "Duplicate transaction")
	assert.Contains(t, calls[0].Prompt, "Intake category: billing")
}

func TestAnalyst_QuickFixForSimpleIssues(t *testing.T) {
	mock := llm.NewMockCompleter()
	mock.AddResponse("comprehensive analysis", quickFixAnalysis)

	analyst := NewAnalyst(mock)

	next, err := analyst.Process(context.Background(), core.NewSessionState("sess-2", "my dashboard shows old numbers"))
	require.NoError(t, err)

	require.NotNil(t, next.Solution)
	assert.Equal(t, next.Query.ID, next.Solution.QueryID)
	assert.Equal(t, "cache_reset", next.Solution.Type)
	assert.Equal(t, []string{"Clear the browser cache", "Reload the dashboard"}, next.Solution.Steps)
	assert.Equal(t, 0.85, next.Solution.Confidence)
}

func TestAnalyst_QuickFixRequiresConfidence(t *testing.T) {
	hesitant := `{
  "reply": "This might be a cache issue but I want an expert to confirm.",
  "severity": "low",
  "confidence": 0.7,
  "quick_fix": {"solution_type": "cache_reset", "steps": ["Clear the browser cache"]}
}`

	mock := llm.NewMockCompleter()
	mock.EnqueueResponse(hesitant)

	analyst := NewAnalyst(mock)

	next, err := analyst.Process(context.Background(), core.NewSessionState("sess-3", "my dashboard shows old numbers"))
	require.NoError(t, err)

	assert.Nil(t, next.Solution)
}

func TestAnalyst_InheritsIntakeOnMalformedOutput(t *testing.T) {
	mock := llm.NewMockCompleter()
	mock.EnqueueResponse("I'm still digging into this one.")

	analyst := NewAnalyst(mock)

	state := core.NewSessionState("sess-4", "the api keeps failing")
	state.Analysis = &core.AnalysisResult{
		Category: "technical",
		Severity: core.SeverityHigh,
		Keywords: []string{"api", "failure"},
	}

	next, err := analyst.Process(context.Background(), state)
	require.NoError(t, err)

	require.NotNil(t, next.Analysis)
	assert.Equal(t, "technical", next.Analysis.Category)
	assert.Equal(t, core.SeverityHigh, next.Analysis.Severity)
	assert.Equal(t, []string{"api", "failure"}, next.Analysis.Keywords)
	assert.Equal(t, "analytical", next.Analysis.Sentiment)
	assert.Equal(t, 0.8, next.Analysis.Confidence)
	assert.Equal(t, core.RoleExpert, next.Analysis.RecommendedAgent)
}

func TestAnalyst_ShouldHandoff(t *testing.T) {
	analyst := NewAnalyst(llm.NewMockCompleter())

	tests := []struct {
		name        string
		analysis    *core.AnalysisResult
		wantHandoff bool
	}{
		{
			name:        "no analysis escalates",
			analysis:    nil,
			wantHandoff: true,
		},
		{
			name:        "elevated severity escalates",
			analysis:    &core.AnalysisResult{Severity: core.SeverityCritical, Confidence: 0.95},
			wantHandoff: true,
		},
		{
			name:        "low confidence escalates",
			analysis:    &core.AnalysisResult{Severity: core.SeverityMedium, Confidence: 0.5},
			wantHandoff: true,
		},
		{
			name:        "confident medium analysis stays",
			analysis:    &core.AnalysisResult{Severity: core.SeverityMedium, Confidence: 0.9},
			wantHandoff: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := core.NewSessionState("sess", "query")
			state.Analysis = tt.analysis

			handoff, target, _ := analyst.ShouldHandoff(state)
			assert.Equal(t, tt.wantHandoff, handoff)

			if tt.wantHandoff {
				assert.Equal(t, core.RoleExpert, target)
			}
		})
	}
}

func TestInvestigate(t *testing.T) {
	tests := []struct {
		query          string
		wantComplexity string
		wantCause      string
		wantImpact     string
	}{
		{
			query:          "I cannot login to my account",
			wantComplexity: "medium",
			wantCause:      "Incorrect credentials",
			wantImpact:     "medium",
		},
		{
			query:          "The API integration is broken in production",
			wantComplexity: "high",
			wantCause:      "Authentication failure",
			wantImpact:     "high",
		},
		{
			query:          "I was charged twice",
			wantComplexity: "medium",
			wantCause:      "Duplicate transaction",
			wantImpact:     "medium",
		},
		{
			query:          "hello there",
			wantComplexity: "medium",
			wantCause:      "Unknown cause - needs investigation",
			wantImpact:     "medium",
		},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			inv := investigate(tt.query)
			assert.Equal(t, tt.wantComplexity, inv.Complexity)
			assert.Contains(t, inv.PotentialCauses, tt.wantCause)
			assert.Equal(t, tt.wantImpact, inv.Impact)
		})
	}
}
