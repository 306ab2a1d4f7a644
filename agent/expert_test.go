package agent

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/llm"
	"github.com/hupe1980/supportmesh/tool"
)

const solutionJSON = `{
  "reply": "Let's get you back into your account. Follow the steps below and you should be set within minutes.",
  "solution_type": "account_recovery",
  "steps": ["Reset your password from the login page", "Clear your browser cache", "Try again in an incognito window"],
  "resources": ["https://support.example.com/password-reset"],
  "confidence": 0.9,
  "estimated_time": "10 minutes",
  "follow_up_required": "yes"
}`

func TestExpert_ProcessProducesSolution(t *testing.T) {
	mock := llm.NewMockCompleter()
	mock.AddResponse("comprehensive solution", solutionJSON)

	expert := NewExpert(mock)

	state := core.NewSessionState("sess-1", "I cannot login to my account")
	state.Analysis = &core.AnalysisResult{
		Category: "technical",
		Severity: core.SeverityMedium,
		Summary:  "Credential problem suspected.",
		Keywords: []string{"login", "account"},
	}

	next, err := expert.Process(context.Background(), state)
	require.NoError(t, err)

	require.NotNil(t, next.Solution)
	assert.Equal(t, state.Query.ID, next.Solution.QueryID)
	assert.Equal(t, "account_recovery", next.Solution.Type)
	assert.Equal(t, []string{
		"Reset your password from the login page",
		"Clear your browser cache",
		"Try again in an incognito window",
	}, next.Solution.Steps)
	assert.Equal(t, []string{"https://support.example.com/password-reset"}, next.Solution.Resources)
	assert.Equal(t, 0.9, next.Solution.Confidence)
	assert.Equal(t, "10 minutes", next.Solution.EstimatedTime)
	assert.True(t, next.Solution.FollowUpRequired, `"yes" counts as true`)

	assert.Equal(t, "resolved", next.Query.Status)

	require.Len(t, next.History, 2)
	assert.Equal(t, string(core.RoleExpert), next.History[1].Sender)
	assert.Contains(t, next.History[1].Content, "back into your account")
}

func TestExpert_ConsultsKnowledgeBase(t *testing.T) {
	kb, err := tool.NewKnowledgeBase()
	require.NoError(t, err)

	mock := llm.NewMockCompleter()
	mock.AddResponse("comprehensive solution", solutionJSON)

	expert := NewExpert(mock, func(o *ExpertOptions) {
		o.Knowledge = kb
	})

	next, err := expert.Process(context.Background(), core.NewSessionState("sess-2", "I cannot login to my account"))
	require.NoError(t, err)

	require.NotNil(t, next.Solution)
	assert.Contains(t, next.Solution.Resources, "Common Login Issues")

	calls := mock.Calls()
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].Prompt, "Reference material:")
	assert.Contains(t, calls[0].Prompt, "Common Login Issues")
}

func TestExpert_ConsultsWebSearch(t *testing.T) {
	mock := llm.NewMockCompleter()
	mock.AddResponse("comprehensive solution", solutionJSON)

	expert := NewExpert(mock, func(o *ExpertOptions) {
		o.Search = &tool.MockWebSearch{}
	})

	next, err := expert.Process(context.Background(), core.NewSessionState("sess-3", "webhook retries"))
	require.NoError(t, err)

	require.NotNil(t, next.Solution)
	assert.Contains(t, next.Solution.Resources, "Mock Result 1: webhook retries (https://example.com/result1)")
}

func TestExpert_WebSearchFailureIsTolerated(t *testing.T) {
	mock := llm.NewMockCompleter()
	mock.AddResponse("comprehensive solution", solutionJSON)

	expert := NewExpert(mock, func(o *ExpertOptions) {
		o.Search = failingSearch{}
	})

	next, err := expert.Process(context.Background(), core.NewSessionState("sess-4", "webhook retries"))
	require.NoError(t, err)
	require.NotNil(t, next.Solution)
}

func TestExpert_MalformedOutputFallsBackToReply(t *testing.T) {
	mock := llm.NewMockCompleter()
	mock.EnqueueResponse("Please reset your password from the login page and try again.")

	expert := NewExpert(mock)

	next, err := expert.Process(context.Background(), core.NewSessionState("sess-5", "locked out"))
	require.NoError(t, err)

	require.NotNil(t, next.Solution)
	assert.Equal(t, "resolution", next.Solution.Type)
	assert.Equal(t, []string{"Please reset your password from the login page and try again."}, next.Solution.Steps)
	assert.Equal(t, 0.8, next.Solution.Confidence)
	assert.False(t, next.Solution.FollowUpRequired)
	assert.Equal(t, "resolved", next.Query.Status)
}

func TestExpert_NeverHandsOff(t *testing.T) {
	expert := NewExpert(llm.NewMockCompleter())

	state := core.NewSessionState("sess", "query")
	state.Analysis = &core.AnalysisResult{Severity: core.SeverityCritical, Confidence: 0.1}

	handoff, target, reason := expert.ShouldHandoff(state)
	assert.False(t, handoff)
	assert.Empty(t, target)
	assert.Empty(t, reason)
}

type failingSearch struct{}

func (failingSearch) Search(context.Context, string, int) ([]tool.SearchResult, error) {
	return nil, errors.New("network unreachable")
}

func (failingSearch) Close() error { return nil }
