package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/internal/util"
	"github.com/hupe1980/supportmesh/llm"
)

const receptionistInstruction = `You are a professional customer service receptionist. Your role is to:

1. Greet customers warmly and professionally
2. Understand the initial customer query
3. Categorize the problem type
4. Assess urgency
5. Prepare the query for handoff to the appropriate specialist

Respond with a single JSON object using exactly these fields:
{
  "reply": "short, friendly acknowledgement for the customer",
  "category": "technical|billing|account|general|complaint|product",
  "severity": "low|medium|high|critical",
  "keywords": ["up", "to", "five", "lowercase", "keywords"],
  "sentiment": "positive|neutral|negative",
  "confidence": 0.0,
  "summary": "one sentence describing the issue",
  "recommended_agent": "receptionist|problem_analyst|solution_expert"
}`

// Receptionist is the intake agent. It performs the first triage of a
// customer query, producing the initial analysis and the routing
// recommendation for the rest of the pipeline.
type Receptionist struct {
	*Base
}

// NewReceptionist creates a Receptionist backed by the given completer.
func NewReceptionist(completer llm.Completer, optFns ...func(o *Options)) *Receptionist {
	opts := Options{
		Name:        "Receptionist",
		Instruction: NewInstructionFromText(receptionistInstruction),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Receptionist{Base: newBase(core.RoleReceptionist, completer, opts)}
}

// Process implements core.Agent. Missing or malformed triage fields fall
// back to general category, medium severity, neutral sentiment and 0.8
// confidence.
func (r *Receptionist) Process(ctx context.Context, state *core.SessionState) (*core.SessionState, error) {
	next := state.Clone()

	prompt := fmt.Sprintf("Analyze this customer message and triage it:\n\n%q", next.LastUserMessage())

	text, err := r.complete(ctx, next, prompt)
	if err != nil {
		return nil, err
	}

	fields := structuredFields(text)

	analysis := &core.AnalysisResult{
		Category:         fieldString(fields, "category", "general"),
		Severity:         parseSeverity(fieldString(fields, "severity", ""), core.SeverityMedium),
		Keywords:         fieldStrings(fields, "keywords"),
		Sentiment:        fieldString(fields, "sentiment", "neutral"),
		Confidence:       util.ClampUnit(fieldFloat(fields, "confidence", 0.8)),
		Summary:          fieldString(fields, "summary", ""),
		RecommendedAgent: parseRole(fieldString(fields, "recommended_agent", ""), core.RoleAnalyst),
	}

	if next.Query != nil {
		analysis.QueryID = next.Query.ID
		next.Query.Category = analysis.Category
		next.Query.Priority = string(analysis.Severity)
		next.Query.Status = "triaged"
	}

	next.Analysis = analysis
	next.SetMetadata("receptionist_notes", analysis.Summary)
	next.AddMessage(core.NewAgentMessage(r.Role(), replyText(fields, text)))

	return next, nil
}

// ShouldHandoff implements core.Agent. Intake is never terminal: elevated or
// uncertain cases go straight to the expert, everything else follows the
// triage recommendation.
func (r *Receptionist) ShouldHandoff(state *core.SessionState) (bool, core.AgentRole, string) {
	analysis := state.Analysis
	if analysis == nil {
		return true, core.RoleAnalyst, "intake produced no analysis"
	}

	if analysis.Severity.IsElevated() {
		return true, core.RoleExpert, fmt.Sprintf("%s severity requires expert intervention", analysis.Severity)
	}

	if analysis.Confidence < handoffConfidence {
		return true, core.RoleExpert, "low confidence requires expert review"
	}

	target := analysis.RecommendedAgent
	if target == "" || target == r.Role() {
		target = core.RoleAnalyst
	}

	return true, target, fmt.Sprintf("query categorized as %s with %s severity", analysis.Category, analysis.Severity)
}

var _ core.Agent = (*Receptionist)(nil)
