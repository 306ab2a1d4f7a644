package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/internal/util"
	"github.com/hupe1980/supportmesh/llm"
)

// quickFixConfidence is the minimum analysis confidence for the analyst to
// attach a preliminary solution instead of deferring to the expert.
const quickFixConfidence = 0.8

const analystInstruction = `You are an expert problem analyst. Your role is to:

1. Conduct deep analysis of customer issues
2. Identify root causes and contributing factors
3. Assess problem complexity and impact
4. Determine if escalation to a solution expert is needed

Respond with a single JSON object using exactly these fields:
{
  "reply": "clear message for the customer: what you found and what happens next",
  "category": "technical|billing|account|general|complaint|product",
  "severity": "low|medium|high|critical",
  "keywords": ["relevant", "lowercase", "keywords"],
  "confidence": 0.0,
  "summary": "detailed analysis summary",
  "recommended_agent": "problem_analyst|solution_expert"
}

When the issue is low severity and you are confident it has a simple fix,
additionally include a "quick_fix" object:
  "quick_fix": {"solution_type": "...", "steps": ["two", "or three simple steps"], "confidence": 0.0}`

// Analyst is the analysis agent. It investigates the query with local
// heuristics, asks the model for a deep diagnostic and replaces the intake
// analysis with its own. Simple, well-understood issues may receive a
// preliminary quick-fix solution.
type Analyst struct {
	*Base
}

// NewAnalyst creates an Analyst backed by the given completer.
func NewAnalyst(completer llm.Completer, optFns ...func(o *Options)) *Analyst {
	opts := Options{
		Name:        "Problem Analyst",
		Instruction: NewInstructionFromText(analystInstruction),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Analyst{Base: newBase(core.RoleAnalyst, completer, opts)}
}

// Process implements core.Agent. The produced analysis replaces any intake
// analysis; missing fields inherit the intake values where available.
func (a *Analyst) Process(ctx context.Context, state *core.SessionState) (*core.SessionState, error) {
	next := state.Clone()

	inv := investigate(next.LastUserMessage())

	text, err := a.complete(ctx, next, a.analysisPrompt(next, inv))
	if err != nil {
		return nil, err
	}

	fields := structuredFields(text)

	category := "general"
	severity := core.SeverityMedium
	prior := next.Analysis
	if prior != nil {
		if prior.Category != "" {
			category = prior.Category
		}
		if prior.Severity != "" {
			severity = prior.Severity
		}
	}

	analysis := &core.AnalysisResult{
		Category:         fieldString(fields, "category", category),
		Severity:         parseSeverity(fieldString(fields, "severity", ""), severity),
		Keywords:         fieldStrings(fields, "keywords"),
		Sentiment:        "analytical",
		Confidence:       util.ClampUnit(fieldFloat(fields, "confidence", 0.8)),
		Summary:          fieldString(fields, "summary", ""),
		RecommendedAgent: parseRole(fieldString(fields, "recommended_agent", ""), core.RoleExpert),
	}

	if next.Query != nil {
		analysis.QueryID = next.Query.ID
	}

	if len(analysis.Keywords) == 0 && prior != nil {
		analysis.Keywords = append([]string(nil), prior.Keywords...)
	}

	next.Analysis = analysis

	if quick := quickFix(fields, analysis); quick != nil {
		next.Solution = quick
	}

	next.AddMessage(core.NewAgentMessage(a.Role(), replyText(fields, text)))

	return next, nil
}

// ShouldHandoff implements core.Agent.
func (a *Analyst) ShouldHandoff(state *core.SessionState) (bool, core.AgentRole, string) {
	analysis := state.Analysis
	if analysis == nil {
		return true, core.RoleExpert, "analysis missing, expert review required"
	}

	if analysis.Severity.IsElevated() {
		return true, core.RoleExpert, "high severity issue requires expert intervention"
	}

	if analysis.Confidence < handoffConfidence {
		return true, core.RoleExpert, "low confidence requires expert review"
	}

	return false, "", ""
}

func (a *Analyst) analysisPrompt(state *core.SessionState, inv investigation) string {
	var sb strings.Builder

	sb.WriteString("Based on this investigation, provide a comprehensive analysis.\n\n")
	fmt.Fprintf(&sb, "Query: %s\n", state.LastUserMessage())
	fmt.Fprintf(&sb, "Complexity: %s\n", inv.Complexity)
	fmt.Fprintf(&sb, "Potential causes: %s\n", strings.Join(inv.PotentialCauses, ", "))
	fmt.Fprintf(&sb, "Impact: %s\n", inv.Impact)

	if prior := state.Analysis; prior != nil {
		fmt.Fprintf(&sb, "Intake category: %s, severity: %s\n", prior.Category, prior.Severity)
	}

	return sb.String()
}

// quickFix builds a preliminary solution from the analysis payload. Quick
// fixes only apply to low severity issues diagnosed with high confidence.
func quickFix(fields gjson.Result, analysis *core.AnalysisResult) *core.Solution {
	if analysis.Severity != core.SeverityLow || analysis.Confidence <= quickFixConfidence {
		return nil
	}

	quick := fields.Get("quick_fix")
	if !quick.Exists() {
		return nil
	}

	steps := fieldStrings(quick, "steps")
	if len(steps) == 0 {
		return nil
	}

	return &core.Solution{
		QueryID:    analysis.QueryID,
		Type:       fieldString(quick, "solution_type", "quick_fix"),
		Steps:      steps,
		Confidence: util.ClampUnit(fieldFloat(quick, "confidence", 0.7)),
	}
}

// investigation carries the local heuristics fed into the analysis prompt.
type investigation struct {
	Complexity      string
	PotentialCauses []string
	Impact          string
}

func investigate(query string) investigation {
	lower := strings.ToLower(query)

	return investigation{
		Complexity:      assessComplexity(lower),
		PotentialCauses: potentialCauses(lower),
		Impact:          assessImpact(lower),
	}
}

func assessComplexity(queryLower string) string {
	indicators := []struct {
		level string
		terms []string
	}{
		{"high", []string{"integration", "api", "system", "architecture", "multiple", "complex"}},
		{"medium", []string{"account", "billing", "technical", "configuration"}},
		{"low", []string{"how", "what", "where", "simple", "basic"}},
	}

	for _, ind := range indicators {
		for _, term := range ind.terms {
			if strings.Contains(queryLower, term) {
				return ind.level
			}
		}
	}

	return "medium"
}

func potentialCauses(queryLower string) []string {
	switch {
	case strings.Contains(queryLower, "login") || strings.Contains(queryLower, "password"):
		return []string{"Incorrect credentials", "Account locked", "Browser issues", "Network problems"}
	case strings.Contains(queryLower, "billing") || strings.Contains(queryLower, "charge"):
		return []string{"System error", "Duplicate transaction", "Subscription issue", "Payment processing"}
	case strings.Contains(queryLower, "api") || strings.Contains(queryLower, "integration"):
		return []string{"Authentication failure", "Rate limiting", "Endpoint changes", "Configuration errors"}
	default:
		return []string{"Unknown cause - needs investigation"}
	}
}

func assessImpact(queryLower string) string {
	for _, keyword := range []string{"urgent", "critical", "emergency", "production", "down", "broken"} {
		if strings.Contains(queryLower, keyword) {
			return "high"
		}
	}

	return "medium"
}

var _ core.Agent = (*Analyst)(nil)
