package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/supportmesh/core"
	"github.com/hupe1980/supportmesh/internal/util"
	"github.com/hupe1980/supportmesh/llm"
	"github.com/hupe1980/supportmesh/tool"
)

const expertInstruction = `You are an expert solution provider. Your role is to:

1. Analyze complex customer issues in depth
2. Develop comprehensive, actionable solutions
3. Provide step-by-step resolution plans
4. Be clear about timeframes and follow-up needs

Respond with a single JSON object using exactly these fields:
{
  "reply": "professional solution message for the customer",
  "solution_type": "clear solution category",
  "steps": ["detailed", "step-by-step", "instructions"],
  "resources": ["helpful resources, links or tools"],
  "confidence": 0.0,
  "estimated_time": "timeframe for resolution",
  "follow_up_required": false
}`

// ExpertOptions configures an Expert beyond the shared agent options.
type ExpertOptions struct {
	Options

	// Knowledge is consulted for matching support articles before the model
	// call. Nil skips the lookup.
	Knowledge *tool.KnowledgeBase

	// Search retrieves external references for the resolution context. Nil
	// skips the lookup; lookup failures are logged and ignored.
	Search tool.WebSearch
}

// Expert is the resolution agent. It turns the accumulated analysis into a
// concrete solution, optionally enriched by knowledge base articles and web
// search results. It is the terminal stage and never hands off.
type Expert struct {
	*Base
	knowledge *tool.KnowledgeBase
	search    tool.WebSearch
}

// NewExpert creates an Expert backed by the given completer.
func NewExpert(completer llm.Completer, optFns ...func(o *ExpertOptions)) *Expert {
	opts := ExpertOptions{
		Options: Options{
			Name:        "Solution Expert",
			Instruction: NewInstructionFromText(expertInstruction),
		},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &Expert{
		Base:      newBase(core.RoleExpert, completer, opts.Options),
		knowledge: opts.Knowledge,
		search:    opts.Search,
	}
}

// Process implements core.Agent. A solution is always produced; when the
// model's steps are missing the reply itself becomes the single step.
// Consulted references are appended to the solution resources.
func (e *Expert) Process(ctx context.Context, state *core.SessionState) (*core.SessionState, error) {
	next := state.Clone()

	query := next.LastUserMessage()
	references := e.gatherReferences(ctx, query)

	text, err := e.complete(ctx, next, e.solutionPrompt(next, references))
	if err != nil {
		return nil, err
	}

	fields := structuredFields(text)
	reply := replyText(fields, text)

	steps := fieldStrings(fields, "steps")
	if len(steps) == 0 {
		steps = []string{reply}
	}

	resources := fieldStrings(fields, "resources")
	for _, ref := range references {
		resources = appendUnique(resources, ref.resource())
	}

	solution := &core.Solution{
		Type:             fieldString(fields, "solution_type", "resolution"),
		Steps:            steps,
		Resources:        resources,
		Confidence:       util.ClampUnit(fieldFloat(fields, "confidence", 0.8)),
		EstimatedTime:    fieldString(fields, "estimated_time", ""),
		FollowUpRequired: fieldBool(fields, "follow_up_required", false),
	}

	if next.Query != nil {
		solution.QueryID = next.Query.ID
		next.Query.Status = "resolved"
	}

	next.Solution = solution
	next.AddMessage(core.NewAgentMessage(e.Role(), reply))

	return next, nil
}

// ShouldHandoff implements core.Agent. The expert is the terminal stage.
func (e *Expert) ShouldHandoff(*core.SessionState) (bool, core.AgentRole, string) {
	return false, "", ""
}

// reference is one consulted source included in the solution context.
type reference struct {
	title   string
	detail  string
	locator string
}

func (r reference) resource() string {
	if r.locator != "" {
		return fmt.Sprintf("%s (%s)", r.title, r.locator)
	}

	return r.title
}

// gatherReferences consults the optional knowledge base and web search.
// Lookups are best-effort; failures never block resolution.
func (e *Expert) gatherReferences(ctx context.Context, query string) []reference {
	var refs []reference

	if e.knowledge != nil {
		for _, article := range e.knowledge.Search(query, tool.ArticleFilter{Limit: 2}) {
			refs = append(refs, reference{title: article.Title, detail: article.Content})
		}
	}

	if e.search != nil {
		results, err := e.search.Search(ctx, query, 2)
		if err != nil {
			e.logger.Warn("web search failed", "agent", string(e.role), "error", err)
		}

		for _, result := range results {
			refs = append(refs, reference{title: result.Title, detail: result.Snippet, locator: result.URL})
		}
	}

	return refs
}

func (e *Expert) solutionPrompt(state *core.SessionState, refs []reference) string {
	var sb strings.Builder

	sb.WriteString("Develop a comprehensive solution for this customer issue.\n\n")
	fmt.Fprintf(&sb, "Original query: %s\n", state.LastUserMessage())

	if analysis := state.Analysis; analysis != nil {
		fmt.Fprintf(&sb, "Analysis summary: %s\n", analysis.Summary)
		fmt.Fprintf(&sb, "Severity: %s\n", analysis.Severity)
		fmt.Fprintf(&sb, "Category: %s\n", analysis.Category)
		if len(analysis.Keywords) > 0 {
			fmt.Fprintf(&sb, "Keywords: %s\n", strings.Join(analysis.Keywords, ", "))
		}
	}

	if len(refs) > 0 {
		sb.WriteString("\nReference material:\n")
		for _, ref := range refs {
			fmt.Fprintf(&sb, "- %s: %s\n", ref.title, ref.detail)
		}
	}

	return sb.String()
}

func appendUnique(items []string, item string) []string {
	for _, existing := range items {
		if existing == item {
			return items
		}
	}

	return append(items, item)
}

var _ core.Agent = (*Expert)(nil)
