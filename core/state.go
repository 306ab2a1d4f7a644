package core

import (
	"fmt"
	"time"
)

// AgentRole identifies an agent position in the pipeline. The engine accepts
// any ordered role list; the constants below name the canonical support trio.
type AgentRole string

const (
	// RoleReceptionist handles intake: greeting, triage and classification.
	RoleReceptionist AgentRole = "receptionist"
	// RoleAnalyst handles analysis: root cause investigation.
	RoleAnalyst AgentRole = "problem_analyst"
	// RoleExpert handles resolution: solution design and validation.
	RoleExpert AgentRole = "solution_expert"
)

// Severity grades the impact of an analyzed request.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// IsElevated reports whether the severity warrants expert handling.
func (s Severity) IsElevated() bool {
	return s == SeverityHigh || s == SeverityCritical
}

// CustomerQuery captures the incoming request. OriginalMessage is immutable;
// Category and Priority may be filled in later by an agent.
type CustomerQuery struct {
	ID              string    `json:"id"`
	OriginalMessage string    `json:"original_message"`
	Category        string    `json:"category,omitempty"`
	Priority        string    `json:"priority"`
	Status          string    `json:"status"`
	CreatedAt       time.Time `json:"created_at"`
}

// NewCustomerQuery creates a query with default priority and status.
func NewCustomerQuery(message string) *CustomerQuery {
	return &CustomerQuery{
		ID:              NewID(),
		OriginalMessage: message,
		Priority:        "medium",
		Status:          "pending",
		CreatedAt:       time.Now().UTC(),
	}
}

// AnalysisResult holds the semantic judgment of one agent step. A later step
// may replace the whole value but must never mutate fields in place.
type AnalysisResult struct {
	QueryID          string    `json:"query_id"`
	Category         string    `json:"category"`
	Severity         Severity  `json:"severity"`
	Keywords         []string  `json:"keywords,omitempty"`
	Sentiment        string    `json:"sentiment"`
	Confidence       float64   `json:"confidence"`
	Summary          string    `json:"summary,omitempty"`
	RecommendedAgent AgentRole `json:"recommended_agent,omitempty"`
}

// Solution describes a resolution produced by an agent. Absence on the final
// state means no resolution was reached.
type Solution struct {
	QueryID          string   `json:"query_id"`
	Type             string   `json:"type"`
	Steps            []string `json:"steps"`
	Resources        []string `json:"resources,omitempty"`
	Confidence       float64  `json:"confidence"`
	EstimatedTime    string   `json:"estimated_time,omitempty"`
	FollowUpRequired bool     `json:"follow_up_required"`
}

// SessionState is the conversation value threaded through the pipeline. It is
// owned by the workflow engine during a run; each agent receives it, produces
// a new version via Clone and returns it. Agents must not retain references
// across steps.
//
// Invariants:
//   - History is append-only and never reordered.
//   - CurrentAgent names the role that most recently processed the state, or
//     is empty before the first step.
type SessionState struct {
	SessionID     string          `json:"session_id"`
	Query         *CustomerQuery  `json:"query,omitempty"`
	Analysis      *AnalysisResult `json:"analysis,omitempty"`
	Solution      *Solution       `json:"solution,omitempty"`
	History       []Message       `json:"history"`
	CurrentAgent  AgentRole       `json:"current_agent,omitempty"`
	HandoffReason string          `json:"handoff_reason,omitempty"`
	Metadata      map[string]any  `json:"metadata"`
}

// NewSessionState creates the initial state for a workflow run: the customer
// query plus the user's message as the first history entry.
func NewSessionState(sessionID, query string) *SessionState {
	return &SessionState{
		SessionID: sessionID,
		Query:     NewCustomerQuery(query),
		History:   []Message{NewUserMessage(query)},
		Metadata:  map[string]any{},
	}
}

// AddMessage appends a message to the history. Appends are the only mutation
// the history supports.
func (s *SessionState) AddMessage(msg Message) {
	s.History = append(s.History, msg)
}

// RecentMessages returns the last n history entries (fewer if the history is
// shorter). The returned slice is a copy.
func (s *SessionState) RecentMessages(n int) []Message {
	if n <= 0 || len(s.History) == 0 {
		return nil
	}
	start := len(s.History) - n
	if start < 0 {
		start = 0
	}
	out := make([]Message, len(s.History)-start)
	copy(out, s.History[start:])
	return out
}

// LastUserMessage returns the most recent user query content, or the original
// query message when the history holds none.
func (s *SessionState) LastUserMessage() string {
	for i := len(s.History) - 1; i >= 0; i-- {
		if s.History[i].Type == MessageTypeUserQuery {
			return s.History[i].Content
		}
	}
	if s.Query != nil {
		return s.Query.OriginalMessage
	}
	return ""
}

// SetMetadata stores a metadata value, allocating the map if needed.
func (s *SessionState) SetMetadata(key string, value any) {
	if s.Metadata == nil {
		s.Metadata = map[string]any{}
	}
	s.Metadata[key] = value
}

// SetError records a failure on the state. Per the error handling contract the
// presence of this metadata entry is the sole failure signal a caller sees.
func (s *SessionState) SetError(err error) {
	s.SetMetadata("error", fmt.Sprintf("%v", err))
}

// Err returns the recorded failure text, if any.
func (s *SessionState) Err() (string, bool) {
	if s.Metadata == nil {
		return "", false
	}
	v, ok := s.Metadata["error"]
	if !ok {
		return "", false
	}
	return fmt.Sprintf("%v", v), true
}

// Clone returns a deep copy of the state. History, metadata and the nested
// result values are copied so the caller can mutate the clone freely.
func (s *SessionState) Clone() *SessionState {
	clone := &SessionState{
		SessionID:     s.SessionID,
		CurrentAgent:  s.CurrentAgent,
		HandoffReason: s.HandoffReason,
		History:       make([]Message, len(s.History)),
		Metadata:      make(map[string]any, len(s.Metadata)),
	}

	copy(clone.History, s.History)

	for k, v := range s.Metadata {
		clone.Metadata[k] = v
	}

	if s.Query != nil {
		q := *s.Query
		clone.Query = &q
	}

	if s.Analysis != nil {
		a := *s.Analysis
		a.Keywords = append([]string(nil), s.Analysis.Keywords...)
		clone.Analysis = &a
	}

	if s.Solution != nil {
		sol := *s.Solution
		sol.Steps = append([]string(nil), s.Solution.Steps...)
		sol.Resources = append([]string(nil), s.Solution.Resources...)
		clone.Solution = &sol
	}

	return clone
}
