// Package router decides which agent handles a session next. Decisions are
// structured data (type, target role, reason) computed from conversation
// keywords and analysis signals by a fixed rule order. Control flow is
// never parsed back out of model-generated prose.
//
// Rule order (first match wins): escalation keywords in the recent window,
// resolution keywords, elevated severity, category routing table, low
// analysis confidence, then continue with the current agent. Every decision
// is appended to a process-local log for inspection.
package router
