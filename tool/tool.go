// Package tool implements the lookup capabilities agents consult while
// resolving a request: a local knowledge base with weighted relevance
// scoring and a pluggable web search provider.
//
// Tools are side-effect free from the session's point of view. They return
// data; deciding what to do with it stays with the agent. Implementations
// should be safe for concurrent use since multiple sessions may share one
// tool instance.
package tool

import "context"

// SearchResult is a single external reference returned by a web search.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
	Source  string `json:"source"`
}

// WebSearch retrieves external references for a query.
//
// Implementations must honor ctx cancellation and return at most limit
// results. Close releases any underlying connections; calling Search after
// Close is undefined.
type WebSearch interface {
	Search(ctx context.Context, query string, limit int) ([]SearchResult, error)
	Close() error
}
