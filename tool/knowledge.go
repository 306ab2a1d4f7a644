package tool

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

var seedTime = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

// Article is one knowledge base entry.
type Article struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Category  string    `json:"category"`
	Content   string    `json:"content"`
	Keywords  []string  `json:"keywords,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ScoredArticle pairs an article with its relevance to a query.
type ScoredArticle struct {
	Article
	Relevance int `json:"relevance_score"`
}

// ArticleFilter narrows a knowledge base search.
type ArticleFilter struct {
	// Category restricts matches to one category when non-empty.
	Category string
	// Limit caps the number of results. Zero means DefaultSearchLimit.
	Limit int
}

// DefaultSearchLimit bounds Search results when the filter leaves Limit unset.
const DefaultSearchLimit = 5

// KnowledgeBaseOptions configures a KnowledgeBase.
type KnowledgeBaseOptions struct {
	// Articles seeds the store. Defaults to the built-in support articles.
	Articles []Article

	// Path persists the store as a JSON file when non-empty. An existing
	// file takes precedence over the seed articles.
	Path string
}

// KnowledgeBase is an article store with weighted relevance search. Title
// matches score highest, then content matches, then keyword overlap.
type KnowledgeBase struct {
	mu       sync.RWMutex
	path     string
	articles []Article
}

// NewKnowledgeBase creates a knowledge base, loading articles from the
// configured path when a file already exists there.
func NewKnowledgeBase(optFns ...func(o *KnowledgeBaseOptions)) (*KnowledgeBase, error) {
	opts := KnowledgeBaseOptions{
		Articles: defaultArticles(),
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	kb := &KnowledgeBase{
		path:     opts.Path,
		articles: append([]Article(nil), opts.Articles...),
	}

	if kb.path != "" {
		loaded, err := loadArticles(kb.path)
		switch {
		case err != nil:
			return nil, err
		case loaded != nil:
			kb.articles = loaded
		default:
			if err := kb.persistLocked(); err != nil {
				return nil, err
			}
		}
	}

	return kb, nil
}

// Search returns articles relevant to query, highest score first. Articles
// with no overlap are omitted.
func (kb *KnowledgeBase) Search(query string, filter ArticleFilter) []ScoredArticle {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = DefaultSearchLimit
	}

	queryLower := strings.ToLower(strings.TrimSpace(query))
	if queryLower == "" {
		return nil
	}

	var scored []ScoredArticle

	for _, article := range kb.articles {
		if filter.Category != "" && article.Category != filter.Category {
			continue
		}

		score := relevance(article, queryLower)
		if score == 0 {
			continue
		}

		scored = append(scored, ScoredArticle{Article: article, Relevance: score})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Relevance > scored[j].Relevance
	})

	if len(scored) > limit {
		scored = scored[:limit]
	}

	return scored
}

// Get returns the article with the given ID.
func (kb *KnowledgeBase) Get(id string) (Article, bool) {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	for _, article := range kb.articles {
		if article.ID == id {
			return article, true
		}
	}

	return Article{}, false
}

// Add appends an article to the store, assigning a sequential ID when the
// article carries none, and persists the store if a path is configured.
func (kb *KnowledgeBase) Add(article Article) (string, error) {
	kb.mu.Lock()
	defer kb.mu.Unlock()

	if article.ID == "" {
		article.ID = fmt.Sprintf("kb_%03d", len(kb.articles)+1)
	}

	if article.CreatedAt.IsZero() {
		article.CreatedAt = time.Now().UTC()
	}

	kb.articles = append(kb.articles, article)

	if err := kb.persistLocked(); err != nil {
		return "", err
	}

	return article.ID, nil
}

// Categories returns the distinct article categories, sorted.
func (kb *KnowledgeBase) Categories() []string {
	kb.mu.RLock()
	defer kb.mu.RUnlock()

	seen := make(map[string]struct{})
	var categories []string

	for _, article := range kb.articles {
		if article.Category == "" {
			continue
		}
		if _, ok := seen[article.Category]; ok {
			continue
		}
		seen[article.Category] = struct{}{}
		categories = append(categories, article.Category)
	}

	sort.Strings(categories)

	return categories
}

// relevance computes the weighted match score for one article: a title hit
// counts 3, a content hit 2 and each overlapping keyword 1.
func relevance(article Article, queryLower string) int {
	score := 0

	if strings.Contains(strings.ToLower(article.Title), queryLower) {
		score += 3
	}

	if strings.Contains(strings.ToLower(article.Content), queryLower) {
		score += 2
	}

	for _, keyword := range article.Keywords {
		kw := strings.ToLower(keyword)
		if strings.Contains(queryLower, kw) || strings.Contains(kw, queryLower) {
			score++
		}
	}

	return score
}

func (kb *KnowledgeBase) persistLocked() error {
	if kb.path == "" {
		return nil
	}

	if dir := filepath.Dir(kb.path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create knowledge base directory: %w", err)
		}
	}

	data, err := json.MarshalIndent(kb.articles, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode knowledge base: %w", err)
	}

	if err := os.WriteFile(kb.path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write knowledge base: %w", err)
	}

	return nil
}

// loadArticles reads the article file at path. A missing file is not an
// error; it returns (nil, nil) so the caller can fall back to seeding.
func loadArticles(path string) ([]Article, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read knowledge base: %w", err)
	}

	var articles []Article
	if err := json.Unmarshal(data, &articles); err != nil {
		return nil, fmt.Errorf("failed to decode knowledge base: %w", err)
	}

	return articles, nil
}

func defaultArticles() []Article {
	return []Article{
		{
			ID:        "kb_001",
			Title:     "Common Login Issues",
			Category:  "technical",
			Content:   "Common login issues include incorrect password, account lockout, browser cache problems, and network connectivity issues. Solutions include password reset, clearing cache, trying different browser, and checking network connection.",
			Keywords:  []string{"login", "password", "account", "authentication"},
			CreatedAt: seedTime,
		},
		{
			ID:        "kb_002",
			Title:     "Billing Dispute Resolution",
			Category:  "billing",
			Content:   "Billing disputes can be resolved by reviewing transaction history, checking subscription details, contacting billing department, and providing proof of payment if needed.",
			Keywords:  []string{"billing", "charge", "payment", "dispute"},
			CreatedAt: seedTime,
		},
		{
			ID:        "kb_003",
			Title:     "API Integration Guide",
			Category:  "technical",
			Content:   "API integration requires authentication setup, endpoint understanding, request/response format knowledge, error handling, and testing in sandbox environment before production.",
			Keywords:  []string{"api", "integration", "development", "technical"},
			CreatedAt: seedTime,
		},
		{
			ID:        "kb_004",
			Title:     "Account Security Best Practices",
			Category:  "account",
			Content:   "Account security best practices include using strong passwords, enabling two-factor authentication, regularly updating security settings, and monitoring account activity.",
			Keywords:  []string{"security", "account", "password", "2fa"},
			CreatedAt: seedTime,
		},
	}
}
