package tool

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestKB(t *testing.T) *KnowledgeBase {
	t.Helper()

	kb, err := NewKnowledgeBase()
	require.NoError(t, err)

	return kb
}

func TestKnowledgeBase_SearchRanking(t *testing.T) {
	kb := newTestKB(t)

	results := kb.Search("login", ArticleFilter{})
	require.Len(t, results, 1)
	assert.Equal(t, "kb_001", results[0].ID)
	// title (+3), content (+2) and the matching keyword (+1)
	assert.Equal(t, 6, results[0].Relevance)

	results = kb.Search("account", ArticleFilter{})
	require.Len(t, results, 2)
	assert.Equal(t, "kb_004", results[0].ID)
	assert.Equal(t, "kb_001", results[1].ID)
	assert.Greater(t, results[0].Relevance, results[1].Relevance)
}

func TestKnowledgeBase_SearchFilters(t *testing.T) {
	kb := newTestKB(t)

	t.Run("category", func(t *testing.T) {
		results := kb.Search("password", ArticleFilter{Category: "account"})
		require.Len(t, results, 1)
		assert.Equal(t, "kb_004", results[0].ID)
	})

	t.Run("limit", func(t *testing.T) {
		results := kb.Search("account", ArticleFilter{Limit: 1})
		require.Len(t, results, 1)
		assert.Equal(t, "kb_004", results[0].ID)
	})

	t.Run("empty query", func(t *testing.T) {
		assert.Empty(t, kb.Search("   ", ArticleFilter{}))
	})

	t.Run("no overlap", func(t *testing.T) {
		assert.Empty(t, kb.Search("quantum chromodynamics", ArticleFilter{}))
	})
}

func TestKnowledgeBase_Get(t *testing.T) {
	kb := newTestKB(t)

	article, ok := kb.Get("kb_002")
	require.True(t, ok)
	assert.Equal(t, "Billing Dispute Resolution", article.Title)

	_, ok = kb.Get("kb_999")
	assert.False(t, ok)
}

func TestKnowledgeBase_AddAssignsID(t *testing.T) {
	kb := newTestKB(t)

	id, err := kb.Add(Article{
		Title:    "Password Reset Walkthrough",
		Category: "technical",
		Content:  "Use the forgot password link and follow the emailed instructions.",
		Keywords: []string{"password", "reset"},
	})
	require.NoError(t, err)
	assert.Equal(t, "kb_005", id)

	article, ok := kb.Get(id)
	require.True(t, ok)
	assert.False(t, article.CreatedAt.IsZero())

	results := kb.Search("reset", ArticleFilter{})
	require.NotEmpty(t, results)
	assert.Equal(t, id, results[0].ID)
}

func TestKnowledgeBase_Categories(t *testing.T) {
	kb := newTestKB(t)

	assert.Equal(t, []string{"account", "billing", "technical"}, kb.Categories())
}

func TestKnowledgeBase_PersistsToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb", "articles.json")

	kb, err := NewKnowledgeBase(func(o *KnowledgeBaseOptions) {
		o.Path = path
	})
	require.NoError(t, err)
	assert.FileExists(t, path)

	id, err := kb.Add(Article{
		Title:    "Webhook Retry Behavior",
		Category: "technical",
		Content:  "Failed webhook deliveries are retried with exponential backoff for 24 hours.",
		Keywords: []string{"webhook", "retry"},
	})
	require.NoError(t, err)

	reopened, err := NewKnowledgeBase(func(o *KnowledgeBaseOptions) {
		o.Path = path
	})
	require.NoError(t, err)

	article, ok := reopened.Get(id)
	require.True(t, ok)
	assert.Equal(t, "Webhook Retry Behavior", article.Title)

	// Seeded defaults survived the round trip as well.
	_, ok = reopened.Get("kb_001")
	assert.True(t, ok)
}
