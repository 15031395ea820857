// Package retrieval defines the abstract retrieval contract consumed by the
// knowledge_base capability, plus an in-memory keyword-scored store that
// serves as the default implementation. Real vector search lives behind the
// same interface and is out of scope here.
package retrieval

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
)

// Document is one retrieved chunk with its relevance score.
type Document struct {
	ID      string  `json:"id"`
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// Retriever returns the k most relevant documents for a query, best first.
// Implementations must respect ctx and must not block indefinitely; the
// engine bounds every call with the node timeout.
type Retriever interface {
	Search(ctx context.Context, query string, k int) ([]Document, error)
}

// MemoryStore is a Retriever over an in-memory corpus, scored by term
// overlap between the query and the document content. Results are
// deterministic: ties break on document id.
type MemoryStore struct {
	mu   sync.RWMutex
	docs []Document
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Add inserts one document. Content is stored verbatim; scoring happens at
// search time.
func (s *MemoryStore) Add(id, content string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs = append(s.docs, Document{ID: id, Content: content})
}

// LoadFile loads a JSON corpus file: an array of {"id", "content"} objects.
func (s *MemoryStore) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read corpus file: %w", err)
	}
	var docs []Document
	if err := json.Unmarshal(data, &docs); err != nil {
		return fmt.Errorf("parse corpus file %s: %w", path, err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, d := range docs {
		s.docs = append(s.docs, Document{ID: d.ID, Content: d.Content})
	}
	return nil
}

// Len returns the number of stored documents.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.docs)
}

// Search implements Retriever.
func (s *MemoryStore) Search(ctx context.Context, query string, k int) ([]Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if k <= 0 {
		return nil, fmt.Errorf("search: k must be positive, got %d", k)
	}

	terms := tokenize(query)
	if len(terms) == 0 {
		return nil, fmt.Errorf("search: empty query")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	scored := make([]Document, 0, len(s.docs))
	for _, d := range s.docs {
		score := overlap(terms, tokenize(d.Content))
		if score == 0 {
			continue
		}
		scored = append(scored, Document{ID: d.ID, Content: d.Content, Score: score})
	}

	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].ID < scored[j].ID
	})

	if len(scored) > k {
		scored = scored[:k]
	}
	return scored, nil
}

// tokenize lowercases and splits on non-letter/digit runes.
func tokenize(text string) map[string]struct{} {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !('a' <= r && r <= 'z' || '0' <= r && r <= '9')
	})
	set := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		set[f] = struct{}{}
	}
	return set
}

// overlap returns the fraction of query terms present in the document.
func overlap(query, doc map[string]struct{}) float64 {
	if len(query) == 0 {
		return 0
	}
	var hits int
	for term := range query {
		if _, ok := doc[term]; ok {
			hits++
		}
	}
	return float64(hits) / float64(len(query))
}
