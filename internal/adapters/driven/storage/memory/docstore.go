package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/ports/driven"
)

// DocumentStore is an in-memory driven.DocumentStore.
type DocumentStore struct {
	mu   sync.RWMutex
	docs map[string]domain.Document
}

var _ driven.DocumentStore = (*DocumentStore)(nil)

// NewDocumentStore creates an empty document store.
func NewDocumentStore() *DocumentStore {
	return &DocumentStore{docs: make(map[string]domain.Document)}
}

// Get retrieves a document by ID.
func (s *DocumentStore) Get(_ context.Context, id string) (*domain.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	docCopy := doc
	return &docCopy, nil
}

// Save creates or updates a document.
func (s *DocumentStore) Save(_ context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.docs[doc.ID] = *doc
	return nil
}

// QuestionStore is an in-memory driven.QuestionStore.
type QuestionStore struct {
	mu        sync.RWMutex
	questions map[string][]domain.Question
}

var _ driven.QuestionStore = (*QuestionStore)(nil)

// NewQuestionStore creates an empty question store.
func NewQuestionStore() *QuestionStore {
	return &QuestionStore{questions: make(map[string][]domain.Question)}
}

// BulkCreate replaces a document's question set.
func (s *QuestionStore) BulkCreate(_ context.Context, documentID string, questions []domain.Question) error {
	if documentID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]domain.Question, len(questions))
	copy(stored, questions)
	sort.Slice(stored, func(i, j int) bool { return stored[i].Number < stored[j].Number })
	s.questions[documentID] = stored
	return nil
}

// ListByDocument returns a document's questions ordered by number.
func (s *QuestionStore) ListByDocument(_ context.Context, documentID string) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Question, len(s.questions[documentID]))
	copy(out, s.questions[documentID])
	return out, nil
}

// ResultStore is an in-memory driven.ResultStore.
type ResultStore struct {
	mu      sync.RWMutex
	results map[string][]domain.QuestionResult
}

var _ driven.ResultStore = (*ResultStore)(nil)

// NewResultStore creates an empty result store.
func NewResultStore() *ResultStore {
	return &ResultStore{results: make(map[string][]domain.QuestionResult)}
}

// SaveAll replaces a document's result set.
func (s *ResultStore) SaveAll(_ context.Context, documentID string, results []domain.QuestionResult) error {
	if documentID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := make([]domain.QuestionResult, len(results))
	copy(stored, results)
	sort.Slice(stored, func(i, j int) bool { return stored[i].QuestionNumber < stored[j].QuestionNumber })
	s.results[documentID] = stored
	return nil
}

// ListByDocument returns a document's results ordered by question number.
func (s *ResultStore) ListByDocument(_ context.Context, documentID string) ([]domain.QuestionResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.QuestionResult, len(s.results[documentID]))
	copy(out, s.results[documentID])
	return out, nil
}
