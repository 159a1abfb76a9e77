package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/ports/driven"
)

// QueueStore is an in-memory driven.QueueStore. It enforces the same
// invariants as the SQLite adapter: one non-terminal item per
// (queue, document, export type), and an atomic claim transition.
type QueueStore struct {
	mu    sync.Mutex
	items map[string]domain.QueueItem
}

var _ driven.QueueStore = (*QueueStore)(nil)

// NewQueueStore creates an empty queue store.
func NewQueueStore() *QueueStore {
	return &QueueStore{items: make(map[string]domain.QueueItem)}
}

func liveKey(item *domain.QueueItem) string {
	return string(item.Queue) + "|" + item.DocumentID + "|" + string(item.ExportType)
}

// Enqueue inserts a pending item, rejecting duplicates of a live item.
func (s *QueueStore) Enqueue(_ context.Context, item *domain.QueueItem) error {
	if item == nil || item.ID == "" || item.DocumentID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	key := liveKey(item)
	for id := range s.items {
		existing := s.items[id]
		if existing.Status != domain.QueueStatusCompleted && liveKey(&existing) == key {
			return fmt.Errorf("document %s in queue %s: %w", item.DocumentID, item.Queue, domain.ErrAlreadyQueued)
		}
	}
	s.items[item.ID] = *item
	return nil
}

// DuePending returns due pending items in priority desc, scheduledFor
// asc order.
func (s *QueueStore) DuePending(_ context.Context, queue domain.QueueType, now time.Time, limit int) ([]domain.QueueItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var due []domain.QueueItem
	for id := range s.items {
		item := s.items[id]
		if item.Queue == queue && item.Status == domain.QueueStatusPending && !item.ScheduledFor.After(now) {
			due = append(due, item)
		}
	}
	sort.Slice(due, func(i, j int) bool {
		if due[i].Priority != due[j].Priority {
			return due[i].Priority > due[j].Priority
		}
		return due[i].ScheduledFor.Before(due[j].ScheduledFor)
	})
	if len(due) > limit {
		due = due[:limit]
	}
	return due, nil
}

// Claim transitions an item from pending to processing.
func (s *QueueStore) Claim(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	item, ok := s.items[id]
	if !ok || item.Status != domain.QueueStatusPending {
		return fmt.Errorf("item %s: %w", id, domain.ErrItemClaimed)
	}
	item.Status = domain.QueueStatusProcessing
	item.UpdatedAt = time.Now().UTC()
	s.items[id] = item
	return nil
}

// Update persists item state.
func (s *QueueStore) Update(_ context.Context, item *domain.QueueItem) error {
	if item == nil || item.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[item.ID] = *item
	return nil
}

// Delete removes an item.
func (s *QueueStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, id)
	return nil
}

// Depth counts non-terminal items in a queue.
func (s *QueueStore) Depth(_ context.Context, queue domain.QueueType) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	depth := 0
	for id := range s.items {
		item := s.items[id]
		if item.Queue == queue && item.Status != domain.QueueStatusCompleted {
			depth++
		}
	}
	return depth, nil
}

// DeadLetterStore is an in-memory driven.DeadLetterStore.
type DeadLetterStore struct {
	mu      sync.Mutex
	entries []domain.DeadLetterEntry
}

var _ driven.DeadLetterStore = (*DeadLetterStore)(nil)

// NewDeadLetterStore creates an empty dead-letter store.
func NewDeadLetterStore() *DeadLetterStore {
	return &DeadLetterStore{}
}

// Create records a dead-letter entry.
func (s *DeadLetterStore) Create(_ context.Context, entry *domain.DeadLetterEntry) error {
	if entry == nil || entry.ID == "" {
		return domain.ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, *entry)
	return nil
}

// List returns entries newest first.
func (s *DeadLetterStore) List(_ context.Context, limit int) ([]domain.DeadLetterEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.DeadLetterEntry, len(s.entries))
	copy(out, s.entries)
	sort.Slice(out, func(i, j int) bool { return out[i].FailedAt.After(out[j].FailedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}
