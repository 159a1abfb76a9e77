package driven

import (
	"context"
	"time"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
)

// QueueStore persists queue items. Implementations enforce the
// one-non-terminal-item-per-document-per-queue invariant on Enqueue and
// make Claim an atomic conditional transition so two workers can never
// claim the same item.
type QueueStore interface {
	// Enqueue inserts a pending item. Returns domain.ErrAlreadyQueued
	// when the document already has a non-terminal item in the queue
	// (for export queues, per export type).
	Enqueue(ctx context.Context, item *domain.QueueItem) error

	// DuePending returns pending items with scheduledFor <= now,
	// ordered by priority descending then scheduledFor ascending.
	DuePending(ctx context.Context, queue domain.QueueType, now time.Time, limit int) ([]domain.QueueItem, error)

	// Claim transitions an item from pending to processing. Returns
	// domain.ErrItemClaimed when the item is no longer pending.
	Claim(ctx context.Context, id string) error

	// Update persists item state after an attempt.
	Update(ctx context.Context, item *domain.QueueItem) error

	// Delete removes a completed or dead-lettered item.
	Delete(ctx context.Context, id string) error

	// Depth counts non-terminal items in a queue.
	Depth(ctx context.Context, queue domain.QueueType) (int, error)
}

// DeadLetterStore persists exhausted queue items for diagnosis.
type DeadLetterStore interface {
	// Create records a dead-letter entry. Exactly one entry is written
	// per exhausted item.
	Create(ctx context.Context, entry *domain.DeadLetterEntry) error

	// List returns entries newest first.
	List(ctx context.Context, limit int) ([]domain.DeadLetterEntry, error)
}
