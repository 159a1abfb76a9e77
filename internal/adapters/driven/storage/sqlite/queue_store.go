package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/ports/driven"
)

// queueStore implements driven.QueueStore.
type queueStore struct {
	store *Store
}

var _ driven.QueueStore = (*queueStore)(nil)

// Enqueue inserts a pending item. The partial unique index on
// (queue, document_id, export_type) over non-terminal rows enforces the
// at-most-one-live-item invariant; a violation maps to ErrAlreadyQueued.
func (s *queueStore) Enqueue(ctx context.Context, item *domain.QueueItem) error {
	if item == nil || item.ID == "" || item.DocumentID == "" {
		return domain.ErrInvalidInput
	}

	attemptsJSON, err := marshalJSON(item.AttemptErrors)
	if err != nil {
		return fmt.Errorf("encoding attempt errors: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO queue_items (id, queue, document_id, export_type, priority,
		                         attempts, max_attempts, scheduled_for, status,
		                         last_error, attempt_errors, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, item.ID, string(item.Queue), item.DocumentID, string(item.ExportType), item.Priority,
		item.Attempts, item.MaxAttempts, item.ScheduledFor.UTC().Format(time.RFC3339Nano),
		string(item.Status), nullString(item.LastError), attemptsJSON,
		item.CreatedAt.UTC().Format(time.RFC3339Nano), item.UpdatedAt.UTC().Format(time.RFC3339Nano))

	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return fmt.Errorf("document %s in queue %s: %w", item.DocumentID, item.Queue, domain.ErrAlreadyQueued)
		}
		return fmt.Errorf("inserting queue item: %w", err)
	}
	return nil
}

// DuePending returns due pending items in priority desc, scheduledFor
// asc order.
func (s *queueStore) DuePending(ctx context.Context, queue domain.QueueType, now time.Time, limit int) ([]domain.QueueItem, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, queue, document_id, export_type, priority, attempts, max_attempts,
		       scheduled_for, status, last_error, attempt_errors, created_at, updated_at
		FROM queue_items
		WHERE queue = ? AND status = 'pending' AND scheduled_for <= ?
		ORDER BY priority DESC, scheduled_for ASC
		LIMIT ?
	`, string(queue), now.UTC().Format(time.RFC3339Nano), limit)
	if err != nil {
		return nil, fmt.Errorf("querying due items: %w", err)
	}
	defer rows.Close()

	var items []domain.QueueItem //nolint:prealloc // size unknown from query
	for rows.Next() {
		item, err := scanQueueItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating due items: %w", err)
	}
	return items, nil
}

// Claim atomically transitions pending -> processing. The conditional
// update is the multi-worker safety: zero rows affected means another
// poller got there first.
func (s *queueStore) Claim(ctx context.Context, id string) error {
	res, err := s.store.db.ExecContext(ctx, `
		UPDATE queue_items SET status = 'processing', updated_at = ?
		WHERE id = ? AND status = 'pending'
	`, time.Now().UTC().Format(time.RFC3339Nano), id)
	if err != nil {
		return fmt.Errorf("claiming queue item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("reading claim result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("item %s: %w", id, domain.ErrItemClaimed)
	}
	return nil
}

// Update persists item state after an attempt.
func (s *queueStore) Update(ctx context.Context, item *domain.QueueItem) error {
	if item == nil || item.ID == "" {
		return domain.ErrInvalidInput
	}

	attemptsJSON, err := marshalJSON(item.AttemptErrors)
	if err != nil {
		return fmt.Errorf("encoding attempt errors: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		UPDATE queue_items
		SET priority = ?, attempts = ?, scheduled_for = ?, status = ?,
		    last_error = ?, attempt_errors = ?, updated_at = ?
		WHERE id = ?
	`, item.Priority, item.Attempts, item.ScheduledFor.UTC().Format(time.RFC3339Nano),
		string(item.Status), nullString(item.LastError), attemptsJSON,
		time.Now().UTC().Format(time.RFC3339Nano), item.ID)
	if err != nil {
		return fmt.Errorf("updating queue item: %w", err)
	}
	return nil
}

// Delete removes a queue item.
func (s *queueStore) Delete(ctx context.Context, id string) error {
	_, err := s.store.db.ExecContext(ctx, "DELETE FROM queue_items WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting queue item: %w", err)
	}
	return nil
}

// Depth counts non-terminal items in a queue.
func (s *queueStore) Depth(ctx context.Context, queue domain.QueueType) (int, error) {
	var depth int
	row := s.store.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM queue_items WHERE queue = ? AND status <> 'completed'", string(queue))
	if err := row.Scan(&depth); err != nil {
		return 0, fmt.Errorf("counting queue items: %w", err)
	}
	return depth, nil
}

// scanQueueItem scans a queue item from *sql.Rows.
func scanQueueItem(rows *sql.Rows) (*domain.QueueItem, error) {
	var item domain.QueueItem
	var queue, exportType, scheduledFor, status, createdAt, updatedAt string
	var lastError, attemptErrors sql.NullString

	if err := rows.Scan(&item.ID, &queue, &item.DocumentID, &exportType, &item.Priority,
		&item.Attempts, &item.MaxAttempts, &scheduledFor, &status,
		&lastError, &attemptErrors, &createdAt, &updatedAt); err != nil {
		return nil, fmt.Errorf("scanning queue item: %w", err)
	}

	item.Queue = domain.QueueType(queue)
	item.ExportType = domain.ExportType(exportType)
	item.Status = domain.QueueItemStatus(status)
	item.ScheduledFor = parseNullableTime(sql.NullString{String: scheduledFor, Valid: true})
	if lastError.Valid {
		item.LastError = lastError.String
	}
	if err := unmarshalJSON(attemptErrors, &item.AttemptErrors); err != nil {
		return nil, fmt.Errorf("decoding attempt errors: %w", err)
	}
	item.CreatedAt = parseNullableTime(sql.NullString{String: createdAt, Valid: true})
	item.UpdatedAt = parseNullableTime(sql.NullString{String: updatedAt, Valid: true})

	return &item, nil
}

// deadLetterStore implements driven.DeadLetterStore.
type deadLetterStore struct {
	store *Store
}

var _ driven.DeadLetterStore = (*deadLetterStore)(nil)

// Create records a dead-letter entry.
func (s *deadLetterStore) Create(ctx context.Context, entry *domain.DeadLetterEntry) error {
	if entry == nil || entry.ID == "" {
		return domain.ErrInvalidInput
	}

	attemptsJSON, err := marshalJSON(entry.AttemptErrors)
	if err != nil {
		return fmt.Errorf("encoding attempt errors: %w", err)
	}

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO dead_letters (id, queue, document_id, export_type, final_error,
		                          attempt_errors, attempts, document_snapshot, failed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, entry.ID, string(entry.Queue), entry.DocumentID, string(entry.ExportType),
		entry.FinalError, attemptsJSON, entry.Attempts,
		nullString(entry.DocumentSnapshot), entry.FailedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("inserting dead letter: %w", err)
	}
	return nil
}

// List returns entries newest first.
func (s *deadLetterStore) List(ctx context.Context, limit int) ([]domain.DeadLetterEntry, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, queue, document_id, export_type, final_error,
		       attempt_errors, attempts, document_snapshot, failed_at
		FROM dead_letters ORDER BY failed_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("querying dead letters: %w", err)
	}
	defer rows.Close()

	var entries []domain.DeadLetterEntry //nolint:prealloc // size unknown from query
	for rows.Next() {
		var e domain.DeadLetterEntry
		var queue, exportType, failedAt string
		var attemptErrors, snapshot sql.NullString
		if err := rows.Scan(&e.ID, &queue, &e.DocumentID, &exportType, &e.FinalError,
			&attemptErrors, &e.Attempts, &snapshot, &failedAt); err != nil {
			return nil, fmt.Errorf("scanning dead letter: %w", err)
		}
		e.Queue = domain.QueueType(queue)
		e.ExportType = domain.ExportType(exportType)
		if err := unmarshalJSON(attemptErrors, &e.AttemptErrors); err != nil {
			return nil, fmt.Errorf("decoding attempt errors: %w", err)
		}
		if snapshot.Valid {
			e.DocumentSnapshot = snapshot.String
		}
		e.FailedAt = parseNullableTime(sql.NullString{String: failedAt, Valid: true})
		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating dead letters: %w", err)
	}
	return entries, nil
}
