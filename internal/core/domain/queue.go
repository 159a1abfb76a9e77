package domain

import "time"

// QueueType distinguishes the independent queue instances.
type QueueType string

// Queue types. Processing and export queues share one state machine but
// run on independent poll intervals.
const (
	QueueProcessing QueueType = "processing"
	QueueExport     QueueType = "export"
)

// ExportType is the granularity of export queue items: each export type
// for a document is queued separately.
type ExportType string

// Export types.
const (
	ExportResultsCSV      ExportType = "results_csv"
	ExportStandardsReport ExportType = "standards_report"
	ExportGradebook       ExportType = "gradebook"
)

// ExportTypes lists all export types in generation order.
var ExportTypes = []ExportType{ExportResultsCSV, ExportStandardsReport, ExportGradebook}

// QueueItemStatus is the lifecycle state of a queue item.
type QueueItemStatus string

// Queue item states. Completed items are deleted; exhausted items
// transition to a dead-letter entry.
const (
	QueueStatusPending    QueueItemStatus = "pending"
	QueueStatusProcessing QueueItemStatus = "processing"
	QueueStatusCompleted  QueueItemStatus = "completed"
)

// Default retry policy.
const (
	DefaultMaxAttempts = 3

	// backoffBase is the reschedule delay after the first failure;
	// it doubles per attempt up to backoffCap.
	backoffBase = 30 * time.Second
	backoffCap  = 15 * time.Minute
)

// QueueItem is one unit of queued work. Invariant: at most one
// non-terminal item exists per documentId per queue.
type QueueItem struct {
	// ID is the unique identifier for the item.
	ID string

	// Queue is the queue this item belongs to.
	Queue QueueType

	// DocumentID is the document the work applies to.
	DocumentID string

	// ExportType is set only on export queue items.
	ExportType ExportType

	// Priority orders dequeueing; higher runs first.
	Priority int

	// Attempts counts processing attempts so far.
	Attempts int

	// MaxAttempts bounds retries before dead-lettering.
	MaxAttempts int

	// ScheduledFor is the earliest time the item may be claimed.
	ScheduledFor time.Time

	// Status is the current lifecycle state.
	Status QueueItemStatus

	// LastError holds the most recent attempt's failure message.
	LastError string

	// AttemptErrors preserves the error from each failed attempt,
	// oldest first, for the dead-letter record.
	AttemptErrors []string

	// CreatedAt is when the item was enqueued.
	CreatedAt time.Time

	// UpdatedAt is when the item last changed.
	UpdatedAt time.Time
}

// NextBackoff returns the reschedule delay for the item's current
// attempt count: exponential, capped.
func (q *QueueItem) NextBackoff() time.Duration {
	d := backoffBase
	for i := 1; i < q.Attempts; i++ {
		d *= 2
		if d >= backoffCap {
			return backoffCap
		}
	}
	return d
}

// Exhausted reports whether the item has used up its retry budget.
func (q *QueueItem) Exhausted() bool {
	return q.Attempts >= q.MaxAttempts
}

// DeadLetterEntry is the permanent record of an exhausted queue item.
// It carries enough context to diagnose the failure without re-querying
// live state, and is never automatically retried.
type DeadLetterEntry struct {
	// ID is the unique identifier for the entry.
	ID string

	// Queue is the queue the item died on.
	Queue QueueType

	// DocumentID is the document the work applied to.
	DocumentID string

	// ExportType is set for export queue items.
	ExportType ExportType

	// FinalError is the error message from the last attempt.
	FinalError string

	// AttemptErrors preserves the error from each attempt, oldest first.
	AttemptErrors []string

	// Attempts is the total attempt count when the item was exhausted.
	Attempts int

	// DocumentSnapshot is a JSON snapshot of the document's metadata at
	// dead-letter time.
	DocumentSnapshot string

	// FailedAt is when the item was dead-lettered.
	FailedAt time.Time
}
