package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/ports/driven"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/ports/driving"
)

// claimBatchSize bounds how many due items one tick considers.
const claimBatchSize = 25

// Ensure Coordinator implements the interface.
var _ driving.QueueCoordinator = (*Coordinator)(nil)

// Coordinator is a durable, polling queue worker. Processing and export
// queues are independent Coordinator instances over the same state
// machine, each with its own poll interval and handler.
//
// Items within a tick run sequentially, which keeps at most one
// analysis in flight per document and bounds concurrent backend calls.
type Coordinator struct {
	queue       domain.QueueType
	store       driven.QueueStore
	deadLetters driven.DeadLetterStore
	documents   driven.DocumentStore
	handler     driving.QueueHandler

	pollInterval time.Duration
	maxAttempts  int

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewCoordinator creates a coordinator for one queue.
func NewCoordinator(
	queue domain.QueueType,
	store driven.QueueStore,
	deadLetters driven.DeadLetterStore,
	documents driven.DocumentStore,
	handler driving.QueueHandler,
	settings domain.QueueSettings,
) *Coordinator {
	interval := settings.PollInterval
	if queue == domain.QueueExport && settings.ExportPollInterval > 0 {
		interval = settings.ExportPollInterval
	}
	if interval <= 0 {
		interval = 10 * time.Second
	}
	maxAttempts := settings.MaxAttempts
	if maxAttempts <= 0 {
		maxAttempts = domain.DefaultMaxAttempts
	}

	return &Coordinator{
		queue:        queue,
		store:        store,
		deadLetters:  deadLetters,
		documents:    documents,
		handler:      handler,
		pollInterval: interval,
		maxAttempts:  maxAttempts,
	}
}

// Enqueue adds a pending item for the document. The store rejects a
// second non-terminal item for the same document (and export type) in
// this queue.
func (c *Coordinator) Enqueue(ctx context.Context, documentID string, priority int, exportType domain.ExportType) (string, error) {
	if documentID == "" {
		return "", domain.ErrInvalidInput
	}
	if c.queue == domain.QueueExport && exportType == "" {
		return "", fmt.Errorf("%w: export queue items need an export type", domain.ErrInvalidInput)
	}

	now := time.Now().UTC()
	item := &domain.QueueItem{
		ID:           uuid.NewString(),
		Queue:        c.queue,
		DocumentID:   documentID,
		ExportType:   exportType,
		Priority:     priority,
		MaxAttempts:  c.maxAttempts,
		ScheduledFor: now,
		Status:       domain.QueueStatusPending,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := c.store.Enqueue(ctx, item); err != nil {
		return "", fmt.Errorf("enqueueing document %s: %w", documentID, err)
	}
	return item.ID, nil
}

// Start begins the polling loop. This method blocks until Stop is
// called or the context is cancelled.
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		return nil // Already running
	}
	c.running = true
	c.stopCh = make(chan struct{})
	c.mu.Unlock()

	// Process anything already due before the first tick.
	c.tick(ctx)

	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.setStopped()
			return ctx.Err()
		case <-c.stopCh:
			return nil
		case <-ticker.C:
			c.tick(ctx)
		}
	}
}

// Stop gracefully shuts down the coordinator.
func (c *Coordinator) Stop() error {
	c.mu.Lock()
	if !c.running {
		c.mu.Unlock()
		return nil
	}
	c.running = false
	close(c.stopCh)
	c.mu.Unlock()

	c.wg.Wait()
	return nil
}

func (c *Coordinator) setStopped() {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()
}

// GetStatus reports poller state and queue depth for health surfaces.
func (c *Coordinator) GetStatus(ctx context.Context) (*driving.QueueStatus, error) {
	depth, err := c.store.Depth(ctx, c.queue)
	if err != nil {
		return nil, fmt.Errorf("reading queue depth: %w", err)
	}

	c.mu.Lock()
	running := c.running
	c.mu.Unlock()

	return &driving.QueueStatus{
		Queue:   c.queue,
		Running: running,
		Depth:   depth,
	}, nil
}

// tick runs one poll pass. Nothing escapes the tick boundary: one
// item's failure is recorded and the rest of the batch still runs.
func (c *Coordinator) tick(ctx context.Context) {
	c.wg.Add(1)
	defer c.wg.Done()

	if err := c.ProcessPending(ctx); err != nil {
		log.Printf("coordinator[%s]: poll pass failed: %v", c.queue, err)
	}
}

// ProcessPending dequeues due items in priority-then-age order and
// dispatches them sequentially.
func (c *Coordinator) ProcessPending(ctx context.Context) error {
	due, err := c.store.DuePending(ctx, c.queue, time.Now().UTC(), claimBatchSize)
	if err != nil {
		return fmt.Errorf("selecting due items: %w", err)
	}

	for i := range due {
		item := due[i]
		// Claim before dispatch: the atomic pending->processing
		// transition is what stops two workers from running the same
		// document.
		if err := c.store.Claim(ctx, item.ID); err != nil {
			if errors.Is(err, domain.ErrItemClaimed) {
				continue
			}
			log.Printf("coordinator[%s]: claiming item %s: %v", c.queue, item.ID, err)
			continue
		}
		item.Status = domain.QueueStatusProcessing

		c.dispatch(ctx, &item)
	}
	return nil
}

// dispatch runs the handler for one claimed item and applies the
// retry/dead-letter state machine to the outcome.
func (c *Coordinator) dispatch(ctx context.Context, item *domain.QueueItem) {
	err := c.runHandler(ctx, item)
	if err == nil {
		if delErr := c.store.Delete(ctx, item.ID); delErr != nil {
			log.Printf("coordinator[%s]: removing completed item %s: %v", c.queue, item.ID, delErr)
		}
		return
	}

	item.Attempts++
	item.LastError = err.Error()
	item.AttemptErrors = append(item.AttemptErrors, err.Error())
	item.UpdatedAt = time.Now().UTC()

	if !item.Exhausted() {
		item.Status = domain.QueueStatusPending
		item.ScheduledFor = time.Now().UTC().Add(item.NextBackoff())
		if updErr := c.store.Update(ctx, item); updErr != nil {
			log.Printf("coordinator[%s]: rescheduling item %s: %v", c.queue, item.ID, updErr)
		}
		log.Printf("coordinator[%s]: item %s failed (attempt %d/%d), retrying at %s: %v",
			c.queue, item.ID, item.Attempts, item.MaxAttempts, item.ScheduledFor.Format(time.RFC3339), err)
		return
	}

	c.deadLetter(ctx, item, err)
}

// runHandler contains handler panics so a single bad item cannot take
// down the poller.
func (c *Coordinator) runHandler(ctx context.Context, item *domain.QueueItem) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panicked: %v", r)
		}
	}()
	return c.handler(ctx, *item)
}

// deadLetter writes the permanent failure record and removes the live
// item. The entry snapshots document metadata so diagnosis needs no
// further lookups.
func (c *Coordinator) deadLetter(ctx context.Context, item *domain.QueueItem, finalErr error) {
	entry := &domain.DeadLetterEntry{
		ID:            uuid.NewString(),
		Queue:         item.Queue,
		DocumentID:    item.DocumentID,
		ExportType:    item.ExportType,
		FinalError:    finalErr.Error(),
		AttemptErrors: item.AttemptErrors,
		Attempts:      item.Attempts,
		FailedAt:      time.Now().UTC(),
	}

	if c.documents != nil {
		if doc, err := c.documents.Get(ctx, item.DocumentID); err == nil {
			if snapshot, marshalErr := json.Marshal(doc); marshalErr == nil {
				entry.DocumentSnapshot = string(snapshot)
			}
		}
	}

	if err := c.deadLetters.Create(ctx, entry); err != nil {
		// Leave the item live so the failure is not silently lost; a
		// later tick retries the handler and the dead-letter write.
		log.Printf("coordinator[%s]: writing dead letter for item %s: %v", c.queue, item.ID, err)
		item.Status = domain.QueueStatusPending
		item.ScheduledFor = time.Now().UTC().Add(item.NextBackoff())
		if updErr := c.store.Update(ctx, item); updErr != nil {
			log.Printf("coordinator[%s]: persisting exhausted item %s: %v", c.queue, item.ID, updErr)
		}
		return
	}

	if err := c.store.Delete(ctx, item.ID); err != nil {
		log.Printf("coordinator[%s]: removing dead-lettered item %s: %v", c.queue, item.ID, err)
	}
	log.Printf("coordinator[%s]: item %s dead-lettered after %d attempts: %v",
		c.queue, item.ID, item.Attempts, finalErr)
}
