package driving

import (
	"context"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
)

// AnalysisService is the inbound surface for triggering and reading
// document analysis.
type AnalysisService interface {
	// RequestAnalysis registers the document (if new) and enqueues it on
	// the processing queue. Returns the queue item ID.
	RequestAnalysis(ctx context.Context, documentID, filePath, jurisdiction, course string, priority int) (string, error)

	// AnalyzeDocument runs the full pipeline for one document. This is
	// the queue coordinator's entry point; a degraded model outcome is
	// recorded on the document and does not return an error, while
	// persistence failures do, feeding the queue's retry logic.
	AnalyzeDocument(ctx context.Context, documentID string) error

	// GetDocument returns a document with its analysis summary.
	GetDocument(ctx context.Context, documentID string) (*domain.Document, error)
}

// ExportService generates export artifacts from persisted results.
type ExportService interface {
	// RunExport produces one export artifact for a document.
	RunExport(ctx context.Context, documentID string, exportType domain.ExportType) error
}

// QueueStatus describes a coordinator for health surfaces.
type QueueStatus struct {
	// Queue is the queue type.
	Queue domain.QueueType `json:"queue"`

	// Running reports whether the poller is active.
	Running bool `json:"running"`

	// Depth is the current count of non-terminal items.
	Depth int `json:"depth"`
}

// QueueCoordinator sequences queued work.
type QueueCoordinator interface {
	// Enqueue adds a document to the queue. exportType is empty for the
	// processing queue.
	Enqueue(ctx context.Context, documentID string, priority int, exportType domain.ExportType) (string, error)

	// Start begins the polling loop and blocks until Stop or context
	// cancellation.
	Start(ctx context.Context) error

	// Stop shuts the poller down and waits for the in-flight tick.
	Stop() error

	// GetStatus reports poller state and queue depth.
	GetStatus(ctx context.Context) (*QueueStatus, error)
}

// QueueHandler processes one claimed queue item.
type QueueHandler func(ctx context.Context, item domain.QueueItem) error
