package driven

import (
	"context"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
)

// DocumentStore persists documents. Single-row updates are atomic; no
// further transaction semantics are assumed across stores.
type DocumentStore interface {
	// Get retrieves a document by ID. Returns domain.ErrNotFound when
	// the document does not exist.
	Get(ctx context.Context, id string) (*domain.Document, error)

	// Save creates or updates a document.
	Save(ctx context.Context, doc *domain.Document) error
}

// QuestionStore persists extracted questions.
type QuestionStore interface {
	// BulkCreate inserts a document's question set, replacing any
	// questions from a previous analysis pass.
	BulkCreate(ctx context.Context, documentID string, questions []domain.Question) error

	// ListByDocument returns a document's questions ordered by number.
	ListByDocument(ctx context.Context, documentID string) ([]domain.Question, error)
}

// ResultStore persists consensus records. Results from a resubmitted
// document supersede the prior set.
type ResultStore interface {
	// SaveAll replaces the document's result set.
	SaveAll(ctx context.Context, documentID string, results []domain.QuestionResult) error

	// ListByDocument returns a document's results ordered by question number.
	ListByDocument(ctx context.Context, documentID string) ([]domain.QuestionResult, error)
}

// ExportWriter persists generated export artifacts.
type ExportWriter interface {
	// Write stores an export artifact and returns its location.
	Write(ctx context.Context, documentID string, exportType domain.ExportType, data []byte) (string, error)
}
