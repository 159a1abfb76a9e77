package driven

import (
	"context"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
)

// AnalysisRequest describes one document submitted to a model backend.
type AnalysisRequest struct {
	// DocumentID identifies the document for logging and cleanup.
	DocumentID string

	// FilePath is the local path of the stored artifact.
	FilePath string

	// Jurisdiction is the target standards framework.
	Jurisdiction string

	// Course is the target course.
	Course string
}

// ModelBackend analyses an assessment document with a large language
// model and returns one proposal per extracted question.
//
// Implementations own the backend's file-store discipline: the artifact
// is uploaded before analysis and removed again whenever the call path
// fails partway. Cleanup failures are logged, never escalated.
type ModelBackend interface {
	// Name identifies the backend in logs and merge records.
	Name() string

	// Analyze submits the document and returns the engine's proposals.
	// Schema violations in the response surface as domain.ErrMalformedOutput.
	Analyze(ctx context.Context, req AnalysisRequest) ([]domain.ModelProposal, error)

	// Ping validates the backend is reachable without running inference.
	Ping(ctx context.Context) error

	// Close releases resources.
	Close() error
}
