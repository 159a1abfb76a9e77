package domain

import "time"

// DocumentStatus tracks a document through the analysis lifecycle.
type DocumentStatus string

// Document lifecycle states.
const (
	DocumentStatusPending    DocumentStatus = "pending"
	DocumentStatusProcessing DocumentStatus = "processing"
	DocumentStatusCompleted  DocumentStatus = "completed"
	DocumentStatusFailed     DocumentStatus = "failed"
)

// IsTerminal returns true once a document has finished analysis.
func (s DocumentStatus) IsTerminal() bool {
	return s == DocumentStatusCompleted || s == DocumentStatusFailed
}

// Document is an uploaded assessment awaiting or undergoing analysis.
// Ingestion creates it; the queue coordinator and orchestrator mutate it.
type Document struct {
	// ID is the unique identifier for the document.
	ID string

	// FilePath is the stored location of the uploaded artifact.
	FilePath string

	// Jurisdiction is the standards framework hint supplied at upload.
	Jurisdiction string

	// Course is the course hint supplied at upload.
	Course string

	// Status is the current processing state.
	Status DocumentStatus

	// StartedAt is when analysis last began.
	StartedAt time.Time

	// CompletedAt is when analysis last finished (success or failure).
	CompletedAt time.Time

	// LastError holds the most recent failure message, if any.
	LastError string

	// Analysis holds the summary produced by a completed (or failed) run.
	Analysis *AnalysisSummary

	// CreatedAt is when the document was uploaded.
	CreatedAt time.Time

	// UpdatedAt is when the document was last modified.
	UpdatedAt time.Time
}

// AnalysisSummary is the document-level rollup persisted after analysis.
type AnalysisSummary struct {
	// TotalQuestions is the number of questions extracted.
	TotalQuestions int `json:"totalQuestions"`

	// RigorDistribution maps each rigor label to its percentage of the
	// question set. Percentages sum to ~100, or are all zero when the
	// document has no questions.
	RigorDistribution map[RigorLabel]float64 `json:"rigorDistribution"`

	// StandardsCoverage lists the distinct canonical standard codes the
	// question set aligned to.
	StandardsCoverage []string `json:"standardsCoverage"`

	// Recommendations are free-text findings. On failure this includes
	// the technical failure detail.
	Recommendations []string `json:"recommendations"`

	// Scores holds the three quality scores and their mean.
	Scores *QualityScores `json:"scores,omitempty"`
}
