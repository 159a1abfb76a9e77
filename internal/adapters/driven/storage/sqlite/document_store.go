package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/ports/driven"
)

// documentStore implements driven.DocumentStore.
type documentStore struct {
	store *Store
}

var _ driven.DocumentStore = (*documentStore)(nil)

// Get retrieves a document by ID.
func (s *documentStore) Get(ctx context.Context, id string) (*domain.Document, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, file_path, jurisdiction, course, status,
		       started_at, completed_at, last_error, analysis, created_at, updated_at
		FROM documents WHERE id = ?
	`, id)

	var doc domain.Document
	var status string
	var startedAt, completedAt, lastError, analysis sql.NullString
	var createdAt, updatedAt string

	err := row.Scan(&doc.ID, &doc.FilePath, &doc.Jurisdiction, &doc.Course, &status,
		&startedAt, &completedAt, &lastError, &analysis, &createdAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("document %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scanning document: %w", err)
	}

	doc.Status = domain.DocumentStatus(status)
	doc.StartedAt = parseNullableTime(startedAt)
	doc.CompletedAt = parseNullableTime(completedAt)
	if lastError.Valid {
		doc.LastError = lastError.String
	}
	if err := unmarshalJSON(analysis, &doc.Analysis); err != nil {
		return nil, fmt.Errorf("decoding analysis summary: %w", err)
	}
	doc.CreatedAt = parseNullableTime(sql.NullString{String: createdAt, Valid: true})
	doc.UpdatedAt = parseNullableTime(sql.NullString{String: updatedAt, Valid: true})

	return &doc, nil
}

// Save creates or updates a document.
func (s *documentStore) Save(ctx context.Context, doc *domain.Document) error {
	if doc == nil || doc.ID == "" {
		return domain.ErrInvalidInput
	}

	analysisJSON, err := marshalJSON(doc.Analysis)
	if err != nil {
		return fmt.Errorf("encoding analysis summary: %w", err)
	}
	if doc.Analysis == nil {
		analysisJSON = nil
	}

	now := time.Now().UTC()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	doc.UpdatedAt = now

	_, err = s.store.db.ExecContext(ctx, `
		INSERT INTO documents (id, file_path, jurisdiction, course, status,
		                       started_at, completed_at, last_error, analysis, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file_path = excluded.file_path,
			jurisdiction = excluded.jurisdiction,
			course = excluded.course,
			status = excluded.status,
			started_at = excluded.started_at,
			completed_at = excluded.completed_at,
			last_error = excluded.last_error,
			analysis = excluded.analysis,
			updated_at = excluded.updated_at
	`, doc.ID, doc.FilePath, doc.Jurisdiction, doc.Course, string(doc.Status),
		formatNullableTime(doc.StartedAt), formatNullableTime(doc.CompletedAt),
		nullString(doc.LastError), analysisJSON,
		doc.CreatedAt.Format(time.RFC3339Nano), doc.UpdatedAt.Format(time.RFC3339Nano))

	if err != nil {
		return fmt.Errorf("saving document: %w", err)
	}
	return nil
}

// questionStore implements driven.QuestionStore.
type questionStore struct {
	store *Store
}

var _ driven.QuestionStore = (*questionStore)(nil)

// BulkCreate replaces a document's question set.
func (s *questionStore) BulkCreate(ctx context.Context, documentID string, questions []domain.Question) error {
	if documentID == "" {
		return domain.ErrInvalidInput
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, "DELETE FROM questions WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("clearing prior questions: %w", err)
	}

	for i := range questions {
		q := &questions[i]
		flagsJSON, err := marshalJSON(q.Flags)
		if err != nil {
			return fmt.Errorf("encoding flags: %w", err)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT INTO questions (id, document_id, number, text, context, problem_type,
			                       standard_id, dok_level, rigor_label, flags)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, q.ID, documentID, q.Number, q.Text, q.Context, q.ProblemType,
			nullString(q.StandardID), q.DOKLevel, string(q.RigorLabel), flagsJSON)
		if err != nil {
			return fmt.Errorf("inserting question %d: %w", q.Number, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing questions: %w", err)
	}
	return nil
}

// ListByDocument returns a document's questions ordered by number.
func (s *questionStore) ListByDocument(ctx context.Context, documentID string) ([]domain.Question, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, number, text, context, problem_type,
		       standard_id, dok_level, rigor_label, flags
		FROM questions WHERE document_id = ? ORDER BY number
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying questions: %w", err)
	}
	defer rows.Close()

	var questions []domain.Question //nolint:prealloc // size unknown from query
	for rows.Next() {
		var q domain.Question
		var standardID, flags sql.NullString
		var rigorLabel string
		if err := rows.Scan(&q.ID, &q.DocumentID, &q.Number, &q.Text, &q.Context, &q.ProblemType,
			&standardID, &q.DOKLevel, &rigorLabel, &flags); err != nil {
			return nil, fmt.Errorf("scanning question: %w", err)
		}
		if standardID.Valid {
			q.StandardID = standardID.String
		}
		q.RigorLabel = domain.RigorLabel(rigorLabel)
		if err := unmarshalJSON(flags, &q.Flags); err != nil {
			return nil, fmt.Errorf("decoding flags: %w", err)
		}
		questions = append(questions, q)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating questions: %w", err)
	}
	return questions, nil
}
