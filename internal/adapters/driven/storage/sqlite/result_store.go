package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/ports/driven"
)

// resultStore implements driven.ResultStore.
type resultStore struct {
	store *Store
}

var _ driven.ResultStore = (*resultStore)(nil)

// SaveAll replaces the document's consensus result set. Results from a
// resubmission supersede the prior set rather than mutating it.
func (s *resultStore) SaveAll(ctx context.Context, documentID string, results []domain.QuestionResult) error {
	if documentID == "" {
		return domain.ErrInvalidInput
	}

	tx, err := s.store.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // rollback after commit is a no-op

	if _, err := tx.ExecContext(ctx, "DELETE FROM question_results WHERE document_id = ?", documentID); err != nil {
		return fmt.Errorf("clearing prior results: %w", err)
	}

	for i := range results {
		r := &results[i]
		standardsJSON, err := marshalJSON(r.Standards)
		if err != nil {
			return fmt.Errorf("encoding standards: %w", err)
		}
		standardsVotesJSON, err := marshalJSON(r.StandardsVotes)
		if err != nil {
			return fmt.Errorf("encoding standards votes: %w", err)
		}
		rigorVotesJSON, err := marshalJSON(r.RigorVotes)
		if err != nil {
			return fmt.Errorf("encoding rigor votes: %w", err)
		}
		flagsJSON, err := marshalJSON(r.Flags)
		if err != nil {
			return fmt.Errorf("encoding flags: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO question_results (id, document_id, question_number, standards,
			                              dok_level, rigor_label, standards_votes, rigor_votes,
			                              confidence, problem_type, flags)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, r.ID, documentID, r.QuestionNumber, standardsJSON,
			r.DOKLevel, string(r.RigorLabel), standardsVotesJSON, rigorVotesJSON,
			r.Confidence, r.ProblemType, flagsJSON)
		if err != nil {
			return fmt.Errorf("inserting result for question %d: %w", r.QuestionNumber, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing results: %w", err)
	}
	return nil
}

// ListByDocument returns a document's results ordered by question number.
func (s *resultStore) ListByDocument(ctx context.Context, documentID string) ([]domain.QuestionResult, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, document_id, question_number, standards, dok_level, rigor_label,
		       standards_votes, rigor_votes, confidence, problem_type, flags
		FROM question_results WHERE document_id = ? ORDER BY question_number
	`, documentID)
	if err != nil {
		return nil, fmt.Errorf("querying results: %w", err)
	}
	defer rows.Close()

	var results []domain.QuestionResult //nolint:prealloc // size unknown from query
	for rows.Next() {
		var r domain.QuestionResult
		var rigorLabel string
		var standards, standardsVotes, rigorVotes, flags sql.NullString
		if err := rows.Scan(&r.ID, &r.DocumentID, &r.QuestionNumber, &standards,
			&r.DOKLevel, &rigorLabel, &standardsVotes, &rigorVotes,
			&r.Confidence, &r.ProblemType, &flags); err != nil {
			return nil, fmt.Errorf("scanning result: %w", err)
		}
		r.RigorLabel = domain.RigorLabel(rigorLabel)
		if err := unmarshalJSON(standards, &r.Standards); err != nil {
			return nil, fmt.Errorf("decoding standards: %w", err)
		}
		if err := unmarshalJSON(standardsVotes, &r.StandardsVotes); err != nil {
			return nil, fmt.Errorf("decoding standards votes: %w", err)
		}
		if err := unmarshalJSON(rigorVotes, &r.RigorVotes); err != nil {
			return nil, fmt.Errorf("decoding rigor votes: %w", err)
		}
		if err := unmarshalJSON(flags, &r.Flags); err != nil {
			return nil, fmt.Errorf("decoding flags: %w", err)
		}
		results = append(results, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating results: %w", err)
	}
	return results, nil
}
