package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/ports/driven"
)

// StandardsStore reads the canonical taxonomy and crosswalk graph. It
// implements all three resolution-tier lookup ports. The taxonomy is
// read-only from the pipeline's perspective; Put/PutEdge exist for the
// external refresh process and test fixtures.
type StandardsStore struct {
	store *Store
}

var (
	_ driven.ExactLookup     = (*StandardsStore)(nil)
	_ driven.FuzzyLookup     = (*StandardsStore)(nil)
	_ driven.CrosswalkLookup = (*StandardsStore)(nil)
)

// FindByCode looks up a standard by normalized code within one
// jurisdiction/course. Returns nil and no error on a miss.
func (s *StandardsStore) FindByCode(ctx context.Context, jurisdiction, course, normalizedCode string) (*domain.CanonicalStandard, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, jurisdiction, course, code, description
		FROM standards
		WHERE jurisdiction = ? AND course = ? AND normalized_code = ?
	`, jurisdiction, course, normalizedCode)

	std, err := scanStandard(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("exact lookup: %w", err)
	}
	return std, nil
}

// FindByDescription ranks the jurisdiction/course's standards by
// trigram similarity against the proposed description and returns the
// best match with its score. The similarity runs in process, so this
// tier works even without a database text-similarity extension.
func (s *StandardsStore) FindByDescription(ctx context.Context, jurisdiction, course, description string) (*domain.CanonicalStandard, float64, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT id, jurisdiction, course, code, description
		FROM standards
		WHERE jurisdiction = ? AND course = ?
	`, jurisdiction, course)
	if err != nil {
		return nil, 0, fmt.Errorf("fuzzy lookup: %w", err)
	}
	defer rows.Close()

	var best *domain.CanonicalStandard
	bestScore := 0.0
	for rows.Next() {
		var std domain.CanonicalStandard
		if err := rows.Scan(&std.ID, &std.Jurisdiction, &std.Course, &std.Code, &std.Description); err != nil {
			return nil, 0, fmt.Errorf("fuzzy lookup scan: %w", err)
		}
		score := domain.DescriptionSimilarity(std.Description, description)
		if score > bestScore {
			bestScore = score
			stdCopy := std
			best = &stdCopy
		}
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("fuzzy lookup iterate: %w", err)
	}
	return best, bestScore, nil
}

// FindInJurisdiction locates a code within its proposing jurisdiction,
// across courses. Returns nil and no error on a miss.
func (s *StandardsStore) FindInJurisdiction(ctx context.Context, jurisdiction, normalizedCode string) (*domain.CanonicalStandard, error) {
	row := s.store.db.QueryRowContext(ctx, `
		SELECT id, jurisdiction, course, code, description
		FROM standards
		WHERE jurisdiction = ? AND normalized_code = ?
		LIMIT 1
	`, jurisdiction, normalizedCode)

	std, err := scanStandard(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("crosswalk source lookup: %w", err)
	}
	return std, nil
}

// Candidates returns the target-jurisdiction standards reachable from
// a standard through crosswalk edges.
func (s *StandardsStore) Candidates(ctx context.Context, fromStandardID, targetJurisdiction string) ([]driven.CrosswalkCandidate, error) {
	rows, err := s.store.db.QueryContext(ctx, `
		SELECT st.id, st.jurisdiction, st.course, st.code, st.description,
		       e.relation, e.confidence
		FROM crosswalk_edges e
		JOIN standards st ON st.id = e.to_standard_id
		WHERE e.from_standard_id = ? AND st.jurisdiction = ?
	`, fromStandardID, targetJurisdiction)
	if err != nil {
		return nil, fmt.Errorf("crosswalk traversal: %w", err)
	}
	defer rows.Close()

	var candidates []driven.CrosswalkCandidate //nolint:prealloc // size unknown from query
	for rows.Next() {
		var c driven.CrosswalkCandidate
		var relation string
		if err := rows.Scan(&c.Standard.ID, &c.Standard.Jurisdiction, &c.Standard.Course,
			&c.Standard.Code, &c.Standard.Description, &relation, &c.Confidence); err != nil {
			return nil, fmt.Errorf("crosswalk scan: %w", err)
		}
		c.Relation = domain.CrosswalkRelation(relation)
		candidates = append(candidates, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("crosswalk iterate: %w", err)
	}
	return candidates, nil
}

// Put inserts or replaces a canonical standard. Used by the external
// taxonomy refresh and by test fixtures.
func (s *StandardsStore) Put(ctx context.Context, std domain.CanonicalStandard) error {
	if std.ID == "" || std.Code == "" {
		return domain.ErrInvalidInput
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO standards (id, jurisdiction, course, code, normalized_code, description)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			jurisdiction = excluded.jurisdiction,
			course = excluded.course,
			code = excluded.code,
			normalized_code = excluded.normalized_code,
			description = excluded.description
	`, std.ID, std.Jurisdiction, std.Course, std.Code, domain.NormalizeCode(std.Code), std.Description)
	if err != nil {
		return fmt.Errorf("saving standard: %w", err)
	}
	return nil
}

// PutEdge inserts or replaces a crosswalk edge.
func (s *StandardsStore) PutEdge(ctx context.Context, edge domain.CrosswalkEdge) error {
	if edge.FromStandardID == "" || edge.ToStandardID == "" {
		return domain.ErrInvalidInput
	}
	_, err := s.store.db.ExecContext(ctx, `
		INSERT INTO crosswalk_edges (from_standard_id, to_standard_id, relation, confidence)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(from_standard_id, to_standard_id, relation) DO UPDATE SET
			confidence = excluded.confidence
	`, edge.FromStandardID, edge.ToStandardID, string(edge.Relation), edge.Confidence)
	if err != nil {
		return fmt.Errorf("saving crosswalk edge: %w", err)
	}
	return nil
}

// scanStandard scans a single standard row.
func scanStandard(row *sql.Row) (*domain.CanonicalStandard, error) {
	var std domain.CanonicalStandard
	if err := row.Scan(&std.ID, &std.Jurisdiction, &std.Course, &std.Code, &std.Description); err != nil {
		return nil, err
	}
	return &std, nil
}
