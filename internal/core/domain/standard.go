package domain

import (
	"strings"
	"unicode"
)

// CanonicalStandard is a reference record in the standards taxonomy.
// The store is read-only from the pipeline's perspective.
type CanonicalStandard struct {
	// ID is the unique identifier for the standard.
	ID string

	// Jurisdiction is the issuing framework (e.g. "CCSS", "TEKS").
	Jurisdiction string

	// Course is the course the standard belongs to.
	Course string

	// Code is the standard code as published.
	Code string

	// Description is the human-readable statement of the standard.
	Description string
}

// NormalizeCode canonicalises a standard code for exact matching:
// uppercase with all whitespace and punctuation stripped.
func NormalizeCode(code string) string {
	var b strings.Builder
	b.Grow(len(code))
	for _, r := range code {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}

// CrosswalkRelation describes how two standards relate across jurisdictions.
type CrosswalkRelation string

// Crosswalk relations, in preference order for traversal.
const (
	RelationEquivalent CrosswalkRelation = "equivalent"
	RelationBroader    CrosswalkRelation = "broader"
	RelationNarrower   CrosswalkRelation = "narrower"
)

// Rank orders relations for crosswalk preference: equivalent first, then
// broader/narrower, then anything else. Lower is better.
func (r CrosswalkRelation) Rank() int {
	switch r {
	case RelationEquivalent:
		return 0
	case RelationBroader, RelationNarrower:
		return 1
	default:
		return 2
	}
}

// CrosswalkEdge is a directed relation between two canonical standards.
type CrosswalkEdge struct {
	// FromStandardID is the source standard.
	FromStandardID string

	// ToStandardID is the target standard.
	ToStandardID string

	// Relation is the nature of the mapping.
	Relation CrosswalkRelation

	// Confidence scores the mapping quality, 0-1.
	Confidence float64
}

// ResolutionMethod tags which tier resolved a proposed code.
type ResolutionMethod string

// Resolution methods, one per tier plus the terminal miss.
const (
	MethodExactCode  ResolutionMethod = "exact_code"
	MethodDescFuzzy  ResolutionMethod = "desc_fuzzy"
	MethodCrosswalk  ResolutionMethod = "crosswalk"
	MethodUnresolved ResolutionMethod = "unresolved"
)

// Resolution is the outcome of resolving one proposed code. An
// unresolved result is an expected terminal outcome, not an error.
type Resolution struct {
	// StandardID is the canonical standard, empty when unresolved.
	StandardID string

	// Method is the tier that produced the match.
	Method ResolutionMethod

	// Similarity carries the description similarity for fuzzy matches.
	Similarity float64
}

// Resolved reports whether a canonical standard was found.
func (r Resolution) Resolved() bool {
	return r.StandardID != ""
}

// DescriptionSimilarity computes trigram similarity between two
// descriptions, in [0,1]. It mirrors the relational similarity()
// capability so the fuzzy tier behaves identically whether the match
// runs in the database or in process.
func DescriptionSimilarity(a, b string) float64 {
	ta := trigrams(a)
	tb := trigrams(b)
	if len(ta) == 0 || len(tb) == 0 {
		return 0
	}

	shared := 0
	for t := range ta {
		if tb[t] {
			shared++
		}
	}
	// Jaccard over trigram sets.
	union := len(ta) + len(tb) - shared
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

// trigrams extracts the set of letter trigrams from normalised text,
// padding each word the way pg_trgm does.
func trigrams(s string) map[string]bool {
	set := make(map[string]bool)
	for _, word := range strings.Fields(normaliseText(s)) {
		padded := "  " + word + " "
		for i := 0; i+3 <= len(padded); i++ {
			set[padded[i:i+3]] = true
		}
	}
	return set
}

// normaliseText lowercases and strips non-alphanumeric runes to spaces.
func normaliseText(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(unicode.ToLower(r))
		default:
			b.WriteRune(' ')
		}
	}
	return b.String()
}
