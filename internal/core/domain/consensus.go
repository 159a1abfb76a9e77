package domain

// ConsensusStandard is one standard accepted by the consensus voter.
type ConsensusStandard struct {
	// Code is the standard code.
	Code string `json:"code"`

	// Jurisdiction is the framework the code belongs to.
	Jurisdiction string `json:"jurisdiction"`

	// StandardID is the resolved canonical standard, empty when unresolved.
	StandardID string `json:"standardId,omitempty"`

	// Method is how the code was resolved.
	Method ResolutionMethod `json:"method"`

	// Similarity carries the fuzzy-match similarity where applicable.
	Similarity float64 `json:"similarity,omitempty"`

	// IsPrimary marks the consensus primary alignment.
	IsPrimary bool `json:"isPrimary"`

	// Votes is how many engines proposed this standard.
	Votes int `json:"votes"`
}

// QuestionResult is the consensus record for one question: the voted
// standards set, voted rigor, tallies, and aggregate confidence.
// A resubmitted document supersedes its results rather than mutating
// them in place.
type QuestionResult struct {
	// ID is the unique identifier for the result.
	ID string

	// DocumentID is the owning document.
	DocumentID string

	// QuestionNumber is the question's ordinal within the document.
	QuestionNumber int

	// Standards is the voted standards set, primary first, capped at two.
	Standards []ConsensusStandard

	// DOKLevel is the voted Depth-of-Knowledge level.
	DOKLevel int

	// RigorLabel is the voted three-tier rigor label.
	RigorLabel RigorLabel

	// StandardsVotes tallies votes per "jurisdiction|code" key.
	StandardsVotes map[string]int

	// RigorVotes tallies votes per rigor label.
	RigorVotes map[RigorLabel]int

	// Confidence is the agreement-based aggregate, in [0,1], two decimals.
	Confidence float64

	// ProblemType categorises the item.
	ProblemType string

	// Flags records quality issues carried over from proposals.
	Flags []QualityFlag
}

// PrimaryStandard returns the consensus primary, or nil when the voter
// accepted no standards.
func (r *QuestionResult) PrimaryStandard() *ConsensusStandard {
	for i := range r.Standards {
		if r.Standards[i].IsPrimary {
			return &r.Standards[i]
		}
	}
	if len(r.Standards) > 0 {
		return &r.Standards[0]
	}
	return nil
}

// StandardVoteKey builds the tally key for a (code, jurisdiction) pair.
func StandardVoteKey(jurisdiction, code string) string {
	return jurisdiction + "|" + NormalizeCode(code)
}

// HasFlag reports whether the result carries the given flag.
func (r *QuestionResult) HasFlag(flag QualityFlag) bool {
	for _, f := range r.Flags {
		if f == flag {
			return true
		}
	}
	return false
}
