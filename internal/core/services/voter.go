package services

import (
	"math"
	"sort"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
)

// Consensus voting constants.
const (
	// consensusVoteFloor is the vote count at which a standard is
	// accepted as consensus outright.
	consensusVoteFloor = 2

	// maxConsensusStandards caps the accepted standards set.
	maxConsensusStandards = 2

	// degradedSelfConfidence is what a degraded proposal contributes to
	// the mean self-confidence term.
	degradedSelfConfidence = 0.0
)

// Confidence weights. The four-term weighting applies when an explicit
// success-rate signal exists (at least one engine response was marked
// degraded); otherwise the three usable terms reweight to 0.4/0.3/0.3.
const (
	weightRigorAgreement   = 0.3
	weightStandardsOverlap = 0.25
	weightSelfConfidence   = 0.25
	weightSuccessRate      = 0.2
)

// Voter reconciles divergent engine proposals for one question into a
// single standards set and rigor level, with an agreement-based
// confidence score.
//
// Tie-breaking is order-sensitive by design: the first engine listed
// wins standards ties, and rigor ties resolve in mild, medium, spicy
// order. Callers must pass proposals in a stable engine order.
type Voter struct{}

// NewVoter creates a consensus voter.
func NewVoter() *Voter {
	return &Voter{}
}

// Vote merges one question's proposals into a consensus record.
// Degraded proposals contribute no votes; they only lower the
// success-rate signal. Unanimous inputs produce identical output under
// any reordering.
func (v *Voter) Vote(proposals []domain.ModelProposal) domain.QuestionResult {
	usable := make([]domain.ModelProposal, 0, len(proposals))
	for _, p := range proposals {
		if !p.Degraded {
			usable = append(usable, p)
		}
	}

	result := domain.QuestionResult{
		StandardsVotes: make(map[string]int),
		RigorVotes:     make(map[domain.RigorLabel]int),
	}
	if len(usable) > 0 {
		first := usable[0]
		result.QuestionNumber = first.QuestionNumber
		result.ProblemType = first.ProblemType
		result.Flags = collectFlags(usable)
	}

	result.Standards = v.voteStandards(usable, result.StandardsVotes)
	result.DOKLevel, result.RigorLabel = v.voteRigor(usable, result.RigorVotes)
	result.Confidence = v.confidence(proposals, usable, result)

	return result
}

// voteStandards tallies (code, jurisdiction) pairs across engines.
// Standards with >= consensusVoteFloor votes are accepted, capped at
// two with the primary first; when nothing reaches the floor, the
// single most-voted standard wins. Ties break by proposal order.
func (v *Voter) voteStandards(usable []domain.ModelProposal, tallies map[string]int) []domain.ConsensusStandard {
	type entry struct {
		std   domain.StandardProposal
		votes int
		order int // first-seen position, for stable tie-breaks
	}

	entries := make(map[string]*entry)
	order := 0
	for _, p := range usable {
		for _, std := range p.Standards {
			key := domain.StandardVoteKey(std.Jurisdiction, std.Code)
			tallies[key]++
			e, ok := entries[key]
			if !ok {
				entries[key] = &entry{std: std, votes: 1, order: order}
				order++
				continue
			}
			e.votes++
			// A primary flag from any engine promotes the pair.
			if std.IsPrimary {
				e.std.IsPrimary = true
			}
			// Keep the resolved form if a later engine's copy carries one.
			if e.std.StandardID == "" && std.StandardID != "" {
				e.std.StandardID = std.StandardID
				e.std.Method = std.Method
				e.std.Similarity = std.Similarity
			}
		}
	}
	if len(entries) == 0 {
		return nil
	}

	ranked := make([]*entry, 0, len(entries))
	for _, e := range entries {
		ranked = append(ranked, e)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.votes != b.votes {
			return a.votes > b.votes
		}
		if a.std.IsPrimary != b.std.IsPrimary {
			return a.std.IsPrimary
		}
		return a.order < b.order
	})

	accepted := make([]*entry, 0, maxConsensusStandards)
	for _, e := range ranked {
		if e.votes >= consensusVoteFloor && len(accepted) < maxConsensusStandards {
			accepted = append(accepted, e)
		}
	}
	if len(accepted) == 0 {
		// Nothing reached consensus: fall back to the most-voted pair.
		accepted = ranked[:1]
	}

	out := make([]domain.ConsensusStandard, len(accepted))
	for i, e := range accepted {
		out[i] = domain.ConsensusStandard{
			Code:         e.std.Code,
			Jurisdiction: e.std.Jurisdiction,
			StandardID:   e.std.StandardID,
			Method:       e.std.Method,
			Similarity:   e.std.Similarity,
			IsPrimary:    i == 0,
			Votes:        e.votes,
		}
	}
	return out
}

// voteRigor majority-votes the three-way label. Ties resolve by
// iterating domain.RigorLabels in order, so mild beats medium and
// spicy, and medium beats spicy.
func (v *Voter) voteRigor(usable []domain.ModelProposal, tallies map[domain.RigorLabel]int) (int, domain.RigorLabel) {
	if len(usable) == 0 {
		return domain.MinDOKLevel, domain.RigorMild
	}

	levelByLabel := make(map[domain.RigorLabel]int)
	for _, p := range usable {
		label := p.Rigor.Label
		tallies[label]++
		// Keep the highest DOK level observed under the winning label so
		// 2 vs 3 (both medium) reports the more demanding read.
		if p.Rigor.DOKLevel > levelByLabel[label] {
			levelByLabel[label] = p.Rigor.DOKLevel
		}
	}

	var winner domain.RigorLabel
	best := -1
	for _, label := range domain.RigorLabels {
		if tallies[label] > best {
			best = tallies[label]
			winner = label
		}
	}
	return levelByLabel[winner], winner
}

// confidence computes the weighted agreement score, rounded to two
// decimals and clamped to [0,1].
func (v *Voter) confidence(all, usable []domain.ModelProposal, result domain.QuestionResult) float64 {
	if len(all) == 0 {
		return 0
	}

	var rigorAgreement, overlap, meanSelf float64
	if len(usable) > 0 {
		rigorAgreement = float64(result.RigorVotes[result.RigorLabel]) / float64(len(usable))
		overlap = standardsOverlap(result.StandardsVotes, len(usable))
		var sum float64
		for _, p := range usable {
			sum += p.Rigor.Confidence
		}
		meanSelf = sum / float64(len(usable))
	} else {
		meanSelf = degradedSelfConfidence
	}

	successRate := float64(len(usable)) / float64(len(all))

	var score float64
	if len(usable) < len(all) {
		// An engine failed outright: the success-rate signal is explicit.
		score = weightRigorAgreement*rigorAgreement +
			weightStandardsOverlap*overlap +
			weightSelfConfidence*meanSelf +
			weightSuccessRate*successRate
	} else {
		score = 0.4*rigorAgreement + 0.3*overlap + 0.3*meanSelf
	}

	score = math.Round(score*100) / 100
	return math.Min(1, math.Max(0, score))
}

// standardsOverlap measures how much the engines' proposed standards
// sets agree: the mean, over distinct proposed pairs, of the fraction
// of usable engines voting for that pair.
func standardsOverlap(tallies map[string]int, usableCount int) float64 {
	if len(tallies) == 0 || usableCount == 0 {
		return 0
	}
	var sum float64
	for _, votes := range tallies {
		sum += float64(votes) / float64(usableCount)
	}
	return sum / float64(len(tallies))
}

// collectFlags unions quality flags across proposals, preserving
// first-seen order.
func collectFlags(proposals []domain.ModelProposal) []domain.QualityFlag {
	seen := make(map[domain.QualityFlag]bool)
	var out []domain.QualityFlag
	add := func(f domain.QualityFlag) {
		if !seen[f] {
			seen[f] = true
			out = append(out, f)
		}
	}
	for _, p := range proposals {
		if p.NeedsReview {
			add(domain.FlagNeedsReview)
		}
		if p.Unmapped {
			add(domain.FlagUnmapped)
		}
	}
	return out
}
