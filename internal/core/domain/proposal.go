package domain

// Rigor confidence bounds enforced by the output schema.
const (
	MinRigorConfidence = 0.01
	MaxRigorConfidence = 0.99
)

// ClampConfidence forces a confidence value into [0.01, 0.99].
func ClampConfidence(c float64) float64 {
	if c < MinRigorConfidence {
		return MinRigorConfidence
	}
	if c > MaxRigorConfidence {
		return MaxRigorConfidence
	}
	return c
}

// MergeSource records which backend produced the winning proposal after
// a confidence-gated second pass.
type MergeSource string

// Merge sources.
const (
	MergeSourcePrimary  MergeSource = "primary"
	MergeSourceFallback MergeSource = "fallback"
)

// StandardProposal is one standard code proposed by a model engine.
// Resolution against the canonical store is attached by the resolver
// before voting.
type StandardProposal struct {
	// Code is the proposed standard code, as written by the model.
	Code string

	// Jurisdiction is the framework the model proposed the code under.
	// May differ from the document's target jurisdiction.
	Jurisdiction string

	// IsPrimary marks the model's primary alignment. At most two
	// secondaries accompany a primary.
	IsPrimary bool

	// StandardID is the resolved canonical standard, empty when unresolved.
	StandardID string

	// Method is how the code was resolved (exact_code/desc_fuzzy/crosswalk/
	// unresolved). Empty until resolution runs.
	Method ResolutionMethod

	// Similarity is the description similarity for fuzzy resolutions.
	Similarity float64
}

// RigorAssessment is one engine's cognitive-rigor read of a question.
type RigorAssessment struct {
	// DOKLevel is the Depth-of-Knowledge level, 1-4.
	DOKLevel int

	// Label is the three-tier label for DOKLevel.
	Label RigorLabel

	// Confidence is the engine's self-reported confidence, clamped to
	// [0.01, 0.99] by the schema.
	Confidence float64

	// Justification is a short free-text rationale.
	Justification string
}

// Normalise clamps the level and confidence and rederives the label.
func (r RigorAssessment) Normalise() RigorAssessment {
	r.DOKLevel = ClampDOK(r.DOKLevel)
	r.Label = LabelForDOK(r.DOKLevel)
	r.Confidence = ClampConfidence(r.Confidence)
	return r
}

// ModelProposal is one engine's raw output for a single question.
// Proposals are ephemeral: they feed the consensus voter and are not
// persisted verbatim.
type ModelProposal struct {
	// Engine names the backend that produced this proposal.
	Engine string

	// QuestionNumber is the ordinal of the question within the document.
	QuestionNumber int

	// QuestionText is the extracted instruction/question text.
	QuestionText string

	// Context is optional surrounding material.
	Context string

	// ProblemType categorises the item.
	ProblemType string

	// Standards holds the proposed codes, primary first.
	Standards []StandardProposal

	// Rigor is the engine's rigor assessment.
	Rigor RigorAssessment

	// NeedsReview marks low-confidence output the engine itself flagged.
	NeedsReview bool

	// Unmapped marks a question the engine could not align to any standard.
	Unmapped bool

	// Degraded marks an unusable proposal from a failed engine response.
	// Degraded proposals contribute no votes and a zero self-confidence,
	// but still lower the voter's success-rate signal.
	Degraded bool

	// Source records which backend this proposal survived from after a
	// confidence-gated merge.
	Source MergeSource
}

// PrimaryStandard returns the proposal's primary standard, or nil when
// the engine proposed none.
func (p *ModelProposal) PrimaryStandard() *StandardProposal {
	for i := range p.Standards {
		if p.Standards[i].IsPrimary {
			return &p.Standards[i]
		}
	}
	if len(p.Standards) > 0 {
		return &p.Standards[0]
	}
	return nil
}

// Degradation describes why an analysis could not be completed.
type Degradation struct {
	// Message is a human-readable explanation.
	Message string

	// Detail is the technical detail (wrapped error text) for diagnosis.
	Detail string
}

// AnalysisOutcome is the orchestrator's result: either a usable proposal
// set or an explicit degraded outcome. Callers must check IsDegraded
// before touching Proposals; a degraded payload is never analyzable data.
type AnalysisOutcome struct {
	// Proposals is the merged per-question proposal set, one proposal per
	// question, ordered by question number.
	Proposals []ModelProposal

	// Degraded is non-nil when analysis could not be completed.
	Degraded *Degradation
}

// OkOutcome wraps a usable proposal set.
func OkOutcome(proposals []ModelProposal) AnalysisOutcome {
	return AnalysisOutcome{Proposals: proposals}
}

// DegradedOutcome wraps a handled analysis failure.
func DegradedOutcome(message, detail string) AnalysisOutcome {
	return AnalysisOutcome{Degraded: &Degradation{Message: message, Detail: detail}}
}

// IsDegraded reports whether the outcome carries no analyzable data.
func (o AnalysisOutcome) IsDegraded() bool {
	return o.Degraded != nil
}
