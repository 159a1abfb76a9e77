package domain

// RigorLabel is the three-tier presentation of cognitive rigor.
type RigorLabel string

// Rigor labels, in ascending order of demand.
const (
	RigorMild   RigorLabel = "mild"
	RigorMedium RigorLabel = "medium"
	RigorSpicy  RigorLabel = "spicy"
)

// RigorLabels lists all labels in their canonical (tie-break) order.
// Voting iterates this order, so mild wins ties against medium and spicy,
// and medium wins ties against spicy.
var RigorLabels = []RigorLabel{RigorMild, RigorMedium, RigorSpicy}

// DOK level bounds on the Depth-of-Knowledge scale.
const (
	MinDOKLevel = 1
	MaxDOKLevel = 4
)

// LabelForDOK maps a Depth-of-Knowledge level to its rigor label.
// The mapping is fixed: 1 is mild, 2-3 are medium, 4 is spicy.
func LabelForDOK(level int) RigorLabel {
	switch {
	case level <= 1:
		return RigorMild
	case level >= 4:
		return RigorSpicy
	default:
		return RigorMedium
	}
}

// ClampDOK forces a level into the valid [1,4] range.
func ClampDOK(level int) int {
	if level < MinDOKLevel {
		return MinDOKLevel
	}
	if level > MaxDOKLevel {
		return MaxDOKLevel
	}
	return level
}

// QualityFlag marks a question-level quality issue.
type QualityFlag string

// Known quality flags.
const (
	FlagUnclear         QualityFlag = "unclear"
	FlagMultipleCorrect QualityFlag = "multiple_correct"
	FlagBias            QualityFlag = "bias"
	FlagNeedsReview     QualityFlag = "needs_review"
	FlagUnmapped        QualityFlag = "unmapped"
)

// majorFlags are the issues that count against measurement quality.
var majorFlags = map[QualityFlag]bool{
	FlagUnclear:         true,
	FlagMultipleCorrect: true,
	FlagBias:            true,
}

// IsMajor reports whether the flag indicates a major measurement issue.
func (f QualityFlag) IsMajor() bool {
	return majorFlags[f]
}

// Question is one assessed item extracted from a document.
// A question set is recreated wholesale when a document is resubmitted.
type Question struct {
	// ID is the unique identifier for the question.
	ID string

	// DocumentID is the owning document.
	DocumentID string

	// Number is the question's ordinal within the document, starting at 1.
	Number int

	// Text is the instruction or question text.
	Text string

	// Context is optional surrounding material (passage, diagram caption).
	Context string

	// ProblemType categorises the item (multiple_choice, short_answer, ...).
	ProblemType string

	// StandardID is the resolved canonical standard, empty when unresolved.
	StandardID string

	// DOKLevel is the observed Depth-of-Knowledge level (1-4).
	DOKLevel int

	// RigorLabel is the three-tier label derived from DOKLevel.
	RigorLabel RigorLabel

	// Flags records quality issues observed on this item.
	Flags []QualityFlag
}

// HasFlag reports whether the question carries the given flag.
func (q *Question) HasFlag(flag QualityFlag) bool {
	for _, f := range q.Flags {
		if f == flag {
			return true
		}
	}
	return false
}
