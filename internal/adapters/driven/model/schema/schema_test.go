package schema

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/falcon245sp/SBG-with-AQI-sub002/internal/core/domain"
)

const validResponse = `{
  "questions": [
    {
      "number": 1,
      "text": "Solve x^2 - 4 = 0",
      "problemType": "computation",
      "standards": [
        {"code": "A.REI.4", "jurisdiction": "CCSS", "isPrimary": true},
        {"code": "A.SSE.2", "jurisdiction": "CCSS", "isPrimary": false}
      ],
      "rigor": {"dokLevel": 2, "confidence": 0.85, "justification": "procedural"},
      "needsReview": false,
      "unmapped": false
    },
    {
      "number": 2,
      "text": "Explain your reasoning",
      "problemType": "extended_response",
      "standards": [],
      "rigor": {"dokLevel": 4, "confidence": 0.6},
      "needsReview": true
    }
  ]
}`

func TestExtractProposals(t *testing.T) {
	proposals, err := ExtractProposals(validResponse)
	require.NoError(t, err)
	require.Len(t, proposals, 2)

	first := proposals[0]
	assert.Equal(t, 1, first.QuestionNumber)
	assert.Equal(t, "computation", first.ProblemType)
	require.Len(t, first.Standards, 2)
	assert.True(t, first.Standards[0].IsPrimary)
	assert.Equal(t, "A.REI.4", first.Standards[0].Code)
	assert.Equal(t, 2, first.Rigor.DOKLevel)
	assert.Equal(t, domain.RigorMedium, first.Rigor.Label)
	assert.Equal(t, 0.85, first.Rigor.Confidence)

	second := proposals[1]
	assert.True(t, second.NeedsReview)
	// Empty standards array forces the unmapped flag.
	assert.True(t, second.Unmapped)
	assert.Equal(t, domain.RigorSpicy, second.Rigor.Label)
}

func TestExtractProposalsToleratesWrapping(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"fenced json", "```json\n" + validResponse + "\n```"},
		{"bare fence", "```\n" + validResponse + "\n```"},
		{"prose wrapped", "Here is the analysis you asked for:\n" + validResponse + "\nLet me know if you need more."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proposals, err := ExtractProposals(tt.raw)
			require.NoError(t, err)
			assert.Len(t, proposals, 2)
		})
	}
}

func TestExtractProposalsMalformed(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"empty response", ""},
		{"no json at all", "I could not read the document, sorry."},
		{"missing questions array", `{"status": "ok"}`},
		{"questions not an array", `{"questions": "none"}`},
		{"empty questions array", `{"questions": []}`},
		{"question without rigor", `{"questions": [{"number": 1, "text": "q"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ExtractProposals(tt.raw)
			assert.ErrorIs(t, err, domain.ErrMalformedOutput)
		})
	}
}

func TestExtractProposalsNormalisesRigor(t *testing.T) {
	raw := `{"questions": [
		{"number": 1, "text": "q", "standards": [{"code": "A.1", "isPrimary": true}],
		 "rigor": {"dokLevel": 9, "confidence": 1.5}}
	]}`

	proposals, err := ExtractProposals(raw)
	require.NoError(t, err)

	assert.Equal(t, domain.MaxDOKLevel, proposals[0].Rigor.DOKLevel)
	assert.Equal(t, domain.MaxRigorConfidence, proposals[0].Rigor.Confidence)
}

func TestExtractProposalsFallbackNumbering(t *testing.T) {
	raw := `{"questions": [
		{"text": "first", "standards": [{"code": "A.1", "isPrimary": true}], "rigor": {"dokLevel": 1, "confidence": 0.5}},
		{"text": "second", "standards": [{"code": "A.2", "isPrimary": true}], "rigor": {"dokLevel": 2, "confidence": 0.5}}
	]}`

	proposals, err := ExtractProposals(raw)
	require.NoError(t, err)
	require.Len(t, proposals, 2)
	assert.Equal(t, 1, proposals[0].QuestionNumber)
	assert.Equal(t, 2, proposals[1].QuestionNumber)
}

func TestExtractProposalsCapsSecondaries(t *testing.T) {
	raw := `{"questions": [
		{"number": 1, "text": "q",
		 "standards": [
			{"code": "A.1", "isPrimary": true},
			{"code": "A.2"}, {"code": "A.3"}, {"code": "A.4"}, {"code": "A.5"}
		 ],
		 "rigor": {"dokLevel": 2, "confidence": 0.8}}
	]}`

	proposals, err := ExtractProposals(raw)
	require.NoError(t, err)
	// One primary plus at most two secondaries survive.
	assert.Len(t, proposals[0].Standards, 3)
}

func TestPromptNamesJurisdictionAndCourse(t *testing.T) {
	prompt := Prompt("CCSS", "Algebra 1")

	assert.Contains(t, prompt, "CCSS")
	assert.Contains(t, prompt, "Algebra 1")
	assert.Contains(t, prompt, "dokLevel")
}
