package thinking

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcliao/chatcore/internal/model"
)

func TestNormalizeEmptyPayload(t *testing.T) {
	for _, payload := range []string{``, `null`, `{}`, `[]`, `"oops"`, `{"assumptions": 7}`} {
		rec := Normalize(Parse([]byte(payload)), "m1")
		assert.NotNil(t, rec.Assumptions, payload)
		assert.NotNil(t, rec.Uncertainties, payload)
		assert.NotNil(t, rec.ReasoningChain, payload)
		assert.NotNil(t, rec.SuggestedContexts, payload)
		assert.Empty(t, rec.Assumptions, payload)
		assert.Equal(t, model.ConfidenceMedium, rec.ConfidenceLevel, payload)
	}
}

func TestNormalizeFullPayload(t *testing.T) {
	raw := Parse([]byte(`{
		"assumptions": [
			{"text": "User writes Go", "confidence": "HIGH", "needsUserInput": false},
			{"text": "Deadline is soon", "confidence": "bogus", "needs_user_input": "true"}
		],
		"uncertainties": [
			{"question": "Which Go version?", "suggestedContexts": ["Toolchain"], "priority": "high"}
		],
		"confidenceLevel": "low",
		"reasoningChain": [
			{"step": 4, "description": "Read the question", "confidence": "high"},
			"Draft an answer",
			{"description": ""},
			{"description": "Check the draft"}
		],
		"suggestedContexts": ["Project notes", 12, ""]
	}`))

	rec := Normalize(raw, "msg")

	require.Len(t, rec.Assumptions, 2)
	assert.Equal(t, "msg-assumption-0", rec.Assumptions[0].ID)
	assert.Equal(t, model.ConfidenceHigh, rec.Assumptions[0].Confidence)
	assert.Equal(t, model.ConfidenceMedium, rec.Assumptions[1].Confidence)
	assert.True(t, rec.Assumptions[1].NeedsUserInput)

	require.Len(t, rec.Uncertainties, 1)
	assert.Equal(t, "msg-uncertainty-0", rec.Uncertainties[0].ID)
	assert.Equal(t, []string{"Toolchain"}, rec.Uncertainties[0].SuggestedContexts)
	assert.Equal(t, model.PriorityHigh, rec.Uncertainties[0].Priority)

	assert.Equal(t, model.ConfidenceLow, rec.ConfidenceLevel)

	require.Len(t, rec.ReasoningChain, 3)
	for i, s := range rec.ReasoningChain {
		assert.Equal(t, i+1, s.Step)
		assert.Equal(t, ItemID("msg", "step", i), s.ID)
	}
	assert.Equal(t, "Draft an answer", rec.ReasoningChain[1].Description)

	assert.Equal(t, []string{"Project notes"}, rec.SuggestedContexts)
}

func TestNormalizeIDsScopedToMessage(t *testing.T) {
	raw := Parse([]byte(`{"assumptions": ["a", "b"]}`))
	a := Normalize(raw, "one")
	b := Normalize(raw, "two")
	assert.NotEqual(t, a.Assumptions[0].ID, b.Assumptions[0].ID)
	assert.NotEqual(t, a.Assumptions[0].ID, a.Assumptions[1].ID)
}

func TestRawUnmarshalMatchesParse(t *testing.T) {
	payload := []byte(`{"confidence_level": "high", "assumptions": ["a"]}`)

	var r Raw
	require.NoError(t, json.Unmarshal(payload, &r))
	assert.Equal(t, Parse(payload), r)

	// A second decode replaces, never merges.
	require.NoError(t, r.UnmarshalJSON([]byte(`"not an object"`)))
	assert.Equal(t, Raw{}, r)
}

func TestUnavailable(t *testing.T) {
	rec := Unavailable("m9")
	assert.Equal(t, model.ConfidenceLow, rec.ConfidenceLevel)
	require.NotEmpty(t, rec.ReasoningChain)
	assert.Equal(t, 1, rec.ReasoningChain[0].Step)
	assert.Equal(t, "m9-assumption-0", rec.Assumptions[0].ID)
}
