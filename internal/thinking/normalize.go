package thinking

import (
	"fmt"

	"github.com/rcliao/chatcore/internal/model"
)

// Item type tags used when deriving record ids.
const (
	tagAssumption  = "assumption"
	tagUncertainty = "uncertainty"
	tagStep        = "step"
)

// ItemID derives the id of the index-th item of kind tag within messageID.
func ItemID(messageID, tag string, index int) string {
	return fmt.Sprintf("%s-%s-%d", messageID, tag, index)
}

// Normalize maps raw onto a record scoped to messageID. It has no failure
// mode: every slice is non-nil and the overall confidence defaults to medium.
func Normalize(raw Raw, messageID string) model.ThinkingRecord {
	rec := model.ThinkingRecord{
		Assumptions:       make([]model.Assumption, 0, len(raw.Assumptions)),
		Uncertainties:     make([]model.Uncertainty, 0, len(raw.Uncertainties)),
		ConfidenceLevel:   model.ParseConfidence(raw.ConfidenceLevel, model.ConfidenceMedium),
		ReasoningChain:    make([]model.ReasoningStep, 0, len(raw.ReasoningChain)),
		SuggestedContexts: make([]string, 0, len(raw.SuggestedContexts)),
	}

	for i, a := range raw.Assumptions {
		rec.Assumptions = append(rec.Assumptions, model.Assumption{
			ID:             ItemID(messageID, tagAssumption, i),
			Text:           a.Text,
			Confidence:     model.ParseConfidence(a.Confidence, model.ConfidenceMedium),
			NeedsUserInput: a.NeedsUserInput,
		})
	}

	for i, u := range raw.Uncertainties {
		rec.Uncertainties = append(rec.Uncertainties, model.Uncertainty{
			ID:                ItemID(messageID, tagUncertainty, i),
			Question:          u.Question,
			SuggestedContexts: append([]string{}, u.SuggestedContexts...),
			Priority:          model.ParsePriority(u.Priority, model.PriorityMedium),
		})
	}

	for i, s := range raw.ReasoningChain {
		rec.ReasoningChain = append(rec.ReasoningChain, model.ReasoningStep{
			ID:          ItemID(messageID, tagStep, i),
			Step:        i + 1,
			Description: s.Description,
			Confidence:  model.ParseConfidence(s.Confidence, model.ConfidenceMedium),
		})
	}

	rec.SuggestedContexts = append(rec.SuggestedContexts, raw.SuggestedContexts...)
	return rec
}

// Unavailable is the canned record attached to fallback replies when the
// responder could not be reached.
func Unavailable(messageID string) model.ThinkingRecord {
	return Normalize(Raw{
		Assumptions: []RawAssumption{{
			Text:       "The AI service is temporarily unavailable",
			Confidence: string(model.ConfidenceHigh),
		}},
		Uncertainties: []RawUncertainty{{
			Question: "When will the AI service be available again?",
			Priority: string(model.PriorityLow),
		}},
		ConfidenceLevel: string(model.ConfidenceLow),
		ReasoningChain: []RawStep{
			{Description: "The request to the AI service failed", Confidence: string(model.ConfidenceHigh)},
			{Description: "Returned a local fallback reply instead", Confidence: string(model.ConfidenceHigh)},
		},
	}, messageID)
}
