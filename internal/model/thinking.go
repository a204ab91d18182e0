package model

import "strings"

// Confidence is a three-level confidence grade.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// Priority grades how pressing an uncertainty is.
type Priority string

const (
	PriorityHigh   Priority = "high"
	PriorityMedium Priority = "medium"
	PriorityLow    Priority = "low"
)

// ParseConfidence maps s onto a Confidence, falling back to def.
func ParseConfidence(s string, def Confidence) Confidence {
	switch Confidence(strings.ToLower(strings.TrimSpace(s))) {
	case ConfidenceHigh:
		return ConfidenceHigh
	case ConfidenceMedium:
		return ConfidenceMedium
	case ConfidenceLow:
		return ConfidenceLow
	}
	return def
}

// ParsePriority maps s onto a Priority, falling back to def.
func ParsePriority(s string, def Priority) Priority {
	switch Priority(strings.ToLower(strings.TrimSpace(s))) {
	case PriorityHigh:
		return PriorityHigh
	case PriorityMedium:
		return PriorityMedium
	case PriorityLow:
		return PriorityLow
	}
	return def
}

// Assumption is something the responder took for granted.
type Assumption struct {
	ID             string     `json:"id"`
	Text           string     `json:"text"`
	Confidence     Confidence `json:"confidence"`
	NeedsUserInput bool       `json:"needsUserInput"`
}

// Uncertainty is an open question the responder could not settle.
type Uncertainty struct {
	ID                string   `json:"id"`
	Question          string   `json:"question"`
	SuggestedContexts []string `json:"suggestedContexts"`
	Priority          Priority `json:"priority"`
}

// ReasoningStep is one numbered step of the reasoning chain. Steps are 1-based
// and contiguous.
type ReasoningStep struct {
	ID          string     `json:"id"`
	Step        int        `json:"step"`
	Description string     `json:"description"`
	Confidence  Confidence `json:"confidence"`
}

// ThinkingRecord is the structured introspection attached to one AI message.
type ThinkingRecord struct {
	Assumptions       []Assumption    `json:"assumptions"`
	Uncertainties     []Uncertainty   `json:"uncertainties"`
	ConfidenceLevel   Confidence      `json:"confidenceLevel"`
	ReasoningChain    []ReasoningStep `json:"reasoningChain"`
	SuggestedContexts []string        `json:"suggestedContexts"`
}

// Clone returns a deep copy of the record.
func (t ThinkingRecord) Clone() ThinkingRecord {
	out := ThinkingRecord{
		Assumptions:       append([]Assumption{}, t.Assumptions...),
		ConfidenceLevel:   t.ConfidenceLevel,
		ReasoningChain:    append([]ReasoningStep{}, t.ReasoningChain...),
		SuggestedContexts: append([]string{}, t.SuggestedContexts...),
		Uncertainties:     make([]Uncertainty, len(t.Uncertainties)),
	}
	for i, u := range t.Uncertainties {
		u.SuggestedContexts = append([]string{}, u.SuggestedContexts...)
		out.Uncertainties[i] = u
	}
	return out
}
