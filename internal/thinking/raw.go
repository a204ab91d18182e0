// Package thinking turns raw responder introspection payloads into
// message-scoped thinking records.
package thinking

import (
	"encoding/json"
	"strings"
)

// Raw is the responder's thinking payload after boundary validation. Decoding
// never fails: fields that are missing or have the wrong shape come out empty.
type Raw struct {
	Assumptions       []RawAssumption  `json:"assumptions,omitempty"`
	Uncertainties     []RawUncertainty `json:"uncertainties,omitempty"`
	ConfidenceLevel   string           `json:"confidenceLevel,omitempty"`
	ReasoningChain    []RawStep        `json:"reasoningChain,omitempty"`
	SuggestedContexts []string         `json:"suggestedContexts,omitempty"`
}

// RawAssumption is one assumption as sent by the responder.
type RawAssumption struct {
	Text           string `json:"text"`
	Confidence     string `json:"confidence,omitempty"`
	NeedsUserInput bool   `json:"needsUserInput,omitempty"`
}

// RawUncertainty is one uncertainty as sent by the responder.
type RawUncertainty struct {
	Question          string   `json:"question"`
	SuggestedContexts []string `json:"suggestedContexts,omitempty"`
	Priority          string   `json:"priority,omitempty"`
}

// RawStep is one reasoning step as sent by the responder. Any step number the
// responder supplies is ignored; steps are renumbered on normalization.
type RawStep struct {
	Description string `json:"description"`
	Confidence  string `json:"confidence,omitempty"`
}

// Parse decodes data into a Raw. It is total.
func Parse(data []byte) Raw {
	var r Raw
	r.decode(data)
	return r
}

// UnmarshalJSON decodes leniently and always returns nil.
func (r *Raw) UnmarshalJSON(data []byte) error {
	r.decode(data)
	return nil
}

// decode replaces r with what can be read from data. Array items may be
// plain strings or objects; snake_case keys are accepted alongside camelCase.
func (r *Raw) decode(data []byte) {
	*r = Raw{}
	obj := object(data)
	if obj == nil {
		return
	}

	for _, item := range array(field(obj, "assumptions")) {
		a := RawAssumption{Text: text(item, "text", "assumption", "description")}
		if o := object(item); o != nil {
			a.Confidence = str(field(o, "confidence"))
			a.NeedsUserInput = boolean(field(o, "needsUserInput", "needs_user_input"))
		}
		if a.Text != "" {
			r.Assumptions = append(r.Assumptions, a)
		}
	}

	for _, item := range array(field(obj, "uncertainties")) {
		u := RawUncertainty{Question: text(item, "question", "text")}
		if o := object(item); o != nil {
			u.SuggestedContexts = stringList(field(o, "suggestedContexts", "suggested_contexts"))
			u.Priority = str(field(o, "priority"))
		}
		if u.Question != "" {
			r.Uncertainties = append(r.Uncertainties, u)
		}
	}

	r.ConfidenceLevel = str(field(obj, "confidenceLevel", "confidence_level", "confidence"))

	for _, item := range array(field(obj, "reasoningChain", "reasoning_chain", "reasoning")) {
		s := RawStep{Description: text(item, "description", "step", "text")}
		if o := object(item); o != nil {
			s.Confidence = str(field(o, "confidence"))
		}
		if s.Description != "" {
			r.ReasoningChain = append(r.ReasoningChain, s)
		}
	}

	r.SuggestedContexts = stringList(field(obj, "suggestedContexts", "suggested_contexts"))
}

func object(data json.RawMessage) map[string]json.RawMessage {
	if len(data) == 0 {
		return nil
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(data, &m); err != nil {
		return nil
	}
	return m
}

func array(data json.RawMessage) []json.RawMessage {
	if len(data) == 0 {
		return nil
	}
	var a []json.RawMessage
	if err := json.Unmarshal(data, &a); err != nil {
		return nil
	}
	return a
}

func field(obj map[string]json.RawMessage, names ...string) json.RawMessage {
	for _, n := range names {
		if v, ok := obj[n]; ok {
			return v
		}
	}
	return nil
}

func str(data json.RawMessage) string {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func boolean(data json.RawMessage) bool {
	var b bool
	if err := json.Unmarshal(data, &b); err == nil {
		return b
	}
	return strings.EqualFold(str(data), "true")
}

// text reads item as a bare string, or as an object's first non-empty key.
func text(item json.RawMessage, keys ...string) string {
	if s := str(item); s != "" {
		return s
	}
	o := object(item)
	if o == nil {
		return ""
	}
	for _, k := range keys {
		if s := str(o[k]); s != "" {
			return s
		}
	}
	return ""
}

func stringList(data json.RawMessage) []string {
	var out []string
	for _, item := range array(data) {
		if s := str(item); s != "" {
			out = append(out, s)
		}
	}
	return out
}
