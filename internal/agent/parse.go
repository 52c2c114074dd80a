package agent

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Routing decisions produced by the fast model (stage one).
const DecisionReply = "reply"

// RoutingDecision is one per-message verdict from the router. The model may
// omit messages it has no opinion on.
type RoutingDecision struct {
	MessageID int64  `json:"message_id"`
	Decision  string `json:"decision"`
	Persona   string `json:"persona"`
}

// Lead categories produced by the lead classifier.
const (
	LeadHot  = "hot_lead"
	LeadCold = "cold_lead"
)

// LeadDecision is one per-message lead verdict.
type LeadDecision struct {
	MessageID int64  `json:"message_id"`
	LeadType  string `json:"lead_type"`
}

type generatedReply struct {
	MessageText      string `json:"message_text"`
	ReplyToMessageID int64  `json:"reply_to_message_id"`
}

type generatedPitch struct {
	PitchText string `json:"pitch_text"`
}

// stripFence removes an optional markdown code fence around model output.
// Models regularly wrap JSON in ```json fences despite instructions.
func stripFence(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// decodeModelArray sanitizes raw model output and parses it as a JSON array.
// An empty array is a valid "nothing to do" result, not an error.
func decodeModelArray[T any](raw string) ([]T, error) {
	cleaned := stripFence(raw)
	var out []T
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return nil, fmt.Errorf("model output is not a JSON array: %w", err)
	}
	return out, nil
}

// decodeModelObject sanitizes raw model output and parses it as a single
// JSON object.
func decodeModelObject[T any](raw string) (T, error) {
	var out T
	cleaned := stripFence(raw)
	if err := json.Unmarshal([]byte(cleaned), &out); err != nil {
		return out, fmt.Errorf("model output is not a JSON object: %w", err)
	}
	return out, nil
}

// truncateForLog bounds raw model output attached to diagnostic logs.
func truncateForLog(s string) string {
	const max = 500
	if len(s) > max {
		return s[:max] + "..."
	}
	return s
}
