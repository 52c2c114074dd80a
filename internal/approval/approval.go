// Package approval hands proposed actions to the external human-approval
// workflow. Delivery is fire-and-best-effort: a failed submission is logged
// and dropped, never retried in-process.
package approval

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// Action is the wire record submitted for approval. Fields are populated
// per action type; omitempty keeps unrelated fields off the wire so the
// worker's payloads stay small.
type Action struct {
	ActionUID  string `json:"action_uid"`
	ActionType string `json:"action_type"`

	// Reply and keyword-alert routing.
	TargetChatID     int64  `json:"target_chat_id,omitempty"`
	TargetUserID     int64  `json:"target_user_id,omitempty"`
	ReplyToMessageID int64  `json:"reply_to_message_id,omitempty"`
	MessageText      string `json:"message_text,omitempty"`

	// Provenance for approval-log analytics.
	Persona             string `json:"persona,omitempty"`
	ModelVersion        string `json:"model_version,omitempty"`
	PromptVersion       string `json:"prompt_version,omitempty"`
	OriginalMessageText string `json:"original_message_text,omitempty"`

	// Lead outreach.
	LeadType          string `json:"lead_type,omitempty"`
	LeadUserID        int64  `json:"lead_user_id,omitempty"`
	LeadUsername      string `json:"lead_username,omitempty"`
	LeadFirstName     string `json:"lead_first_name,omitempty"`
	OriginalMessageID int64  `json:"original_message_id,omitempty"`
	SourceChatID      int64  `json:"source_chat_id,omitempty"`
	PitchText         string `json:"pitch_text,omitempty"`
}

// Sink accepts finalized actions. Satisfied by Client; tests substitute a
// recording fake.
type Sink interface {
	Submit(ctx context.Context, action Action) error
}

// Client posts actions to the approval endpoint.
type Client struct {
	url    string
	client *http.Client
}

func NewClient(url string) *Client {
	return &Client{
		url:    url,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// Submit sends one action. Any 2xx response is success; everything else is
// an error for the caller to log. The ActionUID is assigned here if unset,
// so downstream analytics can correlate the approval decision with this
// submission.
func (c *Client) Submit(ctx context.Context, action Action) error {
	if action.ActionUID == "" {
		action.ActionUID = uuid.NewString()
	}

	body, err := json.Marshal(action)
	if err != nil {
		return fmt.Errorf("approval: encode action: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("approval: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("approval: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return fmt.Errorf("approval: status %d: %s", resp.StatusCode, snippet)
	}
	return nil
}
