package agent

import "github.com/hrvisionhq/visionagent/internal/telegram"

// ContextWindow returns the targetID message and up to limit-1 messages
// preceding it in the slice, preserving order. Returns nil when the target
// is absent; the caller falls back to a one-element window around the
// target it already holds.
func ContextWindow(messages []telegram.Message, targetID int64, limit int) []telegram.Message {
	if limit <= 0 {
		limit = 1
	}
	for i, m := range messages {
		if m.ID == targetID {
			start := i + 1 - limit
			if start < 0 {
				start = 0
			}
			return messages[start : i+1]
		}
	}
	return nil
}
