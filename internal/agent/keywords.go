package agent

import (
	"strings"

	"github.com/hrvisionhq/visionagent/internal/telegram"
)

// KeywordAlert pairs a matched message with the keyword that fired.
type KeywordAlert struct {
	Message telegram.Message
	Keyword string
}

// KeywordAlerts scans the window for trigger keywords, case-insensitive
// substring match. A message alerts at most once, on the first keyword in
// list order; keyword matching runs before and independent of the LLM
// pipeline, so an alerted message can still receive a reply.
func KeywordAlerts(messages []telegram.Message, keywords []string) []KeywordAlert {
	if len(keywords) == 0 {
		return nil
	}
	var alerts []KeywordAlert
	for _, m := range messages {
		lower := strings.ToLower(m.Text)
		for _, kw := range keywords {
			kw = strings.TrimSpace(kw)
			if kw == "" {
				continue
			}
			if strings.Contains(lower, strings.ToLower(kw)) {
				alerts = append(alerts, KeywordAlert{Message: m, Keyword: kw})
				break
			}
		}
	}
	return alerts
}
