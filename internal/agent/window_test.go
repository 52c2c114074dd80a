package agent

import (
	"testing"

	"github.com/hrvisionhq/visionagent/internal/telegram"
)

func TestContextWindow(t *testing.T) {
	msgs := make([]telegram.Message, 10)
	for i := range msgs {
		msgs[i] = telegram.Message{ID: int64(i + 1)}
	}

	cases := []struct {
		name     string
		targetID int64
		limit    int
		wantIDs  []int64
	}{
		{"target mid-stream", 8, 3, []int64{6, 7, 8}},
		{"target near start", 2, 5, []int64{1, 2}},
		{"target is first", 1, 7, []int64{1}},
		{"limit one", 5, 1, []int64{5}},
		{"zero limit clamps to one", 5, 0, []int64{5}},
		{"limit larger than prefix", 10, 100, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ContextWindow(msgs, tc.targetID, tc.limit)
			if len(got) != len(tc.wantIDs) {
				t.Fatalf("window size = %d, want %d", len(got), len(tc.wantIDs))
			}
			for i, id := range tc.wantIDs {
				if got[i].ID != id {
					t.Errorf("window[%d].ID = %d, want %d", i, got[i].ID, id)
				}
			}
		})
	}
}

func TestContextWindowTargetAbsent(t *testing.T) {
	msgs := []telegram.Message{{ID: 1}, {ID: 2}}
	if got := ContextWindow(msgs, 99, 5); got != nil {
		t.Errorf("window for absent target = %v, want nil", got)
	}
}
