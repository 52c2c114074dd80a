package telegram

import "testing"

func TestSplitID(t *testing.T) {
	cases := []struct {
		name     string
		id       int64
		wantKind EntityKind
		wantBare int64
	}{
		{"channel", -1001234567890, KindChannel, 1234567890},
		{"basic group", -987654, KindGroup, 987654},
		{"user", 42, KindUser, 42},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			kind, bare := SplitID(tc.id)
			if kind != tc.wantKind || bare != tc.wantBare {
				t.Errorf("SplitID(%d) = (%v, %d), want (%v, %d)", tc.id, kind, bare, tc.wantKind, tc.wantBare)
			}
		})
	}
}

func TestEntityKeyRoundTrip(t *testing.T) {
	for _, id := range []int64{-1001234567890, -987654, 42} {
		kind, bare := SplitID(id)
		ent := Entity{Kind: kind, ID: bare}
		if got := ent.Key(); got != id {
			t.Errorf("Key(SplitID(%d)) = %d", id, got)
		}
	}
}

func TestChannelKey(t *testing.T) {
	if got := ChannelKey(1234567890); got != -1001234567890 {
		t.Errorf("ChannelKey = %d, want -1001234567890", got)
	}
}
