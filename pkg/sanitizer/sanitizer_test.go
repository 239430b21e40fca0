package sanitizer

import "testing"

func TestTrimAndNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"   ", ""},
		{"Room A", "Room A"},
		{"  Room   A  ", "Room A"},
		{"Conference\tRoom\n1", "Conference Room 1"},
	}

	for _, tc := range cases {
		if got := TrimAndNormalize(tc.in); got != tc.want {
			t.Errorf("TrimAndNormalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestNormalizeLabel(t *testing.T) {
	if got := NormalizeLabel("  Meeting  ROOM "); got != "meeting room" {
		t.Errorf("NormalizeLabel = %q, want %q", got, "meeting room")
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := NormalizeEmail("  Alice@Example.COM "); got != "alice@example.com" {
		t.Errorf("NormalizeEmail = %q, want %q", got, "alice@example.com")
	}
}
