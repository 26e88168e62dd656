package security

import (
	"strings"
	"testing"
)

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{name: "Plain text", input: "Team standup", want: "Team standup"},
		{name: "Surrounding whitespace", input: "  Lunch  ", want: "Lunch"},
		{name: "Script tag", input: "<script>alert(1)</script>Party", want: "Party"},
		{name: "Bold tag", input: "<b>Gym</b>", want: "Gym"},
		{name: "Ampersand survives", input: "Tom & Jerry", want: "Tom & Jerry"},
		{name: "Apostrophe survives", input: "Mom's birthday", want: "Mom's birthday"},
		{name: "Null bytes", input: "Cof\x00fee", want: "Coffee"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := SanitizeText(tt.input); got != tt.want {
				t.Errorf("SanitizeText(%q) = %q, want %q", tt.input, got, tt.want)
			}
		})
	}
}

func TestSanitizeString_Length(t *testing.T) {
	long := strings.Repeat("é", 600) // 1200 bytes
	got := SanitizeString(long)
	if len(got) > 1000 {
		t.Errorf("len(SanitizeString()) = %d, want <= 1000", len(got))
	}
	if !strings.HasPrefix(long, got) {
		t.Error("SanitizeString() split a multi-byte rune")
	}
}
