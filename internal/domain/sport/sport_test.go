package sport

import (
	"testing"
	"time"
)

func TestParse(t *testing.T) {
	cases := map[string]Sport{
		"Football":          Football,
		"soccer":            Football,
		" NBA ":             Basketball,
		"american football": AmericanFootball,
		"nhl":               IceHockey,
	}
	for input, want := range cases {
		got, ok := Parse(input)
		if !ok || got != want {
			t.Fatalf("Parse(%q) = %q,%v want %q", input, got, ok, want)
		}
	}
	if _, ok := Parse("curling"); ok {
		t.Fatalf("expected unknown sport to be rejected")
	}
}

func TestExpectedDuration(t *testing.T) {
	if got := Football.ExpectedDuration(); got != 2*time.Hour {
		t.Fatalf("unexpected football duration: %s", got)
	}
	if got := Sport("darts").ExpectedDuration(); got != 3*time.Hour {
		t.Fatalf("unexpected fallback duration: %s", got)
	}
}
