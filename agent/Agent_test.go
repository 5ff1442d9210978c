package agent

import (
	"errors"
	"testing"
)

func TestParseMode(t *testing.T) {
	for _, s := range []string{"train", "eval"} {
		m, err := ParseMode(s)
		if err != nil {
			t.Errorf("parse %q: %v", s, err)
		}
		if string(m) != s {
			t.Errorf("parse %q: got %q", s, m)
		}
	}

	for _, s := range []string{"", "Train", "evaluate", "test"} {
		if _, err := ParseMode(s); !errors.Is(err, ErrUnknownMode) {
			t.Errorf("parse %q: expected ErrUnknownMode, got %v", s, err)
		}
	}
}

func TestUpdateStatsString(t *testing.T) {
	if got := (UpdateStats{}).String(); got != "{skipped}" {
		t.Errorf("unexpected skipped string %q", got)
	}

	stats := UpdateStats{
		Iterations: 2,
		Losses:     map[string]float64{"value": 1, "policy": 0.5},
	}
	want := "{iterations: 2, policy: 0.5000, value: 1.0000}"
	if got := stats.String(); got != want {
		t.Errorf("want %q, got %q", want, got)
	}
}
