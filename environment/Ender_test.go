package environment

import (
	"testing"

	"gonum.org/v1/gonum/spatial/r1"
)

func TestStepLimit(t *testing.T) {
	limit := NewStepLimit(3)
	for step, want := range []bool{false, false, false, true, true} {
		if got := limit.End(step); got != want {
			t.Errorf("step %v: want %v, got %v", step, want, got)
		}
	}
	if NewStepLimit(0).End(1000) {
		t.Error("a zero limit must never end episodes")
	}
}

func TestIntervalLimit(t *testing.T) {
	limit := NewIntervalLimit(r1.Interval{Min: -1, Max: 2})
	for _, test := range []struct {
		v    float64
		want bool
	}{
		{-1.5, true},
		{-1, false},
		{0, false},
		{2, false},
		{2.1, true},
	} {
		if got := limit.End(test.v); got != test.want {
			t.Errorf("%v: want %v, got %v", test.v, test.want, got)
		}
	}
}
