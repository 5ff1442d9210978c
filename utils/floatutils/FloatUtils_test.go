package floatutils

import (
	"math"
	"testing"
)

func TestClip(t *testing.T) {
	tests := []struct {
		value, min, max, want float64
	}{
		{0.5, 0, 1, 0.5},
		{-1, 0, 1, 0},
		{2, 0, 1, 1},
		{-3, -3, -3, -3},
	}
	for _, test := range tests {
		if got := Clip(test.value, test.min, test.max); got != test.want {
			t.Errorf("Clip(%v, %v, %v): want %v, got %v", test.value,
				test.min, test.max, test.want, got)
		}
	}
}

func TestHasNaN(t *testing.T) {
	if HasNaN([]float64{0, 1, -2}) {
		t.Error("finite values reported as NaN")
	}
	if !HasNaN([]float64{0, math.NaN()}) {
		t.Error("NaN not detected")
	}
	if !HasNaN([]float64{math.Inf(-1)}) {
		t.Error("infinity not detected")
	}
	if HasNaN(nil) {
		t.Error("empty slice reported as NaN")
	}
}

func TestWrap(t *testing.T) {
	tests := []struct {
		x, want float64
	}{
		{0, 0},
		{1, 1},
		{math.Pi, -math.Pi},
		{3 * math.Pi / 2, -math.Pi / 2},
		{-3 * math.Pi / 2, math.Pi / 2},
	}
	for _, test := range tests {
		got := Wrap(test.x, -math.Pi, math.Pi)
		if math.Abs(got-test.want) > 1e-9 {
			t.Errorf("Wrap(%v): want %v, got %v", test.x, test.want, got)
		}
	}
}
