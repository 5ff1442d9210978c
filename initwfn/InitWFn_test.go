package initwfn

import "testing"

func TestCreate(t *testing.T) {
	valid := []InitWFn{
		Default(),
		NewZeroes(),
		{Type: GlorotU, Gain: 2},
		{Type: GlorotN},
		{Type: HeU},
		{Type: Gaussian, StdDev: 0.1},
		{Type: Uniform, Low: -1, High: 1},
		{Type: Ones},
		{},
	}
	for _, w := range valid {
		fn, err := w.Create()
		if err != nil {
			t.Errorf("create %v: %v", w, err)
			continue
		}
		if fn == nil {
			t.Errorf("create %v: nil InitWFn", w)
		}
	}

	invalid := []InitWFn{
		{Type: "Orthogonal"},
		{Type: Gaussian},
		{Type: Uniform, Low: 1, High: 1},
	}
	for _, w := range invalid {
		if _, err := w.Create(); err == nil {
			t.Errorf("create %v: expected error", w)
		}
	}
}
