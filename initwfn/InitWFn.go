// Package initwfn wraps Gorgonia InitWFn so that weight initialisers can
// be described in configuration files.
package initwfn

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Type describes different types of InitWFn that are available.
type Type string

// Available InitWFn types
const (
	GlorotU  Type = "GlorotU"
	GlorotN  Type = "GlorotN"
	HeU      Type = "HeU"
	HeN      Type = "HeN"
	Gaussian Type = "Gaussian"
	Uniform  Type = "Uniform"
	Zeroes   Type = "Zeroes"
	Ones     Type = "Ones"
)

// InitWFn describes a Gorgonia weight initialiser. Only the fields
// relevant to Type are read: Gain for the Glorot and He families,
// Mean and StdDev for Gaussian, Low and High for Uniform.
type InitWFn struct {
	Type   Type    `mapstructure:"type" yaml:"type"`
	Gain   float64 `mapstructure:"gain" yaml:"gain,omitempty"`
	Mean   float64 `mapstructure:"mean" yaml:"mean,omitempty"`
	StdDev float64 `mapstructure:"std_dev" yaml:"std_dev,omitempty"`
	Low    float64 `mapstructure:"low" yaml:"low,omitempty"`
	High   float64 `mapstructure:"high" yaml:"high,omitempty"`
}

// NewHeN returns a Kaiming (He) normal initialiser with the given gain
func NewHeN(gain float64) InitWFn {
	return InitWFn{Type: HeN, Gain: gain}
}

// NewZeroes returns an initialiser that sets all weights to 0
func NewZeroes() InitWFn {
	return InitWFn{Type: Zeroes}
}

// Default returns the initialiser used for all linear layers when none
// is configured: He normal with unit gain.
func Default() InitWFn {
	return NewHeN(1.0)
}

// Create returns the Gorgonia InitWFn described by w
func (w InitWFn) Create() (G.InitWFn, error) {
	switch w.Type {
	case GlorotU:
		return G.GlorotU(w.gain()), nil
	case GlorotN:
		return G.GlorotN(w.gain()), nil
	case HeU:
		return G.HeU(w.gain()), nil
	case HeN, "":
		return G.HeN(w.gain()), nil
	case Gaussian:
		if w.StdDev <= 0 {
			return nil, fmt.Errorf("create: gaussian initialiser requires "+
				"a positive standard deviation, got %v", w.StdDev)
		}
		return G.Gaussian(w.Mean, w.StdDev), nil
	case Uniform:
		if w.Low >= w.High {
			return nil, fmt.Errorf("create: uniform initialiser requires "+
				"low < high, got [%v, %v)", w.Low, w.High)
		}
		return G.Uniform(w.Low, w.High), nil
	case Zeroes:
		return G.Zeroes(), nil
	case Ones:
		return G.Ones(), nil
	}
	return nil, fmt.Errorf("create: unknown initialiser type %q", w.Type)
}

// gain returns the configured gain, treating an unset gain as 1
func (w InitWFn) gain() float64 {
	if w.Gain == 0 {
		return 1.0
	}
	return w.Gain
}

// String implements the fmt.Stringer interface
func (w InitWFn) String() string {
	return fmt.Sprintf("{%v InitWFn}", w.Type)
}
