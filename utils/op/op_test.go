package op

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

func matrix(g *G.ExprGraph, name string, rows, cols int,
	data []float64) *G.Node {
	return G.NewMatrix(g, tensor.Float64, G.WithShape(rows, cols),
		G.WithName(name),
		G.WithValue(tensor.NewDense(tensor.Float64, []int{rows, cols},
			tensor.WithBacking(data))))
}

func TestGaussianLogPdf(t *testing.T) {
	mean := []float64{0, 1, -2, 0.5}
	logStd := []float64{0, -0.5, 0.3, 1}
	samples := []float64{0.3, 1.2, -1, -0.4}

	g := G.NewGraph()
	logPdf, err := GaussianLogPdf(
		matrix(g, "mean", 2, 2, mean),
		matrix(g, "logStd", 2, 2, logStd),
		matrix(g, "samples", 2, 2, samples),
	)
	if err != nil {
		t.Fatal(err)
	}
	var val G.Value
	G.Read(logPdf, &val)

	vm := G.NewTapeMachine(g)
	defer vm.Close()
	if err := vm.RunAll(); err != nil {
		t.Fatal(err)
	}
	got := val.Data().([]float64)

	for row := 0; row < 2; row++ {
		var want float64
		for col := 0; col < 2; col++ {
			i := row*2 + col
			n := distuv.Normal{Mu: mean[i], Sigma: math.Exp(logStd[i])}
			want += n.LogProb(samples[i])
		}
		if math.Abs(got[row]-want) > 1e-10 {
			t.Errorf("row %v: want %v, got %v", row, want, got[row])
		}
	}
}

func TestGaussianLogPdfShapes(t *testing.T) {
	g := G.NewGraph()
	a := matrix(g, "a", 2, 2, make([]float64, 4))
	b := matrix(g, "b", 2, 1, make([]float64, 2))
	if _, err := GaussianLogPdf(a, b, a); err == nil {
		t.Error("expected error for mismatched shapes")
	}

	other := matrix(G.NewGraph(), "c", 2, 2, make([]float64, 4))
	if _, err := GaussianLogPdf(a, a, other); err == nil {
		t.Error("expected error for nodes of different graphs")
	}
}
