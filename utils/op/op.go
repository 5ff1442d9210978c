// Package op provides extended Gorgonia graph operations.
package op

import (
	"fmt"
	"math"

	G "gorgonia.org/gorgonia"
)

// GaussianLogPdf calculates the log of the probability density of
// samples drawn from diagonal Gaussian distributions with mean mean and
// log standard deviation logStd.
//
// All arguments should be matrices of the same size m x n. Row i holds
// the n-dimensional mean, log standard deviation and sample of the i-th
// element in the batch. The returned node is the vector of the m log
// densities.
func GaussianLogPdf(mean, logStd, samples *G.Node) (*G.Node, error) {
	graph := mean.Graph()
	if graph != logStd.Graph() || graph != samples.Graph() {
		return nil, fmt.Errorf("gaussianLogPdf: all nodes must share the " +
			"same graph")
	}
	if !mean.Shape().Eq(logStd.Shape()) || !mean.Shape().Eq(samples.Shape()) {
		return nil, fmt.Errorf("gaussianLogPdf: shapes %v, %v and %v "+
			"differ", mean.Shape(), logStd.Shape(), samples.Shape())
	}
	if mean.Shape().Dims() != 2 {
		return nil, fmt.Errorf("gaussianLogPdf: expected matrices, got "+
			"shape %v", mean.Shape())
	}

	// -0.5 * ((x - μ) / σ)^2 - log σ - 0.5 log 2π
	scaled := G.Must(G.HadamardDiv(G.Must(G.Sub(samples, mean)),
		G.Must(G.Exp(logStd))))
	logPdf := G.Must(G.HadamardProd(G.NewConstant(-0.5),
		G.Must(G.Square(scaled))))
	logPdf = G.Must(G.Sub(logPdf, logStd))
	logPdf = G.Must(G.Sub(logPdf, G.NewConstant(0.5*math.Log(2*math.Pi))))

	return G.Sum(logPdf, 1)
}
