package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// fcLayer implements a fully connected layer of a feed forward neural
// network
type fcLayer struct {
	name    string
	weights *G.Node
	bias    *G.Node
	act     *Activation
}

// newFCLayer adds the weights and bias of a fully connected layer with
// in inputs and out outputs to g. Biases are always initialised to 0.
func newFCLayer(g *G.ExprGraph, name string, in, out int,
	init G.InitWFn, act *Activation) *fcLayer {
	weights := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(in, out),
		G.WithName(name+"/weights"),
		G.WithInit(init),
	)

	bias := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(1, out),
		G.WithName(name+"/bias"),
		G.WithInit(G.Zeroes()),
	)

	return &fcLayer{
		name:    name,
		weights: weights,
		bias:    bias,
		act:     act,
	}
}

// fwd adds the forward pass of the fcLayer to the computational graph
func (f *fcLayer) fwd(x *G.Node) (*G.Node, error) {
	out, err := G.Mul(x, f.weights)
	if err != nil {
		return nil, fmt.Errorf("fwd: could not multiply weights of "+
			"layer %v: %v", f.name, err)
	}

	// Broadcast the bias weights to all samples along the batch
	// dimension
	out, err = G.BroadcastAdd(out, f.bias, nil, []byte{0})
	if err != nil {
		return nil, fmt.Errorf("fwd: could not add bias of layer %v: %v",
			f.name, err)
	}

	if f.act == nil {
		return out, nil
	}
	return f.act.fwd(out)
}

// learnables returns the weights and bias of the layer
func (f *fcLayer) learnables() G.Nodes {
	return G.Nodes{f.weights, f.bias}
}
