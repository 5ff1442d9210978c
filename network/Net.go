package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Net is a feed-forward network of a given Kind built on a Gorgonia
// graph. The same type implements actors, state-value critics and
// action-value critics, which differ only in their inputs and heads.
type Net struct {
	kind  Kind
	arch  Architecture
	batch int
	g     *G.ExprGraph

	visual *G.Node
	scalar *G.Node
	action *G.Node

	layers   []*fcLayer
	heads    []*G.Node
	headVals []G.Value

	learnables G.Nodes
	model      []G.ValueGrad
}

// NewActor adds an actor to g. The actor has two heads, the
// tanh-bounded mean and the unbounded log standard deviation of a
// Gaussian over pre-squash actions.
func NewActor(g *G.ExprGraph, arch Architecture, batch int) (*Net, error) {
	return newNet(g, Actor, arch, batch)
}

// NewValue adds a state-value critic to g
func NewValue(g *G.ExprGraph, arch Architecture, batch int) (*Net, error) {
	return newNet(g, Value, arch, batch)
}

// NewQ adds an action-value critic to g. Actions are concatenated with
// the encoded observation before the hidden stages.
func NewQ(g *G.ExprGraph, arch Architecture, batch int) (*Net, error) {
	return newNet(g, Q, arch, batch)
}

// New adds a network of the given kind to g
func New(g *G.ExprGraph, kind Kind, arch Architecture, batch int) (*Net,
	error) {
	return newNet(g, kind, arch, batch)
}

func newNet(g *G.ExprGraph, kind Kind, arch Architecture, batch int) (*Net,
	error) {
	switch kind {
	case Actor, Value, Q:
	default:
		return nil, fmt.Errorf("newNet: unknown network kind %q", kind)
	}
	if err := arch.Validate(); err != nil {
		return nil, fmt.Errorf("newNet: %w", err)
	}
	if batch <= 0 {
		return nil, fmt.Errorf("newNet: batch size must be positive, got %v",
			batch)
	}

	init, err := arch.Init.Create()
	if err != nil {
		return nil, fmt.Errorf("newNet: could not create weight "+
			"initialiser: %w", err)
	}
	act, err := ActivationFromName(arch.Activation)
	if err != nil {
		return nil, fmt.Errorf("newNet: %w", err)
	}

	n := &Net{
		kind:  kind,
		arch:  arch,
		batch: batch,
		g:     g,
	}

	// Stage inputs which are concatenated before the hidden stages
	var stage []*G.Node
	width := 0

	if visualDim := arch.VisualDim(); visualDim > 0 {
		n.visual = G.NewMatrix(
			g,
			tensor.Float64,
			G.WithShape(batch, visualDim),
			G.WithName("visual"),
			G.WithInit(G.Zeroes()),
		)

		embedding, in := n.visual, visualDim
		for i, units := range arch.Encoder {
			layer := newFCLayer(g, fmt.Sprintf("encoder%d", i), in, units,
				init, act)
			n.layers = append(n.layers, layer)

			if embedding, err = layer.fwd(embedding); err != nil {
				return nil, fmt.Errorf("newNet: %w", err)
			}
			in = units
		}
		stage = append(stage, embedding)
		width += in
	}

	if arch.ScalarDim > 0 {
		n.scalar = G.NewMatrix(
			g,
			tensor.Float64,
			G.WithShape(batch, arch.ScalarDim),
			G.WithName("scalar"),
			G.WithInit(G.Zeroes()),
		)
		stage = append(stage, n.scalar)
		width += arch.ScalarDim
	}

	if kind == Q {
		n.action = G.NewMatrix(
			g,
			tensor.Float64,
			G.WithShape(batch, arch.ActionDim),
			G.WithName("action"),
			G.WithInit(G.Zeroes()),
		)
		stage = append(stage, n.action)
		width += arch.ActionDim
	}

	hidden := stage[0]
	if len(stage) > 1 {
		if hidden, err = G.Concat(1, stage...); err != nil {
			return nil, fmt.Errorf("newNet: could not concatenate "+
				"features: %v", err)
		}
	}

	in := width
	for i, units := range arch.Hidden {
		layer := newFCLayer(g, fmt.Sprintf("hidden%d", i), in, units, init,
			act)
		n.layers = append(n.layers, layer)

		if hidden, err = layer.fwd(hidden); err != nil {
			return nil, fmt.Errorf("newNet: %w", err)
		}
		in = units
	}

	var heads []*fcLayer
	if kind == Actor {
		heads = []*fcLayer{
			newFCLayer(g, "mean", in, arch.ActionDim, init, TanH()),
			newFCLayer(g, "log_std", in, arch.ActionDim, init, nil),
		}
	} else {
		heads = []*fcLayer{newFCLayer(g, "out", in, 1, init, nil)}
	}

	n.heads = make([]*G.Node, len(heads))
	n.headVals = make([]G.Value, len(heads))
	for i, head := range heads {
		n.layers = append(n.layers, head)
		out, err := head.fwd(hidden)
		if err != nil {
			return nil, fmt.Errorf("newNet: %w", err)
		}
		n.heads[i] = out
		G.Read(n.heads[i], &n.headVals[i])
	}

	for _, layer := range n.layers {
		n.learnables = append(n.learnables, layer.learnables()...)
	}
	n.model = make([]G.ValueGrad, len(n.learnables))
	for i, learnable := range n.learnables {
		n.model[i] = learnable
	}

	return n, nil
}

// Graph returns the computational graph of the network
func (n *Net) Graph() *G.ExprGraph {
	return n.g
}

// Kind returns the kind of function the network approximates
func (n *Net) Kind() Kind {
	return n.kind
}

// Architecture returns the layout of the network
func (n *Net) Architecture() Architecture {
	return n.arch
}

// BatchSize returns the number of rows the network processes per run
func (n *Net) BatchSize() int {
	return n.batch
}

// SetInput sets the observation batch. The states are flattened
// row-major and must hold BatchSize() rows of StateDim columns.
func (n *Net) SetInput(states []float64) error {
	cols := n.arch.StateDim
	if len(states) != n.batch*cols {
		return fmt.Errorf("setInput: invalid number of values: expected "+
			"%v (batch %v x state dim %v), got %v", n.batch*cols, n.batch,
			cols, len(states))
	}

	visualDim := n.arch.VisualDim()
	scalarDim := n.arch.ScalarDim
	visual := make([]float64, 0, n.batch*visualDim)
	scalar := make([]float64, 0, n.batch*scalarDim)
	for row := 0; row < n.batch; row++ {
		start := row * cols
		visual = append(visual, states[start:start+visualDim]...)
		scalar = append(scalar, states[start+visualDim:start+cols]...)
	}

	if n.visual != nil {
		t := tensor.New(
			tensor.WithShape(n.batch, visualDim),
			tensor.WithBacking(visual),
		)
		if err := G.Let(n.visual, t); err != nil {
			return fmt.Errorf("setInput: could not set visual block: %v",
				err)
		}
	}
	if n.scalar != nil {
		t := tensor.New(
			tensor.WithShape(n.batch, scalarDim),
			tensor.WithBacking(scalar),
		)
		if err := G.Let(n.scalar, t); err != nil {
			return fmt.Errorf("setInput: could not set scalar block: %v",
				err)
		}
	}
	return nil
}

// SetAction sets the action batch of a Q network, flattened row-major
func (n *Net) SetAction(actions []float64) error {
	if n.action == nil {
		return fmt.Errorf("setAction: %v network has no action input", n.kind)
	}
	if len(actions) != n.batch*n.arch.ActionDim {
		return fmt.Errorf("setAction: invalid number of values: expected "+
			"%v, got %v", n.batch*n.arch.ActionDim, len(actions))
	}

	backing := make([]float64, len(actions))
	copy(backing, actions)
	t := tensor.New(
		tensor.WithShape(n.batch, n.arch.ActionDim),
		tensor.WithBacking(backing),
	)
	return G.Let(n.action, t)
}

// Prediction returns the output nodes of the network
func (n *Net) Prediction() []*G.Node {
	return n.heads
}

// Output returns a copy of the values of head i computed on the last
// run of the graph, or nil if the graph has not been run.
func (n *Net) Output(i int) []float64 {
	if i < 0 || i >= len(n.headVals) || n.headVals[i] == nil {
		return nil
	}
	data := n.headVals[i].Data().([]float64)
	out := make([]float64, len(data))
	copy(out, data)
	return out
}

// Learnables returns the learnable nodes of the network, in layer order
func (n *Net) Learnables() G.Nodes {
	return n.learnables
}

// Model returns the learnables of the network as G.ValueGrads
func (n *Net) Model() []G.ValueGrad {
	return n.model
}

// CloneWithBatch returns a network with the same architecture and
// weights on a new graph, processing batch rows per run
func (n *Net) CloneWithBatch(batch int) (NeuralNet, error) {
	clone, err := newNet(G.NewGraph(), n.kind, n.arch, batch)
	if err != nil {
		return nil, fmt.Errorf("cloneWithBatch: %w", err)
	}
	if err := clone.Set(n); err != nil {
		return nil, fmt.Errorf("cloneWithBatch: %w", err)
	}
	return clone, nil
}
