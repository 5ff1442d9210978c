// Package network implements the feed-forward function approximators
// of the driving agents: actors producing the parameters of a Gaussian
// over actions, and state-value and action-value critics. Each network
// lives on a Gorgonia computational graph owned by the caller so that
// losses can be added to the same graph.
package network

import (
	G "gorgonia.org/gorgonia"
)

// Kind describes which function a network approximates
type Kind string

const (
	// Actor maps observations to the mean and log standard deviation
	// of a Gaussian over pre-squash actions
	Actor Kind = "actor"

	// Value maps observations to a scalar state value
	Value Kind = "value"

	// Q maps (observation, action) pairs to a scalar action value
	Q Kind = "q"
)

// Heads returns the number of output heads of a network of kind k
func (k Kind) Heads() int {
	if k == Actor {
		return 2
	}
	return 1
}

// NeuralNet implements a neural network on a Gorgonia graph
type NeuralNet interface {
	Graph() *G.ExprGraph
	Kind() Kind
	Architecture() Architecture
	BatchSize() int

	// SetInput sets the observation batch, flattened row-major
	SetInput(states []float64) error

	// SetAction sets the action batch of a Q network
	SetAction(actions []float64) error

	// Prediction returns the output nodes, one per head
	Prediction() []*G.Node

	// Output returns a copy of the values of head i after the graph
	// has been run
	Output(i int) []float64

	Learnables() G.Nodes
	Model() []G.ValueGrad

	// Set copies the weights of source into the receiver
	Set(source NeuralNet) error

	// Polyak sets the receiver's weights to w*(1-tau) + source*tau
	Polyak(source NeuralNet, tau float64) error

	Snapshot() map[string]Param
	Restore(params map[string]Param) error

	// CloneWithBatch returns a network of the same architecture and
	// weights on a new graph with a different batch size
	CloneWithBatch(batch int) (NeuralNet, error)
}
