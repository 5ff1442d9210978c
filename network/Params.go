package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
)

// Param is a named copy of a learnable tensor
type Param struct {
	Shape []int
	Data  []float64
}

// Snapshot returns copies of all learnables of the network, keyed by
// node name
func (n *Net) Snapshot() map[string]Param {
	params := make(map[string]Param, len(n.learnables))
	for _, node := range n.learnables {
		data := valueData(node)
		p := Param{
			Shape: append([]int{}, node.Shape()...),
			Data:  make([]float64, len(data)),
		}
		copy(p.Data, data)
		params[node.Name()] = p
	}
	return params
}

// Restore copies params into the learnables of the network. Every
// learnable must be present in params with a matching shape.
func (n *Net) Restore(params map[string]Param) error {
	for _, node := range n.learnables {
		p, ok := params[node.Name()]
		if !ok {
			return fmt.Errorf("restore: missing parameter %v", node.Name())
		}
		data := valueData(node)
		if len(p.Data) != len(data) || !sameShape(p.Shape, node.Shape()) {
			return fmt.Errorf("restore: parameter %v has shape %v, "+
				"expected %v", node.Name(), p.Shape, node.Shape())
		}
	}

	for _, node := range n.learnables {
		copy(valueData(node), params[node.Name()].Data)
	}
	return nil
}

// Set copies the weights of source into n
func (n *Net) Set(source NeuralNet) error {
	if err := n.compatible(source); err != nil {
		return fmt.Errorf("set: %w", err)
	}

	sourceLearnables := source.Learnables()
	for i, node := range n.learnables {
		copy(valueData(node), valueData(sourceLearnables[i]))
	}
	return nil
}

// Polyak sets the weights of n to a Polyak average with the weights of
// source: w ← w*(1-tau) + source*tau. tau must be in [0, 1].
func (n *Net) Polyak(source NeuralNet, tau float64) error {
	if tau < 0 || tau > 1 {
		return fmt.Errorf("polyak: tau must be in [0, 1], got %v", tau)
	}
	if err := n.compatible(source); err != nil {
		return fmt.Errorf("polyak: %w", err)
	}
	switch tau {
	case 0:
		return nil
	case 1:
		return n.Set(source)
	}

	sourceLearnables := source.Learnables()
	for i, node := range n.learnables {
		dst := valueData(node)
		src := valueData(sourceLearnables[i])
		for j := range dst {
			dst[j] = dst[j]*(1-tau) + src[j]*tau
		}
	}
	return nil
}

// compatible returns an error if the weights of source cannot be copied
// into n
func (n *Net) compatible(source NeuralNet) error {
	if source.Kind() != n.kind {
		return fmt.Errorf("cannot copy %v network into %v network",
			source.Kind(), n.kind)
	}
	if !n.arch.equal(source.Architecture()) {
		return fmt.Errorf("architectures differ")
	}
	if len(source.Learnables()) != len(n.learnables) {
		return fmt.Errorf("expected %v learnables, got %v",
			len(n.learnables), len(source.Learnables()))
	}
	return nil
}

// valueData returns the backing data of the value bound to node
func valueData(node *G.Node) []float64 {
	return node.Value().Data().([]float64)
}

func sameShape(a []int, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
