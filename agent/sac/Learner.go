package sac

import (
	"fmt"
	"math"

	"github.com/samuelfneumann/safebench/network"
	"github.com/samuelfneumann/safebench/solver"
	"github.com/samuelfneumann/safebench/utils/op"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// learner couples a network with a loss on the same graph, the tape
// machine computing the loss and its gradient, and the solver updating
// the network
type learner struct {
	name        string
	net         *network.Net
	vm          G.VM
	solver      G.Solver
	lossVal     G.Value
	maxGradNorm float64
}

func newLearner(name string, net *network.Net, loss *G.Node,
	s solver.Config, maxGradNorm float64) (*learner, error) {
	l := &learner{
		name:        name,
		net:         net,
		maxGradNorm: maxGradNorm,
	}
	G.Read(loss, &l.lossVal)

	if _, err := G.Grad(loss, net.Learnables()...); err != nil {
		return nil, fmt.Errorf("newLearner: could not compute %v "+
			"gradient: %v", name, err)
	}

	var err error
	if l.solver, err = s.Create(); err != nil {
		return nil, fmt.Errorf("newLearner: %w", err)
	}
	l.vm = G.NewTapeMachine(net.Graph(), G.BindDualValues(net.Learnables()...))

	return l, nil
}

// forward runs the graph without changing any weights
func (l *learner) forward() error {
	defer l.vm.Reset()
	if err := l.vm.RunAll(); err != nil {
		return fmt.Errorf("%v: could not run graph: %v", l.name, err)
	}
	return nil
}

// step runs the graph, clips the gradient and takes one solver step.
// The loss before the step is returned.
func (l *learner) step() (float64, error) {
	defer l.vm.Reset()
	if err := l.vm.RunAll(); err != nil {
		return 0, fmt.Errorf("%v: could not run graph: %v", l.name, err)
	}

	if _, err := solver.ClipGradNorm(l.net.Model(), l.maxGradNorm); err != nil {
		return 0, fmt.Errorf("%v: %w", l.name, err)
	}
	if err := l.solver.Step(l.net.Model()); err != nil {
		return 0, fmt.Errorf("%v: could not step solver: %v", l.name, err)
	}
	return l.loss(), nil
}

// loss returns the loss computed on the last run of the graph
func (l *learner) loss() float64 {
	if l.lossVal == nil {
		return math.NaN()
	}
	switch v := l.lossVal.Data().(type) {
	case float64:
		return v
	case []float64:
		return v[0]
	}
	return math.NaN()
}

func (l *learner) close() error {
	return l.vm.Close()
}

// critic is a state-value or action-value network trained by
// regression on externally computed targets
type critic struct {
	*learner
	target *G.Node
}

func newCritic(name string, kind network.Kind, arch network.Architecture,
	batch int, s solver.Config, maxGradNorm float64) (*critic, error) {
	g := G.NewGraph()
	net, err := network.New(g, kind, arch, batch)
	if err != nil {
		return nil, fmt.Errorf("newCritic: %w", err)
	}

	target := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(net.Prediction()[0].Shape()...),
		G.WithName("RegressionTarget"),
		G.WithInit(G.Zeroes()),
	)

	// Mean squared error
	loss := G.Must(G.Sub(net.Prediction()[0], target))
	loss = G.Must(G.Square(loss))
	loss = G.Must(G.Mean(loss))

	l, err := newLearner(name, net, loss, s, maxGradNorm)
	if err != nil {
		return nil, fmt.Errorf("newCritic: %w", err)
	}
	return &critic{learner: l, target: target}, nil
}

// setInputs sets the states and, for action-value critics, the actions
// of the next run
func (c *critic) setInputs(states, actions []float64) error {
	if err := c.net.SetInput(states); err != nil {
		return fmt.Errorf("%v: %w", c.name, err)
	}
	if c.net.Kind() == network.Q {
		if err := c.net.SetAction(actions); err != nil {
			return fmt.Errorf("%v: %w", c.name, err)
		}
	}
	return nil
}

func (c *critic) setTarget(targets []float64) error {
	backing := make([]float64, c.net.BatchSize())
	if targets != nil {
		if len(targets) != len(backing) {
			return fmt.Errorf("%v: expected %v targets, got %v", c.name,
				len(backing), len(targets))
		}
		copy(backing, targets)
	}

	t := tensor.NewDense(
		tensor.Float64,
		c.target.Shape(),
		tensor.WithBacking(backing),
	)
	return G.Let(c.target, t)
}

// predict returns the critic's values of a batch
func (c *critic) predict(states, actions []float64) ([]float64, error) {
	if err := c.setInputs(states, actions); err != nil {
		return nil, err
	}
	if err := c.setTarget(nil); err != nil {
		return nil, err
	}
	if err := c.forward(); err != nil {
		return nil, err
	}
	return c.net.Output(0), nil
}

// fit takes one step on the mean squared error between the critic's
// values and targets. The values before the step and the loss are
// returned.
func (c *critic) fit(states, actions, targets []float64) ([]float64, float64,
	error) {
	if err := c.setInputs(states, actions); err != nil {
		return nil, 0, err
	}
	if err := c.setTarget(targets); err != nil {
		return nil, 0, err
	}
	loss, err := c.step()
	if err != nil {
		return nil, 0, err
	}
	return c.net.Output(0), loss, nil
}

// actor is a Gaussian policy network trained with the surrogate loss
// mean(log N(z) * coef), where z are pre-squash samples and coef are
// detached per-row coefficients
type actor struct {
	*learner
	z    *G.Node
	coef *G.Node
}

func newActor(name string, arch network.Architecture, batch int,
	s solver.Config, maxGradNorm float64) (*actor, error) {
	g := G.NewGraph()
	net, err := network.NewActor(g, arch, batch)
	if err != nil {
		return nil, fmt.Errorf("newActor: %w", err)
	}
	mean, logStd := net.Prediction()[0], net.Prediction()[1]

	z := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, arch.ActionDim),
		G.WithName("PreSquashSamples"),
		G.WithInit(G.Zeroes()),
	)
	coef := G.NewVector(
		g,
		tensor.Float64,
		G.WithShape(batch),
		G.WithName("LogProbCoefficients"),
		G.WithInit(G.Zeroes()),
	)

	// The tanh correction does not depend on the weights and is left
	// out of the differentiated log density
	logProb, err := op.GaussianLogPdf(mean, logStd, z)
	if err != nil {
		return nil, fmt.Errorf("newActor: %w", err)
	}

	loss := G.Must(G.HadamardProd(logProb, coef))
	loss = G.Must(G.Mean(loss))

	l, err := newLearner(name, net, loss, s, maxGradNorm)
	if err != nil {
		return nil, fmt.Errorf("newActor: %w", err)
	}
	return &actor{learner: l, z: z, coef: coef}, nil
}

// distribution returns the mean and log standard deviation of the
// policy over a batch of states
func (a *actor) distribution(states []float64) ([]float64, []float64,
	error) {
	if err := a.net.SetInput(states); err != nil {
		return nil, nil, fmt.Errorf("%v: %w", a.name, err)
	}
	if err := a.setLossInputs(nil, nil); err != nil {
		return nil, nil, err
	}
	if err := a.forward(); err != nil {
		return nil, nil, err
	}
	return a.net.Output(0), a.net.Output(1), nil
}

// fit takes one step on the surrogate loss for the given pre-squash
// samples and coefficients
func (a *actor) fit(states, z, coef []float64) error {
	if err := a.net.SetInput(states); err != nil {
		return fmt.Errorf("%v: %w", a.name, err)
	}
	if err := a.setLossInputs(z, coef); err != nil {
		return err
	}
	_, err := a.step()
	return err
}

// setLossInputs sets the samples and coefficients of the loss, or
// zeroes if they are nil
func (a *actor) setLossInputs(z, coef []float64) error {
	batch, actionDim := a.net.BatchSize(), a.net.Architecture().ActionDim

	zBacking := make([]float64, batch*actionDim)
	coefBacking := make([]float64, batch)
	if z != nil {
		if len(z) != len(zBacking) || len(coef) != len(coefBacking) {
			return fmt.Errorf("%v: expected %v samples and %v "+
				"coefficients, got %v and %v", a.name, len(zBacking),
				len(coefBacking), len(z), len(coef))
		}
		copy(zBacking, z)
		copy(coefBacking, coef)
	}

	zTensor := tensor.NewDense(tensor.Float64, a.z.Shape(),
		tensor.WithBacking(zBacking))
	if err := G.Let(a.z, zTensor); err != nil {
		return fmt.Errorf("%v: could not set samples: %v", a.name, err)
	}
	coefTensor := tensor.NewDense(tensor.Float64, a.coef.Shape(),
		tensor.WithBacking(coefBacking))
	if err := G.Let(a.coef, coefTensor); err != nil {
		return fmt.Errorf("%v: could not set coefficients: %v", a.name, err)
	}
	return nil
}
