package sac

import (
	"fmt"

	"github.com/samuelfneumann/safebench/agent/policy"
	"github.com/samuelfneumann/safebench/expreplay"
	"github.com/samuelfneumann/safebench/network"
	G "gorgonia.org/gorgonia"
)

// groups names the checkpoint groups of an actorCritic
type groups struct {
	policy, value, q string
}

var (
	taskGroups = groups{
		policy: "policy_net",
		value:  "value_net",
		q:      "Q_net",
	}
	riskGroups = groups{
		policy: "policy_recovery_net",
		value:  "value_risk_net",
		q:      "Q_risk_net",
	}
)

// actorCritic is a Gaussian actor with its state-value critic, its
// action-value critic and a target copy of the state-value critic
// which is only ever Polyak-updated. The agent uses one actorCritic
// for the task objective and, if recovery is enabled, one for the risk
// objective; both are driven by the same update routine.
type actorCritic struct {
	groups  groups
	actor   *actor
	value   *critic
	q       *critic
	sampler *policy.SquashedGaussian

	target   *network.Net
	targetVM G.VM

	// Batch-1 copies of the actor and action-value critic used to
	// select actions, synced lazily after updates
	behaviour   *network.Net
	behaviourVM G.VM
	qEval       *network.Net
	qEvalVM     G.VM
	stale       bool
}

func newActorCritic(g groups, c Config, seed uint64) (*actorCritic, error) {
	arch := c.Architecture()
	s := c.solver()

	actor, err := newActor(g.policy, arch, c.BatchSize, s, c.MaxGradNorm)
	if err != nil {
		return nil, fmt.Errorf("newActorCritic: %w", err)
	}
	value, err := newCritic(g.value, network.Value, arch, c.BatchSize, s,
		c.MaxGradNorm)
	if err != nil {
		return nil, fmt.Errorf("newActorCritic: %w", err)
	}
	q, err := newCritic(g.q, network.Q, arch, c.BatchSize, s, c.MaxGradNorm)
	if err != nil {
		return nil, fmt.Errorf("newActorCritic: %w", err)
	}

	// The target starts as an exact copy of the value critic
	target, err := value.net.CloneWithBatch(c.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("newActorCritic: could not create target "+
			"critic: %w", err)
	}

	behaviour, err := actor.net.CloneWithBatch(1)
	if err != nil {
		return nil, fmt.Errorf("newActorCritic: could not create "+
			"behaviour policy: %w", err)
	}
	qEval, err := q.net.CloneWithBatch(1)
	if err != nil {
		return nil, fmt.Errorf("newActorCritic: could not create "+
			"action-value evaluator: %w", err)
	}

	sampler, err := policy.NewSquashedGaussian(arch.ActionDim, c.MinVal, seed)
	if err != nil {
		return nil, fmt.Errorf("newActorCritic: %w", err)
	}

	return &actorCritic{
		groups:      g,
		actor:       actor,
		value:       value,
		q:           q,
		sampler:     sampler,
		target:      target.(*network.Net),
		targetVM:    G.NewTapeMachine(target.Graph()),
		behaviour:   behaviour.(*network.Net),
		behaviourVM: G.NewTapeMachine(behaviour.Graph()),
		qEval:       qEval.(*network.Net),
		qEvalVM:     G.NewTapeMachine(qEval.Graph()),
	}, nil
}

// sync copies the live actor and action-value critic into their
// batch-1 copies if they changed since the last sync
func (p *actorCritic) sync() error {
	if !p.stale {
		return nil
	}
	if err := p.behaviour.Set(p.actor.net); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	if err := p.qEval.Set(p.q.net); err != nil {
		return fmt.Errorf("sync: %w", err)
	}
	p.stale = false
	return nil
}

// act returns the action of the actor in a single state. In
// deterministic mode the unsquashed mean is returned.
func (p *actorCritic) act(state []float64, deterministic bool) ([]float64,
	error) {
	if err := p.sync(); err != nil {
		return nil, err
	}
	if err := p.behaviour.SetInput(state); err != nil {
		return nil, fmt.Errorf("act: %w", err)
	}
	if err := run(p.behaviourVM); err != nil {
		return nil, fmt.Errorf("act: %w", err)
	}

	mean := p.behaviour.Output(0)
	if deterministic {
		return p.sampler.Mean(mean), nil
	}

	sample, err := p.sampler.Sample(mean, p.behaviour.Output(1))
	if err != nil {
		return nil, fmt.Errorf("act: %w", err)
	}
	return sample.Action, nil
}

// qValue returns the action value of a single state-action pair
func (p *actorCritic) qValue(state, action []float64) (float64, error) {
	if err := p.sync(); err != nil {
		return 0, err
	}
	if err := p.qEval.SetInput(state); err != nil {
		return 0, fmt.Errorf("qValue: %w", err)
	}
	if err := p.qEval.SetAction(action); err != nil {
		return 0, fmt.Errorf("qValue: %w", err)
	}
	if err := run(p.qEvalVM); err != nil {
		return 0, fmt.Errorf("qValue: %w", err)
	}
	return p.qEval.Output(0)[0], nil
}

// estimate holds the quantities of an actorCritic needed to build the
// losses of one update
type estimate struct {
	// nextValue is the target critic's value of the next states
	nextValue []float64

	// sample holds actions drawn from the current actor in the states
	sample policy.Sample

	// newQ is the action value of the freshly sampled actions
	newQ []float64
}

// estimate evaluates the target critic on the next states, samples
// fresh actions from the current actor and evaluates them with the
// action-value critic
func (p *actorCritic) estimate(b expreplay.Batch) (estimate, error) {
	if err := p.target.SetInput(b.NextState); err != nil {
		return estimate{}, fmt.Errorf("estimate: %w", err)
	}
	if err := run(p.targetVM); err != nil {
		return estimate{}, fmt.Errorf("estimate: %w", err)
	}
	nextValue := p.target.Output(0)

	mean, logStd, err := p.actor.distribution(b.State)
	if err != nil {
		return estimate{}, fmt.Errorf("estimate: %w", err)
	}
	sample, err := p.sampler.Sample(mean, logStd)
	if err != nil {
		return estimate{}, fmt.Errorf("estimate: %w", err)
	}

	newQ, err := p.q.predict(b.State, sample.Action)
	if err != nil {
		return estimate{}, fmt.Errorf("estimate: %w", err)
	}

	return estimate{
		nextValue: nextValue,
		sample:    sample,
		newQ:      newQ,
	}, nil
}

// fitPolicy takes one step on the surrogate policy loss
// mean(logπ * detach(logπ - target)) and returns its value
func (p *actorCritic) fitPolicy(states []float64, sample policy.Sample,
	target []float64) (float64, error) {
	coef := make([]float64, len(target))
	var loss float64
	for i := range coef {
		coef[i] = sample.LogProb[i] - target[i]
		loss += sample.LogProb[i] * coef[i]
	}
	loss /= float64(len(coef))

	if err := p.actor.fit(states, sample.PreSquash, coef); err != nil {
		return 0, fmt.Errorf("fitPolicy: %w", err)
	}
	p.stale = true
	return loss, nil
}

// softUpdate moves the target critic towards the value critic
func (p *actorCritic) softUpdate(tau float64) error {
	return p.target.Polyak(p.value.net, tau)
}

// snapshot returns the parameters of the trained networks keyed by
// checkpoint group
func (p *actorCritic) snapshot() map[string]map[string]network.Param {
	return map[string]map[string]network.Param{
		p.groups.policy: p.actor.net.Snapshot(),
		p.groups.value:  p.value.net.Snapshot(),
		p.groups.q:      p.q.net.Snapshot(),
	}
}

// restore sets the trained networks from checkpoint groups and resets
// the target critic to the restored value critic
func (p *actorCritic) restore(g map[string]map[string]network.Param) error {
	nets := []struct {
		group string
		net   *network.Net
	}{
		{p.groups.policy, p.actor.net},
		{p.groups.value, p.value.net},
		{p.groups.q, p.q.net},
	}
	for _, n := range nets {
		params, ok := g[n.group]
		if !ok {
			return fmt.Errorf("restore: checkpoint has no group %v", n.group)
		}
		if err := n.net.Restore(params); err != nil {
			return fmt.Errorf("restore: group %v: %w", n.group, err)
		}
	}

	if err := p.target.Set(p.value.net); err != nil {
		return fmt.Errorf("restore: %w", err)
	}
	p.stale = true
	return nil
}

func (p *actorCritic) close() error {
	for _, vm := range []G.VM{p.targetVM, p.behaviourVM, p.qEvalVM} {
		if err := vm.Close(); err != nil {
			return err
		}
	}
	for _, l := range []*learner{p.actor.learner, p.value.learner,
		p.q.learner} {
		if err := l.close(); err != nil {
			return err
		}
	}
	return nil
}

// run runs a forward-only tape machine once
func run(vm G.VM) error {
	defer vm.Reset()
	if err := vm.RunAll(); err != nil {
		return fmt.Errorf("could not run graph: %v", err)
	}
	return nil
}
