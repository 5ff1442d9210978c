// Package sac implements a Soft Actor-Critic agent with a risk-aware
// recovery mechanism. Besides the usual actor, state-value critic and
// action-value critic trained on the task reward, the agent trains a
// second set of networks on a risk signal. The risk action-value
// critic gates the executed action: where it predicts the nominal
// action to be unsafe, the recovery actor's action is executed instead.
// Optionally the nominal actor's objective is blended with the
// recovery objective as the risk estimate worsens.
package sac

import (
	"fmt"
	"log/slog"

	"github.com/samuelfneumann/safebench/agent"
	"github.com/samuelfneumann/safebench/experiment/checkpointer"
	"github.com/samuelfneumann/safebench/expreplay"
	"github.com/samuelfneumann/safebench/utils/floatutils"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Loss names reported in agent.UpdateStats
const (
	ValueLoss    = "value"
	QLoss        = "q"
	PolicyLoss   = "policy"
	RiskValue    = "value_risk"
	RiskQ        = "q_risk"
	RecoveryLoss = "policy_recovery"
)

// SAC implements the risk-aware Soft Actor-Critic agent
type SAC struct {
	config Config
	logger *slog.Logger
	mode   agent.Mode

	task *actorCritic

	// risk is nil if recovery is disabled
	risk *actorCritic

	ckpt            *checkpointer.Manager
	continueEpisode int
}

// New creates a new SAC agent. If logger is nil, slog.Default() is
// used.
func New(c Config, logger *slog.Logger) (*SAC, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("agent", "sac"),
		slog.String("model_id", c.ModelID))

	task, err := newActorCritic(taskGroups, c, c.Seed)
	if err != nil {
		return nil, fmt.Errorf("new: could not create task networks: %w", err)
	}

	var risk *actorCritic
	if c.UseRecovery {
		risk, err = newActorCritic(riskGroups, c, c.Seed+1)
		if err != nil {
			return nil, fmt.Errorf("new: could not create risk networks: %w",
				err)
		}
	}

	ckpt, err := checkpointer.NewManager(c.ModelPath, "model.sac", c.ModelID)
	if err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}

	return &SAC{
		config: c,
		logger: logger,
		mode:   agent.Train,
		task:   task,
		risk:   risk,
		ckpt:   ckpt,
	}, nil
}

// Config returns the configuration of the agent
func (s *SAC) Config() Config {
	return s.config
}

// SetMode switches between training and evaluation mode
func (s *SAC) SetMode(m agent.Mode) error {
	if err := m.Validate(); err != nil {
		return fmt.Errorf("setMode: %w", err)
	}
	s.mode = m
	return nil
}

// Mode returns the current mode of the agent
func (s *SAC) Mode() agent.Mode {
	return s.mode
}

// ContinueEpisode returns the episode of the last loaded checkpoint,
// or 0 if none was loaded
func (s *SAC) ContinueEpisode() int {
	return s.continueEpisode
}

// SelectAction returns the task actions of the nominal actor and the
// actions to execute for a batch of states. If recovery is enabled,
// each row whose risk estimate Q_risk(s, task action) falls below
// -RiskThreshold executes the recovery actor's action instead.
func (s *SAC) SelectAction(states *mat.Dense, deterministic bool) (task,
	executed *mat.Dense, err error) {
	rows, cols := states.Dims()
	if cols != s.config.EgoStateDim {
		return nil, nil, fmt.Errorf("selectAction: expected %v state "+
			"features, got %v", s.config.EgoStateDim, cols)
	}

	actionDim := s.config.EgoActionDim
	task = mat.NewDense(rows, actionDim, nil)
	if s.risk == nil {
		for i := 0; i < rows; i++ {
			a, err := s.task.act(states.RawRowView(i), deterministic)
			if err != nil {
				return nil, nil, fmt.Errorf("selectAction: %w", err)
			}
			task.SetRow(i, a)
		}
		return task, mat.DenseCopyOf(task), nil
	}

	recovery := mat.NewDense(rows, actionDim, nil)
	risk := make([]float64, rows)
	for i := 0; i < rows; i++ {
		state := states.RawRowView(i)
		a, err := s.task.act(state, deterministic)
		if err != nil {
			return nil, nil, fmt.Errorf("selectAction: %w", err)
		}
		task.SetRow(i, a)

		if risk[i], err = s.risk.qValue(state, a); err != nil {
			return nil, nil, fmt.Errorf("selectAction: %w", err)
		}

		r, err := s.risk.act(state, deterministic)
		if err != nil {
			return nil, nil, fmt.Errorf("selectAction: %w", err)
		}
		recovery.SetRow(i, r)
	}

	executed = mix(task, recovery, gate(risk, s.config.RiskThreshold))
	return task, executed, nil
}

// gate returns, for each risk estimate, whether it falls below
// -threshold so that the recovery action must be executed
func gate(risk []float64, threshold float64) []bool {
	unsafe := make([]bool, len(risk))
	for i, r := range risk {
		unsafe[i] = r < -threshold
	}
	return unsafe
}

// mix returns the rows of recovery where useRecovery holds and the rows
// of task elsewhere
func mix(task, recovery *mat.Dense, useRecovery []bool) *mat.Dense {
	mixed := mat.DenseCopyOf(task)
	for i, use := range useRecovery {
		if use {
			mixed.SetRow(i, recovery.RawRowView(i))
		}
	}
	return mixed
}

// Train performs UpdateIteration updates on batches sampled from
// buffer. Nothing is done until the buffer has stored at least
// BufferStartTraining transitions.
func (s *SAC) Train(buffer *expreplay.Buffer) (agent.UpdateStats, error) {
	if s.mode != agent.Train {
		return agent.UpdateStats{}, fmt.Errorf("train: agent is in %v mode",
			s.mode)
	}
	if buffer.Len() < s.config.BufferStartTraining {
		return agent.UpdateStats{}, nil
	}

	stats := agent.UpdateStats{Losses: make(map[string]float64)}
	for i := 0; i < s.config.UpdateIteration; i++ {
		batch, err := buffer.Sample(s.config.BatchSize)
		if err != nil {
			return stats, fmt.Errorf("train: could not sample batch: %w", err)
		}

		losses, err := s.update(batch)
		if err != nil {
			return stats, fmt.Errorf("train: %w", err)
		}
		for name, loss := range losses {
			stats.Losses[name] += loss
		}
		stats.Iterations++
	}

	for name := range stats.Losses {
		stats.Losses[name] /= float64(stats.Iterations)
	}
	s.logger.Debug("trained", slog.String("stats", stats.String()))
	return stats, nil
}

// update performs a single update of all networks on batch and returns
// the losses
func (s *SAC) update(b expreplay.Batch) (map[string]float64, error) {
	gamma := s.config.Gamma

	reward := append([]float64(nil), b.Reward...)
	if s.risk == nil {
		floats.AddScaled(reward, s.config.RiskPenalty, b.Risk)
	}

	task, err := s.task.estimate(b)
	if err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}

	// Bootstrapped action-value targets
	nextQ := make([]float64, b.Size)
	for i := range nextQ {
		nextQ[i] = reward[i] + (1-b.Done[i])*gamma*task.nextValue[i]
	}

	// State-value targets use freshly sampled actions
	valueTarget := make([]float64, b.Size)
	floats.SubTo(valueTarget, task.newQ, task.sample.LogProb)

	losses := make(map[string]float64, 6)
	value, loss, err := s.task.value.fit(b.State, nil, valueTarget)
	if err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}
	losses[ValueLoss] = loss

	if _, losses[QLoss], err = s.task.q.fit(b.State, b.TaskAction,
		nextQ); err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}

	policyTarget := make([]float64, b.Size)
	floats.SubTo(policyTarget, task.newQ, value)

	if s.risk != nil {
		riskEst, err := s.risk.estimate(b)
		if err != nil {
			return nil, fmt.Errorf("update: %w", err)
		}

		nextRisk := make([]float64, b.Size)
		for i := range nextRisk {
			nextRisk[i] = riskTarget(b.Risk[i], b.Done[i],
				riskEst.nextValue[i], gamma)
		}

		valueRiskTarget := make([]float64, b.Size)
		floats.SubTo(valueRiskTarget, riskEst.newQ, riskEst.sample.LogProb)

		valueRisk, loss, err := s.risk.value.fit(b.State, nil, valueRiskTarget)
		if err != nil {
			return nil, fmt.Errorf("update: %w", err)
		}
		losses[RiskValue] = loss

		if _, losses[RiskQ], err = s.risk.q.fit(b.State, b.MixedAction,
			nextRisk); err != nil {
			return nil, fmt.Errorf("update: %w", err)
		}

		recoveryTarget := make([]float64, b.Size)
		floats.SubTo(recoveryTarget, riskEst.newQ, valueRisk)

		if s.config.UseSuppression {
			for i := range policyTarget {
				g := suppression(riskEst.newQ[i], s.config.SuppressionWeight)
				policyTarget[i] = policyTarget[i]*(1-g) + g*recoveryTarget[i]
			}
		}

		if losses[RecoveryLoss], err = s.risk.fitPolicy(b.State,
			riskEst.sample, recoveryTarget); err != nil {
			return nil, fmt.Errorf("update: %w", err)
		}
	}

	if losses[PolicyLoss], err = s.task.fitPolicy(b.State, task.sample,
		policyTarget); err != nil {
		return nil, fmt.Errorf("update: %w", err)
	}

	for _, p := range s.pairs() {
		if err := p.softUpdate(s.config.Tau); err != nil {
			return nil, fmt.Errorf("update: %w", err)
		}
		p.stale = true
	}

	return losses, nil
}

// riskTarget returns the bootstrapped risk action-value target of a
// transition with risk r, termination flag done and target risk value
// of the next state. The terminal bonus is clipped to [0, 50/(1-gamma)].
// A terminal transition bootstraps nothing and its bonus cancels r, so
// its target is 0 whatever its risk.
func riskTarget(r, done, nextValue, gamma float64) float64 {
	notDone := 1 - done
	terminal := floatutils.Clip(r/(1-gamma)*notDone-r, 0, 50/(1-gamma))
	return r + notDone*gamma*nextValue + terminal
}

// suppression returns the weight of the recovery objective in the
// nominal actor's target given a risk estimate
func suppression(riskQ, weight float64) float64 {
	return floatutils.Clip(-riskQ*weight*2, 0.25, 0.75)
}

// pairs returns the actor-critics of the agent
func (s *SAC) pairs() []*actorCritic {
	if s.risk == nil {
		return []*actorCritic{s.task}
	}
	return []*actorCritic{s.task, s.risk}
}

// Save checkpoints all trained networks at the given episode
func (s *SAC) Save(episode int) error {
	snap := checkpointer.Snapshot{
		Episode: episode,
		Groups:  s.task.snapshot(),
	}
	if s.risk != nil {
		for group, params := range s.risk.snapshot() {
			snap.Groups[group] = params
		}
	}

	path, err := s.ckpt.Save(snap)
	if err != nil {
		return fmt.Errorf("save: %w", err)
	}
	s.logger.Info("saved model", slog.String("path", path))
	return nil
}

// Load restores all trained networks from the checkpoint of the given
// episode, or the latest checkpoint if episode is negative. A missing
// checkpoint is logged and leaves the networks unchanged.
func (s *SAC) Load(episode int) error {
	snap, path, err := s.ckpt.Load(episode)
	if checkpointer.IsNotFound(err) {
		s.logger.Warn("no model found", slog.String("path", path))
		return nil
	} else if err != nil {
		return fmt.Errorf("load: %w", err)
	}

	for _, p := range s.pairs() {
		if err := p.restore(snap.Groups); err != nil {
			return fmt.Errorf("load: %v: %w", path, err)
		}
	}
	s.continueEpisode = snap.Episode
	s.logger.Info("loaded model", slog.String("path", path),
		slog.Int("episode", snap.Episode))
	return nil
}

// Close releases the resources held by the agent's tape machines
func (s *SAC) Close() error {
	for _, p := range s.pairs() {
		if err := p.close(); err != nil {
			return fmt.Errorf("close: %v", err)
		}
	}
	return nil
}
