// Package experiment implements functionality for running an
// experiment: an ego agent and a scenario policy interacting with a
// batched environment, one of them optionally being trained
package experiment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/samuelfneumann/safebench/agent"
	"github.com/samuelfneumann/safebench/environment"
	"github.com/samuelfneumann/safebench/experiment/checkpointer"
	"github.com/samuelfneumann/safebench/experiment/tracker"
	"github.com/samuelfneumann/safebench/expreplay"
	"github.com/samuelfneumann/safebench/scenario"
	"github.com/samuelfneumann/safebench/timestep"
	"github.com/samuelfneumann/safebench/utils/progressbar"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// resumer is implemented by agents which remember the episode of the
// checkpoint they were loaded from
type resumer interface {
	ContinueEpisode() int
}

// Runner runs an experiment. All collaborators are passed explicitly
// and are owned by the caller.
type Runner struct {
	config   Config
	env      environment.Environment
	ego      agent.Agent
	scenario agent.Agent
	loader   *scenario.DataLoader
	buffer   *expreplay.Buffer
	trackers []tracker.Tracker
	logger   *slog.Logger
}

// NewRunner returns a new Runner. The buffer may be nil in eval mode.
func NewRunner(c Config, env environment.Environment, ego,
	scenarioPolicy agent.Agent, loader *scenario.DataLoader,
	buffer *expreplay.Buffer, logger *slog.Logger,
	trackers ...tracker.Tracker) (*Runner, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("newRunner: %w", err)
	}
	if env == nil || ego == nil || scenarioPolicy == nil || loader == nil {
		return nil, fmt.Errorf("newRunner: environment, agents and data " +
			"loader are required")
	}
	if c.Mode.Training() && buffer == nil {
		return nil, fmt.Errorf("newRunner: %v mode requires a replay buffer",
			c.Mode)
	}
	if n := env.Spec().NumScenario; c.NumScenario > n {
		return nil, fmt.Errorf("newRunner: environment runs at most %v "+
			"scenarios, got %v", n, c.NumScenario)
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Runner{
		config:   c,
		env:      env,
		ego:      ego,
		scenario: scenarioPolicy,
		loader:   loader,
		buffer:   buffer,
		trackers: trackers,
		logger:   logger,
	}, nil
}

// Run runs the experiment in the configured mode and saves all
// trackers, even if the run failed. Cancelling ctx stops the run
// between environment steps.
func (r *Runner) Run(ctx context.Context) error {
	var err error
	switch r.config.Mode {
	case Eval:
		err = r.eval(ctx)
	case TrainAgent:
		err = r.train(ctx, r.ego, r.scenario)
	case TrainScenario:
		err = r.train(ctx, r.scenario, r.ego)
	default:
		return fmt.Errorf("run: %w %q", ErrUnknownMode, r.config.Mode)
	}

	for _, t := range r.trackers {
		if saveErr := t.Save(); saveErr != nil {
			err = errors.Join(err, fmt.Errorf("run: could not save "+
				"tracker: %w", saveErr))
		}
	}
	return err
}

// train trains one role while the other acts deterministically from
// its latest checkpoint
func (r *Runner) train(ctx context.Context, trained, fixed agent.Agent) error {
	if err := trained.SetMode(agent.Train); err != nil {
		return fmt.Errorf("train: %w", err)
	}
	if err := fixed.SetMode(agent.Eval); err != nil {
		return fmt.Errorf("train: %w", err)
	}
	if err := fixed.Load(-1); err != nil {
		return fmt.Errorf("train: %w", err)
	}
	if err := trained.Load(-1); err != nil {
		return fmt.Errorf("train: %w", err)
	}

	start := 0
	if res, ok := trained.(resumer); ok {
		start = res.ContinueEpisode()
	}
	ckpt := checkpointer.NewNStep(r.config.SaveFreq, trained)

	bar := r.progress(r.config.TrainEpisode - start)
	defer closeBar(bar)

	for e := start + 1; e <= r.config.TrainEpisode; e++ {
		if r.loader.Len() == 0 {
			r.loader.Reset()
		}
		configs, err := r.loader.Sampler()
		if err != nil {
			return fmt.Errorf("train: %w", err)
		}

		episodes, err := r.episode(ctx, e, configs)
		if err != nil {
			return fmt.Errorf("train: episode %v: %w", e, err)
		}

		stats, err := trained.Train(r.buffer)
		if err != nil {
			return fmt.Errorf("train: episode %v: %w", e, err)
		}
		r.summarise(e, episodes, slog.String("update", stats.String()),
			slog.Int("buffer", r.buffer.Len()))

		if err := ckpt.Checkpoint(e); err != nil {
			return fmt.Errorf("train: could not checkpoint: %w", err)
		}
		if bar != nil {
			bar.Increment()
		}
	}
	return nil
}

// eval runs every scenario config once with deterministic actions
func (r *Runner) eval(ctx context.Context) error {
	for _, a := range []agent.Agent{r.ego, r.scenario} {
		if err := a.SetMode(agent.Eval); err != nil {
			return fmt.Errorf("eval: %w", err)
		}
		if err := a.Load(-1); err != nil {
			return fmt.Errorf("eval: %w", err)
		}
	}

	r.loader.Reset()
	bar := r.progress(r.loader.Len())
	defer closeBar(bar)

	var all []tracker.Episode
	for e := 1; r.loader.Len() > 0; e++ {
		configs, err := r.loader.Sampler()
		if err != nil {
			return fmt.Errorf("eval: %w", err)
		}
		episodes, err := r.episode(ctx, e, configs)
		if err != nil {
			return fmt.Errorf("eval: episode %v: %w", e, err)
		}
		all = append(all, episodes...)
		if bar != nil {
			bar.Increment()
		}
	}
	r.summarise(0, all)
	return nil
}

// episode runs one batch of scenario configs until every instance is
// done. Agents in eval mode act deterministically. Transitions of the
// trained role are stored in the buffer unless the run is in eval mode.
func (r *Runner) episode(ctx context.Context, e int,
	configs []scenario.Config) ([]tracker.Episode, error) {
	obs, _, err := r.env.Reset(configs)
	if err != nil {
		return nil, err
	}

	n := len(configs)
	episodes := make([]tracker.Episode, n)
	for i, c := range configs {
		episodes[i] = tracker.Episode{Episode: e, Scenario: c.ID}
	}
	done := make([]bool, n)

	for !r.env.AllDone() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		egoTask, egoExecuted, err := r.ego.SelectAction(obs,
			r.ego.Mode() == agent.Eval)
		if err != nil {
			return nil, err
		}
		_, scenExecuted, err := r.scenario.SelectAction(obs,
			r.scenario.Mode() == agent.Eval)
		if err != nil {
			return nil, err
		}

		step, err := r.env.Step(egoExecuted, scenExecuted)
		if err != nil {
			return nil, err
		}

		if r.config.Mode.Training() {
			var transitions []timestep.Transition
			if r.config.Mode == TrainAgent {
				transitions = egoTransitions(obs, egoTask, egoExecuted, step,
					done)
			} else {
				transitions = scenarioTransitions(obs, scenExecuted, step,
					done)
			}
			if err := r.buffer.Store(transitions); err != nil {
				return nil, err
			}
		}

		for i := range episodes {
			if done[i] {
				continue
			}
			ep := &episodes[i]
			ep.Return += step.Reward[i]
			ep.Cost += step.Info[i].Cost
			ep.Length++
			ep.Collision = ep.Collision || step.Info[i].Collision
			ep.OffRoad = ep.OffRoad || step.Info[i].OffRoad
			if step.Done[i] {
				done[i] = true
				for _, t := range r.trackers {
					t.Track(*ep)
				}
			}
		}
		obs = step.Observation
	}
	return episodes, nil
}

// egoTransitions returns the transitions of the ego vehicle for all
// instances that were running before step
func egoTransitions(obs, task, executed *mat.Dense, step environment.Step,
	done []bool) []timestep.Transition {
	var transitions []timestep.Transition
	for i := range done {
		if done[i] {
			continue
		}
		transitions = append(transitions, timestep.Transition{
			State:       obs.RawRowView(i),
			TaskAction:  task.RawRowView(i),
			MixedAction: executed.RawRowView(i),
			Reward:      step.Reward[i],
			Risk:        step.Info[i].Risk(),
			NextState:   step.Observation.RawRowView(i),
			Done:        step.Done[i],
			Info:        step.Info[i],
		})
	}
	return transitions
}

// scenarioTransitions returns the transitions of the scenario policy
// for all instances that were running before step. The scenario is
// rewarded for the ego vehicle's losses and costs.
func scenarioTransitions(obs, executed *mat.Dense, step environment.Step,
	done []bool) []timestep.Transition {
	var transitions []timestep.Transition
	for i := range done {
		if done[i] {
			continue
		}
		transitions = append(transitions, timestep.Transition{
			State:       obs.RawRowView(i),
			TaskAction:  executed.RawRowView(i),
			MixedAction: executed.RawRowView(i),
			Reward:      step.Info[i].Cost - step.Reward[i],
			NextState:   step.Observation.RawRowView(i),
			Done:        step.Done[i],
			Info:        step.Info[i],
		})
	}
	return transitions
}

// summarise logs the mean return and cost of a set of episodes
func (r *Runner) summarise(e int, episodes []tracker.Episode,
	attrs ...slog.Attr) {
	if len(episodes) == 0 {
		return
	}
	returns := make([]float64, len(episodes))
	costs := make([]float64, len(episodes))
	var collisions int
	for i, ep := range episodes {
		returns[i] = ep.Return
		costs[i] = ep.Cost
		if ep.Collision {
			collisions++
		}
	}

	attrs = append([]slog.Attr{
		slog.String("mode", string(r.config.Mode)),
		slog.Int("scenarios", len(episodes)),
		slog.Float64("return", stat.Mean(returns, nil)),
		slog.Float64("cost", stat.Mean(costs, nil)),
		slog.Float64("collision_rate",
			float64(collisions)/float64(len(episodes))),
	}, attrs...)
	if e > 0 {
		attrs = append(attrs, slog.Int("episode", e))
	}
	r.logger.LogAttrs(context.Background(), slog.LevelInfo, "episode finished",
		attrs...)
}

func (r *Runner) progress(total int) *progressbar.ProgressBar {
	if !r.config.Progress || total <= 0 {
		return nil
	}
	return progressbar.New(os.Stderr, 40, total)
}

func closeBar(bar *progressbar.ProgressBar) {
	if bar != nil {
		bar.Close()
	}
}
