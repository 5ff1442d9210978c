package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/samuelfneumann/safebench/agent"
	"github.com/samuelfneumann/safebench/agent/dummy"
	"github.com/samuelfneumann/safebench/agent/sac"
	"github.com/samuelfneumann/safebench/config"
	"github.com/samuelfneumann/safebench/environment"
	"github.com/samuelfneumann/safebench/environment/town"
	"github.com/samuelfneumann/safebench/environment/world"
	"github.com/samuelfneumann/safebench/experiment"
	"github.com/samuelfneumann/safebench/experiment/tracker"
	"github.com/samuelfneumann/safebench/expreplay"
	"github.com/samuelfneumann/safebench/scenario"
)

// The ego agent seeds its samplers with seed and seed+1, the scenario
// policy with scenarioSeedOffset above those
const scenarioSeedOffset = 2

type options struct {
	agentCfg          string
	scenarioCfg       string
	scenarioPolicyCfg string
	mode              string
	seed              uint64
	outputDir         string
}

func main() {
	var o options
	flag.StringVar(&o.agentCfg, "agent_cfg", "",
		"ego agent config; the ego drives straight if empty")
	flag.StringVar(&o.scenarioCfg, "scenario_cfg", "",
		"run config listing the scenarios (required)")
	flag.StringVar(&o.scenarioPolicyCfg, "scenario_policy_cfg", "",
		"scenario policy config; scenarios stay idle if empty")
	flag.StringVar(&o.mode, "mode", "",
		"eval, train_agent or train_scenario; overrides the run config")
	flag.Uint64Var(&o.seed, "seed", 0, "random seed")
	flag.StringVar(&o.outputDir, "output_dir", "log",
		"directory for checkpoints, frames and metrics")
	debug := flag.Bool("debug", false, "log debug messages")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr,
		&slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, o, logger); err != nil {
		logger.Error("run failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(ctx context.Context, o options, logger *slog.Logger) error {
	if o.scenarioCfg == "" {
		return errors.New("-scenario_cfg is required")
	}

	runCfg := config.DefaultRun(experiment.Eval)
	if err := config.Load(o.scenarioCfg, &runCfg); err != nil {
		return err
	}
	if o.mode != "" {
		m, err := experiment.ParseMode(o.mode)
		if err != nil {
			return err
		}
		runCfg.Experiment.Mode = m
	}
	if err := runCfg.Experiment.Validate(); err != nil {
		return err
	}
	runCfg.Experiment.Seed = o.seed
	runCfg.World.Seed = o.seed
	runCfg.Town.NumScenario = runCfg.Experiment.NumScenario
	mode := runCfg.Experiment.Mode

	if mode == experiment.Eval && runCfg.Town.SaveFrames {
		if runCfg.Town.FrameDir == "" {
			runCfg.Town.FrameDir = filepath.Join(o.outputDir, "frames")
		}
	} else {
		runCfg.Town.SaveFrames = false
	}

	scenarios, err := scenario.Load(o.scenarioCfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(o.outputDir, 0o755); err != nil {
		return fmt.Errorf("could not create output directory: %w", err)
	}
	if err := config.Save(filepath.Join(o.outputDir, "run.yaml"),
		runCfg); err != nil {
		return err
	}

	wctx, err := world.New(runCfg.World, logger)
	if err != nil {
		return err
	}
	defer wctx.Close()

	env, err := town.New(runCfg.Town, wctx, logger)
	if err != nil {
		return err
	}
	defer env.Close()
	spec := env.Spec()

	ego, err := newEgo(o, spec, logger)
	if err != nil {
		return err
	}
	defer closeAgent(ego)

	scen, err := newScenarioPolicy(o, spec, logger)
	if err != nil {
		return err
	}
	defer closeAgent(scen)

	loader, err := scenario.NewDataLoader(scenarios,
		runCfg.Experiment.NumScenario, o.seed)
	if err != nil {
		return err
	}

	var buffer *expreplay.Buffer
	if mode.Training() {
		actionDim := spec.ActionDim
		if mode == experiment.TrainScenario {
			actionDim = spec.ScenarioActionDim
		}
		buffer, err = expreplay.New(expreplay.Config{
			Capacity:    runCfg.Experiment.BufferCapacity,
			NumScenario: runCfg.Experiment.NumScenario,
			StateDim:    spec.ObservationDim,
			ActionDim:   actionDim,
			Seed:        o.seed,
		})
		if err != nil {
			return err
		}
	}

	returns := tracker.NewReturn(filepath.Join(o.outputDir,
		fmt.Sprintf("%v_return.gob", mode)))
	db, err := tracker.NewSQLite(ctx, filepath.Join(o.outputDir, "runs.db"),
		string(mode))
	if err != nil {
		return err
	}
	defer db.Close()

	runner, err := experiment.NewRunner(runCfg.Experiment, env, ego, scen,
		loader, buffer, logger, returns, db)
	if err != nil {
		return err
	}
	logger.Info("starting run", slog.String("mode", string(mode)),
		slog.String("run_id", db.RunID()),
		slog.Int("scenarios", len(scenarios)))

	if err := runner.Run(ctx); err != nil {
		return err
	}

	plot := filepath.Join(o.outputDir, fmt.Sprintf("%v_return.png", mode))
	if err := returns.Plot(plot); err != nil {
		logger.Warn("could not plot returns", slog.Any("error", err))
	}
	return nil
}

// newEgo returns the ego agent described by the agent config, or a
// policy driving straight ahead if there is none
func newEgo(o options, spec environment.Spec,
	logger *slog.Logger) (agent.Agent, error) {
	if o.agentCfg == "" {
		return dummy.NewEgo(spec.ObservationDim)
	}

	c := sac.DefaultConfig(spec.ObservationDim, spec.ActionDim)
	c.Network.ScalarDim = spec.ScalarDim
	c.Seed = o.seed
	return newSAC(o, o.agentCfg, "agent.yaml", c, logger)
}

// newScenarioPolicy returns the scenario policy described by the
// scenario policy config, or an idle policy if there is none
func newScenarioPolicy(o options, spec environment.Spec,
	logger *slog.Logger) (agent.Agent, error) {
	if o.scenarioPolicyCfg == "" {
		return dummy.NewIdle(spec.ObservationDim, spec.ScenarioActionDim)
	}

	c := sac.DefaultConfig(spec.ObservationDim, spec.ScenarioActionDim)
	c.Network.ScalarDim = spec.ScalarDim
	c.UseRecovery = false
	c.UseSuppression = false
	c.ModelPath = "model_ckpt/scenario_sac"
	c.Seed = o.seed + scenarioSeedOffset
	return newSAC(o, o.scenarioPolicyCfg, "scenario_policy.yaml", c,
		logger.With(slog.String("role", "scenario")))
}

// newSAC overlays the config file at path on the defaults in c and
// creates the agent. Dimensions and seed are always taken from the
// defaults.
func newSAC(o options, path, saveAs string, c sac.Config,
	logger *slog.Logger) (*sac.SAC, error) {
	stateDim, actionDim, seed := c.EgoStateDim, c.EgoActionDim, c.Seed
	if err := config.Load(path, &c); err != nil {
		return nil, err
	}
	c.EgoStateDim, c.EgoActionDim, c.Seed = stateDim, actionDim, seed
	if !filepath.IsAbs(c.ModelPath) {
		c.ModelPath = filepath.Join(o.outputDir, c.ModelPath)
	}

	if err := config.Save(filepath.Join(o.outputDir, saveAs), c); err != nil {
		return nil, err
	}
	return sac.New(c, logger)
}

func closeAgent(a agent.Agent) {
	if c, ok := a.(io.Closer); ok {
		c.Close()
	}
}
