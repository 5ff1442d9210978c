package experiment

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/safebench/agent"
	"github.com/samuelfneumann/safebench/agent/dummy"
	"github.com/samuelfneumann/safebench/agent/sac"
	"github.com/samuelfneumann/safebench/environment/town"
	"github.com/samuelfneumann/safebench/environment/world"
	"github.com/samuelfneumann/safebench/experiment/tracker"
	"github.com/samuelfneumann/safebench/expreplay"
	"github.com/samuelfneumann/safebench/initwfn"
	"github.com/samuelfneumann/safebench/scenario"
)

const numScenario = 2

// recorder is a Tracker which keeps every tracked episode in memory
type recorder struct {
	episodes []tracker.Episode
	saved    bool
}

func (r *recorder) Track(e tracker.Episode) { r.episodes = append(r.episodes, e) }
func (r *recorder) Save() error             { r.saved = true; return nil }

func newTown(t *testing.T) *town.Town {
	t.Helper()
	ctx, err := world.New(world.DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ctx.Close() })

	c := town.DefaultConfig(numScenario)
	c.DisplaySize = 4
	c.MaxEpisodeStep = 4
	env, err := town.New(c, ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { env.Close() })
	return env
}

func newLoader(t *testing.T, n int) *scenario.DataLoader {
	t.Helper()
	configs := make([]scenario.Config, n)
	for i := range configs {
		configs[i] = scenario.Config{ID: i, Adversaries: 1, Gap: 20,
			LeadSpeed: 2}
	}
	loader, err := scenario.NewDataLoader(configs, numScenario, 1)
	if err != nil {
		t.Fatal(err)
	}
	return loader
}

func newBuffer(t *testing.T, stateDim int) *expreplay.Buffer {
	t.Helper()
	b, err := expreplay.New(expreplay.Config{
		Capacity:    1000,
		NumScenario: numScenario,
		StateDim:    stateDim,
		ActionDim:   town.ActionDim,
		Seed:        1,
	})
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func newSAC(t *testing.T, stateDim int, recovery bool, dir string) *sac.SAC {
	t.Helper()
	c := sac.DefaultConfig(stateDim, town.ActionDim)
	c.BufferStartTraining = 4
	c.BatchSize = 4
	c.UpdateIteration = 1
	c.UseRecovery = recovery
	c.UseSuppression = recovery
	c.Network = sac.NetworkConfig{
		ScalarDim:  town.ScalarDim,
		Encoder:    []int{4},
		Hidden:     []int{8},
		Activation: "relu",
		Init:       initwfn.Default(),
	}
	c.ModelPath = dir
	s, err := sac.New(c, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func dummies(t *testing.T, stateDim int) (ego, idle agent.Agent) {
	t.Helper()
	e, err := dummy.NewEgo(stateDim)
	if err != nil {
		t.Fatal(err)
	}
	i, err := dummy.NewIdle(stateDim, town.ActionDim)
	if err != nil {
		t.Fatal(err)
	}
	return e, i
}

func TestParseMode(t *testing.T) {
	for _, s := range []string{"eval", "train_agent", "train_scenario"} {
		if _, err := ParseMode(s); err != nil {
			t.Errorf("%v: %v", s, err)
		}
	}
	if _, err := ParseMode("train"); !errors.Is(err, ErrUnknownMode) {
		t.Errorf("expected ErrUnknownMode, got %v", err)
	}
}

func TestNewRunnerUnknownMode(t *testing.T) {
	env := newTown(t)
	stateDim := env.Spec().ObservationDim
	ego, idle := dummies(t, stateDim)

	c := DefaultConfig("test")
	_, err := NewRunner(c, env, ego, idle, newLoader(t, 2), nil, nil)
	if !errors.Is(err, ErrUnknownMode) {
		t.Errorf("expected ErrUnknownMode, got %v", err)
	}
}

func TestNewRunnerRequiresBuffer(t *testing.T) {
	env := newTown(t)
	ego, idle := dummies(t, env.Spec().ObservationDim)
	if _, err := NewRunner(DefaultConfig(TrainAgent), env, ego, idle,
		newLoader(t, 2), nil, nil); err == nil {
		t.Error("expected error training without a buffer")
	}
}

func TestEval(t *testing.T) {
	env := newTown(t)
	ego, idle := dummies(t, env.Spec().ObservationDim)
	rec := &recorder{}
	ret := tracker.NewReturn(filepath.Join(t.TempDir(), "return.gob"))

	r, err := NewRunner(DefaultConfig(Eval), env, ego, idle, newLoader(t, 5),
		nil, nil, rec, ret)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(rec.episodes) != 5 {
		t.Fatalf("expected 5 scenario episodes, got %v", len(rec.episodes))
	}
	seen := make(map[int]bool)
	for _, e := range rec.episodes {
		if seen[e.Scenario] {
			t.Errorf("scenario %v evaluated twice", e.Scenario)
		}
		seen[e.Scenario] = true
		if e.Length < 1 || e.Length > 4 {
			t.Errorf("unexpected episode length %v", e.Length)
		}
		if e.Episode < 1 || e.Episode > 3 {
			t.Errorf("unexpected episode number %v", e.Episode)
		}
	}
	if !rec.saved {
		t.Error("tracker not saved")
	}
	if len(ret.Data().Returns) != 5 {
		t.Errorf("expected returns of 5 scenarios, got %v",
			len(ret.Data().Returns))
	}
	if ego.Mode() != agent.Eval || idle.Mode() != agent.Eval {
		t.Error("agents not switched to eval mode")
	}
}

func TestTrainAgent(t *testing.T) {
	env := newTown(t)
	stateDim := env.Spec().ObservationDim
	dir := t.TempDir()
	ego := newSAC(t, stateDim, true, dir)
	_, idle := dummies(t, stateDim)
	buffer := newBuffer(t, stateDim)
	rec := &recorder{}

	c := DefaultConfig(TrainAgent)
	c.TrainEpisode = 2
	c.SaveFreq = 1
	r, err := NewRunner(c, env, ego, idle, newLoader(t, 2*numScenario), buffer,
		nil, rec)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(rec.episodes) != 2*numScenario {
		t.Errorf("expected %v scenario episodes, got %v", 2*numScenario,
			len(rec.episodes))
	}
	if buffer.Len() == 0 {
		t.Error("no transitions stored")
	}
	for _, name := range []string{"model.sac.0.0001.gob",
		"model.sac.0.0002.gob"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("checkpoint %v missing: %v", name, err)
		}
	}
	if idle.Mode() != agent.Eval || ego.Mode() != agent.Train {
		t.Error("roles in wrong modes")
	}

	// A new agent resumes after the latest checkpoint
	resumed := newSAC(t, stateDim, true, dir)
	rec = &recorder{}
	c.TrainEpisode = 3
	r, err = NewRunner(c, env, resumed, idle, newLoader(t, 2*numScenario),
		buffer, nil, rec)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if resumed.ContinueEpisode() != 2 {
		t.Errorf("expected to resume from episode 2, got %v",
			resumed.ContinueEpisode())
	}
	if len(rec.episodes) != numScenario {
		t.Errorf("expected %v scenario episodes after resuming, got %v",
			numScenario, len(rec.episodes))
	}
	for _, e := range rec.episodes {
		if e.Episode != 3 {
			t.Errorf("unexpected episode %v after resuming", e.Episode)
		}
	}
}

func TestTrainScenario(t *testing.T) {
	env := newTown(t)
	stateDim := env.Spec().ObservationDim
	ego, _ := dummies(t, stateDim)
	scen := newSAC(t, stateDim, false, t.TempDir())
	buffer := newBuffer(t, stateDim)

	c := DefaultConfig(TrainScenario)
	c.TrainEpisode = 1
	r, err := NewRunner(c, env, ego, scen, newLoader(t, 2), buffer, nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := r.Run(context.Background()); err != nil {
		t.Fatal(err)
	}
	if buffer.Len() == 0 {
		t.Error("no scenario transitions stored")
	}
	if ego.Mode() != agent.Eval {
		t.Error("ego not in eval mode while training scenarios")
	}
}

func TestRunCancelled(t *testing.T) {
	env := newTown(t)
	ego, idle := dummies(t, env.Spec().ObservationDim)
	rec := &recorder{}
	r, err := NewRunner(DefaultConfig(Eval), env, ego, idle, newLoader(t, 2),
		nil, nil, rec)
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := r.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if len(rec.episodes) != 0 {
		t.Errorf("cancelled run tracked %v episodes", len(rec.episodes))
	}
	if !rec.saved {
		t.Error("trackers must be saved after a cancelled run")
	}
}
