package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/safebench/agent/sac"
	"github.com/samuelfneumann/safebench/environment"
)

func TestAgentSeedsDiffer(t *testing.T) {
	dir := t.TempDir()
	cfg := filepath.Join(dir, "sac.yaml")
	data := []byte("batch_size: 4\nnetwork:\n  encoder: [4]\n  hidden: [8]\n")
	if err := os.WriteFile(cfg, data, 0o644); err != nil {
		t.Fatal(err)
	}

	o := options{
		agentCfg:          cfg,
		scenarioPolicyCfg: cfg,
		seed:              7,
		outputDir:         dir,
	}
	spec := environment.Spec{
		ObservationDim:    8,
		ScalarDim:         4,
		ActionDim:         2,
		ScenarioActionDim: 2,
	}

	ego, err := newEgo(o, spec, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer closeAgent(ego)
	scen, err := newScenarioPolicy(o, spec, slog.Default())
	if err != nil {
		t.Fatal(err)
	}
	defer closeAgent(scen)

	egoSeed := ego.(*sac.SAC).Config().Seed
	scenSeed := scen.(*sac.SAC).Config().Seed
	if egoSeed != o.seed {
		t.Errorf("expected ego seed %v, got %v", o.seed, egoSeed)
	}
	if scenSeed != o.seed+scenarioSeedOffset {
		t.Errorf("expected scenario policy seed %v, got %v",
			o.seed+scenarioSeedOffset, scenSeed)
	}
	// Each agent seeds two samplers with consecutive seeds
	if scenSeed <= egoSeed+1 {
		t.Errorf("scenario policy seed %v overlaps ego seeds %v and %v",
			scenSeed, egoSeed, egoSeed+1)
	}
}
