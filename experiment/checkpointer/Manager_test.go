package checkpointer

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/safebench/network"
)

func snapshot(episode int, scale float64) Snapshot {
	return Snapshot{
		Episode: episode,
		Groups: map[string]map[string]network.Param{
			"policy_net": {
				"hidden0/weights": {Shape: []int{2, 2},
					Data: []float64{1 * scale, 2 * scale, 3 * scale, 0.1}},
				"hidden0/bias": {Shape: []int{1, 2},
					Data: []float64{0, -1 * scale}},
			},
			"value_net": {
				"out/weights": {Shape: []int{2, 1}, Data: []float64{0.5, 0.25}},
			},
		},
	}
}

func TestPath(t *testing.T) {
	m, err := NewManager(t.TempDir(), "model.sac", "0")
	if err != nil {
		t.Fatal(err)
	}
	got := filepath.Base(m.Path(7))
	if got != "model.sac.0.0007.gob" {
		t.Errorf("unexpected file name %v", got)
	}
}

func TestRoundTrip(t *testing.T) {
	m, err := NewManager(t.TempDir(), "model.sac", "3")
	if err != nil {
		t.Fatal(err)
	}

	want := snapshot(12, 1.0/3)
	if _, err := m.Save(want); err != nil {
		t.Fatal(err)
	}
	got, _, err := m.Load(12)
	if err != nil {
		t.Fatal(err)
	}

	if got.Episode != want.Episode {
		t.Errorf("episode: want %v, got %v", want.Episode, got.Episode)
	}
	for group, params := range want.Groups {
		for name, p := range params {
			q := got.Groups[group][name]
			if len(q.Data) != len(p.Data) || len(q.Shape) != len(p.Shape) {
				t.Fatalf("%v/%v: shape mismatch", group, name)
			}
			for i := range p.Data {
				if q.Data[i] != p.Data[i] {
					t.Errorf("%v/%v[%v]: want %v, got %v", group, name, i,
						p.Data[i], q.Data[i])
				}
			}
		}
	}
}

func TestLatest(t *testing.T) {
	dir := t.TempDir()
	m, _ := NewManager(dir, "model.sac", "0")

	if _, found, err := m.Latest(); err != nil || found {
		t.Fatalf("empty directory: found %v, err %v", found, err)
	}
	if _, _, err := m.Load(-1); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	for _, ep := range []int{2, 10, 4} {
		if _, err := m.Save(snapshot(ep, float64(ep))); err != nil {
			t.Fatal(err)
		}
	}

	// Files of other models and unrelated files are ignored
	other, _ := NewManager(dir, "model.sac", "1")
	if _, err := other.Save(snapshot(99, 1)); err != nil {
		t.Fatal(err)
	}
	os.WriteFile(filepath.Join(dir, "model.sac.0.notes.gob"), nil, 0o644)

	latest, found, err := m.Latest()
	if err != nil || !found || latest != 10 {
		t.Fatalf("latest: want 10, got %v (found %v, err %v)", latest, found,
			err)
	}

	s, path, err := m.Load(-1)
	if err != nil {
		t.Fatal(err)
	}
	if s.Episode != 10 || path != m.Path(10) {
		t.Errorf("loaded episode %v from %v", s.Episode, path)
	}

	if _, _, err := m.Load(3); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound for missing episode, got %v", err)
	}
}

type countingSaver struct {
	episodes []int
}

func (c *countingSaver) Save(episode int) error {
	c.episodes = append(c.episodes, episode)
	return nil
}

func TestNStep(t *testing.T) {
	saver := &countingSaver{}
	c := NewNStep(3, saver)
	for ep := 0; ep <= 10; ep++ {
		if err := c.Checkpoint(ep); err != nil {
			t.Fatal(err)
		}
	}
	want := []int{3, 6, 9}
	if len(saver.episodes) != len(want) {
		t.Fatalf("want saves at %v, got %v", want, saver.episodes)
	}
	for i := range want {
		if saver.episodes[i] != want[i] {
			t.Fatalf("want saves at %v, got %v", want, saver.episodes)
		}
	}

	never := &countingSaver{}
	NewNStep(0, never).Checkpoint(5)
	if len(never.episodes) != 0 {
		t.Error("non-positive interval must never save")
	}
}
