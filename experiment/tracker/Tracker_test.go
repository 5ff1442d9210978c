package tracker

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

var (
	_ Tracker = &Return{}
	_ Tracker = &SQLite{}
)

func episodes() []Episode {
	return []Episode{
		{Episode: 1, Scenario: 2, Return: 1.5, Cost: 0, Length: 10},
		{Episode: 1, Scenario: 5, Return: -0.5, Cost: 1, Length: 4,
			Collision: true},
		{Episode: 2, Scenario: 2, Return: 2.5, Cost: 1, Length: 12,
			OffRoad: true},
	}
}

func TestReturnSaveLoad(t *testing.T) {
	dir := t.TempDir()
	r := NewReturn(filepath.Join(dir, "return.gob"))
	for _, e := range episodes() {
		r.Track(e)
	}
	if err := r.Save(); err != nil {
		t.Fatal(err)
	}

	data, err := LoadReturn(filepath.Join(dir, "return.gob"))
	if err != nil {
		t.Fatal(err)
	}
	if got := data.Returns[2]; len(got) != 2 || got[0] != 1.5 || got[1] != 2.5 {
		t.Errorf("unexpected returns of scenario 2: %v", got)
	}
	if got := data.Costs[5]; len(got) != 1 || got[0] != 1 {
		t.Errorf("unexpected costs of scenario 5: %v", got)
	}
}

func TestReturnPlot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "return.png")
	r := NewReturn("")
	if err := r.Plot(path); err == nil {
		t.Error("expected error plotting without data")
	}

	for _, e := range episodes() {
		r.Track(e)
	}
	if err := r.Plot(path); err != nil {
		t.Fatal(err)
	}
	if info, err := os.Stat(path); err != nil || info.Size() == 0 {
		t.Errorf("plot not written: %v", err)
	}
}

func TestSQLite(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "runs.db")
	s, err := NewSQLite(ctx, path, "train_agent")
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	if s.RunID() == "" {
		t.Error("empty run id")
	}

	want := episodes()
	s.Track(want[0])
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}
	for _, e := range want[1:] {
		s.Track(e)
	}
	if err := s.Save(); err != nil {
		t.Fatal(err)
	}

	got, err := s.Episodes(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %v episodes, got %v", len(want), len(got))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("episode %v: want %+v, got %+v", i, want[i], got[i])
		}
	}

	// A second run in the same database keeps its own episodes
	other, err := NewSQLite(ctx, path, "eval")
	if err != nil {
		t.Fatal(err)
	}
	defer other.Close()
	if other.RunID() == s.RunID() {
		t.Error("runs share an id")
	}
	if err := other.Save(); err != nil {
		t.Fatal(err)
	}
	if eps, err := other.Episodes(ctx); err != nil || len(eps) != 0 {
		t.Errorf("expected no episodes in new run, got %v, %v", eps, err)
	}
}

func TestNewSQLiteNoPath(t *testing.T) {
	if _, err := NewSQLite(context.Background(), "", "eval"); err == nil {
		t.Error("expected error for empty path")
	}
}
