package world

import (
	"errors"
	"math"
	"testing"
)

func newContext(t *testing.T, c Config) *Context {
	t.Helper()
	ctx, err := New(c, nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { ctx.Close() })
	return ctx
}

func car(x, y float64) SpawnRequest {
	return SpawnRequest{
		Role:   Adversary,
		Pose:   Pose{X: x, Y: y},
		Length: 4,
		Width:  2,
	}
}

func TestSpawnFree(t *testing.T) {
	ctx := newContext(t, DefaultConfig())

	res, err := ctx.Spawn(car(0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != Spawned || res.Attempts != 1 || res.Actor == nil {
		t.Fatalf("unexpected result %+v", res)
	}
	if got := res.Actor.Pose(); got.X != 0 || got.Y != 0 {
		t.Errorf("actor spawned at %v, want origin", got)
	}
	if len(ctx.Actors()) != 1 {
		t.Errorf("expected 1 registered actor, got %v", len(ctx.Actors()))
	}
}

func TestSpawnExhausted(t *testing.T) {
	c := DefaultConfig()
	c.SpawnJitter = 0
	c.MaxSpawnAttempts = 4
	ctx := newContext(t, c)

	if _, err := ctx.Spawn(car(0, 0)); err != nil {
		t.Fatal(err)
	}
	res, err := ctx.Spawn(car(1, 0))
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != Exhausted {
		t.Errorf("expected spawn to be exhausted, got %v", res.Status)
	}
	if res.Attempts != 4 {
		t.Errorf("expected 4 attempts, got %v", res.Attempts)
	}
	if res.Actor != nil {
		t.Error("exhausted spawn returned an actor")
	}
	if len(ctx.Actors()) != 1 {
		t.Errorf("expected 1 registered actor, got %v", len(ctx.Actors()))
	}
}

func TestSpawnRetry(t *testing.T) {
	c := DefaultConfig()
	c.SpawnJitter = 100
	c.MaxSpawnAttempts = 50
	c.SpawnMargin = 0
	c.Seed = 7
	ctx := newContext(t, c)

	if _, err := ctx.Spawn(car(0, 0)); err != nil {
		t.Fatal(err)
	}
	res, err := ctx.Spawn(car(0, 0))
	if err != nil {
		t.Fatal(err)
	}
	if res.Status != Spawned {
		t.Fatalf("expected a jittered spawn, got %v", res.Status)
	}
	if res.Attempts < 2 {
		t.Errorf("expected at least 2 attempts, got %v", res.Attempts)
	}
	if res.Pose.X == 0 && res.Pose.Y == 0 {
		t.Error("retried spawn did not move the pose")
	}
}

func TestSpawnInvalidSize(t *testing.T) {
	ctx := newContext(t, DefaultConfig())
	req := car(0, 0)
	req.Width = 0
	if _, err := ctx.Spawn(req); err == nil {
		t.Error("expected error for empty actor")
	}
}

func TestDriveAndCollide(t *testing.T) {
	ctx := newContext(t, DefaultConfig())

	left, err := ctx.Spawn(car(0, 0))
	if err != nil {
		t.Fatal(err)
	}
	right, err := ctx.Spawn(SpawnRequest{
		Role:   Ego,
		Pose:   Pose{X: 10, Y: 0, Heading: math.Pi},
		Length: 4,
		Width:  2,
	})
	if err != nil {
		t.Fatal(err)
	}

	var collided bool
	for i := 0; i < 30 && !collided; i++ {
		left.Actor.Drive(5, 0)
		right.Actor.Drive(5, 0)
		if err := ctx.Step(); err != nil {
			t.Fatal(err)
		}
		for _, c := range ctx.Collisions() {
			if c.Involves(left.Actor.ID) && c.Involves(right.Actor.ID) {
				collided = true
			}
		}
	}
	if !collided {
		t.Error("actors driving into each other did not collide")
	}
	if len(ctx.Collisions()) != 0 {
		t.Error("collisions were not drained")
	}
}

func TestDrive(t *testing.T) {
	ctx := newContext(t, DefaultConfig())
	res, err := ctx.Spawn(car(0, 0))
	if err != nil {
		t.Fatal(err)
	}

	a := res.Actor
	for i := 0; i < 10; i++ {
		a.Drive(2, 0)
		if err := ctx.Step(); err != nil {
			t.Fatal(err)
		}
	}
	if x := a.Pose().X; math.Abs(x-2) > 1e-6 {
		t.Errorf("expected to drive 2m, drove %v", x)
	}
	if s := a.Speed(); math.Abs(s-2) > 1e-6 {
		t.Errorf("expected speed 2, got %v", s)
	}
}

func TestClosed(t *testing.T) {
	ctx, err := New(DefaultConfig(), nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := ctx.Spawn(car(0, 0)); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Close(); err != nil {
		t.Fatal(err)
	}
	if err := ctx.Close(); err != nil {
		t.Errorf("second close failed: %v", err)
	}

	if _, err := ctx.Spawn(car(0, 0)); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
	if err := ctx.Step(); !errors.Is(err, ErrClosed) {
		t.Errorf("expected ErrClosed, got %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	c := DefaultConfig()
	c.MaxSpawnAttempts = 0
	if _, err := New(c, nil); err == nil {
		t.Error("expected error for zero spawn attempts")
	}
}
