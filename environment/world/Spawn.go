package world

import (
	"fmt"
	"log/slog"

	"github.com/ByteArena/box2d"
)

// SpawnStatus reports the outcome of a spawn request
type SpawnStatus int

const (
	Spawned SpawnStatus = iota
	Exhausted
)

func (s SpawnStatus) String() string {
	switch s {
	case Spawned:
		return "Spawned"
	case Exhausted:
		return "Exhausted"
	}
	return fmt.Sprintf("SpawnStatus(%d)", int(s))
}

// SpawnRequest asks for an actor of the given size at a pose
type SpawnRequest struct {
	Role   Role
	Pose   Pose
	Length float64
	Width  float64
}

// SpawnResult is the outcome of Context.Spawn. Actor is nil unless the
// status is Spawned.
type SpawnResult struct {
	Actor    *Actor
	Pose     Pose
	Attempts int
	Status   SpawnStatus
}

// Spawn places an actor at the requested pose. If the pose overlaps a
// registered actor, the position is jittered and retried up to
// MaxSpawnAttempts times in total before giving up with status
// Exhausted.
func (c *Context) Spawn(req SpawnRequest) (SpawnResult, error) {
	if c.closed {
		return SpawnResult{}, ErrClosed
	}
	if req.Length <= 0 || req.Width <= 0 {
		return SpawnResult{}, fmt.Errorf("spawn: actor size must be "+
			"positive, got %v x %v", req.Length, req.Width)
	}

	pose := req.Pose
	for attempt := 1; attempt <= c.config.MaxSpawnAttempts; attempt++ {
		if attempt > 1 {
			pose = c.jittered(req.Pose)
		}
		if c.blocked(pose, req.Length, req.Width) {
			continue
		}

		a := c.create(req, pose)
		return SpawnResult{
			Actor:    a,
			Pose:     pose,
			Attempts: attempt,
			Status:   Spawned,
		}, nil
	}

	c.logger.Debug("spawn attempts exhausted",
		slog.String("role", string(req.Role)),
		slog.String("pose", req.Pose.String()),
		slog.Int("attempts", c.config.MaxSpawnAttempts))
	return SpawnResult{
		Pose:     req.Pose,
		Attempts: c.config.MaxSpawnAttempts,
		Status:   Exhausted,
	}, nil
}

func (c *Context) jittered(p Pose) Pose {
	if c.jitter == nil {
		return p
	}
	offset := c.jitter.Rand(nil)
	return Pose{X: p.X + offset[0], Y: p.Y + offset[1], Heading: p.Heading}
}

// blocked returns whether a rectangle at pose would overlap any
// registered actor
func (c *Context) blocked(p Pose, length, width float64) bool {
	x, y := bounds(p, length, width, c.config.SpawnMargin)
	for _, a := range c.order {
		ax, ay := bounds(a.Pose(), a.Length, a.Width, 0)
		if overlaps(x, ax) && overlaps(y, ay) {
			return true
		}
	}
	return false
}

// create adds a dynamic box body to the world
func (c *Context) create(req SpawnRequest, p Pose) *Actor {
	def := box2d.MakeB2BodyDef()
	def.Type = 2 // Dynamic body
	def.Position = box2d.MakeB2Vec2(p.X, p.Y)
	def.Angle = p.Heading
	body := c.world.CreateBody(&def)

	shape := box2d.NewB2PolygonShape()
	shape.SetAsBox(req.Length/2, req.Width/2)
	fix := box2d.MakeB2FixtureDef()
	fix.Shape = shape
	fix.Density = 1.0
	fix.Friction = 0.3
	fix.Restitution = 0.0
	body.CreateFixtureFromDef(&fix)

	a := &Actor{
		ID:     c.nextID,
		Role:   req.Role,
		Length: req.Length,
		Width:  req.Width,
		body:   body,
	}
	c.nextID++
	c.actors[body] = a
	c.order = append(c.order, a)
	return a
}
