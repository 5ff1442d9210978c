// Package world implements the physics context shared by all scenario
// instances of an environment. A Context owns a box2d world together
// with the actors spawned into it, and must be closed by its owner.
package world

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/ByteArena/box2d"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/spatial/r1"
	"gonum.org/v1/gonum/stat/distmv"
)

// ErrClosed is returned when using a Context after Close
var ErrClosed = errors.New("world context closed")

// Collision records that two actors came into contact
type Collision struct {
	A, B int
}

// Involves returns whether the actor with the given id took part
func (c Collision) Involves(id int) bool {
	return c.A == id || c.B == id
}

// Context is a box2d world with a registry of actors
type Context struct {
	config Config
	logger *slog.Logger

	world  box2d.B2World
	actors map[*box2d.B2Body]*Actor
	order  []*Actor
	nextID int

	jitter     *distmv.Uniform
	collisions []Collision
	closed     bool
}

// New returns a new Context without gravity, since the world is
// viewed from above
func New(c Config, logger *slog.Logger) (*Context, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}

	ctx := &Context{
		config: c,
		logger: logger,
		world:  box2d.MakeB2World(box2d.MakeB2Vec2(0, 0)),
		actors: make(map[*box2d.B2Body]*Actor),
	}
	if c.SpawnJitter > 0 {
		ctx.jitter = distmv.NewUniform([]r1.Interval{
			{Min: -c.SpawnJitter, Max: c.SpawnJitter},
			{Min: -c.SpawnJitter, Max: c.SpawnJitter},
		}, rand.NewSource(c.Seed))
	}
	ctx.world.SetContactListener(&contactListener{ctx})
	return ctx, nil
}

// Config returns the configuration of the Context
func (c *Context) Config() Config {
	return c.config
}

// Actors returns the registered actors in spawn order
func (c *Context) Actors() []*Actor {
	return append([]*Actor(nil), c.order...)
}

// Destroy removes an actor from the world
func (c *Context) Destroy(a *Actor) error {
	if c.closed {
		return ErrClosed
	}
	if _, ok := c.actors[a.body]; !ok {
		return fmt.Errorf("destroy: actor %v is not registered", a.ID)
	}

	c.world.DestroyBody(a.body)
	delete(c.actors, a.body)
	for i, registered := range c.order {
		if registered == a {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
	return nil
}

// Clear destroys all actors and discards pending collisions
func (c *Context) Clear() error {
	if c.closed {
		return ErrClosed
	}
	for _, a := range c.order {
		c.world.DestroyBody(a.body)
	}
	c.actors = make(map[*box2d.B2Body]*Actor)
	c.order = nil
	c.collisions = nil
	return nil
}

// Step advances the physics by one time step
func (c *Context) Step() error {
	if c.closed {
		return ErrClosed
	}
	c.world.Step(c.config.TimeStep, c.config.VelocityIterations,
		c.config.PositionIterations)
	return nil
}

// Collisions returns and forgets the collisions recorded since the
// last call
func (c *Context) Collisions() []Collision {
	collisions := c.collisions
	c.collisions = nil
	return collisions
}

// Close destroys all actors and releases the world. Closing twice is
// a no-op.
func (c *Context) Close() error {
	if c.closed {
		return nil
	}
	if err := c.Clear(); err != nil {
		return err
	}
	c.world.SetContactListener(nil)
	c.closed = true
	c.logger.Debug("closed world context")
	return nil
}

// contactListener records collisions between registered actors
type contactListener struct {
	ctx *Context
}

func (l *contactListener) BeginContact(contact box2d.B2ContactInterface) {
	a, okA := l.ctx.actors[contact.GetFixtureA().GetBody()]
	b, okB := l.ctx.actors[contact.GetFixtureB().GetBody()]
	if okA && okB {
		l.ctx.collisions = append(l.ctx.collisions, Collision{a.ID, b.ID})
	}
}

func (l *contactListener) EndContact(box2d.B2ContactInterface) {}

func (l *contactListener) PreSolve(box2d.B2ContactInterface,
	box2d.B2Manifold) {
}

func (l *contactListener) PostSolve(box2d.B2ContactInterface,
	*box2d.B2ContactImpulse) {
}
