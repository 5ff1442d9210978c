package world

import (
	"fmt"
	"math"

	"github.com/ByteArena/box2d"
	"gonum.org/v1/gonum/spatial/r1"
)

// Role distinguishes the ego vehicle from scenario actors
type Role string

const (
	Ego       Role = "ego"
	Adversary Role = "adversary"
)

// Pose is a planar position in metres and a heading in radians
type Pose struct {
	X, Y, Heading float64
}

func (p Pose) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", p.X, p.Y, p.Heading)
}

// Actor is a rectangular vehicle registered with a Context
type Actor struct {
	ID     int
	Role   Role
	Length float64
	Width  float64

	body *box2d.B2Body
}

// Pose returns the current pose of the actor
func (a *Actor) Pose() Pose {
	pos := a.body.GetPosition()
	return Pose{X: pos.X, Y: pos.Y, Heading: a.body.GetAngle()}
}

// Speed returns the magnitude of the actor's velocity
func (a *Actor) Speed() float64 {
	v := a.body.GetLinearVelocity()
	return math.Hypot(v.X, v.Y)
}

// Drive sets the velocity of the actor to speed along its heading and
// its angular velocity to yawRate until the next call
func (a *Actor) Drive(speed, yawRate float64) {
	heading := a.body.GetAngle()
	a.body.SetLinearVelocity(box2d.MakeB2Vec2(
		speed*math.Cos(heading),
		speed*math.Sin(heading),
	))
	a.body.SetAngularVelocity(yawRate)
}

// bounds returns the axis-aligned bounding box of a rectangle of the
// given size at pose p, grown by margin on every side
func bounds(p Pose, length, width, margin float64) (x, y r1.Interval) {
	c, s := math.Abs(math.Cos(p.Heading)), math.Abs(math.Sin(p.Heading))
	hx := c*length/2 + s*width/2 + margin
	hy := s*length/2 + c*width/2 + margin
	return r1.Interval{Min: p.X - hx, Max: p.X + hx},
		r1.Interval{Min: p.Y - hy, Max: p.Y + hy}
}

func overlaps(a, b r1.Interval) bool {
	return a.Min < b.Max && b.Min < a.Max
}
