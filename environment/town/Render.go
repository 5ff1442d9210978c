package town

import (
	"fmt"
	"math"
	"path/filepath"

	"github.com/fogleman/gg"
	"github.com/samuelfneumann/safebench/environment/world"
	"github.com/samuelfneumann/safebench/utils/floatutils"
)

// Grey levels of the bird-eye raster
const (
	roadShade      = 0.4
	egoShade       = 0.7
	adversaryShade = 1.0
)

// observe returns the flattened raster of an instance followed by its
// scalar features
func (t *Town) observe(inst *instance) []float64 {
	dc := t.render(inst)
	img := dc.Image()

	size := t.config.DisplaySize
	obs := make([]float64, 0, t.config.ObservationDim())
	for y := 0; y < size; y++ {
		for x := 0; x < size; x++ {
			r, _, _, _ := img.At(x, y).RGBA()
			obs = append(obs, float64(r)/0xffff)
		}
	}
	return append(obs, t.scalars(inst)...)
}

// scalars returns the normalised speed, lateral offset, heading error
// and distance to the nearest adversary of the ego vehicle
func (t *Town) scalars(inst *instance) []float64 {
	pose := inst.ego.Pose()

	nearest := t.config.ViewRange
	for _, a := range inst.adversaries {
		p := a.Pose()
		nearest = math.Min(nearest, math.Hypot(p.X-pose.X, p.Y-pose.Y))
	}

	return []float64{
		inst.egoSpeed / t.config.MaxSpeed,
		(pose.Y - inst.laneY) / (t.config.LaneWidth / 2),
		floatutils.Wrap(pose.Heading, -math.Pi, math.Pi) / math.Pi,
		nearest / t.config.ViewRange,
	}
}

// render draws the lane and the actors of an instance centred on the
// ego vehicle
func (t *Town) render(inst *instance) *gg.Context {
	size := float64(t.config.DisplaySize)
	scale := size / t.config.ViewRange
	centre := inst.ego.Pose()

	toPixel := func(x, y float64) (float64, float64) {
		return (x-centre.X)*scale + size/2, size/2 - (y-centre.Y)*scale
	}

	dc := gg.NewContext(t.config.DisplaySize, t.config.DisplaySize)
	dc.SetRGB(0, 0, 0)
	dc.Clear()

	x0, y0 := toPixel(0, inst.laneY+t.config.LaneWidth/2)
	dc.DrawRectangle(x0, y0, t.config.LaneLength*scale,
		t.config.LaneWidth*scale)
	dc.SetRGB(roadShade, roadShade, roadShade)
	dc.Fill()

	drawActor := func(a *world.Actor, shade float64) {
		p := a.Pose()
		px, py := toPixel(p.X, p.Y)
		dc.Push()
		dc.Translate(px, py)
		dc.Rotate(-p.Heading)
		dc.DrawRectangle(-a.Length*scale/2, -a.Width*scale/2,
			a.Length*scale, a.Width*scale)
		dc.SetRGB(shade, shade, shade)
		dc.Fill()
		dc.Pop()
	}
	for _, a := range inst.adversaries {
		drawActor(a, adversaryShade)
	}
	drawActor(inst.ego, egoShade)

	return dc
}

// saveFrames writes the raster of every instance as a PNG
func (t *Town) saveFrames() error {
	for _, inst := range t.instances {
		path := filepath.Join(t.config.FrameDir, fmt.Sprintf(
			"scenario%02d_%04d.png", inst.config.ID, t.frame))
		if err := t.render(inst).SavePNG(path); err != nil {
			return fmt.Errorf("saveFrames: %w", err)
		}
	}
	return nil
}
