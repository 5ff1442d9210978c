// Package town implements a toy driving town: each scenario instance
// is a straight lane with an ego vehicle followed by adversarial
// vehicles ahead of it, all simulated in one shared world context.
package town

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"os"

	"github.com/samuelfneumann/safebench/environment"
	"github.com/samuelfneumann/safebench/environment/world"
	"github.com/samuelfneumann/safebench/scenario"
	"github.com/samuelfneumann/safebench/timestep"
	"github.com/samuelfneumann/safebench/utils/floatutils"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
)

// Number of action components of the ego vehicle and of a scenario:
// acceleration and steering, both in [-1, 1]
const ActionDim = 2

// instance is one running scenario
type instance struct {
	id     int
	config scenario.Config
	laneY  float64

	ego         *world.Actor
	egoSpeed    float64
	adversaries []*world.Actor
	advSpeed    []float64

	step int
	done bool
	obs  []float64
}

// Town is a batched environment.Environment. The world context is
// owned by the caller and must outlive the Town.
type Town struct {
	config Config
	ctx    *world.Context
	logger *slog.Logger

	stepLimit environment.StepLimit
	roadLimit environment.IntervalLimit

	instances []*instance
	frame     int
}

// New returns a Town simulated in ctx
func New(c Config, ctx *world.Context, logger *slog.Logger) (*Town, error) {
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("new: %w", err)
	}
	if ctx == nil {
		return nil, fmt.Errorf("new: nil world context")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if c.SaveFrames {
		if err := os.MkdirAll(c.FrameDir, 0o755); err != nil {
			return nil, fmt.Errorf("new: could not create frame "+
				"directory: %w", err)
		}
	}

	half := c.LaneWidth / 2
	return &Town{
		config:    c,
		ctx:       ctx,
		logger:    logger,
		stepLimit: environment.NewStepLimit(c.MaxEpisodeStep),
		roadLimit: environment.NewIntervalLimit(r1.Interval{
			Min: -half,
			Max: half,
		}),
	}, nil
}

// Spec returns the specification of the Town
func (t *Town) Spec() environment.Spec {
	return environment.Spec{
		ObservationDim:    t.config.ObservationDim(),
		ScalarDim:         ScalarDim,
		ActionDim:         ActionDim,
		ScenarioActionDim: ActionDim,
		ActionBounds:      r1.Interval{Min: -1, Max: 1},
		NumScenario:       t.config.NumScenario,
	}
}

// Reset removes all actors from the world and starts one instance per
// config. Instance i drives on the lane at lateral position
// i * LaneSpacing. An adversary which cannot be spawned is skipped; an
// ego vehicle which cannot be spawned is an error.
func (t *Town) Reset(configs []scenario.Config) (*mat.Dense,
	[]timestep.Info, error) {
	if len(configs) == 0 || len(configs) > t.config.NumScenario {
		return nil, nil, fmt.Errorf("reset: expected between 1 and %v "+
			"scenario configs, got %v", t.config.NumScenario, len(configs))
	}
	if err := t.ctx.Clear(); err != nil {
		return nil, nil, fmt.Errorf("reset: %w", err)
	}

	t.instances = make([]*instance, len(configs))
	infos := make([]timestep.Info, len(configs))
	for i, c := range configs {
		if err := c.Validate(); err != nil {
			return nil, nil, fmt.Errorf("reset: %w", err)
		}
		inst, err := t.spawn(i, c)
		if err != nil {
			return nil, nil, fmt.Errorf("reset: %w", err)
		}
		t.instances[i] = inst

		inst.obs = t.observe(inst)
		infos[i] = timestep.Info{ScenarioID: i, StepType: timestep.First}
	}
	t.frame = 0

	return t.observations(), infos, nil
}

// spawn creates the actors of one instance
func (t *Town) spawn(id int, c scenario.Config) (*instance, error) {
	inst := &instance{
		id:     id,
		config: c,
		laneY:  float64(id) * t.config.LaneSpacing,
	}

	res, err := t.ctx.Spawn(t.request(world.Ego, t.config.EgoStart,
		inst.laneY))
	if err != nil {
		return nil, err
	}
	if res.Status != world.Spawned {
		return nil, fmt.Errorf("could not spawn ego vehicle of scenario %v "+
			"after %v attempts", c.ID, res.Attempts)
	}
	inst.ego = res.Actor

	for k := 0; k < c.Adversaries; k++ {
		x := t.config.EgoStart + c.Gap*float64(k+1)
		res, err := t.ctx.Spawn(t.request(world.Adversary, x, inst.laneY))
		if err != nil {
			return nil, err
		}
		if res.Status != world.Spawned {
			t.logger.Warn("skipping adversary",
				slog.Int("scenario", c.ID),
				slog.Int("adversary", k),
				slog.Int("attempts", res.Attempts))
			continue
		}
		inst.adversaries = append(inst.adversaries, res.Actor)
		inst.advSpeed = append(inst.advSpeed, c.LeadSpeed)
	}
	return inst, nil
}

func (t *Town) request(role world.Role, x, y float64) world.SpawnRequest {
	return world.SpawnRequest{
		Role:   role,
		Pose:   world.Pose{X: x, Y: y},
		Length: t.config.VehicleLength,
		Width:  t.config.VehicleWidth,
	}
}

// Step drives every running instance with its row of ego and scenario
// actions and advances the shared world once. Scenario actions control
// the first adversary of each instance; the others cruise.
func (t *Town) Step(ego, scen *mat.Dense) (environment.Step, error) {
	n := len(t.instances)
	if n == 0 {
		return environment.Step{}, fmt.Errorf("step: environment not reset")
	}
	if err := checkActions("ego", ego, n); err != nil {
		return environment.Step{}, fmt.Errorf("step: %w", err)
	}
	if err := checkActions("scenario", scen, n); err != nil {
		return environment.Step{}, fmt.Errorf("step: %w", err)
	}

	dt := t.ctx.Config().TimeStep
	prevX := make([]float64, n)
	for i, inst := range t.instances {
		prevX[i] = inst.ego.Pose().X
		if inst.done {
			t.freeze(inst)
			continue
		}
		t.drive(inst, ego.RawRowView(i), scen.RawRowView(i), dt)
	}

	if err := t.ctx.Step(); err != nil {
		return environment.Step{}, fmt.Errorf("step: %w", err)
	}
	collisions := t.ctx.Collisions()

	step := environment.Step{
		Reward: make([]float64, n),
		Done:   make([]bool, n),
		Info:   make([]timestep.Info, n),
	}
	for i, inst := range t.instances {
		if inst.done {
			step.Done[i] = true
			step.Info[i] = timestep.Info{
				ScenarioID: i,
				Step:       inst.step,
				StepType:   timestep.Last,
			}
			continue
		}
		step.Reward[i], step.Info[i] = t.transition(inst, prevX[i], dt,
			collisions)
		step.Done[i] = inst.done
	}

	if t.config.SaveFrames {
		if err := t.saveFrames(); err != nil {
			return environment.Step{}, fmt.Errorf("step: %w", err)
		}
	}
	t.frame++

	step.Observation = t.observations()
	return step, nil
}

// drive applies one row of ego and scenario actions to an instance
func (t *Town) drive(inst *instance, ego, scen []float64, dt float64) {
	accel := floatutils.Clip(ego[0], -1, 1) * t.config.MaxAccel
	inst.egoSpeed = floatutils.Clip(inst.egoSpeed+accel*dt, 0,
		t.config.MaxSpeed)
	inst.ego.Drive(inst.egoSpeed, floatutils.Clip(ego[1], -1, 1)*
		t.config.MaxYawRate)

	for k, a := range inst.adversaries {
		if k > 0 {
			a.Drive(inst.advSpeed[k], 0)
			continue
		}
		accel := floatutils.Clip(scen[0], -1, 1) * t.config.MaxAccel
		inst.advSpeed[k] = floatutils.Clip(inst.advSpeed[k]+accel*dt, 0,
			t.config.MaxSpeed)
		a.Drive(inst.advSpeed[k], floatutils.Clip(scen[1], -1, 1)*
			t.config.MaxYawRate)
	}
}

// freeze stops all actors of a finished instance
func (t *Town) freeze(inst *instance) {
	inst.ego.Drive(0, 0)
	for _, a := range inst.adversaries {
		a.Drive(0, 0)
	}
}

// transition computes the reward and info of a running instance after
// the world was stepped, and ends its episode if needed
func (t *Town) transition(inst *instance, prevX, dt float64,
	collisions []world.Collision) (float64, timestep.Info) {
	inst.step++
	pose := inst.ego.Pose()
	inst.egoSpeed = math.Min(inst.ego.Speed(), t.config.MaxSpeed)

	lateral := pose.Y - inst.laneY
	progress := (pose.X - prevX) / (t.config.MaxSpeed * dt)
	reward := progress - t.config.DeviationPenalty*math.Abs(lateral)/
		(t.config.LaneWidth/2)

	var collision bool
	for _, c := range collisions {
		if c.Involves(inst.ego.ID) {
			collision = true
			break
		}
	}
	offRoad := t.roadLimit.End(lateral)

	info := timestep.Info{
		ScenarioID: inst.id,
		Step:       inst.step,
		StepType:   timestep.Mid,
		Collision:  collision,
		OffRoad:    offRoad,
	}
	if collision || offRoad {
		info.Cost = 1
	}

	if collision || offRoad || t.stepLimit.End(inst.step) ||
		pose.X >= t.config.LaneLength {
		inst.done = true
		info.StepType = timestep.Last
		t.logger.Debug("scenario finished",
			slog.Int("scenario", inst.config.ID),
			slog.Int("step", inst.step),
			slog.Bool("collision", collision),
			slog.Bool("off_road", offRoad))
	}

	inst.obs = t.observe(inst)
	return reward, info
}

// AllDone returns whether every instance has finished
func (t *Town) AllDone() bool {
	for _, inst := range t.instances {
		if !inst.done {
			return false
		}
	}
	return true
}

// Close removes all actors of the Town from the world context
func (t *Town) Close() error {
	t.instances = nil
	if err := t.ctx.Clear(); err != nil && !errors.Is(err, world.ErrClosed) {
		return fmt.Errorf("close: %w", err)
	}
	return nil
}

func (t *Town) observations() *mat.Dense {
	obs := mat.NewDense(len(t.instances), t.config.ObservationDim(), nil)
	for i, inst := range t.instances {
		obs.SetRow(i, inst.obs)
	}
	return obs
}

func checkActions(role string, actions *mat.Dense, rows int) error {
	if actions == nil {
		return fmt.Errorf("nil %v actions", role)
	}
	r, c := actions.Dims()
	if r != rows || c != ActionDim {
		return fmt.Errorf("expected %v actions of shape %v x %v, got %v x %v",
			role, rows, ActionDim, r, c)
	}
	return nil
}
