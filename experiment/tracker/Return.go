package tracker

import (
	"fmt"
	"sort"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"
)

// ReturnData holds the episodic returns and costs of each scenario, in
// the order the episodes finished
type ReturnData struct {
	Returns map[int][]float64
	Costs   map[int][]float64
}

// Return tracks and saves the episodic return and cost of each
// scenario in an experiment.
//
// Note: only finished episodes are tracked. An episode cut short by
// cancelling the experiment is not recorded.
type Return struct {
	data     ReturnData
	filename string
}

// NewReturn creates and returns a new *Return Tracker which saves to
// filename
func NewReturn(filename string) *Return {
	return &Return{
		data: ReturnData{
			Returns: make(map[int][]float64),
			Costs:   make(map[int][]float64),
		},
		filename: filename,
	}
}

// Track caches the return and cost of a finished scenario episode
func (r *Return) Track(e Episode) {
	r.data.Returns[e.Scenario] = append(r.data.Returns[e.Scenario], e.Return)
	r.data.Costs[e.Scenario] = append(r.data.Costs[e.Scenario], e.Cost)
}

// Data returns the data tracked so far
func (r *Return) Data() ReturnData {
	return r.data
}

// Save saves the data tracked by the Return Tracker to disk
func (r *Return) Save() error {
	if err := saveGob(r.filename, r.data); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return nil
}

// LoadReturn loads and returns the data saved by a Return Tracker
func LoadReturn(filename string) (ReturnData, error) {
	var data ReturnData
	if err := loadGob(filename, &data); err != nil {
		return ReturnData{}, fmt.Errorf("loadReturn: %w", err)
	}
	return data, nil
}

// Plot draws the learning curve of every scenario to a PNG at path
func (r *Return) Plot(path string) error {
	if len(r.data.Returns) == 0 {
		return fmt.Errorf("plot: no episodes tracked")
	}

	p := plot.New()
	p.Title.Text = "Episodic return"
	p.X.Label.Text = "Episode"
	p.Y.Label.Text = "Return"

	scenarios := make([]int, 0, len(r.data.Returns))
	for id := range r.data.Returns {
		scenarios = append(scenarios, id)
	}
	sort.Ints(scenarios)

	for i, id := range scenarios {
		returns := r.data.Returns[id]
		pts := make(plotter.XYs, len(returns))
		for j, ret := range returns {
			pts[j].X = float64(j)
			pts[j].Y = ret
		}

		line, err := plotter.NewLine(pts)
		if err != nil {
			return fmt.Errorf("plot: scenario %v: %w", id, err)
		}
		line.Color = plotutil.Color(i)
		p.Add(line)
		p.Legend.Add(fmt.Sprintf("scenario %v", id), line)
	}

	if err := p.Save(6*vg.Inch, 4*vg.Inch, path); err != nil {
		return fmt.Errorf("plot: %w", err)
	}
	return nil
}
