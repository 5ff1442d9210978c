package environment

// StepLimit ends episodes at a fixed number of steps
type StepLimit struct {
	episodeSteps int
}

// NewStepLimit creates and returns a new step limit. A non-positive
// limit never ends an episode.
func NewStepLimit(episodeSteps int) StepLimit {
	return StepLimit{episodeSteps}
}

// End returns whether an episode at the given step should end
func (s StepLimit) End(step int) bool {
	return s.episodeSteps > 0 && step >= s.episodeSteps
}
