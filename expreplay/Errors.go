package expreplay

import "errors"

// Error implements errors unique to a replay buffer.
type Error struct {
	Op  string
	Err error
}

// Error satisifes the error interface
func (e *Error) Error() string {
	return e.Op + ": " + e.Err.Error()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Err
}

var errEmptyBuffer = errors.New("buffer empty")
var errUnknownScenario = errors.New("unknown scenario id")

// IsEmptyBuffer returns whether or not an error reports that a replay
// buffer has no transitions to sample from.
func IsEmptyBuffer(err error) bool {
	return errors.Is(err, errEmptyBuffer)
}

// IsUnknownScenario returns whether or not an error reports that a
// transition named a scenario the buffer does not track.
func IsUnknownScenario(err error) bool {
	return errors.Is(err, errUnknownScenario)
}
