// Package checkpointer implements saving and restoring versioned
// snapshots of network parameters, and triggers that decide when a
// snapshot should be taken.
package checkpointer

// Saver is an object that can checkpoint itself at a given episode
type Saver interface {
	Save(episode int) error
}

// Checkpointer checkpoints a Saver based on the episode number
type Checkpointer interface {
	Checkpoint(episode int) error
}

// nStep implements checkpointing every N episodes
type nStep struct {
	interval int
	object   Saver
}

// NewNStep returns a checkpointer that checkpoints object every n
// episodes. A non-positive n never checkpoints.
func NewNStep(n int, object Saver) Checkpointer {
	return &nStep{
		interval: n,
		object:   object,
	}
}

// Checkpoint checkpoints the Checkpointer's tracked object by calling
// its Save() method
func (n *nStep) Checkpoint(episode int) error {
	if n.interval <= 0 || episode <= 0 || episode%n.interval != 0 {
		return nil
	}
	return n.object.Save(episode)
}
