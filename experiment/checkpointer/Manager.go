package checkpointer

import (
	"encoding/gob"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/samuelfneumann/safebench/network"
)

// Ext is the file extension of snapshot files
const Ext = "gob"

// ErrNotFound is returned when a requested snapshot does not exist
var ErrNotFound = errors.New("checkpoint not found")

// IsNotFound returns whether err reports a missing snapshot
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Snapshot holds the parameters of every network group of a model at
// a given episode
type Snapshot struct {
	Episode int
	Groups  map[string]map[string]network.Param
}

// Manager stores snapshots of a single model in a directory, one file
// per episode named <prefix>.<model id>.<episode>.gob with the episode
// zero-padded to four digits.
type Manager struct {
	dir     string
	prefix  string
	modelID string
}

// NewManager returns a Manager for the model with the given id. The
// prefix names the algorithm, e.g. "model.sac". The directory is
// created if needed.
func NewManager(dir, prefix, modelID string) (*Manager, error) {
	if prefix == "" || modelID == "" {
		return nil, fmt.Errorf("newManager: prefix and model id must be " +
			"non-empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("newManager: could not create model "+
			"directory: %w", err)
	}

	return &Manager{
		dir:     dir,
		prefix:  prefix,
		modelID: modelID,
	}, nil
}

// Dir returns the directory the snapshots are stored in
func (m *Manager) Dir() string {
	return m.dir
}

// Path returns the file path of the snapshot of the given episode
func (m *Manager) Path(episode int) string {
	name := fmt.Sprintf("%v.%v.%04d.%v", m.prefix, m.modelID, episode, Ext)
	return filepath.Join(m.dir, name)
}

// Save writes s to the file of its episode and returns the file path.
// The file is written to a temporary file first and renamed, so a
// crash never leaves a partial snapshot behind.
func (m *Manager) Save(s Snapshot) (string, error) {
	path := m.Path(s.Episode)

	tmp, err := os.CreateTemp(m.dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("save: could not create file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := gob.NewEncoder(tmp).Encode(s); err != nil {
		tmp.Close()
		return "", fmt.Errorf("save: could not encode snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("save: could not close file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("save: could not rename snapshot: %w", err)
	}
	return path, nil
}

// Latest returns the highest episode with a snapshot on disk. The
// boolean is false if there is no snapshot.
func (m *Manager) Latest() (int, bool, error) {
	entries, err := os.ReadDir(m.dir)
	if err != nil {
		return 0, false, fmt.Errorf("latest: could not read model "+
			"directory: %w", err)
	}

	head := m.prefix + "." + m.modelID + "."
	tail := "." + Ext

	latest, found := -1, false
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, head) ||
			!strings.HasSuffix(name, tail) {
			continue
		}

		episode, err := strconv.Atoi(strings.TrimSuffix(
			strings.TrimPrefix(name, head), tail))
		if err != nil || episode < 0 {
			continue
		}
		if episode > latest {
			latest, found = episode, true
		}
	}
	return latest, found, nil
}

// Load reads the snapshot of the given episode, or of the latest
// episode if episode is negative. The returned path is the file that
// was (or would have been) read. A missing snapshot is reported with an
// error wrapping ErrNotFound.
func (m *Manager) Load(episode int) (Snapshot, string, error) {
	if episode < 0 {
		latest, found, err := m.Latest()
		if err != nil {
			return Snapshot{}, "", fmt.Errorf("load: %w", err)
		}
		if !found {
			return Snapshot{}, m.dir, fmt.Errorf("load: %w in %v",
				ErrNotFound, m.dir)
		}
		episode = latest
	}

	path := m.Path(episode)
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return Snapshot{}, path, fmt.Errorf("load: %w: %v", ErrNotFound, path)
	} else if err != nil {
		return Snapshot{}, path, fmt.Errorf("load: could not open "+
			"snapshot: %w", err)
	}
	defer f.Close()

	var s Snapshot
	if err := gob.NewDecoder(f).Decode(&s); err != nil {
		return Snapshot{}, path, fmt.Errorf("load: could not decode "+
			"snapshot %v: %w", path, err)
	}
	return s, path, nil
}
