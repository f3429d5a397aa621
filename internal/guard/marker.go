package guard

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/go-ps"
	"gopkg.in/yaml.v3"

	"github.com/rascalsoftware/rascal-packager/internal/logger"
)

const (
	// MarkerFilename is created inside the work directory while a run is active.
	MarkerFilename = ".rascal-packager.lock"

	// DefaultLifetime is how long a marker protects a run before it counts as stale.
	DefaultLifetime = 2 * time.Hour

	markerFileMode os.FileMode = 0o644
)

// ErrBuildInProgress is returned when another live process holds the marker.
var ErrBuildInProgress = errors.New("another packaging run is in progress")

// owner is the marker payload.
type owner struct {
	PID        int       `yaml:"pid"`
	Executable string    `yaml:"executable"`
	StartedAt  time.Time `yaml:"started_at"`
}

// Marker is a held build marker.
type Marker struct {
	path string
}

// Acquire creates the marker in dir, clearing stale ones first.
func Acquire(ctx context.Context, dir string, lifetime time.Duration) (*Marker, error) {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}

	path := filepath.Join(dir, MarkerFilename)

	busy, err := isHeld(ctx, path, lifetime)
	if err != nil {
		return nil, err
	}

	if busy {
		return nil, fmt.Errorf("%w (marker %s)", ErrBuildInProgress, path)
	}

	if err = os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}

	self, err := currentOwner()
	if err != nil {
		return nil, err
	}

	data, err := yaml.Marshal(self)
	if err != nil {
		return nil, fmt.Errorf("encode build marker: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, markerFileMode)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("%w (marker %s)", ErrBuildInProgress, path)
		}

		return nil, fmt.Errorf("create build marker: %w", err)
	}

	if _, err = file.Write(data); err != nil {
		_ = file.Close()
		_ = os.Remove(path)

		return nil, fmt.Errorf("write build marker: %w", err)
	}

	if err = file.Close(); err != nil {
		return nil, fmt.Errorf("close build marker: %w", err)
	}

	logger.DebugKV(ctx, "Acquired build marker", "path", path, "pid", self.PID)

	return &Marker{path: path}, nil
}

// Release removes the marker. Releasing twice is harmless.
func (m *Marker) Release() error {
	if m == nil {
		return nil
	}

	if err := os.Remove(m.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove build marker: %w", err)
	}

	return nil
}

// Path returns the marker location.
func (m *Marker) Path() string {
	return m.path
}

// isHeld reports whether a live process owns the marker at path.
// Stale markers are removed.
func isHeld(ctx context.Context, path string, lifetime time.Duration) (bool, error) {
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}

	if err != nil {
		return false, fmt.Errorf("stat build marker: %w", err)
	}

	if time.Since(info.ModTime()) <= lifetime {
		alive, aliveErr := ownerAlive(path)
		if aliveErr != nil {
			logger.WarnKV(ctx, "Unable to inspect build marker, treating it as stale", "path", path, "error", aliveErr)
		} else if alive {
			return true, nil
		}
	}

	logger.InfoKV(ctx, "Removing stale build marker", "path", path)

	if err = os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("remove stale build marker: %w", err)
	}

	return false, nil
}

// ownerAlive checks that the recorded process still runs the recorded executable.
func ownerAlive(path string) (bool, error) {
	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return false, err
	}

	var recorded owner
	if err = yaml.Unmarshal(contents, &recorded); err != nil {
		return false, err
	}

	if recorded.PID <= 0 || recorded.PID == os.Getpid() {
		return false, nil
	}

	process, err := ps.FindProcess(recorded.PID)
	if err != nil {
		return false, err
	}

	if process == nil {
		return false, nil
	}

	return recorded.Executable == "" || process.Executable() == recorded.Executable, nil
}

func currentOwner() (*owner, error) {
	pid := os.Getpid()

	process, err := ps.FindProcess(pid)
	if err != nil {
		return nil, fmt.Errorf("inspect current process: %w", err)
	}

	self := &owner{PID: pid, StartedAt: time.Now().UTC()}
	if process != nil {
		self.Executable = process.Executable()
	}

	return self, nil
}
