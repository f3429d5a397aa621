package release

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	domain "github.com/rascalsoftware/rascal-packager/internal/domain/release"
)

// RecordExtension is appended to the installer filename to name its record.
const RecordExtension = ".yaml"

// recordFileMode is the permission of written records.
const recordFileMode os.FileMode = 0o644

// ErrNotFound is returned when the record file does not exist yet.
var ErrNotFound = errors.New("release record not found")

// Record describes a built installer.
type Record struct {
	Product     string        `yaml:"product"`
	Tag         string        `yaml:"tag,omitempty"`
	Version     string        `yaml:"version"`
	Arch        string        `yaml:"arch"`
	Installer   string        `yaml:"installer"`
	SHA256      string        `yaml:"sha256"`
	Size        int64         `yaml:"size"`
	BuiltAt     time.Time     `yaml:"built_at"`
	BuiltBy     *domain.Actor `yaml:"built_by,omitempty"`
	ToolVersion string        `yaml:"tool_version"`
}

// FileRepository persists a release record to a YAML file on disk.
type FileRepository struct {
	// path is the filesystem location of the record.
	path string
	// mu protects concurrent access to the record file.
	mu sync.Mutex
}

// NewFileRepository creates a repository that reads/writes YAML at the provided path.
func NewFileRepository(path string) *FileRepository {
	return &FileRepository{
		path: filepath.Clean(path),
	}
}

// RecordPath returns the record path for an installer path.
func RecordPath(installer string) string {
	return installer + RecordExtension
}

// Path returns the record file location.
func (r *FileRepository) Path() string {
	return r.path
}

// Load reads the record from disk.
func (r *FileRepository) Load(_ context.Context) (*Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	contents, err := os.ReadFile(r.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrNotFound
		}

		return nil, fmt.Errorf("read release record: %w", err)
	}

	var record Record
	if err = yaml.Unmarshal(contents, &record); err != nil {
		return nil, fmt.Errorf("decode release record: %w", err)
	}

	return &record, nil
}

// Save writes the record to disk.
func (r *FileRepository) Save(_ context.Context, record *Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := yaml.Marshal(record)
	if err != nil {
		return fmt.Errorf("encode release record: %w", err)
	}

	if err = os.WriteFile(r.path, data, recordFileMode); err != nil {
		return fmt.Errorf("write release record: %w", err)
	}

	return nil
}

// Checksum returns the hex SHA-256 digest and size of the file at path.
func Checksum(path string) (string, int64, error) {
	file, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", 0, err
	}

	//nolint:errcheck // Read-only file.
	defer file.Close()

	hasher := sha256.New()

	size, err := io.Copy(hasher, file)
	if err != nil {
		return "", 0, fmt.Errorf("calculate checksum: %w", err)
	}

	return hex.EncodeToString(hasher.Sum(nil)), size, nil
}
