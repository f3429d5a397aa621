package release

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	domain "github.com/rascalsoftware/rascal-packager/internal/domain/release"
)

// TestFileRepository_NotFound verifies Load returns ErrNotFound for missing file.
func TestFileRepository_NotFound(t *testing.T) {
	t.Parallel()

	repo := NewFileRepository(filepath.Join(t.TempDir(), "missing.yaml"))
	r, err := repo.Load(context.Background())
	require.ErrorIs(t, err, ErrNotFound)
	require.Nil(t, r)
}

// TestFileRepository_SaveLoad_Roundtrip ensures Save followed by Load returns an equal record.
func TestFileRepository_SaveLoad_Roundtrip(t *testing.T) {
	t.Parallel()

	installer := filepath.Join(t.TempDir(), "RasCAL-2-2.0.0-macos-arm64.pkg")
	repo := NewFileRepository(RecordPath(installer))

	want := &Record{
		Product:     "RasCAL-2",
		Tag:         "v2.0.0",
		Version:     "2.0.0",
		Arch:        "arm64",
		Installer:   filepath.Base(installer),
		SHA256:      "abc123",
		Size:        42,
		BuiltAt:     time.Now().UTC().Truncate(time.Second),
		BuiltBy:     &domain.Actor{Hostname: "build-mac-01", Username: "ci"},
		ToolVersion: "1.0.0",
	}

	require.NoError(t, repo.Save(context.Background(), want))

	got, err := repo.Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, want.Version, got.Version)
	require.Equal(t, want.SHA256, got.SHA256)
	require.Equal(t, want.BuiltAt.Unix(), got.BuiltAt.Unix())
	require.Equal(t, want.BuiltBy, got.BuiltBy)

	require.FileExists(t, installer+".yaml")
	require.Equal(t, installer+".yaml", repo.Path())
}

// TestChecksum hashes a known payload.
func TestChecksum(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "payload.pkg")
	require.NoError(t, os.WriteFile(path, []byte("abc"), 0o600))

	sum, size, err := Checksum(path)
	require.NoError(t, err)
	require.Equal(t, int64(3), size)
	require.Equal(t, "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sum)

	_, _, err = Checksum(filepath.Join(t.TempDir(), "absent.pkg"))
	require.ErrorIs(t, err, os.ErrNotExist)
}
