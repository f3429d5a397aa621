//go:build !windows

package integration

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rascalsoftware/rascal-packager/internal/config"
	"github.com/rascalsoftware/rascal-packager/internal/pkgtool"
	records "github.com/rascalsoftware/rascal-packager/internal/repository/release"
	"github.com/rascalsoftware/rascal-packager/internal/service/packager"
)

const distributionTemplate = `<?xml version="1.0" encoding="utf-8"?>
<installer-gui-script minSpecVersion="2">
    <title>{{PRODUCT}} {{VERSION}}</title>
    <options customize="never" hostArchitectures="{{ARCH}}"/>
    <pkg-ref id="com.rascal2.rascal.pkg" version="{{VERSION}}" onConclusion="none">rascal.pkg</pkg-ref>
</installer-gui-script>
`

// fakeTool writes the last argument as the output package and logs all arguments to argsFile.
const fakeTool = `#!/bin/sh
printf '%s\n' "$@" > "$0.args"
for last; do :; done
echo "wrote $last"
printf 'pkg' > "$last"
`

// failingTool mimics productbuild rejecting the manifest.
const failingTool = `#!/bin/sh
echo "productbuild: Invalid distribution" >&2
exit 5
`

type project struct {
	configPath string
	cfg        *config.Config
	bin        string
}

// newProject lays out a bundle, template, stub tools and a settings file.
func newProject(t *testing.T, productbuild string) *project {
	t.Helper()

	dir := t.TempDir()
	bin := filepath.Join(dir, "bin")
	require.NoError(t, os.MkdirAll(bin, 0o755))

	require.NoError(t, os.WriteFile(filepath.Join(bin, "pkgbuild"), []byte(fakeTool), 0o755)) //nolint:gosec // Test stub must be executable.
	require.NoError(t, os.WriteFile(filepath.Join(bin, "productbuild"), []byte(productbuild), 0o755)) //nolint:gosec // Test stub must be executable.

	bundle := filepath.Join(dir, "dist", "rascal.app", "Contents", "MacOS")
	require.NoError(t, os.MkdirAll(bundle, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(bundle, "rascal"), []byte("binary"), 0o600))

	template := filepath.Join(dir, "packaging", "macos", "distribution.xml.in")
	require.NoError(t, os.MkdirAll(filepath.Dir(template), 0o755))
	require.NoError(t, os.WriteFile(template, []byte(distributionTemplate), 0o600))

	resources := filepath.Join(dir, "packaging", "macos", "resources")
	require.NoError(t, os.MkdirAll(resources, 0o755))

	cfg := config.Default()
	cfg.Bundle = filepath.Join(dir, "dist", "rascal.app")
	cfg.Template = template
	cfg.Resources = resources
	cfg.WorkDir = filepath.Join(dir, "build")
	cfg.OutputDir = filepath.Join(dir, "out")
	cfg.Pkgbuild = filepath.Join(bin, "pkgbuild")
	cfg.Productbuild = filepath.Join(bin, "productbuild")

	configPath := filepath.Join(dir, config.DefaultConfigFilename)
	require.NoError(t, config.Save(configPath, cfg))

	return &project{configPath: configPath, cfg: cfg, bin: bin}
}

func (p *project) toolArgs(t *testing.T, tool string) []string {
	t.Helper()

	contents, err := os.ReadFile(filepath.Join(p.bin, tool+".args"))
	require.NoError(t, err)

	return strings.Split(strings.TrimSpace(string(contents)), "\n")
}

// TestPackager_BuildsInstallerWithExternalTools runs the real exec runner against stub tools.
func TestPackager_BuildsInstallerWithExternalTools(t *testing.T) {
	p := newProject(t, fakeTool)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	result, err := packager.Run(ctx, &packager.Options{
		ConfigPath: p.configPath,
		Tag:        "v2.0.0",
		Arch:       "arm64",
	})
	require.NoError(t, err)

	require.Equal(t, filepath.Join(p.cfg.OutputDir, "RasCAL-2-2.0.0-macos-arm64.pkg"), result.Installer)
	require.FileExists(t, result.Installer)

	require.Equal(t, []string{
		"--root", p.cfg.Bundle,
		"--identifier", "com.rascal2.rascal.pkg",
		"--version", "2.0.0",
		"--install-location", "/Applications/rascal.app",
		filepath.Join(p.cfg.WorkDir, "rascal.pkg"),
	}, p.toolArgs(t, "pkgbuild"))

	require.Equal(t, []string{
		"--distribution", filepath.Join(p.cfg.WorkDir, "distribution.xml"),
		"--resources", p.cfg.Resources,
		"--package-path", p.cfg.WorkDir,
		result.Installer,
	}, p.toolArgs(t, "productbuild"))

	manifest, err := os.ReadFile(filepath.Join(p.cfg.WorkDir, "distribution.xml"))
	require.NoError(t, err)
	require.Contains(t, string(manifest), "<title>RasCAL-2 2.0.0</title>")
	require.Contains(t, string(manifest), `hostArchitectures="arm64"`)

	record, err := records.NewFileRepository(result.RecordPath).Load(ctx)
	require.NoError(t, err)
	require.Equal(t, "2.0.0", record.Version)
	require.Equal(t, int64(3), record.Size)
}

// TestPackager_DevelopmentBuild names the installer without a version segment.
func TestPackager_DevelopmentBuild(t *testing.T) {
	p := newProject(t, fakeTool)

	result, err := packager.Run(context.Background(), &packager.Options{
		ConfigPath: p.configPath,
		Tag:        "main",
		Arch:       "x86_64",
	})
	require.NoError(t, err)
	require.Equal(t, "RasCAL-2-macos-x86_64.pkg", filepath.Base(result.Installer))
	require.Contains(t, p.toolArgs(t, "pkgbuild"), "main")
}

// TestPackager_ToolFailureKeepsExitCode surfaces productbuild's exit status.
func TestPackager_ToolFailureKeepsExitCode(t *testing.T) {
	p := newProject(t, failingTool)

	_, err := packager.Run(context.Background(), &packager.Options{
		ConfigPath: p.configPath,
		Tag:        "v2.0.0",
		Arch:       "arm64",
	})
	require.Error(t, err)
	require.Equal(t, 5, pkgtool.ExitCode(err))

	// pkgbuild ran, productbuild failed, nothing was recorded.
	require.FileExists(t, filepath.Join(p.cfg.WorkDir, "rascal.pkg"))
	require.NoFileExists(t, records.RecordPath(filepath.Join(p.cfg.OutputDir, "RasCAL-2-2.0.0-macos-arm64.pkg")))
}
