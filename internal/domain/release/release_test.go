package release

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

// TestNormalizeVersion checks prefix stripping, pass-through and the empty-tag fallback.
func TestNormalizeVersion(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"v1.2.3":   "1.2.3",
		"v2.0.0":   "2.0.0",
		"vv1":      "v1",
		"1.2.3":    "1.2.3",
		"main":     "main",
		"":         DevelopmentVersion,
		"V1.0":     "V1.0",
		"release":  "release",
		"v":        "",
		"v2.0.0rc": "2.0.0rc",
	}
	for tag, want := range cases {
		require.Equal(t, want, NormalizeVersion(tag), "tag %q", tag)
	}
}

// TestNormalizeVersion_Properties verifies the strip-first-character rule over a tag sample.
func TestNormalizeVersion_Properties(t *testing.T) {
	t.Parallel()

	for _, tag := range []string{"v0", "v10.4", "v1.2.3-beta.1", "vmain", "x1", "1", "main", "dev"} {
		got := NormalizeVersion(tag)
		if strings.HasPrefix(tag, "v") {
			require.Equal(t, tag[1:], got)
		} else {
			require.Equal(t, tag, got)
		}
	}
}

// TestInstallerFilename covers the release and development naming branches.
func TestInstallerFilename(t *testing.T) {
	t.Parallel()

	require.Equal(t, "RasCAL-2-2.0.0-macos-arm64.pkg", InstallerFilename(DefaultProduct, "2.0.0", "arm64"))
	require.Equal(t, "RasCAL-2-macos-x86_64.pkg", InstallerFilename(DefaultProduct, "main", "x86_64"))
	require.Equal(t, "RasCAL-2-1.0-macos-arm64.pkg", InstallerFilename("", "1.0", "arm64"))
	require.Equal(t, "Other-3-macos-universal.pkg", InstallerFilename("Other", "3", "universal"))
}

// TestInstallerFilename_OmitsVersionOnlyForMain checks the version segment rule.
func TestInstallerFilename_OmitsVersionOnlyForMain(t *testing.T) {
	t.Parallel()

	for _, version := range []string{"main", "1.0.0", "mainline", "Main", ""} {
		name := InstallerFilename(DefaultProduct, version, "arm64")
		withVersion := DefaultProduct + "-" + version + "-macos-arm64.pkg"

		if version == DevelopmentVersion {
			require.Equal(t, "RasCAL-2-macos-arm64.pkg", name)
		} else {
			require.Equal(t, withVersion, name)
		}
	}
}

// TestResolve runs the end-to-end examples through Resolve.
func TestResolve(t *testing.T) {
	t.Parallel()

	r := Resolve("v2.0.0", "arm64")
	require.Equal(t, "2.0.0", r.Version)
	require.False(t, r.IsDevelopment())
	require.Equal(t, "RasCAL-2-2.0.0-macos-arm64.pkg", r.InstallerFilename(""))

	r = Resolve("main", "x86_64\n")
	require.Equal(t, "main", r.Version)
	require.Equal(t, "x86_64", r.Arch)
	require.True(t, r.IsDevelopment())
	require.Equal(t, "RasCAL-2-macos-x86_64.pkg", r.InstallerFilename(DefaultProduct))

	r = Resolve("", "arm64")
	require.True(t, r.IsDevelopment())
	require.Empty(t, r.Tag)
}

// TestResolveKeepsTagVerbatim does not clean up malformed tags.
func TestResolveKeepsTagVerbatim(t *testing.T) {
	t.Parallel()

	r := Resolve(" v1.0 ", "arm64")
	require.Equal(t, " v1.0 ", r.Tag)
	require.Equal(t, " v1.0 ", r.Version)

	r = Resolve(" main ", "arm64")
	require.Equal(t, " main ", r.Version)
	require.False(t, r.IsDevelopment())
}

// TestComponentFilename verifies the component package name defaults.
func TestComponentFilename(t *testing.T) {
	t.Parallel()

	r := Resolve("v1.0.0", "arm64")
	require.Equal(t, "rascal.pkg", r.ComponentFilename("rascal"))
	require.Equal(t, "rascal.pkg", r.ComponentFilename("rascal.pkg"))
	require.Equal(t, "rascal-2.pkg", r.ComponentFilename(""))
}
