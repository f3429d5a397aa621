package version

import (
	"fmt"
	"runtime"
	"strings"
)

var (
	// Version is the semantic version of the build. It can be overridden via ldflags.
	Version = "dev"
	// Commit is the short git SHA embedded at build time (or "none").
	Commit = "none"
	// BuildTime is the UTC build timestamp embedded at build time.
	BuildTime = "unknown"
)

// Short returns only the semantic version string.
// It is stamped into every release record as the tool version.
func Short() string {
	return Version
}

// Full describes the build and the host it packages on, one field per line.
// Hosts other than darwin lack pkgbuild and productbuild and are marked as such.
func Full() string {
	var b strings.Builder

	fmt.Fprintf(&b, "rascal-packager %s\n", Version)
	fmt.Fprintf(&b, "  commit:   %s\n", Commit)
	fmt.Fprintf(&b, "  built:    %s\n", BuildTime)
	fmt.Fprintf(&b, "  go:       %s\n", runtime.Version())
	fmt.Fprintf(&b, "  platform: %s/%s", runtime.GOOS, runtime.GOARCH)

	if runtime.GOOS != "darwin" {
		b.WriteString(" (dry runs only)")
	}

	return b.String()
}
