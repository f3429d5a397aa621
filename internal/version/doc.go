// Package version exposes build metadata for rascal-packager.
//
// Version, Commit and BuildTime are injected at build time via Go ldflags
// and default to values suitable for local builds. The packager stamps
// Short into every release record it writes.
package version
