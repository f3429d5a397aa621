// Package guard keeps two packaging runs from writing into the same work
// directory at once. A run holds a small YAML marker naming its process;
// a marker whose process is gone, or which is older than the marker
// lifetime, is treated as stale and replaced.
package guard
