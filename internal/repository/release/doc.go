// Package release persists release records: YAML files written next to each
// installer that describe what was built, from which tag, and its checksum.
package release
