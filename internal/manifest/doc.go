// Package manifest renders the productbuild distribution manifest from its
// template by substituting version, architecture and product placeholders.
package manifest
