// Package release contains the core domain rules for naming a RasCAL-2 build.
//
// It turns a raw tag into the numeric version used inside the installer and
// composes the installer filename from that version and an architecture token.
package release
