// Package config defines the packaging settings used by rascal-packager and
// provides helpers to load, validate and save them in YAML format.
//
// A missing settings file is not an error: Default describes the layout
// produced by the RasCAL-2 PyInstaller build.
package config
