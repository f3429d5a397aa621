package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the packaging settings.
type Config struct {
	// Product prefixes the installer filename.
	Product string `yaml:"product"`
	// Bundle is the pre-built application bundle passed to pkgbuild as --root.
	Bundle string `yaml:"bundle"`
	// Identifier is the component package identifier.
	Identifier string `yaml:"identifier"`
	// InstallLocation is where the bundle is installed on the target machine.
	InstallLocation string `yaml:"install_location"`
	// ComponentName is the filename (without extension) of the component package.
	ComponentName string `yaml:"component_name"`
	// Template is the distribution manifest template (distribution.xml.in).
	Template string `yaml:"template"`
	// Resources is the productbuild resources directory (licence, welcome, background).
	Resources string `yaml:"resources"`
	// Scripts is an optional directory with preinstall/postinstall scripts.
	Scripts string `yaml:"scripts"`
	// WorkDir receives distribution.xml and the component package.
	WorkDir string `yaml:"work_dir"`
	// OutputDir receives the final installer and its release record.
	OutputDir string `yaml:"output_dir"`
	// SignIdentity is an optional Developer ID Installer identity for productbuild.
	SignIdentity string `yaml:"sign_identity"`
	// Pkgbuild is the path to the pkgbuild utility.
	Pkgbuild string `yaml:"pkgbuild"`
	// Productbuild is the path to the productbuild utility.
	Productbuild string `yaml:"productbuild"`
	// Timeout bounds the whole packaging run.
	Timeout time.Duration `yaml:"timeout"`
	// Publish configures the optional S3 upload of built installers.
	Publish Publish `yaml:"publish"`
}

// Publish holds the S3 destination for built installers.
type Publish struct {
	// Bucket is the S3 bucket name. Publishing is disabled when empty.
	Bucket string `yaml:"bucket"`
	// Prefix is prepended to every object key.
	Prefix string `yaml:"prefix"`
	// Region overrides the region resolved from the AWS environment.
	Region string `yaml:"region"`
}

const (
	// DefaultConfigFilename is the default filename for packaging settings.
	DefaultConfigFilename = "rascal-packager.yaml"

	// DefaultTimeout bounds a packaging run when no timeout is configured.
	DefaultTimeout = 30 * time.Minute

	// DefaultFilePermissions is the permission used for the settings file.
	DefaultFilePermissions = 0o644

	// DistributionFilename is the rendered manifest written into WorkDir.
	DistributionFilename = "distribution.xml"
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errBundleRequired is returned when the application bundle path is empty.
	errBundleRequired = errors.New("application bundle path must be provided")
	// errTemplateRequired is returned when the manifest template path is empty.
	errTemplateRequired = errors.New("distribution template path must be provided")
	// errBadInstallLocation is returned for a relative install location.
	errBadInstallLocation = errors.New("install location must be an absolute path")
)

// Default returns the settings matching the RasCAL-2 repository layout.
func Default() *Config {
	return &Config{
		Product:         "RasCAL-2",
		Bundle:          filepath.Join("dist", "rascal.app"),
		Identifier:      "com.rascal2.rascal.pkg",
		InstallLocation: "/Applications/rascal.app",
		ComponentName:   "rascal",
		Template:        filepath.Join("packaging", "macos", "distribution.xml.in"),
		Resources:       filepath.Join("packaging", "macos", "resources"),
		WorkDir:         filepath.Join("packaging", "macos"),
		OutputDir:       filepath.Join("packaging", "macos"),
		Pkgbuild:        "pkgbuild",
		Productbuild:    "productbuild",
		Timeout:         DefaultTimeout,
	}
}

// Load reads configuration from the provided path and validates it.
// A missing file yields Default.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	cfg := Default()

	contents, err := os.ReadFile(filepath.Clean(path))
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}

	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	if err = yaml.Unmarshal(contents, cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err = Validate(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Save writes the settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills defaults for optional ones.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	defaults := Default()

	if strings.TrimSpace(cfg.Bundle) == "" {
		return errBundleRequired
	}

	if strings.TrimSpace(cfg.Template) == "" {
		return errTemplateRequired
	}

	if cfg.InstallLocation == "" {
		cfg.InstallLocation = defaults.InstallLocation
	}

	if !strings.HasPrefix(cfg.InstallLocation, "/") {
		return fmt.Errorf("%w: %q", errBadInstallLocation, cfg.InstallLocation)
	}

	fillString(&cfg.Product, defaults.Product)
	fillString(&cfg.Identifier, defaults.Identifier)
	fillString(&cfg.ComponentName, defaults.ComponentName)
	fillString(&cfg.Pkgbuild, defaults.Pkgbuild)
	fillString(&cfg.Productbuild, defaults.Productbuild)
	fillString(&cfg.WorkDir, filepath.Dir(cfg.Template))
	fillString(&cfg.OutputDir, cfg.WorkDir)

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	cfg.Publish.Prefix = strings.Trim(cfg.Publish.Prefix, "/")

	return nil
}

// DistributionPath returns where the rendered manifest is written.
func (c *Config) DistributionPath() string {
	return filepath.Join(c.WorkDir, DistributionFilename)
}

// PublishEnabled reports whether an S3 destination is configured.
func (c *Config) PublishEnabled() bool {
	return c.Publish.Bucket != ""
}

func fillString(field *string, fallback string) {
	if strings.TrimSpace(*field) == "" {
		*field = fallback
	}
}
