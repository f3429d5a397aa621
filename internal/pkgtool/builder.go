package pkgtool

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

var (
	errRootRequired         = errors.New("component root must be provided")
	errOutputRequired       = errors.New("output package path must be provided")
	errDistributionRequired = errors.New("distribution manifest must be provided")
	errRootNotDirectory     = errors.New("component root is not a directory")
)

// ComponentSpec describes a pkgbuild invocation.
type ComponentSpec struct {
	// Root is the pre-built application bundle.
	Root string
	// Identifier is the package identifier.
	Identifier string
	// Version is the package version.
	Version string
	// InstallLocation is the absolute install path on the target.
	InstallLocation string
	// Scripts is an optional directory of install scripts.
	Scripts string
	// Output is the component package to write.
	Output string
}

// DistributionSpec describes a productbuild invocation.
type DistributionSpec struct {
	// Distribution is the rendered distribution.xml.
	Distribution string
	// Resources is an optional resources directory.
	Resources string
	// PackagePath is where productbuild looks for component packages.
	PackagePath string
	// SignIdentity is an optional installer signing identity.
	SignIdentity string
	// Output is the installer to write.
	Output string
}

// ComponentArgs returns the pkgbuild arguments for spec.
func ComponentArgs(spec ComponentSpec) []string {
	args := []string{
		"--root", spec.Root,
		"--identifier", spec.Identifier,
		"--version", spec.Version,
		"--install-location", spec.InstallLocation,
	}

	if spec.Scripts != "" {
		args = append(args, "--scripts", spec.Scripts)
	}

	return append(args, spec.Output)
}

// DistributionArgs returns the productbuild arguments for spec.
func DistributionArgs(spec DistributionSpec) []string {
	args := []string{"--distribution", spec.Distribution}

	if spec.Resources != "" {
		args = append(args, "--resources", spec.Resources)
	}

	args = append(args, "--package-path", spec.PackagePath)

	if spec.SignIdentity != "" {
		args = append(args, "--sign", spec.SignIdentity)
	}

	return append(args, spec.Output)
}

// Builder runs pkgbuild and productbuild.
type Builder struct {
	// Runner executes the tools.
	Runner Runner
	// PkgbuildPath is the pkgbuild executable.
	PkgbuildPath string
	// ProductbuildPath is the productbuild executable.
	ProductbuildPath string
}

// NewBuilder returns a Builder using ExecRunner and the given tool paths.
func NewBuilder(pkgbuild, productbuild string) *Builder {
	return &Builder{
		Runner:           new(ExecRunner),
		PkgbuildPath:     pkgbuild,
		ProductbuildPath: productbuild,
	}
}

// BuildComponent produces the component package from the application bundle.
func (b *Builder) BuildComponent(ctx context.Context, spec ComponentSpec) error {
	if spec.Root == "" {
		return errRootRequired
	}

	if spec.Output == "" {
		return errOutputRequired
	}

	info, err := os.Stat(spec.Root)
	if err != nil {
		return fmt.Errorf("application bundle: %w", err)
	}

	if !info.IsDir() {
		return fmt.Errorf("%w: %s", errRootNotDirectory, spec.Root)
	}

	if err = os.MkdirAll(filepath.Dir(spec.Output), 0o755); err != nil {
		return fmt.Errorf("create component directory: %w", err)
	}

	return b.Runner.Run(ctx, b.PkgbuildPath, ComponentArgs(spec)...)
}

// ComposeInstaller combines component packages and resources into the final installer.
func (b *Builder) ComposeInstaller(ctx context.Context, spec DistributionSpec) error {
	if spec.Distribution == "" {
		return errDistributionRequired
	}

	if spec.Output == "" {
		return errOutputRequired
	}

	if spec.PackagePath == "" {
		spec.PackagePath = filepath.Dir(spec.Distribution)
	}

	if err := os.MkdirAll(filepath.Dir(spec.Output), 0o755); err != nil {
		return fmt.Errorf("create installer directory: %w", err)
	}

	return b.Runner.Run(ctx, b.ProductbuildPath, DistributionArgs(spec)...)
}
