package packager

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rascalsoftware/rascal-packager/internal/config"
	"github.com/rascalsoftware/rascal-packager/internal/domain/release"
	"github.com/rascalsoftware/rascal-packager/internal/guard"
	"github.com/rascalsoftware/rascal-packager/internal/logger"
	"github.com/rascalsoftware/rascal-packager/internal/manifest"
	"github.com/rascalsoftware/rascal-packager/internal/pkgtool"
	"github.com/rascalsoftware/rascal-packager/internal/progress"
	"github.com/rascalsoftware/rascal-packager/internal/publish"
	records "github.com/rascalsoftware/rascal-packager/internal/repository/release"
	"github.com/rascalsoftware/rascal-packager/internal/service/common"
	"github.com/rascalsoftware/rascal-packager/internal/version"
)

// Publisher uploads built artifacts.
type Publisher interface {
	Publish(ctx context.Context, version string, files ...string) ([]string, error)
}

// Options contains inputs for the packager entry point.
type Options struct {
	// ConfigPath is an optional path to the settings file (defaults to rascal-packager.yaml).
	ConfigPath string
	// Tag is the raw version tag, e.g. v2.0.0 or main. Empty means main.
	Tag string
	// Arch is the architecture token used in the installer filename.
	Arch string
	// DryRun prints the plan without running external tools.
	DryRun bool
	// Publish uploads the installer and its record when a bucket is configured.
	Publish bool
	// Stdout receives the dry-run plan; nil means os.Stdout.
	Stdout io.Writer
	// Runner overrides the external tool runner; nil runs the real tools.
	Runner pkgtool.Runner
	// Publisher overrides the S3 publisher; nil builds one from the settings.
	Publisher Publisher
}

// Result describes a finished run.
type Result struct {
	// Release is the resolved tag, version and architecture.
	Release release.Release
	// Installer is the path of the composed installer.
	Installer string
	// RecordPath is the path of the release record.
	RecordPath string
	// Record is the written release record; nil on dry runs.
	Record *records.Record
	// PublishedKeys lists uploaded object keys.
	PublishedKeys []string
}

var (
	errOptionsRequired = errors.New("options are not set")
	errArchRequired    = errors.New("architecture token must be provided")
)

// packager holds the state of a single run.
// Callers should use Run.
type packager struct {
	cfg     *config.Config
	release release.Release
	builder *pkgtool.Builder
	opts    *Options
}

// Run executes the packaging workflow.
func Run(ctx context.Context, opts *Options) (*Result, error) {
	if opts == nil {
		return nil, errOptionsRequired
	}

	ctx = logger.WithName(ctx, "rascal-packager")

	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	rel := release.Resolve(opts.Tag, opts.Arch)
	if rel.Arch == "" {
		return nil, errArchRequired
	}

	ctx = logger.WithKV(ctx, "version", rel.Version, "arch", rel.Arch)

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	pkg := newPackager(cfg, rel, opts)

	if opts.DryRun {
		return pkg.plan(ctx)
	}

	marker, err := guard.Acquire(ctx, cfg.WorkDir, 0)
	if err != nil {
		return nil, err
	}

	defer func() {
		if releaseErr := marker.Release(); releaseErr != nil {
			logger.WarnKV(ctx, "Unable to remove build marker", "error", releaseErr)
		}
	}()

	result, err := pkg.Run(ctx)
	if err != nil {
		return nil, fmt.Errorf("packager failed: %w", err)
	}

	logger.Info(ctx, "Packager completed successfully")

	return result, nil
}

// InstallerFilename resolves the installer filename for a tag and architecture
// using the product name from the settings at configPath.
func InstallerFilename(configPath, tag, arch string) (string, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return "", fmt.Errorf("load settings: %w", err)
	}

	rel := release.Resolve(tag, arch)
	if rel.Arch == "" {
		return "", errArchRequired
	}

	return rel.InstallerFilename(cfg.Product), nil
}

func newPackager(cfg *config.Config, rel release.Release, opts *Options) *packager {
	builder := pkgtool.NewBuilder(cfg.Pkgbuild, cfg.Productbuild)
	if opts.Runner != nil {
		builder.Runner = opts.Runner
	}

	return &packager{
		cfg:     cfg,
		release: rel,
		builder: builder,
		opts:    opts,
	}
}

// Run performs the four packaging steps followed by recording and publishing.
func (p *packager) Run(ctx context.Context) (*Result, error) {
	logger.InfoKV(ctx, "Packaging release", "release", p.release.String(), "development", p.release.IsDevelopment())

	if err := manifest.RenderFile(ctx, p.cfg.Template, p.cfg.DistributionPath(), p.manifestVars()); err != nil {
		return nil, err
	}

	err := p.step(ctx, "Building component package", func(ctx context.Context) error {
		return p.builder.BuildComponent(ctx, p.componentSpec())
	})
	if err != nil {
		return nil, fmt.Errorf("build component package: %w", err)
	}

	err = p.step(ctx, "Composing installer", func(ctx context.Context) error {
		return p.builder.ComposeInstaller(ctx, p.distributionSpec())
	})
	if err != nil {
		return nil, fmt.Errorf("compose installer: %w", err)
	}

	result := &Result{
		Release:    p.release,
		Installer:  p.installerPath(),
		RecordPath: records.RecordPath(p.installerPath()),
	}

	if result.Record, err = p.writeRecord(ctx, result); err != nil {
		return nil, err
	}

	if p.opts.Publish {
		if result.PublishedKeys, err = p.publish(ctx, result); err != nil {
			return nil, err
		}
	}

	p.printSummary(ctx, result)

	return result, nil
}

// step runs fn with a terminal spinner and timing log.
func (p *packager) step(ctx context.Context, title string, fn func(context.Context) error) error {
	logger.Info(ctx, title)

	stop := progress.Start(os.Stderr, title)
	started := time.Now()

	err := fn(ctx)

	stop()
	logger.DebugKV(ctx, "Step finished", "step", title, "elapsed", time.Since(started))

	return err
}

func (p *packager) manifestVars() manifest.Vars {
	return manifest.Vars{
		Version: p.release.Version,
		Arch:    p.release.Arch,
		Product: p.cfg.Product,
	}
}

func (p *packager) componentPath() string {
	return filepath.Join(p.cfg.WorkDir, p.release.ComponentFilename(p.cfg.ComponentName))
}

func (p *packager) installerPath() string {
	return filepath.Join(p.cfg.OutputDir, p.release.InstallerFilename(p.cfg.Product))
}

func (p *packager) componentSpec() pkgtool.ComponentSpec {
	return pkgtool.ComponentSpec{
		Root:            p.cfg.Bundle,
		Identifier:      p.cfg.Identifier,
		Version:         p.release.Version,
		InstallLocation: p.cfg.InstallLocation,
		Scripts:         p.cfg.Scripts,
		Output:          p.componentPath(),
	}
}

func (p *packager) distributionSpec() pkgtool.DistributionSpec {
	return pkgtool.DistributionSpec{
		Distribution: p.cfg.DistributionPath(),
		Resources:    p.cfg.Resources,
		PackagePath:  p.cfg.WorkDir,
		SignIdentity: p.cfg.SignIdentity,
		Output:       p.installerPath(),
	}
}

// writeRecord stores the checksum and provenance of the installer next to it.
func (p *packager) writeRecord(ctx context.Context, result *Result) (*records.Record, error) {
	sum, size, err := records.Checksum(result.Installer)
	if err != nil {
		return nil, fmt.Errorf("checksum installer: %w", err)
	}

	record := &records.Record{
		Product:     p.cfg.Product,
		Tag:         p.release.Tag,
		Version:     p.release.Version,
		Arch:        p.release.Arch,
		Installer:   filepath.Base(result.Installer),
		SHA256:      sum,
		Size:        size,
		BuiltAt:     time.Now().UTC(),
		ToolVersion: version.Short(),
	}

	if actor, actorErr := common.DetectActor(); actorErr != nil {
		logger.WarnKV(ctx, "Unable to detect build actor", "error", actorErr)
	} else {
		record.BuiltBy = actor
	}

	if err = records.NewFileRepository(result.RecordPath).Save(ctx, record); err != nil {
		return nil, err
	}

	logger.InfoKV(ctx, "Saved release record", "path", result.RecordPath, "sha256", sum)

	return record, nil
}

func (p *packager) publish(ctx context.Context, result *Result) ([]string, error) {
	if !p.cfg.PublishEnabled() {
		logger.Warn(ctx, "Publishing requested but no bucket is configured, skipping")
		return nil, nil
	}

	publisher := p.opts.Publisher
	if publisher == nil {
		s3Publisher, err := publish.NewS3Publisher(ctx, p.cfg.Publish)
		if err != nil {
			return nil, err
		}

		publisher = s3Publisher
	}

	keys, err := publisher.Publish(ctx, p.release.Version, result.Installer, result.RecordPath)
	if err != nil {
		return keys, fmt.Errorf("publish installer: %w", err)
	}

	return keys, nil
}

// printSummary logs where the artifacts ended up.
func (p *packager) printSummary(ctx context.Context, result *Result) {
	var builder strings.Builder

	builder.WriteString("Installer is ready: ")
	builder.WriteString(result.Installer)
	builder.WriteString("\nSHA-256: ")
	builder.WriteString(result.Record.SHA256)

	if len(result.PublishedKeys) > 0 {
		builder.WriteString("\nPublished to s3://")
		builder.WriteString(p.cfg.Publish.Bucket)
		builder.WriteString(":")

		for _, key := range result.PublishedKeys {
			builder.WriteString("\n  ")
			builder.WriteString(key)
		}
	}

	logger.Info(ctx, builder.String())
}
