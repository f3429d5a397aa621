package packager

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/rascalsoftware/rascal-packager/internal/logger"
	"github.com/rascalsoftware/rascal-packager/internal/manifest"
	"github.com/rascalsoftware/rascal-packager/internal/pkgtool"
	"github.com/rascalsoftware/rascal-packager/internal/publish"
	records "github.com/rascalsoftware/rascal-packager/internal/repository/release"
)

// planStep is one row of the dry-run plan.
type planStep struct {
	name    string
	tool    string
	details string
}

// plan checks the template renders and prints the steps a real run would take.
func (p *packager) plan(ctx context.Context) (*Result, error) {
	template, err := os.ReadFile(filepath.Clean(p.cfg.Template))
	if err != nil {
		return nil, fmt.Errorf("read manifest template: %w", err)
	}

	rendered, err := manifest.Render(template, p.manifestVars())
	if err != nil {
		return nil, fmt.Errorf("render %s: %w", p.cfg.Template, err)
	}

	if leftovers := manifest.UnresolvedPlaceholders(rendered); len(leftovers) > 0 {
		logger.WarnKV(ctx, "Manifest still contains placeholders", "template", p.cfg.Template, "placeholders", leftovers)
	}

	steps := p.planSteps()

	out := p.opts.Stdout
	if out == nil {
		out = os.Stdout
	}

	tw := table.NewWriter()
	tw.SetOutputMirror(out)
	tw.SetTitle(fmt.Sprintf("%s %s (%s)", p.cfg.Product, p.release.Version, p.release.Arch))
	tw.AppendHeader(table.Row{"#", "Step", "Tool", "Details"})

	for i, s := range steps {
		tw.AppendRow(table.Row{i + 1, s.name, s.tool, s.details})
	}

	tw.SetStyle(table.StyleRounded)
	tw.Render()

	logger.Info(ctx, "Dry run finished, no external tool was started")

	return &Result{
		Release:    p.release,
		Installer:  p.installerPath(),
		RecordPath: records.RecordPath(p.installerPath()),
	}, nil
}

func (p *packager) planSteps() []planStep {
	steps := []planStep{
		{
			name:    "Render manifest",
			tool:    "-",
			details: p.cfg.Template + " -> " + p.cfg.DistributionPath(),
		},
		{
			name:    "Build component package",
			tool:    p.cfg.Pkgbuild,
			details: strings.Join(pkgtool.ComponentArgs(p.componentSpec()), " "),
		},
		{
			name:    "Compose installer",
			tool:    p.cfg.Productbuild,
			details: strings.Join(pkgtool.DistributionArgs(p.distributionSpec()), " "),
		},
		{
			name:    "Write release record",
			tool:    "-",
			details: records.RecordPath(p.installerPath()),
		},
	}

	if p.opts.Publish && p.cfg.PublishEnabled() {
		steps = append(steps, planStep{
			name:    "Publish",
			tool:    "s3",
			details: fmt.Sprintf("s3://%s/%s", p.cfg.Publish.Bucket, publish.ObjectKey(p.cfg.Publish.Prefix, p.release.Version, p.installerPath())),
		})
	}

	return steps
}
