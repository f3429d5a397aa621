package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rascalsoftware/rascal-packager/internal/config"
	"github.com/rascalsoftware/rascal-packager/internal/logger"
	"github.com/rascalsoftware/rascal-packager/internal/pkgtool"
	"github.com/rascalsoftware/rascal-packager/internal/service/packager"
	"github.com/rascalsoftware/rascal-packager/internal/version"
)

var (
	// configPath to the packaging settings YAML file.
	configPath string
	// logLevel is the minimum level of log entries written to stderr.
	logLevel string
	// dryRun prints the plan instead of running pkgbuild and productbuild.
	dryRun bool
	// publishArtifacts uploads the installer to the configured S3 bucket.
	publishArtifacts bool

	// rootCmd represents the base command for building the installer.
	rootCmd = &cobra.Command{
		Use:   "rascal-packager [version-tag] [arch]",
		Short: "Build the RasCAL-2 macOS installer.",
		Long: `Builds the RasCAL-2 macOS installer from a pre-built application bundle.

The version tag is normalized by dropping a leading "v" (v2.0.0 becomes 2.0.0);
without a tag the development version "main" is used. The architecture token
(arm64, x86_64, ...) defaults to the host architecture and only affects the
installer filename.

Steps: render distribution.xml from its template, run pkgbuild for the
component package, run productbuild for the final installer, then write a
release record with the installer checksum. When pkgbuild or productbuild fails,
rascal-packager exits with the tool's exit code.`,
		Args:          cobra.MaximumNArgs(2),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			level, ok := logger.ParseLogLevel(logLevel)
			if !ok {
				return fmt.Errorf("unknown log level %q", logLevel)
			}

			logger.SetLevel(level)

			return nil
		},
		RunE: func(_ *cobra.Command, args []string) error {
			// Setup graceful shutdown handling.
			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
			defer stop()

			tag, arch := splitArgs(args)

			options := &packager.Options{
				ConfigPath: configPath,
				Tag:        tag,
				Arch:       arch,
				DryRun:     dryRun,
				Publish:    publishArtifacts,
			}

			_, err := packager.Run(ctx, options)

			return err
		},
	}
)

// Execute runs the rascal-packager CLI. Failures of pkgbuild or productbuild
// exit with the tool's own status; any other error exits with 1.
func Execute() {
	version.AttachCobraVersionCommand(rootCmd)

	if err := rootCmd.Execute(); err != nil {
		logger.ErrorKV(context.Background(), "rascal-packager failed", "error", err)
		os.Exit(pkgtool.ExitCode(err))
	}
}

// splitArgs returns the tag and architecture, defaulting the latter to the host.
func splitArgs(args []string) (string, string) {
	var tag, arch string

	if len(args) > 0 {
		tag = args[0]
	}

	if len(args) > 1 {
		arch = args[1]
	} else {
		arch = hostArch()
	}

	return tag, arch
}

// hostArch maps GOARCH onto the tokens used in macOS installer names.
func hostArch() string {
	switch runtime.GOARCH {
	case "amd64":
		return "x86_64"
	default:
		return runtime.GOARCH
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", config.DefaultConfigFilename, "path to configuration file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level: debug, info, warn or error")
	rootCmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the packaging plan without running external tools")
	rootCmd.Flags().BoolVar(&publishArtifacts, "publish", false, "upload the installer and its record to the configured S3 bucket")

	rootCmd.AddCommand(filenameCmd, configCmd)
}
