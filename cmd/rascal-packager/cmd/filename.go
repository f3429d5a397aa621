package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rascalsoftware/rascal-packager/internal/service/packager"
)

// filenameCmd prints the installer filename a build would produce.
var filenameCmd = &cobra.Command{
	Use:   "filename [version-tag] [arch]",
	Short: "Print the installer filename for a tag and architecture.",
	Long: `Prints the filename the installer would get, without building anything.
Useful in CI to locate or upload the artifact, e.g.:

  rascal-packager filename v2.0.0 arm64   # RasCAL-2-2.0.0-macos-arm64.pkg
  rascal-packager filename main x86_64    # RasCAL-2-macos-x86_64.pkg`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		tag, arch := splitArgs(args)

		name, err := packager.InstallerFilename(configPath, tag, arch)
		if err != nil {
			return err
		}

		_, err = fmt.Fprintln(cmd.OutOrStdout(), name)

		return err
	},
}
