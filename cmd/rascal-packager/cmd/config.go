package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/rascalsoftware/rascal-packager/internal/config"
)

var (
	// overwrite allows `config init` to replace an existing file.
	overwrite bool

	errConfigExists = errors.New("configuration file already exists, use --force to overwrite")

	// configCmd groups settings helpers.
	configCmd = &cobra.Command{
		Use:   "config",
		Short: "Manage packaging settings.",
	}

	// configInitCmd writes the default settings file.
	configInitCmd = &cobra.Command{
		Use:   "init",
		Short: "Write the default settings file.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if _, err := os.Stat(configPath); err == nil && !overwrite {
				return fmt.Errorf("%s: %w", configPath, errConfigExists)
			}

			if err := config.Save(configPath, config.Default()); err != nil {
				return err
			}

			_, err := fmt.Fprintf(cmd.OutOrStdout(), "Wrote default settings to %s\n", configPath)

			return err
		},
	}
)

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	configInitCmd.Flags().BoolVarP(&overwrite, "force", "f", false, "overwrite an existing settings file")
	configCmd.AddCommand(configInitCmd)
}
