package main

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/webindex/internal/config"
)

//go:embed templates/webindex.yaml
var configTemplate []byte

const configFileName = config.DefaultConfigFile

// ErrConfigExists is returned by init when the target file is present and
// --force is not given.
var ErrConfigExists = errors.New("configuration file already exists")

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a webindex configuration file",
		Long: `Init writes a commented configuration file with examples for per-site
delays, extra headers and URL patterns to ignore or follow.

The file goes to .webindex in the current directory unless -o is given.
With --global it goes to config.yaml in the XDG config directory, which
every crawl picks up when no local .webindex exists.

Examples:
  webindex init
  webindex init --global
  webindex init -o site.yaml -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", configFileName,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")
	cmd.Flags().Bool("global", false,
		"Write to the XDG config directory instead of --output")
	cmd.MarkFlagsMutuallyExclusive("output", "global")

	return cmd
}

func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}
	global, err := cmd.Flags().GetBool("global")
	if err != nil {
		return err
	}
	if global {
		outputPath = filepath.Join(config.XDGConfigDir(), "config.yaml")
	}

	if err := writeConfigTemplate(outputPath, force); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Created configuration file: %s\n", outputPath)
	return nil
}

// writeConfigTemplate writes the template to path, creating parent
// directories. The file is private since site headers may carry credentials.
func writeConfigTemplate(path string, force bool) error {
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("%w: %s (use -f to overwrite)", ErrConfigExists, path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	if err := os.WriteFile(path, configTemplate, 0600); err != nil {
		return fmt.Errorf("write configuration file: %w", err)
	}
	return nil
}
