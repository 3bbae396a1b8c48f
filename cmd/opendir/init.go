package main

import (
	"embed"
	"fmt"
	"os"

	"github.com/nao1215/opendir/internal/config"
	"github.com/spf13/cobra"
)

//go:embed templates/opendir.yaml
var configTemplate embed.FS

// templatePath is the location of the config template inside configTemplate.
const templatePath = "templates/opendir.yaml"

// NewInitCmd creates the init command.
func NewInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a commented opendir configuration file",
		Long: `Init writes a .opendir configuration file to the current directory.

The generated file documents the default crawl limits and shows how to set
cookies, headers, depth and subdirectory fan-out for individual hosts.

Examples:
  # Create .opendir in current directory
  opendir init

  # Create config file at a specific path
  opendir init -o ~/.config/opendir/config.yaml

  # Overwrite an existing file
  opendir init -f`,
		Args: cobra.NoArgs,
		RunE: runInitCmd,
	}

	cmd.Flags().StringP("output", "o", config.DefaultConfigFile,
		"Output file path for the configuration")
	cmd.Flags().BoolP("force", "f", false,
		"Overwrite existing configuration file")

	return cmd
}

// runInitCmd executes the init command.
func runInitCmd(cmd *cobra.Command, _ []string) error {
	outputPath, err := cmd.Flags().GetString("output")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}

	if !force {
		if _, err := os.Stat(outputPath); err == nil {
			return fmt.Errorf("configuration file already exists: %s (use -f to overwrite)", outputPath)
		}
	}

	content, err := configTemplate.ReadFile(templatePath)
	if err != nil {
		return fmt.Errorf("failed to read config template: %w", err)
	}

	if err := ensureParentDir(outputPath); err != nil {
		return err
	}
	// Cookies and auth headers end up in this file.
	if err := os.WriteFile(outputPath, content, 0600); err != nil {
		return fmt.Errorf("failed to write configuration file: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created configuration file: %s\n", outputPath)
	fmt.Fprintln(out, "\nEdit this file to set per-host options such as:")
	fmt.Fprintln(out, "  - Cookies and headers for protected listings")
	fmt.Fprintln(out, "  - Crawl depth and subdirectory fan-out")
	return nil
}
