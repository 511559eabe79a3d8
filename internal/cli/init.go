package cli

import (
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"mmfs.ai/launcher/internal/config"
)

var successStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("46"))

// newInitCommand creates the init subcommand
func newInitCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		Long: `Init writes a configuration file with the built-in defaults so the paths
and the environment root can be adjusted for this deployment.

Example:
  mmfs init --output /etc/mmfs/mmfs-config.json`,
		Args: cobra.NoArgs,
		RunE: runInit,
	}

	cmd.Flags().String("output", "mmfs-config.json", "Where to write the config file")
	cmd.Flags().Bool("force", false, "Overwrite an existing config file")

	return cmd
}

func runInit(cmd *cobra.Command, args []string) error {
	output, _ := cmd.Flags().GetString("output")
	force, _ := cmd.Flags().GetBool("force")

	if _, err := os.Stat(output); err == nil && !force {
		return fmt.Errorf("config file %s already exists (use --force to overwrite)", output)
	}

	cfg := config.Defaults()
	if err := cfg.Save(output); err != nil {
		return err
	}

	fmt.Println(successStyle.Render("✓") + " Config written to " + output)
	fmt.Println("Edit app_root, env_root, and log_file to match this deployment.")

	return nil
}
