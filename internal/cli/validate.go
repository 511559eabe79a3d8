package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
)

var (
	errorStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("196"))
	warnStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("214"))
)

// newValidateCommand creates the validate subcommand
func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate the launcher configuration",
		Long: `Validate loads the configuration, reports warnings (such as a suspicious
extra log path), and exits nonzero if the configuration is unusable.`,
		Args: cobra.NoArgs,
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	warnings, err := cfg.Validate()
	for _, w := range warnings {
		fmt.Println(warnStyle.Render("warning:") + " " + w)
	}
	if err != nil {
		fmt.Println(errorStyle.Render("✗") + " Configuration is invalid")
		return err
	}

	fmt.Println(successStyle.Render("✓") + " Configuration is valid")
	fmt.Printf("  app root:    %s\n", cfg.AppRoot)
	fmt.Printf("  entry point: %s %s %s\n", cfg.Interpreter, cfg.Entrypoint, cfg.Subcommand)
	fmt.Printf("  env root:    %s\n", cfg.EnvRoot)
	fmt.Printf("  log file:    %s\n", cfg.LogFile)

	return nil
}
