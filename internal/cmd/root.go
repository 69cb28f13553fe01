package cmd

import (
	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// Version is injected at build time via -ldflags
var Version = "dev"

const appName = "dealready"

// NewRootCommand creates and returns the root cobra command for dealready
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   appName,
		Short: "Guided exit-readiness self-assessment",
		Long: `dealready walks an owner through question catalogs (financial scorecard,
deal killers, management, top performers, growth planning), scores each
module, ranks improvement actions and rolls completed modules into a
cross-module readiness report.

Runs are stored in the workspace and can be resumed at any time.`,
		Version:      Version,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			if noColor, _ := cmd.Flags().GetBool("no-color"); noColor {
				color.NoColor = true
			}
		},
	}

	cmd.PersistentFlags().String("workspace", ".", "Path to workspace root")
	cmd.PersistentFlags().Bool("no-color", false, "Disable colored output")

	cmd.AddCommand(NewInitCommand())
	cmd.AddCommand(NewCatalogCommand())
	cmd.AddCommand(NewRunCommand())
	cmd.AddCommand(NewScoreCommand())
	cmd.AddCommand(NewPlanCommand())
	cmd.AddCommand(NewReportCommand())

	return cmd
}
