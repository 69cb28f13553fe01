package cmd

import (
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dealready/internal/catalog"
)

func NewCatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect and validate question catalogs",
	}
	cmd.AddCommand(newCatalogListCommand())
	cmd.AddCommand(newCatalogValidateCommand())
	return cmd
}

func newCatalogListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the modules available in the workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, s.close(cmd.Context(), cmd)) }()

			out := cmd.OutOrStdout()
			for _, moduleID := range s.catalogs.ModuleIDs() {
				cat, err := s.catalogs.Load(moduleID)
				if err != nil {
					return err
				}
				title := cat.Title
				if title == "" {
					title = moduleID
				}
				fmt.Fprintf(out, "%-22s %-40s %d categories, %d questions\n", moduleID, title, len(cat.Categories), cat.Len())
			}
			return nil
		},
	}
}

func newCatalogValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [dir]",
		Short: "Validate catalog YAML files",
		Long: `Parse and validate every *.yml catalog in dir (default: the workspace
catalog directory). Each problem is reported with its file and field path.

Exit code: 0 if valid, 1 if errors found`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			} else {
				s, err := openSession(cmd)
				if err != nil {
					return err
				}
				dir = s.cfg.CatalogDir
				if err := s.close(cmd.Context(), cmd); err != nil {
					return err
				}
			}

			reg, err := catalog.LoadFromDir(dir)
			out := cmd.OutOrStdout()
			var cfgErr catalog.ConfigurationError
			if errors.As(err, &cfgErr) {
				for _, issue := range cfgErr {
					fmt.Fprintf(out, "%s %s\n", color.RedString("✗"), issue.Error())
				}
				return fmt.Errorf("%d catalog issue(s) in %s", len(cfgErr), dir)
			}
			if err != nil {
				return err
			}
			for _, moduleID := range reg.ModuleIDs() {
				cat, _ := reg.Load(moduleID)
				fmt.Fprintf(out, "%s %s (%s)\n", color.GreenString("✓"), moduleID, cat.Source)
			}
			return nil
		},
	}
}
