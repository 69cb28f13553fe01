package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dealready/internal/report"
)

func NewReportCommand() *cobra.Command {
	var (
		asJSON bool
		write  bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Build the cross-module readiness report",
		Long: `Re-score every completed module and combine them into readiness
dimensions, a SWOT summary and a critical path. Modules that are not
finished are listed but do not count toward the totals.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, s.close(cmd.Context(), cmd)) }()

			assembler := report.Assembler{Catalogs: s.catalogs, Dimensions: s.dimensions, Logger: s.logger}
			rep, err := assembler.AssembleFromStore(cmd.Context(), s.runs)
			if err != nil {
				return err
			}
			if write {
				path := filepath.Join(s.ws.ReportsDir, "report.json")
				data, err := json.MarshalIndent(rep, "", "  ")
				if err != nil {
					return fmt.Errorf("marshal report: %w", err)
				}
				if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
					return fmt.Errorf("write report: %w", err)
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), rep)
			}
			printReport(cmd, rep)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&write, "write", false, "Also write the report to reports/report.json")
	return cmd
}

func printReport(cmd *cobra.Command, rep report.CrossModuleReport) {
	out := cmd.OutOrStdout()
	bold := color.New(color.Bold)
	fmt.Fprintf(out, "%s  status %s  readiness %.1f  %s\n", bold.Sprint("Readiness report"), rep.Status, rep.OverallReadiness, verdictString(rep.Verdict))
	fmt.Fprintf(out, "valuation at risk: %s\n\n", money(rep.ValuationImpact))

	fmt.Fprintln(out, bold.Sprint("Modules"))
	for _, m := range rep.Modules {
		switch m.Status {
		case report.ModuleCompleted:
			fmt.Fprintf(out, "  %-22s %-12s %5.1f  %s\n", m.ModuleID, m.Status, m.CompositeScore, verdictString(m.Verdict))
		default:
			fmt.Fprintf(out, "  %-22s %-12s %d/%d answered\n", m.ModuleID, m.Status, m.Answered, m.Questions)
		}
	}

	fmt.Fprintln(out, bold.Sprint("\nDimensions"))
	for _, d := range rep.Dimensions {
		if !d.Covered {
			fmt.Fprintf(out, "  %-12s   -\n", d.Dimension)
			continue
		}
		fmt.Fprintf(out, "  %-12s %5.1f\n", d.Dimension, d.Score)
	}

	printSWOT(cmd, "Strengths", rep.SWOT.Strengths)
	printSWOT(cmd, "Weaknesses", rep.SWOT.Weaknesses)
	printSWOT(cmd, "Opportunities", rep.SWOT.Opportunities)
	printSWOT(cmd, "Threats", rep.SWOT.Threats)

	if len(rep.CriticalPath) > 0 {
		fmt.Fprintln(out, bold.Sprint("\nCritical path"))
		for _, step := range rep.CriticalPath {
			switch step.Kind {
			case report.StepBlocker:
				fmt.Fprintf(out, "  %2d. [%s] %s/%s %s\n", step.Rank, color.RedString(string(step.Severity)), step.ModuleID, step.QuestionID, step.Detail)
			default:
				fmt.Fprintf(out, "  %2d. [%s] %s/%s %s\n", step.Rank, step.Horizon, step.ModuleID, step.CategoryID, money(step.EstimatedImpact))
			}
		}
	}
	if len(rep.UnmappedCategories) > 0 {
		fmt.Fprintf(out, "\n%s %v\n", color.YellowString("unmapped categories:"), rep.UnmappedCategories)
	}
}

func printSWOT(cmd *cobra.Command, title string, entries []report.SWOTEntry) {
	if len(entries) == 0 {
		return
	}
	out := cmd.OutOrStdout()
	fmt.Fprintln(out, color.New(color.Bold).Sprint("\n"+title))
	for _, e := range entries {
		fmt.Fprintf(out, "  %s/%s  %s (%.1f)\n", e.ModuleID, e.CategoryID, e.Label, e.Score)
	}
}
