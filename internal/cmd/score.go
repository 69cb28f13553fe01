package cmd

import (
	"errors"
	"fmt"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dealready/internal/planner"
	"dealready/internal/scoring"
)

func NewScoreCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "score <module>",
		Short: "Score a module's answers",
		Long: `Score the module's current answers. Scoring an unfinished run is allowed;
the result is then marked partial and lists the unanswered questions.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, s.close(cmd.Context(), cmd)) }()

			c, err := s.controller(cmd, args[0])
			if err != nil {
				return err
			}
			result := c.ScoreAndSynthesize().Score
			if asJSON {
				return printJSON(cmd.OutOrStdout(), result)
			}
			printScore(cmd, result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func NewPlanCommand() *cobra.Command {
	var (
		asJSON bool
		write  bool
	)
	cmd := &cobra.Command{
		Use:   "plan <module>",
		Short: "Show the ranked action plan for a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, s.close(cmd.Context(), cmd)) }()

			c, err := s.controller(cmd, args[0])
			if err != nil {
				return err
			}
			plan := c.ScoreAndSynthesize().Plan
			if write {
				path := filepath.Join(s.ws.ReportsDir, args[0], "plan.json")
				if err := planner.WritePlan(path, plan); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", path)
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), plan)
			}
			printPlan(cmd, plan)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	cmd.Flags().BoolVar(&write, "write", false, "Also write the plan to reports/<module>/plan.json")
	return cmd
}

func printScore(cmd *cobra.Command, r scoring.Result) {
	out := cmd.OutOrStdout()
	bold := color.New(color.Bold)
	fmt.Fprintf(out, "%s  composite %.1f  %s\n", bold.Sprint(r.ModuleID), r.CompositeScore, verdictString(r.Verdict))
	if r.Partial {
		fmt.Fprintf(out, "%s %d required question(s) unanswered\n", color.YellowString("partial:"), len(r.Unanswered))
	}
	fmt.Fprintf(out, "valuation at risk: %s\n\n", money(r.ValuationImpact))
	for _, cs := range r.Categories {
		fmt.Fprintf(out, "  %-28s %5.1f  weight %3.0f  answered %d/%d\n", cs.Name, cs.Score, cs.Weight, cs.Answered, cs.Questions)
	}
	triggered := r.Triggered()
	if len(triggered) == 0 {
		return
	}
	fmt.Fprintf(out, "\nfindings (fatal %d, critical %d, major %d, minor %d):\n", r.FatalCount, r.CriticalCount, r.MajorCount, r.MinorCount)
	for _, f := range triggered {
		sev := string(f.Severity)
		if f.Severity.Rank() <= 1 {
			sev = color.RedString(sev)
		}
		fmt.Fprintf(out, "  %-10s %s", sev, f.QuestionID)
		if f.Remediation != "" {
			fmt.Fprintf(out, ": %s", f.Remediation)
		}
		fmt.Fprintln(out)
	}
}

func printPlan(cmd *cobra.Command, plan planner.ActionPlan) {
	out := cmd.OutOrStdout()
	if len(plan.Blockers) > 0 {
		fmt.Fprintln(out, color.RedString("Blockers"))
		for _, b := range plan.Blockers {
			fmt.Fprintf(out, "  %-9s %s  %s\n", b.Severity, b.QuestionID, b.Remediation)
		}
		fmt.Fprintln(out)
	}
	if len(plan.Items) == 0 {
		fmt.Fprintf(out, "%s: no categories below %.0f need work\n", plan.ModuleID, planner.TargetScore)
		return
	}
	groups := plan.ByHorizon()
	for _, h := range planner.Horizons {
		items := groups[h]
		if len(items) == 0 {
			continue
		}
		fmt.Fprintln(out, color.New(color.Bold).Sprint(h))
		for _, item := range items {
			fmt.Fprintf(out, "  %d. %-26s %5.1f -> %.0f  est. %s\n", item.Rank, item.CategoryName, item.CurrentScore, item.TargetScore, money(item.EstimatedImpact))
			for _, action := range item.Actions {
				fmt.Fprintf(out, "       - %s\n", action)
			}
		}
	}
	fmt.Fprintf(out, "\ntotal estimated impact: %s\n", money(plan.TotalEstimatedImpact))
}
