package report

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"dealready/internal/assessment"
	"dealready/internal/catalog"
	"dealready/internal/logging"
	"dealready/internal/planner"
	"dealready/internal/scoring"
	"dealready/internal/store"
)

// Resolver finds the catalog of a module and lists every known module.
type Resolver interface {
	Load(moduleID string) (*catalog.Catalog, error)
	ModuleIDs() []string
}

// RunLoader is the slice of a store the assembler reads from.
type RunLoader interface {
	LoadAll(ctx context.Context) ([]store.Record, error)
}

type Assembler struct {
	Catalogs   Resolver
	Dimensions DimensionMap
	Logger     *slog.Logger
}

type moduleOutcome struct {
	moduleID string
	cat      *catalog.Catalog
	result   scoring.Result
	plan     planner.ActionPlan
}

// AssembleFromStore loads every stored run and assembles them.
func (a Assembler) AssembleFromStore(ctx context.Context, loader RunLoader) (CrossModuleReport, error) {
	records, err := loader.LoadAll(ctx)
	if err != nil {
		return CrossModuleReport{}, fmt.Errorf("load runs: %w", err)
	}
	runs := make([]*assessment.Run, 0, len(records))
	for _, rec := range records {
		runs = append(runs, rec.Run)
	}
	return a.Assemble(runs)
}

// Assemble builds the cross-module report. Completed runs are re-scored
// against their catalog; other modules are listed with neutral defaults so the
// report is renderable with zero completed runs.
func (a Assembler) Assemble(runs []*assessment.Run) (CrossModuleReport, error) {
	if a.Catalogs == nil {
		return CrossModuleReport{}, fmt.Errorf("assembler needs a catalog resolver")
	}
	logger := logging.OrDiscard(a.Logger).With("component", "report")
	dims := a.Dimensions
	if dims == nil {
		dims = DimensionMap{}
	}

	latest := make(map[string]*assessment.Run)
	for _, run := range runs {
		if run == nil {
			continue
		}
		if prev, ok := latest[run.ModuleID]; ok && prev.UpdatedAt.After(run.UpdatedAt) {
			continue
		}
		latest[run.ModuleID] = run
	}

	report := CrossModuleReport{
		SchemaVersion:      ReportSchemaVersion,
		Status:             StatusEmpty,
		Modules:            []ModuleSummary{},
		Dimensions:         []DimensionScore{},
		SWOT:               SWOT{Strengths: []SWOTEntry{}, Weaknesses: []SWOTEntry{}, Opportunities: []SWOTEntry{}, Threats: []SWOTEntry{}},
		CriticalPath:       []PathStep{},
		UnmappedCategories: []string{},
	}

	moduleIDs := a.Catalogs.ModuleIDs()
	known := make(map[string]bool, len(moduleIDs))
	var outcomes []moduleOutcome
	for _, moduleID := range moduleIDs {
		known[moduleID] = true
		cat, err := a.Catalogs.Load(moduleID)
		if err != nil {
			return CrossModuleReport{}, err
		}
		summary := ModuleSummary{ModuleID: moduleID, Status: ModuleNotStarted, Questions: cat.Len()}
		run := latest[moduleID]
		switch {
		case run == nil:
		case run.CompletedAt == nil:
			summary.Status = ModuleInProgress
			summary.Answered = answeredCount(run, cat)
		default:
			result := scoring.ScoreRun(run, cat)
			summary.Status = ModuleCompleted
			summary.Answered = answeredCount(run, cat)
			summary.CompositeScore = result.CompositeScore
			summary.Verdict = result.Verdict
			summary.Partial = result.Partial
			summary.ValuationImpact = result.ValuationImpact
			summary.Fingerprint = result.Fingerprint
			outcomes = append(outcomes, moduleOutcome{
				moduleID: moduleID,
				cat:      cat,
				result:   result,
				plan:     planner.Synthesize(result, cat),
			})
		}
		report.Modules = append(report.Modules, summary)
	}
	for moduleID := range latest {
		if !known[moduleID] {
			logger.Warn("skipping run for unknown module", "module", moduleID)
		}
	}

	switch {
	case len(outcomes) == 0:
		report.Status = StatusEmpty
	case len(outcomes) == len(moduleIDs):
		report.Status = StatusComplete
	default:
		report.Status = StatusPartial
	}

	report.Dimensions, report.UnmappedCategories = rollUp(outcomes, dims)
	covered := 0
	for _, ds := range report.Dimensions {
		if ds.Covered {
			covered++
			report.OverallReadiness += ds.Score
		}
	}
	if covered > 0 {
		report.OverallReadiness /= float64(covered)
	}

	for _, o := range outcomes {
		report.ValuationImpact += o.result.ValuationImpact
		if report.Verdict == "" || o.result.Verdict.Rank() < report.Verdict.Rank() {
			report.Verdict = o.result.Verdict
		}
	}
	report.SWOT = synthesizeSWOT(outcomes)
	report.CriticalPath = criticalPath(outcomes)

	logger.Debug("assembled report", "status", report.Status, "completed", len(outcomes), "modules", len(moduleIDs))
	return report, nil
}

func answeredCount(run *assessment.Run, cat *catalog.Catalog) int {
	n := 0
	for _, q := range cat.Questions() {
		if run.Has(q.ID) {
			n++
		}
	}
	return n
}

func rollUp(outcomes []moduleOutcome, dims DimensionMap) ([]DimensionScore, []string) {
	type acc struct {
		weighted, weight float64
		categories       []string
	}
	sums := make(map[Dimension]*acc, len(Dimensions))
	for _, d := range Dimensions {
		sums[d] = &acc{categories: []string{}}
	}
	unmapped := []string{}
	for _, o := range outcomes {
		for _, cs := range o.result.Categories {
			ref := o.moduleID + "/" + cs.CategoryID
			d, ok := dims.Lookup(o.moduleID, cs.CategoryID)
			if !ok {
				unmapped = append(unmapped, ref)
				continue
			}
			s := sums[d]
			s.weighted += cs.Score * cs.Weight
			s.weight += cs.Weight
			s.categories = append(s.categories, ref)
		}
	}

	out := make([]DimensionScore, 0, len(Dimensions))
	for _, d := range Dimensions {
		s := sums[d]
		ds := DimensionScore{Dimension: d, Categories: s.categories}
		if s.weight > 0 {
			ds.Covered = true
			ds.Score = s.weighted / s.weight
		}
		out = append(out, ds)
	}
	return out, unmapped
}

// Thresholds for strengths and weaknesses, on the 0-100 category scale.
const (
	strengthScore = 80.0
	weaknessScore = 50.0
)

func synthesizeSWOT(outcomes []moduleOutcome) SWOT {
	swot := SWOT{Strengths: []SWOTEntry{}, Weaknesses: []SWOTEntry{}, Opportunities: []SWOTEntry{}, Threats: []SWOTEntry{}}
	for _, o := range outcomes {
		for _, cs := range o.result.Categories {
			entry := SWOTEntry{ModuleID: o.moduleID, CategoryID: cs.CategoryID, Label: cs.Name, Score: cs.Score}
			switch {
			case cs.Score >= strengthScore:
				swot.Strengths = append(swot.Strengths, entry)
			case cs.Score < weaknessScore:
				swot.Weaknesses = append(swot.Weaknesses, entry)
			}
		}
		for _, item := range o.plan.Items {
			swot.Opportunities = append(swot.Opportunities, SWOTEntry{
				ModuleID:   o.moduleID,
				CategoryID: item.CategoryID,
				Label:      item.CategoryName,
				Score:      item.CurrentScore,
				Impact:     item.EstimatedImpact,
			})
		}
		for _, f := range o.result.Triggered() {
			if f.Severity != catalog.SeverityFatal && f.Severity != catalog.SeverityCritical {
				continue
			}
			label := f.QuestionID
			if rec, ok := o.cat.Question(f.QuestionID); ok {
				label = rec.Question.Prompt
			}
			swot.Threats = append(swot.Threats, SWOTEntry{
				ModuleID:   o.moduleID,
				CategoryID: f.CategoryID,
				QuestionID: f.QuestionID,
				Label:      label,
				Score:      o.result.CategoryScores[f.CategoryID],
				Severity:   f.Severity,
			})
		}
	}
	sort.SliceStable(swot.Threats, func(i, j int) bool {
		return swot.Threats[i].Severity.Rank() < swot.Threats[j].Severity.Rank()
	})
	sort.SliceStable(swot.Opportunities, func(i, j int) bool {
		return swot.Opportunities[i].Impact > swot.Opportunities[j].Impact
	})
	return swot
}

// criticalPath lists blockers (fatal before critical) and then plan items by
// estimated impact, capped at MaxCriticalPath. Module order breaks ties.
func criticalPath(outcomes []moduleOutcome) []PathStep {
	var blockers, items []PathStep
	for _, o := range outcomes {
		for _, b := range o.plan.Blockers {
			blockers = append(blockers, PathStep{
				Kind:       StepBlocker,
				ModuleID:   o.moduleID,
				CategoryID: b.CategoryID,
				QuestionID: b.QuestionID,
				Severity:   b.Severity,
				Horizon:    planner.HorizonImmediate,
				Detail:     b.Remediation,
			})
		}
		for _, item := range o.plan.Items {
			items = append(items, PathStep{
				Kind:            StepPlanItem,
				ModuleID:        o.moduleID,
				CategoryID:      item.CategoryID,
				Horizon:         item.Horizon,
				EstimatedImpact: item.EstimatedImpact,
				Detail:          item.CategoryName,
			})
		}
	}
	sort.SliceStable(blockers, func(i, j int) bool {
		return blockers[i].Severity.Rank() < blockers[j].Severity.Rank()
	})
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].EstimatedImpact > items[j].EstimatedImpact
	})

	path := append(blockers, items...)
	if len(path) > MaxCriticalPath {
		path = path[:MaxCriticalPath]
	}
	out := make([]PathStep, 0, len(path))
	for i, step := range path {
		step.Rank = i + 1
		out = append(out, step)
	}
	return out
}
