package planner

import (
	"sort"

	"dealready/internal/catalog"
	"dealready/internal/scoring"
)

// Synthesize builds the ranked action plan for a scored module. Categories
// scoring strictly between 0 and the target are candidates; the weakest
// weighted ones come first, ties keep catalog order.
func Synthesize(result scoring.Result, cat *catalog.Catalog) ActionPlan {
	plan := ActionPlan{
		SchemaVersion: PlanSchemaVersion,
		ModuleID:      result.ModuleID,
		Fingerprint:   result.Fingerprint,
		Items:         []PlanItem{},
		Blockers:      []Blocker{},
	}

	urgent := make(map[string]bool)
	findingsByCategory := make(map[string][]string)
	for _, f := range result.Findings {
		if !f.Triggered {
			continue
		}
		findingsByCategory[f.CategoryID] = append(findingsByCategory[f.CategoryID], f.QuestionID)
		if f.Severity == catalog.SeverityFatal || f.Severity == catalog.SeverityCritical {
			urgent[f.CategoryID] = true
			plan.Blockers = append(plan.Blockers, Blocker{
				QuestionID:  f.QuestionID,
				CategoryID:  f.CategoryID,
				Severity:    f.Severity,
				Remediation: f.Remediation,
			})
		}
	}
	// Findings arrive in catalog order; a stable sort keeps it within a severity.
	sort.SliceStable(plan.Blockers, func(i, j int) bool {
		return plan.Blockers[i].Severity.Rank() < plan.Blockers[j].Severity.Rank()
	})

	var candidates []scoring.CategoryScore
	for _, cs := range result.Categories {
		if cs.Score > 0 && cs.Score < TargetScore {
			candidates = append(candidates, cs)
		}
	}
	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].Score*candidates[i].Weight < candidates[j].Score*candidates[j].Weight
	})
	if len(candidates) > MaxItems {
		candidates = candidates[:MaxItems]
	}

	for idx, cs := range candidates {
		item := PlanItem{
			Rank:         idx + 1,
			CategoryID:   cs.CategoryID,
			CategoryName: cs.Name,
			Weight:       cs.Weight,
			CurrentScore: cs.Score,
			TargetScore:  TargetScore,
			Horizon:      horizonFor(cs.Score, urgent[cs.CategoryID]),
			Actions:      []string{},
			Findings:     append([]string{}, findingsByCategory[cs.CategoryID]...),
		}
		if category, ok := cat.Category(cs.CategoryID); ok {
			item.EstimatedImpact = category.MaxImpactValue * (TargetScore - cs.Score) / 100
			item.Actions = append(item.Actions, category.Actions...)
		}
		plan.TotalEstimatedImpact += item.EstimatedImpact
		plan.Items = append(plan.Items, item)
	}
	return plan
}

func horizonFor(score float64, urgent bool) Horizon {
	switch {
	case urgent:
		return HorizonImmediate
	case score < 50:
		return HorizonThirtyDay
	default:
		return HorizonNinetyDay
	}
}
