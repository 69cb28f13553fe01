package planner

import (
	"fmt"
	"strings"
)

// ValidatePlan checks the structural invariants of a plan read back from disk.
func ValidatePlan(plan ActionPlan) error {
	if strings.TrimSpace(plan.ModuleID) == "" {
		return fmt.Errorf("plan module_id is required")
	}
	if len(plan.Items) > MaxItems {
		return fmt.Errorf("plan has %d items, at most %d allowed", len(plan.Items), MaxItems)
	}
	for idx, item := range plan.Items {
		if item.Rank != idx+1 {
			return fmt.Errorf("plan item %d: rank %d out of order", idx, item.Rank)
		}
		if err := ValidatePlanItem(item); err != nil {
			return fmt.Errorf("plan item %d: %w", idx, err)
		}
	}
	return nil
}

func ValidatePlanItem(item PlanItem) error {
	if strings.TrimSpace(item.CategoryID) == "" {
		return fmt.Errorf("category_id is required")
	}
	if item.TargetScore != TargetScore {
		return fmt.Errorf("target_score must be %g", TargetScore)
	}
	if item.CurrentScore <= 0 || item.CurrentScore >= TargetScore {
		return fmt.Errorf("current_score %g outside (0, %g)", item.CurrentScore, TargetScore)
	}
	switch item.Horizon {
	case HorizonImmediate, HorizonThirtyDay, HorizonNinetyDay:
	default:
		return fmt.Errorf("horizon must be one of immediate, thirty_day, ninety_day")
	}
	if item.EstimatedImpact < 0 {
		return fmt.Errorf("estimated_impact must not be negative")
	}
	return nil
}
