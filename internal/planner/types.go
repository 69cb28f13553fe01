package planner

import "dealready/internal/catalog"

// PlanSchemaVersion is bumped whenever the ActionPlan shape changes.
const PlanSchemaVersion = 1

const (
	// TargetScore is the category score every plan item aims for.
	TargetScore = 80.0
	// MaxItems caps the number of categories in a plan.
	MaxItems = 5
)

// Horizon buckets plan items by urgency.
type Horizon string

const (
	HorizonImmediate Horizon = "immediate"
	HorizonThirtyDay Horizon = "thirty_day"
	HorizonNinetyDay Horizon = "ninety_day"
)

// Horizons lists every horizon in urgency order.
var Horizons = []Horizon{HorizonImmediate, HorizonThirtyDay, HorizonNinetyDay}

type ActionPlan struct {
	SchemaVersion        int        `json:"schema_version"`
	ModuleID             string     `json:"module_id"`
	Fingerprint          string     `json:"fingerprint"`
	Items                []PlanItem `json:"items"`
	Blockers             []Blocker  `json:"blockers"`
	TotalEstimatedImpact float64    `json:"total_estimated_impact"`
}

type PlanItem struct {
	Rank            int      `json:"rank"`
	CategoryID      string   `json:"category_id"`
	CategoryName    string   `json:"category_name"`
	Weight          float64  `json:"weight"`
	CurrentScore    float64  `json:"current_score"`
	TargetScore     float64  `json:"target_score"`
	EstimatedImpact float64  `json:"estimated_impact"`
	Horizon         Horizon  `json:"horizon"`
	Actions         []string `json:"actions"`
	Findings        []string `json:"findings"`
}

// Blocker is a triggered fatal or critical finding that must be cleared regardless of score.
type Blocker struct {
	QuestionID  string           `json:"question_id"`
	CategoryID  string           `json:"category_id"`
	Severity    catalog.Severity `json:"severity"`
	Remediation string           `json:"remediation,omitempty"`
}

// ByHorizon groups items by horizon, keeping their ranked order within each group.
func (p ActionPlan) ByHorizon() map[Horizon][]PlanItem {
	out := make(map[Horizon][]PlanItem, len(Horizons))
	for _, item := range p.Items {
		out[item.Horizon] = append(out[item.Horizon], item)
	}
	return out
}
