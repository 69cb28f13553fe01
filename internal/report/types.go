package report

import (
	"dealready/internal/catalog"
	"dealready/internal/planner"
	"dealready/internal/scoring"
)

// ReportSchemaVersion is bumped whenever the CrossModuleReport shape changes.
const ReportSchemaVersion = 1

// MaxCriticalPath caps the number of steps in a report's critical path.
const MaxCriticalPath = 10

// Dimension is one of the four readiness axes categories roll up into.
type Dimension string

const (
	DimensionFinancial   Dimension = "financial"
	DimensionOperational Dimension = "operational"
	DimensionManagement  Dimension = "management"
	DimensionMarket      Dimension = "market"
)

// Dimensions lists every dimension in report order.
var Dimensions = []Dimension{DimensionFinancial, DimensionOperational, DimensionManagement, DimensionMarket}

func (d Dimension) valid() bool {
	for _, known := range Dimensions {
		if d == known {
			return true
		}
	}
	return false
}

type ModuleStatus string

const (
	ModuleCompleted  ModuleStatus = "completed"
	ModuleInProgress ModuleStatus = "in_progress"
	ModuleNotStarted ModuleStatus = "not_started"
)

// Status describes how much of the registry a report covers.
type Status string

const (
	StatusEmpty    Status = "empty"
	StatusPartial  Status = "partial"
	StatusComplete Status = "complete"
)

// ModuleSummary is one module's line in the report. Score fields are zero
// unless the module is completed.
type ModuleSummary struct {
	ModuleID        string          `json:"module_id"`
	Status          ModuleStatus    `json:"status"`
	Answered        int             `json:"answered"`
	Questions       int             `json:"questions"`
	CompositeScore  float64         `json:"composite_score"`
	Verdict         scoring.Verdict `json:"verdict,omitempty"`
	Partial         bool            `json:"partial"`
	ValuationImpact float64         `json:"valuation_impact"`
	Fingerprint     string          `json:"fingerprint,omitempty"`
}

// DimensionScore is the weight-weighted mean of every mapped category score.
// Covered is false, and Score 0, when no completed module feeds the dimension.
type DimensionScore struct {
	Dimension  Dimension `json:"dimension"`
	Score      float64   `json:"score"`
	Covered    bool      `json:"covered"`
	Categories []string  `json:"categories"`
}

// SWOTEntry points at the category or finding behind a SWOT line.
type SWOTEntry struct {
	ModuleID   string           `json:"module_id"`
	CategoryID string           `json:"category_id"`
	QuestionID string           `json:"question_id,omitempty"`
	Label      string           `json:"label"`
	Score      float64          `json:"score"`
	Severity   catalog.Severity `json:"severity,omitempty"`
	Impact     float64          `json:"impact,omitempty"`
}

type SWOT struct {
	Strengths     []SWOTEntry `json:"strengths"`
	Weaknesses    []SWOTEntry `json:"weaknesses"`
	Opportunities []SWOTEntry `json:"opportunities"`
	Threats       []SWOTEntry `json:"threats"`
}

type StepKind string

const (
	StepBlocker  StepKind = "blocker"
	StepPlanItem StepKind = "plan_item"
)

// PathStep is one ordered entry of the cross-module critical path.
type PathStep struct {
	Rank            int              `json:"rank"`
	Kind            StepKind         `json:"kind"`
	ModuleID        string           `json:"module_id"`
	CategoryID      string           `json:"category_id"`
	QuestionID      string           `json:"question_id,omitempty"`
	Severity        catalog.Severity `json:"severity,omitempty"`
	Horizon         planner.Horizon  `json:"horizon,omitempty"`
	EstimatedImpact float64          `json:"estimated_impact"`
	Detail          string           `json:"detail,omitempty"`
}

// CrossModuleReport is always regenerated from runs; it is never stored.
type CrossModuleReport struct {
	SchemaVersion      int              `json:"schema_version"`
	Status             Status           `json:"status"`
	Modules            []ModuleSummary  `json:"modules"`
	Dimensions         []DimensionScore `json:"dimensions"`
	OverallReadiness   float64          `json:"overall_readiness"`
	Verdict            scoring.Verdict  `json:"verdict,omitempty"`
	ValuationImpact    float64          `json:"valuation_impact"`
	SWOT               SWOT             `json:"swot"`
	CriticalPath       []PathStep       `json:"critical_path"`
	UnmappedCategories []string         `json:"unmapped_categories"`
}

// Module returns the summary for moduleID.
func (r CrossModuleReport) Module(moduleID string) (ModuleSummary, bool) {
	for _, m := range r.Modules {
		if m.ModuleID == moduleID {
			return m, true
		}
	}
	return ModuleSummary{}, false
}

// Dimension returns the score entry for d.
func (r CrossModuleReport) Dimension(d Dimension) (DimensionScore, bool) {
	for _, ds := range r.Dimensions {
		if ds.Dimension == d {
			return ds, true
		}
	}
	return DimensionScore{}, false
}
