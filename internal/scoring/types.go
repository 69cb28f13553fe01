package scoring

import "dealready/internal/catalog"

// ResultSchemaVersion is bumped whenever the Result shape changes.
const ResultSchemaVersion = 1

// Verdict is the top-line fundability classification of a module.
type Verdict string

const (
	VerdictUnfundable Verdict = "UNFUNDABLE"
	VerdictUnlikely   Verdict = "UNLIKELY"
	VerdictAtRisk     Verdict = "AT_RISK"
	VerdictNeedsWork  Verdict = "NEEDS_WORK"
	VerdictReady      Verdict = "READY"
)

// Rank orders verdicts with the worst first. Unknown verdicts sort last.
func (v Verdict) Rank() int {
	switch v {
	case VerdictUnfundable:
		return 0
	case VerdictUnlikely:
		return 1
	case VerdictAtRisk:
		return 2
	case VerdictNeedsWork:
		return 3
	case VerdictReady:
		return 4
	default:
		return 5
	}
}

type CategoryScore struct {
	CategoryID      string  `json:"category_id"`
	Name            string  `json:"name"`
	Weight          float64 `json:"weight"`
	Score           float64 `json:"score"`
	Earned          float64 `json:"earned"`
	Possible        float64 `json:"possible"`
	Answered        int     `json:"answered"`
	Questions       int     `json:"questions"`
	ValuationImpact float64 `json:"valuation_impact"`
}

// Finding is derived from an answered severity question on every scoring pass.
type Finding struct {
	QuestionID  string           `json:"question_id"`
	CategoryID  string           `json:"category_id"`
	Severity    catalog.Severity `json:"severity"`
	Triggered   bool             `json:"triggered"`
	Materiality float64          `json:"materiality"`
	Remediation string           `json:"remediation,omitempty"`
	Error       string           `json:"error,omitempty"`
}

// Result is the pure output of scoring one module's answers against its catalog.
type Result struct {
	SchemaVersion   int                `json:"schema_version"`
	ModuleID        string             `json:"module_id"`
	Categories      []CategoryScore    `json:"categories"`
	CategoryScores  map[string]float64 `json:"category_scores"`
	CompositeScore  float64            `json:"composite_score"`
	Findings        []Finding          `json:"findings"`
	FatalCount      int                `json:"fatal_count"`
	CriticalCount   int                `json:"critical_count"`
	MajorCount      int                `json:"major_count"`
	MinorCount      int                `json:"minor_count"`
	Verdict         Verdict            `json:"verdict"`
	ValuationImpact float64            `json:"valuation_impact"`
	Partial         bool               `json:"partial"`
	Unanswered      []string           `json:"unanswered"`
	Fingerprint     string             `json:"fingerprint"`
}

// Category returns the score entry for id.
func (r Result) Category(id string) (CategoryScore, bool) {
	for _, c := range r.Categories {
		if c.CategoryID == id {
			return c, true
		}
	}
	return CategoryScore{}, false
}

// Triggered returns the findings whose trigger fired.
func (r Result) Triggered() []Finding {
	var out []Finding
	for _, f := range r.Findings {
		if f.Triggered {
			out = append(out, f)
		}
	}
	return out
}
