package planner

import (
	"path/filepath"
	"testing"

	"dealready/internal/catalog"
	"dealready/internal/scoring"
)

const plannerCatalog = `
schema_version: 1.0.0
module_id: plan
categories:
  - id: a
    name: A
    weight: 10
    max_impact_value: 100000
    actions: ["fix a"]
    questions:
      - {id: qa, prompt: qa, kind: single-select, options: [{id: x, label: X, score: 100}]}
  - id: b
    name: B
    weight: 40
    max_impact_value: 200000
    actions: ["fix b"]
    questions:
      - {id: qb, prompt: qb, kind: single-select, options: [{id: x, label: X, score: 100}]}
  - id: c
    name: C
    weight: 20
    max_impact_value: 300000
    questions:
      - {id: qc, prompt: qc, kind: single-select, options: [{id: x, label: X, score: 100}]}
  - id: d
    name: D
    weight: 20
    max_impact_value: 400000
    questions:
      - {id: qd, prompt: qd, kind: single-select, options: [{id: x, label: X, score: 100}]}
  - id: e
    name: E
    weight: 10
    max_impact_value: 500000
    questions:
      - {id: qe, prompt: qe, kind: single-select, options: [{id: x, label: X, score: 100}]}
`

func loadPlannerCatalog(t *testing.T) *catalog.Catalog {
	t.Helper()
	cat, err := catalog.ParseAndValidateCatalog([]byte(plannerCatalog), "plan.yml")
	if err != nil {
		t.Fatalf("parse catalog: %v", err)
	}
	return cat
}

func resultWith(scores map[string]float64, weights map[string]float64, findings ...scoring.Finding) scoring.Result {
	res := scoring.Result{ModuleID: "plan", Findings: findings}
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		s, ok := scores[id]
		if !ok {
			continue
		}
		res.Categories = append(res.Categories, scoring.CategoryScore{
			CategoryID: id,
			Name:       id,
			Weight:     weights[id],
			Score:      s,
		})
	}
	return res
}

var plannerWeights = map[string]float64{"a": 10, "b": 40, "c": 20, "d": 20, "e": 10}

func TestSynthesizeOrdersByWeightedScore(t *testing.T) {
	cat := loadPlannerCatalog(t)
	// weighted: a=600, b=1200, c=600; d scores 0 and e is above target, so both drop out.
	res := resultWith(map[string]float64{"a": 60, "b": 30, "c": 30, "d": 0, "e": 90}, plannerWeights)
	plan := Synthesize(res, cat)

	var got []string
	for _, item := range plan.Items {
		got = append(got, item.CategoryID)
	}
	want := []string{"a", "c", "b"}
	if len(got) != len(want) {
		t.Fatalf("items = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("items = %v, want %v (ties keep catalog order)", got, want)
		}
	}
	if plan.Items[0].Rank != 1 || plan.Items[2].Rank != 3 {
		t.Fatalf("unexpected ranks %+v", plan.Items)
	}
	if err := ValidatePlan(plan); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestSynthesizeImpactAndHorizon(t *testing.T) {
	cat := loadPlannerCatalog(t)
	res := resultWith(map[string]float64{"a": 60, "b": 30}, plannerWeights,
		scoring.Finding{QuestionID: "qb", CategoryID: "b", Severity: catalog.SeverityCritical, Triggered: true, Remediation: "do b"},
		scoring.Finding{QuestionID: "qa", CategoryID: "a", Severity: catalog.SeverityMinor, Triggered: true},
	)
	plan := Synthesize(res, cat)

	if len(plan.Items) != 2 {
		t.Fatalf("expected two items, got %+v", plan.Items)
	}
	a, b := plan.Items[0], plan.Items[1]
	if got, want := a.EstimatedImpact, 100000*(80-60)/100.0; got != want {
		t.Fatalf("impact a = %v, want %v", got, want)
	}
	if got, want := b.EstimatedImpact, 200000*(80-30)/100.0; got != want {
		t.Fatalf("impact b = %v, want %v", got, want)
	}
	if a.Horizon != HorizonNinetyDay || b.Horizon != HorizonImmediate {
		t.Fatalf("horizons = %s, %s", a.Horizon, b.Horizon)
	}
	if plan.TotalEstimatedImpact != a.EstimatedImpact+b.EstimatedImpact {
		t.Fatalf("total impact = %v", plan.TotalEstimatedImpact)
	}
	if len(a.Actions) != 1 || a.Actions[0] != "fix a" {
		t.Fatalf("actions = %v", a.Actions)
	}
	if len(plan.Blockers) != 1 || plan.Blockers[0].QuestionID != "qb" {
		t.Fatalf("blockers = %+v", plan.Blockers)
	}
	groups := plan.ByHorizon()
	if len(groups[HorizonImmediate]) != 1 || len(groups[HorizonThirtyDay]) != 0 {
		t.Fatalf("groups = %+v", groups)
	}
}

func TestSynthesizeCapsAtFive(t *testing.T) {
	cat := loadPlannerCatalog(t)
	scores := map[string]float64{"a": 10, "b": 20, "c": 30, "d": 40, "e": 50}
	res := resultWith(scores, plannerWeights)
	res.Categories = append(res.Categories, scoring.CategoryScore{CategoryID: "f", Weight: 100, Score: 70})
	plan := Synthesize(res, cat)
	if len(plan.Items) != MaxItems {
		t.Fatalf("expected %d items, got %d", MaxItems, len(plan.Items))
	}
	for _, item := range plan.Items {
		if item.CategoryID == "f" {
			t.Fatalf("heaviest weighted category should be dropped")
		}
	}
}

func TestSynthesizeEmpty(t *testing.T) {
	plan := Synthesize(scoring.Result{ModuleID: "plan"}, nil)
	if len(plan.Items) != 0 || plan.Items == nil {
		t.Fatalf("expected empty non-nil items")
	}
	if err := ValidatePlan(plan); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestBlockersSortedBySeverity(t *testing.T) {
	res := scoring.Result{ModuleID: "plan", Findings: []scoring.Finding{
		{QuestionID: "c1", Severity: catalog.SeverityCritical, Triggered: true},
		{QuestionID: "f1", Severity: catalog.SeverityFatal, Triggered: true},
		{QuestionID: "c2", Severity: catalog.SeverityCritical, Triggered: true},
		{QuestionID: "f2", Severity: catalog.SeverityFatal, Triggered: false},
	}}
	plan := Synthesize(res, nil)
	var got []string
	for _, b := range plan.Blockers {
		got = append(got, b.QuestionID)
	}
	if len(got) != 3 || got[0] != "f1" || got[1] != "c1" || got[2] != "c2" {
		t.Fatalf("blockers = %v", got)
	}
}

func TestWriteAndLoadPlan(t *testing.T) {
	cat := loadPlannerCatalog(t)
	plan := Synthesize(resultWith(map[string]float64{"a": 60}, plannerWeights), cat)
	dir := filepath.Join(t.TempDir(), "reports", "plan")
	if err := WritePlan(filepath.Join(dir, "plan.json"), plan); err != nil {
		t.Fatalf("write: %v", err)
	}
	path, err := ResolvePlanPath(dir)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	loaded, err := LoadPlan(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(loaded.Items) != 1 || loaded.Items[0].CategoryID != "a" {
		t.Fatalf("unexpected plan %+v", loaded)
	}
}

func TestValidatePlanRejectsBadItems(t *testing.T) {
	plan := ActionPlan{ModuleID: "m", Items: []PlanItem{{Rank: 1, CategoryID: "a", CurrentScore: 90, TargetScore: TargetScore, Horizon: HorizonNinetyDay}}}
	if err := ValidatePlan(plan); err == nil {
		t.Fatalf("expected error for score above target")
	}
	plan.Items[0].CurrentScore = 40
	plan.Items[0].Rank = 2
	if err := ValidatePlan(plan); err == nil {
		t.Fatalf("expected rank error")
	}
}
