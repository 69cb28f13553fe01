package report

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dealready/internal/assessment"
	"dealready/internal/catalog"
	"dealready/internal/planner"
	"dealready/internal/scoring"
	"dealready/internal/store"
)

const alphaCatalog = `
schema_version: 1.0.0
module_id: alpha
categories:
  - id: fin
    name: Finance
    weight: 60
    max_impact_value: 100000
    questions:
      - id: f1
        prompt: Are the books audited?
        kind: single-select
        options:
          - {id: low, label: Low, score: 40}
          - {id: high, label: High, score: 100}
  - id: ops
    name: Operations
    weight: 40
    questions:
      - id: o1
        prompt: Is there pending litigation?
        kind: single-select
        severity: fatal
        trigger: {when: "yes"}
        remediation: Resolve the dispute
        options:
          - {id: "yes", label: "Yes", score: 0}
          - {id: "no", label: "No", score: 100}
`

const betaCatalog = `
schema_version: 1.0.0
module_id: beta
categories:
  - id: mkt
    name: Market
    weight: 100
    questions:
      - id: m1
        prompt: How strong is the market position?
        kind: single-select
        options:
          - {id: weak, label: Weak, score: 30}
          - {id: strong, label: Strong, score: 90}
`

var testDimensions = DimensionMap{
	"alpha": {"fin": DimensionFinancial, "ops": DimensionOperational},
	"beta":  {"mkt": DimensionMarket},
}

func testRegistry(t *testing.T, sources ...string) *catalog.Registry {
	t.Helper()
	var cats []*catalog.Catalog
	for i, src := range sources {
		cat, err := catalog.ParseAndValidateCatalog([]byte(src), fmt.Sprintf("cat%d.yml", i))
		require.NoError(t, err)
		cats = append(cats, cat)
	}
	return catalog.NewRegistry(cats...)
}

func completedRun(moduleID string, answers map[string]assessment.Value) *assessment.Run {
	run := assessment.NewRun(moduleID)
	for id, v := range answers {
		run.Set(id, v)
	}
	run.Cursor = len(answers)
	run.Complete(time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC))
	return run
}

func alphaRun() *assessment.Run {
	return completedRun("alpha", map[string]assessment.Value{
		"f1": assessment.SingleSelect{Option: "low"},
		"o1": assessment.SingleSelect{Option: "yes"},
	})
}

func betaRun() *assessment.Run {
	return completedRun("beta", map[string]assessment.Value{
		"m1": assessment.SingleSelect{Option: "strong"},
	})
}

func TestAssembleWithNoRunsUsesNeutralDefaults(t *testing.T) {
	a := Assembler{Catalogs: testRegistry(t, alphaCatalog, betaCatalog), Dimensions: testDimensions}
	rep, err := a.Assemble(nil)
	require.NoError(t, err)

	assert.Equal(t, StatusEmpty, rep.Status)
	require.Len(t, rep.Modules, 2)
	for _, m := range rep.Modules {
		assert.Equal(t, ModuleNotStarted, m.Status)
		assert.Empty(t, m.Verdict)
	}
	require.Len(t, rep.Dimensions, len(Dimensions))
	for _, d := range rep.Dimensions {
		assert.False(t, d.Covered)
		assert.Equal(t, 0.0, d.Score)
	}
	assert.Equal(t, 0.0, rep.OverallReadiness)
	assert.Empty(t, rep.Verdict)
	assert.NotNil(t, rep.SWOT.Strengths)
	assert.NotNil(t, rep.CriticalPath)

	data, err := json.Marshal(rep)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "null")
}

func TestAssembleListsInProgressWithoutAggregating(t *testing.T) {
	a := Assembler{Catalogs: testRegistry(t, alphaCatalog, betaCatalog), Dimensions: testDimensions}
	run := assessment.NewRun("alpha")
	run.Set("f1", assessment.SingleSelect{Option: "high"})

	rep, err := a.Assemble([]*assessment.Run{run})
	require.NoError(t, err)
	alpha, ok := rep.Module("alpha")
	require.True(t, ok)
	assert.Equal(t, ModuleInProgress, alpha.Status)
	assert.Equal(t, 1, alpha.Answered)
	assert.Equal(t, 2, alpha.Questions)
	assert.Equal(t, StatusEmpty, rep.Status)
	fin, _ := rep.Dimension(DimensionFinancial)
	assert.False(t, fin.Covered)
}

func TestAssembleCompletedModules(t *testing.T) {
	a := Assembler{Catalogs: testRegistry(t, alphaCatalog, betaCatalog), Dimensions: testDimensions}
	rep, err := a.Assemble([]*assessment.Run{alphaRun(), betaRun()})
	require.NoError(t, err)

	assert.Equal(t, StatusComplete, rep.Status)
	alpha, _ := rep.Module("alpha")
	assert.Equal(t, ModuleCompleted, alpha.Status)
	assert.InDelta(t, 24, alpha.CompositeScore, 1e-9)
	assert.Equal(t, scoring.VerdictAtRisk, alpha.Verdict)

	fin, _ := rep.Dimension(DimensionFinancial)
	ops, _ := rep.Dimension(DimensionOperational)
	mkt, _ := rep.Dimension(DimensionMarket)
	mgmt, _ := rep.Dimension(DimensionManagement)
	assert.InDelta(t, 40, fin.Score, 1e-9)
	assert.True(t, ops.Covered)
	assert.Equal(t, 0.0, ops.Score)
	assert.InDelta(t, 90, mkt.Score, 1e-9)
	assert.False(t, mgmt.Covered)
	assert.InDelta(t, (40.0+0+90)/3, rep.OverallReadiness, 1e-9)

	assert.Equal(t, scoring.VerdictAtRisk, rep.Verdict, "worst module verdict wins")
	assert.InDelta(t, 60000, rep.ValuationImpact, 1e-6)
	assert.Empty(t, rep.UnmappedCategories)

	require.Len(t, rep.SWOT.Strengths, 1)
	assert.Equal(t, "mkt", rep.SWOT.Strengths[0].CategoryID)
	require.Len(t, rep.SWOT.Weaknesses, 2)
	require.Len(t, rep.SWOT.Opportunities, 1)
	assert.InDelta(t, 40000, rep.SWOT.Opportunities[0].Impact, 1e-6)
	require.Len(t, rep.SWOT.Threats, 1)
	assert.Equal(t, "Is there pending litigation?", rep.SWOT.Threats[0].Label)

	require.Len(t, rep.CriticalPath, 2)
	assert.Equal(t, PathStep{
		Rank: 1, Kind: StepBlocker, ModuleID: "alpha", CategoryID: "ops", QuestionID: "o1",
		Severity: catalog.SeverityFatal, Horizon: planner.HorizonImmediate, Detail: "Resolve the dispute",
	}, rep.CriticalPath[0])
	assert.Equal(t, StepPlanItem, rep.CriticalPath[1].Kind)
	assert.Equal(t, planner.HorizonThirtyDay, rep.CriticalPath[1].Horizon)
}

func TestAssembleRescoresEditedRuns(t *testing.T) {
	reg := testRegistry(t, alphaCatalog, betaCatalog)
	a := Assembler{Catalogs: reg, Dimensions: testDimensions}
	run := betaRun()

	first, err := a.Assemble([]*assessment.Run{run})
	require.NoError(t, err)
	run.Set("m1", assessment.SingleSelect{Option: "weak"})
	second, err := a.Assemble([]*assessment.Run{run})
	require.NoError(t, err)

	before, _ := first.Module("beta")
	after, _ := second.Module("beta")
	assert.InDelta(t, 90, before.CompositeScore, 1e-9)
	assert.InDelta(t, 30, after.CompositeScore, 1e-9)
	cat, _ := reg.Load("beta")
	assert.Equal(t, scoring.ScoreRun(run, cat).Fingerprint, after.Fingerprint)
	assert.Equal(t, StatusPartial, second.Status)
}

func TestAssemblePrefersLatestRunPerModule(t *testing.T) {
	a := Assembler{Catalogs: testRegistry(t, betaCatalog), Dimensions: testDimensions}
	old := betaRun()
	old.UpdatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	newer := completedRun("beta", map[string]assessment.Value{"m1": assessment.SingleSelect{Option: "weak"}})
	newer.UpdatedAt = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	rep, err := a.Assemble([]*assessment.Run{newer, old})
	require.NoError(t, err)
	beta, _ := rep.Module("beta")
	assert.InDelta(t, 30, beta.CompositeScore, 1e-9)
}

func TestAssembleReportsUnmappedCategories(t *testing.T) {
	a := Assembler{Catalogs: testRegistry(t, alphaCatalog, betaCatalog), Dimensions: DimensionMap{"alpha": {"fin": DimensionFinancial}}}
	rep, err := a.Assemble([]*assessment.Run{alphaRun(), betaRun()})
	require.NoError(t, err)
	assert.Equal(t, []string{"alpha/ops", "beta/mkt"}, rep.UnmappedCategories)
	assert.InDelta(t, 40, rep.OverallReadiness, 1e-9)
}

func TestAssembleIgnoresUnknownModules(t *testing.T) {
	a := Assembler{Catalogs: testRegistry(t, betaCatalog), Dimensions: testDimensions}
	rep, err := a.Assemble([]*assessment.Run{alphaRun()})
	require.NoError(t, err)
	assert.Len(t, rep.Modules, 1)
	assert.Equal(t, StatusEmpty, rep.Status)
}

func TestCriticalPathIsCapped(t *testing.T) {
	var b strings.Builder
	b.WriteString("schema_version: 1.0.0\nmodule_id: many\ncategories:\n")
	for i := 0; i < 20; i++ {
		fmt.Fprintf(&b, `  - id: c%02d
    name: C%02d
    weight: 5
    questions:
      - id: q%02d
        prompt: q
        kind: single-select
        severity: critical
        trigger: {when: "yes"}
        options:
          - {id: "yes", label: "Yes", score: 40}
          - {id: "no", label: "No", score: 100}
`, i, i, i)
	}
	reg := testRegistry(t, b.String())
	answers := map[string]assessment.Value{}
	for i := 0; i < 20; i++ {
		answers[fmt.Sprintf("q%02d", i)] = assessment.SingleSelect{Option: "yes"}
	}

	rep, err := Assembler{Catalogs: reg}.Assemble([]*assessment.Run{completedRun("many", answers)})
	require.NoError(t, err)
	require.Len(t, rep.CriticalPath, MaxCriticalPath)
	for i, step := range rep.CriticalPath {
		assert.Equal(t, i+1, step.Rank)
		assert.Equal(t, StepBlocker, step.Kind)
	}
	assert.Len(t, rep.UnmappedCategories, 20)
}

func TestAssembleFromStore(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	require.NoError(t, mem.Save(ctx, store.Key("alpha"), alphaRun()))
	require.NoError(t, mem.Save(ctx, store.Key("beta"), betaRun()))

	a := Assembler{Catalogs: testRegistry(t, alphaCatalog, betaCatalog), Dimensions: testDimensions}
	rep, err := a.AssembleFromStore(ctx, mem)
	require.NoError(t, err)
	assert.Equal(t, StatusComplete, rep.Status)
}

func TestDefaultDimensionsCoverBuiltinCatalogs(t *testing.T) {
	reg, err := catalog.Builtin()
	require.NoError(t, err)
	dims := DefaultDimensions()
	for _, moduleID := range reg.ModuleIDs() {
		cat, err := reg.Load(moduleID)
		require.NoError(t, err)
		for _, categoryID := range cat.CategoryIDs() {
			_, ok := dims.Lookup(moduleID, categoryID)
			assert.True(t, ok, "%s/%s has no dimension", moduleID, categoryID)
		}
	}
}

func TestParseDimensionsRejectsUnknownDimension(t *testing.T) {
	_, err := ParseDimensions([]byte("alpha:\n  fin: vibes\n"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alpha.fin")
}

func TestLoadDimensions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dimensions.yml")
	require.NoError(t, os.WriteFile(path, []byte("beta:\n  mkt: market\n"), 0o644))
	dims, err := LoadDimensions(path)
	require.NoError(t, err)
	d, ok := dims.Lookup("beta", "mkt")
	require.True(t, ok)
	assert.Equal(t, DimensionMarket, d)

	defaults, err := LoadDimensions("")
	require.NoError(t, err)
	assert.NotEmpty(t, defaults)
}
