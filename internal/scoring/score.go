package scoring

import (
	"math"

	"dealready/internal/assessment"
	"dealready/internal/catalog"
)

// ScoreRun scores the answers recorded on run.
func ScoreRun(run *assessment.Run, cat *catalog.Catalog) Result {
	return Score(run.Values(), cat)
}

// Score reduces answers and a catalog into category scores, a composite, and findings.
// It is pure: the same inputs always produce the same Result, fingerprint included.
// Answers whose kind no longer matches their question are treated as unanswered.
func Score(answers map[string]assessment.Value, cat *catalog.Catalog) Result {
	result := Result{
		SchemaVersion:  ResultSchemaVersion,
		Categories:     []CategoryScore{},
		CategoryScores: map[string]float64{},
		Findings:       []Finding{},
		Unanswered:     []string{},
	}
	if cat == nil {
		result.Verdict = VerdictFor(0, 0, 0)
		result.Fingerprint = Fingerprint(result)
		return result
	}
	result.ModuleID = cat.ModuleID

	composite := 0.0
	impact := 0.0
	for _, category := range cat.Categories {
		cs := CategoryScore{
			CategoryID: category.ID,
			Name:       category.Name,
			Weight:     category.Weight,
		}
		for _, q := range category.Questions {
			value, answered := answerFor(answers, q)
			if !answered && !q.Optional {
				result.Unanswered = append(result.Unanswered, q.ID)
			}

			if q.Kind.Scoreable() {
				cs.Questions++
				switch {
				case answered:
					cs.Answered++
					cs.Earned += Contribution(q, value)
					cs.Possible += q.MaxContribution()
				case !q.Optional:
					cs.Possible += q.MaxContribution()
				}
			}

			if answered && q.HasSeverity() {
				result.Findings = append(result.Findings, evaluateFinding(q, value))
			}
		}

		cs.Score = categoryScore(cs.Earned, cs.Possible)
		cs.ValuationImpact = category.MaxImpactValue * (100 - cs.Score) / 100
		composite += cs.Score * category.Weight / 100
		impact += cs.ValuationImpact

		result.Categories = append(result.Categories, cs)
		result.CategoryScores[category.ID] = cs.Score
	}

	for _, f := range result.Findings {
		if !f.Triggered {
			continue
		}
		switch f.Severity {
		case catalog.SeverityFatal:
			result.FatalCount++
		case catalog.SeverityCritical:
			result.CriticalCount++
		case catalog.SeverityMajor:
			result.MajorCount++
		case catalog.SeverityMinor:
			result.MinorCount++
		}
	}

	result.CompositeScore = clamp(composite)
	result.ValuationImpact = impact
	result.Verdict = VerdictFor(result.CompositeScore, result.FatalCount, result.CriticalCount)
	result.Partial = len(result.Unanswered) > 0
	result.Fingerprint = Fingerprint(result)
	return result
}

// Contribution resolves an answer to the points it earns for q.
func Contribution(q catalog.Question, v assessment.Value) float64 {
	switch val := v.(type) {
	case assessment.SingleSelect:
		if opt, ok := q.Option(val.Option); ok {
			return opt.Score
		}
	case assessment.MultiSelect:
		total := 0.0
		for _, id := range val.Options {
			if opt, ok := q.Option(id); ok {
				total += opt.Score
			}
		}
		return total
	case assessment.Numeric:
		for _, band := range q.Bands {
			if band.Contains(val.Number) {
				return band.Score
			}
		}
	}
	return 0
}

func answerFor(answers map[string]assessment.Value, q catalog.Question) (assessment.Value, bool) {
	v, ok := answers[q.ID]
	if !ok || v == nil || v.Kind() != q.Kind {
		return nil, false
	}
	return v, true
}

func evaluateFinding(q catalog.Question, v assessment.Value) Finding {
	f := Finding{
		QuestionID:  q.ID,
		CategoryID:  q.CategoryID,
		Severity:    q.Severity,
		Materiality: materiality(q, v),
		Remediation: q.Remediation,
	}
	triggered, err := q.Trigger.Evaluate(v.Input())
	if err != nil {
		f.Error = err.Error()
		return f
	}
	f.Triggered = triggered
	return f
}

// materiality is the heaviest weight among the selected options; 1 for non-select answers.
func materiality(q catalog.Question, v assessment.Value) float64 {
	var ids []string
	switch val := v.(type) {
	case assessment.SingleSelect:
		ids = []string{val.Option}
	case assessment.MultiSelect:
		ids = val.Options
	default:
		return 1
	}
	weight := 0.0
	for _, id := range ids {
		if opt, ok := q.Option(id); ok && opt.MaterialityWeight > weight {
			weight = opt.MaterialityWeight
		}
	}
	if weight == 0 {
		return 1
	}
	return weight
}

func categoryScore(earned, possible float64) float64 {
	if possible <= 0 {
		return 0
	}
	return clamp(earned * 100 / possible)
}

func clamp(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
