package catalog

import (
	"fmt"
	"math"
	"strings"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"
)

// SupportedSchema is the catalog schema_version range this engine reads.
const SupportedSchema = "^1.0.0"

const (
	minOptionScore = 0.0
	maxOptionScore = 100.0
	weightTotal    = 100.0
	weightEpsilon  = 1e-9
)

type rawCatalog struct {
	SchemaVersion string        `yaml:"schema_version"`
	ModuleID      string        `yaml:"module_id"`
	Title         string        `yaml:"title"`
	Categories    []rawCategory `yaml:"categories"`
}

type rawCategory struct {
	ID             string        `yaml:"id"`
	Name           string        `yaml:"name"`
	Weight         *float64      `yaml:"weight"`
	MaxImpactValue float64       `yaml:"max_impact_value"`
	Actions        []string      `yaml:"actions"`
	Questions      []rawQuestion `yaml:"questions"`
}

type rawQuestion struct {
	ID          string      `yaml:"id"`
	Prompt      string      `yaml:"prompt"`
	Kind        string      `yaml:"kind"`
	Optional    bool        `yaml:"optional"`
	Options     []rawOption `yaml:"options"`
	Bands       []rawBand   `yaml:"bands"`
	Range       *rawRange   `yaml:"range"`
	Severity    string      `yaml:"severity"`
	Trigger     *rawTrigger `yaml:"trigger"`
	Remediation string      `yaml:"remediation"`
}

type rawOption struct {
	ID                string   `yaml:"id"`
	Label             string   `yaml:"label"`
	Score             *float64 `yaml:"score"`
	MaterialityWeight *float64 `yaml:"materiality_weight"`
}

type rawBand struct {
	Min   *float64 `yaml:"min"`
	Max   *float64 `yaml:"max"`
	Score *float64 `yaml:"score"`
}

type rawRange struct {
	Min *float64 `yaml:"min"`
	Max *float64 `yaml:"max"`
}

type rawTrigger struct {
	When      string   `yaml:"when"`
	Options   []string `yaml:"options"`
	Threshold *float64 `yaml:"threshold"`
	Expr      string   `yaml:"expr"`
}

// Issue captures a single field-specific catalog problem.
type Issue struct {
	File    string
	Field   string
	Message string
}

func (e Issue) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.File, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", e.File, e.Field, e.Message)
}

// ConfigurationError aggregates every problem found in one or more catalogs.
// A catalog that produces one is never handed to the engine.
type ConfigurationError []Issue

func (errs ConfigurationError) Error() string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "\n")
}

// ParseAndValidateCatalog unmarshals and validates a YAML catalog document.
func ParseAndValidateCatalog(data []byte, source string) (*Catalog, error) {
	var raw rawCatalog
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, ConfigurationError{{
			File:    source,
			Field:   "yaml",
			Message: err.Error(),
		}}
	}
	return validateRawCatalog(raw, source)
}

func validateRawCatalog(raw rawCatalog, source string) (*Catalog, error) {
	var errs ConfigurationError
	add := func(field, format string, args ...any) {
		errs = append(errs, Issue{File: source, Field: field, Message: fmt.Sprintf(format, args...)})
	}

	version := strings.TrimSpace(raw.SchemaVersion)
	if version == "" {
		add("schema_version", "schema_version is required")
	} else if err := checkSchemaVersion(version); err != nil {
		add("schema_version", "%v", err)
	}
	if strings.TrimSpace(raw.ModuleID) == "" {
		add("module_id", "module_id is required")
	}
	if len(raw.Categories) == 0 {
		add("categories", "must contain at least one category")
	}

	catIDs := make(map[string]struct{})
	questionIDs := make(map[string]string)
	var categories []Category
	totalWeight := 0.0

	for idx, rawCat := range raw.Categories {
		catPath := fmt.Sprintf("categories[%d]", idx)
		cat, catErrs := validateCategory(rawCat, catPath, source)
		errs = append(errs, catErrs...)

		if cat.ID != "" {
			if _, exists := catIDs[cat.ID]; exists {
				add(catPath+".id", "duplicate category id %q", cat.ID)
			} else {
				catIDs[cat.ID] = struct{}{}
			}
		}
		for qIdx, q := range cat.Questions {
			if q.ID == "" {
				continue
			}
			if owner, exists := questionIDs[q.ID]; exists {
				add(fmt.Sprintf("%s.questions[%d].id", catPath, qIdx), "question id %q already defined in category %s", q.ID, owner)
				continue
			}
			questionIDs[q.ID] = cat.ID
		}
		totalWeight += cat.Weight
		categories = append(categories, cat)
	}

	if len(raw.Categories) > 0 && (!finite(totalWeight) || math.Abs(totalWeight-weightTotal) > weightEpsilon) {
		add("categories", "category weights sum to %g, must sum to 100", totalWeight)
	}

	if len(errs) > 0 {
		return nil, errs
	}

	cat := &Catalog{
		SchemaVersion: version,
		ModuleID:      strings.TrimSpace(raw.ModuleID),
		Title:         strings.TrimSpace(raw.Title),
		Categories:    categories,
		Source:        source,
	}
	cat.index()
	return cat, nil
}

func validateCategory(raw rawCategory, fieldPath string, source string) (Category, ConfigurationError) {
	var errs ConfigurationError
	add := func(field, format string, args ...any) {
		errs = append(errs, Issue{File: source, Field: fieldPath + field, Message: fmt.Sprintf(format, args...)})
	}

	id := strings.TrimSpace(raw.ID)
	if id == "" {
		add(".id", "category id is required")
	}
	if strings.TrimSpace(raw.Name) == "" {
		add(".name", "category name is required")
	}
	weight := 0.0
	if raw.Weight == nil {
		add(".weight", "weight is required")
	} else {
		weight = *raw.Weight
		if !finite(weight) || weight < 0 || weight > weightTotal {
			add(".weight", "must be between 0 and 100")
		}
	}
	if !finite(raw.MaxImpactValue) || raw.MaxImpactValue < 0 {
		add(".max_impact_value", "must be a finite, non-negative number")
	}
	if len(raw.Questions) == 0 {
		add(".questions", "must contain at least one question")
	}

	var questions []Question
	scoreable := false
	for qIdx, rawQ := range raw.Questions {
		qPath := fmt.Sprintf("%s.questions[%d]", fieldPath, qIdx)
		q, qErrs := validateQuestion(rawQ, qPath, source)
		errs = append(errs, qErrs...)
		q.CategoryID = id
		if q.Kind.Scoreable() {
			scoreable = true
		}
		questions = append(questions, q)
	}
	if len(raw.Questions) > 0 && !scoreable {
		add(".questions", "must contain at least one scoreable question")
	}

	actions := make([]string, 0, len(raw.Actions))
	for i, action := range raw.Actions {
		action = strings.TrimSpace(action)
		if action == "" {
			add(fmt.Sprintf(".actions[%d]", i), "action entries cannot be empty")
			continue
		}
		actions = append(actions, action)
	}

	return Category{
		ID:             id,
		Name:           strings.TrimSpace(raw.Name),
		Weight:         weight,
		MaxImpactValue: raw.MaxImpactValue,
		Actions:        actions,
		Questions:      questions,
	}, errs
}

func validateQuestion(raw rawQuestion, fieldPath string, source string) (Question, ConfigurationError) {
	var errs ConfigurationError
	add := func(field, format string, args ...any) {
		errs = append(errs, Issue{File: source, Field: fieldPath + field, Message: fmt.Sprintf(format, args...)})
	}

	q := Question{
		ID:          strings.TrimSpace(raw.ID),
		Prompt:      strings.TrimSpace(raw.Prompt),
		Kind:        AnswerKind(strings.TrimSpace(raw.Kind)),
		Optional:    raw.Optional,
		Remediation: strings.TrimSpace(raw.Remediation),
	}
	if q.ID == "" {
		add(".id", "question id is required")
	}
	if q.Prompt == "" {
		add(".prompt", "prompt is required")
	}

	switch q.Kind {
	case KindSingleSelect, KindMultiSelect:
		if len(raw.Options) == 0 {
			add(".options", "select questions need at least one option")
		}
		if len(raw.Bands) > 0 {
			add(".bands", "bands are only valid for numeric questions")
		}
		optIDs := make(map[string]struct{})
		for i, rawOpt := range raw.Options {
			optPath := fmt.Sprintf(".options[%d]", i)
			opt := Option{
				ID:                strings.TrimSpace(rawOpt.ID),
				Label:             strings.TrimSpace(rawOpt.Label),
				MaterialityWeight: 1,
			}
			if opt.ID == "" {
				add(optPath+".id", "option id is required")
			} else if _, exists := optIDs[opt.ID]; exists {
				add(optPath+".id", "duplicate option id %q", opt.ID)
			} else {
				optIDs[opt.ID] = struct{}{}
			}
			if rawOpt.Score == nil {
				add(optPath+".score", "score is required")
			} else if !inScoreRange(*rawOpt.Score) {
				add(optPath+".score", "must be between %g and %g", minOptionScore, maxOptionScore)
			} else {
				opt.Score = *rawOpt.Score
			}
			if rawOpt.MaterialityWeight != nil {
				if !finite(*rawOpt.MaterialityWeight) || *rawOpt.MaterialityWeight < 0 {
					add(optPath+".materiality_weight", "must be a finite, non-negative number")
				} else {
					opt.MaterialityWeight = *rawOpt.MaterialityWeight
				}
			}
			q.Options = append(q.Options, opt)
		}
	case KindNumeric:
		if len(raw.Options) > 0 {
			add(".options", "options are only valid for select questions")
		}
		if len(raw.Bands) == 0 {
			add(".bands", "numeric questions need at least one band")
		}
		for i, rawBand := range raw.Bands {
			bandPath := fmt.Sprintf(".bands[%d]", i)
			band := Band{Min: rawBand.Min, Max: rawBand.Max}
			if rawBand.Score == nil {
				add(bandPath+".score", "score is required")
			} else if !inScoreRange(*rawBand.Score) {
				add(bandPath+".score", "must be between %g and %g", minOptionScore, maxOptionScore)
			} else {
				band.Score = *rawBand.Score
			}
			if !finiteBound(band.Min) {
				add(bandPath+".min", "must be a finite number")
			}
			if !finiteBound(band.Max) {
				add(bandPath+".max", "must be a finite number")
			}
			if band.Min != nil && band.Max != nil && *band.Min >= *band.Max {
				add(bandPath, "min must be below max")
			}
			q.Bands = append(q.Bands, band)
		}
		if raw.Range != nil {
			q.Range = Range{Min: raw.Range.Min, Max: raw.Range.Max}
			if !finiteBound(q.Range.Min) {
				add(".range.min", "must be a finite number")
			}
			if !finiteBound(q.Range.Max) {
				add(".range.max", "must be a finite number")
			}
			if q.Range.Min != nil && q.Range.Max != nil && *q.Range.Min > *q.Range.Max {
				add(".range", "min must not exceed max")
			}
		}
	case KindFreeText:
		if len(raw.Options) > 0 || len(raw.Bands) > 0 {
			add(".kind", "free-text questions take no options or bands")
		}
	default:
		add(".kind", "invalid kind %q (expected single-select, multi-select, numeric, or free-text)", raw.Kind)
	}

	severity := Severity(strings.TrimSpace(raw.Severity))
	if severity != "" && severity.Rank() > SeverityMinor.Rank() {
		add(".severity", "invalid severity %q (expected fatal, critical, major, or minor)", raw.Severity)
	}
	q.Severity = severity

	switch {
	case severity != "" && raw.Trigger == nil:
		add(".trigger", "severity %s needs a trigger", severity)
	case severity == "" && raw.Trigger != nil:
		add(".severity", "trigger needs a severity")
	case raw.Trigger != nil:
		trigger, tErrs := validateTrigger(*raw.Trigger, q, fieldPath+".trigger", source)
		errs = append(errs, tErrs...)
		q.Trigger = trigger
	}

	return q, errs
}

func validateTrigger(raw rawTrigger, q Question, fieldPath string, source string) (*Trigger, ConfigurationError) {
	var errs ConfigurationError
	add := func(field, format string, args ...any) {
		errs = append(errs, Issue{File: source, Field: fieldPath + field, Message: fmt.Sprintf(format, args...)})
	}

	t := &Trigger{
		When: TriggerRule(strings.TrimSpace(raw.When)),
		Expr: strings.TrimSpace(raw.Expr),
	}
	if raw.Threshold != nil {
		t.Threshold = *raw.Threshold
		if !finite(t.Threshold) {
			add(".threshold", "must be a finite number")
		}
	}
	needThreshold := func() {
		if raw.Threshold == nil {
			add(".threshold", "threshold is required for %s", t.When)
		}
	}

	switch t.When {
	case TriggerYes, TriggerNo:
		if q.Kind != KindSingleSelect {
			add(".when", "%s applies only to single-select questions", t.When)
		} else if _, ok := q.Option(string(t.When)); !ok {
			add(".when", "question has no %q option", t.When)
		}
	case TriggerOptions:
		if q.Kind != KindSingleSelect && q.Kind != KindMultiSelect {
			add(".when", "options applies only to select questions")
		}
		if len(raw.Options) == 0 {
			add(".options", "at least one option id is required")
		}
		for i, id := range raw.Options {
			id = strings.TrimSpace(id)
			if _, ok := q.Option(id); !ok {
				add(fmt.Sprintf(".options[%d]", i), "unknown option id %q", id)
				continue
			}
			t.Options = append(t.Options, id)
		}
	case TriggerSelectedBelow:
		if q.Kind != KindMultiSelect {
			add(".when", "selected_below applies only to multi-select questions")
		}
		needThreshold()
	case TriggerBelow, TriggerAbove:
		if q.Kind != KindNumeric {
			add(".when", "%s applies only to numeric questions", t.When)
		}
		needThreshold()
	case TriggerExpr:
		if t.Expr == "" {
			add(".expr", "expr is required")
			break
		}
		prg, err := compileExpr(t.Expr)
		if err != nil {
			add(".expr", "%v", err)
			break
		}
		t.program = prg
	default:
		add(".when", "invalid trigger %q", raw.When)
	}
	return t, errs
}

func checkSchemaVersion(value string) error {
	version, err := semver.NewVersion(value)
	if err != nil {
		return fmt.Errorf("invalid schema_version %q: %w", value, err)
	}
	constraint, err := semver.NewConstraint(SupportedSchema)
	if err != nil {
		return fmt.Errorf("invalid supported schema constraint: %w", err)
	}
	if !constraint.Check(version) {
		return fmt.Errorf("schema_version %s is not supported (want %s)", version, SupportedSchema)
	}
	return nil
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func finiteBound(v *float64) bool {
	return v == nil || finite(*v)
}

func inScoreRange(v float64) bool {
	return finite(v) && v >= minOptionScore && v <= maxOptionScore
}
