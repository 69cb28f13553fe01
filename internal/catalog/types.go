package catalog

import (
	"sort"

	"github.com/google/cel-go/cel"
)

// AnswerKind is the shape of answer a question accepts.
type AnswerKind string

const (
	KindSingleSelect AnswerKind = "single-select"
	KindMultiSelect  AnswerKind = "multi-select"
	KindNumeric      AnswerKind = "numeric"
	KindFreeText     AnswerKind = "free-text"
)

// Scoreable reports whether answers of this kind contribute to a category score.
func (k AnswerKind) Scoreable() bool {
	return k != KindFreeText
}

// Severity marks how serious a triggered finding is.
type Severity string

const (
	SeverityFatal    Severity = "fatal"
	SeverityCritical Severity = "critical"
	SeverityMajor    Severity = "major"
	SeverityMinor    Severity = "minor"
)

// Rank orders severities with fatal first.
func (s Severity) Rank() int {
	switch s {
	case SeverityFatal:
		return 0
	case SeverityCritical:
		return 1
	case SeverityMajor:
		return 2
	case SeverityMinor:
		return 3
	default:
		return 4
	}
}

// TriggerRule names the predicate that decides whether an answer triggers a finding.
type TriggerRule string

const (
	TriggerYes           TriggerRule = "yes"
	TriggerNo            TriggerRule = "no"
	TriggerOptions       TriggerRule = "options"
	TriggerSelectedBelow TriggerRule = "selected_below"
	TriggerBelow         TriggerRule = "below"
	TriggerAbove         TriggerRule = "above"
	TriggerExpr          TriggerRule = "expr"
)

// Option is one selectable answer of a select question.
type Option struct {
	ID                string
	Label             string
	Score             float64
	MaterialityWeight float64
}

// Band maps a numeric range to a score. Min is inclusive, Max exclusive; nil is unbounded.
type Band struct {
	Min   *float64
	Max   *float64
	Score float64
}

// Contains reports whether v falls inside the band.
func (b Band) Contains(v float64) bool {
	if b.Min != nil && v < *b.Min {
		return false
	}
	if b.Max != nil && v >= *b.Max {
		return false
	}
	return true
}

// Range bounds the values a numeric question accepts.
type Range struct {
	Min *float64
	Max *float64
}

// Trigger decides whether an answer raises the question's severity.
type Trigger struct {
	When      TriggerRule
	Options   []string
	Threshold float64
	Expr      string

	program cel.Program
}

// Question is a single catalog question. Immutable after load.
type Question struct {
	ID          string
	Prompt      string
	Kind        AnswerKind
	Options     []Option
	Bands       []Band
	Range       Range
	Optional    bool
	Severity    Severity
	Trigger     *Trigger
	Remediation string
	CategoryID  string
}

// Option returns the option with the given id.
func (q Question) Option(id string) (Option, bool) {
	for _, opt := range q.Options {
		if opt.ID == id {
			return opt, true
		}
	}
	return Option{}, false
}

// HasSeverity reports whether the question can raise a finding.
func (q Question) HasSeverity() bool {
	return q.Severity != "" && q.Trigger != nil
}

// MaxContribution is the most a single answer to q can contribute to its category.
// Multi-select questions use the sum of every option score as their maximum.
func (q Question) MaxContribution() float64 {
	switch q.Kind {
	case KindSingleSelect:
		best := 0.0
		for _, opt := range q.Options {
			if opt.Score > best {
				best = opt.Score
			}
		}
		return best
	case KindMultiSelect:
		total := 0.0
		for _, opt := range q.Options {
			total += opt.Score
		}
		return total
	case KindNumeric:
		best := 0.0
		for _, band := range q.Bands {
			if band.Score > best {
				best = band.Score
			}
		}
		return best
	default:
		return 0
	}
}

// Category groups weighted questions.
type Category struct {
	ID             string
	Name           string
	Weight         float64
	MaxImpactValue float64
	Actions        []string
	Questions      []Question
}

// Catalog is the validated, read-only definition of one assessment module.
type Catalog struct {
	SchemaVersion string
	ModuleID      string
	Title         string
	Categories    []Category
	Source        string

	questions  map[string]QuestionRecord
	categories map[string]int
	order      []string
}

// QuestionRecord maps a question id to its definition and position.
type QuestionRecord struct {
	Question Question
	Category Category
	Index    int
}

// Question returns the question with the given id.
func (c *Catalog) Question(id string) (QuestionRecord, bool) {
	if c == nil {
		return QuestionRecord{}, false
	}
	rec, ok := c.questions[id]
	return rec, ok
}

// Category returns the category with the given id.
func (c *Catalog) Category(id string) (Category, bool) {
	if c == nil {
		return Category{}, false
	}
	idx, ok := c.categories[id]
	if !ok {
		return Category{}, false
	}
	return c.Categories[idx], true
}

// Questions returns every question in presentation order: categories in
// declaration order, then questions in declaration order.
func (c *Catalog) Questions() []Question {
	if c == nil {
		return nil
	}
	out := make([]Question, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.questions[id].Question)
	}
	return out
}

// Len returns the number of questions in the catalog.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.order)
}

// CategoryIDs returns category ids in declaration order.
func (c *Catalog) CategoryIDs() []string {
	if c == nil {
		return nil
	}
	ids := make([]string, 0, len(c.Categories))
	for _, cat := range c.Categories {
		ids = append(ids, cat.ID)
	}
	return ids
}

func (c *Catalog) index() {
	c.questions = make(map[string]QuestionRecord)
	c.categories = make(map[string]int, len(c.Categories))
	c.order = nil
	for catIdx, cat := range c.Categories {
		c.categories[cat.ID] = catIdx
		for _, q := range cat.Questions {
			c.questions[q.ID] = QuestionRecord{
				Question: q,
				Category: cat,
				Index:    len(c.order),
			}
			c.order = append(c.order, q.ID)
		}
	}
}

// Registry holds validated catalogs keyed by module id.
type Registry struct {
	catalogs map[string]*Catalog
}

// NewRegistry returns a registry holding the given catalogs.
func NewRegistry(catalogs ...*Catalog) *Registry {
	r := &Registry{catalogs: make(map[string]*Catalog, len(catalogs))}
	for _, cat := range catalogs {
		if cat == nil {
			continue
		}
		r.catalogs[cat.ModuleID] = cat
	}
	return r
}

// ModuleIDs returns every registered module id, sorted.
func (r *Registry) ModuleIDs() []string {
	if r == nil {
		return nil
	}
	ids := make([]string, 0, len(r.catalogs))
	for id := range r.catalogs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
