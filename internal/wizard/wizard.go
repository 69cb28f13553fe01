package wizard

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"dealready/internal/assessment"
	"dealready/internal/catalog"
	"dealready/internal/logging"
	"dealready/internal/planner"
	"dealready/internal/scoring"
	"dealready/internal/store"
)

// Saver receives the run after every successful mutation.
type Saver interface {
	Save(ctx context.Context, key string, run *assessment.Run) error
}

// Outcome is the scored result and action plan of a completed run.
type Outcome struct {
	Score scoring.Result     `json:"score"`
	Plan  planner.ActionPlan `json:"plan"`
}

// PromptOption is an option as shown to the user.
type PromptOption struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}

// Prompt is the presentation payload for the current question.
type Prompt struct {
	QuestionID    string             `json:"question_id"`
	CategoryID    string             `json:"category_id"`
	Prompt        string             `json:"prompt"`
	Kind          catalog.AnswerKind `json:"kind"`
	Optional      bool               `json:"optional"`
	Options       []PromptOption     `json:"options"`
	CurrentAnswer assessment.Value   `json:"-"`
	Index         int                `json:"index"`
	Total         int                `json:"total"`
}

type Option func(*Controller)

// WithSaver persists the run under key after each mutation.
func WithSaver(key string, saver Saver) Option {
	return func(c *Controller) {
		c.key = key
		c.saver = saver
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		c.logger = logger
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Controller) {
		c.now = now
	}
}

// Controller sequences a run through a catalog's questions. States are
// answering question i (cursor < len) and complete (cursor == len).
// It is not safe for concurrent use; one session owns a run.
type Controller struct {
	cat       *catalog.Catalog
	run       *assessment.Run
	questions []catalog.Question

	key    string
	saver  Saver
	logger *slog.Logger
	now    func() time.Time

	outcome *Outcome
}

// New resumes run against cat. A nil run starts a fresh one.
func New(cat *catalog.Catalog, run *assessment.Run, opts ...Option) (*Controller, error) {
	if cat == nil || cat.Len() == 0 {
		return nil, fmt.Errorf("catalog with at least one question is required")
	}
	if run == nil {
		run = assessment.NewRun(cat.ModuleID)
	}
	if run.ModuleID != cat.ModuleID {
		return nil, fmt.Errorf("run belongs to module %s, not %s", run.ModuleID, cat.ModuleID)
	}

	c := &Controller{
		cat:       cat,
		run:       run,
		questions: cat.Questions(),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = logging.OrDiscard(c.logger).With("component", "wizard", "module", cat.ModuleID)
	if c.key == "" {
		c.key = store.Key(cat.ModuleID)
	}

	if run.Cursor < 0 {
		run.Cursor = 0
	}
	if run.Cursor > len(c.questions) {
		run.Cursor = len(c.questions)
	}
	return c, nil
}

// Run returns a copy of the current run.
func (c *Controller) Run() *assessment.Run {
	return c.run.Clone()
}

func (c *Controller) Catalog() *catalog.Catalog {
	return c.cat
}

// Complete reports whether the controller is in the terminal state.
func (c *Controller) Complete() bool {
	return c.run.Cursor >= len(c.questions)
}

// Index is the current question index; it equals the question count when complete.
func (c *Controller) Index() int {
	return c.run.Cursor
}

// Prompt returns the current question, or false when complete.
func (c *Controller) Prompt() (Prompt, bool) {
	if c.Complete() {
		return Prompt{}, false
	}
	q := c.questions[c.run.Cursor]
	p := Prompt{
		QuestionID: q.ID,
		CategoryID: q.CategoryID,
		Prompt:     q.Prompt,
		Kind:       q.Kind,
		Optional:   q.Optional,
		Options:    make([]PromptOption, 0, len(q.Options)),
		Index:      c.run.Cursor,
		Total:      len(c.questions),
	}
	for _, opt := range q.Options {
		p.Options = append(p.Options, PromptOption{ID: opt.ID, Label: opt.Label})
	}
	if v, ok := c.run.Get(q.ID); ok {
		p.CurrentAnswer = v
	}
	return p, true
}

// Answer records v for questionID without moving the cursor. Any question may
// be answered, including ones behind or ahead of the cursor.
func (c *Controller) Answer(ctx context.Context, questionID string, v assessment.Value) error {
	rec, ok := c.cat.Question(questionID)
	if !ok {
		return &assessment.ValidationError{QuestionID: questionID, Reason: "unknown question"}
	}
	if err := assessment.ValidateValue(rec.Question, v); err != nil {
		return err
	}
	c.run.Set(questionID, v)
	c.run.UpdatedAt = c.now().UTC()
	c.outcome = nil
	c.logger.Debug("answered", "question", questionID, "kind", v.Kind())
	return c.persist(ctx)
}

// Advance moves to the next question. It requires an answer for the current
// question; past the last question the run completes and is scored.
// In the complete state it does nothing.
func (c *Controller) Advance(ctx context.Context) error {
	if c.Complete() {
		return nil
	}
	i := c.run.Cursor
	current := c.questions[i]
	if !c.run.Has(current.ID) {
		return &NavigationError{Op: "advance", Index: i, Reason: fmt.Sprintf("question %s has no answer", current.ID)}
	}

	c.run.Cursor = i + 1
	c.run.UpdatedAt = c.now().UTC()
	if c.Complete() {
		c.run.Complete(c.now())
		c.ScoreAndSynthesize()
		c.logger.Debug("completed", "questions", len(c.questions))
	} else {
		c.logger.Debug("advanced", "from", i, "to", c.run.Cursor)
	}
	return c.persist(ctx)
}

// Retreat moves back one question, keeping every recorded answer. From the
// complete state it returns to the last question.
func (c *Controller) Retreat(ctx context.Context) error {
	i := c.run.Cursor
	if !c.Complete() && i == 0 {
		return &NavigationError{Op: "retreat", Index: i, Reason: "already at the first question"}
	}
	c.run.Cursor = i - 1
	c.run.UpdatedAt = c.now().UTC()
	c.logger.Debug("retreated", "from", i, "to", c.run.Cursor)
	return c.persist(ctx)
}

// ScoreAndSynthesize scores the run and builds its plan. The outcome is cached
// until the next answer, so repeated calls return identical values.
func (c *Controller) ScoreAndSynthesize() Outcome {
	if c.outcome != nil {
		return *c.outcome
	}
	result := scoring.ScoreRun(c.run, c.cat)
	outcome := Outcome{
		Score: result,
		Plan:  planner.Synthesize(result, c.cat),
	}
	c.outcome = &outcome
	return outcome
}

func (c *Controller) persist(ctx context.Context) error {
	if c.saver == nil {
		return nil
	}
	err := c.saver.Save(ctx, c.key, c.run.Clone())
	if err == nil {
		return nil
	}
	c.logger.Warn("run not saved", "key", c.key, "err", err)
	var se *store.StorageError
	if errors.As(err, &se) {
		return se
	}
	return &store.StorageError{Op: "save", Key: c.key, Err: err}
}
