package assessment

import (
	"time"

	"github.com/google/uuid"
)

// Run is the persisted progress of one module assessment.
type Run struct {
	ID          string     `json:"id"`
	ModuleID    string     `json:"module_id"`
	Answers     []Answer   `json:"answers"`
	Cursor      int        `json:"cursor"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// NewRun starts an empty run for moduleID.
func NewRun(moduleID string) *Run {
	return &Run{
		ID:       uuid.NewString(),
		ModuleID: moduleID,
		Answers:  []Answer{},
	}
}

// Set records v for questionID, overwriting any earlier answer in place.
// The run keeps its own copy of multi-select ids.
func (r *Run) Set(questionID string, v Value) {
	v = ownValue(v)
	for i := range r.Answers {
		if r.Answers[i].QuestionID == questionID {
			r.Answers[i].Value = v
			return
		}
	}
	r.Answers = append(r.Answers, Answer{QuestionID: questionID, Value: v})
}

// Get returns the answer for questionID.
func (r *Run) Get(questionID string) (Value, bool) {
	if r == nil {
		return nil, false
	}
	for _, a := range r.Answers {
		if a.QuestionID == questionID {
			return a.Value, true
		}
	}
	return nil, false
}

func (r *Run) Has(questionID string) bool {
	_, ok := r.Get(questionID)
	return ok
}

// Values returns the answers keyed by question id.
func (r *Run) Values() map[string]Value {
	out := make(map[string]Value)
	if r == nil {
		return out
	}
	for _, a := range r.Answers {
		out[a.QuestionID] = a.Value
	}
	return out
}

// Clone returns a deep copy of the run.
func (r *Run) Clone() *Run {
	if r == nil {
		return nil
	}
	out := *r
	out.Answers = make([]Answer, len(r.Answers))
	for i, a := range r.Answers {
		a.Value = ownValue(a.Value)
		out.Answers[i] = a
	}
	if r.CompletedAt != nil {
		ts := *r.CompletedAt
		out.CompletedAt = &ts
	}
	return &out
}

// Complete stamps the completion time. Later calls keep the first stamp.
func (r *Run) Complete(now time.Time) {
	if r.CompletedAt != nil {
		return
	}
	ts := now.UTC()
	r.CompletedAt = &ts
}

func (r *Run) IsComplete() bool {
	return r != nil && r.CompletedAt != nil
}

func ownValue(v Value) Value {
	if ms, ok := v.(MultiSelect); ok {
		return MultiSelect{Options: append([]string(nil), ms.Options...)}
	}
	return v
}
