package assessment

import (
	"fmt"
	"math"
	"strings"

	"dealready/internal/catalog"
)

// ValidationError rejects an answer that does not fit its question.
type ValidationError struct {
	QuestionID string
	Reason     string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid answer for %s: %s", e.QuestionID, e.Reason)
}

func invalid(q catalog.Question, format string, args ...any) error {
	return &ValidationError{QuestionID: q.ID, Reason: fmt.Sprintf(format, args...)}
}

// ValidateValue checks v against the answer kind and options of q.
func ValidateValue(q catalog.Question, v Value) error {
	if v == nil {
		return invalid(q, "value is required")
	}
	if v.Kind() != q.Kind {
		return invalid(q, "%s value given for %s question", v.Kind(), q.Kind)
	}
	switch val := v.(type) {
	case SingleSelect:
		if strings.TrimSpace(val.Option) == "" {
			return invalid(q, "no option selected")
		}
		if _, ok := q.Option(val.Option); !ok {
			return invalid(q, "unknown option %q", val.Option)
		}
	case MultiSelect:
		seen := make(map[string]struct{}, len(val.Options))
		for _, id := range val.Options {
			if _, ok := q.Option(id); !ok {
				return invalid(q, "unknown option %q", id)
			}
			if _, dup := seen[id]; dup {
				return invalid(q, "option %q selected twice", id)
			}
			seen[id] = struct{}{}
		}
	case Numeric:
		if math.IsNaN(val.Number) || math.IsInf(val.Number, 0) {
			return invalid(q, "number must be finite")
		}
		if q.Range.Min != nil && val.Number < *q.Range.Min {
			return invalid(q, "%g is below minimum %g", val.Number, *q.Range.Min)
		}
		if q.Range.Max != nil && val.Number > *q.Range.Max {
			return invalid(q, "%g is above maximum %g", val.Number, *q.Range.Max)
		}
	case FreeText:
	}
	return nil
}
