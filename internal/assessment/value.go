package assessment

import (
	"encoding/json"
	"fmt"

	"dealready/internal/catalog"
)

// Value is the typed payload of an answer. The set of implementations is closed.
type Value interface {
	Kind() catalog.AnswerKind
	Input() catalog.Input
	isValue()
}

// SingleSelect is the chosen option of a single-select question.
type SingleSelect struct {
	Option string
}

// MultiSelect is the chosen options of a multi-select question, in selection order.
type MultiSelect struct {
	Options []string
}

// Numeric is the number entered for a numeric question.
type Numeric struct {
	Number float64
}

// FreeText is the text entered for a free-text question.
type FreeText struct {
	Text string
}

func (SingleSelect) Kind() catalog.AnswerKind { return catalog.KindSingleSelect }
func (MultiSelect) Kind() catalog.AnswerKind  { return catalog.KindMultiSelect }
func (Numeric) Kind() catalog.AnswerKind      { return catalog.KindNumeric }
func (FreeText) Kind() catalog.AnswerKind     { return catalog.KindFreeText }

func (v SingleSelect) Input() catalog.Input {
	return catalog.Input{Answered: true, Option: v.Option}
}

func (v MultiSelect) Input() catalog.Input {
	return catalog.Input{Answered: true, Options: append([]string(nil), v.Options...)}
}

func (v Numeric) Input() catalog.Input {
	return catalog.Input{Answered: true, Number: v.Number}
}

func (v FreeText) Input() catalog.Input {
	return catalog.Input{Answered: true, Text: v.Text}
}

func (SingleSelect) isValue() {}
func (MultiSelect) isValue()  {}
func (Numeric) isValue()      {}
func (FreeText) isValue()     {}

// Answer pairs a question id with its value.
type Answer struct {
	QuestionID string
	Value      Value
}

type answerJSON struct {
	QuestionID string             `json:"question_id" yaml:"question_id"`
	Kind       catalog.AnswerKind `json:"kind" yaml:"kind"`
	Option     string             `json:"option,omitempty" yaml:"option,omitempty"`
	Options    []string           `json:"options,omitempty" yaml:"options,omitempty"`
	Number     *float64           `json:"number,omitempty" yaml:"number,omitempty"`
	Text       string             `json:"text,omitempty" yaml:"text,omitempty"`
}

func (a Answer) wire() answerJSON {
	out := answerJSON{QuestionID: a.QuestionID}
	switch v := a.Value.(type) {
	case SingleSelect:
		out.Kind = v.Kind()
		out.Option = v.Option
	case MultiSelect:
		out.Kind = v.Kind()
		out.Options = v.Options
		if out.Options == nil {
			out.Options = []string{}
		}
	case Numeric:
		out.Kind = v.Kind()
		n := v.Number
		out.Number = &n
	case FreeText:
		out.Kind = v.Kind()
		out.Text = v.Text
	}
	return out
}

// MarshalJSON encodes the answer with an explicit kind tag.
func (a Answer) MarshalJSON() ([]byte, error) {
	if a.Value == nil {
		return nil, fmt.Errorf("answer %s has no value", a.QuestionID)
	}
	return json.Marshal(a.wire())
}

// UnmarshalJSON decodes an answer written by MarshalJSON.
func (a *Answer) UnmarshalJSON(data []byte) error {
	var raw answerJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	v, err := decodeValue(raw)
	if err != nil {
		return err
	}
	a.QuestionID = raw.QuestionID
	a.Value = v
	return nil
}

func decodeValue(raw answerJSON) (Value, error) {
	switch raw.Kind {
	case catalog.KindSingleSelect:
		return SingleSelect{Option: raw.Option}, nil
	case catalog.KindMultiSelect:
		return MultiSelect{Options: append([]string(nil), raw.Options...)}, nil
	case catalog.KindNumeric:
		if raw.Number == nil {
			return nil, fmt.Errorf("answer %s: numeric value missing", raw.QuestionID)
		}
		return Numeric{Number: *raw.Number}, nil
	case catalog.KindFreeText:
		return FreeText{Text: raw.Text}, nil
	default:
		return nil, fmt.Errorf("answer %s: unknown kind %q", raw.QuestionID, raw.Kind)
	}
}

// Unanswered is the trigger input for a question without an answer.
func Unanswered() catalog.Input {
	return catalog.Input{}
}
