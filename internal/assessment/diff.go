package assessment

import (
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"
)

// RenderAnswers renders the run's answers as YAML, one entry per answer.
func RenderAnswers(r *Run) (string, error) {
	entries := []answerJSON{}
	if r != nil {
		for _, a := range r.Answers {
			if a.Value == nil {
				continue
			}
			entries = append(entries, a.wire())
		}
	}
	out, err := yaml.Marshal(entries)
	if err != nil {
		return "", fmt.Errorf("render answers: %w", err)
	}
	return string(out), nil
}

// Diff returns a unified diff of the answers in before and after.
// Either run may be nil. An empty string means no answer changed.
func Diff(before, after *Run) (string, error) {
	oldText, err := RenderAnswers(before)
	if err != nil {
		return "", err
	}
	newText, err := RenderAnswers(after)
	if err != nil {
		return "", err
	}
	name := "answers"
	if after != nil && after.ModuleID != "" {
		name = after.ModuleID
	}
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(oldText),
		B:        difflib.SplitLines(newText),
		FromFile: "a/" + name,
		ToFile:   "b/" + name,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("diff %s: %w", name, err)
	}
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	return text, nil
}
