package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/fatih/color"

	"dealready/internal/assessment"
	"dealready/internal/scoring"
	"dealready/internal/wizard"
)

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func verdictColor(v scoring.Verdict) *color.Color {
	switch v {
	case scoring.VerdictReady:
		return color.New(color.FgGreen, color.Bold)
	case scoring.VerdictNeedsWork:
		return color.New(color.FgYellow)
	case scoring.VerdictAtRisk:
		return color.New(color.FgYellow, color.Bold)
	case scoring.VerdictUnlikely:
		return color.New(color.FgRed)
	case scoring.VerdictUnfundable:
		return color.New(color.FgRed, color.Bold)
	default:
		return color.New(color.Reset)
	}
}

func verdictString(v scoring.Verdict) string {
	if v == "" {
		return "-"
	}
	return verdictColor(v).Sprint(string(v))
}

func money(v float64) string {
	return "$" + humanize.Comma(int64(math.Round(v)))
}

func formatValue(v assessment.Value) string {
	switch val := v.(type) {
	case assessment.SingleSelect:
		return val.Option
	case assessment.MultiSelect:
		return strings.Join(val.Options, ",")
	case assessment.Numeric:
		return humanize.Ftoa(val.Number)
	case assessment.FreeText:
		return fmt.Sprintf("%q", val.Text)
	default:
		return ""
	}
}

// promptView is the JSON shape of a prompt, with the current answer in wire form.
type promptView struct {
	ModuleID      string             `json:"module_id"`
	Complete      bool               `json:"complete"`
	Prompt        *wizard.Prompt     `json:"prompt,omitempty"`
	CurrentAnswer *assessment.Answer `json:"current_answer,omitempty"`
}

func newPromptView(c *wizard.Controller) promptView {
	view := promptView{ModuleID: c.Catalog().ModuleID, Complete: c.Complete()}
	if p, ok := c.Prompt(); ok {
		view.Prompt = &p
		if p.CurrentAnswer != nil {
			view.CurrentAnswer = &assessment.Answer{QuestionID: p.QuestionID, Value: p.CurrentAnswer}
		}
	}
	return view
}

func printPrompt(w io.Writer, c *wizard.Controller) {
	moduleID := c.Catalog().ModuleID
	p, ok := c.Prompt()
	if !ok {
		fmt.Fprintf(w, "%s: all %d questions answered. %s\n", moduleID, c.Catalog().Len(), color.GreenString("Complete."))
		fmt.Fprintf(w, "Next: %s score %s\n", appName, moduleID)
		return
	}
	header := fmt.Sprintf("%s  question %d/%d  [%s]", moduleID, p.Index+1, p.Total, p.CategoryID)
	fmt.Fprintln(w, color.New(color.Bold).Sprint(header))
	fmt.Fprintf(w, "%s (%s)\n", p.Prompt, p.QuestionID)
	kind := string(p.Kind)
	if p.Optional {
		kind += ", optional"
	}
	fmt.Fprintf(w, "  %s\n", color.CyanString(kind))

	selected := map[string]bool{}
	switch cur := p.CurrentAnswer.(type) {
	case assessment.SingleSelect:
		selected[cur.Option] = true
	case assessment.MultiSelect:
		for _, id := range cur.Options {
			selected[id] = true
		}
	}
	for _, opt := range p.Options {
		marker := " "
		if selected[opt.ID] {
			marker = color.GreenString("*")
		}
		fmt.Fprintf(w, "  %s %-20s %s\n", marker, opt.ID, opt.Label)
	}
	if p.CurrentAnswer != nil && len(p.Options) == 0 {
		fmt.Fprintf(w, "  current: %s\n", formatValue(p.CurrentAnswer))
	}
}
