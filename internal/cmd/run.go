package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"dealready/internal/assessment"
	"dealready/internal/audit"
	"dealready/internal/catalog"
	"dealready/internal/store"
	"dealready/internal/wizard"
)

func NewRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Answer a module's questions",
		Long: `Step through a module one question at a time. Answers are saved after
every change; going back never discards them.`,
	}
	cmd.AddCommand(newRunShowCommand())
	cmd.AddCommand(newRunAnswerCommand())
	cmd.AddCommand(newRunNextCommand())
	cmd.AddCommand(newRunBackCommand())
	cmd.AddCommand(newRunHistoryCommand())
	return cmd
}

func newRunShowCommand() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "show <module>",
		Short: "Show the current question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, s.close(cmd.Context(), cmd)) }()

			c, err := s.controller(cmd, args[0])
			if err != nil {
				return err
			}
			if asJSON {
				return printJSON(cmd.OutOrStdout(), newPromptView(c))
			}
			printPrompt(cmd.OutOrStdout(), c)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "Output as JSON")
	return cmd
}

func newRunAnswerCommand() *cobra.Command {
	var advance bool
	cmd := &cobra.Command{
		Use:   "answer <module> <question> <value>...",
		Short: "Record an answer",
		Long: `Record an answer for any question of the module. The value is read
according to the question kind:
  single-select  one option id
  multi-select   option ids, separated by spaces or commas
  numeric        a number
  free-text      the remaining arguments joined by spaces`,
		Args: cobra.MinimumNArgs(3),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, s.close(cmd.Context(), cmd)) }()

			moduleID, questionID := args[0], args[1]
			c, err := s.controller(cmd, moduleID)
			if err != nil {
				return err
			}
			rec, ok := c.Catalog().Question(questionID)
			if !ok {
				return &assessment.ValidationError{QuestionID: questionID, Reason: "unknown question"}
			}
			value, err := parseValue(rec.Question, args[2:])
			if err != nil {
				return err
			}

			before := c.Run()
			if err := s.check(cmd, c.Answer(cmd.Context(), questionID, value)); err != nil {
				return err
			}
			diff, err := assessment.Diff(before, c.Run())
			if err != nil {
				return err
			}
			s.logAudit(cmd, audit.EventRunAnswer, map[string]any{
				"module_id":   moduleID,
				"question_id": questionID,
				"diff":        diff,
			})

			if advance {
				if err := s.advance(cmd, c); err != nil {
					return err
				}
			}
			printPrompt(cmd.OutOrStdout(), c)
			return nil
		},
	}
	cmd.Flags().BoolVar(&advance, "next", false, "Move to the next question after answering")
	return cmd
}

func newRunNextCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "next <module>",
		Short: "Move to the next question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, s.close(cmd.Context(), cmd)) }()

			c, err := s.controller(cmd, args[0])
			if err != nil {
				return err
			}
			if err := s.advance(cmd, c); err != nil {
				return err
			}
			printPrompt(cmd.OutOrStdout(), c)
			return nil
		},
	}
}

func newRunBackCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "back <module>",
		Short: "Return to the previous question",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, s.close(cmd.Context(), cmd)) }()

			c, err := s.controller(cmd, args[0])
			if err != nil {
				return err
			}
			from := c.Index()
			if err := s.check(cmd, c.Retreat(cmd.Context())); err != nil {
				return err
			}
			s.logAudit(cmd, audit.EventRunRetreat, map[string]any{
				"module_id": args[0],
				"from":      from,
				"to":        c.Index(),
			})
			printPrompt(cmd.OutOrStdout(), c)
			return nil
		},
	}
}

func newRunHistoryCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history <module>",
		Short: "Show recent audit events for a module",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			s, err := openSession(cmd)
			if err != nil {
				return err
			}
			defer func() { err = errors.Join(err, s.close(cmd.Context(), cmd)) }()

			events, err := s.audit.Recent(args[0], limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(events) == 0 {
				fmt.Fprintf(out, "No events for %s\n", args[0])
				return nil
			}
			for _, ev := range events {
				fmt.Fprintf(out, "%s  %-14s %s\n", ev.Timestamp, ev.Type, ev.Actor)
				var payload map[string]any
				if err := json.Unmarshal([]byte(ev.PayloadJSON), &payload); err != nil {
					continue
				}
				if diff, ok := payload["diff"].(string); ok && diff != "" {
					for _, line := range strings.Split(strings.TrimRight(diff, "\n"), "\n") {
						fmt.Fprintf(out, "    %s\n", line)
					}
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of events")
	return cmd
}

// controller resumes the stored run of moduleID, or starts a new one.
func (s *session) controller(cmd *cobra.Command, moduleID string) (*wizard.Controller, error) {
	cat, err := s.catalogs.Load(moduleID)
	if err != nil {
		return nil, err
	}
	key := store.Key(moduleID)
	run, err := s.runs.Load(cmd.Context(), key)
	if err != nil {
		return nil, err
	}
	return wizard.New(cat, run, wizard.WithSaver(key, s.runs), wizard.WithLogger(s.logger))
}

func (s *session) advance(cmd *cobra.Command, c *wizard.Controller) error {
	wasComplete := c.Complete()
	from := c.Index()
	if err := s.check(cmd, c.Advance(cmd.Context())); err != nil {
		return err
	}
	moduleID := c.Catalog().ModuleID
	if from != c.Index() {
		s.logAudit(cmd, audit.EventRunAdvance, map[string]any{
			"module_id": moduleID,
			"from":      from,
			"to":        c.Index(),
		})
	}
	if !wasComplete && c.Complete() {
		outcome := c.ScoreAndSynthesize()
		s.logAudit(cmd, audit.EventRunCompleted, map[string]any{
			"module_id":   moduleID,
			"composite":   outcome.Score.CompositeScore,
			"verdict":     outcome.Score.Verdict,
			"fingerprint": outcome.Score.Fingerprint,
		})
	}
	return nil
}

// check downgrades a storage failure to a warning; the edit is kept in memory
// and the write is retried when the session closes.
func (s *session) check(cmd *cobra.Command, err error) error {
	var se *store.StorageError
	if errors.As(err, &se) {
		fmt.Fprintf(cmd.ErrOrStderr(), "%s %v (will retry)\n", color.YellowString("not saved:"), se)
		return nil
	}
	return err
}

func parseValue(q catalog.Question, args []string) (assessment.Value, error) {
	invalid := func(format string, a ...any) error {
		return &assessment.ValidationError{QuestionID: q.ID, Reason: fmt.Sprintf(format, a...)}
	}
	switch q.Kind {
	case catalog.KindSingleSelect:
		if len(args) != 1 {
			return nil, invalid("single-select takes exactly one option id")
		}
		return assessment.SingleSelect{Option: args[0]}, nil
	case catalog.KindMultiSelect:
		var ids []string
		for _, arg := range args {
			for _, id := range strings.Split(arg, ",") {
				if id = strings.TrimSpace(id); id != "" {
					ids = append(ids, id)
				}
			}
		}
		return assessment.MultiSelect{Options: ids}, nil
	case catalog.KindNumeric:
		if len(args) != 1 {
			return nil, invalid("numeric takes exactly one number")
		}
		n, err := strconv.ParseFloat(strings.ReplaceAll(args[0], ",", ""), 64)
		if err != nil {
			return nil, invalid("%q is not a number", args[0])
		}
		return assessment.Numeric{Number: n}, nil
	case catalog.KindFreeText:
		return assessment.FreeText{Text: strings.Join(args, " ")}, nil
	default:
		return nil, invalid("unsupported kind %s", q.Kind)
	}
}
