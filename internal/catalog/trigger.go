package catalog

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"
)

// Input is the kind-neutral view of an answer that trigger predicates read.
type Input struct {
	Answered bool
	Option   string
	Options  []string
	Number   float64
	Text     string
}

// Count returns the number of selected options.
func (in Input) Count() int {
	if in.Option != "" {
		return 1
	}
	return len(in.Options)
}

func (in Input) selected(id string) bool {
	if in.Option == id {
		return true
	}
	for _, opt := range in.Options {
		if opt == id {
			return true
		}
	}
	return false
}

// Evaluate reports whether the input triggers the rule. Unanswered input never triggers.
func (t *Trigger) Evaluate(in Input) (bool, error) {
	if t == nil || !in.Answered {
		return false, nil
	}
	switch t.When {
	case TriggerYes:
		return in.Option == "yes", nil
	case TriggerNo:
		return in.Option == "no", nil
	case TriggerOptions:
		for _, id := range t.Options {
			if in.selected(id) {
				return true, nil
			}
		}
		return false, nil
	case TriggerSelectedBelow:
		return float64(in.Count()) < t.Threshold, nil
	case TriggerBelow:
		return in.Number < t.Threshold, nil
	case TriggerAbove:
		return in.Number > t.Threshold, nil
	case TriggerExpr:
		return t.evalExpr(in)
	default:
		return false, fmt.Errorf("unknown trigger rule %q", t.When)
	}
}

func (t *Trigger) evalExpr(in Input) (bool, error) {
	if t.program == nil {
		return false, fmt.Errorf("trigger expression %q is not compiled", t.Expr)
	}
	options := in.Options
	if options == nil {
		options = []string{}
	}
	out, _, err := t.program.Eval(map[string]any{
		"answered": in.Answered,
		"option":   in.Option,
		"options":  options,
		"count":    int64(in.Count()),
		"number":   in.Number,
		"text":     in.Text,
	})
	if err != nil {
		return false, fmt.Errorf("evaluate %q: %w", t.Expr, err)
	}
	triggered, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression %q returned %T, want bool", t.Expr, out.Value())
	}
	return triggered, nil
}

var (
	envOnce sync.Once
	exprEnv *cel.Env
	envErr  error
)

func triggerEnv() (*cel.Env, error) {
	envOnce.Do(func() {
		exprEnv, envErr = cel.NewEnv(
			cel.Variable("answered", cel.BoolType),
			cel.Variable("option", cel.StringType),
			cel.Variable("options", cel.ListType(cel.StringType)),
			cel.Variable("count", cel.IntType),
			cel.Variable("number", cel.DoubleType),
			cel.Variable("text", cel.StringType),
		)
	})
	if envErr != nil {
		return nil, fmt.Errorf("create trigger environment: %w", envErr)
	}
	return exprEnv, nil
}

// compileExpr type-checks a trigger expression and prepares it for evaluation.
func compileExpr(expr string) (cel.Program, error) {
	env, err := triggerEnv()
	if err != nil {
		return nil, err
	}
	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile: %w", issues.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, fmt.Errorf("expression must return bool, got %v", ast.OutputType())
	}
	prg, err := env.Program(ast, cel.CostLimit(10000))
	if err != nil {
		return nil, fmt.Errorf("program: %w", err)
	}
	return prg, nil
}
