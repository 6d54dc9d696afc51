// Package validate implements record.Validator with rules written as
// expr-lang expressions.
//
// Each rule is evaluated against the record's attributes. Top-level attribute
// names are bound as variables, and the whole attribute map is also bound as
// "record" so names that are not identifiers stay reachable. The current
// time is bound as "now" unless the record has a "now" attribute. An
// attribute named "record" is only reachable as record["record"]:
//
//	v, err := validate.New(
//		validate.Presence("title"),
//		validate.Rule{Field: "rating", Expr: "rating == nil || (rating >= 1 && rating <= 5)", Message: "must be between 1 and 5"},
//		validate.Rule{Field: "x-ref", Expr: `record["x-ref"] != "legacy"`, Message: "is retired"},
//	)
//
// All failing rules are reported together in a *record.ValidationError.
package validate

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"github.com/jacentio/arbor/record"
)

// Rule is a named boolean expression. A rule passes when Expr evaluates to true.
type Rule struct {
	// Field is reported with the problem. It may be empty for record-wide rules.
	Field string

	// Expr is the expr-lang expression.
	Expr string

	// Message describes the failure. Defaults to "is invalid".
	Message string
}

// Presence returns a rule requiring field to be set and not an empty string.
func Presence(field string) Rule {
	q := strconv.Quote(field)
	return Rule{
		Field:   field,
		Expr:    fmt.Sprintf("record[%s] != nil && record[%s] != \"\"", q, q),
		Message: "can't be blank",
	}
}

// Matches returns a rule requiring field, when set, to be a string matching
// the regular expression pattern.
func Matches(field, pattern string) Rule {
	q := strconv.Quote(field)
	return Rule{
		Field:   field,
		Expr:    fmt.Sprintf("record[%s] == nil || record[%s] matches %s", q, q, strconv.Quote(pattern)),
		Message: "is invalid",
	}
}

type compiledRule struct {
	Rule
	program *vm.Program
}

var _ record.Validator = (*Validator)(nil)

// Validator evaluates compiled rules. It is safe for concurrent use.
type Validator struct {
	rules []compiledRule
	now   func() time.Time
}

// New compiles rules. It fails on the first rule that does not compile.
func New(rules ...Rule) (*Validator, error) {
	v := &Validator{now: time.Now}
	for i, rule := range rules {
		if rule.Expr == "" {
			return nil, fmt.Errorf("arbor: rule %d (%s): expression must not be empty", i, rule.Field)
		}
		program, err := expr.Compile(rule.Expr,
			expr.Env(map[string]any{}),
			expr.AllowUndefinedVariables(),
			expr.AsBool(),
		)
		if err != nil {
			return nil, fmt.Errorf("arbor: rule %d (%s): compile %q: %w", i, rule.Field, rule.Expr, err)
		}
		if rule.Message == "" {
			rule.Message = "is invalid"
		}
		v.rules = append(v.rules, compiledRule{Rule: rule, program: program})
	}
	return v, nil
}

// MustNew is like New but panics if a rule does not compile.
func MustNew(rules ...Rule) *Validator {
	v, err := New(rules...)
	if err != nil {
		panic(err)
	}
	return v
}

// Len returns the number of rules.
func (v *Validator) Len() int {
	return len(v.rules)
}

// Validate evaluates every rule against r and returns a *record.ValidationError
// listing the failures, or nil. A rule that errors during evaluation counts
// as failed.
func (v *Validator) Validate(ctx context.Context, r *record.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	env := v.environment(r)

	var problems []record.Problem
	for _, rule := range v.rules {
		out, err := expr.Run(rule.program, env)
		if err != nil {
			problems = append(problems, record.Problem{
				Field:   rule.Field,
				Message: fmt.Sprintf("%s (%v)", rule.Message, err),
			})
			continue
		}
		if ok, _ := out.(bool); !ok {
			problems = append(problems, record.Problem{Field: rule.Field, Message: rule.Message})
		}
	}
	if len(problems) > 0 {
		return &record.ValidationError{Problems: problems}
	}
	return nil
}

func (v *Validator) environment(r *record.Record) map[string]any {
	snapshot := r.AsJSON(nil)
	env := make(map[string]any, len(snapshot)+2)
	for key, value := range snapshot {
		env[key] = value
	}
	env["record"] = snapshot
	if _, ok := snapshot["now"]; !ok {
		env["now"] = v.now()
	}
	return env
}
