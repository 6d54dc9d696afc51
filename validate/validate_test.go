package validate_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/jacentio/arbor/record"
	"github.com/jacentio/arbor/validate"
)

var postType = record.NewType("posts", "id")

// acceptAll is a backend that stores nothing.
type acceptAll struct{ saves int }

func (b *acceptAll) Save(context.Context, *record.Record, record.SaveOptions) error {
	b.saves++
	return nil
}

func (b *acceptAll) Find(context.Context, record.Type, any) (map[string]any, error) {
	return nil, record.ErrNotFound
}

func problems(t *testing.T, err error) []record.Problem {
	t.Helper()
	if err == nil {
		return nil
	}
	var verr *record.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %v", err)
	}
	return verr.Problems
}

func TestPresence(t *testing.T) {
	v := validate.MustNew(validate.Presence("title"))
	posts := record.NewModel(postType)

	tests := []struct {
		name  string
		attrs map[string]any
		ok    bool
	}{
		{"set", map[string]any{"title": "hello"}, true},
		{"missing", map[string]any{}, false},
		{"nil", map[string]any{"title": nil}, false},
		{"empty string", map[string]any{"title": ""}, false},
		{"non-string", map[string]any{"title": 42}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(context.Background(), posts.New(tt.attrs))
			if (err == nil) != tt.ok {
				t.Errorf("expected ok=%v, got %v", tt.ok, err)
			}
		})
	}
}

func TestValidate_ReportsAllFailures(t *testing.T) {
	v, err := validate.New(
		validate.Presence("title"),
		validate.Rule{Field: "rating", Expr: "rating == nil || (rating >= 1 && rating <= 5)", Message: "must be between 1 and 5"},
		validate.Rule{Expr: `record["x-ref"] != "legacy"`, Message: "legacy references are retired"},
	)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	r := record.NewModel(postType).New(map[string]any{"rating": 9, "x-ref": "legacy"})

	err = v.Validate(context.Background(), r)
	if !errors.Is(err, record.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	want := []record.Problem{
		{Field: "title", Message: "can't be blank"},
		{Field: "rating", Message: "must be between 1 and 5"},
		{Message: "legacy references are retired"},
	}
	if diff := cmp.Diff(want, problems(t, err)); diff != "" {
		t.Errorf("unexpected problems (-want +got):\n%s", diff)
	}
}

func TestValidate_NestedAttributes(t *testing.T) {
	v := validate.MustNew(validate.Rule{
		Field:   "meta",
		Expr:    `meta != nil && meta.author != nil`,
		Message: "needs an author",
	})
	posts := record.NewModel(postType)

	if err := v.Validate(context.Background(), posts.New(map[string]any{"meta": map[string]any{"author": "ann"}})); err != nil {
		t.Errorf("expected nested author to pass, got %v", err)
	}
	if err := v.Validate(context.Background(), posts.New(map[string]any{"meta": map[string]any{}})); err == nil {
		t.Error("expected missing nested author to fail")
	}
}

func TestValidate_AttributesNamedLikeBindings(t *testing.T) {
	v := validate.MustNew(
		validate.Rule{Field: "now", Expr: `now == nil || now == "pinned"`, Message: "must be pinned"},
		validate.Rule{Field: "record", Expr: `record["record"] == nil || record["record"] == "r1"`, Message: "must be r1"},
	)
	posts := record.NewModel(postType)
	ctx := context.Background()

	if err := v.Validate(ctx, posts.New(map[string]any{"now": "pinned", "record": "r1"})); err != nil {
		t.Errorf("expected attributes to be visible, got %v", err)
	}
	want := []record.Problem{
		{Field: "now", Message: "must be pinned"},
		{Field: "record", Message: "must be r1"},
	}
	err := v.Validate(ctx, posts.New(map[string]any{"now": "later", "record": "r2"}))
	if diff := cmp.Diff(want, problems(t, err)); diff != "" {
		t.Errorf("unexpected problems (-want +got):\n%s", diff)
	}

	clock := validate.MustNew(validate.Rule{Expr: `now != nil`, Message: "needs a clock"})
	if err := clock.Validate(ctx, posts.New(nil)); err != nil {
		t.Errorf("expected now to be bound without a now attribute, got %v", err)
	}
}

func TestMatches(t *testing.T) {
	v := validate.MustNew(validate.Matches("slug", `^[a-z0-9-]+$`))
	posts := record.NewModel(postType)
	ctx := context.Background()

	if err := v.Validate(ctx, posts.New(map[string]any{"slug": "hello-world"})); err != nil {
		t.Errorf("expected slug to match, got %v", err)
	}
	if err := v.Validate(ctx, posts.New(nil)); err != nil {
		t.Errorf("expected unset slug to pass, got %v", err)
	}
	if err := v.Validate(ctx, posts.New(map[string]any{"slug": "Hello World"})); err == nil {
		t.Error("expected mismatch to fail")
	}
}

func TestValidate_EvaluationErrorIsProblem(t *testing.T) {
	v := validate.MustNew(validate.Matches("slug", `^[a-z]+$`))
	r := record.NewModel(postType).New(map[string]any{"slug": 7})

	got := problems(t, v.Validate(context.Background(), r))
	if len(got) != 1 || got[0].Field != "slug" {
		t.Fatalf("expected one slug problem, got %+v", got)
	}
	if !strings.HasPrefix(got[0].Message, "is invalid (") {
		t.Errorf("expected evaluation error in message, got %q", got[0].Message)
	}
}

func TestNew_Errors(t *testing.T) {
	tests := []struct {
		name string
		rule validate.Rule
	}{
		{"empty expression", validate.Rule{Field: "title"}},
		{"syntax error", validate.Rule{Field: "title", Expr: "title =="}},
		{"non-boolean", validate.Rule{Field: "title", Expr: `"constant"`}},
		{"bad pattern", validate.Matches("slug", `([`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := validate.New(tt.rule); err == nil {
				t.Error("expected compile error")
			}
		})
	}
}

func TestValidate_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	v := validate.MustNew(validate.Presence("title"))

	if err := v.Validate(ctx, record.NewModel(postType).New(nil)); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestModelSave_UsesValidator(t *testing.T) {
	b := &acceptAll{}
	posts := record.NewModel(postType,
		record.WithBackend(b),
		record.WithValidator(validate.MustNew(validate.Presence("title"))),
	)
	ctx := context.Background()

	r := posts.New(map[string]any{"id": "k1"})
	if err := r.Save(ctx, record.SaveOptions{}); !errors.Is(err, record.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if !r.IsNewRecord() || b.saves != 0 {
		t.Error("expected invalid record to stay new and unsaved")
	}

	if err := r.Save(ctx, record.SaveOptions{SkipValidation: true}); err != nil {
		t.Fatalf("expected skipped validation to save, got %v", err)
	}
	if !r.IsPersisted() {
		t.Error("expected record to be persisted")
	}
}

func ExampleValidator() {
	v := validate.MustNew(
		validate.Presence("title"),
		validate.Matches("slug", `^[a-z0-9-]+$`),
	)
	posts := record.NewModel(record.NewType("posts", "id"), record.WithValidator(v))

	err := v.Validate(context.Background(), posts.New(map[string]any{"slug": "Bad Slug"}))
	fmt.Println(err)
	// Output: arbor: validation failed: title: can't be blank; slug: is invalid
}
