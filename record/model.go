package record

import (
	"context"
	"log/slog"

	"github.com/jacentio/arbor/attrs"
)

// Backend is the persistence and finder collaborator of a Model.
type Backend interface {
	// Save durably writes the full attribute set of r, keyed by the current
	// value of its partition key. Implementations may write generated values
	// such as ids, timestamps or versions back into r.
	Save(ctx context.Context, r *Record, opts SaveOptions) error

	// Find returns the stored attributes for the partition-key value key, or
	// an error matching ErrNotFound.
	Find(ctx context.Context, t Type, key any) (map[string]any, error)
}

// Deleter is implemented by backends that can remove stored records.
type Deleter interface {
	Delete(ctx context.Context, r *Record) error
}

// Validator runs declared rules against a record's attributes. Rule
// failures are reported as *ValidationError.
type Validator interface {
	Validate(ctx context.Context, r *Record) error
}

// SaveOptions configures a save.
type SaveOptions struct {
	// SkipValidation bypasses the model's Validator.
	SkipValidation bool
}

// Model binds an entity Type to its collaborators. It is safe to share a
// Model between goroutines; the records it builds are not.
type Model struct {
	typ       Type
	backend   Backend
	validator Validator
	hooks     *Hooks
	logger    *slog.Logger
}

// Option configures a Model.
type Option func(*Model)

// WithBackend sets the persistence and finder collaborator.
func WithBackend(b Backend) Option {
	return func(m *Model) {
		m.backend = b
	}
}

// WithValidator sets the validation collaborator.
func WithValidator(v Validator) Option {
	return func(m *Model) {
		m.validator = v
	}
}

// WithHooks sets the lifecycle hooks.
func WithHooks(h *Hooks) Option {
	return func(m *Model) {
		m.hooks = h
	}
}

// WithLogger sets the logger. A nil logger selects slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(m *Model) {
		m.logger = l
	}
}

// NewModel creates a Model for records of type t.
func NewModel(t Type, opts ...Option) *Model {
	m := &Model{typ: t}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	return m
}

// Type returns the entity type of the model.
func (m *Model) Type() Type {
	return m.typ
}

// New constructs a new record seeded with a copy of initial.
func (m *Model) New(initial map[string]any) *Record {
	r := &Record{model: m, attrs: attrs.New(nil)}
	m.hooks.initialize(r, func() {
		r.attrs = attrs.New(initial)
		r.newRecord = true
	})
	return r
}

// Load constructs a persisted record from stored attributes.
func (m *Model) Load(stored map[string]any) *Record {
	r := m.New(stored)
	r.newRecord = false
	return r
}

// Find fetches the record stored under the partition-key value key. The
// backend's error is returned unchanged.
func (m *Model) Find(ctx context.Context, key any) (*Record, error) {
	if m.backend == nil {
		return nil, ErrNoBackend
	}
	stored, err := m.backend.Find(ctx, m.typ, key)
	if err != nil {
		m.logger.Debug("find failed",
			"table", m.typ.TableName(),
			"key", key,
			"error", err,
		)
		return nil, err
	}
	return m.Load(stored), nil
}
