package record

import (
	"context"
	"errors"
	"fmt"

	"github.com/jacentio/arbor/attrs"
	"github.com/jacentio/arbor/internal/pkey"
)

// Record is one entity of a Model, addressed by its partition-key value.
// A Record is not safe for concurrent use.
type Record struct {
	model     *Model
	attrs     *attrs.Store
	newRecord bool
}

// Model returns the model the record belongs to.
func (r *Record) Model() *Model {
	return r.model
}

// ReadAttribute returns the value of field, or nil when unset.
func (r *Record) ReadAttribute(field any) any {
	return r.attrs.Value(field)
}

// WriteAttribute sets field to value without validation.
func (r *Record) WriteAttribute(field any, value any) {
	r.attrs.Set(field, value)
}

// Attributes returns the record's live attribute store.
func (r *Record) Attributes() *attrs.Store {
	return r.attrs
}

// ResetOrMergeAttributes deep-merges m into the record. An empty m resets the
// record to no attributes at all.
func (r *Record) ResetOrMergeAttributes(m map[string]any) {
	r.attrs.Merge(m)
}

// SetAttributes deep-merges m into the record. Unlike ResetOrMergeAttributes
// an empty m leaves the attributes unchanged.
func (r *Record) SetAttributes(m map[string]any) {
	r.attrs.DeepMerge(m)
}

// UpdateAttribute writes a single field and saves the record without
// running validation.
func (r *Record) UpdateAttribute(ctx context.Context, field any, value any) error {
	r.WriteAttribute(field, value)
	return r.Update(ctx, nil, SaveOptions{SkipValidation: true})
}

// Update deep-merges m into the record and saves it.
func (r *Record) Update(ctx context.Context, m map[string]any, opts SaveOptions) error {
	if len(m) > 0 {
		r.attrs.DeepMerge(m)
	}
	return r.Save(ctx, opts)
}

// Save validates the record, unless opts.SkipValidation is set, and writes
// it through the backend. On success the record becomes persisted. On
// failure the attributes are left as they are and the record keeps its
// lifecycle state.
func (r *Record) Save(ctx context.Context, opts SaveOptions) error {
	m := r.model
	if m.backend == nil {
		return ErrNoBackend
	}
	if !opts.SkipValidation && m.validator != nil {
		if err := m.validator.Validate(ctx, r); err != nil {
			m.logger.Debug("validation failed",
				"table", m.typ.TableName(),
				"error", err,
			)
			return err
		}
	}

	before, after := m.hooks.saveHooks()
	if err := runHooks(ctx, before, r); err != nil {
		return err
	}
	if err := m.backend.Save(ctx, r, opts); err != nil {
		m.logger.Warn("save failed",
			"table", m.typ.TableName(),
			"key", r.PartitionKeyValue(),
			"new", r.newRecord,
			"error", err,
		)
		return err
	}
	r.newRecord = false

	m.logger.Debug("saved record",
		"table", m.typ.TableName(),
		"key", r.PartitionKeyValue(),
	)
	return runHooks(ctx, after, r)
}

// PartitionKey returns the name of the partition-key attribute.
func (r *Record) PartitionKey() string {
	return r.model.typ.PartitionKey()
}

// PartitionKeyValue returns the current value of the partition-key attribute.
func (r *Record) PartitionKeyValue() any {
	return r.attrs.Value(r.PartitionKey())
}

// IsNewRecord reports whether the record has not been stored yet.
func (r *Record) IsNewRecord() bool {
	return r.newRecord
}

// IsPersisted reports whether the record is believed to be stored.
func (r *Record) IsPersisted() bool {
	return !r.IsNewRecord()
}

// Reload replaces the record's attributes with those currently stored under
// its partition-key value and returns r. A new record is returned as is
// without consulting the backend. Finder errors are returned unchanged and
// leave the attributes untouched.
func (r *Record) Reload(ctx context.Context) (*Record, error) {
	if r.IsNewRecord() {
		return r, nil
	}
	m := r.model
	key := r.PartitionKeyValue()
	if pkey.Blank(key) {
		return r, fmt.Errorf("%w: partition key %q is blank", ErrNotFound, r.PartitionKey())
	}

	before, after := m.hooks.reloadHooks()
	if err := runHooks(ctx, before, r); err != nil {
		return r, err
	}
	fresh, err := m.Find(ctx, key)
	if err != nil {
		return r, err
	}
	r.attrs = fresh.attrs

	m.logger.Debug("reloaded record",
		"table", m.typ.TableName(),
		"key", key,
	)
	return r, runHooks(ctx, after, r)
}

// Destroy removes the stored record when the backend supports deletion.
// The record itself is left as is.
func (r *Record) Destroy(ctx context.Context) error {
	if r.IsNewRecord() {
		return ErrNotPersisted
	}
	if r.model.backend == nil {
		return ErrNoBackend
	}
	d, ok := r.model.backend.(Deleter)
	if !ok {
		return fmt.Errorf("arbor: %T cannot delete: %w", r.model.backend, errors.ErrUnsupported)
	}
	return d.Delete(ctx, r)
}

// AsJSON returns a copy of the attribute mapping for rendering. opts is
// accepted for renderers and ignored here.
func (r *Record) AsJSON(opts map[string]any) map[string]any {
	return r.attrs.Snapshot()
}

// MarshalJSON renders the attributes in insertion order.
func (r *Record) MarshalJSON() ([]byte, error) {
	return r.attrs.MarshalJSON()
}
