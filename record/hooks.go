package record

import "context"

// Hook runs around a blocking lifecycle point. An error from a before hook
// aborts the operation; an error from an after hook is returned to the
// caller once the operation itself has taken effect.
type Hook func(ctx context.Context, r *Record) error

// InitializeHook runs around record construction and cannot fail.
type InitializeHook func(r *Record)

// Hooks holds ordered callbacks registered before records are constructed.
// A nil *Hooks runs nothing.
type Hooks struct {
	beforeInitialize []InitializeHook
	afterInitialize  []InitializeHook
	beforeSave       []Hook
	afterSave        []Hook
	beforeReload     []Hook
	afterReload      []Hook
}

// NewHooks returns an empty hook set.
func NewHooks() *Hooks {
	return &Hooks{}
}

// BeforeInitialize registers fn to run before a record's attributes are set.
func (h *Hooks) BeforeInitialize(fn InitializeHook) *Hooks {
	h.beforeInitialize = append(h.beforeInitialize, fn)
	return h
}

// AfterInitialize registers fn to run once a record is constructed.
func (h *Hooks) AfterInitialize(fn InitializeHook) *Hooks {
	h.afterInitialize = append(h.afterInitialize, fn)
	return h
}

// BeforeSave registers fn to run after validation and before the backend write.
func (h *Hooks) BeforeSave(fn Hook) *Hooks {
	h.beforeSave = append(h.beforeSave, fn)
	return h
}

// AfterSave registers fn to run after a successful backend write.
func (h *Hooks) AfterSave(fn Hook) *Hooks {
	h.afterSave = append(h.afterSave, fn)
	return h
}

// BeforeReload registers fn to run before a persisted record is re-fetched.
func (h *Hooks) BeforeReload(fn Hook) *Hooks {
	h.beforeReload = append(h.beforeReload, fn)
	return h
}

// AfterReload registers fn to run after the fetched attributes are swapped in.
func (h *Hooks) AfterReload(fn Hook) *Hooks {
	h.afterReload = append(h.afterReload, fn)
	return h
}

// initialize runs body wrapped by the initialize hooks.
func (h *Hooks) initialize(r *Record, body func()) {
	if h == nil {
		body()
		return
	}
	for _, fn := range h.beforeInitialize {
		fn(r)
	}
	body()
	for _, fn := range h.afterInitialize {
		fn(r)
	}
}

func runHooks(ctx context.Context, hooks []Hook, r *Record) error {
	for _, fn := range hooks {
		if err := fn(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (h *Hooks) saveHooks() (before, after []Hook) {
	if h == nil {
		return nil, nil
	}
	return h.beforeSave, h.afterSave
}

func (h *Hooks) reloadHooks() (before, after []Hook) {
	if h == nil {
		return nil, nil
	}
	return h.beforeReload, h.afterReload
}
