package store

import (
	"sort"

	"github.com/jacentio/arbor/record"
)

// Registry maps table names to the models whose records live in them.
// Stream handlers use it to turn change events back into records.
type Registry struct {
	prefix string
	models map[string]*record.Model
}

// NewRegistry creates an empty Registry. prefix is prepended to each
// model's table name, matching Config.TablePrefix.
func NewRegistry(prefix string) *Registry {
	return &Registry{
		prefix: prefix,
		models: make(map[string]*record.Model),
	}
}

// Register adds models to the registry, replacing any model registered
// for the same table.
// This should be called during startup for each record type.
func (r *Registry) Register(models ...*record.Model) {
	for _, m := range models {
		r.models[r.prefix+m.Type().TableName()] = m
	}
}

// Model returns the model stored in table.
func (r *Registry) Model(table string) (*record.Model, bool) {
	m, ok := r.models[table]
	return m, ok
}

// Tables returns all registered table names in lexical order.
func (r *Registry) Tables() []string {
	tables := make([]string, 0, len(r.models))
	for t := range r.models {
		tables = append(tables, t)
	}
	sort.Strings(tables)
	return tables
}
