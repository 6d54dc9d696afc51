// Package boltstore persists records in an embedded bbolt database.
//
// Each record type gets its own bucket, named after its table. Items are
// keyed by the canonical form of their partition-key value and stored as
// JSON. Create and update checks run inside a single write transaction, so
// they are atomic with the write itself.
//
// The store offers the same managed attributes as the DynamoDB store:
// generated ids, timestamps and an optimistic version counter.
//
//	s, err := boltstore.Open("arbor.db", boltstore.DefaultConfig())
//	if err != nil {
//		return err
//	}
//	defer s.Close()
//	posts := record.NewModel(record.NewType("posts", "id"), record.WithBackend(s))
package boltstore

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/jacentio/arbor/internal/pkey"
	"github.com/jacentio/arbor/metrics"
	"github.com/jacentio/arbor/record"
)

const backendName = "bbolt"

// Config holds configuration for the Store.
type Config struct {
	// TablePrefix is prepended to every bucket name.
	TablePrefix string

	// VersionAttribute names the optimistic lock counter.
	// Default: "version"
	VersionAttribute string

	// CreatedAtAttribute and UpdatedAtAttribute name the RFC 3339 timestamps.
	// Defaults: "created_at", "updated_at"
	CreatedAtAttribute string
	UpdatedAtAttribute string

	// Timestamps stamps created/updated times on save.
	Timestamps bool

	// Versioning enables optimistic locking on the version attribute.
	Versioning bool

	// GenerateIDs assigns a UUID partition key to new records saved without one.
	GenerateIDs bool

	// OpenTimeout bounds how long Open waits for the file lock.
	// Default: 1s
	OpenTimeout time.Duration
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		VersionAttribute:   "version",
		CreatedAtAttribute: "created_at",
		UpdatedAtAttribute: "updated_at",
		Timestamps:         true,
		Versioning:         true,
		GenerateIDs:        true,
		OpenTimeout:        time.Second,
	}
}

func (c *Config) validate() {
	if c.VersionAttribute == "" {
		c.VersionAttribute = "version"
	}
	if c.CreatedAtAttribute == "" {
		c.CreatedAtAttribute = "created_at"
	}
	if c.UpdatedAtAttribute == "" {
		c.UpdatedAtAttribute = "updated_at"
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = time.Second
	}
}

var (
	_ record.Backend = (*Store)(nil)
	_ record.Deleter = (*Store)(nil)
)

// Store is a record backend over a bbolt database. It is safe for
// concurrent use.
type Store struct {
	db      *bolt.DB
	config  Config
	metrics *metrics.Metrics
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithMetrics records operation metrics.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithClock overrides the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Open opens, creating if needed, the database file at path.
func Open(path string, config Config, opts ...Option) (*Store, error) {
	config.validate()
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: config.OpenTimeout})
	if err != nil {
		return nil, fmt.Errorf("arbor: open bbolt store at %s: %w", path, err)
	}
	s := &Store{
		db:     db,
		config: config,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Close releases the database file.
func (s *Store) Close() error {
	return s.db.Close()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.db.Path()
}

// BucketName returns the bucket holding records of type t.
func (s *Store) BucketName(t record.Type) string {
	return s.config.TablePrefix + t.TableName()
}

// Save writes the full attribute set of r. New records must not collide with
// a stored key; persisted records must still exist and, with Versioning,
// carry the stored version.
func (s *Store) Save(ctx context.Context, r *record.Record, _ record.SaveOptions) error {
	start := time.Now()
	err := s.save(ctx, r)
	s.metrics.Observe(backendName, "save", start, err)
	return err
}

func (s *Store) save(ctx context.Context, r *record.Record) error {
	t := r.Model().Type()
	table := s.BucketName(t)
	keyAttr := t.PartitionKey()
	isNew := r.IsNewRecord()
	op := "update"
	if isNew {
		op = "create"
	}
	fail := func(err error) error {
		return &record.PersistenceError{Op: op, Table: table, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	item := r.AsJSON(nil)
	pending := make(map[string]any)
	stamp := s.now().UTC().Format(time.RFC3339)

	if isNew && pkey.Blank(item[keyAttr]) && s.config.GenerateIDs {
		pending[keyAttr] = pkey.NewID()
		item[keyAttr] = pending[keyAttr]
	}
	key, err := pkey.String(item[keyAttr])
	if err != nil {
		return fail(fmt.Errorf("partition key %q: %w", keyAttr, err))
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(table))
		if err != nil {
			return err
		}
		existing := b.Get([]byte(key))

		if isNew {
			if existing != nil {
				return record.ErrAlreadyExists
			}
			if s.config.Timestamps {
				pending[s.config.CreatedAtAttribute] = stamp
				pending[s.config.UpdatedAtAttribute] = stamp
			}
			if s.config.Versioning {
				pending[s.config.VersionAttribute] = int64(1)
			}
		} else {
			if existing == nil {
				return record.ErrConcurrentModification
			}
			if s.config.Timestamps {
				pending[s.config.UpdatedAtAttribute] = stamp
			}
			if s.config.Versioning {
				current, ok := toInt64(item[s.config.VersionAttribute])
				if ok {
					stored, err := decodeItem(existing)
					if err != nil {
						return fmt.Errorf("decode stored item: %w", err)
					}
					if storedVersion, _ := toInt64(stored[s.config.VersionAttribute]); storedVersion != current {
						return record.ErrConcurrentModification
					}
				}
				pending[s.config.VersionAttribute] = current + 1
			}
		}

		for k, v := range pending {
			item[k] = v
		}
		data, err := json.Marshal(item)
		if err != nil {
			return fmt.Errorf("encode item: %w", err)
		}
		return b.Put([]byte(key), data)
	})
	if err != nil {
		return fail(err)
	}

	r.SetAttributes(pending)
	return nil
}

// Find returns the attributes stored under key, or an error matching
// record.ErrNotFound. Numbers decode as float64, except integers that
// float64 cannot represent exactly, which decode as int64 or uint64.
func (s *Store) Find(ctx context.Context, t record.Type, key any) (map[string]any, error) {
	start := time.Now()
	item, err := s.find(ctx, t, key)
	s.metrics.Observe(backendName, "find", start, err)
	return item, err
}

func (s *Store) find(ctx context.Context, t record.Type, key any) (map[string]any, error) {
	table := s.BucketName(t)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	k, err := pkey.String(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", record.ErrNotFound, table, err)
	}

	var item map[string]any
	err = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(table))
		if b == nil {
			return fmt.Errorf("%w: %s %v", record.ErrNotFound, table, key)
		}
		data := b.Get([]byte(k))
		if data == nil {
			return fmt.Errorf("%w: %s %v", record.ErrNotFound, table, key)
		}
		decoded, err := decodeItem(data)
		if err != nil {
			return fmt.Errorf("arbor: decode %s item: %w", table, err)
		}
		item = decoded
		return nil
	})
	if err != nil {
		return nil, err
	}
	return item, nil
}

// Delete removes the stored item of r. Deleting a missing item is not an error.
func (s *Store) Delete(ctx context.Context, r *record.Record) error {
	start := time.Now()
	err := s.delete(ctx, r)
	s.metrics.Observe(backendName, "delete", start, err)
	return err
}

func (s *Store) delete(ctx context.Context, r *record.Record) error {
	t := r.Model().Type()
	table := s.BucketName(t)
	fail := func(err error) error {
		return &record.PersistenceError{Op: "delete", Table: table, Err: err}
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}
	key, err := pkey.String(r.PartitionKeyValue())
	if err != nil {
		return fail(err)
	}

	err = s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(table))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
	if err != nil {
		return fail(err)
	}
	return nil
}

// Count returns the number of items stored for type t.
func (s *Store) Count(t record.Type) (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(s.BucketName(t)))
		if b == nil {
			return nil
		}
		n = b.Stats().KeyN
		return nil
	})
	return n, err
}

func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int64:
		return n, true
	case float64:
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}

// maxExactFloat is the largest integer magnitude float64 holds exactly.
const maxExactFloat = 1 << 53

// decodeItem decodes a stored item. Numbers are read as json.Number first so
// large integers keep their precision.
func decodeItem(data []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var item map[string]any
	if err := dec.Decode(&item); err != nil {
		return nil, err
	}
	for k, v := range item {
		item[k] = decodeNumbers(v)
	}
	return item, nil
}

func decodeNumbers(v any) any {
	switch t := v.(type) {
	case json.Number:
		if i, err := t.Int64(); err == nil {
			if i > maxExactFloat || i < -maxExactFloat {
				return i
			}
			return float64(i)
		}
		if u, err := strconv.ParseUint(t.String(), 10, 64); err == nil {
			return u
		}
		if f, err := t.Float64(); err == nil {
			return f
		}
		return t
	case map[string]any:
		for k, item := range t {
			t[k] = decodeNumbers(item)
		}
		return t
	case []any:
		for i, item := range t {
			t[i] = decodeNumbers(item)
		}
		return t
	}
	return v
}
