// Package store provides a DynamoDB backend for records.
//
// A [Store] implements [record.Backend] and [record.Deleter]. Each record
// type maps to one table (optionally prefixed) whose partition key is the
// type's partition-key attribute. Items hold the full attribute tree of a
// record, marshalled with the attributevalue package.
//
// # Managed Attributes
//
// Depending on [Config], Store maintains:
//
//   - created_at / updated_at - RFC 3339 timestamps
//   - version - optimistic lock counter, checked on every update
//   - ttl - set on soft delete; expired items are reported as not found
//
// # Configuration
//
// Use [DefaultConfig] for generated ids, timestamps, versioning and soft
// deletes. Build a client from the environment with [OpenFromEnv]:
//
//	s, err := store.OpenFromEnv(ctx, store.DefaultConfig())
//	posts := record.NewModel(record.NewType("posts", "id"), record.WithBackend(s))
//
// # Errors
//
// Write failures are returned as [*record.PersistenceError]. Conditional
// check failures unwrap to:
//
//   - [record.ErrAlreadyExists] - creating a record whose key is taken
//   - [record.ErrConcurrentModification] - the stored item changed or was deleted
//
// Find reports missing and soft-deleted items with [record.ErrNotFound].
package store
