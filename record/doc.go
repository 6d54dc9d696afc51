// Package record maps items of a partition-keyed key-value store onto
// mutable, validatable domain objects.
//
// A [Model] plays the role of a class: it binds one entity [Type] to the
// collaborators that persist, fetch and validate its records, and to the
// [Hooks] that run around construction, save and reload. Records are built
// through the model:
//
//	posts := record.NewModel(record.NewType("posts", "id"),
//	    record.WithBackend(backend),
//	    record.WithValidator(rules),
//	)
//
//	post := posts.New(map[string]any{"title": "draft"})
//	err := post.Save(ctx, record.SaveOptions{})
//
// # Attributes
//
// Each record owns an [attrs.Store]. There are three write paths:
//
//   - [Record.WriteAttribute] overwrites a single field.
//   - [Record.SetAttributes] always deep-merges, even when given an empty map.
//   - [Record.ResetOrMergeAttributes] deep-merges a non-empty map but resets
//     the record to no attributes when given an empty one.
//
// # Lifecycle
//
// A record is either new or persisted. Records from [Model.New] start new;
// records from [Model.Find] or [Model.Load] start persisted. A successful
// save flips new to persisted; nothing flips it back.
//
// # Errors
//
//   - [ErrValidation] - declared rules rejected the attributes ([*ValidationError])
//   - [ErrPersistence] - the backend write failed ([*PersistenceError])
//   - [ErrNotFound] - the finder has no item for the partition key
//   - [ErrAlreadyExists] - a new record collided with a stored item
//   - [ErrConcurrentModification] - the stored version moved underneath the record
package record
