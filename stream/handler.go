// Package stream turns DynamoDB Streams events into record change
// notifications.
//
// A Handler resolves each stream record's table through a store.Registry,
// rebuilds the changed item as a persisted *record.Record of the matching
// Model and dispatches it to the listeners registered for its EventKind.
// Setting the TTL attribute on a live item is how store.Store soft-deletes, so
// such MODIFY events are delivered as Removed.
//
// The handler is designed to be used as an AWS Lambda handler:
//
//	h := stream.NewHandler(registry, logger).
//		On(stream.Removed, func(ctx context.Context, e stream.Event) error {
//			return purgeAttachments(ctx, e.Record)
//		})
//	lambda.Start(h.HandleRecords)
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/arbor/record"
	"github.com/jacentio/arbor/store"
)

// EventKind classifies a change.
type EventKind int

const (
	// Inserted is a newly created item.
	Inserted EventKind = iota + 1
	// Modified is an update of a live item.
	Modified
	// Removed is a hard delete or a soft delete through the TTL attribute.
	Removed
)

func (k EventKind) String() string {
	switch k {
	case Inserted:
		return "inserted"
	case Modified:
		return "modified"
	case Removed:
		return "removed"
	}
	return fmt.Sprintf("EventKind(%d)", int(k))
}

// Event is a change delivered to listeners.
type Event struct {
	Kind    EventKind
	ID      string
	Table   string
	Model   *record.Model
	Record  *record.Record // new image, or the old image for removals
	Old     *record.Record // old image, nil if the stream does not carry it
	Expired bool           // removed by setting the TTL attribute
}

// Listener reacts to a change. A returned error fails the whole batch.
type Listener func(ctx context.Context, e Event) error

// Handler dispatches DynamoDB stream records to listeners.
type Handler struct {
	registry     *store.Registry
	ttlAttribute string
	listeners    map[EventKind][]Listener
	logger       *slog.Logger
}

// Option configures a Handler.
type Option func(*Handler)

// WithTTLAttribute sets the attribute used for soft deletes. Default: "ttl".
func WithTTLAttribute(name string) Option {
	return func(h *Handler) {
		h.ttlAttribute = name
	}
}

// NewHandler creates a new stream handler.
func NewHandler(reg *store.Registry, logger *slog.Logger, opts ...Option) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	if reg == nil {
		reg = store.NewRegistry("")
	}
	h := &Handler{
		registry:     reg,
		ttlAttribute: "ttl",
		listeners:    make(map[EventKind][]Listener),
		logger:       logger,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	return h
}

// On registers fn for events of kind. Listeners run in registration order.
func (h *Handler) On(kind EventKind, fn Listener) *Handler {
	h.listeners[kind] = append(h.listeners[kind], fn)
	return h
}

// HandleRecords processes a batch of stream records in order. It stops at
// the first failure and returns it so the batch is retried.
func (h *Handler) HandleRecords(ctx context.Context, event events.DynamoDBEvent) error {
	for _, rec := range event.Records {
		if err := h.processRecord(ctx, rec); err != nil {
			h.logger.Error("failed to process record",
				"eventID", rec.EventID,
				"error", err,
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

// processRecord processes a single DynamoDB stream record.
func (h *Handler) processRecord(ctx context.Context, rec events.DynamoDBEventRecord) error {
	table := TableFromARN(rec.EventSourceArn)
	model, ok := h.registry.Model(table)
	if !ok {
		h.logger.Debug("skipping record for unregistered table",
			"eventID", rec.EventID,
			"table", table,
		)
		return nil
	}

	e := Event{ID: rec.EventID, Table: table, Model: model}
	switch rec.EventName {
	case string(events.DynamoDBOperationTypeInsert):
		e.Kind = Inserted
	case string(events.DynamoDBOperationTypeModify):
		e.Kind = Modified
		oldTTL := getNumberAttr(rec.Change.OldImage, h.ttlAttribute)
		newTTL := getNumberAttr(rec.Change.NewImage, h.ttlAttribute)
		// Only a newly set TTL marks the soft delete; later writes to an
		// expired item are ignored.
		if oldTTL != 0 {
			return nil
		}
		if newTTL != 0 {
			e.Kind = Removed
			e.Expired = true
		}
	case string(events.DynamoDBOperationTypeRemove):
		e.Kind = Removed
	default:
		return nil
	}

	listeners := h.listeners[e.Kind]
	if len(listeners) == 0 {
		return nil
	}

	var err error
	if len(rec.Change.OldImage) > 0 {
		if e.Old, err = load(model, rec.Change.OldImage); err != nil {
			return fmt.Errorf("decode old image: %w", err)
		}
	}
	current := rec.Change.NewImage
	if e.Kind == Removed && !e.Expired {
		current = rec.Change.OldImage
	}
	if len(current) == 0 {
		current = rec.Change.Keys
	}
	if e.Record, err = load(model, current); err != nil {
		return fmt.Errorf("decode image: %w", err)
	}

	h.logger.Info("dispatching change",
		"eventID", rec.EventID,
		"table", table,
		"key", getStringAttr(rec.Change.Keys, model.Type().PartitionKey()),
		"kind", e.Kind.String(),
		"listeners", len(listeners),
	)

	for _, fn := range listeners {
		if err := fn(ctx, e); err != nil {
			return fmt.Errorf("%s listener for %s: %w", e.Kind, table, err)
		}
	}
	return nil
}

// TableFromARN extracts the table name from a stream ARN of the form
// arn:aws:dynamodb:<region>:<account>:table/<name>/stream/<label>.
func TableFromARN(arn string) string {
	_, rest, ok := strings.Cut(arn, ":table/")
	if !ok {
		return ""
	}
	name, _, _ := strings.Cut(rest, "/")
	return name
}

func load(model *record.Model, image map[string]events.DynamoDBAttributeValue) (*record.Record, error) {
	attrs, err := UnmarshalImage(image)
	if err != nil {
		return nil, err
	}
	return model.Load(attrs), nil
}
