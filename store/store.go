package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/arbor/internal/pkey"
	"github.com/jacentio/arbor/metrics"
	"github.com/jacentio/arbor/record"
)

const backendName = "dynamodb"

// API is the subset of the DynamoDB client used by Store.
type API interface {
	GetItem(ctx context.Context, params *dynamodb.GetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error)
	PutItem(ctx context.Context, params *dynamodb.PutItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error)
	UpdateItem(ctx context.Context, params *dynamodb.UpdateItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error)
	DeleteItem(ctx context.Context, params *dynamodb.DeleteItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error)
}

var _ API = (*dynamodb.Client)(nil)

var (
	_ record.Backend = (*Store)(nil)
	_ record.Deleter = (*Store)(nil)
)

// Store persists records as DynamoDB items, one table per record type.
// It is safe for concurrent use.
type Store struct {
	client  API
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

// WithClock overrides the time source used for timestamps and TTLs.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// New creates a new Store instance.
func New(client API, config Config, opts ...Option) *Store {
	config.validate()
	s := &Store{
		client: client,
		config: config,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

// TableName returns the DynamoDB table holding records of type t.
func (s *Store) TableName(t record.Type) string {
	return s.config.TablePrefix + t.TableName()
}

// Save writes the full attribute set of r.
//
// New records are created with a condition that the partition key is not
// taken; a blank partition key is replaced by a UUID when GenerateIDs is set.
// Persisted records are overwritten on the condition that the stored item
// is still active and, with Versioning, still carries the record's version.
// Generated ids, timestamps and versions are written back to r only after
// DynamoDB accepted the item.
func (s *Store) Save(ctx context.Context, r *record.Record, _ record.SaveOptions) error {
	start := time.Now()
	err := s.save(ctx, r)
	s.metrics.Observe(backendName, "save", start, err)
	return err
}

func (s *Store) save(ctx context.Context, r *record.Record) error {
	t := r.Model().Type()
	table := s.TableName(t)
	keyAttr := t.PartitionKey()
	now := s.now()
	item := r.AsJSON(nil)
	pending := make(map[string]any)

	op := "update"
	if r.IsNewRecord() {
		op = "create"
	}
	fail := func(err error) error {
		return &record.PersistenceError{Op: op, Table: table, Err: err}
	}

	exprNames := map[string]string{"#pk": keyAttr}
	exprValues := map[string]types.AttributeValue{}
	var condition string

	if r.IsNewRecord() {
		if pkey.Blank(item[keyAttr]) {
			if !s.config.GenerateIDs {
				return fail(fmt.Errorf("partition key %q is blank", keyAttr))
			}
			pending[keyAttr] = pkey.NewID()
		}
		if s.config.Timestamps {
			stamp := now.UTC().Format(time.RFC3339)
			pending[s.config.CreatedAtAttribute] = stamp
			pending[s.config.UpdatedAtAttribute] = stamp
		}
		if s.config.Versioning {
			pending[s.config.VersionAttribute] = int64(1)
		}
		condition = "attribute_not_exists(#pk)"
	} else {
		if pkey.Blank(item[keyAttr]) {
			return fail(fmt.Errorf("partition key %q is blank", keyAttr))
		}
		if s.config.Timestamps {
			pending[s.config.UpdatedAtAttribute] = now.UTC().Format(time.RFC3339)
		}
		exprNames["#ttl"] = s.config.TTLAttribute
		exprValues[":now"] = unixValue(now)
		conditions := []string{"attribute_exists(#pk)", ActiveCondition()}
		if s.config.Versioning {
			if current, ok := toInt64(item[s.config.VersionAttribute]); ok {
				exprNames["#version"] = s.config.VersionAttribute
				exprValues[":expected_version"] = &types.AttributeValueMemberN{Value: strconv.FormatInt(current, 10)}
				conditions = append(conditions, "#version = :expected_version")
				pending[s.config.VersionAttribute] = current + 1
			} else {
				pending[s.config.VersionAttribute] = int64(1)
			}
		}
		condition = strings.Join(conditions, " AND ")
	}

	for k, v := range pending {
		item[k] = v
	}
	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fail(fmt.Errorf("marshal item: %w", err))
	}

	input := &dynamodb.PutItemInput{
		TableName:                aws.String(table),
		Item:                     av,
		ConditionExpression:      aws.String(condition),
		ExpressionAttributeNames: exprNames,
	}
	if len(exprValues) > 0 {
		input.ExpressionAttributeValues = exprValues
	}
	if _, err := s.client.PutItem(ctx, input); err != nil {
		var condErr *types.ConditionalCheckFailedException
		if errors.As(err, &condErr) {
			if r.IsNewRecord() {
				return fail(record.ErrAlreadyExists)
			}
			return fail(record.ErrConcurrentModification)
		}
		return fail(err)
	}

	r.SetAttributes(pending)
	return nil
}

// Find retrieves the attributes stored under key, returning an error
// matching record.ErrNotFound if the item is missing or soft-deleted.
func (s *Store) Find(ctx context.Context, t record.Type, key any) (map[string]any, error) {
	start := time.Now()
	item, err := s.find(ctx, t, key)
	s.metrics.Observe(backendName, "find", start, err)
	return item, err
}

func (s *Store) find(ctx context.Context, t record.Type, key any) (map[string]any, error) {
	table := s.TableName(t)
	if pkey.Blank(key) {
		return nil, fmt.Errorf("%w: %s: blank partition key %q", record.ErrNotFound, table, t.PartitionKey())
	}
	pk, err := KeyFor(t, key)
	if err != nil {
		return nil, fmt.Errorf("arbor: find %s: %w", table, err)
	}

	result, err := s.client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName:      aws.String(table),
		Key:            pk,
		ConsistentRead: aws.Bool(s.config.ConsistentRead),
	})
	if err != nil {
		return nil, fmt.Errorf("arbor: find %s: %w", table, err)
	}
	if result.Item == nil {
		return nil, fmt.Errorf("%w: %s %v", record.ErrNotFound, table, key)
	}

	// Check if the item is soft-deleted (has expired TTL)
	if expired(result.Item, s.config.TTLAttribute, s.now()) {
		return nil, fmt.Errorf("%w: %s %v", record.ErrNotFound, table, key)
	}

	var attrs map[string]any
	if err := attributevalue.UnmarshalMap(result.Item, &attrs); err != nil {
		return nil, fmt.Errorf("arbor: unmarshal %s item: %w", table, err)
	}
	return attrs, nil
}

// Delete removes the stored item of r. With SoftDelete the item's TTL is set
// to now and its version is bumped so concurrent saves fail; deleting an
// already-deleted item is not an error.
func (s *Store) Delete(ctx context.Context, r *record.Record) error {
	start := time.Now()
	err := s.delete(ctx, r)
	s.metrics.Observe(backendName, "delete", start, err)
	return err
}

func (s *Store) delete(ctx context.Context, r *record.Record) error {
	t := r.Model().Type()
	table := s.TableName(t)
	pk, err := KeyFor(t, r.PartitionKeyValue())
	if err != nil {
		return &record.PersistenceError{Op: "delete", Table: table, Err: err}
	}

	if !s.config.SoftDelete {
		_, err := s.client.DeleteItem(ctx, &dynamodb.DeleteItemInput{
			TableName: aws.String(table),
			Key:       pk,
		})
		if err != nil {
			return &record.PersistenceError{Op: "delete", Table: table, Err: err}
		}
		return nil
	}

	update := "SET #ttl = :now"
	exprNames := map[string]string{"#pk": t.PartitionKey(), "#ttl": s.config.TTLAttribute}
	exprValues := map[string]types.AttributeValue{":now": unixValue(s.now())}
	if s.config.Versioning {
		update += ", #version = if_not_exists(#version, :zero) + :one"
		exprNames["#version"] = s.config.VersionAttribute
		exprValues[":zero"] = &types.AttributeValueMemberN{Value: "0"}
		exprValues[":one"] = &types.AttributeValueMemberN{Value: "1"}
	}

	_, err = s.client.UpdateItem(ctx, &dynamodb.UpdateItemInput{
		TableName:                 aws.String(table),
		Key:                       pk,
		UpdateExpression:          aws.String(update),
		ConditionExpression:       aws.String("attribute_exists(#pk) AND attribute_not_exists(#ttl)"),
		ExpressionAttributeNames:  exprNames,
		ExpressionAttributeValues: exprValues,
	})

	// Ignore condition failure - already deleted or never stored
	var condErr *types.ConditionalCheckFailedException
	if errors.As(err, &condErr) {
		return nil
	}
	if err != nil {
		return &record.PersistenceError{Op: "delete", Table: table, Err: err}
	}
	return nil
}

// toInt64 converts a stored version number to int64.
func toInt64(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint32:
		return int64(n), true
	case uint64:
		return int64(n), true
	case float64:
		return int64(n), true
	case float32:
		return int64(n), true
	case string:
		i, err := strconv.ParseInt(n, 10, 64)
		return i, err == nil
	}
	return 0, false
}
