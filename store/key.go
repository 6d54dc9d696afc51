package store

import (
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/arbor/internal/pkey"
	"github.com/jacentio/arbor/record"
)

// PK represents a DynamoDB primary key.
type PK map[string]types.AttributeValue

// KeyFor builds the primary key locating the record of type t whose
// partition key equals value.
func KeyFor(t record.Type, value any) (PK, error) {
	if pkey.Blank(value) {
		return nil, fmt.Errorf("partition key %q is blank", t.PartitionKey())
	}
	av, err := attributevalue.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal key: %w", err)
	}
	return PK{t.PartitionKey(): av}, nil
}
