package store

import (
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// IsDeleted checks if an item has an expired "ttl" attribute (is marked for deletion).
func IsDeleted(item map[string]types.AttributeValue) bool {
	return expired(item, "ttl", time.Now())
}

// expired reports whether the TTL attribute of item is at or before now.
func expired(item map[string]types.AttributeValue, attr string, now time.Time) bool {
	ttlAttr, exists := item[attr]
	if !exists {
		return false // No TTL = active
	}
	ttlNum, ok := ttlAttr.(*types.AttributeValueMemberN)
	if !ok {
		return false
	}
	ttl, err := strconv.ParseInt(ttlNum.Value, 10, 64)
	if err != nil {
		return false
	}
	return ttl <= now.Unix()
}

// ActiveCondition returns the condition expression matching items that are
// not soft-deleted. It expects #ttl and :now to be bound.
func ActiveCondition() string {
	return "(attribute_not_exists(#ttl) OR #ttl > :now)"
}

// unixValue formats t as a DynamoDB number of epoch seconds.
func unixValue(t time.Time) *types.AttributeValueMemberN {
	return &types.AttributeValueMemberN{Value: strconv.FormatInt(t.Unix(), 10)}
}
