package store_test

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/jacentio/arbor/store"
)

var _ store.API = (*fakeDynamo)(nil)

// fakeDynamo is an in-memory stand-in for the DynamoDB client. It evaluates
// only the condition expressions Store issues.
type fakeDynamo struct {
	items   map[string]map[string]types.AttributeValue
	puts    []*dynamodb.PutItemInput
	gets    []*dynamodb.GetItemInput
	updates []*dynamodb.UpdateItemInput
	deletes []*dynamodb.DeleteItemInput

	// err, when set, is returned by every call.
	err error
}

func newFakeDynamo() *fakeDynamo {
	return &fakeDynamo{items: make(map[string]map[string]types.AttributeValue)}
}

func (f *fakeDynamo) GetItem(_ context.Context, in *dynamodb.GetItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.GetItemOutput, error) {
	f.gets = append(f.gets, in)
	if f.err != nil {
		return nil, f.err
	}
	return &dynamodb.GetItemOutput{Item: f.items[itemKey(*in.TableName, in.Key)]}, nil
}

func (f *fakeDynamo) PutItem(_ context.Context, in *dynamodb.PutItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.PutItemOutput, error) {
	f.puts = append(f.puts, in)
	if f.err != nil {
		return nil, f.err
	}
	pkName := in.ExpressionAttributeNames["#pk"]
	k := itemKey(*in.TableName, map[string]types.AttributeValue{pkName: in.Item[pkName]})
	if !f.conditionHolds(f.items[k], aws.ToString(in.ConditionExpression), in.ExpressionAttributeNames, in.ExpressionAttributeValues) {
		return nil, conditionFailed()
	}
	f.items[k] = in.Item
	return &dynamodb.PutItemOutput{}, nil
}

func (f *fakeDynamo) UpdateItem(_ context.Context, in *dynamodb.UpdateItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.UpdateItemOutput, error) {
	f.updates = append(f.updates, in)
	if f.err != nil {
		return nil, f.err
	}
	k := itemKey(*in.TableName, in.Key)
	existing := f.items[k]
	if !f.conditionHolds(existing, aws.ToString(in.ConditionExpression), in.ExpressionAttributeNames, in.ExpressionAttributeValues) {
		return nil, conditionFailed()
	}
	next := make(map[string]types.AttributeValue, len(existing)+2)
	for name, v := range existing {
		next[name] = v
	}
	next[in.ExpressionAttributeNames["#ttl"]] = in.ExpressionAttributeValues[":now"]
	if versionAttr, ok := in.ExpressionAttributeNames["#version"]; ok {
		next[versionAttr] = &types.AttributeValueMemberN{Value: strconv.FormatInt(numberAttr(existing[versionAttr])+1, 10)}
	}
	f.items[k] = next
	return &dynamodb.UpdateItemOutput{}, nil
}

func (f *fakeDynamo) DeleteItem(_ context.Context, in *dynamodb.DeleteItemInput, _ ...func(*dynamodb.Options)) (*dynamodb.DeleteItemOutput, error) {
	f.deletes = append(f.deletes, in)
	if f.err != nil {
		return nil, f.err
	}
	delete(f.items, itemKey(*in.TableName, in.Key))
	return &dynamodb.DeleteItemOutput{}, nil
}

func (f *fakeDynamo) conditionHolds(existing map[string]types.AttributeValue, cond string, names map[string]string, values map[string]types.AttributeValue) bool {
	if strings.Contains(cond, "attribute_not_exists(#pk)") && existing != nil {
		return false
	}
	if strings.Contains(cond, "attribute_exists(#pk)") && existing == nil {
		return false
	}
	if existing == nil {
		return true
	}
	_, hasTTL := existing[names["#ttl"]]
	if strings.Contains(cond, "attribute_not_exists(#ttl) OR #ttl > :now") && hasTTL &&
		numberAttr(existing[names["#ttl"]]) <= numberAttr(values[":now"]) {
		return false
	}
	if strings.Contains(cond, "AND attribute_not_exists(#ttl)") && hasTTL {
		return false
	}
	if strings.Contains(cond, "#version = :expected_version") &&
		numberAttr(existing[names["#version"]]) != numberAttr(values[":expected_version"]) {
		return false
	}
	return true
}

func conditionFailed() error {
	return &types.ConditionalCheckFailedException{Message: aws.String("The conditional request failed")}
}

func numberAttr(v types.AttributeValue) int64 {
	n, ok := v.(*types.AttributeValueMemberN)
	if !ok {
		return 0
	}
	i, _ := strconv.ParseInt(n.Value, 10, 64)
	return i
}

func itemKey(table string, key map[string]types.AttributeValue) string {
	for name, v := range key {
		switch av := v.(type) {
		case *types.AttributeValueMemberS:
			return fmt.Sprintf("%s|%s|S:%s", table, name, av.Value)
		case *types.AttributeValueMemberN:
			return fmt.Sprintf("%s|%s|N:%s", table, name, av.Value)
		}
	}
	return table + "|?"
}
