package store

import (
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
)

// --- expired Tests ---

func TestExpired(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)

	tests := []struct {
		name     string
		item     map[string]types.AttributeValue
		expected bool
	}{
		{"no TTL", map[string]types.AttributeValue{}, false},
		{"TTL equal to now", map[string]types.AttributeValue{"expires": &types.AttributeValueMemberN{Value: "1700000000"}}, true},
		{"TTL before now", map[string]types.AttributeValue{"expires": &types.AttributeValueMemberN{Value: "1699999999"}}, true},
		{"TTL after now", map[string]types.AttributeValue{"expires": &types.AttributeValueMemberN{Value: "1700000001"}}, false},
		{"unparseable TTL", map[string]types.AttributeValue{"expires": &types.AttributeValueMemberN{Value: "soon"}}, false},
		{"other attribute name", map[string]types.AttributeValue{"ttl": &types.AttributeValueMemberN{Value: "1"}}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := expired(tt.item, "expires", now); got != tt.expected {
				t.Errorf("expected %v, got %v", tt.expected, got)
			}
		})
	}
}

func TestUnixValue(t *testing.T) {
	v := unixValue(time.Unix(42, 999))
	if v.Value != "42" {
		t.Errorf("expected '42', got %q", v.Value)
	}
}

// --- toInt64 Tests ---

func TestToInt64(t *testing.T) {
	tests := []struct {
		name     string
		in       any
		expected int64
		ok       bool
	}{
		{"int", 3, 3, true},
		{"int64", int64(4), 4, true},
		{"float64", float64(5), 5, true},
		{"numeric string", "6", 6, true},
		{"non-numeric string", "six", 0, false},
		{"nil", nil, 0, false},
		{"bool", true, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := toInt64(tt.in)
			if got != tt.expected || ok != tt.ok {
				t.Errorf("expected (%d, %v), got (%d, %v)", tt.expected, tt.ok, got, ok)
			}
		})
	}
}

// --- Config Tests ---

func TestConfigValidate_Defaults(t *testing.T) {
	cfg := Config{}
	cfg.validate()

	if cfg.TTLAttribute != "ttl" {
		t.Errorf("expected TTLAttribute 'ttl', got %q", cfg.TTLAttribute)
	}
	if cfg.VersionAttribute != "version" {
		t.Errorf("expected VersionAttribute 'version', got %q", cfg.VersionAttribute)
	}
	if cfg.CreatedAtAttribute != "created_at" || cfg.UpdatedAtAttribute != "updated_at" {
		t.Errorf("unexpected timestamp attributes %q, %q", cfg.CreatedAtAttribute, cfg.UpdatedAtAttribute)
	}
}

func TestConfigValidate_PreservesCustomNames(t *testing.T) {
	cfg := Config{
		TTLAttribute:       "expires_at",
		VersionAttribute:   "rev",
		CreatedAtAttribute: "inserted",
		UpdatedAtAttribute: "touched",
	}
	cfg.validate()

	if cfg.TTLAttribute != "expires_at" || cfg.VersionAttribute != "rev" ||
		cfg.CreatedAtAttribute != "inserted" || cfg.UpdatedAtAttribute != "touched" {
		t.Errorf("expected custom names to be preserved, got %+v", cfg)
	}
}
