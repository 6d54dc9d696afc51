// Package pkey provides partition-key helpers shared by the storage backends.
package pkey

import (
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/google/uuid"
)

// NewID returns a fresh random partition-key value.
func NewID() string {
	return uuid.New().String()
}

// Blank reports whether v cannot serve as a partition-key value.
func Blank(v any) bool {
	switch k := v.(type) {
	case nil:
		return true
	case string:
		return k == ""
	case []byte:
		return len(k) == 0
	}
	return false
}

// String returns the canonical text form of a partition-key value. Numbers
// with equal value map to equal strings regardless of their Go type, so a key
// written as int and read back as float64 resolves to the same item.
func String(v any) (string, error) {
	switch k := v.(type) {
	case string:
		if k == "" {
			return "", fmt.Errorf("blank partition key")
		}
		return "S:" + k, nil
	case []byte:
		if len(k) == 0 {
			return "", fmt.Errorf("blank partition key")
		}
		return "B:" + hex.EncodeToString(k), nil
	case int:
		return "N:" + strconv.FormatInt(int64(k), 10), nil
	case int32:
		return "N:" + strconv.FormatInt(int64(k), 10), nil
	case int64:
		return "N:" + strconv.FormatInt(k, 10), nil
	case uint:
		return "N:" + strconv.FormatUint(uint64(k), 10), nil
	case uint32:
		return "N:" + strconv.FormatUint(uint64(k), 10), nil
	case uint64:
		return "N:" + strconv.FormatUint(k, 10), nil
	case float32:
		return "N:" + strconv.FormatFloat(float64(k), 'f', -1, 32), nil
	case float64:
		return "N:" + strconv.FormatFloat(k, 'f', -1, 64), nil
	case json.Number:
		if n, err := k.Int64(); err == nil {
			return "N:" + strconv.FormatInt(n, 10), nil
		}
		f, err := k.Float64()
		if err != nil {
			return "", fmt.Errorf("invalid numeric partition key %q", k)
		}
		return "N:" + strconv.FormatFloat(f, 'f', -1, 64), nil
	case nil:
		return "", fmt.Errorf("blank partition key")
	default:
		return "", fmt.Errorf("unsupported partition key type %T", v)
	}
}
