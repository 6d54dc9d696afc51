package metrics_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/jacentio/arbor/metrics"
	"github.com/jacentio/arbor/record"
)

func TestResult(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected string
	}{
		{"nil", nil, metrics.ResultOK},
		{"not found", fmt.Errorf("wrap: %w", record.ErrNotFound), metrics.ResultNotFound},
		{"already exists", &record.PersistenceError{Err: record.ErrAlreadyExists}, metrics.ResultConflict},
		{"concurrent", record.ErrConcurrentModification, metrics.ResultConflict},
		{"other", errors.New("boom"), metrics.ResultError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := metrics.Result(tt.err); got != tt.expected {
				t.Errorf("expected %q, got %q", tt.expected, got)
			}
		})
	}
}

func TestObserve(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	m.Observe("dynamodb", "save", time.Now(), nil)
	m.Observe("dynamodb", "save", time.Now(), nil)
	m.Observe("dynamodb", "find", time.Now(), record.ErrNotFound)

	if got := testutil.ToFloat64(m.Operations("dynamodb", "save", metrics.ResultOK)); got != 2 {
		t.Errorf("expected 2 saves, got %v", got)
	}
	if got := testutil.ToFloat64(m.Operations("dynamodb", "find", metrics.ResultNotFound)); got != 1 {
		t.Errorf("expected 1 not-found find, got %v", got)
	}
	n, err := testutil.GatherAndCount(reg, "arbor_store_operations_total", "arbor_store_operation_duration_seconds")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if n != 4 {
		t.Errorf("expected 2 counter and 2 histogram series, got %d", n)
	}
}

func TestObserve_NilMetrics(t *testing.T) {
	var m *metrics.Metrics
	m.Observe("dynamodb", "save", time.Now(), nil) // must not panic
}
