package observability

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestCounters(t *testing.T) {
	t.Parallel()

	register()
	RecordViolation("test_filter")
	RecordAction("test_action", false)
	RecordAction("test_action", true)

	if got := testutil.ToFloat64(violationsTotal.WithLabelValues("test_filter")); got != 1 {
		t.Fatalf("violations = %v", got)
	}
	if got := testutil.ToFloat64(actionsTotal.WithLabelValues("test_action", "failed")); got != 1 {
		t.Fatalf("failed actions = %v", got)
	}
}

func TestServerWithoutAddress(t *testing.T) {
	t.Parallel()

	s, err := NewServer("")
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	ctx := context.Background()
	if err := s.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	_, span := Tracer().Start(ctx, "test")
	span.End()
	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
}
