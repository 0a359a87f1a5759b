package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"go.opentelemetry.io/otel/trace"
)

func TestClassifyDBErr(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unique", &pgconn.PgError{Code: "23505"}, "unique_violation"},
		{"wrapped_not_null", fmt.Errorf("insert: %w", &pgconn.PgError{Code: "23502"}), "not_null_violation"},
		{"other_pg_code", &pgconn.PgError{Code: "22001"}, "pg_22001"},
		{"deadline", errors.New("context deadline exceeded"), "timeout"},
		{"dial", errors.New("failed to connect to host"), "connection"},
		{"unknown", errors.New("boom"), "unknown"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyDBErr(tt.err); got != tt.want {
				t.Fatalf("got %q, want %q", got, tt.want)
			}
		})
	}
}

func TestObserveDB_CountsErrors(t *testing.T) {
	p := NewProm(prometheus.NewRegistry())

	_ = p.ObserveDB("usuarios.get", func() error { return nil })
	err := p.ObserveDB("usuarios.get", func() error { return &pgconn.PgError{Code: "23505"} })

	if err == nil {
		t.Fatalf("ObserveDB must return the wrapped fn error")
	}

	var m dto.Metric
	if err := p.DbErrorsTotal.WithLabelValues("usuarios.get", "unique_violation").Write(&m); err != nil {
		t.Fatalf("read counter: %v", err)
	}
	if got := m.GetCounter().GetValue(); got != 1 {
		t.Fatalf("errors_total: got %v, want 1", got)
	}
}

func TestLogger_AddsTraceIDs(t *testing.T) {
	var buf bytes.Buffer
	log := newLogger(&buf, "prod")

	traceID, _ := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	spanID, _ := trace.SpanIDFromHex("00f067aa0ba902b7")
	sc := trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
	ctx := trace.ContextWithSpanContext(context.Background(), sc)

	log.InfoContext(ctx, "hello")
	log.DebugContext(ctx, "hidden at info level")

	var rec map[string]any
	if err := json.Unmarshal(bytes.TrimSpace(buf.Bytes()), &rec); err != nil {
		t.Fatalf("expected exactly one json record, got %q: %v", buf.String(), err)
	}

	if rec["trace_id"] != traceID.String() {
		t.Fatalf("trace_id: got %v", rec["trace_id"])
	}
	if rec["span_id"] != spanID.String() {
		t.Fatalf("span_id: got %v", rec["span_id"])
	}
}
