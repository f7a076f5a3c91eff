package observability

import (
	"context"
	"errors"
	"testing"
)

func TestInitDisabled(t *testing.T) {
	if err := Init(Config{ExporterType: "none"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, span := StartSpan(context.Background(), "test_op", map[string]any{
		"provider": "mock",
		"count":    3,
		"ratio":    0.5,
		"ok":       true,
	})
	if ctx == nil {
		t.Fatal("expected a context")
	}
	span.SetAttribute("late", "value")
	span.SetError(errors.New("boom"))
	span.End()

	if !span.IsEnded() {
		t.Error("expected span to be ended")
	}
	if span.Name() != "test_op" {
		t.Errorf("unexpected span name: %s", span.Name())
	}
	// End is idempotent.
	span.End()
}

func TestInitUnknownExporter(t *testing.T) {
	err := Init(Config{Enabled: true, ExporterType: "jaeger"})
	if err == nil {
		t.Error("expected error for unknown exporter")
	}
}

func TestInitFromEnvDefaultsToNone(t *testing.T) {
	t.Setenv("OTEL_TRACES_EXPORTER", "")
	t.Setenv("OTEL_SERVICE_NAME", "")
	if err := InitFromEnv(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseHeaders(t *testing.T) {
	headers := parseHeaders("authorization=Bearer tok,x-tenant=nexus")
	if headers["authorization"] != "Bearer tok" {
		t.Errorf("unexpected authorization header: %q", headers["authorization"])
	}
	if headers["x-tenant"] != "nexus" {
		t.Errorf("unexpected tenant header: %q", headers["x-tenant"])
	}
	if len(parseHeaders("")) != 0 {
		t.Error("expected no headers for empty input")
	}
}

func TestShutdownWithoutInit(t *testing.T) {
	tracerProvider = nil
	if err := Shutdown(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
