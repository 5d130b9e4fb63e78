package log

import (
	"bytes"
	"log/slog"
	"strings"
	"testing"
)

func TestLoggerCarriesComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{
		Component: ComponentWorker,
		Handler:   slog.NewTextHandler(&buf, nil),
	})

	logger.Info("sweep done", "removed", 3)

	out := buf.String()
	if !strings.Contains(out, "component=worker") {
		t.Fatalf("missing component attribute: %s", out)
	}
	if !strings.Contains(out, "removed=3") {
		t.Fatalf("missing custom attribute: %s", out)
	}
}

func TestWithComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Handler: slog.NewTextHandler(&buf, nil)})

	logger.WithComponent(ComponentAMQP).Warn("channel closed")

	if !strings.Contains(buf.String(), "component=amqp") {
		t.Fatalf("component not replaced: %s", buf.String())
	}
}

func TestDefaultComponent(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Handler: slog.NewTextHandler(&buf, nil)})

	logger.Error("boom")

	if !strings.Contains(buf.String(), "component=app") {
		t.Fatalf("expected default component, got: %s", buf.String())
	}
}
