package telemetry

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/rtai-hli/gtc-hackathon/pkg/core"
)

func TestInitNone(t *testing.T) {
	shutdown, err := InitWithConfig("warroom-test", "v0.0.1", Config{Exporter: "none"})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestInitStdout(t *testing.T) {
	var buf bytes.Buffer
	shutdown, err := InitWithConfig("warroom-test", "v0.0.1", Config{Exporter: "stdout", Output: &buf})
	if err != nil {
		t.Fatalf("Init failed: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("Shutdown failed: %v", err)
	}
}

func TestInitRejectsBadConfig(t *testing.T) {
	if _, err := InitWithConfig("s", "v", Config{Exporter: "otlp"}); err == nil {
		t.Error("expected error for otlp without endpoint")
	}
	if _, err := InitWithConfig("s", "v", Config{Exporter: "zipkin"}); err == nil {
		t.Error("expected error for unknown exporter")
	}
}

func TestLoggerAddsRunID(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(&buf, "debug", "json")
	ctx := core.WithRunID(context.Background(), "run-1234")

	logger.InfoContext(ctx, "phase started", "phase", "Assessing")

	out := buf.String()
	if !strings.Contains(out, `"run_id":"run-1234"`) {
		t.Errorf("expected run_id in %s", out)
	}
	if !strings.Contains(out, `"phase":"Assessing"`) {
		t.Errorf("expected phase attribute in %s", out)
	}
}

func TestParseLogLevel(t *testing.T) {
	cases := map[string]string{"debug": "DEBUG", "WARN": "WARN", "error": "ERROR", "": "INFO", "bogus": "INFO"}
	for in, want := range cases {
		if got := ParseLogLevel(in).String(); got != want {
			t.Errorf("ParseLogLevel(%q) = %s, want %s", in, got, want)
		}
	}
}
