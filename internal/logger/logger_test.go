package logger

import (
	"bytes"
	"strings"
	"testing"
)

func TestNew_JSONWithComponent(t *testing.T) {
	var buf bytes.Buffer
	l := Component(newWithWriter(Config{Level: "info", Format: "json"}, &buf), "order")

	l.Debug("hidden")
	l.Info("order created", "order_id", 7)

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug line should be filtered at info level: %s", out)
	}
	if !strings.Contains(out, `"component":"order"`) || !strings.Contains(out, `"order_id":7`) {
		t.Fatalf("unexpected log line: %s", out)
	}
}

func TestNew_TextFormat(t *testing.T) {
	var buf bytes.Buffer
	l := newWithWriter(Config{Level: "debug", Format: "text"}, &buf)
	l.Debug("pool configured", "max_open", 10)

	if !strings.Contains(buf.String(), "max_open=10") {
		t.Fatalf("expected text output, got %s", buf.String())
	}
}
