package observe

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.opentelemetry.io/otel/attribute"
)

func TestInitDisabled(t *testing.T) {
	shutdown, err := Init(context.Background(), Config{})
	if err != nil {
		t.Fatalf("Init() error: %v", err)
	}
	if err := shutdown(context.Background()); err != nil {
		t.Errorf("shutdown() error: %v", err)
	}
}

func TestInitWritesSpans(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace", "spans.json")
	shutdown, err := Init(context.Background(), Config{File: path, ServiceName: "ssml2wav-test"})
	if err != nil {
		t.Fatalf("Init() error: %v", err)
	}

	_, span := StartSpan(context.Background(), "synthesize.part")
	span.SetAttributes(attribute.Int("part", 2))
	Fail(span, errors.New("timeout"))
	Fail(span, nil)
	span.End()

	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown() error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "synthesize.part") {
		t.Errorf("span not exported: %s", data)
	}
}
