package observability

import (
	"bytes"
	"errors"
	"strings"
	"testing"
)

func TestNopLogger(t *testing.T) {
	var l Logger = NopLogger{}
	l.Info("ignored", String("k", "v"))
	if _, ok := l.With(Int("n", 1)).(NopLogger); !ok {
		t.Fatalf("With on NopLogger should return a NopLogger")
	}
}

func TestTextLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	l := NewTextLogger(&buf, LevelWarn)
	l.Debug("low")
	l.Info("low")
	l.Warn("kept", Int("page", 3))
	l.Error("kept too", Error("err", errors.New("boom")))

	out := buf.String()
	if strings.Contains(out, "low") {
		t.Fatalf("entries below min level must be dropped, got %q", out)
	}
	if !strings.Contains(out, "WARN kept page=3") {
		t.Errorf("missing warn line in %q", out)
	}
	if !strings.Contains(out, "err=boom") {
		t.Errorf("missing error field in %q", out)
	}
}

func TestTextLoggerWith(t *testing.T) {
	var buf bytes.Buffer
	l := NewTextLogger(&buf, LevelDebug).With(String("component", "resolver"))
	l.Debug("decision", String("kind", "artifact"))
	if !strings.Contains(buf.String(), "component=resolver kind=artifact") {
		t.Fatalf("bound fields must precede call fields, got %q", buf.String())
	}
}
