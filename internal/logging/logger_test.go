package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{"debug", Debug, false},
		{"info", Info, false},
		{"", Info, false},
		{"WARN", Warn, false},
		{"warning", Warn, false},
		{" error ", Error, false},
		{"verbose", Info, true},
	}
	for _, c := range cases {
		got, err := ParseLevel(c.in)
		if (err != nil) != c.wantErr {
			t.Fatalf("ParseLevel(%q): err = %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", c.in, got, c.want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Warn, false, &buf)

	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("visible")
	l.Error("visible too")

	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("low severity entries leaked:\n%s", out)
	}
	if !strings.Contains(out, "[WARN] visible") || !strings.Contains(out, "[ERROR] visible too") {
		t.Fatalf("expected warn and error entries:\n%s", out)
	}
}

func TestTextFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Debug, false, &buf)

	l.Info("tuned", F("channel", 1), F("hz", 915000000))

	out := buf.String()
	if !strings.Contains(out, "channel=1") || !strings.Contains(out, "hz=915000000") {
		t.Fatalf("expected key=value fields:\n%s", out)
	}
}

func TestWithAccumulatesFields(t *testing.T) {
	var buf bytes.Buffer
	l := New(Debug, false, &buf).With(F("component", "source"))

	l.With(F("channel", 0)).Warn("transfer failed")

	out := buf.String()
	if !strings.Contains(out, "component=source") || !strings.Contains(out, "channel=0") {
		t.Fatalf("expected inherited and call fields:\n%s", out)
	}
}

func TestJSONOutput(t *testing.T) {
	var buf bytes.Buffer
	l := New(Debug, true, &buf)

	l.Error("device gone", F("code", 5))

	line := buf.String()
	start := strings.IndexByte(line, '{')
	if start < 0 {
		t.Fatalf("no JSON object in output: %s", line)
	}
	var payload map[string]any
	if err := json.Unmarshal([]byte(strings.TrimSpace(line[start:])), &payload); err != nil {
		t.Fatalf("invalid JSON entry: %v\n%s", err, line)
	}
	if payload["level"] != "ERROR" || payload["msg"] != "device gone" {
		t.Fatalf("unexpected payload: %v", payload)
	}
	if payload["code"] != float64(5) {
		t.Fatalf("field lost: %v", payload)
	}
}

func TestDiscardDropsEverything(t *testing.T) {
	// must not panic and must accept all levels
	l := Discard()
	l.Debug("x")
	l.Error("x", F("k", "v"))
	l.With(F("k", "v")).Warn("x")
}
