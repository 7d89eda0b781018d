package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
)

func TestNewParsesLevelAndFormat(t *testing.T) {
	var buf bytes.Buffer
	l := NewTo(&buf, "debug", "JSON")
	if l.GetLevel() != logrus.DebugLevel {
		t.Fatalf("level: %v", l.GetLevel())
	}
	l.WithField("tick", 3).Info("hello")
	var line map[string]any
	if err := json.Unmarshal(buf.Bytes(), &line); err != nil {
		t.Fatalf("not json: %q", buf.String())
	}
	if line["msg"] != "hello" || line["tick"] != float64(3) {
		t.Fatalf("line: %v", line)
	}

	if l := NewTo(&buf, "loud", "text"); l.GetLevel() != logrus.InfoLevel {
		t.Fatalf("fallback level: %v", l.GetLevel())
	}
}
