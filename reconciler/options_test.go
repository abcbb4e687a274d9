package reconciler

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

func TestLoadOptions(t *testing.T) {
	opts, err := LoadOptions([]byte("firstRenderOnly: true\nlogLevel: debug\n"))
	if err != nil {
		t.Fatalf("LoadOptions failed: %v", err)
	}
	want := DefaultOptions()
	want.FirstRenderOnly = true
	want.LogLevel = "debug"
	if diff := cmp.Diff(want, opts, cmpopts.IgnoreFields(Options{}, "LogOutput", "Logger", "Metrics")); diff != "" {
		t.Errorf("options mismatch (-want +got):\n%s", diff)
	}

	if _, err := LoadOptions([]byte("firstRenderOnly: [")); err == nil {
		t.Errorf("expected an error for malformed YAML")
	}
}

func TestOptionsLogger(t *testing.T) {
	if _, ok := (Options{}).logger().(noopLogger); !ok {
		t.Errorf("an empty log level should disable logging")
	}

	var buf bytes.Buffer
	custom := NewLogger(LevelDebug, &buf, "")
	if got := (Options{LogLevel: "info", Logger: custom}).logger(); got != custom {
		t.Errorf("an explicit Logger should win over LogLevel")
	}
}

func TestLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(LevelInfo, &buf, "").With(map[string]any{"root": "App", "fold": "a b"})

	logger.Debugf("hidden")
	logger.Infof("folded %d components", 3)

	got := buf.String()
	if strings.Contains(got, "hidden") {
		t.Errorf("debug line logged at info level: %q", got)
	}
	if want := "[INFO] folded 3 components root=App fold=\"a b\"\n"; got != want {
		t.Errorf("log line = %q, want %q", got, want)
	}
}

func TestTextFormatter_Timestamp(t *testing.T) {
	f := newTextFormatter(DefaultLogTimeFormat)
	ts := time.Date(2024, 3, 9, 8, 7, 6, 0, time.UTC)

	got := string(f.format(ts, LevelWarn, "msg", nil))

	if want := "[WARN] 2024-03-09T08:07:06Z msg\n"; got != want {
		t.Errorf("format = %q, want %q", got, want)
	}
}

func TestParseLogLevel(t *testing.T) {
	tests := map[string]LogLevel{
		"error":   LevelError,
		"WARNING": LevelWarn,
		"info":    LevelInfo,
		"Debug":   LevelDebug,
		"bogus":   LevelWarn,
	}
	for in, want := range tests {
		if got := ParseLogLevel(in); got != want {
			t.Errorf("ParseLogLevel(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestFoldLogger(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(LevelDebug, &buf, "").With(map[string]any{"component": "Header"})

	foldLogger(base, "App", BranchRoot).Debugf("queued closure %s", "render")
	logFolded(foldLogger(base, "App", NewBranch), "Header", "inlined", 2)

	lines := strings.Split(strings.TrimSuffix(buf.String(), "\n"), "\n")
	if len(lines) != 2 {
		t.Fatalf("got %d lines: %q", len(lines), buf.String())
	}
	first, second := lines[0], lines[1]
	if !strings.HasPrefix(first, "[DEBUG] queued closure render root=App branch=ROOT fold=") {
		t.Errorf("fold fields should lead: %q", first)
	}
	if !strings.HasSuffix(first, " component=Header") {
		t.Errorf("other fields should follow: %q", first)
	}
	if !strings.HasPrefix(second, "[INFO]     ✔ Header (inlined) root=App branch=NEW_BRANCH fold=") {
		t.Errorf("progress line = %q", second)
	}
	idOf := func(line string) string {
		rest := line[strings.Index(line, "fold=")+len("fold="):]
		return strings.Fields(rest)[0]
	}
	if a, b := idOf(first), idOf(second); len(a) != 8 || a == b {
		t.Errorf("fold ids %q and %q should be distinct 8-character ids", a, b)
	}
}
