package reconciler

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/itchyny/timefmt-go"
)

// LogLevel represents the severity level for logs.
type LogLevel int

const (
	LevelError LogLevel = iota
	LevelWarn
	LevelInfo
	LevelDebug
)

var levelNames = [...]string{"ERROR", "WARN", "INFO", "DEBUG"}

func (l LogLevel) String() string {
	if l < 0 || int(l) >= len(levelNames) {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLogLevel parses a string into a LogLevel. Unknown names log at warn.
func ParseLogLevel(s string) LogLevel {
	s = strings.ToUpper(s)
	if s == "WARNING" {
		return LevelWarn
	}
	for i, name := range levelNames {
		if name == s {
			return LogLevel(i)
		}
	}
	return LevelWarn
}

// Logger is the interface used by the reconciler for logging.
type Logger interface {
	Debugf(format string, args ...any)
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
	Errorf(format string, args ...any)

	// With returns a child logger augmented with the provided fields.
	With(fields map[string]any) Logger
}

// DefaultLogTimeFormat is the strftime layout used for log timestamps.
const DefaultLogTimeFormat = "%Y-%m-%dT%H:%M:%SZ"

// Fields every line logged inside a fold carries, in this order and ahead
// of any other field.
const (
	fieldRoot   = "root"
	fieldBranch = "branch"
	fieldFold   = "fold"
)

var foldFieldOrder = []string{fieldRoot, fieldBranch, fieldFold}

// foldLogger scopes base to one root or closure fold. The fold id tells
// apart repeated folds of the same name in a single run.
func foldLogger(base Logger, root string, branch BranchStatus) Logger {
	return base.With(map[string]any{
		fieldRoot:   root,
		fieldBranch: branch,
		fieldFold:   uuid.NewString()[:8],
	})
}

// logFolded writes the verbose progress line for a folded component.
func logFolded(l Logger, name, label string, depth int) {
	l.Infof("%s✔ %s (%s)", strings.Repeat("  ", depth), name, label)
}

// textFormatter emits one line per entry:
// [LEVEL] ts msg root=.. branch=.. fold=.. key=val ...
type textFormatter struct {
	timeFormat string
}

func newTextFormatter(timeFormat string) *textFormatter {
	return &textFormatter{timeFormat: timeFormat}
}

func (f *textFormatter) format(ts time.Time, level LogLevel, msg string, fields map[string]any) []byte {
	var b strings.Builder
	b.Grow(128)

	b.WriteByte('[')
	b.WriteString(level.String())
	b.WriteString("] ")
	if f.timeFormat != "" {
		b.WriteString(timefmt.Format(ts.UTC(), f.timeFormat))
		b.WriteByte(' ')
	}
	b.WriteString(msg)

	for _, k := range fieldKeys(fields) {
		b.WriteByte(' ')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(safeSprint(fields[k]))
	}
	b.WriteByte('\n')
	return []byte(b.String())
}

// fieldKeys orders the fold fields first, then the rest alphabetically.
func fieldKeys(fields map[string]any) []string {
	keys := make([]string, 0, len(fields))
	for _, k := range foldFieldOrder {
		if _, ok := fields[k]; ok {
			keys = append(keys, k)
		}
	}
	var rest []string
	for k := range fields {
		switch k {
		case fieldRoot, fieldBranch, fieldFold:
			continue
		}
		rest = append(rest, k)
	}
	sort.Strings(rest)
	return append(keys, rest...)
}

func safeSprint(v any) string {
	switch t := v.(type) {
	case string:
		if strings.IndexFunc(t, func(r rune) bool { return r <= ' ' }) >= 0 {
			return fmt.Sprintf("%q", t)
		}
		return t
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(v)
	}
}

// textLogger writes formatted lines to out. Child loggers share the mutex.
type textLogger struct {
	out       io.Writer
	level     LogLevel
	formatter *textFormatter
	fields    map[string]any
	mu        *sync.Mutex
}

// NewLogger creates a text logger with the given level.
// If w is nil, os.Stderr is used. An empty timeFormat omits timestamps.
func NewLogger(level LogLevel, w io.Writer, timeFormat string) Logger {
	if w == nil {
		w = os.Stderr
	}
	return &textLogger{
		out:       w,
		level:     level,
		formatter: newTextFormatter(timeFormat),
		mu:        &sync.Mutex{},
	}
}

type noopLogger struct{}

func (noopLogger) Debugf(string, ...any)        {}
func (noopLogger) Infof(string, ...any)         {}
func (noopLogger) Warnf(string, ...any)         {}
func (noopLogger) Errorf(string, ...any)        {}
func (l noopLogger) With(map[string]any) Logger { return l }

// NewNoopLogger returns a logger that discards all output.
func NewNoopLogger() Logger {
	return noopLogger{}
}

func (l *textLogger) With(fields map[string]any) Logger {
	if len(fields) == 0 {
		return l
	}
	merged := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	child := *l
	child.fields = merged
	return &child
}

func (l *textLogger) Debugf(format string, args ...any) { l.logf(LevelDebug, format, args...) }
func (l *textLogger) Infof(format string, args ...any)  { l.logf(LevelInfo, format, args...) }
func (l *textLogger) Warnf(format string, args ...any)  { l.logf(LevelWarn, format, args...) }
func (l *textLogger) Errorf(format string, args ...any) { l.logf(LevelError, format, args...) }

func (l *textLogger) logf(level LogLevel, format string, args ...any) {
	if level > l.level {
		return
	}
	line := l.formatter.format(time.Now(), level, fmt.Sprintf(format, args...), l.fields)

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = l.out.Write(line)
}
