// Package events provides the structured event stream the sync core emits.
//
// Every entry carries a severity and a category; the CLI layer decides which
// categories render. In cron mode only routine download lines and unexpected
// errors are shown, so a scheduler mailing stderr is not spammed every time
// the vehicle is simply away from the network.
package events

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

// LogLevel represents logging severity.
type LogLevel int

const (
	DebugLevel LogLevel = iota
	InfoLevel
	WarnLevel
	ErrorLevel
)

// Category tags an event for scheduler-aware filtering.
type Category string

const (
	// CategoryRoutine marks normal/manual recording downloads, the one
	// thing cron mode still reports.
	CategoryRoutine Category = "routine-download"

	// CategoryOffline marks expected device-offline conditions.
	CategoryOffline Category = "error-expected-offline"

	// CategoryUnexpected marks conditions that always render.
	CategoryUnexpected Category = "error-unexpected"
)

// Logger provides structured, category-aware logging.
type Logger struct {
	mu       sync.Mutex
	level    LogLevel
	cron     bool
	format   string
	output   io.Writer
	fields   map[string]interface{}
	category Category
}

// New creates a logger writing to output in the given format ("text" or
// "json"). In cron mode, entries below error severity render only when
// tagged CategoryRoutine or CategoryUnexpected.
func New(level LogLevel, format string, cron bool, output io.Writer) *Logger {
	return &Logger{
		level:  level,
		cron:   cron,
		format: format,
		output: output,
		fields: make(map[string]interface{}),
	}
}

// NewTestLogger creates a logger for testing.
func NewTestLogger(level LogLevel, format string, output io.Writer) *Logger {
	return New(level, format, false, output)
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return New(ErrorLevel+1, "text", false, io.Discard)
}

func (l *Logger) clone() *Logger {
	newFields := make(map[string]interface{}, len(l.fields)+1)
	for k, v := range l.fields {
		newFields[k] = v
	}
	return &Logger{
		level:    l.level,
		cron:     l.cron,
		format:   l.format,
		output:   l.output,
		fields:   newFields,
		category: l.category,
	}
}

// WithField returns a logger with an additional field.
func (l *Logger) WithField(key string, value interface{}) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.clone()
	c.fields[key] = value
	return c
}

// WithFields returns a logger with additional fields.
func (l *Logger) WithFields(fields map[string]interface{}) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.clone()
	for k, v := range fields {
		c.fields[k] = v
	}
	return c
}

// WithError adds an error field.
func (l *Logger) WithError(err error) *Logger {
	return l.WithField("error", err.Error())
}

// WithCategory tags subsequent entries with a filtering category.
func (l *Logger) WithCategory(cat Category) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()

	c := l.clone()
	c.category = cat
	return c
}

// Debug logs at debug level.
func (l *Logger) Debug(msg string) { l.log(DebugLevel, msg) }

// Info logs at info level.
func (l *Logger) Info(msg string) { l.log(InfoLevel, msg) }

// Warn logs at warn level.
func (l *Logger) Warn(msg string) { l.log(WarnLevel, msg) }

// Error logs at error level.
func (l *Logger) Error(msg string) { l.log(ErrorLevel, msg) }

// shouldLog applies severity and, in cron mode, category filtering.
func (l *Logger) shouldLog(level LogLevel) bool {
	if level < l.level {
		return false
	}
	if !l.cron || level >= ErrorLevel {
		return true
	}
	switch l.category {
	case CategoryRoutine:
		return level >= InfoLevel
	case CategoryUnexpected:
		return true
	default:
		return false
	}
}

func (l *Logger) log(level LogLevel, msg string) {
	if !l.shouldLog(level) {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	entry := l.buildEntry(level, msg)

	if l.format == "json" {
		l.writeJSON(entry)
	} else {
		l.writeText(entry)
	}
}

func (l *Logger) buildEntry(level LogLevel, msg string) map[string]interface{} {
	entry := map[string]interface{}{
		"time":  time.Now().UTC().Format(time.RFC3339Nano),
		"level": levelString(level),
		"msg":   msg,
	}

	if l.category != "" {
		entry["category"] = string(l.category)
	}

	for k, v := range l.fields {
		entry[k] = v
	}

	return entry
}

// writeJSON outputs JSON format.
func (l *Logger) writeJSON(entry map[string]interface{}) {
	var sb strings.Builder
	sb.WriteString("{")

	first := true
	for k, v := range entry {
		if !first {
			sb.WriteString(",")
		}
		first = false

		sb.WriteString(fmt.Sprintf(`"%s":`, k))

		switch val := v.(type) {
		case string:
			sb.WriteString(fmt.Sprintf(`"%s"`, escapeJSON(val)))
		case int, int64, float64, bool:
			sb.WriteString(fmt.Sprintf("%v", val))
		default:
			sb.WriteString(fmt.Sprintf(`"%v"`, val))
		}
	}

	sb.WriteString("}\n")
	_, _ = l.output.Write([]byte(sb.String()))
}

// writeText outputs human-readable format.
func (l *Logger) writeText(entry map[string]interface{}) {
	levelStr := strings.ToUpper(entry["level"].(string))

	var levelColor, reset string
	if isTerminal(l.output) {
		reset = "\033[0m"
		switch levelStr {
		case "DEBUG":
			levelColor = "\033[36m"
		case "INFO":
			levelColor = "\033[32m"
		case "WARN":
			levelColor = "\033[33m"
		case "ERROR":
			levelColor = "\033[31m"
		}
	}

	fmt.Fprintf(l.output, "%s %s[%s]%s %s",
		entry["time"],
		levelColor,
		levelStr,
		reset,
		entry["msg"],
	)

	for k, v := range entry {
		if k == "time" || k == "level" || k == "msg" {
			continue
		}
		fmt.Fprintf(l.output, " %s=%v", k, v)
	}

	fmt.Fprintln(l.output)
}

func parseLevel(s string) LogLevel {
	switch strings.ToLower(s) {
	case "debug":
		return DebugLevel
	case "warn":
		return WarnLevel
	case "error":
		return ErrorLevel
	default:
		return InfoLevel
	}
}

// ParseLevel maps a level name to its LogLevel, defaulting to info.
func ParseLevel(s string) LogLevel { return parseLevel(s) }

func levelString(l LogLevel) string {
	switch l {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warn"
	case ErrorLevel:
		return "error"
	default:
		return "unknown"
	}
}

func escapeJSON(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	s = strings.ReplaceAll(s, `"`, `\"`)
	s = strings.ReplaceAll(s, "\n", `\n`)
	s = strings.ReplaceAll(s, "\r", `\r`)
	s = strings.ReplaceAll(s, "\t", `\t`)
	return s
}

func isTerminal(w io.Writer) bool {
	if f, ok := w.(*os.File); ok {
		return term.IsTerminal(int(f.Fd()))
	}
	return false
}
