package logging

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// LogLevel represents the severity of a log message
type LogLevel string

const (
	LogLevelDebug LogLevel = "DEBUG"
	LogLevelInfo  LogLevel = "INFO"
	LogLevelWarn  LogLevel = "WARN"
	LogLevelError LogLevel = "ERROR"
)

var levelRank = map[LogLevel]int{
	LogLevelDebug: 0,
	LogLevelInfo:  1,
	LogLevelWarn:  2,
	LogLevelError: 3,
}

var (
	defaultMu       sync.Mutex
	defaultMinLevel = LogLevelInfo
)

// SetGlobalMinLevel sets the minimum level for loggers created afterwards
func SetGlobalMinLevel(level LogLevel) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultMinLevel = level
}

// ParseLevel maps a config string to a log level, defaulting to INFO
func ParseLevel(s string) LogLevel {
	switch LogLevel(s) {
	case LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError:
		return LogLevel(s)
	default:
		return LogLevelInfo
	}
}

// Entry is a single log record before formatting
type Entry struct {
	Timestamp time.Time
	Level     LogLevel
	Component string
	Message   string
	Err       error
	Context   map[string]interface{}
}

// Formatter renders an entry for output
type Formatter interface {
	Format(e *Entry) string
}

// TextFormatter renders entries as single human-readable lines
type TextFormatter struct{}

func (f *TextFormatter) Format(e *Entry) string {
	msg := fmt.Sprintf("[%s] %s [%s] %s",
		e.Timestamp.Format("2006-01-02 15:04:05.000"), e.Level, e.Component, e.Message)
	if e.Err != nil {
		msg += fmt.Sprintf(" | error=%v", e.Err)
	}
	for k, v := range e.Context {
		msg += fmt.Sprintf(" %s=%v", k, v)
	}
	return msg + "\n"
}

// Logger provides leveled, component-scoped logging
type Logger struct {
	component string
	minLevel  LogLevel
	outputs   []io.Writer
	formatter Formatter
	mu        sync.Mutex
}

// New creates a logger for a named component, writing to stdout at the
// global minimum level
func New(component string) *Logger {
	defaultMu.Lock()
	minLevel := defaultMinLevel
	defaultMu.Unlock()
	return &Logger{
		component: component,
		minLevel:  minLevel,
		outputs:   []io.Writer{os.Stdout},
		formatter: &TextFormatter{},
	}
}

// SetMinLevel sets the minimum level that will be emitted
func (l *Logger) SetMinLevel(level LogLevel) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.minLevel = level
	return l
}

// AddOutput adds an additional output writer (e.g. a log file)
func (l *Logger) AddOutput(w io.Writer) *Logger {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.outputs = append(l.outputs, w)
	return l
}

func (l *Logger) log(level LogLevel, message string, err error, ctx map[string]interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if levelRank[level] < levelRank[l.minLevel] {
		return
	}

	entry := &Entry{
		Timestamp: time.Now(),
		Level:     level,
		Component: l.component,
		Message:   message,
		Err:       err,
		Context:   ctx,
	}

	formatted := l.formatter.Format(entry)
	for _, out := range l.outputs {
		out.Write([]byte(formatted))
	}
}

func (l *Logger) Debug(message string) {
	l.log(LogLevelDebug, message, nil, nil)
}

func (l *Logger) Debugf(format string, args ...interface{}) {
	l.log(LogLevelDebug, fmt.Sprintf(format, args...), nil, nil)
}

func (l *Logger) Info(message string) {
	l.log(LogLevelInfo, message, nil, nil)
}

func (l *Logger) Infof(format string, args ...interface{}) {
	l.log(LogLevelInfo, fmt.Sprintf(format, args...), nil, nil)
}

func (l *Logger) InfoWithContext(message string, ctx map[string]interface{}) {
	l.log(LogLevelInfo, message, nil, ctx)
}

func (l *Logger) Warn(message string) {
	l.log(LogLevelWarn, message, nil, nil)
}

func (l *Logger) Warnf(format string, args ...interface{}) {
	l.log(LogLevelWarn, fmt.Sprintf(format, args...), nil, nil)
}

func (l *Logger) Error(message string, err error) {
	l.log(LogLevelError, message, err, nil)
}

func (l *Logger) ErrorWithContext(message string, err error, ctx map[string]interface{}) {
	l.log(LogLevelError, message, err, ctx)
}
