// Package applog is a small context-carried, severity-leveled logger in the
// style used throughout the host runtime: a logger is bound to a
// context.Context once near the process root, and every subsystem logs
// through that context rather than a package-level global or fmt.Println.
package applog

import (
	"context"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/pkg/errors"
)

// Severity orders the standard log levels, lowest first.
type Severity int

const (
	Debug Severity = iota
	Info
	Warning
	Error
	Fatal
)

func (s Severity) String() string {
	switch s {
	case Debug:
		return "D"
	case Info:
		return "I"
	case Warning:
		return "W"
	case Error:
		return "E"
	case Fatal:
		return "F"
	default:
		return "?"
	}
}

// Logger writes leveled, tagged messages to an underlying writer.
type Logger struct {
	mu     sync.Mutex
	out    io.Writer
	tag    string
	min    Severity
	fataler func(string)
}

// New returns a Logger writing to w, tagged with tag (typically a component
// name such as "scheduler" or "hive"), filtering anything below min.
func New(w io.Writer, tag string, min Severity) *Logger {
	return &Logger{out: w, tag: tag, min: min, fataler: func(s string) { os.Exit(1) }}
}

// Default returns a Logger writing to stderr at Info and above.
func Default(tag string) *Logger {
	return New(os.Stderr, tag, Info)
}

func (l *Logger) log(sev Severity, format string, args ...interface{}) {
	if sev < l.min {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	fmt.Fprintf(l.out, "%s [%s] %s: %s\n", time.Now().UTC().Format(time.RFC3339Nano), sev, l.tag, msg)
	if sev == Fatal && l.fataler != nil {
		l.fataler(msg)
	}
}

// With returns a copy of the logger tagged with an additional suffix, used
// to narrow a subsystem logger down to one document or channel kind.
func (l *Logger) With(suffix string) *Logger {
	return &Logger{out: l.out, tag: l.tag + "." + suffix, min: l.min, fataler: l.fataler}
}

type ctxKey struct{}

// Bind attaches logger to ctx, returning the derived context.
func Bind(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, ctxKey{}, logger)
}

// From retrieves the logger bound to ctx, or a process-wide default one
// tagged "untagged" if none was bound.
func From(ctx context.Context) *Logger {
	if l, ok := ctx.Value(ctxKey{}).(*Logger); ok && l != nil {
		return l
	}
	return defaultLogger
}

var defaultLogger = Default("untagged")

// D logs at Debug severity.
func D(ctx context.Context, format string, args ...interface{}) { From(ctx).log(Debug, format, args...) }

// I logs at Info severity.
func I(ctx context.Context, format string, args ...interface{}) { From(ctx).log(Info, format, args...) }

// W logs at Warning severity.
func W(ctx context.Context, format string, args ...interface{}) {
	From(ctx).log(Warning, format, args...)
}

// E logs at Error severity.
func E(ctx context.Context, format string, args ...interface{}) { From(ctx).log(Error, format, args...) }

// Err wraps err with the given message (via github.com/pkg/errors, preserving
// a stack trace), logs it at Error severity, and returns the wrapped error so
// call sites can do `return applog.Err(ctx, err, "opening document")`.
func Err(ctx context.Context, err error, format string, args ...interface{}) error {
	wrapped := errors.Wrap(err, fmt.Sprintf(format, args...))
	From(ctx).log(Error, "%v", wrapped)
	return wrapped
}

// Errf is Err without an underlying cause, for reporting a new error value.
func Errf(ctx context.Context, format string, args ...interface{}) error {
	err := errors.Errorf(format, args...)
	From(ctx).log(Error, "%v", err)
	return err
}

// Fatal logs at Fatal severity and terminates the process.
func Fatal(ctx context.Context, format string, args ...interface{}) {
	From(ctx).log(Fatal, format, args...)
}
