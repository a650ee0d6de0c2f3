package observability

import (
	"context"
	"log/slog"
	"sync"
)

// Severity classifies a message shown to the user.
type Severity int

const (
	// SeverityInfo is an informational message.
	SeverityInfo Severity = iota
	// SeverityWarning is a recoverable problem the user should know about.
	SeverityWarning
	// SeverityError is a failure the user must act on.
	SeverityError
)

// String returns the lower-case severity name.
func (s Severity) String() string {
	switch s {
	case SeverityWarning:
		return "warning"
	case SeverityError:
		return "error"
	default:
		return "info"
	}
}

// Surface displays messages to the user: a terminal line, an editor popup,
// a DAP output event.
type Surface interface {
	Show(severity Severity, message string)
}

// SurfaceFunc adapts a function to Surface.
type SurfaceFunc func(severity Severity, message string)

// Show calls f(severity, message).
func (f SurfaceFunc) Show(severity Severity, message string) {
	f(severity, message)
}

// Notifier is the leveled notification sink used by the backend and session
// packages. Warn and Error are always surfaced to the user; Info only when
// Announce is used.
type Notifier interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Announce(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Sink is a Notifier writing to a slog.Logger and, for user-visible
// messages, to a replaceable Surface.
type Sink struct {
	logger *slog.Logger

	mu      *sync.RWMutex
	surface *Surface
}

// NewSink returns a Sink logging to logger. A nil surface only logs.
func NewSink(logger *slog.Logger, surface Surface) *Sink {
	if logger == nil {
		logger = slog.Default()
	}

	return &Sink{logger: logger, mu: &sync.RWMutex{}, surface: &surface}
}

// With returns a Sink sharing the same surface whose log records carry args.
func (s *Sink) With(args ...any) *Sink {
	return &Sink{logger: s.logger.With(args...), mu: s.mu, surface: s.surface}
}

// Logger returns the underlying structured logger.
func (s *Sink) Logger() *slog.Logger {
	return s.logger
}

// SetSurface replaces the user-visible surface for this sink and every sink
// derived from it with With. It returns the previous surface.
func (s *Sink) SetSurface(surface Surface) Surface {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := *s.surface
	*s.surface = surface

	return prev
}

// Debug logs a debug-level record.
func (s *Sink) Debug(msg string, args ...any) {
	s.logger.Debug(msg, args...)
}

// Info logs an info-level record.
func (s *Sink) Info(msg string, args ...any) {
	s.logger.Info(msg, args...)
}

// Announce logs at info level and shows the message to the user.
func (s *Sink) Announce(msg string, args ...any) {
	s.logger.Info(msg, args...)
	s.show(SeverityInfo, msg)
}

// Warn logs a warning and shows it to the user.
func (s *Sink) Warn(msg string, args ...any) {
	s.logger.Warn(msg, args...)
	s.show(SeverityWarning, msg)
}

// Error logs an error and shows it to the user.
func (s *Sink) Error(msg string, args ...any) {
	s.logger.Error(msg, args...)
	s.show(SeverityError, msg)
}

func (s *Sink) show(severity Severity, msg string) {
	s.mu.RLock()
	surface := *s.surface
	s.mu.RUnlock()

	if surface != nil {
		surface.Show(severity, msg)
	}
}

type sinkKey struct{}

// WithSink returns a new context carrying the given sink.
func WithSink(ctx context.Context, sink *Sink) context.Context {
	return context.WithValue(ctx, sinkKey{}, sink)
}

// SinkFromContext extracts the sink from ctx, falling back to a sink over
// the context logger with no surface.
func SinkFromContext(ctx context.Context) *Sink {
	if sink, ok := ctx.Value(sinkKey{}).(*Sink); ok && sink != nil {
		return sink
	}

	return NewSink(FromContext(ctx), nil)
}

var _ Notifier = (*Sink)(nil)
