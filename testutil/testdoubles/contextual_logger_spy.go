package testdoubles

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/lending-ledger-go/observability"
)

// ContextualLoggerSpy captures logging calls for testing.
// It implements both observability.ContextualLogger and observability.Logger.
type ContextualLoggerSpy struct {
	records []SpyLogRecord
	mu      sync.Mutex
}

// SpyLogRecord represents a recorded log call.
type SpyLogRecord struct {
	Level   string
	Message string
	Args    []any
	Context context.Context
}

// NewContextualLoggerSpy creates a new ContextualLoggerSpy.
func NewContextualLoggerSpy() *ContextualLoggerSpy {
	return &ContextualLoggerSpy{}
}

func (s *ContextualLoggerSpy) DebugContext(ctx context.Context, msg string, args ...any) {
	s.record(ctx, "debug", msg, args)
}

func (s *ContextualLoggerSpy) InfoContext(ctx context.Context, msg string, args ...any) {
	s.record(ctx, "info", msg, args)
}

func (s *ContextualLoggerSpy) WarnContext(ctx context.Context, msg string, args ...any) {
	s.record(ctx, "warn", msg, args)
}

func (s *ContextualLoggerSpy) ErrorContext(ctx context.Context, msg string, args ...any) {
	s.record(ctx, "error", msg, args)
}

func (s *ContextualLoggerSpy) Debug(msg string, args ...any) {
	s.record(context.Background(), "debug", msg, args)
}

func (s *ContextualLoggerSpy) Info(msg string, args ...any) {
	s.record(context.Background(), "info", msg, args)
}

func (s *ContextualLoggerSpy) Warn(msg string, args ...any) {
	s.record(context.Background(), "warn", msg, args)
}

func (s *ContextualLoggerSpy) Error(msg string, args ...any) {
	s.record(context.Background(), "error", msg, args)
}

func (s *ContextualLoggerSpy) record(ctx context.Context, level, msg string, args []any) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, SpyLogRecord{
		Level:   level,
		Message: msg,
		Args:    append([]any(nil), args...),
		Context: ctx,
	})
}

// GetRecords returns a copy of all log records of the given level.
func (s *ContextualLoggerSpy) GetRecords(level string) []SpyLogRecord {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []SpyLogRecord
	for _, r := range s.records {
		if r.Level == level {
			out = append(out, r)
		}
	}

	return out
}

// HasLog checks if a log with the level and message exists.
func (s *ContextualLoggerSpy) HasLog(level, message string) bool {
	for _, r := range s.GetRecords(level) {
		if r.Message == message {
			return true
		}
	}

	return false
}

// HasInfoLog checks if an info log with the message exists.
func (s *ContextualLoggerSpy) HasInfoLog(message string) bool { return s.HasLog("info", message) }

// HasWarnLog checks if a warn log with the message exists.
func (s *ContextualLoggerSpy) HasWarnLog(message string) bool { return s.HasLog("warn", message) }

// HasErrorLog checks if an error log with the message exists.
func (s *ContextualLoggerSpy) HasErrorLog(message string) bool { return s.HasLog("error", message) }

// HasLogWithArg checks if a log with the level and message carries the key/value pair.
func (s *ContextualLoggerSpy) HasLogWithArg(level, message, key string, value any) bool {
	for _, r := range s.GetRecords(level) {
		if r.Message != message {
			continue
		}

		for i := 0; i+1 < len(r.Args); i += 2 {
			if r.Args[i] == key && r.Args[i+1] == value {
				return true
			}
		}
	}

	return false
}

var (
	_ observability.ContextualLogger = (*ContextualLoggerSpy)(nil)
	_ observability.Logger           = (*ContextualLoggerSpy)(nil)
)
