package notification

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"sync"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/lending-ledger-go/observability"
)

// AlertSubscriber shows notifications to one person, one line per message:
// "Notification for <name>: <text>".
type AlertSubscriber struct {
	name string

	mu  sync.Mutex
	out io.Writer
}

func NewAlertSubscriber(name string, out io.Writer) *AlertSubscriber {
	return &AlertSubscriber{name: name, out: out}
}

func (s *AlertSubscriber) Receive(_ context.Context, msg Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := fmt.Fprintf(s.out, "Notification for %s: %s\n", s.name, msg.Text)

	return err
}

// LogSubscriber writes every notification to a log sink at info level.
type LogSubscriber struct {
	collectors observability.Collectors
}

// NewLogSubscriber creates a log sink. The contextual logger is preferred when both are given.
func NewLogSubscriber(logger observability.Logger, contextualLogger observability.ContextualLogger) *LogSubscriber {
	return &LogSubscriber{collectors: observability.Collectors{Logger: logger, ContextualLogger: contextualLogger}}
}

func (s *LogSubscriber) Receive(ctx context.Context, msg Message) error {
	observability.LogInfo(ctx, s.collectors, observability.LogMsgNotification,
		observability.LogAttrEventType, string(msg.EventType),
		observability.LogAttrTitle, msg.Title,
		observability.LogAttrSequence, msg.Sequence,
	)

	return nil
}

// MetricsSubscriber counts notifications per event type in notification_messages_total.
type MetricsSubscriber struct {
	collector observability.MetricsCollector
}

func NewMetricsSubscriber(collector observability.MetricsCollector) *MetricsSubscriber {
	return &MetricsSubscriber{collector: collector}
}

func (s *MetricsSubscriber) Receive(ctx context.Context, msg Message) error {
	observability.IncrementCounter(ctx, s.collector, observability.NotificationMessagesMetric, map[string]string{
		observability.LogAttrEventType: string(msg.EventType),
	})

	return nil
}

// JournalSubscriber appends every notification as one JSON line. ReadJournal reads them back.
type JournalSubscriber struct {
	mu  sync.Mutex
	out io.Writer
}

func NewJournalSubscriber(out io.Writer) *JournalSubscriber {
	return &JournalSubscriber{out: out}
}

func (s *JournalSubscriber) Receive(_ context.Context, msg Message) error {
	line, err := jsoniter.ConfigFastest.Marshal(msg)
	if err != nil {
		return fmt.Errorf("encoding journal entry: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err = s.out.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("writing journal entry: %w", err)
	}

	return nil
}

// ReadJournal decodes the messages written by a JournalSubscriber, in journal order.
func ReadJournal(r io.Reader) ([]Message, error) {
	var messages []Message

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if len(scanner.Bytes()) == 0 {
			continue
		}

		var msg Message
		if err := jsoniter.ConfigFastest.Unmarshal(scanner.Bytes(), &msg); err != nil {
			return nil, fmt.Errorf("decoding journal entry %d: %w", len(messages)+1, err)
		}

		messages = append(messages, msg)
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}
