package testdoubles

import (
	"context"
	"sync"

	"github.com/AntonStoeckl/lending-ledger-go/notification"
)

// RecordingSubscriber records every message it receives. It can be told to fail or panic
// after recording.
type RecordingSubscriber struct {
	mu       sync.Mutex
	messages []notification.Message
	failWith error
	panicMsg any
}

func NewRecordingSubscriber() *RecordingSubscriber {
	return &RecordingSubscriber{}
}

// FailWith makes every following Receive return err.
func (s *RecordingSubscriber) FailWith(err error) *RecordingSubscriber {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failWith = err

	return s
}

// PanicWith makes every following Receive panic with v.
func (s *RecordingSubscriber) PanicWith(v any) *RecordingSubscriber {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.panicMsg = v

	return s
}

func (s *RecordingSubscriber) Receive(_ context.Context, msg notification.Message) error {
	s.mu.Lock()
	s.messages = append(s.messages, msg)
	failWith, panicMsg := s.failWith, s.panicMsg
	s.mu.Unlock()

	if panicMsg != nil {
		panic(panicMsg)
	}

	return failWith
}

func (s *RecordingSubscriber) Messages() []notification.Message {
	s.mu.Lock()
	defer s.mu.Unlock()

	return append([]notification.Message(nil), s.messages...)
}

// Texts returns the texts of the received messages in order.
func (s *RecordingSubscriber) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	texts := make([]string, 0, len(s.messages))
	for _, msg := range s.messages {
		texts = append(texts, msg.Text)
	}

	return texts
}

func (s *RecordingSubscriber) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.messages)
}
