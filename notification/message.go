// Package notification broadcasts catalog state changes to subscribers.
//
// Messages are delivered synchronously, in the order in which the mutations
// producing them were committed. A failing subscriber never prevents delivery
// to the others.
package notification

import (
	"time"

	"github.com/google/uuid"
)

// EventType names the catalog change a Message reports.
type EventType string

const (
	BookCopyAddedToCirculation EventType = "BookCopyAddedToCirculation"
	BookCopyLentToReader       EventType = "BookCopyLentToReader"
	BookCopyReturnedByReader   EventType = "BookCopyReturnedByReader"
)

// Message is the payload delivered to subscribers.
// Sequence is assigned by the Bus at delivery and increases by one per delivered message.
type Message struct {
	ID         uuid.UUID `json:"id"`
	Sequence   uint64    `json:"sequence"`
	EventType  EventType `json:"event_type"`
	Title      string    `json:"title"`
	Text       string    `json:"text"`
	OccurredAt time.Time `json:"occurred_at"`
}

// NewMessage builds the message for a catalog change of title.
// Text is "<title> added", "<title> borrowed" or "<title> returned".
func NewMessage(eventType EventType, title string, occurredAt time.Time) Message {
	return Message{
		ID:         uuid.New(),
		EventType:  eventType,
		Title:      title,
		Text:       title + " " + verb(eventType),
		OccurredAt: occurredAt,
	}
}

func verb(eventType EventType) string {
	switch eventType {
	case BookCopyAddedToCirculation:
		return "added"
	case BookCopyLentToReader:
		return "borrowed"
	case BookCopyReturnedByReader:
		return "returned"
	default:
		return string(eventType)
	}
}
