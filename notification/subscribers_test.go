package notification_test

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AntonStoeckl/lending-ledger-go/notification"
	"github.com/AntonStoeckl/lending-ledger-go/observability"
	"github.com/AntonStoeckl/lending-ledger-go/testutil/testdoubles"
)

type brokenWriter struct{}

func (brokenWriter) Write([]byte) (int, error) {
	return 0, errors.New("pipe closed")
}

func Test_AlertSubscriber_WritesOneLinePerMessage(t *testing.T) {
	// arrange
	var out bytes.Buffer
	bus := newBus(t)
	bus.Subscribe(notification.NewAlertSubscriber("Alice", &out))

	// act
	require.NoError(t, bus.Publish(context.Background(), added("Dune")))
	require.NoError(t, bus.Publish(context.Background(),
		notification.NewMessage(notification.BookCopyLentToReader, "Dune", time.Now())))

	// assert
	assert.Equal(t, "Notification for Alice: Dune added\nNotification for Alice: Dune borrowed\n", out.String())
}

func Test_AlertSubscriber_WriteFailure_IsReported(t *testing.T) {
	subscriber := notification.NewAlertSubscriber("Alice", brokenWriter{})

	err := subscriber.Receive(context.Background(), added("Dune"))

	assert.EqualError(t, err, "pipe closed")
}

func Test_LogSubscriber_LogsEveryMessage(t *testing.T) {
	// arrange
	logger := testdoubles.NewContextualLoggerSpy()
	bus := newBus(t)
	bus.Subscribe(notification.NewLogSubscriber(nil, logger))

	// act
	require.NoError(t, bus.Publish(context.Background(), added("Dune")))

	// assert
	assert.True(t, logger.HasLogWithArg("info", observability.LogMsgNotification, observability.LogAttrTitle, "Dune"))
	assert.True(t, logger.HasLogWithArg("info", observability.LogMsgNotification,
		observability.LogAttrEventType, string(notification.BookCopyAddedToCirculation)))
}

func Test_LogSubscriber_FallsBackToPlainLogger(t *testing.T) {
	logger := testdoubles.NewContextualLoggerSpy()

	err := notification.NewLogSubscriber(logger, nil).Receive(context.Background(), added("Dune"))

	require.NoError(t, err)
	assert.True(t, logger.HasInfoLog(observability.LogMsgNotification))
}

func Test_MetricsSubscriber_CountsPerEventType(t *testing.T) {
	// arrange
	metrics := testdoubles.NewMetricsCollectorSpy()
	bus := newBus(t)
	bus.Subscribe(notification.NewMetricsSubscriber(metrics))

	// act
	require.NoError(t, bus.Publish(context.Background(), added("Dune")))
	require.NoError(t, bus.Publish(context.Background(), added("Emma")))
	require.NoError(t, bus.Publish(context.Background(),
		notification.NewMessage(notification.BookCopyReturnedByReader, "Dune", time.Now())))

	// assert
	assert.Equal(t, 2, metrics.HasCounterRecordForMetric(observability.NotificationMessagesMetric).
		WithLabel(observability.LogAttrEventType, string(notification.BookCopyAddedToCirculation)).
		Count())
	assert.Equal(t, 1, metrics.HasCounterRecordForMetric(observability.NotificationMessagesMetric).
		WithLabel(observability.LogAttrEventType, string(notification.BookCopyReturnedByReader)).
		Count())
}

func Test_JournalSubscriber_JournalCanBeReadBack(t *testing.T) {
	// arrange
	var journal bytes.Buffer
	bus := newBus(t)
	bus.Subscribe(notification.NewJournalSubscriber(&journal))
	occurredAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	published := notification.NewMessage(notification.BookCopyLentToReader, "Dune", occurredAt)

	// act
	require.NoError(t, bus.Publish(context.Background(), added("Emma")))
	require.NoError(t, bus.Publish(context.Background(), published))
	messages, err := notification.ReadJournal(&journal)

	// assert
	require.NoError(t, err)
	require.Len(t, messages, 2)
	assert.Equal(t, "Emma added", messages[0].Text)
	assert.Equal(t, published.ID, messages[1].ID)
	assert.Equal(t, uint64(2), messages[1].Sequence)
	assert.Equal(t, notification.BookCopyLentToReader, messages[1].EventType)
	assert.True(t, occurredAt.Equal(messages[1].OccurredAt))
}

func Test_JournalSubscriber_WriteFailure_IsReported(t *testing.T) {
	err := notification.NewJournalSubscriber(brokenWriter{}).Receive(context.Background(), added("Dune"))

	assert.ErrorContains(t, err, "writing journal entry")
}

func Test_ReadJournal_MalformedLine(t *testing.T) {
	_, err := notification.ReadJournal(strings.NewReader("{\"title\":\"Dune\"}\nnot json\n"))

	assert.ErrorContains(t, err, "decoding journal entry 2")
}
