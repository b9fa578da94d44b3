package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmehdipour/visa-crm/internal/model"
)

type recordingWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *recordingWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.msgs = append(w.msgs, msgs...)
	return w.err
}

func (w *recordingWriter) Close() error {
	w.closed = true
	return nil
}

func sampleLog() model.SendLog {
	return model.SendLog{
		RunID:        "01JAB0C0000000000000000000",
		CustomerName: "Ali",
		Phone:        "971501234567",
		Message:      "Dear Ali, ...",
		Status:       "sent",
		Outcome:      model.OutcomeSent,
		SentAt:       time.Date(2026, 10, 17, 3, 0, 0, 0, time.UTC),
	}
}

func TestEncodeMessage(t *testing.T) {
	msg, err := EncodeMessage(sampleLog())
	require.NoError(t, err)

	assert.Equal(t, "971501234567", string(msg.Key))

	var ev Event
	require.NoError(t, json.Unmarshal(msg.Value, &ev))
	assert.Equal(t, "Ali", ev.CustomerName)
	assert.Equal(t, "sent", ev.Outcome)
	assert.Equal(t, "01JAB0C0000000000000000000", ev.RunID)
	assert.True(t, ev.SentAt.Equal(sampleLog().SentAt))
}

func TestPublisher_Publish(t *testing.T) {
	w := &recordingWriter{}
	p := &Publisher{w: w, timeout: time.Second}

	require.NoError(t, p.Publish(context.Background(), sampleLog()))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "971501234567", string(w.msgs[0].Key))

	w.err = errors.New("leader not available")
	assert.Error(t, p.Publish(context.Background(), sampleLog()))

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}
