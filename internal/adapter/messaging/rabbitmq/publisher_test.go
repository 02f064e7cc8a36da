package rabbitmq

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"user-events-service/internal/domain/user"
	"user-events-service/internal/metrics"
	apperrors "user-events-service/pkg/errors"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

// fakeChannel records publishings and fails with err when set.
type fakeChannel struct {
	mu   sync.Mutex
	sent []published
	err  error
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func newTestPublisher(t *testing.T, ch Channel) *Publisher {
	p := NewPublisher(ch, "user_events", zaptest.NewLogger(t))
	p.now = func() time.Time { return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC) }
	return p
}

func TestRoutingKey(t *testing.T) {
	ada := user.User{ID: 1, Name: "Ada", Email: "ada@example.com"}

	tests := []struct {
		name     string
		resp     user.Response
		wantKey  string
		wantKind apperrors.Kind
		wantErr  bool
	}{
		{name: "created", resp: user.Created{User: ada}, wantKey: "user.created"},
		{name: "updated", resp: user.Updated{User: ada}, wantKey: "user.updated"},
		{name: "deleted", resp: user.Deleted{ID: 1}, wantKey: "user.deleted"},
		{name: "fetched", resp: user.Fetched{User: ada}, wantErr: true, wantKind: apperrors.KindValidation},
		{name: "listed", resp: user.Listed{Page: user.NewPage(nil, 10, 0)}, wantErr: true, wantKind: apperrors.KindValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			key, err := RoutingKey(tt.resp)
			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantKind, apperrors.KindOf(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKey, key)
		})
	}
}

func TestPublisher_Publish(t *testing.T) {
	ada := user.User{ID: 1, Name: "Ada", Email: "ada@example.com"}

	tests := []struct {
		name     string
		resp     user.Response
		wantKey  string
		wantBody string
	}{
		{"created carries the user", user.Created{User: ada}, "user.created", `{"id":1,"name":"Ada","email":"ada@example.com"}`},
		{"updated carries the new state", user.Updated{User: user.User{ID: 1, Name: "Ada L.", Email: "ada@example.com"}}, "user.updated", `{"id":1,"name":"Ada L.","email":"ada@example.com"}`},
		{"deleted carries the bare id", user.Deleted{ID: 5}, "user.deleted", `5`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := &fakeChannel{}
			p := newTestPublisher(t, ch)

			require.NoError(t, p.Publish(context.Background(), tt.resp))
			require.Len(t, ch.sent, 1)

			got := ch.sent[0]
			assert.Equal(t, "user_events", got.exchange)
			assert.Equal(t, tt.wantKey, got.key)
			assert.JSONEq(t, tt.wantBody, string(got.msg.Body))
			assert.Equal(t, "application/json", got.msg.ContentType)
			assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
			assert.Equal(t, tt.wantKey, got.msg.Type)
			assert.NotEmpty(t, got.msg.MessageId)
			assert.Equal(t, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), got.msg.Timestamp)
		})
	}
}

func TestPublisher_Publish_UniqueMessageIDs(t *testing.T) {
	ch := &fakeChannel{}
	p := newTestPublisher(t, ch)

	require.NoError(t, p.Publish(context.Background(), user.Deleted{ID: 1}))
	require.NoError(t, p.Publish(context.Background(), user.Deleted{ID: 1}))
	require.Len(t, ch.sent, 2)
	assert.NotEqual(t, ch.sent[0].msg.MessageId, ch.sent[1].msg.MessageId)
}

func TestPublisher_Publish_NonMutatingIsRejected(t *testing.T) {
	ch := &fakeChannel{}
	p := newTestPublisher(t, ch)

	err := p.Publish(context.Background(), user.Fetched{User: user.User{ID: 1}})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	assert.Empty(t, ch.sent)
}

func TestPublisher_Publish_ClosedChannel(t *testing.T) {
	metrics.EventsPublishedTotal.Reset()
	ch := &fakeChannel{err: amqp.ErrClosed}
	p := newTestPublisher(t, ch)

	err := p.Publish(context.Background(), user.Created{User: user.User{ID: 1, Name: "Ada", Email: "ada@example.com"}})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTransport, apperrors.KindOf(err))
	assert.ErrorIs(t, err, amqp.ErrClosed)
	assert.Equal(t, float64(1), testutil.ToFloat64(
		metrics.EventsPublishedTotal.WithLabelValues(RoutingKeyCreated, metrics.OutcomeFailure)))
}

func TestPublisher_Publish_EncodingFailure(t *testing.T) {
	ch := &fakeChannel{}
	p := newTestPublisher(t, ch)
	p.marshal = func(any) ([]byte, error) { return nil, errors.New("unsupported value") }

	err := p.Publish(context.Background(), user.Updated{User: user.User{ID: 1}})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindSerialization, apperrors.KindOf(err))
	assert.Empty(t, ch.sent)
}
