package user_test

import (
	"context"
	"encoding/json"
	"sync"
	"testing"

	"github.com/glebarez/sqlite"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"user-events-service/internal/adapter/db/postgres"
	"user-events-service/internal/adapter/messaging/rabbitmq"
	domain "user-events-service/internal/domain/user"
	"user-events-service/internal/usecase/user"
	apperrors "user-events-service/pkg/errors"
)

type recordingChannel struct {
	mu   sync.Mutex
	keys []string
	msgs []amqp.Publishing
}

func (c *recordingChannel) PublishWithContext(_ context.Context, _, key string, _, _ bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys = append(c.keys, key)
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *recordingChannel) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys, c.msgs = nil, nil
}

func setupPipeline(t *testing.T) (*user.Dispatcher, *recordingChannel) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, db.AutoMigrate(&postgres.UserSchema{}))

	log := zaptest.NewLogger(t)
	ch := &recordingChannel{}
	repo := postgres.NewUserRepoPG(db, log, 0)
	pub := rabbitmq.NewPublisher(ch, "user_events", log)
	return user.New(repo, pub, log), ch
}

func TestPipeline_AdaLifecycle(t *testing.T) {
	d, ch := setupPipeline(t)
	ctx := context.Background()
	ada := domain.User{ID: 1, Name: "Ada", Email: "ada@example.com"}

	// create
	resp, err := d.Execute(ctx, domain.CreateCommand{Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.Created{User: ada}, resp)
	require.Len(t, ch.keys, 1)
	assert.Equal(t, "user.created", ch.keys[0])
	var published domain.User
	require.NoError(t, json.Unmarshal(ch.msgs[0].Body, &published))
	assert.Equal(t, ada, published)

	// list publishes nothing
	ch.reset()
	_, err = d.Execute(ctx, domain.CreateCommand{Name: "Grace", Email: "grace@example.com"})
	require.NoError(t, err)
	_, err = d.Execute(ctx, domain.CreateCommand{Name: "Linus", Email: "linus@example.com"})
	require.NoError(t, err)
	ch.reset()

	limit := int64(2)
	resp, err = d.Execute(ctx, domain.ListCommand{Limit: &limit})
	require.NoError(t, err)
	page := resp.(domain.Listed).Page
	require.Len(t, page.Data, 2)
	assert.Equal(t, int64(1), page.Data[0].ID)
	assert.Equal(t, int64(2), page.Data[1].ID)
	assert.True(t, page.HasMore)
	assert.Equal(t, int64(2), *page.NextOffset)
	assert.Empty(t, ch.keys)

	// update
	newName := "Ada L."
	resp, err = d.Execute(ctx, domain.UpdateCommand{ID: 1, Name: &newName})
	require.NoError(t, err)
	want := domain.User{ID: 1, Name: "Ada L.", Email: "ada@example.com"}
	assert.Equal(t, domain.Updated{User: want}, resp)
	require.Len(t, ch.keys, 1)
	assert.Equal(t, "user.updated", ch.keys[0])
	require.NoError(t, json.Unmarshal(ch.msgs[0].Body, &published))
	assert.Equal(t, want, published)

	// delete then get
	ch.reset()
	resp, err = d.Execute(ctx, domain.DeleteCommand{ID: 1})
	require.NoError(t, err)
	assert.Equal(t, domain.Deleted{ID: 1}, resp)
	require.Len(t, ch.keys, 1)
	assert.Equal(t, "user.deleted", ch.keys[0])
	assert.JSONEq(t, `1`, string(ch.msgs[0].Body))

	_, err = d.Execute(ctx, domain.GetCommand{ID: 1})
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
}

func TestPipeline_FailedMutationsPublishNothing(t *testing.T) {
	d, ch := setupPipeline(t)
	ctx := context.Background()
	name := "Nobody"

	_, err := d.Execute(ctx, domain.UpdateCommand{ID: 42, Name: &name})
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	_, err = d.Execute(ctx, domain.UpdateCommand{ID: 42})
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))

	_, err = d.Execute(ctx, domain.DeleteCommand{ID: 42})
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))

	assert.Empty(t, ch.keys)
}
