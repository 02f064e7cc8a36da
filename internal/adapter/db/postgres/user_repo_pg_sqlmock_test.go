package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	pgdriver "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"user-events-service/internal/domain/user"
	apperrors "user-events-service/pkg/errors"
)

func setupMockRepo(t *testing.T) (*UserRepoPG, sqlmock.Sqlmock) {
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(pgdriver.New(pgdriver.Config{Conn: sqlDB}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	return NewUserRepoPG(db, zaptest.NewLogger(t), 0), mock
}

func TestUserRepoPG_List_OverMaximumIssuesNoStatement(t *testing.T) {
	repo, mock := setupMockRepo(t)

	for _, limit := range []int64{51, 100, 1 << 40} {
		_, err := repo.List(context.Background(), user.ListCommand{Limit: ptr(limit)})
		require.Error(t, err)
		assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	}

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoPG_List_RequestsOneExtraRow(t *testing.T) {
	repo, mock := setupMockRepo(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, email FROM users ORDER BY name DESC LIMIT $1 OFFSET $2")).
		WithArgs(int64(3), int64(4)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).
			AddRow(9, "Zoe", "zoe@example.com").
			AddRow(8, "Yan", "yan@example.com").
			AddRow(7, "Xia", "xia@example.com"))

	page, err := repo.List(context.Background(), user.ListCommand{
		Limit:     ptr(int64(2)),
		Offset:    ptr(int64(4)),
		SortBy:    ptr(user.FieldName),
		SortOrder: ptr(user.SortDesc),
	})
	require.NoError(t, err)
	assert.Len(t, page.Data, 2)
	assert.True(t, page.HasMore)
	assert.Equal(t, int64(6), *page.NextOffset)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoPG_Update_NoFieldsIssuesNoStatement(t *testing.T) {
	repo, mock := setupMockRepo(t)

	_, err := repo.Update(context.Background(), user.UpdateCommand{ID: 1})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindValidation, apperrors.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoPG_Update_MissingRowRollsBack(t *testing.T) {
	repo, mock := setupMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET name = $1 WHERE id = $2")).
		WithArgs("Ada L.", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), user.UpdateCommand{ID: 7, Name: ptr("Ada L.")})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindNotFound, apperrors.KindOf(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoPG_Update_RereadsInsideTransaction(t *testing.T) {
	repo, mock := setupMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users SET name = $1, email = $2 WHERE id = $3")).
		WithArgs("Ada L.", "adal@example.com", int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name, email FROM users WHERE id = $1")).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).AddRow(1, "Ada L.", "adal@example.com"))
	mock.ExpectCommit()

	updated, err := repo.Update(context.Background(), user.UpdateCommand{
		ID: 1, Name: ptr("Ada L."), Email: ptr("adal@example.com"),
	})
	require.NoError(t, err)
	assert.Equal(t, user.User{ID: 1, Name: "Ada L.", Email: "adal@example.com"}, *updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoPG_Create_InsertsInsideTransaction(t *testing.T) {
	repo, mock := setupMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users (name, email) VALUES ($1, $2) RETURNING id, name, email")).
		WithArgs("Ada", "ada@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "email"}).AddRow(1, "Ada", "ada@example.com"))
	mock.ExpectCommit()

	created, err := repo.Create(context.Background(), "Ada", "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoPG_Create_StoreFailureIsTransport(t *testing.T) {
	repo, mock := setupMockRepo(t)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO users")).
		WillReturnError(errors.New("connection refused"))
	mock.ExpectRollback()

	_, err := repo.Create(context.Background(), "Ada", "ada@example.com")
	require.Error(t, err)
	assert.Equal(t, apperrors.KindTransport, apperrors.KindOf(err))
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepoPG_Delete_SingleStatementWithoutTransaction(t *testing.T) {
	repo, mock := setupMockRepo(t)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM users WHERE id = $1")).
		WithArgs(int64(3)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := repo.Delete(context.Background(), 3)
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}
