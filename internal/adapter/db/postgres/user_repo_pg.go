package postgres

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"user-events-service/internal/domain/user"
	apperrors "user-events-service/pkg/errors"
)

const (
	// DefaultListLimit is the page size used when a list command omits it.
	DefaultListLimit int64 = 10
	// MaxListLimit is the largest page size a list command may request.
	MaxListLimit int64 = 50

	usersTable    = "users"
	userColumns   = "id, name, email"
	resourceLabel = "user"
)

// UserRepoPG executes user commands against PostgreSQL through GORM.
// It borrows the pooled *gorm.DB; it never opens or closes the pool.
type UserRepoPG struct {
	db      *gorm.DB      // GORM database connection pool
	log     *zap.Logger   // Structured logger for database operations
	timeout time.Duration // Upper bound for one operation, including pool acquisition
}

// NewUserRepoPG creates a new instance of UserRepoPG. A zero timeout leaves
// deadlines to the caller's context.
func NewUserRepoPG(db *gorm.DB, log *zap.Logger, timeout time.Duration) *UserRepoPG {
	return &UserRepoPG{db: db, log: log, timeout: timeout}
}

// UserSchema represents the database schema for the users table.
type UserSchema struct {
	ID    int64  `gorm:"primaryKey;autoIncrement"`
	Name  string `gorm:"not null"`
	Email string `gorm:"not null"`
}

// TableName specifies the table name for the UserSchema model.
func (UserSchema) TableName() string {
	return usersTable
}

func (m UserSchema) toDomain() user.User {
	return user.User{ID: m.ID, Name: m.Name, Email: m.Email}
}

func (r *UserRepoPG) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if r.timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, r.timeout)
}

// Create inserts a new user inside a transaction and returns the stored row.
func (r *UserRepoPG) Create(ctx context.Context, name, email string) (*user.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var model UserSchema
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Raw(
			"INSERT INTO "+usersTable+" (name, email) VALUES (?, ?) RETURNING "+userColumns,
			name, email,
		).Scan(&model).Error
	})
	if err != nil {
		r.log.Error("failed to create user in db", append(storeFields(err), zap.String("email", email))...)
		return nil, classify(err, "failed to create user")
	}

	r.log.Info("user created in db", zap.Int64("id", model.ID))
	u := model.toDomain()
	return &u, nil
}

// GetByID retrieves a user by id.
func (r *UserRepoPG) GetByID(ctx context.Context, id int64) (*user.User, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var model UserSchema
	res := r.db.WithContext(ctx).Raw("SELECT "+userColumns+" FROM "+usersTable+" WHERE id = ?", id).Scan(&model)
	if res.Error != nil {
		r.log.Error("failed to get user from db", append(storeFields(res.Error), zap.Int64("id", id))...)
		return nil, classify(res.Error, "failed to get user")
	}
	if res.RowsAffected == 0 {
		r.log.Warn("user not found", zap.Int64("id", id))
		return nil, apperrors.NewNotFoundError(resourceLabel, id)
	}

	u := model.toDomain()
	return &u, nil
}

// List returns one page of users ordered by the requested field.
func (r *UserRepoPG) List(ctx context.Context, cmd user.ListCommand) (*user.Page, error) {
	sortBy := user.FieldID
	if cmd.SortBy != nil {
		sortBy = *cmd.SortBy
	}
	order := user.SortAsc
	if cmd.SortOrder != nil {
		order = *cmd.SortOrder
	}

	limit := DefaultListLimit
	if cmd.Limit != nil {
		limit = *cmd.Limit
	}
	if limit > MaxListLimit {
		return nil, apperrors.NewValidationError(fmt.Sprintf(
			"requested limit (%d) exceeds the maximum allowed (%d)", limit, MaxListLimit))
	}
	if limit < 1 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("requested limit (%d) must be at least 1", limit))
	}

	var offset int64
	if cmd.Offset != nil {
		offset = *cmd.Offset
	}
	if offset < 0 {
		return nil, apperrors.NewValidationError(fmt.Sprintf("requested offset (%d) must not be negative", offset))
	}

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY %s %s LIMIT ? OFFSET ?",
		userColumns, usersTable, sortBy.Column(), order.SQL())

	var models []UserSchema
	if err := r.db.WithContext(ctx).Raw(query, user.LookAheadLimit(limit), offset).Scan(&models).Error; err != nil {
		r.log.Error("failed to list users from db", append(storeFields(err),
			zap.Int64("limit", limit), zap.Int64("offset", offset))...)
		return nil, classify(err, "failed to list users")
	}

	rows := make([]user.User, len(models))
	for i, m := range models {
		rows[i] = m.toDomain()
	}

	page := user.NewPage(rows, limit, offset)
	return &page, nil
}

// Update applies the present fields of cmd inside a transaction and returns
// the row as re-read within the same transaction.
func (r *UserRepoPG) Update(ctx context.Context, cmd user.UpdateCommand) (*user.User, error) {
	b := newUpdateBuilder(usersTable)
	for _, fv := range cmd.Fields() {
		b.Set(fv.Field, fv.Value)
	}
	if b.Empty() {
		return nil, apperrors.NewValidationError("no fields to update")
	}
	query, args := b.Build(cmd.ID)

	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	var model UserSchema
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Exec(query, args...)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			// returning an error makes GORM roll the transaction back
			return apperrors.NewNotFoundError(resourceLabel, cmd.ID)
		}
		return tx.Raw("SELECT "+userColumns+" FROM "+usersTable+" WHERE id = ?", cmd.ID).Scan(&model).Error
	})
	if err != nil {
		if apperrors.Is(err, apperrors.KindNotFound) {
			r.log.Warn("user not found for update", zap.Int64("id", cmd.ID))
			return nil, err
		}
		r.log.Error("failed to update user in db", append(storeFields(err), zap.Int64("id", cmd.ID))...)
		return nil, classify(err, "failed to update user")
	}

	r.log.Info("user updated in db", zap.Int64("id", model.ID))
	u := model.toDomain()
	return &u, nil
}

// Delete removes a user by id with a single statement.
func (r *UserRepoPG) Delete(ctx context.Context, id int64) (int64, error) {
	ctx, cancel := r.withTimeout(ctx)
	defer cancel()

	res := r.db.WithContext(ctx).Exec("DELETE FROM "+usersTable+" WHERE id = ?", id)
	if res.Error != nil {
		r.log.Error("failed to delete user in db", append(storeFields(res.Error), zap.Int64("id", id))...)
		return 0, classify(res.Error, "failed to delete user")
	}
	if res.RowsAffected == 0 {
		r.log.Warn("user not found for delete", zap.Int64("id", id))
		return 0, apperrors.NewNotFoundError(resourceLabel, id)
	}

	r.log.Info("user deleted in db", zap.Int64("id", id))
	return id, nil
}
