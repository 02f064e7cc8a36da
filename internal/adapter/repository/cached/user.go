package cached

import (
	"context"
	"strconv"
	"sync/atomic"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"user-events-service/internal/adapter/cache"
	domain "user-events-service/internal/domain/user"
	"user-events-service/internal/usecase/user"
	apperrors "user-events-service/pkg/errors"
)

// UserRepository decorates a store-backed user.Repository with a read-through
// cache for GetByID. Cache failures are logged and never fail an operation.
//
// Every Update and Delete bumps generation before evicting. A read only
// fills the cache when no mutation happened since it started, so a row read
// before a mutation committed is never cached after the eviction.
type UserRepository struct {
	next       user.Repository
	cache      cache.UserCache
	log        *zap.Logger
	group      singleflight.Group
	generation atomic.Uint64
}

// NewUserRepository wraps next with cache.
func NewUserRepository(next user.Repository, cache cache.UserCache, log *zap.Logger) *UserRepository {
	return &UserRepository{
		next:  next,
		cache: cache,
		log:   log,
	}
}

// Create stores the user and warms the cache with the stored row.
func (r *UserRepository) Create(ctx context.Context, name, email string) (*domain.User, error) {
	u, err := r.next.Create(ctx, name, email)
	if err != nil {
		return nil, err
	}
	r.store(ctx, u)
	return u, nil
}

// GetByID reads through the cache. Concurrent misses for the same id share
// one store read. The shared read is detached from the caller's cancellation
// so one abandoned request does not fail the others; each caller still
// returns as soon as its own context is done. Store deadlines bound it.
func (r *UserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	if u := r.lookup(ctx, id); u != nil {
		return u, nil
	}

	flightCtx := context.WithoutCancel(ctx)
	ch := r.group.DoChan(flightKey(id), func() (any, error) {
		// another flight may have filled the entry while this one waited
		if u := r.lookup(flightCtx, id); u != nil {
			return u, nil
		}
		gen := r.generation.Load()
		u, err := r.next.GetByID(flightCtx, id)
		if err != nil {
			return nil, err
		}
		r.fill(flightCtx, u, gen)
		return u, nil
	})

	select {
	case <-ctx.Done():
		return nil, apperrors.NewTransportError("failed to get user", ctx.Err())
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			r.log.Debug("store read shared between concurrent requests", zap.Int64("id", id))
		}
		u := *res.Val.(*domain.User)
		return &u, nil
	}
}

// List always reads from the store.
func (r *UserRepository) List(ctx context.Context, cmd domain.ListCommand) (*domain.Page, error) {
	return r.next.List(ctx, cmd)
}

// Update writes through to the store and evicts the cached entry.
func (r *UserRepository) Update(ctx context.Context, cmd domain.UpdateCommand) (*domain.User, error) {
	u, err := r.next.Update(ctx, cmd)
	if err != nil {
		return nil, err
	}
	r.invalidate(ctx, cmd.ID)
	return u, nil
}

// Delete removes the user from the store and evicts the cached entry.
func (r *UserRepository) Delete(ctx context.Context, id int64) (int64, error) {
	deleted, err := r.next.Delete(ctx, id)
	if err != nil {
		return 0, err
	}
	r.invalidate(ctx, id)
	return deleted, nil
}

func (r *UserRepository) lookup(ctx context.Context, id int64) *domain.User {
	u, err := r.cache.Get(ctx, id)
	if err != nil {
		r.log.Warn("cache get error, falling back to database", zap.Int64("id", id), zap.Error(err))
		return nil
	}
	return u
}

func (r *UserRepository) store(ctx context.Context, u *domain.User) {
	if err := r.cache.Set(ctx, u); err != nil {
		r.log.Warn("failed to cache user", zap.Int64("id", u.ID), zap.Error(err))
	}
}

// fill caches u unless a mutation happened since gen was taken. A mutation
// racing the write itself is caught by the second check.
func (r *UserRepository) fill(ctx context.Context, u *domain.User, gen uint64) {
	if r.generation.Load() != gen {
		return
	}
	r.store(ctx, u)
	if r.generation.Load() != gen {
		r.evict(ctx, u.ID)
	}
}

func (r *UserRepository) invalidate(ctx context.Context, id int64) {
	r.generation.Add(1)
	r.group.Forget(flightKey(id))
	r.evict(ctx, id)
}

func (r *UserRepository) evict(ctx context.Context, id int64) {
	if err := r.cache.Delete(ctx, id); err != nil {
		r.log.Warn("failed to invalidate cached user", zap.Int64("id", id), zap.Error(err))
	}
}

func flightKey(id int64) string {
	return strconv.FormatInt(id, 10)
}
