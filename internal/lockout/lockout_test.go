package lockout_test

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/manziosee/IST-auth-system/internal/domain"
	"github.com/manziosee/IST-auth-system/internal/lockout"
)

func TestLocksAtThreshold(t *testing.T) {
	ctx := context.Background()
	store := newStore(domain.User{ID: 1, AccountEnabled: true})
	policy := lockout.NewPolicy(store, 5, zap.NewNop())

	user := store.users[1]
	var err error
	for i := 0; i < 4; i++ {
		user, err = policy.RecordFailure(ctx, user)
		require.NoError(t, err)
		require.False(t, user.AccountLocked)
	}
	require.Equal(t, 4, user.FailedLoginAttempts)

	// The fifth failure trips the lock.
	user, err = policy.RecordFailure(ctx, user)
	require.NoError(t, err)
	require.True(t, user.AccountLocked)
	require.Equal(t, 5, user.FailedLoginAttempts)
	require.True(t, store.users[1].AccountLocked)
}

func TestSuccessResetsCounter(t *testing.T) {
	ctx := context.Background()
	store := newStore(domain.User{ID: 1, AccountEnabled: true, AccountLocked: true, FailedLoginAttempts: 3})
	policy := lockout.NewPolicy(store, 5, zap.NewNop())

	user, err := policy.RecordSuccess(ctx, store.users[1])
	require.NoError(t, err)
	require.Zero(t, user.FailedLoginAttempts)
	require.False(t, user.AccountLocked)
	require.NotNil(t, user.LastLogin)
	require.Zero(t, store.users[1].FailedLoginAttempts)
	require.False(t, store.users[1].AccountLocked)
}

func TestUnlockClearsLockAndCounter(t *testing.T) {
	ctx := context.Background()
	store := newStore(domain.User{ID: 1, AccountLocked: true, FailedLoginAttempts: 7})
	policy := lockout.NewPolicy(store, 5, zap.NewNop())

	require.NoError(t, policy.Unlock(ctx, 1))
	require.False(t, store.users[1].AccountLocked)
	require.Zero(t, store.users[1].FailedLoginAttempts)

	require.Error(t, policy.Unlock(ctx, 42))
}

func TestThresholdFloor(t *testing.T) {
	policy := lockout.NewPolicy(newStore(), 0, zap.NewNop())
	require.Equal(t, 1, policy.Threshold())
}

type userStore struct {
	users map[int64]domain.User
}

func newStore(seed ...domain.User) *userStore {
	s := &userStore{users: map[int64]domain.User{}}
	for _, u := range seed {
		s.users[u.ID] = u
	}
	return s
}

func (s *userStore) GetByID(ctx context.Context, id int64) (domain.User, error) {
	u, ok := s.users[id]
	if !ok {
		return domain.User{}, pgx.ErrNoRows
	}
	return u, nil
}

func (s *userStore) GetByEmail(ctx context.Context, email string) (domain.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (s *userStore) GetByEmailOrUsername(ctx context.Context, identifier string) (domain.User, error) {
	for _, u := range s.users {
		if u.Email == identifier || u.Username == identifier {
			return u, nil
		}
	}
	return domain.User{}, pgx.ErrNoRows
}

func (s *userStore) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	_, err := s.GetByEmail(ctx, email)
	return err == nil, nil
}

func (s *userStore) ExistsByUsername(ctx context.Context, username string) (bool, error) {
	for _, u := range s.users {
		if u.Username == username {
			return true, nil
		}
	}
	return false, nil
}

func (s *userStore) Create(ctx context.Context, u domain.User) (domain.User, error) {
	s.users[u.ID] = u
	return u, nil
}

func (s *userStore) Save(ctx context.Context, u domain.User) error {
	s.users[u.ID] = u
	return nil
}
