package redis_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	redisadapter "github.com/branchwork/bramble/pkg/adapters/redis"
	"github.com/branchwork/bramble/pkg/domain"
	"github.com/branchwork/bramble/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.StateStore = (*redisadapter.Store)(nil)
var _ ports.DistributedLocker = (*redisadapter.Locker)(nil)

func newTestStore(t *testing.T, opts ...redisadapter.Option) (*redisadapter.Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	store := redisadapter.NewFromClient(client, opts...)
	t.Cleanup(func() { _ = store.Close() })
	return store, mr
}

func TestStore_Contract(t *testing.T) {
	store, _ := newTestStore(t)
	ports.RunStateStoreContract(t, store)
}

func TestStore_TTLExpiresSessions(t *testing.T) {
	store, mr := newTestStore(t, redisadapter.WithTTL(time.Minute))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "short-lived", domain.NewState(nil)))

	_, err := store.Load(ctx, "short-lived")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = store.Load(ctx, "short-lived")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	assert.NotContains(t, sessions, "short-lived")
}

func TestStore_PrefixIsolation(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})

	a := redisadapter.NewFromClient(client, redisadapter.WithPrefix("tenant-a:"))
	b := redisadapter.NewFromClient(client, redisadapter.WithPrefix("tenant-b:"))
	ctx := context.Background()

	require.NoError(t, a.Save(ctx, "s1", domain.NewState(nil)))

	_, err := b.Load(ctx, "s1")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	sessions, err := b.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestLocker_MutualExclusion(t *testing.T) {
	mr := miniredis.RunT(t)
	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	locker := redisadapter.NewLocker(client, "bramble:")
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "session-1", 10*time.Second)
	require.NoError(t, err)

	// A second acquisition must block until the first releases.
	blocked, cancel := context.WithTimeout(ctx, 300*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(blocked, "session-1", 10*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock(ctx))

	unlock2, err := locker.Lock(ctx, "session-1", 10*time.Second)
	require.NoError(t, err)
	require.NoError(t, unlock2(ctx))
}
