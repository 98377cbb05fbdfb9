package auth

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, err := store.Load(ctx, "p")
	assert.ErrorIs(t, err, ErrNoSession)

	s := NewSession(Identity{ID: "2", Email: "user@totalenergies.com", Role: RoleStandardUser}, testNow)
	require.NoError(t, store.Save(ctx, "p", s))

	loaded, err := store.Load(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, s, loaded)

	store.PutRaw("p", []byte("{"))
	_, err = store.Load(ctx, "p")
	assert.ErrorIs(t, err, ErrMalformedSession)

	require.NoError(t, store.Delete(ctx, "p"))
	_, ok := store.Raw("p")
	assert.False(t, ok)
}

type countingStore struct {
	*MemoryStore
	loads int
}

func (s *countingStore) Load(ctx context.Context, profile string) (*Session, error) {
	s.loads++
	return s.MemoryStore.Load(ctx, profile)
}

func TestCachedStore(t *testing.T) {
	next := &countingStore{MemoryStore: NewMemoryStore()}
	store := NewCachedStore(next, 1, time.Minute, 0)
	ctx := context.Background()

	_, err := store.Load(ctx, "p")
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, 1, next.loads)

	s := NewSession(Identity{ID: "1", Email: "admin@totalenergies.com", Role: RoleAdministrator}, testNow)
	require.NoError(t, store.Save(ctx, "p", s))

	for i := 0; i < 3; i++ {
		loaded, err := store.Load(ctx, "p")
		require.NoError(t, err)
		assert.Equal(t, s, loaded)
	}
	assert.Equal(t, 1, next.loads, "served from cache")

	require.NoError(t, store.Delete(ctx, "p"))
	_, err = store.Load(ctx, "p")
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Equal(t, 2, next.loads)

	// a failed save does not leave a stale cache entry behind
	failing := NewCachedStore(brokenStore{}, 1, time.Minute, 0)
	assert.Error(t, failing.Save(ctx, "p", s))
	_, err = failing.Load(ctx, "p")
	assert.ErrorIs(t, err, errStoreDown)
}

type manualTimer struct {
	now uint32
}

func (m *manualTimer) Now() uint32 {
	return m.now
}

func TestCachedStore_DeletedInBackingStore(t *testing.T) {
	backing := NewMemoryStore()
	timer := &manualTimer{now: 1000}
	store := newCachedStore(backing, 1, DefaultSessionCacheTTL, DefaultSessionTTL, timer)
	store.NowFunc = func() time.Time { return testNow }
	ctx := context.Background()

	s := NewSession(Identity{ID: "1", Email: "admin@totalenergies.com", Role: RoleAdministrator}, testNow)
	require.NoError(t, store.Save(ctx, "p", s))

	// signed out through another process
	require.NoError(t, backing.Delete(ctx, "p"))

	timer.now += uint32(DefaultSessionCacheTTL.Seconds()) + 1
	loaded, err := store.Load(ctx, "p")
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Nil(t, loaded)
}

func TestCachedStore_ExpiredLastLogin(t *testing.T) {
	backing := NewMemoryStore()
	store := NewCachedStore(backing, 1, DefaultSessionCacheTTL, DefaultSessionTTL)
	now := testNow
	store.NowFunc = func() time.Time { return now }
	ctx := context.Background()

	s := NewSession(Identity{ID: "2", Email: "user@totalenergies.com", Role: RoleStandardUser}, testNow.Add(-8*24*time.Hour))
	require.NoError(t, store.Save(ctx, "old", s))

	// cached, but too old
	loaded, err := store.Load(ctx, "old")
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Nil(t, loaded)

	// fresh session cached, then the clock passes the session ttl
	fresh := NewSession(Identity{ID: "1", Email: "admin@totalenergies.com", Role: RoleAdministrator}, testNow)
	require.NoError(t, store.Save(ctx, "fresh", fresh))
	loaded, err = store.Load(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, fresh, loaded)

	now = testNow.Add(DefaultSessionTTL + time.Second)
	loaded, err = store.Load(ctx, "fresh")
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Nil(t, loaded)
}

func TestCachePendingStore(t *testing.T) {
	pending := NewCachePendingStore(1, time.Minute)
	ctx := context.Background()

	_, err := pending.Get(ctx, "p")
	assert.ErrorIs(t, err, ErrNoPending)

	identity := Identity{ID: "2", Email: "user@totalenergies.com", Name: "Jane Smith (User)", Role: RoleStandardUser}
	require.NoError(t, pending.Put(ctx, "p", identity))

	got, err := pending.Get(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, identity, *got)

	_, err = pending.Get(ctx, "other")
	assert.ErrorIs(t, err, ErrNoPending)

	require.NoError(t, pending.Drop(ctx, "p"))
	_, err = pending.Get(ctx, "p")
	assert.ErrorIs(t, err, ErrNoPending)
}

func TestRedisPendingStore(t *testing.T) {
	db, mock := redismock.NewClientMock()
	pending := NewRedisPendingStore(db, DefaultPendingTTL)
	ctx := context.Background()

	identity := Identity{ID: "1", Email: "admin@totalenergies.com", Name: "John Doe (Admin)", Role: RoleAdministrator}
	raw, err := json.Marshal(identity)
	require.NoError(t, err)

	key := "clientportal-pending||p"
	mock.ExpectSet(key, string(raw), DefaultPendingTTL).SetVal("OK")
	require.NoError(t, pending.Put(ctx, "p", identity))

	mock.ExpectGet(key).SetVal(string(raw))
	got, err := pending.Get(ctx, "p")
	require.NoError(t, err)
	assert.Equal(t, identity, *got)

	mock.ExpectGet("clientportal-pending||other").RedisNil()
	_, err = pending.Get(ctx, "other")
	assert.ErrorIs(t, err, ErrNoPending)

	mock.ExpectGet("clientportal-pending||broken").SetVal("{")
	_, err = pending.Get(ctx, "broken")
	assert.ErrorIs(t, err, ErrNoPending)

	mock.ExpectGet("clientportal-pending||down").SetErr(errors.New("conn refused"))
	_, err = pending.Get(ctx, "down")
	assert.ErrorContains(t, err, "conn refused")

	mock.ExpectDel(key).SetVal(1)
	require.NoError(t, pending.Drop(ctx, "p"))

	assert.NoError(t, mock.ExpectationsWereMet())
}
