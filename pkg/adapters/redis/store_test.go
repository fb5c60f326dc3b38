package redis_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/conduit/pkg/adapters/redis"
	"github.com/aretw0/conduit/pkg/domain"
	"github.com/aretw0/conduit/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setup(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisStore_Contract(t *testing.T) {
	_, client := setup(t)
	ports.RunSessionStoreContract(t, redis.New(client))
}

func TestRedisSink_Contract(t *testing.T) {
	_, client := setup(t)
	ports.RunKnowledgeSinkContract(t, redis.NewSink(client, ""))
}

func TestRedisStore_TTL_Expiration(t *testing.T) {
	mr, client := setup(t)

	store := redis.New(client, redis.WithTTL(1*time.Second))
	ctx := context.Background()
	session := domain.NewSession("session-ttl")
	session.Context["foo"] = "bar"

	require.NoError(t, store.Save(ctx, session))

	sessions, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, sessions, "session-ttl")

	mr.FastForward(2 * time.Second)

	_, err = store.Load(ctx, "session-ttl")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	// The index is pruned against wall clock time.
	time.Sleep(1200 * time.Millisecond)

	sessions, err = store.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, sessions)
}

func TestRedisStore_Prefix(t *testing.T) {
	mr, client := setup(t)

	store := redis.New(client, redis.WithPrefix("custom:app:"))
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, domain.NewSession("my-session")))

	assert.True(t, mr.Exists("custom:app:my-session"), "Expected key with custom prefix to exist")
	assert.True(t, mr.Exists("custom:app:index"), "Expected index with custom prefix to exist")

	list, err := store.List(ctx)
	require.NoError(t, err)
	assert.Contains(t, list, "my-session")
}

func TestRedisLocker_MutualExclusion(t *testing.T) {
	_, client := setup(t)
	locker := redis.NewLocker(client, "test:")
	ctx := context.Background()

	var inside int32
	var maxInside int32
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := locker.Lock(ctx, "session-1", 5*time.Second)
			if !assert.NoError(t, err) {
				return
			}
			n := atomic.AddInt32(&inside, 1)
			for {
				m := atomic.LoadInt32(&maxInside)
				if n <= m || atomic.CompareAndSwapInt32(&maxInside, m, n) {
					break
				}
			}
			time.Sleep(10 * time.Millisecond)
			atomic.AddInt32(&inside, -1)
			assert.NoError(t, unlock(ctx))
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside)
}

func TestRedisLocker_ContextCancel(t *testing.T) {
	_, client := setup(t)
	locker := redis.NewLocker(client, "test:")

	unlock, err := locker.Lock(context.Background(), "busy", 5*time.Second)
	require.NoError(t, err)
	defer unlock(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	_, err = locker.Lock(ctx, "busy", 5*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisSink_Sources(t *testing.T) {
	_, client := setup(t)
	sink := redis.NewSink(client, "")
	ctx := context.Background()

	sources, err := sink.Sources(ctx)
	require.NoError(t, err)
	assert.Empty(t, sources)

	_, err = sink.UpsertSource(ctx, domain.KnowledgeSource{Name: "zeta", ExternalID: "z"})
	require.NoError(t, err)
	id, err := sink.UpsertSource(ctx, domain.KnowledgeSource{Name: "alpha", ExternalID: "a"})
	require.NoError(t, err)
	require.NoError(t, sink.CreateChunk(ctx, domain.KnowledgeChunk{SourceID: id, Index: 0, Text: "x"}))

	sources, err = sink.Sources(ctx)
	require.NoError(t, err)
	require.Len(t, sources, 2)
	assert.Equal(t, "alpha", sources[0].Name)
	assert.Equal(t, "zeta", sources[1].Name)
}
