package tokenstore

import (
	"context"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"studentportal/internal/models"
	"studentportal/internal/security"
)

func TestAccessorPassThrough(t *testing.T) {
	acc := NewAccessor(NewMemoryStore(time.Hour))
	ctx := WithSessionID(context.Background(), "sid")

	token, err := acc.GetToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	require.NoError(t, acc.SetToken(ctx, "not-even-a-jwt"))
	token, err = acc.GetToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "not-even-a-jwt", token, "tokens are stored verbatim")

	require.NoError(t, acc.ClearToken(ctx))
	token, err = acc.GetToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestAccessorWithoutSession(t *testing.T) {
	acc := NewAccessor(NewMemoryStore(time.Hour))
	ctx := context.Background()

	token, err := acc.GetToken(ctx)
	require.NoError(t, err)
	assert.Empty(t, token)

	assert.ErrorIs(t, acc.SetToken(ctx, "t"), ErrNoSession)
	assert.NoError(t, acc.ClearToken(ctx))
}

func TestAccessorSharedAcrossRequests(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	first := NewAccessor(store)
	second := NewAccessor(store)

	require.NoError(t, first.SetToken(WithSessionID(context.Background(), "sid"), "tok"))

	// Another tab of the same browser presents the same cookie
	token, err := second.GetToken(WithSessionID(context.Background(), "sid"))
	require.NoError(t, err)
	assert.Equal(t, "tok", token)

	token, err = second.GetToken(WithSessionID(context.Background(), "other"))
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestMemoryStoreExpiry(t *testing.T) {
	store := NewMemoryStore(time.Minute)
	now := time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "a", "tok-a"))
	require.NoError(t, store.Set(ctx, "b", "tok-b"))

	now = now.Add(2 * time.Minute)
	token, err := store.Get(ctx, "a")
	require.NoError(t, err)
	assert.Empty(t, token)

	n, err := store.DeleteExpired(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "entry a was already dropped on read")
}

func TestMemoryStoreConcurrentAccess(t *testing.T) {
	store := NewMemoryStore(time.Hour)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Set(ctx, "sid", "tok")
			_, _ = store.Get(ctx, "sid")
			_ = store.Clear(ctx, "sid")
		}()
	}
	wg.Wait()
}

type fakeRepo struct {
	rows map[string]*models.TokenSession
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{rows: make(map[string]*models.TokenSession)}
}

func (f *fakeRepo) Save(_ context.Context, id, sealed string, expiresAt time.Time) error {
	f.rows[id] = &models.TokenSession{ID: id, SealedToken: sealed, ExpiresAt: expiresAt}
	return nil
}

func (f *fakeRepo) Get(_ context.Context, id string) (*models.TokenSession, error) {
	return f.rows[id], nil
}

func (f *fakeRepo) Delete(_ context.Context, id string) error {
	delete(f.rows, id)
	return nil
}

func (f *fakeRepo) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var n int64
	for id, row := range f.rows {
		if now.After(row.ExpiresAt) {
			delete(f.rows, id)
			n++
		}
	}
	return n, nil
}

func TestSQLStoreSealsTokens(t *testing.T) {
	sealer, err := security.NewSealer("secret")
	require.NoError(t, err)
	repo := newFakeRepo()
	store := NewSQLStore(repo, sealer, time.Hour)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, "sid", "bearer"))
	assert.NotEqual(t, "bearer", repo.rows["sid"].SealedToken)

	token, err := store.Get(ctx, "sid")
	require.NoError(t, err)
	assert.Equal(t, "bearer", token)

	require.NoError(t, store.Clear(ctx, "sid"))
	token, err = store.Get(ctx, "sid")
	require.NoError(t, err)
	assert.Empty(t, token)
}

func TestSQLStoreExpiredAndRotated(t *testing.T) {
	sealer, _ := security.NewSealer("secret")
	repo := newFakeRepo()
	store := NewSQLStore(repo, sealer, time.Hour)
	ctx := context.Background()

	repo.rows["old"] = &models.TokenSession{ID: "old", SealedToken: "x", ExpiresAt: time.Now().Add(-time.Minute)}
	token, err := store.Get(ctx, "old")
	require.NoError(t, err)
	assert.Empty(t, token)

	rotated, _ := security.NewSealer("previous-secret")
	sealed, _ := rotated.Seal("bearer")
	repo.rows["rotated"] = &models.TokenSession{ID: "rotated", SealedToken: sealed, ExpiresAt: time.Now().Add(time.Hour)}

	token, err = store.Get(ctx, "rotated")
	require.NoError(t, err)
	assert.Empty(t, token)
	assert.NotContains(t, repo.rows, "rotated", "unreadable rows are removed")
}

func TestRedisStore(t *testing.T) {
	url := os.Getenv("TEST_REDIS_URL")
	if url == "" {
		t.Skip("TEST_REDIS_URL not set")
	}

	sealer, _ := security.NewSealer("secret")
	ctx := context.Background()
	store, err := NewRedisStore(ctx, url, sealer, time.Minute)
	require.NoError(t, err)
	defer store.Close()

	require.NoError(t, store.Set(ctx, "test-sid", "bearer"))
	token, err := store.Get(ctx, "test-sid")
	require.NoError(t, err)
	assert.Equal(t, "bearer", token)

	require.NoError(t, store.Clear(ctx, "test-sid"))
	token, err = store.Get(ctx, "test-sid")
	require.NoError(t, err)
	assert.Empty(t, token)
}
