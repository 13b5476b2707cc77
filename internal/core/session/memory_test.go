package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, opts ...MemoryStoreOption) *MemoryStore {
	t.Helper()
	store, err := NewMemoryStore(context.Background(), opts...)
	require.NoError(t, err)
	return store
}

func TestGetOrCreateReturnsSameSession(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	s1, err := store.GetOrCreate(ctx, "s1")
	require.NoError(t, err)
	s2, err := store.GetOrCreate(ctx, "s1")
	require.NoError(t, err)

	assert.Same(t, s1, s2)
	assert.Equal(t, 0, s1.Len())

	require.NoError(t, AppendTurn(ctx, store, "s1", RoleHuman, "hi"))
	assert.Equal(t, 1, s2.Len())
}

func TestGetOrCreateRejectsEmptyID(t *testing.T) {
	_, err := newTestStore(t).GetOrCreate(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptySessionID)
}

func TestGetOrCreateConcurrentFirstReference(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	const n = 50
	results := make([]*Session, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, err := store.GetOrCreate(ctx, "shared")
			assert.NoError(t, err)
			results[i] = sess
		}(i)
	}
	wg.Wait()

	for _, sess := range results {
		assert.Same(t, results[0], sess)
	}
	assert.Equal(t, 1, store.Len())
}

func TestAppendUnknownSession(t *testing.T) {
	err := AppendTurn(context.Background(), newTestStore(t), "missing", RoleHuman, "hello")
	assert.ErrorIs(t, err, ErrUnknownSession)
}

func TestAppendRejectsInvalidRole(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	_, err := store.GetOrCreate(ctx, "s1")
	require.NoError(t, err)

	err = store.Append(ctx, "s1", Turn{Role: "system", Content: "x"})
	assert.ErrorIs(t, err, ErrInvalidRole)
}

func TestAppendPreservesOrder(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sess, err := store.GetOrCreate(ctx, "s1")
	require.NoError(t, err)

	require.NoError(t, store.Append(ctx, "s1",
		Turn{Role: RoleHuman, Content: "Hello"},
		Turn{Role: RoleAssistant, Content: "Hi!"},
	))
	require.NoError(t, AppendTurn(ctx, store, "s1", RoleHuman, "Follow-up"))

	assert.Equal(t, []Turn{
		{Role: RoleHuman, Content: "Hello"},
		{Role: RoleAssistant, Content: "Hi!"},
		{Role: RoleHuman, Content: "Follow-up"},
	}, sess.Transcript())
}

func TestTranscriptReturnsCopy(t *testing.T) {
	sess := NewSession("s1", []Turn{{Role: RoleHuman, Content: "a"}})

	transcript := sess.Transcript()
	transcript[0].Content = "mutated"

	assert.Equal(t, "a", sess.Transcript()[0].Content)
}

func TestConcurrentAppendsKeepPairsTogether(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	sess, err := store.GetOrCreate(ctx, "s1")
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			msg := fmt.Sprintf("q%d", i)
			assert.NoError(t, store.Append(ctx, "s1",
				Turn{Role: RoleHuman, Content: msg},
				Turn{Role: RoleAssistant, Content: "a:" + msg},
			))
		}(i)
	}
	wg.Wait()

	transcript := sess.Transcript()
	require.Len(t, transcript, 40)
	for i := 0; i < len(transcript); i += 2 {
		assert.Equal(t, RoleHuman, transcript[i].Role)
		assert.Equal(t, RoleAssistant, transcript[i+1].Role)
		assert.Equal(t, "a:"+transcript[i].Content, transcript[i+1].Content)
	}
}

type stubSnapshotter struct {
	loaded map[string][]Turn
	saved  map[string][]Turn
	closed bool
	err    error
}

func (s *stubSnapshotter) Load(ctx context.Context) (map[string][]Turn, error) {
	return s.loaded, s.err
}

func (s *stubSnapshotter) Save(ctx context.Context, transcripts map[string][]Turn) error {
	s.saved = transcripts
	return nil
}

func (s *stubSnapshotter) Close() error {
	s.closed = true
	return nil
}

func TestMemoryStoreSnapshotLifecycle(t *testing.T) {
	ctx := context.Background()
	snap := &stubSnapshotter{loaded: map[string][]Turn{
		"old": {{Role: RoleHuman, Content: "remember me"}},
	}}
	store := newTestStore(t, WithSnapshotter(snap))

	old, err := store.GetOrCreate(ctx, "old")
	require.NoError(t, err)
	assert.Equal(t, 1, old.Len())

	_, err = store.GetOrCreate(ctx, "new")
	require.NoError(t, err)
	require.NoError(t, AppendTurn(ctx, store, "new", RoleHuman, "hello"))

	require.NoError(t, store.Close())
	assert.True(t, snap.closed)
	assert.Len(t, snap.saved, 2)
	assert.Equal(t, []Turn{{Role: RoleHuman, Content: "hello"}}, snap.saved["new"])
}

func TestMemoryStoreSnapshotLoadFailure(t *testing.T) {
	snap := &stubSnapshotter{err: errors.New("corrupt file")}

	_, err := NewMemoryStore(context.Background(), WithSnapshotter(snap))
	assert.Error(t, err)
}
