package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ayush/finance-advisor/internal/apperror"
	"github.com/ayush/finance-advisor/internal/models"
)

// =========================================================================
// FAKES
// =========================================================================

type memStore struct {
	mu    sync.Mutex
	chats map[string][]models.Message
}

func newMemStore() *memStore {
	return &memStore{chats: map[string][]models.Message{}}
}

func (s *memStore) Append(_ context.Context, id string, msgs ...models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.chats[id] = append(s.chats[id], msgs...)
	return nil
}

func (s *memStore) Recent(_ context.Context, id string, n int) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.chats[id]
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	return append([]models.Message{}, msgs...), nil
}

func (s *memStore) History(_ context.Context, id string) ([]models.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Message{}, s.chats[id]...), nil
}

func (s *memStore) DropOldest(_ context.Context, id string, n int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs, ok := s.chats[id]
	if ok {
		n = min(n, len(msgs))
		s.chats[id] = append([]models.Message{}, msgs[n:]...)
	}
	return ok, nil
}

type fakeGenerator struct {
	reply string
	err   error
	seen  [][]models.Message
}

func (g *fakeGenerator) Complete(_ context.Context, msgs []models.Message) (string, error) {
	g.seen = append(g.seen, msgs)
	return g.reply, g.err
}

type fakeArchiver struct {
	archived map[string][]models.Message
	err      error
	// during runs while the upload is in progress.
	during func()
}

func (a *fakeArchiver) Archive(_ context.Context, id string, msgs []models.Message) (string, error) {
	if a.during != nil {
		a.during()
	}
	if a.err != nil {
		return "", a.err
	}
	if a.archived == nil {
		a.archived = map[string][]models.Message{}
	}
	a.archived[id] = msgs
	return "chats/" + id + "/1.json", nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func numbered(n int) []models.Message {
	msgs := make([]models.Message, n)
	for i := range msgs {
		role := models.RoleUser
		if i%2 == 1 {
			role = models.RoleAssistant
		}
		msgs[i] = models.Message{Role: role, Content: fmt.Sprintf("m%d", i+1)}
	}
	return msgs
}

// =========================================================================
// Window
// =========================================================================

func TestWindow(t *testing.T) {
	msgs := numbered(15)

	got := Window(msgs, 10)
	require.Len(t, got, 10)
	assert.Equal(t, "m6", got[0].Content)
	assert.Equal(t, "m15", got[9].Content)
	assert.Equal(t, msgs[5:], got)
}

func TestWindow_ShorterThanLimit(t *testing.T) {
	msgs := numbered(3)
	assert.Equal(t, msgs, Window(msgs, 10))
}

func TestWindow_Empty(t *testing.T) {
	got := Window(nil, 10)
	assert.NotNil(t, got)
	assert.Empty(t, got)

	assert.Empty(t, Window(numbered(4), 0))
}

func TestWindow_DoesNotAlias(t *testing.T) {
	msgs := numbered(12)
	got := Window(msgs, 10)
	got[0].Content = "changed"
	assert.Equal(t, "m3", msgs[2].Content)
}

func TestWindow_IsContiguousSuffix(t *testing.T) {
	for n := 0; n <= 25; n++ {
		for k := 1; k <= 12; k++ {
			msgs := numbered(n)
			got := Window(msgs, k)
			want := k
			if n < k {
				want = n
			}
			require.Len(t, got, want, "n=%d k=%d", n, k)
			assert.Equal(t, msgs[n-want:], got, "n=%d k=%d", n, k)
		}
	}
}

// =========================================================================
// Manager
// =========================================================================

func TestManager_ContextWindow(t *testing.T) {
	store := newMemStore()
	store.chats["u1"] = numbered(15)
	m := NewManager(store, &fakeGenerator{}, nil, discardLogger())

	got, err := m.ContextWindow(context.Background(), "u1", 10)
	require.NoError(t, err)
	assert.Equal(t, numbered(15)[5:], got)
}

func TestManager_HistoryWithoutSession(t *testing.T) {
	m := NewManager(newMemStore(), &fakeGenerator{}, nil, discardLogger())

	got, err := m.History(context.Background(), "nobody")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestManager_AppendCreatesSession(t *testing.T) {
	store := newMemStore()
	m := NewManager(store, &fakeGenerator{}, nil, discardLogger())

	require.NoError(t, m.AppendUserTurn(context.Background(), "u1", "hello"))
	require.NoError(t, m.AppendAssistantTurn(context.Background(), "u1", "hi there"))

	assert.Equal(t, []models.Message{
		{Role: models.RoleUser, Content: "hello"},
		{Role: models.RoleAssistant, Content: "hi there"},
	}, store.chats["u1"])
}

func TestManager_AppendRejectsBlank(t *testing.T) {
	m := NewManager(newMemStore(), &fakeGenerator{}, nil, discardLogger())

	err := m.AppendUserTurn(context.Background(), "u1", "  \n")
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestManager_Reply(t *testing.T) {
	store := newMemStore()
	store.chats["u1"] = numbered(14)
	gen := &fakeGenerator{reply: "Aim for six months of expenses."}
	m := NewManager(store, gen, nil, discardLogger())

	answer, err := m.Reply(context.Background(), "u1", "How big should my emergency fund be?")
	require.NoError(t, err)
	assert.Equal(t, "Aim for six months of expenses.", answer)

	require.Len(t, gen.seen, 1)
	window := gen.seen[0]
	require.Len(t, window, DefaultContextTurns)
	assert.Equal(t, "m6", window[0].Content)
	assert.Equal(t, models.Message{Role: models.RoleUser, Content: "How big should my emergency fund be?"}, window[9])

	transcript := store.chats["u1"]
	require.Len(t, transcript, 16)
	assert.Equal(t, models.Message{Role: models.RoleAssistant, Content: answer}, transcript[15])
}

func TestManager_ReplyGenerationFailureKeepsUserTurn(t *testing.T) {
	store := newMemStore()
	gen := &fakeGenerator{err: fmt.Errorf("upstream: %w", apperror.ErrUnavailable)}
	m := NewManager(store, gen, nil, discardLogger())

	_, err := m.Reply(context.Background(), "u1", "hello?")
	require.ErrorIs(t, err, apperror.ErrUnavailable)

	assert.Equal(t, []models.Message{{Role: models.RoleUser, Content: "hello?"}}, store.chats["u1"])
}

func TestManager_ConcurrentAppendsAreAllKept(t *testing.T) {
	store := newMemStore()
	m := NewManager(store, &fakeGenerator{}, nil, discardLogger())

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_ = m.AppendUserTurn(context.Background(), "u1", fmt.Sprintf("msg %d", i))
		}(i)
	}
	wg.Wait()

	got, err := m.History(context.Background(), "u1")
	require.NoError(t, err)
	assert.Len(t, got, 50)
}

func TestManager_Reset(t *testing.T) {
	store := newMemStore()
	store.chats["u1"] = numbered(4)
	archive := &fakeArchiver{}
	m := NewManager(store, &fakeGenerator{}, archive, discardLogger())

	key, err := m.Reset(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, "chats/u1/1.json", key)
	assert.Equal(t, numbered(4), archive.archived["u1"])
	assert.Empty(t, store.chats["u1"])
}

func TestManager_ResetKeepsTurnAppendedWhileArchiving(t *testing.T) {
	store := newMemStore()
	store.chats["u1"] = numbered(4)
	late := models.Message{Role: models.RoleUser, Content: "one more thing"}
	archive := &fakeArchiver{during: func() {
		require.NoError(t, store.Append(context.Background(), "u1", late))
	}}
	m := NewManager(store, &fakeGenerator{}, archive, discardLogger())

	_, err := m.Reset(context.Background(), "u1")
	require.NoError(t, err)

	assert.Equal(t, numbered(4), archive.archived["u1"])
	assert.Equal(t, []models.Message{late}, store.chats["u1"])
}

func TestManager_ResetArchiveFailureKeepsTranscript(t *testing.T) {
	store := newMemStore()
	store.chats["u1"] = numbered(4)
	m := NewManager(store, &fakeGenerator{}, &fakeArchiver{err: errors.New("bucket gone")}, discardLogger())

	_, err := m.Reset(context.Background(), "u1")
	require.Error(t, err)
	assert.Len(t, store.chats["u1"], 4)
}

func TestManager_ResetWithoutArchiverOrSession(t *testing.T) {
	store := newMemStore()
	store.chats["u1"] = numbered(2)
	m := NewManager(store, &fakeGenerator{}, nil, discardLogger())

	key, err := m.Reset(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, key)
	assert.Empty(t, store.chats["u1"])

	key, err = m.Reset(context.Background(), "nobody")
	require.NoError(t, err)
	assert.Empty(t, key)
}
