package conversation

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tutorlabs/tutord/internal/checkpoint"
	"github.com/tutorlabs/tutord/internal/llm"
	"github.com/tutorlabs/tutord/internal/vectorstore"
)

type fakeEmbedder struct {
	vector []float32
	err    error
}

func (f *fakeEmbedder) EmbedQuery(_ context.Context, _ string) ([]float32, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.vector, nil
}

type fakeIndex struct {
	results []vectorstore.SearchResult
	err     error

	gotK       int
	gotAllowed []string
}

func (f *fakeIndex) EnsureCollection(_ context.Context) error { return nil }

func (f *fakeIndex) UpsertChunks(_ context.Context, _ []vectorstore.Chunk, _ [][]float32) error {
	return nil
}

func (f *fakeIndex) DeleteDocument(_ context.Context, _ string) error { return nil }

func (f *fakeIndex) Search(_ context.Context, _ []float32, k int, allowedDocIDs []string) ([]vectorstore.SearchResult, error) {
	f.gotK = k
	f.gotAllowed = allowedDocIDs
	if f.err != nil {
		return nil, f.err
	}
	return f.results, nil
}

func (f *fakeIndex) Close() error { return nil }

type fakeCompleter struct {
	response string
	err      error

	mu           sync.Mutex
	gotSystem    string
	gotHistory   []llm.Message
	gotGrounding string
	calls        int
}

func (f *fakeCompleter) Complete(_ context.Context, system string, history []llm.Message, userInput, grounding string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.gotSystem = system
	f.gotHistory = history
	f.gotGrounding = grounding
	if f.err != nil {
		return "", f.err
	}
	if f.response != "" {
		return f.response, nil
	}
	return "answer to: " + userInput, nil
}

// memStore is an in-memory checkpoint.Store for engine tests.
type memStore struct {
	mu     sync.Mutex
	states map[string][]checkpoint.Message
	getErr error
	putErr error
}

func newMemStore() *memStore {
	return &memStore{states: make(map[string][]checkpoint.Message)}
}

func (s *memStore) Get(_ context.Context, namespace, threadID string) ([]checkpoint.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	stored := s.states[namespace+"/"+threadID]
	out := make([]checkpoint.Message, len(stored))
	copy(out, stored)
	return out, nil
}

func (s *memStore) Put(_ context.Context, namespace, threadID string, msgs []checkpoint.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	stored := make([]checkpoint.Message, len(msgs))
	copy(stored, msgs)
	s.states[namespace+"/"+threadID] = stored
	return nil
}

func (s *memStore) Close() error { return nil }

func newTestEngine(t *testing.T, index *fakeIndex, embedder *fakeEmbedder, completer *fakeCompleter, store *memStore) *Engine {
	t.Helper()
	engine, err := NewEngine(index, embedder, completer, store, Config{}, nil)
	require.NoError(t, err)
	return engine
}

func TestThreadID(t *testing.T) {
	assert.Equal(t, "course-7_user-42", ThreadID("course-7", "user-42"))
}

func TestAsk_FirstTurn(t *testing.T) {
	index := &fakeIndex{results: []vectorstore.SearchResult{
		{DocID: "doc-1", Seq: 0, Text: "photosynthesis overview"},
		{DocID: "doc-1", Seq: 3, Text: "light-dependent reactions"},
	}}
	completer := &fakeCompleter{}
	store := newMemStore()
	engine := newTestEngine(t, index, &fakeEmbedder{vector: []float32{0.1}}, completer, store)

	answer, err := engine.Ask(context.Background(), AskRequest{
		CourseID:      "bio101",
		UserID:        "u1",
		Query:         "What is photosynthesis?",
		AllowedDocIDs: []string{"doc-1", "doc-2"},
	})
	require.NoError(t, err)
	assert.Equal(t, "answer to: What is photosynthesis?", answer)

	// Retrieval honors the pre-authorized document set and the chat depth.
	assert.Equal(t, []string{"doc-1", "doc-2"}, index.gotAllowed)
	assert.Equal(t, 10, index.gotK)

	// Grounding is the retrieved chunk texts joined together.
	assert.Contains(t, completer.gotGrounding, "photosynthesis overview")
	assert.Contains(t, completer.gotGrounding, "light-dependent reactions")
	assert.Empty(t, completer.gotHistory)

	history, err := engine.History(context.Background(), "bio101", "u1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, checkpoint.RoleUser, history[0].Role)
	assert.Equal(t, "What is photosynthesis?", history[0].Content)
	assert.Equal(t, checkpoint.RoleAssistant, history[1].Role)
}

func TestAsk_HistoryGrowsAcrossTurns(t *testing.T) {
	completer := &fakeCompleter{}
	store := newMemStore()
	engine := newTestEngine(t, &fakeIndex{}, &fakeEmbedder{vector: []float32{0.1}}, completer, store)

	ctx := context.Background()
	_, err := engine.Ask(ctx, AskRequest{CourseID: "c", UserID: "u", Query: "first question"})
	require.NoError(t, err)

	_, err = engine.Ask(ctx, AskRequest{CourseID: "c", UserID: "u", Query: "second question"})
	require.NoError(t, err)

	// The second turn saw the first turn as history.
	require.Len(t, completer.gotHistory, 2)
	assert.Equal(t, llm.RoleUser, completer.gotHistory[0].Role)
	assert.Equal(t, "first question", completer.gotHistory[0].Content)
	assert.Equal(t, llm.RoleAssistant, completer.gotHistory[1].Role)

	history, err := engine.History(ctx, "c", "u")
	require.NoError(t, err)
	require.Len(t, history, 4)
	assert.Equal(t, "first question", history[0].Content)
	assert.Equal(t, "second question", history[2].Content)
}

func TestAsk_ThreadsAreIsolated(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, &fakeIndex{}, &fakeEmbedder{vector: []float32{0.1}}, &fakeCompleter{}, store)

	ctx := context.Background()
	_, err := engine.Ask(ctx, AskRequest{CourseID: "c1", UserID: "u", Query: "q1"})
	require.NoError(t, err)
	_, err = engine.Ask(ctx, AskRequest{CourseID: "c2", UserID: "u", Query: "q2"})
	require.NoError(t, err)

	h1, err := engine.History(ctx, "c1", "u")
	require.NoError(t, err)
	h2, err := engine.History(ctx, "c2", "u")
	require.NoError(t, err)
	assert.Len(t, h1, 2)
	assert.Len(t, h2, 2)
	assert.Equal(t, "q1", h1[0].Content)
	assert.Equal(t, "q2", h2[0].Content)
}

func TestAsk_ConcurrentSameThreadKeepsBothTurns(t *testing.T) {
	store := newMemStore()
	engine := newTestEngine(t, &fakeIndex{}, &fakeEmbedder{vector: []float32{0.1}}, &fakeCompleter{}, store)

	ctx := context.Background()
	var wg sync.WaitGroup
	errs := make([]error, 10)
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = engine.Ask(ctx, AskRequest{
				CourseID: "c",
				UserID:   "u",
				Query:    fmt.Sprintf("question %d", i),
			})
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}

	// Every turn's read-modify-write survived: 10 turns, 2 messages each.
	history, err := engine.History(ctx, "c", "u")
	require.NoError(t, err)
	assert.Len(t, history, 20)
}

func TestAsk_EmptyQueryRejected(t *testing.T) {
	engine := newTestEngine(t, &fakeIndex{}, &fakeEmbedder{}, &fakeCompleter{}, newMemStore())

	_, err := engine.Ask(context.Background(), AskRequest{CourseID: "c", UserID: "u"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChatFailed)
}

func TestAsk_CompleterFailureLeavesHistoryUntouched(t *testing.T) {
	completer := &fakeCompleter{err: errors.New("model unavailable")}
	store := newMemStore()
	engine := newTestEngine(t, &fakeIndex{}, &fakeEmbedder{vector: []float32{0.1}}, completer, store)

	ctx := context.Background()
	_, err := engine.Ask(ctx, AskRequest{CourseID: "c", UserID: "u", Query: "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChatFailed)

	history, err := engine.History(ctx, "c", "u")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestAsk_SearchFailure(t *testing.T) {
	index := &fakeIndex{err: errors.New("index down")}
	engine := newTestEngine(t, index, &fakeEmbedder{vector: []float32{0.1}}, &fakeCompleter{}, newMemStore())

	_, err := engine.Ask(context.Background(), AskRequest{CourseID: "c", UserID: "u", Query: "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChatFailed)
}

func TestAsk_PutFailure(t *testing.T) {
	store := newMemStore()
	store.putErr = errors.New("disk full")
	engine := newTestEngine(t, &fakeIndex{}, &fakeEmbedder{vector: []float32{0.1}}, &fakeCompleter{}, store)

	_, err := engine.Ask(context.Background(), AskRequest{CourseID: "c", UserID: "u", Query: "q"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrChatFailed)
}

func TestNewEngine_RequiresDependencies(t *testing.T) {
	_, err := NewEngine(nil, &fakeEmbedder{}, &fakeCompleter{}, newMemStore(), Config{}, nil)
	require.Error(t, err)

	_, err = NewEngine(&fakeIndex{}, nil, &fakeCompleter{}, newMemStore(), Config{}, nil)
	require.Error(t, err)

	_, err = NewEngine(&fakeIndex{}, &fakeEmbedder{}, nil, newMemStore(), Config{}, nil)
	require.Error(t, err)

	_, err = NewEngine(&fakeIndex{}, &fakeEmbedder{}, &fakeCompleter{}, nil, Config{}, nil)
	require.Error(t, err)
}
