package container

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jinford/ai-tutor/internal/core/speech"
	"github.com/jinford/ai-tutor/internal/core/tutor"
	"github.com/jinford/ai-tutor/internal/platform/config"
)

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1}, nil
}

type fakeGenerator struct{}

func (fakeGenerator) Complete(ctx context.Context, messages []tutor.Message) (string, error) {
	return "generated", nil
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		OpenAI: config.OpenAIConfig{EmbeddingDimension: 2},
		RAG: config.RAGConfig{
			ChunkSize:    100,
			ChunkOverlap: 10,
			ChunkUnit:    "char",
			TopK:         3,
		},
		Storage: config.StorageConfig{
			VectorStore:  config.BackendMemory,
			SessionStore: config.BackendMemory,
		},
	}
}

func TestNewContainerInMemory(t *testing.T) {
	ctx := context.Background()
	c, err := NewContainer(ctx, testConfig(t),
		WithContainerEmbedder(fakeEmbedder{}),
		WithContainerGenerator(fakeGenerator{}),
	)
	require.NoError(t, err)
	defer c.Close()

	assert.Nil(t, c.Database())
	assert.Equal(t, 3, c.Retriever.TopK())
	assert.True(t, c.Documents.Supports("notes.pdf"))
	assert.True(t, c.Documents.Supports("notes.md"))

	ingested, err := c.TutorService.Ingest(ctx, tutor.IngestParams{Filename: "notes.txt", Data: []byte("Vectors have magnitude and direction.")})
	require.NoError(t, err)
	assert.Equal(t, 1, ingested.ChunksStored)

	asked, err := c.TutorService.AskOnce(ctx, "What is a vector?")
	require.NoError(t, err)
	assert.Equal(t, "generated", asked.Answer)
	require.Len(t, asked.ContextUsed, 1)
	assert.Equal(t, "notes.txt", asked.ContextUsed[0].Metadata.Source)

	chatted, err := c.TutorService.Chat(ctx, tutor.ChatParams{Message: "hi", SessionID: mo.None[string]()})
	require.NoError(t, err)
	assert.NotEmpty(t, chatted.SessionID)

	// 音声プロバイダ未設定
	_, err = c.SpeechService.Synthesize(ctx, speech.SynthesisRequest{Text: "hi"})
	assert.ErrorIs(t, err, speech.ErrUpstream)
}

func TestNewContainerPersistsSessionSnapshot(t *testing.T) {
	ctx := context.Background()
	cfg := testConfig(t)
	cfg.Storage.SessionSnapshotPath = filepath.Join(t.TempDir(), "sessions.bolt")

	c, err := NewContainer(ctx, cfg, WithContainerEmbedder(fakeEmbedder{}), WithContainerGenerator(fakeGenerator{}))
	require.NoError(t, err)
	result, err := c.TutorService.Chat(ctx, tutor.ChatParams{Message: "remember", SessionID: mo.Some("s1")})
	require.NoError(t, err)
	require.NoError(t, c.Close())

	reopened, err := NewContainer(ctx, cfg, WithContainerEmbedder(fakeEmbedder{}), WithContainerGenerator(fakeGenerator{}))
	require.NoError(t, err)
	defer reopened.Close()

	sess, err := reopened.Sessions.GetOrCreate(ctx, result.SessionID)
	require.NoError(t, err)
	assert.Equal(t, 2, sess.Len())
}

func TestNewContainerRejectsInvalidConfig(t *testing.T) {
	cfg := testConfig(t)
	cfg.Storage.VectorStore = "elasticsearch"

	_, err := NewContainer(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNewContainerRequiresOpenAIKey(t *testing.T) {
	_, err := NewContainer(context.Background(), testConfig(t))
	assert.Error(t, err)
}
