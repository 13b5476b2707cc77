package openai

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/jinford/ai-tutor/internal/core/index"
)

const (
	// DefaultEmbeddingModel はモデル未指定時のデフォルトモデル
	DefaultEmbeddingModel = "text-embedding-3-small"
	// DefaultEmbeddingDimension はOpenAI推奨のデフォルト次元
	DefaultEmbeddingDimension = 1536
	// DefaultEmbeddingTimeout はEmbedding呼び出しのデフォルトタイムアウト
	DefaultEmbeddingTimeout = 30 * time.Second

	// MaxRetries はレート制限エラー時の最大リトライ回数
	MaxRetries = 3

	// BaseBackoff はExponential Backoffの基底時間
	BaseBackoff = 2 * time.Second

	// MaxBackoff はExponential Backoffの最大待機時間
	MaxBackoff = 32 * time.Second

	maxBatchSize = 100
)

// ErrMaxRetriesExceeded は最大リトライ回数を超過した場合のエラー
var ErrMaxRetriesExceeded = errors.New("max retries exceeded")

// Embedder は OpenAI API を使用してテキストをベクトルに変換する
type Embedder struct {
	client      openai.Client
	model       string
	dimension   int
	timeout     time.Duration
	baseBackoff time.Duration
}

type embedderOptions struct {
	model       string
	dimension   int
	timeout     time.Duration
	baseURL     string
	baseBackoff time.Duration
}

// EmbedderOption は Embedder のオプション設定
type EmbedderOption func(*embedderOptions)

// WithEmbeddingModel はモデル名を上書きする
func WithEmbeddingModel(model string) EmbedderOption {
	return func(o *embedderOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithEmbeddingDimension はベクトル次元を上書きする
func WithEmbeddingDimension(dimension int) EmbedderOption {
	return func(o *embedderOptions) {
		o.dimension = dimension
	}
}

// WithEmbeddingTimeout は1回のAPI呼び出しのタイムアウトを設定する
func WithEmbeddingTimeout(timeout time.Duration) EmbedderOption {
	return func(o *embedderOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithEmbeddingBaseURL はAPIのベースURLを上書きする（互換APIやテスト用）
func WithEmbeddingBaseURL(baseURL string) EmbedderOption {
	return func(o *embedderOptions) {
		o.baseURL = baseURL
	}
}

// NewEmbedder は新しい Embedder を作成する
func NewEmbedder(apiKey string, opts ...EmbedderOption) (*Embedder, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	options := embedderOptions{
		model:       DefaultEmbeddingModel,
		dimension:   DefaultEmbeddingDimension,
		timeout:     DefaultEmbeddingTimeout,
		baseBackoff: BaseBackoff,
	}
	for _, opt := range opts {
		opt(&options)
	}

	// レート制限のリトライは自前で行う
	requestOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if options.baseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(options.baseURL))
	}

	return &Embedder{
		client:      openai.NewClient(requestOpts...),
		model:       options.model,
		dimension:   options.dimension,
		timeout:     options.timeout,
		baseBackoff: options.baseBackoff,
	}, nil
}

// Embed は単一テキストの Embedding を生成する
func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := e.BatchEmbed(ctx, []string{text})
	if err != nil {
		return nil, err
	}

	if len(embeddings) == 0 {
		return nil, fmt.Errorf("no embeddings generated")
	}

	return embeddings[0], nil
}

// BatchEmbed はバッチで Embedding を生成する（最大100件）
func (e *Embedder) BatchEmbed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, fmt.Errorf("no texts provided")
	}

	if len(texts) > maxBatchSize {
		return nil, fmt.Errorf("batch size exceeds maximum of %d", maxBatchSize)
	}

	params := openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(e.model),
	}

	if len(texts) == 1 {
		params.Input = openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(texts[0]),
		}
	} else {
		params.Input = openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		}
	}

	if e.dimension > 0 {
		params.Dimensions = openai.Int(int64(e.dimension))
	}

	resp, err := e.embedWithRetry(ctx, params)
	if err != nil {
		return nil, err
	}

	embeddings := make([][]float32, len(resp.Data))
	for _, data := range resp.Data {
		if data.Index < 0 || int(data.Index) >= len(embeddings) {
			return nil, fmt.Errorf("embedding index %d out of range", data.Index)
		}
		vector := make([]float32, len(data.Embedding))
		for i, v := range data.Embedding {
			vector[i] = float32(v)
		}
		embeddings[data.Index] = vector
	}

	return embeddings, nil
}

func (e *Embedder) embedWithRetry(ctx context.Context, params openai.EmbeddingNewParams) (*openai.CreateEmbeddingResponse, error) {
	var lastErr error

	for attempt := 0; attempt <= MaxRetries; attempt++ {
		if attempt > 0 {
			backoffDuration := time.Duration(math.Pow(2, float64(attempt-1))) * e.baseBackoff
			if backoffDuration > MaxBackoff {
				backoffDuration = MaxBackoff
			}

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoffDuration):
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, e.timeout)
		resp, err := e.client.Embeddings.New(callCtx, params)
		cancel()
		if err != nil {
			lastErr = err

			if isRateLimitError(err) {
				continue
			}

			return nil, fmt.Errorf("failed to generate embeddings: %w", err)
		}

		return resp, nil
	}

	return nil, fmt.Errorf("%w: %w", ErrMaxRetriesExceeded, lastErr)
}

// ModelName はモデル名を返す
func (e *Embedder) ModelName() string {
	return e.model
}

// Dimension はベクトル次元数を返す
func (e *Embedder) Dimension() int {
	return e.dimension
}

// MaxBatchSize はバッチ処理の最大サイズを返す（OpenAI APIは最大100件）
func (e *Embedder) MaxBatchSize() int {
	return maxBatchSize
}

// インターフェース実装の確認
var _ index.BatchEmbedder = (*Embedder)(nil)
