package openai

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"github.com/openai/openai-go/v3/shared"

	"github.com/jinford/ai-tutor/internal/core/tutor"
)

const (
	// DefaultModel はデフォルトで使用するOpenAIモデル
	DefaultModel = "gpt-4o-mini"

	// DefaultTemperature は回答生成のデフォルト温度
	DefaultTemperature = 0.5

	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 60 * time.Second
)

var (
	// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
	ErrAPIKeyNotSet = errors.New("OpenAI API key not set: please set OPENAI_API_KEY environment variable")

	// ErrNoChoices は生成結果が空の場合のエラー
	ErrNoChoices = errors.New("no completion choices returned")
)

type chatOptions struct {
	model       string
	temperature float64
	timeout     time.Duration
	baseURL     string
}

// ChatOption は ChatClient のオプション設定
type ChatOption func(*chatOptions)

// WithChatModel はモデル名を上書きする
func WithChatModel(model string) ChatOption {
	return func(o *chatOptions) {
		if model != "" {
			o.model = model
		}
	}
}

// WithTemperature は生成温度を上書きする
func WithTemperature(temperature float64) ChatOption {
	return func(o *chatOptions) {
		o.temperature = temperature
	}
}

// WithChatTimeout は1回の生成呼び出しのタイムアウトを設定する
func WithChatTimeout(timeout time.Duration) ChatOption {
	return func(o *chatOptions) {
		if timeout > 0 {
			o.timeout = timeout
		}
	}
}

// WithChatBaseURL はAPIのベースURLを上書きする（互換APIやテスト用）
func WithChatBaseURL(baseURL string) ChatOption {
	return func(o *chatOptions) {
		o.baseURL = baseURL
	}
}

// ChatClient は OpenAI Chat Completions API を使用した回答生成クライアント。
// 1回の Complete につきAPI呼び出しは1回だけで、SDK の自動リトライも無効にしている
type ChatClient struct {
	client      openai.Client
	model       string
	temperature float64
	timeout     time.Duration
}

// NewChatClient は新しい ChatClient を作成する
func NewChatClient(apiKey string, opts ...ChatOption) (*ChatClient, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	options := chatOptions{
		model:       DefaultModel,
		temperature: DefaultTemperature,
		timeout:     DefaultTimeout,
	}
	for _, opt := range opts {
		opt(&options)
	}

	requestOpts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if options.baseURL != "" {
		requestOpts = append(requestOpts, option.WithBaseURL(options.baseURL))
	}

	return &ChatClient{
		client:      openai.NewClient(requestOpts...),
		model:       options.model,
		temperature: options.temperature,
		timeout:     options.timeout,
	}, nil
}

// ModelName はモデル名を返す
func (c *ChatClient) ModelName() string {
	return c.model
}

// Complete はメッセージ列から回答を1つ生成する
func (c *ChatClient) Complete(ctx context.Context, messages []tutor.Message) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	params := openai.ChatCompletionNewParams{
		Model:       shared.ChatModel(c.model),
		Messages:    toMessageParams(messages),
		Temperature: openai.Float(c.temperature),
	}

	completion, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", fmt.Errorf("OpenAI API call failed: %w", err)
	}

	if len(completion.Choices) == 0 {
		return "", ErrNoChoices
	}

	return completion.Choices[0].Message.Content, nil
}

func toMessageParams(messages []tutor.Message) []openai.ChatCompletionMessageParamUnion {
	params := make([]openai.ChatCompletionMessageParamUnion, 0, len(messages))
	for _, m := range messages {
		switch m.Role {
		case tutor.MessageRoleSystem:
			params = append(params, openai.SystemMessage(m.Content))
		case tutor.MessageRoleAssistant:
			params = append(params, openai.AssistantMessage(m.Content))
		default:
			params = append(params, openai.UserMessage(m.Content))
		}
	}
	return params
}

func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}

	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429
	}

	return false
}

// インターフェース実装の確認
var _ tutor.Generator = (*ChatClient)(nil)
