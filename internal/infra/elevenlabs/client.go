package elevenlabs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jinford/ai-tutor/internal/core/speech"
)

const (
	providerName = "elevenlabs"

	// DefaultBaseURL は ElevenLabs API のベースURL
	DefaultBaseURL = "https://api.elevenlabs.io"

	// DefaultTTSModel は読み上げに使うモデル
	DefaultTTSModel = "eleven_multilingual_v2"

	// DefaultSTTModel は文字起こしに使うモデル
	DefaultSTTModel = "scribe_v1"

	// DefaultOutputFormat は読み上げ音声の形式
	DefaultOutputFormat = "mp3_44100_128"

	// DefaultTimeout はAPI呼び出しのデフォルトタイムアウト
	DefaultTimeout = 60 * time.Second
)

// 読み上げの声質設定（安定度以外は固定）
const (
	similarityBoost = 0.85
	style           = 0.25
	useSpeakerBoost = true
	speed           = 1.0
)

// ErrAPIKeyNotSet はAPIキーが設定されていない場合のエラー
var ErrAPIKeyNotSet = errors.New("ElevenLabs API key not set: please set ELEVENLABS_API_KEY environment variable")

// Client は ElevenLabs の音声認識・音声合成クライアント
type Client struct {
	apiKey     string
	baseURL    string
	voiceID    string
	httpClient *http.Client
}

type Option func(*Client)

// WithBaseURL はAPIのベースURLを上書きする
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimSuffix(baseURL, "/")
		}
	}
}

// WithHTTPClient は HTTP クライアントを差し替える
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// NewClient は新しい Client を作成する
func NewClient(apiKey, voiceID string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		voiceID:    voiceID,
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var (
	_ speech.Transcriber = (*Client)(nil)
	_ speech.Synthesizer = (*Client)(nil)
)

// Transcribe は音声ファイルを文字起こしする
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (*speech.Transcript, error) {
	if filename == "" {
		filename = "audio"
	}

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return nil, fmt.Errorf("create form file: %w", err)
	}
	if _, err := fw.Write(audio); err != nil {
		return nil, fmt.Errorf("write audio data: %w", err)
	}
	if err := mw.WriteField("model_id", DefaultSTTModel); err != nil {
		return nil, fmt.Errorf("write model field: %w", err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/speech-to-text", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	data, err := c.do(req, nil)
	if err != nil {
		return nil, err
	}

	var details map[string]any
	if err := json.Unmarshal(data, &details); err != nil {
		return nil, fmt.Errorf("parse response: %w", err)
	}

	return &speech.Transcript{
		Text:    transcriptText(details),
		Details: details,
	}, nil
}

// transcriptText はレスポンスから本文を取り出す。text が無ければ transcript を使う
func transcriptText(details map[string]any) string {
	for _, key := range []string{"text", "transcript"} {
		if s, ok := details[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

type synthesizeRequest struct {
	Text          string        `json:"text"`
	ModelID       string        `json:"model_id"`
	VoiceSettings voiceSettings `json:"voice_settings"`
}

type voiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Style           float64 `json:"style"`
	UseSpeakerBoost bool    `json:"use_speaker_boost"`
	Speed           float64 `json:"speed"`
}

// Synthesize はテキストを MP3 音声に変換する
func (c *Client) Synthesize(ctx context.Context, in speech.SynthesisRequest) (*speech.Audio, error) {
	hint := map[string]string{
		"voice_id":      c.voiceID,
		"model_id":      DefaultTTSModel,
		"output_format": DefaultOutputFormat,
	}
	if c.voiceID == "" {
		return nil, &speech.ProviderError{Provider: providerName, Body: "voice id is not configured", Hint: hint}
	}

	body, err := json.Marshal(synthesizeRequest{
		Text:    in.Text,
		ModelID: DefaultTTSModel,
		VoiceSettings: voiceSettings{
			Stability:       in.Stability.OrElse(speech.DefaultStability),
			SimilarityBoost: similarityBoost,
			Style:           style,
			UseSpeakerBoost: useSpeakerBoost,
			Speed:           speed,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	reqURL := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s",
		c.baseURL, url.PathEscape(c.voiceID), DefaultOutputFormat)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, reqURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("xi-api-key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/mpeg")

	data, err := c.do(req, hint)
	if err != nil {
		return nil, err
	}

	return &speech.Audio{
		Data:        data,
		ContentType: "audio/mpeg",
	}, nil
}

type errorResponse struct {
	Detail struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	} `json:"detail"`
}

// do はリクエストを送信し、200 以外は ProviderError として返す
func (c *Client) do(req *http.Request, hint map[string]string) ([]byte, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &speech.ProviderError{Provider: providerName, Body: err.Error(), Hint: hint}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		message := string(data)
		var errResp errorResponse
		if json.Unmarshal(data, &errResp) == nil && errResp.Detail.Message != "" {
			message = errResp.Detail.Message
		}
		return nil, &speech.ProviderError{
			Provider:   providerName,
			StatusCode: resp.StatusCode,
			Body:       message,
			Hint:       hint,
		}
	}

	return data, nil
}
