package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// バックエンド名
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
)

// Config はアプリケーション全体の設定を保持します
type Config struct {
	// Database設定（VECTOR_STORE / SESSION_STORE が postgres の場合に使用）
	Database DatabaseConfig

	// OpenAI設定（Embeddings + 回答生成）
	OpenAI OpenAIConfig

	// ElevenLabs設定（音声認識・音声合成）
	ElevenLabs ElevenLabsConfig

	// チャンク分割・検索設定
	RAG RAGConfig

	// ストアの選択
	Storage StorageConfig

	// HTTPサーバー設定
	HTTP HTTPConfig

	// ログ設定
	Log LogConfig
}

// DatabaseConfig はデータベース接続設定
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// OpenAIConfig はOpenAI API設定
type OpenAIConfig struct {
	APIKey             string
	BaseURL            string
	ChatModel          string
	Temperature        float64
	EmbeddingModel     string
	EmbeddingDimension int
	GenerationTimeout  time.Duration
	EmbeddingTimeout   time.Duration
}

// ElevenLabsConfig はElevenLabs API設定
type ElevenLabsConfig struct {
	APIKey  string
	VoiceID string
	BaseURL string
}

// RAGConfig はチャンク分割と検索の設定
type RAGConfig struct {
	ChunkSize    int
	ChunkOverlap int
	ChunkUnit    string // "char" or "token"
	TopK         int
}

// StorageConfig はストアのバックエンド設定
type StorageConfig struct {
	VectorStore  string // "memory" or "postgres"
	SessionStore string // "memory" or "postgres"

	// SessionSnapshotPath が空でなければ、インメモリの会話履歴を BoltDB ファイルへ保存する
	SessionSnapshotPath string
}

// HTTPConfig はHTTPサーバー設定
type HTTPConfig struct {
	Port               int
	CORSAllowedOrigins []string
	ShutdownTimeout    time.Duration
}

// LogConfig はログ設定
type LogConfig struct {
	Level  string
	Format string
}

// UsesPostgres はいずれかのストアが PostgreSQL を使うかを返します
func (c *Config) UsesPostgres() bool {
	return c.Storage.VectorStore == BackendPostgres || c.Storage.SessionStore == BackendPostgres
}

// Load は環境変数または.envファイルから設定を読み込みます
func Load(envFilePath string) (*Config, error) {
	// .envファイルが存在する場合は読み込む
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			// ファイルが存在しない場合はエラーとしない（環境変数のみで動作可能）
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to load .env file: %w", err)
			}
		}
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "tutor"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "ai_tutor"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			BaseURL:            getEnv("OPENAI_BASE_URL", ""),
			ChatModel:          getEnv("OPENAI_CHAT_MODEL", "gpt-4o-mini"),
			Temperature:        getEnvAsFloat("OPENAI_TEMPERATURE", 0.5),
			EmbeddingModel:     getEnv("OPENAI_EMBEDDING_MODEL", "text-embedding-3-small"),
			EmbeddingDimension: getEnvAsInt("OPENAI_EMBEDDING_DIMENSION", 1536),
			GenerationTimeout:  getEnvAsDuration("GENERATION_TIMEOUT", 60*time.Second),
			EmbeddingTimeout:   getEnvAsDuration("EMBEDDING_TIMEOUT", 30*time.Second),
		},
		ElevenLabs: ElevenLabsConfig{
			APIKey:  getEnv("ELEVENLABS_API_KEY", ""),
			VoiceID: getEnv("ELEVENLABS_VOICE_ID", ""),
			BaseURL: getEnv("ELEVENLABS_BASE_URL", "https://api.elevenlabs.io"),
		},
		RAG: RAGConfig{
			ChunkSize:    getEnvAsInt("CHUNK_SIZE", 1000),
			ChunkOverlap: getEnvAsInt("CHUNK_OVERLAP", 200),
			ChunkUnit:    getEnv("CHUNK_UNIT", "char"),
			TopK:         getEnvAsInt("RETRIEVAL_TOP_K", 3),
		},
		Storage: StorageConfig{
			VectorStore:         strings.ToLower(getEnv("VECTOR_STORE", BackendMemory)),
			SessionStore:        strings.ToLower(getEnv("SESSION_STORE", BackendMemory)),
			SessionSnapshotPath: getEnv("SESSION_SNAPSHOT_PATH", ""),
		},
		HTTP: HTTPConfig{
			Port:               getEnvAsInt("HTTP_PORT", 8000),
			CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
			ShutdownTimeout:    getEnvAsDuration("HTTP_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	return cfg, nil
}

// Validate は設定値の組み合わせを検証します
func (c *Config) Validate() error {
	var errs []error

	for name, backend := range map[string]string{
		"VECTOR_STORE":  c.Storage.VectorStore,
		"SESSION_STORE": c.Storage.SessionStore,
	} {
		if backend != BackendMemory && backend != BackendPostgres {
			errs = append(errs, fmt.Errorf("%s must be %q or %q, got %q", name, BackendMemory, BackendPostgres, backend))
		}
	}

	if c.RAG.ChunkSize <= 0 {
		errs = append(errs, fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.RAG.ChunkSize))
	}
	if c.RAG.ChunkOverlap < 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		errs = append(errs, fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.RAG.ChunkOverlap))
	}
	if c.RAG.ChunkUnit != "char" && c.RAG.ChunkUnit != "token" {
		errs = append(errs, fmt.Errorf("CHUNK_UNIT must be \"char\" or \"token\", got %q", c.RAG.ChunkUnit))
	}
	if c.RAG.TopK <= 0 {
		errs = append(errs, fmt.Errorf("RETRIEVAL_TOP_K must be positive, got %d", c.RAG.TopK))
	}
	if c.OpenAI.EmbeddingDimension <= 0 {
		errs = append(errs, fmt.Errorf("OPENAI_EMBEDDING_DIMENSION must be positive, got %d", c.OpenAI.EmbeddingDimension))
	}
	if c.Storage.SessionStore == BackendPostgres && c.Storage.SessionSnapshotPath != "" {
		errs = append(errs, errors.New("SESSION_SNAPSHOT_PATH is only supported with SESSION_STORE=memory"))
	}

	return errors.Join(errs...)
}

// getEnv は環境変数を取得し、存在しない場合はデフォルト値を返します
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt は環境変数を整数として取得します
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsFloat は環境変数を浮動小数点数として取得します
func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDuration は環境変数を time.Duration（"30s" 形式）として取得します
func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList はカンマ区切りの環境変数を取得します
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var values []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			values = append(values, v)
		}
	}
	return values
}
