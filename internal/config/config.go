package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	Server  ServerConfig
	Whisper WhisperConfig
	OpenAI  OpenAIConfig
	Cache   CacheConfig
	Log     LogConfig
}

type ServerConfig struct {
	Host        string
	Port        int
	TmpDir      string   // empty: os.TempDir()
	CORSOrigins []string // "*" allows any origin
}

type WhisperConfig struct {
	Backend             string // "faster-whisper" or "openai"
	ModelSize           string // tiny, base, small, medium, large-v3, ...
	ModelPath           string // takes precedence over ModelSize when set
	Device              string
	ComputeType         string
	Language            string // empty: auto-detect
	ConvertToSimplified bool
	PythonBin           string
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
}

type CacheConfig struct {
	Addr     string // empty disables the result cache
	Password string
	DB       int
	TTL      time.Duration
}

type LogConfig struct {
	Level string
}

const (
	BackendFasterWhisper = "faster-whisper"
	BackendOpenAI        = "openai"
)

func Load() (*Config, error) {
	port, err := getEnvInt("WHISPER_PORT", 8000)
	if err != nil {
		return nil, fmt.Errorf("invalid WHISPER_PORT: %w", err)
	}

	cacheDB, err := getEnvInt("WHISPER_CACHE_DB", 0)
	if err != nil {
		return nil, fmt.Errorf("invalid WHISPER_CACHE_DB: %w", err)
	}

	cacheTTL, err := getEnvDuration("WHISPER_CACHE_TTL", 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("invalid WHISPER_CACHE_TTL: %w", err)
	}

	device, computeType := "cpu", "float32"
	if HasAccelerator() {
		device, computeType = "cuda", "float16"
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:        getEnv("WHISPER_HOST", "0.0.0.0"),
			Port:        port,
			TmpDir:      getEnv("WHISPER_TMP_DIR", ""),
			CORSOrigins: getEnvList("WHISPER_CORS_ORIGINS", []string{"*"}),
		},
		Whisper: WhisperConfig{
			Backend:             getEnv("WHISPER_BACKEND", BackendFasterWhisper),
			ModelSize:           getEnv("WHISPER_MODEL_SIZE", "base"),
			ModelPath:           getEnv("WHISPER_MODEL_PATH", ""),
			Device:              getEnv("WHISPER_DEVICE", device),
			ComputeType:         getEnv("WHISPER_COMPUTE_TYPE", computeType),
			Language:            getEnv("WHISPER_LANGUAGE", ""),
			ConvertToSimplified: getEnvBool("WHISPER_CONVERT_TO_SIMPLIFIED", true),
			PythonBin:           getEnv("WHISPER_PYTHON", "python3"),
		},
		OpenAI: OpenAIConfig{
			APIKey:  getEnv("WHISPER_OPENAI_API_KEY", os.Getenv("OPENAI_API_KEY")),
			BaseURL: getEnv("WHISPER_OPENAI_BASE_URL", ""),
			Model:   getEnv("WHISPER_OPENAI_MODEL", "whisper-1"),
		},
		Cache: CacheConfig{
			Addr:     getEnv("WHISPER_CACHE_ADDR", ""),
			Password: getEnv("WHISPER_CACHE_PASSWORD", ""),
			DB:       cacheDB,
			TTL:      cacheTTL,
		},
		Log: LogConfig{
			Level: getEnv("WHISPER_LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ModelID is the identifier handed to the model runtime: a custom model
// path when configured, otherwise the model size name.
func (c *Config) ModelID() string {
	if c.Whisper.ModelPath != "" {
		return c.Whisper.ModelPath
	}
	return c.Whisper.ModelSize
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

// getEnvBool treats only a case-insensitive "true" as true.
func getEnvBool(key string, fallback bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return strings.ToLower(v) == "true"
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

// getEnvList splits a comma-separated value, dropping blank entries.
func getEnvList(key string, fallback []string) []string {
	var out []string
	for _, v := range strings.Split(os.Getenv(key), ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
