package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/cloudwego/eino-ext/components/model/ark"
	"github.com/cloudwego/eino/components/model"
	"github.com/spf13/viper"
)

// Supported LLM providers.
const (
	ProviderGemini = "gemini"
	ProviderOpenAI = "openai"
	ProviderArk    = "ark"
)

var defaultBaseURLs = map[string]string{
	ProviderGemini: "https://generativelanguage.googleapis.com/v1beta/openai/",
	ProviderOpenAI: "https://api.openai.com/v1",
	ProviderArk:    "https://ark.cn-beijing.volces.com/api/v3",
}

var defaultModels = map[string]string{
	ProviderGemini: "gemini-1.5-pro",
	ProviderOpenAI: "gpt-4o-mini",
}

// Config aggregates every setting the service needs.
type Config struct {
	Server ServerConfig
	LLM    LLMConfig
	Log    LogConfig
}

// ServerConfig describes the HTTP listener.
type ServerConfig struct {
	Addr string
}

// LogConfig controls the structured logger.
type LogConfig struct {
	Level  string
	Format string
}

// LLMConfig describes the upstream text-generation service.
type LLMConfig struct {
	Provider      string
	APIKey        string
	Model         string
	BaseURL       string
	Region        string
	SystemPrompt  string
	Timeout       time.Duration
	VerifyOnStart bool
	Temperature   *float64
	MaxTokens     *int
}

// HasCredential reports whether an API key was supplied at all.
func (c LLMConfig) HasCredential() bool {
	return strings.TrimSpace(c.APIKey) != ""
}

// NewChatModel builds an Ark chat model from the configuration.
func (c LLMConfig) NewChatModel(ctx context.Context) (model.ChatModel, error) {
	if c.Provider != ProviderArk {
		return nil, fmt.Errorf("chat model requires provider %q, got %q", ProviderArk, c.Provider)
	}
	if c.Model == "" {
		return nil, fmt.Errorf("ark provider requires LLM_MODEL to name an endpoint")
	}

	var temperature *float32
	if c.Temperature != nil {
		val := float32(*c.Temperature)
		temperature = &val
	}

	var maxTokens *int
	if c.MaxTokens != nil {
		val := *c.MaxTokens
		maxTokens = &val
	}

	cfg := &ark.ChatModelConfig{
		BaseURL:     c.BaseURL,
		Region:      c.Region,
		APIKey:      c.APIKey,
		Model:       c.Model,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}

	return ark.NewChatModel(ctx, cfg)
}

// Load reads configuration from the environment and, when CONFIG_PATH is set,
// from a YAML file. Environment variables win over file values.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", "8080")
	v.SetDefault("llm_provider", ProviderGemini)
	v.SetDefault("llm_timeout", "60")
	v.SetDefault("llm_verify_on_start", "true")
	v.SetDefault("ark_region", "cn-beijing")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	if path := strings.TrimSpace(os.Getenv("CONFIG_PATH")); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config file %s: %w", path, err)
		}
	}

	server, err := loadServerConfig(v)
	if err != nil {
		return nil, err
	}

	llm, err := loadLLMConfig(v)
	if err != nil {
		return nil, err
	}

	return &Config{
		Server: server,
		LLM:    llm,
		Log: LogConfig{
			Level:  getString(v, "log_level"),
			Format: getString(v, "log_format"),
		},
	}, nil
}

func loadServerConfig(v *viper.Viper) (ServerConfig, error) {
	port := getString(v, "port")

	if strings.Contains(port, ":") {
		// ":8080" and "127.0.0.1:8080" are taken verbatim.
		return ServerConfig{Addr: port}, nil
	}

	if strings.Contains(port, " ") {
		return ServerConfig{}, fmt.Errorf("invalid PORT value: %q", port)
	}

	return ServerConfig{Addr: ":" + port}, nil
}

func loadLLMConfig(v *viper.Viper) (LLMConfig, error) {
	provider := strings.ToLower(getString(v, "llm_provider"))
	if _, ok := defaultBaseURLs[provider]; !ok {
		return LLMConfig{}, fmt.Errorf("invalid LLM_PROVIDER value %q", provider)
	}

	timeoutSeconds, err := parseInt(v, "llm_timeout")
	if err != nil {
		return LLMConfig{}, err
	}
	if timeoutSeconds == nil || *timeoutSeconds <= 0 {
		return LLMConfig{}, fmt.Errorf("invalid LLM_TIMEOUT value: must be a positive number of seconds")
	}

	verify, err := parseBool(v, "llm_verify_on_start", true)
	if err != nil {
		return LLMConfig{}, err
	}

	temperature, err := parseFloat(v, "llm_temperature")
	if err != nil {
		return LLMConfig{}, err
	}

	maxTokens, err := parseInt(v, "llm_max_tokens")
	if err != nil {
		return LLMConfig{}, err
	}

	apiKey := getString(v, "google_api_key")
	if provider == ProviderArk {
		if arkKey := getString(v, "ark_api_key"); arkKey != "" {
			apiKey = arkKey
		}
	}

	baseURL := getString(v, "llm_base_url")
	if baseURL == "" {
		baseURL = defaultBaseURLs[provider]
	}

	modelName := getString(v, "llm_model")
	if modelName == "" {
		modelName = defaultModels[provider]
	}

	return LLMConfig{
		Provider:      provider,
		APIKey:        apiKey,
		Model:         modelName,
		BaseURL:       baseURL,
		Region:        getString(v, "ark_region"),
		SystemPrompt:  getString(v, "llm_system_prompt"),
		Timeout:       time.Duration(*timeoutSeconds) * time.Second,
		VerifyOnStart: verify,
		Temperature:   temperature,
		MaxTokens:     maxTokens,
	}, nil
}

func getString(v *viper.Viper, key string) string {
	return strings.TrimSpace(v.GetString(key))
}

func parseBool(v *viper.Viper, key string, defaultValue bool) (bool, error) {
	raw := getString(v, key)
	if raw == "" {
		return defaultValue, nil
	}

	val, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s value %q: %w", strings.ToUpper(key), raw, err)
	}
	return val, nil
}

func parseFloat(v *viper.Viper, key string) (*float64, error) {
	raw := getString(v, key)
	if raw == "" {
		return nil, nil
	}

	val, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", strings.ToUpper(key), raw, err)
	}
	return &val, nil
}

func parseInt(v *viper.Viper, key string) (*int, error) {
	raw := getString(v, key)
	if raw == "" {
		return nil, nil
	}

	val, err := strconv.Atoi(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid %s value %q: %w", strings.ToUpper(key), raw, err)
	}
	return &val, nil
}
