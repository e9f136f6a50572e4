package completion

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/sashabaranov/go-openai"

	"github.com/zhouzirui/science-tutor/backend/internal/config"
	"github.com/zhouzirui/science-tutor/backend/internal/logger"
)

const (
	minAPIKeyLength = 8
	defaultTimeout  = 60 * time.Second
	probePrompt     = "Hello"
)

// Client sends a single prompt to the text-generation service and returns the
// generated text. Failures are reported as *UpstreamError.
type Client interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ValidateAPIKey checks that key is present and well formed. setting names
// the variable the key was read from and is echoed in the error.
func ValidateAPIKey(setting, key string) error {
	key = strings.TrimSpace(key)
	if key == "" {
		return &ConfigurationError{Setting: setting, Reason: "is not set"}
	}
	if len(key) < minAPIKeyLength {
		return &ConfigurationError{Setting: setting, Reason: "is too short to be a valid key"}
	}
	for _, r := range key {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return &ConfigurationError{Setting: setting, Reason: "contains whitespace or control characters"}
		}
	}
	return nil
}

// CredentialSetting returns the variable that carries the credential for provider.
func CredentialSetting(provider string) string {
	if provider == config.ProviderArk {
		return "ARK_API_KEY"
	}
	return "GOOGLE_API_KEY"
}

// New validates cfg and builds the client for the configured provider.
// Every returned error is a *ConfigurationError.
func New(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	if err := ValidateAPIKey(CredentialSetting(cfg.Provider), cfg.APIKey); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, &ConfigurationError{Setting: "LLM_MODEL", Reason: "is not set"}
	}

	var (
		backend Client
		err     error
	)
	switch cfg.Provider {
	case config.ProviderGemini, config.ProviderOpenAI:
		apiCfg := openai.DefaultConfig(strings.TrimSpace(cfg.APIKey))
		apiCfg.BaseURL = cfg.BaseURL
		backend = NewOpenAIClient(openai.NewClientWithConfig(apiCfg), cfg)
	case config.ProviderArk:
		chatModel, modelErr := cfg.NewChatModel(ctx)
		if modelErr != nil {
			return nil, &ConfigurationError{Setting: "LLM_MODEL", Reason: "could not be initialized", Err: modelErr}
		}
		backend, err = NewChainClient(ctx, chatModel, cfg.SystemPrompt)
		if err != nil {
			return nil, &ConfigurationError{Setting: "LLM_SYSTEM_PROMPT", Reason: "could not be compiled", Err: err}
		}
	default:
		return nil, &ConfigurationError{Setting: "LLM_PROVIDER", Reason: fmt.Sprintf("has unsupported value %q", cfg.Provider)}
	}

	logger.L.Info("completion client configured", "provider", cfg.Provider, "model", cfg.Model)
	return WithTimeout(backend, cfg.Timeout), nil
}

// WithTimeout bounds every call made through c. Non-positive durations fall
// back to the default.
func WithTimeout(c Client, d time.Duration) Client {
	if d <= 0 {
		d = defaultTimeout
	}
	return &timeoutClient{next: c, timeout: d}
}

type timeoutClient struct {
	next    Client
	timeout time.Duration
}

func (c *timeoutClient) Complete(ctx context.Context, prompt string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	started := time.Now()
	text, err := c.next.Complete(ctx, prompt)
	if err != nil {
		err = Classify(err)
		logger.L.Warn("completion failed", "error", err, "elapsed", time.Since(started))
		return "", err
	}
	logger.L.Debug("completion succeeded", "prompt_len", len(prompt), "reply_len", len(text), "elapsed", time.Since(started))
	return text, nil
}

// Verify issues a short probe so that a bad key or an inaccessible model is
// reported at startup instead of on the first user question.
func Verify(ctx context.Context, c Client) error {
	if _, err := c.Complete(ctx, probePrompt); err != nil {
		return fmt.Errorf("verify completion client: %w", err)
	}
	return nil
}

// Setup is the startup initialization step: it configures the client and,
// when cfg.VerifyOnStart is set, probes the service once. Callers must not
// accept user input until Setup succeeds.
func Setup(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	client, err := New(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if !cfg.VerifyOnStart {
		return client, nil
	}
	if err := Verify(ctx, client); err != nil {
		return nil, err
	}
	logger.L.Info("connected to model service", "provider", cfg.Provider, "model", cfg.Model)
	return client, nil
}
