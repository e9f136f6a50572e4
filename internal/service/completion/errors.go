package completion

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/sashabaranov/go-openai"
)

// ConfigurationError reports a missing or unusable setting detected before
// the client is first used. It is fatal at startup.
type ConfigurationError struct {
	Setting string
	Reason  string
	Err     error
}

func (e *ConfigurationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s %s: %v", e.Setting, e.Reason, e.Err)
	}
	return fmt.Sprintf("configuration error: %s %s", e.Setting, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.Err }

// Kind classifies upstream failures so callers can explain them.
type Kind string

const (
	KindTransport     Kind = "transport"
	KindAuth          Kind = "auth"
	KindQuota         Kind = "quota"
	KindContentPolicy Kind = "content_policy"
	KindEmptyResponse Kind = "empty_response"
	KindUnknown       Kind = "unknown"
)

// UpstreamError wraps any failure returned by the text-generation service.
type UpstreamError struct {
	Kind Kind
	Err  error
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream %s error: %v", e.Kind, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// Hint returns a human-readable explanation of the likely cause.
func (e *UpstreamError) Hint() string {
	switch e.Kind {
	case KindTransport:
		return "The model service could not be reached or did not answer in time. Check the network and try again."
	case KindAuth:
		return "The API key is invalid or has expired, or it does not grant access to the configured model."
	case KindQuota:
		return "The API quota or rate limit has been exhausted. Wait a moment before asking again."
	case KindContentPolicy:
		return "The prompt or the answer was blocked by the provider's content policy. Try rephrasing the question."
	case KindEmptyResponse:
		return "The model returned no text. The prompt might be too long; try a shorter question."
	default:
		return "There is an issue with the API service. The key, the model access or the prompt may be the cause."
	}
}

// Classify wraps err in an UpstreamError with a best-effort Kind.
// It returns nil for a nil error and leaves existing UpstreamErrors untouched.
func Classify(err error) error {
	if err == nil {
		return nil
	}

	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return err
	}

	return &UpstreamError{Kind: classifyKind(err), Err: err}
}

func classifyKind(err error) Kind {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return KindTransport
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		if kind, ok := kindFromStatus(apiErr.HTTPStatusCode, apiErr.Message); ok {
			return kind
		}
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if kind, ok := kindFromStatus(reqErr.HTTPStatusCode, reqErr.Error()); ok {
			return kind
		}
		return KindTransport
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindTransport
	}

	return kindFromMessage(err.Error())
}

func kindFromStatus(status int, message string) (Kind, bool) {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return KindAuth, true
	case status == http.StatusTooManyRequests:
		return KindQuota, true
	case status >= http.StatusInternalServerError:
		return KindTransport, true
	case status == http.StatusBadRequest:
		if kind := kindFromMessage(message); kind != KindUnknown {
			return kind, true
		}
	}
	return KindUnknown, false
}

func kindFromMessage(message string) Kind {
	msg := strings.ToLower(message)
	switch {
	case containsAny(msg, "api key", "api_key", "unauthorized", "permission denied", "authentication"):
		return KindAuth
	case containsAny(msg, "quota", "rate limit", "resource_exhausted", "too many requests"):
		return KindQuota
	case containsAny(msg, "safety", "content policy", "content_filter", "blocked", "sensitive"):
		return KindContentPolicy
	case containsAny(msg, "connection refused", "no such host", "timeout", "eof"):
		return KindTransport
	default:
		return KindUnknown
	}
}

func containsAny(s string, needles ...string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
