package helpers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	settings "github.com/zinc-sig/tally/internal/config"
	"github.com/zinc-sig/tally/internal/webhook"
)

// Webhook defaults
const (
	defaultWebhookTimeout    = 30 * time.Second
	defaultWebhookRetries    = 3
	defaultWebhookRetryDelay = 1 * time.Second
)

// ParseWebhookConfig converts the webhook settings to the client
// configuration. It returns nils when no URL is configured.
func ParseWebhookConfig(cfg settings.WebhookConfig) (*webhook.Config, *webhook.RetryConfig, error) {
	if cfg.URL == "" {
		return nil, nil, nil
	}

	method := strings.ToUpper(cfg.Method)
	switch method {
	case "":
		method = http.MethodPost
	case http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
	default:
		return nil, nil, fmt.Errorf("unsupported webhook method %q", cfg.Method)
	}

	authType := cfg.AuthType
	switch authType {
	case "":
		authType = "none"
	case "none", "bearer", "api-key":
	default:
		return nil, nil, fmt.Errorf("unsupported webhook auth type %q", cfg.AuthType)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultWebhookTimeout
	}

	maxRetries := defaultWebhookRetries
	if cfg.Retries != nil {
		maxRetries = *cfg.Retries
	}
	if maxRetries < 0 {
		return nil, nil, fmt.Errorf("webhook retries must not be negative")
	}

	retryDelay := cfg.RetryDelay
	if retryDelay == 0 {
		retryDelay = defaultWebhookRetryDelay
	}

	webhookConfig := &webhook.Config{
		URL:       cfg.URL,
		Method:    method,
		Timeout:   timeout,
		AuthType:  authType,
		AuthToken: cfg.AuthToken,
	}

	retryConfig := &webhook.RetryConfig{
		MaxRetries:   maxRetries,
		InitialDelay: retryDelay,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
	}

	return webhookConfig, retryConfig, nil
}

// NewWebhookClient returns a client for the settings, or nil when no webhook
// is configured.
func NewWebhookClient(cfg settings.WebhookConfig, log logrus.FieldLogger) (*webhook.Client, error) {
	webhookConfig, retryConfig, err := ParseWebhookConfig(cfg)
	if err != nil || webhookConfig == nil {
		return nil, err
	}
	return webhook.NewClient(webhookConfig, retryConfig, log), nil
}
