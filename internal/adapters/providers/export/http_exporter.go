package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"

	"github.com/zatekoja/coachpackets/internal/domain/providers"
)

// Config configures the HTTP export service client
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
	// ConsecutiveFailures trips the breaker; zero selects 5
	ConsecutiveFailures uint32
	// OpenTimeout is how long the breaker stays open; zero selects 30s
	OpenTimeout time.Duration
}

// HTTPExporter calls a document rendering service over HTTP. Calls go
// through a circuit breaker so an unavailable renderer does not slow every
// generation down to the request timeout.
type HTTPExporter struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewHTTPExporter creates a new exporter
func NewHTTPExporter(cfg Config) (*HTTPExporter, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("export base URL is required")
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = 30 * time.Second
	}

	threshold := cfg.ConsecutiveFailures
	settings := gobreaker.Settings{
		Name:        "pdf-export",
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).Msg("Circuit breaker state change")
		},
	}

	return &HTTPExporter{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		breaker:    gobreaker.NewCircuitBreaker(settings),
	}, nil
}

type exportResponse struct {
	URL string `json:"url"`
}

// Export renders the packet and returns the stored document URL
func (e *HTTPExporter) Export(ctx context.Context, req providers.ExportRequest) (string, error) {
	result, err := e.breaker.Execute(func() (interface{}, error) {
		return e.send(ctx, req)
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return "", fmt.Errorf("PDF export unavailable: %w", err)
		}
		return "", err
	}
	return result.(string), nil
}

func (e *HTTPExporter) send(ctx context.Context, req providers.ExportRequest) (string, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("failed to marshal export request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/exports", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create export request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if e.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+e.apiKey)
	}

	resp, err := e.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("PDF export request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read export response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("PDF export error (status %d): %s", resp.StatusCode, strings.TrimSpace(string(respBody)))
	}

	var out exportResponse
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("failed to unmarshal export response: %w", err)
	}
	if out.URL == "" {
		return "", fmt.Errorf("PDF export response has no url")
	}
	return out.URL, nil
}
