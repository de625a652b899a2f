package recast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/zxsted/dialogmanager/internal/logging"
	"github.com/zxsted/dialogmanager/pkg/domain"
	"github.com/zxsted/dialogmanager/pkg/ports"
)

// DefaultBaseURL is the public classification endpoint.
const DefaultBaseURL = "https://api.recast.ai"

var (
	// ErrMissingToken is returned when neither the client nor the request carries a token.
	ErrMissingToken = errors.New("recast: no token provided")
	// ErrUnavailable is returned while the circuit breaker is open.
	ErrUnavailable = domain.ErrClassifierUnavailable
)

// Breaker defaults: trip after 5 consecutive failures, probe again after 30s.
const (
	DefaultBreakerFailures = 5
	DefaultBreakerCooldown = 30 * time.Second
)

// StatusError is a non-200 answer from the classifier.
type StatusError struct {
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("recast: status %d: %s", e.Code, e.Message)
}

// Client calls a Recast-compatible /v2/request endpoint.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	logger  *slog.Logger

	failures uint32
	cooldown time.Duration
	breaker  *gobreaker.CircuitBreaker
}

var _ ports.Classifier = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the API root.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(url, "/")
	}
}

// WithToken sets the default API token.
func WithToken(token string) Option {
	return func(c *Client) {
		c.token = token
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithTimeout bounds each classification call.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.http.Timeout = d
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// WithBreaker tunes the circuit breaker guarding the endpoint. Only
// transport errors and 5xx answers count as failures.
func WithBreaker(failures uint32, cooldown time.Duration) Option {
	return func(c *Client) {
		c.failures = failures
		c.cooldown = cooldown
	}
}

// New creates a client. The default HTTP timeout is 10 seconds.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:  DefaultBaseURL,
		http:     &http.Client{Timeout: 10 * time.Second},
		logger:   logging.NewNop(),
		failures: DefaultBreakerFailures,
		cooldown: DefaultBreakerCooldown,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "recast",
		Timeout: c.cooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= c.failures
		},
		IsSuccessful: countsAsSuccess,
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("classifier circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return c
}

func countsAsSuccess(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return true
	}
	var status *StatusError
	return errors.As(err, &status) && status.Code < http.StatusInternalServerError
}

type request struct {
	Text     string `json:"text"`
	Language string `json:"language,omitempty"`
}

type response struct {
	Results struct {
		Intents  []domain.Intent            `json:"intents"`
		Entities map[string][]domain.Entity `json:"entities"`
		Language string                     `json:"language"`
	} `json:"results"`
	Message string `json:"message"`
}

// Analyze sends the text for classification. A language hint forces the
// processing language.
func (c *Client) Analyze(ctx context.Context, req ports.ClassifyRequest) (*domain.Analysis, error) {
	token := req.Token
	if token == "" {
		token = c.token
	}
	if token == "" {
		return nil, ErrMissingToken
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return c.analyze(ctx, token, req)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("recast: %w: %w", ErrUnavailable, err)
	}
	if err != nil {
		return nil, err
	}
	return result.(*domain.Analysis), nil
}

func (c *Client) analyze(ctx context.Context, token string, req ports.ClassifyRequest) (*domain.Analysis, error) {
	body, err := json.Marshal(request{Text: req.Text, Language: req.Language})
	if err != nil {
		return nil, fmt.Errorf("recast: encode request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v2/request", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("recast: build request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Token "+token)
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("recast: request failed: %w", err)
	}
	defer resp.Body.Close()

	var decoded response
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("recast: decode response (status %d): %w", resp.StatusCode, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &StatusError{Code: resp.StatusCode, Message: decoded.Message}
	}

	c.logger.Debug("utterance classified",
		"intents", len(decoded.Results.Intents),
		"entity_types", len(decoded.Results.Entities),
		"language", decoded.Results.Language,
		"duration", time.Since(start))

	return &domain.Analysis{
		Intents:  decoded.Results.Intents,
		Entities: decoded.Results.Entities,
		Language: decoded.Results.Language,
	}, nil
}
