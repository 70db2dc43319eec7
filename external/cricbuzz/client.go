package cricbuzz

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/cricket-analytics/internal/platform/jsondoc"
	"github.com/riskibarqy/cricket-analytics/internal/platform/logging"
	"github.com/riskibarqy/cricket-analytics/internal/platform/resilience"
	"github.com/riskibarqy/cricket-analytics/internal/usecase"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultBaseURL  = "https://cricbuzz-cricket.p.rapidapi.com"
	defaultAPIHost  = "cricbuzz-cricket.p.rapidapi.com"
	maxResponseSize = 6 << 20
)

type ClientConfig struct {
	HTTPClient *http.Client
	BaseURL    string
	APIHost    string
	APIKey     string
	Timeout    time.Duration
	Logger     *logging.Logger
	Breaker    resilience.BreakerConfig
}

// Client performs authenticated GETs against the Cricbuzz RapidAPI endpoints.
// Each call issues exactly one request; retry and pacing belong to the caller.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiHost    string
	apiKey     string
	logger     *logging.Logger
	breaker    *resilience.Breaker
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = 20 * time.Second
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	apiHost := strings.TrimSpace(cfg.APIHost)
	if apiHost == "" {
		apiHost = defaultAPIHost
	}

	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		apiHost:    apiHost,
		apiKey:     strings.TrimSpace(cfg.APIKey),
		logger:     logger,
		breaker:    resilience.NewBreaker(cfg.Breaker),
	}
}

// Fetch returns the decoded JSON object served at path.
func (c *Client) Fetch(ctx context.Context, path string) (jsondoc.Document, error) {
	doc, _, err := c.FetchRaw(ctx, path)
	return doc, err
}

// FetchRaw is Fetch plus the undecoded body, for archiving.
func (c *Client) FetchRaw(ctx context.Context, path string) (jsondoc.Document, []byte, error) {
	path = "/" + strings.TrimLeft(strings.TrimSpace(path), "/")

	var raw []byte
	call := func() error {
		var err error
		raw, err = c.executeRequest(ctx, path)
		return err
	}

	err := c.breaker.Execute(call, usecase.IsTransientFetch)
	if crerr.Is(err, resilience.ErrCircuitOpen) {
		c.logger.WarnContext(ctx, "cricbuzz circuit breaker rejected request", "endpoint", path, "state", c.breaker.State().String())
		return jsondoc.Document{}, nil, &usecase.FetchFailure{
			Endpoint: path,
			Kind:     usecase.FetchKindCircuitOpen,
			Err:      crerr.Mark(err, usecase.ErrDependencyUnavailable),
		}
	}
	if err != nil {
		return jsondoc.Document{}, nil, err
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		return jsondoc.FromMap(nil), raw, nil
	}
	doc, err := jsondoc.Parse(raw)
	if err != nil {
		return jsondoc.Document{}, nil, &usecase.FetchFailure{
			Endpoint: path,
			Kind:     usecase.FetchKindDecode,
			Err:      fmt.Errorf("decode provider payload: %w", err),
		}
	}
	return doc, raw, nil
}

func (c *Client) executeRequest(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, &usecase.FetchFailure{Endpoint: path, Kind: usecase.FetchKindNetwork, Err: fmt.Errorf("build request: %w", err)}
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("x-rapidapi-key", c.apiKey)
	req.Header.Set("x-rapidapi-host", c.apiHost)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &usecase.FetchFailure{
			Endpoint: path,
			Kind:     usecase.FetchKindNetwork,
			Err:      crerr.Newf("send request: %s", c.sanitize(err.Error())),
		}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &usecase.FetchFailure{Endpoint: path, Kind: usecase.FetchKindNetwork, Err: fmt.Errorf("read response body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		failure := &usecase.FetchFailure{
			Endpoint:   path,
			Kind:       usecase.FetchKindStatus,
			StatusCode: resp.StatusCode,
			Err:        crerr.Newf("body=%s", c.sanitize(abbreviateBody(raw))),
		}
		c.logger.WarnContext(ctx, "cricbuzz request failed", "endpoint", path, "status", resp.StatusCode, "transient", failure.Transient())
		return nil, failure
	}

	return raw, nil
}

func (c *Client) sanitize(value string) string {
	value = strings.TrimSpace(value)
	if c.apiKey != "" {
		value = strings.ReplaceAll(value, c.apiKey, "REDACTED")
	}
	return value
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
