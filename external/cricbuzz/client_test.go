package cricbuzz

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	crerr "github.com/cockroachdb/errors"
	"github.com/riskibarqy/cricket-analytics/internal/platform/resilience"
	"github.com/riskibarqy/cricket-analytics/internal/usecase"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, breaker resilience.BreakerConfig) *Client {
	t.Helper()

	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	return NewClient(ClientConfig{
		HTTPClient: server.Client(),
		BaseURL:    server.URL,
		APIHost:    "cricbuzz-cricket.p.rapidapi.com",
		APIKey:     "secret-key-123",
		Timeout:    2 * time.Second,
		Breaker:    breaker,
	})
}

func TestClientFetch_SendsRapidAPIHeaders(t *testing.T) {
	t.Parallel()

	var gotKey, gotHost, gotPath string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.Header.Get("x-rapidapi-key")
		gotHost = r.Header.Get("x-rapidapi-host")
		gotPath = r.URL.Path
		_, _ = w.Write([]byte(`{"matchHeader":{"matchId":35612,"complete":true}}`))
	}, resilience.BreakerConfig{})

	doc, raw, err := client.FetchRaw(context.Background(), ScorecardPath(35612))
	if err != nil {
		t.Fatalf("FetchRaw error: %v", err)
	}
	if gotKey != "secret-key-123" || gotHost != "cricbuzz-cricket.p.rapidapi.com" {
		t.Fatalf("unexpected headers key=%q host=%q", gotKey, gotHost)
	}
	if gotPath != "/mcenter/v1/35612/scard" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if !doc.Object("matchHeader").Bool("complete") {
		t.Fatalf("expected decoded document, got %v", doc.Raw())
	}
	if !strings.Contains(string(raw), "35612") {
		t.Fatalf("expected raw body, got %s", raw)
	}
}

func TestClientFetch_EmptyBodyIsEmptyDocument(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}, resilience.BreakerConfig{})

	doc, err := client.Fetch(context.Background(), RecentMatchesPath())
	if err != nil {
		t.Fatalf("Fetch error: %v", err)
	}
	if !doc.IsEmpty() {
		t.Fatalf("expected empty document, got %v", doc.Raw())
	}
}

func TestClientFetch_ClassifiesStatusFailures(t *testing.T) {
	t.Parallel()

	cases := []struct {
		status    int
		transient bool
	}{
		{status: http.StatusTooManyRequests, transient: true},
		{status: http.StatusBadGateway, transient: true},
		{status: http.StatusNotFound, transient: false},
		{status: http.StatusForbidden, transient: false},
	}

	for _, tc := range cases {
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(tc.status)
			_, _ = w.Write([]byte(`{"message":"bad key secret-key-123"}`))
		}, resilience.BreakerConfig{})

		_, err := client.Fetch(context.Background(), ScorecardPath(1))
		var failure *usecase.FetchFailure
		if !errors.As(err, &failure) {
			t.Fatalf("status %d: expected FetchFailure, got %v", tc.status, err)
		}
		if failure.Kind != usecase.FetchKindStatus || failure.StatusCode != tc.status {
			t.Fatalf("status %d: unexpected failure %+v", tc.status, failure)
		}
		if failure.Transient() != tc.transient {
			t.Fatalf("status %d: transient=%t want %t", tc.status, failure.Transient(), tc.transient)
		}
		if !errors.Is(err, usecase.ErrFetchFailure) {
			t.Fatalf("status %d: expected ErrFetchFailure", tc.status)
		}
		if strings.Contains(err.Error(), "secret-key-123") {
			t.Fatalf("status %d: api key leaked in %q", tc.status, err.Error())
		}
	}
}

func TestClientFetch_DecodeFailureIsPermanent(t *testing.T) {
	t.Parallel()

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>maintenance</html>`))
	}, resilience.BreakerConfig{})

	_, err := client.Fetch(context.Background(), ScorecardPath(1))
	var failure *usecase.FetchFailure
	if !errors.As(err, &failure) || failure.Kind != usecase.FetchKindDecode {
		t.Fatalf("expected decode failure, got %v", err)
	}
	if usecase.IsTransientFetch(err) {
		t.Fatalf("decode failure must not be transient")
	}
}

func TestClientFetch_MakesOneRequestPerCall(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}, resilience.BreakerConfig{})

	_, err := client.Fetch(context.Background(), ScorecardPath(1))
	if !usecase.IsTransientFetch(err) {
		t.Fatalf("expected transient failure, got %v", err)
	}
	if got := calls.Load(); got != 1 {
		t.Fatalf("expected exactly one request, got %d", got)
	}
}

func TestClientFetch_CircuitOpensAfterTransientFailures(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}, resilience.BreakerConfig{
		Enabled:   true,
		Threshold: 2,
		Cooldown:  time.Minute,
		Trials:    1,
	})

	for i := 0; i < 2; i++ {
		if _, err := client.Fetch(context.Background(), ScorecardPath(1)); err == nil {
			t.Fatalf("call %d: expected failure", i)
		}
	}

	_, err := client.Fetch(context.Background(), ScorecardPath(1))
	var failure *usecase.FetchFailure
	if !errors.As(err, &failure) || failure.Kind != usecase.FetchKindCircuitOpen {
		t.Fatalf("expected circuit open failure, got %v", err)
	}
	if !crerr.Is(err, usecase.ErrDependencyUnavailable) {
		t.Fatalf("expected dependency unavailable mark, got %v", err)
	}
	if got := calls.Load(); got != 2 {
		t.Fatalf("open circuit must not reach the server, calls=%d", got)
	}
}

func TestClientFetch_PermanentFailuresDoNotOpenCircuit(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}, resilience.BreakerConfig{
		Enabled:   true,
		Threshold: 1,
		Cooldown:  time.Minute,
		Trials:    1,
	})

	for i := 0; i < 3; i++ {
		_, _ = client.Fetch(context.Background(), ScorecardPath(1))
	}
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected every call to reach the server, calls=%d", got)
	}
}
