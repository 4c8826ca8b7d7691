package egta

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeClock makes every retry wait return immediately while recording the
// requested delays.
type fakeClock struct {
	mu    sync.Mutex
	waits []time.Duration
}

func (f *fakeClock) Now() time.Time { return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC) }

func (f *fakeClock) After(d time.Duration) <-chan time.Time {
	f.mu.Lock()
	f.waits = append(f.waits, d)
	f.mu.Unlock()
	ch := make(chan time.Time, 1)
	ch <- time.Time{}
	return ch
}

func (f *fakeClock) Waits() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]time.Duration(nil), f.waits...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// parseFormBody decodes the form-encoded request body. The service receives
// its parameters in the body for every verb, GET included, so handlers
// cannot rely on ParseForm.
func parseFormBody(t *testing.T, r *http.Request) url.Values {
	t.Helper()
	body, err := io.ReadAll(r.Body)
	require.NoError(t, err)
	values, err := url.ParseQuery(string(body))
	require.NoError(t, err)
	return values
}

// connectTestClient opens a client against the handler with instant retry
// waits. The auth request is the handler's first request.
func connectTestClient(t *testing.T, handler http.Handler, retry RetryPolicy) (*Client, *fakeClock) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	clk := &fakeClock{}
	client, err := Connect(context.Background(), Config{
		Domain:    server.URL,
		AuthToken: "test-token",
		Retry:     retry,
		Clock:     clk,
		Logger:    quietLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)
	return client, clk
}

func TestConnectAuthenticatesSessionWithCookie(t *testing.T) {
	t.Parallel()

	var authRequests atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		authRequests.Add(1)
		form := parseFormBody(t, r)
		assert.Equal(t, "test-token", form.Get("auth_token"))
		http.SetCookie(w, &http.Cookie{Name: "_egta_session", Value: "session-1"})
	})
	mux.HandleFunc("/api/v3/simulators", func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie("_egta_session")
		require.NoError(t, err)
		assert.Equal(t, "session-1", cookie.Value)
		w.Write([]byte(`{"simulators":[]}`))
	})

	client, _ := connectTestClient(t, mux, RetryPolicy{})
	require.Equal(t, int32(1), authRequests.Load())

	_, err := client.Simulators(context.Background())
	require.NoError(t, err)
}

func TestRetrySucceedsAfterGatewayTimeouts(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/api/v3/simulators", func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) < 3 {
			w.WriteHeader(http.StatusGatewayTimeout)
			return
		}
		w.Write([]byte(`{"simulators":[{"id":1,"name":"sim","version":"2"}]}`))
	})

	client, clk := connectTestClient(t, mux, RetryPolicy{
		MaxTries: 3,
		Delay:    10 * time.Second,
		Backoff:  1.2,
	})

	simulators, err := client.Simulators(context.Background())
	require.NoError(t, err)
	require.Len(t, simulators, 1)
	assert.Equal(t, int64(1), simulators[0].ID)

	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, []time.Duration{10 * time.Second, 12 * time.Second}, clk.Waits())
}

func TestRetryExhaustionSurfacesLastResponse(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/api/v3/simulators", func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusGatewayTimeout)
	})

	client, clk := connectTestClient(t, mux, RetryPolicy{
		MaxTries: 3,
		Delay:    time.Second,
		Backoff:  2,
	})

	_, err := client.Simulators(context.Background())
	require.Error(t, err)
	statusErr, ok := AsStatusError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusGatewayTimeout, statusErr.StatusCode)

	assert.Equal(t, int32(3), attempts.Load())
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, clk.Waits())
}

func TestNonRetryableStatusReturnsImmediately(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/api/v3/simulators", func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	client, clk := connectTestClient(t, mux, RetryPolicy{MaxTries: 5, Delay: time.Second, Backoff: 2})

	_, err := client.Simulators(context.Background())
	require.Error(t, err)
	statusErr, ok := AsStatusError(err)
	require.True(t, ok)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)

	assert.Equal(t, int32(1), attempts.Load())
	assert.Empty(t, clk.Waits())
}

func TestRetryOnCustomStatusSet(t *testing.T) {
	t.Parallel()

	var attempts atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/api/v3/games", func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"games":[]}`))
	})

	client, _ := connectTestClient(t, mux, RetryPolicy{
		RetryOn:  []int{http.StatusServiceUnavailable},
		MaxTries: 2,
		Delay:    time.Second,
		Backoff:  1.5,
	})

	_, err := client.Games(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestRetryOnConnectionError(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {})

	server := httptest.NewServer(mux)
	clk := &fakeClock{}
	client, err := Connect(context.Background(), Config{
		Domain:    server.URL,
		AuthToken: "test-token",
		Retry:     RetryPolicy{MaxTries: 2, Delay: time.Second, Backoff: 2},
		Clock:     clk,
		Logger:    quietLogger(),
	})
	require.NoError(t, err)
	t.Cleanup(client.Close)

	server.Close()

	_, err = client.Simulators(context.Background())
	require.Error(t, err)
	_, ok := AsStatusError(err)
	assert.False(t, ok)
	assert.Len(t, clk.Waits(), 1)
}

func TestRequestAbortsOnCanceledContext(t *testing.T) {
	t.Parallel()

	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/api/v3/simulators", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusGatewayTimeout)
	})

	client, _ := connectTestClient(t, mux, RetryPolicy{MaxTries: 5, Delay: time.Second, Backoff: 2})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Simulators(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConnectRequiresDomain(t *testing.T) {
	t.Parallel()

	_, err := Connect(context.Background(), Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "domain is required")
}

func TestNormalizeBaseURL(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		domain string
		want   string
	}{
		{name: "bare host gets https", domain: "egtaonline.eecs.umich.edu", want: "https://egtaonline.eecs.umich.edu"},
		{name: "full url passes through", domain: "http://127.0.0.1:8080", want: "http://127.0.0.1:8080"},
		{name: "trailing slash stripped", domain: "https://example.com/", want: "https://example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, normalizeBaseURL(tt.domain))
		})
	}
}

func TestParseGranularity(t *testing.T) {
	t.Parallel()

	for _, valid := range []string{"structure", "summary", "observations", "full"} {
		g, err := ParseGranularity(valid)
		require.NoError(t, err)
		assert.Equal(t, Granularity(valid), g)
	}

	_, err := ParseGranularity("unknown")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown granularity "unknown"`)
}
