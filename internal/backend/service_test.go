package backend_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"

	"prepfeed/internal/backend"
	"prepfeed/internal/config"
	"prepfeed/internal/core"
	"prepfeed/internal/metrics"
)

func newService(t *testing.T, r chi.Router) *backend.Service {
	t.Helper()

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	service := &backend.Service{
		Logger: slog.New(slog.DiscardHandler),
		Config: &config.Config{APIURL: srv.URL, Token: "secret", RateLimit: 100},
	}
	require.NoError(t, service.Init(t.Context()))
	t.Cleanup(func() {
		require.NoError(t, service.Shutdown(t.Context()))
	})

	return service
}

func write(w http.ResponseWriter, status int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	io.WriteString(w, body) //nolint:errcheck
}

func TestService_Init(t *testing.T) {
	t.Parallel()

	service := &backend.Service{
		Logger: slog.New(slog.DiscardHandler),
		Config: &config.Config{},
	}
	require.ErrorIs(t, service.Init(t.Context()), backend.ErrNoAPIURL)
}

func TestService_RetriesReads(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	r := chi.NewRouter()
	r.Get("/posts/{id}", func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			write(w, http.StatusServiceUnavailable, `{"message": "busy"}`)
			return
		}
		write(w, http.StatusOK, `{"data": {"_id": "p1"}}`)
	})

	post, err := newService(t, r).Post(t.Context(), "p1")
	require.NoError(t, err)
	require.Equal(t, "p1", post.ID)
	require.Equal(t, int32(3), calls.Load())
}

func TestService_DoesNotRetryReadsOnClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	r := chi.NewRouter()
	r.Get("/posts/{id}/comments", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		write(w, http.StatusNotFound, `{"message": "no such post"}`)
	})

	_, err := newService(t, r).Comments(t.Context(), "p1")
	require.ErrorIs(t, err, core.ErrNotFound)
	require.Equal(t, int32(1), calls.Load())
}

func TestService_DoesNotRetryWrites(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	r := chi.NewRouter()
	r.Post("/posts/{id}/like", func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		write(w, http.StatusServiceUnavailable, `{"message": "busy"}`)
	})

	err := newService(t, r).Like(t.Context(), "p1")
	require.ErrorIs(t, err, core.ErrTransient)
	require.Equal(t, int32(1), calls.Load())
}

func TestService_Middlewares(t *testing.T) {
	t.Parallel()

	var requestID string

	r := chi.NewRouter()
	r.Delete("/posts/{id}", func(w http.ResponseWriter, r *http.Request) {
		requestID = r.Header.Get(backend.HeaderRequestID)
		write(w, http.StatusOK, `{}`)
	})

	require.NoError(t, newService(t, r).DeletePost(t.Context(), "p1"))

	_, err := uuid.Parse(requestID)
	require.NoError(t, err)

	require.Positive(t, testutil.CollectAndCount(metrics.APILatency, "prepfeed_api_request_latency_seconds"))
}
