package metrics_test

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"prepfeed/internal/config"
	"prepfeed/internal/metrics"
)

func TestHTTPServer(t *testing.T) {
	t.Parallel()

	server := &metrics.HTTPServer{
		Logger: slog.New(slog.DiscardHandler),
		Config: &config.Config{MetricsAddr: "127.0.0.1:0"},
	}
	require.NoError(t, server.Init(t.Context()))

	srv := httptest.NewServer(server.Handler())
	t.Cleanup(srv.Close)

	metrics.FeedLoads.WithLabelValues("first", "success").Inc()

	res, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	res.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, res.StatusCode)

	res, err = http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer res.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, string(body), "prepfeed_feed_loads_total")
}
