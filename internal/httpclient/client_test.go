package httpclient

import (
	"context"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sharksmhi/ctdstations/internal/errors"
)

func TestNew(t *testing.T) {
	t.Run("default config", func(t *testing.T) {
		cfg := DefaultConfig()
		client := New(&cfg)

		require.NotNil(t, client, "expected non-nil client")
		assert.Equal(t, DefaultTimeout, client.defaultTimeout, "expected default timeout")
		assert.Equal(t, defaultUserAgent, client.userAgent, "expected default user agent")
		assert.Equal(t, DefaultMaxBodyBytes, client.maxBodyBytes)
	})

	t.Run("nil config", func(t *testing.T) {
		client := New(nil)
		assert.Equal(t, DefaultTimeout, client.defaultTimeout)
	})

	t.Run("zero values use defaults", func(t *testing.T) {
		cfg := Config{}
		client := New(&cfg)

		assert.Equal(t, DefaultTimeout, client.defaultTimeout, "expected default timeout")
		assert.NotEmpty(t, client.userAgent, "expected non-empty user agent")
		assert.Zero(t, cfg.DefaultTimeout, "caller config must not be mutated")
	})
}

func TestDo_UserAgent(t *testing.T) {
	var receivedUA string
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		receivedUA = r.Header.Get("User-Agent")
		w.WriteHeader(http.StatusOK)
	})

	client := newTestClientWithConfig(t, &Config{UserAgent: "CustomAgent/2.0"})

	resp, err := client.Get(t.Context(), server.URL)
	require.NoError(t, err)
	closeResponseBody(t, resp)

	assert.Equal(t, "CustomAgent/2.0", receivedUA)
}

func TestDo_NilRequest(t *testing.T) {
	client := newTestClient(t)
	_, err := client.Do(t.Context(), nil)
	require.Error(t, err)
}

func TestHooksAreCalled(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	client := newTestClient(t)
	var before, after atomic.Int32
	client.SetBeforeRequestHook(func(*http.Request) { before.Add(1) })
	client.SetAfterResponseHook(func(_ *http.Request, resp *http.Response, err error) {
		assert.NoError(t, err)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)
		after.Add(1)
	})

	resp, err := client.Get(t.Context(), server.URL)
	require.NoError(t, err)
	closeResponseBody(t, resp)

	assert.Equal(t, int32(1), before.Load())
	assert.Equal(t, int32(1), after.Load())
}

func TestFetchBytes(t *testing.T) {
	const url = "https://example.org/station.txt"

	t.Run("success", func(t *testing.T) {
		transport := httpmock.NewMockTransport()
		transport.RegisterResponder(http.MethodGet, url,
			httpmock.NewStringResponder(http.StatusOK, "STATION_NAME\tLAT_DM\n"))
		client := newTestClientWithConfig(t, &Config{Transport: transport})

		body, err := client.FetchBytes(t.Context(), url)
		require.NoError(t, err)
		assert.Equal(t, "STATION_NAME\tLAT_DM\n", string(body))
		assert.Equal(t, 1, transport.GetTotalCallCount())
	})

	t.Run("non-2xx status is a network error", func(t *testing.T) {
		transport := httpmock.NewMockTransport()
		transport.RegisterResponder(http.MethodGet, url,
			httpmock.NewStringResponder(http.StatusNotFound, "missing"))
		client := newTestClientWithConfig(t, &Config{Transport: transport})

		_, err := client.FetchBytes(t.Context(), url)
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
		assert.Contains(t, err.Error(), "404")
	})

	t.Run("transport error is a network error", func(t *testing.T) {
		transport := httpmock.NewMockTransport()
		transport.RegisterResponder(http.MethodGet, url,
			httpmock.NewErrorResponder(io.ErrUnexpectedEOF))
		client := newTestClientWithConfig(t, &Config{Transport: transport})

		_, err := client.FetchBytes(t.Context(), url)
		require.Error(t, err)
		assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
	})

	t.Run("oversized body is rejected", func(t *testing.T) {
		transport := httpmock.NewMockTransport()
		transport.RegisterResponder(http.MethodGet, url,
			httpmock.NewStringResponder(http.StatusOK, strings.Repeat("x", 64)))
		client := newTestClientWithConfig(t, &Config{Transport: transport, MaxBodyBytes: 16})

		_, err := client.FetchBytes(t.Context(), url)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "exceeds")
	})
}

func TestFetchBytes_DefaultTimeout(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
		w.WriteHeader(http.StatusOK)
	})

	client := newTestClientWithConfig(t, &Config{DefaultTimeout: 50 * time.Millisecond})

	start := time.Now()
	_, err := client.FetchBytes(t.Context(), server.URL)
	require.Error(t, err)
	assert.Less(t, time.Since(start), time.Second, "default timeout should bound the fetch")
}

func TestFetchBytes_CancelledContext(t *testing.T) {
	server := newTestServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	client := newTestClient(t)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	_, err := client.FetchBytes(ctx, server.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
