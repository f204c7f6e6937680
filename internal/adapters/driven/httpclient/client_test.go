package httpclient

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/didact-labs/didact/internal/core/domain"
)

func fastClient() *Client {
	c := New("test", 5*time.Second)
	c.BackoffBase = time.Millisecond
	c.BackoffMax = 50 * time.Millisecond
	return c
}

func TestPostJSON_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer k", r.Header.Get("Authorization"))

		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		assert.Equal(t, "ping", in["msg"])

		_, _ = w.Write([]byte(`{"msg":"pong"}`))
	}))
	defer server.Close()

	var out map[string]string
	err := fastClient().PostJSON(context.Background(), server.URL,
		map[string]string{"Authorization": "Bearer k"}, map[string]string{"msg": "ping"}, &out)
	require.NoError(t, err)
	assert.Equal(t, "pong", out["msg"])
}

func TestPostJSON_RetriesTransientStatus(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	err := fastClient().PostJSON(context.Background(), server.URL, nil, struct{}{}, nil)
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestPostJSON_DoesNotRetryClientError(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`bad key`))
	}))
	defer server.Close()

	err := fastClient().PostJSON(context.Background(), server.URL, nil, struct{}{}, nil)
	require.Error(t, err)

	var status *StatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, http.StatusUnauthorized, status.StatusCode)
	assert.Equal(t, "bad key", status.Body)
	assert.Equal(t, int32(1), calls.Load())
}

func TestPostJSON_GivesUpAfterMaxRetries(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	c := fastClient()
	c.MaxRetries = 2
	err := c.PostJSON(context.Background(), server.URL, nil, struct{}{}, nil)
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestBackoff_CapsEachStep(t *testing.T) {
	c := New("test", time.Second)
	c.BackoffBase = 10 * time.Millisecond
	c.BackoffMax = 25 * time.Millisecond
	c.MaxRetries = 5

	b := c.backoff()
	var steps []time.Duration
	for {
		d, stop := b.Next()
		if stop {
			break
		}
		steps = append(steps, d)
	}
	require.Len(t, steps, 5)
	assert.Equal(t, 10*time.Millisecond, steps[0])
	assert.Equal(t, 20*time.Millisecond, steps[1])
	for _, d := range steps[2:] {
		assert.Equal(t, 25*time.Millisecond, d)
	}
}

func TestGet(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/ok" {
			return
		}
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	c := fastClient()
	assert.NoError(t, c.Get(context.Background(), server.URL+"/ok", nil))
	assert.Error(t, c.Get(context.Background(), server.URL+"/missing", nil))
}

func TestStatusError_Retryable(t *testing.T) {
	assert.True(t, (&StatusError{StatusCode: 429}).Retryable())
	assert.True(t, (&StatusError{StatusCode: 503}).Retryable())
	assert.False(t, (&StatusError{StatusCode: 400}).Retryable())
}

func TestStatusError_RateLimited(t *testing.T) {
	assert.ErrorIs(t, &StatusError{StatusCode: 429}, domain.ErrRateLimited)
	assert.NotErrorIs(t, &StatusError{StatusCode: 500}, domain.ErrRateLimited)
}
