package upstream

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"cardauth/internal/config"

	"github.com/stretchr/testify/assert"
)

func testClient(baseURL string, attempts int) *Client {
	return NewClient("test-service", config.ExternalService{
		BaseURL:     baseURL,
		Timeout:     2 * time.Second,
		MaxAttempts: attempts,
		Backoff:     time.Millisecond,
	}, nil)
}

func TestDoJSON_RetriesServerErrors(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	var out struct {
		OK bool `json:"ok"`
	}
	err := testClient(server.URL, 3).DoJSON(context.Background(), http.MethodGet, "/thing", nil, &out)

	assert.NoError(t, err)
	assert.True(t, out.OK)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDoJSON_ExhaustedRetries(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	err := testClient(server.URL, 3).DoJSON(context.Background(), http.MethodGet, "/thing", nil, nil)

	assert.ErrorIs(t, err, ErrUnavailable)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestDoJSON_ClientErrorsAreNotRetried(t *testing.T) {
	var calls int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	err := testClient(server.URL, 3).DoJSON(context.Background(), http.MethodGet, "/thing", nil, nil)

	var statusErr *StatusError
	assert.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusNotFound, statusErr.Status)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestDoJSON_SendsJSONBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.Write([]byte(`{}`))
	}))
	defer server.Close()

	body := map[string]string{"currency": "USD"}
	err := testClient(server.URL, 1).DoJSON(context.Background(), http.MethodPost, "/reserve", body, nil)
	assert.NoError(t, err)
}
