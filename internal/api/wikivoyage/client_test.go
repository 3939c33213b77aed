package wikivoyage

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(url string, attempts uint64) *Client {
	return NewClient(Config{
		URL:       url,
		UserAgent: "test-agent/1.0",
		Attempts:  attempts,
		Wait:      time.Millisecond,
		Timeout:   time.Second,
	}, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestFetchDescription_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "query", q.Get("action"))
		assert.Equal(t, "extracts", q.Get("prop"))
		assert.Equal(t, "Nepal", q.Get("titles"))
		assert.Equal(t, "1", q.Get("explaintext"))
		assert.Equal(t, "2000", q.Get("exchars"))
		assert.Equal(t, "test-agent/1.0", r.Header.Get("User-Agent"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"query":{"pages":{"1234":{"pageid":1234,"title":"Nepal","extract":"Nepal is home to the Himalayas."}}}}`)
	}))
	defer srv.Close()

	desc, err := newTestClient(srv.URL, 3).FetchDescription(context.Background(), "Nepal")
	require.NoError(t, err)
	assert.Equal(t, "Nepal is home to the Himalayas.", desc)
}

func TestFetchDescription_MissingPage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"query":{"pages":{"-1":{"title":"Wakanda","missing":""}}}}`)
	}))
	defer srv.Close()

	desc, err := newTestClient(srv.URL, 3).FetchDescription(context.Background(), "Wakanda")
	require.NoError(t, err)
	assert.Empty(t, desc)
}

func TestFetchDescription_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = io.WriteString(w, `{"query":{"pages":{"7":{"pageid":7,"title":"Iceland","extract":"Geysers."}}}}`)
	}))
	defer srv.Close()

	desc, err := newTestClient(srv.URL, 3).FetchDescription(context.Background(), "Iceland")
	require.NoError(t, err)
	assert.Equal(t, "Geysers.", desc)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDescription_GivesUpAfterAttempts(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 3).FetchDescription(context.Background(), "Nepal")
	require.Error(t, err)
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchDescription_ClientErrorIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 3).FetchDescription(context.Background(), "Nepal")
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchDescription_MalformedBodyIsRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = io.WriteString(w, `{"query":`)
	}))
	defer srv.Close()

	_, err := newTestClient(srv.URL, 2).FetchDescription(context.Background(), "Nepal")
	require.Error(t, err)
	assert.Equal(t, int32(2), calls.Load())
}
