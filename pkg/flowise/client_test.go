package flowise

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc, opts ClientOptions) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	opts.BaseURL = server.URL
	if opts.RetryInterval == 0 {
		opts.RetryInterval = time.Millisecond
	}
	return NewClient(opts)
}

func TestListChatflowsArray(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/chatflows", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `[
			{"id":"a","name":"Alpha","flowData":"{}","deployed":true,"updatedDate":"2025-10-19T09:30:00.123Z"},
			{"id":"b","name":"Beta","flowData":"{\"nodes\":[]}","isPublic":false,"category":"support"}
		]`)
	}, ClientOptions{APIKey: "secret"})

	flows, err := client.ListChatflows(context.Background())
	require.NoError(t, err)
	require.Len(t, flows, 2)

	assert.Equal(t, "a", flows[0].ID)
	assert.True(t, flows[0].IsDeployed())
	require.NotNil(t, flows[0].UpdatedDate)
	assert.Equal(t, 123*time.Millisecond, time.Duration(flows[0].UpdatedDate.Nanosecond()))

	assert.False(t, flows[1].IsDeployed())
	assert.False(t, flows[1].Public())
	assert.Equal(t, "support", flows[1].CategoryName())
}

func TestListChatflowsWalksPages(t *testing.T) {
	pages := map[string]string{
		"1": `{"data":[{"id":"a","name":"A"},{"id":"b","name":"B"}],"total":3}`,
		"2": `{"data":[{"id":"c","name":"C"}],"total":3}`,
	}
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "2", r.URL.Query().Get("limit"))
		_, _ = io.WriteString(w, pages[r.URL.Query().Get("page")])
	}, ClientOptions{PageSize: 2})

	flows, err := client.ListChatflows(context.Background())
	require.NoError(t, err)
	require.Len(t, flows, 3)
	assert.Equal(t, "c", flows[2].ID)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestListChatflowsWalksPagesWithoutTotal(t *testing.T) {
	pages := map[string]string{
		"1": `{"data":[{"id":"a"},{"id":"b"}]}`,
		"2": `{"data":[{"id":"c"},{"id":"d"}]}`,
		"3": `{"data":[{"id":"e"}]}`,
	}
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = io.WriteString(w, pages[r.URL.Query().Get("page")])
	}, ClientOptions{PageSize: 2})

	flows, err := client.ListChatflows(context.Background())
	require.NoError(t, err)
	require.Len(t, flows, 5)
	assert.Equal(t, "e", flows[4].ID)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestListChatflowsStopsOnEmptyPageWithoutTotal(t *testing.T) {
	pages := map[string]string{
		"1": `{"data":[{"id":"a"},{"id":"b"}]}`,
		"2": `{"data":[]}`,
	}
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		_, _ = io.WriteString(w, pages[r.URL.Query().Get("page")])
	}, ClientOptions{PageSize: 2})

	flows, err := client.ListChatflows(context.Background())
	require.NoError(t, err)
	assert.Len(t, flows, 2)
	assert.EqualValues(t, 2, atomic.LoadInt32(&calls))
}

func TestListChatflowsRetriesTransientFailures(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, `[{"id":"a"}]`)
	}, ClientOptions{MaxRetries: 3})

	flows, err := client.ListChatflows(context.Background())
	require.NoError(t, err)
	assert.Len(t, flows, 1)
	assert.EqualValues(t, 3, atomic.LoadInt32(&calls))
}

func TestListChatflowsDoesNotRetryClientErrors(t *testing.T) {
	var calls int32
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, "bad key")
	}, ClientOptions{MaxRetries: 3})

	_, err := client.ListChatflows(context.Background())
	require.Error(t, err)

	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusUnauthorized, pe.StatusCode)
	assert.Equal(t, "bad key", pe.Body)
	assert.False(t, IsTransient(err))
	assert.EqualValues(t, 1, atomic.LoadInt32(&calls))
}

func TestListChatflowsUnreachable(t *testing.T) {
	client := NewClient(ClientOptions{BaseURL: "http://127.0.0.1:1", RetryInterval: time.Millisecond})

	_, err := client.ListChatflows(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrProviderUnavailable)
}

func TestStreamPredictionPassesBodyThrough(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/v1/prediction/flow-1", r.URL.Path)

		var req PredictionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.True(t, req.Streaming)
		assert.Equal(t, "hi", req.Question)
		assert.Equal(t, "s-1", req.OverrideConfig["sessionId"])

		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"event\":\"token\",\"data\":\"Hi\"}\n\n")
	}, ClientOptions{})

	body, err := client.StreamPrediction(context.Background(), "flow-1", PredictionRequest{
		Question:       "hi",
		OverrideConfig: map[string]interface{}{"sessionId": "s-1"},
	})
	require.NoError(t, err)
	defer body.Close()

	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t, "data: {\"event\":\"token\",\"data\":\"Hi\"}\n\n", string(raw))
}

func TestStreamPredictionConvertsJSONAnswer(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		_, _ = io.WriteString(w, `{"text":"Hello \"there\"","chatId":"c1"}`)
	}, ClientOptions{})

	body, err := client.StreamPrediction(context.Background(), "flow-1", PredictionRequest{Question: "hi"})
	require.NoError(t, err)
	defer body.Close()

	raw, err := io.ReadAll(body)
	require.NoError(t, err)
	assert.Equal(t,
		"data: {\"event\":\"token\",\"data\":\"Hello \\\"there\\\"\"}\n\n"+
			"data: {\"event\":\"end\",\"data\":\"[DONE]\"}\n\n",
		string(raw))
}

func TestStreamPredictionRejectedStatus(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, "chatflow not found")
	}, ClientOptions{})

	_, err := client.StreamPrediction(context.Background(), "missing", PredictionRequest{Question: "hi"})
	var pe *ProviderError
	require.True(t, errors.As(err, &pe))
	assert.Equal(t, http.StatusNotFound, pe.StatusCode)
}
