// Package flowise is the client for the conversational-AI provider: the
// chatflow catalog and the streaming prediction endpoint.
package flowise

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v5"
)

const maxErrorBody = 4096

type ClientOptions struct {
	BaseURL string
	APIKey  string
	// Timeout bounds catalog calls. Streams are bounded by their context only.
	Timeout time.Duration
	// PageSize > 0 requests the catalog page by page.
	PageSize      int
	MaxRetries    uint
	RetryInterval time.Duration
	HTTPClient    *http.Client
}

type Client struct {
	baseURL       string
	apiKey        string
	httpClient    *http.Client
	streamClient  *http.Client
	pageSize      int
	maxRetries    uint
	retryInterval time.Duration
}

func NewClient(opts ClientOptions) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(opts.BaseURL), "/")
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeout}
	}
	streamClient := &http.Client{Transport: httpClient.Transport}
	retryInterval := opts.RetryInterval
	if retryInterval <= 0 {
		retryInterval = 200 * time.Millisecond
	}

	return &Client{
		baseURL:       baseURL,
		apiKey:        strings.TrimSpace(opts.APIKey),
		httpClient:    httpClient,
		streamClient:  streamClient,
		pageSize:      opts.PageSize,
		maxRetries:    opts.MaxRetries,
		retryInterval: retryInterval,
	}
}

// ListChatflows returns the full catalog as one snapshot. Pages are walked
// internally; any page failing fails the whole call.
func (c *Client) ListChatflows(ctx context.Context) ([]Chatflow, error) {
	all := make([]Chatflow, 0)
	seen := make(map[string]struct{})

	for page := 1; ; page++ {
		items, total, paged, err := c.fetchChatflowPage(ctx, page)
		if err != nil {
			return nil, err
		}

		added := 0
		for _, item := range items {
			if _, dup := seen[item.ID]; dup && item.ID != "" {
				continue
			}
			seen[item.ID] = struct{}{}
			all = append(all, item)
			added++
		}

		if !paged || len(items) == 0 || added == 0 {
			return all, nil
		}
		// Without a total, a short page is the last one.
		if (total >= 0 && len(all) >= total) || (total < 0 && len(items) < c.pageSize) {
			return all, nil
		}
	}
}

// fetchChatflowPage returns total -1 when the response does not carry one.
func (c *Client) fetchChatflowPage(ctx context.Context, page int) ([]Chatflow, int, bool, error) {
	path := "/api/v1/chatflows"
	if c.pageSize > 0 {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("limit", strconv.Itoa(c.pageSize))
		path += "?" + q.Encode()
	}

	body, err := c.getWithRetry(ctx, path)
	if err != nil {
		return nil, 0, false, err
	}

	trimmed := bytes.TrimSpace(body)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var paged pagedChatflows
		if err := json.Unmarshal(trimmed, &paged); err != nil {
			return nil, 0, false, fmt.Errorf("decode chatflow page %d: %w", page, err)
		}
		total := -1
		if paged.Total != nil {
			total = *paged.Total
		}
		return paged.Data, total, c.pageSize > 0, nil
	}

	var items []Chatflow
	if err := json.Unmarshal(trimmed, &items); err != nil {
		return nil, 0, false, fmt.Errorf("decode chatflows: %w", err)
	}
	return items, len(items), false, nil
}

func (c *Client) getWithRetry(ctx context.Context, path string) ([]byte, error) {
	operation := func() ([]byte, error) {
		body, err := c.get(ctx, path)
		if err != nil && !IsTransient(err) {
			return nil, backoff.Permanent(err)
		}
		return body, err
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.retryInterval
	eb.MaxInterval = 10 * c.retryInterval

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(eb),
		backoff.WithMaxTries(c.maxRetries+1),
	)
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", ErrProviderUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Path: path, Body: truncate(string(body))}
	}
	return body, nil
}

// StreamPrediction opens a streaming prediction. The caller owns the returned
// body and must close it. Streaming is never retried.
func (c *Client) StreamPrediction(ctx context.Context, chatflowID string, request PredictionRequest) (io.ReadCloser, error) {
	request.Streaming = true
	payload, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	path := "/api/v1/prediction/" + url.PathEscape(chatflowID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	c.authorize(req)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")

	resp, err := c.streamClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &ProviderError{StatusCode: resp.StatusCode, Path: path, Body: truncate(string(body))}
	}

	// Chatflows that cannot stream answer with a single JSON document.
	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	if mediaType == "application/json" {
		defer resp.Body.Close()
		return jsonAnswerAsFeed(resp.Body)
	}

	return resp.Body, nil
}

func jsonAnswerAsFeed(r io.Reader) (io.ReadCloser, error) {
	var answer predictionResponse
	if err := json.NewDecoder(r).Decode(&answer); err != nil {
		return nil, fmt.Errorf("%w: decode prediction: %v", ErrProviderUnavailable, err)
	}

	text, _ := json.Marshal(answer.Text)
	var feed bytes.Buffer
	fmt.Fprintf(&feed, "data: {\"event\":\"token\",\"data\":%s}\n\n", text)
	feed.WriteString("data: {\"event\":\"end\",\"data\":\"[DONE]\"}\n\n")
	return io.NopCloser(&feed), nil
}

func (c *Client) authorize(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
}

func truncate(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxErrorBody {
		return s[:maxErrorBody]
	}
	return s
}
