// Package searchindex provides a client for an Algolia-compatible search
// index REST API.
package searchindex

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

// Object is one index record. It must carry an "objectID" key.
type Object map[string]any

// TaskResponse is returned by write operations.
type TaskResponse struct {
	TaskID    int64    `json:"taskID"`
	ObjectIDs []string `json:"objectIDs,omitempty"`
	UpdatedAt string   `json:"updatedAt,omitempty"`
}

// QueryRequest is a search request.
type QueryRequest struct {
	Query       string   `json:"query"`
	Filters     string   `json:"filters,omitempty"`
	Facets      []string `json:"facets,omitempty"`
	HitsPerPage int      `json:"hitsPerPage,omitempty"`
	Page        int      `json:"page,omitempty"`
}

// QueryResponse is a page of hits with facet counts.
type QueryResponse struct {
	Hits    []Object                  `json:"hits"`
	NbHits  int                       `json:"nbHits"`
	Page    int                       `json:"page"`
	NbPages int                       `json:"nbPages"`
	Facets  map[string]map[string]int `json:"facets,omitempty"`
}

// Client defines the index operations the catalog uses.
type Client interface {
	// Clear removes every object from the index.
	Clear(ctx context.Context, index string) (*TaskResponse, error)
	// BatchUpsert adds or replaces objects by objectID.
	BatchUpsert(ctx context.Context, index string, objects []Object) (*TaskResponse, error)
	// BatchDelete removes objects by objectID. Unknown IDs are ignored.
	BatchDelete(ctx context.Context, index string, objectIDs []string) (*TaskResponse, error)
	// ConfigureFacets declares the filterable attributes.
	ConfigureFacets(ctx context.Context, index string, attributes []string) (*TaskResponse, error)
	// Query searches the index.
	Query(ctx context.Context, index string, req QueryRequest) (*QueryResponse, error)
}

// StatusError is a non-2xx response that survived retries.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("searchindex: status %d: %s", e.Status, e.Body)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL sets the API base URL.
func WithBaseURL(u string) Option {
	return func(c *httpClient) {
		c.baseURL = u
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit caps request throughput.
func WithRateLimit(perSec float64, burst int) Option {
	return func(c *httpClient) {
		if perSec > 0 {
			c.limiter = NewAdaptiveLimiter(rate.Limit(perSec), burst)
		}
	}
}

// WithRetry sets the attempt count and the initial backoff.
func WithRetry(maxAttempts int, backoff time.Duration) Option {
	return func(c *httpClient) {
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
		c.backoff = backoff
	}
}

type httpClient struct {
	appID       string
	apiKey      string
	baseURL     string
	http        *http.Client
	limiter     *AdaptiveLimiter
	maxAttempts int
	backoff     time.Duration
}

// NewClient creates a new index client.
func NewClient(appID, apiKey string, opts ...Option) Client {
	c := &httpClient{
		appID:   appID,
		apiKey:  apiKey,
		baseURL: fmt.Sprintf("https://%s.algolia.net", appID),
		http: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		maxAttempts: 3,
		backoff:     time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func retryableStatusCode(code int) bool {
	return code == http.StatusTooManyRequests ||
		code == http.StatusInternalServerError ||
		code == http.StatusBadGateway ||
		code == http.StatusServiceUnavailable ||
		code == http.StatusGatewayTimeout
}

// do sends one API call with retries on transport errors and transient
// statuses, then decodes a 2xx body into out.
func (c *httpClient) do(ctx context.Context, method, path string, payload, out any) error {
	var body []byte
	if payload != nil {
		var err error
		if body, err = json.Marshal(payload); err != nil {
			return eris.Wrap(err, "searchindex: marshal request")
		}
	}

	backoff := c.backoff
	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return eris.Wrap(err, "searchindex: rate limiter wait")
			}
		}

		status, respBody, err := c.send(ctx, method, path, body)
		switch {
		case err != nil:
			lastErr = err
		case retryableStatusCode(status):
			if status == http.StatusTooManyRequests && c.limiter != nil {
				c.limiter.OnRateLimit()
			}
			lastErr = &StatusError{Status: status, Body: string(respBody)}
		case status < 200 || status > 299:
			return &StatusError{Status: status, Body: string(respBody)}
		default:
			if c.limiter != nil {
				c.limiter.OnSuccess()
			}
			if out == nil || len(respBody) == 0 {
				return nil
			}
			return eris.Wrap(json.Unmarshal(respBody, out), "searchindex: decode response")
		}

		if attempt < c.maxAttempts {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
			backoff *= 2
		}
	}
	return eris.Wrapf(lastErr, "searchindex: %s %s failed after %d attempts", method, path, c.maxAttempts)
}

func (c *httpClient) send(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, eris.Wrap(err, "searchindex: create request")
	}
	req.Header.Set("X-Algolia-Application-Id", c.appID)
	req.Header.Set("X-Algolia-API-Key", c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, eris.Wrap(err, "searchindex: request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, eris.Wrap(err, "searchindex: read response body")
	}
	return resp.StatusCode, data, nil
}

func indexPath(index, op string) string {
	p := "/1/indexes/" + url.PathEscape(index)
	if op != "" {
		p += "/" + op
	}
	return p
}

func (c *httpClient) Clear(ctx context.Context, index string) (*TaskResponse, error) {
	var out TaskResponse
	if err := c.do(ctx, http.MethodPost, indexPath(index, "clear"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type batchOperation struct {
	Action string `json:"action"`
	Body   Object `json:"body"`
}

type batchRequest struct {
	Requests []batchOperation `json:"requests"`
}

func (c *httpClient) BatchUpsert(ctx context.Context, index string, objects []Object) (*TaskResponse, error) {
	if len(objects) == 0 {
		return &TaskResponse{}, nil
	}
	req := batchRequest{Requests: make([]batchOperation, len(objects))}
	for i, o := range objects {
		if id, _ := o["objectID"].(string); id == "" {
			return nil, eris.Errorf("searchindex: object %d has no objectID", i)
		}
		req.Requests[i] = batchOperation{Action: "updateObject", Body: o}
	}

	var out TaskResponse
	if err := c.do(ctx, http.MethodPost, indexPath(index, "batch"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) BatchDelete(ctx context.Context, index string, objectIDs []string) (*TaskResponse, error) {
	if len(objectIDs) == 0 {
		return &TaskResponse{}, nil
	}
	req := batchRequest{Requests: make([]batchOperation, len(objectIDs))}
	for i, id := range objectIDs {
		if id == "" {
			return nil, eris.Errorf("searchindex: delete %d has no objectID", i)
		}
		req.Requests[i] = batchOperation{Action: "deleteObject", Body: Object{"objectID": id}}
	}

	var out TaskResponse
	if err := c.do(ctx, http.MethodPost, indexPath(index, "batch"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

type settings struct {
	AttributesForFaceting []string `json:"attributesForFaceting"`
}

func (c *httpClient) ConfigureFacets(ctx context.Context, index string, attributes []string) (*TaskResponse, error) {
	var out TaskResponse
	if err := c.do(ctx, http.MethodPut, indexPath(index, "settings"), settings{AttributesForFaceting: attributes}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *httpClient) Query(ctx context.Context, index string, req QueryRequest) (*QueryResponse, error) {
	var out QueryResponse
	if err := c.do(ctx, http.MethodPost, indexPath(index, "query"), req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
