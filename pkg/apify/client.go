// Package apify is a minimal client for the Apify v2 REST API: actor runs,
// dataset items and key-value store records.
package apify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/brand-media/internal/resilience"
)

const defaultBaseURL = "https://api.apify.com/v2"

// Run statuses reported by the API.
const (
	StatusReady     = "READY"
	StatusRunning   = "RUNNING"
	StatusSucceeded = "SUCCEEDED"
	StatusFailed    = "FAILED"
	StatusAborted   = "ABORTED"
	StatusTimedOut  = "TIMED-OUT"
)

// Client defines the Apify API operations used by the pipeline.
type Client interface {
	StartRun(ctx context.Context, actorID string, input any) (*Run, error)
	GetRun(ctx context.Context, runID string) (*Run, error)
	ListItems(ctx context.Context, datasetID string, offset, limit int) (*ItemPage, error)
	ListKeys(ctx context.Context, storeID, exclusiveStartKey string, limit int) (*KeyList, error)
	GetRecord(ctx context.Context, storeID, key string) (*Record, error)
	PutRecord(ctx context.Context, storeID, key string, data []byte, contentType string) error
}

// Run is an actor run.
type Run struct {
	ID                     string    `json:"id"`
	ActID                  string    `json:"actId"`
	Status                 string    `json:"status"`
	StartedAt              time.Time `json:"startedAt"`
	FinishedAt             time.Time `json:"finishedAt"`
	DefaultDatasetID       string    `json:"defaultDatasetId"`
	DefaultKeyValueStoreID string    `json:"defaultKeyValueStoreId"`
}

// Terminal reports whether the run has stopped.
func (r *Run) Terminal() bool {
	switch r.Status {
	case StatusSucceeded, StatusFailed, StatusAborted, StatusTimedOut:
		return true
	}
	return false
}

// TotalUnknown is ItemPage.Total when the response carried no usable total.
const TotalUnknown = -1

// ItemPage is one page of dataset items with the pagination headers.
type ItemPage struct {
	Items  []json.RawMessage
	Total  int // TotalUnknown when not reported
	Offset int
	Count  int
	Limit  int
}

// KeyList is one page of a key-value store key listing.
type KeyList struct {
	Items                 []KeyItem `json:"items"`
	Count                 int       `json:"count"`
	Limit                 int       `json:"limit"`
	ExclusiveStartKey     string    `json:"exclusiveStartKey"`
	IsTruncated           bool      `json:"isTruncated"`
	NextExclusiveStartKey string    `json:"nextExclusiveStartKey"`
}

// KeyItem describes one stored record.
type KeyItem struct {
	Key  string `json:"key"`
	Size int64  `json:"size"`
}

// Record is a key-value store record body.
type Record struct {
	Key         string
	ContentType string
	Data        []byte
}

// APIError is returned when Apify responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("apify: HTTP %d: %s", e.StatusCode, e.Body)
}

// HTTPStatus returns the response status code.
func (e *APIError) HTTPStatus() int {
	return e.StatusCode
}

// IsNotFound reports whether err is an APIError with status 404.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// Option configures the httpClient.
type Option func(*httpClient)

// WithBaseURL overrides the default base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithHTTPClient sets a custom *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRetry overrides the retry policy for idempotent requests.
func WithRetry(p resilience.Policy) Option {
	return func(c *httpClient) {
		c.retry = p
	}
}

// httpClient implements Client using net/http.
type httpClient struct {
	token   string
	baseURL string
	http    *http.Client
	retry   resilience.Policy
}

// NewClient creates a new Apify client.
func NewClient(token string, opts ...Option) Client {
	c := &httpClient{
		token:   token,
		baseURL: defaultBaseURL,
		retry:   resilience.DefaultPolicy(),
		http: &http.Client{
			Timeout: 5 * time.Minute,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// actorPath converts "user/actor" ids to the "user~actor" form the API expects.
func actorPath(actorID string) string {
	return url.PathEscape(strings.ReplaceAll(actorID, "/", "~"))
}

func (c *httpClient) StartRun(ctx context.Context, actorID string, input any) (*Run, error) {
	if input == nil {
		input = map[string]any{}
	}
	buf, err := json.Marshal(input)
	if err != nil {
		return nil, eris.Wrap(err, "apify: marshal run input")
	}

	var env struct {
		Data Run `json:"data"`
	}
	resp, err := c.do(ctx, http.MethodPost, "/acts/"+actorPath(actorID)+"/runs", nil, buf, "application/json")
	if err != nil {
		return nil, eris.Wrapf(err, "apify: start run %s", actorID)
	}
	if err := json.Unmarshal(resp.body, &env); err != nil {
		return nil, eris.Wrap(err, "apify: decode run")
	}
	return &env.Data, nil
}

func (c *httpClient) GetRun(ctx context.Context, runID string) (*Run, error) {
	var env struct {
		Data Run `json:"data"`
	}
	resp, err := c.do(ctx, http.MethodGet, "/actor-runs/"+url.PathEscape(runID), nil, nil, "")
	if err != nil {
		return nil, eris.Wrapf(err, "apify: get run %s", runID)
	}
	if err := json.Unmarshal(resp.body, &env); err != nil {
		return nil, eris.Wrap(err, "apify: decode run")
	}
	return &env.Data, nil
}

func (c *httpClient) ListItems(ctx context.Context, datasetID string, offset, limit int) (*ItemPage, error) {
	q := url.Values{}
	q.Set("format", "json")
	q.Set("clean", "true")
	q.Set("offset", strconv.Itoa(offset))
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	resp, err := c.do(ctx, http.MethodGet, "/datasets/"+url.PathEscape(datasetID)+"/items", q, nil, "")
	if err != nil {
		return nil, eris.Wrapf(err, "apify: list items %s", datasetID)
	}

	var items []json.RawMessage
	if err := json.Unmarshal(resp.body, &items); err != nil {
		return nil, eris.Wrap(err, "apify: decode items")
	}

	page := &ItemPage{
		Items:  items,
		Total:  headerInt(resp.header, "X-Apify-Pagination-Total", TotalUnknown),
		Offset: headerInt(resp.header, "X-Apify-Pagination-Offset", offset),
		Count:  headerInt(resp.header, "X-Apify-Pagination-Count", len(items)),
		Limit:  headerInt(resp.header, "X-Apify-Pagination-Limit", limit),
	}
	return page, nil
}

func (c *httpClient) ListKeys(ctx context.Context, storeID, exclusiveStartKey string, limit int) (*KeyList, error) {
	q := url.Values{}
	if exclusiveStartKey != "" {
		q.Set("exclusiveStartKey", exclusiveStartKey)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	resp, err := c.do(ctx, http.MethodGet, "/key-value-stores/"+url.PathEscape(storeID)+"/keys", q, nil, "")
	if err != nil {
		return nil, eris.Wrapf(err, "apify: list keys %s", storeID)
	}

	var env struct {
		Data KeyList `json:"data"`
	}
	if err := json.Unmarshal(resp.body, &env); err != nil {
		return nil, eris.Wrap(err, "apify: decode keys")
	}
	return &env.Data, nil
}

func (c *httpClient) GetRecord(ctx context.Context, storeID, key string) (*Record, error) {
	path := "/key-value-stores/" + url.PathEscape(storeID) + "/records/" + url.PathEscape(key)
	resp, err := c.do(ctx, http.MethodGet, path, nil, nil, "")
	if err != nil {
		return nil, eris.Wrapf(err, "apify: get record %s/%s", storeID, key)
	}
	return &Record{
		Key:         key,
		ContentType: resp.header.Get("Content-Type"),
		Data:        resp.body,
	}, nil
}

func (c *httpClient) PutRecord(ctx context.Context, storeID, key string, data []byte, contentType string) error {
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	path := "/key-value-stores/" + url.PathEscape(storeID) + "/records/" + url.PathEscape(key)
	if _, err := c.do(ctx, http.MethodPut, path, nil, data, contentType); err != nil {
		return eris.Wrapf(err, "apify: put record %s/%s", storeID, key)
	}
	return nil
}

type response struct {
	header http.Header
	body   []byte
}

// do sends one request. Everything except POST is idempotent and is retried
// on transient failures.
func (c *httpClient) do(ctx context.Context, method, path string, query url.Values, body []byte, contentType string) (*response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	if method == http.MethodPost {
		return c.send(ctx, method, u, body, contentType)
	}

	p := c.retry
	if p.OnRetry == nil {
		p.OnRetry = resilience.LogRetries("apify", method+" "+path)
	}
	return resilience.Do(ctx, p, func(ctx context.Context) (*response, error) {
		return c.send(ctx, method, u, body, contentType)
	})
}

func (c *httpClient) send(ctx context.Context, method, u string, body []byte, contentType string) (*response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, r)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "execute request")
	}
	defer resp.Body.Close() //nolint:errcheck

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{
			StatusCode: resp.StatusCode,
			Body:       string(data),
		}
	}

	return &response{header: resp.Header, body: data}, nil
}

func headerInt(h http.Header, name string, fallback int) int {
	v := h.Get(name)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}
