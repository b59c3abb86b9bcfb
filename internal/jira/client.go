package jira

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

const (
	searchPath        = "/rest/api/3/search/jql"
	bulkChangelogPath = "/rest/api/3/changelog/bulkfetch"
	maxErrorBody      = 2048
)

// Config holds the connection and authentication settings for Jira Cloud.
type Config struct {
	BaseURL string
	Email   string
	Token   string

	// VerifySSL disables certificate verification when false.
	VerifySSL bool

	RequestTimeout    time.Duration
	RequestsPerSecond float64
	PageSize          int
}

// Validate reports ErrMissingCredentials when any required setting is empty.
func (c Config) Validate() error {
	if strings.TrimSpace(c.BaseURL) == "" || c.Email == "" || c.Token == "" {
		return ErrMissingCredentials
	}
	return nil
}

// Client talks to the Jira Cloud REST API v3.
type Client struct {
	cfg        Config
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewClient builds a client. The configuration is not validated here; callers
// should run Config.Validate before the first request.
func NewClient(cfg Config) *Client {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 60 * time.Second
	}
	if cfg.PageSize <= 0 {
		cfg.PageSize = 100
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	transport := http.DefaultTransport.(*http.Transport).Clone()
	if !cfg.VerifySSL {
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // opt-out via JIRA_VERIFY_SSL
		log.Warn().Str("base_url", cfg.BaseURL).Msg("TLS certificate verification is DISABLED for Jira requests; set JIRA_VERIFY_SSL=true to enable it")
	}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}

	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: transport,
		},
		limiter: rate.NewLimiter(limit, 1),
	}
}

// PageSize is the configured page size for search and changelog calls.
func (c *Client) PageSize() int {
	return c.cfg.PageSize
}

// Search fetches one page of the enhanced JQL search.
func (c *Client) Search(ctx context.Context, req SearchRequest) (*SearchResponse, error) {
	if req.MaxResults <= 0 {
		req.MaxResults = c.cfg.PageSize
	}
	log.Debug().Str("jql", req.JQL).Bool("continuation", req.NextPageToken != "").Msg("Jira search")

	var resp SearchResponse
	if err := c.do(ctx, EndpointSearch, http.MethodPost, searchPath, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// BulkChangelog fetches one page of the bulk changelog endpoint.
func (c *Client) BulkChangelog(ctx context.Context, req BulkChangelogRequest) (*BulkChangelogResponse, error) {
	if req.MaxResults <= 0 {
		req.MaxResults = 1000
	}
	log.Debug().Int("issues", len(req.IssueIDsOrKeys)).Bool("continuation", req.NextPageToken != "").Msg("Jira bulk changelog")

	var resp BulkChangelogResponse
	if err := c.do(ctx, EndpointBulkChangelog, http.MethodPost, bulkChangelogPath, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// IssueChangelog fetches one offset page of an issue's changelog.
func (c *Client) IssueChangelog(ctx context.Context, key string, startAt, maxResults int) (*ChangelogPage, error) {
	if key == "" {
		return nil, ErrEmptyIssueKey
	}
	if maxResults <= 0 {
		maxResults = c.cfg.PageSize
	}
	params := url.Values{}
	params.Set("startAt", strconv.Itoa(startAt))
	params.Set("maxResults", strconv.Itoa(maxResults))
	path := fmt.Sprintf("/rest/api/3/issue/%s/changelog?%s", url.PathEscape(key), params.Encode())

	var page ChangelogPage
	if err := c.do(ctx, EndpointIssueChangelog, http.MethodGet, path, nil, &page); err != nil {
		return nil, err
	}
	return &page, nil
}

func (c *Client) do(ctx context.Context, endpoint, method, path string, body, out any) error {
	if err := c.cfg.Validate(); err != nil {
		return err
	}

	waitStart := time.Now()
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	throttleWaitSeconds.Observe(time.Since(waitStart).Seconds())

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode %s request: %w", endpoint, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.cfg.BaseURL+path, reader)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.cfg.Email, c.cfg.Token)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		requestsTotal.WithLabelValues(endpoint, statusLabelNetworkError).Inc()
		return fmt.Errorf("jira %s: %w", endpoint, err)
	}
	defer resp.Body.Close()
	requestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		apiErr := &APIError{
			Endpoint:   endpoint,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
			RetryAfter: resp.Header.Get("Retry-After"),
		}
		log.Error().Str("endpoint", endpoint).Int("status", resp.StatusCode).Msg("Jira request failed")
		return apiErr
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode Jira %s response: %w", endpoint, err)
	}
	return nil
}
