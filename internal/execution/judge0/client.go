package judge0

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"codecheck/internal/execution"
	appErr "codecheck/pkg/errors"
)

const (
	defaultTimeout    = 15 * time.Second
	defaultAuthHeader = "X-Auth-Token"
)

// Config holds judge service connection settings.
type Config struct {
	BaseURL    string        `yaml:"baseURL"`
	AuthKey    string        `yaml:"authKey"`
	AuthHeader string        `yaml:"authHeader"` // header name carrying AuthKey
	HostHeader string        `yaml:"hostHeader"` // optional host identifier (RapidAPI-style deployments)
	Timeout    time.Duration `yaml:"timeout"`
}

// Client implements execution.Client against a Judge0-compatible REST API.
type Client struct {
	baseURL    string
	authKey    string
	authHeader string
	hostHeader string
	httpClient *http.Client
}

// New creates a judge client. A missing endpoint or credential is a
// configuration error detected here, at startup, not a per-call failure.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, appErr.ConfigurationError(appErr.ConfigMissingEndpoint, "judge.baseURL")
	}
	if strings.TrimSpace(cfg.AuthKey) == "" {
		return nil, appErr.ConfigurationError(appErr.ConfigMissingCredential, "judge.authKey")
	}
	if cfg.AuthHeader == "" {
		cfg.AuthHeader = defaultAuthHeader
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		authKey:    cfg.AuthKey,
		authHeader: cfg.AuthHeader,
		hostHeader: cfg.HostHeader,
		httpClient: &http.Client{Timeout: cfg.Timeout},
	}, nil
}

// Submit performs one POST /submissions request and returns the token.
func (c *Client) Submit(ctx context.Context, sub execution.Submission) (execution.Handle, error) {
	body, err := json.Marshal(submitRequest{
		SourceCode: sub.SourceCode,
		LanguageID: sub.LanguageID,
		Stdin:      sub.Stdin,
	})
	if err != nil {
		return execution.Handle{}, appErr.Wrap(err, appErr.InvalidParams)
	}

	status, respBody, err := c.do(ctx, http.MethodPost, "/submissions?base64_encoded=false&wait=false", body)
	if err != nil {
		return execution.Handle{}, appErr.TransportError(err, "submit")
	}
	if err := checkStatus(status, respBody, "submit"); err != nil {
		return execution.Handle{}, err
	}

	var resp submitResponse
	if err := json.Unmarshal(respBody, &resp); err != nil || resp.Token == "" {
		return execution.Handle{}, appErr.Newf(appErr.TransportBadResponse,
			"judge submit returned no token (status %d)", status)
	}
	return execution.Handle{Token: resp.Token}, nil
}

// Fetch performs one GET /submissions/{token} request. It reports "still
// pending" for the queued/processing states and a terminal Outcome otherwise.
func (c *Client) Fetch(ctx context.Context, handle execution.Handle) (execution.FetchResult, error) {
	if handle.Token == "" {
		return execution.FetchResult{}, appErr.BadRequest("submission token is required")
	}

	path := "/submissions/" + url.PathEscape(handle.Token) + "?base64_encoded=false"
	status, respBody, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return execution.FetchResult{}, appErr.TransportError(err, "fetch")
	}
	if err := checkStatus(status, respBody, "fetch"); err != nil {
		return execution.FetchResult{}, err
	}

	var resp resultResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return execution.FetchResult{}, appErr.Wrapf(err, appErr.TransportBadResponse,
			"judge fetch returned unparsable body")
	}

	if execution.IsPendingStatus(resp.Status.ID) {
		return execution.FetchResult{Pending: true}, nil
	}
	return execution.FetchResult{Outcome: toOutcome(resp)}, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if len(body) > 0 {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("build request failed: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(c.authHeader, c.authKey)
	if c.hostHeader != "" {
		req.Header.Set("X-RapidAPI-Host", c.hostHeader)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response body failed: %w", err)
	}
	return resp.StatusCode, respBody, nil
}

func checkStatus(status int, body []byte, op string) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusTooManyRequests:
		return appErr.Newf(appErr.TransportRateLimited, "judge %s rate limited", op)
	default:
		return appErr.Newf(appErr.TransportBadResponse,
			"judge %s returned status %d: %s", op, status, firstBytes(body, 200))
	}
}

func toOutcome(resp resultResponse) execution.Outcome {
	outcome := execution.Outcome{
		StatusID:          resp.Status.ID,
		StatusDescription: resp.Status.Description,
		Stdout:            deref(resp.Stdout),
		Stderr:            deref(resp.Stderr),
		CompileOutput:     deref(resp.CompileOutput),
		Message:           deref(resp.Message),
	}
	if resp.Time != nil {
		if seconds, err := strconv.ParseFloat(*resp.Time, 64); err == nil {
			outcome.TimeMillis = int64(seconds * 1000)
		}
	}
	if resp.Memory != nil {
		outcome.MemoryKB = *resp.Memory
	}
	return outcome
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func firstBytes(b []byte, n int) string {
	s := strings.TrimSpace(string(b))
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
