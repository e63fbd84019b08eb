package client

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

	"github.com/kurihiro0119/github-mirror/internal/domain"
	apperrors "github.com/kurihiro0119/github-mirror/internal/errors"
)

// Client is the API client for the github-mirror status server
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new API client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// ListMirrors retrieves every mirror record
func (c *Client) ListMirrors(ctx context.Context) ([]*domain.MirrorRecord, error) {
	var response struct {
		Data []*domain.MirrorRecord `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/mirrors", nil, http.StatusOK, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// GetMirror retrieves the record of one repository. A missing record is a
// NOT_FOUND error.
func (c *Client) GetMirror(ctx context.Context, name string) (*domain.MirrorRecord, error) {
	var response struct {
		Data *domain.MirrorRecord `json:"data"`
	}
	path := "/api/v1/mirrors/" + url.PathEscape(name)
	if err := c.do(ctx, http.MethodGet, path, nil, http.StatusOK, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// ListRuns retrieves the most recent runs, newest first. A limit of zero
// uses the server default.
func (c *Client) ListRuns(ctx context.Context, limit int) ([]*domain.MirrorRun, error) {
	params := url.Values{}
	if limit > 0 {
		params.Set("limit", strconv.Itoa(limit))
	}

	var response struct {
		Data []*domain.MirrorRun `json:"data"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/runs", params, http.StatusOK, &response); err != nil {
		return nil, err
	}
	return response.Data, nil
}

// Summary is the server's state overview
type Summary struct {
	*domain.Summary
	NextRun *time.Time
}

// GetSummary retrieves the state overview
func (c *Client) GetSummary(ctx context.Context) (*Summary, error) {
	var response struct {
		Data    *domain.Summary `json:"data"`
		NextRun *time.Time      `json:"next_run"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/summary", nil, http.StatusOK, &response); err != nil {
		return nil, err
	}
	return &Summary{Summary: response.Data, NextRun: response.NextRun}, nil
}

// TriggerRun asks the server to start a mirror run. It fails with a
// CONFLICT error when a run is already in progress.
func (c *Client) TriggerRun(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/v1/runs", nil, http.StatusAccepted, nil)
}

// HealthCheck checks if the API is healthy
func (c *Client) HealthCheck(ctx context.Context) error {
	var response struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, http.MethodGet, "/health", nil, http.StatusOK, &response); err != nil {
		return err
	}
	if response.Status != "ok" {
		return fmt.Errorf("unhealthy status: %s", response.Status)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, params url.Values, want int, result interface{}) error {
	u, err := url.Parse(c.baseURL + path)
	if err != nil {
		return err
	}
	if len(params) > 0 {
		u.RawQuery = params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != want {
		return decodeError(resp, body)
	}
	if result == nil {
		return nil
	}
	return json.NewDecoder(bytes.NewReader(body)).Decode(result)
}

// decodeError turns the server's error body back into an AppError, keeping
// its code.
func decodeError(resp *http.Response, body []byte) error {
	var payload struct {
		Error struct {
			Code    apperrors.ErrCode `json:"code"`
			Message string            `json:"message"`
			Repo    string            `json:"repo"`
			Path    string            `json:"path"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error.Code == "" {
		return fmt.Errorf("API error: %s - %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return &apperrors.AppError{
		Code:    payload.Error.Code,
		Message: payload.Error.Message,
		Repo:    payload.Error.Repo,
		Path:    payload.Error.Path,
		Err:     fmt.Errorf("API error: %s", resp.Status),
	}
}
