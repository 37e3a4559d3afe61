package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/growthcohq/workflow-healer/pkg/models"
	"golang.org/x/time/rate"
)

const (
	apiPrefix       = "/api/v1"
	apiKeyHeader    = "X-N8N-API-KEY"
	defaultPageSize = 100
	maxErrorBody    = 2048
)

var _ Client = (*HTTPClient)(nil)

// Config configures HTTPClient.
type Config struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration

	// RequestsPerSecond and Burst bound calls to the engine. Zero means
	// ten requests per second, matching the 100ms pause between calls the
	// engine's operators asked for.
	RequestsPerSecond float64
	Burst             int

	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
}

// HTTPClient talks to an n8n-compatible REST API.
type HTTPClient struct {
	baseURL string
	apiKey  string
	http    *http.Client
	limiter *rate.Limiter
	logger  *slog.Logger
}

// NewHTTPClient creates a rate-limited engine client.
func NewHTTPClient(cfg Config, logger *slog.Logger) (*HTTPClient, error) {
	if cfg.BaseURL == "" {
		return nil, errors.New("engine base URL is required")
	}

	if _, err := url.Parse(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid engine base URL: %w", err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 10
	}

	if cfg.Burst <= 0 {
		cfg.Burst = 1
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &HTTPClient{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), cfg.Burst),
		logger:  logger.With("module", "engine"),
	}, nil
}

func (c *HTTPClient) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	endpoint := c.baseURL + apiPrefix + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: failed to encode request: %w", op, err)
		}

		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("%s: failed to build request: %w", op, err)
	}

	req.Header.Set(apiKeyHeader, c.apiKey)
	req.Header.Set("Accept", "application/json")

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		return fmt.Errorf("%s: %w: %v", op, ErrUnreachable, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "engine request",
		"op", op,
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

		return newAPIError(op, method, path, resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)

		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s: failed to decode response: %w", op, err)
	}

	return nil
}

func (c *HTTPClient) ListWorkflows(ctx context.Context, filter WorkflowFilter) ([]models.Workflow, error) {
	query := url.Values{}
	query.Set("limit", strconv.Itoa(defaultPageSize))

	if filter.Active != nil {
		query.Set("active", strconv.FormatBool(*filter.Active))
	}

	if len(filter.Tags) > 0 {
		query.Set("tags", strings.Join(filter.Tags, ","))
	}

	var workflows []models.Workflow

	for {
		var page workflowPage
		if err := c.do(ctx, "ListWorkflows", http.MethodGet, "/workflows", query, nil, &page); err != nil {
			return nil, err
		}

		for _, w := range page.Data {
			workflows = append(workflows, w.toModel())
		}

		if page.NextCursor == nil || *page.NextCursor == "" {
			return workflows, nil
		}

		query.Set("cursor", *page.NextCursor)
	}
}

func (c *HTTPClient) GetWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	return c.workflowCall(ctx, "GetWorkflow", http.MethodGet, "/workflows/"+url.PathEscape(id))
}

func (c *HTTPClient) ActivateWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	return c.workflowCall(ctx, "ActivateWorkflow", http.MethodPost, "/workflows/"+url.PathEscape(id)+"/activate")
}

func (c *HTTPClient) DeactivateWorkflow(ctx context.Context, id string) (*models.Workflow, error) {
	return c.workflowCall(ctx, "DeactivateWorkflow", http.MethodPost, "/workflows/"+url.PathEscape(id)+"/deactivate")
}

func (c *HTTPClient) workflowCall(ctx context.Context, op, method, path string) (*models.Workflow, error) {
	var w wireWorkflow
	if err := c.do(ctx, op, method, path, nil, nil, &w); err != nil {
		return nil, err
	}

	wf := w.toModel()

	return &wf, nil
}

func (c *HTTPClient) ListExecutions(ctx context.Context, filter ExecutionFilter) ([]models.Execution, error) {
	pageSize := defaultPageSize
	if filter.Limit > 0 && filter.Limit < pageSize {
		pageSize = filter.Limit
	}

	query := url.Values{}
	query.Set("limit", strconv.Itoa(pageSize))

	if filter.WorkflowID != "" {
		query.Set("workflowId", filter.WorkflowID)
	}

	if filter.Status != "" {
		query.Set("status", string(filter.Status))
	}

	if filter.IncludeData {
		query.Set("includeData", "true")
	}

	var executions []models.Execution

	for {
		var page executionPage
		if err := c.do(ctx, "ListExecutions", http.MethodGet, "/executions", query, nil, &page); err != nil {
			return nil, err
		}

		for _, e := range page.Data {
			ex := e.toModel()
			if !filter.Since.IsZero() && ex.StartedAt.Before(filter.Since) {
				return executions, nil
			}

			executions = append(executions, ex)
			if filter.Limit > 0 && len(executions) >= filter.Limit {
				return executions, nil
			}
		}

		if page.NextCursor == nil || *page.NextCursor == "" {
			return executions, nil
		}

		query.Set("cursor", *page.NextCursor)
	}
}

func (c *HTTPClient) GetExecution(ctx context.Context, id string) (*models.Execution, error) {
	query := url.Values{}
	query.Set("includeData", "true")

	var e wireExecution
	if err := c.do(ctx, "GetExecution", http.MethodGet, "/executions/"+url.PathEscape(id), query, nil, &e); err != nil {
		return nil, err
	}

	ex := e.toModel()

	return &ex, nil
}

func (c *HTTPClient) RetryExecution(ctx context.Context, id string) (*models.Execution, error) {
	var e wireExecution

	err := c.do(ctx, "RetryExecution", http.MethodPost, "/executions/"+url.PathEscape(id)+"/retry", nil,
		map[string]any{"loadWorkflow": true}, &e)
	if err != nil {
		return nil, err
	}

	ex := e.toModel()

	return &ex, nil
}

// Ping lists a single workflow to prove the engine is reachable and the key
// is accepted.
func (c *HTTPClient) Ping(ctx context.Context) error {
	query := url.Values{}
	query.Set("limit", "1")

	return c.do(ctx, "Ping", http.MethodGet, "/workflows", query, nil, &workflowPage{})
}
