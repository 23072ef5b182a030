// Package researchapi talks to the hosted research service over HTTP. It
// implements both the project repository and the suggestion provider ports,
// with a circuit breaker so a degraded backend sheds load instead of piling
// up debounced writes.
package researchapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/relight14/micropaymentcrawler-sub002/domain/research"
	pkgerrors "github.com/relight14/micropaymentcrawler-sub002/pkg/errors"
)

// Client is an HTTP client for the research service API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	breaker    *gobreaker.CircuitBreaker
	logger     *zap.Logger
}

// NewClient creates a research API client.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "research-api",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     60 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < 5 {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= 0.8
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    baseURL,
		breaker:    breaker,
		logger:     logger,
	}
}

// GetProject loads a project document.
func (c *Client) GetProject(ctx context.Context, projectID string) (*research.ProjectDocument, error) {
	var doc research.ProjectDocument
	if err := c.do(ctx, http.MethodGet, c.projectPath(projectID), nil, &doc); err != nil {
		return nil, err
	}
	return &doc, nil
}

// PutSources replaces a project's persisted source pool.
func (c *Client) PutSources(ctx context.Context, projectID string, sources []research.SourceRecord) error {
	body := map[string]interface{}{"sources": sources}
	return c.do(ctx, http.MethodPut, c.projectPath(projectID)+"/sources", body, nil)
}

// PutOutline replaces a project's persisted outline.
func (c *Client) PutOutline(ctx context.Context, projectID string, sections []research.OutlineSection) error {
	body := map[string]interface{}{"sections": sections}
	return c.do(ctx, http.MethodPut, c.projectPath(projectID)+"/outline", body, nil)
}

// CreateProject registers a new project.
func (c *Client) CreateProject(ctx context.Context, project research.Project) error {
	return c.do(ctx, http.MethodPost, "/projects", project, nil)
}

// DeleteProject removes a project.
func (c *Client) DeleteProject(ctx context.Context, projectID string) error {
	return c.do(ctx, http.MethodDelete, c.projectPath(projectID), nil, nil)
}

// ListProjects returns project metadata, most recently updated first.
func (c *Client) ListProjects(ctx context.Context) ([]research.Project, error) {
	var projects []research.Project
	if err := c.do(ctx, http.MethodGet, "/projects", nil, &projects); err != nil {
		return nil, err
	}
	return projects, nil
}

// SuggestOutline asks the service for AI-proposed section titles.
func (c *Client) SuggestOutline(ctx context.Context, projectTitle string, sources []research.SourceRecord) ([]research.OutlineSuggestion, error) {
	body := map[string]interface{}{
		"title":   projectTitle,
		"sources": sources,
	}
	var suggestions []research.OutlineSuggestion
	if err := c.do(ctx, http.MethodPost, "/suggest-outline", body, &suggestions); err != nil {
		return nil, err
	}
	return suggestions, nil
}

// CategorizeSource asks the service which sections a source belongs under.
func (c *Client) CategorizeSource(ctx context.Context, title, excerpt string, sectionTitles []string) ([]int, error) {
	body := map[string]interface{}{
		"title":          title,
		"excerpt":        excerpt,
		"section_titles": sectionTitles,
	}
	var indices []int
	if err := c.do(ctx, http.MethodPost, "/categorize-source", body, &indices); err != nil {
		return nil, err
	}
	return indices, nil
}

func (c *Client) projectPath(projectID string) string {
	return "/projects/" + url.PathEscape(projectID)
}

// do runs one request through the circuit breaker and decodes the response
// into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var payload io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return pkgerrors.NewInternalError("failed to encode request body", err)
		}
		payload = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return pkgerrors.NewInternalError("failed to build request", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode == http.StatusNotFound {
			return nil, pkgerrors.NewNotFoundError("project")
		}
		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("research api returned %d: %s", resp.StatusCode, string(data))
		}
		return data, nil
	})
	if err != nil {
		if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
			return pkgerrors.NewNetworkError("research api unavailable", err)
		}
		if pkgerrors.IsNotFound(err) {
			return err
		}
		return pkgerrors.NewNetworkError(fmt.Sprintf("%s %s failed", method, path), err)
	}

	if out == nil {
		return nil
	}
	data := result.([]byte)
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return pkgerrors.NewExternalError("failed to decode research api response", err)
	}
	return nil
}
