// Package sonarqube provides a client for the SonarQube web API.
//
// The client covers the four endpoints the collector needs: system status,
// project search, quality gate status and component measures. Per-project
// calls (gate, measures) degrade to absent values on failure so a single
// broken project can never abort a batch; batch-level calls return errors.
package sonarqube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/oauth2"

	"github.com/kuhlman-labs/sonar-collector/internal/models"
)

// Auth mode constants for ClientConfig.AuthMode.
const (
	AuthModeBasic  = "basic"
	AuthModeBearer = "bearer"
)

const (
	// DefaultTimeout bounds a single HTTP request when the config does not
	// set one.
	DefaultTimeout = 30 * time.Second

	// projectsPageSize is the page size used for project search. 500 is the
	// maximum SonarQube accepts.
	projectsPageSize = 500

	// systemStatusUp is the status value a healthy server reports.
	systemStatusUp = "UP"
)

// Client talks to the SonarQube web API. Credentials are fixed at
// construction time, so a single client is safe to share across workers
// without locks.
type Client struct {
	httpClient   *http.Client
	baseURL      string
	organization string
	logger       *slog.Logger
}

// ClientConfig configures the SonarQube client
type ClientConfig struct {
	BaseURL      string
	Token        string
	Organization string
	AuthMode     string // basic (default) or bearer
	Timeout      time.Duration
	Logger       *slog.Logger
}

// basicAuthTransport sends the token as the basic auth username with an
// empty password, the scheme SonarQube expects for token authentication.
type basicAuthTransport struct {
	token string
	base  http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	clone.SetBasicAuth(t.token, "")
	clone.Header.Set("Accept", "application/json")
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}

// NewClient creates a new SonarQube client
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("auth token is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	httpClient, err := newHTTPClient(cfg)
	if err != nil {
		return nil, err
	}

	return &Client{
		httpClient:   httpClient,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		organization: cfg.Organization,
		logger:       cfg.Logger,
	}, nil
}

// newHTTPClient builds the HTTP client for the configured auth mode.
func newHTTPClient(cfg ClientConfig) (*http.Client, error) {
	switch cfg.AuthMode {
	case "", AuthModeBasic:
		return &http.Client{
			Timeout:   cfg.Timeout,
			Transport: &basicAuthTransport{token: cfg.Token},
		}, nil
	case AuthModeBearer:
		// SonarQube 10+ also accepts tokens as bearer credentials.
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token})
		client := oauth2.NewClient(context.Background(), ts)
		client.Timeout = cfg.Timeout
		return client, nil
	default:
		return nil, fmt.Errorf("unknown auth mode: %s", cfg.AuthMode)
	}
}

// BaseURL returns the base URL of the SonarQube instance
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Organization returns the configured organization key, if any
func (c *Client) Organization() string {
	return c.organization
}

type systemStatusResponse struct {
	ID      string `json:"id"`
	Version string `json:"version"`
	Status  string `json:"status"`
}

type projectsSearchResponse struct {
	Paging struct {
		PageIndex int `json:"pageIndex"`
		PageSize  int `json:"pageSize"`
		Total     int `json:"total"`
	} `json:"paging"`
	Components []struct {
		Key              string  `json:"key"`
		Name             string  `json:"name"`
		Qualifier        string  `json:"qualifier"`
		Visibility       string  `json:"visibility"`
		LastAnalysisDate *string `json:"lastAnalysisDate"`
	} `json:"components"`
}

type projectStatusResponse struct {
	ProjectStatus *struct {
		ID         string `json:"id"`
		Name       string `json:"name"`
		Status     string `json:"status"`
		Conditions []struct {
			MetricKey      string  `json:"metricKey"`
			Comparator     string  `json:"comparator"`
			PeriodIndex    *int    `json:"periodIndex"`
			ErrorThreshold *string `json:"errorThreshold"`
			ActualValue    *string `json:"actualValue"`
			Status         string  `json:"status"`
		} `json:"conditions"`
	} `json:"projectStatus"`
}

type measuresComponentResponse struct {
	Component struct {
		Key      string `json:"key"`
		Measures []struct {
			Metric string  `json:"metric"`
			Value  *string `json:"value"`
		} `json:"measures"`
	} `json:"component"`
}

// errorBodyLimit bounds how much of an error response is read for context.
const errorBodyLimit = 4096

// get performs a GET request against the API and decodes the JSON response
// into out.
func (c *Client) get(ctx context.Context, operation, path string, query url.Values, out any) error {
	requestURL := c.baseURL + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	start := time.Now()
	c.logger.Debug("SonarQube API call started",
		"operation", operation,
		"url", requestURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return WrapTransportError(err, http.MethodGet, requestURL)
	}

	resp, err := c.httpClient.Do(req)
	duration := time.Since(start)

	if err != nil {
		wrapped := WrapTransportError(err, http.MethodGet, requestURL)
		c.logger.Error("SonarQube API call failed",
			"operation", operation,
			"duration_ms", duration.Milliseconds(),
			"error", wrapped)
		return wrapped
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyLimit))
		wrapped := WrapStatusError(resp.StatusCode, string(body), http.MethodGet, requestURL)
		c.logger.Error("SonarQube API call failed",
			"operation", operation,
			"status_code", resp.StatusCode,
			"duration_ms", duration.Milliseconds(),
			"error", wrapped)
		return wrapped
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    "decoding response: " + err.Error(),
			URL:        requestURL,
			Method:     http.MethodGet,
		}
	}

	c.logger.Debug("SonarQube API call completed",
		"operation", operation,
		"status_code", resp.StatusCode,
		"duration_ms", duration.Milliseconds())

	return nil
}

// TestConnection verifies that the server is reachable and reports itself
// UP. A reachable server in any other state yields an error naming that
// state.
func (c *Client) TestConnection(ctx context.Context) error {
	var status systemStatusResponse
	if err := c.get(ctx, "TestConnection", "/api/system/status", nil, &status); err != nil {
		return err
	}

	if status.Status != systemStatusUp {
		return fmt.Errorf("sonarqube status: %s", status.Status)
	}

	return nil
}

// ListProjects returns every project visible to the token, following
// pagination until the server-reported total is reached.
func (c *Client) ListProjects(ctx context.Context) ([]models.Project, error) {
	var all []models.Project

	for page := 1; ; page++ {
		query := url.Values{}
		query.Set("ps", strconv.Itoa(projectsPageSize))
		query.Set("p", strconv.Itoa(page))
		if c.organization != "" {
			query.Set("organization", c.organization)
		}

		var resp projectsSearchResponse
		if err := c.get(ctx, "ListProjects", "/api/projects/search", query, &resp); err != nil {
			return nil, err
		}

		for _, component := range resp.Components {
			all = append(all, models.Project{
				Key:              component.Key,
				Name:             component.Name,
				Qualifier:        component.Qualifier,
				Visibility:       component.Visibility,
				LastAnalysisDate: component.LastAnalysisDate,
			})
		}

		if len(resp.Components) == 0 || len(all) >= resp.Paging.Total {
			break
		}
	}

	c.logger.Info("Project listing complete", "total_projects", len(all))

	return all, nil
}

// GetQualityGate fetches the quality gate evaluation for a project. Any
// failure yields nil (gate absent) so one project cannot abort a batch;
// the cause is logged.
func (c *Client) GetQualityGate(ctx context.Context, projectKey string) *models.QualityGate {
	query := url.Values{}
	query.Set("projectKey", projectKey)

	var resp projectStatusResponse
	if err := c.get(ctx, "GetQualityGate", "/api/qualitygates/project_status", query, &resp); err != nil {
		c.logger.Warn("Quality gate fetch failed",
			"project", projectKey,
			"error", err)
		return nil
	}

	if resp.ProjectStatus == nil {
		return nil
	}

	gate := &models.QualityGate{
		ID:     resp.ProjectStatus.ID,
		Name:   resp.ProjectStatus.Name,
		Status: resp.ProjectStatus.Status,
	}
	for _, condition := range resp.ProjectStatus.Conditions {
		gate.Conditions = append(gate.Conditions, models.GateCondition{
			MetricKey:      condition.MetricKey,
			Comparator:     condition.Comparator,
			PeriodIndex:    condition.PeriodIndex,
			ErrorThreshold: condition.ErrorThreshold,
			ActualValue:    condition.ActualValue,
			Status:         condition.Status,
		})
	}

	return gate
}

// GetMeasures fetches the requested metric values for a project. Any
// failure yields an empty slice; metrics the server does not report are
// simply missing from the result.
func (c *Client) GetMeasures(ctx context.Context, projectKey string, metricKeys []string) []models.Measure {
	query := url.Values{}
	query.Set("component", projectKey)
	query.Set("metricKeys", strings.Join(metricKeys, ","))

	var resp measuresComponentResponse
	if err := c.get(ctx, "GetMeasures", "/api/measures/component", query, &resp); err != nil {
		c.logger.Warn("Measures fetch failed",
			"project", projectKey,
			"error", err)
		return nil
	}

	measures := make([]models.Measure, 0, len(resp.Component.Measures))
	for _, measure := range resp.Component.Measures {
		measures = append(measures, models.Measure{
			Metric: measure.Metric,
			Value:  measure.Value,
		})
	}

	return measures
}
