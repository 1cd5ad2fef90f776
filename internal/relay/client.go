package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/the-tatanka/product-vas-fraud-api/internal/reporting"
)

const (
	defaultBaseURL = "https://api.cdq.com"
	fraudcasesPath = "/bankaccount-data/rest/fraudcases"
	statisticsPath = "/bankaccount-data/rest/fraudcases/statistics"

	apiKeyHeader = "X-API-KEY"
)

// classification tags every case this service touches upstream; the CDQ API
// stores cases for many tenants and this value scopes reads and writes to
// ours.
const classification = "CATENAX"

// UpstreamError carries the status and message to relay back to the caller
// when the CDQ API rejects a call.
type UpstreamError struct {
	StatusCode int
	Message    string
}

func (e *UpstreamError) Error() string {
	return e.Message
}

// Client is a thin wrapper over the CDQ bankaccount-data REST API.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	reporter   reporting.Reporter
}

func NewClient(baseURL, apiKey string, reporter reporting.Reporter) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if reporter == nil {
		reporter = reporting.NopReporter{}
	}
	return &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		reporter:   reporter,
	}
}

// FraudcasesQuery is the subset of upstream list parameters the dashboard
// may forward. Empty fields are omitted.
type FraudcasesQuery struct {
	Page     string
	PageSize string
	Search   string
	Sort     string
}

func (q FraudcasesQuery) values() url.Values {
	values := url.Values{}
	if q.Page != "" {
		values.Set("page", q.Page)
	}
	if q.PageSize != "" {
		values.Set("pageSize", q.PageSize)
	}
	if q.Search != "" {
		values.Set("search", q.Search)
	}
	if q.Sort != "" {
		values.Set("sort", q.Sort)
	}
	values.Set("classification", classification)
	return values
}

// Fraudcases lists our fraud cases upstream and returns the raw response
// body for verbatim pass-through.
func (c *Client) Fraudcases(ctx context.Context, query FraudcasesQuery) ([]byte, error) {
	return c.do(ctx, http.MethodGet, fraudcasesPath+"?"+query.values().Encode(), nil)
}

// CreateFraudCase submits a new case upstream, forcing our classification
// onto the payload. Successful creates are mirrored to the error sink as an
// audit trail.
func (c *Client) CreateFraudCase(ctx context.Context, payload map[string]interface{}) ([]byte, error) {
	fraudCase := make(map[string]interface{}, len(payload)+1)
	for key, value := range payload {
		fraudCase[key] = value
	}
	fraudCase["classification"] = classification
	wrapped := map[string]interface{}{"fraudCase": fraudCase}

	body, err := c.do(ctx, http.MethodPost, fraudcasesPath, wrapped)
	if err != nil {
		return nil, err
	}

	c.reporter.CaptureMessage("CDQ API Create Fraudcase", map[string]interface{}{
		"fraudCase": fraudCase,
	})
	return body, nil
}

// Statistics fetches the upstream statistics document.
func (c *Client) Statistics(ctx context.Context) ([]byte, error) {
	return c.do(ctx, http.MethodGet, statisticsPath, nil)
}

func (c *Client) do(ctx context.Context, method, path string, payload interface{}) ([]byte, error) {
	var body io.Reader
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("encoding request payload: %w", err)
		}
		body = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set(apiKeyHeader, c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{
			StatusCode: http.StatusServiceUnavailable,
			Message:    fmt.Sprintf("CDQ API call failed: %v", err),
		}
	}
	defer resp.Body.Close()

	text, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{
			StatusCode: http.StatusServiceUnavailable,
			Message:    fmt.Sprintf("CDQ API call failed: %v", err),
		}
	}

	var parsed interface{}
	if err := json.Unmarshal(text, &parsed); err != nil {
		return nil, &UpstreamError{
			StatusCode: http.StatusServiceUnavailable,
			Message: fmt.Sprintf("CDQ API call failed (code: %d): received unparseable content: '%s'",
				resp.StatusCode, text),
		}
	}

	if resp.StatusCode < http.StatusBadRequest {
		return text, nil
	}
	return nil, &UpstreamError{
		StatusCode: resp.StatusCode,
		Message:    fmt.Sprintf("CDQ API call failed (code: %d): %s", resp.StatusCode, upstreamMessage(parsed)),
	}
}

// upstreamMessage collects the upstream's error and message fields, in that
// order, matching how CDQ reports failures.
func upstreamMessage(parsed interface{}) string {
	var parts []string
	if fields, ok := parsed.(map[string]interface{}); ok {
		if value, ok := fields["error"].(string); ok {
			parts = append(parts, value)
		}
		if value, ok := fields["message"].(string); ok {
			parts = append(parts, value)
		}
	}
	if len(parts) == 0 {
		return "unknown error"
	}
	return strings.Join(parts, ", ")
}
