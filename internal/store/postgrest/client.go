// Package postgrest implements store.Querier against a PostgREST endpoint,
// the REST query API exposed by Supabase projects.
package postgrest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sanspareilsmyn/fishlens/internal/record"
	"github.com/sanspareilsmyn/fishlens/internal/store"
)

const (
	DefaultTimeout = 30 * time.Second

	restPath = "/rest/v1/"

	// maxErrorBody bounds how much of a failed response is read for its message.
	maxErrorBody = 64 << 10
)

type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New returns a client for the project at baseURL. A nil httpClient gets a
// client with DefaultTimeout.
func New(baseURL, apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
	}
}

// apiError is the error body PostgREST returns with non-2xx statuses.
type apiError struct {
	Message string `json:"message"`
	Code    string `json:"code"`
	Details string `json:"details"`
	Hint    string `json:"hint"`
}

// Select implements store.Querier.
func (c *Client) Select(ctx context.Context, q store.Query) ([]record.Record, error) {
	if err := q.Validate(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.requestURL(q), nil)
	if err != nil {
		return nil, fmt.Errorf("build %s request: %w", q.Collection, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("apikey", c.apiKey)
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %s: %w", store.ErrQueryFailed, store.ErrTransport, q.Collection, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("%w: %s: %s", store.ErrQueryFailed, q.Collection, readErrorMessage(resp))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w: %s: read body: %w", store.ErrQueryFailed, store.ErrTransport, q.Collection, err)
	}
	rows, err := record.ParseRecords(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", store.ErrQueryFailed, q.Collection, err)
	}
	return rows, nil
}

func (c *Client) requestURL(q store.Query) string {
	params := url.Values{}
	params.Set("select", strings.Join(q.Columns, ","))
	if q.KeyColumn != "" {
		quoted := make([]string, len(q.Keys))
		for i, k := range q.Keys {
			quoted[i] = quoteValue(k)
		}
		params.Set(q.KeyColumn, "in.("+strings.Join(quoted, ",")+")")
	}
	if r := q.Range; r != nil {
		if r.From != "" {
			params.Add(r.Column, "gte."+r.From)
		}
		if r.To != "" {
			params.Add(r.Column, "lte."+r.To)
		}
	}
	return c.baseURL + restPath + url.PathEscape(q.Collection) + "?" + params.Encode()
}

// quoteValue double-quotes list members that contain PostgREST reserved characters.
func quoteValue(v string) string {
	if !strings.ContainsAny(v, `,.:()" \`) {
		return v
	}
	escaped := strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(v)
	return `"` + escaped + `"`
}

func readErrorMessage(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Message != "" {
		if apiErr.Code != "" {
			return fmt.Sprintf("%s (%s, status %d)", apiErr.Message, apiErr.Code, resp.StatusCode)
		}
		return fmt.Sprintf("%s (status %d)", apiErr.Message, resp.StatusCode)
	}
	text := strings.TrimSpace(string(body))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return fmt.Sprintf("%s (status %d)", text, resp.StatusCode)
}
