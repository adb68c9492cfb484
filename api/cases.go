package api

import (
	"context"
	"net/http"
	"net/url"

	"github.com/agentuity/go-caselaw/caselaw"
	"github.com/cockroachdb/errors"
)

// Endpoints of the case API.
const (
	CasesEndpoint   = "/api/cases"
	CountEndpoint   = "/api/cases/count"
	FiltersEndpoint = "/api/filters"
	SyncEndpoint    = "/api/sync/upc"
	HealthEndpoint  = "/api/health"
)

// MaxPageSize is the largest limit the server accepts for one request.
const MaxPageSize = 100

// FetchCases requests one batch of cases. params carries skip, limit and
// any filter parameters. It has the shape of a loader fetcher.
func (c *Client) FetchCases(ctx context.Context, endpoint string, params url.Values) ([]caselaw.Case, error) {
	var cases []caselaw.Case
	if err := c.Do(ctx, http.MethodGet, endpoint, params, nil, &cases); err != nil {
		return nil, err
	}
	return cases, nil
}

// CountCases returns the number of cases matching the filter parameters.
func (c *Client) CountCases(ctx context.Context, params url.Values) (int, error) {
	var resp struct {
		Count int `json:"count"`
	}
	if err := c.Do(ctx, http.MethodGet, CountEndpoint, params, nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

// GetCase fetches a single case.
func (c *Client) GetCase(ctx context.Context, id string) (caselaw.Case, error) {
	var result caselaw.Case
	if id == "" {
		return result, errors.New("case id is required")
	}
	err := c.Do(ctx, http.MethodGet, CasesEndpoint+"/"+url.PathEscape(id), nil, nil, &result)
	return result, err
}

// UpdateCase replaces a case and returns the stored version.
func (c *Client) UpdateCase(ctx context.Context, id string, update caselaw.Case) (caselaw.Case, error) {
	var result caselaw.Case
	if id == "" {
		return result, errors.New("case id is required")
	}
	err := c.Do(ctx, http.MethodPut, CasesEndpoint+"/"+url.PathEscape(id), nil, update, &result)
	return result, err
}

// CreateCase stores a new case and returns it with its server assigned id.
func (c *Client) CreateCase(ctx context.Context, record caselaw.Case) (caselaw.Case, error) {
	var result caselaw.Case
	err := c.Do(ctx, http.MethodPost, CasesEndpoint, nil, record, &result)
	return result, err
}

// Facets fetches the values available for each filter.
func (c *Client) Facets(ctx context.Context) (caselaw.Facets, error) {
	var facets caselaw.Facets
	err := c.Do(ctx, http.MethodGet, FiltersEndpoint, nil, nil, &facets)
	return facets, err
}

// TriggerSync asks the server to pull fresh data from the upstream source
// and returns the server's message.
func (c *Client) TriggerSync(ctx context.Context) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	if err := c.Do(ctx, http.MethodPost, SyncEndpoint, nil, nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// Health reports the server's status string.
func (c *Client) Health(ctx context.Context) (string, error) {
	var resp struct {
		Status string `json:"status"`
	}
	if err := c.Do(ctx, http.MethodGet, HealthEndpoint, nil, nil, &resp); err != nil {
		return "", err
	}
	return resp.Status, nil
}
