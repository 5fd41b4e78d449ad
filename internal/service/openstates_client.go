package service

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
	"time"

	"github.com/jjenkins/okbills/internal/model"
	"github.com/samber/lo"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout = 30 * time.Second
	maxErrorBody   = 512
)

// APIError is returned when OpenStates answers with a non-2xx status
type APIError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *APIError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("unexpected status code %d from %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("unexpected status code %d from %s: %s", e.StatusCode, e.URL, e.Body)
}

// ClientOptions configures an OpenStatesClient
type ClientOptions struct {
	BaseURL            string
	APIKey             string
	Jurisdiction       string
	Session            string
	Timeout            time.Duration
	PageDelay          time.Duration
	BillsPerPage       int
	LegislatorsPerPage int
}

// OpenStatesClient handles communication with the OpenStates v3 API.
// Requests are spaced at least PageDelay apart and are never retried.
type OpenStatesClient struct {
	client  *http.Client
	limiter *rate.Limiter
	opts    ClientOptions
}

// NewOpenStatesClient creates a new OpenStates API client
func NewOpenStatesClient(opts ClientOptions) *OpenStatesClient {
	if opts.Timeout <= 0 {
		opts.Timeout = defaultTimeout
	}

	limit := rate.Inf
	if opts.PageDelay > 0 {
		limit = rate.Every(opts.PageDelay)
	}

	return &OpenStatesClient{
		client: &http.Client{
			Timeout: opts.Timeout,
		},
		limiter: rate.NewLimiter(limit, 1),
		opts:    opts,
	}
}

// paginationJSON is the paging block; older responses use total_pages
type paginationJSON struct {
	Page       int `json:"page"`
	MaxPage    int `json:"max_page"`
	TotalPages int `json:"total_pages"`
	PerPage    int `json:"per_page"`
	TotalItems int `json:"total_items"`
}

type organizationJSON struct {
	Name           string `json:"name"`
	Classification string `json:"classification"`
}

// peopleResponse represents the API response for /people
type peopleResponse struct {
	Results    []personJSON    `json:"results"`
	Pagination *paginationJSON `json:"pagination"`
}

type personJSON struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Party       string `json:"party"`
	Image       string `json:"image"`
	Email       string `json:"email"`
	CurrentRole *struct {
		Title             string `json:"title"`
		OrgClassification string `json:"org_classification"`
		District          string `json:"district"`
	} `json:"current_role"`
	Offices []struct {
		Name  string `json:"name"`
		Voice string `json:"voice"`
	} `json:"offices"`
}

// billsResponse represents the API response for /bills
type billsResponse struct {
	Results    []billJSON      `json:"results"`
	Pagination *paginationJSON `json:"pagination"`
}

type billJSON struct {
	ID                      string            `json:"id"`
	Session                 string            `json:"session"`
	Identifier              string            `json:"identifier"`
	Title                   string            `json:"title"`
	Classification          []string          `json:"classification"`
	Subject                 []string          `json:"subject"`
	FromOrganization        *organizationJSON `json:"from_organization"`
	FirstActionDate         string            `json:"first_action_date"`
	LatestActionDate        string            `json:"latest_action_date"`
	LatestActionDescription string            `json:"latest_action_description"`
	OpenStatesURL           string            `json:"openstates_url"`
	Abstracts               []struct {
		Abstract string `json:"abstract"`
	} `json:"abstracts"`
	Actions      []actionJSON `json:"actions"`
	Sponsorships []struct {
		Name           string `json:"name"`
		EntityType     string `json:"entity_type"`
		Primary        bool   `json:"primary"`
		Classification string `json:"classification"`
	} `json:"sponsorships"`
	Versions []struct {
		Note  string `json:"note"`
		Links []struct {
			URL       string `json:"url"`
			MediaType string `json:"media_type"`
		} `json:"links"`
	} `json:"versions"`
}

type actionJSON struct {
	Description    string            `json:"description"`
	Date           string            `json:"date"`
	Classification []string          `json:"classification"`
	Order          *int              `json:"order"`
	Organization   *organizationJSON `json:"organization"`
}

// FetchLegislators retrieves one page of people for the configured jurisdiction
func (c *OpenStatesClient) FetchLegislators(ctx context.Context, page int) (*model.LegislatorPage, error) {
	params := url.Values{}
	params.Set("jurisdiction", c.opts.Jurisdiction)
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(c.opts.LegislatorsPerPage))
	params.Add("include", "offices")

	body, err := c.fetch(ctx, "/people", params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch legislators page %d: %w", page, err)
	}

	var resp peopleResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse legislators page %d: %w", page, err)
	}

	return &model.LegislatorPage{
		Legislators: lo.Map(resp.Results, func(p personJSON, _ int) model.LegislatorMeta {
			return convertPersonJSON(p)
		}),
		Pagination: convertPagination(resp.Pagination),
	}, nil
}

// FetchBills retrieves one page of bills with actions, sponsors, abstracts and versions
func (c *OpenStatesClient) FetchBills(ctx context.Context, page int) (*model.BillPage, error) {
	params := url.Values{}
	params.Set("jurisdiction", c.opts.Jurisdiction)
	if c.opts.Session != "" {
		params.Set("session", c.opts.Session)
	}
	params.Set("sort", "updated_desc")
	params.Set("page", strconv.Itoa(page))
	params.Set("per_page", strconv.Itoa(c.opts.BillsPerPage))
	for _, include := range []string{"actions", "sponsorships", "abstracts", "versions"} {
		params.Add("include", include)
	}

	body, err := c.fetch(ctx, "/bills", params)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch bills page %d: %w", page, err)
	}

	var resp billsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse bills page %d: %w", page, err)
	}

	return &model.BillPage{
		Bills: lo.Map(resp.Results, func(b billJSON, _ int) model.BillMeta {
			return convertBillJSON(b)
		}),
		Pagination: convertPagination(resp.Pagination),
	}, nil
}

// fetch performs a single rate-limited GET. Failures are not retried.
func (c *OpenStatesClient) fetch(ctx context.Context, path string, params url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := c.opts.BaseURL + path + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("X-API-KEY", c.opts.APIKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, URL: c.opts.BaseURL + path}
		if len(body) > maxErrorBody {
			body = body[:maxErrorBody]
		}
		apiErr.Body = string(body)
		return nil, apiErr
	}

	return body, nil
}

// convertPagination treats a missing block as the last page
func convertPagination(p *paginationJSON) *model.Pagination {
	if p == nil {
		return nil
	}
	maxPage := p.MaxPage
	if maxPage == 0 {
		maxPage = p.TotalPages
	}
	return &model.Pagination{
		Page:       p.Page,
		MaxPage:    maxPage,
		PerPage:    p.PerPage,
		TotalItems: p.TotalItems,
	}
}

func convertPersonJSON(p personJSON) model.LegislatorMeta {
	meta := model.LegislatorMeta{
		OpenStatesID: p.ID,
		Name:         p.Name,
		Party:        p.Party,
		ImageURL:     p.Image,
		Email:        p.Email,
	}

	if p.CurrentRole != nil {
		meta.Chamber = p.CurrentRole.OrgClassification
		meta.District = p.CurrentRole.District
	}

	for _, office := range p.Offices {
		if office.Voice != "" {
			meta.Phone = office.Voice
			break
		}
	}

	return meta
}

func convertBillJSON(b billJSON) model.BillMeta {
	meta := model.BillMeta{
		OpenStatesID:            b.ID,
		Session:                 b.Session,
		Identifier:              b.Identifier,
		Title:                   b.Title,
		Classification:          b.Classification,
		Subjects:                b.Subject,
		FirstActionDate:         b.FirstActionDate,
		LatestActionDate:        b.LatestActionDate,
		LatestActionDescription: b.LatestActionDescription,
		OpenStatesURL:           b.OpenStatesURL,
	}

	if b.FromOrganization != nil {
		meta.Chamber = b.FromOrganization.Classification
	}

	for _, a := range b.Abstracts {
		if a.Abstract != "" {
			meta.Description = a.Abstract
			break
		}
	}

	meta.Actions = convertActions(b.Actions)

	for _, s := range b.Sponsorships {
		meta.Sponsorships = append(meta.Sponsorships, model.SponsorshipMeta{
			Name:           s.Name,
			Classification: s.Classification,
			EntityType:     s.EntityType,
			Primary:        s.Primary,
		})
	}

	for _, v := range b.Versions {
		for _, link := range v.Links {
			if link.URL != "" {
				meta.DocumentURLs = append(meta.DocumentURLs, link.URL)
			}
		}
	}
	meta.DocumentURLs = lo.Uniq(meta.DocumentURLs)

	return meta
}

// convertActions falls back to the list position when the source omits an order
func convertActions(actions []actionJSON) []model.ActionMeta {
	var converted []model.ActionMeta
	for i, a := range actions {
		action := model.ActionMeta{
			Date:           a.Date,
			Description:    a.Description,
			Classification: a.Classification,
			Order:          i,
		}
		if a.Order != nil {
			action.Order = *a.Order
		}
		if a.Organization != nil {
			action.Chamber = a.Organization.Classification
		}
		converted = append(converted, action)
	}
	return converted
}

// ParseActions decodes actions in OpenStates wire format. The input may be a
// bill object with an "actions" field or a bare array of actions.
func ParseActions(data []byte) ([]model.ActionMeta, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, errors.New("no input")
	}

	if trimmed[0] == '[' {
		var actions []actionJSON
		if err := json.Unmarshal(trimmed, &actions); err != nil {
			return nil, fmt.Errorf("failed to parse actions: %w", err)
		}
		return convertActions(actions), nil
	}

	var bill billJSON
	if err := json.Unmarshal(trimmed, &bill); err != nil {
		return nil, fmt.Errorf("failed to parse bill: %w", err)
	}
	return convertActions(bill.Actions), nil
}
