// Package registry adapts the company-registry API (Companies House shaped)
// behind a concurrency gate. For profile and officer lookups a 404 is an
// absent value, never an error.
package registry

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/tmarsden/tradescout-backend/config"
	"github.com/tmarsden/tradescout-backend/internal/clients"
)

const adapterName = "registry"

// errNotFound marks an HTTP 404; callers translate it into an absent value.
var errNotFound = errors.New("registry: not found")

// Candidate is one ranked company-search result.
type Candidate struct {
	CompanyNumber  string
	CompanyName    string
	CompanyStatus  string
	AddressSnippet string
	Postcode       string
}

// Profile is a company's registered profile.
type Profile struct {
	CompanyNumber     string
	CompanyName       string
	CompanyStatus     string
	RegisteredAddress string
	Postcode          string
	SICCodes          []string
	IncorporatedOn    string
}

// Officer is one company officer.
type Officer struct {
	Name        string
	Role        string
	AppointedOn string
}

// Client is the bounded registry adapter.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	gate       *clients.Gate
}

func NewClient(cfg *config.RegistryConfig) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		gate:       clients.NewGate(cfg.MaxConcurrency),
	}
}

type searchResponse struct {
	Items []struct {
		CompanyNumber  string `json:"company_number"`
		Title          string `json:"title"`
		CompanyStatus  string `json:"company_status"`
		AddressSnippet string `json:"address_snippet"`
		Address        struct {
			PostalCode string `json:"postal_code"`
		} `json:"address"`
	} `json:"items"`
}

// SearchCompanies returns ranked candidates for a company name.
func (c *Client) SearchCompanies(ctx context.Context, name string, limit int) ([]Candidate, error) {
	params := url.Values{}
	params.Set("q", name)
	if limit > 0 {
		params.Set("items_per_page", fmt.Sprintf("%d", limit))
	}

	var payload searchResponse
	if err := c.getJSON(ctx, "/search/companies", params, &payload); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}

	candidates := make([]Candidate, 0, len(payload.Items))
	for _, item := range payload.Items {
		candidates = append(candidates, Candidate{
			CompanyNumber:  item.CompanyNumber,
			CompanyName:    item.Title,
			CompanyStatus:  item.CompanyStatus,
			AddressSnippet: item.AddressSnippet,
			Postcode:       item.Address.PostalCode,
		})
	}
	return candidates, nil
}

type profileResponse struct {
	CompanyNumber    string   `json:"company_number"`
	CompanyName      string   `json:"company_name"`
	CompanyStatus    string   `json:"company_status"`
	DateOfCreation   string   `json:"date_of_creation"`
	SICCodes         []string `json:"sic_codes"`
	RegisteredOffice struct {
		AddressLine1 string `json:"address_line_1"`
		AddressLine2 string `json:"address_line_2"`
		Locality     string `json:"locality"`
		PostalCode   string `json:"postal_code"`
	} `json:"registered_office_address"`
}

// FetchProfile fetches a company profile by registry number. An unknown
// number yields (nil, nil).
func (c *Client) FetchProfile(ctx context.Context, companyNumber string) (*Profile, error) {
	var payload profileResponse
	if err := c.getJSON(ctx, "/company/"+url.PathEscape(companyNumber), nil, &payload); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}

	office := payload.RegisteredOffice
	addressParts := make([]string, 0, 4)
	for _, part := range []string{office.AddressLine1, office.AddressLine2, office.Locality, office.PostalCode} {
		if part != "" {
			addressParts = append(addressParts, part)
		}
	}

	return &Profile{
		CompanyNumber:     payload.CompanyNumber,
		CompanyName:       payload.CompanyName,
		CompanyStatus:     payload.CompanyStatus,
		RegisteredAddress: strings.Join(addressParts, ", "),
		Postcode:          office.PostalCode,
		SICCodes:          payload.SICCodes,
		IncorporatedOn:    payload.DateOfCreation,
	}, nil
}

type officersResponse struct {
	Items []struct {
		Name        string `json:"name"`
		OfficerRole string `json:"officer_role"`
		AppointedOn string `json:"appointed_on"`
	} `json:"items"`
}

// FetchOfficers lists a company's officers. An unknown company yields an
// empty list. Callers cap how many they retain.
func (c *Client) FetchOfficers(ctx context.Context, companyNumber string) ([]Officer, error) {
	var payload officersResponse
	if err := c.getJSON(ctx, "/company/"+url.PathEscape(companyNumber)+"/officers", nil, &payload); err != nil {
		if errors.Is(err, errNotFound) {
			return nil, nil
		}
		return nil, err
	}

	officers := make([]Officer, 0, len(payload.Items))
	for _, item := range payload.Items {
		officers = append(officers, Officer{
			Name:        item.Name,
			Role:        item.OfficerRole,
			AppointedOn: item.AppointedOn,
		})
	}
	return officers, nil
}

// getJSON performs one gated GET against the registry API. The registry uses
// HTTP basic auth with the API key as username.
func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out interface{}) error {
	if err := c.gate.Acquire(ctx); err != nil {
		return err
	}
	defer c.gate.Release()

	requestURL := c.baseURL + path
	if len(params) > 0 {
		requestURL += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, requestURL, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if c.apiKey != "" {
		req.SetBasicAuth(c.apiKey, "")
	}

	resp, err := clients.DoWithRetry(ctx, c.httpClient, req, 0)
	if err != nil {
		return fmt.Errorf("failed to call registry API: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &clients.RateLimitedError{Adapter: adapterName, RetryAfter: clients.RetryAfterOrDefault(resp)}
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode != http.StatusOK:
		body, _ := io.ReadAll(resp.Body)
		return &clients.ServiceError{Adapter: adapterName, StatusCode: resp.StatusCode, Body: string(body)}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to parse registry API response: %w", err)
	}
	return nil
}
