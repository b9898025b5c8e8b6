package dwolla

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"horizon/internal/domain/payments"
)

const (
	defaultTimeout = 30 * time.Second
	halJSON        = "application/vnd.dwolla.v1.hal+json"

	sandboxURL    = "https://api-sandbox.dwolla.com"
	productionURL = "https://api.dwolla.com"
)

// Client talks to the Dwolla API using client-credentials OAuth2
type Client struct {
	httpClient *http.Client
	baseURL    string
}

var _ payments.Rail = (*Client)(nil)

// BaseURL maps a Dwolla environment name to its API host.
func BaseURL(env string) string {
	if strings.EqualFold(env, "production") {
		return productionURL
	}
	return sandboxURL
}

func NewClient(key, secret, env string) *Client {
	return NewClientWithBaseURL(key, secret, BaseURL(env), nil)
}

// NewClientWithBaseURL builds a client whose token endpoint is
// baseURL/token. base carries the requests, including token fetches.
func NewClientWithBaseURL(key, secret, baseURL string, base *http.Client) *Client {
	if base == nil {
		base = &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}

	cfg := clientcredentials.Config{
		ClientID:     key,
		ClientSecret: secret,
		TokenURL:     baseURL + "/token",
	}
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, base)
	httpClient := cfg.Client(ctx)
	httpClient.Timeout = base.Timeout

	return &Client{httpClient: httpClient, baseURL: baseURL}
}

// APIError is the HAL error body Dwolla returns on failures
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	Embedded   struct {
		Errors []struct {
			Code    string `json:"code"`
			Message string `json:"message"`
			Path    string `json:"path"`
		} `json:"errors"`
	} `json:"_embedded"`
}

func (e *APIError) Error() string {
	msg := fmt.Sprintf("dwolla %s (status %d): %s", e.Code, e.StatusCode, e.Message)
	for _, fe := range e.Embedded.Errors {
		msg += fmt.Sprintf("; %s %s", fe.Path, fe.Message)
	}
	return msg
}

type customerRequest struct {
	FirstName   string `json:"firstName"`
	LastName    string `json:"lastName"`
	Email       string `json:"email"`
	Type        string `json:"type"`
	Address1    string `json:"address1"`
	City        string `json:"city"`
	State       string `json:"state"`
	PostalCode  string `json:"postalCode"`
	DateOfBirth string `json:"dateOfBirth"`
	SSN         string `json:"ssn"`
}

// CreateCustomer returns the new customer's URL from the Location header.
func (c *Client) CreateCustomer(ctx context.Context, params payments.CustomerParams) (string, error) {
	resp, err := c.post(ctx, c.baseURL+"/customers", customerRequest{
		FirstName:   params.FirstName,
		LastName:    params.LastName,
		Email:       params.Email,
		Type:        params.Type,
		Address1:    params.Address1,
		City:        params.City,
		State:       params.State,
		PostalCode:  params.PostalCode,
		DateOfBirth: params.DateOfBirth,
		SSN:         params.SSN,
	}, nil)
	if err != nil {
		return "", err
	}
	return resp.Header.Get("Location"), nil
}

func (c *Client) DeactivateCustomer(ctx context.Context, customerURL string) error {
	_, err := c.post(ctx, c.resolve(customerURL), map[string]string{"status": "deactivated"}, nil)
	return err
}

type onDemandAuthorization struct {
	Links map[string]json.RawMessage `json:"_links"`
}

type fundingSourceRequest struct {
	PlaidToken string                     `json:"plaidToken"`
	Name       string                     `json:"name"`
	Links      map[string]json.RawMessage `json:"_links,omitempty"`
}

// AddFundingSource authorizes on-demand transfers and registers the bank
// account behind the processor token. It returns the funding source URL.
func (c *Client) AddFundingSource(ctx context.Context, params payments.FundingSourceParams) (string, error) {
	var auth onDemandAuthorization
	if _, err := c.post(ctx, c.baseURL+"/on-demand-authorizations", nil, &auth); err != nil {
		return "", errors.Wrap(err, "on-demand authorization failed")
	}

	resp, err := c.post(ctx, c.baseURL+"/customers/"+params.CustomerID+"/funding-sources", fundingSourceRequest{
		PlaidToken: params.ProcessorToken,
		Name:       params.BankName,
		Links:      auth.Links,
	}, nil)
	if err != nil {
		return "", err
	}
	return resp.Header.Get("Location"), nil
}

func (c *Client) RemoveFundingSource(ctx context.Context, fundingSourceURL string) error {
	_, err := c.post(ctx, c.resolve(fundingSourceURL), map[string]bool{"removed": true}, nil)
	return err
}

// resolve accepts absolute resource URLs as returned by the API, or paths.
func (c *Client) resolve(resource string) string {
	if strings.HasPrefix(resource, "http://") || strings.HasPrefix(resource, "https://") {
		return resource
	}
	return c.baseURL + "/" + strings.TrimLeft(resource, "/")
}

func (c *Client) post(ctx context.Context, url string, body, out any) (*http.Response, error) {
	var reader io.Reader = http.NoBody
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, errors.Wrap(err, "failed to encode dwolla request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create dwolla request")
	}
	req.Header.Set("Accept", halJSON)
	req.Header.Set("Content-Type", halJSON)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "dwolla POST %s failed", url)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read dwolla response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(respBody, apiErr); err != nil || apiErr.Code == "" {
			apiErr.Code = "UnexpectedResponse"
			apiErr.Message = string(respBody)
		}
		return nil, apiErr
	}

	if out != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, out); err != nil {
			return nil, errors.Wrap(err, "failed to decode dwolla response")
		}
	}
	return resp, nil
}
