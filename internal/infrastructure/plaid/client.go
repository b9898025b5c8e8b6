package plaid

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"horizon/internal/domain/aggregation"
)

const (
	defaultTimeout      = 30 * time.Second
	linkTokenCreatePath = "/link/token/create"
	publicTokenExchange = "/item/public_token/exchange"
	accountsGetPath     = "/accounts/get"
	processorTokenPath  = "/processor/token/create"
	itemRemovePath      = "/item/remove"
)

// Client talks to the Plaid REST API
type Client struct {
	httpClient *http.Client
	baseURL    string
	clientID   string
	secret     string
}

var _ aggregation.Client = (*Client)(nil)

// BaseURL maps a Plaid environment name to its API host.
func BaseURL(env string) string {
	return fmt.Sprintf("https://%s.plaid.com", env)
}

func NewClient(clientID, secret, env string) *Client {
	return NewClientWithBaseURL(clientID, secret, BaseURL(env), nil)
}

// NewClientWithBaseURL is used against fakes; a nil httpClient gets the
// default instrumented client.
func NewClientWithBaseURL(clientID, secret, baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   defaultTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		clientID:   clientID,
		secret:     secret,
	}
}

// APIError is the error body Plaid returns on non-2xx responses
type APIError struct {
	StatusCode     int    `json:"-"`
	ErrorType      string `json:"error_type"`
	ErrorCode      string `json:"error_code"`
	ErrorMessage   string `json:"error_message"`
	DisplayMessage string `json:"display_message"`
	RequestID      string `json:"request_id"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("plaid %s/%s (status %d, request %s): %s",
		e.ErrorType, e.ErrorCode, e.StatusCode, e.RequestID, e.ErrorMessage)
}

type credentials struct {
	ClientID string `json:"client_id"`
	Secret   string `json:"secret"`
}

type linkTokenRequest struct {
	credentials
	User         linkUser `json:"user"`
	ClientName   string   `json:"client_name"`
	Products     []string `json:"products"`
	Language     string   `json:"language"`
	CountryCodes []string `json:"country_codes"`
}

type linkUser struct {
	ClientUserID string `json:"client_user_id"`
}

type linkTokenResponse struct {
	LinkToken  string    `json:"link_token"`
	Expiration time.Time `json:"expiration"`
	RequestID  string    `json:"request_id"`
}

func (c *Client) CreateLinkToken(ctx context.Context, params aggregation.LinkTokenParams) (*aggregation.LinkToken, error) {
	req := linkTokenRequest{
		credentials:  c.credentials(),
		User:         linkUser{ClientUserID: params.ClientUserID},
		ClientName:   params.ClientName,
		Products:     params.Products,
		Language:     params.Language,
		CountryCodes: params.CountryCodes,
	}

	var resp linkTokenResponse
	if err := c.post(ctx, linkTokenCreatePath, req, &resp); err != nil {
		return nil, err
	}
	return &aggregation.LinkToken{Token: resp.LinkToken, Expiration: resp.Expiration}, nil
}

type exchangeRequest struct {
	credentials
	PublicToken string `json:"public_token"`
}

type exchangeResponse struct {
	AccessToken string `json:"access_token"`
	ItemID      string `json:"item_id"`
	RequestID   string `json:"request_id"`
}

func (c *Client) ExchangePublicToken(ctx context.Context, publicToken string) (*aggregation.Exchange, error) {
	var resp exchangeResponse
	err := c.post(ctx, publicTokenExchange, exchangeRequest{
		credentials: c.credentials(),
		PublicToken: publicToken,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &aggregation.Exchange{AccessToken: resp.AccessToken, ItemID: resp.ItemID}, nil
}

type accessTokenRequest struct {
	credentials
	AccessToken string `json:"access_token"`
}

type accountsResponse struct {
	Accounts []struct {
		AccountID    string `json:"account_id"`
		Name         string `json:"name"`
		OfficialName string `json:"official_name"`
		Mask         string `json:"mask"`
		Type         string `json:"type"`
		Subtype      string `json:"subtype"`
	} `json:"accounts"`
	RequestID string `json:"request_id"`
}

func (c *Client) GetAccounts(ctx context.Context, accessToken string) ([]aggregation.Account, error) {
	var resp accountsResponse
	err := c.post(ctx, accountsGetPath, accessTokenRequest{
		credentials: c.credentials(),
		AccessToken: accessToken,
	}, &resp)
	if err != nil {
		return nil, err
	}

	accounts := make([]aggregation.Account, 0, len(resp.Accounts))
	for _, a := range resp.Accounts {
		accounts = append(accounts, aggregation.Account{
			AccountID:    a.AccountID,
			Name:         a.Name,
			OfficialName: a.OfficialName,
			Mask:         a.Mask,
			Type:         a.Type,
			Subtype:      a.Subtype,
		})
	}
	return accounts, nil
}

type processorTokenRequest struct {
	credentials
	AccessToken string `json:"access_token"`
	AccountID   string `json:"account_id"`
	Processor   string `json:"processor"`
}

type processorTokenResponse struct {
	ProcessorToken string `json:"processor_token"`
	RequestID      string `json:"request_id"`
}

func (c *Client) CreateProcessorToken(ctx context.Context, accessToken, accountID, processor string) (string, error) {
	var resp processorTokenResponse
	err := c.post(ctx, processorTokenPath, processorTokenRequest{
		credentials: c.credentials(),
		AccessToken: accessToken,
		AccountID:   accountID,
		Processor:   processor,
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.ProcessorToken, nil
}

func (c *Client) RemoveItem(ctx context.Context, accessToken string) error {
	return c.post(ctx, itemRemovePath, accessTokenRequest{
		credentials: c.credentials(),
		AccessToken: accessToken,
	}, nil)
}

func (c *Client) credentials() credentials {
	return credentials{ClientID: c.clientID, Secret: c.secret}
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "failed to encode plaid request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return errors.Wrap(err, "failed to create plaid request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrapf(err, "plaid %s request failed", path)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrapf(err, "failed to read plaid %s response", path)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if err := json.Unmarshal(respBody, apiErr); err != nil || apiErr.ErrorCode == "" {
			apiErr.ErrorType = "API_ERROR"
			apiErr.ErrorCode = "UNEXPECTED_RESPONSE"
			apiErr.ErrorMessage = string(respBody)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.Wrapf(err, "failed to decode plaid %s response", path)
	}
	return nil
}
