package units

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/angelmondragon/packfinderz-inventory/pkg/errors"
	"github.com/angelmondragon/packfinderz-inventory/pkg/types"
)

const (
	ActionsPath                 = "/api/v1/units/actions"
	APIKeyHeader                = "X-API-Key"
	defaultTimeout              = 10 * time.Second
	responseBodyReadLimit int64 = 1 << 20
)

var (
	errBaseURLRequired = errors.New("validating endpoint base url is required")
	errAPIKeyRequired  = errors.New("validating endpoint api key is required")
)

// Client calls the validating endpoint over HTTP. It implements ValidatedUnitOps.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	bearerToken string
}

var _ ValidatedUnitOps = (*Client)(nil)

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBearerToken sets the service token sent on every call.
func WithBearerToken(token string) Option {
	return func(c *Client) {
		c.bearerToken = strings.TrimSpace(token)
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// NewClient builds a validating endpoint client.
func NewClient(baseURL, apiKey string, opts ...Option) (*Client, error) {
	trimmedURL := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmedURL == "" {
		return nil, errBaseURLRequired
	}
	trimmedKey := strings.TrimSpace(apiKey)
	if trimmedKey == "" {
		return nil, errAPIKeyRequired
	}

	client := &Client{
		baseURL:    trimmedURL,
		apiKey:     trimmedKey,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

func (c *Client) Register(ctx context.Context, input RegisterInput) (*Unit, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	resp, err := c.call(ctx, ActionRegister, input)
	if err != nil {
		return nil, err
	}
	if resp.Unit == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDecode, "register response is missing the unit")
	}
	return resp.Unit, nil
}

func (c *Client) Convert(ctx context.Context, input ConvertInput) (*ConversionResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	resp, err := c.call(ctx, ActionConvert, input)
	if err != nil {
		return nil, err
	}
	if resp.Conversion == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDecode, "convert response is missing the conversion")
	}
	return resp.Conversion, nil
}

func (c *Client) Lookup(ctx context.Context, input LookupInput) (*LookupResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	resp, err := c.call(ctx, ActionLookup, input)
	if err != nil {
		return nil, err
	}
	if resp.Lookup == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDecode, "lookup response is missing the result")
	}
	resp.Lookup.Source = LookupSourceValidated
	return resp.Lookup, nil
}

func (c *Client) SellPortion(ctx context.Context, input SellPortionInput) (*SaleResult, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}
	resp, err := c.call(ctx, ActionSellPortion, input)
	if err != nil {
		return nil, err
	}
	if resp.Sale == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDecode, "sale response is missing the result")
	}
	return resp.Sale, nil
}

func (c *Client) call(ctx context.Context, action Action, payload any) (*ActionResponse, error) {
	if c == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "validating endpoint client not configured")
	}
	body, err := EncodeAction(action, payload)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode action request")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+ActionsPath, bytes.NewReader(body))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build action request")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set(APIKeyHeader, c.apiKey)
	if c.bearerToken != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.bearerToken)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute action request")
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, responseBodyReadLimit))
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "read action response")
	}
	return decodeActionResponse(resp.StatusCode, raw)
}

func decodeActionResponse(status int, raw []byte) (*ActionResponse, error) {
	ok := status >= 200 && status < 300

	var envelope ActionResponse
	if err := json.Unmarshal(raw, &envelope); err == nil && (envelope.Success || envelope.Code != "" || envelope.Error != "") {
		if !envelope.Success {
			return nil, envelope.Err()
		}
		if !ok {
			return nil, pkgerrors.New(pkgerrors.CodeDependency, fmt.Sprintf("validating endpoint returned status %d", status))
		}
		return &envelope, nil
	} else if err != nil && ok {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDecode, err, "decode action response")
	}

	var apiErr types.ErrorEnvelope
	if err := json.Unmarshal(raw, &apiErr); err == nil && apiErr.Error.Code != "" {
		return nil, pkgerrors.New(pkgerrors.ParseCode(apiErr.Error.Code), apiErr.Error.Message)
	}
	if ok {
		return nil, pkgerrors.New(pkgerrors.CodeDecode, "action response is not a recognized envelope")
	}
	snippet := strings.TrimSpace(string(raw))
	if len(snippet) > 256 {
		snippet = snippet[:256]
	}
	return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", status, snippet), "action request failed")
}
