// Package upstream talks to the Evolution API, the third-party
// WhatsApp-existence service behind the verification flow.
package upstream

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/jmespath/go-jmespath"

	"github.com/RelaxSolucoes/whatsapp-checkout-validation/internal/types"
)

const (
	checkPath = "/chat/whatsappNumbers/"
	statePath = "/instance/connectionState/"

	apiKeyHeader = "apikey"

	// CheckTimeout bounds the single verification POST. There is no retry;
	// a timeout surfaces as upstream unreachable.
	CheckTimeout = 30 * time.Second

	// StateTimeout bounds the explicit connectivity test.
	StateTimeout = 15 * time.Second

	maxBodyBytes = 1 << 20
)

// BuildRequestFunc builds the outbound verification request. Replacing it
// lets deployments target API variants without forking the client.
type BuildRequestFunc func(ctx context.Context, s types.Settings, phone string) (*http.Request, error)

// ParseResponseFunc turns a 200 response body into a VerificationResult.
type ParseResponseFunc func(s types.Settings, body []byte) (types.VerificationResult, error)

type Client struct {
	httpClient    *http.Client
	buildRequest  BuildRequestFunc
	parseResponse ParseResponseFunc
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithBuildRequest(f BuildRequestFunc) Option {
	return func(c *Client) { c.buildRequest = f }
}

func WithParseResponse(f ParseResponseFunc) Option {
	return func(c *Client) { c.parseResponse = f }
}

func New(opts ...Option) *Client {
	c := &Client{
		httpClient:    &http.Client{},
		buildRequest:  BuildCheckRequest,
		parseResponse: ParseCheckResponse,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// CheckNumber issues the single POST against the WhatsApp-existence endpoint
// and classifies every failure into the error taxonomy. At most one attempt
// per call.
func (c *Client) CheckNumber(ctx context.Context, s types.Settings, phone string) (types.VerificationResult, error) {
	ctx, cancel := context.WithTimeout(ctx, CheckTimeout)
	defer cancel()

	req, err := c.buildRequest(ctx, s, phone)
	if err != nil {
		return types.VerificationResult{}, types.Err(types.ErrBadInput, err, "building upstream request")
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return types.VerificationResult{}, types.Err(types.ErrUpstreamUnreachable, err, "")
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return types.VerificationResult{}, types.Err(types.ErrUpstreamUnreachable, err, "reading upstream response")
	}
	if resp.StatusCode != http.StatusOK {
		return types.VerificationResult{}, types.Err(types.ErrUpstreamHTTP, nil, "api returned status %d", resp.StatusCode)
	}
	return c.parseResponse(s, body)
}

// ConnectionState asks the API whether the configured instance is connected.
// Returns the raw state string; connected means state == "open".
func (c *Client) ConnectionState(ctx context.Context, s types.Settings) (bool, string, error) {
	if !s.Configured() {
		return false, "", types.Err(types.ErrNotConfigured, nil, "")
	}
	ctx, cancel := context.WithTimeout(ctx, StateTimeout)
	defer cancel()

	endpoint := strings.TrimRight(s.APIBaseURL, "/") + statePath + url.PathEscape(s.InstanceName)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, "", types.Err(types.ErrBadInput, err, "building state request")
	}
	req.Header.Set(apiKeyHeader, s.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, "", types.Err(types.ErrUpstreamUnreachable, err, "")
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return false, "", types.Err(types.ErrUpstreamUnreachable, err, "reading state response")
	}
	if resp.StatusCode != http.StatusOK {
		return false, "", types.Err(types.ErrUpstreamHTTP, nil, "api returned status %d", resp.StatusCode)
	}
	var parsed struct {
		Instance struct {
			State *string `json:"state"`
		} `json:"instance"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return false, "", types.Err(types.ErrUpstreamMalformed, err, "")
	}
	if parsed.Instance.State == nil {
		return false, "", types.Err(types.ErrUpstreamShape, nil, "missing instance.state")
	}
	state := *parsed.Instance.State
	return state == "open", state, nil
}

// BuildCheckRequest is the default request builder: POST
// {base}/chat/whatsappNumbers/{instance} with the apikey header and a
// {"numbers":[phone]} body.
func BuildCheckRequest(ctx context.Context, s types.Settings, phone string) (*http.Request, error) {
	endpoint := strings.TrimRight(s.APIBaseURL, "/") + checkPath + url.PathEscape(s.InstanceName)
	payload, err := json.Marshal(map[string]any{"numbers": []string{phone}})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(apiKeyHeader, s.APIKey)
	return req, nil
}

// ParseCheckResponse is the default parser. The API answers with an array
// whose first element carries the existence flag. When response_expr is set
// it is evaluated over the decoded body instead and must select an object of
// the same shape.
func ParseCheckResponse(s types.Settings, body []byte) (types.VerificationResult, error) {
	var decoded any
	if err := json.Unmarshal(body, &decoded); err != nil {
		return types.VerificationResult{}, types.Err(types.ErrUpstreamMalformed, err, "")
	}

	var item map[string]any
	if s.ResponseExpr != "" {
		selected, err := jmespath.Search(s.ResponseExpr, decoded)
		if err != nil {
			return types.VerificationResult{}, types.Err(types.ErrUpstreamShape, err, "response_expr eval")
		}
		m, ok := selected.(map[string]any)
		if !ok {
			return types.VerificationResult{}, types.Err(types.ErrUpstreamShape, nil, "response_expr did not select an object")
		}
		item = m
	} else {
		list, ok := decoded.([]any)
		if !ok || len(list) == 0 {
			return types.VerificationResult{}, types.Err(types.ErrUpstreamShape, nil, "expected non-empty array")
		}
		m, ok := list[0].(map[string]any)
		if !ok {
			return types.VerificationResult{}, types.Err(types.ErrUpstreamShape, nil, "first element is not an object")
		}
		item = m
	}

	exists, ok := item["exists"].(bool)
	if !ok {
		return types.VerificationResult{}, types.Err(types.ErrUpstreamShape, nil, "missing exists field")
	}
	result := types.VerificationResult{IsWhatsApp: exists}
	if n, ok := item["number"].(string); ok {
		result.Number = n
	}
	if n, ok := item["name"].(string); ok {
		result.Name = n
	}
	return result, nil
}
