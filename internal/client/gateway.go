// Package client talks to the event template service over its JSON API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"event-template-platform/internal/eventtemplate"
	"event-template-platform/internal/models"

	"go.uber.org/zap"
)

// DefaultTimeout bounds each request when no other timeout is configured.
const DefaultTimeout = 15 * time.Second

// Option configures a Gateway.
type Option func(*Gateway)

// WithTimeout sets the timeout for each HTTP request.
func WithTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		g.httpClient.Timeout = d
	}
}

// WithHTTPClient sets a custom HTTP client. When set, WithTimeout is ignored.
func WithHTTPClient(c *http.Client) Option {
	return func(g *Gateway) {
		g.httpClient = c
	}
}

// WithCookie sends cookie with every request, typically the session cookie
// that identifies the user.
func WithCookie(cookie *http.Cookie) Option {
	return func(g *Gateway) {
		g.cookies = append(g.cookies, cookie)
	}
}

// Gateway implements eventtemplate.Gateway over HTTP.
type Gateway struct {
	baseURL    string
	httpClient *http.Client
	cookies    []*http.Cookie
	logger     *zap.Logger
}

// New returns a gateway for the service at baseURL.
func New(baseURL string, logger *zap.Logger, opts ...Option) *Gateway {
	g := &Gateway{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     logger.Named("gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

type documentResponse struct {
	Data models.Document `json:"data"`
}

type countResponse struct {
	Count int `json:"count"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type createFromTemplateRequest struct {
	TemplateName     string            `json:"template_name"`
	Options          map[string]int    `json:"options"`
	AdditionalFields map[string]string `json:"additional_fields"`
}

type createTemplateRequest struct {
	EventName    string         `json:"event_name"`
	TemplateName string         `json:"template_name"`
	Options      map[string]int `json:"options"`
}

// ErrorResponse is the body the service returns with every non-2xx status.
type ErrorResponse struct {
	Error  string   `json:"error"`
	Fields []string `json:"fields,omitempty"`
}

// FetchDocument retrieves a document via GET /api/resource/{doctype}/{name}.
func (g *Gateway) FetchDocument(ctx context.Context, doctype, name string) (models.Document, error) {
	path := "/api/resource/" + url.PathEscape(doctype) + "/" + url.PathEscape(name)
	var out documentResponse
	if err := g.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("fetch %s %s: %w", doctype, name, err)
	}
	return out.Data, nil
}

// CountLinked counts records via GET /api/count/{doctype}?event=...
func (g *Gateway) CountLinked(ctx context.Context, doctype, event string) (int, error) {
	path := "/api/count/" + url.PathEscape(doctype) + "?" + url.Values{"event": {event}}.Encode()
	var out countResponse
	if err := g.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return 0, fmt.Errorf("count %s: %w", doctype, err)
	}
	return out.Count, nil
}

// CreateFromTemplate calls POST /api/method/create_from_template.
func (g *Gateway) CreateFromTemplate(ctx context.Context, templateName string, selected []string, overrides map[string]string) (string, error) {
	if overrides == nil {
		overrides = map[string]string{}
	}
	body := createFromTemplateRequest{
		TemplateName:     templateName,
		Options:          optionFlags(selected),
		AdditionalFields: overrides,
	}
	var out messageResponse
	if err := g.do(ctx, http.MethodPost, "/api/method/create_from_template", body, &out); err != nil {
		return "", err
	}
	g.logger.Debug("event created", zap.String("template", templateName), zap.String("event", out.Message))
	return out.Message, nil
}

// CreateTemplateFromEvent calls POST /api/method/create_template_from_event.
func (g *Gateway) CreateTemplateFromEvent(ctx context.Context, eventName, templateName string, selected []string) (string, error) {
	body := createTemplateRequest{
		EventName:    eventName,
		TemplateName: templateName,
		Options:      optionFlags(selected),
	}
	var out messageResponse
	if err := g.do(ctx, http.MethodPost, "/api/method/create_template_from_event", body, &out); err != nil {
		return "", err
	}
	g.logger.Debug("template created", zap.String("event", eventName), zap.String("template", out.Message))
	return out.Message, nil
}

// optionFlags encodes the selection as {"name": 1}.
func optionFlags(selected []string) map[string]int {
	flags := make(map[string]int, len(selected))
	for _, name := range selected {
		flags[name] = 1
	}
	return flags
}

// --- HTTP helpers ---

func (g *Gateway) do(ctx context.Context, method, path string, body, out any) error {
	var reader *bytes.Buffer
	if body != nil {
		reader = &bytes.Buffer{}
		if err := json.NewEncoder(reader).Encode(body); err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
	}

	var req *http.Request
	var err error
	if reader != nil {
		req, err = http.NewRequestWithContext(ctx, method, g.baseURL+path, reader)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, g.baseURL+path, nil)
	}
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for _, c := range g.cookies {
		req.AddCookie(c)
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return readError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// readError maps a failed response onto the model errors. Validation
// messages are returned unchanged so they can be shown to the user.
func readError(resp *http.Response) error {
	var errResp ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Error == "" {
		errResp.Error = http.StatusText(resp.StatusCode)
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%s: %w", errResp.Error, models.ErrNotFound)
	case http.StatusExpectationFailed, http.StatusUnprocessableEntity:
		return models.NewValidationError(errResp.Error, errResp.Fields...)
	case http.StatusForbidden:
		return fmt.Errorf("%s: %w", errResp.Error, models.ErrForbidden)
	case http.StatusUnauthorized:
		return fmt.Errorf("%s: %w", errResp.Error, models.ErrUnauthorized)
	}
	return fmt.Errorf("HTTP %d: %s", resp.StatusCode, errResp.Error)
}

var _ eventtemplate.Gateway = (*Gateway)(nil)
