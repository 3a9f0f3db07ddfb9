// Package api is the HTTP client every resource module goes through. It
// attaches the two credentials, decodes the response envelope into typed
// errors and performs the single silent token refresh on 401.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/client/session"
	"github.com/GilChiu/AutoSaaz-Garage-Client-sub000/internal/shared/models"
)

const (
	HeaderAccessToken = "x-access-token"
	HeaderRequestID   = "X-Request-Id"

	LoginPath   = "/auth/login"
	RefreshPath = "/auth/refresh"

	maxBodyBytes = 4 << 20
)

// Credentials are the two tokens sent with every request: the static gateway
// key and, when a user is signed in, their access token.
type Credentials struct {
	GatewayKey string
	UserToken  string
}

// TokenStore holds the user's token pair. *session.Store implements it.
type TokenStore interface {
	Tokens() session.TokenPair
	SaveTokens(session.TokenPair) error
	Clear() error
}

// Client is safe for concurrent use.
type Client struct {
	baseURL    string
	gatewayKey string
	http       *http.Client
	tokens     TokenStore
	log        zerolog.Logger
	onExpired  func()

	refreshMu sync.Mutex
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

func WithTokenStore(s TokenStore) Option { return func(c *Client) { c.tokens = s } }

func WithLogger(l zerolog.Logger) Option { return func(c *Client) { c.log = l } }

// OnSessionExpired is called after a failed refresh cleared the credentials;
// the CLI uses it to point the user at the login command.
func OnSessionExpired(fn func()) Option { return func(c *Client) { c.onExpired = fn } }

func New(baseURL, gatewayKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		gatewayKey: gatewayKey,
		http:       &http.Client{Timeout: 15 * time.Second},
		log:        zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) BaseURL() string { return c.baseURL }

// Credentials reads the current tokens at call time.
func (c *Client) Credentials() Credentials {
	creds := Credentials{GatewayKey: c.gatewayKey}
	if c.tokens != nil {
		creds.UserToken = c.tokens.Tokens().AccessToken
	}
	return creds
}

// Request describes one call. Body is JSON-encoded unless it is a RawBody.
// NoRefresh marks endpoints whose 401 is an answer, not an expired session.
type Request struct {
	Method    string
	Path      string
	Query     url.Values
	Body      any
	NoRefresh bool
}

// RawBody is sent as is with its content type.
type RawBody struct {
	ContentType string
	Data        []byte
}

func Get(path string, q url.Values) Request {
	return Request{Method: http.MethodGet, Path: path, Query: q}
}

// Do performs req and returns the envelope's data. A 401 on an endpoint that
// is not exempt triggers one refresh and one retry with the new token.
func (c *Client) Do(ctx context.Context, req Request) (json.RawMessage, error) {
	if req.Method == "" {
		req.Method = http.MethodGet
	}
	body, contentType, err := encodeBody(req.Body)
	if err != nil {
		return nil, err
	}

	creds := c.Credentials()
	data, err := c.send(ctx, req, body, contentType, creds)
	if !c.shouldRefresh(req, err) {
		return data, err
	}

	if rerr := c.refresh(ctx, creds.UserToken); rerr != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, canceled(ctx, req.Method, req.Path, rerr)
		}
		c.log.Info().Err(rerr).Str("path", req.Path).Msg("token refresh failed, clearing session")
		c.expire()
		return nil, err
	}
	return c.send(ctx, req, body, contentType, c.Credentials())
}

func (c *Client) shouldRefresh(req Request, err error) bool {
	if req.NoRefresh || req.Path == LoginPath || req.Path == RefreshPath || c.tokens == nil {
		return false
	}
	return StatusOf(err) == http.StatusUnauthorized
}

// refresh exchanges the refresh token for a new pair. Concurrent 401s share
// one exchange: a caller whose token was already replaced just retries.
func (c *Client) refresh(ctx context.Context, used string) error {
	c.refreshMu.Lock()
	defer c.refreshMu.Unlock()

	current := c.tokens.Tokens()
	if current.AccessToken != "" && current.AccessToken != used {
		return nil
	}
	if current.RefreshToken == "" {
		return errors.New("no refresh token")
	}

	body, ct, err := encodeBody(map[string]string{"refresh_token": current.RefreshToken})
	if err != nil {
		return err
	}
	data, err := c.send(ctx, Request{Method: http.MethodPost, Path: RefreshPath}, body, ct, Credentials{GatewayKey: c.gatewayKey})
	if err != nil {
		return err
	}
	tr, err := Decode[models.TokenResponse](data)
	if err != nil {
		return err
	}
	if tr.AccessToken == "" {
		return errors.New("empty access token on refresh")
	}
	c.log.Info().Msg("access token refreshed")
	return c.tokens.SaveTokens(session.TokenPair{AccessToken: tr.AccessToken, RefreshToken: tr.RefreshToken})
}

func (c *Client) expire() {
	if err := c.tokens.Clear(); err != nil {
		c.log.Warn().Err(err).Msg("clear session")
	}
	if c.onExpired != nil {
		c.onExpired()
	}
}

func (c *Client) send(ctx context.Context, req Request, body []byte, contentType string, creds Credentials) (json.RawMessage, error) {
	u := c.baseURL + req.Path
	if len(req.Query) > 0 {
		u += "?" + req.Query.Encode()
	}
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	hr, err := http.NewRequestWithContext(ctx, req.Method, u, rd)
	if err != nil {
		return nil, err
	}
	hr.Header.Set("Accept", "application/json")
	hr.Header.Set("Authorization", "Bearer "+creds.GatewayKey)
	if creds.UserToken != "" {
		hr.Header.Set(HeaderAccessToken, creds.UserToken)
	}
	if contentType != "" {
		hr.Header.Set("Content-Type", contentType)
	}
	hr.Header.Set(HeaderRequestID, uuid.NewString())

	resp, err := c.http.Do(hr)
	if err != nil {
		return nil, canceled(ctx, req.Method, req.Path, err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, canceled(ctx, req.Method, req.Path, err)
	}
	c.log.Debug().Str("method", req.Method).Str("path", req.Path).Int("status", resp.StatusCode).Msg("api call")
	return decodeResponse(resp.StatusCode, raw)
}

func decodeResponse(status int, raw []byte) (json.RawMessage, error) {
	var env models.Envelope
	jsonErr := json.Unmarshal(raw, &env)

	if status < 200 || status >= 300 {
		e := &Error{Status: status, Body: string(raw)}
		if jsonErr == nil {
			e.Message = env.Message
			e.Fields = env.Errors
		}
		return nil, e
	}
	if jsonErr != nil {
		return nil, &Error{Status: status, Message: "malformed response", Body: string(raw)}
	}
	if !env.Success {
		return nil, &Error{Status: status, Message: env.Message, Fields: env.Errors, Body: string(raw)}
	}
	return env.Data, nil
}

func encodeBody(v any) ([]byte, string, error) {
	switch b := v.(type) {
	case nil:
		return nil, "", nil
	case RawBody:
		return b.Data, b.ContentType, nil
	case *RawBody:
		return b.Data, b.ContentType, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, "", fmt.Errorf("encode body: %w", err)
	}
	return data, "application/json", nil
}
