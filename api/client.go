package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jrsteele09/dojotv/credentials"
	"github.com/jrsteele09/dojotv/internal/utils"
	"github.com/pkg/errors"
)

const (
	defaultTimeout  = 30 * time.Second
	maxResponseBody = 10 << 20
)

// Request describes one API call.
type Request struct {
	Method string
	Path   string
	Body   any
	Params url.Values

	// FallbackMessage is used when a failed response carries no message.
	FallbackMessage string

	// SkipSessionReset stops a 401 on this request from clearing the session. Used by
	// login, where a 401 means bad credentials rather than an expired session.
	SkipSessionReset bool
}

type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Client calls the CRM API through the interceptor chain.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	store        credentials.Store
	authScheme   string
	timeout      time.Duration
	interceptors []Interceptor

	resetter     SessionResetter
	resetterLock sync.RWMutex
}

// ClientOption defines a function type to modify the Client instance.
type ClientOption func(*Client)

// WithHTTPClient supplies the http.Client whose transport ends the chain.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

func WithTimeout(timeout time.Duration) ClientOption {
	return func(c *Client) {
		c.timeout = timeout
	}
}

// WithAuthScheme prefixes the Authorization header value (e.g. "Bearer").
func WithAuthScheme(scheme string) ClientOption {
	return func(c *Client) {
		c.authScheme = scheme
	}
}

// WithInterceptors appends interceptors that run after the built-in ones on the way out.
func WithInterceptors(mw ...Interceptor) ClientOption {
	return func(c *Client) {
		c.interceptors = append(c.interceptors, mw...)
	}
}

func WithSessionResetter(r SessionResetter) ClientOption {
	return func(c *Client) {
		c.resetter = r
	}
}

// New builds a client for baseURL that reads credentials from store.
func New(baseURL string, store credentials.Store, options ...ClientOption) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("[api.New] baseURL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, errors.Wrap(err, "[api.New] invalid baseURL")
	}
	if store == nil {
		return nil, errors.New("[api.New] credential store is required")
	}

	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		store:      store,
	}
	for _, opt := range options {
		opt(c)
	}

	base := c.httpClient.Transport
	if base == nil {
		base = http.DefaultTransport
	}
	mw := []Interceptor{
		RequestIDInterceptor(),
		LoggingInterceptor(),
		UnauthorizedInterceptor(store, c.sessionResetter),
		CredentialsInterceptor(store, c.authScheme),
	}
	mw = append(mw, c.interceptors...)

	hc := *c.httpClient
	if c.timeout > 0 {
		hc.Timeout = c.timeout
	}
	hc.Transport = ChainInterceptors(base.RoundTrip, mw...)
	c.httpClient = &hc

	return c, nil
}

// SetSessionResetter registers the session to reset on a 401. It is set after construction
// because the session itself depends on the client.
func (c *Client) SetSessionResetter(r SessionResetter) {
	c.resetterLock.Lock()
	defer c.resetterLock.Unlock()
	c.resetter = r
}

func (c *Client) sessionResetter() SessionResetter {
	c.resetterLock.RLock()
	defer c.resetterLock.RUnlock()
	return c.resetter
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends the request. Transport failures and non-2xx responses are returned as *Error.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	httpReq, err := c.newHTTPRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, &Error{
			Kind:    KindNetwork,
			Message: networkErrorMessage,
			Err:     err,
		}
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, &Error{
			Kind:       KindNetwork,
			StatusCode: httpResp.StatusCode,
			Message:    networkErrorMessage,
			Err:        err,
		}
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode > 299 {
		message, code := envelopeMessage(body)
		return nil, &Error{
			Kind:       KindHTTP,
			StatusCode: httpResp.StatusCode,
			Message:    utils.FirstNonEmpty(message, req.FallbackMessage, genericErrorMessage),
			Code:       code,
			RawBody:    body,
		}
	}

	return &Response{StatusCode: httpResp.StatusCode, Header: httpResp.Header, Body: body}, nil
}

// Call sends req and returns the envelope's data.
func Call[T any](ctx context.Context, c *Client, req Request) (T, error) {
	var env Envelope[T]
	resp, err := c.Do(ctx, req)
	if err != nil {
		return env.Data, err
	}
	if err := Decode(resp, req.FallbackMessage, &env); err != nil {
		return env.Data, err
	}
	return env.Data, nil
}

func (c *Client) newHTTPRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodGet
	}

	target := c.baseURL + "/" + strings.TrimLeft(req.Path, "/")
	if len(req.Params) > 0 {
		target += "?" + req.Params.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		b, err := json.Marshal(req.Body)
		if err != nil {
			return nil, errors.Wrap(err, "[Client.Do] json.Marshal")
		}
		body = bytes.NewReader(b)
	}

	if req.SkipSessionReset {
		ctx = withSkipSessionReset(ctx)
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, errors.Wrap(err, "[Client.Do] http.NewRequestWithContext")
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	return httpReq, nil
}
