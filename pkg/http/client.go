package http

import (
	"bytes"
	"context"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker/v2"
	charsetpkg "golang.org/x/net/html/charset"
)

// Client represents an HTTP client with configuration options.
type Client struct {
	baseURL            string
	client             *http.Client
	dismiss404         bool
	defaultHeaders     map[string]string
	defaultContentType string
	backoff            *BackoffConfig
	breaker            *gobreaker.CircuitBreaker[*rawResponse]
	logger             HTTPLogger
}

// ClientOptions represents the configuration options for the HTTP client.
type ClientOptions struct {
	FollowRedirect      bool
	Dismiss404          bool
	DefaultHeaders      map[string]string
	DefaultContentType  string
	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
	ConnectionTimeout   time.Duration
	ReadTimeout         time.Duration
	// Backoff is applied to every request; nil disables retries.
	Backoff *BackoffConfig
	// BreakerName enables a circuit breaker shared by every request of the client.
	BreakerName string
	// BreakerFailures is the number of consecutive failures that opens the breaker.
	BreakerFailures uint32
	// BreakerTimeout is how long the breaker stays open before probing again.
	BreakerTimeout time.Duration
	Logger         HTTPLogger
	// Transport replaces the default transport, mostly for tests.
	Transport http.RoundTripper
}

// StatusError is returned for any response outside the 2xx range.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("http error: status %d", e.StatusCode)
}

type rawResponse struct {
	statusCode  int
	contentType string
	body        []byte
}

// NewHttpClient creates a new HTTP client with the given base URL and configuration options.
func NewHttpClient(baseURL string, opts ClientOptions) *Client {
	if opts.MaxIdleConns == 0 {
		opts.MaxIdleConns = 200
	}
	if opts.MaxIdleConnsPerHost == 0 {
		opts.MaxIdleConnsPerHost = 20
	}
	if opts.ReadTimeout == 0 {
		opts.ReadTimeout = 60 * time.Second
	}
	if opts.ConnectionTimeout == 0 {
		opts.ConnectionTimeout = 60 * time.Second
	}
	if opts.DefaultContentType == "" {
		opts.DefaultContentType = "application/json"
	}
	if opts.Logger == nil {
		opts.Logger = NewZapHTTPLogger()
	}

	transport := opts.Transport
	if transport == nil {
		transport = &http.Transport{
			Proxy:               http.ProxyFromEnvironment,
			MaxIdleConns:        opts.MaxIdleConns,
			MaxIdleConnsPerHost: opts.MaxIdleConnsPerHost,
			IdleConnTimeout:     opts.IdleConnTimeout,
			DialContext: (&net.Dialer{
				Timeout: opts.ConnectionTimeout,
			}).DialContext,
		}
	}

	client := &http.Client{
		Transport: transport,
		Timeout:   opts.ReadTimeout,
	}

	if !opts.FollowRedirect {
		client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}

	hc := &Client{
		baseURL:            strings.TrimRight(baseURL, "/"),
		client:             client,
		dismiss404:         opts.Dismiss404,
		defaultHeaders:     opts.DefaultHeaders,
		defaultContentType: opts.DefaultContentType,
		backoff:            opts.Backoff,
		logger:             opts.Logger,
	}

	if opts.BreakerName != "" {
		hc.breaker = newBreaker(opts.BreakerName, opts.BreakerFailures, opts.BreakerTimeout)
	}

	return hc
}

func newBreaker(name string, failures uint32, timeout time.Duration) *gobreaker.CircuitBreaker[*rawResponse] {
	if failures == 0 {
		failures = 5
	}
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return gobreaker.NewCircuitBreaker[*rawResponse](gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
	})
}

// Request creates a new Request object for the client.
func (hc *Client) Request() *Request {
	return NewHttpClientRequest(hc)
}

// BaseURL returns the normalized base URL.
func (hc *Client) BaseURL() string {
	return hc.baseURL
}

// doRequestWithBackoff sends the request, retrying transport failures, 429 and
// 5xx responses according to the client backoff, and decodes the final response.
// It returns the success response, error response, status code, and error if any.
func (hc *Client) doRequestWithBackoff(ctx context.Context, spec requestSpec) (any, any, int, error) {
	backoff := hc.backoff
	method := string(spec.method)
	fullURL := hc.buildURL(spec.path) + buildQueryString(spec.query)

	payload, contentType, err := hc.encodeBody(spec.body)
	if err != nil {
		return nil, nil, 0, err
	}

	var resp *rawResponse
	maxRetries := backoff.retries()
	for attempt := 0; ; attempt++ {
		start := time.Now()
		hc.logger.LogRequest(method, fullURL)

		resp, err = hc.execute(ctx, method, fullURL, payload, contentType)
		latency := time.Since(start).Milliseconds()

		if attempt >= maxRetries || !backoff.shouldRetry(ctx, resp, err) {
			break
		}

		status := 0
		if resp != nil {
			status = resp.statusCode
		}
		hc.logger.LogRequestRetry(method, fullURL, status, latency, err, attempt+1, maxRetries)

		if waitErr := backoff.wait(ctx, attempt); waitErr != nil {
			return nil, nil, status, waitErr
		}
	}

	if resp == nil {
		hc.logger.LogResponseError(method, fullURL, 0, err)
		return nil, nil, 0, err
	}

	return hc.handleResponse(method, fullURL, resp, spec.successResp, spec.errorResp)
}

// execute performs one attempt through the circuit breaker. 5xx responses are
// reported as failures to the breaker but still returned to the caller.
func (hc *Client) execute(ctx context.Context, method, fullURL string, payload []byte, contentType string) (*rawResponse, error) {
	call := func() (*rawResponse, error) {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, fullURL, bodyReader)
		if err != nil {
			return nil, err
		}

		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		for k, v := range hc.defaultHeaders {
			req.Header.Set(k, v)
		}

		res, err := hc.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer func() { _ = res.Body.Close() }()

		bodyBytes, err := io.ReadAll(res.Body)
		if err != nil {
			return nil, err
		}

		raw := &rawResponse{
			statusCode:  res.StatusCode,
			contentType: res.Header.Get("Content-Type"),
			body:        bodyBytes,
		}
		if res.StatusCode >= 500 {
			return raw, &StatusError{StatusCode: res.StatusCode, Body: string(bodyBytes)}
		}
		return raw, nil
	}

	if hc.breaker == nil {
		return call()
	}
	return hc.breaker.Execute(call)
}

func (hc *Client) handleResponse(method, fullURL string, resp *rawResponse, successResp any, errorResp any) (any, any, int, error) {
	respContentType := resp.contentType
	if respContentType == "" {
		respContentType = hc.defaultContentType
	}

	if resp.statusCode >= 200 && resp.statusCode < 300 {
		hc.logger.LogResponseSuccess(method, fullURL, resp.statusCode)
		if successResp != nil {
			if err := hc.unmarshalResponse(resp.body, respContentType, successResp); err != nil {
				return nil, nil, resp.statusCode, fmt.Errorf("failed to decode response: %w", err)
			}
		}
		return successResp, nil, resp.statusCode, nil
	}

	if resp.statusCode == http.StatusNotFound && hc.dismiss404 {
		return nil, nil, resp.statusCode, nil
	}

	statusErr := &StatusError{StatusCode: resp.statusCode, Body: string(resp.body)}
	hc.logger.LogResponseError(method, fullURL, resp.statusCode, statusErr)

	if errorResp != nil {
		if err := hc.unmarshalResponse(resp.body, respContentType, errorResp); err != nil {
			return nil, nil, resp.statusCode, statusErr
		}
		return nil, errorResp, resp.statusCode, statusErr
	}

	return nil, nil, resp.statusCode, statusErr
}

// encodeBody serializes body according to its type and the default content type
func (hc *Client) encodeBody(body any) ([]byte, string, error) {
	if body == nil {
		return nil, "", nil
	}

	switch b := body.(type) {
	case string:
		return []byte(b), "text/plain", nil
	case []byte:
		return b, "application/octet-stream", nil
	}

	switch hc.defaultContentType {
	case "application/xml":
		xmlBody, err := xml.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal request body to XML: %w", err)
		}
		return xmlBody, "application/xml", nil
	default:
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, "", fmt.Errorf("failed to marshal request body to JSON: %w", err)
		}
		return jsonBody, "application/json", nil
	}
}

// unmarshalResponse decodes the body based on content type. A *[]byte or
// *string target always receives the raw body.
func (hc *Client) unmarshalResponse(bodyBytes []byte, contentType string, target any) error {
	switch t := target.(type) {
	case *[]byte:
		*t = bodyBytes
		return nil
	case *string:
		*t = string(bodyBytes)
		return nil
	}

	mainContentType := strings.TrimSpace(strings.Split(contentType, ";")[0])

	switch mainContentType {
	case "application/xml", "text/xml":
		dec := xml.NewDecoder(bytes.NewReader(bodyBytes))
		dec.CharsetReader = func(charset string, input io.Reader) (io.Reader, error) {
			return charsetpkg.NewReaderLabel(charset, input)
		}
		return dec.Decode(target)
	default:
		return json.Unmarshal(bodyBytes, target)
	}
}

// buildURL joins the base URL and path with exactly one slash
func (hc *Client) buildURL(path string) string {
	if path != "" && !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return hc.baseURL + path
}

// buildQueryString encodes params, including the leading "?"
func buildQueryString(params map[string]string) string {
	if len(params) == 0 {
		return ""
	}
	values := url.Values{}
	for key, value := range params {
		values.Set(key, value)
	}
	return "?" + values.Encode()
}

// IsBreakerOpen reports whether err came from an open circuit breaker.
func IsBreakerOpen(err error) bool {
	return errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests)
}
