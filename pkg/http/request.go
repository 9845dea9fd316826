package http

import (
	"context"
	"errors"
)

// RequestMethod represents the HTTP method for the request.
type RequestMethod string

const (
	GET  RequestMethod = "GET"
	POST RequestMethod = "POST"
)

// requestSpec is everything one call needs besides the client and context
type requestSpec struct {
	method      RequestMethod
	path        string
	query       map[string]string
	body        any
	successResp any
	errorResp   any
}

// Request is a fluent builder for one call of a Client.
type Request struct {
	client *Client
	ctx    context.Context
	spec   requestSpec
}

// NewHttpClientRequest creates a GET / request bound to client.
func NewHttpClientRequest(client *Client) *Request {
	return &Request{
		client: client,
		ctx:    context.Background(),
		spec:   requestSpec{method: GET, path: "/"},
	}
}

// WithContext binds the request to ctx; cancelling ctx aborts the request and any pending retry.
func (r *Request) WithContext(ctx context.Context) *Request {
	if ctx != nil {
		r.ctx = ctx
	}
	return r
}

func (r *Request) WithMethod(method RequestMethod) *Request {
	r.spec.method = method
	return r
}

func (r *Request) WithPath(path string) *Request {
	r.spec.path = path
	return r
}

func (r *Request) WithQueryParams(params map[string]string) *Request {
	r.spec.query = params
	return r
}

// WithBody sets the payload. Strings and byte slices are sent as is, anything
// else is encoded with the client's default content type.
func (r *Request) WithBody(body any) *Request {
	r.spec.body = body
	return r
}

// WithSuccessResp sets the decode target of a 2xx response; a *[]byte or
// *string receives the raw body.
func (r *Request) WithSuccessResp(successResp any) *Request {
	r.spec.successResp = successResp
	return r
}

// WithErrorResp sets the decode target of a non-2xx response.
func (r *Request) WithErrorResp(errorResp any) *Request {
	r.spec.errorResp = errorResp
	return r
}

// Execute sends the request and returns the success response, error response, status code, and error if any.
// Non-2xx responses are reported as a *StatusError.
func (r *Request) Execute() (any, any, int, error) {
	if r.client == nil {
		return nil, nil, 0, errors.New("client is required")
	}
	if r.spec.method == "" {
		return nil, nil, 0, errors.New("method is required")
	}
	if r.spec.path == "" {
		return nil, nil, 0, errors.New("path is required")
	}

	return r.client.doRequestWithBackoff(r.ctx, r.spec)
}
