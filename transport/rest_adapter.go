package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-crm-connector/core"
)

const defaultRESTClientTimeout = 30 * time.Second
const defaultRESTResponseBodyLimit int64 = 1 << 20 // 1 MiB

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Request describes a single call against a remote REST API. Operation names
// the call in error messages.
type Request struct {
	Operation            string
	Method               string
	URL                  string
	Query                url.Values
	Headers              map[string]string
	BearerToken          string
	Body                 []byte
	Timeout              time.Duration
	MaxResponseBodyBytes int64
}

type Response struct {
	StatusCode int
	Headers    map[string]string
	Body       []byte
	Duration   time.Duration
}

func (r Response) OK() bool {
	return r.StatusCode >= http.StatusOK && r.StatusCode < http.StatusMultipleChoices
}

type RESTClient struct {
	Client               HTTPDoer
	DefaultHeaders       map[string]string
	MaxResponseBodyBytes int64
}

func NewRESTClient(client HTTPDoer) *RESTClient {
	if client == nil {
		client = &http.Client{Timeout: defaultRESTClientTimeout}
	}
	return &RESTClient{
		Client:               client,
		DefaultHeaders:       map[string]string{"Accept": "application/json"},
		MaxResponseBodyBytes: defaultRESTResponseBodyLimit,
	}
}

// Do executes the request and returns the raw response regardless of status.
func (c *RESTClient) Do(ctx context.Context, req Request) (Response, error) {
	if c == nil || c.Client == nil {
		return Response{}, core.ConfigurationError("transport: rest client requires an http client")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	operation := operationName(req.Operation)

	method := strings.TrimSpace(strings.ToUpper(req.Method))
	if method == "" {
		method = http.MethodGet
	}
	parsedURL, err := url.Parse(strings.TrimSpace(req.URL))
	if err != nil || parsedURL.String() == "" {
		return Response{}, core.ConfigurationError(fmt.Sprintf("transport: invalid %s url %q", operation, req.URL))
	}

	query := parsedURL.Query()
	for key, values := range req.Query {
		key = strings.TrimSpace(key)
		if key == "" {
			continue
		}
		query.Del(key)
		for _, value := range values {
			query.Add(key, strings.TrimSpace(value))
		}
	}
	parsedURL.RawQuery = query.Encode()

	requestCtx := ctx
	cancel := func() {}
	if req.Timeout > 0 {
		requestCtx, cancel = context.WithTimeout(ctx, req.Timeout)
	}
	defer cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(requestCtx, method, parsedURL.String(), body)
	if err != nil {
		return Response{}, core.ConfigurationError(fmt.Sprintf("transport: create %s request: %v", operation, err))
	}
	for key, value := range c.DefaultHeaders {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	for key, value := range req.Headers {
		if strings.TrimSpace(key) == "" {
			continue
		}
		httpReq.Header.Set(strings.TrimSpace(key), strings.TrimSpace(value))
	}
	if token := strings.TrimSpace(req.BearerToken); token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	startedAt := time.Now()
	httpRes, err := c.Client.Do(httpReq)
	if err != nil {
		return Response{}, requestError(operation, err)
	}
	defer httpRes.Body.Close()

	maxBodyBytes := resolveResponseBodyLimit(req.MaxResponseBodyBytes, c.MaxResponseBodyBytes)
	payload, err := io.ReadAll(io.LimitReader(httpRes.Body, maxBodyBytes+1))
	if err != nil {
		return Response{}, requestError(operation, err)
	}
	if int64(len(payload)) > maxBodyBytes {
		return Response{}, core.ProviderProtocolError(
			fmt.Sprintf("transport: %s response exceeds limit of %d bytes", operation, maxBodyBytes),
			nil,
		)
	}

	return Response{
		StatusCode: httpRes.StatusCode,
		Headers:    flattenHeaders(httpRes.Header),
		Body:       payload,
		Duration:   time.Since(startedAt),
	}, nil
}

// GetJSON performs a GET and decodes a 2xx JSON body into out. Non-2xx
// statuses surface as REMOTE_FETCH_FAILED carrying the status and a body
// excerpt.
func (c *RESTClient) GetJSON(ctx context.Context, req Request, out any) (Response, error) {
	req.Method = http.MethodGet
	res, err := c.Do(ctx, req)
	if err != nil {
		return Response{}, err
	}
	if !res.OK() {
		return res, core.RemoteFetchFailedError(res.StatusCode, Excerpt(res.Body))
	}
	if out == nil {
		return res, nil
	}
	decoder := json.NewDecoder(bytes.NewReader(res.Body))
	decoder.UseNumber()
	if err := decoder.Decode(out); err != nil {
		return res, core.ProviderProtocolError("transport: decode "+operationName(req.Operation)+" response", err)
	}
	return res, nil
}

func flattenHeaders(headers http.Header) map[string]string {
	if len(headers) == 0 {
		return map[string]string{}
	}
	flat := make(map[string]string, len(headers))
	for key, values := range headers {
		if len(values) == 0 {
			flat[key] = ""
			continue
		}
		flat[key] = strings.Join(values, ",")
	}
	return flat
}

func resolveResponseBodyLimit(requestLimit int64, clientLimit int64) int64 {
	if requestLimit > 0 {
		return requestLimit
	}
	if clientLimit > 0 {
		return clientLimit
	}
	return defaultRESTResponseBodyLimit
}

func operationName(value string) string {
	if trimmed := strings.TrimSpace(value); trimmed != "" {
		return trimmed
	}
	return "remote"
}
