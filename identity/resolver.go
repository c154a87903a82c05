package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goliatone/go-crm-connector/core"
	"github.com/goliatone/go-crm-connector/transport"
)

const (
	defaultRequestTimeout   = 10 * time.Second
	maxProfileResponseBytes = 1 << 20 // 1 MiB
	apiKeyHeader            = "apikey"
)

var ErrUserNotFound = errors.New("identity: user not found")

type Config struct {
	URL            string
	APIKey         string
	HTTPClient     transport.HTTPDoer
	RequestTimeout time.Duration
}

// HTTPResolver asks the identity provider's user endpoint who owns a bearer
// credential. Rejections become AUTHENTICATION errors; outages become remote
// errors so callers can tell the two apart.
type HTTPResolver struct {
	url            string
	apiKey         string
	client         *transport.RESTClient
	requestTimeout time.Duration
}

func NewHTTPResolver(cfg Config) (*HTTPResolver, error) {
	endpoint := strings.TrimSpace(cfg.URL)
	if endpoint == "" {
		return nil, core.ConfigurationError("identity: user endpoint url is required")
	}
	requestTimeout := cfg.RequestTimeout
	if requestTimeout <= 0 {
		requestTimeout = defaultRequestTimeout
	}
	client := transport.NewRESTClient(cfg.HTTPClient)
	client.MaxResponseBodyBytes = maxProfileResponseBytes
	return &HTTPResolver{
		url:            endpoint,
		apiKey:         strings.TrimSpace(cfg.APIKey),
		client:         client,
		requestTimeout: requestTimeout,
	}, nil
}

func NewResolverFromConfig(cfg core.IdentityConfig, client transport.HTTPDoer) (*HTTPResolver, error) {
	return NewHTTPResolver(Config{
		URL:            cfg.URL,
		APIKey:         cfg.APIKey,
		HTTPClient:     client,
		RequestTimeout: cfg.Timeout,
	})
}

func (r *HTTPResolver) ResolveUser(ctx context.Context, bearer string) (string, error) {
	if r == nil || r.client == nil {
		return "", core.ConfigurationError("identity: resolver is not configured")
	}
	bearer = strings.TrimSpace(bearer)
	if bearer == "" {
		return "", core.AuthenticationError("missing bearer credential", nil)
	}
	headers := map[string]string{}
	if r.apiKey != "" {
		headers[apiKeyHeader] = r.apiKey
	}

	res, err := r.client.Do(ctx, transport.Request{
		Operation:   "identity lookup",
		Method:      http.MethodGet,
		URL:         r.url,
		Headers:     headers,
		BearerToken: bearer,
		Timeout:     r.requestTimeout,
	})
	if err != nil {
		return "", err
	}
	switch {
	case res.StatusCode == http.StatusUnauthorized, res.StatusCode == http.StatusForbidden:
		return "", core.AuthenticationError("invalid bearer credential", nil)
	case res.StatusCode == http.StatusNotFound:
		return "", core.AuthenticationError("invalid bearer credential", ErrUserNotFound)
	case res.StatusCode >= http.StatusBadRequest && res.StatusCode < http.StatusInternalServerError:
		return "", core.AuthenticationError(fmt.Sprintf("identity provider rejected bearer (status %d)", res.StatusCode), nil)
	case !res.OK():
		return "", core.RemoteFetchFailedError(res.StatusCode, transport.Excerpt(res.Body))
	}

	userID, err := readUserID(res.Body)
	if err != nil {
		return "", core.AuthenticationError("invalid bearer credential", err)
	}
	return userID, nil
}

func readUserID(body []byte) (string, error) {
	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()
	var payload map[string]any
	if err := decoder.Decode(&payload); err != nil {
		return "", fmt.Errorf("identity: decode user response: %w", err)
	}
	for _, key := range []string{"id", "sub", "user_id"} {
		if value := readString(payload[key]); value != "" {
			return value, nil
		}
	}
	if nested, ok := payload["user"].(map[string]any); ok {
		if value := readString(nested["id"]); value != "" {
			return value, nil
		}
	}
	return "", ErrUserNotFound
}

func readString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return typed.String()
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	default:
		return ""
	}
}

var _ core.IdentityResolver = (*HTTPResolver)(nil)
