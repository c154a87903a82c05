package providers

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-crm-connector/core"
	"github.com/goliatone/go-crm-connector/transport"
)

// PayloadDecoder translates vendor specific API shapes into connector types.
type PayloadDecoder interface {
	DecodeAccount(payload map[string]any) (core.AccountInfo, error)
	CompanyQuery(req core.PageRequest) url.Values
	DecodeCompanies(payload map[string]any) (core.RemotePage, error)
}

type CRMConfig struct {
	IntegrationType string
	OAuth           OAuth2Config
	BaseURL         string
	AccountPath     string
	ObjectsPath     string
	RequestTimeout  time.Duration
	Decoder         PayloadDecoder
	HTTPClient      *http.Client
}

// CRMProvider pairs the authorization-code flow with read access to a CRM
// REST API.
type CRMProvider struct {
	integrationType string
	oauth           *OAuth2Provider
	api             *transport.RESTClient
	accountURL      string
	objectsURL      string
	requestTimeout  time.Duration
	decoder         PayloadDecoder
}

func NewCRMProvider(cfg CRMConfig) (*CRMProvider, error) {
	integrationType := strings.ToLower(strings.TrimSpace(cfg.IntegrationType))
	if integrationType == "" {
		return nil, core.ConfigurationError("providers: integration type is required")
	}
	if cfg.Decoder == nil {
		return nil, core.ConfigurationError("providers: payload decoder is required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		return nil, core.ConfigurationError("providers: api base url is required")
	}
	if cfg.OAuth.HTTPClient == nil {
		cfg.OAuth.HTTPClient = cfg.HTTPClient
	}
	oauth, err := NewOAuth2Provider(cfg.OAuth)
	if err != nil {
		return nil, err
	}

	var doer transport.HTTPDoer
	if cfg.HTTPClient != nil {
		doer = cfg.HTTPClient
	}
	return &CRMProvider{
		integrationType: integrationType,
		oauth:           oauth,
		api:             transport.NewRESTClient(doer),
		accountURL:      joinURL(baseURL, cfg.AccountPath),
		objectsURL:      joinURL(baseURL, cfg.ObjectsPath),
		requestTimeout:  cfg.RequestTimeout,
		decoder:         cfg.Decoder,
	}, nil
}

func (p *CRMProvider) IntegrationType() string {
	return p.integrationType
}

func (p *CRMProvider) AuthCodeURL(state string) (string, error) {
	return p.oauth.AuthCodeURL(state)
}

func (p *CRMProvider) Exchange(ctx context.Context, code string) (core.TokenGrant, error) {
	return p.oauth.Exchange(ctx, code)
}

func (p *CRMProvider) Refresh(ctx context.Context, refreshToken string) (core.TokenGrant, error) {
	return p.oauth.Refresh(ctx, refreshToken)
}

func (p *CRMProvider) FetchAccount(ctx context.Context, accessToken string) (core.AccountInfo, error) {
	var payload map[string]any
	if _, err := p.api.GetJSON(ctx, transport.Request{
		Operation:   "account lookup",
		URL:         p.accountURL,
		BearerToken: accessToken,
		Timeout:     p.requestTimeout,
	}, &payload); err != nil {
		return core.AccountInfo{}, err
	}
	return p.decoder.DecodeAccount(payload)
}

func (p *CRMProvider) ListCompanies(ctx context.Context, accessToken string, req core.PageRequest) (core.RemotePage, error) {
	var payload map[string]any
	if _, err := p.api.GetJSON(ctx, transport.Request{
		Operation:   "company fetch",
		URL:         p.objectsURL,
		Query:       p.decoder.CompanyQuery(req),
		BearerToken: accessToken,
		Timeout:     p.requestTimeout,
	}, &payload); err != nil {
		return core.RemotePage{}, err
	}
	return p.decoder.DecodeCompanies(payload)
}

func joinURL(base string, path string) string {
	path = strings.TrimSpace(path)
	if path == "" {
		return base
	}
	return base + "/" + strings.TrimLeft(path, "/")
}

var _ core.Provider = (*CRMProvider)(nil)
