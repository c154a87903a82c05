package hubspot

import (
	"net/http"

	"github.com/goliatone/go-crm-connector/core"
	"github.com/goliatone/go-crm-connector/providers"
)

const (
	IntegrationType = "hubspot"
	AuthURL         = "https://app.hubspot.com/oauth/authorize"
	TokenURL        = "https://api.hubapi.com/oauth/v1/token"
	BaseURL         = "https://api.hubapi.com"
	AccountPath     = "/account-info/v3/details"
	CompaniesPath   = "/crm/v3/objects/companies"
)

func DefaultScopes() []string {
	return []string{"oauth", "crm.objects.companies.read"}
}

// New builds the HubSpot provider from connector configuration. Empty
// endpoint settings fall back to the public HubSpot URLs.
func New(cfg core.Config, client *http.Client) (*providers.CRMProvider, error) {
	oauthCfg := cfg.OAuth
	if oauthCfg.AuthURL == "" {
		oauthCfg.AuthURL = AuthURL
	}
	if oauthCfg.TokenURL == "" {
		oauthCfg.TokenURL = TokenURL
	}
	if len(oauthCfg.Scopes) == 0 {
		oauthCfg.Scopes = DefaultScopes()
	}
	apiCfg := cfg.API
	if apiCfg.BaseURL == "" {
		apiCfg.BaseURL = BaseURL
	}
	if apiCfg.AccountPath == "" {
		apiCfg.AccountPath = AccountPath
	}
	if apiCfg.ObjectsPath == "" {
		apiCfg.ObjectsPath = CompaniesPath
	}

	return providers.NewCRMProvider(providers.CRMConfig{
		IntegrationType: IntegrationType,
		OAuth: providers.OAuth2Config{
			AuthURL:             oauthCfg.AuthURL,
			TokenURL:            oauthCfg.TokenURL,
			ClientID:            oauthCfg.ClientID,
			ClientSecret:        oauthCfg.ClientSecret,
			RedirectURI:         oauthCfg.RedirectURI,
			Scopes:              oauthCfg.Scopes,
			TokenRequestTimeout: oauthCfg.ExchangeTimeout,
		},
		BaseURL:        apiCfg.BaseURL,
		AccountPath:    apiCfg.AccountPath,
		ObjectsPath:    apiCfg.ObjectsPath,
		RequestTimeout: apiCfg.RequestTimeout,
		Decoder:        Decoder{},
		HTTPClient:     client,
	})
}
