package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/goliatone/go-crm-connector/core"
)

type recordingDecoder struct {
	accountPayload map[string]any
	companyPayload map[string]any
}

func (d *recordingDecoder) DecodeAccount(payload map[string]any) (core.AccountInfo, error) {
	d.accountPayload = payload
	id, _ := payload["id"].(string)
	return core.AccountInfo{WorkspaceID: id}, nil
}

func (d *recordingDecoder) CompanyQuery(req core.PageRequest) url.Values {
	return url.Values{"after": {req.After}}
}

func (d *recordingDecoder) DecodeCompanies(payload map[string]any) (core.RemotePage, error) {
	d.companyPayload = payload
	next, _ := payload["next"].(string)
	return core.RemotePage{NextCursor: next}, nil
}

func TestCRMProvider_FetchAccountAndCompanies(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.URL.Path+"?"+r.URL.RawQuery)
		if r.Header.Get("Authorization") != "Bearer access_1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case "/account":
			_ = json.NewEncoder(w).Encode(map[string]any{"id": "portal_1"})
		case "/objects/companies":
			_ = json.NewEncoder(w).Encode(map[string]any{"next": "cursor_2"})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	decoder := &recordingDecoder{}
	provider, err := NewCRMProvider(CRMConfig{
		IntegrationType: " HubSpot ",
		OAuth:           testOAuth2Config(server.URL + "/token"),
		BaseURL:         server.URL + "/",
		AccountPath:     "account",
		ObjectsPath:     "/objects/companies",
		Decoder:         decoder,
		HTTPClient:      server.Client(),
	})
	if err != nil {
		t.Fatalf("new crm provider: %v", err)
	}
	if provider.IntegrationType() != "hubspot" {
		t.Fatalf("expected normalized integration type, got %q", provider.IntegrationType())
	}

	account, err := provider.FetchAccount(context.Background(), "access_1")
	if err != nil {
		t.Fatalf("fetch account: %v", err)
	}
	if account.WorkspaceID != "portal_1" {
		t.Fatalf("expected decoded account, got %+v", account)
	}

	page, err := provider.ListCompanies(context.Background(), "access_1", core.PageRequest{After: "cursor_1"})
	if err != nil {
		t.Fatalf("list companies: %v", err)
	}
	if page.NextCursor != "cursor_2" {
		t.Fatalf("expected decoded cursor, got %q", page.NextCursor)
	}
	if len(paths) != 2 || paths[1] != "/objects/companies?after=cursor_1" {
		t.Fatalf("unexpected request paths %v", paths)
	}

	_, err = provider.ListCompanies(context.Background(), "stale", core.PageRequest{})
	if !core.HasErrorCode(err, core.ErrorRemoteFetchFailed) {
		t.Fatalf("expected %s for rejected token, got %v", core.ErrorRemoteFetchFailed, err)
	}
}

func TestNewCRMProvider_Validation(t *testing.T) {
	cases := []CRMConfig{
		{OAuth: testOAuth2Config("https://x/token"), BaseURL: "https://api", Decoder: &recordingDecoder{}},
		{IntegrationType: "hubspot", OAuth: testOAuth2Config("https://x/token"), BaseURL: "https://api"},
		{IntegrationType: "hubspot", OAuth: testOAuth2Config("https://x/token"), Decoder: &recordingDecoder{}},
		{IntegrationType: "hubspot", BaseURL: "https://api", Decoder: &recordingDecoder{}},
	}
	for index, cfg := range cases {
		if _, err := NewCRMProvider(cfg); !core.HasErrorCode(err, core.ErrorConfiguration) {
			t.Fatalf("case %d: expected %s, got %v", index, core.ErrorConfiguration, err)
		}
	}
}
