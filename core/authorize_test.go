package core

import (
	"context"
	"errors"
	"testing"
)

func TestBeginAuthorization_BindsStateToCaller(t *testing.T) {
	fixture := newServiceFixture(t, testConfig())

	auth, err := fixture.service.BeginAuthorization(context.Background(), "bearer_1")
	if err != nil {
		t.Fatalf("begin authorization: %v", err)
	}
	if auth.State != "usr_1" {
		t.Fatalf("expected state bound to user id, got %q", auth.State)
	}
	if !containsText(auth.URL, "state=usr_1") {
		t.Fatalf("expected consent url to carry state, got %q", auth.URL)
	}
}

func TestBeginAuthorization_MissingBearer(t *testing.T) {
	fixture := newServiceFixture(t, testConfig())

	_, err := fixture.service.BeginAuthorization(context.Background(), "  ")
	if !HasErrorCode(err, ErrorAuthentication) {
		t.Fatalf("expected %s, got %v", ErrorAuthentication, err)
	}
	if fixture.identity.calls.Load() != 0 {
		t.Fatalf("expected identity backend not to be called")
	}
}

func TestBeginAuthorization_UnknownBearer(t *testing.T) {
	fixture := newServiceFixture(t, testConfig())

	_, err := fixture.service.BeginAuthorization(context.Background(), "bearer_unknown")
	if !HasErrorCode(err, ErrorAuthentication) {
		t.Fatalf("expected %s, got %v", ErrorAuthentication, err)
	}
}

func TestBeginAuthorization_IdentityBackendErrorIsAuthentication(t *testing.T) {
	fixture := newServiceFixture(t, testConfig())
	fixture.identity.err = errors.New("jwt malformed")

	_, err := fixture.service.BeginAuthorization(context.Background(), "bearer_1")
	if !HasErrorCode(err, ErrorAuthentication) {
		t.Fatalf("expected %s, got %v", ErrorAuthentication, err)
	}
}

func TestNewService_RejectsMissingOAuthConfiguration(t *testing.T) {
	cfg := testConfig()
	cfg.OAuth.ClientID = ""
	_, err := NewService(cfg)
	if !HasErrorCode(err, ErrorConfiguration) {
		t.Fatalf("expected %s, got %v", ErrorConfiguration, err)
	}

	cfg = testConfig()
	cfg.OAuth.RedirectURI = ""
	_, err = NewService(cfg)
	if !HasErrorCode(err, ErrorConfiguration) {
		t.Fatalf("expected %s, got %v", ErrorConfiguration, err)
	}
}

func TestNewService_RejectsMismatchedProvider(t *testing.T) {
	cfg := testConfig()
	cfg.IntegrationType = "salesforce"
	_, err := NewService(cfg, WithProvider(newStubProvider()))
	if !HasErrorCode(err, ErrorConfiguration) {
		t.Fatalf("expected %s, got %v", ErrorConfiguration, err)
	}
}
