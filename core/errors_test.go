package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMapError_Taxonomy(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		code   string
		status int
	}{
		{name: "configuration", err: ConfigurationError("missing client id"), code: ErrorConfiguration, status: http.StatusInternalServerError},
		{name: "authentication", err: AuthenticationError("bad bearer", nil), code: ErrorAuthentication, status: http.StatusUnauthorized},
		{name: "not_connected", err: IntegrationNotConnectedError(NewIntegrationKey("usr_1", "hubspot")), code: ErrorIntegrationNotConnected, status: http.StatusNotFound},
		{name: "remote_fetch", err: RemoteFetchFailedError(503, "unavailable"), code: ErrorRemoteFetchFailed, status: http.StatusBadGateway},
		{name: "deadline", err: fmt.Errorf("call: %w", context.DeadlineExceeded), code: ErrorRemoteTimeout, status: http.StatusGatewayTimeout},
		{name: "invalid_key", err: NewIntegrationKey("", "hubspot").Validate(), code: ErrorBadInput, status: http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			mapped := MapError(tc.err)
			if mapped == nil {
				t.Fatalf("expected mapped error")
			}
			if mapped.TextCode != tc.code {
				t.Fatalf("expected text code %s, got %s", tc.code, mapped.TextCode)
			}
			if mapped.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, mapped.Code)
			}
		})
	}
	if plain := MapError(errors.New("boom")); plain == nil || plain.Code != http.StatusInternalServerError || plain.TextCode == "" {
		t.Fatalf("expected internal envelope for plain errors, got %+v", plain)
	}
	if MapError(nil) != nil {
		t.Fatalf("expected nil for nil error")
	}
}

func TestWrapErrorPreservesCause(t *testing.T) {
	cause := errors.New("unique constraint violated")
	err := StorageError("persist credential", cause)
	if !errors.Is(err, cause) {
		t.Fatalf("expected cause in chain")
	}
	if !containsText(err.Message, "unique constraint violated") {
		t.Fatalf("expected cause message preserved, got %q", err.Message)
	}
}

func TestRemoteFetchFailedErrorCarriesStatus(t *testing.T) {
	err := RemoteFetchFailedError(429, "  too many requests ")
	if err.Message != "remote fetch failed with status 429: too many requests" {
		t.Fatalf("unexpected message %q", err.Message)
	}
	if err.Code != http.StatusBadGateway {
		t.Fatalf("expected bad gateway status, got %d", err.Code)
	}
}
