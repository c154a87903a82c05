package gocommand

import (
	"context"
	"errors"
	"testing"

	"github.com/goliatone/go-command"

	crmcommand "github.com/goliatone/go-crm-connector/command"
	"github.com/goliatone/go-crm-connector/core"
)

type okMessage struct{}

func (okMessage) Type() string { return "crm.command.ok" }

type invalidMessage struct{}

func (invalidMessage) Type() string { return "" }

type failingMessage struct{}

func (failingMessage) Type() string { return "crm.command.fail" }

func (failingMessage) Validate() error { return errors.New("invalid payload") }

type dispatchMessage struct {
	ID string
}

func (dispatchMessage) Type() string { return "crm.command.test" }

func TestValidateMessageContract(t *testing.T) {
	if err := ValidateMessageContract(okMessage{}); err != nil {
		t.Fatalf("expected valid message, got %v", err)
	}
	if err := ValidateMessageContract(invalidMessage{}); err == nil {
		t.Fatalf("expected empty type to fail contract validation")
	}
	if err := ValidateMessageContract(failingMessage{}); err == nil {
		t.Fatalf("expected Validate() failure to bubble")
	}
	if err := ValidateMessageContract(crmcommand.SyncCompaniesMessage{UserID: "usr_1"}); err != nil {
		t.Fatalf("expected sync message to satisfy contract, got %v", err)
	}
}

func TestRegistryAndDispatchWiring(t *testing.T) {
	adapter := NewRegistryAdapter(command.NewRegistry())
	executed := 0
	customResolverCalled := 0

	cmd := command.CommandFunc[dispatchMessage](func(context.Context, dispatchMessage) error {
		executed++
		return nil
	})

	sub, err := RegisterAndSubscribe(adapter, cmd)
	if err != nil {
		t.Fatalf("register and subscribe: %v", err)
	}
	defer sub.Unsubscribe()
	if err := adapter.AddResolver("custom", func(any, command.CommandMeta, *command.Registry) error {
		customResolverCalled++
		return nil
	}); err != nil {
		t.Fatalf("add resolver: %v", err)
	}
	if !adapter.HasResolver("custom") {
		t.Fatalf("expected custom resolver to be registered")
	}
	if err := adapter.Initialize(); err != nil {
		t.Fatalf("initialize registry: %v", err)
	}
	if customResolverCalled == 0 {
		t.Fatalf("expected resolver hook to run during initialization")
	}

	if err := Dispatch(context.Background(), dispatchMessage{ID: "m1"}); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if executed != 1 {
		t.Fatalf("expected command execution count=1, got %d", executed)
	}
}

type syncOnlyService struct {
	users []string
}

func (s *syncOnlyService) IntegrationType() string { return "hubspot" }

func (s *syncOnlyService) BeginAuthorization(context.Context, string) (core.AuthorizationURL, error) {
	return core.AuthorizationURL{URL: "https://crm.example/oauth"}, nil
}

func (s *syncOnlyService) CompleteAuthorization(context.Context, core.CallbackRequest) core.CallbackOutcome {
	return core.CallbackOutcome{Status: core.CallbackStatusSuccess}
}

func (s *syncOnlyService) EnsureCredentialFresh(context.Context, core.IntegrationKey) (core.RefreshResult, error) {
	return core.RefreshResult{}, nil
}

func (s *syncOnlyService) SyncCompanies(context.Context, string) (core.SyncSummary, error) {
	return core.SyncSummary{}, errors.New("bearer sync not expected")
}

func (s *syncOnlyService) SyncCompaniesForUser(_ context.Context, userID string) (core.SyncSummary, error) {
	s.users = append(s.users, userID)
	return core.SyncSummary{UserID: userID, Count: 3}, nil
}

func TestRegisterConnectorCommands_DispatchesSync(t *testing.T) {
	service := &syncOnlyService{}
	subs, err := RegisterConnectorCommands(NewRegistryAdapter(nil), service)
	if err != nil {
		t.Fatalf("register connector commands: %v", err)
	}
	defer subs.Unsubscribe()
	if len(subs) != 4 {
		t.Fatalf("expected 4 subscriptions, got %d", len(subs))
	}

	summary, err := DispatchWithResult[crmcommand.SyncCompaniesMessage, core.SyncSummary](
		context.Background(),
		crmcommand.SyncCompaniesMessage{UserID: "usr_7"},
	)
	if err != nil {
		t.Fatalf("dispatch sync: %v", err)
	}
	if summary.Count != 3 || len(service.users) != 1 || service.users[0] != "usr_7" {
		t.Fatalf("unexpected sync dispatch summary=%#v users=%v", summary, service.users)
	}

	if _, err := RegisterConnectorCommands(NewRegistryAdapter(nil), nil); err == nil {
		t.Fatalf("expected error for nil service")
	}
}
