package gocommand

import (
	"context"
	"fmt"
	"strings"

	"github.com/goliatone/go-command"
	commanddispatcher "github.com/goliatone/go-command/dispatcher"
	"github.com/goliatone/go-command/runner"

	crmcommand "github.com/goliatone/go-crm-connector/command"
)

// ValidateMessageContract enforces Type() plus optional Validate() contract.
func ValidateMessageContract(msg any) error {
	if err := command.ValidateMessage(msg); err != nil {
		return err
	}
	m, ok := msg.(command.Message)
	if !ok {
		return fmt.Errorf("gocommand: message must implement Type() string")
	}
	if strings.TrimSpace(m.Type()) == "" {
		return fmt.Errorf("gocommand: message type is required")
	}
	return nil
}

type RegistryAdapter struct {
	registry *command.Registry
}

func NewRegistryAdapter(registry *command.Registry) *RegistryAdapter {
	if registry == nil {
		registry = command.NewRegistry()
	}
	return &RegistryAdapter{registry: registry}
}

func (a *RegistryAdapter) Registry() *command.Registry {
	if a == nil {
		return nil
	}
	return a.registry
}

func (a *RegistryAdapter) RegisterCommand(cmd any) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.RegisterCommand(cmd)
}

func (a *RegistryAdapter) AddResolver(key string, resolver command.Resolver) error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.AddResolver(strings.TrimSpace(key), resolver)
}

func (a *RegistryAdapter) HasResolver(key string) bool {
	if a == nil || a.registry == nil {
		return false
	}
	return a.registry.HasResolver(strings.TrimSpace(key))
}

func (a *RegistryAdapter) Initialize() error {
	if a == nil || a.registry == nil {
		return fmt.Errorf("gocommand: registry is not configured")
	}
	return a.registry.Initialize()
}

func Dispatch[T any](ctx context.Context, msg T) error {
	return commanddispatcher.Dispatch(ctx, msg)
}

// DispatchWithResult dispatches msg and returns the value its command stored
// in the result collector.
func DispatchWithResult[T any, R any](ctx context.Context, msg T) (R, error) {
	var zero R
	collector := command.NewResult[R]()
	if err := commanddispatcher.Dispatch(command.ContextWithResult(ctx, collector), msg); err != nil {
		return zero, err
	}
	value, ok := collector.Load()
	if !ok {
		return zero, fmt.Errorf("gocommand: %T produced no result", msg)
	}
	return value, nil
}

func RegisterAndSubscribe[T any](
	adapter *RegistryAdapter,
	cmd command.Commander[T],
	runnerOpts ...runner.Option,
) (commanddispatcher.Subscription, error) {
	if adapter == nil || adapter.registry == nil {
		return nil, fmt.Errorf("gocommand: registry is not configured")
	}
	if cmd == nil {
		return nil, fmt.Errorf("gocommand: command is required")
	}
	subscription := commanddispatcher.SubscribeCommand(cmd, runnerOpts...)
	if err := adapter.RegisterCommand(cmd); err != nil {
		if subscription != nil {
			subscription.Unsubscribe()
		}
		return nil, err
	}
	return subscription, nil
}

// Subscriptions holds every connector command subscription so callers can
// tear them down together.
type Subscriptions []commanddispatcher.Subscription

func (s Subscriptions) Unsubscribe() {
	for _, subscription := range s {
		if subscription != nil {
			subscription.Unsubscribe()
		}
	}
}

// RegisterConnectorCommands subscribes the authorization, refresh and sync
// commands for service on the shared dispatcher.
func RegisterConnectorCommands(
	adapter *RegistryAdapter,
	service crmcommand.ConnectorService,
	runnerOpts ...runner.Option,
) (Subscriptions, error) {
	if service == nil {
		return nil, fmt.Errorf("gocommand: connector service is required")
	}
	var subs Subscriptions
	register := func(subscribe func() (commanddispatcher.Subscription, error)) error {
		sub, err := subscribe()
		if err != nil {
			subs.Unsubscribe()
			return err
		}
		subs = append(subs, sub)
		return nil
	}

	steps := []func() (commanddispatcher.Subscription, error){
		func() (commanddispatcher.Subscription, error) {
			return RegisterAndSubscribe(adapter, crmcommand.NewBeginAuthorizationCommand(service), runnerOpts...)
		},
		func() (commanddispatcher.Subscription, error) {
			return RegisterAndSubscribe(adapter, crmcommand.NewCompleteAuthorizationCommand(service), runnerOpts...)
		},
		func() (commanddispatcher.Subscription, error) {
			return RegisterAndSubscribe(adapter, crmcommand.NewRefreshCredentialCommand(service), runnerOpts...)
		},
		func() (commanddispatcher.Subscription, error) {
			return RegisterAndSubscribe(adapter, crmcommand.NewSyncCompaniesCommand(service), runnerOpts...)
		},
	}
	for _, step := range steps {
		if err := register(step); err != nil {
			return nil, err
		}
	}
	return subs, nil
}
