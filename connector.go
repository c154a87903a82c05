// Package connector links a user's CRM account through OAuth2 and copies
// CRM company records into local storage.
package connector

import "github.com/goliatone/go-crm-connector/core"

type Config = core.Config

type Option = core.Option

type Service = core.Service

type IntegrationKey = core.IntegrationKey
type IntegrationCredential = core.IntegrationCredential
type Company = core.Company
type SyncSummary = core.SyncSummary
type CallbackRequest = core.CallbackRequest
type CallbackOutcome = core.CallbackOutcome

func DefaultConfig() Config {
	return core.DefaultConfig()
}

func NewService(cfg Config, opts ...Option) (*Service, error) {
	return core.NewService(cfg, opts...)
}
