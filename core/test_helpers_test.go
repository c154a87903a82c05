package core

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.OAuth.ClientID = "client_1"
	cfg.OAuth.ClientSecret = "secret_1"
	cfg.OAuth.RedirectURI = "https://connector.example/auth/callback"
	cfg.Frontend.RedirectURL = "https://app.example/settings/integrations"
	return cfg
}

type stubIdentityResolver struct {
	users map[string]string
	err   error
	calls atomic.Int64
}

func (r *stubIdentityResolver) ResolveUser(_ context.Context, bearer string) (string, error) {
	r.calls.Add(1)
	if r.err != nil {
		return "", r.err
	}
	userID, ok := r.users[bearer]
	if !ok {
		return "", AuthenticationError("unknown bearer token", nil)
	}
	return userID, nil
}

type stubProvider struct {
	mu sync.Mutex

	exchangeGrant TokenGrant
	exchangeErr   error
	refreshGrant  TokenGrant
	refreshErr    error
	refreshDelay  time.Duration
	account       AccountInfo
	accountErr    error
	pages         map[string]RemotePage
	pageErrs      map[string]error

	exchangeCalls atomic.Int64
	refreshCalls  atomic.Int64
	accountCalls  atomic.Int64
	listCalls     atomic.Int64
	requests      []PageRequest
	tokensSeen    []string
}

func newStubProvider() *stubProvider {
	expiresAt := time.Now().UTC().Add(30 * time.Minute)
	return &stubProvider{
		exchangeGrant: TokenGrant{
			AccessToken:  "access_1",
			RefreshToken: "refresh_1",
			TokenType:    "bearer",
			Scopes:       []string{"oauth", "crm.objects.companies.read"},
			ExpiresAt:    &expiresAt,
		},
		account: AccountInfo{WorkspaceID: "portal_42", DisplayName: "acme.example", UserEmail: "owner@acme.example"},
		pages:   map[string]RemotePage{},
	}
}

func (p *stubProvider) IntegrationType() string { return DefaultIntegrationType }

func (p *stubProvider) AuthCodeURL(state string) (string, error) {
	return "https://crm.example/oauth/authorize?client_id=client_1&state=" + state, nil
}

func (p *stubProvider) Exchange(ctx context.Context, code string) (TokenGrant, error) {
	p.exchangeCalls.Add(1)
	if p.exchangeErr != nil {
		return TokenGrant{}, p.exchangeErr
	}
	if code == "" {
		return TokenGrant{}, fmt.Errorf("code is required")
	}
	return p.exchangeGrant, nil
}

func (p *stubProvider) Refresh(ctx context.Context, refreshToken string) (TokenGrant, error) {
	p.refreshCalls.Add(1)
	if p.refreshDelay > 0 {
		select {
		case <-ctx.Done():
			return TokenGrant{}, ctx.Err()
		case <-time.After(p.refreshDelay):
		}
	}
	if p.refreshErr != nil {
		return TokenGrant{}, p.refreshErr
	}
	return p.refreshGrant, nil
}

func (p *stubProvider) FetchAccount(ctx context.Context, accessToken string) (AccountInfo, error) {
	p.accountCalls.Add(1)
	if p.accountErr != nil {
		return AccountInfo{}, p.accountErr
	}
	return p.account, nil
}

func (p *stubProvider) ListCompanies(ctx context.Context, accessToken string, req PageRequest) (RemotePage, error) {
	p.listCalls.Add(1)
	p.mu.Lock()
	p.requests = append(p.requests, req)
	p.tokensSeen = append(p.tokensSeen, accessToken)
	p.mu.Unlock()
	if err := p.pageErrs[req.After]; err != nil {
		return RemotePage{}, err
	}
	return p.pages[req.After], nil
}

type memoryCredentialStore struct {
	mu          sync.Mutex
	items       map[string]IntegrationCredential
	upserts     int
	updates     int
	getErr      error
	upsertErr   error
	beforeWrite func()
}

func newMemoryCredentialStore() *memoryCredentialStore {
	return &memoryCredentialStore{items: map[string]IntegrationCredential{}}
}

func (s *memoryCredentialStore) Get(_ context.Context, key IntegrationKey) (IntegrationCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return IntegrationCredential{}, s.getErr
	}
	credential, ok := s.items[key.String()]
	if !ok {
		return IntegrationCredential{}, ErrCredentialNotFound
	}
	return credential, nil
}

func (s *memoryCredentialStore) Upsert(_ context.Context, credential IntegrationCredential) (IntegrationCredential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.upsertErr != nil {
		return IntegrationCredential{}, s.upsertErr
	}
	key := credential.Key()
	if existing, ok := s.items[key.String()]; ok {
		credential.ID = existing.ID
		credential.CreatedAt = existing.CreatedAt
	} else {
		credential.ID = fmt.Sprintf("cred_%d", len(s.items)+1)
		credential.CreatedAt = time.Now().UTC()
	}
	credential.UpdatedAt = time.Now().UTC()
	s.items[key.String()] = credential
	s.upserts++
	return credential, nil
}

func (s *memoryCredentialStore) UpdateTokens(_ context.Context, key IntegrationKey, expected string, grant TokenGrant) (IntegrationCredential, error) {
	if s.beforeWrite != nil {
		s.beforeWrite()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	credential, ok := s.items[key.String()]
	if !ok {
		return IntegrationCredential{}, ErrCredentialNotFound
	}
	if credential.RefreshToken != expected {
		return IntegrationCredential{}, ErrCredentialConflict
	}
	credential.AccessToken = grant.AccessToken
	credential.RefreshToken = grant.RefreshToken
	credential.TokenExpiresAt = cloneTimePointer(grant.ExpiresAt)
	credential.UpdatedAt = time.Now().UTC()
	s.items[key.String()] = credential
	s.updates++
	return credential, nil
}

func (s *memoryCredentialStore) put(credential IntegrationCredential) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[credential.Key().String()] = credential
}

func (s *memoryCredentialStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.items)
}

type memoryCompanyStore struct {
	mu     sync.Mutex
	rows   map[string]Company
	writes int
	err    error
}

func newMemoryCompanyStore() *memoryCompanyStore {
	return &memoryCompanyStore{rows: map[string]Company{}}
}

func (s *memoryCompanyStore) UpsertBatch(_ context.Context, companies []Company) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return 0, s.err
	}
	for _, company := range companies {
		key := company.UserID + "/" + company.RemoteID
		if existing, ok := s.rows[key]; ok {
			company.ID = existing.ID
		}
		s.rows[key] = company
		s.writes++
	}
	return len(companies), nil
}

func (s *memoryCompanyStore) snapshot() map[string]Company {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]Company, len(s.rows))
	for key, value := range s.rows {
		out[key] = value
	}
	return out
}

type stubLoggerProvider struct {
	logger Logger
}

func (s stubLoggerProvider) GetLogger(string) Logger {
	return s.logger
}

type mapRawLoader struct {
	values map[string]any
}

func (l mapRawLoader) LoadRaw(context.Context) (map[string]any, error) {
	return l.values, nil
}

type serviceFixture struct {
	service     *Service
	provider    *stubProvider
	credentials *memoryCredentialStore
	companies   *memoryCompanyStore
	identity    *stubIdentityResolver
	logger      *captureLogger
	metrics     *captureMetricsRecorder
	now         time.Time
}

func newServiceFixture(t *testing.T, cfg Config, opts ...Option) *serviceFixture {
	t.Helper()
	fixture := &serviceFixture{
		provider:    newStubProvider(),
		credentials: newMemoryCredentialStore(),
		companies:   newMemoryCompanyStore(),
		identity:    &stubIdentityResolver{users: map[string]string{"bearer_1": "usr_1", "bearer_2": "usr_2"}},
		logger:      newCaptureLogger(),
		metrics:     &captureMetricsRecorder{},
		now:         time.Now().UTC(),
	}
	base := []Option{
		WithProvider(fixture.provider),
		WithCredentialStore(fixture.credentials),
		WithCompanyStore(fixture.companies),
		WithIdentityResolver(fixture.identity),
		WithLogger(fixture.logger),
		WithLoggerProvider(stubLoggerProvider{logger: fixture.logger}),
		WithMetricsRecorder(fixture.metrics),
		WithClock(func() time.Time { return fixture.now }),
	}
	svc, err := NewService(cfg, append(base, opts...)...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	fixture.service = svc
	return fixture
}

func (f *serviceFixture) storeCredential(userID string, access string, refresh string, expiresAt *time.Time) {
	f.credentials.put(IntegrationCredential{
		ID:              "cred_" + userID,
		UserID:          userID,
		IntegrationType: DefaultIntegrationType,
		AccessToken:     access,
		RefreshToken:    refresh,
		TokenExpiresAt:  expiresAt,
		WorkspaceID:     "portal_42",
	})
}

func ptrTime(value time.Time) *time.Time {
	return &value
}

func ptrString(value string) *string {
	return &value
}

func hasCounter(counters []capturedCounter, name string, status string) bool {
	for _, counter := range counters {
		if counter.name == name && counter.tags["status"] == status {
			return true
		}
	}
	return false
}

func hasLog(logs []capturedLog, level string, msg string) bool {
	for _, entry := range logs {
		if entry.level == level && strings.EqualFold(entry.msg, msg) {
			return true
		}
	}
	return false
}

func containsText(haystack string, needle string) bool {
	return strings.Contains(haystack, needle)
}
