package core

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func companyRecord(id string, props map[string]any) RemoteRecord {
	return RemoteRecord{ID: id, Properties: props, CreatedAt: "2024-01-02T03:04:05Z", UpdatedAt: "2024-02-03T04:05:06Z"}
}

func TestSyncCompanies_UpsertsAndSummarizes(t *testing.T) {
	fixture := newServiceFixture(t, testConfig())
	fixture.storeCredential("usr_1", "access_1", "refresh_1", ptrTime(fixture.now.Add(time.Hour)))
	fixture.provider.pages[""] = RemotePage{Records: []RemoteRecord{
		companyRecord("101", map[string]any{"name": "Acme", "city": "Paris", "country": "France", "numberofemployees": "250"}),
		companyRecord("102", map[string]any{"name": "Globex", "numberofemployees": "many"}),
	}}

	summary, err := fixture.service.SyncCompanies(context.Background(), "bearer_1")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if summary.Count != 2 || summary.Pages != 1 {
		t.Fatalf("unexpected summary %+v", summary)
	}
	if summary.Message() != "Synced 2 companies" {
		t.Fatalf("unexpected summary message %q", summary.Message())
	}

	rows := fixture.companies.snapshot()
	acme := rows["usr_1/101"]
	if acme.Location == nil || *acme.Location != "Paris, France" {
		t.Fatalf("expected composed location, got %v", acme.Location)
	}
	if acme.EmployeeCount == nil || *acme.EmployeeCount != 250 {
		t.Fatalf("expected employee count 250, got %v", acme.EmployeeCount)
	}
	if rows["usr_1/102"].EmployeeCount != nil {
		t.Fatalf("expected non-numeric employee count to map to nil")
	}

	requests := fixture.provider.requests
	if len(requests) != 1 || requests[0].Limit != MaxPageSize {
		t.Fatalf("expected one bounded page request, got %+v", requests)
	}
	if !reflect.DeepEqual(requests[0].Properties, DefaultCompanyFieldMapping().Properties()) {
		t.Fatalf("expected fixed field projection, got %v", requests[0].Properties)
	}
	if fixture.provider.tokensSeen[0] != "access_1" {
		t.Fatalf("expected stored access token to be used")
	}
}

func TestSyncCompanies_RepeatedSyncIsIdempotent(t *testing.T) {
	fixture := newServiceFixture(t, testConfig())
	fixture.storeCredential("usr_1", "access_1", "refresh_1", nil)
	fixture.provider.pages[""] = RemotePage{Records: []RemoteRecord{
		companyRecord("101", map[string]any{"name": "Acme", "domain": "acme.example"}),
	}}

	if _, err := fixture.service.SyncCompanies(context.Background(), "bearer_1"); err != nil {
		t.Fatalf("first sync: %v", err)
	}
	first := fixture.companies.snapshot()["usr_1/101"]
	if _, err := fixture.service.SyncCompanies(context.Background(), "bearer_1"); err != nil {
		t.Fatalf("second sync: %v", err)
	}
	rows := fixture.companies.snapshot()
	if len(rows) != 1 {
		t.Fatalf("expected one row after repeated sync, got %d", len(rows))
	}
	second := rows["usr_1/101"]
	if second.ID != first.ID || *second.Name != *first.Name || *second.Domain != *first.Domain {
		t.Fatalf("expected identical row content, got %+v vs %+v", first, second)
	}
}

func TestSyncCompanies_DuplicateAndMissingIDsInPage(t *testing.T) {
	fixture := newServiceFixture(t, testConfig())
	fixture.storeCredential("usr_1", "access_1", "refresh_1", nil)
	fixture.provider.pages[""] = RemotePage{Records: []RemoteRecord{
		companyRecord("101", map[string]any{"name": "Old"}),
		companyRecord("", map[string]any{"name": "No id"}),
		companyRecord("101", map[string]any{"name": "New"}),
	}}

	summary, err := fixture.service.SyncCompanies(context.Background(), "bearer_1")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if summary.Count != 1 {
		t.Fatalf("expected one written company, got %d", summary.Count)
	}
	if name := fixture.companies.snapshot()["usr_1/101"].Name; name == nil || *name != "New" {
		t.Fatalf("expected last record to win, got %v", name)
	}
}

func TestSyncCompanies_MissingBearerWritesNothing(t *testing.T) {
	fixture := newServiceFixture(t, testConfig())
	fixture.storeCredential("usr_1", "access_1", "refresh_1", nil)

	_, err := fixture.service.SyncCompanies(context.Background(), "")
	if !HasErrorCode(err, ErrorAuthentication) {
		t.Fatalf("expected %s, got %v", ErrorAuthentication, err)
	}
	if fixture.companies.writes != 0 || fixture.provider.listCalls.Load() != 0 {
		t.Fatalf("expected no fetch and no writes")
	}
}

func TestSyncCompanies_NotConnected(t *testing.T) {
	fixture := newServiceFixture(t, testConfig())

	_, err := fixture.service.SyncCompanies(context.Background(), "bearer_1")
	if !HasErrorCode(err, ErrorIntegrationNotConnected) {
		t.Fatalf("expected %s, got %v", ErrorIntegrationNotConnected, err)
	}
}

func TestSyncCompanies_PropagatesRefreshFailure(t *testing.T) {
	fixture := newServiceFixture(t, testConfig())
	fixture.storeCredential("usr_1", "access_1", "refresh_1", ptrTime(fixture.now.Add(-time.Minute)))
	fixture.provider.refreshErr = errors.New("invalid_grant")

	_, err := fixture.service.SyncCompanies(context.Background(), "bearer_1")
	if !HasErrorCode(err, ErrorRefreshFailed) {
		t.Fatalf("expected %s, got %v", ErrorRefreshFailed, err)
	}
	if fixture.provider.listCalls.Load() != 0 {
		t.Fatalf("expected no fetch after refresh failure")
	}
}

func TestSyncCompanies_FetchFailureKeepsTypedError(t *testing.T) {
	fixture := newServiceFixture(t, testConfig())
	fixture.storeCredential("usr_1", "access_1", "refresh_1", nil)
	fixture.provider.pageErrs = map[string]error{"": RemoteFetchFailedError(429, "rate limited")}

	_, err := fixture.service.SyncCompanies(context.Background(), "bearer_1")
	if !HasErrorCode(err, ErrorRemoteFetchFailed) {
		t.Fatalf("expected %s, got %v", ErrorRemoteFetchFailed, err)
	}
	if mapped := MapError(err); !containsText(mapped.Message, "429") {
		t.Fatalf("expected status in message, got %q", mapped.Message)
	}
}

func TestSyncCompanies_FollowsCursorUpToMaxPages(t *testing.T) {
	cfg := testConfig()
	cfg.API.MaxPages = 2
	fixture := newServiceFixture(t, cfg)
	fixture.storeCredential("usr_1", "access_1", "refresh_1", nil)
	fixture.provider.pages[""] = RemotePage{Records: []RemoteRecord{companyRecord("1", nil)}, NextCursor: "c1"}
	fixture.provider.pages["c1"] = RemotePage{Records: []RemoteRecord{companyRecord("2", nil)}, NextCursor: "c2"}
	fixture.provider.pages["c2"] = RemotePage{Records: []RemoteRecord{companyRecord("3", nil)}}

	summary, err := fixture.service.SyncCompanies(context.Background(), "bearer_1")
	if err != nil {
		t.Fatalf("sync: %v", err)
	}
	if summary.Pages != 2 || summary.Count != 2 || summary.NextCursor != "c2" {
		t.Fatalf("unexpected summary %+v", summary)
	}
}

func TestSyncCompanies_FailedPageKeepsEarlierPages(t *testing.T) {
	cfg := testConfig()
	cfg.API.MaxPages = 3
	fixture := newServiceFixture(t, cfg)
	fixture.storeCredential("usr_1", "access_1", "refresh_1", nil)
	fixture.provider.pages[""] = RemotePage{Records: []RemoteRecord{companyRecord("1", nil)}, NextCursor: "c1"}
	fixture.provider.pageErrs = map[string]error{"c1": RemoteFetchFailedError(500, "upstream")}

	summary, err := fixture.service.SyncCompanies(context.Background(), "bearer_1")
	if err == nil {
		t.Fatalf("expected second page failure")
	}
	if summary.Count != 1 {
		t.Fatalf("expected first page counted, got %d", summary.Count)
	}
	if _, ok := fixture.companies.snapshot()["usr_1/1"]; !ok {
		t.Fatalf("expected first page rows to remain stored")
	}
}

func TestSyncCompanies_StorageFailure(t *testing.T) {
	fixture := newServiceFixture(t, testConfig())
	fixture.storeCredential("usr_1", "access_1", "refresh_1", nil)
	fixture.provider.pages[""] = RemotePage{Records: []RemoteRecord{companyRecord("1", nil)}}
	fixture.companies.err = errors.New("disk full")

	_, err := fixture.service.SyncCompanies(context.Background(), "bearer_1")
	if !HasErrorCode(err, ErrorStorage) {
		t.Fatalf("expected %s, got %v", ErrorStorage, err)
	}
}
