package hubspot

import (
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/goliatone/go-crm-connector/core"
	"github.com/goliatone/go-crm-connector/providers"
)

// Decoder reads the account-info and CRM v3 object payloads.
type Decoder struct{}

func (Decoder) DecodeAccount(payload map[string]any) (core.AccountInfo, error) {
	if payload == nil {
		return core.AccountInfo{}, core.ProviderProtocolError("hubspot: empty account payload", nil)
	}
	workspaceID := readString(payload["portalId"])
	if workspaceID == "" {
		workspaceID = readString(payload["hub_id"])
	}
	displayName := readString(payload["uiDomain"])
	if displayName == "" {
		displayName = readString(payload["hub_domain"])
	}
	if displayName == "" {
		displayName = readString(payload["name"])
	}
	email := readString(payload["user"])
	if email == "" {
		email = readString(payload["userEmail"])
	}
	return core.AccountInfo{
		WorkspaceID: workspaceID,
		DisplayName: displayName,
		UserEmail:   email,
		Raw:         payload,
	}, nil
}

func (Decoder) CompanyQuery(req core.PageRequest) url.Values {
	query := url.Values{}
	limit := req.Limit
	if limit <= 0 || limit > core.MaxPageSize {
		limit = core.MaxPageSize
	}
	query.Set("limit", strconv.Itoa(limit))
	if len(req.Properties) > 0 {
		query.Set("properties", strings.Join(req.Properties, ","))
	}
	if after := strings.TrimSpace(req.After); after != "" {
		query.Set("after", after)
	}
	query.Set("archived", "false")
	return query
}

func (Decoder) DecodeCompanies(payload map[string]any) (core.RemotePage, error) {
	rawResults, ok := payload["results"]
	if !ok || rawResults == nil {
		return core.RemotePage{}, core.ProviderProtocolError("hubspot: company response is missing results", nil)
	}
	results, ok := rawResults.([]any)
	if !ok {
		return core.RemotePage{}, core.ProviderProtocolError(
			fmt.Sprintf("hubspot: company results has unexpected type %T", rawResults), nil)
	}

	page := core.RemotePage{Records: make([]core.RemoteRecord, 0, len(results))}
	for index, item := range results {
		entry, ok := item.(map[string]any)
		if !ok {
			return core.RemotePage{}, core.ProviderProtocolError(
				fmt.Sprintf("hubspot: company result %d is not an object", index), nil)
		}
		properties, _ := entry["properties"].(map[string]any)
		page.Records = append(page.Records, core.RemoteRecord{
			ID:         readString(entry["id"]),
			Properties: properties,
			CreatedAt:  readString(entry["createdAt"]),
			UpdatedAt:  readString(entry["updatedAt"]),
			Archived:   readBool(entry["archived"]),
		})
	}

	if paging, ok := payload["paging"].(map[string]any); ok {
		if next, ok := paging["next"].(map[string]any); ok {
			page.NextCursor = readString(next["after"])
		}
	}
	return page, nil
}

func readString(value any) string {
	switch typed := value.(type) {
	case string:
		return strings.TrimSpace(typed)
	case json.Number:
		return typed.String()
	case float64:
		return strconv.FormatFloat(typed, 'f', -1, 64)
	case int:
		return strconv.Itoa(typed)
	case int64:
		return strconv.FormatInt(typed, 10)
	default:
		return ""
	}
}

func readBool(value any) bool {
	switch typed := value.(type) {
	case bool:
		return typed
	case string:
		parsed, _ := strconv.ParseBool(strings.TrimSpace(typed))
		return parsed
	default:
		return false
	}
}

var _ providers.PayloadDecoder = Decoder{}
