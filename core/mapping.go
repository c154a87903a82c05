package core

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// CompanyFieldMapping names the remote properties that feed each normalized
// company column. Its property list doubles as the fetch projection.
type CompanyFieldMapping struct {
	Name          string
	Domain        string
	Industry      string
	EmployeeCount string
	AnnualRevenue string
	City          string
	Country       string
	Description   string
	Phone         string
	CreatedAt     string
	UpdatedAt     string
}

func DefaultCompanyFieldMapping() CompanyFieldMapping {
	return CompanyFieldMapping{
		Name:          "name",
		Domain:        "domain",
		Industry:      "industry",
		EmployeeCount: "numberofemployees",
		AnnualRevenue: "annualrevenue",
		City:          "city",
		Country:       "country",
		Description:   "description",
		Phone:         "phone",
		CreatedAt:     "createdate",
		UpdatedAt:     "hs_lastmodifieddate",
	}
}

// Properties returns the de-duplicated, non-empty property names in a stable
// order.
func (m CompanyFieldMapping) Properties() []string {
	candidates := []string{
		m.Name, m.Domain, m.Industry, m.EmployeeCount, m.AnnualRevenue,
		m.City, m.Country, m.Description, m.Phone, m.CreatedAt, m.UpdatedAt,
	}
	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, candidate := range candidates {
		candidate = strings.TrimSpace(candidate)
		if candidate == "" {
			continue
		}
		if _, ok := seen[candidate]; ok {
			continue
		}
		seen[candidate] = struct{}{}
		out = append(out, candidate)
	}
	return out
}

// MapCompany normalizes a remote record. Absent or malformed values become
// nil; mapping never fails.
func MapCompany(userID string, record RemoteRecord, mapping CompanyFieldMapping, now time.Time) Company {
	props := record.Properties
	city := OptionalString(propertyValue(props, mapping.City))
	country := OptionalString(propertyValue(props, mapping.Country))

	createdAt := ParseOptionalTime(propertyValue(props, mapping.CreatedAt))
	if createdAt == nil {
		createdAt = ParseOptionalTime(record.CreatedAt)
	}
	updatedAt := ParseOptionalTime(propertyValue(props, mapping.UpdatedAt))
	if updatedAt == nil {
		updatedAt = ParseOptionalTime(record.UpdatedAt)
	}

	if now.IsZero() {
		now = time.Now()
	}
	return Company{
		ID:              uuid.NewString(),
		UserID:          strings.TrimSpace(userID),
		RemoteID:        strings.TrimSpace(record.ID),
		Name:            OptionalString(propertyValue(props, mapping.Name)),
		Domain:          OptionalString(propertyValue(props, mapping.Domain)),
		Industry:        OptionalString(propertyValue(props, mapping.Industry)),
		Description:     OptionalString(propertyValue(props, mapping.Description)),
		Phone:           OptionalString(propertyValue(props, mapping.Phone)),
		EmployeeCount:   ParseOptionalInt(propertyValue(props, mapping.EmployeeCount)),
		AnnualRevenue:   ParseOptionalFloat(propertyValue(props, mapping.AnnualRevenue)),
		City:            city,
		Country:         country,
		Location:        ComposeLocation(city, country),
		RemoteCreatedAt: createdAt,
		RemoteUpdatedAt: updatedAt,
		RawProperties:   copyAnyMap(props),
		SyncedAt:        now.UTC(),
	}
}

// ComposeLocation joins city and country by presence: both yield
// "city, country", either alone yields that value, neither yields nil.
func ComposeLocation(city *string, country *string) *string {
	parts := make([]string, 0, 2)
	for _, part := range []*string{city, country} {
		if part == nil {
			continue
		}
		if trimmed := strings.TrimSpace(*part); trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	if len(parts) == 0 {
		return nil
	}
	location := strings.Join(parts, ", ")
	return &location
}

func OptionalString(value any) *string {
	out, ok := toStringValue(value)
	if !ok {
		return nil
	}
	return &out
}

func ParseOptionalInt(value any) *int64 {
	if value == nil {
		return nil
	}
	parsed, err := toIntValue(value)
	if err != nil {
		return nil
	}
	return &parsed
}

func ParseOptionalFloat(value any) *float64 {
	if value == nil {
		return nil
	}
	parsed, err := toFloatValue(value)
	if err != nil {
		return nil
	}
	return &parsed
}

func ParseOptionalTime(value any) *time.Time {
	if value == nil {
		return nil
	}
	parsed, err := toTimeValue(value)
	if err != nil {
		return nil
	}
	return &parsed
}

func propertyValue(props map[string]any, key string) any {
	key = strings.TrimSpace(key)
	if key == "" || len(props) == 0 {
		return nil
	}
	return props[key]
}
