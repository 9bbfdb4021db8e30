// internal/domain/models/organization.go
package models

// Organization is the tenant a console user belongs to.
type Organization struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Code        string    `json:"code"`
	Description string    `json:"description,omitempty"`
	CreatedAt   Timestamp `json:"createdAt"`
	ModifiedAt  Timestamp `json:"modifiedAt"`
}

// Location is a site within an organization.
type Location struct {
	ID               int64     `json:"id"`
	OrganizationID   int64     `json:"organizationId"`
	OrganizationName string    `json:"organizationName,omitempty"`
	Name             string    `json:"name"`
	Code             string    `json:"code"`
	Description      string    `json:"description,omitempty"`
	CreatedAt        Timestamp `json:"createdAt"`
	ModifiedAt       Timestamp `json:"modifiedAt"`
}
