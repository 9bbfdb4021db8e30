// internal/domain/models/user.go
package models

import "strconv"

// UserProfile is the display cache of the signed-in user, taken from the
// login response. The backend stays authoritative for every field.
type UserProfile struct {
	ID             int64         `json:"id"`
	BirthDate      string        `json:"birthDate,omitempty"`
	FullName       string        `json:"fullName"`
	Identity       string        `json:"identity,omitempty"`
	GenderID       int           `json:"genderId,omitempty"`
	Gender         string        `json:"gender,omitempty"`
	Email          string        `json:"email"`
	Phone          string        `json:"phone,omitempty"`
	StatusID       int           `json:"statusId,omitempty"`
	Status         string        `json:"status,omitempty"`
	LocationID     *int64        `json:"locationId,omitempty"`
	OrganizationID *int64        `json:"organizationId,omitempty"`
	RoleID         *int64        `json:"roleId,omitempty"`
	Location       *Location     `json:"location,omitempty"`
	Organization   *Organization `json:"organization,omitempty"`
}

// DisplayName falls back to the email when the backend sent no name.
func (u UserProfile) DisplayName() string {
	if u.FullName != "" {
		return u.FullName
	}
	return u.Email
}

// OrganizationName returns the embedded organization's name, if any.
func (u UserProfile) OrganizationName() string {
	if u.Organization != nil {
		return u.Organization.Name
	}
	if u.Location != nil {
		return u.Location.OrganizationName
	}
	return ""
}

// TenantKey identifies the user's organization for per-tenant caches.
// Users without an organization get a key scoped to their own id, and a
// profile with no id at all (missing or unreadable cache) is scoped to the
// console session sid so it never shares an entry with anyone.
func (u UserProfile) TenantKey(sid string) string {
	if u.OrganizationID != nil && *u.OrganizationID != 0 {
		return "org:" + strconv.FormatInt(*u.OrganizationID, 10)
	}
	if u.Organization != nil && u.Organization.ID != 0 {
		return "org:" + strconv.FormatInt(u.Organization.ID, 10)
	}
	if u.ID != 0 {
		return "user:" + strconv.FormatInt(u.ID, 10)
	}
	return "session:" + sid
}
