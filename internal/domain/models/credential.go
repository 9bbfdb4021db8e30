// internal/domain/models/credential.go
package models

// Credential is the token pair issued by /account/login and /account/refresh.
type Credential struct {
	AccessToken  string
	RefreshToken string
}

// Empty reports whether no access token is held.
func (c Credential) Empty() bool { return c.AccessToken == "" }
