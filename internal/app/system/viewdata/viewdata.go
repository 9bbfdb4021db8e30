// internal/app/system/viewdata/viewdata.go
package viewdata

import (
	"net/http"

	"github.com/dalemusser/stockconsole/internal/app/system/auth"
	"github.com/dalemusser/waffle/pantry/httpnav"
	"github.com/gorilla/csrf"
)

// SiteName is shown in page titles and the header.
const SiteName = "Strova"

// BaseVM carries the fields every page layout reads.
type BaseVM struct {
	SiteName    string
	IsLoggedIn  bool
	UserName    string
	UserEmail   string
	UserOrg     string
	Title       string
	BackURL     string
	CurrentPath string
	CSRFToken   string
	Flashes     []string
}

// NewBaseVM builds the layout fields for r. backDefault is used when the
// request carries no usable return target.
func NewBaseVM(r *http.Request, title, backDefault string) BaseVM {
	vm := BaseVM{
		SiteName:    SiteName,
		Title:       title,
		BackURL:     httpnav.ResolveBackURL(r, backDefault),
		CurrentPath: httpnav.CurrentPath(r),
		CSRFToken:   csrf.Token(r),
	}
	if u, ok := auth.CurrentUser(r); ok {
		vm.IsLoggedIn = true
		vm.UserName = u.DisplayName()
		vm.UserEmail = u.Email
		vm.UserOrg = u.OrganizationName()
	}
	return vm
}

// WithFlashes pops the session's queued messages into vm.
func WithFlashes(vm BaseVM, sm *auth.SessionManager, w http.ResponseWriter, r *http.Request) BaseVM {
	if sm != nil {
		vm.Flashes = sm.Flashes(w, r)
	}
	return vm
}
