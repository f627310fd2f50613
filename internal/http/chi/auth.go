package chi

import (
	"errors"
	"net/http"
	"strings"
)

/* Authorization is an explicit check function invoked at the top of every
 * handler, decoupled from the router: the core library carries no
 * dependency on any web framework's security machinery.
 */

// ErrUnauthorized is returned by an Authorizer to reject a request.
var ErrUnauthorized = errors.New("unauthorized")

// Authorizer decides whether the request may perform the action for the
// tenant. Actions are stable strings like "webhooks:write".
type Authorizer func(r *http.Request, tenantID, action string) error

// AllowAll authorizes everything. Test use only.
func AllowAll(_ *http.Request, _, _ string) error {
	return nil
}

// StaticTokenAuthorizer authorizes any action carrying the configured
// operator bearer token. The default deployment mode: the engine sits
// behind the platform's API gateway which handles real operator identity.
func StaticTokenAuthorizer(token string) Authorizer {
	return func(r *http.Request, _, _ string) error {
		header := r.Header.Get("Authorization")
		provided, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || provided != token {
			return ErrUnauthorized
		}
		return nil
	}
}
