package security

import (
	"errors"

	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"golang.org/x/crypto/bcrypt"
)

// AdminAuth guards the admin surface with HTTP basic auth. The password
// is bcrypt-hashed once at startup; bcrypt's comparison is constant time,
// so the check does not leak timing information.
type AdminAuth struct {
	hash []byte
}

func NewAdminAuth(password string) (*AdminAuth, error) {
	if password == "" {
		return nil, errors.New("admin password must be set")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &AdminAuth{hash: hash}, nil
}

func (a *AdminAuth) Verify(password string) bool {
	return bcrypt.CompareHashAndPassword(a.hash, []byte(password)) == nil
}

// RequireAdmin is middleware for the admin route group.
func (a *AdminAuth) RequireAdmin() func(*core.RequestEvent) error {
	return func(e *core.RequestEvent) error {
		user, pass, ok := e.Request.BasicAuth()
		if !ok || user != "admin" || !a.Verify(pass) {
			e.Response.Header().Set("WWW-Authenticate", `Basic realm="Admin Area"`)
			return apis.NewUnauthorizedError("Admin access required", nil)
		}
		return e.Next()
	}
}
