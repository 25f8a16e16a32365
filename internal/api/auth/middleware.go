// internal/api/auth/middleware.go
package auth

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/logging"
)

// Context keys for authentication values stored in echo.Context.
// Keys are prefixed with "auth:" to prevent collisions with other packages.
const (
	// CtxKeyUser holds the resolved User for the request.
	CtxKeyUser = "auth:user"
)

// Middleware provides authentication middleware backed by a Service.
type Middleware struct {
	AuthService Service
}

// NewMiddleware creates a new auth middleware.
func NewMiddleware(service Service) *Middleware {
	return &Middleware{AuthService: service}
}

// Authenticate resolves the request identity and stores it in the
// echo context. Requests without an identity are rejected with 401
// when the service requires authentication.
func (m *Middleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user, err := m.AuthService.Authenticate(c)
		if err != nil {
			if logger := logging.ForService("auth"); logger != nil {
				logger.Info("Rejected unauthenticated request",
					"path", c.Request().URL.Path,
					"ip", c.RealIP())
			}
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "Authentication required",
			})
		}

		c.Set(CtxKeyUser, user)
		return next(c)
	}
}

// CurrentUser retrieves the authenticated user stored by Authenticate.
// The second return value is false when no user is attached, which
// means the route was registered outside the authenticated group.
func CurrentUser(c echo.Context) (User, bool) {
	user, ok := c.Get(CtxKeyUser).(User)
	return user, ok
}
