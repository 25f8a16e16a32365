// internal/api/auth/service.go
package auth

import (
	"crypto/subtle"
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/errors"
	"github.com/David-VanAssche/Epstein-Crowd-Search-sub001/internal/logging"
)

// Identity issuance lives upstream: the platform's edge gateway
// authenticates researchers and forwards their identity in the
// X-User-ID header. This service only resolves that identity and
// decides whether the request carries admin privileges.

// HeaderUserID is the request header carrying the authenticated user id.
const HeaderUserID = "X-User-ID"

// Sentinel errors for authentication failures.
var (
	ErrMissingIdentity = errors.NewStd("request carries no user identity")
	ErrNotAdmin        = errors.NewStd("admin privileges required")
)

// User is the resolved identity of a request.
type User struct {
	ID    string
	Admin bool
}

// Service resolves request credentials into a platform user.
type Service interface {
	// Authenticate extracts the user identity from the request.
	// Returns ErrMissingIdentity when authentication is required and
	// no identity header is present.
	Authenticate(c echo.Context) (User, error)

	// IsAuthRequired reports whether requests must carry an identity.
	IsAuthRequired() bool
}

// GatewayService trusts the identity headers stamped by the edge
// gateway. Admin access additionally requires the shared admin bearer
// token from the service configuration.
type GatewayService struct {
	adminToken  string
	requireAuth bool
	logger      *slog.Logger
}

// NewGatewayService creates a gateway-trusting auth service.
func NewGatewayService(adminToken string, requireAuth bool) *GatewayService {
	return &GatewayService{
		adminToken:  adminToken,
		requireAuth: requireAuth,
		logger:      logging.ForService("auth"),
	}
}

// Authenticate resolves the request user from the identity header and
// grants admin when the bearer token matches the configured secret.
func (s *GatewayService) Authenticate(c echo.Context) (User, error) {
	userID := strings.TrimSpace(c.Request().Header.Get(HeaderUserID))
	if userID == "" {
		if s.requireAuth {
			return User{}, ErrMissingIdentity
		}
		// Auth disabled, useful for local development.
		return User{ID: "anonymous"}, nil
	}

	return User{ID: userID, Admin: s.isAdminRequest(c)}, nil
}

// IsAuthRequired reports whether anonymous requests are rejected.
func (s *GatewayService) IsAuthRequired() bool {
	return s.requireAuth
}

// isAdminRequest checks the Authorization header against the shared
// admin token. Constant-time comparison avoids leaking token prefixes.
func (s *GatewayService) isAdminRequest(c echo.Context) bool {
	if s.adminToken == "" {
		return false
	}

	header := c.Request().Header.Get(echo.HeaderAuthorization)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return false
	}

	match := subtle.ConstantTimeCompare([]byte(token), []byte(s.adminToken)) == 1
	if !match && s.logger != nil {
		s.logger.Warn("Admin token mismatch",
			"path", c.Request().URL.Path,
			"ip", c.RealIP())
	}
	return match
}
