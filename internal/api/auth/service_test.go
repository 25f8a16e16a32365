package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newContext(t *testing.T, headers map[string]string) echo.Context {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", http.NoBody)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	return e.NewContext(req, httptest.NewRecorder())
}

func TestAuthenticateResolvesUser(t *testing.T) {
	t.Parallel()
	svc := NewGatewayService("secret-token", true)

	user, err := svc.Authenticate(newContext(t, map[string]string{
		HeaderUserID: "researcher-1",
	}))
	require.NoError(t, err)
	assert.Equal(t, "researcher-1", user.ID)
	assert.False(t, user.Admin)
}

func TestAuthenticateMissingIdentity(t *testing.T) {
	t.Parallel()
	svc := NewGatewayService("secret-token", true)

	_, err := svc.Authenticate(newContext(t, nil))
	assert.ErrorIs(t, err, ErrMissingIdentity)

	// Whitespace is not an identity.
	_, err = svc.Authenticate(newContext(t, map[string]string{HeaderUserID: "   "}))
	assert.ErrorIs(t, err, ErrMissingIdentity)
}

func TestAuthenticateAnonymousWhenAuthDisabled(t *testing.T) {
	t.Parallel()
	svc := NewGatewayService("", false)

	user, err := svc.Authenticate(newContext(t, nil))
	require.NoError(t, err)
	assert.Equal(t, "anonymous", user.ID)
	assert.False(t, user.Admin)
}

func TestAuthenticateAdminToken(t *testing.T) {
	t.Parallel()
	svc := NewGatewayService("secret-token", true)

	user, err := svc.Authenticate(newContext(t, map[string]string{
		HeaderUserID:             "admin-1",
		echo.HeaderAuthorization: "Bearer secret-token",
	}))
	require.NoError(t, err)
	assert.True(t, user.Admin)

	// Wrong token, malformed header and unset header all stay non-admin.
	for _, header := range []string{"Bearer wrong", "secret-token", ""} {
		user, err := svc.Authenticate(newContext(t, map[string]string{
			HeaderUserID:             "admin-1",
			echo.HeaderAuthorization: header,
		}))
		require.NoError(t, err)
		assert.False(t, user.Admin, "header %q", header)
	}
}

func TestAuthenticateNoAdminWithoutConfiguredToken(t *testing.T) {
	t.Parallel()

	// An empty configured token must never grant admin, even to an
	// empty bearer value.
	svc := NewGatewayService("", true)
	user, err := svc.Authenticate(newContext(t, map[string]string{
		HeaderUserID:             "admin-1",
		echo.HeaderAuthorization: "Bearer ",
	}))
	require.NoError(t, err)
	assert.False(t, user.Admin)
}

func TestMiddlewareAttachesUser(t *testing.T) {
	t.Parallel()

	e := echo.New()
	mw := NewMiddleware(NewGatewayService("secret-token", true))
	e.GET("/probe", func(c echo.Context) error {
		user, ok := CurrentUser(c)
		require.True(t, ok)
		return c.String(http.StatusOK, user.ID)
	}, mw.Authenticate)

	req := httptest.NewRequest(http.MethodGet, "/probe", http.NoBody)
	req.Header.Set(HeaderUserID, "researcher-1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "researcher-1", rec.Body.String())
}

func TestMiddlewareRejectsUnauthenticated(t *testing.T) {
	t.Parallel()

	e := echo.New()
	mw := NewMiddleware(NewGatewayService("secret-token", true))
	e.GET("/probe", func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, mw.Authenticate)

	req := httptest.NewRequest(http.MethodGet, "/probe", http.NoBody)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
