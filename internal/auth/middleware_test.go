package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/fleetops/ops-dashboard/internal/domain"
	apperrors "github.com/fleetops/ops-dashboard/pkg/util"
)

// errorMapper mirrors the production error middleware closely enough for
// status assertions.
func errorMapper() fiber.Handler {
	return func(c *fiber.Ctx) error {
		err := c.Next()
		if err == nil {
			return nil
		}
		domainErr := apperrors.ToDomainError(err)
		return c.Status(domainErr.HTTPStatus).JSON(fiber.Map{
			"error": fiber.Map{"code": domainErr.Code, "message": domainErr.Message},
		})
	}
}

func protectedApp(tm *TokenManager) *fiber.App {
	app := fiber.New()
	app.Use(errorMapper())
	mw := NewMiddleware(tm, zap.NewNop())
	app.Get("/protected", mw.Handle, func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			return apperrors.NewInternalError(nil)
		}
		return c.JSON(identity)
	})
	return app
}

func TestMiddlewareRejectsMissingHeader(t *testing.T) {
	app := protectedApp(NewTokenManager("secret", time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMiddlewareRejectsMalformedHeader(t *testing.T) {
	app := protectedApp(NewTokenManager("secret", time.Hour))

	for _, header := range []string{"Bearer", "Basic abc", "bearer"} {
		req := httptest.NewRequest(http.MethodGet, "/protected", nil)
		req.Header.Set("Authorization", header)
		resp, err := app.Test(req, -1)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode, "header %q", header)
	}
}

func TestMiddlewareRejectsInvalidToken(t *testing.T) {
	app := protectedApp(NewTokenManager("secret", time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMiddlewareRejectsExpiredToken(t *testing.T) {
	tm := NewTokenManager("secret", time.Millisecond)
	app := protectedApp(tm)

	token, _, err := tm.Generate(domain.Identity{SubjectID: "u-1", Username: "alice", Role: domain.RoleAdmin})
	require.NoError(t, err)
	time.Sleep(1100 * time.Millisecond)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestMiddlewareAttachesIdentity(t *testing.T) {
	tm := NewTokenManager("secret", time.Hour)
	app := protectedApp(tm)

	token, _, err := tm.Generate(domain.Identity{SubjectID: "u-1", Username: "alice", Role: domain.RoleOperations})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
