package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/fleetops/ops-dashboard/internal/domain"
	apperrors "github.com/fleetops/ops-dashboard/pkg/util"
)

const identityKey = "auth_identity"

// Middleware validates bearer tokens and attaches the reconstructed identity.
// The identity is trusted for the token lifetime; the store is not re-queried
// per request, so role changes become visible only after re-issuance.
type Middleware struct {
	tokens *TokenManager
	logger *zap.Logger
}

// NewMiddleware constructs middleware.
func NewMiddleware(tokens *TokenManager, logger *zap.Logger) *Middleware {
	return &Middleware{tokens: tokens, logger: logger}
}

// Handle enforces authentication for protected routes.
func (m *Middleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("no token")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("no token")
	}

	claims, err := m.tokens.Parse(parts[1])
	if err != nil {
		if errors.Is(err, ErrTokenExpired) {
			m.logger.Info("rejected expired token", zap.String("path", c.Path()))
			return apperrors.NewUnauthorized("token expired")
		}
		m.logger.Warn("rejected invalid token", zap.String("path", c.Path()))
		return apperrors.NewUnauthorized("token invalid")
	}

	c.Locals(identityKey, claims.Identity())
	return c.Next()
}

// IdentityFromContext retrieves the verified identity for the request.
func IdentityFromContext(c *fiber.Ctx) (domain.Identity, bool) {
	val := c.Locals(identityKey)
	if val == nil {
		return domain.Identity{}, false
	}
	identity, ok := val.(domain.Identity)
	return identity, ok
}
