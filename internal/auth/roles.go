package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/fleetops/ops-dashboard/internal/domain"
	apperrors "github.com/fleetops/ops-dashboard/pkg/util"
)

// RequireRole ensures the verified identity holds one of the allowed roles.
// Admin satisfies any required set. Gates are pure and composable; different
// route groups may stack different role sets.
func RequireRole(allowed ...domain.Role) fiber.Handler {
	allowedSet := make(map[domain.Role]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		identity, ok := IdentityFromContext(c)
		if !ok {
			// unreachable when chained after Middleware.Handle
			return apperrors.NewUnauthorized("no token")
		}
		if identity.Role == domain.RoleAdmin {
			return c.Next()
		}
		if len(allowedSet) == 0 {
			return c.Next()
		}
		if _, exists := allowedSet[identity.Role]; !exists {
			return apperrors.NewForbidden("insufficient role")
		}
		return c.Next()
	}
}

// RequireAuthenticated ensures a verified identity is present, any role.
func RequireAuthenticated() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if _, ok := IdentityFromContext(c); !ok {
			return apperrors.NewUnauthorized("no token")
		}
		return c.Next()
	}
}
