package auth

import (
	"github.com/gofiber/fiber/v2"

	"github.com/helpdesk-io/support-desk/internal/domain"
	apperrors "github.com/helpdesk-io/support-desk/pkg/util/errorutil"
)

// RequireSystemRole short-circuits requests whose principal holds none of the allowed system roles.
func RequireSystemRole(allowed ...domain.SystemRole) fiber.Handler {
	allowedSet := make(map[domain.SystemRole]struct{}, len(allowed))
	for _, role := range allowed {
		allowedSet[role] = struct{}{}
	}

	return func(c *fiber.Ctx) error {
		principal, ok := PrincipalFromContext(c)
		if !ok {
			return apperrors.NewUnauthorized("authentication required")
		}
		if _, exists := allowedSet[principal.SystemRole]; !exists {
			return apperrors.NewPermissionDenied("insufficient system role")
		}
		return c.Next()
	}
}
