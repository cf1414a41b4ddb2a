package auth

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/support-desk/internal/cache"
	"github.com/spec-kit/support-desk/internal/domain"
	"github.com/spec-kit/support-desk/internal/repository"
	apperrors "github.com/spec-kit/support-desk/pkg/util"
)

const actorKey = "auth_actor"

// AuthMiddleware validates bearer tokens and resolves the caller into a
// domain.Actor. The actor is resolved once here and handed to services
// explicitly; nothing below the handler layer reads request state.
type AuthMiddleware struct {
	tokens *TokenManager
	users  repository.UserRepository
	roles  *cache.RoleCache
}

// NewAuthMiddleware constructs middleware. roles may be nil to disable the
// identity cache.
func NewAuthMiddleware(tokens *TokenManager, users repository.UserRepository, roles *cache.RoleCache) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, users: users, roles: roles}
}

// Handle enforces authentication for protected routes.
func (m *AuthMiddleware) Handle(c *fiber.Ctx) error {
	authHeader := c.Get("Authorization")
	if authHeader == "" {
		return apperrors.NewUnauthorized("missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return apperrors.NewUnauthorized("invalid authorization header")
	}

	claims, err := m.tokens.ParseToken(parts[1])
	if err != nil {
		return apperrors.NewUnauthorized("invalid token")
	}

	if actor, ok := m.roles.Get(c.Context(), claims.SubjectID); ok {
		c.Locals(actorKey, actor)
		return c.Next()
	}

	user, err := m.users.GetByID(c.Context(), claims.SubjectID)
	if err != nil {
		if err == pgx.ErrNoRows {
			return apperrors.NewUnauthorized("user not found")
		}
		return apperrors.MapError(err)
	}

	actor := domain.Actor{ID: user.ID, Role: user.Role, DisplayName: user.DisplayName()}
	m.roles.Put(c.Context(), actor)
	c.Locals(actorKey, actor)
	return c.Next()
}

// ActorFromContext retrieves the authenticated caller.
func ActorFromContext(c *fiber.Ctx) (domain.Actor, bool) {
	val := c.Locals(actorKey)
	if val == nil {
		return domain.Actor{}, false
	}
	actor, ok := val.(domain.Actor)
	return actor, ok
}
