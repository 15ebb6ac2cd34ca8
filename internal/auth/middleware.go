package auth

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/jackc/pgx/v5"

	"github.com/deskgate/deskgate/internal/access"
	"github.com/deskgate/deskgate/internal/domain"
	"github.com/deskgate/deskgate/internal/repository"
	apperrors "github.com/deskgate/deskgate/pkg/util"
)

const principalKey = "auth_principal"

// Principal represents the authenticated caller.
type Principal struct {
	SubjectType domain.SubjectType
	User        *domain.User
	Staff       *domain.StaffMember
	Actor       access.Actor
}

// AuthMiddleware validates bearer tokens and loads principals.
type AuthMiddleware struct {
	tokens        *TokenManager
	users         repository.UserRepository
	staff         repository.StaffRepository
	grants        repository.AccessGrantRepository
	grantsEnabled bool
}

// NewAuthMiddleware constructs middleware. When grantsEnabled is false the
// grant lookup is skipped and staff actors carry no granted teams.
func NewAuthMiddleware(tokens *TokenManager, store repository.Store, grantsEnabled bool) *AuthMiddleware {
	return &AuthMiddleware{
		tokens:        tokens,
		users:         store.Users(),
		staff:         store.Staff(),
		grants:        store.Grants(),
		grantsEnabled: grantsEnabled,
	}
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

	principal := &Principal{SubjectType: claims.Subject}

	switch claims.Subject {
	case domain.SubjectTypeUser:
		user, err := m.users.GetByID(c.Context(), claims.SubjectID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewUnauthorized("user not found")
			}
			return apperrors.MapError(err)
		}
		principal.User = user
		principal.Actor = access.UserActor(user.ID)
	case domain.SubjectTypeStaff:
		staff, err := m.staff.GetByID(c.Context(), claims.SubjectID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewUnauthorized("staff not found")
			}
			return apperrors.MapError(err)
		}
		var grantedTeamIDs []string
		if m.grantsEnabled {
			grantedTeamIDs, err = m.grants.ListTeamIDsForStaff(c.Context(), staff.ID)
			if err != nil {
				return apperrors.MapError(err)
			}
		}
		principal.Staff = staff
		principal.Actor = access.StaffActor(staff, grantedTeamIDs)
	default:
		return apperrors.NewUnauthorized("unknown subject")
	}

	c.Locals(principalKey, principal)
	return c.Next()
}

// PrincipalFromContext retrieves the authenticated entity.
func PrincipalFromContext(c *fiber.Ctx) (*Principal, bool) {
	val := c.Locals(principalKey)
	if val == nil {
		return nil, false
	}
	principal, ok := val.(*Principal)
	return principal, ok
}
