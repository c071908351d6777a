package auth

import (
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-repository-bun"

	"github.com/ledgerly/backend/config"
)

// AccessGuard protects routes behind the access-token cookie. A request with
// a stale access token but a valid refresh token is transparently refreshed:
// new cookies are set and the request proceeds. Everything else collapses to
// a single 401.
type AccessGuard struct {
	sessions *SessionManager
	repo     RepositoryManager
	codec    *TokenCodec
	cfg      *config.Config
	logger   Logger
}

func NewAccessGuard(sessions *SessionManager, repo RepositoryManager, codec *TokenCodec, cfg *config.Config, logger Logger) *AccessGuard {
	if logger == nil {
		logger = defLogger{}
	}
	return &AccessGuard{
		sessions: sessions,
		repo:     repo,
		codec:    codec,
		cfg:      cfg,
		logger:   logger,
	}
}

// Protect is the fiber middleware enforcing the guard.
func (g *AccessGuard) Protect() fiber.Handler {
	return func(c *fiber.Ctx) error {
		user, err := g.tryValidateAccess(c)
		if err != nil {
			user, err = g.tryRefresh(c)
		}
		if err != nil {
			return ErrUnauthorized
		}

		setLocalUser(c, user)
		return c.Next()
	}
}

// tryValidateAccess authenticates from the access-token cookie. Besides the
// signature, the user must still exist and hold a live refresh session, so
// sign-out revokes access immediately instead of at token expiry.
func (g *AccessGuard) tryValidateAccess(c *fiber.Ctx) (*User, error) {
	raw := c.Cookies(CookieAccessToken)
	if raw == "" {
		return nil, ErrUnauthorized
	}

	payload, err := g.codec.Verify(TokenKindAccess, raw)
	if err != nil {
		return nil, err
	}

	user, err := g.lookupIdentity(c, payload)
	if err != nil {
		return nil, err
	}

	live, err := g.repo.UserTokens().ExistsForPurpose(c.UserContext(), user.ID, PurposeSessionRefresh)
	if err != nil {
		return nil, err
	}
	if !live {
		return nil, ErrUnauthorized
	}

	return user, nil
}

// tryRefresh runs the second chance: rotate the session off the refresh
// cookie, install the new cookies, and authenticate with the fresh access
// token.
func (g *AccessGuard) tryRefresh(c *fiber.Ctx) (*User, error) {
	raw := c.Cookies(CookieRefreshToken)
	if raw == "" {
		return nil, ErrUnauthorized
	}

	tokens, _, err := g.sessions.RefreshSession(c.UserContext(), raw)
	if err != nil {
		g.logger.Warn("session refresh failed: %v", err)
		return nil, ErrUnauthorized
	}

	setAuthCookies(c, g.cfg, *tokens)

	payload, err := g.codec.Verify(TokenKindAccess, tokens.AccessToken)
	if err != nil {
		return nil, ErrUnauthorized
	}

	return g.lookupIdentity(c, payload)
}

func (g *AccessGuard) lookupIdentity(c *fiber.Ctx, payload *TokenPayload) (*User, error) {
	userID, err := payload.UserID()
	if err != nil {
		return nil, ErrInvalidToken
	}

	user, err := g.repo.Users().GetByID(c.UserContext(), userID.String())
	if err != nil {
		if repository.IsRecordNotFound(err) {
			g.logger.Warn("token subject no longer exists: %s", payload.Email)
			return nil, ErrUnauthorized
		}
		return nil, err
	}

	return user, nil
}
