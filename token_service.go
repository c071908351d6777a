package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"github.com/ledgerly/backend/config"
)

// TokenKind selects the secret and TTL a token is signed and verified with.
type TokenKind string

const (
	// TokenKindAccess is the short-lived session token.
	TokenKindAccess TokenKind = "access"
	// TokenKindRefresh rotates sessions without re-authentication.
	TokenKindRefresh TokenKind = "refresh"
	// TokenKindAccountValidation is emailed on sign-up.
	TokenKindAccountValidation TokenKind = "account_validation"
	// TokenKindPasswordReset is emailed on password-reset request.
	TokenKindPasswordReset TokenKind = "password_reset"
)

// TokenPayload is what every signed token carries: the user id as subject
// plus the email.
type TokenPayload struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// UserID parses the subject claim.
func (p *TokenPayload) UserID() (uuid.UUID, error) {
	return uuid.Parse(p.RegisteredClaims.Subject)
}

type tokenKey struct {
	secret []byte
	ttl    time.Duration
}

// TokenCodec signs and verifies purpose-keyed HS256 tokens. Verification
// failures of any shape surface as the single ErrInvalidToken so callers
// cannot be used as an oracle.
type TokenCodec struct {
	keys   map[TokenKind]tokenKey
	logger Logger
}

// NewTokenCodec builds a codec from the JWT configuration section.
func NewTokenCodec(cfg config.JWT, logger Logger) *TokenCodec {
	if logger == nil {
		logger = defLogger{}
	}

	return &TokenCodec{
		logger: logger,
		keys: map[TokenKind]tokenKey{
			TokenKindAccess:            {secret: []byte(cfg.AuthSecret), ttl: cfg.AuthTTL},
			TokenKindRefresh:           {secret: []byte(cfg.RefreshSecret), ttl: cfg.RefreshTTL},
			TokenKindAccountValidation: {secret: []byte(cfg.ConfirmSecret), ttl: cfg.ConfirmTTL},
			TokenKindPasswordReset:     {secret: []byte(cfg.ResetSecret), ttl: cfg.ResetTTL},
		},
	}
}

// TTL returns the configured lifetime for a token kind.
func (c *TokenCodec) TTL(kind TokenKind) time.Duration {
	return c.keys[kind].ttl
}

// Sign issues a token of the given kind for the user.
func (c *TokenCodec) Sign(kind TokenKind, userID uuid.UUID, email string) (string, error) {
	key, ok := c.keys[kind]
	if !ok {
		return "", goerrors.New(fmt.Sprintf("unknown token kind: %s", kind), goerrors.CategoryInternal)
	}

	now := time.Now()
	claims := &TokenPayload{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(key.ttl)),
		},
		Email: email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString(key.secret)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign token")
	}

	return signed, nil
}

// Verify parses and validates a token against the kind's secret. Bad
// signature, expired, and malformed all collapse to ErrInvalidToken.
func (c *TokenCodec) Verify(kind TokenKind, raw string) (*TokenPayload, error) {
	key, ok := c.keys[kind]
	if !ok {
		return nil, goerrors.New(fmt.Sprintf("unknown token kind: %s", kind), goerrors.CategoryInternal)
	}

	token, err := jwt.ParseWithClaims(raw, &TokenPayload{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			c.logger.Error("token verify encountered unexpected signing method: %v", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key.secret, nil
	})

	if err != nil {
		c.logger.Warn("token verification failed: %v", err)
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*TokenPayload)
	if !ok || !token.Valid {
		c.logger.Error("token verify could not decode claims")
		return nil, ErrInvalidToken
	}

	return claims, nil
}
