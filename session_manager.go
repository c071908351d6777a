package auth

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/ledgerly/backend/config"
)

// Generic responses for enumeration-sensitive operations. These strings must
// be byte-identical between the happy path and the swallowed failure path.
const (
	MsgSignUp        = "If the email address is valid, you will receive a confirmation email shortly."
	MsgPasswordReset = "If the email address is valid and has permission to reset password, you will receive reset instructions shortly."
	MsgSignedOut     = "Logged out successfully"
	MsgPasswordDone  = "Password has been reset successfully"
)

// refreshGrace is how much lifetime a stored refresh token must retain to be
// reused instead of rotated.
const refreshGrace = 24 * time.Hour

// AuthTokens is an access/refresh pair ready to be written as cookies.
type AuthTokens struct {
	AccessToken  string
	RefreshToken string
}

type SignUpMessage struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
	Phone     string
}

type SignUpResult struct {
	Message string
	// ConfirmationToken is populated outside production only.
	ConfirmationToken string
}

type SignInMessage struct {
	Email               string
	Password            string
	ConfirmAccountToken string
}

type SignInResult struct {
	UserID string
	Tokens AuthTokens
}

type ResetPasswordMessage struct {
	Token           string
	Password        string
	ConfirmPassword string
}

type PasswordResetRequestResult struct {
	Message string
	// ResetToken is populated outside production only.
	ResetToken string
}

// SessionManager orchestrates the authentication lifecycle: sign-up,
// sign-in/out, password reset, and refresh-token rotation.
type SessionManager struct {
	repo   RepositoryManager
	codec  *TokenCodec
	mailer EmailSender
	cfg    *config.Config
	logger Logger
}

func NewSessionManager(repo RepositoryManager, codec *TokenCodec, mailer EmailSender, cfg *config.Config, logger Logger) *SessionManager {
	if logger == nil {
		logger = defLogger{}
	}
	if mailer == nil {
		mailer = noopEmailSender{}
	}

	return &SessionManager{
		repo:   repo,
		codec:  codec,
		mailer: mailer,
		cfg:    cfg,
		logger: logger,
	}
}

// SignUp registers a new inactive account and issues its activation token.
// An already registered email produces the exact same response as a fresh
// registration, with no write performed.
func (s *SessionManager) SignUp(ctx context.Context, msg SignUpMessage) (*SignUpResult, error) {
	s.logger.Debug("sign-up attempt for %s", msg.Email)

	if _, err := s.repo.Users().GetByEmail(ctx, msg.Email); err == nil {
		s.logger.Warn("sign-up attempt with existing email: %s", msg.Email)
		return &SignUpResult{Message: MsgSignUp}, nil
	} else if !repository.IsRecordNotFound(err) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check existing user")
	}

	hash, err := HashPassword(msg.Password)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid password provided")
	}

	user := &User{
		Email:        msg.Email,
		PasswordHash: hash,
		FirstName:    msg.FirstName,
		LastName:     msg.LastName,
		Phone:        msg.Phone,
		IsActive:     false,
	}
	if id, err := hashid.NewUUID(msg.Email); err == nil {
		user.ID = id
	}

	var confirmation string

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if user, err = s.repo.Users().RegisterTx(ctx, tx, user); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryConflict, "could not create user")
		}

		confirmation, err = s.codec.Sign(TokenKindAccountValidation, user.ID, user.Email)
		if err != nil {
			return err
		}

		expiresAt := time.Now().Add(s.codec.TTL(TokenKindAccountValidation))
		if _, err := s.repo.UserTokens().ReplaceTx(ctx, tx, user.ID, PurposeAccountValidation, confirmation, expiresAt); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist confirmation token")
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	if !s.cfg.App.IsProduction() {
		s.logger.Debug("user created, confirmation token for %s issued", msg.Email)
		return &SignUpResult{Message: MsgSignUp, ConfirmationToken: confirmation}, nil
	}

	if err := s.mailer.SendAccountConfirmation(ctx, user.Email, user.FirstName, confirmation); err != nil {
		// The account and token are already persisted; a failed dispatch is
		// reported but does not roll anything back.
		s.logger.Error("failed to send confirmation email to %s: %v", user.Email, err)
	}

	return &SignUpResult{Message: MsgSignUp}, nil
}

// SignIn verifies credentials and establishes a session. Every mismatch
// (unknown email, wrong password, inactive account without an activation
// token) fails with the same ErrInvalidCredentials.
func (s *SessionManager) SignIn(ctx context.Context, msg SignInMessage) (*SignInResult, error) {
	s.logger.Debug("sign-in attempt for %s", msg.Email)

	user, err := s.validateUser(ctx, msg.Email, msg.Password)
	if err != nil {
		return nil, err
	}

	if !user.IsActive && msg.ConfirmAccountToken == "" {
		s.logger.Warn("login attempt for inactive account: %s", msg.Email)
		return nil, ErrInvalidCredentials
	}

	if msg.ConfirmAccountToken != "" {
		if err := s.activateAccount(ctx, user, msg.ConfirmAccountToken); err != nil {
			return nil, err
		}
	}

	tokens, err := s.generateTokens(ctx, user.ID, user.Email, nil)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Users().TrackSuccessfulLogin(ctx, user); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update last login")
	}

	s.logger.Debug("sign-in successful for %s", msg.Email)
	return &SignInResult{UserID: user.ID.String(), Tokens: *tokens}, nil
}

// SignOut deletes the user's refresh tokens. Best effort and idempotent:
// signing out twice, or with an unknown id, still reports success.
func (s *SessionManager) SignOut(ctx context.Context, userID string) string {
	id, err := uuid.Parse(userID)
	if err != nil {
		s.logger.Warn("sign-out with unparseable user id: %s", userID)
		return MsgSignedOut
	}

	if err := s.repo.UserTokens().DeleteForPurpose(ctx, id, PurposeSessionRefresh); err != nil {
		s.logger.Warn("sign-out token cleanup failed for %s: %v", userID, err)
	}

	s.logger.Debug("user %s logged out", userID)
	return MsgSignedOut
}

// RequestPasswordReset issues a reset token when the account exists and its
// roles grant the recovery module plus the request permission. Any other
// outcome returns the identical generic message with no side effect.
func (s *SessionManager) RequestPasswordReset(ctx context.Context, email string) (*PasswordResetRequestResult, error) {
	s.logger.Debug("password reset requested for %s", email)

	user, granted, err := s.repo.Users().GetWithRecoveryGrant(ctx, email, ModulePasswordRecovery, PermissionPasswordResetRequest)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			s.logger.Warn("password reset requested for non-existent user: %s", email)
			return &PasswordResetRequestResult{Message: MsgPasswordReset}, nil
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user for password reset")
	}

	if !granted {
		s.logger.Warn("password reset requested without permission: %s", email)
		return &PasswordResetRequestResult{Message: MsgPasswordReset}, nil
	}

	reset, err := s.codec.Sign(TokenKindPasswordReset, user.ID, user.Email)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(s.codec.TTL(TokenKindPasswordReset))
	if _, err := s.repo.UserTokens().Replace(ctx, user.ID, PurposePasswordReset, reset, expiresAt); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist reset token")
	}

	if !s.cfg.App.IsProduction() {
		return &PasswordResetRequestResult{Message: MsgPasswordReset, ResetToken: reset}, nil
	}

	if err := s.mailer.SendPasswordReset(ctx, user.Email, user.FirstName, reset); err != nil {
		s.logger.Error("failed to send password reset email to %s: %v", user.Email, err)
	}

	return &PasswordResetRequestResult{Message: MsgPasswordReset}, nil
}

// ResetPassword consumes a reset token and stores the new password hash.
// The confirmation check runs before any token verification or database
// access.
func (s *SessionManager) ResetPassword(ctx context.Context, msg ResetPasswordMessage) (string, error) {
	s.logger.Debug("password reset attempt")

	if msg.Password != msg.ConfirmPassword {
		s.logger.Warn("password reset confirmation mismatch")
		return "", ErrPasswordMismatch
	}

	payload, err := s.codec.Verify(TokenKindPasswordReset, msg.Token)
	if err != nil {
		return "", err
	}

	userID, err := payload.UserID()
	if err != nil {
		return "", ErrInvalidToken
	}

	record, err := s.repo.UserTokens().Find(ctx, userID, msg.Token, PurposePasswordReset)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			s.logger.Warn("invalid or expired reset token for %s", payload.Email)
			return "", ErrInvalidOrExpiredToken
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "could not load reset token")
	}

	// The token proved valid above; failing the permission gate here is a
	// distinct authorization error, not a generic not-found.
	_, granted, err := s.repo.Users().GetWithRecoveryGrant(ctx, payload.Email, ModulePasswordRecovery, PermissionPasswordResetExecute)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return "", ErrInvalidOrExpiredToken
		}
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to check reset permission")
	}
	if !granted {
		s.logger.Warn("user %s lacks password reset permission", payload.Email)
		return "", ErrNoPermission
	}

	hash, err := HashPassword(msg.Password)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryValidation, "invalid new password provided")
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.repo.Users().SetPasswordTx(ctx, tx, userID, hash); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update password")
		}
		return s.repo.UserTokens().ConsumeTx(ctx, tx, record.ID)
	})
	if err != nil {
		return "", err
	}

	s.logger.Debug("password reset successfully for %s", payload.Email)
	return MsgPasswordDone, nil
}

// RefreshSession exchanges a valid refresh token for a fresh token pair,
// reusing the stored refresh token while it retains more than the rotation
// grace window.
func (s *SessionManager) RefreshSession(ctx context.Context, refreshToken string) (*AuthTokens, *TokenPayload, error) {
	payload, err := s.codec.Verify(TokenKindRefresh, refreshToken)
	if err != nil {
		return nil, nil, err
	}

	userID, err := payload.UserID()
	if err != nil {
		return nil, nil, ErrInvalidToken
	}

	record, err := s.repo.UserTokens().Find(ctx, userID, refreshToken, PurposeSessionRefresh)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			s.logger.Warn("refresh token not found for %s", payload.Email)
			return nil, nil, ErrInvalidToken
		}
		return nil, nil, goerrors.Wrap(err, goerrors.CategoryInternal, "could not load refresh token")
	}

	tokens, err := s.generateTokens(ctx, userID, payload.Email, record)
	if err != nil {
		return nil, nil, err
	}

	return tokens, payload, nil
}

func (s *SessionManager) validateUser(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.Users().GetByEmail(ctx, email)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			s.logger.Warn("user not found: %s", email)
			return nil, ErrInvalidCredentials
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user")
	}

	if err := ComparePasswordAndHash(password, user.PasswordHash); err != nil {
		s.logger.Warn("invalid password for user: %s", email)
		return nil, ErrInvalidCredentials
	}

	return user, nil
}

// activateAccount consumes an ACCOUNT_VALIDATION token: verifies it, matches
// the persisted row, marks the user active, grants the default role, creates
// default preferences, and deletes the token.
func (s *SessionManager) activateAccount(ctx context.Context, user *User, raw string) error {
	if _, err := s.codec.Verify(TokenKindAccountValidation, raw); err != nil {
		return err
	}

	record, err := s.repo.UserTokens().Find(ctx, user.ID, raw, PurposeAccountValidation)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			s.logger.Warn("invalid confirmation token for %s", user.Email)
			return ErrInvalidOrExpiredToken
		}
		return goerrors.Wrap(err, goerrors.CategoryInternal, "could not load confirmation token")
	}

	err = s.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		if err := s.repo.Users().ActivateTx(ctx, tx, user, RoleDefault); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to activate account")
		}
		return s.repo.UserTokens().ConsumeTx(ctx, tx, record.ID)
	})
	if err != nil {
		return err
	}

	s.logger.Debug("account activated for %s", user.Email)
	return nil
}

// generateTokens always mints a fresh access token. The refresh token is
// reused when the stored record keeps more than refreshGrace before expiry;
// otherwise a new one is minted and replaces the prior SESSION_REFRESH row.
func (s *SessionManager) generateTokens(ctx context.Context, userID uuid.UUID, email string, existing *UserToken) (*AuthTokens, error) {
	access, err := s.codec.Sign(TokenKindAccess, userID, email)
	if err != nil {
		return nil, err
	}

	if existing != nil && time.Until(existing.ExpiresAt) > refreshGrace {
		return &AuthTokens{AccessToken: access, RefreshToken: existing.Token}, nil
	}

	refresh, err := s.codec.Sign(TokenKindRefresh, userID, email)
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(s.codec.TTL(TokenKindRefresh))
	if _, err := s.repo.UserTokens().Replace(ctx, userID, PurposeSessionRefresh, refresh, expiresAt); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to persist refresh token")
	}

	s.logger.Debug("tokens generated for %s", email)
	return &AuthTokens{AccessToken: access, RefreshToken: refresh}, nil
}
