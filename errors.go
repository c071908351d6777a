package auth

import (
	goerrors "github.com/goliatone/go-errors"
)

// ErrInvalidCredentials covers every sign-in failure: unknown email, wrong
// password, and inactive accounts without an activation token. Keeping the
// message identical across causes prevents account enumeration.
var ErrInvalidCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithTextCode("INVALID_CREDENTIALS")

// ErrInvalidToken is the single verification failure for signed tokens.
// Signature, expiry, and shape failures are deliberately indistinguishable.
var ErrInvalidToken = goerrors.New("invalid token", goerrors.CategoryAuth).
	WithTextCode("INVALID_TOKEN")

// ErrInvalidOrExpiredToken means a token verified cryptographically but no
// matching persisted record exists (consumed, replaced, or never issued).
var ErrInvalidOrExpiredToken = goerrors.New("invalid or expired token", goerrors.CategoryValidation).
	WithTextCode("INVALID_OR_EXPIRED_TOKEN")

// ErrPasswordMismatch rejects a reset whose confirmation differs from the
// new password. Raised before any token or database work.
var ErrPasswordMismatch = goerrors.New("passwords do not match", goerrors.CategoryValidation).
	WithTextCode("PASSWORD_MISMATCH")

// ErrNoPermission is raised when an authorization gate fails on a token that
// already proved valid, so enumeration safety no longer applies.
var ErrNoPermission = goerrors.New("you do not have permission to reset passwords", goerrors.CategoryAuthz).
	WithTextCode("NO_PERMISSION")

// ErrUserNotFound means a user id did not resolve to a row.
var ErrUserNotFound = goerrors.New("user not found", goerrors.CategoryNotFound).
	WithTextCode("USER_NOT_FOUND")

// ErrUnauthorized is the composite access-guard failure. Callers cannot
// distinguish expired from malformed from revoked.
var ErrUnauthorized = goerrors.New("unauthorized", goerrors.CategoryAuth).
	WithTextCode("UNAUTHORIZED")

func hasTextCode(err error, code string) bool {
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	return richErr.TextCode == code
}

// IsInvalidToken reports whether err is a token verification failure.
func IsInvalidToken(err error) bool {
	return hasTextCode(err, "INVALID_TOKEN")
}

// IsInvalidCredentials reports whether err is the generic credential failure.
func IsInvalidCredentials(err error) bool {
	return hasTextCode(err, "INVALID_CREDENTIALS")
}

// IsUnauthorized reports whether err is the guard's composite failure.
func IsUnauthorized(err error) bool {
	return hasTextCode(err, "UNAUTHORIZED")
}
