// Package auth implements the account backend for Ledgerly: sign-up with
// email confirmation, cookie-based sessions, password recovery, and role
// resolution.
//
// Sessions:
//   - SessionManager owns the credential flows. Sign-in issues an access and
//     a refresh JWT which the HTTP layer stores as HttpOnly cookies. The
//     refresh token is persisted per user and rotated once it falls inside
//     the grace window, so at most one refresh session exists per account.
//   - AccessGuard protects routes: it validates the access cookie first and
//     falls back to a transparent refresh, re-issuing both cookies on the
//     same response. Every failure collapses to a single unauthorized error.
//
// Tokens:
//   - TokenCodec signs and verifies the four JWT kinds (access, refresh,
//     account validation, password reset), each with its own secret and TTL.
//     One-shot tokens are additionally persisted through UserTokens, which
//     enforces a single live token per user and purpose.
//
// Authorization:
//   - Users hold roles; roles reference modules and permissions. The
//     GrantResolver flattens that graph into distinct role, module, and
//     permission names, dropping inactive roles and modules along the way.
//     Unauthenticated callers resolve to the guest role.
package auth
