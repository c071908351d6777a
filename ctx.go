package auth

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

type contextKey string

// ContextKeyUser is where the access guard stores the authenticated user.
const ContextKeyUser contextKey = "auth:user"

// WithUser returns a context carrying the authenticated user.
func WithUser(ctx context.Context, user *User) context.Context {
	return context.WithValue(ctx, ContextKeyUser, user)
}

// UserFromContext retrieves the authenticated user, if any.
func UserFromContext(ctx context.Context) (*User, bool) {
	user, ok := ctx.Value(ContextKeyUser).(*User)
	return user, ok
}

func setLocalUser(c *fiber.Ctx, user *User) {
	c.Locals(string(ContextKeyUser), user)
	c.SetUserContext(WithUser(c.UserContext(), user))
}

// LocalUser retrieves the authenticated user attached by the access guard.
func LocalUser(c *fiber.Ctx) (*User, bool) {
	user, ok := c.Locals(string(ContextKeyUser)).(*User)
	return user, ok
}
