package auth

import (
	"errors"
	"net/http"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/gofiber/fiber/v2"
	goerrors "github.com/goliatone/go-errors"

	"github.com/ledgerly/backend/config"
)

// Cookie names holding the session token pair.
const (
	CookieAccessToken  = "access_token"
	CookieRefreshToken = "refresh_token"
)

// setAuthCookies writes the session pair as HttpOnly, SameSite=Strict
// cookies scoped to the whole site. Secure is set outside development and
// test so local HTTP keeps working.
func setAuthCookies(c *fiber.Ctx, cfg *config.Config, tokens AuthTokens) {
	c.Cookie(authCookie(cfg, CookieAccessToken, tokens.AccessToken, time.Now().Add(cfg.JWT.AuthTTL)))
	c.Cookie(authCookie(cfg, CookieRefreshToken, tokens.RefreshToken, time.Now().Add(cfg.JWT.RefreshTTL)))
}

// clearAuthCookies expires both session cookies using the exact attributes
// they were set with, so browsers actually drop them.
func clearAuthCookies(c *fiber.Ctx, cfg *config.Config) {
	expired := time.Now().Add(-time.Hour)
	c.Cookie(authCookie(cfg, CookieAccessToken, "", expired))
	c.Cookie(authCookie(cfg, CookieRefreshToken, "", expired))
}

func authCookie(cfg *config.Config, name, value string, expires time.Time) *fiber.Cookie {
	return &fiber.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   cfg.App.IsProduction(),
		SameSite: fiber.CookieSameSiteStrictMode,
	}
}

// HTTPErrorHandler translates domain errors into JSON responses. Wire it as
// the fiber app's ErrorHandler.
func HTTPErrorHandler(logger Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = defLogger{}
	}

	return func(c *fiber.Ctx, err error) error {
		status := http.StatusInternalServerError
		message := "internal server error"

		var verrs validation.Errors
		var richErr *goerrors.Error
		var fiberErr *fiber.Error

		switch {
		case errors.As(err, &verrs):
			return c.Status(http.StatusBadRequest).JSON(fiber.Map{
				"statusCode": http.StatusBadRequest,
				"message":    "validation failed",
				"errors":     verrs,
			})
		case goerrors.As(err, &richErr):
			status = statusForCategory(richErr.Category)
			message = richErr.Message
		case errors.As(err, &fiberErr):
			status = fiberErr.Code
			message = fiberErr.Message
		}

		if status >= http.StatusInternalServerError {
			logger.Error("request to %s failed: %v", c.Path(), err)
			message = "internal server error"
		}

		return c.Status(status).JSON(fiber.Map{
			"statusCode": status,
			"message":    message,
		})
	}
}

func statusForCategory(category goerrors.Category) int {
	switch category {
	case goerrors.CategoryAuth, goerrors.CategoryAuthz:
		return http.StatusUnauthorized
	case goerrors.CategoryValidation, goerrors.CategoryBadInput, goerrors.CategoryConflict, goerrors.CategoryNotFound:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
