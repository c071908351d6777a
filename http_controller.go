package auth

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-print"
	"github.com/nyaruka/phonenumbers"

	"github.com/ledgerly/backend/config"
)

// SignUpRequest is the registration payload.
type SignUpRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Phone     string `json:"phone"`
}

func (r SignUpRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 72)),
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 100)),
		validation.Field(&r.Phone, validation.By(validPhoneNumber)),
	)
}

var errInvalidPhone = errors.New("must be a valid phone number")

// validPhoneNumber accepts an empty value or anything phonenumbers can parse
// as a possible number.
func validPhoneNumber(value any) error {
	raw, _ := value.(string)
	if raw == "" {
		return nil
	}

	num, err := phonenumbers.Parse(raw, "US")
	if err != nil || !phonenumbers.IsPossibleNumber(num) {
		return errInvalidPhone
	}
	return nil
}

// normalizePhone stores phone numbers in E.164. Validation already ran, so a
// parse failure just keeps the raw input.
func normalizePhone(raw string) string {
	if raw == "" {
		return ""
	}
	num, err := phonenumbers.Parse(raw, "US")
	if err != nil {
		return raw
	}
	return phonenumbers.Format(num, phonenumbers.E164)
}

// SignInRequest authenticates an account. ConfirmAccountToken is only sent
// on the very first sign-in, to activate the account in the same request.
type SignInRequest struct {
	Email               string `json:"email"`
	Password            string `json:"password"`
	ConfirmAccountToken string `json:"confirmAccountToken"`
}

func (r SignInRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

type PasswordResetRequest struct {
	Email string `json:"email"`
}

func (r PasswordResetRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
	)
}

type ResetPasswordRequest struct {
	ResetPasswordToken string `json:"resetPasswordToken"`
	Password           string `json:"password"`
	ConfirmPassword    string `json:"confirmPassword"`
}

func (r ResetPasswordRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ResetPasswordToken, validation.Required),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 72)),
		validation.Field(&r.ConfirmPassword, validation.Required),
	)
}

// AuthController exposes the authentication endpoints.
type AuthController struct {
	sessions *SessionManager
	resolver *GrantResolver
	guard    *AccessGuard
	cfg      *config.Config
	logger   Logger
	debug    bool
}

func NewAuthController(sessions *SessionManager, resolver *GrantResolver, guard *AccessGuard, cfg *config.Config, logger Logger) *AuthController {
	if logger == nil {
		logger = defLogger{}
	}
	return &AuthController{
		sessions: sessions,
		resolver: resolver,
		guard:    guard,
		cfg:      cfg,
		logger:   logger,
		debug:    !cfg.App.IsProduction(),
	}
}

// RegisterAuthRoutes mounts the auth endpoints under /auth on the given
// router group.
func (a *AuthController) RegisterAuthRoutes(router fiber.Router) {
	grp := router.Group("/auth")
	grp.Post("/signup", a.SignUp)
	grp.Post("/signin", a.SignIn)
	grp.Post("/signout", a.SignOut)
	grp.Post("/request-password-reset", a.RequestPasswordReset)
	grp.Post("/reset-password", a.ResetPassword)
	grp.Get("/guest", a.Guest)
	grp.Get("/me", a.guard.Protect(), a.Me)
}

func (a *AuthController) SignUp(c *fiber.Ctx) error {
	var payload SignUpRequest
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(http.StatusBadRequest, "malformed request body")
	}

	if a.debug {
		a.logger.Debug("signup payload: %s", print.MaybePrettyJSON(payload))
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	result, err := a.sessions.SignUp(c.UserContext(), SignUpMessage{
		Email:     payload.Email,
		Password:  payload.Password,
		FirstName: payload.FirstName,
		LastName:  payload.LastName,
		Phone:     normalizePhone(payload.Phone),
	})
	if err != nil {
		return err
	}

	body := fiber.Map{"message": result.Message}
	if result.ConfirmationToken != "" {
		body["confirmAccountToken"] = result.ConfirmationToken
	}

	return c.JSON(body)
}

func (a *AuthController) SignIn(c *fiber.Ctx) error {
	var payload SignInRequest
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(http.StatusBadRequest, "malformed request body")
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	result, err := a.sessions.SignIn(c.UserContext(), SignInMessage{
		Email:               payload.Email,
		Password:            payload.Password,
		ConfirmAccountToken: payload.ConfirmAccountToken,
	})
	if err != nil {
		return err
	}

	setAuthCookies(c, a.cfg, result.Tokens)

	return c.JSON(fiber.Map{"userId": result.UserID})
}

// SignOutRequest names whose refresh sessions to revoke.
type SignOutRequest struct {
	UserID string `json:"userId"`
}

func (a *AuthController) SignOut(c *fiber.Ctx) error {
	var payload SignOutRequest
	// Sign-out succeeds regardless of body shape; a missing user id just
	// means only the cookies get cleared.
	_ = c.BodyParser(&payload)

	userID := payload.UserID
	if userID == "" {
		if raw := c.Cookies(CookieAccessToken); raw != "" {
			if claims, err := a.sessions.codec.Verify(TokenKindAccess, raw); err == nil {
				userID = claims.Subject
			}
		}
	}

	message := a.sessions.SignOut(c.UserContext(), userID)
	clearAuthCookies(c, a.cfg)

	return c.JSON(fiber.Map{"message": message})
}

func (a *AuthController) RequestPasswordReset(c *fiber.Ctx) error {
	var payload PasswordResetRequest
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(http.StatusBadRequest, "malformed request body")
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	result, err := a.sessions.RequestPasswordReset(c.UserContext(), payload.Email)
	if err != nil {
		return err
	}

	body := fiber.Map{"message": result.Message}
	if result.ResetToken != "" {
		body["resetPasswordToken"] = result.ResetToken
	}

	return c.JSON(body)
}

func (a *AuthController) ResetPassword(c *fiber.Ctx) error {
	var payload ResetPasswordRequest
	if err := c.BodyParser(&payload); err != nil {
		return fiber.NewError(http.StatusBadRequest, "malformed request body")
	}

	if err := payload.Validate(); err != nil {
		return err
	}

	message, err := a.sessions.ResetPassword(c.UserContext(), ResetPasswordMessage{
		Token:           payload.ResetPasswordToken,
		Password:        payload.Password,
		ConfirmPassword: payload.ConfirmPassword,
	})
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"message": message})
}

// Me returns the authenticated user's profile with the flattened grant.
func (a *AuthController) Me(c *fiber.Ctx) error {
	user, ok := LocalUser(c)
	if !ok {
		return ErrUnauthorized
	}

	profile, err := a.resolver.ResolveForUser(c.UserContext(), user.ID)
	if err != nil {
		return err
	}

	return c.JSON(profile)
}

// Guest returns the grant available to unauthenticated callers.
func (a *AuthController) Guest(c *fiber.Ctx) error {
	return c.JSON(a.resolver.ResolveGuest(c.UserContext()))
}
