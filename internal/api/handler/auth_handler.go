package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/rankwise/seo-crm/internal/core/ports"
)

// CookieConfig controls the session cookie written on login.
type CookieConfig struct {
	Name   string
	Domain string
	Secure bool
}

type AuthHandler struct {
	sessions ports.SessionManager
	cookie   CookieConfig
}

func NewAuthHandler(sessions ports.SessionManager, cookie CookieConfig) *AuthHandler {
	return &AuthHandler{sessions: sessions, cookie: cookie}
}

// Login authenticates a user, sets the session cookie and returns the token.
//
// @Summary      Login
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      loginRequest  true  "Login credentials"
// @Success      200   {object}  ports.Session
// @Failure      401   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/login [post]
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	session, err := h.sessions.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		return err
	}

	h.setCookie(c, session.Token, session.ExpiresAt)
	return c.JSON(http.StatusOK, session)
}

// Register creates a self-service account. The account has no role until an
// admin links it to a client.
//
// @Summary      Register a new user
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body      registerRequest  true  "Registration details"
// @Success      201   {object}  domain.Profile
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /auth/register [post]
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	profile, err := h.sessions.RegisterUser(c.Request().Context(), ports.RegisterUserInput{
		FullName: req.FullName,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, profile)
}

// Logout revokes the current session and clears the cookie.
//
// @Summary      Logout
// @Tags         auth
// @Security     BearerAuth
// @Success      204
// @Failure      401  {object}  errorResponse
// @Router       /auth/logout [post]
func (h *AuthHandler) Logout(c echo.Context) error {
	if err := h.sessions.Logout(c.Request().Context(), principal(c)); err != nil {
		return err
	}
	h.clearCookie(c)
	return c.NoContent(http.StatusNoContent)
}

// Me returns the resolved principal of the current session.
//
// @Summary      Current session
// @Tags         auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  meResponse
// @Failure      401  {object}  errorResponse
// @Router       /auth/me [get]
func (h *AuthHandler) Me(c echo.Context) error {
	return c.JSON(http.StatusOK, newMeResponse(principal(c)))
}

// SetupStatus reports whether the administrator account exists yet.
//
// @Summary      Admin setup status
// @Tags         setup
// @Produce      json
// @Success      200  {object}  setupStatusResponse
// @Router       /admin/setup [get]
func (h *AuthHandler) SetupStatus(c echo.Context) error {
	exists, err := h.sessions.AdminExists(c.Request().Context())
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, setupStatusResponse{AdminExists: exists})
}

// Setup creates the single administrator account.
//
// @Summary      Create the administrator
// @Tags         setup
// @Accept       json
// @Produce      json
// @Param        body  body      adminSetupRequest  true  "Administrator details"
// @Success      201   {object}  domain.Profile
// @Failure      409   {object}  errorResponse
// @Failure      422   {object}  errorResponse
// @Router       /admin/setup [post]
func (h *AuthHandler) Setup(c echo.Context) error {
	var req adminSetupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	profile, err := h.sessions.RegisterAdmin(c.Request().Context(), ports.AdminRegistration{
		FullName: req.FullName,
		Company:  req.Company,
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, profile)
}

// CreateClientUser creates the login account of an existing client.
//
// @Summary      Create a client's user account
// @Tags         clients
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id    path      string             true  "Client ID"
// @Param        body  body      clientUserRequest  true  "Account credentials"
// @Success      201   {object}  domain.Profile
// @Failure      403   {object}  errorResponse
// @Failure      409   {object}  errorResponse
// @Failure      500   {object}  errorResponse
// @Router       /admin/clients/{id}/user [post]
func (h *AuthHandler) CreateClientUser(c echo.Context) error {
	var req clientUserRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	profile, err := h.sessions.RegisterClientUser(c.Request().Context(), principal(c), ports.ClientUserInput{
		ClientID: c.Param("id"),
		Email:    req.Email,
		Password: req.Password,
	})
	if err != nil {
		return err
	}
	return c.JSON(http.StatusCreated, profile)
}

func (h *AuthHandler) setCookie(c echo.Context, token string, expires time.Time) {
	c.SetCookie(&http.Cookie{
		Name:     h.cookie.Name,
		Value:    token,
		Path:     "/",
		Domain:   h.cookie.Domain,
		Expires:  expires,
		MaxAge:   int(time.Until(expires).Seconds()),
		Secure:   h.cookie.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func (h *AuthHandler) clearCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     h.cookie.Name,
		Value:    "",
		Path:     "/",
		Domain:   h.cookie.Domain,
		MaxAge:   -1,
		Secure:   h.cookie.Secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}
