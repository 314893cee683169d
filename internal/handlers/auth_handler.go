package handlers

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"inventory/internal/apperrors"
	"inventory/internal/middleware"
	"inventory/internal/services"
)

// TokenRevoker denies a token id until it would have expired.
type TokenRevoker interface {
	Revoke(ctx context.Context, tokenID string, expiresAt time.Time) error
}

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	revoker     TokenRevoker
	validate    *validator.Validate
}

// NewAuthHandler creates a new AuthHandler. revoker may be nil, in which case
// the logout route is not registered.
func NewAuthHandler(authService *services.AuthService, revoker TokenRevoker) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		revoker:     revoker,
		validate:    newValidator(),
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router, requireAuth fiber.Handler) {
	router.Post("/register", h.HandleRegister)
	router.Post("/login", h.HandleLogin)
	if h.revoker != nil {
		router.Post("/logout", requireAuth, h.HandleLogout)
	}
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Username string `json:"username" form:"username" validate:"required,max=100"`
	Password string `json:"password" form:"password" validate:"required,maxbytes=72"`
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(err)
	}
	if err := validateStruct(h.validate, req); err != nil {
		return err
	}

	if err := h.authService.Register(c.UserContext(), req.Username, req.Password); err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message":  "User registered successfully",
		"username": req.Username,
	})
}

// LoginRequest represents the request body for login. Both JSON and
// form-encoded bodies are accepted.
type LoginRequest struct {
	Username string `json:"username" form:"username" validate:"required"`
	Password string `json:"password" form:"password" validate:"required"`
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(err)
	}
	if err := validateStruct(h.validate, req); err != nil {
		return err
	}

	token, err := h.authService.Login(c.UserContext(), req.Username, req.Password)
	if err != nil {
		return err
	}

	return c.JSON(token)
}

// HandleLogout revokes the bearer token used for the request.
func (h *AuthHandler) HandleLogout(c *fiber.Ctx) error {
	identity, ok := middleware.IdentityFromContext(c)
	if !ok {
		return apperrors.ErrUnauthorized
	}
	if err := h.revoker.Revoke(c.UserContext(), identity.TokenID, identity.ExpiresAt); err != nil {
		return apperrors.NewInternal(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
