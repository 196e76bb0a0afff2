package handlers

import (
	"errors"
	"strings"

	"github.com/fleetstack/fleet-backend/internal/dto"
	"github.com/fleetstack/fleet-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService *services.AuthService
}

func NewAuthHandler(authService *services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req dto.RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return failure(c, fiber.StatusBadRequest, "Invalid request body.")
	}
	req.Email = strings.TrimSpace(req.Email)
	if req.Email == "" || !strings.Contains(req.Email, "@") {
		return failure(c, fiber.StatusBadRequest, "A valid email is required.")
	}
	if len(req.Password) < 8 {
		return failure(c, fiber.StatusBadRequest, "Password must be at least 8 characters.")
	}

	if err := h.authService.Register(&req); err != nil {
		if errors.Is(err, services.ErrEmailTaken) {
			return failure(c, fiber.StatusConflict, "Email already in use.")
		}
		return internalError(c, "auth.register", err)
	}
	return success(c, fiber.StatusCreated, "Registration successful.", nil)
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return failure(c, fiber.StatusBadRequest, "Invalid request body.")
	}
	if req.Email == "" || req.Password == "" {
		return failure(c, fiber.StatusBadRequest, "Email and password are required.")
	}

	resp, err := h.authService.Login(&req)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			return failure(c, fiber.StatusUnauthorized, "Invalid credentials.")
		}
		return internalError(c, "auth.login", err)
	}
	return success(c, fiber.StatusOK, "Login successful.", resp)
}

// Refresh rotates the refresh token supplied in the x-refresh-token header.
func (h *AuthHandler) Refresh(c *fiber.Ctx) error {
	raw := c.Get("x-refresh-token")
	if raw == "" {
		return failure(c, fiber.StatusBadRequest, "No refresh token provided.")
	}

	pair, err := h.authService.Refresh(raw)
	if err != nil {
		if errors.Is(err, services.ErrInvalidToken) {
			return failure(c, fiber.StatusUnauthorized, "Invalid or expired refresh token.")
		}
		return internalError(c, "auth.refresh", err)
	}
	return success(c, fiber.StatusOK, "Token refreshed. Please use new accessToken.", pair)
}

func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	actor, resp, ok := requireActor(c)
	if !ok {
		return resp
	}
	deleted, err := h.authService.Logout(actor.ID)
	if err != nil {
		return internalError(c, "auth.logout", err)
	}
	if deleted == 0 {
		return success(c, fiber.StatusOK, "Logged out (no active session found).", nil)
	}
	return success(c, fiber.StatusOK, "Logged out successfully.", nil)
}

// Me returns the caller's profile. An expired access token paired with a
// valid refresh token yields a fresh token pair instead.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	accessToken := strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	refreshToken := c.Get("x-refresh-token")

	result, err := h.authService.Me(accessToken, refreshToken)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrMissingToken):
			return failure(c, fiber.StatusUnauthorized, "No access token provided.")
		case errors.Is(err, services.ErrSessionExpired), errors.Is(err, services.ErrInvalidToken):
			return failure(c, fiber.StatusUnauthorized, "Session expired. Please login again.")
		case errors.Is(err, services.ErrInvalidAccessToken):
			return failure(c, fiber.StatusUnauthorized, "Invalid or expired access token.")
		case errors.Is(err, services.ErrUserNotFound):
			return failure(c, fiber.StatusNotFound, "User not found.")
		}
		return internalError(c, "auth.me", err)
	}

	if result.Tokens != nil {
		return success(c, fiber.StatusOK, "Token refreshed. Please use new accessToken.", result.Tokens)
	}
	return success(c, fiber.StatusOK, "User retrieved.", result.Profile)
}
