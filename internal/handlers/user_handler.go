package handlers

import (
	"errors"
	"strings"

	"github.com/fleetstack/fleet-backend/internal/dto"
	"github.com/fleetstack/fleet-backend/internal/services"
	"github.com/gofiber/fiber/v2"
)

type UserHandler struct {
	userService *services.UserService
}

func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

func (h *UserHandler) List(c *fiber.Ctx) error {
	users, err := h.userService.List()
	if err != nil {
		return internalError(c, "users.list", err)
	}
	return success(c, fiber.StatusOK, "Users retrieved.", users)
}

func (h *UserHandler) Get(c *fiber.Ctx) error {
	actor, resp, ok := requireActor(c)
	if !ok {
		return resp
	}
	id, ok := idParam(c, "id")
	if !ok {
		return failure(c, fiber.StatusBadRequest, "Invalid user id.")
	}

	user, err := h.userService.Get(actor, id)
	if err != nil {
		if resp, handled := notFoundOrForbidden(c, err, "User not found."); handled {
			return resp
		}
		return internalError(c, "users.get", err)
	}
	return success(c, fiber.StatusOK, "User retrieved.", user)
}

func (h *UserHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateUserRequest
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

	user, err := h.userService.Create(&req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			return failure(c, fiber.StatusConflict, "Email already in use.")
		case errors.Is(err, services.ErrInvalidRole):
			return failure(c, fiber.StatusBadRequest, "Invalid role.")
		}
		return internalError(c, "users.create", err)
	}
	return success(c, fiber.StatusCreated, "User created.", user)
}

func (h *UserHandler) Update(c *fiber.Ctx) error {
	actor, resp, ok := requireActor(c)
	if !ok {
		return resp
	}
	id, ok := idParam(c, "id")
	if !ok {
		return failure(c, fiber.StatusBadRequest, "Invalid user id.")
	}
	var req dto.UpdateUserRequest
	if err := c.BodyParser(&req); err != nil {
		return failure(c, fiber.StatusBadRequest, "Invalid request body.")
	}
	if req.Password != nil && len(*req.Password) < 8 {
		return failure(c, fiber.StatusBadRequest, "Password must be at least 8 characters.")
	}

	user, err := h.userService.Update(actor, id, &req)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrEmailTaken):
			return failure(c, fiber.StatusConflict, "Email already in use.")
		case errors.Is(err, services.ErrInvalidRole):
			return failure(c, fiber.StatusBadRequest, "Invalid role.")
		}
		if resp, handled := notFoundOrForbidden(c, err, "User not found."); handled {
			return resp
		}
		return internalError(c, "users.update", err)
	}
	return success(c, fiber.StatusOK, "User updated.", user)
}

func (h *UserHandler) Delete(c *fiber.Ctx) error {
	id, ok := idParam(c, "id")
	if !ok {
		return failure(c, fiber.StatusBadRequest, "Invalid user id.")
	}
	if err := h.userService.Delete(id); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			return failure(c, fiber.StatusNotFound, "User not found.")
		}
		return internalError(c, "users.delete", err)
	}
	return success(c, fiber.StatusOK, "User deleted.", nil)
}
