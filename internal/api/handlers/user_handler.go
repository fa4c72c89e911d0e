package handlers

import (
	"errors"
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/jlebervet/mail-manager/internal/api/middleware"
	"github.com/jlebervet/mail-manager/internal/api/response"
	applogger "github.com/jlebervet/mail-manager/internal/logger"
	"github.com/jlebervet/mail-manager/internal/models"
	"github.com/jlebervet/mail-manager/internal/repository"
)

// UserHandler handles account administration HTTP requests
type UserHandler struct {
	accounts repository.AccountRepository
	logger   *slog.Logger
}

// NewUserHandler creates a new UserHandler
func NewUserHandler(accounts repository.AccountRepository, logger *slog.Logger) *UserHandler {
	return &UserHandler{accounts: accounts, logger: logger}
}

// UpdateRoleRequest represents the request body for a role change
type UpdateRoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// List handles GET /api/users
func (h *UserHandler) List(c echo.Context) error {
	accounts, err := h.accounts.List(c.Request().Context())
	if err != nil {
		return response.InternalError(c, "failed to list accounts")
	}
	return response.Success(c, accounts)
}

// UpdateRole handles PUT /api/users/:id/role
func (h *UserHandler) UpdateRole(c echo.Context) error {
	id := c.Param("id")

	var req UpdateRoleRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	role := models.AccountRole(req.Role)
	if role != models.RoleUser && role != models.RoleAdmin {
		return response.BadRequest(c, "role must be user or admin")
	}

	// An admin cannot strip their own role; that path locks everyone out
	actor := middleware.AccountFromContext(c)
	if actor != nil && actor.ID == id && role != models.RoleAdmin {
		return response.BadRequest(c, "cannot remove your own admin role")
	}

	if err := h.accounts.UpdateRole(c.Request().Context(), id, role); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "account not found")
		}
		return response.InternalError(c, "failed to update role")
	}

	if actor != nil {
		applogger.AdminAction(h.logger, actor.ID, "update_role:"+req.Role, id)
	}

	account, err := h.accounts.GetByID(c.Request().Context(), id)
	if err != nil {
		return response.InternalError(c, "failed to reload account")
	}
	return response.Success(c, account)
}

// Delete handles DELETE /api/users/:id
func (h *UserHandler) Delete(c echo.Context) error {
	id := c.Param("id")

	actor := middleware.AccountFromContext(c)
	if actor != nil && actor.ID == id {
		return response.BadRequest(c, "cannot delete your own account")
	}

	if err := h.accounts.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "account not found")
		}
		return response.InternalError(c, "failed to delete account")
	}
	if actor != nil {
		applogger.AdminAction(h.logger, actor.ID, "delete_account", id)
	}
	return response.NoContent(c)
}
