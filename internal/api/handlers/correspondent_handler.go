package handlers

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/jlebervet/mail-manager/internal/api/response"
	"github.com/jlebervet/mail-manager/internal/models"
	"github.com/jlebervet/mail-manager/internal/repository"
	"github.com/jlebervet/mail-manager/internal/validator"
)

// CorrespondentHandler handles correspondent HTTP requests
type CorrespondentHandler struct {
	correspondentRepo repository.CorrespondentRepository
}

// NewCorrespondentHandler creates a new CorrespondentHandler
func NewCorrespondentHandler(correspondentRepo repository.CorrespondentRepository) *CorrespondentHandler {
	return &CorrespondentHandler{correspondentRepo: correspondentRepo}
}

// CorrespondentRequest represents the request body for creating or updating
// a correspondent
type CorrespondentRequest struct {
	Name         string  `json:"name" validate:"required"`
	Email        *string `json:"email"`
	Organization *string `json:"organization"`
	Phone        *string `json:"phone"`
	Address      *string `json:"address"`
}

// List handles GET /api/correspondents
func (h *CorrespondentHandler) List(c echo.Context) error {
	search := c.QueryParam("search")

	list, err := h.correspondentRepo.List(c.Request().Context(), search)
	if err != nil {
		return response.InternalError(c, "failed to list correspondents")
	}
	return response.Success(c, list)
}

// Get handles GET /api/correspondents/:id
func (h *CorrespondentHandler) Get(c echo.Context) error {
	correspondent, err := h.correspondentRepo.GetByID(c.Request().Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "correspondent not found")
		}
		return response.InternalError(c, "failed to get correspondent")
	}
	return response.Success(c, correspondent)
}

// Create handles POST /api/correspondents
func (h *CorrespondentHandler) Create(c echo.Context) error {
	var req CorrespondentRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if err := validator.ValidateName(req.Name); err != nil {
		return response.BadRequest(c, "name is required")
	}
	if req.Email != nil && *req.Email != "" {
		if err := validator.ValidateEmail(*req.Email); err != nil {
			return response.BadRequest(c, "invalid email address")
		}
	}

	correspondent := &models.Correspondent{
		ID:           uuid.New().String(),
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		Organization: req.Organization,
		Phone:        req.Phone,
		Address:      req.Address,
	}

	if err := h.correspondentRepo.Create(c.Request().Context(), correspondent); err != nil {
		return response.InternalError(c, "failed to create correspondent")
	}
	return response.Created(c, correspondent)
}

// Update handles PUT /api/correspondents/:id
func (h *CorrespondentHandler) Update(c echo.Context) error {
	id := c.Param("id")

	var req CorrespondentRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	correspondent, err := h.correspondentRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "correspondent not found")
		}
		return response.InternalError(c, "failed to get correspondent")
	}

	if strings.TrimSpace(req.Name) != "" {
		correspondent.Name = strings.TrimSpace(req.Name)
	}
	if req.Email != nil {
		if *req.Email != "" {
			if err := validator.ValidateEmail(*req.Email); err != nil {
				return response.BadRequest(c, "invalid email address")
			}
		}
		correspondent.Email = req.Email
	}
	if req.Organization != nil {
		correspondent.Organization = req.Organization
	}
	if req.Phone != nil {
		correspondent.Phone = req.Phone
	}
	if req.Address != nil {
		correspondent.Address = req.Address
	}

	if err := h.correspondentRepo.Save(c.Request().Context(), correspondent); err != nil {
		return response.InternalError(c, "failed to update correspondent")
	}
	return response.Success(c, correspondent)
}

// Delete handles DELETE /api/correspondents/:id
func (h *CorrespondentHandler) Delete(c echo.Context) error {
	if err := h.correspondentRepo.Delete(c.Request().Context(), c.Param("id")); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "correspondent not found")
		}
		return response.InternalError(c, "failed to delete correspondent")
	}
	return response.NoContent(c)
}
