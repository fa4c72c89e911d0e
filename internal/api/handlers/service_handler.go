package handlers

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/jlebervet/mail-manager/internal/api/middleware"
	"github.com/jlebervet/mail-manager/internal/api/response"
	"github.com/jlebervet/mail-manager/internal/models"
	"github.com/jlebervet/mail-manager/internal/repository"
	"github.com/jlebervet/mail-manager/internal/services"
)

// ServiceHandler handles municipal service HTTP requests
type ServiceHandler struct {
	serviceRepo repository.ServiceRepository
	archival    services.ArchivalService
}

// NewServiceHandler creates a new ServiceHandler
func NewServiceHandler(serviceRepo repository.ServiceRepository, archival services.ArchivalService) *ServiceHandler {
	return &ServiceHandler{
		serviceRepo: serviceRepo,
		archival:    archival,
	}
}

// ServiceRequest represents the request body for creating or updating a service
type ServiceRequest struct {
	Name        string   `json:"name" validate:"required"`
	SubServices []string `json:"sub_services"`
}

// ArchiveResponse reports the outcome of an archival cascade
type ArchiveResponse struct {
	Service       *models.Service `json:"service"`
	MailsArchived int64           `json:"mails_archived"`
}

// List handles GET /api/services
func (h *ServiceHandler) List(c echo.Context) error {
	includeArchived := c.QueryParam("include_archived") == "true"

	list, err := h.serviceRepo.List(c.Request().Context(), includeArchived)
	if err != nil {
		return response.InternalError(c, "failed to list services")
	}
	return response.Success(c, list)
}

// Create handles POST /api/services
func (h *ServiceHandler) Create(c echo.Context) error {
	var req ServiceRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if strings.TrimSpace(req.Name) == "" {
		return response.BadRequest(c, "name is required")
	}

	service := &models.Service{
		ID:          uuid.New().String(),
		Name:        strings.TrimSpace(req.Name),
		SubServices: buildSubServices(req.SubServices),
	}

	if err := h.serviceRepo.Create(c.Request().Context(), service); err != nil {
		return response.InternalError(c, "failed to create service")
	}
	return response.Created(c, service)
}

// Update handles PUT /api/services/:id
func (h *ServiceHandler) Update(c echo.Context) error {
	id := c.Param("id")

	var req ServiceRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	service, err := h.serviceRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return response.NotFound(c, "service not found")
		}
		return response.InternalError(c, "failed to get service")
	}

	if strings.TrimSpace(req.Name) != "" {
		service.Name = strings.TrimSpace(req.Name)
	}
	if req.SubServices != nil {
		service.SubServices = buildSubServices(req.SubServices)
	}

	if err := h.serviceRepo.Save(c.Request().Context(), service); err != nil {
		return response.InternalError(c, "failed to update service")
	}
	return response.Success(c, service)
}

// Archive handles POST /api/services/:id/archive
func (h *ServiceHandler) Archive(c echo.Context) error {
	id := c.Param("id")
	actor := middleware.AccountFromContext(c)

	archived, err := h.archival.Archive(c.Request().Context(), id, actor)
	if err != nil {
		return response.Error(c, err)
	}

	service, err := h.serviceRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		return response.InternalError(c, "failed to reload service")
	}

	return response.Success(c, ArchiveResponse{
		Service:       service,
		MailsArchived: archived,
	})
}

// Restore handles POST /api/services/:id/restore
func (h *ServiceHandler) Restore(c echo.Context) error {
	id := c.Param("id")

	if err := h.archival.Restore(c.Request().Context(), id); err != nil {
		return response.Error(c, err)
	}

	service, err := h.serviceRepo.GetByID(c.Request().Context(), id)
	if err != nil {
		return response.InternalError(c, "failed to reload service")
	}
	return response.Success(c, service)
}

func buildSubServices(names []string) []models.SubService {
	subServices := make([]models.SubService, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		subServices = append(subServices, models.SubService{
			ID:   uuid.New().String(),
			Name: name,
		})
	}
	return subServices
}
