package handlers

import (
	"io"

	"github.com/labstack/echo/v4"

	"github.com/jlebervet/mail-manager/internal/api/middleware"
	"github.com/jlebervet/mail-manager/internal/api/response"
	"github.com/jlebervet/mail-manager/internal/models"
	"github.com/jlebervet/mail-manager/internal/repository"
	"github.com/jlebervet/mail-manager/internal/services"
	"github.com/jlebervet/mail-manager/internal/validator"
)

// MaxAttachmentSize bounds a single uploaded document
const MaxAttachmentSize = 25 * 1024 * 1024 // 25 MB

// MailHandler handles mail register HTTP requests
type MailHandler struct {
	mailService services.MailService
}

// NewMailHandler creates a new MailHandler
func NewMailHandler(mailService services.MailService) *MailHandler {
	return &MailHandler{mailService: mailService}
}

// CreateMailRequest represents the request body for registering a mail item
type CreateMailRequest struct {
	Direction       string  `json:"direction" validate:"required"`
	Subject         string  `json:"subject" validate:"required"`
	Body            string  `json:"body"`
	CorrespondentID string  `json:"correspondent_id" validate:"required"`
	ServiceID       string  `json:"service_id" validate:"required"`
	SubServiceID    *string `json:"sub_service_id"`
	Status          string  `json:"status"`
	ParentID        *string `json:"parent_id"`
	Channel         string  `json:"channel"`
	Registered      bool    `json:"registered"`
	TrackingNumber  *string `json:"tracking_number"`
	Comment         *string `json:"comment"`
}

// UpdateMailRequest represents the request body for a partial mail update
type UpdateMailRequest struct {
	Subject      *string `json:"subject"`
	Body         *string `json:"body"`
	Status       *string `json:"status"`
	Comment      *string `json:"comment"`
	AssigneeID   *string `json:"assignee_id"`
	ServiceID    *string `json:"service_id"`
	SubServiceID *string `json:"sub_service_id"`
}

// List handles GET /api/mails
func (h *MailHandler) List(c echo.Context) error {
	filter := repository.MailFilter{
		Direction: models.MailDirection(c.QueryParam("direction")),
		Status:    models.MailStatus(c.QueryParam("status")),
		ServiceID: c.QueryParam("service_id"),
	}

	mails, err := h.mailService.List(c.Request().Context(), filter)
	if err != nil {
		return response.InternalError(c, "failed to list mails")
	}
	return response.Success(c, mails)
}

// Get handles GET /api/mails/:id
func (h *MailHandler) Get(c echo.Context) error {
	actor := middleware.AccountFromContext(c)

	detail, err := h.mailService.Get(c.Request().Context(), c.Param("id"), actor)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, detail)
}

// Create handles POST /api/mails
func (h *MailHandler) Create(c echo.Context) error {
	var req CreateMailRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	actor := middleware.AccountFromContext(c)
	mail, err := h.mailService.Create(c.Request().Context(), services.CreateMailInput{
		Direction:       models.MailDirection(req.Direction),
		Subject:         req.Subject,
		Body:            req.Body,
		CorrespondentID: req.CorrespondentID,
		ServiceID:       req.ServiceID,
		SubServiceID:    req.SubServiceID,
		Status:          models.MailStatus(req.Status),
		ParentID:        req.ParentID,
		Channel:         models.MailChannel(req.Channel),
		Registered:      req.Registered,
		TrackingNumber:  req.TrackingNumber,
		Comment:         req.Comment,
	}, actor)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, mail)
}

// Update handles PUT /api/mails/:id
func (h *MailHandler) Update(c echo.Context) error {
	var req UpdateMailRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	input := services.UpdateMailInput{
		Subject:      req.Subject,
		Body:         req.Body,
		Comment:      req.Comment,
		AssigneeID:   req.AssigneeID,
		ServiceID:    req.ServiceID,
		SubServiceID: req.SubServiceID,
	}
	if req.Status != nil {
		status := models.MailStatus(*req.Status)
		input.Status = &status
	}

	actor := middleware.AccountFromContext(c)
	mail, err := h.mailService.Update(c.Request().Context(), c.Param("id"), input, actor)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, mail)
}

// Delete handles DELETE /api/mails/:id
func (h *MailHandler) Delete(c echo.Context) error {
	if err := h.mailService.Delete(c.Request().Context(), c.Param("id")); err != nil {
		return response.Error(c, err)
	}
	return response.NoContent(c)
}

// AddAttachment handles POST /api/mails/:id/attachments
func (h *MailHandler) AddAttachment(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "file is required")
	}
	if fileHeader.Size > MaxAttachmentSize {
		return response.BadRequest(c, "file exceeds maximum attachment size")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.InternalError(c, "failed to read uploaded file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, MaxAttachmentSize+1))
	if err != nil {
		return response.InternalError(c, "failed to read uploaded file")
	}
	if int64(len(data)) > MaxAttachmentSize {
		return response.BadRequest(c, "file exceeds maximum attachment size")
	}

	contentType := fileHeader.Header.Get("Content-Type")
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	mail, err := h.mailService.AddAttachment(c.Request().Context(), c.Param("id"), models.Attachment{
		Filename:    validator.SanitizeFilename(fileHeader.Filename),
		ContentType: contentType,
		Data:        data,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, mail)
}

// DownloadAttachment handles GET /api/mails/:id/attachments/:attachmentID
func (h *MailHandler) DownloadAttachment(c echo.Context) error {
	actor := middleware.AccountFromContext(c)

	detail, err := h.mailService.Get(c.Request().Context(), c.Param("id"), actor)
	if err != nil {
		return response.Error(c, err)
	}

	attachmentID := c.Param("attachmentID")
	for _, att := range detail.Mail.Attachments {
		if att.ID == attachmentID {
			c.Response().Header().Set(echo.HeaderContentDisposition, "attachment; filename=\""+att.Filename+"\"")
			return c.Blob(200, att.ContentType, att.Data)
		}
	}
	return response.NotFound(c, "attachment not found")
}
