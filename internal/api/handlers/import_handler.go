package handlers

import (
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jlebervet/mail-manager/internal/api/middleware"
	"github.com/jlebervet/mail-manager/internal/api/response"
	"github.com/jlebervet/mail-manager/internal/services"
)

// MaxImportSize bounds an uploaded CSV export
const MaxImportSize = 10 * 1024 * 1024 // 10 MB

// ImportHandler handles legacy register import HTTP requests
type ImportHandler struct {
	importer services.ImportService
}

// NewImportHandler creates a new ImportHandler
func NewImportHandler(importer services.ImportService) *ImportHandler {
	return &ImportHandler{importer: importer}
}

// ImportCSV handles POST /api/import/csv (admin only)
func (h *ImportHandler) ImportCSV(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return response.BadRequest(c, "file is required")
	}
	if fileHeader.Size > MaxImportSize {
		return response.BadRequest(c, "file exceeds maximum import size")
	}
	if !strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".csv") {
		return response.BadRequest(c, "file must be a CSV export")
	}

	file, err := fileHeader.Open()
	if err != nil {
		return response.InternalError(c, "failed to read uploaded file")
	}
	defer file.Close()

	actor := middleware.AccountFromContext(c)
	stats, err := h.importer.ImportCSV(c.Request().Context(), file, actor)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, stats)
}
