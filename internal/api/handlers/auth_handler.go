package handlers

import (
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/jlebervet/mail-manager/internal/api/middleware"
	"github.com/jlebervet/mail-manager/internal/api/response"
	"github.com/jlebervet/mail-manager/internal/auth"
	"github.com/jlebervet/mail-manager/internal/models"
	"github.com/jlebervet/mail-manager/internal/repository"
	"github.com/jlebervet/mail-manager/internal/validator"
)

// AuthHandler handles session HTTP requests
type AuthHandler struct {
	reconciler *auth.Reconciler
	tokens     *auth.TokenManager
	accounts   repository.AccountRepository
}

// NewAuthHandler creates a new AuthHandler
func NewAuthHandler(reconciler *auth.Reconciler, tokens *auth.TokenManager, accounts repository.AccountRepository) *AuthHandler {
	return &AuthHandler{
		reconciler: reconciler,
		tokens:     tokens,
		accounts:   accounts,
	}
}

// LoginRequest represents the request body for a credentials login
type LoginRequest struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest represents the request body for creating a local account
type RegisterRequest struct {
	Email    string `json:"email" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role"`
}

// SessionResponse carries the issued token and the account it belongs to
type SessionResponse struct {
	Token   string          `json:"token"`
	Account *models.Account `json:"account"`
}

// Login handles POST /api/auth/login
func (h *AuthHandler) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}
	if req.Email == "" || req.Password == "" {
		return response.BadRequest(c, "email and password are required")
	}

	account, err := h.reconciler.ResolveCredentials(c.Request().Context(), auth.Credentials{
		Email:  req.Email,
		Secret: req.Password,
	})
	if err != nil {
		return response.Error(c, err)
	}

	token, err := h.tokens.Issue(account)
	if err != nil {
		return response.InternalError(c, "failed to issue session token")
	}

	return response.Success(c, SessionResponse{Token: token, Account: account})
}

// Register handles POST /api/auth/register (admin only)
func (h *AuthHandler) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return response.BadRequest(c, "invalid request body")
	}

	if err := validator.ValidateEmail(req.Email); err != nil {
		return response.BadRequest(c, "invalid email address")
	}
	if err := validator.ValidateName(req.Name); err != nil {
		return response.BadRequest(c, "name is required")
	}
	if len(req.Password) < 8 {
		return response.BadRequest(c, "password must be at least 8 characters")
	}

	role := models.RoleUser
	if req.Role != "" {
		role = models.AccountRole(req.Role)
		if role != models.RoleUser && role != models.RoleAdmin {
			return response.BadRequest(c, "role must be user or admin")
		}
	}

	hash, err := auth.HashSecret(req.Password)
	if err != nil {
		return response.InternalError(c, "failed to hash password")
	}

	account := &models.Account{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Name:         strings.TrimSpace(req.Name),
		Role:         role,
		PasswordHash: &hash,
	}

	if err := h.accounts.Create(c.Request().Context(), account); err != nil {
		if errors.Is(err, repository.ErrDuplicateEntry) {
			return response.Conflict(c, "an account with this email already exists")
		}
		return response.InternalError(c, "failed to create account")
	}

	return response.Created(c, account)
}

// Me handles GET /api/auth/me
func (h *AuthHandler) Me(c echo.Context) error {
	account := middleware.AccountFromContext(c)
	if account == nil {
		return response.Unauthorized(c, "authentication required")
	}
	return response.Success(c, account)
}
