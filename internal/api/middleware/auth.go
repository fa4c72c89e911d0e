// Package middleware provides HTTP middleware for the correspondence API.
package middleware

import (
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/jlebervet/mail-manager/internal/api/response"
	"github.com/jlebervet/mail-manager/internal/auth"
	applogger "github.com/jlebervet/mail-manager/internal/logger"
	"github.com/jlebervet/mail-manager/internal/models"
)

// accountContextKey is the echo context key carrying the resolved account
const accountContextKey = "account"

// Authenticate resolves the bearer token through the configured strategy
// chain and stores the account on the request context. Provider assertions
// and locally-issued session tokens are both accepted.
func Authenticate(strategy auth.Strategy, logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := bearerToken(c)
			if token == "" {
				applogger.AuthFailure(logger, c.RealIP(), c.Path(), "missing authorization header")
				return response.Unauthorized(c, "missing authorization header")
			}

			account, err := strategy(c.Request().Context(), token)
			if err != nil {
				applogger.AuthFailure(logger, c.RealIP(), c.Path(), err.Error())
				return response.Error(c, err)
			}

			c.Set(accountContextKey, account)
			return next(c)
		}
	}
}

// RequireAdmin rejects requests whose account lacks the admin role.
// Must run after Authenticate.
func RequireAdmin(logger *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			account := AccountFromContext(c)
			if account == nil {
				return response.Unauthorized(c, "authentication required")
			}
			if !account.IsAdmin() {
				applogger.AccessDenied(logger, account.ID, c.Path())
				return response.Forbidden(c, "admin role required")
			}
			return next(c)
		}
	}
}

// AccountFromContext returns the authenticated account, or nil
func AccountFromContext(c echo.Context) *models.Account {
	account, _ := c.Get(accountContextKey).(*models.Account)
	return account
}

func bearerToken(c echo.Context) string {
	header := c.Request().Header.Get(echo.HeaderAuthorization)
	if header == "" {
		return ""
	}
	token := strings.TrimPrefix(header, "Bearer ")
	return strings.TrimSpace(token)
}
