package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	httpHandlers "github.com/internhub/core/internal/adapters/http"
	"github.com/internhub/core/internal/domain/entities"
)

// authMiddleware validates the bearer token and stores the caller in the
// request context
func (s *Server) authMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Missing authorization header")
			}

			tokenString, found := strings.CutPrefix(authHeader, "Bearer ")
			if !found || tokenString == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization header format")
			}

			claims, err := s.app.Auth.ValidateToken(tokenString)
			if err != nil {
				s.logger.LogSecurityEvent("invalid_token", "", c.RealIP(), map[string]interface{}{
					"error": err.Error(),
				})
				return echo.NewHTTPError(http.StatusUnauthorized, "Invalid token")
			}

			c.Set(httpHandlers.ContextKeyUserID, claims.UserID)
			c.Set(httpHandlers.ContextKeyUserRole, claims.Role)
			c.Set(httpHandlers.ContextKeyUserEmail, claims.Email)

			return next(c)
		}
	}
}

// requireRole checks if user has required role
func (s *Server) requireRole(roles ...entities.UserRole) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			userRole, ok := c.Get(httpHandlers.ContextKeyUserRole).(entities.UserRole)
			if !ok {
				return echo.NewHTTPError(http.StatusForbidden, "Role information not found")
			}

			for _, requiredRole := range roles {
				if userRole == requiredRole {
					return next(c)
				}
			}

			userID, _ := c.Get(httpHandlers.ContextKeyUserID).(string)
			s.logger.LogSecurityEvent("insufficient_permissions", userID, c.RealIP(), map[string]interface{}{
				"required_roles": roles,
				"user_role":      userRole,
				"endpoint":       c.Request().URL.Path,
			})

			return echo.NewHTTPError(http.StatusForbidden, "Insufficient permissions")
		}
	}
}
