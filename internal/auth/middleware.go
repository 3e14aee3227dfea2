package auth

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"codearena/pkg/contextkey"
	appErr "codearena/pkg/errors"
	"codearena/pkg/response"
)

// TeamAuth validates a team bearer token and threads the team id through the
// request context.
func TeamAuth(service *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := authenticate(c, service)
		if err != nil {
			response.AbortWithError(c, err)
			return
		}
		if identity.Role != RoleTeam {
			response.AbortWithErrorCode(c, appErr.Forbidden, "team token required")
			return
		}
		ctx := context.WithValue(c.Request.Context(), contextkey.TeamID, identity.Subject)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AdminAuth validates an admin bearer token.
func AdminAuth(service *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, err := authenticate(c, service)
		if err != nil {
			response.AbortWithError(c, err)
			return
		}
		if identity.Role != RoleAdmin {
			response.AbortWithErrorCode(c, appErr.Forbidden, "admin token required")
			return
		}
		ctx := context.WithValue(c.Request.Context(), contextkey.AdminEmail, identity.Subject)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

func authenticate(c *gin.Context, service *Service) (Identity, error) {
	token := extractBearerToken(c.GetHeader("Authorization"))
	if token == "" {
		// Websocket clients cannot set headers; accept the query fallback.
		token = c.Query("token")
	}
	return service.Authenticate(token)
}

func extractBearerToken(header string) string {
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
