package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/venueworks/playpass/pkg/wallet"
)

const adminContextKey = "authenticated_admin"

// requireAuth resolves the bearer token to a staff account and stores
// it on the request context. The role always comes from the database.
func (server *Server) requireAuth() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		header := ctx.GetHeader("Authorization")
		token := strings.TrimSpace(header)
		if strings.HasPrefix(strings.ToLower(token), "bearer ") {
			token = strings.TrimSpace(token[7:])
		}
		if token == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "missing bearer token"))
			return
		}
		admin, err := server.auth.Authenticate(ctx.Request.Context(), token)
		if err != nil {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, errorResponse("unauthorized", "invalid or expired token"))
			return
		}
		ctx.Set(adminContextKey, admin)
		ctx.Next()
	}
}

// requireSuperAdmin gates management endpoints.
func (server *Server) requireSuperAdmin() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		admin := currentAdmin(ctx)
		if admin.Role != wallet.RoleSuperAdmin {
			ctx.AbortWithStatusJSON(http.StatusForbidden, errorResponse("forbidden", "superadmin role required"))
			return
		}
		ctx.Next()
	}
}

func currentAdmin(ctx *gin.Context) wallet.Admin {
	value, ok := ctx.Get(adminContextKey)
	if !ok {
		return wallet.Admin{}
	}
	admin, _ := value.(wallet.Admin)
	return admin
}
