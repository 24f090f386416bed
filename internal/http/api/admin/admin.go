// Package admin wires the staff-facing API under /v0/admin.
package admin

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/school-portal/portal-backend/internal/config"
	"github.com/school-portal/portal-backend/internal/http/api/admin/handlers"
	"github.com/school-portal/portal-backend/internal/http/api/admin/permissions"
	"github.com/school-portal/portal-backend/internal/models"
	"github.com/school-portal/portal-backend/internal/points"
	"github.com/school-portal/portal-backend/internal/security"
	"gorm.io/gorm"
)

// RegisterAdminRoutes registers admin login and the permission-guarded admin routes.
func RegisterAdminRoutes(r *gin.Engine, db *gorm.DB, svc *points.Service, jwtCfg config.JWTConfig) {
	if r == nil || db == nil || svc == nil {
		return
	}

	admin := r.Group("/v0/admin")

	authHandler := handlers.NewAuthHandler(db, jwtCfg)
	admin.POST("/login", authHandler.Login)

	authed := admin.Group("")
	authed.Use(adminAuthMiddleware(db, jwtCfg), requirePermission())

	permissionHandler := handlers.NewPermissionHandler()
	authed.GET("/permissions", permissionHandler.List)

	pointsHandler := handlers.NewPointsHandler(svc)
	authed.GET("/students/:id/points", pointsHandler.Get)
	authed.GET("/students/:id/points/history", pointsHandler.History)
	authed.POST("/students/:id/points", pointsHandler.Adjust)
	authed.POST("/students/:id/meal-photo-rewards", pointsHandler.RewardMealPhoto)

	reconcileHandler := handlers.NewReconcileHandler(svc)
	authed.GET("/reconcile", reconcileHandler.Run)

	productHandler := handlers.NewProductHandler(svc)
	authed.GET("/products", productHandler.List)
	authed.POST("/products", productHandler.Create)
	authed.PUT("/products/:id", productHandler.Update)
	authed.POST("/products/:id/restock", productHandler.Restock)
	authed.DELETE("/products/:id", productHandler.Delete)

	exchangeHandler := handlers.NewExchangeHandler(svc)
	authed.GET("/exchanges", exchangeHandler.List)
	authed.POST("/exchanges/:id/use", exchangeHandler.Use)

	settingHandler := handlers.NewSettingHandler(db)
	authed.GET("/settings", settingHandler.List)
	authed.PUT("/settings/:key", settingHandler.Put)
}

// adminAuthMiddleware validates admin JWTs and loads the admin into context.
func adminAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing authorization header"})
			return
		}

		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid authorization format"})
			return
		}
		token = strings.TrimSpace(token)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "empty token"})
			return
		}

		claims, errJWT := security.ParseAdminToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var admin models.Admin
		if errFind := db.WithContext(c.Request.Context()).First(&admin, claims.AdminID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "admin not found"})
			return
		}
		if !admin.Active {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "admin disabled"})
			return
		}

		c.Set("adminID", admin.ID)
		c.Set("adminIsSuperAdmin", admin.IsSuperAdmin)
		c.Set("adminPermissions", permissions.ParsePermissions(admin.Permissions))
		c.Next()
	}
}
