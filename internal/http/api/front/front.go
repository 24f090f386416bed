package front

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/school-portal/portal-backend/internal/config"
	portalhttp "github.com/school-portal/portal-backend/internal/http"
	"github.com/school-portal/portal-backend/internal/http/api/front/handlers"
	"github.com/school-portal/portal-backend/internal/models"
	"github.com/school-portal/portal-backend/internal/points"
	"github.com/school-portal/portal-backend/internal/ratelimit"
	"github.com/school-portal/portal-backend/internal/security"
	"gorm.io/gorm"
)

// RegisterFrontRoutes registers public and authenticated student routes.
func RegisterFrontRoutes(r *gin.Engine, db *gorm.DB, svc *points.Service, jwtCfg config.JWTConfig, limiter ratelimit.Limiter) {
	if r == nil || db == nil || svc == nil {
		return
	}

	front := r.Group("/v0/front")

	authHandler := handlers.NewAuthHandler(db, svc, jwtCfg)
	front.POST("/register", authHandler.Register)
	front.POST("/login", authHandler.Login)

	authed := front.Group("")
	authed.Use(studentAuthMiddleware(db, jwtCfg))

	pointsHandler := handlers.NewPointsHandler(svc)
	authed.GET("/points", pointsHandler.Get)
	authed.GET("/points/history", pointsHandler.History)
	authed.GET("/points/attendance", pointsHandler.Attendance)
	authed.POST("/attend", pointsHandler.Attend)

	productHandler := handlers.NewProductHandler(svc)
	authed.GET("/products", productHandler.List)
	authed.POST("/products/:id/exchange",
		portalhttp.ExchangeRateLimitMiddleware(limiter, studentRateLimitKey),
		productHandler.Exchange,
	)

	exchangeHandler := handlers.NewExchangeHandler(svc)
	authed.GET("/exchanges", exchangeHandler.List)
	authed.POST("/exchanges/:id/use", exchangeHandler.Use)
}

func studentRateLimitKey(c *gin.Context) string {
	studentID, ok := c.Get("studentID")
	if !ok {
		return ""
	}
	id, okID := studentID.(uint64)
	if !okID || id == 0 {
		return ""
	}
	return "student:" + strconv.FormatUint(id, 10)
}

// studentAuthMiddleware validates student JWTs and loads the student into context.
func studentAuthMiddleware(db *gorm.DB, jwtCfg config.JWTConfig) gin.HandlerFunc {
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

		claims, errJWT := security.ParseStudentToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		var student models.Student
		if errFind := db.WithContext(c.Request.Context()).First(&student, claims.StudentID).Error; errFind != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "student not found"})
			return
		}
		if student.Disabled {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "student disabled"})
			return
		}

		c.Set("studentID", student.ID)
		c.Next()
	}
}
