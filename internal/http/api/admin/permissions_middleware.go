package admin

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/school-portal/portal-backend/internal/http/api/admin/permissions"
)

// requirePermission rejects requests whose route is not granted to the signed-in admin.
// It relies on adminAuthMiddleware having stored the admin's grants in the context.
func requirePermission() gin.HandlerFunc {
	known := permissions.DefinitionMap()

	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		key := permissions.Key(c.Request.Method, c.FullPath())
		if _, ok := known[key]; !ok {
			// Unlisted routes are closed to everyone, super admins included.
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied"})
			return
		}
		if c.GetBool("adminIsSuperAdmin") {
			c.Next()
			return
		}
		granted, _ := c.Get("adminPermissions")
		list, _ := granted.([]string)
		if !permissions.HasPermission(list, key) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "permission denied", "permission": key})
			return
		}
		c.Next()
	}
}
