package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/school-portal/portal-backend/internal/http/api/admin/permissions"
)

// PermissionHandler exposes the permission catalog to the admin console.
type PermissionHandler struct{}

// NewPermissionHandler constructs a PermissionHandler.
func NewPermissionHandler() *PermissionHandler {
	return &PermissionHandler{}
}

// List returns the permission catalog grouped by module, flagging what the caller holds.
func (h *PermissionHandler) List(c *gin.Context) {
	super := c.GetBool("adminIsSuperAdmin")
	var granted []string
	if v, ok := c.Get("adminPermissions"); ok {
		granted, _ = v.([]string)
	}

	var modules []gin.H
	index := make(map[string]int)
	for _, def := range permissions.Definitions() {
		i, ok := index[def.Module]
		if !ok {
			i = len(modules)
			index[def.Module] = i
			modules = append(modules, gin.H{"module": def.Module, "permissions": []gin.H{}})
		}
		entries := modules[i]["permissions"].([]gin.H)
		modules[i]["permissions"] = append(entries, gin.H{
			"key":     def.Key,
			"method":  def.Method,
			"path":    def.Path,
			"label":   def.Label,
			"granted": super || permissions.HasPermission(granted, def.Key),
		})
	}
	c.JSON(http.StatusOK, gin.H{"modules": modules, "is_super_admin": super})
}
