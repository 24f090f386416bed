// Package permissions defines the permission keys that guard admin routes.
package permissions

import (
	"encoding/json"
	"strings"

	"gorm.io/datatypes"
)

// Definition describes one permission-guarded admin route.
type Definition struct {
	Key    string
	Method string
	Path   string
	Label  string
	Module string
}

var definitions = []Definition{
	newDefinition("GET", "/v0/admin/permissions", "List permissions", "Admins"),

	newDefinition("GET", "/v0/admin/students/:id/points", "View student points", "Points"),
	newDefinition("GET", "/v0/admin/students/:id/points/history", "View student ledger", "Points"),
	newDefinition("POST", "/v0/admin/students/:id/points", "Adjust student points", "Points"),
	newDefinition("POST", "/v0/admin/students/:id/meal-photo-rewards", "Reward meal photo", "Points"),
	newDefinition("GET", "/v0/admin/reconcile", "Reconcile ledger", "Points"),

	newDefinition("GET", "/v0/admin/products", "List products", "Catalog"),
	newDefinition("POST", "/v0/admin/products", "Create product", "Catalog"),
	newDefinition("PUT", "/v0/admin/products/:id", "Update product", "Catalog"),
	newDefinition("POST", "/v0/admin/products/:id/restock", "Restock product", "Catalog"),
	newDefinition("DELETE", "/v0/admin/products/:id", "Delete product", "Catalog"),

	newDefinition("GET", "/v0/admin/exchanges", "List exchanges", "Exchanges"),
	newDefinition("POST", "/v0/admin/exchanges/:id/use", "Redeem exchange", "Exchanges"),

	newDefinition("GET", "/v0/admin/settings", "List settings", "Settings"),
	newDefinition("PUT", "/v0/admin/settings/:key", "Update setting", "Settings"),
}

func newDefinition(method, path, label, module string) Definition {
	return Definition{
		Key:    Key(method, path),
		Method: method,
		Path:   path,
		Label:  label,
		Module: module,
	}
}

// Key builds the permission key for a method and route pattern.
func Key(method, path string) string {
	return strings.ToUpper(strings.TrimSpace(method)) + " " + strings.TrimSpace(path)
}

// Definitions returns a copy of all permission definitions.
func Definitions() []Definition {
	out := make([]Definition, len(definitions))
	copy(out, definitions)
	return out
}

// DefinitionMap indexes definitions by key.
func DefinitionMap() map[string]Definition {
	out := make(map[string]Definition, len(definitions))
	for _, def := range definitions {
		out[def.Key] = def
	}
	return out
}

// ParsePermissions decodes the JSON permission list stored on an admin.
func ParsePermissions(raw datatypes.JSON) []string {
	if len(raw) == 0 {
		return nil
	}
	var keys []string
	if errUnmarshal := json.Unmarshal(raw, &keys); errUnmarshal != nil {
		return nil
	}
	out := make([]string, 0, len(keys))
	for _, key := range keys {
		if key = strings.TrimSpace(key); key != "" {
			out = append(out, key)
		}
	}
	return out
}

// HasPermission reports whether key is in the granted list.
func HasPermission(granted []string, key string) bool {
	for _, g := range granted {
		if g == key {
			return true
		}
	}
	return false
}
