// Package util holds small helpers shared by the HTTP layer.
package util

import (
	"net/url"
	"strings"
)

// sensitiveMarkers are substrings of query keys whose values never reach the logs.
var sensitiveMarkers = []string{"token", "secret", "password", "code"}

// MaskValue keeps the edges of a secret and hides the middle.
func MaskValue(value string) string {
	var keep int
	switch n := len(value); {
	case n > 8:
		keep = 4
	case n > 4:
		keep = 2
	case n > 2:
		keep = 1
	default:
		return value
	}
	return value[:keep] + "..." + value[len(value)-keep:]
}

// MaskSensitiveQuery rewrites a raw query string so tokens, passwords and coupon codes are masked.
// Pairs that need no masking are left byte for byte.
func MaskSensitiveQuery(raw string) string {
	if raw == "" {
		return ""
	}
	pairs := strings.Split(raw, "&")
	masked := false
	for i, pair := range pairs {
		key, value, _ := strings.Cut(pair, "=")
		if !isSensitiveKey(unescape(key)) {
			continue
		}
		pairs[i] = key + "=" + url.QueryEscape(MaskValue(strings.TrimSpace(unescape(value))))
		masked = true
	}
	if !masked {
		return raw
	}
	return strings.Join(pairs, "&")
}

func unescape(s string) string {
	if decoded, err := url.QueryUnescape(s); err == nil {
		return decoded
	}
	return s
}

func isSensitiveKey(key string) bool {
	key = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(key)), "[]")
	if key == "" {
		return false
	}
	for _, marker := range sensitiveMarkers {
		if strings.Contains(key, marker) {
			return true
		}
	}
	return false
}
