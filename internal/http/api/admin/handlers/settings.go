package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/school-portal/portal-backend/internal/settings"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// settingDefaults lists the editable runtime settings and their fallbacks.
var settingDefaults = map[string]int64{
	settings.AttendRewardPointsKey:         settings.DefaultAttendRewardPoints,
	settings.MealPhotoRewardPointsKey:      settings.DefaultMealPhotoRewardPoints,
	settings.ExchangeValidDaysKey:          settings.DefaultExchangeValidDays,
	settings.LedgerAuditIntervalSecondsKey: settings.DefaultLedgerAuditIntervalSeconds,
	settings.ExchangeRateLimitPerMinuteKey: settings.DefaultExchangeRateLimitPerMinute,
}

// SettingHandler reads and writes runtime settings.
type SettingHandler struct {
	db *gorm.DB
}

// NewSettingHandler constructs a SettingHandler.
func NewSettingHandler(db *gorm.DB) *SettingHandler {
	return &SettingHandler{db: db}
}

// List returns the effective value of every editable setting.
func (h *SettingHandler) List(c *gin.Context) {
	out := make(gin.H, len(settingDefaults))
	for key, fallback := range settingDefaults {
		out[key] = settings.Int64(key, fallback)
	}
	c.JSON(http.StatusOK, gin.H{
		"settings":   out,
		"updated_at": settings.DBConfigUpdatedAt(),
	})
}

// putSettingRequest carries the new value for one setting.
type putSettingRequest struct {
	Value *int64 `json:"value"`
}

// Put stores a new value and refreshes the in-memory snapshot.
func (h *SettingHandler) Put(c *gin.Context) {
	key := strings.ToUpper(strings.TrimSpace(c.Param("key")))
	if _, ok := settingDefaults[key]; !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown setting"})
		return
	}
	var body putSettingRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	if body.Value == nil || *body.Value < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "value must be a non-negative integer"})
		return
	}

	if errPut := settings.Put(c.Request.Context(), h.db, key, *body.Value); errPut != nil {
		log.WithError(errPut).WithField("key", key).Error("save setting")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "save setting failed"})
		return
	}
	log.WithFields(log.Fields{
		"admin_id": getAdminID(c),
		"key":      key,
		"value":    *body.Value,
	}).Info("setting updated")
	c.JSON(http.StatusOK, gin.H{"key": key, "value": *body.Value})
}
