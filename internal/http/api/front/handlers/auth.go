package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/school-portal/portal-backend/internal/config"
	"github.com/school-portal/portal-backend/internal/http/api/respond"
	"github.com/school-portal/portal-backend/internal/models"
	"github.com/school-portal/portal-backend/internal/points"
	"github.com/school-portal/portal-backend/internal/security"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// AuthHandler handles student registration and login.
type AuthHandler struct {
	db     *gorm.DB
	svc    *points.Service
	jwtCfg config.JWTConfig
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, svc *points.Service, jwtCfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{db: db, svc: svc, jwtCfg: jwtCfg}
}

// registerRequest defines the request body for student registration.
type registerRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	Name       string `json:"name"`
	SchoolCode string `json:"school_code"`
	Grade      int    `json:"grade"`
}

// Register creates a student with a zero-balance points account and signs them in.
func (h *AuthHandler) Register(c *gin.Context) {
	var body registerRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username is required"})
		return
	}
	if errPassword := security.ValidatePassword(body.Password); errPassword != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errPassword.Error()})
		return
	}
	hash, errHash := security.HashPassword(body.Password)
	if errHash != nil {
		log.WithError(errHash).Error("hash student password")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "register failed"})
		return
	}

	student := models.Student{
		Username:   username,
		Password:   hash,
		Name:       strings.TrimSpace(body.Name),
		SchoolCode: strings.TrimSpace(body.SchoolCode),
		Grade:      body.Grade,
	}
	if errRegister := h.svc.RegisterStudent(c.Request.Context(), &student); errRegister != nil {
		respond.PointsError(c, "register", errRegister)
		return
	}
	h.respondWithToken(c, http.StatusCreated, &student)
}

// loginRequest defines the request body for student login.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login authenticates a student and issues a JWT.
func (h *AuthHandler) Login(c *gin.Context) {
	var body loginRequest
	if errBind := c.ShouldBindJSON(&body); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return
	}
	username := strings.TrimSpace(body.Username)
	if username == "" || body.Password == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "username and password are required"})
		return
	}

	var student models.Student
	if errFind := h.db.WithContext(c.Request.Context()).Where("username = ?", username).First(&student).Error; errFind != nil {
		if !errors.Is(errFind, gorm.ErrRecordNotFound) {
			log.WithError(errFind).Error("load student for login")
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	if student.Disabled {
		c.JSON(http.StatusForbidden, gin.H{"error": "student account is disabled"})
		return
	}
	if !security.CheckPassword(student.Password, body.Password) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
		return
	}
	h.respondWithToken(c, http.StatusOK, &student)
}

func (h *AuthHandler) respondWithToken(c *gin.Context, status int, student *models.Student) {
	token, errToken := security.GenerateStudentToken(h.jwtCfg.Secret, student.ID, student.Username, student.Name, student.SchoolCode, h.jwtCfg.Expiry())
	if errToken != nil {
		log.WithError(errToken).Error("sign student token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "issue token failed"})
		return
	}
	c.JSON(status, gin.H{
		"token": token,
		"student": gin.H{
			"id":          student.ID,
			"username":    student.Username,
			"name":        student.Name,
			"school_code": student.SchoolCode,
			"grade":       student.Grade,
		},
	})
}
