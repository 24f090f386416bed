package security

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWT validation errors.
var (
	// ErrInvalidToken indicates a token is malformed or fails validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates a token has expired.
	ErrExpiredToken = errors.New("token expired")
)

// tokenIssuer is stamped on every token and required when parsing.
const tokenIssuer = "school-portal"

// Token audiences keep student tokens out of admin routes and vice versa.
const (
	audienceStudent = "student"
	audienceAdmin   = "admin"
)

// StudentClaims defines JWT claims for students.
type StudentClaims struct {
	StudentID  uint64 `json:"student_id"`
	Username   string `json:"username"`
	Name       string `json:"name"`
	SchoolCode string `json:"school_code,omitempty"`
	jwt.RegisteredClaims
}

// AdminClaims defines JWT claims for administrators.
type AdminClaims struct {
	AdminID  uint64 `json:"admin_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

func registeredClaims(audience string, expiry time.Duration) jwt.RegisteredClaims {
	now := time.Now().UTC()
	return jwt.RegisteredClaims{
		Issuer:    tokenIssuer,
		Audience:  jwt.ClaimStrings{audience},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
	}
}

// GenerateStudentToken signs a student JWT with the configured expiry.
func GenerateStudentToken(secret string, studentID uint64, username, name, schoolCode string, expiry time.Duration) (string, error) {
	claims := StudentClaims{
		StudentID:        studentID,
		Username:         username,
		Name:             name,
		SchoolCode:       schoolCode,
		RegisteredClaims: registeredClaims(audienceStudent, expiry),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseStudentToken validates a student JWT and returns its claims.
func ParseStudentToken(secret string, tokenString string) (*StudentClaims, error) {
	claims := &StudentClaims{}
	if errParse := parseClaims(secret, tokenString, audienceStudent, claims); errParse != nil {
		return nil, errParse
	}
	if claims.StudentID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateAdminToken signs an admin JWT with the configured expiry.
func GenerateAdminToken(secret string, adminID uint64, username string, expiry time.Duration) (string, error) {
	claims := AdminClaims{
		AdminID:          adminID,
		Username:         username,
		RegisteredClaims: registeredClaims(audienceAdmin, expiry),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// ParseAdminToken validates an admin JWT and returns its claims.
func ParseAdminToken(secret string, tokenString string) (*AdminClaims, error) {
	claims := &AdminClaims{}
	if errParse := parseClaims(secret, tokenString, audienceAdmin, claims); errParse != nil {
		return nil, errParse
	}
	if claims.AdminID == 0 {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func parseClaims(secret, tokenString, audience string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return []byte(secret), nil
	}, jwt.WithIssuer(tokenIssuer), jwt.WithAudience(audience))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ErrExpiredToken
		}
		return ErrInvalidToken
	}
	if !token.Valid {
		return ErrInvalidToken
	}
	return nil
}
