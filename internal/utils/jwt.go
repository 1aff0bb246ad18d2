package utils

import (
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token types carried in Claims.Type
const (
	TokenAccess  = "access"
	TokenRefresh = "refresh"
)

const (
	AccessTokenTTL  = 15 * time.Minute
	RefreshTokenTTL = 7 * 24 * time.Hour
)

var (
	secretMu  sync.RWMutex
	jwtSecret = []byte(os.Getenv("JWT_SECRET"))
)

// SetJWTSecret replaces the signing key. Call it once at startup.
func SetJWTSecret(secret string) {
	secretMu.Lock()
	defer secretMu.Unlock()
	jwtSecret = []byte(secret)
}

func signingKey() []byte {
	secretMu.RLock()
	defer secretMu.RUnlock()
	return jwtSecret
}

// Claims represents JWT claims
type Claims struct {
	UserID   string `json:"userId"`
	Email    string `json:"email"`
	UniqueID string `json:"uniqueId"`
	Type     string `json:"type"`
	jwt.RegisteredClaims
}

// GenerateToken generates an access token for a user
func GenerateToken(userID, email, uniqueID string) (string, error) {
	return signToken(userID, email, uniqueID, TokenAccess, AccessTokenTTL)
}

// GenerateRefreshToken generates a refresh token for a user
func GenerateRefreshToken(userID, email, uniqueID string) (string, error) {
	return signToken(userID, email, uniqueID, TokenRefresh, RefreshTokenTTL)
}

func signToken(userID, email, uniqueID, typ string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   userID,
		Email:    email,
		UniqueID: uniqueID,
		Type:     typ,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(signingKey())
}

// ValidateToken validates and parses a JWT token
func ValidateToken(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return signingKey(), nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}

	return claims, nil
}
