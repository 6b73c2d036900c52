// internal/utils/jwt.go
package utils

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
)

const jwtIssuer = "storefront"

const (
	tokenUseAccess  = "access"
	tokenUseRefresh = "refresh"
)

var ErrInvalidToken = errors.New("invalid token")

// JWTClaims back the bearer fallback when no session cookie is sent.
type JWTClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
	Use    string `json:"use"`
	jwt.RegisteredClaims
}

var (
	secretMu  sync.RWMutex
	jwtSecret = []byte("your-secret-key-change-in-production")
)

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

func registered(subject uuid.UUID, ttlHours int) jwt.RegisteredClaims {
	now := time.Now()
	return jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(ttlHours) * time.Hour)),
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now),
		Issuer:    jwtIssuer,
		Subject:   subject.String(),
		ID:        uuid.NewString(),
	}
}

func sign(claims *JWTClaims) (string, error) {
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(signingKey())
}

// parse verifies signature, issuer and expiry, then checks the token was
// minted for use.
func parse(tokenString, use string) (*JWTClaims, error) {
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return signingKey(), nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid || !claims.VerifyIssuer(jwtIssuer, true) || claims.Use != use {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

func GenerateJWT(userID uuid.UUID, email, role string, ttlHours int) (string, error) {
	return sign(&JWTClaims{
		UserID:           userID.String(),
		Email:            email,
		Role:             role,
		Use:              tokenUseAccess,
		RegisteredClaims: registered(userID, ttlHours),
	})
}

func ValidateJWT(tokenString string) (*JWTClaims, error) {
	claims, err := parse(tokenString, tokenUseAccess)
	if err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// GenerateRefreshToken carries only the subject; role and email are read
// fresh from the store on refresh.
func GenerateRefreshToken(userID uuid.UUID, ttlHours int) (string, error) {
	return sign(&JWTClaims{
		Use:              tokenUseRefresh,
		RegisteredClaims: registered(userID, ttlHours),
	})
}

func ValidateRefreshToken(tokenString string) (string, error) {
	claims, err := parse(tokenString, tokenUseRefresh)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}
