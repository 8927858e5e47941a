package utils

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"gocab/internal/models"
)

// JWTClaims carries the verified identity behind a connection or request.
// Role is "rider" or "driver"; token issuance lives outside this service, so
// only the claims this core reads are modeled.
type JWTClaims struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

// GenerateToken signs an access token for the given identity. Used by tests
// and local tooling; production tokens come from the auth service.
func GenerateToken(userID, role, secretKey string) (string, error) {
	claims := &JWTClaims{
		UserID: userID,
		Role:   role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(JWTAccessTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
			Issuer:    AppName,
			Subject:   userID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secretKey))
}

// VerifyToken validates a token and returns its claims. Any parse or
// validation failure is reported as models.ErrAuthentication.
func VerifyToken(tokenString, secretKey string) (*JWTClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(secretKey), nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrAuthentication, err)
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, models.ErrAuthentication
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user id", models.ErrAuthentication)
	}

	return claims, nil
}
