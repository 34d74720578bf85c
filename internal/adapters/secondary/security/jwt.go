package security

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MuhammadMuizzsuddin/PilkadaJateng/internal/core/domain"
)

// SessionClaims étend les claims standards JWT avec l'identité affichable.
type SessionClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// JWTSession fournit l'utilisateur actif à partir du token d'accès que le
// client détient. Validation seule : ce core ne signe jamais de token.
type JWTSession struct {
	user domain.User
}

func NewJWTSession(tokenString string, secret []byte) (*JWTSession, error) {
	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, func(token *jwt.Token) (interface{}, error) {
		// Sécurité : on refuse tout autre alg que HMAC, sinon un token forgé
		// avec "none" passerait.
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parse session token: %w", err)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid session claims")
	}

	userID := claims.UserID
	if userID == "" {
		userID = claims.Subject
	}
	return &JWTSession{user: domain.User{ID: userID, Name: claims.Username}}, nil
}

func (s *JWTSession) CurrentUser() domain.User {
	return s.user
}

// StaticSession est la variante sans token (environnement local, tests).
type StaticSession struct {
	User domain.User
}

func (s *StaticSession) CurrentUser() domain.User {
	return s.User
}
