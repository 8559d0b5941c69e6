package service

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	jwtMu     sync.RWMutex
	jwtSecret []byte

	ErrInvalidToken = errors.New("invalid token")
)

const jwtIssuer = "skate_battle"

// InitJWT задает секрет подписи, вызывается один раз при старте
func InitJWT(secret string) error {
	if secret == "" {
		return fmt.Errorf("jwt secret is empty")
	}
	jwtMu.Lock()
	jwtSecret = []byte(secret)
	jwtMu.Unlock()
	return nil
}

func secret() ([]byte, error) {
	jwtMu.RLock()
	defer jwtMu.RUnlock()
	if len(jwtSecret) == 0 {
		return nil, fmt.Errorf("jwt is not initialized")
	}
	return jwtSecret, nil
}

// IssueJWT выпускает токен игрока, sub - id игрока
func IssueJWT(playerID string, ttl time.Duration) (string, error) {
	key, err := secret()
	if err != nil {
		return "", err
	}
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   playerID,
		Issuer:    jwtIssuer,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
}

// ParseJWT проверяет подпись и срок, возвращает id игрока
func ParseJWT(tokenString string) (string, error) {
	key, err := secret()
	if err != nil {
		return "", err
	}
	claims := &jwt.RegisteredClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return key, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithIssuer(jwtIssuer))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}
	if claims.Subject == "" {
		return "", ErrInvalidToken
	}
	return claims.Subject, nil
}
