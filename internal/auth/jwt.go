package auth

import (
	"errors"
	"fmt"
	"time"

	"verdict_backend/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken    = errors.New("invalid token")
	ErrNotConfigured   = errors.New("jwt secret is not configured")
	defaultTokenIssuer = "verdict-backend"
)

// Claims - идентичность аккаунта. Токены выпускает внешний сервис
// аккаунтов, здесь они только проверяются (IssueToken нужен CLI и тестам).
type Claims struct {
	AccountID string          `json:"account_id"`
	Role      models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

var (
	secret   []byte
	tokenTTL = time.Hour
)

// Configure задает секрет подписи и время жизни токенов
func Configure(jwtSecret string, ttl time.Duration) {
	secret = []byte(jwtSecret)
	if ttl > 0 {
		tokenTTL = ttl
	}
}

func IssueToken(accountID string, role models.UserRole) (string, error) {
	if len(secret) == 0 {
		return "", ErrNotConfigured
	}

	now := time.Now()
	claims := Claims{
		AccountID: accountID,
		Role:      role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   accountID,
			Issuer:    defaultTokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenTTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

func ParseToken(tokenStr string) (*Claims, error) {
	if len(secret) == 0 {
		return nil, ErrNotConfigured
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid || claims.AccountID == "" {
		return nil, ErrInvalidToken
	}
	if claims.Role == "" {
		claims.Role = models.UserRoleRequester
	}
	return claims, nil
}
