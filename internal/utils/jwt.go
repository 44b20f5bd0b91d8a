package utils

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// LinkClaims carries the telegram identity embedded in account-link
// tokens. The companion site validates the token on signup so a fresh
// web account arrives pre-linked to the telegram user.
type LinkClaims struct {
	TelegramID int64  `json:"telegram_id"`
	Username   string `json:"username"`
	jwt.RegisteredClaims
}

// JWTManager signs and validates account-link tokens
type JWTManager struct {
	secretKey []byte
	issuer    string
	expire    time.Duration
}

// NewJWTManager creates a new JWT manager
func NewJWTManager(secretKey, issuer string, expire time.Duration) *JWTManager {
	return &JWTManager{
		secretKey: []byte(secretKey),
		issuer:    issuer,
		expire:    expire,
	}
}

// GenerateLinkToken generates a signed token tying a signup to a
// telegram account
func (m *JWTManager) GenerateLinkToken(telegramID int64, username string) (string, error) {
	now := time.Now()
	claims := &LinkClaims{
		TelegramID: telegramID,
		Username:   username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   username,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.expire)),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secretKey)
}

// ValidateLinkToken validates a token and returns its claims
func (m *JWTManager) ValidateLinkToken(tokenString string) (*LinkClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &LinkClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return m.secretKey, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*LinkClaims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}
