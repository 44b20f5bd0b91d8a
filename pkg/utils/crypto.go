package utils

import (
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// HashPassword hashes a site account password with bcrypt
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

// VerifyPassword checks a plaintext password against a bcrypt hash
func VerifyPassword(password, hashedPassword string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hashedPassword), []byte(password)) == nil
}

// MaskString mask string (for sensitive information display)
func MaskString(str string, start, end int, mask rune) string {
	if len(str) <= start+end {
		return strings.Repeat(string(mask), len(str))
	}

	runes := []rune(str)
	for i := start; i < len(runes)-end; i++ {
		runes[i] = mask
	}
	return string(runes)
}

// MaskCPF mask a brazilian CPF keeping first and last digits visible
func MaskCPF(cpf string) string {
	if len(cpf) != 11 {
		return cpf
	}
	return MaskString(cpf, 3, 2, '*')
}

// MaskEmail mask email
func MaskEmail(email string) string {
	parts := strings.Split(email, "@")
	if len(parts) != 2 {
		return email
	}

	username := parts[0]
	domain := parts[1]

	if len(username) <= 2 {
		return strings.Repeat("*", len(username)) + "@" + domain
	}

	maskedUsername := MaskString(username, 1, 1, '*')
	return maskedUsername + "@" + domain
}
