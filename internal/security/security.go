// Package security concentra hashing de credenciais e geração de tokens de sessão.
package security

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// HashCredential gera o hash bcrypt (com salt) de uma credencial em texto puro.
func HashCredential(credential string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(credential), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash credential: %w", err)
	}
	return string(hashed), nil
}

// CheckCredential compara em tempo constante. Hash vazio ou malformado nunca confere.
func CheckCredential(hashed, credential string) bool {
	if hashed == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(credential)) == nil
}

// NewToken devolve um token opaco e imprevisível (uuid v4, 122 bits aleatórios).
func NewToken() string {
	return uuid.NewString()
}

// HashToken é o que fica no storage: quem lê o arquivo ou a tabela não consegue se passar pelo usuário.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
