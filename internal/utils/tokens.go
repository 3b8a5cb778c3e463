package utils

import (
	"crypto/rand"
	"encoding/hex"
)

// NewRefreshToken — непрозрачный refresh-токен: nBytes случайных байт в hex.
// Хранится в профиле и сверяется при ротации, в JWT не попадает.
func NewRefreshToken(nBytes int) (string, error) {
	if nBytes <= 0 {
		nBytes = 32 // 256 бит по умолчанию
	}
	b := make([]byte, nBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
