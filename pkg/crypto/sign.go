package crypto

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
)

// Ошибки подписи
var (
	ErrEmptySecret = errors.New("signing secret must not be empty")
)

// Sign вычисляет HMAC-SHA256 подпись payload и возвращает ее
// hex-строкой. Подпись уходит в поле signature тела вебхука,
// получатель пересчитывает ее тем же секретом по остальным полям.
func Sign(payload []byte, secret string) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// VerifySignature проверяет подпись в constant time.
// Невалидный hex или пустой секрет дают false.
func VerifySignature(payload []byte, secret, signature string) bool {
	expected, err := Sign(payload, secret)
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(signature)
	if err != nil {
		return false
	}
	want, _ := hex.DecodeString(expected)
	return hmac.Equal(got, want)
}
