package utils

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// validator.go - валидация входных данных
//
// Назначение:
// Проверка корректности идентификаторов и параметров, приходящих
// через API и конфигурацию.
//
// Функции:
// - ValidateAddress: EVM-адрес (0x + 40 hex символов)
// - ValidateEntityID: непустой идентификатор сущности
// - ValidateProfileName: имя профиля риска
// - ValidateScore: значение скора в [0,1]
// - ValidateWebhookURL: https URL для доставки

var (
	ErrEmptyValue     = errors.New("value must not be empty")
	ErrInvalidAddress = errors.New("invalid EVM address")
	ErrInvalidScore   = errors.New("score must be in [0,1]")
	ErrInvalidURL     = errors.New("invalid webhook url")
)

var addressRe = regexp.MustCompile(`^0x[0-9a-fA-F]{40}$`)

// ValidateAddress проверяет формат EVM-адреса
func ValidateAddress(addr string) error {
	if addr == "" {
		return fmt.Errorf("%w: address", ErrEmptyValue)
	}
	if !addressRe.MatchString(addr) {
		return fmt.Errorf("%w: %q", ErrInvalidAddress, addr)
	}
	return nil
}

// ValidateEntityID проверяет идентификатор сущности.
// Допускаются адреса, UUID и составные идентификаторы пулов,
// поэтому проверка ограничивается длиной и печатностью.
func ValidateEntityID(id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: entity_id", ErrEmptyValue)
	}
	if len(id) > 128 {
		return fmt.Errorf("entity_id too long: %d chars", len(id))
	}
	for _, r := range id {
		if r < 0x21 || r > 0x7e {
			return fmt.Errorf("entity_id contains invalid character %q", r)
		}
	}
	return nil
}

// ValidateProfileName проверяет имя профиля риска
func ValidateProfileName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: profile_name", ErrEmptyValue)
	}
	if len(name) > 64 {
		return fmt.Errorf("profile_name too long: %d chars", len(name))
	}
	return nil
}

// ValidateScore проверяет значение скора
func ValidateScore(score float64) error {
	if score < 0 || score > 1 {
		return fmt.Errorf("%w: got %v", ErrInvalidScore, score)
	}
	return nil
}

// ValidateWebhookURL проверяет URL доставки.
// Разрешен только https; http допустим для localhost.
func ValidateWebhookURL(rawURL string) error {
	if rawURL == "" {
		return fmt.Errorf("%w: url", ErrEmptyValue)
	}
	if strings.HasPrefix(rawURL, "https://") {
		return nil
	}
	if strings.HasPrefix(rawURL, "http://localhost") || strings.HasPrefix(rawURL, "http://127.0.0.1") {
		return nil
	}
	return fmt.Errorf("%w: %q", ErrInvalidURL, rawURL)
}
