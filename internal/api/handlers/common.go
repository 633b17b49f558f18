package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	jsoniter "github.com/json-iterator/go"

	"riskmonitor/internal/api/middleware"
	"riskmonitor/internal/models"
	"riskmonitor/internal/repository"
	"riskmonitor/internal/service"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Коды ошибок API. Клиенты различают ошибки по коду, не по HTTP статусу.
const (
	CodeValidation = "VALIDATION_ERROR"
	CodeConfig     = "CONFIG_ERROR"
	CodeNotFound   = "NOT_FOUND"
	CodeInternal   = "INTERNAL_ERROR"
)

// Response - envelope всех успешных ответов API
type Response struct {
	Data      interface{} `json:"data"`
	Timestamp time.Time   `json:"timestamp"`
	RequestID string      `json:"request_id"`
}

// APIError - тело ошибки
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ErrorResponse - envelope ответа об ошибке
type ErrorResponse struct {
	Error     APIError  `json:"error"`
	Timestamp time.Time `json:"timestamp"`
	RequestID string    `json:"request_id"`
}

// respondData отправляет успешный ответ в стандартном envelope
func respondData(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	writeJSON(w, status, Response{
		Data:      data,
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(r.Context()),
	})
}

// respondError отправляет ошибку в стандартном envelope
func respondError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{
		Error:     APIError{Code: code, Message: message},
		Timestamp: time.Now().UTC(),
		RequestID: middleware.GetRequestID(r.Context()),
	})
}

// errInvalidParam - ошибка разбора query параметра
func errInvalidParam(name string) error {
	return fmt.Errorf("invalid query parameter %q", name)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// respondServiceError транслирует ошибку сервисного слоя в HTTP ответ.
//
// Ошибки валидации входа → 400 VALIDATION_ERROR,
// ошибки профиля риска → 400 CONFIG_ERROR,
// отсутствующие и чужие ресурсы → 404 NOT_FOUND (владение не раскрывается),
// все остальное → 500 INTERNAL_ERROR без деталей.
func respondServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case isValidationError(err):
		respondError(w, r, http.StatusBadRequest, CodeValidation, err.Error())
	case isConfigError(err):
		respondError(w, r, http.StatusBadRequest, CodeConfig, err.Error())
	case isNotFoundError(err):
		respondError(w, r, http.StatusNotFound, CodeNotFound, "resource not found")
	default:
		respondError(w, r, http.StatusInternalServerError, CodeInternal, "internal server error")
	}
}

func isValidationError(err error) bool {
	for _, target := range []error{
		service.ErrInvalidEntityType,
		service.ErrEntityIDEmpty,
		service.ErrUserAddressEmpty,
		service.ErrInvalidMetric,
		service.ErrInvalidOperator,
		service.ErrThresholdValueRange,
		service.ErrInvalidChannelKind,
		service.ErrInvalidChannelTarget,
		service.ErrSecretTooShort,
		service.ErrProfileNameEmpty,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isConfigError(err error) bool {
	for _, target := range []error{
		models.ErrWeightSum,
		models.ErrWeightOutOfRange,
		models.ErrUnknownTolerance,
		models.ErrThresholdOutOfBand,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func isNotFoundError(err error) bool {
	for _, target := range []error{
		service.ErrAssessmentNotFound,
		service.ErrNotOwner,
		repository.ErrAssessmentNotFound,
		repository.ErrConfigNotFound,
		repository.ErrThresholdNotFound,
		repository.ErrAlertNotFound,
		repository.ErrChannelNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
