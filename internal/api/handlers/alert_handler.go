package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"riskmonitor/internal/models"
	"riskmonitor/internal/service"
)

// AlertHandler отвечает за чтение и разрешение алертов
//
// Endpoints:
// - GET /api/v1/alerts?user_address=0x... - список алертов с фильтрами
// - GET /api/v1/alerts/{id}?user_address=0x... - один алерт
// - POST /api/v1/alerts/{id}/resolve - ручное разрешение
// - GET /api/v1/alerts/{id}/deliveries?user_address=0x... - попытки доставки
//
// Назначение:
// Алерты создаются пайплайном мониторинга при нарушении порогов,
// API дает только чтение и ручное разрешение. Создание алертов
// через API невозможно.
type AlertHandler struct {
	alertService service.AlertServiceInterface
}

// NewAlertHandler создает новый AlertHandler с внедрением зависимости
func NewAlertHandler(alertService service.AlertServiceInterface) *AlertHandler {
	return &AlertHandler{
		alertService: alertService,
	}
}

// AlertsResponse представляет список алертов
type AlertsResponse struct {
	Alerts []*models.Alert `json:"alerts"`
	Total  int             `json:"total"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// GetAlerts возвращает алерты пользователя с фильтрацией
//
// GET /api/v1/alerts
//
// Query параметры:
// - user_address (обязательный): владелец алертов
// - entity_id: фильтр по сущности
// - severity: фильтр по уровню (low, medium, high, critical)
// - resolved (bool): только разрешенные / только открытые
// - limit (int): количество записей (по умолчанию 50, максимум 200)
// - offset (int): смещение для пагинации
//
// HTTP коды:
// - 200 OK: массив алертов (может быть пустым)
// - 400 Bad Request: не указан user_address или невалидные параметры
func (h *AlertHandler) GetAlerts(w http.ResponseWriter, r *http.Request) {
	filter, err := parseAlertFilter(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, err.Error())
		return
	}

	alerts, err := h.alertService.GetAlerts(filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	filter.Normalize()
	respondData(w, r, http.StatusOK, AlertsResponse{
		Alerts: alerts,
		Total:  len(alerts),
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
}

// GetAlert возвращает один алерт
//
// GET /api/v1/alerts/{id}?user_address=0x...
//
// HTTP коды:
// - 200 OK: алерт
// - 404 Not Found: алерт не существует или чужой
func (h *AlertHandler) GetAlert(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "invalid alert id")
		return
	}

	alert, err := h.alertService.GetAlert(id, r.URL.Query().Get("user_address"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, r, http.StatusOK, alert)
}

// ResolveRequest - тело запроса ручного разрешения
type ResolveRequest struct {
	UserAddress string `json:"user_address"`
}

// ResolveAlert разрешает алерт вручную
//
// POST /api/v1/alerts/{id}/resolve
//
// Тело запроса: {"user_address": "0x..."}
//
// Разрешенный алерт получает resolved_by="user". Если метрика
// снова нарушит порог, будет создан новый алерт.
//
// HTTP коды:
// - 200 OK: алерт разрешен
// - 404 Not Found: алерт не существует или чужой
func (h *AlertHandler) ResolveAlert(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "invalid alert id")
		return
	}

	var req ResolveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "invalid request body")
		return
	}
	if req.UserAddress == "" {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "user_address is required")
		return
	}

	if err := h.alertService.ResolveAlert(id, req.UserAddress); err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, r, http.StatusOK, map[string]string{"message": "alert resolved"})
}

// DeliveriesResponse представляет журнал доставки алерта
type DeliveriesResponse struct {
	Attempts []*models.DeliveryAttempt `json:"attempts"`
	Total    int                       `json:"total"`
}

// GetDeliveryAttempts возвращает попытки доставки алерта по каналам
//
// GET /api/v1/alerts/{id}/deliveries?user_address=0x...
//
// HTTP коды:
// - 200 OK: массив попыток (может быть пустым)
// - 404 Not Found: алерт не существует или чужой
func (h *AlertHandler) GetDeliveryAttempts(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "invalid alert id")
		return
	}

	attempts, err := h.alertService.GetDeliveryAttempts(id, r.URL.Query().Get("user_address"))
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, r, http.StatusOK, DeliveriesResponse{
		Attempts: attempts,
		Total:    len(attempts),
	})
}

// parseAlertFilter разбирает query параметры выборки алертов
func parseAlertFilter(r *http.Request) (models.AlertFilter, error) {
	q := r.URL.Query()
	filter := models.AlertFilter{
		UserAddress: q.Get("user_address"),
		EntityID:    q.Get("entity_id"),
		Severity:    q.Get("severity"),
	}

	if v := q.Get("resolved"); v != "" {
		parsed, err := strconv.ParseBool(v)
		if err != nil {
			return filter, errInvalidParam("resolved")
		}
		filter.Resolved = &parsed
	}
	if v := q.Get("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return filter, errInvalidParam("limit")
		}
		filter.Limit = parsed
	}
	if v := q.Get("offset"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil {
			return filter, errInvalidParam("offset")
		}
		filter.Offset = parsed
	}

	return filter, nil
}
