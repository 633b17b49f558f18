package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"riskmonitor/internal/models"
	"riskmonitor/internal/service"
)

// ThresholdHandler отвечает за управление пользовательскими порогами
//
// Endpoints:
// - GET /api/v1/thresholds?user_address=0x... - список порогов пользователя
// - POST /api/v1/thresholds - создание порога
// - PATCH /api/v1/thresholds/{id} - обновление порога
// - DELETE /api/v1/thresholds/{id}?user_address=0x... - удаление порога
//
// Назначение:
// Пороги определяют, при каких значениях метрик создаются алерты.
// Порог с entity_id привязан к конкретной сущности и автоматически
// ставит ее на мониторинг, без entity_id действует на все сущности
// пользователя данного типа.
type ThresholdHandler struct {
	thresholdService service.ThresholdServiceInterface
}

// NewThresholdHandler создает новый ThresholdHandler с внедрением зависимости
func NewThresholdHandler(thresholdService service.ThresholdServiceInterface) *ThresholdHandler {
	return &ThresholdHandler{
		thresholdService: thresholdService,
	}
}

// ThresholdsResponse представляет список порогов
type ThresholdsResponse struct {
	Thresholds []*models.AlertThreshold `json:"thresholds"`
	Total      int                      `json:"total"`
}

// GetThresholds возвращает пороги пользователя
//
// GET /api/v1/thresholds?user_address=0x...
//
// HTTP коды:
// - 200 OK: массив порогов (может быть пустым)
// - 400 Bad Request: не указан user_address
func (h *ThresholdHandler) GetThresholds(w http.ResponseWriter, r *http.Request) {
	userAddress := r.URL.Query().Get("user_address")

	thresholds, err := h.thresholdService.GetThresholds(userAddress)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, r, http.StatusOK, ThresholdsResponse{
		Thresholds: thresholds,
		Total:      len(thresholds),
	})
}

// CreateThreshold создает новый порог
//
// POST /api/v1/thresholds
//
// Тело запроса: JSON модели порога (metric, operator, threshold_value,
// entity_type, опциональный entity_id, user_address).
//
// HTTP коды:
// - 201 Created: порог создан, в ответе модель с присвоенным ID
// - 400 Bad Request: невалидная метрика, оператор или значение
func (h *ThresholdHandler) CreateThreshold(w http.ResponseWriter, r *http.Request) {
	var threshold models.AlertThreshold
	if err := json.NewDecoder(r.Body).Decode(&threshold); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "invalid request body")
		return
	}

	if err := h.thresholdService.CreateThreshold(&threshold); err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, r, http.StatusCreated, &threshold)
}

// UpdateThreshold обновляет существующий порог
//
// PATCH /api/v1/thresholds/{id}
//
// Обновлять чужой порог нельзя: владение проверяется по user_address
// из тела запроса.
//
// HTTP коды:
// - 200 OK: порог обновлен
// - 400 Bad Request: невалидные поля
// - 404 Not Found: порог не существует или принадлежит другому пользователю
func (h *ThresholdHandler) UpdateThreshold(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "invalid threshold id")
		return
	}

	var threshold models.AlertThreshold
	if err := json.NewDecoder(r.Body).Decode(&threshold); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "invalid request body")
		return
	}
	threshold.ID = id

	if err := h.thresholdService.UpdateThreshold(&threshold); err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, r, http.StatusOK, &threshold)
}

// DeleteThreshold удаляет порог
//
// DELETE /api/v1/thresholds/{id}?user_address=0x...
//
// HTTP коды:
// - 200 OK: порог удален
// - 400 Bad Request: невалидный ID или пустой user_address
// - 404 Not Found: порог не существует или чужой
func (h *ThresholdHandler) DeleteThreshold(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "invalid threshold id")
		return
	}

	userAddress := r.URL.Query().Get("user_address")
	if userAddress == "" {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "user_address is required")
		return
	}

	if err := h.thresholdService.DeleteThreshold(id, userAddress); err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, r, http.StatusOK, map[string]string{"message": "threshold deleted"})
}
