package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"riskmonitor/internal/models"
	"riskmonitor/internal/service"
)

// RiskHandler отвечает за чтение оценок риска
//
// Endpoints:
// - GET /api/v1/risk/{entity_type}/{entity_id} - текущая оценка
// - GET /api/v1/risk/{entity_type}/{entity_id}/history - история изменений
// - GET /api/v1/risk/{entity_type}/{entity_id}/explanation - объяснение оценки
// - POST /api/v1/risk/{entity_type}/{entity_id}/monitor - постановка на мониторинг
// - DELETE /api/v1/risk/{entity_type}/{entity_id}/monitor - снятие с мониторинга
//
// Назначение:
// Обрабатывает запросы дашборда к композитным оценкам: актуальный скор
// с разложением по факторам, пагинированная история пересчетов и
// человекочитаемое объяснение с рекомендациями.
type RiskHandler struct {
	riskService service.RiskServiceInterface
}

// NewRiskHandler создает новый RiskHandler с внедрением зависимости
func NewRiskHandler(riskService service.RiskServiceInterface) *RiskHandler {
	return &RiskHandler{
		riskService: riskService,
	}
}

// GetAssessment возвращает текущую оценку риска сущности
//
// GET /api/v1/risk/{entity_type}/{entity_id}
//
// Просроченная по TTL оценка отдается как есть: пересчет ставится
// в очередь, клиент получит свежий скор на следующем запросе.
//
// HTTP коды:
// - 200 OK: активная оценка
// - 400 Bad Request: неизвестный тип сущности или пустой ID
// - 404 Not Found: сущность ни разу не оценивалась
func (h *RiskHandler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	assessment, err := h.riskService.GetAssessment(vars["entity_type"], vars["entity_id"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, r, http.StatusOK, assessment)
}

// HistoryResponse представляет ответ истории оценок
type HistoryResponse struct {
	History []*models.AssessmentHistory `json:"history"`
	Limit   int                         `json:"limit"`
	Offset  int                         `json:"offset"`
}

// GetHistory возвращает историю изменений оценки
//
// GET /api/v1/risk/{entity_type}/{entity_id}/history
//
// Query параметры:
// - limit (int): количество записей (по умолчанию 100, максимум 500)
// - offset (int): смещение для пагинации
// - from, to (RFC3339): временной диапазон
//
// HTTP коды:
// - 200 OK: массив записей истории (может быть пустым)
// - 400 Bad Request: невалидные параметры
func (h *RiskHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	filter, err := parseAssessmentFilter(r)
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, err.Error())
		return
	}

	history, err := h.riskService.GetHistory(vars["entity_type"], vars["entity_id"], filter)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	filter.Normalize()
	respondData(w, r, http.StatusOK, HistoryResponse{
		History: history,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	})
}

// ExplainAssessment возвращает объяснение текущей оценки
//
// GET /api/v1/risk/{entity_type}/{entity_id}/explanation
//
// Объяснение строится из активной оценки: ранжированные факторы
// с вкладом в композитный скор, текстовое summary и рекомендации.
//
// HTTP коды:
// - 200 OK: объяснение
// - 404 Not Found: сущность ни разу не оценивалась
func (h *RiskHandler) ExplainAssessment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	explanation, err := h.riskService.ExplainAssessment(vars["entity_type"], vars["entity_id"])
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, r, http.StatusOK, explanation)
}

// MonitorRequest - тело запроса постановки на мониторинг
type MonitorRequest struct {
	UserAddress string `json:"user_address"`
}

// MonitorResponse - подтверждение операции мониторинга
type MonitorResponse struct {
	Message string `json:"message"`
}

// RequestAssessment ставит сущность на мониторинг и запускает оценку
//
// POST /api/v1/risk/{entity_type}/{entity_id}/monitor
//
// Тело запроса: {"user_address": "0x..."}
//
// Сущность попадает в периодический пересчет, первая оценка
// выполняется немедленно (вне планового тика).
//
// HTTP коды:
// - 202 Accepted: оценка поставлена в очередь
// - 400 Bad Request: невалидная сущность или пустой адрес
func (h *RiskHandler) RequestAssessment(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req MonitorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "invalid request body")
		return
	}
	if req.UserAddress == "" {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "user_address is required")
		return
	}

	if err := h.riskService.RequestAssessment(vars["entity_type"], vars["entity_id"], req.UserAddress); err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, r, http.StatusAccepted, MonitorResponse{
		Message: "assessment queued",
	})
}

// StopMonitoring снимает регистрацию пользователя с сущности
//
// DELETE /api/v1/risk/{entity_type}/{entity_id}/monitor?user_address=0x...
//
// История оценок сохраняется. Пересчеты прекращаются только когда
// с сущности снялся последний подписчик.
//
// HTTP коды:
// - 200 OK: регистрация снята
// - 400 Bad Request: невалидная сущность или пустой user_address
func (h *RiskHandler) StopMonitoring(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	userAddress := r.URL.Query().Get("user_address")
	if userAddress == "" {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "user_address is required")
		return
	}

	if err := h.riskService.StopMonitoring(vars["entity_type"], vars["entity_id"], userAddress); err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, r, http.StatusOK, MonitorResponse{
		Message: "monitoring stopped",
	})
}

// parseAssessmentFilter разбирает query параметры истории оценок
func parseAssessmentFilter(r *http.Request) (models.AssessmentFilter, error) {
	var filter models.AssessmentFilter
	q := r.URL.Query()

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
	if v := q.Get("from"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errInvalidParam("from")
		}
		filter.From = &parsed
	}
	if v := q.Get("to"); v != "" {
		parsed, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return filter, errInvalidParam("to")
		}
		filter.To = &parsed
	}

	return filter, nil
}
