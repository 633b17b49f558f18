package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"riskmonitor/internal/models"
	"riskmonitor/internal/service"
)

// ConfigHandler отвечает за управление профилями риска
//
// Endpoints:
// - GET /api/v1/configs?user_address=0x... - профили пользователя
// - GET /api/v1/configs/active?user_address=0x... - активный профиль
// - POST /api/v1/configs - создание профиля
// - POST /api/v1/configs/template - создание из шаблона толерантности
// - PATCH /api/v1/configs/{id} - обновление профиля
// - POST /api/v1/configs/{id}/activate - активация профиля
// - DELETE /api/v1/configs/{id}?user_address=0x... - удаление профиля
//
// Назначение:
// Профиль задает веса факторов и параметры движков. Веса обязаны
// давать в сумме 1.0: невалидный профиль отклоняется целиком,
// авто-нормализация не выполняется. У пользователя не более одного
// активного профиля.
type ConfigHandler struct {
	configService service.ConfigServiceInterface
}

// NewConfigHandler создает новый ConfigHandler с внедрением зависимости
func NewConfigHandler(configService service.ConfigServiceInterface) *ConfigHandler {
	return &ConfigHandler{
		configService: configService,
	}
}

// ConfigsResponse представляет список профилей
type ConfigsResponse struct {
	Configs []*models.RiskConfig `json:"configs"`
	Total   int                  `json:"total"`
}

// GetConfigs возвращает все профили пользователя
//
// GET /api/v1/configs?user_address=0x...
func (h *ConfigHandler) GetConfigs(w http.ResponseWriter, r *http.Request) {
	userAddress := r.URL.Query().Get("user_address")
	if userAddress == "" {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "user_address is required")
		return
	}

	configs, err := h.configService.GetConfigs(userAddress)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, r, http.StatusOK, ConfigsResponse{
		Configs: configs,
		Total:   len(configs),
	})
}

// GetActiveConfig возвращает активный профиль пользователя
//
// GET /api/v1/configs/active?user_address=0x...
//
// HTTP коды:
// - 200 OK: активный профиль
// - 404 Not Found: у пользователя нет активного профиля
func (h *ConfigHandler) GetActiveConfig(w http.ResponseWriter, r *http.Request) {
	userAddress := r.URL.Query().Get("user_address")
	if userAddress == "" {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "user_address is required")
		return
	}

	config, err := h.configService.GetActiveConfig(userAddress)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, r, http.StatusOK, config)
}

// CreateConfig создает профиль с пользовательскими весами
//
// POST /api/v1/configs
//
// Тело запроса: JSON модели профиля. Веса проверяются fail-closed:
// сумма вне 1.0 ± 0.01 отклоняет запрос с CONFIG_ERROR.
//
// HTTP коды:
// - 201 Created: профиль создан
// - 400 Bad Request (CONFIG_ERROR): невалидные веса или толерантность
func (h *ConfigHandler) CreateConfig(w http.ResponseWriter, r *http.Request) {
	var config models.RiskConfig
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "invalid request body")
		return
	}

	if err := h.configService.CreateConfig(&config); err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, r, http.StatusCreated, &config)
}

// TemplateRequest - тело запроса создания профиля из шаблона
type TemplateRequest struct {
	UserAddress string `json:"user_address"`
	Tolerance   string `json:"tolerance"`
}

// CreateFromTemplate создает профиль из шаблона толерантности
//
// POST /api/v1/configs/template
//
// Тело запроса: {"user_address": "0x...", "tolerance": "conservative|moderate|aggressive|custom"}
//
// Созданный профиль неактивен, активация выполняется отдельным запросом.
//
// HTTP коды:
// - 201 Created: профиль создан из шаблона
// - 400 Bad Request (CONFIG_ERROR): неизвестный уровень толерантности
func (h *ConfigHandler) CreateFromTemplate(w http.ResponseWriter, r *http.Request) {
	var req TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "invalid request body")
		return
	}
	if req.UserAddress == "" {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "user_address is required")
		return
	}

	config, err := h.configService.CreateFromTemplate(req.UserAddress, req.Tolerance)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, r, http.StatusCreated, config)
}

// UpdateConfig обновляет профиль
//
// PATCH /api/v1/configs/{id}
//
// HTTP коды:
// - 200 OK: профиль обновлен
// - 400 Bad Request (CONFIG_ERROR): невалидные веса
// - 404 Not Found: профиль не существует или чужой
func (h *ConfigHandler) UpdateConfig(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "invalid config id")
		return
	}

	var config models.RiskConfig
	if err := json.NewDecoder(r.Body).Decode(&config); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "invalid request body")
		return
	}
	config.ID = id

	if err := h.configService.UpdateConfig(&config); err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, r, http.StatusOK, &config)
}

// ActivateRequest - тело запроса активации профиля
type ActivateRequest struct {
	UserAddress string `json:"user_address"`
}

// ActivateConfig делает профиль активным
//
// POST /api/v1/configs/{id}/activate
//
// Предыдущий активный профиль деактивируется в той же транзакции.
// Изменение влияет на следующий пересчет, активные расчеты
// завершаются со старым профилем.
//
// HTTP коды:
// - 200 OK: профиль активирован
// - 404 Not Found: профиль не существует или чужой
func (h *ConfigHandler) ActivateConfig(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "invalid config id")
		return
	}

	var req ActivateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "invalid request body")
		return
	}
	if req.UserAddress == "" {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "user_address is required")
		return
	}

	if err := h.configService.ActivateConfig(id, req.UserAddress); err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, r, http.StatusOK, map[string]string{"message": "config activated"})
}

// DeleteConfig удаляет профиль
//
// DELETE /api/v1/configs/{id}?user_address=0x...
func (h *ConfigHandler) DeleteConfig(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "invalid config id")
		return
	}

	userAddress := r.URL.Query().Get("user_address")
	if userAddress == "" {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "user_address is required")
		return
	}

	if err := h.configService.DeleteConfig(id, userAddress); err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, r, http.StatusOK, map[string]string{"message": "config deleted"})
}
