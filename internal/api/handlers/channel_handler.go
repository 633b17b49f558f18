package handlers

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"riskmonitor/internal/models"
	"riskmonitor/internal/service"
)

// ChannelHandler отвечает за каналы доставки алертов
//
// Endpoints:
// - GET /api/v1/channels?user_address=0x... - каналы пользователя
// - POST /api/v1/channels - создание канала
// - PATCH /api/v1/channels/{id} - обновление канала
// - DELETE /api/v1/channels/{id}?user_address=0x... - удаление канала
//
// Назначение:
// Канал определяет, куда доставляются алерты: вебхук, почта или
// чат-вебхук. Секрет подписи принимается открытым текстом в теле
// запроса, хранится зашифрованным и никогда не возвращается в ответах.
type ChannelHandler struct {
	channelService service.ChannelServiceInterface
}

// NewChannelHandler создает новый ChannelHandler с внедрением зависимости
func NewChannelHandler(channelService service.ChannelServiceInterface) *ChannelHandler {
	return &ChannelHandler{
		channelService: channelService,
	}
}

// ChannelRequest - тело запроса создания/обновления канала.
// Secret передается отдельным полем и не является частью модели.
type ChannelRequest struct {
	models.NotificationChannel
	Secret string `json:"secret,omitempty"`
}

// ChannelsResponse представляет список каналов
type ChannelsResponse struct {
	Channels []*models.NotificationChannel `json:"channels"`
	Total    int                           `json:"total"`
}

// GetChannels возвращает каналы пользователя
//
// GET /api/v1/channels?user_address=0x...
func (h *ChannelHandler) GetChannels(w http.ResponseWriter, r *http.Request) {
	userAddress := r.URL.Query().Get("user_address")
	if userAddress == "" {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "user_address is required")
		return
	}

	channels, err := h.channelService.GetChannels(userAddress)
	if err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, r, http.StatusOK, ChannelsResponse{
		Channels: channels,
		Total:    len(channels),
	})
}

// CreateChannel создает канал доставки
//
// POST /api/v1/channels
//
// Тело запроса: модель канала плюс опциональное поле secret.
// Пустой секрет означает подпись глобальным секретом сервиса.
//
// HTTP коды:
// - 201 Created: канал создан
// - 400 Bad Request: невалидный вид канала, target или короткий секрет
func (h *ChannelHandler) CreateChannel(w http.ResponseWriter, r *http.Request) {
	var req ChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "invalid request body")
		return
	}

	if err := h.channelService.CreateChannel(&req.NotificationChannel, req.Secret); err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, r, http.StatusCreated, &req.NotificationChannel)
}

// UpdateChannel обновляет канал
//
// PATCH /api/v1/channels/{id}
//
// Пустой secret в теле сохраняет ранее установленный секрет.
//
// HTTP коды:
// - 200 OK: канал обновлен
// - 404 Not Found: канал не существует или чужой
func (h *ChannelHandler) UpdateChannel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "invalid channel id")
		return
	}

	var req ChannelRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "invalid request body")
		return
	}
	req.NotificationChannel.ID = id

	if err := h.channelService.UpdateChannel(&req.NotificationChannel, req.Secret); err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, r, http.StatusOK, &req.NotificationChannel)
}

// DeleteChannel удаляет канал
//
// DELETE /api/v1/channels/{id}?user_address=0x...
func (h *ChannelHandler) DeleteChannel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "invalid channel id")
		return
	}

	userAddress := r.URL.Query().Get("user_address")
	if userAddress == "" {
		respondError(w, r, http.StatusBadRequest, CodeValidation, "user_address is required")
		return
	}

	if err := h.channelService.DeleteChannel(id, userAddress); err != nil {
		respondServiceError(w, r, err)
		return
	}

	respondData(w, r, http.StatusOK, map[string]string{"message": "channel deleted"})
}
