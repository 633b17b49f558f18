package websocket

import (
	"bytes"
	"sync"
	"sync/atomic"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"riskmonitor/internal/models"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ============ ОПТИМИЗАЦИЯ: sync.Pool для JSON буферов ============
// Убирает аллокации при каждом Broadcast

var jsonBufferPool = sync.Pool{
	New: func() interface{} {
		return bytes.NewBuffer(make([]byte, 0, 512)) // начальный размер 512 байт
	},
}

// Hub управляет всеми активными WebSocket соединениями
//
// Назначение:
// Центральный менеджер для broadcast сообщений всем подключенным клиентам.
// Обеспечивает real-time поток оценок и алертов без необходимости polling.
//
// Функции:
// - Регистрация новых WebSocket клиентов
// - Отмена регистрации отключенных клиентов
// - Broadcast сообщений всем активным клиентам
// - Маршрутизация сообщений по типам (assessmentUpdate, alert, sourceStatus)
// - Очистка отключенных и медленных соединений
// - Потокобезопасная работа с клиентами (sync.RWMutex)
//
// Использование:
// 1. Создать hub: hub := NewHub(logger)
// 2. Запустить в горутине: go hub.Run()
// 3. Отправлять сообщения: hub.BroadcastAssessment(a)
type Hub struct {
	// Зарегистрированные клиенты
	clients map[*Client]bool

	// Broadcast канал для отправки сообщений всем клиентам
	broadcast chan []byte

	// Регистрация нового клиента
	register chan *Client

	// Отмена регистрации клиента
	unregister chan *Client

	// Сигнал остановки главного цикла
	done chan struct{}

	// Счетчик сообщений, отброшенных при переполнении broadcast канала
	dropped atomic.Int64

	// Mutex для потокобезопасного доступа к clients
	mu sync.RWMutex

	logger *zap.Logger
}

// NewHub создает новый Hub
func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		broadcast:  make(chan []byte, 256),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		logger:     logger,
	}
}

// Run запускает главный цикл Hub
//
// Должен запускаться в отдельной горутине: go hub.Run()
// Обрабатывает регистрацию, отмену регистрации и broadcast.
//
// Отправка клиентам идет без удержания Lock: список копируется под
// коротким RLock, медленные клиенты удаляются отдельным Write Lock.
func (h *Hub) Run() {
	for {
		select {
		case <-h.done:
			h.mu.Lock()
			for client := range h.clients {
				delete(h.clients, client)
				close(client.send)
			}
			h.mu.Unlock()
			return

		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("websocket client connected", zap.Int("total", total))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.send)
			}
			total := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("websocket client disconnected", zap.Int("total", total))

		case message := <-h.broadcast:
			h.mu.RLock()
			clients := make([]*Client, 0, len(h.clients))
			for client := range h.clients {
				clients = append(clients, client)
			}
			h.mu.RUnlock()

			// Отправляем без блокировки (не задерживаем register/unregister)
			var toRemove []*Client
			for _, client := range clients {
				select {
				case client.send <- message:
				default:
					// Клиент не успевает читать - помечаем для удаления
					toRemove = append(toRemove, client)
				}
			}

			if len(toRemove) > 0 {
				h.mu.Lock()
				for _, client := range toRemove {
					if _, ok := h.clients[client]; ok {
						delete(h.clients, client)
						close(client.send)
					}
				}
				total := len(h.clients)
				h.mu.Unlock()
				h.logger.Warn("removed slow websocket clients",
					zap.Int("removed", len(toRemove)),
					zap.Int("total", total))
			}
		}
	}
}

// Stop останавливает главный цикл и закрывает все соединения
func (h *Hub) Stop() {
	close(h.done)
}

// Broadcast сериализует и отправляет сообщение всем подключенным клиентам
//
// Неблокирующий: при переполнении broadcast канала сообщение
// отбрасывается, счетчик dropped инкрементируется. Поток оценок
// идет непрерывно, потерянное обновление заменит следующее.
func (h *Hub) Broadcast(message interface{}) {
	buf := jsonBufferPool.Get().(*bytes.Buffer)
	buf.Reset()

	if err := json.NewEncoder(buf).Encode(message); err != nil {
		h.logger.Error("marshal broadcast message", zap.Error(err))
		jsonBufferPool.Put(buf)
		return
	}

	// Убираем trailing newline от Encode
	data := buf.Bytes()
	if len(data) > 0 && data[len(data)-1] == '\n' {
		data = data[:len(data)-1]
	}

	// Копируем данные (буфер вернется в пул)
	msgCopy := make([]byte, len(data))
	copy(msgCopy, data)

	jsonBufferPool.Put(buf)

	h.BroadcastRaw(msgCopy)
}

// BroadcastRaw отправляет уже сериализованное сообщение
func (h *Hub) BroadcastRaw(data []byte) {
	select {
	case h.broadcast <- data:
	default:
		h.dropped.Add(1)
	}
}

// BroadcastAssessment отправляет новую оценку риска
func (h *Hub) BroadcastAssessment(a *models.RiskAssessment) {
	h.Broadcast(NewAssessmentUpdateMessage(a))
}

// BroadcastAlert отправляет событие жизненного цикла алерта
func (h *Hub) BroadcastAlert(alert *models.Alert, eventType string) {
	h.Broadcast(NewAlertMessage(alert, eventType))
}

// BroadcastSourceStatus отправляет изменение состояния источника данных
func (h *Hub) BroadcastSourceStatus(source string, healthy bool, errText string) {
	h.Broadcast(NewSourceStatusMessage(source, healthy, errText))
}

// ClientCount возвращает количество подключенных клиентов
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// DroppedMessages возвращает количество отброшенных сообщений
func (h *Hub) DroppedMessages() int64 {
	return h.dropped.Load()
}
