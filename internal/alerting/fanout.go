package alerting

import (
	"riskmonitor/internal/models"
)

// AlertBroadcaster рассылает событие алерта подключенным
// WebSocket клиентам
type AlertBroadcaster interface {
	BroadcastAlert(alert *models.Alert, eventType string)
}

// FanoutDispatcher ставит уведомление в очередь вебхуков и
// одновременно рассылает событие по WebSocket. Рассылка
// неблокирующая и не влияет на результат постановки в очередь:
// webhook-доставка с retry остается единственным гарантированным
// каналом, WebSocket - best effort.
type FanoutDispatcher struct {
	primary     Dispatcher
	broadcaster AlertBroadcaster
}

func NewFanoutDispatcher(primary Dispatcher, broadcaster AlertBroadcaster) *FanoutDispatcher {
	return &FanoutDispatcher{primary: primary, broadcaster: broadcaster}
}

// Enqueue реализует Dispatcher
func (f *FanoutDispatcher) Enqueue(alert *models.Alert, eventType string, metrics map[string]float64) bool {
	if f.broadcaster != nil {
		f.broadcaster.BroadcastAlert(alert, eventType)
	}
	if f.primary == nil {
		return true
	}
	return f.primary.Enqueue(alert, eventType, metrics)
}
