package monitor

import (
	"riskmonitor/internal/models"
)

// AssessmentBroadcaster рассылает сохраненную оценку подключенным
// WebSocket клиентам
type AssessmentBroadcaster interface {
	BroadcastAssessment(a *models.RiskAssessment)
}

// BroadcastingStore оборачивает хранилище оценок: после успешной
// записи оценка уходит WebSocket клиентам. Клиенты видят только
// то, что реально записано - при сбое записи рассылки нет.
type BroadcastingStore struct {
	AssessmentStore
	broadcaster AssessmentBroadcaster
}

func NewBroadcastingStore(store AssessmentStore, broadcaster AssessmentBroadcaster) *BroadcastingStore {
	return &BroadcastingStore{AssessmentStore: store, broadcaster: broadcaster}
}

// Save реализует AssessmentStore
func (s *BroadcastingStore) Save(a *models.RiskAssessment, changeReason string) error {
	if err := s.AssessmentStore.Save(a, changeReason); err != nil {
		return err
	}
	if s.broadcaster != nil {
		s.broadcaster.BroadcastAssessment(a)
	}
	return nil
}
