package alerting

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"

	"riskmonitor/internal/models"
	"riskmonitor/pkg/crypto"
	"riskmonitor/pkg/ratelimit"
	"riskmonitor/pkg/retry"
)

// dispatcher.go - асинхронная доставка уведомлений
//
// Назначение:
// Ограниченная очередь + пул воркеров между менеджером алертов и
// транспортами каналов. Менеджер никогда не блокируется на доставке:
// Enqueue неблокирующий, переполнение очереди роняет уведомление,
// а не пересчет риска.
//
// Каждый канал пользователя доставляется независимо с retry и
// экспоненциальным backoff; попытки фиксируются в
// alert_delivery_attempts. Исчерпание попыток по всем каналам
// помечает алерт delivery_status=failed, алерт остается открытым.

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ChannelSource - включенные каналы доставки пользователя
type ChannelSource interface {
	ListEnabled(userAddress string) ([]*models.NotificationChannel, error)
}

// DeliveryStore - журнал доставки
type DeliveryStore interface {
	SetDeliveryStatus(id uuid.UUID, status string) error
	RecordDeliveryAttempt(att *models.DeliveryAttempt) error
}

// DispatcherConfig - параметры диспетчера
type DispatcherConfig struct {
	QueueSize       int
	Workers         int
	MaxRetries      int
	RetryBackoff    time.Duration
	DeliveryTimeout time.Duration
	RatePerSec      int

	// Ключ расшифровки секретов каналов
	EncryptionKey string
	// Секрет подписи для каналов без собственного секрета
	DefaultSecret string
}

// DefaultDispatcherConfig возвращает конфигурацию по умолчанию
func DefaultDispatcherConfig() DispatcherConfig {
	return DispatcherConfig{
		QueueSize:       512,
		Workers:         4,
		MaxRetries:      4,
		RetryBackoff:    500 * time.Millisecond,
		DeliveryTimeout: 10 * time.Second,
		RatePerSec:      20,
	}
}

type dispatchJob struct {
	alert     *models.Alert
	eventType string
	metrics   map[string]float64
}

type WebhookDispatcher struct {
	channels ChannelSource
	store    DeliveryStore
	client   *http.Client
	limiter  *ratelimit.RateLimiter
	config   DispatcherConfig
	logger   *zap.Logger

	queue chan dispatchJob
	wg    sync.WaitGroup

	mu     sync.Mutex
	closed bool
}

func NewWebhookDispatcher(channels ChannelSource, store DeliveryStore, config DispatcherConfig, logger *zap.Logger) *WebhookDispatcher {
	if config.QueueSize <= 0 {
		config.QueueSize = 512
	}
	if config.Workers <= 0 {
		config.Workers = 4
	}
	return &WebhookDispatcher{
		channels: channels,
		store:    store,
		client:   &http.Client{Timeout: config.DeliveryTimeout},
		limiter:  ratelimit.NewRateLimiter(float64(config.RatePerSec), float64(config.RatePerSec)*2),
		config:   config,
		logger:   logger,
		queue:    make(chan dispatchJob, config.QueueSize),
	}
}

// Start запускает воркеры доставки
func (d *WebhookDispatcher) Start() {
	for i := 0; i < d.config.Workers; i++ {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			for job := range d.queue {
				d.deliver(job)
			}
		}()
	}
}

// Stop закрывает очередь и дожидается доставки оставшихся уведомлений
func (d *WebhookDispatcher) Stop() {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()
	d.wg.Wait()
}

// Enqueue ставит уведомление в очередь без блокировки.
// false - очередь переполнена или диспетчер остановлен.
func (d *WebhookDispatcher) Enqueue(alert *models.Alert, eventType string, metrics map[string]float64) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return false
	}
	select {
	case d.queue <- dispatchJob{alert: alert, eventType: eventType, metrics: metrics}:
		return true
	default:
		return false
	}
}

func (d *WebhookDispatcher) deliver(job dispatchJob) {
	channels, err := d.channels.ListEnabled(job.alert.UserAddress)
	if err != nil {
		d.logger.Error("failed to load delivery channels",
			zap.String("alert_id", job.alert.ID.String()),
			zap.Error(err))
		d.setStatus(job.alert.ID, models.DeliveryFailed)
		return
	}
	if len(channels) == 0 {
		d.setStatus(job.alert.ID, models.DeliverySent)
		return
	}

	anySuccess := false
	for _, ch := range channels {
		// Каналы независимы: отказ одного не мешает остальным
		if err := d.deliverToChannel(job, ch); err != nil {
			d.logger.Warn("channel delivery failed",
				zap.String("alert_id", job.alert.ID.String()),
				zap.String("channel", ch.Kind),
				zap.Error(err))
			continue
		}
		anySuccess = true
	}

	if anySuccess {
		d.setStatus(job.alert.ID, models.DeliverySent)
	} else {
		d.setStatus(job.alert.ID, models.DeliveryFailed)
	}
}

func (d *WebhookDispatcher) deliverToChannel(job dispatchJob, ch *models.NotificationChannel) error {
	switch ch.Kind {
	case models.ChannelWebhook, models.ChannelChatWebhook:
	default:
		err := fmt.Errorf("no transport for channel kind %q", ch.Kind)
		d.recordAttempt(job.alert.ID, ch.Kind, 1, false, 0, err)
		return err
	}

	body, err := d.signedBody(job, ch)
	if err != nil {
		d.recordAttempt(job.alert.ID, ch.Kind, 1, false, 0, err)
		return err
	}

	attempt := 0
	operation := func() error {
		attempt++

		ctx, cancel := context.WithTimeout(context.Background(), d.config.DeliveryTimeout)
		defer cancel()

		if err := d.limiter.Wait(ctx); err != nil {
			return err
		}

		code, err := d.post(ctx, ch.Target, body)
		success := err == nil && code >= 200 && code < 300
		d.recordAttempt(job.alert.ID, ch.Kind, attempt, success, code, err)

		if err != nil {
			return err
		}
		if !success {
			return fmt.Errorf("receiver returned status %d", code)
		}
		return nil
	}

	return retry.Do(context.Background(), operation, retry.Config{
		MaxRetries:   d.config.MaxRetries,
		InitialDelay: d.config.RetryBackoff,
		MaxDelay:     30 * time.Second,
		Multiplier:   2.0,
		JitterFactor: 0.1,
	})
}

// signedBody собирает тело вебхука и подписывает его HMAC-SHA256.
// Подпись считается по каноническому JSON без поля signature.
func (d *WebhookDispatcher) signedBody(job dispatchJob, ch *models.NotificationChannel) ([]byte, error) {
	event := models.WebhookEvent{
		EventType:      job.eventType,
		EventID:        uuid.New(),
		Timestamp:      time.Now().UTC(),
		EntityID:       job.alert.EntityID,
		RiskMetrics:    job.metrics,
		ThresholdType:  job.alert.Metric,
		ThresholdValue: job.alert.ThresholdValue,
	}

	canonical, err := json.Marshal(event)
	if err != nil {
		return nil, err
	}

	secret := d.config.DefaultSecret
	if ch.SecretEncrypted != "" {
		secret, err = crypto.DecryptWithKeyString(ch.SecretEncrypted, d.config.EncryptionKey)
		if err != nil {
			return nil, fmt.Errorf("channel secret decryption failed: %w", err)
		}
	}
	if secret != "" {
		event.Signature, err = crypto.Sign(canonical, secret)
		if err != nil {
			return nil, err
		}
	}

	return json.Marshal(event)
}

func (d *WebhookDispatcher) post(ctx context.Context, url string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return 0, retry.Permanent(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode, nil
}

func (d *WebhookDispatcher) recordAttempt(alertID uuid.UUID, channel string, attempt int, success bool, code int, attemptErr error) {
	att := &models.DeliveryAttempt{
		AlertID:      alertID,
		Channel:      channel,
		Attempt:      attempt,
		Success:      success,
		ResponseCode: code,
	}
	if attemptErr != nil {
		att.Error = attemptErr.Error()
	}
	if err := d.store.RecordDeliveryAttempt(att); err != nil {
		d.logger.Error("failed to record delivery attempt", zap.Error(err))
	}
}

func (d *WebhookDispatcher) setStatus(alertID uuid.UUID, status string) {
	if err := d.store.SetDeliveryStatus(alertID, status); err != nil {
		d.logger.Error("failed to update delivery status",
			zap.String("alert_id", alertID.String()),
			zap.Error(err))
	}
}
