package service

import (
	"errors"
	"net/url"
	"strings"

	"github.com/google/uuid"

	"riskmonitor/internal/models"
	"riskmonitor/pkg/crypto"
	"riskmonitor/pkg/utils"
)

var (
	ErrInvalidChannelKind   = errors.New("invalid notification channel kind")
	ErrInvalidChannelTarget = errors.New("invalid notification channel target")
	ErrSecretTooShort       = errors.New("webhook secret must be at least 16 characters")
)

// ChannelService предоставляет бизнес-логику каналов доставки алертов.
//
// Отвечает за:
// - Валидацию типа канала и адреса назначения
// - Шифрование webhook-секретов перед записью (AES-256-GCM)
//
// Секрет в открытом виде существует только в момент создания или
// обновления канала; наружу он не отдается никогда.
type ChannelService struct {
	channels      ChannelRepositoryInterface
	encryptionKey string
}

// NewChannelService создает новый экземпляр ChannelService
func NewChannelService(channels ChannelRepositoryInterface, encryptionKey string) *ChannelService {
	return &ChannelService{
		channels:      channels,
		encryptionKey: encryptionKey,
	}
}

// CreateChannel создает канал доставки. Непустой secret шифруется
// и используется для подписи webhook вместо серверного дефолта.
func (s *ChannelService) CreateChannel(ch *models.NotificationChannel, secret string) error {
	if err := s.validate(ch, secret); err != nil {
		return err
	}

	if ch.ID == uuid.Nil {
		ch.ID = uuid.New()
	}
	ch.IsEnabled = true

	if secret != "" {
		encrypted, err := crypto.EncryptWithKeyString(secret, s.encryptionKey)
		if err != nil {
			return err
		}
		ch.SecretEncrypted = encrypted
	}

	return s.channels.Create(ch)
}

// UpdateChannel обновляет канал. Пустой secret оставляет прежний.
func (s *ChannelService) UpdateChannel(ch *models.NotificationChannel, secret string) error {
	if err := s.validate(ch, secret); err != nil {
		return err
	}

	if secret != "" {
		encrypted, err := crypto.EncryptWithKeyString(secret, s.encryptionKey)
		if err != nil {
			return err
		}
		ch.SecretEncrypted = encrypted
	}

	return s.channels.Update(ch)
}

// DeleteChannel удаляет канал пользователя
func (s *ChannelService) DeleteChannel(id uuid.UUID, userAddress string) error {
	if userAddress == "" {
		return ErrUserAddressEmpty
	}
	return s.channels.Delete(id, userAddress)
}

// GetChannels возвращает каналы пользователя. Секреты наружу не
// отдаются (SecretEncrypted исключен из сериализации).
func (s *ChannelService) GetChannels(userAddress string) ([]*models.NotificationChannel, error) {
	if userAddress == "" {
		return nil, ErrUserAddressEmpty
	}

	channels, err := s.channels.ListByUser(userAddress)
	if err != nil {
		return nil, err
	}
	if channels == nil {
		channels = []*models.NotificationChannel{}
	}
	return channels, nil
}

// validate проверяет канал перед записью
func (s *ChannelService) validate(ch *models.NotificationChannel, secret string) error {
	if ch.UserAddress == "" {
		return ErrUserAddressEmpty
	}
	if !models.ValidChannelKind(ch.Kind) {
		return ErrInvalidChannelKind
	}
	if secret != "" && len(secret) < 16 {
		return ErrSecretTooShort
	}

	switch ch.Kind {
	case models.ChannelWebhook, models.ChannelChatWebhook:
		if err := utils.ValidateWebhookURL(ch.Target); err != nil {
			return ErrInvalidChannelTarget
		}
		u, err := url.Parse(ch.Target)
		if err != nil || u.Host == "" {
			return ErrInvalidChannelTarget
		}
	case models.ChannelEmail:
		if !strings.Contains(ch.Target, "@") {
			return ErrInvalidChannelTarget
		}
	}
	return nil
}
