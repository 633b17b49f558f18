package repository

import (
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"riskmonitor/internal/models"
)

// Ошибки репозитория каналов
var (
	ErrChannelNotFound = errors.New("notification channel not found")
	ErrChannelExists   = errors.New("notification channel already exists")
)

// ChannelRepository - работа с таблицей notification_channels
type ChannelRepository struct {
	db *sql.DB
}

// NewChannelRepository создает новый экземпляр репозитория
func NewChannelRepository(db *sql.DB) *ChannelRepository {
	return &ChannelRepository{db: db}
}

const channelColumns = `
	id, user_address, kind, target, secret_encrypted, is_enabled, created_at, updated_at`

// Create сохраняет новый канал доставки
func (r *ChannelRepository) Create(ch *models.NotificationChannel) error {
	if ch.ID == uuid.Nil {
		ch.ID = uuid.New()
	}
	now := time.Now().UTC()
	ch.CreatedAt = now
	ch.UpdatedAt = now

	query := `
		INSERT INTO notification_channels (` + channelColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := r.db.Exec(query,
		ch.ID, ch.UserAddress, ch.Kind, ch.Target, ch.SecretEncrypted,
		ch.IsEnabled, ch.CreatedAt, ch.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return ErrChannelExists
	}
	return err
}

// Update обновляет адрес, секрет и флаг включения канала
func (r *ChannelRepository) Update(ch *models.NotificationChannel) error {
	ch.UpdatedAt = time.Now().UTC()

	query := `
		UPDATE notification_channels
		SET target = $3, secret_encrypted = $4, is_enabled = $5, updated_at = $6
		WHERE id = $1 AND user_address = $2`

	result, err := r.db.Exec(query,
		ch.ID, ch.UserAddress, ch.Target, ch.SecretEncrypted, ch.IsEnabled, ch.UpdatedAt,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrChannelNotFound
	}

	return nil
}

// Delete удаляет канал пользователя
func (r *ChannelRepository) Delete(id uuid.UUID, userAddress string) error {
	result, err := r.db.Exec(
		`DELETE FROM notification_channels WHERE id = $1 AND user_address = $2`,
		id, userAddress,
	)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrChannelNotFound
	}

	return nil
}

// ListByUser возвращает все каналы пользователя
func (r *ChannelRepository) ListByUser(userAddress string) ([]*models.NotificationChannel, error) {
	query := `SELECT ` + channelColumns + `
		FROM notification_channels
		WHERE user_address = $1
		ORDER BY created_at`

	return r.list(query, userAddress)
}

// ListEnabled возвращает включенные каналы пользователя.
// Используется диспетчером при доставке алерта.
func (r *ChannelRepository) ListEnabled(userAddress string) ([]*models.NotificationChannel, error) {
	query := `SELECT ` + channelColumns + `
		FROM notification_channels
		WHERE user_address = $1 AND is_enabled = true
		ORDER BY created_at`

	return r.list(query, userAddress)
}

func (r *ChannelRepository) list(query string, args ...interface{}) ([]*models.NotificationChannel, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []*models.NotificationChannel
	for rows.Next() {
		ch := &models.NotificationChannel{}
		err := rows.Scan(
			&ch.ID, &ch.UserAddress, &ch.Kind, &ch.Target, &ch.SecretEncrypted,
			&ch.IsEnabled, &ch.CreatedAt, &ch.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}

	return channels, rows.Err()
}
