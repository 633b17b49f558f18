package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config содержит всю конфигурацию приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Security SecurityConfig
	Monitor  MonitorConfig
	Alerting AlertingConfig
	Sources  SourcesConfig
	Logging  LoggingConfig
}

// ServerConfig - настройки HTTP сервера
type ServerConfig struct {
	Port     int
	Host     string
	UseHTTPS bool
	CertFile string
	KeyFile  string
}

// DatabaseConfig - настройки подключения к БД
type DatabaseConfig struct {
	Driver   string
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
}

// SecurityConfig - настройки безопасности
type SecurityConfig struct {
	// Ключ AES-256 для шифрования webhook-секретов в БД
	EncryptionKey string
	// Дефолтный секрет подписи webhook (если у канала нет своего)
	WebhookSecret string
}

// MonitorConfig - настройки планировщика пересчета рисков
type MonitorConfig struct {
	// Интервал пересчета оценок всех отслеживаемых сущностей
	AssessmentInterval time.Duration
	// Интервал health-проверок источников данных (независимый цикл)
	HealthCheckInterval time.Duration
	// Таймаут одного факторного движка; по истечении фактор
	// считается деградировавшим
	EngineTimeout time.Duration
	// Количество шардов воркеров (1 воркер на шард)
	WorkerShards int
	// Размер очереди заданий на шард
	QueueSize int
	// TTL оценки; после истечения сущность пересчитывается вне очереди
	AssessmentTTL time.Duration
	// Максимальный возраст снимка данных
	SnapshotMaxAge time.Duration
}

// AlertingConfig - настройки жизненного цикла алертов
type AlertingConfig struct {
	// Окно подавления повторных срабатываний одного порога
	Cooldown time.Duration
	// Размер буфера очереди доставки
	DispatchQueueSize int
	// Количество воркеров доставки
	DispatchWorkers int
	// Retry доставки
	MaxRetries   int
	RetryBackoff time.Duration
	// Таймаут одного HTTP-запроса доставки
	DeliveryTimeout time.Duration
	// Лимит исходящих доставок в секунду
	DeliveryRatePerSec int
}

// SourcesConfig - адреса внешних источников данных
type SourcesConfig struct {
	IndexerURL   string
	PriceFeedURL string
	ProtocolURL  string
	// Таймаут HTTP-запроса к источнику
	RequestTimeout time.Duration
}

// LoggingConfig - настройки логирования
type LoggingConfig struct {
	Level  string
	Format string
}

// Load загружает конфигурацию из переменных окружения.
// Файл .env подхватывается, если присутствует.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:     getEnvAsInt("SERVER_PORT", 8080),
			Host:     getEnv("SERVER_HOST", "0.0.0.0"),
			UseHTTPS: getEnvAsBool("USE_HTTPS", false),
			CertFile: getEnv("CERT_FILE", ""),
			KeyFile:  getEnv("KEY_FILE", ""),
		},
		Database: DatabaseConfig{
			Driver:   getEnv("DB_DRIVER", "postgres"),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			Name:     getEnv("DB_NAME", "riskmonitor"),
			User:     getEnv("DB_USER", "user"),
			Password: getEnv("DB_PASSWORD", "password"),
			SSLMode:  getEnv("DB_SSL_MODE", "disable"),
		},
		Security: SecurityConfig{
			EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
			WebhookSecret: getEnv("WEBHOOK_SECRET", ""),
		},
		Monitor: MonitorConfig{
			AssessmentInterval:  getEnvAsDuration("ASSESSMENT_INTERVAL", 30*time.Second),
			HealthCheckInterval: getEnvAsDuration("HEALTH_CHECK_INTERVAL", 15*time.Second),
			EngineTimeout:       getEnvAsDuration("ENGINE_TIMEOUT", 3*time.Second),
			WorkerShards:        getEnvAsInt("WORKER_SHARDS", 8),
			QueueSize:           getEnvAsInt("QUEUE_SIZE", 256),
			AssessmentTTL:       getEnvAsDuration("ASSESSMENT_TTL", 5*time.Minute),
			SnapshotMaxAge:      getEnvAsDuration("SNAPSHOT_MAX_AGE", 2*time.Minute),
		},
		Alerting: AlertingConfig{
			Cooldown:           getEnvAsDuration("ALERT_COOLDOWN", 5*time.Minute),
			DispatchQueueSize:  getEnvAsInt("DISPATCH_QUEUE_SIZE", 512),
			DispatchWorkers:    getEnvAsInt("DISPATCH_WORKERS", 4),
			MaxRetries:         getEnvAsInt("MAX_RETRIES", 4),
			RetryBackoff:       getEnvAsDuration("RETRY_BACKOFF", 500*time.Millisecond),
			DeliveryTimeout:    getEnvAsDuration("DELIVERY_TIMEOUT", 10*time.Second),
			DeliveryRatePerSec: getEnvAsInt("DELIVERY_RATE_PER_SEC", 20),
		},
		Sources: SourcesConfig{
			IndexerURL:     getEnv("INDEXER_URL", "http://localhost:9001"),
			PriceFeedURL:   getEnv("PRICE_FEED_URL", "http://localhost:9002"),
			ProtocolURL:    getEnv("PROTOCOL_REGISTRY_URL", "http://localhost:9003"),
			RequestTimeout: getEnvAsDuration("SOURCE_REQUEST_TIMEOUT", 5*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
	}

	// Валидация критичных параметров безопасности
	if err := cfg.validateSecurity(); err != nil {
		return nil, err
	}

	// Валидация числовых диапазонов
	if err := cfg.validateRanges(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// validateSecurity проверяет параметры безопасности
func (c *Config) validateSecurity() error {
	// ENCRYPTION_KEY обязателен для шифрования webhook-секретов
	if c.Security.EncryptionKey == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required for encrypting webhook secrets")
	}

	if len(c.Security.EncryptionKey) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
	}

	if c.Security.WebhookSecret != "" && len(c.Security.WebhookSecret) < 16 {
		return fmt.Errorf("WEBHOOK_SECRET must be at least 16 characters")
	}

	return nil
}

// validateRanges проверяет числовые диапазоны параметров
func (c *Config) validateRanges() error {
	// Валидация портов
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("SERVER_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}

	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("DB_PORT must be between 1 and 65535, got %d", c.Database.Port)
	}

	// Валидация планировщика
	if c.Monitor.WorkerShards < 1 {
		return fmt.Errorf("WORKER_SHARDS must be at least 1, got %d", c.Monitor.WorkerShards)
	}

	if c.Monitor.QueueSize < 1 {
		return fmt.Errorf("QUEUE_SIZE must be at least 1, got %d", c.Monitor.QueueSize)
	}

	if c.Monitor.EngineTimeout <= 0 {
		return fmt.Errorf("ENGINE_TIMEOUT must be positive, got %v", c.Monitor.EngineTimeout)
	}

	if c.Monitor.AssessmentInterval <= 0 {
		return fmt.Errorf("ASSESSMENT_INTERVAL must be positive, got %v", c.Monitor.AssessmentInterval)
	}

	// Валидация retry параметров
	if c.Alerting.MaxRetries < 0 {
		return fmt.Errorf("MAX_RETRIES cannot be negative, got %d", c.Alerting.MaxRetries)
	}

	if c.Alerting.MaxRetries > 10 {
		return fmt.Errorf("MAX_RETRIES should not exceed 10, got %d", c.Alerting.MaxRetries)
	}

	if c.Alerting.Cooldown < 0 {
		return fmt.Errorf("ALERT_COOLDOWN cannot be negative, got %v", c.Alerting.Cooldown)
	}

	if c.Alerting.DeliveryTimeout <= 0 {
		return fmt.Errorf("DELIVERY_TIMEOUT must be positive, got %v", c.Alerting.DeliveryTimeout)
	}

	if c.Alerting.DeliveryRatePerSec < 1 {
		return fmt.Errorf("DELIVERY_RATE_PER_SEC must be at least 1, got %d", c.Alerting.DeliveryRatePerSec)
	}

	if c.Sources.RequestTimeout <= 0 {
		return fmt.Errorf("SOURCE_REQUEST_TIMEOUT must be positive, got %v", c.Sources.RequestTimeout)
	}

	return nil
}

// DSN возвращает строку подключения к базе данных
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode)
}

// DSNWithoutPassword возвращает строку подключения без пароля (для логирования)
func (d DatabaseConfig) DSNWithoutPassword() string {
	return fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Name, d.SSLMode)
}

// Вспомогательные функции для чтения переменных окружения

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}
