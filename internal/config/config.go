// Пакет config — загрузка и валидация конфигурации Invoice MCP Server
// из переменных окружения.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Версия приложения, задаётся при сборке через -ldflags.
var Version = "dev"

// Config содержит все параметры конфигурации Invoice MCP Server.
type Config struct {
	// Порт HTTP-сервера
	Port int
	// Внешний базовый URL сервера (для ссылок скачивания и оплаты)
	BaseURL string
	// Корневая директория данных
	DataDir string
	// Директория артефактов (блобы + записи реестра), производная от DataDir
	ContentDir string
	// Директория файлов состояния (платежи, шаблоны, журнал писем), производная от DataDir
	StateDir string
	// Срок жизни ссылок скачивания в часах
	RetentionHours int
	// Интервал фоновой очистки просроченных артефактов
	SweepInterval time.Duration
	// Статический bearer-токен для /mcp (опционально; пустой = без токена)
	AuthToken string
	// URL JWKS endpoint для JWT-аутентификации /mcp (опционально)
	JWKSUrl string
	// Путь к CA-сертификату для проверки TLS JWKS endpoint (опционально)
	JWKSCACert string
	// Пропускать проверку TLS-сертификатов JWKS endpoint (только для отладки)
	TLSSkipVerify bool
	// Таймаут HTTP-клиента JWKS
	JWKSClientTimeout time.Duration
	// Интервал обновления JWKS-ключей
	JWKSRefreshInterval time.Duration
	// Допустимое отклонение времени при проверке JWT
	JWTLeeway time.Duration
	// Номер телефона владельца для инструмента validate
	MyNumber string
	// SMTP-хост для отправки писем (пустой = demo-режим)
	SMTPHost string
	// SMTP-порт
	SMTPPort int
	// SMTP-логин (пустой = demo-режим)
	SMTPUsername string
	// SMTP-пароль (пустой = demo-режим)
	SMTPPassword string
	// Адрес отправителя (по умолчанию SMTPUsername)
	SMTPFrom string
	// Отображаемое имя отправителя
	SMTPFromName string
	// Уровень логирования (debug, info, warn, error)
	LogLevel slog.Level
	// Формат логов (json, text)
	LogFormat string
	// Интервал проверки зависимостей topologymetrics
	DephealthCheckInterval time.Duration
	// Имя группы в метриках topologymetrics (INV_DEPHEALTH_GROUP)
	DephealthGroup string
	// Имя зависимости (целевого сервиса) в метриках topologymetrics (INV_DEPHEALTH_DEP_NAME)
	DephealthDepName string
	// Имя владельца пода для метки name в topologymetrics (DEPHEALTH_NAME)
	DephealthName string

	// Таймаут graceful shutdown HTTP-сервера.
	// Должен быть меньше K8s terminationGracePeriodSeconds (по умолчанию 30s).
	ShutdownTimeout time.Duration
}

// Load загружает конфигурацию из переменных окружения, валидирует
// обязательные поля и возвращает Config или ошибку.
func Load() (*Config, error) {
	cfg := &Config{}

	// INV_PORT — порт HTTP-сервера (по умолчанию 8086)
	port, err := getEnvInt("INV_PORT", 8086)
	if err != nil {
		return nil, fmt.Errorf("INV_PORT: %w", err)
	}
	if port < 1 || port > 65535 {
		return nil, fmt.Errorf("INV_PORT: значение %d вне допустимого диапазона 1-65535", port)
	}
	cfg.Port = port

	// INV_BASE_URL — обязательный, внешний базовый URL для генерации ссылок
	baseURL, err := getEnvRequired("INV_BASE_URL")
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("INV_BASE_URL: значение %q должно начинаться с http:// или https://", baseURL)
	}
	cfg.BaseURL = strings.TrimRight(baseURL, "/")

	// INV_DATA_DIR — обязательный
	cfg.DataDir, err = getEnvRequired("INV_DATA_DIR")
	if err != nil {
		return nil, err
	}
	// Артефакты и файлы состояния живут в разных поддиректориях:
	// реестр сканирует *.json в своей директории, и файлы состояния
	// не должны попадать под этот шаблон.
	cfg.ContentDir = filepath.Join(cfg.DataDir, "content")
	cfg.StateDir = filepath.Join(cfg.DataDir, "state")

	// INV_RETENTION_HOURS — срок жизни ссылок в часах (по умолчанию 24)
	cfg.RetentionHours, err = getEnvInt("INV_RETENTION_HOURS", 24)
	if err != nil {
		return nil, fmt.Errorf("INV_RETENTION_HOURS: %w", err)
	}
	if cfg.RetentionHours <= 0 {
		return nil, fmt.Errorf("INV_RETENTION_HOURS: значение должно быть положительным, получено %d", cfg.RetentionHours)
	}

	// INV_SWEEP_INTERVAL — интервал фоновой очистки (по умолчанию 1h)
	cfg.SweepInterval, err = getEnvDuration("INV_SWEEP_INTERVAL", time.Hour)
	if err != nil {
		return nil, fmt.Errorf("INV_SWEEP_INTERVAL: %w", err)
	}

	// INV_AUTH_TOKEN — статический bearer-токен для /mcp (опционально)
	cfg.AuthToken = getEnvDefault("INV_AUTH_TOKEN", "")

	// INV_JWKS_URL — JWT-аутентификация /mcp (опционально)
	cfg.JWKSUrl = getEnvDefault("INV_JWKS_URL", "")

	// INV_JWKS_CA_CERT — путь к CA-сертификату для JWKS endpoint (опционально)
	cfg.JWKSCACert = getEnvDefault("INV_JWKS_CA_CERT", "")

	if cfg.AuthToken != "" && cfg.JWKSUrl != "" {
		return nil, fmt.Errorf("INV_AUTH_TOKEN и INV_JWKS_URL взаимоисключающие: выберите один способ аутентификации")
	}

	// INV_TLS_SKIP_VERIFY — отключить проверку TLS-сертификатов JWKS (по умолчанию false)
	cfg.TLSSkipVerify, err = getEnvBool("INV_TLS_SKIP_VERIFY", false)
	if err != nil {
		return nil, fmt.Errorf("INV_TLS_SKIP_VERIFY: %w", err)
	}

	// INV_JWKS_CLIENT_TIMEOUT — таймаут HTTP-клиента JWKS (по умолчанию 30s)
	cfg.JWKSClientTimeout, err = getEnvDuration("INV_JWKS_CLIENT_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, fmt.Errorf("INV_JWKS_CLIENT_TIMEOUT: %w", err)
	}

	// INV_JWKS_REFRESH_INTERVAL — интервал обновления JWKS-ключей (по умолчанию 15s)
	cfg.JWKSRefreshInterval, err = getEnvDuration("INV_JWKS_REFRESH_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("INV_JWKS_REFRESH_INTERVAL: %w", err)
	}

	// INV_JWT_LEEWAY — допустимое отклонение времени при проверке JWT (по умолчанию 5s)
	cfg.JWTLeeway, err = getEnvDuration("INV_JWT_LEEWAY", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("INV_JWT_LEEWAY: %w", err)
	}

	// INV_MY_NUMBER — номер телефона владельца (опционально)
	cfg.MyNumber = getEnvDefault("INV_MY_NUMBER", "")

	// INV_SMTP_HOST — SMTP-хост (пустой = demo-режим отправки писем)
	cfg.SMTPHost = getEnvDefault("INV_SMTP_HOST", "")

	// INV_SMTP_PORT — SMTP-порт (по умолчанию 587)
	cfg.SMTPPort, err = getEnvInt("INV_SMTP_PORT", 587)
	if err != nil {
		return nil, fmt.Errorf("INV_SMTP_PORT: %w", err)
	}

	// INV_SMTP_USERNAME / INV_SMTP_PASSWORD — учётные данные SMTP
	cfg.SMTPUsername = getEnvDefault("INV_SMTP_USERNAME", "")
	cfg.SMTPPassword = getEnvDefault("INV_SMTP_PASSWORD", "")

	// INV_SMTP_FROM — адрес отправителя (по умолчанию SMTPUsername)
	cfg.SMTPFrom = getEnvDefault("INV_SMTP_FROM", cfg.SMTPUsername)

	// INV_SMTP_FROM_NAME — отображаемое имя отправителя
	cfg.SMTPFromName = getEnvDefault("INV_SMTP_FROM_NAME", "Invoice System")

	// INV_LOG_LEVEL — уровень логирования (по умолчанию info)
	cfg.LogLevel, err = parseLogLevel(getEnvDefault("INV_LOG_LEVEL", "info"))
	if err != nil {
		return nil, fmt.Errorf("INV_LOG_LEVEL: %w", err)
	}

	// INV_LOG_FORMAT — формат логов (по умолчанию json)
	cfg.LogFormat = getEnvDefault("INV_LOG_FORMAT", "json")
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("INV_LOG_FORMAT: недопустимое значение %q, допустимые: json, text", cfg.LogFormat)
	}

	// INV_DEPHEALTH_CHECK_INTERVAL — интервал проверки зависимостей (по умолчанию 15s)
	cfg.DephealthCheckInterval, err = getEnvDuration("INV_DEPHEALTH_CHECK_INTERVAL", 15*time.Second)
	if err != nil {
		return nil, fmt.Errorf("INV_DEPHEALTH_CHECK_INTERVAL: %w", err)
	}

	// INV_DEPHEALTH_GROUP — имя группы в метриках topologymetrics (по умолчанию "invoice-mcp")
	cfg.DephealthGroup = getEnvDefault("INV_DEPHEALTH_GROUP", "invoice-mcp")

	// INV_DEPHEALTH_DEP_NAME — имя зависимости в метриках topologymetrics (по умолчанию "auth-jwks")
	cfg.DephealthDepName = getEnvDefault("INV_DEPHEALTH_DEP_NAME", "auth-jwks")

	// DEPHEALTH_NAME — имя владельца пода для метки name в topologymetrics (без префикса модуля)
	cfg.DephealthName = getEnvDefault("DEPHEALTH_NAME", "")

	// INV_SHUTDOWN_TIMEOUT — таймаут graceful shutdown HTTP-сервера (по умолчанию 5s)
	cfg.ShutdownTimeout, err = getEnvDuration("INV_SHUTDOWN_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("INV_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

// SetupLogger настраивает глобальный slog-логгер на основе конфигурации.
func SetupLogger(cfg *Config) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}

	var handler slog.Handler
	if cfg.LogFormat == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// --- Вспомогательные функции ---

// getEnvRequired возвращает значение переменной окружения или ошибку, если она не задана.
func getEnvRequired(key string) (string, error) {
	val := os.Getenv(key)
	if val == "" {
		return "", fmt.Errorf("%s: обязательная переменная окружения не задана", key)
	}
	return val, nil
}

// getEnvDefault возвращает значение переменной окружения или значение по умолчанию.
func getEnvDefault(key, defaultVal string) string {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	return val
}

// getEnvInt возвращает целочисленное значение переменной окружения или значение по умолчанию.
func getEnvInt(key string, defaultVal int) (int, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	n, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("некорректное целое число: %q", val)
	}
	return n, nil
}

// getEnvBool возвращает булево значение переменной окружения или значение по умолчанию.
func getEnvBool(key string, defaultVal bool) (bool, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("некорректное булево значение: %q", val)
	}
	return b, nil
}

// getEnvDuration возвращает time.Duration из переменной окружения или значение по умолчанию.
func getEnvDuration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal, nil
	}
	d, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("некорректная длительность: %q (используйте формат Go: 30s, 1h, 6h)", val)
	}
	return d, nil
}

// parseLogLevel преобразует строку уровня логирования в slog.Level.
func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("недопустимый уровень %q, допустимые: debug, info, warn, error", level)
	}
}
