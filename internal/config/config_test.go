package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// setEnvVars устанавливает переменные окружения для теста и возвращает
// функцию очистки. Всегда вызывать defer cleanup().
func setEnvVars(t *testing.T, vars map[string]string) func() {
	t.Helper()

	// Сохраняем оригинальные значения
	originals := make(map[string]string)
	origSet := make(map[string]bool)
	for k := range vars {
		if v, ok := os.LookupEnv(k); ok {
			originals[k] = v
			origSet[k] = true
		}
	}

	// Устанавливаем новые
	for k, v := range vars {
		os.Setenv(k, v)
	}

	return func() {
		for k := range vars {
			if origSet[k] {
				os.Setenv(k, originals[k])
			} else {
				os.Unsetenv(k)
			}
		}
	}
}

// clearAllINVEnvVars очищает все переменные окружения INV_* для чистого теста.
func clearAllINVEnvVars(t *testing.T) func() {
	t.Helper()
	keys := []string{
		"INV_PORT", "INV_BASE_URL", "INV_DATA_DIR",
		"INV_RETENTION_HOURS", "INV_SWEEP_INTERVAL",
		"INV_AUTH_TOKEN", "INV_JWKS_URL", "INV_JWKS_CA_CERT",
		"INV_TLS_SKIP_VERIFY", "INV_JWKS_CLIENT_TIMEOUT",
		"INV_JWKS_REFRESH_INTERVAL", "INV_JWT_LEEWAY",
		"INV_MY_NUMBER",
		"INV_SMTP_HOST", "INV_SMTP_PORT", "INV_SMTP_USERNAME",
		"INV_SMTP_PASSWORD", "INV_SMTP_FROM", "INV_SMTP_FROM_NAME",
		"INV_LOG_LEVEL", "INV_LOG_FORMAT",
		"INV_DEPHEALTH_CHECK_INTERVAL", "INV_DEPHEALTH_GROUP",
		"INV_DEPHEALTH_DEP_NAME", "DEPHEALTH_NAME",
		"INV_SHUTDOWN_TIMEOUT",
	}
	originals := make(map[string]string)
	origSet := make(map[string]bool)
	for _, k := range keys {
		if v, ok := os.LookupEnv(k); ok {
			originals[k] = v
			origSet[k] = true
		}
		os.Unsetenv(k)
	}
	return func() {
		for _, k := range keys {
			if origSet[k] {
				os.Setenv(k, originals[k])
			} else {
				os.Unsetenv(k)
			}
		}
	}
}

// requiredEnvVars возвращает минимальный набор обязательных переменных.
func requiredEnvVars() map[string]string {
	return map[string]string{
		"INV_BASE_URL": "https://invoices.example.com",
		"INV_DATA_DIR": "/tmp/invoice-data",
	}
}

func TestLoad_DefaultValues(t *testing.T) {
	cleanup := clearAllINVEnvVars(t)
	defer cleanup()

	cleanupVars := setEnvVars(t, requiredEnvVars())
	defer cleanupVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	// Проверяем значения по умолчанию
	if cfg.Port != 8086 {
		t.Errorf("Port: ожидалось 8086, получено %d", cfg.Port)
	}
	if cfg.BaseURL != "https://invoices.example.com" {
		t.Errorf("BaseURL: ожидалось 'https://invoices.example.com', получено %q", cfg.BaseURL)
	}
	if cfg.ContentDir != filepath.Join("/tmp/invoice-data", "content") {
		t.Errorf("ContentDir: ожидалось '/tmp/invoice-data/content', получено %q", cfg.ContentDir)
	}
	if cfg.StateDir != filepath.Join("/tmp/invoice-data", "state") {
		t.Errorf("StateDir: ожидалось '/tmp/invoice-data/state', получено %q", cfg.StateDir)
	}
	if cfg.RetentionHours != 24 {
		t.Errorf("RetentionHours: ожидалось 24, получено %d", cfg.RetentionHours)
	}
	if cfg.SweepInterval != time.Hour {
		t.Errorf("SweepInterval: ожидалось 1h, получено %v", cfg.SweepInterval)
	}
	if cfg.AuthToken != "" {
		t.Errorf("AuthToken: ожидалось пустую строку, получено %q", cfg.AuthToken)
	}
	if cfg.JWKSUrl != "" {
		t.Errorf("JWKSUrl: ожидалось пустую строку, получено %q", cfg.JWKSUrl)
	}
	if cfg.TLSSkipVerify != false {
		t.Errorf("TLSSkipVerify: ожидалось false, получено %v", cfg.TLSSkipVerify)
	}
	if cfg.JWKSClientTimeout != 30*time.Second {
		t.Errorf("JWKSClientTimeout: ожидалось 30s, получено %v", cfg.JWKSClientTimeout)
	}
	if cfg.JWKSRefreshInterval != 15*time.Second {
		t.Errorf("JWKSRefreshInterval: ожидалось 15s, получено %v", cfg.JWKSRefreshInterval)
	}
	if cfg.JWTLeeway != 5*time.Second {
		t.Errorf("JWTLeeway: ожидалось 5s, получено %v", cfg.JWTLeeway)
	}
	if cfg.SMTPPort != 587 {
		t.Errorf("SMTPPort: ожидалось 587, получено %d", cfg.SMTPPort)
	}
	if cfg.SMTPFromName != "Invoice System" {
		t.Errorf("SMTPFromName: ожидалось 'Invoice System', получено %q", cfg.SMTPFromName)
	}
	if cfg.LogLevel != slog.LevelInfo {
		t.Errorf("LogLevel: ожидалось INFO, получено %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "json" {
		t.Errorf("LogFormat: ожидалось 'json', получено %q", cfg.LogFormat)
	}
	if cfg.DephealthCheckInterval != 15*time.Second {
		t.Errorf("DephealthCheckInterval: ожидалось 15s, получено %v", cfg.DephealthCheckInterval)
	}
	if cfg.DephealthGroup != "invoice-mcp" {
		t.Errorf("DephealthGroup: ожидалось 'invoice-mcp', получено %q", cfg.DephealthGroup)
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("ShutdownTimeout: ожидалось 5s, получено %v", cfg.ShutdownTimeout)
	}
}

func TestLoad_AllCustomValues(t *testing.T) {
	cleanup := clearAllINVEnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["INV_PORT"] = "9090"
	vars["INV_BASE_URL"] = "http://localhost:9090/"
	vars["INV_RETENTION_HOURS"] = "48"
	vars["INV_SWEEP_INTERVAL"] = "30m"
	vars["INV_AUTH_TOKEN"] = "secret-token"
	vars["INV_MY_NUMBER"] = "+79990001122"
	vars["INV_SMTP_HOST"] = "smtp.example.com"
	vars["INV_SMTP_PORT"] = "465"
	vars["INV_SMTP_USERNAME"] = "billing@example.com"
	vars["INV_SMTP_PASSWORD"] = "secret"
	vars["INV_SMTP_FROM_NAME"] = "Billing Dept"
	vars["INV_LOG_LEVEL"] = "debug"
	vars["INV_LOG_FORMAT"] = "text"
	vars["INV_DEPHEALTH_CHECK_INTERVAL"] = "5s"
	vars["INV_SHUTDOWN_TIMEOUT"] = "10s"

	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	cfg, err := Load()
	if err != nil {
		t.Fatalf("неожиданная ошибка: %v", err)
	}

	if cfg.Port != 9090 {
		t.Errorf("Port: ожидалось 9090, получено %d", cfg.Port)
	}
	// Хвостовой слэш должен обрезаться
	if cfg.BaseURL != "http://localhost:9090" {
		t.Errorf("BaseURL: ожидалось 'http://localhost:9090', получено %q", cfg.BaseURL)
	}
	if cfg.RetentionHours != 48 {
		t.Errorf("RetentionHours: ожидалось 48, получено %d", cfg.RetentionHours)
	}
	if cfg.SweepInterval != 30*time.Minute {
		t.Errorf("SweepInterval: ожидалось 30m, получено %v", cfg.SweepInterval)
	}
	if cfg.AuthToken != "secret-token" {
		t.Errorf("AuthToken: ожидалось 'secret-token', получено %q", cfg.AuthToken)
	}
	if cfg.MyNumber != "+79990001122" {
		t.Errorf("MyNumber: ожидалось '+79990001122', получено %q", cfg.MyNumber)
	}
	if cfg.SMTPHost != "smtp.example.com" {
		t.Errorf("SMTPHost: ожидалось 'smtp.example.com', получено %q", cfg.SMTPHost)
	}
	if cfg.SMTPPort != 465 {
		t.Errorf("SMTPPort: ожидалось 465, получено %d", cfg.SMTPPort)
	}
	// SMTPFrom по умолчанию берётся из SMTPUsername
	if cfg.SMTPFrom != "billing@example.com" {
		t.Errorf("SMTPFrom: ожидалось 'billing@example.com', получено %q", cfg.SMTPFrom)
	}
	if cfg.SMTPFromName != "Billing Dept" {
		t.Errorf("SMTPFromName: ожидалось 'Billing Dept', получено %q", cfg.SMTPFromName)
	}
	if cfg.LogLevel != slog.LevelDebug {
		t.Errorf("LogLevel: ожидалось DEBUG, получено %v", cfg.LogLevel)
	}
	if cfg.LogFormat != "text" {
		t.Errorf("LogFormat: ожидалось 'text', получено %q", cfg.LogFormat)
	}
	if cfg.DephealthCheckInterval != 5*time.Second {
		t.Errorf("DephealthCheckInterval: ожидалось 5s, получено %v", cfg.DephealthCheckInterval)
	}
	if cfg.ShutdownTimeout != 10*time.Second {
		t.Errorf("ShutdownTimeout: ожидалось 10s, получено %v", cfg.ShutdownTimeout)
	}
}

func TestLoad_MissingRequiredVars(t *testing.T) {
	requiredKeys := []string{"INV_BASE_URL", "INV_DATA_DIR"}

	for _, missing := range requiredKeys {
		t.Run(missing, func(t *testing.T) {
			cleanup := clearAllINVEnvVars(t)
			defer cleanup()

			vars := requiredEnvVars()
			delete(vars, missing)
			cleanupVars := setEnvVars(t, vars)
			defer cleanupVars()

			_, err := Load()
			if err == nil {
				t.Errorf("ожидалась ошибка при отсутствии %s", missing)
			}
		})
	}
}

func TestLoad_InvalidPort(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"ноль", "0"},
		{"выше диапазона", "70000"},
		{"не число", "abc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := clearAllINVEnvVars(t)
			defer cleanup()

			vars := requiredEnvVars()
			vars["INV_PORT"] = tt.value
			cleanupVars := setEnvVars(t, vars)
			defer cleanupVars()

			_, err := Load()
			if err == nil {
				t.Errorf("ожидалась ошибка для INV_PORT=%s", tt.value)
			}
		})
	}
}

func TestLoad_InvalidBaseURL(t *testing.T) {
	cleanup := clearAllINVEnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["INV_BASE_URL"] = "invoices.example.com"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	_, err := Load()
	if err == nil {
		t.Error("ожидалась ошибка для INV_BASE_URL без схемы")
	}
}

func TestLoad_InvalidRetentionHours(t *testing.T) {
	tests := []struct {
		name  string
		value string
	}{
		{"не число", "abc"},
		{"нулевое", "0"},
		{"отрицательное", "-24"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := clearAllINVEnvVars(t)
			defer cleanup()

			vars := requiredEnvVars()
			vars["INV_RETENTION_HOURS"] = tt.value
			cleanupVars := setEnvVars(t, vars)
			defer cleanupVars()

			_, err := Load()
			if err == nil {
				t.Errorf("ожидалась ошибка для INV_RETENTION_HOURS=%s", tt.value)
			}
		})
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	durationVars := []string{
		"INV_SWEEP_INTERVAL", "INV_DEPHEALTH_CHECK_INTERVAL",
		"INV_JWKS_CLIENT_TIMEOUT", "INV_JWKS_REFRESH_INTERVAL",
		"INV_JWT_LEEWAY", "INV_SHUTDOWN_TIMEOUT",
	}

	for _, varName := range durationVars {
		t.Run(varName, func(t *testing.T) {
			cleanup := clearAllINVEnvVars(t)
			defer cleanup()

			vars := requiredEnvVars()
			vars[varName] = "not-a-duration"
			cleanupVars := setEnvVars(t, vars)
			defer cleanupVars()

			_, err := Load()
			if err == nil {
				t.Errorf("ожидалась ошибка для невалидного %s", varName)
			}
		})
	}
}

func TestLoad_AuthTokenAndJWKSMutuallyExclusive(t *testing.T) {
	cleanup := clearAllINVEnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["INV_AUTH_TOKEN"] = "secret"
	vars["INV_JWKS_URL"] = "https://auth.example.com/.well-known/jwks.json"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	_, err := Load()
	if err == nil {
		t.Error("ожидалась ошибка при одновременном задании INV_AUTH_TOKEN и INV_JWKS_URL")
	}
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	cleanup := clearAllINVEnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["INV_LOG_LEVEL"] = "invalid"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	_, err := Load()
	if err == nil {
		t.Error("ожидалась ошибка для невалидного INV_LOG_LEVEL")
	}
}

func TestLoad_InvalidLogFormat(t *testing.T) {
	cleanup := clearAllINVEnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["INV_LOG_FORMAT"] = "yaml"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	_, err := Load()
	if err == nil {
		t.Error("ожидалась ошибка для невалидного INV_LOG_FORMAT")
	}
}

func TestLoad_TLSSkipVerify(t *testing.T) {
	tests := []struct {
		name     string
		value    string
		expected bool
	}{
		{"true", "true", true},
		{"false", "false", false},
		{"1", "1", true},
		{"0", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cleanup := clearAllINVEnvVars(t)
			defer cleanup()

			vars := requiredEnvVars()
			vars["INV_TLS_SKIP_VERIFY"] = tt.value
			cleanupVars := setEnvVars(t, vars)
			defer cleanupVars()

			cfg, err := Load()
			if err != nil {
				t.Fatalf("неожиданная ошибка: %v", err)
			}
			if cfg.TLSSkipVerify != tt.expected {
				t.Errorf("TLSSkipVerify: ожидалось %v, получено %v", tt.expected, cfg.TLSSkipVerify)
			}
		})
	}
}

func TestLoad_TLSSkipVerifyInvalid(t *testing.T) {
	cleanup := clearAllINVEnvVars(t)
	defer cleanup()

	vars := requiredEnvVars()
	vars["INV_TLS_SKIP_VERIFY"] = "maybe"
	cleanupVars := setEnvVars(t, vars)
	defer cleanupVars()

	_, err := Load()
	if err == nil {
		t.Error("ожидалась ошибка для невалидного INV_TLS_SKIP_VERIFY='maybe'")
	}
}

func TestLoad_ValidLogLevels(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"DEBUG", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			cleanup := clearAllINVEnvVars(t)
			defer cleanup()

			vars := requiredEnvVars()
			vars["INV_LOG_LEVEL"] = tt.input
			cleanupVars := setEnvVars(t, vars)
			defer cleanupVars()

			cfg, err := Load()
			if err != nil {
				t.Fatalf("неожиданная ошибка: %v", err)
			}
			if cfg.LogLevel != tt.expected {
				t.Errorf("LogLevel: ожидалось %v, получено %v", tt.expected, cfg.LogLevel)
			}
		})
	}
}

func TestSetupLogger(t *testing.T) {
	tests := []struct {
		name   string
		format string
	}{
		{"json", "json"},
		{"text", "text"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				LogLevel:  slog.LevelInfo,
				LogFormat: tt.format,
			}
			logger := SetupLogger(cfg)
			if logger == nil {
				t.Fatal("SetupLogger вернул nil")
			}
		})
	}
}
