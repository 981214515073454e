// Точка входа Invoice MCP Server — сервиса генерации счетов,
// платёжных ссылок и почтовых уведомлений с MCP-интерфейсом.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/akruglov/invoicemcp/internal/api/handlers"
	"github.com/akruglov/invoicemcp/internal/api/middleware"
	"github.com/akruglov/invoicemcp/internal/config"
	"github.com/akruglov/invoicemcp/internal/invoice"
	"github.com/akruglov/invoicemcp/internal/mailer"
	"github.com/akruglov/invoicemcp/internal/payment"
	"github.com/akruglov/invoicemcp/internal/registry"
	"github.com/akruglov/invoicemcp/internal/server"
	"github.com/akruglov/invoicemcp/internal/service"
	"github.com/akruglov/invoicemcp/internal/storage/blob"
	"github.com/akruglov/invoicemcp/internal/tool"
)

func main() {
	// Загрузка конфигурации из переменных окружения
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка конфигурации: %v\n", err)
		os.Exit(1)
	}

	// Настройка логгера
	logger := config.SetupLogger(cfg)
	logger.Info("Invoice MCP Server запускается",
		slog.String("version", config.Version),
		slog.Int("port", cfg.Port),
		slog.String("base_url", cfg.BaseURL),
		slog.String("data_dir", cfg.DataDir),
	)

	// --- Инициализация компонентов ---

	// 1. Blob-хранилище артефактов и реестр ссылок скачивания
	store, err := blob.New(cfg.ContentDir)
	if err != nil {
		logger.Error("Ошибка инициализации blob-хранилища", slog.String("error", err.Error()))
		os.Exit(1)
	}
	reg := registry.New(store, cfg.BaseURL, logger)

	// 2. Генератор PDF-счетов
	gen := invoice.New(logger)

	// 3. Платёжный процессор (состояние в StateDir)
	payments, err := payment.New(cfg.StateDir, cfg.BaseURL, logger)
	if err != nil {
		logger.Error("Ошибка инициализации платёжного процессора", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Почтовый менеджер
	mail, err := mailer.New(cfg.StateDir, mailer.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
		FromName: cfg.SMTPFromName,
	}, logger)
	if err != nil {
		logger.Error("Ошибка инициализации почтового менеджера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 5. MCP-диспетчер инструментов
	tools := tool.New(reg, gen, payments, mail, cfg.MyNumber, config.Version, logger)

	// 6. Фоновые процессы
	ctx := context.Background()

	// 6.1 Утилизация просроченных артефактов
	sweepSvc := service.NewSweepService(reg, cfg.RetentionHours, cfg.SweepInterval, logger)
	sweepSvc.Start(ctx)

	// 6.2 topologymetrics — мониторинг зависимостей (только при JWT-аутентификации)
	var dephealthSvc *service.DephealthService
	if cfg.JWKSUrl != "" {
		dephealthSvc, err = service.NewDephealthService(
			dephealthServiceName(cfg.DephealthName),
			cfg.DephealthGroup,
			cfg.DephealthDepName,
			cfg.JWKSUrl,
			cfg.DephealthCheckInterval,
			cfg.TLSSkipVerify,
			logger,
		)
		if err != nil {
			logger.Warn("topologymetrics недоступен, запуск без мониторинга зависимостей",
				slog.String("error", err.Error()),
			)
			dephealthSvc = nil
		} else if startErr := dephealthSvc.Start(ctx); startErr != nil {
			logger.Warn("Ошибка запуска topologymetrics",
				slog.String("error", startErr.Error()),
			)
		} else {
			logger.Info("topologymetrics запущен",
				slog.String("jwks_url", cfg.JWKSUrl),
				slog.String("check_interval", cfg.DephealthCheckInterval.String()),
			)
		}
	}

	// 7. Аутентификация /mcp: статический токен или JWT через JWKS
	var mcpAuth func(http.Handler) http.Handler
	var jwtAuth *middleware.JWTAuth
	switch {
	case cfg.AuthToken != "":
		mcpAuth = middleware.StaticTokenAuth(cfg.AuthToken)
		logger.Info("Аутентификация /mcp: статический токен")
	case cfg.JWKSUrl != "":
		jwtAuth, err = middleware.NewJWTAuth(middleware.JWTAuthConfig{
			JWKSURL:         cfg.JWKSUrl,
			CACertPath:      cfg.JWKSCACert,
			TLSSkipVerify:   cfg.TLSSkipVerify,
			ClientTimeout:   cfg.JWKSClientTimeout,
			RefreshInterval: cfg.JWKSRefreshInterval,
			JWTLeeway:       cfg.JWTLeeway,
		}, logger)
		if err != nil {
			logger.Error("Ошибка инициализации JWT аутентификации", slog.String("error", err.Error()))
			os.Exit(1)
		}
		mcpAuth = jwtAuth.Middleware()
		logger.Info("Аутентификация /mcp: JWT", slog.String("jwks_url", cfg.JWKSUrl))
	default:
		logger.Warn("Аутентификация /mcp не настроена, endpoint открыт")
	}

	// 8. Handlers и HTTP-сервер
	h := server.Handlers{
		Download: handlers.NewDownloadHandler(reg, logger),
		Payment:  handlers.NewPaymentHandler(payments, logger),
		MCP:      handlers.NewMCPHandler(tools, logger),
		Health:   handlers.NewHealthHandler(cfg.DataDir),
	}

	srv := server.New(cfg, logger, h, mcpAuth)

	if err := srv.Run(); err != nil {
		logger.Error("Ошибка сервера", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// --- Graceful shutdown фоновых процессов ---
	logger.Info("Остановка фоновых процессов...")

	sweepSvc.Stop()
	if dephealthSvc != nil {
		dephealthSvc.Stop()
	}
	if jwtAuth != nil {
		jwtAuth.Close()
	}

	logger.Info("Invoice MCP Server остановлен")
}

// dephealthServiceName возвращает имя вершины графа для topologymetrics:
// DEPHEALTH_NAME из конфигурации или имя владельца пода из hostname.
func dephealthServiceName(configured string) string {
	if configured != "" {
		return configured
	}
	hostname, err := os.Hostname()
	if err != nil {
		return "invoice-mcp"
	}
	return parseOwnerName(hostname)
}

var (
	// Hostname пода Deployment: <owner>-<pod-template-hash>-<random>
	deploymentSuffixRe = regexp.MustCompile(`^(.+)-[a-z0-9]{8,10}-[a-z0-9]{5}$`)
	// Hostname пода StatefulSet: <owner>-<ordinal>
	statefulSetSuffixRe = regexp.MustCompile(`^(.+)-[0-9]+$`)
)

// parseOwnerName извлекает имя владельца пода (Deployment или StatefulSet)
// из hostname. Для не-Kubernetes hostname возвращает его без изменений.
func parseOwnerName(hostname string) string {
	hostname = strings.TrimSpace(hostname)
	if m := deploymentSuffixRe.FindStringSubmatch(hostname); m != nil {
		return m[1]
	}
	if m := statefulSetSuffixRe.FindStringSubmatch(hostname); m != nil {
		return m[1]
	}
	return hostname
}
