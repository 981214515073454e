// Пакет server — HTTP-сервер Invoice MCP Server с graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/akruglov/invoicemcp/internal/api/handlers"
	"github.com/akruglov/invoicemcp/internal/api/middleware"
	"github.com/akruglov/invoicemcp/internal/config"
)

// Handlers — набор обработчиков, монтируемых на роутер.
type Handlers struct {
	Download *handlers.DownloadHandler
	Payment  *handlers.PaymentHandler
	MCP      *handlers.MCPHandler
	Health   *handlers.HealthHandler
}

// Server — HTTP-сервер Invoice MCP Server.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
	cfg        *config.Config
}

// New создаёт новый HTTP-сервер с настроенными routes и middleware.
// mcpAuth — middleware аутентификации для /mcp (nil = доступ без аутентификации).
func New(cfg *config.Config, logger *slog.Logger, h Handlers, mcpAuth func(http.Handler) http.Handler) *Server {
	router := chi.NewRouter()

	// Middleware
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.MetricsMiddleware())

	// Публичные маршруты: скачивание счетов и страницы оплаты
	router.Get("/download/{id}", h.Download.Download)
	router.Get("/download/{id}/info", h.Download.Info)
	router.Get("/download-stats", h.Download.Stats)
	router.Get("/payment/{transaction_id}", h.Payment.Page)
	router.Get("/payment/{transaction_id}/qr", h.Payment.QR)

	// MCP endpoint — единственный защищённый маршрут
	router.Group(func(r chi.Router) {
		if mcpAuth != nil {
			r.Use(mcpAuth)
		}
		r.Post("/mcp", h.MCP.Handle)
	})

	// Служебные endpoints
	router.Get("/health/live", h.Health.HealthLive)
	router.Get("/health/ready", h.Health.HealthReady)
	router.Handle("/metrics", promhttp.Handler())

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return &Server{
		httpServer: srv,
		logger:     logger,
		cfg:        cfg,
	}
}

// Run запускает сервер и ожидает сигнала завершения (SIGINT, SIGTERM).
// При получении сигнала выполняется graceful shutdown с таймаутом из конфигурации.
func (s *Server) Run() error {
	// Канал для ошибок сервера
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP-сервер запущен",
			slog.String("addr", s.httpServer.Addr),
			slog.String("base_url", s.cfg.BaseURL),
		)

		err := s.httpServer.ListenAndServe()
		if err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	// Ожидание сигнала завершения
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		s.logger.Info("Получен сигнал завершения", slog.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("ошибка HTTP-сервера: %w", err)
		}
	}

	// Graceful shutdown с таймаутом из конфигурации
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	s.logger.Info("Выполняется graceful shutdown...")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("ошибка при graceful shutdown: %w", err)
	}

	s.logger.Info("HTTP-сервер остановлен")
	return nil
}
