// sweep.go — сервис фоновой утилизации просроченных артефактов.
//
// Утилизация выполняет две задачи:
//  1. Удаляет записи старше порога хранения вместе с их PDF (по возрасту создания)
//  2. Обновляет gauge-метрики реестра (количество записей, объём хранилища)
//
// Запускается как горутина с периодическим тикером (INV_SWEEP_INTERVAL).
package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/akruglov/invoicemcp/internal/api/middleware"
	"github.com/akruglov/invoicemcp/internal/registry"
)

// Prometheus метрики утилизации
var (
	// sweepRunsTotal — количество запусков утилизации.
	sweepRunsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inv_sweep_runs_total",
		Help: "Общее количество запусков фоновой утилизации",
	})

	// sweepReclaimedTotal — количество утилизированных записей.
	sweepReclaimedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inv_sweep_reclaimed_total",
		Help: "Общее количество записей, утилизированных фоновой очисткой",
	})

	// sweepDurationSeconds — длительность выполнения утилизации.
	sweepDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "inv_sweep_duration_seconds",
		Help:    "Длительность выполнения утилизации в секундах",
		Buckets: []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 10, 30, 60},
	})
)

// SweepResult — результат одного запуска утилизации.
type SweepResult struct {
	// ReclaimedCount — количество утилизированных записей
	ReclaimedCount int
	// Duration — длительность выполнения
	Duration time.Duration
}

// SweepService — сервис фоновой утилизации просроченных артефактов.
type SweepService struct {
	registry       *registry.Registry
	retentionHours int
	interval       time.Duration
	logger         *slog.Logger

	mu     sync.Mutex // защита от параллельного запуска RunOnce
	cancel context.CancelFunc
}

// NewSweepService создаёт сервис утилизации.
func NewSweepService(
	reg *registry.Registry,
	retentionHours int,
	interval time.Duration,
	logger *slog.Logger,
) *SweepService {
	return &SweepService{
		registry:       reg,
		retentionHours: retentionHours,
		interval:       interval,
		logger:         logger.With(slog.String("component", "sweep")),
	}
}

// Start запускает фоновую горутину утилизации с периодическим тикером.
// Вызывается один раз при старте приложения.
func (s *SweepService) Start(ctx context.Context) {
	sweepCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	go s.run(sweepCtx)

	s.logger.Info("Утилизация запущена",
		slog.String("interval", s.interval.String()),
		slog.Int("retention_hours", s.retentionHours),
	)
}

// Stop останавливает фоновый процесс утилизации.
func (s *SweepService) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
	s.logger.Info("Утилизация остановлена")
}

// run — основной цикл фоновой горутины.
func (s *SweepService) run(ctx context.Context) {
	// Первый запуск — сразу после старта
	s.RunOnce()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.RunOnce()
		}
	}
}

// RunOnce выполняет один цикл утилизации.
// Потокобезопасен: использует mutex для защиты от параллельного запуска.
func (s *SweepService) RunOnce() *SweepResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	start := time.Now()
	result := &SweepResult{}

	s.logger.Debug("Утилизация начата")

	reclaimed, err := s.registry.Sweep(s.retentionHours)
	if err != nil {
		s.logger.Error("Ошибка утилизации",
			slog.String("error", err.Error()),
		)
	}
	result.ReclaimedCount = reclaimed
	result.Duration = time.Since(start)

	// Обновляем Prometheus метрики
	sweepRunsTotal.Inc()
	sweepReclaimedTotal.Add(float64(reclaimed))
	sweepDurationSeconds.Observe(result.Duration.Seconds())
	s.updateGauges()

	s.logger.Info("Утилизация завершена",
		slog.Int("reclaimed", result.ReclaimedCount),
		slog.Duration("duration", result.Duration),
	)

	return result
}

// updateGauges пересчитывает gauge-метрики реестра по данным на диске.
func (s *SweepService) updateGauges() {
	stats, err := s.registry.GetStats()
	if err != nil {
		s.logger.Error("Ошибка подсчёта статистики реестра",
			slog.String("error", err.Error()),
		)
		return
	}

	middleware.RecordsTotal.WithLabelValues("active").Set(float64(stats.ActiveCount))
	middleware.RecordsTotal.WithLabelValues("expired").Set(float64(stats.Count - stats.ActiveCount))
	middleware.StorageBytes.Set(float64(stats.TotalBytes))
}
