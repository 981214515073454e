// Пакет registry — реестр ссылок на скачивание.
//
// Единственный владелец соответствия "идентификатор → артефакт":
// создаёт пары blob+запись, проверяет срок жизни при чтении,
// утилизирует просроченные артефакты (reclaim) и выполняет sweep
// по возрасту создания.
//
// Жизненный цикл записи: создана → активна → просрочена → утилизирована.
// Состояние не хранится, а вычисляется из expires_at и наличия blob.
package registry

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/akruglov/invoicemcp/internal/domain/model"
	"github.com/akruglov/invoicemcp/internal/storage/blob"
	"github.com/akruglov/invoicemcp/internal/storage/record"
)

// Ошибки резолва идентификатора. Различаются вызывающим кодом:
// NotFound — никогда не существовал, Expired — существовал, но срок
// истёк (и данные уже удалены), Corrupt — запись нечитаема или blob
// отсутствует.
var (
	// ErrNotFound — запись с таким id не существует.
	ErrNotFound = errors.New("запись не найдена")
	// ErrExpired — срок жизни ссылки истёк, артефакт утилизирован.
	ErrExpired = errors.New("срок жизни ссылки истёк")
	// ErrCorrupt — запись нечитаема или blob-файл отсутствует.
	ErrCorrupt = errors.New("запись повреждена")
)

// Prometheus метрики реестра
var (
	// artifactsCreatedTotal — количество созданных артефактов.
	artifactsCreatedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inv_artifacts_created_total",
		Help: "Общее количество созданных артефактов",
	}, []string{"type"})

	// artifactsReclaimedTotal — количество утилизированных артефактов.
	artifactsReclaimedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "inv_artifacts_reclaimed_total",
		Help: "Общее количество утилизированных артефактов",
	}, []string{"reason"})
)

// Registry — реестр ссылок на скачивание.
type Registry struct {
	store   *blob.Store
	baseURL string
	logger  *slog.Logger
}

// New создаёт реестр поверх blob-хранилища.
// baseURL — внешний базовый URL для построения ссылок (INV_BASE_URL);
// реестр его не вычисляет, а только подставляет.
func New(store *blob.Store, baseURL string, logger *slog.Logger) *Registry {
	return &Registry{
		store:   store,
		baseURL: strings.TrimRight(baseURL, "/"),
		logger:  logger.With(slog.String("component", "registry")),
	}
}

// CreateParams — параметры регистрации артефакта.
type CreateParams struct {
	// Data — готовые байты артефакта
	Data []byte
	// Type — тип артефакта
	Type model.ArtifactType
	// GenerationID — корреляционный идентификатор запроса генерации
	GenerationID string
	// Display — косметические метаданные для имени файла
	Display model.DisplayMeta
}

// CreateResult — результат регистрации артефакта.
type CreateResult struct {
	// Record — созданная запись
	Record *model.DownloadRecord
	// URL — полная ссылка на скачивание
	URL string
}

// Create регистрирует артефакт: записывает blob, создаёт запись с
// expires_at = now + 24h и возвращает ссылку на скачивание.
//
// Атомарность: либо существуют и blob, и запись, либо ни одного.
// При ошибке записи выполняется best-effort откат частично
// записанных файлов, после чего ошибка возвращается вызывающему.
func (r *Registry) Create(params CreateParams) (*CreateResult, error) {
	if !params.Type.Valid() {
		return nil, fmt.Errorf("неизвестный тип артефакта: %q", params.Type)
	}

	id := uuid.New().String()
	filename := params.Type.BlobFilename(id)

	// 1. Записываем blob (temp → fsync → rename внутри blob.Store)
	if err := r.store.Write(filename, params.Data); err != nil {
		return nil, fmt.Errorf("ошибка записи артефакта: %w", err)
	}

	// 2. Формируем запись
	now := time.Now().UTC()
	rec := &model.DownloadRecord{
		ID:           id,
		GenerationID: params.GenerationID,
		ArtifactType: params.Type,
		Filename:     filename,
		SizeBytes:    int64(len(params.Data)),
		CreatedAt:    now,
		ExpiresAt:    now.Add(model.DefaultTTL),
		Display:      params.Display,
	}

	// 3. Записываем {id}.json. При ошибке откатываем blob: запись без
	// blob или blob без записи существовать не должны.
	recPath := record.Path(r.store.DataDir(), id)
	if err := record.Write(recPath, rec); err != nil {
		if delErr := r.store.Delete(filename); delErr != nil {
			r.logger.Error("Откат blob после ошибки записи метаданных не удался",
				slog.String("id", id),
				slog.String("error", delErr.Error()),
			)
		}
		return nil, fmt.Errorf("ошибка записи метаданных: %w", err)
	}

	artifactsCreatedTotal.WithLabelValues(string(params.Type)).Inc()

	r.logger.Info("Артефакт зарегистрирован",
		slog.String("id", id),
		slog.String("generation_id", params.GenerationID),
		slog.String("type", string(params.Type)),
		slog.Int64("size", rec.SizeBytes),
	)

	return &CreateResult{
		Record: rec,
		URL:    r.DownloadURL(id),
	}, nil
}

// DownloadURL строит полную ссылку на скачивание для данного id.
func (r *Registry) DownloadURL(id string) string {
	return fmt.Sprintf("%s/download/%s", r.baseURL, id)
}

// Handle — дескриптор артефакта, готового к отдаче.
type Handle struct {
	// Path — абсолютный путь blob-файла на диске
	Path string
	// ContentType — MIME-тип для отдачи
	ContentType string
	// DisplayFilename — читаемое имя файла для Content-Disposition
	DisplayFilename string
	// SizeBytes — размер артефакта на момент создания
	SizeBytes int64
	// Record — запись целиком (generation_id и пр.)
	Record *model.DownloadRecord
}

// Resolve находит запись по id и возвращает дескриптор для отдачи.
//
// Ошибки:
//   - ErrNotFound — записи не существует
//   - ErrCorrupt — запись нечитаема, либо blob-файл отсутствует
//   - ErrExpired — срок истёк; blob и запись удалены как побочный
//     эффект проверки (reclaim идемпотентен: параллельный Resolve
//     того же просроченного id безопасен, второй вызов не находит
//     файлов и ничего не делает)
func (r *Registry) Resolve(id string) (*Handle, error) {
	recPath := record.Path(r.store.DataDir(), id)

	if !record.Exists(recPath) {
		return nil, ErrNotFound
	}

	rec, err := record.Read(recPath)
	if err != nil {
		r.logger.Error("Запись не читается",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("%w: %s", ErrCorrupt, id)
	}

	if !r.store.Exists(rec.Filename) {
		r.logger.Error("Blob отсутствует для существующей записи",
			slog.String("id", id),
			slog.String("filename", rec.Filename),
		)
		return nil, fmt.Errorf("%w: blob %s отсутствует", ErrCorrupt, rec.Filename)
	}

	if rec.IsExpired(time.Now().UTC()) {
		r.reclaim(id, rec.Filename, "expired")
		return nil, ErrExpired
	}

	return &Handle{
		Path:            r.store.FullPath(rec.Filename),
		ContentType:     rec.ArtifactType.ContentType(),
		DisplayFilename: displayFilename(rec),
		SizeBytes:       rec.SizeBytes,
		Record:          rec,
	}, nil
}

// Info возвращает запись и её вычисленное состояние без отдачи файла
// и без побочных эффектов (просроченная запись не утилизируется).
func (r *Registry) Info(id string) (*model.DownloadRecord, model.RecordState, error) {
	recPath := record.Path(r.store.DataDir(), id)

	if !record.Exists(recPath) {
		return nil, "", ErrNotFound
	}

	rec, err := record.Read(recPath)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s", ErrCorrupt, id)
	}

	state := rec.State(time.Now().UTC(), r.store.Exists(rec.Filename))
	return rec, state, nil
}

// Sweep проходит по всем записям и утилизирует те, чей возраст
// создания превышает maxAgeHours. Использует именно created_at, а не
// per-record expires_at: retention-окно sweep настраивается извне и
// независимо от фиксированного 24-часового срока ссылок.
//
// Повреждённые записи удаляются сразу же: sweep никогда не прерывается
// на одной плохой записи и обрабатывает все оставшиеся. Возвращает
// best-effort количество утилизированных записей.
func (r *Registry) Sweep(maxAgeHours int) (int, error) {
	paths, err := record.ScanDir(r.store.DataDir())
	if err != nil {
		return 0, fmt.Errorf("ошибка сканирования записей: %w", err)
	}

	cutoff := time.Now().UTC().Add(-time.Duration(maxAgeHours) * time.Hour)
	reclaimed := 0

	for _, recPath := range paths {
		id := record.IDFromPath(recPath)

		rec, err := record.Read(recPath)
		if err != nil {
			// Невосстановимая запись: удаляем и продолжаем
			r.logger.Warn("Sweep: повреждённая запись удалена",
				slog.String("id", id),
				slog.String("error", err.Error()),
			)
			if delErr := record.Delete(recPath); delErr == nil {
				artifactsReclaimedTotal.WithLabelValues("corrupt").Inc()
				reclaimed++
			}
			continue
		}

		if !rec.CreatedAt.Before(cutoff) {
			continue
		}

		r.reclaim(id, rec.Filename, "sweep")
		reclaimed++
	}

	return reclaimed, nil
}

// Stats — агрегированная статистика по записям на диске.
type Stats struct {
	// Count — общее количество записей
	Count int `json:"count"`
	// TotalBytes — суммарный размер артефактов
	TotalBytes int64 `json:"total_bytes"`
	// ActiveCount — записи, чей expires_at ещё не наступил
	ActiveCount int `json:"active_count"`
}

// GetStats считает агрегаты по всем записям в content-директории.
// Только чтение, без побочных эффектов. Нечитаемые записи входят в
// Count, но не в TotalBytes/ActiveCount.
func (r *Registry) GetStats() (*Stats, error) {
	paths, err := record.ScanDir(r.store.DataDir())
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования записей: %w", err)
	}

	stats := &Stats{}
	now := time.Now().UTC()

	for _, recPath := range paths {
		stats.Count++

		rec, err := record.Read(recPath)
		if err != nil {
			continue
		}

		stats.TotalBytes += rec.SizeBytes
		if !rec.IsExpired(now) {
			stats.ActiveCount++
		}
	}

	return stats, nil
}

// reclaim удаляет blob и запись вместе. Идемпотентен: оба удаления
// трактуют "файл уже отсутствует" как успех, поэтому повторный reclaim
// того же id — no-op. Порядок blob → запись: в худшем случае остаётся
// запись без blob (Corrupt при чтении), но не blob-сирота.
func (r *Registry) reclaim(id, filename, reason string) {
	if err := r.store.Delete(filename); err != nil {
		r.logger.Error("Ошибка удаления blob при reclaim",
			slog.String("id", id),
			slog.String("filename", filename),
			slog.String("error", err.Error()),
		)
	}

	recPath := record.Path(r.store.DataDir(), id)
	if err := record.Delete(recPath); err != nil {
		r.logger.Error("Ошибка удаления записи при reclaim",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		return
	}

	artifactsReclaimedTotal.WithLabelValues(reason).Inc()

	r.logger.Debug("Артефакт утилизирован",
		slog.String("id", id),
		slog.String("reason", reason),
	)
}

// displayFilename строит читаемое имя файла для Content-Disposition
// из косметических метаданных записи.
func displayFilename(rec *model.DownloadRecord) string {
	shortID := rec.ID
	if len(shortID) > 8 {
		shortID = shortID[:8]
	}

	switch rec.ArtifactType {
	case model.ArtifactInvoicePDF:
		companySlug := Slug(defaultIfEmpty(rec.Display.CompanyName, "company"))
		buyerSlug := Slug(defaultIfEmpty(rec.Display.BuyerName, "invoice"))
		number := defaultIfEmpty(rec.Display.InvoiceNumber, shortID)
		return fmt.Sprintf("%s_%s_%s.pdf", companySlug, buyerSlug, number)
	default:
		genSlug := Slug(defaultIfEmpty(rec.GenerationID, "generated-package"))
		return fmt.Sprintf("%s_%s.zip", genSlug, shortID)
	}
}

func defaultIfEmpty(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
