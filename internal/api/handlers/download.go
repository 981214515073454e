// download.go — HTTP handlers отдачи артефактов по ссылкам.
package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/akruglov/invoicemcp/internal/api/errors"
	"github.com/akruglov/invoicemcp/internal/registry"
)

// DownloadHandler — обработчик endpoints скачивания.
type DownloadHandler struct {
	registry *registry.Registry
	logger   *slog.Logger
}

// NewDownloadHandler создаёт обработчик endpoints скачивания.
func NewDownloadHandler(reg *registry.Registry, logger *slog.Logger) *DownloadHandler {
	return &DownloadHandler{
		registry: reg,
		logger:   logger.With(slog.String("component", "download_handler")),
	}
}

// Download обрабатывает GET /download/{id}.
// Коды: 200 — отдача артефакта, 404 — записи нет, 410 — срок истёк,
// 500 — запись повреждена.
func (h *DownloadHandler) Download(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	handle, err := h.registry.Resolve(id)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		apierrors.NotFound(w, fmt.Sprintf("Ссылка %s не найдена", id))
		return
	case errors.Is(err, registry.ErrExpired):
		apierrors.Gone(w, "Срок жизни ссылки истёк")
		return
	case err != nil:
		apierrors.InternalError(w, "Ошибка чтения артефакта")
		return
	}

	file, err := os.Open(handle.Path)
	if err != nil {
		h.logger.Error("Blob не открывается",
			slog.String("id", id),
			slog.String("error", err.Error()),
		)
		apierrors.InternalError(w, "Ошибка чтения артефакта")
		return
	}
	defer file.Close()

	stat, err := file.Stat()
	if err != nil {
		apierrors.InternalError(w, "Ошибка чтения артефакта")
		return
	}

	w.Header().Set("Content-Type", handle.ContentType)
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("attachment; filename=%q", handle.DisplayFilename))
	w.Header().Set("X-Generation-ID", handle.Record.GenerationID)
	http.ServeContent(w, r, handle.DisplayFilename, stat.ModTime(), file)
}

// Info обрабатывает GET /download/{id}/info.
// Метаданные записи без отдачи файла и без побочных эффектов.
func (h *DownloadHandler) Info(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	rec, state, err := h.registry.Info(id)
	switch {
	case errors.Is(err, registry.ErrNotFound):
		apierrors.NotFound(w, fmt.Sprintf("Ссылка %s не найдена", id))
		return
	case err != nil:
		apierrors.InternalError(w, "Ошибка чтения записи")
		return
	}

	resp := map[string]any{
		"id":            rec.ID,
		"generation_id": rec.GenerationID,
		"type":          rec.ArtifactType,
		"size_bytes":    rec.SizeBytes,
		"created_at":    rec.CreatedAt,
		"expires_at":    rec.ExpiresAt,
		"state":         state,
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

// Stats обрабатывает GET /download-stats.
func (h *DownloadHandler) Stats(w http.ResponseWriter, _ *http.Request) {
	stats, err := h.registry.GetStats()
	if err != nil {
		apierrors.InternalError(w, "Ошибка подсчёта статистики")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(stats)
}
