// mcp.go — HTTP транспорт JSON-RPC инструментов.
package handlers

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"

	apierrors "github.com/akruglov/invoicemcp/internal/api/errors"
	"github.com/akruglov/invoicemcp/internal/tool"
)

// maxRequestBody — предел размера тела JSON-RPC запроса.
const maxRequestBody = 1 << 20 // 1MB

// MCPHandler — обработчик POST /mcp.
type MCPHandler struct {
	tools  *tool.Server
	logger *slog.Logger
}

// NewMCPHandler создаёт обработчик JSON-RPC endpoint.
func NewMCPHandler(tools *tool.Server, logger *slog.Logger) *MCPHandler {
	return &MCPHandler{
		tools:  tools,
		logger: logger.With(slog.String("component", "mcp_handler")),
	}
}

// Handle обрабатывает POST /mcp: один JSON-RPC запрос на HTTP-запрос.
// Для уведомлений возвращает 202 без тела.
func (h *MCPHandler) Handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxRequestBody))
	if err != nil {
		apierrors.ValidationError(w, "Ошибка чтения тела запроса")
		return
	}

	resp := h.tools.HandleMessage(r.Context(), body)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("Ошибка записи JSON-RPC ответа", slog.String("error", err.Error()))
	}
}
