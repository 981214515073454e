// payment.go — HTTP handlers платёжных страниц.
package handlers

import (
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/akruglov/invoicemcp/internal/api/errors"
	"github.com/akruglov/invoicemcp/internal/payment"
)

// paymentPage — минимальная HTML-страница оплаты.
var paymentPage = template.Must(template.New("payment").Parse(`<!DOCTYPE html>
<html>
<head><title>Payment {{.TransactionID}}</title></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 40px auto;">
  <h1>Invoice Payment</h1>
  <p><strong>Transaction:</strong> {{.TransactionID}}</p>
  <p><strong>Invoice:</strong> {{.InvoiceID}}</p>
  <p><strong>Amount:</strong> {{.Currency}}{{.Amount}}</p>
  <p><strong>Status:</strong> {{.Status}}</p>
  <p><img src="/payment/{{.TransactionID}}/qr" alt="Payment QR" width="205" height="205"></p>
</body>
</html>`))

// PaymentHandler — обработчик платёжных endpoints.
type PaymentHandler struct {
	payments *payment.Processor
	logger   *slog.Logger
}

// NewPaymentHandler создаёт обработчик платёжных endpoints.
func NewPaymentHandler(payments *payment.Processor, logger *slog.Logger) *PaymentHandler {
	return &PaymentHandler{
		payments: payments,
		logger:   logger.With(slog.String("component", "payment_handler")),
	}
}

// Page обрабатывает GET /payment/{transaction_id} — страница оплаты.
func (h *PaymentHandler) Page(w http.ResponseWriter, r *http.Request) {
	tid := chi.URLParam(r, "transaction_id")

	tx, err := h.payments.Status(tid)
	if errors.Is(err, payment.ErrTransactionNotFound) {
		apierrors.NotFound(w, fmt.Sprintf("Транзакция %s не найдена", tid))
		return
	}
	if err != nil {
		apierrors.InternalError(w, "Ошибка чтения транзакции")
		return
	}

	data := struct {
		TransactionID string
		InvoiceID     string
		Currency      string
		Amount        string
		Status        string
	}{
		TransactionID: tx.TransactionID,
		InvoiceID:     tx.InvoiceID,
		Currency:      tx.Currency,
		Amount:        strconv.FormatFloat(tx.Amount, 'f', 2, 64),
		Status:        tx.Status,
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := paymentPage.Execute(w, data); err != nil {
		h.logger.Error("Ошибка рендеринга платёжной страницы",
			slog.String("transaction_id", tid),
			slog.String("error", err.Error()),
		)
	}
}

// QR обрабатывает GET /payment/{transaction_id}/qr — PNG с QR-кодом.
func (h *PaymentHandler) QR(w http.ResponseWriter, r *http.Request) {
	tid := chi.URLParam(r, "transaction_id")

	png, err := h.payments.GenerateQR(tid)
	if errors.Is(err, payment.ErrTransactionNotFound) {
		apierrors.NotFound(w, fmt.Sprintf("Транзакция %s не найдена", tid))
		return
	}
	if err != nil {
		apierrors.InternalError(w, "Ошибка генерации QR-кода")
		return
	}

	w.Header().Set("Content-Type", "image/png")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}
