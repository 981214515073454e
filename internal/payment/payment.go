// Пакет payment — платёжные ссылки и демонстрационная обработка
// платежей.
//
// Транзакции и сводки по инвойсам держатся в памяти под мьютексом и
// сохраняются в payments.json / invoices.json в data-директории.
// Реальной платёжной интеграции нет: обработка и возвраты — dummy.
package payment

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	qrcode "github.com/skip2/go-qrcode"
)

// DefaultCurrency — валюта по умолчанию для платёжных ссылок.
const DefaultCurrency = "₹"

// Статусы транзакции.
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
	StatusRefunded   = "refunded"
)

// Ошибки платёжных операций.
var (
	// ErrTransactionNotFound — транзакция с таким id не существует.
	ErrTransactionNotFound = errors.New("транзакция не найдена")
	// ErrInvalidState — операция недопустима в текущем статусе.
	ErrInvalidState = errors.New("недопустимый статус транзакции")
	// ErrValidation — некорректные входные параметры.
	ErrValidation = errors.New("ошибка валидации")
)

// paymentsProcessedTotal — количество обработанных платежей по статусам.
var paymentsProcessedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "inv_payments_processed_total",
	Help: "Общее количество обработанных платёжных операций",
}, []string{"status"})

// Method — способ оплаты.
type Method struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Enabled bool   `json:"enabled"`
}

// methods — фиксированный набор способов оплаты.
var methods = map[string]Method{
	"card":          {ID: "card", Name: "Credit/Debit Card", Enabled: true},
	"paypal":        {ID: "paypal", Name: "PayPal", Enabled: true},
	"bank_transfer": {ID: "bank_transfer", Name: "Bank Transfer", Enabled: true},
	"crypto":        {ID: "crypto", Name: "Cryptocurrency", Enabled: true},
	"upi":           {ID: "upi", Name: "UPI Payment", Enabled: true},
}

// defaultMethods — способы, предлагаемые по умолчанию в платёжной ссылке.
var defaultMethods = []string{"card", "upi", "paypal"}

// Transaction — платёжная транзакция.
type Transaction struct {
	TransactionID    string  `json:"transaction_id"`
	InvoiceID        string  `json:"invoice_id"`
	Amount           float64 `json:"amount"`
	Currency         string  `json:"currency"`
	CustomerEmail    string  `json:"customer_email"`
	PaymentMethod    string  `json:"payment_method"`
	Status           string  `json:"status"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
	PaymentURL       string  `json:"payment_url"`
	ConfirmationCode string  `json:"confirmation_code,omitempty"`
}

// InvoiceSummary — платёжная сводка по инвойсу.
type InvoiceSummary struct {
	InvoiceID     string  `json:"invoice_id"`
	Status        string  `json:"status"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	CreatedAt     string  `json:"created_at"`
	PaymentLink   string  `json:"payment_link,omitempty"`
	TransactionID string  `json:"transaction_id,omitempty"`
	PaymentMethod string  `json:"payment_method,omitempty"`
	PaidAt        string  `json:"paid_at,omitempty"`
	RefundedAt    string  `json:"refunded_at,omitempty"`
	RefundReason  string  `json:"refund_reason,omitempty"`
}

// Processor обрабатывает платёжные ссылки, dummy-платежи и возвраты.
type Processor struct {
	mu           sync.Mutex
	baseURL      string
	paymentsFile string
	invoicesFile string
	logger       *slog.Logger

	transactions map[string]*Transaction
	invoices     map[string]*InvoiceSummary
}

// New создаёт процессор и поднимает состояние из data-директории.
// Нечитаемые файлы состояния не фатальны: процессор стартует пустым.
func New(dataDir, baseURL string, logger *slog.Logger) (*Processor, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("ошибка создания директории данных: %w", err)
	}

	p := &Processor{
		baseURL:      strings.TrimRight(baseURL, "/"),
		paymentsFile: filepath.Join(dataDir, "payments.json"),
		invoicesFile: filepath.Join(dataDir, "invoices.json"),
		logger:       logger.With(slog.String("component", "payment")),
		transactions: make(map[string]*Transaction),
		invoices:     make(map[string]*InvoiceSummary),
	}
	p.load()
	return p, nil
}

// load читает сохранённое состояние. Ошибки только логируются.
func (p *Processor) load() {
	if data, err := os.ReadFile(p.paymentsFile); err == nil {
		if err := json.Unmarshal(data, &p.transactions); err != nil {
			p.logger.Error("Файл платежей не читается, старт с пустым состоянием",
				slog.String("file", p.paymentsFile),
				slog.String("error", err.Error()),
			)
			p.transactions = make(map[string]*Transaction)
		}
	}
	if data, err := os.ReadFile(p.invoicesFile); err == nil {
		if err := json.Unmarshal(data, &p.invoices); err != nil {
			p.logger.Error("Файл инвойсов не читается, старт с пустым состоянием",
				slog.String("file", p.invoicesFile),
				slog.String("error", err.Error()),
			)
			p.invoices = make(map[string]*InvoiceSummary)
		}
	}
}

// persist сохраняет оба файла состояния атомарно (temp → rename).
// Вызывается под мьютексом.
func (p *Processor) persist() error {
	if err := writeJSON(p.paymentsFile, p.transactions); err != nil {
		return fmt.Errorf("ошибка сохранения платежей: %w", err)
	}
	if err := writeJSON(p.invoicesFile, p.invoices); err != nil {
		return fmt.Errorf("ошибка сохранения инвойсов: %w", err)
	}
	return nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o640); err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// LinkResult — результат создания платёжной ссылки.
type LinkResult struct {
	TransactionID    string   `json:"transaction_id"`
	PaymentURL       string   `json:"payment_url"`
	Amount           float64  `json:"amount"`
	Currency         string   `json:"currency"`
	AvailableMethods []string `json:"available_methods"`
}

// CreateLink создаёт платёжную ссылку для инвойса и новую pending
// транзакцию. При ошибке сохранения транзакция откатывается из памяти.
func (p *Processor) CreateLink(invoiceID string, amount float64, currency, customerEmail string, methodIDs []string) (*LinkResult, error) {
	if strings.TrimSpace(invoiceID) == "" {
		return nil, fmt.Errorf("%w: пустой идентификатор инвойса", ErrValidation)
	}
	if amount <= 0 {
		return nil, fmt.Errorf("%w: сумма должна быть больше нуля", ErrValidation)
	}
	if currency == "" {
		currency = DefaultCurrency
	}
	if len(methodIDs) == 0 {
		methodIDs = defaultMethods
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now().Format(time.RFC3339)
	tx := &Transaction{
		TransactionID: uuid.New().String(),
		InvoiceID:     invoiceID,
		Amount:        amount,
		Currency:      currency,
		CustomerEmail: customerEmail,
		PaymentMethod: "card",
		Status:        StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	tx.PaymentURL = fmt.Sprintf("%s/payment/%s", p.baseURL, tx.TransactionID)

	p.transactions[tx.TransactionID] = tx

	inv, ok := p.invoices[invoiceID]
	if !ok {
		inv = &InvoiceSummary{
			InvoiceID: invoiceID,
			Status:    "draft",
			Amount:    amount,
			Currency:  currency,
			CreatedAt: now,
		}
		p.invoices[invoiceID] = inv
	}
	inv.PaymentLink = tx.PaymentURL
	inv.TransactionID = tx.TransactionID
	inv.Status = "pending_payment"

	if err := p.persist(); err != nil {
		delete(p.transactions, tx.TransactionID)
		return nil, err
	}

	available := make([]string, 0, len(methodIDs))
	for _, id := range methodIDs {
		if m, ok := methods[id]; ok {
			available = append(available, m.Name)
		}
	}

	p.logger.Info("Создана платёжная ссылка",
		slog.String("invoice_id", invoiceID),
		slog.String("transaction_id", tx.TransactionID),
		slog.Float64("amount", amount),
	)

	return &LinkResult{
		TransactionID:    tx.TransactionID,
		PaymentURL:       tx.PaymentURL,
		Amount:           amount,
		Currency:         currency,
		AvailableMethods: available,
	}, nil
}

// GenerateQR строит PNG с QR-кодом платёжной ссылки транзакции.
func (p *Processor) GenerateQR(transactionID string) ([]byte, error) {
	p.mu.Lock()
	tx, ok := p.transactions[transactionID]
	p.mu.Unlock()
	if !ok {
		return nil, ErrTransactionNotFound
	}

	png, err := qrcode.Encode(tx.PaymentURL, qrcode.Low, 410)
	if err != nil {
		p.logger.Error("Ошибка генерации QR-кода",
			slog.String("transaction_id", transactionID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("ошибка генерации QR-кода: %w", err)
	}
	return png, nil
}

// ProcessResult — результат обработки dummy-платежа.
type ProcessResult struct {
	Success          bool   `json:"success"`
	Status           string `json:"status"`
	ConfirmationCode string `json:"confirmation_code,omitempty"`
	Message          string `json:"message"`
}

// ProcessDummy обрабатывает демонстрационный платёж по pending
// транзакции. При simulateSuccess транзакция завершается с кодом
// подтверждения PAY_<ID8>, иначе помечается как failed.
func (p *Processor) ProcessDummy(transactionID, method string, simulateSuccess bool) (*ProcessResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tx, ok := p.transactions[transactionID]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	if tx.Status != StatusPending {
		return nil, fmt.Errorf("%w: транзакция уже %s", ErrInvalidState, tx.Status)
	}
	if method == "" {
		method = "card"
	}

	tx.Status = StatusProcessing
	tx.PaymentMethod = method
	now := time.Now().Format(time.RFC3339)
	tx.UpdatedAt = now

	var result *ProcessResult
	if simulateSuccess {
		tx.Status = StatusCompleted
		tx.ConfirmationCode = "PAY_" + strings.ToUpper(shortID(tx.TransactionID))

		if inv, ok := p.invoices[tx.InvoiceID]; ok {
			inv.Status = "paid"
			inv.PaidAt = now
			inv.PaymentMethod = method
		}

		result = &ProcessResult{
			Success:          true,
			Status:           StatusCompleted,
			ConfirmationCode: tx.ConfirmationCode,
			Message:          fmt.Sprintf("Payment of %s%.2f completed successfully", tx.Currency, tx.Amount),
		}
	} else {
		tx.Status = StatusFailed
		result = &ProcessResult{
			Success: false,
			Status:  StatusFailed,
			Message: "Please try again or use a different payment method",
		}
	}
	tx.UpdatedAt = time.Now().Format(time.RFC3339)

	if err := p.persist(); err != nil {
		return nil, err
	}

	paymentsProcessedTotal.WithLabelValues(tx.Status).Inc()
	p.logger.Info("Обработан dummy-платёж",
		slog.String("transaction_id", transactionID),
		slog.String("status", tx.Status),
	)
	return result, nil
}

// Status возвращает копию транзакции по идентификатору.
func (p *Processor) Status(transactionID string) (*Transaction, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tx, ok := p.transactions[transactionID]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	cp := *tx
	return &cp, nil
}

// InvoiceTransactions возвращает все транзакции данного инвойса.
func (p *Processor) InvoiceTransactions(invoiceID string) []*Transaction {
	p.mu.Lock()
	defer p.mu.Unlock()

	var out []*Transaction
	for _, tx := range p.transactions {
		if tx.InvoiceID == invoiceID {
			cp := *tx
			out = append(out, &cp)
		}
	}
	return out
}

// RefundResult — результат возврата.
type RefundResult struct {
	Success      bool    `json:"success"`
	Status       string  `json:"status"`
	RefundAmount float64 `json:"refund_amount"`
	Currency     string  `json:"currency"`
	Reason       string  `json:"reason"`
	Message      string  `json:"message"`
}

// Refund выполняет dummy-возврат. Возврат допустим только для
// завершённых транзакций.
func (p *Processor) Refund(transactionID, reason string) (*RefundResult, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tx, ok := p.transactions[transactionID]
	if !ok {
		return nil, ErrTransactionNotFound
	}
	if tx.Status != StatusCompleted {
		return nil, fmt.Errorf("%w: возврат возможен только для завершённых платежей", ErrInvalidState)
	}
	if reason == "" {
		reason = "Customer request"
	}

	now := time.Now().Format(time.RFC3339)
	tx.Status = StatusRefunded
	tx.UpdatedAt = now

	if inv, ok := p.invoices[tx.InvoiceID]; ok {
		inv.Status = "refunded"
		inv.RefundedAt = now
		inv.RefundReason = reason
	}

	if err := p.persist(); err != nil {
		return nil, err
	}

	paymentsProcessedTotal.WithLabelValues(StatusRefunded).Inc()
	p.logger.Info("Обработан возврат",
		slog.String("transaction_id", transactionID),
		slog.String("reason", reason),
	)

	return &RefundResult{
		Success:      true,
		Status:       StatusRefunded,
		RefundAmount: tx.Amount,
		Currency:     tx.Currency,
		Reason:       reason,
		Message:      fmt.Sprintf("Refund of %s%.2f processed successfully", tx.Currency, tx.Amount),
	}, nil
}

// Analytics — агрегаты по платежам за период.
type Analytics struct {
	PeriodDays        int                `json:"period_days"`
	TotalTransactions int                `json:"total_transactions"`
	CompletedPayments int                `json:"completed_payments"`
	FailedPayments    int                `json:"failed_payments"`
	SuccessRate       float64            `json:"success_rate"`
	TotalAmount       float64            `json:"total_amount"`
	RefundedAmount    float64            `json:"refunded_amount"`
	NetAmount         float64            `json:"net_amount"`
	PaymentMethods    map[string]int     `json:"payment_methods"`
	DailyAmounts      map[string]float64 `json:"daily_amounts"`
}

// GetAnalytics считает агрегаты по транзакциям за последние days дней.
func (p *Processor) GetAnalytics(days int) *Analytics {
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	p.mu.Lock()
	defer p.mu.Unlock()

	a := &Analytics{
		PeriodDays:     days,
		PaymentMethods: make(map[string]int),
		DailyAmounts:   make(map[string]float64),
	}

	for _, tx := range p.transactions {
		created, err := time.Parse(time.RFC3339, tx.CreatedAt)
		if err != nil || created.Before(cutoff) {
			continue
		}

		a.TotalTransactions++

		switch tx.Status {
		case StatusCompleted:
			a.CompletedPayments++
			a.TotalAmount += tx.Amount
			method := tx.PaymentMethod
			if method == "" {
				method = "unknown"
			}
			a.PaymentMethods[method]++
			a.DailyAmounts[created.Format("2006-01-02")] += tx.Amount
		case StatusFailed:
			a.FailedPayments++
		case StatusRefunded:
			a.RefundedAmount += tx.Amount
		}
	}

	if a.TotalTransactions > 0 {
		rate := float64(a.CompletedPayments) / float64(a.TotalTransactions) * 100
		a.SuccessRate = float64(int(rate*100+0.5)) / 100
	}
	a.NetAmount = a.TotalAmount - a.RefundedAmount
	return a
}

// shortID — первые 8 символов идентификатора.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
