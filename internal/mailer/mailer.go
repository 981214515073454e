// Пакет mailer — отправка писем по инвойсам и платежам.
//
// Менеджер держит шаблоны и журнал отправок в памяти под мьютексом и
// сохраняет их в email_templates.json / email_log.json. Без SMTP
// учётных данных работает в демо-режиме: письмо не отправляется, но
// журналируется как успешное.
package mailer

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	gomail "github.com/wneessen/go-mail"
)

// maxLogEntries — предел журнала отправок на диске.
const maxLogEntries = 1000

// Ошибки почтовых операций.
var (
	// ErrInvalidEmail — адрес получателя не проходит валидацию.
	ErrInvalidEmail = errors.New("некорректный email-адрес")
	// ErrTemplateNotFound — шаблон с таким id не существует.
	ErrTemplateNotFound = errors.New("шаблон не найден")
)

// SMTPConfig — настройки SMTP-подключения.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	FromName string
}

// demo — демо-режим: отправка симулируется при отсутствии
// учётных данных.
func (c SMTPConfig) demo() bool {
	return c.Username == "" || c.Password == ""
}

// LogEntry — запись журнала отправок.
type LogEntry struct {
	Timestamp  string `json:"timestamp"`
	ToEmail    string `json:"to_email"`
	TemplateID string `json:"template_id"`
	Subject    string `json:"subject"`
	InvoiceID  string `json:"invoice_id,omitempty"`
	PaymentID  string `json:"payment_id,omitempty"`
	Success    bool   `json:"success"`
	Error      string `json:"error,omitempty"`
}

// SendResult — результат отправки письма.
type SendResult struct {
	Success  bool   `json:"success"`
	Message  string `json:"message,omitempty"`
	Error    string `json:"error,omitempty"`
	DemoMode bool   `json:"demo_mode,omitempty"`
}

// Manager отправляет письма и ведёт журнал отправок.
type Manager struct {
	mu            sync.Mutex
	cfg           SMTPConfig
	templatesFile string
	logFile       string
	logger        *slog.Logger

	templates map[string]*Template
	emailLog  []LogEntry
}

// New создаёт менеджер, поднимает состояние из data-директории и
// досоздаёт отсутствующие встроенные шаблоны.
func New(dataDir string, cfg SMTPConfig, logger *slog.Logger) (*Manager, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("ошибка создания директории данных: %w", err)
	}
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	if cfg.FromName == "" {
		cfg.FromName = "Invoice System"
	}

	m := &Manager{
		cfg:           cfg,
		templatesFile: filepath.Join(dataDir, "email_templates.json"),
		logFile:       filepath.Join(dataDir, "email_log.json"),
		logger:        logger.With(slog.String("component", "mailer")),
		templates:     make(map[string]*Template),
	}
	m.load()

	for _, t := range defaultTemplates() {
		if _, ok := m.templates[t.TemplateID]; !ok {
			m.templates[t.TemplateID] = t
		}
	}
	if err := m.persist(); err != nil {
		return nil, err
	}

	if cfg.demo() {
		m.logger.Warn("SMTP учётные данные не заданы, почта работает в демо-режиме")
	}
	return m, nil
}

func (m *Manager) load() {
	if data, err := os.ReadFile(m.templatesFile); err == nil {
		if err := json.Unmarshal(data, &m.templates); err != nil {
			m.logger.Error("Файл шаблонов не читается",
				slog.String("file", m.templatesFile),
				slog.String("error", err.Error()),
			)
			m.templates = make(map[string]*Template)
		}
	}
	if data, err := os.ReadFile(m.logFile); err == nil {
		if err := json.Unmarshal(data, &m.emailLog); err != nil {
			m.logger.Error("Журнал отправок не читается",
				slog.String("file", m.logFile),
				slog.String("error", err.Error()),
			)
			m.emailLog = nil
		}
	}
}

// persist сохраняет шаблоны и хвост журнала (не более maxLogEntries).
func (m *Manager) persist() error {
	if err := writeJSON(m.templatesFile, m.templates); err != nil {
		return fmt.Errorf("ошибка сохранения шаблонов: %w", err)
	}
	tail := m.emailLog
	if len(tail) > maxLogEntries {
		tail = tail[len(tail)-maxLogEntries:]
	}
	if err := writeJSON(m.logFile, tail); err != nil {
		return fmt.Errorf("ошибка сохранения журнала: %w", err)
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

// ValidEmail проверяет синтаксис адреса.
func ValidEmail(addr string) bool {
	parsed, err := mail.ParseAddress(addr)
	return err == nil && parsed.Address == addr
}

// InvoiceData — данные инвойса для письма.
type InvoiceData struct {
	InvoiceID     string
	BuyerName     string
	CompanyName   string
	InvoiceNumber string
	Date          string
	TotalAmount   float64
	Currency      string
	DueDate       string
	PaymentLink   string
}

// SendInvoice отправляет письмо с инвойсом и опциональным
// PDF-вложением.
func (m *Manager) SendInvoice(toEmail string, data InvoiceData, pdfAttachment []byte, templateID string) (*SendResult, error) {
	if templateID == "" {
		templateID = "invoice_delivery"
	}
	if !ValidEmail(toEmail) {
		return nil, ErrInvalidEmail
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tmpl, ok := m.templates[templateID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, templateID)
	}

	vars := map[string]string{
		"customer_name":  defaultStr(data.BuyerName, "Valued Customer"),
		"company_name":   defaultStr(data.CompanyName, "Your Company"),
		"invoice_number": defaultStr(data.InvoiceNumber, "INV-001"),
		"invoice_date":   defaultStr(data.Date, time.Now().Format("2006-01-02")),
		"total_amount":   fmt.Sprintf("%.2f", data.TotalAmount),
		"currency":       defaultStr(data.Currency, "₹"),
		"due_date":       data.DueDate,
		"payment_link":   data.PaymentLink,
	}
	rendered := tmpl.Render(vars)

	attachName := ""
	if len(pdfAttachment) > 0 {
		attachName = vars["invoice_number"] + ".pdf"
	}
	result := m.deliver(toEmail, rendered, pdfAttachment, attachName)

	m.appendLog(LogEntry{
		Timestamp:  time.Now().Format(time.RFC3339),
		ToEmail:    toEmail,
		TemplateID: templateID,
		Subject:    rendered.Subject,
		InvoiceID:  data.InvoiceID,
		Success:    result.Success,
		Error:      result.Error,
	})
	return result, nil
}

// PaymentData — данные платежа для письма-подтверждения.
type PaymentData struct {
	TransactionID    string
	CustomerName     string
	CompanyName      string
	InvoiceNumber    string
	Amount           float64
	Currency         string
	PaymentMethod    string
	ConfirmationCode string
	PaymentDate      string
}

// SendPaymentConfirmation отправляет подтверждение оплаты.
func (m *Manager) SendPaymentConfirmation(toEmail string, data PaymentData, templateID string) (*SendResult, error) {
	if templateID == "" {
		templateID = "payment_confirmation"
	}
	if !ValidEmail(toEmail) {
		return nil, ErrInvalidEmail
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tmpl, ok := m.templates[templateID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, templateID)
	}

	vars := map[string]string{
		"customer_name":     defaultStr(data.CustomerName, "Valued Customer"),
		"company_name":      defaultStr(data.CompanyName, "Your Company"),
		"invoice_number":    defaultStr(data.InvoiceNumber, "INV-001"),
		"paid_amount":       fmt.Sprintf("%.2f", data.Amount),
		"currency":          defaultStr(data.Currency, "₹"),
		"payment_method":    defaultStr(data.PaymentMethod, "Card"),
		"confirmation_code": defaultStr(data.ConfirmationCode, "N/A"),
		"payment_date":      defaultStr(data.PaymentDate, time.Now().Format("2006-01-02 15:04")),
	}
	rendered := tmpl.Render(vars)

	result := m.deliver(toEmail, rendered, nil, "")

	m.appendLog(LogEntry{
		Timestamp:  time.Now().Format(time.RFC3339),
		ToEmail:    toEmail,
		TemplateID: templateID,
		Subject:    rendered.Subject,
		PaymentID:  data.TransactionID,
		Success:    result.Success,
		Error:      result.Error,
	})
	return result, nil
}

// deliver отправляет письмо через SMTP либо симулирует отправку в
// демо-режиме. Вызывается под мьютексом.
func (m *Manager) deliver(toEmail string, rendered Rendered, attachment []byte, attachName string) *SendResult {
	if m.cfg.demo() {
		m.logger.Info("DEMO: письмо не отправлено, демо-режим",
			slog.String("to", toEmail),
			slog.String("subject", rendered.Subject),
		)
		return &SendResult{
			Success:  true,
			Message:  fmt.Sprintf("Demo email sent to %s", toEmail),
			DemoMode: true,
		}
	}

	msg := gomail.NewMsg()
	if err := msg.FromFormat(m.cfg.FromName, m.cfg.From); err != nil {
		return &SendResult{Success: false, Error: err.Error()}
	}
	if err := msg.To(toEmail); err != nil {
		return &SendResult{Success: false, Error: err.Error()}
	}
	msg.Subject(rendered.Subject)
	msg.SetBodyString(gomail.TypeTextPlain, rendered.TextBody)
	msg.AddAlternativeString(gomail.TypeTextHTML, rendered.HTMLBody)
	if len(attachment) > 0 {
		if err := msg.AttachReader(attachName, bytes.NewReader(attachment)); err != nil {
			return &SendResult{Success: false, Error: err.Error()}
		}
	}

	client, err := gomail.NewClient(m.cfg.Host,
		gomail.WithPort(m.cfg.Port),
		gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
		gomail.WithUsername(m.cfg.Username),
		gomail.WithPassword(m.cfg.Password),
		gomail.WithTLSPolicy(gomail.TLSMandatory),
	)
	if err != nil {
		m.logger.Error("Ошибка создания SMTP-клиента", slog.String("error", err.Error()))
		return &SendResult{Success: false, Error: err.Error()}
	}

	if err := client.DialAndSend(msg); err != nil {
		m.logger.Error("Ошибка отправки письма",
			slog.String("to", toEmail),
			slog.String("error", err.Error()),
		)
		return &SendResult{Success: false, Error: err.Error()}
	}

	m.logger.Info("Письмо отправлено", slog.String("to", toEmail))
	return &SendResult{Success: true, Message: fmt.Sprintf("Email sent to %s", toEmail)}
}

// appendLog добавляет запись журнала и сохраняет состояние.
// Ошибка сохранения журнала не фатальна для уже отправленного письма.
func (m *Manager) appendLog(entry LogEntry) {
	m.emailLog = append(m.emailLog, entry)
	if len(m.emailLog) > maxLogEntries {
		m.emailLog = m.emailLog[len(m.emailLog)-maxLogEntries:]
	}
	if err := m.persist(); err != nil {
		m.logger.Error("Ошибка сохранения журнала отправок", slog.String("error", err.Error()))
	}
}

// TemplateInfo — краткое описание шаблона без тел.
type TemplateInfo struct {
	TemplateID   string `json:"template_id"`
	Name         string `json:"name"`
	Subject      string `json:"subject"`
	TemplateType string `json:"template_type"`
	CreatedAt    string `json:"created_at"`
}

// Templates возвращает описания всех шаблонов.
func (m *Manager) Templates() []TemplateInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]TemplateInfo, 0, len(m.templates))
	for _, t := range m.templates {
		out = append(out, TemplateInfo{
			TemplateID:   t.TemplateID,
			Name:         t.Name,
			Subject:      t.Subject,
			TemplateType: t.TemplateType,
			CreatedAt:    t.CreatedAt,
		})
	}
	return out
}

// Log возвращает последние limit записей журнала, новые первыми.
// Непустой emailFilter фильтрует по подстроке адреса получателя.
func (m *Manager) Log(limit int, emailFilter string) []LogEntry {
	if limit <= 0 {
		limit = 50
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	tail := m.emailLog
	if len(tail) > limit {
		tail = tail[len(tail)-limit:]
	}

	out := make([]LogEntry, 0, len(tail))
	filter := strings.ToLower(emailFilter)
	for i := len(tail) - 1; i >= 0; i-- {
		if filter != "" && !strings.Contains(strings.ToLower(tail[i].ToEmail), filter) {
			continue
		}
		out = append(out, tail[i])
	}
	return out
}

// Stats — статистика отправок за период.
type Stats struct {
	PeriodDays     int            `json:"period_days"`
	TotalSent      int            `json:"total_sent"`
	SuccessfulSent int            `json:"successful_sent"`
	FailedSent     int            `json:"failed_sent"`
	SuccessRate    float64        `json:"success_rate"`
	TemplateUsage  map[string]int `json:"template_usage"`
}

// GetStats считает статистику отправок за последние days дней.
func (m *Manager) GetStats(days int) *Stats {
	if days <= 0 {
		days = 30
	}
	cutoff := time.Now().AddDate(0, 0, -days)

	m.mu.Lock()
	defer m.mu.Unlock()

	s := &Stats{
		PeriodDays:    days,
		TemplateUsage: make(map[string]int),
	}
	for _, entry := range m.emailLog {
		ts, err := time.Parse(time.RFC3339, entry.Timestamp)
		if err != nil || ts.Before(cutoff) {
			continue
		}

		s.TotalSent++
		if entry.Success {
			s.SuccessfulSent++
		} else {
			s.FailedSent++
		}
		tid := entry.TemplateID
		if tid == "" {
			tid = "unknown"
		}
		s.TemplateUsage[tid]++
	}

	if s.TotalSent > 0 {
		rate := float64(s.SuccessfulSent) / float64(s.TotalSent) * 100
		s.SuccessRate = float64(int(rate*100+0.5)) / 100
	}
	return s
}

func defaultStr(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
