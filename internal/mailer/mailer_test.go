package mailer

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

func testManager(t *testing.T) *Manager {
	t.Helper()
	m, err := New(t.TempDir(), SMTPConfig{}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("Ошибка создания Manager: %v", err)
	}
	return m
}

func TestDefaultTemplates(t *testing.T) {
	m := testManager(t)

	templates := m.Templates()
	if len(templates) != 3 {
		t.Fatalf("встроенных шаблонов: хотели 3, получили %d", len(templates))
	}

	want := map[string]bool{
		"invoice_delivery":     false,
		"payment_confirmation": false,
		"payment_reminder":     false,
	}
	for _, tmpl := range templates {
		if _, ok := want[tmpl.TemplateID]; !ok {
			t.Errorf("неизвестный шаблон: %s", tmpl.TemplateID)
			continue
		}
		want[tmpl.TemplateID] = true
	}
	for id, seen := range want {
		if !seen {
			t.Errorf("отсутствует встроенный шаблон %s", id)
		}
	}
}

func TestTemplateRender(t *testing.T) {
	tmpl := &Template{
		Subject:  "Invoice {{invoice_number}} from {{company_name}}",
		HTMLBody: "<p>Dear {{customer_name}}, amount {{currency}}{{total_amount}}</p>",
		TextBody: "Dear {{customer_name}}",
	}

	rendered := tmpl.Render(map[string]string{
		"invoice_number": "INV-42",
		"company_name":   "B Ltd",
		"customer_name":  "A Corp",
		"currency":       "$",
		"total_amount":   "99.50",
	})

	if rendered.Subject != "Invoice INV-42 from B Ltd" {
		t.Errorf("тема: получили %q", rendered.Subject)
	}
	if !strings.Contains(rendered.HTMLBody, "Dear A Corp") {
		t.Errorf("HTML без подстановки: %q", rendered.HTMLBody)
	}
	if !strings.Contains(rendered.HTMLBody, "$99.50") {
		t.Errorf("сумма не подставлена: %q", rendered.HTMLBody)
	}

	// Неизвестный плейсхолдер остаётся как есть
	tmpl2 := &Template{Subject: "{{unknown}}"}
	if got := tmpl2.Render(nil).Subject; got != "{{unknown}}" {
		t.Errorf("неизвестный плейсхолдер: получили %q", got)
	}
}

func TestHTMLToText(t *testing.T) {
	got := htmlToText("<p>Hello &amp; <b>world</b>&nbsp;!</p>")
	if got != "Hello & world !" {
		t.Errorf("htmlToText: получили %q", got)
	}
}

func TestValidEmail(t *testing.T) {
	valid := []string{"user@example.com", "a.b+tag@sub.example.org"}
	for _, addr := range valid {
		if !ValidEmail(addr) {
			t.Errorf("адрес %q должен быть валидным", addr)
		}
	}
	invalid := []string{"", "не адрес", "user@", "@example.com", "User Name <user@example.com>"}
	for _, addr := range invalid {
		if ValidEmail(addr) {
			t.Errorf("адрес %q не должен быть валидным", addr)
		}
	}
}

func TestSendInvoice_DemoMode(t *testing.T) {
	m := testManager(t)

	result, err := m.SendInvoice("client@example.com", InvoiceData{
		InvoiceID:     "inv-1",
		BuyerName:     "A Corp",
		CompanyName:   "B Ltd",
		InvoiceNumber: "INV-42",
		TotalAmount:   100,
	}, []byte("%PDF-1.4"), "")
	if err != nil {
		t.Fatalf("Ошибка SendInvoice: %v", err)
	}

	if !result.Success {
		t.Error("демо-отправка должна быть успешной")
	}
	if !result.DemoMode {
		t.Error("без учётных данных должен быть демо-режим")
	}

	// Отправка попала в журнал
	log := m.Log(10, "")
	if len(log) != 1 {
		t.Fatalf("записей журнала: хотели 1, получили %d", len(log))
	}
	if log[0].ToEmail != "client@example.com" {
		t.Errorf("получатель в журнале: %q", log[0].ToEmail)
	}
	if log[0].TemplateID != "invoice_delivery" {
		t.Errorf("шаблон в журнале: %q", log[0].TemplateID)
	}
	if !strings.Contains(log[0].Subject, "INV-42") {
		t.Errorf("тема в журнале без номера инвойса: %q", log[0].Subject)
	}
}

func TestSendInvoice_InvalidEmail(t *testing.T) {
	m := testManager(t)

	if _, err := m.SendInvoice("не адрес", InvoiceData{}, nil, ""); !errors.Is(err, ErrInvalidEmail) {
		t.Errorf("хотели ErrInvalidEmail, получили %v", err)
	}
	if got := m.Log(10, ""); len(got) != 0 {
		t.Errorf("невалидный адрес не должен попадать в журнал, получили %d записей", len(got))
	}
}

func TestSendInvoice_UnknownTemplate(t *testing.T) {
	m := testManager(t)

	_, err := m.SendInvoice("client@example.com", InvoiceData{}, nil, "нет такого")
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("хотели ErrTemplateNotFound, получили %v", err)
	}
}

func TestSendPaymentConfirmation(t *testing.T) {
	m := testManager(t)

	result, err := m.SendPaymentConfirmation("client@example.com", PaymentData{
		TransactionID:    "tx-1",
		InvoiceNumber:    "INV-7",
		Amount:           55,
		ConfirmationCode: "PAY_ABCD1234",
	}, "")
	if err != nil {
		t.Fatalf("Ошибка SendPaymentConfirmation: %v", err)
	}
	if !result.Success || !result.DemoMode {
		t.Errorf("хотели успешную демо-отправку, получили %+v", result)
	}

	log := m.Log(10, "")
	if len(log) != 1 || log[0].PaymentID != "tx-1" {
		t.Errorf("журнал должен содержать идентификатор платежа: %+v", log)
	}
}

func TestLog_FilterAndOrder(t *testing.T) {
	m := testManager(t)

	for _, addr := range []string{"a@example.com", "b@example.com", "a@example.com"} {
		if _, err := m.SendInvoice(addr, InvoiceData{}, nil, ""); err != nil {
			t.Fatalf("Ошибка SendInvoice: %v", err)
		}
	}

	all := m.Log(10, "")
	if len(all) != 3 {
		t.Fatalf("хотели 3 записи, получили %d", len(all))
	}
	// Новые первыми
	if all[0].ToEmail != "a@example.com" || all[2].ToEmail != "a@example.com" {
		t.Errorf("порядок журнала нарушен: %+v", all)
	}

	filtered := m.Log(10, "b@")
	if len(filtered) != 1 || filtered[0].ToEmail != "b@example.com" {
		t.Errorf("фильтр по адресу: хотели 1 запись b@example.com, получили %+v", filtered)
	}
}

func TestGetStats(t *testing.T) {
	m := testManager(t)

	for i := 0; i < 3; i++ {
		if _, err := m.SendInvoice("client@example.com", InvoiceData{}, nil, ""); err != nil {
			t.Fatalf("Ошибка SendInvoice: %v", err)
		}
	}
	if _, err := m.SendPaymentConfirmation("client@example.com", PaymentData{}, ""); err != nil {
		t.Fatalf("Ошибка SendPaymentConfirmation: %v", err)
	}

	s := m.GetStats(30)
	if s.TotalSent != 4 {
		t.Errorf("total_sent: хотели 4, получили %d", s.TotalSent)
	}
	if s.SuccessfulSent != 4 || s.FailedSent != 0 {
		t.Errorf("успешных/неуспешных: хотели 4/0, получили %d/%d", s.SuccessfulSent, s.FailedSent)
	}
	if s.SuccessRate != 100 {
		t.Errorf("success_rate: хотели 100, получили %v", s.SuccessRate)
	}
	if s.TemplateUsage["invoice_delivery"] != 3 || s.TemplateUsage["payment_confirmation"] != 1 {
		t.Errorf("использование шаблонов: %v", s.TemplateUsage)
	}
}

func TestPersistence_Restart(t *testing.T) {
	dir := t.TempDir()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	m1, err := New(dir, SMTPConfig{}, logger)
	if err != nil {
		t.Fatalf("Ошибка создания Manager: %v", err)
	}
	if _, err := m1.SendInvoice("client@example.com", InvoiceData{InvoiceID: "inv-9"}, nil, ""); err != nil {
		t.Fatalf("Ошибка SendInvoice: %v", err)
	}

	m2, err := New(dir, SMTPConfig{}, logger)
	if err != nil {
		t.Fatalf("Ошибка пересоздания Manager: %v", err)
	}
	log := m2.Log(10, "")
	if len(log) != 1 || log[0].InvoiceID != "inv-9" {
		t.Errorf("журнал должен переживать перезапуск: %+v", log)
	}
	if len(m2.Templates()) != 3 {
		t.Errorf("шаблоны должны переживать перезапуск, получили %d", len(m2.Templates()))
	}
}
