// Пакет invoice — генерация PDF-инвойсов.
//
// Генератор детерминирован по входным параметрам (кроме отметки
// времени в футере) и возвращает готовые байты документа, не касаясь
// диска. Регистрацию и хранение выполняет вызывающий код.
package invoice

import (
	"bytes"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

// DefaultCurrency — символ валюты по умолчанию.
const DefaultCurrency = "₹"

// dueDays — срок оплаты в днях от даты инвойса.
const dueDays = 30

// Params — параметры генерации инвойса.
type Params struct {
	// Amount — полная сумма по позиции (за все единицы, без налога)
	Amount float64
	// BuyerName — покупатель ("Bill To")
	BuyerName string
	// CompanyName — продавец ("From")
	CompanyName string
	// Date — дата инвойса в формате YYYY-MM-DD
	Date string
	// GenerationID — корреляционный идентификатор генерации
	GenerationID string
	// ItemName — название позиции; пустое → "Not Applicable"
	ItemName string
	// TaxRate — налоговая ставка как доля (0.18 = 18%)
	TaxRate float64
	// Quantity — количество единиц; 0 трактуется как 1
	Quantity int
	// CurrencySymbol — символ валюты; пустой → DefaultCurrency
	CurrencySymbol string
}

// Generator собирает PDF-инвойсы в памяти.
type Generator struct {
	logger *slog.Logger
}

// New создаёт генератор инвойсов.
func New(logger *slog.Logger) *Generator {
	return &Generator{
		logger: logger.With(slog.String("component", "invoice")),
	}
}

// InvoiceNumber строит номер инвойса из generation_id: берётся
// часть после первого подчёркивания (метка времени генерации),
// иначе весь идентификатор.
func InvoiceNumber(generationID string) string {
	ts := generationID
	if _, after, ok := strings.Cut(generationID, "_"); ok {
		ts = after
	}
	return "INV-" + ts
}

// DueDate считает срок оплаты: дата инвойса + 30 дней. При
// нераспознаваемой дате — 30 дней от текущего момента.
func DueDate(invoiceDate string) string {
	base, err := time.Parse("2006-01-02", invoiceDate)
	if err != nil {
		base = time.Now()
	}
	return base.AddDate(0, 0, dueDays).Format("2006-01-02")
}

// Generate строит PDF-инвойс и возвращает его байты.
func (g *Generator) Generate(params Params) ([]byte, error) {
	itemName := strings.TrimSpace(params.ItemName)
	if itemName == "" {
		itemName = "Not Applicable"
	}
	currency := params.CurrencySymbol
	if currency == "" {
		currency = DefaultCurrency
	}
	quantity := params.Quantity
	if quantity <= 0 {
		quantity = 1
	}

	g.logger.Info("Генерация PDF-инвойса",
		slog.String("generation_id", params.GenerationID),
		slog.String("buyer", params.BuyerName),
		slog.Float64("amount", params.Amount),
	)

	unitRate := params.Amount / float64(quantity)
	subtotal := unitRate * float64(quantity)
	taxAmount := subtotal * params.TaxRate
	total := subtotal + taxAmount

	pdf := fpdf.New("P", "mm", "Letter", "")
	pdf.SetMargins(25, 25, 25)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	// Базовые шрифты PDF не содержат символа рупии, в документе он
	// заменяется текстовым эквивалентом
	curText := currency
	if currency == DefaultCurrency {
		curText = "Rs."
	}
	money := func(v float64) string {
		return fmt.Sprintf("%s%.2f", curText, v)
	}

	// Шапка: компания-продавец
	pdf.SetFont("Helvetica", "B", 16)
	pdf.SetTextColor(0, 0, 139)
	pdf.CellFormat(0, 10, tr(params.CompanyName), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// Заголовок и номер инвойса
	pdf.SetFont("Helvetica", "B", 24)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 12, "INVOICE", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 12)
	pdf.CellFormat(0, 8, "Invoice #: "+InvoiceNumber(params.GenerationID), "", 1, "L", false, 0, "")
	pdf.Ln(6)

	// Таблица реквизитов
	details := [][2]string{
		{"Invoice Date:", params.Date},
		{"Due Date:", DueDate(params.Date)},
		{"Bill To:", params.BuyerName},
		{"From:", params.CompanyName},
	}
	for _, row := range details {
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(45, 8, row[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 12)
		pdf.CellFormat(0, 8, tr(row[1]), "", 1, "L", false, 0, "")
	}
	pdf.Ln(10)

	// Таблица позиций
	colW := []float64{75, 25, 30, 30}
	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(128, 128, 128)
	pdf.SetTextColor(245, 245, 245)
	headers := []string{"Description", "Quantity", "Rate", "Amount"}
	for i, h := range headers {
		pdf.CellFormat(colW[i], 9, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(colW[0], 9, tr(itemName), "1", 0, "L", false, 0, "")
	pdf.CellFormat(colW[1], 9, fmt.Sprintf("%d", quantity), "1", 0, "R", false, 0, "")
	pdf.CellFormat(colW[2], 9, money(unitRate), "1", 0, "R", false, 0, "")
	pdf.CellFormat(colW[3], 9, money(subtotal), "1", 1, "R", false, 0, "")

	// Итоги
	totalsRow := func(label, value string, fill bool) {
		pdf.CellFormat(colW[0]+colW[1], 8, "", "", 0, "", false, 0, "")
		pdf.SetFont("Helvetica", "B", 10)
		pdf.CellFormat(colW[2], 8, label, "", 0, "R", fill, 0, "")
		pdf.CellFormat(colW[3], 8, value, "", 1, "R", fill, 0, "")
	}
	totalsRow("Subtotal:", money(subtotal), false)
	if params.TaxRate > 0 {
		totalsRow(fmt.Sprintf("Tax (%.0f%%):", params.TaxRate*100), money(taxAmount), false)
	}
	pdf.SetFillColor(211, 211, 211)
	totalsRow("Total:", money(total), true)
	pdf.Ln(14)

	// Условия оплаты
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 6, "Payment Terms:", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "Payment is due within 30 days of invoice date.", "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, "Late payments may incur additional fees.", "", 1, "L", false, 0, "")
	pdf.Ln(4)
	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(0, 6, "Thank you for your business!", "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 6, "For questions about this invoice, please contact us.", "", 1, "L", false, 0, "")
	pdf.Ln(10)

	// Футер
	pdf.SetFont("Helvetica", "", 8)
	pdf.SetTextColor(128, 128, 128)
	footer := fmt.Sprintf("Generated on %s | Invoice ID: %s",
		time.Now().Format("2006-01-02 15:04:05"), params.GenerationID)
	pdf.CellFormat(0, 6, footer, "", 1, "C", false, 0, "")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		g.logger.Error("Ошибка сборки PDF",
			slog.String("generation_id", params.GenerationID),
			slog.String("error", err.Error()),
		)
		return nil, fmt.Errorf("ошибка сборки PDF: %w", err)
	}

	g.logger.Info("PDF-инвойс собран",
		slog.String("generation_id", params.GenerationID),
		slog.Int("size", buf.Len()),
	)
	return buf.Bytes(), nil
}
