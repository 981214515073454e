// Пакет validation — проверка входных параметров инструментов.
package validation

import (
	"errors"
	"strings"
	"time"
)

// Ошибки валидации параметров инвойса.
var (
	ErrAmount      = errors.New("сумма должна быть больше нуля")
	ErrBuyerName   = errors.New("имя покупателя не может быть пустым")
	ErrCompanyName = errors.New("название компании не может быть пустым")
	ErrDateFormat  = errors.New("дата должна быть в формате YYYY-MM-DD")
)

// InvoiceInput проверяет параметры генерации инвойса и возвращает
// первую найденную ошибку. Пустая дата допустима: вызывающий код
// подставляет текущую.
func InvoiceInput(amount float64, buyerName, companyName, date string) error {
	if amount <= 0 {
		return ErrAmount
	}
	if strings.TrimSpace(buyerName) == "" {
		return ErrBuyerName
	}
	if strings.TrimSpace(companyName) == "" {
		return ErrCompanyName
	}
	if date != "" {
		if _, err := time.Parse("2006-01-02", date); err != nil {
			return ErrDateFormat
		}
	}
	return nil
}
