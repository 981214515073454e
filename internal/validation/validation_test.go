package validation

import (
	"errors"
	"testing"
)

func TestInvoiceInput(t *testing.T) {
	tests := []struct {
		name    string
		amount  float64
		buyer   string
		company string
		date    string
		wantErr error
	}{
		{"валидные параметры", 1250.00, "A Corp", "B Ltd", "2026-08-30", nil},
		{"пустая дата допустима", 100, "A", "B", "", nil},
		{"нулевая сумма", 0, "A", "B", "2026-08-30", ErrAmount},
		{"отрицательная сумма", -10, "A", "B", "2026-08-30", ErrAmount},
		{"пустой покупатель", 100, "   ", "B", "2026-08-30", ErrBuyerName},
		{"пустая компания", 100, "A", "", "2026-08-30", ErrCompanyName},
		{"плохой формат даты", 100, "A", "B", "30-08-2026", ErrDateFormat},
		{"не дата", 100, "A", "B", "вчера", ErrDateFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := InvoiceInput(tt.amount, tt.buyer, tt.company, tt.date)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("хотели %v, получили %v", tt.wantErr, err)
			}
		})
	}
}
