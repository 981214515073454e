// Пакет model — доменные модели сервиса генерации инвойсов.
// DownloadRecord — единая структура метаданных артефакта, используется
// как in-memory представление и как формат записи {id}.json на диске.
package model

import (
	"fmt"
	"time"
)

// ArtifactType — тип сгенерированного артефакта.
type ArtifactType string

const (
	// ArtifactInvoicePDF — PDF-инвойс
	ArtifactInvoicePDF ArtifactType = "invoice_pdf"
	// ArtifactLegacyPackage — legacy ZIP-пакет (старый формат генератора)
	ArtifactLegacyPackage ArtifactType = "legacy_package"
)

// Valid проверяет, что тип артефакта известен.
func (t ArtifactType) Valid() bool {
	return t == ArtifactInvoicePDF || t == ArtifactLegacyPackage
}

// ContentType возвращает MIME-тип для отдачи артефакта.
func (t ArtifactType) ContentType() string {
	switch t {
	case ArtifactInvoicePDF:
		return "application/pdf"
	case ArtifactLegacyPackage:
		return "application/zip"
	default:
		return "application/octet-stream"
	}
}

// BlobFilename возвращает имя blob-файла на диске для данного id.
// Формат: invoice_{id}.pdf или package_{id}.zip.
func (t ArtifactType) BlobFilename(id string) string {
	switch t {
	case ArtifactInvoicePDF:
		return fmt.Sprintf("invoice_%s.pdf", id)
	case ArtifactLegacyPackage:
		return fmt.Sprintf("package_%s.zip", id)
	default:
		return fmt.Sprintf("artifact_%s.bin", id)
	}
}

// RecordState — вычисляемое состояние записи. Не хранится на диске:
// выводится из expires_at и наличия blob-файла в момент проверки.
type RecordState string

const (
	// StateActive — срок не истёк, blob на месте
	StateActive RecordState = "active"
	// StateExpired — now >= expires_at
	StateExpired RecordState = "expired"
	// StateMissing — blob отсутствует (запись повреждена, отдача невозможна)
	StateMissing RecordState = "missing"
)

// DefaultTTL — фиксированный срок жизни ссылки на скачивание.
const DefaultTTL = 24 * time.Hour

// DisplayMeta — косметические метаданные для построения читаемого имени
// файла при скачивании. Не используются для авторизации.
type DisplayMeta struct {
	// BuyerName — имя покупателя
	BuyerName string `json:"buyer_name,omitempty"`
	// CompanyName — компания, выставившая инвойс
	CompanyName string `json:"company_name,omitempty"`
	// InvoiceNumber — номер инвойса (INV-...)
	InvoiceNumber string `json:"invoice_number,omitempty"`
	// Amount — сумма инвойса
	Amount float64 `json:"amount,omitempty"`
	// Date — дата инвойса (YYYY-MM-DD)
	Date string `json:"date,omitempty"`
}

// DownloadRecord — метаданные одного артефакта. Соответствует
// содержимому записи {id}.json в content-директории.
type DownloadRecord struct {
	// ID — непрозрачный уникальный идентификатор скачивания (UUID v4)
	ID string `json:"id"`

	// GenerationID — идентификатор запроса генерации (внешний
	// корреляционный ключ, не уникален между повторами)
	GenerationID string `json:"generation_id"`

	// ArtifactType — тип артефакта, определяет имя файла и content-type
	ArtifactType ArtifactType `json:"type"`

	// Filename — имя blob-файла на диске, детерминированно выводится
	// из ID и ArtifactType
	Filename string `json:"filename"`

	// SizeBytes — размер blob-файла на момент создания
	SizeBytes int64 `json:"size_bytes"`

	// CreatedAt — время создания записи (UTC)
	CreatedAt time.Time `json:"created_at"`

	// ExpiresAt — время истечения: created_at + 24h. Неизменяемо.
	ExpiresAt time.Time `json:"expires_at"`

	// Display — косметические метаданные для имени файла при скачивании
	Display DisplayMeta `json:"display,omitempty"`
}

// IsExpired проверяет, истёк ли срок жизни ссылки.
func (r *DownloadRecord) IsExpired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// State вычисляет текущее состояние записи.
// blobPresent — наличие blob-файла на диске.
func (r *DownloadRecord) State(now time.Time, blobPresent bool) RecordState {
	if !blobPresent {
		return StateMissing
	}
	if r.IsExpired(now) {
		return StateExpired
	}
	return StateActive
}
