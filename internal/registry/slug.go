// slug.go — построение безопасного слага для имён файлов.
package registry

import "strings"

// slugMaxLen — максимальная длина исходной строки (в рунах) для слага.
const slugMaxLen = 30

// slugPlaceholder — подстановка для пустого результата.
const slugPlaceholder = "artifact"

// Slug строит безопасный слаг для имени файла: первые 30 символов,
// в нижнем регистре, всё вне [a-z0-9-] заменяется на дефис,
// последовательные дефисы схлопываются, краевые обрезаются.
// Пустой результат заменяется фиксированной подстановкой.
// Идемпотентна: Slug(Slug(x)) == Slug(x).
func Slug(s string) string {
	runes := []rune(s)
	if len(runes) > slugMaxLen {
		runes = runes[:slugMaxLen]
	}

	var b strings.Builder
	prevDash := false
	for _, r := range strings.ToLower(string(runes)) {
		safe := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9')
		switch {
		case safe:
			b.WriteRune(r)
			prevDash = false
		case prevDash:
			// Схлопываем последовательные дефисы
		default:
			b.WriteRune('-')
			prevDash = true
		}
	}

	result := strings.Trim(b.String(), "-")
	if result == "" {
		return slugPlaceholder
	}
	return result
}
