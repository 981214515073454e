package registry

import (
	"strings"
	"testing"
)

func TestSlug(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"простая строка", "Acme Corp", "acme-corp"},
		{"спецсимволы", "O'Brien & Sons, Ltd.", "o-brien-sons-ltd"},
		{"цифры сохраняются", "Client 42", "client-42"},
		{"схлопывание дефисов", "a---b   c", "a-b-c"},
		{"обрезка краевых дефисов", "--hello--", "hello"},
		{"пустая строка", "", "artifact"},
		{"только спецсимволы", "!!! ???", "artifact"},
		{"уже валидный слаг", "already-valid-slug", "already-valid-slug"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Slug(tt.input)
			if got != tt.want {
				t.Errorf("Slug(%q): хотели %q, получили %q", tt.input, tt.want, got)
			}
		})
	}
}

func TestSlug_Truncation(t *testing.T) {
	long := strings.Repeat("abc ", 20)
	got := Slug(long)
	if len(got) > 30 {
		t.Errorf("слаг длиннее 30 символов: %q (%d)", got, len(got))
	}
	if strings.HasSuffix(got, "-") || strings.HasPrefix(got, "-") {
		t.Errorf("слаг не должен начинаться или заканчиваться дефисом: %q", got)
	}
}

func TestSlug_Idempotent(t *testing.T) {
	inputs := []string{
		"Acme Corp",
		"O'Brien & Sons",
		strings.Repeat("long name ", 10),
		"",
	}
	for _, in := range inputs {
		once := Slug(in)
		twice := Slug(once)
		if once != twice {
			t.Errorf("Slug не идемпотентен для %q: %q != %q", in, once, twice)
		}
	}
}

func TestSlug_Charset(t *testing.T) {
	got := Slug("Всякое Unicode и §±!@# тут")
	for _, r := range got {
		ok := (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-'
		if !ok {
			t.Errorf("недопустимый символ %q в слаге %q", r, got)
		}
	}
}
