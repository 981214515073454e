package blob

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteOpenRoundTrip(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Ошибка создания Store: %v", err)
	}

	data := []byte("тестовое содержимое артефакта")
	if err := store.Write("test.pdf", data); err != nil {
		t.Fatalf("Ошибка Write: %v", err)
	}

	f, err := store.Open("test.pdf")
	if err != nil {
		t.Fatalf("Ошибка Open: %v", err)
	}
	defer f.Close()

	got, err := io.ReadAll(f)
	if err != nil {
		t.Fatalf("Ошибка чтения: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Error("прочитанные данные не совпадают с записанными")
	}
}

func TestWrite_NoTempLeftover(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("Ошибка создания Store: %v", err)
	}

	if err := store.Write("a.pdf", []byte("data")); err != nil {
		t.Fatalf("Ошибка Write: %v", err)
	}

	// После успешной записи временных файлов остаться не должно
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("Ошибка чтения директории: %v", err)
	}
	if len(entries) != 1 {
		names := make([]string, 0, len(entries))
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("хотели 1 файл, получили %d: %v", len(entries), names)
	}
}

func TestWrite_Overwrite(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Ошибка создания Store: %v", err)
	}

	if err := store.Write("f.pdf", []byte("первая версия")); err != nil {
		t.Fatalf("Ошибка первой записи: %v", err)
	}
	if err := store.Write("f.pdf", []byte("вторая")); err != nil {
		t.Fatalf("Ошибка перезаписи: %v", err)
	}

	size, err := store.Size("f.pdf")
	if err != nil {
		t.Fatalf("Ошибка Size: %v", err)
	}
	if size != int64(len("вторая")) {
		t.Errorf("размер после перезаписи: хотели %d, получили %d", len("вторая"), size)
	}
}

func TestDelete(t *testing.T) {
	store, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("Ошибка создания Store: %v", err)
	}

	if err := store.Write("d.pdf", []byte("data")); err != nil {
		t.Fatalf("Ошибка Write: %v", err)
	}
	if !store.Exists("d.pdf") {
		t.Fatal("файл должен существовать после записи")
	}

	if err := store.Delete("d.pdf"); err != nil {
		t.Fatalf("Ошибка Delete: %v", err)
	}
	if store.Exists("d.pdf") {
		t.Error("файл должен быть удалён")
	}

	// Повторное удаление — не ошибка
	if err := store.Delete("d.pdf"); err != nil {
		t.Errorf("удаление отсутствующего файла не должно быть ошибкой: %v", err)
	}
}

func TestNew_CreatesDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "content")
	if _, err := New(dir); err != nil {
		t.Fatalf("New должен создавать директорию: %v", err)
	}
	info, err := os.Stat(dir)
	if err != nil {
		t.Fatalf("директория не создана: %v", err)
	}
	if !info.IsDir() {
		t.Error("путь должен быть директорией")
	}
}

func TestFullPath(t *testing.T) {
	dir := t.TempDir()
	store, err := New(dir)
	if err != nil {
		t.Fatalf("Ошибка создания Store: %v", err)
	}
	want := filepath.Join(dir, "x.pdf")
	if got := store.FullPath("x.pdf"); got != want {
		t.Errorf("FullPath: хотели %q, получили %q", want, got)
	}
}
