// Пакет blob — операции с blob-файлами артефактов на диске.
// Все артефакты лежат в одной плоской content-директории.
// Запись атомарна: temp файл → fsync → rename.
package blob

import (
	"fmt"
	"os"
	"path/filepath"
)

// Store — хранилище blob-файлов в одной директории.
type Store struct {
	// dataDir — content-директория (INV_DATA_DIR)
	dataDir string
}

// New создаёт Store. Создаёт директорию, если она не существует.
func New(dataDir string) (*Store, error) {
	if err := os.MkdirAll(dataDir, 0o750); err != nil {
		return nil, fmt.Errorf("не удалось создать content-директорию %s: %w", dataDir, err)
	}
	return &Store{dataDir: dataDir}, nil
}

// Write атомарно записывает данные артефакта под указанным именем файла.
// Паттерн: temp файл → запись → fsync → atomic rename.
// При любой ошибке temp файл удаляется, итоговый файл не появляется.
func (s *Store) Write(filename string, data []byte) error {
	fullPath := filepath.Join(s.dataDir, filename)
	tmpPath := fullPath + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи данных: %w", err)
	}

	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка fsync: %w", err)
	}

	if err := f.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка закрытия файла: %w", err)
	}

	if err := os.Rename(tmpPath, fullPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return nil
}

// Open открывает blob-файл для чтения. Вызывающий код обязан закрыть файл.
func (s *Store) Open(filename string) (*os.File, error) {
	fullPath := filepath.Join(s.dataDir, filename)

	f, err := os.Open(fullPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("blob не найден: %s", filename)
		}
		return nil, fmt.Errorf("ошибка открытия blob %s: %w", filename, err)
	}
	return f, nil
}

// FullPath возвращает абсолютный путь к blob-файлу.
func (s *Store) FullPath(filename string) string {
	return filepath.Join(s.dataDir, filename)
}

// Delete удаляет blob-файл. Возвращает nil, если файл уже не существует.
func (s *Store) Delete(filename string) error {
	err := os.Remove(filepath.Join(s.dataDir, filename))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления blob %s: %w", filename, err)
	}
	return nil
}

// Exists проверяет существование blob-файла.
func (s *Store) Exists(filename string) bool {
	_, err := os.Stat(filepath.Join(s.dataDir, filename))
	return err == nil
}

// Size возвращает размер blob-файла на диске.
func (s *Store) Size(filename string) (int64, error) {
	info, err := os.Stat(filepath.Join(s.dataDir, filename))
	if err != nil {
		return 0, fmt.Errorf("ошибка получения информации о blob %s: %w", filename, err)
	}
	return info.Size(), nil
}

// DataDir возвращает путь к content-директории.
func (s *Store) DataDir() string {
	return s.dataDir
}
