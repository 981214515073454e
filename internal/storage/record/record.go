// Пакет record — чтение и запись файлов записей скачивания ({id}.json).
// Каждый артефакт в content-директории имеет сопутствующую запись,
// которая является единственным источником истины для метаданных.
// Все операции записи выполняются атомарно: temp → fsync → rename.
package record

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/akruglov/invoicemcp/internal/domain/model"
)

// Suffix — суффикс файла записи.
const Suffix = ".json"

// Path возвращает путь к файлу записи для данного id.
func Path(dataDir, id string) string {
	return filepath.Join(dataDir, id+Suffix)
}

// IDFromPath извлекает id скачивания из пути файла записи.
// Пример: "/data/a1b2c3.json" → "a1b2c3"
func IDFromPath(path string) string {
	return strings.TrimSuffix(filepath.Base(path), Suffix)
}

// Write атомарно записывает запись в {id}.json.
// Паттерн: JSON → temp файл → fsync → atomic rename.
func Write(path string, rec *model.DownloadRecord) error {
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("ошибка сериализации записи: %w", err)
	}

	tmpPath := path + ".tmp"

	f, err := os.Create(tmpPath)
	if err != nil {
		return fmt.Errorf("ошибка создания временного файла: %w", err)
	}

	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка записи: %w", err)
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

	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("ошибка атомарного переименования: %w", err)
	}

	return nil
}

// Read читает и десериализует запись из {id}.json.
// os.IsNotExist на вложенной ошибке отличает "записи нет" от
// "запись есть, но не читается".
func Read(path string) (*model.DownloadRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("ошибка чтения записи %s: %w", path, err)
	}

	var rec model.DownloadRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("ошибка десериализации записи %s: %w", path, err)
	}

	return &rec, nil
}

// Exists проверяет существование файла записи.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Delete удаляет файл записи. Возвращает nil, если файл уже не существует.
func Delete(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("ошибка удаления записи %s: %w", path, err)
	}
	return nil
}

// ScanDir возвращает пути всех файлов записей в директории.
// Не рекурсивный. Файлы с невалидным содержимым не отфильтровываются:
// решение о судьбе повреждённой записи принимает вызывающий код (sweep
// удаляет её, resolve возвращает Corrupt).
func ScanDir(dir string) ([]string, error) {
	pattern := filepath.Join(dir, "*"+Suffix)
	matches, err := filepath.Glob(pattern)
	if err != nil {
		return nil, fmt.Errorf("ошибка сканирования директории %s: %w", dir, err)
	}
	return matches, nil
}
