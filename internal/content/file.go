// Package content хранит резервные копии баннеров и новостей главной страницы
// в локальных JSON-файлах и задаёт встроенные значения по умолчанию.
package content

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/mmeshcher/affiliate-backoffice/internal/model"
)

// FileStore читает и пишет списки элементов в файлы <dir>/banners.json и <dir>/news.json.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileStore создаёт файловое хранилище в каталоге dir.
func NewFileStore(dir string) *FileStore {
	return &FileStore{dir: dir}
}

func (s *FileStore) path(kind model.ContentKind) string {
	name := "banners.json"
	if kind == model.ContentNews {
		name = "news.json"
	}
	return filepath.Join(s.dir, name)
}

// Load читает список элементов указанного вида.
func (s *FileStore) Load(kind model.ContentKind) ([]model.ContentItem, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path(kind))
	if err != nil {
		return nil, fmt.Errorf("read content file: %w", err)
	}

	var items []model.ContentItem
	if err := json.Unmarshal(data, &items); err != nil {
		return nil, fmt.Errorf("decode content file: %w", err)
	}
	for i := range items {
		items[i].Kind = kind
	}
	return items, nil
}

// Save перезаписывает файл через временный файл и переименование.
func (s *FileStore) Save(kind model.ContentKind, items []model.ContentItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create content dir: %w", err)
	}

	data, err := json.MarshalIndent(items, "", "  ")
	if err != nil {
		return fmt.Errorf("encode content: %w", err)
	}

	target := s.path(kind)
	tmp, err := os.CreateTemp(s.dir, filepath.Base(target)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		return fmt.Errorf("replace content file: %w", err)
	}
	return nil
}

var (
	defaultBannerID = uuid.MustParse("00000000-0000-0000-0000-0000000000b1")
	defaultNewsID   = uuid.MustParse("00000000-0000-0000-0000-0000000000a1")
)

// Defaults возвращает встроенный список на случай, когда недоступны и БД, и файл.
func Defaults(kind model.ContentKind) []model.ContentItem {
	if kind == model.ContentNews {
		return []model.ContentItem{{
			ID:     defaultNewsID,
			Kind:   model.ContentNews,
			Title:  "Bienvenida al programa de afiliados",
			Body:   "Comparte tu tienda y gana comisión por cada pedido pagado.",
			Active: true,
		}}
	}
	return []model.ContentItem{{
		ID:       defaultBannerID,
		Kind:     model.ContentBanner,
		Title:    "Programa de afiliados",
		ImageURL: "/images/banner-default.jpg",
		LinkURL:  "/affiliates",
		Active:   true,
	}}
}
