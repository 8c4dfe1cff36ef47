package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/ini.v1"

	"github.com/mirrorpress/engine/pkg/apperrors"
	"github.com/mirrorpress/engine/pkg/models"
	"github.com/mirrorpress/engine/pkg/schema"
)

// Record fields injected from the storage path when the file itself
// does not carry them.
const (
	FieldID     = "id"
	FieldParent = "parent"
)

type iniFactory struct {
	contentDir string
	registry   schema.Registry
}

// NewFactory returns a Factory reading INI-backed entity stores rooted
// at contentDir, laid out per the schema registry's storage
// declarations.
func NewFactory(contentDir string, registry schema.Registry) Factory {
	return &iniFactory{contentDir: contentDir, registry: registry}
}

var _ Factory = (*iniFactory)(nil)

func (f *iniFactory) StoreFor(entityType string) (Store, error) {
	info, err := f.registry.GetEntityInfo(entityType)
	if err != nil {
		return nil, err
	}

	if info.Storage == schema.StorageDirectory {
		return &directoryStore{
			root: filepath.Join(f.contentDir, schema.Plural(entityType)),
		}, nil
	}

	file := info.File
	if file == "" {
		file = schema.Plural(entityType) + ".ini"
	}
	return &fileStore{
		path:         filepath.Join(f.contentDir, file),
		parentScoped: info.ParentScoped,
	}, nil
}

func normalizeParent(parentID string) string {
	if parentID == "" {
		return models.TopLevelParent
	}
	return parentID
}

// directoryStore keeps one INI file per entity:
// <plural>/<parent>/<id>.ini. Top-level entities use parent "0".
type directoryStore struct {
	root string
}

var _ Store = (*directoryStore)(nil)

func (s *directoryStore) entityPath(entityID, parentID string) string {
	return filepath.Join(s.root, normalizeParent(parentID), entityID+".ini")
}

func (s *directoryStore) Exists(entityID, parentID string) (bool, error) {
	_, err := os.Stat(s.entityPath(entityID, parentID))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, fmt.Errorf("stat entity file: %w", err)
}

func (s *directoryStore) LoadEntity(entityID, parentID string) (models.EntityRecord, error) {
	path := s.entityPath(entityID, parentID)
	cfg, err := ini.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", apperrors.ErrEntityNotFound, path)
		}
		return nil, fmt.Errorf("load entity file: %w", err)
	}
	return recordFromSection(cfg.Section(ini.DefaultSection), entityID, normalizeParent(parentID)), nil
}

func (s *directoryStore) LoadAll() ([]models.EntityRecord, error) {
	var records []models.EntityRecord
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && path == s.root {
				return filepath.SkipAll
			}
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".ini") {
			return nil
		}
		cfg, err := ini.Load(path)
		if err != nil {
			return fmt.Errorf("load entity file %s: %w", path, err)
		}
		id := strings.TrimSuffix(d.Name(), ".ini")
		parent := filepath.Base(filepath.Dir(path))
		records = append(records, recordFromSection(cfg.Section(ini.DefaultSection), id, parent))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk entity directory: %w", err)
	}
	return records, nil
}

// fileStore keeps every entity of a type as one section in a shared
// INI file. Parent-scoped types use "<parent>/<id>" section names.
type fileStore struct {
	path         string
	parentScoped bool
}

var _ Store = (*fileStore)(nil)

func (s *fileStore) sectionName(entityID, parentID string) string {
	if s.parentScoped {
		return normalizeParent(parentID) + "/" + entityID
	}
	return entityID
}

func (s *fileStore) load() (*ini.File, error) {
	cfg, err := ini.Load(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ini.Empty(), nil
		}
		return nil, fmt.Errorf("load store file: %w", err)
	}
	return cfg, nil
}

func (s *fileStore) Exists(entityID, parentID string) (bool, error) {
	cfg, err := s.load()
	if err != nil {
		return false, err
	}
	return cfg.HasSection(s.sectionName(entityID, parentID)), nil
}

func (s *fileStore) LoadEntity(entityID, parentID string) (models.EntityRecord, error) {
	cfg, err := s.load()
	if err != nil {
		return nil, err
	}
	name := s.sectionName(entityID, parentID)
	if !cfg.HasSection(name) {
		return nil, fmt.Errorf("%w: %s in %s", apperrors.ErrEntityNotFound, name, s.path)
	}
	return recordFromSection(cfg.Section(name), entityID, normalizeParent(parentID)), nil
}

func (s *fileStore) LoadAll() ([]models.EntityRecord, error) {
	cfg, err := s.load()
	if err != nil {
		return nil, err
	}
	var records []models.EntityRecord
	for _, sec := range cfg.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}
		id, parent := sec.Name(), models.TopLevelParent
		scoped := strings.Contains(id, "/")
		// Scoped and unscoped types can share one file (usermeta lives
		// in users.ini); section shape tells them apart.
		if scoped != s.parentScoped {
			continue
		}
		if s.parentScoped {
			i := strings.Index(id, "/")
			parent, id = id[:i], id[i+1:]
		}
		records = append(records, recordFromSection(sec, id, parent))
	}
	return records, nil
}

func recordFromSection(sec *ini.Section, entityID, parentID string) models.EntityRecord {
	record := make(models.EntityRecord, len(sec.Keys())+2)
	for _, key := range sec.Keys() {
		record[key.Name()] = key.Value()
	}
	if _, ok := record[FieldID]; !ok {
		record[FieldID] = entityID
	}
	if _, ok := record[FieldParent]; !ok {
		record[FieldParent] = parentID
	}
	return record
}
