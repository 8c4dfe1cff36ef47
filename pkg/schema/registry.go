package schema

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/mirrorpress/engine/pkg/apperrors"
)

// RefFieldPrefix is the fixed prefix applied to reference field names
// on entity records. A one-to-many reference declared as "author"
// materializes as the field "ref_author"; a many-to-many reference to
// entity type "term" materializes as "ref_term".
const RefFieldPrefix = "ref_"

// Storage layout constants for entity types.
const (
	StorageDirectory = "directory"
	StorageFile      = "file"
)

// EntityInfo describes one entity type's reference declarations and
// storage layout. Immutable for the duration of a revert operation.
type EntityInfo struct {
	// References maps a one-to-many reference field name to the target
	// entity type.
	References map[string]string `yaml:"-"`

	// MnReferences maps a many-to-many reference field name to the
	// target entity type.
	MnReferences map[string]string `yaml:"-"`

	// Storage is the on-disk layout: one file per entity under a
	// pluralized directory, or one section per entity in a shared file.
	Storage string `yaml:"storage"`

	// File overrides the shared file name for file-backed types that
	// live alongside another type (usermeta in users.ini). Empty means
	// the pluralized type name.
	File string `yaml:"file"`

	// ParentScoped marks entity types keyed within a parent entity's
	// namespace.
	ParentScoped bool `yaml:"parent_scoped"`
}

// RefField returns the record field name for a declared reference name.
func RefField(referenceName string) string {
	return RefFieldPrefix + referenceName
}

// Registry exposes the entity schema: reference declarations per type
// and the set of all known types.
type Registry interface {
	// GetEntityInfo returns the schema info for an entity type.
	// Returns apperrors.ErrUnknownEntityType for undeclared types.
	GetEntityInfo(entityType string) (*EntityInfo, error)

	// AllEntityNames returns every declared entity type name, sorted.
	AllEntityNames() []string
}

// entitySpec is the YAML shape of one entity declaration.
type entitySpec struct {
	Storage      string            `yaml:"storage"`
	File         string            `yaml:"file"`
	ParentScoped bool              `yaml:"parent_scoped"`
	References   map[string]string `yaml:"references"`
	MnReferences map[string]string `yaml:"mn_references"`
}

type yamlRegistry struct {
	entities map[string]*EntityInfo
	names    []string
}

// LoadRegistry reads the entity schema from a YAML file. Reference
// names in the file are declared without the field prefix; the prefix
// is applied here so every consumer sees final field names.
func LoadRegistry(path string) (Registry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}

	var specs map[string]entitySpec
	if err := yaml.Unmarshal(raw, &specs); err != nil {
		return nil, fmt.Errorf("parse schema file: %w", err)
	}

	entities := make(map[string]*EntityInfo, len(specs))
	names := make([]string, 0, len(specs))
	for name, spec := range specs {
		info := &EntityInfo{
			References:   make(map[string]string, len(spec.References)),
			MnReferences: make(map[string]string, len(spec.MnReferences)),
			Storage:      spec.Storage,
			File:         spec.File,
			ParentScoped: spec.ParentScoped,
		}
		if info.Storage == "" {
			info.Storage = StorageFile
		}
		for ref, target := range spec.References {
			info.References[RefField(ref)] = target
		}
		for ref, target := range spec.MnReferences {
			info.MnReferences[RefField(ref)] = target
		}
		entities[name] = info
		names = append(names, name)
	}
	sort.Strings(names)

	return &yamlRegistry{entities: entities, names: names}, nil
}

var _ Registry = (*yamlRegistry)(nil)

func (r *yamlRegistry) GetEntityInfo(entityType string) (*EntityInfo, error) {
	info, ok := r.entities[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownEntityType, entityType)
	}
	return info, nil
}

func (r *yamlRegistry) AllEntityNames() []string {
	names := make([]string, len(r.names))
	copy(names, r.names)
	return names
}
