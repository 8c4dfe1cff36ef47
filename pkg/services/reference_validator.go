package services

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/mirrorpress/engine/pkg/models"
	"github.com/mirrorpress/engine/pkg/schema"
	"github.com/mirrorpress/engine/pkg/storage"
)

// ReferenceValidator decides whether a single entity's post-revert
// state leaves the entity graph free of dangling or orphaned
// references. It only reads; all mutation belongs to the backend.
type ReferenceValidator interface {
	// CheckEntityReferences returns true iff reverting to the current
	// store state is safe with respect to this one entity: every
	// outgoing reference resolves, and if the entity no longer exists,
	// nothing still points at it.
	CheckEntityReferences(entityType, entityID, parentID string) (bool, error)

	// ExistsSomeEntityWithReferenceTo reports whether any entity of any
	// type holds a reference to the given id. Full cross-product scan;
	// there is no reverse-reference index.
	ExistsSomeEntityWithReferenceTo(entityType, entityID string) (bool, error)
}

type referenceValidator struct {
	registry schema.Registry
	stores   storage.Factory
	logger   *zap.Logger
}

// NewReferenceValidator creates a ReferenceValidator over the given
// schema registry and store factory.
func NewReferenceValidator(registry schema.Registry, stores storage.Factory, logger *zap.Logger) ReferenceValidator {
	return &referenceValidator{
		registry: registry,
		stores:   stores,
		logger:   logger.Named("reference-validator"),
	}
}

var _ ReferenceValidator = (*referenceValidator)(nil)

func (v *referenceValidator) CheckEntityReferences(entityType, entityID, parentID string) (bool, error) {
	info, err := v.registry.GetEntityInfo(entityType)
	if err != nil {
		return false, fmt.Errorf("get entity info: %w", err)
	}
	store, err := v.stores.StoreFor(entityType)
	if err != nil {
		return false, fmt.Errorf("get entity store: %w", err)
	}

	exists, err := store.Exists(entityID, parentID)
	if err != nil {
		return false, fmt.Errorf("check entity existence: %w", err)
	}

	if !exists {
		// The revert removes this entity. It is only safe if nothing
		// anywhere still references it; a deletion can orphan
		// references from any entity type, not just the ones named in
		// the change description.
		referenced, err := v.ExistsSomeEntityWithReferenceTo(entityType, entityID)
		if err != nil {
			return false, err
		}
		if referenced {
			v.logger.Info("Deleted entity is still referenced",
				zap.String("entity_type", entityType),
				zap.String("entity_id", entityID))
			return false, nil
		}
		return true, nil
	}

	entity, err := store.LoadEntity(entityID, parentID)
	if err != nil {
		return false, fmt.Errorf("load entity: %w", err)
	}

	for field, targetType := range info.References {
		// An absent reference field means "not set", which is valid.
		if !entity.Has(field) {
			continue
		}
		ok, err := v.targetExists(targetType, entity[field])
		if err != nil {
			return false, fmt.Errorf("check reference target: %w", err)
		}
		if !ok {
			v.logger.Info("Dangling reference",
				zap.String("entity_type", entityType),
				zap.String("entity_id", entityID),
				zap.String("field", field),
				zap.String("target_type", targetType),
				zap.String("target_id", entity[field]))
			return false, nil
		}
	}

	for field, targetType := range info.MnReferences {
		if !entity.Has(field) {
			continue
		}
		for _, refID := range entity.RefList(field) {
			ok, err := v.targetExists(targetType, refID)
			if err != nil {
				return false, fmt.Errorf("check reference target: %w", err)
			}
			if !ok {
				v.logger.Info("Dangling many-to-many reference",
					zap.String("entity_type", entityType),
					zap.String("entity_id", entityID),
					zap.String("field", field),
					zap.String("target_type", targetType),
					zap.String("target_id", refID))
				return false, nil
			}
		}
	}

	return true, nil
}

// targetExists resolves a reference target in the target type's own
// namespace. Parent-scoped targets are searched across all scopes; a
// reference carries only the target's id, not its parent.
func (v *referenceValidator) targetExists(targetType, targetID string) (bool, error) {
	info, err := v.registry.GetEntityInfo(targetType)
	if err != nil {
		return false, fmt.Errorf("get entity info for %s: %w", targetType, err)
	}
	store, err := v.stores.StoreFor(targetType)
	if err != nil {
		return false, fmt.Errorf("get store for %s: %w", targetType, err)
	}
	if !info.ParentScoped {
		return store.Exists(targetID, models.TopLevelParent)
	}
	records, err := store.LoadAll()
	if err != nil {
		return false, fmt.Errorf("load all %s entities: %w", targetType, err)
	}
	for _, record := range records {
		if record[storage.FieldID] == targetID {
			return true, nil
		}
	}
	return false, nil
}

func (v *referenceValidator) ExistsSomeEntityWithReferenceTo(entityType, entityID string) (bool, error) {
	for _, name := range v.registry.AllEntityNames() {
		info, err := v.registry.GetEntityInfo(name)
		if err != nil {
			return false, fmt.Errorf("get entity info for %s: %w", name, err)
		}

		// Merge both cardinalities into one lookup; the scan only cares
		// which fields can point at the type under deletion.
		type refDecl struct {
			field string
			mn    bool
		}
		var decls []refDecl
		for field, target := range info.References {
			if target == entityType {
				decls = append(decls, refDecl{field: field})
			}
		}
		for field, target := range info.MnReferences {
			if target == entityType {
				decls = append(decls, refDecl{field: field, mn: true})
			}
		}
		if len(decls) == 0 {
			continue
		}

		store, err := v.stores.StoreFor(name)
		if err != nil {
			return false, fmt.Errorf("get store for %s: %w", name, err)
		}
		records, err := store.LoadAll()
		if err != nil {
			return false, fmt.Errorf("load all %s entities: %w", name, err)
		}

		for _, record := range records {
			for _, decl := range decls {
				if !decl.mn {
					if record[decl.field] == entityID {
						return true, nil
					}
					continue
				}
				for _, refID := range record.RefList(decl.field) {
					if refID == entityID {
						return true, nil
					}
				}
			}
		}
	}
	return false, nil
}
