package storage

import (
	"github.com/mirrorpress/engine/pkg/models"
)

// Store reads entities of a single type from the file-backed mirror.
// Stores never write; all mutation goes through the version-control
// backend.
type Store interface {
	// Exists reports whether the entity is present in the store.
	Exists(entityID, parentID string) (bool, error)

	// LoadEntity materializes one entity record. Returns
	// apperrors.ErrEntityNotFound if it does not exist.
	LoadEntity(entityID, parentID string) (models.EntityRecord, error)

	// LoadAll materializes every entity of this type. Expensive for
	// directory-backed types; callers use it only for the exhaustive
	// incoming-reference scan.
	LoadAll() ([]models.EntityRecord, error)
}

// Factory resolves the store for an entity type name.
type Factory interface {
	StoreFor(entityType string) (Store, error)
}
