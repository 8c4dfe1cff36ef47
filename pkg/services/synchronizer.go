package services

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"go.uber.org/zap"

	"github.com/mirrorpress/engine/pkg/database"
	"github.com/mirrorpress/engine/pkg/models"
	"github.com/mirrorpress/engine/pkg/schema"
	"github.com/mirrorpress/engine/pkg/storage"
)

// Synchronizer pushes file-store state for the given entity types into
// the relational mirror. Idempotent and safe to call with a superset
// of the necessary types; duplicates are collapsed.
type Synchronizer interface {
	Synchronize(ctx context.Context, entityTypes []string) error
}

type mirrorSynchronizer struct {
	stores storage.Factory
	db     *database.DB
	logger *zap.Logger
}

// NewMirrorSynchronizer creates a Synchronizer that replaces each
// type's mirror table contents with the current store state.
func NewMirrorSynchronizer(stores storage.Factory, db *database.DB, logger *zap.Logger) Synchronizer {
	return &mirrorSynchronizer{
		stores: stores,
		db:     db,
		logger: logger.Named("synchronizer"),
	}
}

var _ Synchronizer = (*mirrorSynchronizer)(nil)

var tableNamePattern = regexp.MustCompile(`^[a-z_]+$`)

func mirrorTable(entityType string) (string, error) {
	table := "mirror_" + schema.Plural(entityType)
	if !tableNamePattern.MatchString(table) {
		return "", fmt.Errorf("invalid entity type for mirror table: %q", entityType)
	}
	return table, nil
}

func (s *mirrorSynchronizer) Synchronize(ctx context.Context, entityTypes []string) error {
	seen := make(map[string]bool, len(entityTypes))
	for _, entityType := range entityTypes {
		if seen[entityType] {
			continue
		}
		seen[entityType] = true
		if err := s.synchronizeType(ctx, entityType); err != nil {
			return fmt.Errorf("synchronize %s: %w", entityType, err)
		}
	}
	return nil
}

func (s *mirrorSynchronizer) synchronizeType(ctx context.Context, entityType string) error {
	table, err := mirrorTable(entityType)
	if err != nil {
		return err
	}

	store, err := s.stores.StoreFor(entityType)
	if err != nil {
		return fmt.Errorf("get store: %w", err)
	}
	records, err := store.LoadAll()
	if err != nil {
		return fmt.Errorf("load store state: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	// Replace the whole table: rows deleted from the store must also
	// disappear from the mirror.
	if _, err := tx.Exec(ctx, "DELETE FROM "+table); err != nil {
		return fmt.Errorf("clear mirror table: %w", err)
	}

	insert := "INSERT INTO " + table + " (id, parent, data) VALUES ($1, $2, $3)"
	for _, record := range records {
		data, err := json.Marshal(record)
		if err != nil {
			return fmt.Errorf("marshal record: %w", err)
		}
		parent := record[storage.FieldParent]
		if parent == "" {
			parent = models.TopLevelParent
		}
		if _, err := tx.Exec(ctx, insert, record[storage.FieldID], parent, data); err != nil {
			return fmt.Errorf("insert record %s: %w", record[storage.FieldID], err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	s.logger.Info("Synchronized entity type to mirror",
		zap.String("entity_type", entityType),
		zap.Int("records", len(records)))
	return nil
}
