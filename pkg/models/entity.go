package models

import "strings"

// TopLevelParent is the parent scope of entities that are not nested
// under another entity.
const TopLevelParent = "0"

// EntityID identifies a single entity in the file-backed store.
// ParentID distinguishes entities keyed within another entity's
// namespace (e.g. postmeta under a post) from top-level entities.
// Identity is stable across revert operations.
type EntityID struct {
	EntityType string
	ID         string
	ParentID   string
}

// IsTopLevel reports whether the entity lives outside any parent scope.
func (e EntityID) IsTopLevel() bool {
	return e.ParentID == "" || e.ParentID == TopLevelParent
}

// EntityRecord is one entity as materialized from its store: a flat
// mapping from field name to value. Reference fields follow the naming
// convention declared by the schema registry.
type EntityRecord map[string]string

// Has reports whether the record carries a non-empty value for field.
// An absent reference field means "not set", which is always valid.
func (r EntityRecord) Has(field string) bool {
	v, ok := r[field]
	return ok && v != ""
}

// RefList splits a many-to-many reference field into its individual
// ids. Values are comma-joined in the INI representation.
func (r EntityRecord) RefList(field string) []string {
	v, ok := r[field]
	if !ok || v == "" {
		return nil
	}
	parts := strings.Split(v, ",")
	ids := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			ids = append(ids, p)
		}
	}
	return ids
}
