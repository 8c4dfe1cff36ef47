package services

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mirrorpress/engine/pkg/apperrors"
	"github.com/mirrorpress/engine/pkg/models"
	"github.com/mirrorpress/engine/pkg/schema"
	"github.com/mirrorpress/engine/pkg/storage"
)

// ============================================================================
// In-Memory Store and Registry for Validator Tests
// ============================================================================

type memStore struct {
	entities map[string]models.EntityRecord // keyed by parent/id
}

func newMemStore() *memStore {
	return &memStore{entities: make(map[string]models.EntityRecord)}
}

func memKey(entityID, parentID string) string {
	if parentID == "" {
		parentID = models.TopLevelParent
	}
	return parentID + "/" + entityID
}

func (s *memStore) put(entityID, parentID string, record models.EntityRecord) {
	if record == nil {
		record = models.EntityRecord{}
	}
	record[storage.FieldID] = entityID
	s.entities[memKey(entityID, parentID)] = record
}

func (s *memStore) Exists(entityID, parentID string) (bool, error) {
	_, ok := s.entities[memKey(entityID, parentID)]
	return ok, nil
}

func (s *memStore) LoadEntity(entityID, parentID string) (models.EntityRecord, error) {
	record, ok := s.entities[memKey(entityID, parentID)]
	if !ok {
		return nil, apperrors.ErrEntityNotFound
	}
	return record, nil
}

func (s *memStore) LoadAll() ([]models.EntityRecord, error) {
	records := make([]models.EntityRecord, 0, len(s.entities))
	for _, r := range s.entities {
		records = append(records, r)
	}
	return records, nil
}

type memFactory struct {
	stores map[string]*memStore
}

func (f *memFactory) StoreFor(entityType string) (storage.Store, error) {
	store, ok := f.stores[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownEntityType, entityType)
	}
	return store, nil
}

type memRegistry struct {
	infos map[string]*schema.EntityInfo
	names []string
}

func (r *memRegistry) GetEntityInfo(entityType string) (*schema.EntityInfo, error) {
	info, ok := r.infos[entityType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrUnknownEntityType, entityType)
	}
	return info, nil
}

func (r *memRegistry) AllEntityNames() []string {
	return r.names
}

// blogFixture wires a post/comment/user/term world: comments belong to
// posts and users, posts belong to users and carry many-to-many term
// references.
type blogFixture struct {
	registry  *memRegistry
	factory   *memFactory
	validator ReferenceValidator
}

func newBlogFixture() *blogFixture {
	registry := &memRegistry{
		infos: map[string]*schema.EntityInfo{
			"post": {
				References:   map[string]string{"ref_author": "user"},
				MnReferences: map[string]string{"ref_term": "term"},
			},
			"comment": {
				References:   map[string]string{"ref_post": "post", "ref_author": "user"},
				MnReferences: map[string]string{},
			},
			"user": {
				References:   map[string]string{},
				MnReferences: map[string]string{},
			},
			"term": {
				References:   map[string]string{},
				MnReferences: map[string]string{},
			},
		},
		names: []string{"comment", "post", "term", "user"},
	}
	factory := &memFactory{stores: map[string]*memStore{
		"post":    newMemStore(),
		"comment": newMemStore(),
		"user":    newMemStore(),
		"term":    newMemStore(),
	}}
	return &blogFixture{
		registry:  registry,
		factory:   factory,
		validator: NewReferenceValidator(registry, factory, zap.NewNop()),
	}
}

// ============================================================================
// Outgoing References
// ============================================================================

func TestCheckEntityReferences_AllReferencesResolve(t *testing.T) {
	f := newBlogFixture()
	f.factory.stores["user"].put("u1", "", nil)
	f.factory.stores["term"].put("t1", "", nil)
	f.factory.stores["term"].put("t2", "", nil)
	f.factory.stores["post"].put("p1", "", models.EntityRecord{
		"ref_author": "u1",
		"ref_term":   "t1,t2",
	})

	ok, err := f.validator.CheckEntityReferences("post", "p1", "")

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckEntityReferences_DanglingOneToMany(t *testing.T) {
	f := newBlogFixture()
	f.factory.stores["post"].put("p1", "", models.EntityRecord{
		"ref_author": "ghost",
	})

	ok, err := f.validator.CheckEntityReferences("post", "p1", "")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckEntityReferences_DanglingManyToMany(t *testing.T) {
	f := newBlogFixture()
	f.factory.stores["term"].put("t1", "", nil)
	f.factory.stores["post"].put("p1", "", models.EntityRecord{
		"ref_term": "t1,missing",
	})

	ok, err := f.validator.CheckEntityReferences("post", "p1", "")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckEntityReferences_AbsentReferenceFieldIsValid(t *testing.T) {
	f := newBlogFixture()
	// No author, no terms: "not set" is always valid.
	f.factory.stores["post"].put("p1", "", models.EntityRecord{"title": "hello"})

	ok, err := f.validator.CheckEntityReferences("post", "p1", "")

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckEntityReferences_ScopedEntityReferencesTopLevelTarget(t *testing.T) {
	f := newBlogFixture()
	f.registry.infos["postmeta"] = &schema.EntityInfo{
		References:   map[string]string{"ref_post": "post"},
		MnReferences: map[string]string{},
		ParentScoped: true,
	}
	f.registry.names = append(f.registry.names, "postmeta")
	f.factory.stores["postmeta"] = newMemStore()
	f.factory.stores["post"].put("p1", "", nil)
	// The meta entity lives in p1's scope; its reference target lives at
	// the top level.
	f.factory.stores["postmeta"].put("m1", "p1", models.EntityRecord{
		"ref_post": "p1",
	})

	ok, err := f.validator.CheckEntityReferences("postmeta", "m1", "p1")

	require.NoError(t, err)
	assert.True(t, ok)
}

// ============================================================================
// Deleted Entities and Incoming References
// ============================================================================

func TestCheckEntityReferences_DeletedPostStillReferencedByComment(t *testing.T) {
	f := newBlogFixture()
	// Post p1 was removed by the revert, but comment c1 survives and
	// still points at it.
	f.factory.stores["comment"].put("c1", "", models.EntityRecord{
		"ref_post": "p1",
	})

	ok, err := f.validator.CheckEntityReferences("post", "p1", "")

	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCheckEntityReferences_DeletedEntityWithNoIncomingReferences(t *testing.T) {
	f := newBlogFixture()
	f.factory.stores["comment"].put("c1", "", models.EntityRecord{
		"ref_post": "other",
	})

	ok, err := f.validator.CheckEntityReferences("post", "p1", "")

	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCheckEntityReferences_DeletedTermListedInManyToMany(t *testing.T) {
	f := newBlogFixture()
	f.factory.stores["post"].put("p1", "", models.EntityRecord{
		"ref_term": "t1,t9",
	})

	ok, err := f.validator.CheckEntityReferences("term", "t9", "")

	require.NoError(t, err)
	assert.False(t, ok, "a deletion can orphan many-to-many references too")
}

func TestExistsSomeEntityWithReferenceTo_ScansEveryType(t *testing.T) {
	f := newBlogFixture()
	f.factory.stores["comment"].put("c1", "", models.EntityRecord{"ref_author": "u7"})

	referenced, err := f.validator.ExistsSomeEntityWithReferenceTo("user", "u7")
	require.NoError(t, err)
	assert.True(t, referenced)

	referenced, err = f.validator.ExistsSomeEntityWithReferenceTo("user", "u8")
	require.NoError(t, err)
	assert.False(t, referenced)
}

// ============================================================================
// Purity
// ============================================================================

func TestCheckEntityReferences_DeterministicForSameStoreState(t *testing.T) {
	f := newBlogFixture()
	f.factory.stores["user"].put("u1", "", nil)
	f.factory.stores["post"].put("p1", "", models.EntityRecord{"ref_author": "u1"})

	for i := 0; i < 3; i++ {
		ok, err := f.validator.CheckEntityReferences("post", "p1", "")
		require.NoError(t, err)
		assert.True(t, ok)
	}
}

func TestCheckEntityReferences_UnknownTypeFails(t *testing.T) {
	f := newBlogFixture()

	_, err := f.validator.CheckEntityReferences("widget", "w1", "")

	assert.ErrorIs(t, err, apperrors.ErrUnknownEntityType)
}
