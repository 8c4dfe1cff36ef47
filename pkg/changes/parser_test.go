package changes

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mirrorpress/engine/pkg/models"
)

func TestBuildChangeInfo_Untracked(t *testing.T) {
	tests := []struct {
		name    string
		message string
	}{
		{"plain message", "Fix typo in about page"},
		{"empty message", ""},
		{"trailer-like prose", "We should Change: everything eventually"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info := BuildChangeInfo(tt.message)
			assert.True(t, info.IsUntracked())
			assert.Empty(t, info.Changes)
		})
	}
}

func TestBuildChangeInfo_Tracked(t *testing.T) {
	message := "Edit post\n" +
		"\n" +
		"Change-Set: 4b6e87c0-9f2e-4c05-8a43-1f6f2a8e9d11\n" +
		"Change: post/edit/8f14e45f\n" +
		"Change: postmeta/create/45c48cce/8f14e45f\n"

	info := BuildChangeInfo(message)

	require.False(t, info.IsUntracked())
	assert.Equal(t, "4b6e87c0-9f2e-4c05-8a43-1f6f2a8e9d11", info.ChangeSetID)
	require.Len(t, info.Changes, 2)

	assert.Equal(t, models.EntityChange{
		EntityType: "post", Action: "edit", EntityID: "8f14e45f",
	}, info.Changes[0])
	assert.Equal(t, models.EntityChange{
		EntityType: "postmeta", Action: "create", EntityID: "45c48cce", ParentID: "8f14e45f",
	}, info.Changes[1])
}

func TestBuildChangeInfo_SkipsMalformedTrailers(t *testing.T) {
	message := "Mixed bag\n" +
		"\n" +
		"Change: post/edit\n" + // too few segments
		"Change: post/edit/id/parent/extra\n" + // too many segments
		"Change: post//id\n" + // empty segment
		"Change: comment/delete/abc\n"

	info := BuildChangeInfo(message)

	require.False(t, info.IsUntracked())
	require.Len(t, info.Changes, 1)
	assert.Equal(t, "comment", info.Changes[0].EntityType)
}

func TestBuildChangeInfo_AllMalformedIsUntracked(t *testing.T) {
	info := BuildChangeInfo("Oops\n\nChange: nonsense\n")
	assert.True(t, info.IsUntracked())
}

func TestFormatMessage_RoundTrip(t *testing.T) {
	original := &models.ChangeInfo{
		Kind:        models.ChangeKindTracked,
		ChangeSetID: uuid.NewString(),
		Changes: []models.EntityChange{
			{EntityType: "post", Action: models.ActionEdit, EntityID: "8f14e45f"},
			{EntityType: "postmeta", Action: models.ActionDelete, EntityID: "45c48cce", ParentID: "8f14e45f"},
		},
	}

	parsed := BuildChangeInfo(FormatMessage(original))

	assert.Equal(t, original.ChangeSetID, parsed.ChangeSetID)
	assert.Equal(t, original.Changes, parsed.Changes)
}

func TestNewUndo(t *testing.T) {
	info := NewUndo("abc123def456")

	require.False(t, info.IsUntracked())
	require.Len(t, info.Changes, 1)
	assert.Equal(t, models.ActionUndo, info.Changes[0].Action)
	assert.Equal(t, "abc123def456", info.Changes[0].EntityID)
	_, err := uuid.Parse(info.ChangeSetID)
	assert.NoError(t, err)

	message := FormatMessage(info)
	assert.True(t, strings.HasPrefix(message, "Undo change abc123def4"))
}

func TestNewRollback(t *testing.T) {
	info := NewRollback("abc123def456")

	require.Len(t, info.Changes, 1)
	assert.Equal(t, models.ActionRollback, info.Changes[0].Action)
	assert.True(t, strings.HasPrefix(FormatMessage(info), "Roll back to abc123def4"))
}
