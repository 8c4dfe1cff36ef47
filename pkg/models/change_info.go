package models

// Change kind discriminants. ChangeInfo is a closed tagged union: a
// commit either carries structured change trailers (tracked) or it
// does not (untracked). Untracked commits are trusted as-is.
const (
	ChangeKindUntracked = "untracked"
	ChangeKindTracked   = "tracked"
)

// Entity change action constants.
const (
	ActionCreate   = "create"
	ActionEdit     = "edit"
	ActionDelete   = "delete"
	ActionUndo     = "undo"
	ActionRollback = "rollback"
)

// EntityChange describes one entity touched by a commit. The integrity
// checker only needs the resulting identity, not the action.
type EntityChange struct {
	EntityType string `json:"entity_type"`
	Action     string `json:"action"`
	EntityID   string `json:"entity_id"`
	ParentID   string `json:"parent_id,omitempty"`
}

// Identity returns the entity identity this change resolves to.
func (c EntityChange) Identity() EntityID {
	return EntityID{EntityType: c.EntityType, ID: c.EntityID, ParentID: c.ParentID}
}

// ChangeInfo is the structured description of what a commit changed,
// derived from its message.
type ChangeInfo struct {
	Kind string `json:"kind"`

	// ChangeSetID groups the changes of one logical operation. Empty
	// for untracked commits.
	ChangeSetID string `json:"change_set_id,omitempty"`

	// Changes lists the touched entities in commit order. Nil for
	// untracked commits.
	Changes []EntityChange `json:"changes,omitempty"`
}

// NewUntrackedChangeInfo returns the opaque marker for commits with no
// structured description.
func NewUntrackedChangeInfo() *ChangeInfo {
	return &ChangeInfo{Kind: ChangeKindUntracked}
}

// IsUntracked reports whether this description carries no structured
// information.
func (c *ChangeInfo) IsUntracked() bool {
	return c == nil || c.Kind == ChangeKindUntracked
}
