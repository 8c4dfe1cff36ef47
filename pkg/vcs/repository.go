package vcs

import (
	"context"
	"time"

	"github.com/mirrorpress/engine/pkg/models"
)

// Commit is the metadata of one commit in the versioned store.
type Commit struct {
	Hash        string
	Message     string
	AuthorName  string
	AuthorEmail string
	Date        time.Time
}

// Repository is the version-control backend holding the file-backed
// entity mirror. Implementations must guarantee that a failed Revert
// leaves the working tree exactly as it was before the attempt.
type Repository interface {
	// IsCleanWorkingDirectory reports whether the working tree carries
	// no uncommitted modifications.
	IsCleanWorkingDirectory(ctx context.Context) (bool, error)

	// GetModifiedFiles returns the paths touched by the given revision
	// range, in the backend's order.
	GetModifiedFiles(ctx context.Context, revisionRange string) ([]string, error)

	// GetCommit returns the metadata of one commit.
	GetCommit(ctx context.Context, hash string) (*Commit, error)

	// Revert speculatively applies the inverse of one commit to the
	// working tree without committing. Returns false on conflict, in
	// which case the working tree has already been restored.
	Revert(ctx context.Context, hash string) (bool, error)

	// AbortRevert restores the working tree to its state before the
	// pending speculative revert.
	AbortRevert(ctx context.Context) error

	// RevertAll resets the working tree to the state of a historical
	// commit, collapsing everything since it into pending changes.
	RevertAll(ctx context.Context, hash string) error

	// WillCommit reports whether the working tree now differs from the
	// last commit.
	WillCommit(ctx context.Context) (bool, error)
}

// Committer finalizes pending working-tree changes into a commit,
// carrying a structured change description in the commit message.
type Committer interface {
	// ForceChangeInfo associates a change description with the next
	// commit, replacing any previously attached one.
	ForceChangeInfo(info *models.ChangeInfo)

	// Commit stages and commits all pending changes.
	Commit(ctx context.Context) error
}
