package database

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// PostMirror stamps post modification timestamps in the relational
// mirror after a committed revert.
type PostMirror interface {
	// StampPostModified sets the post's modification timestamps (local
	// and UTC) by identity. Best-effort post-commit step; errors
	// propagate with no compensating action.
	StampPostModified(ctx context.Context, postID string, local, utc time.Time) error
}

type postMirror struct {
	db     *DB
	logger *zap.Logger
}

// NewPostMirror creates a PostMirror over the mirror database.
func NewPostMirror(db *DB, logger *zap.Logger) PostMirror {
	return &postMirror{
		db:     db,
		logger: logger.Named("post-mirror"),
	}
}

var _ PostMirror = (*postMirror)(nil)

func (m *postMirror) StampPostModified(ctx context.Context, postID string, local, utc time.Time) error {
	tag, err := m.db.Exec(ctx,
		`UPDATE mirror_posts SET post_modified = $2, post_modified_gmt = $3 WHERE id = $1`,
		postID, local, utc)
	if err != nil {
		m.logger.Error("Failed to stamp post modification time",
			zap.String("post_id", postID),
			zap.Error(err))
		return fmt.Errorf("stamp post modification time: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// The post may not have reached the mirror yet; the synchronize
		// pass carries the authoritative state.
		m.logger.Debug("Post not present in mirror", zap.String("post_id", postID))
	}
	return nil
}
