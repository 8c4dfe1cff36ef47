package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/mirrorpress/engine/pkg/changes"
	"github.com/mirrorpress/engine/pkg/database"
	"github.com/mirrorpress/engine/pkg/models"
	"github.com/mirrorpress/engine/pkg/vcs"
)

// Reverter is the transactional core: it reverts commits in the
// versioned store, refusing any revert that would break referential
// integrity, and drives mirror resynchronization after a successful
// commit. The returned status is only meaningful when the error is
// nil; collaborator faults propagate as errors.
type Reverter interface {
	// Revert undoes a single commit.
	Revert(ctx context.Context, commitHash string) (models.RevertStatus, error)

	// RevertAll collapses history back to a historical commit. Unlike
	// Revert it performs no referential-integrity validation: a range
	// revert restores a previously committed, consistent state.
	RevertAll(ctx context.Context, commitHash string) (models.RevertStatus, error)
}

type reverter struct {
	repo         vcs.Repository
	committer    vcs.Committer
	validator    ReferenceValidator
	classifier   Classifier
	synchronizer Synchronizer
	postMirror   database.PostMirror
	clock        Clock
	logger       *zap.Logger
}

// NewReverter creates a Reverter over the given collaborators.
func NewReverter(
	repo vcs.Repository,
	committer vcs.Committer,
	validator ReferenceValidator,
	classifier Classifier,
	synchronizer Synchronizer,
	postMirror database.PostMirror,
	clock Clock,
	logger *zap.Logger,
) Reverter {
	return &reverter{
		repo:         repo,
		committer:    committer,
		validator:    validator,
		classifier:   classifier,
		synchronizer: synchronizer,
		postMirror:   postMirror,
		clock:        clock,
		logger:       logger.Named("reverter"),
	}
}

var _ Reverter = (*reverter)(nil)

func (r *reverter) Revert(ctx context.Context, commitHash string) (models.RevertStatus, error) {
	clean, err := r.repo.IsCleanWorkingDirectory(ctx)
	if err != nil {
		return models.RevertStatusUnknown, fmt.Errorf("check working directory: %w", err)
	}
	if !clean {
		return models.RevertNotCleanWorkingDirectory, nil
	}

	// Capture the file list and change description before mutating
	// anything; after the speculative apply they are no longer
	// derivable from the working tree.
	modifiedFiles, err := r.repo.GetModifiedFiles(ctx, commitHash+"~1.."+commitHash)
	if err != nil {
		return models.RevertStatusUnknown, fmt.Errorf("capture modified files: %w", err)
	}
	commit, err := r.repo.GetCommit(ctx, commitHash)
	if err != nil {
		return models.RevertStatusUnknown, fmt.Errorf("read target commit: %w", err)
	}
	changeInfo := changes.BuildChangeInfo(commit.Message)

	applied, err := r.repo.Revert(ctx, commitHash)
	if err != nil {
		return models.RevertStatusUnknown, fmt.Errorf("apply revert: %w", err)
	}
	if !applied {
		r.logger.Info("Revert conflicted, working tree restored",
			zap.String("commit", commitHash))
		return models.RevertMergeConflict, nil
	}

	ok, err := r.validate(changeInfo)
	if err != nil {
		// Leave no speculative state behind even when validation itself
		// failed in a collaborator.
		if abortErr := r.repo.AbortRevert(ctx); abortErr != nil {
			r.logger.Error("Failed to abort revert after validation error",
				zap.String("commit", commitHash),
				zap.Error(abortErr))
		}
		return models.RevertStatusUnknown, err
	}
	if !ok {
		if err := r.repo.AbortRevert(ctx); err != nil {
			return models.RevertStatusUnknown, fmt.Errorf("abort revert: %w", err)
		}
		r.logger.Info("Revert rejected, would violate referential integrity",
			zap.String("commit", commitHash))
		return models.RevertViolatedReferentialIntegrity, nil
	}

	r.committer.ForceChangeInfo(changes.NewUndo(commitHash))
	if err := r.committer.Commit(ctx); err != nil {
		return models.RevertStatusUnknown, fmt.Errorf("commit revert: %w", err)
	}

	if err := r.synchronizeAfterCommit(ctx, modifiedFiles); err != nil {
		return models.RevertStatusUnknown, err
	}

	r.logger.Info("Revert committed and synchronized",
		zap.String("commit", commitHash),
		zap.Int("modified_files", len(modifiedFiles)))
	return models.RevertOK, nil
}

func (r *reverter) RevertAll(ctx context.Context, commitHash string) (models.RevertStatus, error) {
	clean, err := r.repo.IsCleanWorkingDirectory(ctx)
	if err != nil {
		return models.RevertStatusUnknown, fmt.Errorf("check working directory: %w", err)
	}
	if !clean {
		return models.RevertNotCleanWorkingDirectory, nil
	}

	modifiedFiles, err := r.repo.GetModifiedFiles(ctx, commitHash+"..HEAD")
	if err != nil {
		return models.RevertStatusUnknown, fmt.Errorf("capture modified files: %w", err)
	}

	if err := r.repo.RevertAll(ctx, commitHash); err != nil {
		return models.RevertStatusUnknown, fmt.Errorf("apply bulk revert: %w", err)
	}

	willCommit, err := r.repo.WillCommit(ctx)
	if err != nil {
		return models.RevertStatusUnknown, fmt.Errorf("check pending changes: %w", err)
	}
	if !willCommit {
		return models.RevertNothingToCommit, nil
	}

	r.committer.ForceChangeInfo(changes.NewRollback(commitHash))
	if err := r.committer.Commit(ctx); err != nil {
		return models.RevertStatusUnknown, fmt.Errorf("commit rollback: %w", err)
	}

	if err := r.synchronizeAfterCommit(ctx, modifiedFiles); err != nil {
		return models.RevertStatusUnknown, err
	}

	r.logger.Info("Rollback committed and synchronized",
		zap.String("commit", commitHash),
		zap.Int("modified_files", len(modifiedFiles)))
	return models.RevertOK, nil
}

// validate runs the integrity checker over every entity named in the
// change description, in commit order, stopping at the first
// violation. Untracked descriptions are trusted.
func (r *reverter) validate(changeInfo *models.ChangeInfo) (bool, error) {
	if changeInfo.IsUntracked() {
		return true, nil
	}
	for _, ec := range changeInfo.Changes {
		id := ec.Identity()
		ok, err := r.validator.CheckEntityReferences(id.EntityType, id.ID, id.ParentID)
		if err != nil {
			return false, fmt.Errorf("check references of %s %s: %w", id.EntityType, id.ID, err)
		}
		if !ok {
			return false, nil
		}
	}
	return true, nil
}

// synchronizeAfterCommit pushes the reverted state to the relational
// mirror. The commit has already succeeded; failures here propagate
// with no compensating action.
func (r *reverter) synchronizeAfterCommit(ctx context.Context, modifiedFiles []string) error {
	entityTypes := r.classifier.DetectEntitiesToSynchronize(modifiedFiles)
	if err := r.synchronizer.Synchronize(ctx, entityTypes); err != nil {
		return fmt.Errorf("synchronize mirror: %w", err)
	}

	now := r.clock.Now()
	for _, postID := range r.classifier.GetAffectedPosts(modifiedFiles) {
		if err := r.postMirror.StampPostModified(ctx, postID, now, now.UTC()); err != nil {
			return fmt.Errorf("stamp post %s: %w", postID, err)
		}
	}
	return nil
}
