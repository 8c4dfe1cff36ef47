package vcs

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mirrorpress/engine/pkg/apperrors"
	"github.com/mirrorpress/engine/pkg/changes"
	"github.com/mirrorpress/engine/pkg/models"
)

// GitRepository drives a git working tree through the git CLI. It
// implements both Repository and Committer.
type GitRepository struct {
	workDir    string
	gitBinary  string
	changeInfo *models.ChangeInfo
	logger     *zap.Logger
}

// NewGitRepository opens an existing git working tree. gitBinary may be
// empty, in which case "git" is resolved from PATH.
func NewGitRepository(workDir, gitBinary string, logger *zap.Logger) (*GitRepository, error) {
	if gitBinary == "" {
		gitBinary = "git"
	}
	if _, err := os.Stat(filepath.Join(workDir, ".git")); err != nil {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrNotARepository, workDir)
	}
	return &GitRepository{
		workDir:   workDir,
		gitBinary: gitBinary,
		logger:    logger.Named("git"),
	}, nil
}

var (
	_ Repository = (*GitRepository)(nil)
	_ Committer  = (*GitRepository)(nil)
)

func (g *GitRepository) run(ctx context.Context, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, g.gitBinary, args...)
	cmd.Dir = g.workDir
	var out, errOut bytes.Buffer
	cmd.Stdout = &out
	cmd.Stderr = &errOut
	if err := cmd.Run(); err != nil {
		return out.String(), fmt.Errorf("git %s: %w: %s", args[0], err, strings.TrimSpace(errOut.String()))
	}
	return out.String(), nil
}

func (g *GitRepository) IsCleanWorkingDirectory(ctx context.Context) (bool, error) {
	out, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("check working directory: %w", err)
	}
	return strings.TrimSpace(out) == "", nil
}

func (g *GitRepository) GetModifiedFiles(ctx context.Context, revisionRange string) ([]string, error) {
	out, err := g.run(ctx, "diff", "--name-only", revisionRange)
	if err != nil {
		return nil, fmt.Errorf("list modified files: %w", err)
	}
	var files []string
	for _, line := range strings.Split(out, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

func (g *GitRepository) GetCommit(ctx context.Context, hash string) (*Commit, error) {
	out, err := g.run(ctx, "log", "-1", "--format=%H%n%an%n%ae%n%aI%n%B", hash)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", hash, err)
	}
	parts := strings.SplitN(out, "\n", 5)
	if len(parts) < 5 {
		return nil, fmt.Errorf("read commit %s: unexpected log output", hash)
	}
	date, err := time.Parse(time.RFC3339, parts[3])
	if err != nil {
		return nil, fmt.Errorf("parse commit date: %w", err)
	}
	return &Commit{
		Hash:        parts[0],
		AuthorName:  parts[1],
		AuthorEmail: parts[2],
		Date:        date,
		Message:     strings.TrimRight(parts[4], "\n"),
	}, nil
}

func (g *GitRepository) Revert(ctx context.Context, hash string) (bool, error) {
	if _, err := g.run(ctx, "revert", "--no-commit", hash); err != nil {
		g.logger.Warn("Revert did not apply cleanly, restoring working tree",
			zap.String("commit", hash),
			zap.Error(err))
		// A conflicted revert leaves the sequencer active; abort it to
		// restore the pre-attempt tree before reporting the conflict.
		if _, abortErr := g.run(ctx, "revert", "--abort"); abortErr != nil {
			return false, fmt.Errorf("restore after conflicted revert: %w", abortErr)
		}
		return false, nil
	}
	return true, nil
}

func (g *GitRepository) AbortRevert(ctx context.Context) error {
	if _, err := g.run(ctx, "revert", "--abort"); err == nil {
		return nil
	}
	// "revert --no-commit" that applied cleanly may have already
	// cleared the sequencer state; fall back to a hard reset.
	if _, err := g.run(ctx, "reset", "--hard", "HEAD"); err != nil {
		return fmt.Errorf("abort revert: %w", err)
	}
	return nil
}

func (g *GitRepository) RevertAll(ctx context.Context, hash string) error {
	// Reset index and working tree to the historical commit while
	// keeping HEAD in place, so the collapse shows up as pending
	// changes for the next commit.
	if _, err := g.run(ctx, "read-tree", "--reset", "-u", hash); err != nil {
		return fmt.Errorf("revert all to %s: %w", hash, err)
	}
	return nil
}

func (g *GitRepository) WillCommit(ctx context.Context) (bool, error) {
	out, err := g.run(ctx, "status", "--porcelain")
	if err != nil {
		return false, fmt.Errorf("check pending changes: %w", err)
	}
	return strings.TrimSpace(out) != "", nil
}

func (g *GitRepository) ForceChangeInfo(info *models.ChangeInfo) {
	g.changeInfo = info
}

func (g *GitRepository) Commit(ctx context.Context) error {
	info := g.changeInfo
	if info == nil {
		info = models.NewUntrackedChangeInfo()
	}
	message := changes.FormatMessage(info)

	if _, err := g.run(ctx, "add", "-A"); err != nil {
		return fmt.Errorf("stage changes: %w", err)
	}
	if _, err := g.run(ctx, "commit", "-m", message); err != nil {
		return fmt.Errorf("commit changes: %w", err)
	}

	g.changeInfo = nil
	g.logger.Info("Committed pending changes",
		zap.String("kind", info.Kind),
		zap.String("change_set_id", info.ChangeSetID))
	return nil
}
