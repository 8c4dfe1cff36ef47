// Package changes translates between commit messages and structured
// change descriptions. A tracked commit carries one trailer line per
// touched entity:
//
//	Change-Set: 4b6e87c0-9f2e-4c05-8a43-1f6f2a8e9d11
//	Change: post/edit/8f14e45fceea167a
//	Change: postmeta/create/45c48cce2e2d7fbd/8f14e45fceea167a
//
// Commits without Change trailers are untracked: no structured
// information is available and they are treated as opaque.
package changes

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/mirrorpress/engine/pkg/models"
)

const (
	changeTrailer    = "Change: "
	changeSetTrailer = "Change-Set: "
)

// BuildChangeInfo derives a change description from a commit message.
// Messages without change trailers yield the untracked marker.
// Malformed trailer lines are skipped rather than rejected; untracked
// commits are trusted anyway, so a partial parse must not be stricter
// than no parse at all.
func BuildChangeInfo(message string) *models.ChangeInfo {
	var (
		changeSetID   string
		entityChanges []models.EntityChange
	)

	for _, line := range strings.Split(message, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, changeSetTrailer):
			changeSetID = strings.TrimSpace(strings.TrimPrefix(line, changeSetTrailer))
		case strings.HasPrefix(line, changeTrailer):
			if ec, ok := parseEntityChange(strings.TrimPrefix(line, changeTrailer)); ok {
				entityChanges = append(entityChanges, ec)
			}
		}
	}

	if len(entityChanges) == 0 {
		return models.NewUntrackedChangeInfo()
	}
	return &models.ChangeInfo{
		Kind:        models.ChangeKindTracked,
		ChangeSetID: changeSetID,
		Changes:     entityChanges,
	}
}

func parseEntityChange(s string) (models.EntityChange, bool) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) < 3 || len(parts) > 4 {
		return models.EntityChange{}, false
	}
	for _, p := range parts {
		if p == "" {
			return models.EntityChange{}, false
		}
	}
	ec := models.EntityChange{
		EntityType: parts[0],
		Action:     parts[1],
		EntityID:   parts[2],
	}
	if len(parts) == 4 {
		ec.ParentID = parts[3]
	}
	return ec, true
}

// NewUndo builds the change description attached to a commit that
// reverts one earlier commit.
func NewUndo(commitHash string) *models.ChangeInfo {
	return &models.ChangeInfo{
		Kind:        models.ChangeKindTracked,
		ChangeSetID: uuid.NewString(),
		Changes: []models.EntityChange{
			{EntityType: "commit", Action: models.ActionUndo, EntityID: commitHash},
		},
	}
}

// NewRollback builds the change description attached to a commit that
// collapses history back to an earlier commit.
func NewRollback(commitHash string) *models.ChangeInfo {
	return &models.ChangeInfo{
		Kind:        models.ChangeKindTracked,
		ChangeSetID: uuid.NewString(),
		Changes: []models.EntityChange{
			{EntityType: "commit", Action: models.ActionRollback, EntityID: commitHash},
		},
	}
}

// FormatMessage renders a change description as a commit message:
// a human-readable subject followed by the change trailers.
func FormatMessage(info *models.ChangeInfo) string {
	if info.IsUntracked() {
		return "Untracked change"
	}

	var b strings.Builder
	b.WriteString(subject(info))
	b.WriteString("\n\n")
	if info.ChangeSetID != "" {
		fmt.Fprintf(&b, "%s%s\n", changeSetTrailer, info.ChangeSetID)
	}
	for _, ec := range info.Changes {
		b.WriteString(changeTrailer)
		b.WriteString(ec.EntityType)
		b.WriteString("/")
		b.WriteString(ec.Action)
		b.WriteString("/")
		b.WriteString(ec.EntityID)
		if ec.ParentID != "" {
			b.WriteString("/")
			b.WriteString(ec.ParentID)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func subject(info *models.ChangeInfo) string {
	first := info.Changes[0]
	switch first.Action {
	case models.ActionUndo:
		return fmt.Sprintf("Undo change %s", shortHash(first.EntityID))
	case models.ActionRollback:
		return fmt.Sprintf("Roll back to %s", shortHash(first.EntityID))
	default:
		if len(info.Changes) == 1 {
			return fmt.Sprintf("%s %s %s", capitalize(first.Action), first.EntityType, first.EntityID)
		}
		return fmt.Sprintf("Change %d entities", len(info.Changes))
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func shortHash(hash string) string {
	if len(hash) > 10 {
		return hash[:10]
	}
	return hash
}
