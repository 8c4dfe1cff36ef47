package services

import (
	"regexp"
	"strings"

	"go.uber.org/zap"

	"github.com/mirrorpress/engine/pkg/schema"
)

// Classifier maps the file paths touched by a commit to the entity
// types whose mirror tables need resynchronization, and extracts the
// identities of affected posts.
type Classifier interface {
	// DetectEntitiesToSynchronize returns the entity types affected by
	// the given paths. Order-independent, duplicate-free; callers may
	// treat it as a work list.
	DetectEntitiesToSynchronize(modifiedFiles []string) []string

	// GetAffectedPosts returns the identities of posts whose files
	// appear in the given paths. Non-matching paths are ignored.
	GetAffectedPosts(modifiedFiles []string) []string
}

// syncRule adds entity types when its pattern appears in any path.
type syncRule struct {
	pattern     string
	entityTypes []string
}

type classifier struct {
	rules       []syncRule
	postPattern *regexp.Regexp
	logger      *zap.Logger
}

// NewClassifier creates a Classifier with the fixed storage-path rule
// table.
func NewClassifier(logger *zap.Logger) Classifier {
	return &classifier{
		rules: []syncRule{
			{pattern: schema.Plural("post"), entityTypes: []string{"post", "postmeta"}},
			// Comment counts are denormalized onto posts, so comment
			// changes resync posts too.
			{pattern: schema.Plural("comment"), entityTypes: []string{"comment", "post"}},
			{pattern: "users.ini", entityTypes: []string{"user", "usermeta"}},
			{pattern: "terms.ini", entityTypes: []string{"term", "term_taxonomy"}},
			{pattern: "options.ini", entityTypes: []string{"option"}},
		},
		postPattern: regexp.MustCompile(`(?:^|/)` + schema.Plural("post") + `/[^/]+/([^/]+)\.ini$`),
		logger:      logger.Named("classifier"),
	}
}

var _ Classifier = (*classifier)(nil)

func (c *classifier) DetectEntitiesToSynchronize(modifiedFiles []string) []string {
	seen := make(map[string]bool)
	var entityTypes []string

	for _, rule := range c.rules {
		if !anyPathContains(modifiedFiles, rule.pattern) {
			continue
		}
		for _, entityType := range rule.entityTypes {
			if !seen[entityType] {
				seen[entityType] = true
				entityTypes = append(entityTypes, entityType)
			}
		}
	}

	if len(entityTypes) > 0 {
		c.logger.Debug("Detected entities to synchronize",
			zap.Strings("entity_types", entityTypes),
			zap.Int("modified_files", len(modifiedFiles)))
	}
	return entityTypes
}

func (c *classifier) GetAffectedPosts(modifiedFiles []string) []string {
	var posts []string
	for _, path := range modifiedFiles {
		if m := c.postPattern.FindStringSubmatch(path); m != nil {
			posts = append(posts, m[1])
		}
	}
	return posts
}

func anyPathContains(paths []string, pattern string) bool {
	for _, p := range paths {
		if strings.Contains(p, pattern) {
			return true
		}
	}
	return false
}
