package schema

import "github.com/jinzhu/inflection"

func init() {
	// Meta entity types keep their name in paths and table names.
	inflection.AddUncountable("postmeta", "usermeta", "commentmeta", "termmeta")
}

// Plural returns the pluralized storage segment for an entity type,
// shared by file paths ("post" -> "posts/") and mirror table names
// ("term_taxonomy" -> "term_taxonomies").
func Plural(entityType string) string {
	return inflection.Plural(entityType)
}
