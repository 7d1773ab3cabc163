// Package scope implements the glob-based include/exclude filtering
// rules that govern both introspection scope and sampling scope
// (spec.md §4.11): an analogous structure governs both, so one Matcher
// serves both configurations rather than duplicating the type.
package scope

import (
	"path/filepath"
	"strings"
)

// Matcher filters a set of names (schemas, or table names within a
// sampling scope) by glob rules:
//   - Empty Include means "universe" (everything passes); a non-empty
//     Include is an allowlist.
//   - Exclude removes matches from what Include allowed.
//   - Except re-admits names that Exclude would otherwise remove.
//   - Ignored is applied first and can never be re-admitted by Except.
type Matcher struct {
	Include []string
	Exclude []string
	Except  []string
	Ignored []string
}

// Allows reports whether name passes the scope's rules.
func (m Matcher) Allows(name string) bool {
	if matchesAny(m.Ignored, name) {
		return false
	}
	if len(m.Include) > 0 && !matchesAny(m.Include, name) {
		return false
	}
	if matchesAny(m.Exclude, name) && !matchesAny(m.Except, name) {
		return false
	}
	return true
}

// AllowsSchema is an alias for Allows, used when the Matcher governs
// introspection scope over schema names for readability at call sites.
func (m Matcher) AllowsSchema(schema string) bool { return m.Allows(schema) }

// AllowsTable is an alias for Allows, used when the Matcher governs
// sampling scope over table names.
func (m Matcher) AllowsTable(table string) bool { return m.Allows(table) }

// FilterCatalogs applies the matcher to a catalog -> []schema map,
// dropping schemas that don't pass and removing any catalog left with
// zero schemas.
func FilterCatalogs(catalogs map[string][]string, m Matcher) map[string][]string {
	out := make(map[string][]string, len(catalogs))
	for catalog, schemas := range catalogs {
		var kept []string
		for _, s := range schemas {
			if m.Allows(s) {
				kept = append(kept, s)
			}
		}
		if len(kept) > 0 {
			out[catalog] = kept
		}
	}
	return out
}

func matchesAny(patterns []string, name string) bool {
	lowerName := strings.ToLower(name)
	for _, p := range patterns {
		if ok, _ := filepath.Match(strings.ToLower(p), lowerName); ok {
			return true
		}
	}
	return false
}
