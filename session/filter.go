package session

import (
	"strings"

	"github.com/indexwerk/mergesearch/pzdb"
)

// Filter is a parsed select_targets filter expression: a set of database
// names to match, or the wildcard meaning every allowed database, per
// spec.md §4.F's Attach step ("matches databases against a filter
// expression"). The grammar mirrors the record-filter/facet-limit style
// used elsewhere in this module: a comma-separated list of names, "*" or
// "" meaning "every database".
type Filter struct {
	names map[string]bool
	all   bool
}

// ParseFilter parses s into a Filter. It never fails: an empty or "*"
// filter selects every allowed database, matching select_targets's
// permissive default when no filter is supplied.
func ParseFilter(s string) *Filter {
	s = strings.TrimSpace(s)
	if s == "" || s == "*" {
		return &Filter{all: true}
	}
	f := &Filter{names: make(map[string]bool)}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			f.names[part] = true
		}
	}
	return f
}

// Matches reports whether db is selected by f. A database gated off by
// PZ_ALLOW never matches, regardless of f, per SPEC_FULL.md §6.D.
func (f *Filter) Matches(db *pzdb.SessionDatabase) bool {
	if !db.Allowed {
		return false
	}
	if f == nil || f.all {
		return true
	}
	return f.names[db.Name()]
}
