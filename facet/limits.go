package facet

import (
	"strings"

	"github.com/indexwerk/mergesearch/pzerr"
)

// LimitEntry is one parsed (name, value) pair from a user limit string.
type LimitEntry struct {
	Name  string
	Value string
}

// Limits is the user's current facet-based filter, built fresh for each
// search from the "limit" request parameter, per spec.md §4.F step 2.
// Grammar: a comma-separated list of "name=value" pairs; a name may repeat
// to express multiple acceptable values for the same field (an OR within
// the field, an AND across distinct field names - spec.md §4.E.2's
// check_limit_local uses the same per-field-OR/across-field-AND shape for
// client-reported local limits).
type Limits struct {
	entries []LimitEntry
}

// NewLimits parses s, returning a MalformedParameterValue{addinfo:"limit"}
// error on a malformed entry, per spec.md §4.F/§7.
func NewLimits(s string) (*Limits, error) {
	l := &Limits{}
	if strings.TrimSpace(s) == "" {
		return l, nil
	}
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		idx := strings.IndexByte(item, '=')
		if idx <= 0 || idx == len(item)-1 {
			return nil, pzerr.New(pzerr.KindMalformedParameterValue, "limit")
		}
		l.entries = append(l.entries, LimitEntry{Name: item[:idx], Value: item[idx+1:]})
	}
	return l, nil
}

// Get returns the i'th (name, value) pair, per spec.md §6's
// FacetLimits.get(i).
func (l *Limits) Get(i int) (name, value string, ok bool) {
	if l == nil || i < 0 || i >= len(l.entries) {
		return "", "", false
	}
	e := l.entries[i]
	return e.Name, e.Value, true
}

// Len reports the number of parsed entries.
func (l *Limits) Len() int {
	if l == nil {
		return 0
	}
	return len(l.entries)
}

// ValuesFor returns every value configured for name (the OR set a single
// field's repeated entries express).
func (l *Limits) ValuesFor(name string) []string {
	if l == nil {
		return nil
	}
	var vs []string
	for _, e := range l.entries {
		if e.Name == name {
			vs = append(vs, e.Value)
		}
	}
	return vs
}

// Names returns the distinct field names this limit constrains.
func (l *Limits) Names() []string {
	if l == nil {
		return nil
	}
	seen := map[string]bool{}
	var names []string
	for _, e := range l.entries {
		if !seen[e.Name] {
			seen[e.Name] = true
			names = append(names, e.Name)
		}
	}
	return names
}

// Destroy is a no-op kept for symmetry with spec.md §6's
// FacetLimits.destroy; Go's GC reclaims Limits once unreferenced.
func (l *Limits) Destroy() {}
