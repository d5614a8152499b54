package session

import (
	"strconv"

	"github.com/indexwerk/mergesearch/merge"
	"github.com/indexwerk/mergesearch/pzcfg"
)

// clusterLimitFunc builds the session_check_cluster_limit predicate
// reclist.Limit applies, from the session's current user facet limits, per
// spec.md §4.B/§4.F step 2. A nil or empty facetLimits accepts everything.
// Caller must hold se.mu.
func (se *Session) clusterLimitFunc() merge.ClusterLimitFunc {
	fl := se.facetLimits
	if fl == nil || fl.Len() == 0 {
		return nil
	}
	names := fl.Names()
	return func(c *merge.Cluster) bool {
		for _, name := range names {
			if !clusterMatchesAny(c, se.svc, name, fl.ValuesFor(name)) {
				return false
			}
		}
		return true
	}
}

// clusterMatchesAny reports whether any configured metadata field matching
// name (or every field, when name is "*") holds a value equal to one of
// values, per spec.md §6's FacetLimits contract.
func clusterMatchesAny(c *merge.Cluster, svc *pzcfg.Service, name string, values []string) bool {
	for i := range svc.MetadataFields {
		f := &svc.MetadataFields[i]
		if name != "*" && f.Name != name {
			continue
		}
		for _, mv := range c.Metadata[f.Index].Values {
			for _, want := range values {
				if fieldMatchesLimitValue(f, mv, want) {
					return true
				}
			}
		}
	}
	return false
}

// fieldMatchesLimitValue mirrors ingest.fieldMatchesLimit's grammar: year/
// date fields match when want parses as an int within [mv.Min, mv.Max];
// other fields compare display text for equality.
func fieldMatchesLimitValue(f *pzcfg.MetadataField, mv pzcfg.MetaValue, want string) bool {
	if f.Kind == pzcfg.MetaYear || f.Kind == pzcfg.MetaDate {
		n, err := strconv.Atoi(want)
		if err != nil {
			return false
		}
		return n >= mv.Min && n <= mv.Max
	}
	return mv.Disp == want
}
