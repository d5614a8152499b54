// Package pzcfg defines the immutable configuration surface (Service in
// spec.md §6) that shapes ingestion, clustering, sorting, and faceting for a
// session: metadata/sortkey definitions, facet-rule ids, and named charset
// token chains (no CCL maps; see CCLMap). This module never loads configuration from disk or
// any other source - callers assemble a Service and hand it to
// session.New, per spec.md §1's non-goal on config-file loading.
package pzcfg

import "github.com/indexwerk/mergesearch/unitext"

// MetaKind is the tagged-union arm a metadata value takes, per spec.md §9.
type MetaKind int

const (
	MetaGeneric MetaKind = iota
	MetaYear
	MetaDate
)

// MergePolicy controls how new record values are folded into a cluster's
// per-field metadata slot, per spec.md §3.
type MergePolicy int

const (
	MergeUnique MergePolicy = iota
	MergeLongest
	MergeAll
	MergeRange
)

// MergeKeyPolicy controls whether and how a field participates in mergekey
// derivation, per spec.md §4.E.1.
type MergeKeyPolicy int

const (
	MergeKeyNo MergeKeyPolicy = iota
	MergeKeyOptional
	MergeKeyRequired
)

// SettingKind classifies a session-database setting for ingestion's
// argument-injection step, per spec.md §6.
type SettingKind int

const (
	SettingNone SettingKind = iota
	SettingParameter
	SettingPostproc
)

// Well-known session-database setting keys, per spec.md §6.
const (
	PZXSLT               = "pz:xslt"
	PZName               = "pz:name"
	PZRequestSyntax      = "pz:requestsyntax"
	PZRecordFilter       = "pz:recordfilter"
	PZTermlistTermFactor = "pz:termlist_term_factor"
	PZAllow              = "pz:allow"
)

// CharsetChain names a tokenizer configuration (locale + break kind) used
// for a specific normalization purpose ("mergekey", "sort", "facet", or a
// field's FacetRuleID).
type CharsetChain struct {
	Locale string
	Break  unitext.BreakKind
}

// MetadataField is one configured metadata slot, addressed by Index in
// Cluster.Metadata / Record.Metadata.
type MetadataField struct {
	Name         string
	Index        int
	Kind         MetaKind
	Merge        MergePolicy
	MergeKey     MergeKeyPolicy
	DefaultRank  int
	SettingKind  SettingKind // parameter|postproc|none - the kind of a per-field injected setting, if any
	FacetRuleID  string      // "" means the default "facet" chain
	Termlist     bool        // participates in facet accumulation
	SortKeyIndex int         // -1 if this field has no associated sortkey slot
	SkipArticle  bool        // drop a leading a/an/the token when regenerating this field's sortkey
}

// SortKeyDef is one configured sort-key slot.
type SortKeyDef struct {
	Name  string
	Index int
}

// CCLMap resolves a user query string into a target-specific query. It is
// consumed, not implemented, by this module (spec.md §6). Service holds no
// CCLMap and nothing in this module calls one: session_search hands the raw
// query text to each Client's ParseQuery.
type CCLMap interface {
	ParseQuery(query string) (string, error)
}

// Service is the immutable configuration shared by all sessions of one
// running instance.
type Service struct {
	MetadataFields []MetadataField
	SortKeys       []SortKeyDef
	Chains         map[string]CharsetChain

	metaByName    map[string]*MetadataField
	sortKeyByName map[string]int
}

// NewService builds a Service and its name-lookup indexes. Callers should
// treat the returned Service as immutable thereafter.
func NewService(fields []MetadataField, sortKeys []SortKeyDef, chains map[string]CharsetChain) *Service {
	s := &Service{MetadataFields: fields, SortKeys: sortKeys, Chains: chains}
	s.metaByName = make(map[string]*MetadataField, len(fields))
	for i := range s.MetadataFields {
		s.metaByName[s.MetadataFields[i].Name] = &s.MetadataFields[i]
	}
	s.sortKeyByName = make(map[string]int, len(sortKeys))
	for _, sk := range sortKeys {
		s.sortKeyByName[sk.Name] = sk.Index
	}
	if s.Chains == nil {
		s.Chains = map[string]CharsetChain{}
	}
	return s
}

// FieldByName resolves a metadata type name to its definition, or nil.
func (s *Service) FieldByName(name string) *MetadataField {
	return s.metaByName[name]
}

// SortKeyIndexByName resolves a configured sortkey name to its slot index,
// or -1.
func (s *Service) SortKeyIndexByName(name string) int {
	if idx, ok := s.sortKeyByName[name]; ok {
		return idx
	}
	return -1
}

// Chain resolves a named charset chain, falling back to a plain
// word-breaking, Und-locale chain when name is unconfigured - matches the
// teacher's "never hard-fail on missing config" stance for tokenization.
func (s *Service) Chain(name string) CharsetChain {
	if c, ok := s.Chains[name]; ok {
		return c
	}
	return CharsetChain{Locale: "und", Break: unitext.BreakWord}
}

// FacetChainFor returns the charset chain to use when normalizing values of
// field for faceting: its configured FacetRuleID, or the default "facet"
// chain.
func (s *Service) FacetChainFor(field *MetadataField) CharsetChain {
	id := field.FacetRuleID
	if id == "" {
		id = "facet"
	}
	return s.Chain(id)
}
