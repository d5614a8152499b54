package merge

import "github.com/indexwerk/mergesearch/pzcfg"

// MetaSlot is a cluster's per-field metadata, a set of values shaped by the
// field's configured MergePolicy (unique/longest/all keep possibly-many
// values; range keeps exactly one widening value), per spec.md §3.
type MetaSlot struct {
	Values []pzcfg.MetaValue
}

// SortSlot is a cluster's per-sortkey precomputed value, populated when the
// associated metadata is merged, per spec.md §3/§4.E.2.
type SortSlot struct {
	Text      string
	HasText   bool
	Min, Max  int
	HasNumber bool
}

// Cluster is the merged view of all records sharing a mergekey within one
// session, per spec.md §3.
type Cluster struct {
	RecID    string // == MergeKey
	MergeKey string
	Records  []*Record

	Metadata []MetaSlot
	SortKeys []SortSlot

	RelevanceScore    float64
	TermFrequencyVec  map[string]float64
	RelevanceExplain1 string
	RelevanceExplain2 string
}

// NewCluster allocates an empty cluster for mergeKey with nmeta metadata
// slots and nsort sortkey slots, all initialized empty/zero per spec.md §4.B
// insert's "initializes metadata and sortkey arrays to all-null".
func NewCluster(mergeKey string, nmeta, nsort int) *Cluster {
	return &Cluster{
		RecID:            mergeKey,
		MergeKey:         mergeKey,
		Metadata:         make([]MetaSlot, nmeta),
		SortKeys:         make([]SortSlot, nsort),
		TermFrequencyVec: make(map[string]float64),
	}
}

// MinPosition returns the minimum record Position across the cluster's
// records, the value the position sort type compares on, per spec.md §4.C.
func (c *Cluster) MinPosition() int {
	min := -1
	for _, r := range c.Records {
		if min == -1 || r.Position < min {
			min = r.Position
		}
	}
	if min == -1 {
		return 0
	}
	return min
}

// ApplyMerge folds value into field's metadata slot per its MergePolicy,
// per spec.md §3/§4.E.2. For MergeLongest, the caller is responsible for
// regenerating the sortkey slot (it needs the charset-chain tokenizer,
// which this package does not depend on) - ApplyMerge reports whether the
// stored "longest" value changed so the caller knows to regenerate.
func (c *Cluster) ApplyMerge(field *pzcfg.MetadataField, value pzcfg.MetaValue) (changed bool) {
	slot := &c.Metadata[field.Index]
	switch field.Merge {
	case pzcfg.MergeUnique:
		for _, v := range slot.Values {
			if v.Disp == value.Disp {
				return false
			}
		}
		slot.Values = append(slot.Values, value)
		return true
	case pzcfg.MergeAll:
		slot.Values = append(slot.Values, value)
		return true
	case pzcfg.MergeRange:
		if len(slot.Values) == 0 {
			slot.Values = []pzcfg.MetaValue{value}
		} else {
			slot.Values[0] = slot.Values[0].Widen(value)
		}
		return true
	case pzcfg.MergeLongest:
		if len(slot.Values) == 0 || len(value.Disp) > len(slot.Values[0].Disp) {
			slot.Values = []pzcfg.MetaValue{value}
			return true
		}
		return false
	default:
		return false
	}
}
