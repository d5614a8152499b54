package merge

import (
	"sort"
	"strings"

	"github.com/indexwerk/mergesearch/pzcfg"
	"github.com/indexwerk/mergesearch/pzerr"
)

// SortKeyKind is the resolved type of one sort-chain item, per spec.md §4.C.
// SkipArticle is coerced to String at parse time and never appears in a
// parsed chain.
type SortKeyKind int

const (
	SortRelevance SortKeyKind = iota
	SortString
	SortNumeric
	SortPosition
)

// SortItem is one (name, type, increasing, offset) entry, per spec.md §3.
type SortItem struct {
	Name       string
	Type       SortKeyKind
	Increasing bool
	Offset     int // the slot index into Cluster.SortKeys, when Type needs one
}

// SortParms is the parsed, ordered chain spec.md §4.C's parse produces.
type SortParms struct {
	Items []SortItem
	raw   string
}

// Raw returns the original comma-separated string this chain was parsed
// from, which session_search hands to each client's ParseSort.
func (p *SortParms) Raw() string { return p.raw }

// maxSortParmsLen is spec.md §6's length bound ("total length <= 255"); the
// source's check is ">= 256 triggers rejection".
const maxSortParmsLen = 255

// ParseSortParms parses a comma-separated "name[:direction[p]]" list against
// svc, per spec.md §4.C/§6.
func ParseSortParms(s string, svc *pzcfg.Service) (*SortParms, error) {
	if len(s) > maxSortParmsLen {
		return nil, errMalformed("sort parameter string too long")
	}
	out := &SortParms{raw: s}
	if s == "" {
		return out, nil
	}
	for _, item := range strings.Split(s, ",") {
		it, err := parseSortItem(item, svc)
		if err != nil {
			return nil, err
		}
		out.Items = append(out.Items, it)
	}
	return out, nil
}

func parseSortItem(item string, svc *pzcfg.Service) (SortItem, error) {
	name := item
	increasing := false
	asPosition := false

	if idx := strings.IndexByte(item, ':'); idx >= 0 {
		name = item[:idx]
		rest := item[idx+1:]
		if rest == "" {
			return SortItem{}, errMalformed("empty direction after ':'")
		}
		switch rest[0] {
		case '0':
			increasing = false
		case '1':
			increasing = true
		default:
			return SortItem{}, errMalformed("direction must be 0 or 1")
		}
		if len(rest) > 1 {
			if rest[1] != 'p' {
				return SortItem{}, errMalformed("unexpected sort parameter suffix")
			}
			asPosition = true
		}
	}

	switch {
	case name == "relevance":
		return SortItem{Name: name, Type: SortRelevance, Increasing: increasing}, nil
	case name == "position" || asPosition:
		return SortItem{Name: name, Type: SortPosition, Increasing: true}, nil
	}

	if sk := svc.FieldByName(name); sk != nil {
		if sk.SortKeyIndex < 0 {
			return SortItem{}, errMalformed("sort key has no sortkey slot: " + name)
		}
		return SortItem{Name: name, Type: sortKindForField(svc, sk), Increasing: increasing, Offset: sk.SortKeyIndex}, nil
	}

	return SortItem{}, errMalformed("unknown sort key: " + name)
}

func sortKindForField(svc *pzcfg.Service, field *pzcfg.MetadataField) SortKeyKind {
	if field.Kind == pzcfg.MetaYear || field.Kind == pzcfg.MetaDate {
		return SortNumeric
	}
	return SortString
}

func errMalformed(msg string) error {
	return pzerr.New(pzerr.KindMalformedParameterValue, msg)
}

// Cmp reports whether p and q are the "equal" sort chains session_sort's
// no-op check needs: identical pointers, or identical name/increasing/type
// sequences, per spec.md §4.C's sortparms_cmp.
func (p *SortParms) Cmp(q *SortParms) bool {
	if p == q {
		return true
	}
	if p == nil || q == nil {
		return false
	}
	if len(p.Items) != len(q.Items) {
		return false
	}
	for i := range p.Items {
		a, b := p.Items[i], q.Items[i]
		if a.Name != b.Name || a.Increasing != b.Increasing || a.Type != b.Type {
			return false
		}
	}
	return true
}

// Compare implements the total order spec.md §4.C describes: fold over the
// chain, first non-zero result wins, tie-break on RecID.
func Compare(a, b *Cluster, parms *SortParms) int {
	if parms != nil {
		for _, item := range parms.Items {
			if c := compareItem(a, b, item); c != 0 {
				return c
			}
		}
	}
	return strings.Compare(a.RecID, b.RecID)
}

func compareItem(a, b *Cluster, item SortItem) int {
	switch item.Type {
	case SortRelevance:
		switch {
		case b.RelevanceScore > a.RelevanceScore:
			return 1
		case b.RelevanceScore < a.RelevanceScore:
			return -1
		default:
			return 0
		}
	case SortString:
		sa, sb := sortSlotText(a, item.Offset), sortSlotText(b, item.Offset)
		c := strings.Compare(sa, sb)
		if item.Increasing {
			return c
		}
		return -c
	case SortNumeric:
		return compareNumeric(a, b, item)
	case SortPosition:
		return compareInts(a.MinPosition(), b.MinPosition())
	default:
		return 0
	}
}

func sortSlotText(c *Cluster, idx int) string {
	if idx < 0 || idx >= len(c.SortKeys) {
		return ""
	}
	return c.SortKeys[idx].Text
}

func compareNumeric(a, b *Cluster, item SortItem) int {
	sa, sb := numSlot(a, item.Offset), numSlot(b, item.Offset)
	var va, vb int
	if item.Increasing {
		va, vb = sa.Min, sb.Min
	} else {
		va, vb = sa.Max, sb.Max
	}
	switch {
	case sa.HasNumber && sb.HasNumber:
		return compareInts(va, vb)
	case sa.HasNumber && !sb.HasNumber:
		return -1
	case !sa.HasNumber && sb.HasNumber:
		return 1
	default:
		return 0
	}
}

func numSlot(c *Cluster, idx int) SortSlot {
	if idx < 0 || idx >= len(c.SortKeys) {
		return SortSlot{}
	}
	return c.SortKeys[idx]
}

func compareInts(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// HasRelevanceStep reports whether parms includes a relevance item, the
// condition show_range_start uses to decide whether relevance.PrepareRead
// must run before sorting, per spec.md §4.G.
func (p *SortParms) HasRelevanceStep() bool {
	if p == nil {
		return false
	}
	for _, it := range p.Items {
		if it.Type == SortRelevance {
			return true
		}
	}
	return false
}

// sortClusters total-orders flat by parms using Go's stable sort so the
// tie-break on RecID (spec.md §8 property 6/7) gives deterministic,
// reproducible output across repeated calls on an unchanged population.
func sortClusters(flat []*Cluster, parms *SortParms) {
	sort.SliceStable(flat, func(i, j int) bool {
		return Compare(flat[i], flat[j], parms) < 0
	})
}
