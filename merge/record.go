// Package merge implements the record-list: the hash-indexed, sorted,
// thread-safe multiset of clusters (spec.md §4.B), the cluster and record
// types it stores (spec.md §3), and the sort-parameter parser/comparator
// that gives clusters a total order (spec.md §4.C).
package merge

import (
	"reflect"

	"github.com/indexwerk/mergesearch/client"
	"github.com/indexwerk/mergesearch/pzcfg"
)

// Record is a single document ingested from one target at a position,
// per spec.md §3. Records are owned by the session arena and appear both on
// the session's chronological all-records list and in the records chain of
// the cluster they belong to.
type Record struct {
	Origin   client.Client
	Position int // 1-based
	Meta     [][]pzcfg.MetaValue // one chain per configured metadata field

	next *Record // unused: Reclist.allRecords is a slice and does not link through this field
}

// NewRecord allocates a Record with nmeta metadata chains, all empty.
func NewRecord(origin client.Client, position int, nmeta int) *Record {
	return &Record{Origin: origin, Position: position, Meta: make([][]pzcfg.MetaValue, nmeta)}
}

// Copy deep-copies r (used by Reclist.Ingest, which prepends a copy onto the
// session's chronological all_records list independent of the record the
// cluster chain references).
func (r *Record) Copy() *Record {
	cp := &Record{Origin: r.Origin, Position: r.Position, Meta: make([][]pzcfg.MetaValue, len(r.Meta))}
	for i, chain := range r.Meta {
		cp.Meta[i] = append([]pzcfg.MetaValue(nil), chain...)
	}
	return cp
}

// CompareEqual reports whether a and b are the duplicate-detection-equal
// pair spec.md §4.B's insert and §8 property 5 call for: same originating
// client and field-for-field identical metadata content. svc is accepted
// for interface symmetry with the "compare(a, b, service)" contract spec.md
// §6 names for Record, though this reference implementation does not need
// per-field comparison rules beyond structural equality.
func CompareEqual(a, b *Record, svc *pzcfg.Service) bool {
	_ = svc
	if a.Origin != b.Origin {
		return false
	}
	if len(a.Meta) != len(b.Meta) {
		return false
	}
	for i := range a.Meta {
		if !reflect.DeepEqual(a.Meta[i], b.Meta[i]) {
			return false
		}
	}
	return true
}
