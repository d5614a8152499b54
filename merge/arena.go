package merge

import "github.com/indexwerk/mergesearch/client"

// Arena is the per-session owning store for clusters and records. spec.md
// §9's design note replaces the source's bump allocator and intrusive
// pointer graph with an owning-vector arena: handles here are ordinary Go
// pointers into slices the Arena itself owns, and Reset drops those slices
// wholesale (O(1) from the caller's perspective - the backing arrays become
// garbage rather than being walked and freed node by node), which is the
// property session_clear_set depends on.
type Arena struct {
	records  []*Record
	clusters []*Cluster
}

// NewArena allocates an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// NewRecord allocates and arena-owns a Record with nmeta empty metadata
// chains, per spec.md §6's Record.create(arena, nmeta, nsort, client,
// position) contract (nsort belongs to the cluster, not the record).
func (a *Arena) NewRecord(origin client.Client, position int, nmeta int) *Record {
	r := NewRecord(origin, position, nmeta)
	a.records = append(a.records, r)
	return r
}

// CopyRecord arena-owns a deep copy of r, per Record.copy(arena).
func (a *Arena) CopyRecord(r *Record) *Record {
	cp := r.Copy()
	a.records = append(a.records, cp)
	return cp
}

// NewCluster allocates and arena-owns a Cluster.
func (a *Arena) NewCluster(mergeKey string, nmeta, nsort int) *Cluster {
	c := NewCluster(mergeKey, nmeta, nsort)
	a.clusters = append(a.clusters, c)
	return c
}

// Reset drops every record and cluster the arena owns, in O(1) from the
// caller's perspective. The session calls this from session_clear_set.
func (a *Arena) Reset() {
	a.records = nil
	a.clusters = nil
}

// NumRecords and NumClusters report the arena's current live counts, used
// by tests.
func (a *Arena) NumRecords() int  { return len(a.records) }
func (a *Arena) NumClusters() int { return len(a.clusters) }
