package merge

import (
	"sync"

	"github.com/indexwerk/mergesearch/client"
	"github.com/indexwerk/mergesearch/pzcfg"
)

// ClusterLimitFunc decides whether a cluster survives a facet-limit filter,
// the session_check_cluster_limit predicate Limit applies, per spec.md §4.B.
type ClusterLimitFunc func(c *Cluster) bool

// Reclist holds the cluster population of one session: a hash table of
// buckets, a re-materializable sorted list with a read cursor, and the
// chronological all-records list, all guarded by one mutex, per spec.md
// §3/§4.B.
type Reclist struct {
	mu sync.Mutex

	svc *pzcfg.Service

	buckets [hashSize][]*Cluster
	byKey   map[string]*Cluster // the same clusters indexed by key; Insert looks clusters up here and never scans buckets
	order   []*Cluster          // insertion order, used by Limit's "walk the hash table" pass for deterministic iteration

	sortedList []*Cluster
	sortedPos  int

	allRecords    []*Record // newest first
	allIngestedNum int

	numRecords int

	arena *Arena
}

// NewReclist creates an empty reclist backed by arena, per spec.md §4.B
// create(arena).
func NewReclist(svc *pzcfg.Service, arena *Arena) *Reclist {
	return &Reclist{svc: svc, arena: arena, byKey: make(map[string]*Cluster)}
}

// Insert computes mergeKey's bucket; if an existing cluster there shares
// mergeKey, it checks for a duplicate (client, compare-equal) record and
// either discards the incoming record (returns nil) or prepends it. If no
// cluster matches, one is created. total is incremented only when a brand
// new cluster is created, per spec.md §4.B.
func (rl *Reclist) Insert(origin client.Client, rec *Record, mergeKey string, total *int) *Cluster {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if c, ok := rl.byKey[mergeKey]; ok {
		for _, existing := range c.Records {
			if CompareEqual(existing, rec, rl.svc) {
				return nil
			}
		}
		c.Records = append([]*Record{rec}, c.Records...)
		return c
	}

	c := rl.arena.NewCluster(mergeKey, len(rl.svc.MetadataFields), len(rl.svc.SortKeys))
	c.Records = []*Record{rec}

	b := bucketFor(mergeKey)
	rl.buckets[b] = append(rl.buckets[b], c)
	rl.byKey[mergeKey] = c
	rl.order = append(rl.order, c)
	rl.numRecords++
	*total++
	return c
}

// Ingest deep-copies rec into the arena and prepends it to all_records,
// incrementing all_ingested_num, per spec.md §4.B.
func (rl *Reclist) Ingest(rec *Record) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	cp := rl.arena.CopyRecord(rec)
	rl.allRecords = append([]*Record{cp}, rl.allRecords...)
	rl.allIngestedNum++
}

// Limit rebuilds sortedList from the hash table, keeping only clusters
// accept reports true for, and sets numRecords to the emitted count, per
// spec.md §4.B.
func (rl *Reclist) Limit(accept ClusterLimitFunc) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	kept := make([]*Cluster, 0, len(rl.order))
	for _, c := range rl.order {
		if accept == nil || accept(c) {
			kept = append(kept, c)
		}
	}
	rl.sortedList = kept
	rl.numRecords = len(kept)
	rl.sortedPos = 0
}

// Sort materializes the current membership into a flat array and total-
// orders it by parms, preserving membership, per spec.md §4.B/§4.C.
func (rl *Reclist) Sort(parms *SortParms) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	flat := append([]*Cluster(nil), rl.sortedList...)
	sortClusters(flat, parms)
	rl.sortedList = flat
	rl.sortedPos = 0
}

// Enter locks the reclist and resets the read cursor to the head of
// whatever sort is current, per spec.md §4.B. Callers must pair every Enter
// with a Leave.
func (rl *Reclist) Enter() {
	rl.mu.Lock()
	rl.sortedPos = 0
}

// Leave unlocks the reclist.
func (rl *Reclist) Leave() {
	rl.mu.Unlock()
}

// ReadRecord returns the cluster under the cursor and advances it, or nil
// at end. Must be called between Enter and Leave.
func (rl *Reclist) ReadRecord() *Cluster {
	if rl.sortedPos >= len(rl.sortedList) {
		return nil
	}
	c := rl.sortedList[rl.sortedPos]
	rl.sortedPos++
	return c
}

// NumRecords returns the current emitted/materialized cluster count
// (post-Limit), for callers that already hold the lock or don't need a
// consistent snapshot.
func (rl *Reclist) NumRecords() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.numRecords
}

// AllIngestedNum returns the total number of records ever ingested into
// this reclist, irrespective of clustering/filtering.
func (rl *Reclist) AllIngestedNum() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return rl.allIngestedNum
}

// SortedLen returns len(sortedList) without needing Enter/Leave.
func (rl *Reclist) SortedLen() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.sortedList)
}

// Destroy releases buffers tied to the reclist. The arena, owned by the
// session, frees the rest on its own Reset/teardown, per spec.md §4.B and
// §9's open question about reclist_destroy not explicitly freeing hash
// chains: the bucket slices and byKey/order indexes are this struct's own
// memory, dropped here rather than left for the arena.
func (rl *Reclist) Destroy() {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for i := range rl.buckets {
		rl.buckets[i] = nil
	}
	rl.byKey = nil
	rl.order = nil
	rl.sortedList = nil
	rl.allRecords = nil
}
