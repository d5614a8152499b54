// Package relevance defines the three-point Relevance interface spec.md §6
// consumes (the scoring algorithm's internals are explicitly out of scope)
// and a simple term-frequency reference implementation so the ingestion
// pipeline is exercisable end to end without a mock standing in for every
// test.
package relevance

import (
	"strings"
	"sync"

	"github.com/indexwerk/mergesearch/merge"
)

// Relevance is the consumed interface, per spec.md §6.
type Relevance interface {
	NewRec(c *merge.Cluster)
	CountWords(c *merge.Cluster, text string, rank int, field string)
	DoneRecord(c *merge.Cluster)
	PrepareRead(rl *merge.Reclist)
}

// TermFrequency is a small reference Relevance implementation: each
// cluster's score is the rank-weighted count of query terms seen across its
// ingested values. It is not meant to be a serious ranking function - it
// exists so SPEC_FULL.md's ingestion pipeline has a concrete, working
// collaborator for tests and cmd/pzsim rather than only an interface.
type TermFrequency struct {
	mu    sync.Mutex
	terms map[string]float64 // lowercased query term -> weight
}

// NewTermFrequency builds a scorer keyed on the given (already lowercased
// recommended) query terms, each with weight 1.0.
func NewTermFrequency(queryTerms []string) *TermFrequency {
	t := &TermFrequency{terms: make(map[string]float64, len(queryTerms))}
	for _, term := range queryTerms {
		t.terms[strings.ToLower(term)] = 1.0
	}
	return t
}

func (t *TermFrequency) NewRec(c *merge.Cluster) {
	// nothing to reset per spec.md's three-point contract: a cluster's
	// term_frequency_vec accumulates across all of its constituent records.
}

func (t *TermFrequency) CountWords(c *merge.Cluster, text string, rank int, field string) {
	if len(t.terms) == 0 {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9')
	})
	var add float64
	for _, w := range words {
		if weight, ok := t.terms[w]; ok {
			add += weight * float64(rank)
			c.TermFrequencyVec[w] += weight * float64(rank)
		}
	}
	c.RelevanceScore += add
}

func (t *TermFrequency) DoneRecord(c *merge.Cluster) {
	// score is already accumulated incrementally; nothing to finalize.
}

func (t *TermFrequency) PrepareRead(rl *merge.Reclist) {
	// the naive scorer needs no corpus-wide statistics (idf, doc length
	// normalization, ...); a real engine would recompute those here.
}
