package ingest

import (
	"strings"
	"sync"

	"github.com/beevik/etree"
	"github.com/golang/glog"

	"github.com/indexwerk/mergesearch/client"
	"github.com/indexwerk/mergesearch/facet"
	"github.com/indexwerk/mergesearch/merge"
	"github.com/indexwerk/mergesearch/pzcfg"
	"github.com/indexwerk/mergesearch/pzdb"
	"github.com/indexwerk/mergesearch/relevance"
)

// Outcome is ingest_record's three-value result, per spec.md §4.E.
type Outcome int

const (
	// Ingested means the record was parsed, normalized, and folded into a
	// cluster (new or existing).
	Ingested Outcome = iota
	// Dropped covers both a hard parse/transform failure and a
	// duplicate-in-cluster detection - both are "Err" in spec.md's vocabulary,
	// split here only by how the caller should log them.
	Dropped
	// Filtered means check_record_filter or check_limit_local rejected the
	// record; it is not an error.
	Filtered
)

func (o Outcome) String() string {
	switch o {
	case Ingested:
		return "Ingested"
	case Filtered:
		return "Filtered"
	default:
		return "Dropped"
	}
}

// Pipeline is one session's ingestion state: its Service, optional
// stylesheet cache, and the per-session "warn once" sets spec.md §7
// requires for unknown metadata types/elements. A session owns exactly one
// Pipeline for its lifetime.
type Pipeline struct {
	svc   *pzcfg.Service
	cache NormalizeCache

	mu         sync.Mutex
	warnedType map[string]bool
	warnedElem map[string]bool
}

// NewPipeline builds a Pipeline bound to svc; cache may be nil, meaning
// every record is ingested un-transformed.
func NewPipeline(svc *pzcfg.Service, cache NormalizeCache) *Pipeline {
	return &Pipeline{
		svc:        svc,
		cache:      cache,
		warnedType: make(map[string]bool),
		warnedElem: make(map[string]bool),
	}
}

// RecordContext is the per-record collaborators and parameters IngestRecord
// needs, supplied by the session package. StillBound and the eventual
// cluster-insertion both run under the session lock the caller already
// holds, per spec.md §4.E step 6 and §5's lock-order note.
type RecordContext struct {
	Client   client.Client
	ClientID string
	RecordNo int
	MaxRecs  int // the search's requested maxrecs, for term_factor

	DB      *pzdb.SessionDatabase
	Reclist *merge.Reclist
	Arena   *merge.Arena

	Relevance relevance.Relevance

	// Termlists looks up (creating on first use, bounded by
	// SESSION_MAX_TERMLISTS) the termlist for a facet type name.
	Termlists func(name string) *facet.Termlist

	// StillBound reports whether Client is still bound to the session that
	// issued this ingest, the client_get_session(cl) == se race check.
	StillBound func() bool
}

// IngestRecord runs the full pipeline on one target record, per spec.md
// §4.E. The caller must already hold the session lock before calling this
// (steps 1-5 run instantaneously in-process; step 6's race check and the
// cluster-insertion critical section require it).
func (p *Pipeline) IngestRecord(ctx *RecordContext, recXMLText string) Outcome {
	doc, err := parseXML(recXMLText)
	if err != nil {
		glog.Warningf("ingest: %v", err)
		return Dropped
	}
	root := doc.Root()

	if stylesheetRef := ctx.DB.PrepareMap(); stylesheetRef != "" && p.cache != nil {
		if sm, ok := p.cache.Get(stylesheetRef); ok {
			args := ctx.DB.XSLTArgs(p.svc.MetadataFields)
			if transformed, terr := sm.Transform(doc, args); terr != nil {
				glog.Warningf("ingest: transform %q failed, proceeding untransformed: %v", stylesheetRef, terr)
			} else if transformed != nil {
				doc = transformed
				root = doc.Root()
			}
		}
	}

	injectPostproc(root, p.svc.MetadataFields, ctx.DB)

	if filterSetting := ctx.DB.Setting(pzcfg.PZRecordFilter); filterSetting != "" {
		if !checkRecordFilter(root, filterSetting) {
			return Filtered
		}
	}

	mergeKey := p.deriveMergeKey(root, ctx.ClientID, ctx.RecordNo)

	if ctx.StillBound != nil && !ctx.StillBound() {
		glog.V(1).Infof("ingest: client %s detached before cluster ingest, dropping record", ctx.ClientID)
		return Dropped
	}

	return p.clusterIngest(ctx, root, mergeKey)
}

// clusterIngest is spec.md §4.E.2: build the record's per-field metadata,
// check local facet limits, insert into the reclist, then fold the same
// metadata into the cluster (merge policy, sortkeys, relevance, facets).
func (p *Pipeline) clusterIngest(ctx *RecordContext, root *etree.Element, mergeKey string) Outcome {
	recMeta := p.buildRecordMetadata(root)

	if !checkLimitLocal(recMeta, p.svc.MetadataFields, ctx.Client) {
		return Filtered
	}

	rec := ctx.Arena.NewRecord(ctx.Client, ctx.RecordNo, len(p.svc.MetadataFields))
	rec.Meta = recMeta

	var totalDelta int
	cluster := ctx.Reclist.Insert(ctx.Client, rec, mergeKey, &totalDelta)
	if cluster == nil {
		return Dropped
	}
	ctx.Reclist.Ingest(rec)

	termFactor := p.termFactor(ctx)

	if ctx.Relevance != nil {
		ctx.Relevance.NewRec(cluster)
	}

	for _, el := range root.ChildElements() {
		if el.Tag != "metadata" {
			continue
		}
		f := p.svc.FieldByName(el.SelectAttrValue("type", ""))
		if f == nil {
			continue // already warned in pass 1
		}
		rawText := el.Text()
		v, ok := buildMetaValue(f, el, false)
		if !ok {
			continue
		}

		changed := cluster.ApplyMerge(f, v)
		if changed && f.SortKeyIndex >= 0 {
			p.syncSortKey(cluster, f, v)
		}

		if ctx.Relevance != nil {
			ctx.Relevance.CountWords(cluster, rawText, v.Rank, f.Name)
		}

		if f.Termlist && !ctx.Client.HasFacet(f.Name) {
			p.accumulateFacet(ctx, f, v, termFactor)
		}
	}

	if ctx.Relevance != nil {
		ctx.Relevance.DoneRecord(cluster)
	}

	return Ingested
}

// syncSortKey keeps cluster.SortKeys[f.SortKeyIndex] consistent with the
// just-applied merge: longest-merge regenerates a tokenized sort form (with
// the source's skiparticle first-token rule); range-merge mirrors the
// widened (min,max) directly.
func (p *Pipeline) syncSortKey(cluster *merge.Cluster, f *pzcfg.MetadataField, v pzcfg.MetaValue) {
	switch f.Merge {
	case pzcfg.MergeLongest:
		p.regenerateSortKey(cluster, f, v)
	case pzcfg.MergeRange:
		slot := cluster.Metadata[f.Index]
		if len(slot.Values) == 0 {
			return
		}
		mv := slot.Values[0]
		cluster.SortKeys[f.SortKeyIndex] = merge.SortSlot{Min: mv.Min, Max: mv.Max, HasNumber: true}
	}
}

// regenerateSortKey implements spec.md §4.E.2's longest-merge sort-key
// regeneration: tokenize the new longest display through the "sort" chain,
// optionally dropping a leading article, falling back to the raw display
// text if tokenization yields nothing.
func (p *Pipeline) regenerateSortKey(cluster *merge.Cluster, f *pzcfg.MetadataField, v pzcfg.MetaValue) {
	chain := p.svc.Chain("sort")
	toks := tokenize(chain, v.Disp)
	if f.SkipArticle && len(toks) > 1 && isArticle(toks[0]) {
		toks = toks[1:]
	}
	text := strings.Join(toks, " ")
	if text == "" {
		glog.Warningf("ingest: sort chain produced no form for field %q, falling back to display text", f.Name)
		text = v.Disp
	}
	cluster.SortKeys[f.SortKeyIndex] = merge.SortSlot{Text: text, HasText: true}
}

func isArticle(s string) bool {
	switch strings.ToLower(s) {
	case "a", "an", "the":
		return true
	default:
		return false
	}
}

// termFactor implements spec.md §4.E.2's PZ_TERMLIST_TERM_FACTOR formula:
// max(hits, maxrecs) / max(1, maxrecs), never below 1; it is exactly 1 when
// the setting is off.
func (p *Pipeline) termFactor(ctx *RecordContext) float64 {
	if ctx.DB.Setting(pzcfg.PZTermlistTermFactor) != "1" {
		return 1
	}
	hits := float64(ctx.Client.Hits())
	maxrecs := float64(ctx.MaxRecs)
	denom := maxrecs
	if denom < 1 {
		denom = 1
	}
	num := hits
	if maxrecs > num {
		num = maxrecs
	}
	factor := num / denom
	if factor < 1 {
		factor = 1
	}
	return factor
}

func (p *Pipeline) warnUnknownType(name string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.warnedType[name] {
		return
	}
	p.warnedType[name] = true
	glog.Warningf("ingest: unknown metadata type %q, ignoring", name)
}

func (p *Pipeline) warnUnknownElement(tag string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.warnedElem[tag] {
		return
	}
	p.warnedElem[tag] = true
	glog.Warningf("ingest: unknown element %q under record root, ignoring", tag)
}
