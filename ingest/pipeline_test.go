package ingest

import (
	"strings"
	"testing"

	"github.com/indexwerk/mergesearch/client"
	"github.com/indexwerk/mergesearch/facet"
	"github.com/indexwerk/mergesearch/merge"
	"github.com/indexwerk/mergesearch/pzcfg"
	"github.com/indexwerk/mergesearch/pzdb"
)

func testService() *pzcfg.Service {
	return pzcfg.NewService(
		[]pzcfg.MetadataField{
			{Name: "title", Index: 0, Kind: pzcfg.MetaGeneric, Merge: pzcfg.MergeLongest, MergeKey: pzcfg.MergeKeyOptional, SortKeyIndex: 0, Termlist: true},
			{Name: "date", Index: 1, Kind: pzcfg.MetaYear, Merge: pzcfg.MergeRange, MergeKey: pzcfg.MergeKeyNo, SortKeyIndex: 1, Termlist: true},
			{Name: "medium", Index: 2, Kind: pzcfg.MetaGeneric, Merge: pzcfg.MergeUnique, MergeKey: pzcfg.MergeKeyNo, SortKeyIndex: -1},
		},
		[]pzcfg.SortKeyDef{{Name: "title", Index: 0}, {Name: "date", Index: 1}},
		nil,
	)
}

type harness struct {
	svc     *pzcfg.Service
	arena   *merge.Arena
	reclist *merge.Reclist
	db      *pzdb.SessionDatabase
	pipe    *Pipeline
	tls     map[string]*facet.Termlist
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	svc := testService()
	arena := merge.NewArena()
	h := &harness{
		svc:     svc,
		arena:   arena,
		reclist: merge.NewReclist(svc, arena),
		db:      pzdb.NewSessionDatabase(&pzdb.TargetDef{ID: "lib1", Defaults: map[string]string{}}),
		pipe:    NewPipeline(svc, nil),
		tls:     map[string]*facet.Termlist{},
	}
	return h
}

func (h *harness) ctx(cl client.Client, clientID string, recordNo int) *RecordContext {
	return &RecordContext{
		Client:   cl,
		ClientID: clientID,
		RecordNo: recordNo,
		MaxRecs:  10,
		DB:       h.db,
		Reclist:  h.reclist,
		Arena:    h.arena,
		Termlists: func(name string) *facet.Termlist {
			if tl, ok := h.tls[name]; ok {
				return tl
			}
			tl := facet.NewTermlist(0)
			h.tls[name] = tl
			return tl
		},
		StillBound: func() bool { return true },
	}
}

func TestIngestRecord_MergeByTitleAcrossClients(t *testing.T) {
	h := newHarness(t)
	c1 := client.NewFakeClient("lib1")
	c2 := client.NewFakeClient("lib2")

	xml := `<record><metadata type="title">War and Peace</metadata></record>`

	if out := h.pipe.IngestRecord(h.ctx(c1, "lib1", 1), xml); out != Ingested {
		t.Fatalf("client1 ingest = %v, want Ingested", out)
	}
	if out := h.pipe.IngestRecord(h.ctx(c2, "lib2", 1), xml); out != Ingested {
		t.Fatalf("client2 ingest = %v, want Ingested", out)
	}

	if got := h.arena.NumClusters(); got != 1 {
		t.Fatalf("NumClusters = %d, want 1 (S2: merge by title)", got)
	}
	if got := h.reclist.NumRecords(); got != 1 {
		t.Fatalf("reclist NumRecords = %d, want 1", got)
	}
}

func TestIngestRecord_DuplicateFromSameClientSuppressed(t *testing.T) {
	h := newHarness(t)
	c1 := client.NewFakeClient("lib1")
	xml := `<record><metadata type="title">Anna Karenina</metadata></record>`

	if out := h.pipe.IngestRecord(h.ctx(c1, "lib1", 1), xml); out != Ingested {
		t.Fatalf("first ingest = %v, want Ingested", out)
	}
	if out := h.pipe.IngestRecord(h.ctx(c1, "lib1", 2), xml); out != Dropped {
		t.Fatalf("duplicate ingest = %v, want Dropped (S3)", out)
	}
	if got := h.arena.NumClusters(); got != 1 {
		t.Fatalf("NumClusters = %d, want 1", got)
	}
}

func TestIngestRecord_YearRangeAndFacet(t *testing.T) {
	h := newHarness(t)
	c1 := client.NewFakeClient("lib1")

	xml1 := `<record><metadata type="title">War and Peace</metadata><metadata type="date">1865</metadata></record>`
	xml2 := `<record><metadata type="title">War and Peace</metadata><metadata type="date">1869</metadata></record>`

	h.pipe.IngestRecord(h.ctx(c1, "lib1", 1), xml1)
	h.pipe.IngestRecord(h.ctx(c1, "lib1", 2), xml2)

	if h.arena.NumClusters() != 1 {
		t.Fatalf("expected a single cluster for the shared title")
	}
	// Walk the reclist to find the cluster and check its date range (S4).
	h.reclist.Limit(nil)
	h.reclist.Enter()
	c := h.reclist.ReadRecord()
	h.reclist.Leave()
	if c == nil {
		t.Fatal("expected one cluster back from the reclist")
	}
	dateSlot := c.Metadata[1]
	if len(dateSlot.Values) != 1 || dateSlot.Values[0].Min != 1865 || dateSlot.Values[0].Max != 1869 {
		t.Fatalf("date range = %+v, want min=1865 max=1869", dateSlot.Values)
	}

	tl := h.tls["date"]
	if tl == nil {
		t.Fatal("expected a date termlist to have been created")
	}
	entries := tl.Highscore(10)
	seen := map[string]int64{}
	for _, e := range entries {
		seen[e.Display] = e.Count
	}
	if seen["1865"] != 1 || seen["1869"] != 1 {
		t.Fatalf("date facet = %+v, want 1865:1 1869:1", seen)
	}
}

func TestIngestRecord_RecordFilter(t *testing.T) {
	h := newHarness(t)
	h.db.ApplySetting(pzcfg.PZRecordFilter, "medium=book")
	c1 := client.NewFakeClient("lib1")

	book := `<record><metadata type="medium">book</metadata></record>`
	article := `<record><metadata type="medium">article</metadata></record>`

	if out := h.pipe.IngestRecord(h.ctx(c1, "lib1", 1), book); out != Ingested {
		t.Fatalf("book ingest = %v, want Ingested (S5)", out)
	}
	if out := h.pipe.IngestRecord(h.ctx(c1, "lib1", 2), article); out != Filtered {
		t.Fatalf("article ingest = %v, want Filtered (S5)", out)
	}
}

func TestIngestRecord_RaceDroppedWhenUnbound(t *testing.T) {
	h := newHarness(t)
	c1 := client.NewFakeClient("lib1")
	ctx := h.ctx(c1, "lib1", 1)
	ctx.StillBound = func() bool { return false }

	xml := `<record><metadata type="title">Some Title</metadata></record>`
	if out := h.pipe.IngestRecord(ctx, xml); out != Dropped {
		t.Fatalf("unbound-client ingest = %v, want Dropped (property 12)", out)
	}
	if h.arena.NumClusters() != 0 {
		t.Fatal("no cluster should have been created for a dropped record")
	}
}

func TestIngestRecord_MalformedXMLDropped(t *testing.T) {
	h := newHarness(t)
	c1 := client.NewFakeClient("lib1")
	if out := h.pipe.IngestRecord(h.ctx(c1, "lib1", 1), "<record><unterminated>"); out != Dropped {
		t.Fatalf("malformed XML ingest = %v, want Dropped", out)
	}
}

func TestDeriveMergeKey_PositionFallback(t *testing.T) {
	h := newHarness(t)
	xml := `<record></record>`
	doc, err := parseXML(xml)
	if err != nil {
		t.Fatal(err)
	}
	key := h.pipe.deriveMergeKey(doc.Root(), "lib1", 7)
	if !strings.HasPrefix(key, "position: lib1-7") {
		t.Fatalf("merge key = %q, want position fallback", key)
	}
}

func TestDeriveMergeKey_ContentPrefixDeterministic(t *testing.T) {
	h := newHarness(t)
	xml := `<record><metadata type="title">War and Peace</metadata></record>`
	doc1, _ := parseXML(xml)
	doc2, _ := parseXML(xml)
	k1 := h.pipe.deriveMergeKey(doc1.Root(), "lib1", 1)
	k2 := h.pipe.deriveMergeKey(doc2.Root(), "lib2", 99)
	if k1 != k2 {
		t.Fatalf("merge keys differ for equal documents: %q vs %q", k1, k2)
	}
	if !strings.HasPrefix(k1, "content: ") {
		t.Fatalf("merge key = %q, want content: prefix", k1)
	}
}
