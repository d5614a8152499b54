package session

import (
	"context"
	"testing"

	"github.com/indexwerk/mergesearch/client"
	"github.com/indexwerk/mergesearch/pzcfg"
	"github.com/indexwerk/mergesearch/pzdb"
	"github.com/indexwerk/mergesearch/relevance"
)

func testService() *pzcfg.Service {
	return pzcfg.NewService(
		[]pzcfg.MetadataField{
			{Name: "title", Index: 0, Kind: pzcfg.MetaGeneric, Merge: pzcfg.MergeLongest, MergeKey: pzcfg.MergeKeyOptional, SortKeyIndex: 0, Termlist: true},
			{Name: "date", Index: 1, Kind: pzcfg.MetaYear, Merge: pzcfg.MergeRange, MergeKey: pzcfg.MergeKeyNo, SortKeyIndex: 1, Termlist: true},
		},
		[]pzcfg.SortKeyDef{{Name: "title", Index: 0}, {Name: "date", Index: 1}},
		nil,
	)
}

func newTestSession(t *testing.T, clients map[string]*client.FakeClient) *Session {
	t.Helper()
	svc := testService()
	var dbs []*pzdb.SessionDatabase
	for name := range clients {
		dbs = append(dbs, pzdb.NewSessionDatabase(&pzdb.TargetDef{ID: name, Defaults: map[string]string{}}))
	}
	return New(Config{
		ID:        "sess1",
		Service:   svc,
		Databases: dbs,
		NewClient: func(db *pzdb.SessionDatabase) client.Client {
			return clients[db.Name()]
		},
		NewRelevance: func() relevance.Relevance {
			return relevance.NewTermFrequency(nil)
		},
	})
}

func TestSearch_NoTargetsWhenFilterExcludesEverything(t *testing.T) {
	cl := client.NewFakeClient("lib1")
	se := newTestSession(t, map[string]*client.FakeClient{"lib1": cl})

	kind, err := se.Search(context.Background(), "war", 0, 10, ParseFilter("lib-does-not-exist"), "", "")
	if err == nil {
		t.Fatal("expected NoTargets error")
	}
	if got := kind.String(); got != "NoTargets" {
		t.Fatalf("kind = %s, want NoTargets", got)
	}
}

func TestSearch_StartsEligibleClients(t *testing.T) {
	cl := client.NewFakeClient("lib1")
	se := newTestSession(t, map[string]*client.FakeClient{"lib1": cl})

	kind, err := se.Search(context.Background(), "war", 0, 10, nil, "", "title:1")
	if err != nil {
		t.Fatalf("Search() = %v, want nil (kind=%s)", err, kind)
	}
	if cl.GetState() != client.Idle {
		t.Fatalf("client state = %v, want Idle after StartSearch", cl.GetState())
	}
}

func TestSearch_AllClientsFailQueryReturnsMalformedParameterValue(t *testing.T) {
	cl := client.NewFakeClient("lib1")
	se := newTestSession(t, map[string]*client.FakeClient{"lib1": cl})

	kind, err := se.Search(context.Background(), "", 0, 10, nil, "", "")
	if err == nil {
		t.Fatal("expected an error when the only client rejects the query")
	}
	if kind.String() != "MalformedParameterValue" {
		t.Fatalf("kind = %s, want MalformedParameterValue", kind)
	}
}

func TestIngestRecord_DroppedAfterTeardown(t *testing.T) {
	cl := client.NewFakeClient("lib1")
	se := newTestSession(t, map[string]*client.FakeClient{"lib1": cl})
	se.Search(context.Background(), "war", 0, 10, nil, "", "")

	se.Teardown()

	xml := `<record><metadata type="title">War and Peace</metadata></record>`
	out := se.IngestRecord(cl, "lib1", 1, 10, xml)
	if out.String() != "Dropped" {
		t.Fatalf("ingest after teardown = %v, want Dropped (property 12)", out)
	}
}

func TestIngestRecord_DroppedWhenClientRebound(t *testing.T) {
	cl := client.NewFakeClient("lib1")
	se := newTestSession(t, map[string]*client.FakeClient{"lib1": cl})
	se.Search(context.Background(), "war", 0, 10, nil, "", "")

	// Simulate a race: the client gets rebound to some other session (or
	// detached) between record arrival and the critical section.
	cl.SetSession(nil)

	xml := `<record><metadata type="title">War and Peace</metadata></record>`
	out := se.IngestRecord(cl, "lib1", 1, 10, xml)
	if out.String() != "Dropped" {
		t.Fatalf("ingest for rebound client = %v, want Dropped (property 12)", out)
	}
}

func TestSort_NoOpWhenAlreadyMaterialized(t *testing.T) {
	cl := client.NewFakeClient("lib1")
	se := newTestSession(t, map[string]*client.FakeClient{"lib1": cl})
	se.Search(context.Background(), "war", 0, 10, nil, "", "")

	if err := se.Sort("title:1"); err != nil {
		t.Fatalf("first Sort() = %v", err)
	}
	before := se.reclist

	if err := se.Sort("title:1"); err != nil {
		t.Fatalf("second Sort() = %v", err)
	}
	if se.reclist != before {
		t.Fatal("no-op sort (S6/property 10) must not rebuild the reclist")
	}
}

func TestSort_TransitionWithoutReSearchWhenClientsReportNoCost(t *testing.T) {
	cl := client.NewFakeClient("lib1")
	cl.SetSortCost(0)
	se := newTestSession(t, map[string]*client.FakeClient{"lib1": cl})
	se.Search(context.Background(), "war", 0, 10, nil, "", "")

	before := se.reclist
	if err := se.Sort("title:1"); err != nil {
		t.Fatalf("Sort(title:1) = %v", err)
	}
	if err := se.Sort("date:0"); err != nil {
		t.Fatalf("Sort(date:0) = %v", err)
	}
	if se.reclist != before {
		t.Fatal("S6: sort transition with zero native re-sort cost must not clear the reclist")
	}
	if len(se.sortedResults) != 2 {
		t.Fatalf("sortedResults len = %d, want 2", len(se.sortedResults))
	}
}

func TestSort_ClearsSetWhenNativeReSearchRequired(t *testing.T) {
	cl := client.NewFakeClient("lib1")
	cl.SetSortCost(1)
	se := newTestSession(t, map[string]*client.FakeClient{"lib1": cl})
	se.Search(context.Background(), "war", 0, 10, nil, "", "")

	before := se.reclist
	if err := se.Sort("title:1"); err != nil {
		t.Fatalf("Sort() = %v", err)
	}
	if se.reclist == before {
		t.Fatal("a nonzero native re-sort cost must clear the set and restart clients")
	}
}

func TestWatch_FiresOnceThenNoOp(t *testing.T) {
	se := newTestSession(t, map[string]*client.FakeClient{"lib1": client.NewFakeClient("lib1")})

	fired := 0
	if err := se.SetWatch(WatchRecord, func(data interface{}) { fired++ }, nil, nil); err != nil {
		t.Fatalf("SetWatch() = %v", err)
	}
	se.AlertWatch(WatchRecord)
	se.AlertWatch(WatchRecord)

	if fired != 1 {
		t.Fatalf("fired = %d, want 1 (property 11)", fired)
	}
}

func TestWatch_SecondInstallWithoutClearFails(t *testing.T) {
	se := newTestSession(t, map[string]*client.FakeClient{"lib1": client.NewFakeClient("lib1")})

	if err := se.SetWatch(WatchRecord, func(interface{}) {}, nil, nil); err != nil {
		t.Fatalf("first SetWatch() = %v", err)
	}
	if err := se.SetWatch(WatchRecord, func(interface{}) {}, nil, nil); err == nil {
		t.Fatal("expected an error installing a second watcher for the same kind")
	}
}

type fakeChannel struct {
	fn func()
}

func (c *fakeChannel) OnDestroy(fn func()) func() {
	c.fn = fn
	return func() { c.fn = nil }
}

func (c *fakeChannel) die() {
	if c.fn != nil {
		c.fn()
	}
}

func TestWatch_ClearedByChannelDeath(t *testing.T) {
	se := newTestSession(t, map[string]*client.FakeClient{"lib1": client.NewFakeClient("lib1")})
	ch := &fakeChannel{}

	fired := false
	if err := se.SetWatch(WatchRecord, func(interface{}) { fired = true }, nil, ch); err != nil {
		t.Fatalf("SetWatch() = %v", err)
	}
	ch.die()
	se.AlertWatch(WatchRecord)

	if fired {
		t.Fatal("a watch cleared by channel death must not fire")
	}
}
