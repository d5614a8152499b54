package session

import (
	"context"
	"strings"
	"testing"

	"github.com/indexwerk/mergesearch/client"
)

func TestShowRange_OrderAndTotal(t *testing.T) {
	cl := client.NewFakeClient("lib1")
	se := newTestSession(t, map[string]*client.FakeClient{"lib1": cl})
	se.Search(context.Background(), "war", 0, 10, nil, "", "")

	se.IngestRecord(cl, "lib1", 1, 10, `<record><metadata type="title">War and Peace</metadata></record>`)
	se.IngestRecord(cl, "lib1", 2, 10, `<record><metadata type="title">Anna Karenina</metadata></record>`)

	clusters, total, _, _, err := se.ShowRangeStart("title:1", 0, 10)
	se.ShowRangeStop()
	if err != nil {
		t.Fatalf("ShowRangeStart() = %v", err)
	}
	if total != 2 {
		t.Fatalf("total = %d, want 2 (S1)", total)
	}
	if len(clusters) != 2 || clusters[0].RecID != clusters[0].MergeKey {
		t.Fatalf("unexpected clusters: %+v", clusters)
	}
	got := []string{clusters[0].Metadata[0].Values[0].Disp, clusters[1].Metadata[0].Values[0].Disp}
	want := []string{"Anna Karenina", "War and Peace"}
	if got[0] != want[0] || got[1] != want[1] {
		t.Fatalf("order = %v, want %v (S1)", got, want)
	}
}

func TestShowRange_SumsHitsAcrossActiveClients(t *testing.T) {
	cl1 := client.NewFakeClient("lib1")
	cl1.SetHits(5, 50, 1, 0)
	cl2 := client.NewFakeClient("lib2")
	cl2.SetHits(3, 30, 1, 0)
	se := newTestSession(t, map[string]*client.FakeClient{"lib1": cl1, "lib2": cl2})
	se.Search(context.Background(), "war", 0, 10, nil, "", "")

	_, _, sumhits, approx, err := se.ShowRangeStart("", 0, 10)
	se.ShowRangeStop()
	if err != nil {
		t.Fatalf("ShowRangeStart() = %v", err)
	}
	if sumhits != 8 {
		t.Fatalf("sumhits = %d, want 8", sumhits)
	}
	if approx != 80 {
		t.Fatalf("approx = %d, want 80", approx)
	}
}

func TestShowSingle_ReturnsPrevAndNext(t *testing.T) {
	cl := client.NewFakeClient("lib1")
	se := newTestSession(t, map[string]*client.FakeClient{"lib1": cl})
	se.Search(context.Background(), "war", 0, 10, nil, "", "")

	se.IngestRecord(cl, "lib1", 1, 10, `<record><metadata type="title">Anna Karenina</metadata></record>`)
	se.IngestRecord(cl, "lib1", 2, 10, `<record><metadata type="title">The Idiot</metadata></record>`)
	se.IngestRecord(cl, "lib1", 3, 10, `<record><metadata type="title">War and Peace</metadata></record>`)

	clusters, _, _, _, _ := se.ShowRangeStart("title:1", 0, 10)
	middleID := clusters[1].RecID
	se.ShowRangeStop()

	rec, prev, next := se.ShowSingleStart(middleID)
	se.ShowSingleStop()
	if rec == nil {
		t.Fatal("expected to find the middle record by id")
	}
	if prev == nil || next == nil {
		t.Fatalf("expected both neighbors, got prev=%v next=%v", prev, next)
	}
}

func TestPerformTermlist_XTargetsSortedByHits(t *testing.T) {
	cl1 := client.NewFakeClient("lib1")
	cl1.SetHits(2, 20, 0, 0)
	cl2 := client.NewFakeClient("lib2")
	cl2.SetHits(9, 10, 0, 0)
	se := newTestSession(t, map[string]*client.FakeClient{"lib1": cl1, "lib2": cl2})
	se.Search(context.Background(), "war", 0, 10, nil, "", "")

	out := se.PerformTermlist([]string{"xtargets"}, 10, 1)
	firstLib1 := strings.Index(out, "lib1")
	firstLib2 := strings.Index(out, "lib2")
	if firstLib1 < 0 || firstLib2 < 0 {
		t.Fatalf("expected both targets present: %s", out)
	}
	if firstLib2 > firstLib1 {
		t.Fatalf("xtargets must sort by hits descending (v1): %s", out)
	}
}

func TestPerformTermlist_FacetNameEmitsTerms(t *testing.T) {
	cl := client.NewFakeClient("lib1")
	se := newTestSession(t, map[string]*client.FakeClient{"lib1": cl})
	se.Search(context.Background(), "war", 0, 10, nil, "", "")
	se.IngestRecord(cl, "lib1", 1, 10, `<record><metadata type="date">1865</metadata></record>`)

	out := se.PerformTermlist([]string{"date"}, 10, 1)
	if !strings.Contains(out, `<list name="date">`) || !strings.Contains(out, "1865") {
		t.Fatalf("expected a date termlist entry, got %s", out)
	}
}

func TestStatistics_CountsByState(t *testing.T) {
	cl1 := client.NewFakeClient("lib1")
	cl2 := client.NewFakeClient("lib2")
	se := newTestSession(t, map[string]*client.FakeClient{"lib1": cl1, "lib2": cl2})
	se.Search(context.Background(), "war", 0, 10, nil, "", "")

	stats := se.Statistics()
	if stats.Counts[client.Idle] != 2 {
		t.Fatalf("Idle count = %d, want 2", stats.Counts[client.Idle])
	}
}
