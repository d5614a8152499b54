package registry

import (
	"testing"

	"github.com/indexwerk/mergesearch/client"
	"github.com/indexwerk/mergesearch/pzcfg"
	"github.com/indexwerk/mergesearch/pzdb"
	"github.com/indexwerk/mergesearch/relevance"
	"github.com/indexwerk/mergesearch/session"
)

func testConfig() session.Config {
	svc := pzcfg.NewService(
		[]pzcfg.MetadataField{{Name: "title", Index: 0, Kind: pzcfg.MetaGeneric, Merge: pzcfg.MergeLongest, SortKeyIndex: -1}},
		nil,
		nil,
	)
	db := pzdb.NewSessionDatabase(&pzdb.TargetDef{ID: "lib1", Defaults: map[string]string{}})
	return session.Config{
		Service:   svc,
		Databases: []*pzdb.SessionDatabase{db},
		NewClient: func(db *pzdb.SessionDatabase) client.Client { return client.NewFakeClient(db.Name()) },
		NewRelevance: func() relevance.Relevance {
			return relevance.NewTermFrequency(nil)
		},
	}
}

func TestRegistry_CreateAssignsIDAndTracksLiveCount(t *testing.T) {
	reg, err := New()
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	defer reg.Close()

	se, err := reg.Create(testConfig())
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}
	if se.ID() == "" {
		t.Fatal("expected a generated session id")
	}
	if reg.LiveCount() != 1 {
		t.Fatalf("LiveCount() = %d, want 1", reg.LiveCount())
	}
}

func TestRegistry_LookupFindsCreatedSession(t *testing.T) {
	reg, err := New(WithIDGenerator(func() (string, error) { return "fixed-id", nil }))
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	defer reg.Close()

	se, err := reg.Create(testConfig())
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}

	found, ok := reg.Lookup(se.ID())
	if !ok || found != se {
		t.Fatalf("Lookup(%q) = (%v, %v), want the created session", se.ID(), found, ok)
	}

	if _, ok := reg.Lookup("unknown-id"); ok {
		t.Fatal("Lookup of an unknown id must report not-found")
	}
}

func TestRegistry_DestroyTearsDownAndForgets(t *testing.T) {
	reg, err := New()
	if err != nil {
		t.Fatalf("New() = %v", err)
	}
	defer reg.Close()

	se, err := reg.Create(testConfig())
	if err != nil {
		t.Fatalf("Create() = %v", err)
	}

	reg.Destroy(se.ID())

	if reg.LiveCount() != 0 {
		t.Fatalf("LiveCount() = %d, want 0 after Destroy", reg.LiveCount())
	}
	if _, ok := reg.Lookup(se.ID()); ok {
		t.Fatal("Lookup after Destroy must report not-found")
	}
}
