// Package session implements the session core: client attach/detach,
// search dispatch, sort transitions, watch notifications, teardown
// (spec.md §4.F), and the reader APIs that read back a consistent snapshot
// of the result set (spec.md §4.G). It is the component that ties
// pzdb/ingest/merge/facet/relevance/client together into the long-lived
// object an HTTP layer (out of scope) would drive.
package session

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/golang/glog"
	"github.com/pkg/errors"

	"github.com/indexwerk/mergesearch/client"
	"github.com/indexwerk/mergesearch/facet"
	"github.com/indexwerk/mergesearch/ingest"
	"github.com/indexwerk/mergesearch/merge"
	"github.com/indexwerk/mergesearch/pzcfg"
	"github.com/indexwerk/mergesearch/pzdb"
	"github.com/indexwerk/mergesearch/pzerr"
	"github.com/indexwerk/mergesearch/relevance"
)

// ClientFactory creates a fresh Client bound to db, the collaborator
// select_targets needs the first time a database is chosen, per spec.md
// §4.F's Attach step ("...or creates a new one").
type ClientFactory func(db *pzdb.SessionDatabase) client.Client

// RelevanceFactory builds a fresh Relevance engine, used both at session
// creation and by session_search's "destroy the old relevance" step.
type RelevanceFactory func() relevance.Relevance

// Config assembles the collaborators one Session is built from. Service,
// NewClient and NewRelevance are required; the rest have sane defaults.
type Config struct {
	ID             string
	Service        *pzcfg.Service
	NormalizeCache ingest.NormalizeCache
	Databases      []*pzdb.SessionDatabase
	NewClient      ClientFactory
	NewRelevance   RelevanceFactory

	// MaxTermlists bounds the number of distinct facet fields a session
	// will accumulate termlists for (SESSION_MAX_TERMLISTS); <=0 means
	// unbounded.
	MaxTermlists int
	// TermlistBound bounds the distinct-term cardinality of each
	// individual termlist; <=0 means unbounded.
	TermlistBound int
}

// Session is the session core described by spec.md §3's "Session" entry: a
// reclist, an arena, a databases view, two client sets, termlists, a
// materialized-sort history, facet limits, a watchlist, and counters, all
// behind one mutex.
type Session struct {
	id   string
	svc  *pzcfg.Service
	pipe *ingest.Pipeline

	newClient     ClientFactory
	newRelevance  RelevanceFactory
	maxTermlists  int
	termlistBound int

	mu sync.Mutex

	databases     []*pzdb.SessionDatabase
	clientsActive []client.Client
	clientsCached map[string]client.Client // keyed by SessionDatabase.Name()

	arena   *merge.Arena
	reclist *merge.Reclist

	relevance relevance.Relevance

	termlists map[string]*facet.Termlist

	sortedResults []*merge.SortParms
	currentSort   *merge.SortParms

	facetLimits *facet.Limits

	watches map[WatchKind]*watchSlot

	totalRecords int
	destroyed    bool
}

// New builds a Session from cfg. The session starts with no active or
// cached clients; the first Search call populates both via selectTargets.
func New(cfg Config) *Session {
	arena := merge.NewArena()
	se := &Session{
		id:            cfg.ID,
		svc:           cfg.Service,
		pipe:          ingest.NewPipeline(cfg.Service, cfg.NormalizeCache),
		newClient:     cfg.NewClient,
		newRelevance:  cfg.NewRelevance,
		maxTermlists:  cfg.MaxTermlists,
		termlistBound: cfg.TermlistBound,
		databases:     cfg.Databases,
		clientsCached: make(map[string]client.Client),
		arena:         arena,
		reclist:       merge.NewReclist(cfg.Service, arena),
		termlists:     make(map[string]*facet.Termlist),
		watches:       make(map[WatchKind]*watchSlot),
	}
	if se.newRelevance != nil {
		se.relevance = se.newRelevance()
	}
	return se
}

// ID returns the session's identity (the registry's issued session id).
func (se *Session) ID() string { return se.id }

// selectTargets matches se.databases against filter, reusing a cached
// client (keyed by database name) or minting one via newClient, per
// spec.md §4.F's Attach step. Caller must hold se.mu.
func (se *Session) selectTargets(filter *Filter) []client.Client {
	var active []client.Client
	for _, db := range se.databases {
		if !filter.Matches(db) {
			continue
		}
		name := db.Name()
		cl, ok := se.clientsCached[name]
		if !ok {
			if se.newClient == nil {
				continue
			}
			cl = se.newClient(db)
			se.clientsCached[name] = cl
		}
		cl.SetSession(client.SessionBinder(se))
		active = append(active, cl)
	}
	return active
}

// dropCachedClientsLocked unbinds and discards every cached client, the
// "settings were modified" branch of session_search step 1. Caller must
// hold se.mu.
func (se *Session) dropCachedClientsLocked() {
	for name, cl := range se.clientsCached {
		cl.SetSession(nil)
		delete(se.clientsCached, name)
	}
}

// clearSetLocked implements session_clear_set: reset the arena (and with it
// every cluster/record it owns), rebuild the reclist on the fresh arena,
// replace relevance, and forget termlists and materialized sort history.
// Caller must hold se.mu.
func (se *Session) clearSetLocked() {
	se.arena.Reset()
	se.reclist = merge.NewReclist(se.svc, se.arena)
	if se.newRelevance != nil {
		se.relevance = se.newRelevance()
	}
	se.termlists = make(map[string]*facet.Termlist)
	se.sortedResults = nil
	se.currentSort = nil
}

// databaseFor resolves the SessionDatabase backing cl, matched by name
// against cl.Database(). Caller must hold se.mu.
func (se *Session) databaseFor(cl client.Client) *pzdb.SessionDatabase {
	for _, db := range se.databases {
		if db.Name() == cl.Database() {
			return db
		}
	}
	return nil
}

// termlistFor looks up (creating on first use, bounded by MaxTermlists) the
// termlist for facet field name. Caller must hold se.mu.
func (se *Session) termlistFor(name string) *facet.Termlist {
	if tl, ok := se.termlists[name]; ok {
		return tl
	}
	if se.maxTermlists > 0 && len(se.termlists) >= se.maxTermlists {
		return nil
	}
	tl := facet.NewTermlist(se.termlistBound)
	se.termlists[name] = tl
	return tl
}

// Search implements session_search, per spec.md §4.F. It returns NoError
// (pzerr.KindNone, nil) on at least partial success; otherwise the first
// non-recoverable error kind every client reported.
func (se *Session) Search(ctx context.Context, query string, startrecs, maxrecs int, filter *Filter, limit, sortSpec string) (pzerr.Kind, error) {
	se.mu.Lock()

	modified := false
	for _, db := range se.databases {
		if db.SettingsModified() {
			modified = true
			db.ClearModified()
		}
	}
	if modified {
		se.dropCachedClientsLocked()
	} else {
		se.clientsActive = nil
	}

	se.clearSetLocked()

	facetLimits, ferr := facet.NewLimits(limit)
	if ferr != nil {
		se.mu.Unlock()
		return pzerr.KindOf(ferr), ferr
	}
	se.facetLimits = facetLimits

	active := se.selectTargets(filter)
	if len(active) == 0 {
		se.mu.Unlock()
		err := pzerr.New(pzerr.KindNoTargets, "")
		return pzerr.KindNoTargets, err
	}

	var sortParms *merge.SortParms
	if sortSpec != "" {
		var perr error
		sortParms, perr = merge.ParseSortParms(sortSpec, se.svc)
		if perr != nil {
			se.mu.Unlock()
			return pzerr.KindOf(perr), perr
		}
	}
	se.mu.Unlock()

	// Dispatch is a suspension point (spec.md §5): every per-client call
	// below runs outside the session lock.
	type outcome struct {
		started bool
		errKind int
	}
	outcomes := make([]outcome, len(active))

	g, gctx := errgroup.WithContext(ctx)
	for i, cl := range active {
		i, cl := i, cl
		g.Go(func() error {
			ok, errKind := cl.ParseQuery(gctx, query)
			if !ok {
				outcomes[i] = outcome{errKind: errKind}
				return nil
			}
			if sortParms != nil {
				cl.ParseSort(sortParms.Raw())
			}
			if err := cl.ParseRange(startrecs, maxrecs); err != nil {
				outcomes[i] = outcome{errKind: -1}
				return nil
			}
			if err := cl.StartSearch(gctx); err != nil {
				glog.Warningf("session %s: client %s failed to start: %v", se.id, cl.Database(), err)
				outcomes[i] = outcome{errKind: -3}
				return nil
			}
			outcomes[i] = outcome{started: true}
			return nil
		})
	}
	_ = g.Wait() // per-client errors are carried in outcomes, not g's own error

	var started int
	var firstErrKind int
	for _, o := range outcomes {
		if o.started {
			started++
		} else if firstErrKind == 0 {
			firstErrKind = o.errKind
		}
	}

	se.mu.Lock()
	se.clientsActive = active
	se.mu.Unlock()

	if started == 0 {
		return searchErrFromClientKind(firstErrKind)
	}
	return pzerr.KindNone, nil
}

// searchErrFromClientKind maps a Client.ParseQuery errKind (-1 query error,
// -2 limit error, anything else an other-but-non-fatal error per spec.md
// §4.F step 4) to one of this module's named error kinds.
func searchErrFromClientKind(errKind int) (pzerr.Kind, error) {
	switch errKind {
	case -1:
		err := pzerr.New(pzerr.KindMalformedParameterValue, "query")
		return pzerr.KindMalformedParameterValue, err
	case -2:
		err := pzerr.New(pzerr.KindMalformedParameterValue, "limit")
		return pzerr.KindMalformedParameterValue, err
	default:
		err := pzerr.New(pzerr.KindNoTargets, "")
		return pzerr.KindNoTargets, err
	}
}

// Sort implements session_sort's sort-transition logic, per spec.md §4.F.
func (se *Session) Sort(sp string) error {
	se.mu.Lock()
	parms, err := merge.ParseSortParms(sp, se.svc)
	if err != nil {
		se.mu.Unlock()
		return err
	}

	for _, materialized := range se.sortedResults {
		if materialized.Cmp(parms) {
			se.mu.Unlock()
			return nil
		}
	}

	active := append([]client.Client(nil), se.clientsActive...)
	se.mu.Unlock()

	var sum int
	for _, cl := range active {
		sum += cl.ParseSort(sp)
	}

	se.mu.Lock()
	if sum == 0 {
		se.sortedResults = append(se.sortedResults, parms)
		se.currentSort = parms
		se.mu.Unlock()
		return nil
	}

	se.clearSetLocked()
	se.sortedResults = append(se.sortedResults, parms)
	se.currentSort = parms
	restart := restartableClients(se.clientsActive)
	se.mu.Unlock()

	var wg sync.WaitGroup
	for _, cl := range restart {
		wg.Add(1)
		go func(cl client.Client) {
			defer wg.Done()
			if err := cl.StartSearch(context.Background()); err != nil {
				glog.Warningf("session: client %s failed to restart after sort change: %v", cl.Database(), err)
			}
		}(cl)
	}
	wg.Wait()
	return nil
}

func restartableClients(active []client.Client) []client.Client {
	var out []client.Client
	for _, cl := range active {
		switch cl.GetState() {
		case client.Connecting, client.Idle, client.Working:
			out = append(out, cl)
		}
	}
	return out
}

// IngestRecord bridges one target record into the ingestion pipeline,
// holding the session lock across the whole call per spec.md §4.E step 6
// and §5's lock-order note (ingestion's cluster-insertion critical section
// runs inside the session lock).
func (se *Session) IngestRecord(cl client.Client, clientID string, recordNo, maxrecs int, recXML string) ingest.Outcome {
	se.mu.Lock()
	defer se.mu.Unlock()

	if se.destroyed {
		return ingest.Dropped
	}

	db := se.databaseFor(cl)
	if db == nil {
		return ingest.Dropped
	}

	ctx := &ingest.RecordContext{
		Client:    cl,
		ClientID:  clientID,
		RecordNo:  recordNo,
		MaxRecs:   maxrecs,
		DB:        db,
		Reclist:   se.reclist,
		Arena:     se.arena,
		Relevance: se.relevance,
		Termlists: se.termlistFor,
		StillBound: func() bool {
			bound, ok := cl.GetSession().(*Session)
			return ok && bound == se
		},
	}

	outcome := se.pipe.IngestRecord(ctx, recXML)
	if outcome == ingest.Ingested {
		se.totalRecords++
	}
	return outcome
}

// Teardown implements session destroy, per spec.md §4.F: drop cached
// clients, release relevance/reclist/arena/facet-limits/watches. Idempotent.
func (se *Session) Teardown() {
	se.mu.Lock()
	defer se.mu.Unlock()
	if se.destroyed {
		return
	}
	se.destroyed = true

	se.dropCachedClientsLocked()
	se.clientsActive = nil
	se.relevance = nil
	se.reclist.Destroy()
	se.arena.Reset()
	se.termlists = nil
	se.facetLimits = nil
	se.watches = nil
}

var errWatchAlreadySet = errors.New("session: a watch is already installed for this kind")
var errSessionDestroyed = errors.New("session: session already torn down")
