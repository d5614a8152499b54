// Package client defines the Client interface session and ingest consume
// (spec.md §6): the wire protocol that actually fetches records from a
// remote bibliographic target is out of scope for this module. This package
// also provides a minimal in-memory FakeClient used by tests and
// cmd/pzsim, since a metasearch session with zero real clients wired is not
// exercisable end to end.
package client

import (
	"context"
	"sync"

	"go.uber.org/atomic"
)

// State is the client state machine spec.md §6 names.
type State int

const (
	Connecting State = iota
	Idle
	Working
	Failed
	Error
	NoConnection
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "Connecting"
	case Idle:
		return "Idle"
	case Working:
		return "Working"
	case Failed:
		return "Failed"
	case Error:
		return "Error"
	default:
		return "NoConnection"
	}
}

// SessionBinder is the narrow slice of the session type a Client needs to
// read/write its own session pointer, used by the race-safety check
// spec.md §4.E step 6 and §5 describe ("client_get_session(cl) == se").
// It is typed as interface{} here (an opaque session handle) to avoid a
// client<->session import cycle; session.Session satisfies it trivially by
// identity comparison.
type SessionBinder = interface{}

// Client is the consumed interface: everything this module needs in order
// to dispatch a search, read back hit/record counts, and track session
// binding for race safety, per spec.md §6.
type Client interface {
	Database() string
	GetState() State
	SetState(State)

	ParseQuery(ctx context.Context, query string) (ok bool, errKind int)
	ParseSort(sp string) int // nonzero sum across clients => native re-search required
	ParseRange(start, max int) error
	StartSearch(ctx context.Context) error

	Hits() int
	Approximation() int
	NumRecords() int
	NumRecordsFiltered() int
	Diagnostic() string
	Connection() string

	GetSession() SessionBinder
	SetSession(SessionBinder)

	FacetLimitLocal(name string) ([]string, bool)
	FacetLimitNames() []string
	HasFacet(name string) bool
}

// FakeClient is a minimal, in-memory Client used by tests and the cmd/pzsim
// demo. It never performs network I/O; StartSearch immediately marks the
// client Idle with the hit counts preloaded by the test/demo harness.
type FakeClient struct {
	mu sync.Mutex

	db    string
	state State

	session SessionBinder

	hits, approx, numrec, numfilt atomic.Int64
	diagnostic                    string
	facetLimits                   map[string][]string
	facets                        map[string]bool

	sortCost int // what ParseSort reports; 0 means "no native re-sort needed"
}

func NewFakeClient(db string) *FakeClient {
	return &FakeClient{db: db, state: Connecting, facetLimits: map[string][]string{}, facets: map[string]bool{}}
}

func (c *FakeClient) Database() string { return c.db }

func (c *FakeClient) GetState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *FakeClient) SetState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

func (c *FakeClient) ParseQuery(ctx context.Context, query string) (bool, int) {
	if query == "" {
		return false, -1
	}
	return true, 0
}

// SetSortCost configures what ParseSort reports for test scenarios.
func (c *FakeClient) SetSortCost(cost int) { c.sortCost = cost }

func (c *FakeClient) ParseSort(sp string) int { return c.sortCost }

func (c *FakeClient) ParseRange(start, max int) error { return nil }

func (c *FakeClient) StartSearch(ctx context.Context) error {
	c.SetState(Idle)
	return nil
}

func (c *FakeClient) SetHits(hits, approx, numrec, numfilt int) {
	c.hits.Store(int64(hits))
	c.approx.Store(int64(approx))
	c.numrec.Store(int64(numrec))
	c.numfilt.Store(int64(numfilt))
}

func (c *FakeClient) Hits() int                { return int(c.hits.Load()) }
func (c *FakeClient) Approximation() int       { return int(c.approx.Load()) }
func (c *FakeClient) NumRecords() int          { return int(c.numrec.Load()) }
func (c *FakeClient) NumRecordsFiltered() int  { return int(c.numfilt.Load()) }
func (c *FakeClient) Diagnostic() string       { return c.diagnostic }
func (c *FakeClient) Connection() string       { return "fake://" + c.db }

func (c *FakeClient) GetSession() SessionBinder {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.session
}

func (c *FakeClient) SetSession(s SessionBinder) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

// SetFacetLimitLocal configures a client-provided facet limit for
// check_limit_local tests, per spec.md §4.E.2.
func (c *FakeClient) SetFacetLimitLocal(name string, values []string) {
	c.facetLimits[name] = values
}

func (c *FakeClient) FacetLimitLocal(name string) ([]string, bool) {
	v, ok := c.facetLimits[name]
	return v, ok
}

// FacetLimitNames returns the distinct limit names this client has been told
// about, the set check_limit_local iterates, per spec.md §4.E.2.
func (c *FakeClient) FacetLimitNames() []string {
	names := make([]string, 0, len(c.facetLimits))
	for name := range c.facetLimits {
		names = append(names, name)
	}
	return names
}

// SetHasFacet marks that this client already reports its own facet for
// name, suppressing add_facet's local accumulation, per spec.md §4.E.2.
func (c *FakeClient) SetHasFacet(name string, has bool) { c.facets[name] = has }

func (c *FakeClient) HasFacet(name string) bool { return c.facets[name] }
