// Package registry implements the global session directory and counters
// spec.md §9's design note calls for: "Replace the module-scope mutex+
// counter with an injectable monotonic counter shared via the runtime's
// normal dependency model." Registry is that injectable collaborator: it
// mints session ids, owns the in-memory (never-disk) session directory,
// and tracks live/cumulative session counts as Prometheus metrics.
package registry

import (
	"sync"
	"time"

	"github.com/golang/glog"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/teris-io/shortid"
	"github.com/tidwall/buntdb"

	"github.com/indexwerk/mergesearch/session"
)

// defaultTTL is how long an idle session's directory entry survives before
// buntdb's own background eviction drops it.
const defaultTTL = 30 * time.Minute

// Registry is the session directory: an in-memory (":memory:", never
// touching disk - this module's records are explicitly ephemeral, per
// spec.md §1's "no durable state") buntdb keyed by session id, plus the
// in-process *session.Session map and Prometheus session-count metrics.
type Registry struct {
	mu sync.Mutex

	db  *buntdb.DB
	ttl time.Duration

	sessions map[string]*session.Session

	idGen func() (string, error)

	promRegistry *prometheus.Registry
	liveGauge    prometheus.Gauge
	createdTotal prometheus.Counter
}

// Option configures New.
type Option func(*Registry)

// WithTTL overrides the default 30-minute idle-session directory TTL.
func WithTTL(ttl time.Duration) Option {
	return func(r *Registry) { r.ttl = ttl }
}

// WithIDGenerator overrides session id generation - tests use this for
// deterministic ids instead of shortid's random alphabet.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(r *Registry) { r.idGen = gen }
}

// New builds a Registry backed by a fresh in-memory buntdb directory and
// its own Prometheus registry (kept private to the instance so multiple
// Registries, as in tests, never collide on a shared default registerer).
func New(opts ...Option) (*Registry, error) {
	db, err := buntdb.Open(":memory:")
	if err != nil {
		return nil, err
	}

	r := &Registry{
		db:       db,
		ttl:      defaultTTL,
		sessions: make(map[string]*session.Session),
		idGen:    shortid.Generate,
	}
	for _, opt := range opts {
		opt(r)
	}

	r.liveGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "mergesearch",
		Subsystem: "registry",
		Name:      "sessions_live",
		Help:      "Number of sessions currently open.",
	})
	r.createdTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "mergesearch",
		Subsystem: "registry",
		Name:      "sessions_created_total",
		Help:      "Cumulative number of sessions ever created.",
	})
	r.promRegistry = prometheus.NewRegistry()
	r.promRegistry.MustRegister(r.liveGauge, r.createdTotal)

	return r, nil
}

// Metrics returns the Registry's own Prometheus registry for an HTTP
// /metrics handler (out of scope here) to expose.
func (r *Registry) Metrics() *prometheus.Registry { return r.promRegistry }

// Create mints a session id (unless cfg.ID is already set), builds a
// Session from cfg, and records it in both the in-process map and the
// buntdb directory with a fresh TTL.
func (r *Registry) Create(cfg session.Config) (*session.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := cfg.ID
	if id == "" {
		generated, err := r.idGen()
		if err != nil {
			return nil, err
		}
		id = generated
		cfg.ID = id
	}

	se := session.New(cfg)
	r.sessions[id] = se

	if err := r.db.Update(func(tx *buntdb.Tx) error {
		_, _, err := tx.Set(id, time.Now().Format(time.RFC3339), &buntdb.SetOptions{Expires: true, TTL: r.ttl})
		return err
	}); err != nil {
		delete(r.sessions, id)
		return nil, err
	}

	r.liveGauge.Inc()
	r.createdTotal.Inc()
	glog.V(1).Infof("registry: created session %s", id)
	return se, nil
}

// Lookup resolves id to its Session, refreshing its directory TTL. Reports
// not found once the directory entry has expired, even if the in-process
// map entry hasn't been swept yet.
func (r *Registry) Lookup(id string) (*session.Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	se, ok := r.sessions[id]
	if !ok {
		return nil, false
	}

	err := r.db.Update(func(tx *buntdb.Tx) error {
		val, gerr := tx.Get(id)
		if gerr != nil {
			return gerr
		}
		_, _, serr := tx.Set(id, val, &buntdb.SetOptions{Expires: true, TTL: r.ttl})
		return serr
	})
	if err != nil {
		delete(r.sessions, id)
		return nil, false
	}
	return se, true
}

// Destroy tears down and forgets id's session; a no-op if id is unknown.
func (r *Registry) Destroy(id string) {
	r.mu.Lock()
	se, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
		r.db.Update(func(tx *buntdb.Tx) error {
			_, err := tx.Delete(id)
			return err
		})
	}
	r.mu.Unlock()

	if ok {
		se.Teardown()
		r.liveGauge.Dec()
		glog.V(1).Infof("registry: destroyed session %s", id)
	}
}

// LiveCount reports the number of sessions currently tracked.
func (r *Registry) LiveCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Close releases the in-memory buntdb handle. It does not tear down any
// sessions still tracked - call Destroy for each first if that matters.
func (r *Registry) Close() error {
	return r.db.Close()
}
