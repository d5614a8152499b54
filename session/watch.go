package session

// WatchKind enumerates the watchable event classes a session exposes, per
// spec.md §4.F's "at most one watcher per kind".
type WatchKind int

const (
	// WatchRecord fires when the HTTP layer wants to be woken on new
	// ingestion activity (a pending "more records may have arrived" poll).
	WatchRecord WatchKind = iota
	// WatchSearch fires when a dispatched search round has settled.
	WatchSearch
)

func (k WatchKind) String() string {
	switch k {
	case WatchRecord:
		return "record"
	case WatchSearch:
		return "search"
	default:
		return "unknown"
	}
}

// WatchFunc is the callback AlertWatch invokes, always outside every
// session lock, per spec.md §4.F/§5 ("watch callbacks are always invoked
// with all session locks released").
type WatchFunc func(data interface{})

// Channel is the narrow slice of an HTTP channel a watch needs: a way to
// register an observer that fires if the channel dies before the watch
// does, per spec.md §4.F's "channel-destroy observer" and §5's
// "HTTP-channel death cancels any watch registered on that channel". The
// returned unregister func detaches the observer once it is no longer
// needed (the watch fired normally).
type Channel interface {
	OnDestroy(fn func()) (unregister func())
}

type watchSlot struct {
	fn         WatchFunc
	data       interface{}
	unregister func()
}

// SetWatch installs fn/data as kind's watcher, per spec.md §4.F. ch may be
// nil, meaning the watch has no channel to die under. Installing a second
// watcher for an already-occupied kind returns errWatchAlreadySet.
func (se *Session) SetWatch(kind WatchKind, fn WatchFunc, data interface{}, ch Channel) error {
	se.mu.Lock()
	defer se.mu.Unlock()

	if se.watches == nil {
		return errSessionDestroyed
	}
	if _, exists := se.watches[kind]; exists {
		return errWatchAlreadySet
	}

	slot := &watchSlot{fn: fn, data: data}
	if ch != nil {
		slot.unregister = ch.OnDestroy(func() { se.clearWatch(kind) })
	}
	se.watches[kind] = slot
	return nil
}

// clearWatch drops kind's watcher without firing it, the channel-death path
// registered by SetWatch.
func (se *Session) clearWatch(kind WatchKind) {
	se.mu.Lock()
	defer se.mu.Unlock()
	if se.watches != nil {
		delete(se.watches, kind)
	}
}

// AlertWatch implements alert_watch: snapshot-and-clear kind's slot under
// the session lock, unregister its channel observer, release the lock, then
// invoke fn outside it, per spec.md §4.F. A second call without
// re-registration is a no-op (testable property 11).
func (se *Session) AlertWatch(kind WatchKind) {
	se.mu.Lock()
	slot, ok := se.watches[kind]
	if !ok {
		se.mu.Unlock()
		return
	}
	delete(se.watches, kind)
	if slot.unregister != nil {
		slot.unregister()
	}
	se.mu.Unlock()

	if slot.fn != nil {
		slot.fn(slot.data)
	}
}
