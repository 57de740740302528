package realtime

import "sync"

// Registry tracks which users currently have live realtime connections.
// A user is online iff they have at least one connection; multiple
// connections per user (multi-device) are first class.
type Registry interface {
	// Register adds a connection and reports whether the user just came
	// online (offline -> online edge). Registering a second connection for an
	// already-online user returns false.
	Register(userID int64, connID string) bool
	// Unregister removes a connection and reports whether the user just went
	// fully offline (their connection set became empty).
	Unregister(userID int64, connID string) bool
	IsOnline(userID int64) bool
	ConnectionsOf(userID int64) []string
}

// MemoryRegistry is the in-process Registry backing the single presence
// authority. Entries are ephemeral and never persisted.
type MemoryRegistry struct {
	mu    sync.RWMutex
	conns map[int64]map[string]struct{}
}

func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{
		conns: make(map[int64]map[string]struct{}),
	}
}

var _ Registry = (*MemoryRegistry)(nil)

func (r *MemoryRegistry) Register(userID int64, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, existed := r.conns[userID]
	if !existed {
		set = make(map[string]struct{})
		r.conns[userID] = set
	}
	set[connID] = struct{}{}
	return !existed
}

func (r *MemoryRegistry) Unregister(userID int64, connID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.conns[userID]
	if !ok {
		return false
	}
	if _, ok := set[connID]; !ok {
		return false
	}
	delete(set, connID)
	if len(set) == 0 {
		delete(r.conns, userID)
		return true
	}
	return false
}

func (r *MemoryRegistry) IsOnline(userID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns[userID]) > 0
}

func (r *MemoryRegistry) ConnectionsOf(userID int64) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.conns[userID]
	if len(set) == 0 {
		return nil
	}
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids
}
