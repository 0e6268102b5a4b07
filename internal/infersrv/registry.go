package infersrv

import "sync"

// registry tracks every live session process-wide so an admin surface
// can enumerate them without the caller threading a session list
// through its own plumbing: create_session/destroy_session are the
// only session lifecycle operations, and this is the extra
// bookkeeping an admin endpoint needs on top of them.
var (
	sessionRegistryMu sync.RWMutex
	sessionRegistry   = map[string]*Session{}
)

func registerSession(s *Session) {
	sessionRegistryMu.Lock()
	sessionRegistry[s.id] = s
	sessionRegistryMu.Unlock()
}

func unregisterSession(s *Session) {
	sessionRegistryMu.Lock()
	delete(sessionRegistry, s.id)
	sessionRegistryMu.Unlock()
}

// SessionInfo is a read-only summary of one live session.
type SessionInfo struct {
	ID        string
	ModelKey  string
	Aggregate Snapshot
}

// ListSessions returns a summary of every currently live session.
func ListSessions() []SessionInfo {
	sessionRegistryMu.RLock()
	defer sessionRegistryMu.RUnlock()
	out := make([]SessionInfo, 0, len(sessionRegistry))
	for _, s := range sessionRegistry {
		out = append(out, SessionInfo{
			ID:        s.id,
			ModelKey:  s.desc.ModelInfo.Key,
			Aggregate: s.AggregateStats(),
		})
	}
	return out
}
