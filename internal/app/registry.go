package app

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/solocast/solocast/internal/core"
	"github.com/solocast/solocast/internal/metrics"
)

// Registry is the set of all live client sessions, one per open signaling
// connection. Sessions register on accept and unregister on disconnect;
// CloseAll drains whatever is left at shutdown.
type Registry struct {
	mu       sync.RWMutex
	sessions map[core.SessionID]*core.ClientSession
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[core.SessionID]*core.ClientSession),
	}
}

func (r *Registry) Add(sess *core.ClientSession) {
	r.mu.Lock()
	r.sessions[sess.ID()] = sess
	r.mu.Unlock()
	metrics.ActiveSessions.Inc()
	metrics.SessionsTotal.Inc()
	log.Info().Str("module", "app.registry").Str("sid", string(sess.ID())).Msg("session registered")
}

func (r *Registry) Get(sid core.SessionID) (*core.ClientSession, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sess, ok := r.sessions[sid]
	return sess, ok
}

func (r *Registry) Remove(sid core.SessionID) {
	r.mu.Lock()
	_, ok := r.sessions[sid]
	delete(r.sessions, sid)
	r.mu.Unlock()
	if ok {
		metrics.ActiveSessions.Dec()
		log.Info().Str("module", "app.registry").Str("sid", string(sid)).Msg("session removed")
	}
}

func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// CloseAll closes every remaining session. Used at shutdown; sessions still
// racing their own disconnect path are safe because Close is idempotent.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	remaining := make([]*core.ClientSession, 0, len(r.sessions))
	for _, sess := range r.sessions {
		remaining = append(remaining, sess)
	}
	r.sessions = make(map[core.SessionID]*core.ClientSession)
	r.mu.Unlock()

	for _, sess := range remaining {
		sess.Close()
		metrics.ActiveSessions.Dec()
	}
	if len(remaining) > 0 {
		log.Info().Str("module", "app.registry").Int("count", len(remaining)).Msg("closed remaining sessions")
	}
}
