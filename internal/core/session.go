package core

import (
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/solocast/solocast/internal/metrics"
)

// SessionID identifies one signaling connection.
type SessionID string

type SessionState int

const (
	// StateOpen: connected, no transport negotiated yet.
	StateOpen SessionState = iota
	// StateNegotiating: transport exists, not all consumers present.
	StateNegotiating
	// StateActive: transport plus at least one consumer.
	StateActive
	// StateClosed is terminal; no further messages are processed.
	StateClosed
)

func (s SessionState) String() string {
	switch s {
	case StateOpen:
		return "open"
	case StateNegotiating:
		return "negotiating"
	case StateActive:
		return "active"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Displaced bundles resources pushed out of a session by a replacement.
// The caller owns them and must close them.
type Displaced struct {
	Consumers []Consumer
	Transport Transport
}

// ClientSession holds everything owned by one signaling connection: at most
// one client transport, at most one consumer per media kind, and the stop
// hook of its liveness timer.
//
// Handler invocations on a session are sequential (one reader goroutine per
// connection), but Close may arrive concurrently from connection teardown.
// Every resource is therefore recorded through the session under its lock,
// and a create that lands after Close is handed back to the caller to be
// closed immediately instead of leaking.
type ClientSession struct {
	id SessionID

	mu           sync.Mutex
	state        SessionState
	transport    Transport
	consumers    map[MediaKind]Consumer
	stopLiveness func()
}

func NewClientSession(id SessionID) *ClientSession {
	return &ClientSession{
		id:        id,
		state:     StateOpen,
		consumers: make(map[MediaKind]Consumer),
	}
}

func (s *ClientSession) ID() SessionID { return s.id }

func (s *ClientSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *ClientSession) Transport() Transport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.transport
}

func (s *ClientSession) Consumer(kind MediaKind) Consumer {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.consumers[kind]
}

// BindLiveness registers the stop function of the session's keepalive timer.
// If the session is already closed the stop function runs immediately.
func (s *ClientSession) BindLiveness(stop func()) {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		stop()
		return
	}
	s.stopLiveness = stop
	s.mu.Unlock()
}

// AdoptTransport installs t as the session's transport. A transport already
// present is displaced together with every consumer created under it; the
// caller must close the displaced resources. ok is false when the session is
// closed, in which case the caller still owns t.
func (s *ClientSession) AdoptTransport(t Transport) (Displaced, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return Displaced{}, false
	}
	var d Displaced
	for kind, c := range s.consumers {
		d.Consumers = append(d.Consumers, c)
		delete(s.consumers, kind)
	}
	d.Transport = s.transport
	s.transport = t
	s.state = StateNegotiating
	return d, true
}

// AdoptConsumer records c under its media kind. A consumer of the same kind
// already present is displaced and returned; the caller must close it. ok is
// false when the session is closed, in which case the caller still owns c.
func (s *ClientSession) AdoptConsumer(c Consumer) (Consumer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateClosed {
		return nil, false
	}
	prev := s.consumers[c.Kind()]
	s.consumers[c.Kind()] = c
	s.state = StateActive
	return prev, true
}

// Close releases everything the session owns, exactly once: consumers first
// (order between kinds is irrelevant, they are independent), then the
// transport, then the liveness timer. Each close is best-effort; a failure
// is logged and never stops the rest of the sequence.
func (s *ClientSession) Close() {
	s.mu.Lock()
	if s.state == StateClosed {
		s.mu.Unlock()
		return
	}
	s.state = StateClosed
	consumers := s.consumers
	s.consumers = nil
	transport := s.transport
	s.transport = nil
	stop := s.stopLiveness
	s.stopLiveness = nil
	s.mu.Unlock()

	for kind, c := range consumers {
		if err := c.Close(); err != nil {
			metrics.ResourceCloseFailuresTotal.WithLabelValues("consumer").Inc()
			log.Error().Err(err).
				Str("module", "core.session").
				Str("sid", string(s.id)).
				Str("kind", string(kind)).
				Msg("consumer close failed")
		}
	}
	if transport != nil {
		if err := transport.Close(); err != nil {
			metrics.ResourceCloseFailuresTotal.WithLabelValues("transport").Inc()
			log.Error().Err(err).
				Str("module", "core.session").
				Str("sid", string(s.id)).
				Msg("transport close failed")
		}
	}
	if stop != nil {
		stop()
	}
}
