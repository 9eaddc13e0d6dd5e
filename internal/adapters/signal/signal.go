package signal

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/solocast/solocast/internal/app"
	"github.com/solocast/solocast/internal/config"
	"github.com/solocast/solocast/internal/core"
)

var ErrBackpressure = errors.New("backpressure")

// Controller owns the signaling surface: it accepts WebSocket connections,
// spawns one session per connection and drives the message protocol against
// the shared media context.
type Controller struct {
	Media    *app.MediaContext
	Registry *app.Registry

	PingPeriod time.Duration
	ReadLimit  int64
}

func NewController(media *app.MediaContext, registry *app.Registry, cfg *config.Config) *Controller {
	return &Controller{
		Media:      media,
		Registry:   registry,
		PingPeriod: cfg.PingPeriod,
		ReadLimit:  cfg.ReadLimit,
	}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsSignalConn implements core.SignalConnection over one gorilla WebSocket,
// with a bounded send queue so a slow client cannot block a handler.
type wsSignalConn struct {
	conn *websocket.Conn
	send chan core.Frame

	mu     sync.RWMutex
	closed bool
}

func (c *wsSignalConn) TrySend(f core.Frame) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return errors.New("connection closed")
	}
	select {
	case c.send <- f:
	default:
		return ErrBackpressure
	}
	return nil
}

func (c *wsSignalConn) Close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	close(c.send)
	_ = c.conn.Close()
	c.mu.Unlock()
}

// HandleSignal upgrades the request and runs one client session until the
// connection goes away. The session id is the connection identity.
func (ctl *Controller) HandleSignal(ctx context.Context, c *gin.Context) {
	sid := core.SessionID(c.Request.RemoteAddr)
	log.Info().Str("module", "signal").Str("sid", string(sid)).Msg("new WS connection")

	ws, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("ws upgrade")
		return
	}

	conn := &wsSignalConn{
		conn: ws,
		send: make(chan core.Frame, 32),
	}

	sess := core.NewClientSession(sid)
	ctl.Registry.Add(sess)

	ctx, cancel := context.WithCancel(ctx)
	ticker := time.NewTicker(ctl.PingPeriod)
	// The liveness timer lives exactly as long as the session; its stop hook
	// runs as the last step of the release sequence.
	sess.BindLiveness(func() {
		ticker.Stop()
		cancel()
	})

	go ctl.writePump(ctx, conn, ticker)
	go ctl.readPump(ctx, sess, conn)
}
