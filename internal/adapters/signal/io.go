package signal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/solocast/solocast/internal/core"
	"github.com/solocast/solocast/internal/metrics"
)

const writeWait = 5 * time.Second

func (ctl *Controller) writePump(ctx context.Context, c *wsSignalConn, ticker *time.Ticker) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Msg("writePump ctx done")
			return
		case <-ticker.C:
			// Keepalive probe. No missed-probe eviction: a dead peer is only
			// reclaimed when the connection layer reports closure.
			if err := c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				log.Warn().Err(err).Str("module", "signal").Msg("writePump ping failed")
				return
			}
		case data, ok := <-c.send:
			if !ok {
				log.Warn().Str("module", "signal").Msg("writePump channel closed")
				return
			}
			if err := c.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump set deadline")
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				log.Error().Err(err).Str("module", "signal").Msg("writePump write error")
				return
			}
		}
	}
}

func (ctl *Controller) readPump(ctx context.Context, sess *core.ClientSession, c *wsSignalConn) {
	defer func() {
		log.Info().Str("module", "signal").Str("sid", string(sess.ID())).Msg("readPump closing")
		ctl.Registry.Remove(sess.ID())
		sess.Close()
		c.Close()
	}()

	if ctl.ReadLimit > 0 {
		c.conn.SetReadLimit(ctl.ReadLimit)
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "signal").Str("sid", string(sess.ID())).Msg("readPump ctx done")
			return
		default:
			_, data, err := c.conn.ReadMessage()
			if err != nil {
				log.Info().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("readPump read error")
				return
			}
			// One message at a time per session: each inbound message is
			// handled to completion before the next one is read.
			ctl.handleSignal(ctx, sess, c, data)
		}
	}
}

func (ctl *Controller) handleSignal(ctx context.Context, sess *core.ClientSession, c core.SignalConnection, data []byte) {
	var env struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		log.Error().Err(err).Str("module", "signal").Msg("bad json")
		return
	}
	metrics.SignalingMessagesTotal.WithLabelValues(env.Type, "in").Inc()

	switch env.Type {
	case msgGetRouterRtpCapabilities:
		ctl.handleCapabilities(sess, c)
	case msgGetProducers:
		ctl.handleProducers(sess, c)
	case msgCreateTransport:
		ctl.handleCreateTransport(ctx, sess, c)
	case msgConnectTransport:
		ctl.handleConnectTransport(ctx, sess, c, data)
	case msgConsume:
		ctl.handleConsume(ctx, sess, c, data)
	default:
		log.Warn().Str("module", "signal").Str("type", env.Type).Msg("unknown signal")
	}
}

func (ctl *Controller) respond(c core.SignalConnection, typ string, data any) {
	b, err := json.Marshal(envelope{Type: typ, Data: data})
	if err != nil {
		log.Error().Err(err).Str("module", "signal").Str("type", typ).Msg("respond marshal")
		return
	}
	metrics.SignalingMessagesTotal.WithLabelValues(typ, "out").Inc()
	if err := c.TrySend(b); err != nil {
		log.Warn().Err(err).Str("module", "signal").Str("type", typ).Msg("respond send")
	}
}
