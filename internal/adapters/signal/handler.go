package signal

import (
	"context"
	"encoding/json"

	"github.com/rs/zerolog/log"

	"github.com/solocast/solocast/internal/core"
	"github.com/solocast/solocast/internal/metrics"
)

// Protocol handlers. All of them follow the same ordering rule: a resource
// created against the engine is recorded in the session before the response
// goes out, so a concurrent close can never miss it.

// handleCapabilities is a pure read of the routing context.
func (ctl *Controller) handleCapabilities(_ *core.ClientSession, c core.SignalConnection) {
	ctl.respond(c, msgRouterRtpCapabilities, ctl.Media.Router().Capabilities())
}

// handleProducers is a pure read of the two fixed producer identifiers.
func (ctl *Controller) handleProducers(_ *core.ClientSession, c core.SignalConnection) {
	ctl.respond(c, msgProducers, producersData{
		VideoProducerID: ctl.Media.VideoProducer().ID(),
		AudioProducerID: ctl.Media.AudioProducer().ID(),
	})
}

func (ctl *Controller) handleCreateTransport(ctx context.Context, sess *core.ClientSession, c core.SignalConnection) {
	t, err := ctl.Media.Router().CreateClientTransport(ctx)
	if err != nil {
		metrics.RequestsDroppedTotal.WithLabelValues("engine_failure").Inc()
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("create transport")
		return
	}

	displaced, ok := sess.AdoptTransport(t)
	if !ok {
		// Session closed while the engine was still creating; close the late
		// arrival immediately instead of orphaning it.
		if err := t.Close(); err != nil {
			log.Error().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("late transport close")
		}
		return
	}
	ctl.closeDisplaced(sess, displaced)

	metrics.TransportsCreatedTotal.Inc()
	ctl.respond(c, msgTransportCreated, transportCreatedData{
		ID:             t.ID(),
		IceParameters:  t.ICEParameters(),
		IceCandidates:  t.ICECandidates(),
		DtlsParameters: t.DTLSParameters(),
	})
}

func (ctl *Controller) handleConnectTransport(ctx context.Context, sess *core.ClientSession, c core.SignalConnection, data []byte) {
	var p connectTransportPayload
	if err := json.Unmarshal(data, &p); err != nil {
		metrics.RequestsDroppedTotal.WithLabelValues("bad_payload").Inc()
		log.Error().Err(err).Str("module", "signal").Msg("bad connectTransport payload")
		return
	}

	t := sess.Transport()
	if t == nil {
		// Fire-and-forget failure: no response, the client must time out.
		metrics.RequestsDroppedTotal.WithLabelValues("missing_transport").Inc()
		log.Warn().Str("module", "signal").Str("sid", string(sess.ID())).
			Err(core.ErrMissingTransport).Msg("connectTransport rejected")
		return
	}

	if err := t.Connect(ctx, core.ConnectParameters{
		DTLSParameters: p.DtlsParameters,
		ICEParameters:  p.IceParameters,
	}); err != nil {
		metrics.RequestsDroppedTotal.WithLabelValues("engine_failure").Inc()
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("connect transport")
		return
	}

	ctl.respond(c, msgTransportConnected, nil)
}

func (ctl *Controller) handleConsume(ctx context.Context, sess *core.ClientSession, c core.SignalConnection, data []byte) {
	var p consumePayload
	if err := json.Unmarshal(data, &p); err != nil {
		metrics.RequestsDroppedTotal.WithLabelValues("bad_payload").Inc()
		log.Error().Err(err).Str("module", "signal").Msg("bad consume payload")
		return
	}

	t := sess.Transport()
	if t == nil {
		metrics.RequestsDroppedTotal.WithLabelValues("missing_transport").Inc()
		log.Warn().Str("module", "signal").Str("sid", string(sess.ID())).
			Err(core.ErrMissingTransport).Msg("consume rejected")
		return
	}

	prod, ok := ctl.Media.ProducerByID(p.ProducerID)
	if !ok {
		metrics.RequestsDroppedTotal.WithLabelValues("unknown_producer").Inc()
		log.Warn().Str("module", "signal").Str("sid", string(sess.ID())).
			Str("producer", p.ProducerID).Err(core.ErrUnknownProducer).Msg("consume rejected")
		return
	}

	cons, err := t.Consume(ctx, prod, p.RtpCapabilities)
	if err != nil {
		metrics.RequestsDroppedTotal.WithLabelValues("engine_failure").Inc()
		log.Error().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("consume")
		return
	}

	prev, ok := sess.AdoptConsumer(cons)
	if !ok {
		if err := cons.Close(); err != nil {
			log.Error().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("late consumer close")
		}
		return
	}
	if prev != nil {
		// Re-consuming a kind replaces the consumer; the displaced one is
		// closed here instead of leaking.
		log.Info().Str("module", "signal").Str("sid", string(sess.ID())).
			Str("kind", string(prev.Kind())).Msg("replacing consumer")
		if err := prev.Close(); err != nil {
			log.Error().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("stale consumer close")
		}
	}

	metrics.ConsumersCreatedTotal.WithLabelValues(string(cons.Kind())).Inc()
	ctl.respond(c, msgConsumed, consumedData{
		ID:            cons.ID(),
		ProducerID:    cons.ProducerID(),
		Kind:          cons.Kind(),
		RtpParameters: cons.RTPParameters(),
	})
}

// closeDisplaced closes resources pushed out of a session by a replacement:
// stale consumers first, then the stale transport.
func (ctl *Controller) closeDisplaced(sess *core.ClientSession, d core.Displaced) {
	for _, cons := range d.Consumers {
		if err := cons.Close(); err != nil {
			log.Error().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("displaced consumer close")
		}
	}
	if d.Transport != nil {
		log.Info().Str("module", "signal").Str("sid", string(sess.ID())).
			Str("transport", d.Transport.ID()).Msg("replacing transport")
		if err := d.Transport.Close(); err != nil {
			log.Error().Err(err).Str("module", "signal").Str("sid", string(sess.ID())).Msg("displaced transport close")
		}
	}
}
