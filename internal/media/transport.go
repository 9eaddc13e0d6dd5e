package media

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/solocast/solocast/internal/core"
)

// CreateClientTransport builds the ICE/DTLS stack for one viewer and gathers
// its local candidates. The returned parameters go back to the client in the
// transportCreated response; the transport is not connected until the client
// supplies its own parameters via Connect.
func (r *Router) CreateClientTransport(ctx context.Context) (core.Transport, error) {
	gatherer, err := r.api.NewICEGatherer(webrtc.ICEGatherOptions{})
	if err != nil {
		return nil, fmt.Errorf("ice gatherer: %w", err)
	}
	ice := r.api.NewICETransport(gatherer)
	dtls, err := r.api.NewDTLSTransport(ice, nil)
	if err != nil {
		_ = gatherer.Close()
		return nil, fmt.Errorf("dtls transport: %w", err)
	}

	gatherDone := make(chan struct{})
	gatherer.OnLocalCandidate(func(c *webrtc.ICECandidate) {
		if c == nil {
			close(gatherDone)
		}
	})
	if err := gatherer.Gather(); err != nil {
		_ = gatherer.Close()
		return nil, fmt.Errorf("ice gather: %w", err)
	}
	select {
	case <-gatherDone:
	case <-ctx.Done():
		_ = gatherer.Close()
		return nil, ctx.Err()
	}

	candidates, err := gatherer.GetLocalCandidates()
	if err != nil {
		_ = gatherer.Close()
		return nil, fmt.Errorf("local candidates: %w", err)
	}
	iceParams, err := gatherer.GetLocalParameters()
	if err != nil {
		_ = gatherer.Close()
		return nil, fmt.Errorf("local ice parameters: %w", err)
	}
	dtlsParams, err := dtls.GetLocalParameters()
	if err != nil {
		_ = gatherer.Close()
		return nil, fmt.Errorf("local dtls parameters: %w", err)
	}

	t := &clientTransport{
		id:         uuid.NewString(),
		api:        r.api,
		gatherer:   gatherer,
		ice:        ice,
		dtls:       dtls,
		iceParams:  iceParams,
		candidates: candidates,
		dtlsParams: dtlsParams,
	}
	t.logger = log.With().Str("module", "media.transport").Str("transport", t.id).Logger()
	t.logger.Info().Int("candidates", len(candidates)).Msg("client transport created")
	return t, nil
}

// clientTransport implements core.Transport over the pion ORTC primitives.
type clientTransport struct {
	id       string
	api      *webrtc.API
	gatherer *webrtc.ICEGatherer
	ice      *webrtc.ICETransport
	dtls     *webrtc.DTLSTransport
	logger   zerolog.Logger

	iceParams  webrtc.ICEParameters
	candidates []webrtc.ICECandidate
	dtlsParams webrtc.DTLSParameters

	mu     sync.Mutex
	closed bool
}

func (t *clientTransport) ID() string { return t.id }

func (t *clientTransport) ICEParameters() webrtc.ICEParameters {
	return t.iceParams
}

func (t *clientTransport) ICECandidates() []webrtc.ICECandidate {
	return t.candidates
}

func (t *clientTransport) DTLSParameters() webrtc.DTLSParameters {
	return t.dtlsParams
}

// Connect starts ICE (controlled role, the browser drives connectivity
// checks) and then the DTLS handshake with the client's parameters. Calling
// Connect twice is undefined at this level; pion will reject the restart.
func (t *clientTransport) Connect(ctx context.Context, params core.ConnectParameters) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return errors.New("transport closed")
	}
	t.mu.Unlock()

	if params.ICEParameters == nil {
		return errors.New("connect: missing remote ice parameters")
	}

	role := webrtc.ICERoleControlled
	if err := t.ice.Start(t.gatherer, *params.ICEParameters, &role); err != nil {
		return fmt.Errorf("ice start: %w", err)
	}
	if err := t.dtls.Start(params.DTLSParameters); err != nil {
		return fmt.Errorf("dtls start: %w", err)
	}
	t.logger.Info().Msg("transport connected")
	return nil
}

// Consume binds an RTP sender for the producer's track onto this transport.
// The consumer starts unpaused; packets flow as soon as the DTLS/SRTP path
// is up.
func (t *clientTransport) Consume(ctx context.Context, prod core.Producer, caps core.ReceiverCapabilities) (core.Consumer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	p, ok := prod.(*producer)
	if !ok {
		return nil, errors.New("consume: producer is not owned by this engine")
	}
	if p.Closed() {
		return nil, errors.New("consume: producer closed")
	}
	codec := codecForKind(p.kind)
	if !caps.SupportsMime(codec.MimeType) {
		return nil, fmt.Errorf("consume: receiver does not support %s", codec.MimeType)
	}

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil, errors.New("transport closed")
	}
	t.mu.Unlock()

	sender, err := t.api.NewRTPSender(p.track, t.dtls)
	if err != nil {
		return nil, fmt.Errorf("rtp sender: %w", err)
	}
	params := sender.GetParameters()
	if err := sender.Send(params); err != nil {
		_ = sender.Stop()
		return nil, fmt.Errorf("rtp sender start: %w", err)
	}

	c := &consumer{
		id:         uuid.NewString(),
		producerID: p.id,
		kind:       p.kind,
		sender:     sender,
		params:     wireSendParameters(params),
	}
	t.logger.Info().Str("consumer", c.id).Str("kind", string(c.kind)).Msg("consumer created")
	return c, nil
}

func (t *clientTransport) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()

	err := errors.Join(t.dtls.Stop(), t.ice.Stop(), t.gatherer.Close())
	t.logger.Info().Msg("client transport closed")
	return err
}

// consumer implements core.Consumer around one ORTC RTP sender. Stopping the
// sender detaches it from the shared track without touching the producer.
type consumer struct {
	id         string
	producerID string
	kind       core.MediaKind
	sender     *webrtc.RTPSender
	params     core.ConsumerRTPParameters

	closeOnce sync.Once
	closeErr  error
}

func (c *consumer) ID() string           { return c.id }
func (c *consumer) ProducerID() string   { return c.producerID }
func (c *consumer) Kind() core.MediaKind { return c.kind }

func (c *consumer) RTPParameters() core.ConsumerRTPParameters {
	return c.params
}

func (c *consumer) Close() error {
	c.closeOnce.Do(func() {
		c.closeErr = c.sender.Stop()
	})
	return c.closeErr
}

func wireSendParameters(params webrtc.RTPSendParameters) core.ConsumerRTPParameters {
	out := core.ConsumerRTPParameters{}
	for _, c := range params.Codecs {
		out.Codecs = append(out.Codecs, core.CodecParameters{
			MimeType:    c.MimeType,
			PayloadType: uint8(c.PayloadType),
			ClockRate:   c.ClockRate,
			Channels:    c.Channels,
			SDPFmtpLine: c.SDPFmtpLine,
		})
	}
	for _, e := range params.Encodings {
		out.Encodings = append(out.Encodings, core.EncodingParameters{SSRC: uint32(e.SSRC)})
	}
	return out
}
