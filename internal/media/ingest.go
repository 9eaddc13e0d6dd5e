package media

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/pion/rtcp"
	"github.com/pion/rtp"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/solocast/solocast/internal/core"
	"github.com/solocast/solocast/internal/metrics"
)

// CreateIngest opens one plain RTP receive pathway: an RTP socket plus a
// non-multiplexed RTCP socket on the adjacent port. The sender's address is
// learned from the first packet (comedia); until then the tuple is unknown.
func (r *Router) CreateIngest(ctx context.Context, opts core.IngestOptions) (core.Producer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	codec := codecForKind(opts.Kind)
	track, err := webrtc.NewTrackLocalStaticRTP(codec.RTPCodecCapability, string(opts.Kind), "solocast")
	if err != nil {
		return nil, fmt.Errorf("ingest track: %w", err)
	}

	rtpConn, rtcpConn, err := listenRTPPair(opts.Port)
	if err != nil {
		return nil, fmt.Errorf("ingest %s: %w", opts.Kind, err)
	}

	p := &producer{
		id:          uuid.NewString(),
		kind:        opts.Kind,
		ssrc:        opts.SSRC,
		payloadType: opts.PayloadType,
		track:       track,
		rtpConn:     rtpConn,
		rtcpConn:    rtcpConn,
	}
	p.logger = log.With().
		Str("module", "media.ingest").
		Str("kind", string(opts.Kind)).
		Str("producer", p.id).
		Logger()

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = rtpConn.Close()
		_ = rtcpConn.Close()
		return nil, errors.New("router closed")
	}
	r.producers = append(r.producers, p)
	r.mu.Unlock()

	go p.rtpLoop()
	go p.rtcpLoop()

	p.logger.Info().Int("rtp_port", p.Port()).Uint32("ssrc", opts.SSRC).Msg("ingest listening")
	return p, nil
}

// listenRTPPair binds RTP and RTCP on adjacent ports. With port 0 it retries
// until a free adjacent pair is found.
func listenRTPPair(port int) (*net.UDPConn, *net.UDPConn, error) {
	if port > 0 {
		rtpConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: port})
		if err != nil {
			return nil, nil, err
		}
		rtcpConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: port + 1})
		if err != nil {
			_ = rtpConn.Close()
			return nil, nil, err
		}
		return rtpConn, rtcpConn, nil
	}

	for attempt := 0; attempt < 10; attempt++ {
		rtpConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: 0})
		if err != nil {
			return nil, nil, err
		}
		rtpPort := rtpConn.LocalAddr().(*net.UDPAddr).Port
		rtcpConn, err := net.ListenUDP("udp4", &net.UDPAddr{IP: net.IPv4zero, Port: rtpPort + 1})
		if err != nil {
			_ = rtpConn.Close()
			continue
		}
		return rtpConn, rtcpConn, nil
	}
	return nil, nil, errors.New("no adjacent rtp/rtcp port pair available")
}

// producer implements core.Producer for one plain ingest pathway.
type producer struct {
	id          string
	kind        core.MediaKind
	ssrc        uint32
	payloadType uint8
	track       *webrtc.TrackLocalStaticRTP
	rtpConn     *net.UDPConn
	rtcpConn    *net.UDPConn
	logger      zerolog.Logger

	closed  atomic.Bool
	remote  atomic.Pointer[net.UDPAddr]
	packets atomic.Uint64
	bytes   atomic.Uint64
}

func (p *producer) ID() string           { return p.id }
func (p *producer) Kind() core.MediaKind { return p.kind }
func (p *producer) Closed() bool         { return p.closed.Load() }

func (p *producer) Port() int {
	return p.rtpConn.LocalAddr().(*net.UDPAddr).Port
}

// RemoteAddr is the comedia-learned sender tuple; nil until the first packet.
func (p *producer) RemoteAddr() *net.UDPAddr {
	return p.remote.Load()
}

func (p *producer) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}
	err := errors.Join(p.rtpConn.Close(), p.rtcpConn.Close())
	p.logger.Info().Msg("ingest closed")
	return err
}

func (p *producer) rtpLoop() {
	kind := string(p.kind)
	buf := make([]byte, 1700)
	for {
		n, addr, err := p.rtpConn.ReadFromUDP(buf)
		if err != nil {
			if !p.closed.Load() {
				p.logger.Error().Err(err).Msg("rtp read failed, stopping ingest")
			}
			return
		}
		if p.remote.Load() == nil {
			p.remote.Store(addr)
			p.logger.Info().Str("remote", addr.String()).Msg("sender tuple learned")
		}

		pkt := &rtp.Packet{}
		if err := pkt.Unmarshal(buf[:n]); err != nil {
			metrics.RTPPacketsDroppedTotal.WithLabelValues(kind, "malformed").Inc()
			continue
		}
		// The SSRC and payload type are protocol constants; anything else is
		// silently dropped, exactly like the engine boundary promises.
		if pkt.SSRC != p.ssrc || pkt.PayloadType != p.payloadType {
			metrics.RTPPacketsDroppedTotal.WithLabelValues(kind, "foreign_source").Inc()
			continue
		}
		if err := p.track.WriteRTP(pkt); err != nil {
			metrics.RTPPacketsDroppedTotal.WithLabelValues(kind, "write_failed").Inc()
			continue
		}
		p.packets.Add(1)
		p.bytes.Add(uint64(n))
		metrics.RTPPacketsTotal.WithLabelValues(kind).Inc()
		metrics.RTPBytesTotal.WithLabelValues(kind).Add(float64(n))
	}
}

// rtcpLoop drains the control socket. Sender reports are only counted; the
// fan-out itself does not react to them.
func (p *producer) rtcpLoop() {
	kind := string(p.kind)
	buf := make([]byte, 1700)
	for {
		n, _, err := p.rtcpConn.ReadFromUDP(buf)
		if err != nil {
			return
		}
		pkts, err := rtcp.Unmarshal(buf[:n])
		if err != nil {
			continue
		}
		metrics.RTCPPacketsTotal.WithLabelValues(kind).Add(float64(len(pkts)))
	}
}
