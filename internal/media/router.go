package media

import (
	"errors"
	"fmt"
	"net"
	"sync"

	"github.com/pion/interceptor"
	"github.com/pion/logging"
	"github.com/pion/webrtc/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/solocast/solocast/internal/core"
	"github.com/solocast/solocast/internal/metrics"
)

// Config for the pion-backed router.
type Config struct {
	// AnnouncedIP is announced in host candidates instead of the local bind
	// address (NAT 1:1). Empty disables the mapping.
	AnnouncedIP string

	// MinPort/MaxPort constrain the ephemeral UDP range used for client
	// transports. 0/0 leaves the range unconstrained.
	MinPort uint16
	MaxPort uint16

	// TCPPort enables an ICE TCP mux listener so transports offer both UDP
	// and TCP candidates (UDP stays preferred by candidate priority).
	// 0 disables TCP candidates.
	TCPPort int
}

// Router implements core.Router on top of the pion ORTC API. One Router is
// created at startup; it owns the ingest producers it creates and the
// optional ICE TCP listener.
type Router struct {
	api    *webrtc.API
	caps   core.RouterCapabilities
	logger zerolog.Logger

	tcpListener net.Listener

	mu        sync.Mutex
	producers []*producer
	closed    bool
}

func NewRouter(cfg Config) (*Router, error) {
	me := &webrtc.MediaEngine{}
	if err := me.RegisterCodec(videoCodec, webrtc.RTPCodecTypeVideo); err != nil {
		return nil, fmt.Errorf("register video codec: %w", err)
	}
	if err := me.RegisterCodec(audioCodec, webrtc.RTPCodecTypeAudio); err != nil {
		return nil, fmt.Errorf("register audio codec: %w", err)
	}

	ir := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(me, ir); err != nil {
		return nil, fmt.Errorf("register interceptors: %w", err)
	}

	lf := logging.NewDefaultLoggerFactory()
	se := webrtc.SettingEngine{LoggerFactory: lf}

	networkTypes := []webrtc.NetworkType{webrtc.NetworkTypeUDP4}
	if cfg.AnnouncedIP != "" {
		se.SetNAT1To1IPs([]string{cfg.AnnouncedIP}, webrtc.ICECandidateTypeHost)
	}
	if cfg.MinPort != 0 || cfg.MaxPort != 0 {
		if err := se.SetEphemeralUDPPortRange(cfg.MinPort, cfg.MaxPort); err != nil {
			return nil, fmt.Errorf("set udp port range: %w", err)
		}
	}

	var tcpListener net.Listener
	if cfg.TCPPort > 0 {
		ln, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.TCPPort))
		if err != nil {
			return nil, fmt.Errorf("rtc tcp listener: %w", err)
		}
		tcpListener = ln
		se.SetICETCPMux(webrtc.NewICETCPMux(lf.NewLogger("ice-tcp"), ln, 8))
		networkTypes = append(networkTypes, webrtc.NetworkTypeTCP4)
	}
	se.SetNetworkTypes(networkTypes)

	r := &Router{
		api: webrtc.NewAPI(
			webrtc.WithMediaEngine(me),
			webrtc.WithSettingEngine(se),
			webrtc.WithInterceptorRegistry(ir),
		),
		caps:        routerCapabilities(),
		logger:      log.With().Str("module", "media.router").Logger(),
		tcpListener: tcpListener,
	}
	r.logger.Info().Str("announced_ip", cfg.AnnouncedIP).Int("tcp_port", cfg.TCPPort).Msg("media router ready")
	return r, nil
}

func (r *Router) Capabilities() core.RouterCapabilities {
	return r.caps
}

// Close stops the ingest producers and the TCP candidate listener. Client
// transports are owned by their sessions and are not touched here.
func (r *Router) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	producers := r.producers
	r.producers = nil
	r.mu.Unlock()

	var errs []error
	for _, p := range producers {
		if err := p.Close(); err != nil {
			metrics.ResourceCloseFailuresTotal.WithLabelValues("producer").Inc()
			errs = append(errs, err)
		}
	}
	if r.tcpListener != nil {
		if err := r.tcpListener.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
