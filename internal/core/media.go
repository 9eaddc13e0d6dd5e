package core

import (
	"context"
	"errors"
	"strings"

	"github.com/pion/webrtc/v4"
)

// MediaKind is one of the two fixed media kinds the router carries.
type MediaKind string

const (
	MediaKindVideo MediaKind = "video"
	MediaKindAudio MediaKind = "audio"
)

var (
	// ErrMissingTransport rejects an operation that needs a negotiated
	// transport on a session that has none. The request is dropped, no
	// response is sent.
	ErrMissingTransport = errors.New("session has no transport")

	// ErrUnknownProducer rejects a consume request whose producerId matches
	// neither fixed producer.
	ErrUnknownProducer = errors.New("unknown producer id")
)

// RouterCapabilities is the immutable codec/routing description negotiated
// at engine creation. Clients fetch it once before consuming.
type RouterCapabilities struct {
	Codecs           []CodecCapability           `json:"codecs"`
	HeaderExtensions []HeaderExtensionCapability `json:"headerExtensions"`
}

type CodecCapability struct {
	Kind                 MediaKind `json:"kind"`
	MimeType             string    `json:"mimeType"`
	PreferredPayloadType uint8     `json:"preferredPayloadType"`
	ClockRate            uint32    `json:"clockRate"`
	Channels             uint16    `json:"channels,omitempty"`
	SDPFmtpLine          string    `json:"sdpFmtpLine,omitempty"`
}

type HeaderExtensionCapability struct {
	URI string `json:"uri"`
}

// ReceiverCapabilities is what a client declares it can receive when it asks
// to consume. An empty codec list is treated as "anything".
type ReceiverCapabilities struct {
	Codecs []CodecCapability `json:"codecs"`
}

// SupportsMime reports whether the declared capabilities include the given
// mime type.
func (rc ReceiverCapabilities) SupportsMime(mime string) bool {
	if len(rc.Codecs) == 0 {
		return true
	}
	for _, c := range rc.Codecs {
		if strings.EqualFold(c.MimeType, mime) {
			return true
		}
	}
	return false
}

// ConsumerRTPParameters describe what a consumer will actually send to its
// client: the negotiated codec and the engine-chosen outbound SSRC.
type ConsumerRTPParameters struct {
	Codecs    []CodecParameters    `json:"codecs"`
	Encodings []EncodingParameters `json:"encodings"`
}

type CodecParameters struct {
	MimeType    string `json:"mimeType"`
	PayloadType uint8  `json:"payloadType"`
	ClockRate   uint32 `json:"clockRate"`
	Channels    uint16 `json:"channels,omitempty"`
	SDPFmtpLine string `json:"sdpFmtpLine,omitempty"`
}

type EncodingParameters struct {
	SSRC uint32 `json:"ssrc"`
}

// IngestOptions declare one fixed RTP ingest pathway. SSRC and PayloadType
// are protocol constants: a sender that does not match them exactly has its
// frames silently dropped. Port 0 lets the engine pick the receive port.
type IngestOptions struct {
	Kind        MediaKind
	SSRC        uint32
	PayloadType uint8
	Port        int
}

// ConnectParameters carry the client's connection-establishment parameters
// for Transport.Connect. ICEParameters are required by the pion engine (the
// remote ufrag/pwd cannot be learned any other way); an engine is free to
// fail the connect when they are absent.
type ConnectParameters struct {
	DTLSParameters webrtc.DTLSParameters `json:"dtlsParameters"`
	ICEParameters  *webrtc.ICEParameters `json:"iceParameters,omitempty"`
}

// Router is the opaque media-engine routing capability. Created once at
// startup and read-only afterwards; safe for concurrent use by any number of
// sessions.
type Router interface {
	Capabilities() RouterCapabilities
	CreateIngest(ctx context.Context, opts IngestOptions) (Producer, error)
	CreateClientTransport(ctx context.Context) (Transport, error)
	Close() error
}

// Producer is one process-owned ingest pathway delivering one media kind
// into the router. Producers are never replaced or recreated per client.
type Producer interface {
	ID() string
	Kind() MediaKind
	// Port is the local RTP receive port of the ingest pathway.
	Port() int
	Closed() bool
	Close() error
}

// Transport is a per-client connectivity+security context. Owned exclusively
// by one session.
type Transport interface {
	ID() string
	ICEParameters() webrtc.ICEParameters
	ICECandidates() []webrtc.ICECandidate
	DTLSParameters() webrtc.DTLSParameters
	Connect(ctx context.Context, params ConnectParameters) error
	Consume(ctx context.Context, producer Producer, caps ReceiverCapabilities) (Consumer, error)
	Close() error
}

// Consumer forwards one producer's media to one client transport. Closing a
// consumer never affects its source producer.
type Consumer interface {
	ID() string
	ProducerID() string
	Kind() MediaKind
	RTPParameters() ConsumerRTPParameters
	Close() error
}
