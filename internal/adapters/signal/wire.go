package signal

import (
	"github.com/pion/webrtc/v4"

	"github.com/solocast/solocast/internal/core"
)

// Inbound message tags. Anything else is ignored.
const (
	msgGetRouterRtpCapabilities = "getRouterRtpCapabilities"
	msgGetProducers             = "getProducers"
	msgCreateTransport          = "createTransport"
	msgConnectTransport         = "connectTransport"
	msgConsume                  = "consume"
)

// Outbound message tags.
const (
	msgRouterRtpCapabilities = "routerRtpCapabilities"
	msgProducers             = "producers"
	msgTransportCreated      = "transportCreated"
	msgTransportConnected    = "transportConnected"
	msgConsumed              = "consumed"
)

// envelope is the tagged-object shape shared by both directions.
type envelope struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

type connectTransportPayload struct {
	Type           string                `json:"type"`
	DtlsParameters webrtc.DTLSParameters `json:"dtlsParameters"`
	// IceParameters are consumed by the pion engine (remote ufrag/pwd for the
	// ICE start); absence is an engine-level connect failure.
	IceParameters *webrtc.ICEParameters `json:"iceParameters,omitempty"`
}

type consumePayload struct {
	Type            string                    `json:"type"`
	ProducerID      string                    `json:"producerId"`
	RtpCapabilities core.ReceiverCapabilities `json:"rtpCapabilities"`
}

type producersData struct {
	VideoProducerID string `json:"videoProducerId"`
	AudioProducerID string `json:"audioProducerId"`
}

type transportCreatedData struct {
	ID             string                `json:"id"`
	IceParameters  webrtc.ICEParameters  `json:"iceParameters"`
	IceCandidates  []webrtc.ICECandidate `json:"iceCandidates"`
	DtlsParameters webrtc.DTLSParameters `json:"dtlsParameters"`
}

type consumedData struct {
	ID            string                     `json:"id"`
	ProducerID    string                     `json:"producerId"`
	Kind          core.MediaKind             `json:"kind"`
	RtpParameters core.ConsumerRTPParameters `json:"rtpParameters"`
}
