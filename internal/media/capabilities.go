package media

import (
	"github.com/pion/webrtc/v4"

	"github.com/solocast/solocast/internal/core"
)

// The two fixed codecs carried by the router. These are not negotiated per
// client; they mirror what the external RTP sender is expected to produce.
var (
	videoCodec = webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:    webrtc.MimeTypeH264,
			ClockRate:   90000,
			SDPFmtpLine: "level-asymmetry-allowed=1;packetization-mode=1;profile-level-id=42e01f",
		},
		PayloadType: 96,
	}
	audioCodec = webrtc.RTPCodecParameters{
		RTPCodecCapability: webrtc.RTPCodecCapability{
			MimeType:    webrtc.MimeTypeOpus,
			ClockRate:   48000,
			Channels:    2,
			SDPFmtpLine: "minptime=10;useinbandfec=1",
		},
		PayloadType: 97,
	}
)

func codecForKind(kind core.MediaKind) webrtc.RTPCodecParameters {
	if kind == core.MediaKindVideo {
		return videoCodec
	}
	return audioCodec
}

func routerCapabilities() core.RouterCapabilities {
	return core.RouterCapabilities{
		Codecs: []core.CodecCapability{
			{
				Kind:                 core.MediaKindVideo,
				MimeType:             videoCodec.MimeType,
				PreferredPayloadType: uint8(videoCodec.PayloadType),
				ClockRate:            videoCodec.ClockRate,
				SDPFmtpLine:          videoCodec.SDPFmtpLine,
			},
			{
				Kind:                 core.MediaKindAudio,
				MimeType:             audioCodec.MimeType,
				PreferredPayloadType: uint8(audioCodec.PayloadType),
				ClockRate:            audioCodec.ClockRate,
				Channels:             audioCodec.Channels,
				SDPFmtpLine:          audioCodec.SDPFmtpLine,
			},
		},
		HeaderExtensions: []core.HeaderExtensionCapability{},
	}
}
