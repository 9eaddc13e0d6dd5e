package media

import (
	"reflect"
	"testing"

	"github.com/pion/webrtc/v4"

	"github.com/solocast/solocast/internal/core"
)

func TestRouterCapabilities(t *testing.T) {
	caps := routerCapabilities()

	if len(caps.Codecs) != 2 {
		t.Fatalf("expected exactly 2 codecs, got %d", len(caps.Codecs))
	}

	video := caps.Codecs[0]
	if video.Kind != core.MediaKindVideo || video.MimeType != webrtc.MimeTypeH264 {
		t.Fatalf("first codec must be the H264 video codec: %+v", video)
	}
	if video.PreferredPayloadType != 96 || video.ClockRate != 90000 {
		t.Fatalf("video codec parameters wrong: %+v", video)
	}

	audio := caps.Codecs[1]
	if audio.Kind != core.MediaKindAudio || audio.MimeType != webrtc.MimeTypeOpus {
		t.Fatalf("second codec must be the opus audio codec: %+v", audio)
	}
	if audio.PreferredPayloadType != 97 || audio.ClockRate != 48000 || audio.Channels != 2 {
		t.Fatalf("audio codec parameters wrong: %+v", audio)
	}

	// Immutable per engine lifetime: every read sees the same value.
	if !reflect.DeepEqual(caps, routerCapabilities()) {
		t.Fatalf("capabilities must be stable across reads")
	}
}

func TestCodecForKind(t *testing.T) {
	if got := codecForKind(core.MediaKindVideo); got.MimeType != webrtc.MimeTypeH264 {
		t.Fatalf("video kind resolved to %s", got.MimeType)
	}
	if got := codecForKind(core.MediaKindAudio); got.MimeType != webrtc.MimeTypeOpus {
		t.Fatalf("audio kind resolved to %s", got.MimeType)
	}
}
