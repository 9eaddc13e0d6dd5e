package app

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/solocast/solocast/internal/config"
	"github.com/solocast/solocast/internal/core"
)

// Protocol constants of the ingest pathways. An external RTP sender must
// match them exactly or its frames are dropped by the engine.
const (
	VideoSSRC        uint32 = 11111111
	AudioSSRC        uint32 = 22222222
	VideoPayloadType uint8  = 96
	AudioPayloadType uint8  = 97
)

// MediaContext is the process-wide routing context: the engine router plus
// the two fixed producers. Built once by Bootstrap before any signaling
// connection is accepted and read-only afterwards. It is passed explicitly
// to every component that needs it, never kept as a package global.
type MediaContext struct {
	router core.Router
	video  core.Producer
	audio  core.Producer
}

// Bootstrap opens the two fixed ingest pathways and returns the populated
// routing context. Any failure here is fatal for process startup.
func Bootstrap(ctx context.Context, router core.Router, cfg *config.Config) (*MediaContext, error) {
	video, err := router.CreateIngest(ctx, core.IngestOptions{
		Kind:        core.MediaKindVideo,
		SSRC:        VideoSSRC,
		PayloadType: VideoPayloadType,
		Port:        cfg.VideoRTPPort,
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap video ingest: %w", err)
	}
	audio, err := router.CreateIngest(ctx, core.IngestOptions{
		Kind:        core.MediaKindAudio,
		SSRC:        AudioSSRC,
		PayloadType: AudioPayloadType,
		Port:        cfg.AudioRTPPort,
	})
	if err != nil {
		return nil, fmt.Errorf("bootstrap audio ingest: %w", err)
	}

	log.Info().Str("module", "app.bootstrap").
		Str("video_producer", video.ID()).Int("video_rtp_port", video.Port()).
		Str("audio_producer", audio.ID()).Int("audio_rtp_port", audio.Port()).
		Msg("producers created")

	return &MediaContext{router: router, video: video, audio: audio}, nil
}

func (m *MediaContext) Router() core.Router        { return m.router }
func (m *MediaContext) VideoProducer() core.Producer { return m.video }
func (m *MediaContext) AudioProducer() core.Producer { return m.audio }

// ProducerByID resolves a consume request against the two fixed producers.
// There is no default: an identifier matching neither producer is an
// unknown-producer condition and the request must be dropped.
func (m *MediaContext) ProducerByID(id string) (core.Producer, bool) {
	switch id {
	case m.video.ID():
		return m.video, true
	case m.audio.ID():
		return m.audio, true
	default:
		return nil, false
	}
}
