package app

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/solocast/solocast/internal/config"
	"github.com/solocast/solocast/internal/core"
)

type stubProducer struct {
	id   string
	kind core.MediaKind
	port int
}

func (p *stubProducer) ID() string           { return p.id }
func (p *stubProducer) Kind() core.MediaKind { return p.kind }
func (p *stubProducer) Port() int            { return p.port }
func (p *stubProducer) Closed() bool         { return false }
func (p *stubProducer) Close() error         { return nil }

// stubRouter hands out one producer per ingest request and records the
// options it was asked for.
type stubRouter struct {
	requests []core.IngestOptions
	failKind core.MediaKind
}

func (r *stubRouter) Capabilities() core.RouterCapabilities { return core.RouterCapabilities{} }

func (r *stubRouter) CreateIngest(_ context.Context, opts core.IngestOptions) (core.Producer, error) {
	if opts.Kind == r.failKind {
		return nil, errors.New("port in use")
	}
	r.requests = append(r.requests, opts)
	return &stubProducer{
		id:   fmt.Sprintf("p-%s", opts.Kind),
		kind: opts.Kind,
		port: 40000 + len(r.requests),
	}, nil
}

func (r *stubRouter) CreateClientTransport(_ context.Context) (core.Transport, error) {
	return nil, errors.New("not implemented")
}

func (r *stubRouter) Close() error { return nil }

func TestBootstrap_CreatesBothIngests(t *testing.T) {
	router := &stubRouter{}
	cfg := &config.Config{VideoRTPPort: 5000, AudioRTPPort: 5002}

	mc, err := Bootstrap(context.Background(), router, cfg)
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	if len(router.requests) != 2 {
		t.Fatalf("expected 2 ingest requests, got %d", len(router.requests))
	}
	video, audio := router.requests[0], router.requests[1]
	if video.Kind != core.MediaKindVideo || video.SSRC != VideoSSRC || video.PayloadType != VideoPayloadType || video.Port != 5000 {
		t.Fatalf("video ingest options wrong: %+v", video)
	}
	if audio.Kind != core.MediaKindAudio || audio.SSRC != AudioSSRC || audio.PayloadType != AudioPayloadType || audio.Port != 5002 {
		t.Fatalf("audio ingest options wrong: %+v", audio)
	}

	if mc.VideoProducer().Kind() != core.MediaKindVideo {
		t.Fatalf("video producer has kind %s", mc.VideoProducer().Kind())
	}
	if mc.AudioProducer().Kind() != core.MediaKindAudio {
		t.Fatalf("audio producer has kind %s", mc.AudioProducer().Kind())
	}
}

func TestBootstrap_PropagatesIngestFailure(t *testing.T) {
	for _, kind := range []core.MediaKind{core.MediaKindVideo, core.MediaKindAudio} {
		router := &stubRouter{failKind: kind}
		if _, err := Bootstrap(context.Background(), router, &config.Config{}); err == nil {
			t.Fatalf("bootstrap must fail when the %s ingest cannot be created", kind)
		}
	}
}

func TestProducerByID(t *testing.T) {
	mc, err := Bootstrap(context.Background(), &stubRouter{}, &config.Config{})
	if err != nil {
		t.Fatalf("bootstrap: %v", err)
	}

	if p, ok := mc.ProducerByID(mc.VideoProducer().ID()); !ok || p.Kind() != core.MediaKindVideo {
		t.Fatalf("video producer id must resolve to the video producer")
	}
	if p, ok := mc.ProducerByID(mc.AudioProducer().ID()); !ok || p.Kind() != core.MediaKindAudio {
		t.Fatalf("audio producer id must resolve to the audio producer")
	}
	if _, ok := mc.ProducerByID("made-up"); ok {
		t.Fatalf("an unknown id must not resolve to anything")
	}
	if _, ok := mc.ProducerByID(""); ok {
		t.Fatalf("an empty id must not resolve to anything")
	}
}
