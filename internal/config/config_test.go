package config

import (
	"testing"
	"time"
)

// The package test directory carries no config file, so Load falls back to
// its defaults.
func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Mode != "release" {
		t.Errorf("mode = %q, want release", cfg.Mode)
	}
	if cfg.Port != 3000 {
		t.Errorf("port = %d, want 3000", cfg.Port)
	}
	if cfg.StaticPath != "./web" {
		t.Errorf("static_path = %q", cfg.StaticPath)
	}
	if cfg.ReadLimit != 32768 {
		t.Errorf("read_limit = %d", cfg.ReadLimit)
	}
	if cfg.PingPeriod != 30*time.Second {
		t.Errorf("ping_period = %s, want 30s", cfg.PingPeriod)
	}
	if cfg.AnnouncedIP != "" {
		t.Errorf("announced_ip = %q, want empty", cfg.AnnouncedIP)
	}
	if cfg.VideoRTPPort != 0 || cfg.AudioRTPPort != 0 {
		t.Errorf("rtp ports = %d/%d, want 0/0", cfg.VideoRTPPort, cfg.AudioRTPPort)
	}
	if cfg.RTCTCPPort != 0 {
		t.Errorf("rtc_tcp_port = %d, want 0", cfg.RTCTCPPort)
	}
}

func TestLoad_EnvOverridesAnnouncedIP(t *testing.T) {
	t.Setenv("APP_IP", "203.0.113.7")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.AnnouncedIP != "203.0.113.7" {
		t.Errorf("announced_ip = %q, want APP_IP value", cfg.AnnouncedIP)
	}
}
