package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode       string        `mapstructure:"mode"`
	Port       int           `mapstructure:"port"`
	StaticPath string        `mapstructure:"static_path"`
	ReadLimit  int64         `mapstructure:"read_limit"`
	PingPeriod time.Duration `mapstructure:"ping_period"`

	// AnnouncedIP is the public address used in every ICE/connectivity
	// announcement and for the plain RTP ingest tuples.
	AnnouncedIP string `mapstructure:"announced_ip"`

	// Fixed ingest receive ports. 0 means the engine picks a free pair.
	VideoRTPPort int `mapstructure:"video_rtp_port"`
	AudioRTPPort int `mapstructure:"audio_rtp_port"`

	// Ephemeral UDP port range for client transports. 0/0 leaves the range
	// unconstrained.
	RTCMinPort uint16 `mapstructure:"rtc_min_port"`
	RTCMaxPort uint16 `mapstructure:"rtc_max_port"`

	// RTCTCPPort enables the ICE TCP fallback listener when non-zero.
	RTCTCPPort int `mapstructure:"rtc_tcp_port"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 3000)
	v.SetDefault("static_path", "./web")
	v.SetDefault("read_limit", 32768)
	v.SetDefault("ping_period", "30s")
	v.SetDefault("announced_ip", "")
	v.SetDefault("video_rtp_port", 0)
	v.SetDefault("audio_rtp_port", 0)
	v.SetDefault("rtc_min_port", 0)
	v.SetDefault("rtc_max_port", 0)
	v.SetDefault("rtc_tcp_port", 0)

	// Environment surface kept from the original deployment scripts.
	_ = v.BindEnv("announced_ip", "APP_IP")
	_ = v.BindEnv("port", "APP_PORT")

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | AnnouncedIP: %s\n", cfg.Mode, cfg.Port, cfg.AnnouncedIP)
	return &cfg, nil
}
