// Package config handles application configuration loading and management.
package config

import "time"

// Config holds all viewer settings.
type Config struct {
	Graphics GraphicsConfig `yaml:"graphics"`
	Backend  BackendConfig  `yaml:"backend"`
	Stream   StreamConfig   `yaml:"stream"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// GraphicsConfig holds display and rendering settings.
type GraphicsConfig struct {
	Width      int  `yaml:"width" env:"PEAKVIEW_WIDTH"`
	Height     int  `yaml:"height" env:"PEAKVIEW_HEIGHT"`
	Fullscreen bool `yaml:"fullscreen" env:"PEAKVIEW_FULLSCREEN"`
	VSync      bool `yaml:"vsync" env:"PEAKVIEW_VSYNC"`
}

// BackendConfig holds tile backend connection settings.
type BackendConfig struct {
	URL     string        `yaml:"url" env:"PEAKVIEW_BACKEND_URL"`
	Timeout time.Duration `yaml:"timeout" env:"PEAKVIEW_BACKEND_TIMEOUT"`
}

// StreamConfig holds tile streaming settings.
type StreamConfig struct {
	// RadiusMeters is how far around the viewer tiles stay resident.
	RadiusMeters float32 `yaml:"radius_meters" env:"PEAKVIEW_RADIUS_METERS"`
	Workers      int     `yaml:"workers" env:"PEAKVIEW_WORKERS"`
	QueueSize    int     `yaml:"queue_size" env:"PEAKVIEW_QUEUE_SIZE"`
	// Initial viewer position in degrees.
	Latitude  float32 `yaml:"latitude" env:"PEAKVIEW_LATITUDE"`
	Longitude float32 `yaml:"longitude" env:"PEAKVIEW_LONGITUDE"`
	// HeightMeters is the starting eye height above the reference sphere.
	HeightMeters float32 `yaml:"height_meters" env:"PEAKVIEW_HEIGHT_METERS"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level   string `yaml:"level" env:"PEAKVIEW_LOG_LEVEL"`
	LogFile string `yaml:"log_file" env:"PEAKVIEW_LOG_FILE"`
}

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Graphics: GraphicsConfig{
			Width:      1280,
			Height:     720,
			Fullscreen: false,
			VSync:      true,
		},
		Backend: BackendConfig{
			URL:     "http://127.0.0.1:8080",
			Timeout: 30 * time.Second,
		},
		Stream: StreamConfig{
			RadiusMeters: 100000,
			Workers:      4,
			QueueSize:    16,
			Latitude:     49.2,
			Longitude:    20.0,
			HeightMeters: 2500,
		},
		Logging: LoggingConfig{
			Level:   "info",
			LogFile: "",
		},
	}
}
