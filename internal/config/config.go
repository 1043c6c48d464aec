package config

import (
	"crypto/tls"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/loykin/tracker/internal/logger"
	"github.com/loykin/tracker/internal/session"
	itls "github.com/loykin/tracker/internal/tls"
)

// Defaults applied by Load.
const (
	DefaultEndpoint       = "http://localhost:5000"
	DefaultBeaconQueue    = 64
	DefaultRequestTimeout = 5 * time.Second
	DefaultUnloadGrace    = 2 * time.Second
	DefaultListen         = "127.0.0.1:8089"
	DefaultBasePath       = "/tracker"
	DefaultMetricsListen  = ":9090"
)

// EnvPrefix prefixes environment overrides, e.g. TRACKER_TRACKER_ENDPOINT.
const EnvPrefix = "TRACKER"

// FileConfig represents the top-level TOML structure.
type FileConfig struct {
	Tracker     TrackerConfig     `toml:"tracker" mapstructure:"tracker"`
	Page        PageConfig        `toml:"page" mapstructure:"page"`
	Environment EnvironmentConfig `toml:"environment" mapstructure:"environment"`
	Server      ServerConfig      `toml:"server" mapstructure:"server"`
	Metrics     MetricsConfig     `toml:"metrics" mapstructure:"metrics"`
	Log         LogConfig         `toml:"log" mapstructure:"log"`
}

type TrackerConfig struct {
	Endpoint       string        `toml:"endpoint" mapstructure:"endpoint"`
	Sink           string        `toml:"sink" mapstructure:"sink"`
	BeaconQueue    int           `toml:"beacon_queue" mapstructure:"beacon_queue"`
	RequestTimeout time.Duration `toml:"request_timeout" mapstructure:"request_timeout"`
	UnloadGrace    time.Duration `toml:"unload_grace" mapstructure:"unload_grace"`
}

type PageConfig struct {
	URL             string `toml:"url" mapstructure:"url"`
	Referrer        string `toml:"referrer" mapstructure:"referrer"`
	MethodSessionID string `toml:"method_session_id" mapstructure:"method_session_id"`
}

type EnvironmentConfig struct {
	ScreenWidth  int    `toml:"screen_width" mapstructure:"screen_width"`
	ScreenHeight int    `toml:"screen_height" mapstructure:"screen_height"`
	Language     string `toml:"language" mapstructure:"language"`
	Timezone     string `toml:"timezone" mapstructure:"timezone"`
	IsIframe     bool   `toml:"is_iframe" mapstructure:"is_iframe"`
}

type ServerConfig struct {
	Listen   string    `toml:"listen" mapstructure:"listen"`
	BasePath string    `toml:"base_path" mapstructure:"base_path"`
	TLS      TLSConfig `toml:"tls" mapstructure:"tls"`
}

type TLSConfig struct {
	Enabled      bool     `toml:"enabled" mapstructure:"enabled"`
	CertFile     string   `toml:"cert_file" mapstructure:"cert_file"`
	KeyFile      string   `toml:"key_file" mapstructure:"key_file"`
	Dir          string   `toml:"dir" mapstructure:"dir"`
	AutoGenerate bool     `toml:"auto_generate" mapstructure:"auto_generate"`
	Hosts        []string `toml:"hosts" mapstructure:"hosts"`
	MinVersion   string   `toml:"min_version" mapstructure:"min_version"`
}

type MetricsConfig struct {
	Enabled bool   `toml:"enabled" mapstructure:"enabled"`
	Listen  string `toml:"listen" mapstructure:"listen"`
}

type LogConfig struct {
	Level      string `toml:"level" mapstructure:"level"`
	Format     string `toml:"format" mapstructure:"format"`
	Color      bool   `toml:"color" mapstructure:"color"`
	File       string `toml:"file" mapstructure:"file"`
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"`
	Compress   bool   `toml:"compress" mapstructure:"compress"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("tracker.endpoint", DefaultEndpoint)
	v.SetDefault("tracker.sink", "")
	v.SetDefault("tracker.beacon_queue", DefaultBeaconQueue)
	v.SetDefault("tracker.request_timeout", DefaultRequestTimeout)
	v.SetDefault("tracker.unload_grace", DefaultUnloadGrace)
	v.SetDefault("page.url", DefaultEndpoint+"/")
	v.SetDefault("page.referrer", "")
	v.SetDefault("page.method_session_id", "")
	v.SetDefault("environment.language", "")
	v.SetDefault("environment.timezone", "")
	v.SetDefault("server.listen", DefaultListen)
	v.SetDefault("server.base_path", DefaultBasePath)
	v.SetDefault("server.tls.enabled", false)
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.listen", DefaultMetricsListen)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "text")
	v.SetDefault("log.color", false)
	v.SetDefault("log.file", "")
}

// Load reads the TOML file at path, applying defaults and TRACKER_* env
// overrides. An empty path yields the defaults.
func Load(path string) (*FileConfig, error) {
	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	var fc FileConfig
	if err := v.Unmarshal(&fc); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := fc.Validate(); err != nil {
		return nil, err
	}
	return &fc, nil
}

// Validate checks cross-field constraints.
func (fc *FileConfig) Validate() error {
	var errs []error
	if fc.Tracker.Endpoint == "" && fc.Tracker.Sink == "" {
		errs = append(errs, errors.New("tracker.endpoint or tracker.sink is required"))
	}
	if fc.Tracker.BeaconQueue <= 0 {
		errs = append(errs, fmt.Errorf("tracker.beacon_queue must be positive, got %d", fc.Tracker.BeaconQueue))
	}
	if fc.Tracker.RequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("tracker.request_timeout must be positive, got %s", fc.Tracker.RequestTimeout))
	}
	if fc.Tracker.UnloadGrace < 0 {
		errs = append(errs, fmt.Errorf("tracker.unload_grace must not be negative, got %s", fc.Tracker.UnloadGrace))
	}
	if fc.Environment.ScreenWidth < 0 || fc.Environment.ScreenHeight < 0 {
		errs = append(errs, errors.New("environment screen size must not be negative"))
	}
	if _, err := logger.ParseLevel(fc.Log.Level); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// SinkDSN is the DSN of the delivery backend. Sink wins over Endpoint.
func (fc *FileConfig) SinkDSN() string {
	if fc.Tracker.Sink != "" {
		return fc.Tracker.Sink
	}
	return fc.Tracker.Endpoint
}

func (fc *FileConfig) Logger() logger.Config {
	return logger.Config{
		Level:  fc.Log.Level,
		Format: fc.Log.Format,
		Color:  fc.Log.Color,
		File: logger.FileConfig{
			Path:       fc.Log.File,
			MaxSizeMB:  fc.Log.MaxSizeMB,
			MaxBackups: fc.Log.MaxBackups,
			MaxAgeDays: fc.Log.MaxAgeDays,
			Compress:   fc.Log.Compress,
		},
	}
}

// Document builds the page the collector observes.
func (fc *FileConfig) Document() *session.StaticDocument {
	doc := session.NewStaticDocument(fc.Page.URL, fc.Page.Referrer)
	doc.SetBodyData(session.MethodSessionIDKey, fc.Page.MethodSessionID)
	return doc
}

// SessionEnvironment returns the configured environment, falling back to the host
// for language and timezone when they are unset.
func (fc *FileConfig) SessionEnvironment() session.Environment {
	e := fc.Environment
	sys := session.SystemEnvironment{}
	env := session.StaticEnvironment{
		Width:  e.ScreenWidth,
		Height: e.ScreenHeight,
		Lang:   e.Language,
		TZ:     e.Timezone,
		Iframe: e.IsIframe,
	}
	if env.Lang == "" {
		env.Lang = sys.Language()
	}
	if env.TZ == "" {
		env.TZ = sys.Timezone()
	}
	return env
}

// ServerTLS returns the bridge TLS configuration, or nil when TLS is off.
func (fc *FileConfig) ServerTLS() (*tls.Config, error) {
	t := fc.Server.TLS
	if !t.Enabled {
		return nil, nil
	}
	return itls.Server(itls.Options{
		CertFile:     t.CertFile,
		KeyFile:      t.KeyFile,
		Dir:          t.Dir,
		AutoGenerate: t.AutoGenerate,
		Hosts:        t.Hosts,
		MinVersion:   t.MinVersion,
	})
}
