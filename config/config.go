// Package config loads the process-wide settings consumed by the logging
// subsystem and the demo daemon. Settings are read once at startup and are
// treated as immutable afterwards.
package config

import (
	stderrs "errors"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Station-Manager/errors"
	"github.com/spf13/viper"
)

const (
	EnvPrefix       = "WEBLOG"
	DefaultFileName = "config.toml"
)

// Config mirrors the layout of config.toml.
type Config struct {
	Server  Server  `mapstructure:"server" json:"server"`
	Options Options `mapstructure:"options" json:"options"`
}

type Server struct {
	Base Base    `mapstructure:"base" json:"base"`
	Rate Rate    `mapstructure:"rate" json:"rate"`
	Log  Logging `mapstructure:"log" json:"log"`
}

type Base struct {
	Port       int    `mapstructure:"port" json:"port" validate:"gte=1,lte=65535"`
	CORSOrigin string `mapstructure:"cors_origin" json:"cors_origin" validate:"required"`
	Env        string `mapstructure:"env" json:"env" validate:"oneof=development production test"`
}

// Rate configures the request rate limiter. WindowMS is the window length in
// milliseconds over which Limit requests are allowed per client address.
type Rate struct {
	Limit    int `mapstructure:"limit" json:"limit" validate:"gte=1"`
	WindowMS int `mapstructure:"window_ms" json:"window_ms" validate:"gte=1"`
}

// Logging holds everything the logging Service reads at Initialize.
type Logging struct {
	Type              string `mapstructure:"type" json:"type" validate:"oneof=json pretty hidden"`
	HideLogPosition   bool   `mapstructure:"hide_log_position" json:"hide_log_position"`
	MinLevel          string `mapstructure:"min_level" json:"min_level" validate:"oneof=silly trace debug info warn error fatal"`
	PrettyLogTimeZone string `mapstructure:"pretty_log_time_zone" json:"pretty_log_time_zone" validate:"oneof=UTC local"`
	ConsoleNoColor    bool   `mapstructure:"console_no_color" json:"console_no_color"`

	Dir              string `mapstructure:"dir" json:"dir" validate:"required,relpath"`
	RequestDir       string `mapstructure:"request_dir" json:"request_dir" validate:"required,relpath"`
	RotationSize     string `mapstructure:"rotation_size" json:"rotation_size" validate:"required,bytesize"`
	RotationInterval string `mapstructure:"rotation_interval" json:"rotation_interval" validate:"required,interval"`
	Compress         string `mapstructure:"compress" json:"compress" validate:"oneof=gzip zstd none"`

	ShutdownTimeoutMS int `mapstructure:"shutdown_timeout_ms" json:"shutdown_timeout_ms" validate:"gte=0"`

	// FallbackFile receives transport failures in addition to stderr.
	// Empty disables the file.
	FallbackFile       string `mapstructure:"fallback_file" json:"fallback_file" validate:"omitempty,relpath"`
	FallbackMaxSizeMB  int    `mapstructure:"fallback_max_size_mb" json:"fallback_max_size_mb" validate:"gte=0"`
	FallbackMaxBackups int    `mapstructure:"fallback_max_backups" json:"fallback_max_backups" validate:"gte=0"`
}

type Options struct {
	Middlewares Middlewares `mapstructure:"middlewares" json:"middlewares"`
}

type Middlewares struct {
	RateLimiter   bool          `mapstructure:"rate_limiter" json:"rate_limiter"`
	RequestLogger RequestLogger `mapstructure:"request_logger" json:"request_logger"`
}

// RequestLogger toggles the request-correlation middleware. Silent keeps
// request records out of the console while they still reach the request sink.
// TrustProxy takes the client address from X-Forwarded-For.
type RequestLogger struct {
	Enabled    bool `mapstructure:"logger" json:"logger"`
	Silent     bool `mapstructure:"silent" json:"silent"`
	TrustProxy bool `mapstructure:"trust_proxy" json:"trust_proxy"`
}

// RotationSizeBytes returns the parsed rotation size. It is only meaningful
// after Validate succeeded.
func (l Logging) RotationSizeBytes() int64 {
	n, _ := ParseSize(l.RotationSize)
	return n
}

// RotationEvery returns the parsed rotation interval.
func (l Logging) RotationEvery() time.Duration {
	d, _ := ParseInterval(l.RotationInterval)
	return d
}

func (l Logging) ShutdownTimeout() time.Duration {
	return time.Duration(l.ShutdownTimeoutMS) * time.Millisecond
}

// RateWindow returns the limiter window.
func (r Rate) RateWindow() time.Duration {
	return time.Duration(r.WindowMS) * time.Millisecond
}

// Default returns a Config populated with the built-in defaults.
func Default() *Config {
	return &Config{
		Server: Server{
			Base: Base{Port: 3000, CORSOrigin: "*", Env: "development"},
			Rate: Rate{Limit: 100, WindowMS: 15 * 60 * 1000},
			Log:  DefaultLogging(),
		},
		Options: Options{
			Middlewares: Middlewares{
				RateLimiter:   true,
				RequestLogger: RequestLogger{Enabled: true, Silent: true},
			},
		},
	}
}

// DefaultLogging returns the logging defaults on their own, for callers that
// embed the logging Service without the rest of the daemon config.
func DefaultLogging() Logging {
	return Logging{
		Type:               "pretty",
		MinLevel:           "info",
		PrettyLogTimeZone:  "local",
		Dir:                "logs",
		RequestDir:         filepath.Join("logs", "requests"),
		RotationSize:       "10M",
		RotationInterval:   "1d",
		Compress:           "gzip",
		ShutdownTimeoutMS:  2000,
		FallbackMaxSizeMB:  5,
		FallbackMaxBackups: 3,
	}
}

// SetDefaults registers the defaults on v so they apply even without a file.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("server.base.port", d.Server.Base.Port)
	v.SetDefault("server.base.cors_origin", d.Server.Base.CORSOrigin)
	v.SetDefault("server.base.env", d.Server.Base.Env)

	v.SetDefault("server.rate.limit", d.Server.Rate.Limit)
	v.SetDefault("server.rate.window_ms", d.Server.Rate.WindowMS)

	v.SetDefault("server.log.type", d.Server.Log.Type)
	v.SetDefault("server.log.hide_log_position", d.Server.Log.HideLogPosition)
	v.SetDefault("server.log.min_level", d.Server.Log.MinLevel)
	v.SetDefault("server.log.pretty_log_time_zone", d.Server.Log.PrettyLogTimeZone)
	v.SetDefault("server.log.console_no_color", d.Server.Log.ConsoleNoColor)
	v.SetDefault("server.log.dir", d.Server.Log.Dir)
	v.SetDefault("server.log.request_dir", d.Server.Log.RequestDir)
	v.SetDefault("server.log.rotation_size", d.Server.Log.RotationSize)
	v.SetDefault("server.log.rotation_interval", d.Server.Log.RotationInterval)
	v.SetDefault("server.log.compress", d.Server.Log.Compress)
	v.SetDefault("server.log.shutdown_timeout_ms", d.Server.Log.ShutdownTimeoutMS)
	v.SetDefault("server.log.fallback_file", d.Server.Log.FallbackFile)
	v.SetDefault("server.log.fallback_max_size_mb", d.Server.Log.FallbackMaxSizeMB)
	v.SetDefault("server.log.fallback_max_backups", d.Server.Log.FallbackMaxBackups)

	v.SetDefault("options.middlewares.rate_limiter", d.Options.Middlewares.RateLimiter)
	v.SetDefault("options.middlewares.request_logger.logger", d.Options.Middlewares.RequestLogger.Enabled)
	v.SetDefault("options.middlewares.request_logger.silent", d.Options.Middlewares.RequestLogger.Silent)
	v.SetDefault("options.middlewares.request_logger.trust_proxy", d.Options.Middlewares.RequestLogger.TrustProxy)
}

// Load reads the TOML file at path (or config.toml in the working directory
// when path is empty), applies WEBLOG_* environment overrides and validates
// the result. A missing default file is not an error; a missing explicit
// file is.
func Load(path string) (*Config, error) {
	const op errors.Op = "config.Load"

	v := viper.New()
	SetDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(strings.TrimSuffix(DefaultFileName, filepath.Ext(DefaultFileName)))
		v.AddConfigPath(".")
	}
	v.SetConfigType("toml")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !stderrs.As(err, &notFound) {
			return nil, errors.New(op).Err(err).Msg(errMsgReadFailed)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, errors.New(op).Err(err).Msg(errMsgDecodeFailed)
	}
	cfg.Server.Log.Normalize()

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Normalize lowercases the level name so "INFO" and "info" are equivalent.
func (l *Logging) Normalize() {
	l.MinLevel = strings.ToLower(strings.TrimSpace(l.MinLevel))
	l.Type = strings.ToLower(strings.TrimSpace(l.Type))
	l.Compress = strings.ToLower(strings.TrimSpace(l.Compress))
}

// WriteTemplate writes the default config file to path, refusing to overwrite
// an existing file.
func WriteTemplate(path string) error {
	const op errors.Op = "config.WriteTemplate"
	if _, err := os.Stat(path); err == nil {
		return errors.New(op).Msg(errMsgTemplateExists)
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return errors.New(op).Err(err).Msg(errMsgTemplateWrite)
		}
	}
	if err := os.WriteFile(path, []byte(Template), 0o644); err != nil {
		return errors.New(op).Err(err).Msg(errMsgTemplateWrite)
	}
	return nil
}

// Template is the annotated default config.toml.
const Template = `# Server Configuration

[server]

    [server.base]
    port = 3000
    cors_origin = "*"
    env = "development" # "development", "production", or "test"

    [server.rate]
    limit = 100
    window_ms = 900000

    [server.log]
    type = "pretty" # "json", "pretty", or "hidden"
    hide_log_position = false
    min_level = "info" # "silly", "trace", "debug", "info", "warn", "error", "fatal"
    pretty_log_time_zone = "local" # "UTC" or "local"
    dir = "logs"
    request_dir = "logs/requests"
    rotation_size = "10M" # B, K, M, G
    rotation_interval = "1d" # s, m, h, d
    compress = "gzip" # "gzip", "zstd", or "none"
    shutdown_timeout_ms = 2000
    fallback_file = "" # e.g. "logs/fallback.log"

[options]

    [options.middlewares]
    rate_limiter = true

    [options.middlewares.request_logger]
        logger = true
        silent = true
        trust_proxy = false # take the client address from X-Forwarded-For
`
