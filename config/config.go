// Package config merges the reference host shell's on-disk, environment,
// and flag configuration into the JSON intake struct hostapi.Config
// expects (§10.3): a config file merged with environment variables and
// flags through viper, with fsnotify-driven live reload.
package config

import (
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/webxrhost/runtime/hive"
	"github.com/webxrhost/runtime/hostapi"
)

// ShellConfig is the reference host shell's on-disk/env/flag configuration,
// which is merged down into hostapi.Config plus the hive's StartupConfig
// before a Host is constructed.
type ShellConfig struct {
	ApplicationCacheDirectory string `mapstructure:"application_cache_directory"`
	HTTPSProxyServer          string `mapstructure:"https_proxy_server"`
	IsXRSupported             bool   `mapstructure:"is_xr_supported"`
	EnableV8Profiling         bool   `mapstructure:"enable_v8_profiling"`
	PreWarmEnabled            bool   `mapstructure:"prewarm_enabled"`

	HiveBinaryPath    string `mapstructure:"hive_binary_path"`
	EventPort         int    `mapstructure:"event_port"`
	FrameRequestPort  int    `mapstructure:"frame_request_port"`
	MediaCommandPort  int    `mapstructure:"media_command_port"`
	CommandBufferPort int    `mapstructure:"command_buffer_port"`
	HiveCommandPort   int    `mapstructure:"hive_command_port"`
	XRCommandPort     int    `mapstructure:"xr_command_port"`
	StereoMode        string `mapstructure:"stereo_mode"`
	ZoneFileDir       string `mapstructure:"zone_file_dir"`
}

func defaults(v *viper.Viper) {
	v.SetDefault("application_cache_directory", "")
	v.SetDefault("https_proxy_server", "")
	v.SetDefault("is_xr_supported", true)
	v.SetDefault("enable_v8_profiling", false)
	v.SetDefault("prewarm_enabled", true)
	v.SetDefault("hive_binary_path", "")
	v.SetDefault("event_port", 9001)
	v.SetDefault("frame_request_port", 9002)
	v.SetDefault("media_command_port", 9003)
	v.SetDefault("command_buffer_port", 9004)
	v.SetDefault("hive_command_port", 9005)
	v.SetDefault("xr_command_port", 9006)
	v.SetDefault("stereo_mode", "multi_pass")
	v.SetDefault("zone_file_dir", "/tmp/xrhost-zones")
}

// Loader owns a viper instance configured to merge a config file,
// environment variables (prefixed XRHOSTD_), and flags, with optional
// live-reload notification.
type Loader struct {
	v          *viper.Viper
	configPath string

	mu       sync.Mutex
	onChange func(ShellConfig)
}

// NewLoader builds a Loader that will read configPath if non-empty (any
// viper-supported format: yaml, json, toml), falling back to defaults and
// environment/flag overrides otherwise.
func NewLoader(configPath string) *Loader {
	v := viper.New()
	defaults(v)
	v.SetEnvPrefix("XRHOSTD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if configPath != "" {
		v.SetConfigFile(configPath)
	}
	return &Loader{v: v, configPath: configPath}
}

// BindFlags merges a cobra command's flag set into the viper instance,
// giving flags the highest precedence over file/env/defaults.
func (l *Loader) BindFlags(flags *pflag.FlagSet) error {
	return l.v.BindPFlags(flags)
}

// Load reads the config file (if one was set) and decodes the merged
// result into a ShellConfig.
func (l *Loader) Load() (ShellConfig, error) {
	var cfg ShellConfig
	if l.configPath != "" {
		if err := l.v.ReadInConfig(); err != nil {
			return cfg, errors.Wrap(err, "config: read config file")
		}
	}
	if err := l.v.Unmarshal(&cfg); err != nil {
		return cfg, errors.Wrap(err, "config: unmarshal")
	}
	return cfg, nil
}

// WatchForChanges starts fsnotify-backed live reload; onChange is invoked
// with the freshly re-decoded config on every write to the underlying file.
func (l *Loader) WatchForChanges(onChange func(ShellConfig)) {
	l.mu.Lock()
	l.onChange = onChange
	l.mu.Unlock()

	l.v.OnConfigChange(func(e fsnotify.Event) {
		cfg, err := l.decodeLocked()
		if err != nil {
			return
		}
		l.mu.Lock()
		cb := l.onChange
		l.mu.Unlock()
		if cb != nil {
			cb(cfg)
		}
	})
	l.v.WatchConfig()
}

func (l *Loader) decodeLocked() (ShellConfig, error) {
	var cfg ShellConfig
	if err := l.v.Unmarshal(&cfg); err != nil {
		return cfg, errors.Wrap(err, "config: unmarshal on reload")
	}
	return cfg, nil
}

// ToHostConfig projects the shell config's runtime-intake fields into the
// JSON struct the spec's own cross-process protocol dictates (§6).
func (s ShellConfig) ToHostConfig() hostapi.Config {
	return hostapi.Config{
		ApplicationCacheDirectory: s.ApplicationCacheDirectory,
		HTTPSProxyServer:          s.HTTPSProxyServer,
		IsXRSupported:             s.IsXRSupported,
		EnableV8Profiling:         s.EnableV8Profiling,
	}
}

// ToHiveStartupConfig projects the shell config's channel-port fields into
// the hive daemon's own startup JSON blob (§11.1).
func (s ShellConfig) ToHiveStartupConfig() hive.StartupConfig {
	return hive.StartupConfig{
		EventPort:         s.EventPort,
		FrameRequestPort:  s.FrameRequestPort,
		MediaCommandPort:  s.MediaCommandPort,
		CommandBufferPort: s.CommandBufferPort,
		HiveCommandPort:   s.HiveCommandPort,
		XRCommandPort:     s.XRCommandPort,
		StereoMode:        s.StereoMode,
		ZoneFileDir:       s.ZoneFileDir,
	}
}
