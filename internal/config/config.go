// Package config handles global configuration loading using viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"firestige.xyz/framesmith/internal/core"
)

// GlobalConfig represents the top-level configuration.
// Maps to the `framesmith:` root key in YAML.
type GlobalConfig struct {
	Interface InterfaceConfig `mapstructure:"interface" yaml:"interface"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Responder ResponderConfig `mapstructure:"responder" yaml:"responder"`
	Capture   CaptureConfig   `mapstructure:"capture" yaml:"capture"`
}

// ─── Interface ───

// InterfaceConfig selects the link frames are received from and sent to.
type InterfaceConfig struct {
	Name         string        `mapstructure:"name" yaml:"name"` // Empty = first up, non-loopback link with IPv4
	SnapLen      int           `mapstructure:"snap_len" yaml:"snap_len"`
	BufferSizeMB int           `mapstructure:"buffer_size_mb" yaml:"buffer_size_mb"`
	Timeout      time.Duration `mapstructure:"timeout" yaml:"timeout"` // Receive poll timeout
	Filter       []string      `mapstructure:"filter" yaml:"filter"`   // EtherType names: arp, ipv4
	Replay       string        `mapstructure:"replay" yaml:"replay,omitempty"`
	ReplayOutput string        `mapstructure:"replay_output" yaml:"replay_output,omitempty"`
}

// ─── Log ───

// LogConfig contains logging settings.
type LogConfig struct {
	Level   string           `mapstructure:"level" yaml:"level"`   // debug / info / warn / error
	Format  string           `mapstructure:"format" yaml:"format"` // json / text / pattern
	Pattern string           `mapstructure:"pattern" yaml:"pattern"`
	Time    string           `mapstructure:"time" yaml:"time"`
	File    FileOutputConfig `mapstructure:"file" yaml:"file"`
}

// FileOutputConfig configures file log output.
type FileOutputConfig struct {
	Enabled  bool           `mapstructure:"enabled" yaml:"enabled"`
	Path     string         `mapstructure:"path" yaml:"path"`
	Rotation RotationConfig `mapstructure:"rotation" yaml:"rotation"`
}

// RotationConfig configures log file rotation.
type RotationConfig struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxAgeDays int  `mapstructure:"max_age_days" yaml:"max_age_days"`
	MaxBackups int  `mapstructure:"max_backups" yaml:"max_backups"`
	Compress   bool `mapstructure:"compress" yaml:"compress"`
}

// ─── Metrics ───

// MetricsConfig contains Prometheus metrics settings.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Listen  string `mapstructure:"listen" yaml:"listen"`
	Path    string `mapstructure:"path" yaml:"path"`
}

// ─── Responder ───

// ResponderConfig drives the auto responder.
type ResponderConfig struct {
	Limit    int           `mapstructure:"limit" yaml:"limit"`       // 0 = unbounded
	Cooldown time.Duration `mapstructure:"cooldown" yaml:"cooldown"` // 0 = reply every time
	Rules    []RuleConfig  `mapstructure:"rules" yaml:"rules"`
}

// RuleConfig binds a match to an action. Rules are scanned in file order.
type RuleConfig struct {
	Name   string       `mapstructure:"name" yaml:"name"`
	Match  MatchConfig  `mapstructure:"match" yaml:"match"`
	Action ActionConfig `mapstructure:"action" yaml:"action"`
}

// MatchConfig holds one optional query per layer; unset fields are wildcards.
type MatchConfig struct {
	Ethernet *EthernetMatch `mapstructure:"ethernet" yaml:"ethernet,omitempty"`
	ARP      *ARPMatch      `mapstructure:"arp" yaml:"arp,omitempty"`
	IPv4     *IPv4Match     `mapstructure:"ipv4" yaml:"ipv4,omitempty"`
}

type EthernetMatch struct {
	Src       *core.HardwareAddr `mapstructure:"src" yaml:"src,omitempty"`
	Dst       *core.HardwareAddr `mapstructure:"dst" yaml:"dst,omitempty"`
	EtherType *uint16            `mapstructure:"ether_type" yaml:"ether_type,omitempty"`
}

type ARPMatch struct {
	Opcode    string             `mapstructure:"opcode" yaml:"opcode,omitempty"` // request / reply / number
	SenderMAC *core.HardwareAddr `mapstructure:"sender_mac" yaml:"sender_mac,omitempty"`
	SenderIP  *core.IPv4Addr     `mapstructure:"sender_ip" yaml:"sender_ip,omitempty"`
	TargetMAC *core.HardwareAddr `mapstructure:"target_mac" yaml:"target_mac,omitempty"`
	TargetIP  *core.IPv4Addr     `mapstructure:"target_ip" yaml:"target_ip,omitempty"`
}

type IPv4Match struct {
	Src      *core.IPv4Addr `mapstructure:"src" yaml:"src,omitempty"`
	Dst      *core.IPv4Addr `mapstructure:"dst" yaml:"dst,omitempty"`
	Protocol *uint8         `mapstructure:"protocol" yaml:"protocol,omitempty"`
	TTL      *uint8         `mapstructure:"ttl" yaml:"ttl,omitempty"`
}

// IsEmpty reports whether no layer query is configured.
func (m MatchConfig) IsEmpty() bool {
	return m.Ethernet == nil && m.ARP == nil && m.IPv4 == nil
}

// ActionConfig names a registered reply action and its arguments.
type ActionConfig struct {
	Type   string             `mapstructure:"type" yaml:"type"`
	MAC    *core.HardwareAddr `mapstructure:"mac" yaml:"mac,omitempty"` // Reply hardware address; empty = interface MAC
	Params map[string]string  `mapstructure:"params" yaml:"params,omitempty"`
}

// ─── Capture ───

// CaptureConfig configures recording frames to pcap.
type CaptureConfig struct {
	Output  string `mapstructure:"output" yaml:"output"`
	Count   int    `mapstructure:"count" yaml:"count"` // 0 = until interrupted
	SnapLen int    `mapstructure:"snap_len" yaml:"snap_len"`
}

// ─── Loading ───

const (
	DefaultSnapLen      = 1600
	DefaultBufferSizeMB = 2
	DefaultTimeout      = 100 * time.Millisecond
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultLogPattern   = "%time [%level] %field %msg\n"
	DefaultLogTime      = "2006-01-02 15:04:05.000"
	DefaultMetricsAddr  = ":9092"
	DefaultMetricsPath  = "/metrics"
	DefaultCaptureFile  = "framesmith.pcap"
)

// configRoot is the top-level wrapper matching the YAML structure `framesmith: ...`.
type configRoot struct {
	Framesmith GlobalConfig `mapstructure:"framesmith"`
}

// Load loads configuration from file. An empty path yields the defaults,
// still subject to environment overrides.
// Env vars use the FRAMESMITH_ prefix (e.g., FRAMESMITH_INTERFACE_NAME).
func Load(path string) (*GlobalConfig, error) {
	v := viper.New()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// key "framesmith.log.level" → env "FRAMESMITH_LOG_LEVEL"
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var root configRoot
	if err := v.Unmarshal(&root, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg := root.Framesmith

	if err := cfg.ValidateAndApplyDefaults(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *GlobalConfig {
	return &GlobalConfig{
		Interface: InterfaceConfig{
			SnapLen:      DefaultSnapLen,
			BufferSizeMB: DefaultBufferSizeMB,
			Timeout:      DefaultTimeout,
		},
		Log: LogConfig{
			Level:   DefaultLogLevel,
			Format:  DefaultLogFormat,
			Pattern: DefaultLogPattern,
			Time:    DefaultLogTime,
			File: FileOutputConfig{
				Path: "/var/log/framesmith/framesmith.log",
				Rotation: RotationConfig{
					MaxSizeMB:  100,
					MaxAgeDays: 30,
					MaxBackups: 5,
					Compress:   true,
				},
			},
		},
		Metrics: MetricsConfig{
			Listen: DefaultMetricsAddr,
			Path:   DefaultMetricsPath,
		},
		Capture: CaptureConfig{
			Output:  DefaultCaptureFile,
			SnapLen: DefaultSnapLen,
		},
	}
}

func decodeHook() mapstructure.DecodeHookFunc {
	return mapstructure.ComposeDecodeHookFunc(
		mapstructure.TextUnmarshallerHookFunc(),
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	)
}

// setDefaults sets default values for configuration.
// All keys use "framesmith." prefix to match the YAML root wrapper.
func setDefaults(v *viper.Viper) {
	d := Default()

	// Interface defaults
	v.SetDefault("framesmith.interface.name", "")
	v.SetDefault("framesmith.interface.snap_len", d.Interface.SnapLen)
	v.SetDefault("framesmith.interface.buffer_size_mb", d.Interface.BufferSizeMB)
	v.SetDefault("framesmith.interface.timeout", d.Interface.Timeout)
	v.SetDefault("framesmith.interface.filter", []string{})
	v.SetDefault("framesmith.interface.replay", "")
	v.SetDefault("framesmith.interface.replay_output", "")

	// Log defaults
	v.SetDefault("framesmith.log.level", d.Log.Level)
	v.SetDefault("framesmith.log.format", d.Log.Format)
	v.SetDefault("framesmith.log.pattern", d.Log.Pattern)
	v.SetDefault("framesmith.log.time", d.Log.Time)
	v.SetDefault("framesmith.log.file.enabled", false)
	v.SetDefault("framesmith.log.file.path", d.Log.File.Path)
	v.SetDefault("framesmith.log.file.rotation.max_size_mb", d.Log.File.Rotation.MaxSizeMB)
	v.SetDefault("framesmith.log.file.rotation.max_age_days", d.Log.File.Rotation.MaxAgeDays)
	v.SetDefault("framesmith.log.file.rotation.max_backups", d.Log.File.Rotation.MaxBackups)
	v.SetDefault("framesmith.log.file.rotation.compress", d.Log.File.Rotation.Compress)

	// Metrics defaults
	v.SetDefault("framesmith.metrics.enabled", false)
	v.SetDefault("framesmith.metrics.listen", d.Metrics.Listen)
	v.SetDefault("framesmith.metrics.path", d.Metrics.Path)

	// Responder defaults
	v.SetDefault("framesmith.responder.limit", 0)
	v.SetDefault("framesmith.responder.cooldown", time.Duration(0))

	// Capture defaults
	v.SetDefault("framesmith.capture.output", d.Capture.Output)
	v.SetDefault("framesmith.capture.count", 0)
	v.SetDefault("framesmith.capture.snap_len", d.Capture.SnapLen)
}

// ValidateAndApplyDefaults validates configuration and fills zero values
// that have a runtime default.
func (cfg *GlobalConfig) ValidateAndApplyDefaults() error {
	// ── Log ──
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.Log.Level] {
		return fmt.Errorf("invalid log level: %s (must be debug/info/warn/error): %w", cfg.Log.Level, core.ErrConfigInvalid)
	}
	switch cfg.Log.Format {
	case "json", "text", "pattern":
	default:
		return fmt.Errorf("invalid log format: %s (must be json/text/pattern): %w", cfg.Log.Format, core.ErrConfigInvalid)
	}
	if cfg.Log.File.Enabled && cfg.Log.File.Path == "" {
		return fmt.Errorf("log.file.path is required when log.file.enabled=true: %w", core.ErrConfigInvalid)
	}

	// ── Interface ──
	if cfg.Interface.SnapLen <= 0 {
		cfg.Interface.SnapLen = DefaultSnapLen
	}
	if cfg.Interface.BufferSizeMB <= 0 {
		cfg.Interface.BufferSizeMB = DefaultBufferSizeMB
	}
	if cfg.Interface.Timeout <= 0 {
		cfg.Interface.Timeout = DefaultTimeout
	}
	for i, name := range cfg.Interface.Filter {
		name = strings.ToLower(strings.TrimSpace(name))
		if name != "arp" && name != "ipv4" {
			return fmt.Errorf("invalid interface.filter entry %q (must be arp/ipv4): %w", name, core.ErrConfigInvalid)
		}
		cfg.Interface.Filter[i] = name
	}

	// ── Metrics ──
	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return fmt.Errorf("metrics.listen is required when metrics.enabled=true: %w", core.ErrConfigInvalid)
	}
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}

	// ── Responder ──
	if cfg.Responder.Limit < 0 {
		return fmt.Errorf("responder.limit must be >= 0, got %d: %w", cfg.Responder.Limit, core.ErrConfigInvalid)
	}
	if cfg.Responder.Cooldown < 0 {
		return fmt.Errorf("responder.cooldown must be >= 0, got %s: %w", cfg.Responder.Cooldown, core.ErrConfigInvalid)
	}
	for i := range cfg.Responder.Rules {
		r := &cfg.Responder.Rules[i]
		if r.Name == "" {
			r.Name = fmt.Sprintf("rule-%d", i)
		}
		if r.Match.IsEmpty() {
			return fmt.Errorf("responder.rules[%d] (%s): match is empty: %w", i, r.Name, core.ErrConfigInvalid)
		}
		if r.Action.Type == "" {
			return fmt.Errorf("responder.rules[%d] (%s): action.type is required: %w", i, r.Name, core.ErrConfigInvalid)
		}
	}

	// ── Capture ──
	if cfg.Capture.Count < 0 {
		return fmt.Errorf("capture.count must be >= 0, got %d: %w", cfg.Capture.Count, core.ErrConfigInvalid)
	}
	if cfg.Capture.SnapLen <= 0 {
		cfg.Capture.SnapLen = cfg.Interface.SnapLen
	}

	return nil
}
