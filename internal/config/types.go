package config

import (
	"fmt"
	"strings"
)

type Config struct {
	Logging LoggingConfig `json:"logging"`

	// Engine holds the normalization/composition settings the hosting
	// application would otherwise keep in its preference store.
	Engine EngineConfig `json:"engine"`

	History  HistoryConfig  `json:"history,omitempty"`
	Channels ChannelsConfig `json:"channels"`
	Ingest   IngestConfig   `json:"ingest"`
	Pprof    PprofConfig    `json:"pprof,omitempty"`
}

// PprofConfig gates the debug profiling listener.
type PprofConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Addr    string `json:"addr,omitempty"`

	MutexProfileFraction int `json:"mutex_profile_fraction,omitempty"`
	BlockProfileRate     int `json:"block_profile_rate,omitempty"`
}

type LoggingConfig struct {
	Level   string        `json:"level,omitempty"`
	Console *bool         `json:"console,omitempty"`
	File    FileLogConfig `json:"file,omitempty"`
}

type FileLogConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Path    string `json:"path,omitempty"`
}

// EngineConfig mirrors the plugin options of the upstream system.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
type EngineConfig struct {
	// MessageKey/TitleKey are alternate payload spellings for the message and
	// title fields (provider-specific overrides).
	MessageKey string `json:"message_key,omitempty"`
	TitleKey   string `json:"title_key,omitempty"`

	AppName  string `json:"app_name,omitempty"`
	// Package namespaces resource URIs (sounds, images, icons).
	Package  string `json:"package,omitempty"`
	SenderID string `json:"sender_id,omitempty"`

	DefaultIcon      string `json:"default_icon,omitempty"`
	DefaultIconColor string `json:"default_icon_color,omitempty"`

	// Sound and Vibrate are pointers so "omitted" defaults to true, matching
	// the upstream preference defaults.
	Sound   *bool `json:"sound,omitempty"`
	Vibrate *bool `json:"vibrate,omitempty"`

	ForceShow  bool `json:"force_show,omitempty"`
	ClearBadge bool `json:"clear_badge,omitempty"`

	// SummaryTemplate builds the inbox summary line; "{n}" is replaced with
	// the stacked message count.
	SummaryTemplate string `json:"summary_template,omitempty"`

	// ImageTimeout bounds the remote image fetch for picture-style events.
	ImageTimeout string `json:"image_timeout,omitempty"`
	// ImageRatePerSec throttles remote image fetches across the process.
	ImageRatePerSec int `json:"image_rate_per_sec,omitempty"`
}

type HistoryConfig struct {
	// Retention enables pruning of idle per-id histories. Disabled by
	// default, matching the upstream (unbounded) behavior.
	Retention RetentionConfig `json:"retention,omitempty"`
}

type RetentionConfig struct {
	Enabled  bool   `json:"enabled,omitempty"`
	TTL      string `json:"ttl,omitempty"`
	Interval string `json:"interval,omitempty"`
}

type ChannelsConfig struct {
	// Path is the SQLite file backing the channel registry.
	Path string `json:"path,omitempty"`

	// Declared channels are created at startup if missing.
	Declared []ChannelSpec `json:"declared,omitempty"`
}

// ChannelSpec is one notification channel definition.
type ChannelSpec struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	Importance  *int   `json:"importance,omitempty"`
	LightColor  *int   `json:"light_color,omitempty"`
	Visibility  *int   `json:"visibility,omitempty"`
	Badge       *bool  `json:"badge,omitempty"`
	// Sound is a resource name, "default", "ringtone", or "" for silent.
	Sound *string `json:"sound,omitempty"`
	// Vibration is either a boolean or an explicit pattern of millisecond
	// durations.
	Vibration        *bool   `json:"vibration,omitempty"`
	VibrationPattern []int64 `json:"vibration_pattern,omitempty"`
}

type IngestConfig struct {
	Enabled bool   `json:"enabled,omitempty"`
	Addr    string `json:"addr,omitempty"`

	// RatePerSec bounds accepted pushes per client IP; 0 disables limiting.
	RatePerSec int `json:"rate_per_sec,omitempty"`
	Burst      int `json:"burst,omitempty"`
}

// Validate rejects configs that cannot be applied. Defaults are filled in by
// the consuming services, not here.
func (c *Config) Validate() error {
	seen := map[string]bool{}
	for i, ch := range c.Channels.Declared {
		id := strings.TrimSpace(ch.ID)
		if id == "" {
			return fmt.Errorf("channels.declared[%d]: id is required", i)
		}
		if seen[id] {
			return fmt.Errorf("channels.declared[%d]: duplicate id %q", i, id)
		}
		seen[id] = true
	}
	if c.Ingest.Enabled && strings.TrimSpace(c.Ingest.Addr) == "" {
		return fmt.Errorf("ingest.addr is required when ingest is enabled")
	}
	if _, err := ParseDurationField("engine.image_timeout", c.Engine.ImageTimeout); err != nil {
		return err
	}
	if _, err := ParseDurationField("history.retention.ttl", c.History.Retention.TTL); err != nil {
		return err
	}
	if _, err := ParseDurationField("history.retention.interval", c.History.Retention.Interval); err != nil {
		return err
	}
	return nil
}
