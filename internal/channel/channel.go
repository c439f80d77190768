// Package channel resolves and stores notification channel definitions:
// named groupings of sound/vibration/light/visibility settings the user can
// control independently of individual notifications.
package channel

import (
	"fmt"
	"strings"
)

// DefaultChannelID is used when a payload names no channel and more than one
// channel is registered.
const DefaultChannelID = "pushpipe.default"

// Importance levels (matching the platform scale 0..5).
const (
	ImportanceNone    = 0
	ImportanceMin     = 1
	ImportanceLow     = 2
	ImportanceDefault = 3
	ImportanceHigh    = 4
	ImportanceMax     = 5
)

// Lockscreen visibility, same scale as notification visibility.
const (
	VisibilitySecret  = -1
	VisibilityPrivate = 0
	VisibilityPublic  = 1
)

// Sound markers understood in channel specs and payloads.
const (
	SoundMarkerDefault  = "default"
	SoundMarkerRingtone = "ringtone"
)

// Sound kinds on a resolved channel.
const (
	SoundSilent   = "silent"
	SoundDefault  = "system-default"
	SoundRingtone = "system-ringtone"
	SoundResource = "resource"
)

// Spec is a channel definition as supplied by configuration or the ingest
// API. Pointer fields distinguish "omitted" from explicit zero values.
type Spec struct {
	ID          string `json:"id"`
	Description string `json:"description,omitempty"`
	Importance  *int   `json:"importance,omitempty"`
	LightColor  *int   `json:"lightColor,omitempty"`
	Visibility  *int   `json:"visibility,omitempty"`
	Badge       *bool  `json:"badge,omitempty"`
	// Sound is a raw resource name, "default", "ringtone", or "" for silent.
	// nil means "default".
	Sound            *string `json:"sound,omitempty"`
	Vibration        *bool   `json:"vibration,omitempty"`
	VibrationPattern []int64 `json:"vibrationPattern,omitempty"`
}

// Channel is a fully resolved channel definition.
type Channel struct {
	ID          string `json:"id"`
	Description string `json:"description"`
	Importance  int    `json:"importance"`

	LightsEnabled bool `json:"lightsEnabled"`
	LightColor    int  `json:"lightColor,omitempty"`

	Visibility int  `json:"visibility"`
	Badge      bool `json:"badge"`

	SoundKind string `json:"soundKind"`
	SoundURI  string `json:"soundUri,omitempty"`

	Vibration        bool    `json:"vibration"`
	VibrationPattern []int64 `json:"vibrationPattern,omitempty"`
}

// Summary is the list() projection.
type Summary struct {
	ID          string `json:"id"`
	Description string `json:"description"`
}

// Resolve turns a spec into a channel, applying defaults and the sound and
// vibration precedence rules.
//
// pkg namespaces resource sound URIs (resource://<pkg>/raw/<name>).
func Resolve(spec Spec, pkg string) (Channel, error) {
	id := strings.TrimSpace(spec.ID)
	if id == "" {
		return Channel{}, fmt.Errorf("channel id is required")
	}

	ch := Channel{
		ID:          id,
		Description: spec.Description,
		Importance:  ImportanceDefault,
		Visibility:  VisibilityPublic,
		Badge:       true,
		Vibration:   true,
	}

	if spec.Importance != nil {
		ch.Importance = clamp(*spec.Importance, ImportanceNone, ImportanceMax)
	}
	if spec.Visibility != nil && *spec.Visibility >= VisibilitySecret && *spec.Visibility <= VisibilityPublic {
		ch.Visibility = *spec.Visibility
	}
	if spec.Badge != nil {
		ch.Badge = *spec.Badge
	}
	if spec.LightColor != nil && *spec.LightColor != -1 {
		ch.LightsEnabled = true
		ch.LightColor = *spec.LightColor
	}

	ch.SoundKind, ch.SoundURI = resolveSound(spec.Sound, pkg)

	if len(spec.VibrationPattern) > 0 {
		ch.VibrationPattern = append([]int64(nil), spec.VibrationPattern...)
	} else if spec.Vibration != nil {
		ch.Vibration = *spec.Vibration
	}

	return ch, nil
}

// resolveSound applies the channel sound precedence: explicit silent marker
// (empty string), ringtone marker, explicit resource name, default.
func resolveSound(sound *string, pkg string) (kind, uri string) {
	if sound == nil {
		return SoundDefault, ""
	}
	s := strings.TrimSpace(*sound)
	switch {
	case s == "":
		return SoundSilent, ""
	case s == SoundMarkerRingtone:
		return SoundRingtone, ""
	case s != SoundMarkerDefault:
		if pkg == "" {
			pkg = "pushpipe"
		}
		return SoundResource, fmt.Sprintf("resource://%s/raw/%s", pkg, s)
	default:
		return SoundDefault, ""
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
