// Package compose turns a flat canonical field mapping into a platform
// notification descriptor: style, aggregation, visuals, actions and channel
// all resolved. The descriptor is handed to an external renderer; nothing in
// this package talks to a notification tray.
package compose

import "pushpipe/internal/payload"

// Dispatch modes for actions.
const (
	ModeForeground  = "foreground"
	ModeBackground  = "background"
	ModeInlineReply = "inline-reply"
)

// Image sources, in resolution precedence order.
const (
	ImageRemote   = "remote"
	ImageAsset    = "asset"
	ImageResource = "resource"
)

// Descriptor is the resolved notification. Pointer fields are absent when
// the payload carried no valid value; composition never fails on a bad
// field, it drops it.
type Descriptor struct {
	NotID int    `json:"notId"`
	Style string `json:"style"`

	Title   string   `json:"title"`
	Body    string   `json:"body,omitempty"`
	Lines   []string `json:"lines,omitempty"`
	Summary string   `json:"summary,omitempty"`

	// Count is the number shown on the notification itself; Badge is the
	// application icon badge (0 means clear everything).
	Count *int `json:"count,omitempty"`
	Badge *int `json:"badge,omitempty"`

	Icon      string `json:"icon,omitempty"`
	IconColor *int   `json:"iconColor,omitempty"` // ARGB

	Image *Image `json:"image,omitempty"`

	LedColor *[4]int `json:"ledColor,omitempty"` // alpha, red, green, blue

	VibrationPattern []int64 `json:"vibrationPattern,omitempty"`
	DefaultVibrate   bool    `json:"defaultVibrate,omitempty"`

	Priority   *int `json:"priority,omitempty"`   // [-2, 2]
	Visibility *int `json:"visibility,omitempty"` // [-1, 1]

	Ongoing bool `json:"ongoing,omitempty"`

	ChannelID string `json:"channelId,omitempty"`

	Sound Sound `json:"sound,omitempty"`

	Actions []Action `json:"actions,omitempty"`

	// Data is the full canonical mapping, forwarded so the hosting
	// application sees every pass-through key.
	Data payload.Fields `json:"data,omitempty"`
}

// Sound is the resolved notification sound. An empty Kind means "unset":
// the channel or system default applies.
type Sound struct {
	Kind string `json:"kind,omitempty"`
	URI  string `json:"uri,omitempty"`
}

// Image is a resolved large-image reference. Data is populated for remote
// and asset sources; resource references are left for the renderer to
// resolve.
type Image struct {
	Source string `json:"source"`
	Ref    string `json:"ref"`
	Type   string `json:"type,omitempty"` // square | circle
	Data   []byte `json:"data,omitempty"`
}

// Action is one interactive notification action.
type Action struct {
	Icon     string `json:"icon,omitempty"`
	Title    string `json:"title"`
	Callback string `json:"callback"`
	Mode     string `json:"mode"`

	InlineReplyLabel string `json:"inlineReplyLabel,omitempty"`

	// Token correlates the eventual user response with this action
	// instance; unique per composition.
	Token string `json:"token"`
}
