package compose

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"pushpipe/internal/channel"
	"pushpipe/internal/history"
	"pushpipe/internal/payload"
	logx "pushpipe/pkg/logx"
)

const defaultSummaryTemplate = "{n} more"

// ChannelSelector answers "is there exactly one registered channel".
// *channel.Registry satisfies it; tests use a stub.
type ChannelSelector interface {
	Only(ctx context.Context) (id string, ok bool, err error)
}

// IconLookup reports whether a small-icon resource exists. Optional; when
// absent, icon names are forwarded unverified.
type IconLookup interface {
	HasIcon(name string) bool
}

// Config carries the stored notification defaults (the upstream preference
// store equivalent). Read-only during composition, safe to share.
type Config struct {
	AppName string
	// Package namespaces resource sound URIs.
	Package string

	DefaultIcon      string
	DefaultIconColor string

	SoundEnabled   bool
	VibrateEnabled bool

	// SummaryTemplate builds the inbox summary line; "{n}" is replaced with
	// the stacked message count. A payload summaryText overrides it.
	SummaryTemplate string
}

// Composer builds notification descriptors from canonical fields.
//
// Stateless apart from the injected history store; safe for concurrent use
// across notification ids.
type Composer struct {
	cfg      Config
	history  *history.Store
	channels ChannelSelector
	images   *ImageFetcher
	icons    IconLookup
	log      logx.Logger
}

func New(cfg Config, hist *history.Store, channels ChannelSelector, images *ImageFetcher, icons IconLookup, log logx.Logger) *Composer {
	if hist == nil {
		hist = history.NewStore()
	}
	return &Composer{
		cfg:      cfg,
		history:  hist,
		channels: channels,
		images:   images,
		icons:    icons,
		log:      log,
	}
}

// Compose resolves fields into a best-effort descriptor. It never fails;
// invalid fields are dropped and reported through report.
func (c *Composer) Compose(ctx context.Context, fields payload.Fields, report payload.Reporter) Descriptor {
	notID := fields.Int(payload.KeyNotID, 0)

	d := Descriptor{
		NotID: notID,
		Data:  fields,
	}

	d.Title = fields.Str(payload.KeyTitle)
	if d.Title == "" {
		d.Title = c.cfg.AppName
	}

	c.composeMessage(ctx, &d, fields, report)
	c.composeBadge(&d, fields, report)
	c.composeVisuals(&d, fields, report)
	c.composeSound(&d, fields)
	c.composeChannel(ctx, &d, fields)

	d.Ongoing = fields.Bool(payload.KeyOngoing, false)

	if fields.Has(payload.KeyActions) {
		d.Actions = ResolveActions(fields.Str(payload.KeyActions), c.log, report)
	}

	return d
}

// composeMessage resolves the style and builds body/lines/summary,
// maintaining the per-id message history as a side effect.
func (c *Composer) composeMessage(ctx context.Context, d *Descriptor, fields payload.Fields, report payload.Reporter) {
	message := fields.Str(payload.KeyMessage)

	style := fields.StrDefault(payload.KeyStyle, payload.StyleText)
	switch style {
	case payload.StyleInbox, payload.StylePicture, payload.StyleText:
	default:
		style = payload.StyleText
	}
	d.Style = style

	switch style {
	case payload.StyleInbox:
		c.history.Append(d.NotID, message)
		stacked := c.history.Snapshot(d.NotID)
		d.Body = message
		if len(stacked) > 1 {
			d.Lines = stacked
			d.Summary = c.summaryLine(fields, len(stacked))
		}

	case payload.StylePicture:
		// Picture style does not aggregate.
		c.history.Clear(d.NotID)
		d.Body = message
		d.Summary = fields.Str(payload.KeySummaryText)
		if c.images != nil {
			imageType := fields.StrDefault(payload.KeyImageType, payload.ImageTypeSquare)
			d.Image = c.images.Resolve(ctx, fields.Str(payload.KeyImage), imageType, report)
		}

	default:
		c.history.Clear(d.NotID)
		d.Body = message
		d.Summary = fields.Str(payload.KeySummaryText)
	}
}

// summaryLine substitutes the stacked count into the summary template. A
// payload-supplied summaryText wins over the configured template.
func (c *Composer) summaryLine(fields payload.Fields, n int) string {
	template := fields.Str(payload.KeySummaryText)
	if template == "" {
		template = c.cfg.SummaryTemplate
	}
	if template == "" {
		template = defaultSummaryTemplate
	}
	return strings.ReplaceAll(template, "{n}", strconv.Itoa(n))
}

// composeBadge parses the count field: negative or unparsable means no
// badge, zero means clear-all, positive sets both the notification count
// and the application badge.
func (c *Composer) composeBadge(d *Descriptor, fields payload.Fields, report payload.Reporter) {
	if !fields.Has(payload.KeyCount) {
		return
	}
	n, err := strconv.Atoi(strings.TrimSpace(fields.Str(payload.KeyCount)))
	if err != nil {
		if report != nil {
			report(payload.DiagMalformedPayload, payload.KeyCount, "count is not an integer")
		}
		return
	}
	if n < 0 {
		return
	}
	count := n
	d.Count = &count
	badge := n
	d.Badge = &badge
}

func (c *Composer) composeVisuals(d *Descriptor, fields payload.Fields, report payload.Reporter) {
	if fields.Has(payload.KeyVisibility) {
		n, err := parseRangedInt(fields.Str(payload.KeyVisibility), visibilitySecret, visibilityPublic)
		switch {
		case errors.Is(err, errOutOfRange):
			c.report(report, payload.DiagOutOfRange, payload.KeyVisibility, "visibility must be between -1 and 1")
		case err != nil:
			c.report(report, payload.DiagMalformedPayload, payload.KeyVisibility, "visibility is not an integer")
		default:
			d.Visibility = &n
		}
	}

	if fields.Has(payload.KeyPriority) {
		n, err := parseRangedInt(fields.Str(payload.KeyPriority), priorityMin, priorityMax)
		switch {
		case errors.Is(err, errOutOfRange):
			c.report(report, payload.DiagOutOfRange, payload.KeyPriority, "priority must be between -2 and 2")
		case err != nil:
			c.report(report, payload.DiagMalformedPayload, payload.KeyPriority, "priority is not an integer")
		default:
			d.Priority = &n
		}
	}

	if fields.Has(payload.KeyVibrationPattern) {
		d.VibrationPattern = parseBracketedInts(fields.Str(payload.KeyVibrationPattern))
	} else {
		d.DefaultVibrate = c.cfg.VibrateEnabled
	}

	if fields.Has(payload.KeyLedColor) {
		items := parseBracketedInts(fields.Str(payload.KeyLedColor))
		if len(items) == 4 {
			led := [4]int{int(items[0]), int(items[1]), int(items[2]), int(items[3])}
			d.LedColor = &led
		} else {
			c.report(report, payload.DiagOutOfRange, payload.KeyLedColor, "ledColor must be an array of length 4 (ARGB)")
		}
	}

	d.Icon = c.resolveIcon(fields.Str(payload.KeyIcon))

	if color, ok := c.resolveIconColor(fields.Str(payload.KeyColor), report); ok {
		d.IconColor = &color
	}
}

// resolveIcon applies the small-icon precedence: payload icon, stored
// default icon, application default (empty). Unresolvable lookups degrade
// to the next level.
func (c *Composer) resolveIcon(name string) string {
	if name != "" && (c.icons == nil || c.icons.HasIcon(name)) {
		return name
	}
	if name != "" {
		c.log.Debug("payload icon not found", logx.String("icon", name))
	}
	if c.cfg.DefaultIcon != "" && (c.icons == nil || c.icons.HasIcon(c.cfg.DefaultIcon)) {
		return c.cfg.DefaultIcon
	}
	return ""
}

// resolveIconColor applies payload color first, stored default second.
func (c *Composer) resolveIconColor(raw string, report payload.Reporter) (int, bool) {
	if raw != "" {
		if color, ok := parseColor(raw); ok {
			return color, true
		}
		c.report(report, payload.DiagMalformedPayload, payload.KeyColor, "unparsable color "+raw)
	}
	if c.cfg.DefaultIconColor != "" {
		if color, ok := parseColor(c.cfg.DefaultIconColor); ok {
			return color, true
		}
		c.log.Debug("stored icon color is unparsable", logx.String("color", c.cfg.DefaultIconColor))
	}
	return 0, false
}

// composeSound resolves the notification sound. With sound disabled in the
// stored settings the descriptor carries no sound at all.
func (c *Composer) composeSound(d *Descriptor, fields payload.Fields) {
	if !c.cfg.SoundEnabled {
		return
	}

	name := fields.Str(payload.KeySound)
	switch {
	case name == channel.SoundMarkerRingtone:
		d.Sound = Sound{Kind: channel.SoundRingtone}
	case name != "" && name != channel.SoundMarkerDefault:
		pkg := c.cfg.Package
		if pkg == "" {
			pkg = "pushpipe"
		}
		d.Sound = Sound{
			Kind: channel.SoundResource,
			URI:  fmt.Sprintf("resource://%s/raw/%s", pkg, name),
		}
	default:
		d.Sound = Sound{Kind: channel.SoundDefault}
	}
}

// composeChannel picks the channel id: explicit payload channel wins, then
// the only registered channel, then the default id.
func (c *Composer) composeChannel(ctx context.Context, d *Descriptor, fields payload.Fields) {
	if explicit := fields.Str(payload.KeyChannelID); explicit != "" {
		d.ChannelID = explicit
		return
	}
	if c.channels != nil {
		id, ok, err := c.channels.Only(ctx)
		if err != nil {
			c.log.Warn("channel lookup failed", logx.Err(err))
		} else if ok {
			d.ChannelID = id
			return
		}
	}
	d.ChannelID = channel.DefaultChannelID
}

func (c *Composer) report(report payload.Reporter, kind, field, detail string) {
	if report != nil {
		report(kind, field, detail)
	}
}
