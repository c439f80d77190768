// Package engine wires flattening, history, composition and channel
// resolution into one pipeline: raw provider payload in, notification
// descriptor plus delivery disposition out.
package engine

import (
	"context"
	"errors"
	"strings"
	"sync"

	"pushpipe/internal/compose"
	"pushpipe/internal/config"
	"pushpipe/internal/eventbus"
	"pushpipe/internal/history"
	"pushpipe/internal/payload"
	logx "pushpipe/pkg/logx"
)

var (
	// ErrEmptyPayload is the only caller-visible failure: nothing to compose.
	ErrEmptyPayload = errors.New("empty payload")
	// ErrUnknownSender marks events from senders outside the allow-list.
	ErrUnknownSender = errors.New("unknown sender")
)

// Disposition is the delivery decision for one event. Exactly one per
// processed payload.
type Disposition string

const (
	// DispositionVisible: render the composed notification.
	DispositionVisible Disposition = "visible"
	// DispositionDataOnly: hand the fields to the application silently.
	DispositionDataOnly Disposition = "data-only"
	// DispositionColdStart: launch the application, then deliver.
	DispositionColdStart Disposition = "cold-start"
)

// Result is the outcome of processing one push event.
type Result struct {
	Disposition Disposition
	Fields      payload.Fields

	// Descriptor is set for visible and cold-start dispositions when the
	// payload carried presentable content.
	Descriptor *compose.Descriptor

	// BadgeReset reports that the clear-badge setting asked for an immediate
	// application badge reset on receipt.
	BadgeReset bool
}

// AppState reports the hosting application's runtime state.
type AppState interface {
	// InForeground is true while the application UI is visible.
	InForeground() bool
	// Active is true while the application process is running at all.
	Active() bool
}

// Config is the engine's view of the stored settings.
type Config struct {
	MessageKey string
	TitleKey   string

	SenderID   string
	ForceShow  bool
	ClearBadge bool

	Compose compose.Config
	Image   compose.ImageConfig
}

// Deps are the engine's collaborators. History and Log are required;
// everything else may be nil.
type Deps struct {
	History   *history.Store
	Channels  compose.ChannelSelector
	Resources payload.ResourceLookup
	Assets    compose.AssetStore
	Images    compose.ResourceChecker
	Icons     compose.IconLookup
	AppState  AppState
	Log       logx.Logger
	Bus       eventbus.Bus
}

// Engine is safe for concurrent use; Apply may be called while Process runs
// (config hot reload).
type Engine struct {
	mu sync.RWMutex

	cfg       Config
	flattener *payload.Flattener
	composer  *compose.Composer

	deps Deps
}

func New(cfg Config, deps Deps) *Engine {
	if deps.History == nil {
		deps.History = history.NewStore()
	}
	if deps.Log.IsZero() {
		deps.Log = logx.Nop()
	}
	e := &Engine{deps: deps}
	e.Apply(cfg)
	return e
}

// Apply swaps the engine configuration. In-flight compositions keep the
// snapshot they started with.
func (e *Engine) Apply(cfg Config) {
	loc := &payload.Localizer{
		Res:    e.deps.Resources,
		Log:    e.deps.Log,
		Report: e.reportDiag,
	}
	images := compose.NewImageFetcher(cfg.Image, e.deps.Assets, e.deps.Images, e.deps.Log)
	composer := compose.New(cfg.Compose, e.deps.History, e.deps.Channels, images, e.deps.Icons, e.deps.Log)
	flat := &payload.Flattener{
		MessageKey: cfg.MessageKey,
		TitleKey:   cfg.TitleKey,
		Loc:        loc,
		Log:        e.deps.Log,
		Report:     e.reportDiag,
	}

	e.mu.Lock()
	e.cfg = cfg
	e.flattener = flat
	e.composer = composer
	e.mu.Unlock()
}

// FromFile maps the file schema onto an engine config.
func FromFile(cfg config.EngineConfig) Config {
	pkg := cfg.Package
	timeout, _ := config.ParseDurationField("engine.image_timeout", cfg.ImageTimeout)
	return Config{
		MessageKey: cfg.MessageKey,
		TitleKey:   cfg.TitleKey,
		SenderID:   cfg.SenderID,
		ForceShow:  cfg.ForceShow,
		ClearBadge: cfg.ClearBadge,
		Compose: compose.Config{
			AppName:          cfg.AppName,
			Package:          pkg,
			DefaultIcon:      cfg.DefaultIcon,
			DefaultIconColor: cfg.DefaultIconColor,
			SoundEnabled:     cfg.Sound == nil || *cfg.Sound,
			VibrateEnabled:   cfg.Vibrate == nil || *cfg.Vibrate,
			SummaryTemplate:  cfg.SummaryTemplate,
		},
		Image: compose.ImageConfig{
			Timeout:    timeout,
			RatePerSec: cfg.ImageRatePerSec,
		},
	}
}

// Process runs one push event through the pipeline.
//
// from identifies the sending entity (sender id or /topics/... source);
// events from unlisted senders are ignored with ErrUnknownSender.
func (e *Engine) Process(ctx context.Context, from string, raw payload.RawPayload) (Result, error) {
	if len(raw) == 0 {
		return Result{}, ErrEmptyPayload
	}

	e.mu.RLock()
	cfg := e.cfg
	flat := e.flattener
	composer := e.composer
	e.mu.RUnlock()

	if !senderAllowed(cfg.SenderID, from) {
		e.deps.Log.Debug("push from unknown sender ignored", logx.String("from", from))
		e.publish(eventbus.TypePushIgnored, eventbus.PushEvent{From: from, Error: ErrUnknownSender.Error()})
		return Result{}, ErrUnknownSender
	}

	fields := flat.Flatten(raw)
	notID := fields.Int(payload.KeyNotID, 0)
	e.deps.Log.Debug("push received",
		logx.String("from", from),
		logx.Int("not_id", notID),
		logx.Int("fields", len(fields)),
	)
	e.publish(eventbus.TypePushReceived, eventbus.PushEvent{NotID: notID, From: from})

	res := Result{Fields: fields, BadgeReset: cfg.ClearBadge}

	foreground := e.deps.AppState != nil && e.deps.AppState.InForeground()
	active := e.deps.AppState != nil && e.deps.AppState.Active()
	fields[payload.KeyForeground] = foreground

	if foreground && !cfg.ForceShow {
		// Foreground without force-show: hand the data to the app, no tray
		// notification.
		fields[payload.KeyColdstart] = false
		res.Disposition = DispositionDataOnly
		e.publish(eventbus.TypePushDataOnly, eventbus.PushEvent{NotID: notID, From: from})
		return res, nil
	}
	fields[payload.KeyColdstart] = !foreground && active

	hasContent := fields.Str(payload.KeyMessage) != "" || fields.Str(payload.KeyTitle) != ""

	report := func(kind, field, detail string) {
		e.deps.Log.Debug("field resolution degraded",
			logx.String("kind", kind),
			logx.String("field", field),
			logx.String("detail", detail),
		)
		e.publish(eventbus.TypeDiag, eventbus.DiagEvent{Kind: kind, Field: field, Detail: detail, NotID: notID})
	}

	if hasContent {
		d := composer.Compose(ctx, fields, report)
		res.Descriptor = &d
	}

	switch {
	case !active && fields.Flag(payload.KeyForceStart):
		res.Disposition = DispositionColdStart
		e.publish(eventbus.TypePushColdStart, eventbus.PushEvent{NotID: notID, From: from})
	case res.Descriptor != nil:
		res.Disposition = DispositionVisible
		e.publish(eventbus.TypePushComposed, eventbus.PushEvent{NotID: notID, From: from, Style: res.Descriptor.Style})
	default:
		// No presentable content (and no cold start): data-only delivery,
		// whether or not contentAvailable is set.
		res.Disposition = DispositionDataOnly
		e.publish(eventbus.TypePushDataOnly, eventbus.PushEvent{NotID: notID, From: from})
	}

	return res, nil
}

// ClearHistory drops the stacked inbox lines for a notification the user
// dismissed or opened, so the next push for that id starts a fresh stack.
func (e *Engine) ClearHistory(notID int) {
	e.deps.History.Clear(notID)
	e.deps.Log.Debug("notification history cleared", logx.Int("not_id", notID))
	e.publish(eventbus.TypeHistoryCleared, eventbus.PushEvent{NotID: notID})
}

func senderAllowed(senderID, from string) bool {
	if senderID == "" {
		return true
	}
	return from == senderID || strings.HasPrefix(from, "/topics/")
}

func (e *Engine) publish(typ string, data any) {
	if e.deps.Bus == nil {
		return
	}
	e.deps.Bus.Publish(eventbus.Event{Type: typ, Data: data})
}

func (e *Engine) reportDiag(kind, field, detail string) {
	e.publish(eventbus.TypeDiag, eventbus.DiagEvent{Kind: kind, Field: field, Detail: detail})
}
