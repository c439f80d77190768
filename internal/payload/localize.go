package payload

import (
	"encoding/json"
	"strings"

	logx "pushpipe/pkg/logx"
)

// ResourceLookup resolves localized string resources. The production
// implementation is supplied by the hosting application; tests use an
// in-memory table.
type ResourceLookup interface {
	// FormatString looks up a format string by resource name and applies the
	// ordered args. ok is false when no resource exists under that name.
	FormatString(name string, args ...string) (formatted string, ok bool)
}

// Diagnostic kinds reported by resolution steps. None of them abort
// composition.
const (
	DiagMalformedPayload = "malformed_payload"
	DiagOutOfRange       = "out_of_range"
	DiagResourceNotFound = "resource_not_found"
	DiagFetchFailure     = "fetch_failure"
)

// Reporter receives non-fatal resolution diagnostics.
type Reporter func(kind, field, detail string)

// Localizer resolves localization descriptors embedded in title, message and
// summaryText values. Every failure degrades to identity.
type Localizer struct {
	Res    ResourceLookup
	Log    logx.Logger
	Report Reporter
}

type locDescriptor struct {
	Key  string          `json:"loc-key"`
	Data json.RawMessage `json:"loc-data"`
}

// Resolve returns the localized value for the canonical key, or value
// unchanged when the key is not localizable, the value is not a localization
// descriptor, or no matching resource exists.
func (l *Localizer) Resolve(canonicalKey, value string) string {
	switch canonicalKey {
	case KeyTitle, KeyMessage, KeySummaryText:
	default:
		return value
	}

	trimmed := strings.TrimSpace(value)
	if !strings.HasPrefix(trimmed, "{") {
		return value
	}

	var desc locDescriptor
	if err := json.Unmarshal([]byte(trimmed), &desc); err != nil || desc.Key == "" {
		l.Log.Debug("no locale descriptor", logx.String("key", canonicalKey))
		return value
	}

	args := decodeLocArgs(desc.Data)

	if l.Res == nil {
		return value
	}
	formatted, ok := l.Res.FormatString(desc.Key, args...)
	if !ok {
		l.Log.Debug("locale resource not found", logx.String("loc_key", desc.Key))
		l.report(DiagResourceNotFound, canonicalKey, "no string resource "+desc.Key)
		return value
	}
	return formatted
}

// decodeLocArgs accepts loc-data either as a JSON array or as a string
// holding an encoded JSON array (the wire format some providers emit).
func decodeLocArgs(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}

	var arr []any
	if err := json.Unmarshal(raw, &arr); err != nil {
		var encoded string
		if err := json.Unmarshal(raw, &encoded); err != nil {
			return nil
		}
		if err := json.Unmarshal([]byte(encoded), &arr); err != nil {
			return nil
		}
	}

	args := make([]string, 0, len(arr))
	for _, v := range arr {
		args = append(args, stringify(v))
	}
	return args
}

func (l *Localizer) report(kind, field, detail string) {
	if l.Report != nil {
		l.Report(kind, field, detail)
	}
}
