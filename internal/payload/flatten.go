package payload

import (
	"encoding/json"
	"strings"

	logx "pushpipe/pkg/logx"
)

// Flattener walks a raw payload and produces the flat canonical mapping.
//
// It is stateless with respect to its input and safe for concurrent use once
// configured.
type Flattener struct {
	// MessageKey and TitleKey are the config-supplied alternate spellings for
	// the message/title fields. Either may be empty.
	MessageKey string
	TitleKey   string

	Loc    *Localizer
	Log    logx.Logger
	Report Reporter
}

// Flatten normalizes every raw key, resolves localization and merges nested
// containers into one flat mapping. Colliding canonical keys resolve
// last-write-wins in map iteration order; two provider fields normalizing to
// the same canonical key can silently shadow each other. That mirrors the
// upstream merge behavior and is a known sharp edge.
func (f *Flattener) Flatten(raw RawPayload) Fields {
	out := Fields{}

	for key, v := range raw {
		switch {
		case key == KeyData || key == KeyMessage || (f.MessageKey != "" && key == f.MessageKey):
			// Parse-style payloads tuck the real notification inside a
			// JSON-encoded "data"/"message" field.
			if s, isStr := v.(string); isStr && strings.HasPrefix(s, "{") {
				f.extractNested(key, s, out)
				continue
			}
			f.copyField(key, v, out)

		case key == KeyNotification:
			sub, ok := v.(map[string]any)
			if !ok {
				f.report(DiagMalformedPayload, key, "notification is not an object")
				continue
			}
			// The container itself is dropped; its entries are promoted.
			for nk, nv := range sub {
				canon := f.normalizeInto(nk, out)
				out[canon] = f.localize(canon, stringify(nv))
			}

		default:
			f.copyField(key, v, out)
		}
	}

	return out
}

// extractNested handles a JSON-object string under "message"/"data"/the
// message-key override.
//
// If the object carries any message-identifying field, each inner entry is
// promoted to the top level and the outer key disappears. If it only carries
// localization fields, the outer key itself is normalized and its value
// localized. Any other JSON object is dropped entirely, mirroring the
// upstream behavior.
func (f *Flattener) extractNested(outerKey, encoded string, out Fields) {
	var data map[string]any
	if err := json.Unmarshal([]byte(encoded), &data); err != nil {
		f.Log.Debug("nested message data is not valid JSON", logx.String("key", outerKey))
		f.report(DiagMalformedPayload, outerKey, "unparsable JSON object")
		return
	}

	identifying := hasKey(data, keyAlert) || hasKey(data, KeyMessage) ||
		hasKey(data, keyBody) || hasKey(data, KeyTitle) ||
		(f.MessageKey != "" && hasKey(data, f.MessageKey)) ||
		(f.TitleKey != "" && hasKey(data, f.TitleKey))

	switch {
	case identifying:
		for jk, jv := range data {
			canon := f.normalizeInto(jk, out)
			out[canon] = f.localize(canon, stringify(jv))
		}
	case hasKey(data, keyLocKey) || hasKey(data, keyLocData):
		canon := f.normalizeInto(outerKey, out)
		out[canon] = f.localize(canon, encoded)
	}
}

// copyField normalizes one plain key/value pair into the flat result.
func (f *Flattener) copyField(key string, v any, out Fields) {
	canon := f.normalizeInto(key, out)

	switch x := v.(type) {
	case nil:
		// absent value, nothing to copy
	case string:
		out[canon] = f.localize(canon, x)
	case bool:
		out[canon] = x
	case float64:
		out[canon] = x
	case int:
		out[canon] = float64(x)
	case int64:
		out[canon] = float64(x)
	case json.Number:
		if n, err := x.Float64(); err == nil {
			out[canon] = n
		} else {
			out[canon] = x.String()
		}
	default:
		out[canon] = stringify(x)
	}
}

// normalizeInto resolves the canonical key and applies the picture-style side
// effect when the key demands it.
func (f *Flattener) normalizeInto(key string, out Fields) string {
	canon, forcePicture := NormalizeKey(key, f.MessageKey, f.TitleKey)
	if forcePicture {
		out[KeyStyle] = StylePicture
	}
	return canon
}

func (f *Flattener) localize(canonicalKey, value string) string {
	if f.Loc == nil {
		return value
	}
	return f.Loc.Resolve(canonicalKey, value)
}

func (f *Flattener) report(kind, field, detail string) {
	if f.Report != nil {
		f.Report(kind, field, detail)
	}
}

func hasKey(m map[string]any, key string) bool {
	_, ok := m[key]
	return ok
}
