package compose

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"

	"pushpipe/internal/payload"
	logx "pushpipe/pkg/logx"
)

const defaultInlineReplyLabel = "Enter your reply here"

type actionSpec struct {
	Icon             string `json:"icon"`
	Title            string `json:"title"`
	Callback         string `json:"callback"`
	Foreground       *bool  `json:"foreground"`
	Inline           bool   `json:"inline"`
	InlineReplyLabel string `json:"inlineReplyLabel"`
}

// ResolveActions parses the canonical "actions" field into action
// descriptors. Malformed JSON yields an empty list and a diagnostic, never
// an error; entries without a callback or title are skipped.
func ResolveActions(raw string, log logx.Logger, report payload.Reporter) []Action {
	if strings.TrimSpace(raw) == "" {
		return nil
	}

	var specs []actionSpec
	if err := json.Unmarshal([]byte(raw), &specs); err != nil {
		log.Debug("actions field is not a JSON array", logx.Err(err))
		if report != nil {
			report(payload.DiagMalformedPayload, payload.KeyActions, "unparsable actions array")
		}
		return nil
	}

	out := make([]Action, 0, len(specs))
	for _, spec := range specs {
		if spec.Callback == "" || spec.Title == "" {
			if report != nil {
				report(payload.DiagMalformedPayload, payload.KeyActions, "action entry missing title or callback")
			}
			continue
		}

		a := Action{
			Icon:     spec.Icon,
			Title:    spec.Title,
			Callback: spec.Callback,
			Token:    uuid.NewString(),
		}

		foreground := spec.Foreground == nil || *spec.Foreground
		switch {
		case spec.Inline:
			a.Mode = ModeInlineReply
			a.InlineReplyLabel = spec.InlineReplyLabel
			if a.InlineReplyLabel == "" {
				a.InlineReplyLabel = defaultInlineReplyLabel
			}
		case foreground:
			a.Mode = ModeForeground
		default:
			a.Mode = ModeBackground
		}

		out = append(out, a)
	}
	return out
}
