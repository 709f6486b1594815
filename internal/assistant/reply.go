package assistant

import (
	"encoding/json"
	"strings"

	"github.com/kaptinlin/jsonrepair"
)

type wireReply struct {
	Message     string `json:"message"`
	Replacement string `json:"replacement"`
}

// parseReply turns raw model output into a Reply. Models routinely wrap JSON
// in code fences or emit slightly broken JSON; we strip fences, then try a
// strict decode, then a repaired decode, and finally fall back to treating
// the whole output as the message text.
func parseReply(raw string) Reply {
	candidate := stripFences(strings.TrimSpace(raw))

	var wire wireReply
	if err := json.Unmarshal([]byte(candidate), &wire); err == nil && wire.Message != "" {
		return Reply{Message: wire.Message, Replacement: wire.Replacement}
	}

	if repaired, err := jsonrepair.JSONRepair(candidate); err == nil {
		if err := json.Unmarshal([]byte(repaired), &wire); err == nil && wire.Message != "" {
			return Reply{Message: wire.Message, Replacement: wire.Replacement}
		}
	}

	return Reply{Message: strings.TrimSpace(raw)}
}

// stripFences removes a surrounding Markdown code fence, with or without a
// language tag.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body := strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(body, '\n'); i >= 0 {
		body = body[i+1:]
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}
