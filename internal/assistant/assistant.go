// Package assistant integrates an LLM into comment threads: it assembles the
// prompt from the thread's anchor and surrounding document text, calls the
// configured provider, and parses the model's reply into a message and an
// optional proposed replacement.
package assistant

import (
	"context"
	"fmt"
	"strings"
)

// Mode selects what the model is asked to do with the anchored text.
type Mode string

const (
	// ModeCritique asks for feedback only; the reply never carries a
	// replacement.
	ModeCritique Mode = "critique"
	// ModeSynthesize asks for a rewritten version of the anchored text,
	// delivered as a patch proposal.
	ModeSynthesize Mode = "synthesize"
)

// ParseMode validates a client-supplied mode string.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModeCritique, ModeSynthesize:
		return Mode(s), nil
	}
	return "", fmt.Errorf("unknown assistant mode %q", s)
}

// Request carries everything the assistant needs for one invocation.
type Request struct {
	DocumentID string
	ThreadID   string
	Mode       Mode
	Prompt     string
	AnchorText string
	Context    string
	Knowledge  string
}

// Reply is the parsed model output. Replacement is only set in synthesize
// mode, and only when the model actually proposed one.
type Reply struct {
	Message     string
	Replacement string
}

// Provider generates a completion for a single prompt.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Client drives one assistant invocation end to end.
type Client struct {
	provider Provider
}

func NewClient(provider Provider) *Client {
	return &Client{provider: provider}
}

// Run calls the provider and parses its reply. A provider error surfaces as
// an error; a malformed reply never does, it degrades to a plain message.
func (c *Client) Run(ctx context.Context, req Request) (Reply, error) {
	raw, err := c.provider.Generate(ctx, BuildPrompt(req))
	if err != nil {
		return Reply{}, fmt.Errorf("assistant: generate: %w", err)
	}
	reply := parseReply(raw)
	if req.Mode != ModeSynthesize {
		reply.Replacement = ""
	}
	return reply, nil
}

// BuildPrompt assembles the provider prompt from the request. The model is
// instructed to answer with a JSON object so the reply can carry a
// replacement alongside the message.
func BuildPrompt(req Request) string {
	var b strings.Builder
	b.WriteString("You are a writing assistant embedded in a document editor.\n")
	switch req.Mode {
	case ModeSynthesize:
		b.WriteString("Rewrite the highlighted text according to the instruction.\n")
		b.WriteString(`Respond with a JSON object: {"message": "<one-paragraph explanation>", "replacement": "<the rewritten text>"}.` + "\n")
	default:
		b.WriteString("Critique the highlighted text according to the instruction. Do not rewrite it.\n")
		b.WriteString(`Respond with a JSON object: {"message": "<your critique>"}.` + "\n")
	}
	b.WriteString("Respond with JSON only, no code fences.\n")

	if req.Knowledge != "" {
		b.WriteString("\nProject background:\n")
		b.WriteString(req.Knowledge)
		b.WriteString("\n")
	}
	if req.Context != "" {
		b.WriteString("\nSurrounding document text:\n")
		b.WriteString(req.Context)
		b.WriteString("\n")
	}
	if req.AnchorText != "" {
		b.WriteString("\nHighlighted text:\n")
		b.WriteString(req.AnchorText)
		b.WriteString("\n")
	}
	b.WriteString("\nInstruction:\n")
	b.WriteString(req.Prompt)
	return b.String()
}

// ContextWindow extracts a bounded plain-text window around the byte range
// [start, end), expanded by radius bytes each way and snapped outward to
// line boundaries so the model never sees a clipped sentence mid-word.
func ContextWindow(text string, start, end, radius int) string {
	if text == "" {
		return ""
	}
	if start < 0 {
		start = 0
	}
	if end > len(text) {
		end = len(text)
	}
	if end < start {
		end = start
	}

	lo := start - radius
	if lo < 0 {
		lo = 0
	}
	hi := end + radius
	if hi > len(text) {
		hi = len(text)
	}
	if i := strings.LastIndexByte(text[:lo], '\n'); i >= 0 {
		lo = i + 1
	} else {
		lo = 0
	}
	if i := strings.IndexByte(text[hi:], '\n'); i >= 0 {
		hi += i
	} else {
		hi = len(text)
	}
	return text[lo:hi]
}

// ErrorText renders a provider failure into the human-readable content of an
// errored message.
func ErrorText(err error) string {
	return "The assistant could not be reached: " + err.Error()
}
