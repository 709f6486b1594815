package assistant

import (
	"context"
	"errors"
	"strings"
	"testing"
)

type fakeProvider struct {
	reply  string
	err    error
	prompt string
}

func (f *fakeProvider) Generate(_ context.Context, prompt string) (string, error) {
	f.prompt = prompt
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func TestParseMode(t *testing.T) {
	if _, err := ParseMode("critique"); err != nil {
		t.Errorf("critique should parse: %v", err)
	}
	if _, err := ParseMode("synthesize"); err != nil {
		t.Errorf("synthesize should parse: %v", err)
	}
	if _, err := ParseMode("summarize"); err == nil {
		t.Error("expected error for unknown mode")
	}
}

func TestRunParsesJSONReply(t *testing.T) {
	provider := &fakeProvider{reply: `{"message": "Tighter now.", "replacement": "a brisk walk"}`}
	client := NewClient(provider)

	reply, err := client.Run(context.Background(), Request{
		Mode:       ModeSynthesize,
		Prompt:     "make it shorter",
		AnchorText: "a leisurely stroll of considerable length",
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if reply.Message != "Tighter now." || reply.Replacement != "a brisk walk" {
		t.Errorf("unexpected reply %+v", reply)
	}
}

func TestRunStripsCodeFences(t *testing.T) {
	provider := &fakeProvider{reply: "```json\n{\"message\": \"ok\", \"replacement\": \"x\"}\n```"}
	client := NewClient(provider)

	reply, err := client.Run(context.Background(), Request{Mode: ModeSynthesize, Prompt: "p"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if reply.Message != "ok" || reply.Replacement != "x" {
		t.Errorf("unexpected reply %+v", reply)
	}
}

func TestRunRepairsBrokenJSON(t *testing.T) {
	// Trailing comma and single quotes: invalid JSON a model plausibly emits.
	provider := &fakeProvider{reply: `{'message': 'fixed up', 'replacement': 'better text',}`}
	client := NewClient(provider)

	reply, err := client.Run(context.Background(), Request{Mode: ModeSynthesize, Prompt: "p"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if reply.Message != "fixed up" || reply.Replacement != "better text" {
		t.Errorf("expected repaired JSON to decode, got %+v", reply)
	}
}

func TestRunFallsBackToPlainText(t *testing.T) {
	provider := &fakeProvider{reply: "I would suggest rephrasing the opening."}
	client := NewClient(provider)

	reply, err := client.Run(context.Background(), Request{Mode: ModeCritique, Prompt: "p"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if reply.Message != "I would suggest rephrasing the opening." {
		t.Errorf("unexpected message %q", reply.Message)
	}
	if reply.Replacement != "" {
		t.Errorf("plain-text fallback must not invent a replacement, got %q", reply.Replacement)
	}
}

func TestRunDropsReplacementInCritiqueMode(t *testing.T) {
	provider := &fakeProvider{reply: `{"message": "crit", "replacement": "sneaky rewrite"}`}
	client := NewClient(provider)

	reply, err := client.Run(context.Background(), Request{Mode: ModeCritique, Prompt: "p"})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if reply.Replacement != "" {
		t.Errorf("critique replies must not carry a replacement, got %q", reply.Replacement)
	}
}

func TestRunPropagatesProviderError(t *testing.T) {
	providerErr := errors.New("connection refused")
	client := NewClient(&fakeProvider{err: providerErr})

	if _, err := client.Run(context.Background(), Request{Mode: ModeCritique, Prompt: "p"}); !errors.Is(err, providerErr) {
		t.Errorf("expected provider error to propagate, got %v", err)
	}
}

func TestBuildPromptIncludesAllSections(t *testing.T) {
	prompt := BuildPrompt(Request{
		Mode:       ModeSynthesize,
		Prompt:     "make it formal",
		AnchorText: "hey folks",
		Context:    "hey folks\nwelcome to the meeting",
		Knowledge:  "Company style guide: no slang.",
	})
	for _, want := range []string{"make it formal", "hey folks", "welcome to the meeting", "no slang", "replacement"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q:\n%s", want, prompt)
		}
	}
}

func TestContextWindowSnapsToLines(t *testing.T) {
	text := "first line\nsecond line with target here\nthird line"
	start := strings.Index(text, "target")

	window := ContextWindow(text, start, start+len("target"), 5)
	if window != "second line with target here" {
		t.Errorf("unexpected window %q", window)
	}
}

func TestContextWindowClampsBounds(t *testing.T) {
	text := "short"
	if got := ContextWindow(text, -3, 99, 100); got != "short" {
		t.Errorf("unexpected window %q", got)
	}
	if got := ContextWindow("", 0, 0, 10); got != "" {
		t.Errorf("expected empty window, got %q", got)
	}
}
