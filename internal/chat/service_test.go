package chat

import (
	"context"
	"errors"
	"io"
	"testing"

	"linkchat/internal/ai"
	"linkchat/internal/logging"
	"linkchat/internal/model"
)

type fakeClient struct {
	reply    string
	err      error
	lastReq  ai.Request
	requests int
}

func (f *fakeClient) Generate(_ context.Context, req ai.Request) (string, error) {
	f.lastReq = req
	f.requests++
	if f.err != nil {
		return "", f.err
	}
	return f.reply, nil
}

func (f *fakeClient) GenerateStream(_ context.Context, req ai.Request, onFragment func(string)) error {
	f.lastReq = req
	f.requests++
	if f.err != nil {
		return f.err
	}
	onFragment(f.reply)
	return nil
}

func testConfig() model.GenerationConfig {
	cfg := model.DefaultGenerationConfig()
	cfg.MaxHistoryTurns = 1
	return cfg
}

func TestProcessTurn_AppendsBothMessages(t *testing.T) {
	client := &fakeClient{reply: "hello there"}
	svc := NewService(client, logging.New(io.Discard, "error"))
	l := NewLog()

	user, reply, err := svc.ProcessTurn(context.Background(), l, testConfig(), "hi", "")
	if err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}
	if user.Role != model.RoleUser || user.Content != "hi" {
		t.Fatalf("unexpected user message: %+v", user)
	}
	if reply.Role != model.RoleAssistant || reply.Content != "hello there" {
		t.Fatalf("unexpected reply: %+v", reply)
	}

	snap := l.Snapshot()
	if len(snap) != 2 || snap[0].ID != user.ID || snap[1].ID != reply.ID {
		t.Fatalf("expected [user reply] in the log, got %v", snap)
	}
}

func TestProcessTurn_EmptyPrompt(t *testing.T) {
	svc := NewService(&fakeClient{}, logging.New(io.Discard, "error"))
	l := NewLog()

	if _, _, err := svc.ProcessTurn(context.Background(), l, testConfig(), "   ", ""); !errors.Is(err, ErrEmptyPrompt) {
		t.Fatalf("expected ErrEmptyPrompt, got %v", err)
	}
	if l.Len() != 0 {
		t.Fatalf("rejected prompt must not touch the log")
	}
}

func TestProcessTurn_WindowExcludesCurrentExchange(t *testing.T) {
	client := &fakeClient{reply: "f"}
	svc := NewService(client, logging.New(io.Discard, "error"))

	l := NewLog()
	l.Append(model.Message{Role: model.RoleUser, Content: "a"})
	l.Append(model.Message{Role: model.RoleAssistant, Content: "b"})
	l.Append(model.Message{Role: model.RoleUser, Content: "c"})
	l.Append(model.Message{Role: model.RoleAssistant, Content: "d"})

	if _, _, err := svc.ProcessTurn(context.Background(), l, testConfig(), "e", ""); err != nil {
		t.Fatalf("ProcessTurn: %v", err)
	}

	history := client.lastReq.History
	if len(history) != 2 || history[0].Content != "c" || history[1].Content != "d" {
		t.Fatalf("expected window [c d], got %v", history)
	}
	if client.lastReq.Prompt != "e" {
		t.Fatalf("expected prompt e, got %q", client.lastReq.Prompt)
	}
}

func TestProcessTurn_ProviderFailureInsertsFallback(t *testing.T) {
	client := &fakeClient{err: errors.New("boom")}
	svc := NewService(client, logging.New(io.Discard, "error"))
	l := NewLog()

	_, reply, err := svc.ProcessTurn(context.Background(), l, testConfig(), "hi", "")
	if err != nil {
		t.Fatalf("provider failure must not surface: %v", err)
	}
	if reply.Content != processFallback {
		t.Fatalf("expected fallback content, got %q", reply.Content)
	}
	if l.Len() != 2 {
		t.Fatalf("both turns must be in the log, got %d", l.Len())
	}
}

func TestRegenerate_ReplacesFollowingReply(t *testing.T) {
	client := &fakeClient{reply: "fresh"}
	svc := NewService(client, logging.New(io.Discard, "error"))

	l := NewLog()
	l.Append(model.Message{Role: model.RoleUser, Content: "a"})
	l.Append(model.Message{Role: model.RoleAssistant, Content: "b"})
	user := l.Append(model.Message{Role: model.RoleUser, Content: "c"})
	stale := l.Append(model.Message{Role: model.RoleAssistant, Content: "d"})
	tail := l.Append(model.Message{Role: model.RoleUser, Content: "e"})

	reply, err := svc.Regenerate(context.Background(), l, testConfig(), user.ID)
	if err != nil {
		t.Fatalf("Regenerate: %v", err)
	}
	if reply.Content != "fresh" {
		t.Fatalf("unexpected reply %q", reply.Content)
	}

	snap := l.Snapshot()
	if len(snap) != 5 {
		t.Fatalf("expected 5 messages, got %d", len(snap))
	}
	idx := l.IndexOf(user.ID)
	if idx != 2 {
		t.Fatalf("user message moved to %d", idx)
	}
	if snap[idx+1].ID != reply.ID || snap[idx+1].Role != model.RoleAssistant {
		t.Fatalf("reply must immediately follow its user message")
	}
	if _, ok := l.Get(stale.ID); ok {
		t.Fatalf("stale reply must be removed")
	}
	if _, ok := l.Get(tail.ID); !ok {
		t.Fatalf("unrelated tail message must survive")
	}
}

func TestRegenerate_WindowAnchoredAtUserMessage(t *testing.T) {
	client := &fakeClient{reply: "fresh"}
	svc := NewService(client, logging.New(io.Discard, "error"))

	l := NewLog()
	l.Append(model.Message{Role: model.RoleUser, Content: "a"})
	l.Append(model.Message{Role: model.RoleAssistant, Content: "b"})
	user := l.Append(model.Message{Role: model.RoleUser, Content: "c"})
	l.Append(model.Message{Role: model.RoleAssistant, Content: "d"})
	l.Append(model.Message{Role: model.RoleUser, Content: "e"})

	if _, err := svc.Regenerate(context.Background(), l, testConfig(), user.ID); err != nil {
		t.Fatalf("Regenerate: %v", err)
	}

	history := client.lastReq.History
	if len(history) == 0 || history[len(history)-1].Content != "c" {
		t.Fatalf("window must end at the user message, got %v", history)
	}
	if client.lastReq.Prompt != "c" {
		t.Fatalf("expected prompt c, got %q", client.lastReq.Prompt)
	}
}

func TestRegenerate_RejectsNonUserID(t *testing.T) {
	svc := NewService(&fakeClient{reply: "x"}, logging.New(io.Discard, "error"))

	l := NewLog()
	l.Append(model.Message{Role: model.RoleUser, Content: "q"})
	reply := l.Append(model.Message{Role: model.RoleAssistant, Content: "a"})

	if _, err := svc.Regenerate(context.Background(), l, testConfig(), reply.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for assistant id, got %v", err)
	}
	if _, err := svc.Regenerate(context.Background(), l, testConfig(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}
}

func TestRegenerate_ProviderFailureInsertsFallback(t *testing.T) {
	client := &fakeClient{err: errors.New("down")}
	svc := NewService(client, logging.New(io.Discard, "error"))

	l := NewLog()
	user := l.Append(model.Message{Role: model.RoleUser, Content: "q"})
	l.Append(model.Message{Role: model.RoleAssistant, Content: "old"})

	reply, err := svc.Regenerate(context.Background(), l, testConfig(), user.ID)
	if err != nil {
		t.Fatalf("provider failure must not surface: %v", err)
	}
	if reply.Content != regenerateFallback {
		t.Fatalf("expected fallback, got %q", reply.Content)
	}
	snap := l.Snapshot()
	if len(snap) != 2 || snap[1].ID != reply.ID {
		t.Fatalf("turn pairing lost: %v", snap)
	}
}
