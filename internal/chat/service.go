package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"linkchat/internal/ai"
	"linkchat/internal/model"
)

// ErrEmptyPrompt is returned when a submitted prompt is blank.
var ErrEmptyPrompt = errors.New("prompt must not be empty")

// Fallback texts inserted in place of a reply when the provider fails.
// The conversation must stay consistent and usable even with the provider
// down, so these are committed as regular assistant messages.
const (
	processFallback    = "Sorry, I encountered an error while processing your request. Please try again."
	regenerateFallback = "Sorry, I encountered an error while regenerating your request. Please try again."
)

// Service computes AI replies over a session's Log.
type Service struct {
	client ai.CompletionClient
	log    zerolog.Logger
}

func NewService(client ai.CompletionClient, log zerolog.Logger) *Service {
	return &Service{
		client: client,
		log:    log.With().Str("component", "chat").Logger(),
	}
}

// ProcessTurn appends the user message, requests a reply over the context
// window, appends the assistant message and returns both. The window is
// taken from the log as it was before the user message was added; the
// prompt travels as the explicit final turn of the provider payload.
func (s *Service) ProcessTurn(ctx context.Context, l *Log, cfg model.GenerationConfig, prompt, imageBase64 string) (model.Message, model.Message, error) {
	if strings.TrimSpace(prompt) == "" {
		return model.Message{}, model.Message{}, ErrEmptyPrompt
	}

	prior := l.Snapshot()
	user := l.Append(model.Message{Role: model.RoleUser, Content: prompt, ImageBase64: imageBase64})

	content, err := s.client.Generate(ctx, ai.Request{
		Prompt:       prompt,
		ImageBase64:  imageBase64,
		History:      Window(prior, cfg),
		Model:        cfg.Model,
		MaxTokens:    cfg.MaxTokens,
		Temperature:  cfg.Temperature,
		SystemPrompt: cfg.SystemPrompt,
	})
	if err != nil {
		s.log.Error().Err(err).Msg("reply generation failed, inserting fallback")
		content = processFallback
	}

	reply := l.Append(model.Message{Role: model.RoleAssistant, Content: content})
	return user, reply, nil
}

// Regenerate replaces the assistant reply to the given user message. The
// reply immediately following the user message, if any, is removed; the
// context window ends at the user message; the fresh reply is inserted
// right after it so the turn pairing survives. Provider failures become a
// fallback message, never a dropped turn.
func (s *Service) Regenerate(ctx context.Context, l *Log, cfg model.GenerationConfig, userMessageID string) (model.Message, error) {
	user, history, err := removeStaleReply(l, userMessageID)
	if err != nil {
		return model.Message{}, err
	}

	content, genErr := s.client.Generate(ctx, ai.Request{
		Prompt:       user.Content,
		ImageBase64:  user.ImageBase64,
		History:      Window(history, cfg),
		Model:        cfg.Model,
		MaxTokens:    cfg.MaxTokens,
		Temperature:  cfg.Temperature,
		SystemPrompt: cfg.SystemPrompt,
	})
	if genErr != nil {
		s.log.Error().Err(genErr).Str("messageId", userMessageID).Msg("regeneration failed, inserting fallback")
		content = regenerateFallback
	}

	return l.insertAfter(userMessageID, model.Message{Role: model.RoleAssistant, Content: content}), nil
}

// removeStaleReply validates that the id names a USER message, drops the
// assistant message immediately following it, and returns the user message
// together with the context up to and including it.
func removeStaleReply(l *Log, userMessageID string) (model.Message, []model.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	idx := -1
	for i := range l.messages {
		if l.messages[i].ID == userMessageID {
			idx = i
			break
		}
	}
	if idx < 0 || l.messages[idx].Role != model.RoleUser {
		return model.Message{}, nil, ErrNotFound
	}

	if idx+1 < len(l.messages) && l.messages[idx+1].Role == model.RoleAssistant {
		l.messages = append(l.messages[:idx+1], l.messages[idx+2:]...)
	}

	history := make([]model.Message, idx+1)
	copy(history, l.messages[:idx+1])
	return l.messages[idx], history, nil
}

// insertAfter places msg directly after the anchor message. If the anchor
// was deleted while the provider call was in flight, the reply goes to the
// end of the log rather than being lost.
func (l *Log) insertAfter(anchorID string, msg model.Message) model.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg = stamp(msg)
	for i := range l.messages {
		if l.messages[i].ID == anchorID {
			l.messages = append(l.messages[:i+1], append([]model.Message{msg}, l.messages[i+1:]...)...)
			return msg
		}
	}
	l.messages = append(l.messages, msg)
	return msg
}
