package ai

import (
	openai "github.com/sashabaranov/go-openai"

	"linkchat/internal/model"
)

// buildChatRequest assembles the provider payload: optional system prompt,
// the context window, then the prompt as an explicit final user turn.
// A trailing USER window entry whose content equals the prompt is dropped
// so the same user text never appears twice in the payload.
func buildChatRequest(req Request, stream bool) openai.ChatCompletionRequest {
	history := req.History
	if n := len(history); n > 0 {
		last := history[n-1]
		if last.Role == model.RoleUser && last.Content == req.Prompt {
			history = history[:n-1]
		}
	}

	messages := make([]openai.ChatCompletionMessage, 0, len(history)+2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	for _, msg := range history {
		messages = append(messages, toChatMessage(roleOf(msg.Role), msg.Content, msg.ImageBase64))
	}
	messages = append(messages, toChatMessage(openai.ChatMessageRoleUser, req.Prompt, req.ImageBase64))

	return openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: float32(req.Temperature),
		Stream:      stream,
	}
}

func roleOf(r model.Role) string {
	if r == model.RoleAssistant {
		return openai.ChatMessageRoleAssistant
	}
	return openai.ChatMessageRoleUser
}

// toChatMessage returns a plain text message, or a multimodal one when an
// image payload is attached.
func toChatMessage(role, content, imageBase64 string) openai.ChatCompletionMessage {
	if imageBase64 == "" {
		return openai.ChatCompletionMessage{Role: role, Content: content}
	}

	parts := make([]openai.ChatMessagePart, 0, 2)
	if content != "" {
		parts = append(parts, openai.ChatMessagePart{
			Type: openai.ChatMessagePartTypeText,
			Text: content,
		})
	}
	parts = append(parts, openai.ChatMessagePart{
		Type: openai.ChatMessagePartTypeImageURL,
		ImageURL: &openai.ChatMessageImageURL{
			URL:    "data:image/png;base64," + imageBase64,
			Detail: openai.ImageURLDetailAuto,
		},
	})
	return openai.ChatCompletionMessage{Role: role, MultiContent: parts}
}
