package view

import (
	"embed"
	"html/template"

	"linkchat/internal/model"
)

//go:embed templates/*.html
var files embed.FS

// Templates parses the embedded page templates for gin's HTML renderer.
func Templates() *template.Template {
	return template.Must(template.ParseFS(files, "templates/*.html"))
}

// ChatPage is the data handed to the chat template.
type ChatPage struct {
	Messages       []model.Message
	Config         model.GenerationConfig
	ShowConfigMenu bool
	ShowDataMenu   bool
	Models         []string

	EditingID string

	StreamingActive bool
	StreamingPrompt string

	Error string
}

// StreamFrame is the data handed to the polling-fragment template. While
// Complete is false the frame instructs the client to re-request itself
// after RefreshSeconds.
type StreamFrame struct {
	Content        string
	Complete       bool
	RefreshSeconds int
	RefreshURL     string
}
