package handler

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"linkchat/internal/catalog"
	"linkchat/internal/chat"
	"linkchat/internal/middleware"
	"linkchat/internal/model"
	"linkchat/internal/view"
)

// ChatHandler serves the conversation surface: page rendering, message
// submission and the per-message mutations.
type ChatHandler struct {
	Chat    *chat.Service
	Catalog *catalog.Catalog
	Log     zerolog.Logger
}

func (h *ChatHandler) page(c *gin.Context, p view.ChatPage) {
	sess, _ := middleware.SessionFromContext(c)
	p.Messages = sess.Log.Snapshot()
	p.Config = sess.Config()
	if p.Error == "" {
		p.Error = c.Query("error")
	}
	c.HTML(http.StatusOK, "chat.html", p)
}

// Page renders the main chat view.
func (h *ChatHandler) Page(c *gin.Context) {
	h.page(c, view.ChatPage{})
}

// ConfigMenu renders the page with the settings menu open.
func (h *ChatHandler) ConfigMenu(c *gin.Context) {
	h.page(c, view.ChatPage{
		ShowConfigMenu: true,
		Models:         h.Catalog.Models(c.Request.Context()),
	})
}

// DataMenu renders the page with the import/export menu open.
func (h *ChatHandler) DataMenu(c *gin.Context) {
	h.page(c, view.ChatPage{ShowDataMenu: true})
}

// Submit handles a non-streaming prompt: both turns are computed before
// the redirect is sent.
func (h *ChatHandler) Submit(c *gin.Context) {
	sess, _ := middleware.SessionFromContext(c)
	prompt := c.PostForm("prompt")

	image, err := readImage(c)
	if err != nil {
		redirectError(c, "Could not read the uploaded image")
		return
	}

	_, _, err = h.Chat.ProcessTurn(c.Request.Context(), sess.Log, sess.Config(), prompt, image)
	if errors.Is(err, chat.ErrEmptyPrompt) {
		redirectError(c, "Please enter a valid message")
		return
	}
	c.Redirect(http.StatusFound, "/#chat-bottom")
}

// Edit renders the page with one message switched to edit mode.
func (h *ChatHandler) Edit(c *gin.Context) {
	sess, _ := middleware.SessionFromContext(c)
	id := c.Param("id")

	if _, ok := sess.Log.Get(id); !ok {
		redirectError(c, "Message not found")
		return
	}
	h.page(c, view.ChatPage{EditingID: id})
}

// View switches a message back to display mode.
func (h *ChatHandler) View(c *gin.Context) {
	sess, _ := middleware.SessionFromContext(c)
	turn := sess.Log.IndexOf(c.Param("id"))
	if turn >= 0 {
		c.Redirect(http.StatusFound, "/#turn-"+strconv.Itoa(turn))
		return
	}
	c.Redirect(http.StatusFound, "/#chat-bottom")
}

// Save updates a message's content (and image, when a new one is
// uploaded) in place.
func (h *ChatHandler) Save(c *gin.Context) {
	sess, _ := middleware.SessionFromContext(c)
	id := c.Param("id")

	image, err := readImage(c)
	if err != nil {
		redirectError(c, "Could not read the uploaded image")
		return
	}
	var imagePtr *string
	if image != "" {
		imagePtr = &image
	}

	if _, err := sess.Log.Update(id, c.PostForm("prompt"), imagePtr); err != nil {
		redirectError(c, "Message not found")
		return
	}
	if turn := sess.Log.IndexOf(id); turn >= 0 {
		c.Redirect(http.StatusFound, "/#turn-"+strconv.Itoa(turn))
		return
	}
	c.Redirect(http.StatusFound, "/#chat-bottom")
}

// Delete removes a single message. Paired messages are left alone.
func (h *ChatHandler) Delete(c *gin.Context) {
	sess, _ := middleware.SessionFromContext(c)
	if !sess.Log.Delete(c.Param("id")) {
		redirectError(c, "Message not found or could not be deleted")
		return
	}
	c.Redirect(http.StatusFound, "/#chat-bottom")
}

// Regenerate recomputes the assistant reply to a user message.
func (h *ChatHandler) Regenerate(c *gin.Context) {
	sess, _ := middleware.SessionFromContext(c)

	_, err := h.Chat.Regenerate(c.Request.Context(), sess.Log, sess.Config(), c.Param("id"))
	if err != nil {
		redirectError(c, "An error occurred while regenerating the message")
		return
	}
	anchor := c.PostForm("anchor")
	if anchor == "" {
		anchor = "#chat-bottom"
	}
	c.Redirect(http.StatusFound, "/"+anchor)
}

// UpdateConfig applies a partial settings update; absent fields keep
// their current values.
func (h *ChatHandler) UpdateConfig(c *gin.Context) {
	sess, _ := middleware.SessionFromContext(c)

	sess.UpdateConfig(func(cfg *model.GenerationConfig) {
		if raw, ok := c.GetPostForm("historyEnabled"); ok {
			cfg.HistoryEnabled = raw == "true"
		}
		if raw := c.PostForm("maxHistoryTurns"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n >= 0 {
				cfg.MaxHistoryTurns = n
			}
		}
		if raw := c.PostForm("aiModel"); raw != "" {
			cfg.Model = raw
		}
		if raw := c.PostForm("temperature"); raw != "" {
			if t, err := strconv.ParseFloat(raw, 64); err == nil {
				cfg.Temperature = t
			}
		}
		if raw := c.PostForm("maxTokens"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				cfg.MaxTokens = n
			}
		}
		if raw, ok := c.GetPostForm("streamingEnabled"); ok {
			cfg.StreamingEnabled = raw == "true"
		}
		if raw := c.PostForm("streamingUpdateRate"); raw != "" {
			if n, err := strconv.Atoi(raw); err == nil && n > 0 {
				cfg.StreamingUpdateRate = n
			}
		}
		if raw, ok := c.GetPostForm("systemPrompt"); ok {
			cfg.SystemPrompt = raw
		}
	})
	c.Redirect(http.StatusFound, "/#chat-bottom")
}

// Clear empties the conversation log.
func (h *ChatHandler) Clear(c *gin.Context) {
	sess, _ := middleware.SessionFromContext(c)
	sess.Log.Clear()
	c.Redirect(http.StatusFound, "/#chat-bottom")
}

// Export serializes the full ordered log as a downloadable JSON document.
func (h *ChatHandler) Export(c *gin.Context) {
	sess, _ := middleware.SessionFromContext(c)

	data, err := json.MarshalIndent(sess.Log.Snapshot(), "", "  ")
	if err != nil {
		c.String(http.StatusInternalServerError, "Failed to export chat history: %v", err)
		return
	}
	c.Header("Content-Disposition", `attachment; filename="chat-export.json"`)
	c.Data(http.StatusOK, "application/octet-stream", data)
}

// Import replaces the log wholesale with an uploaded export document.
// Message ids are reassigned on the way in.
func (h *ChatHandler) Import(c *gin.Context) {
	sess, _ := middleware.SessionFromContext(c)

	fh, err := c.FormFile("file")
	if err != nil {
		redirectError(c, "No file selected for import")
		return
	}
	f, err := fh.Open()
	if err != nil {
		redirectError(c, "Failed to import chat history")
		return
	}
	defer f.Close()

	var msgs []model.Message
	if err := json.NewDecoder(f).Decode(&msgs); err != nil {
		redirectError(c, "Failed to import chat history")
		return
	}
	sess.Log.Replace(msgs)
	h.Log.Info().Int("messages", len(msgs)).Msg("imported chat history")
	c.Redirect(http.StatusFound, "/#chat-bottom")
}

// readImage pulls the optional multipart image field and returns it as a
// base64 blob; an absent field is not an error.
func readImage(c *gin.Context) (string, error) {
	fh, err := c.FormFile("image")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return "", nil
		}
		return "", err
	}
	f, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer func(f multipart.File) { _ = f.Close() }(f)

	data, err := io.ReadAll(f)
	if err != nil {
		return "", err
	}
	if len(data) == 0 {
		return "", nil
	}
	return base64.StdEncoding.EncodeToString(data), nil
}

// redirectError sends the browser back to the chat view with an encoded,
// human-readable reason. Raw errors never reach the client.
func redirectError(c *gin.Context, reason string) {
	c.Redirect(http.StatusFound, "/?error="+url.QueryEscape(reason)+"#chat-bottom")
}
