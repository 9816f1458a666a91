package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"linkchat/internal/middleware"
	"linkchat/internal/model"
	"linkchat/internal/stream"
	"linkchat/internal/view"
)

// StreamHandler bridges the pull-based client to the stream coordinator:
// submit initializes state, the frame endpoint polls it, and the optional
// websocket endpoint pushes the same snapshots.
type StreamHandler struct {
	Coordinator *stream.Coordinator
	Log         zerolog.Logger

	upgrader websocket.Upgrader
}

// Submit records the prompt and returns immediately with a page whose
// embedded frame drives the polling. Generation does not start here.
func (h *StreamHandler) Submit(c *gin.Context) {
	sess, _ := middleware.SessionFromContext(c)
	prompt := c.PostForm("prompt")
	if prompt == "" {
		redirectError(c, "Please enter a valid message")
		return
	}

	image, err := readImage(c)
	if err != nil {
		redirectError(c, "Could not read the uploaded image")
		return
	}

	st, err := h.Coordinator.Begin(sess.Stream(), prompt, image)
	if errors.Is(err, stream.ErrStreamActive) {
		redirectError(c, "A streaming response is already in progress")
		return
	}

	// A resubmit of text already in the log keeps the log as is; the
	// stream still runs so the client gets its answer.
	if !sess.Log.ContainsUserContent(prompt) {
		sess.Log.Append(model.Message{Role: model.RoleUser, Content: prompt, ImageBase64: image})
	}
	sess.SetStream(st)

	cfg := sess.Config()
	c.HTML(http.StatusOK, "chat.html", view.ChatPage{
		Messages:        sess.Log.Snapshot(),
		Config:          cfg,
		StreamingActive: true,
		StreamingPrompt: prompt,
	})
}

// Frame is the poll operation: it returns the buffer accumulated so far
// and, while generation is unfinished, a directive telling the client to
// re-request this fragment after the configured interval. The first call
// launches the background generation task.
func (h *StreamHandler) Frame(c *gin.Context) {
	sess, _ := middleware.SessionFromContext(c)

	st := sess.Stream()
	if st == nil {
		c.HTML(http.StatusOK, "stream_frame.html", view.StreamFrame{Complete: true})
		return
	}

	cfg := sess.Config()
	content, complete := h.Coordinator.Poll(st, sess.Log, cfg)

	frame := view.StreamFrame{
		Content:        content,
		Complete:       complete,
		RefreshSeconds: cfg.StreamingUpdateRate,
	}
	if !complete {
		// Advisory params only; correctness does not depend on them.
		frame.RefreshURL = fmt.Sprintf("/chat/stream-frame?t=%d&c=%d&p=%d#stream-bottom",
			time.Now().UnixMilli(), len(content), len(st.Prompt()))
	}
	c.HTML(http.StatusOK, "stream_frame.html", frame)
}

type streamUpdate struct {
	Content  string `json:"content"`
	Complete bool   `json:"complete"`
}

// Push is the push-transport variant of Frame: the same Poll contract
// delivered over a websocket, one snapshot per poll interval until the
// stream completes.
func (h *StreamHandler) Push(c *gin.Context) {
	sess, _ := middleware.SessionFromContext(c)

	st := sess.Stream()
	if st == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "No stream in progress"})
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	defer conn.Close()

	cfg := sess.Config()
	interval := time.Duration(cfg.StreamingUpdateRate) * time.Second
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		content, complete := h.Coordinator.Poll(st, sess.Log, cfg)
		if err := conn.WriteJSON(streamUpdate{Content: content, Complete: complete}); err != nil {
			return
		}
		if complete {
			return
		}
		<-ticker.C
	}
}
