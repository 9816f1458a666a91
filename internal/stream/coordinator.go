package stream

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"linkchat/internal/ai"
	"linkchat/internal/chat"
	"linkchat/internal/model"
)

// ErrStreamActive is returned by Begin while a previous run for the same
// session is still generating. A second prompt is rejected rather than
// racing two background tasks against one buffer.
var ErrStreamActive = errors.New("a streaming response is already in progress")

// State is the transient streaming state of one session. One writer (the
// background task) appends to the buffer; any number of pollers read it
// through Poll. At most one State is live per session.
type State struct {
	mu        sync.Mutex
	prompt    string
	image     string
	buffer    []byte
	started   bool
	complete  bool
	createdAt time.Time
	fragments int
}

// Prompt returns the prompt this stream is answering.
func (st *State) Prompt() string {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.prompt
}

// Snapshot returns the accumulated buffer and the completion flag. The
// flag is only set after every written fragment is in the buffer.
func (st *State) Snapshot() (string, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	return string(st.buffer), st.complete
}

func (st *State) appendFragment(fragment string) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.buffer = append(st.buffer, fragment...)
	st.fragments++
}

func (st *State) markComplete() {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.complete = true
}

// Coordinator bridges one blocking provider call per session to a
// pull-based client. Generation is lazily started by the first Poll, not
// by Begin, so nothing runs until the delivery channel is consulted.
type Coordinator struct {
	client ai.CompletionClient
	log    zerolog.Logger
}

func NewCoordinator(client ai.CompletionClient, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		client: client,
		log:    log.With().Str("component", "stream").Logger(),
	}
}

// Begin records the prompt for a fresh stream. prev is the session's
// current state, if any; while it is still running the new submit is
// rejected.
func (c *Coordinator) Begin(prev *State, prompt, imageBase64 string) (*State, error) {
	if prev != nil {
		prev.mu.Lock()
		running := prev.started && !prev.complete
		prev.mu.Unlock()
		if running {
			return nil, ErrStreamActive
		}
	}
	return &State{prompt: prompt, image: imageBase64, createdAt: time.Now()}, nil
}

// Poll returns the buffer as accumulated so far and whether generation has
// finished. The first call launches the background task. Poll never blocks
// on generation.
func (c *Coordinator) Poll(st *State, l *chat.Log, cfg model.GenerationConfig) (string, bool) {
	st.mu.Lock()
	if !st.started {
		st.started = true
		go c.run(st, l, cfg)
	}
	st.mu.Unlock()

	return st.Snapshot()
}

// run executes the provider call to completion. Fragments become visible
// to pollers as they arrive; the final assistant message is committed to
// the log before the complete flag is raised, so a poller that observes
// completion also observes the commit. A provider failure is appended to
// the buffer and still completes the stream, keeping the partial text.
func (c *Coordinator) run(st *State, l *chat.Log, cfg model.GenerationConfig) {
	history := streamWindow(l.Snapshot(), st.prompt, cfg)

	err := c.client.GenerateStream(context.Background(), ai.Request{
		Prompt:       st.prompt,
		ImageBase64:  st.image,
		History:      history,
		Model:        cfg.Model,
		MaxTokens:    cfg.MaxTokens,
		Temperature:  cfg.Temperature,
		SystemPrompt: cfg.SystemPrompt,
	}, st.appendFragment)

	if err != nil {
		c.log.Error().Err(err).Msg("streaming generation failed")
		st.appendFragment("Error: " + err.Error())
		st.markComplete()
		return
	}

	text, _ := st.Snapshot()
	if text != "" {
		l.Append(model.Message{Role: model.RoleAssistant, Content: text})
	}
	st.markComplete()
	c.log.Debug().Int("bytes", len(text)).Msg("stream complete")
}

// streamWindow computes the context window for a streaming run. The user
// turn appended at submit time sits at the end of the log; it is excluded
// here because the prompt is sent as the explicit final turn.
func streamWindow(msgs []model.Message, prompt string, cfg model.GenerationConfig) []model.Message {
	if n := len(msgs); n > 0 {
		last := msgs[n-1]
		if last.Role == model.RoleUser && last.Content == prompt {
			msgs = msgs[:n-1]
		}
	}
	return chat.Window(msgs, cfg)
}
