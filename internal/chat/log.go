package chat

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"linkchat/internal/model"
)

// ErrNotFound is returned for operations on a message id that is not in
// the log.
var ErrNotFound = errors.New("message not found")

// Log is the ordered message history of one session. Messages keep their
// insertion order; ids are assigned once and never reused. All mutations
// are serialized by the log's own mutex, so a background stream commit and
// a foreground edit cannot interleave.
type Log struct {
	mu       sync.Mutex
	messages []model.Message
}

func NewLog() *Log {
	return &Log{}
}

// Append stores the message at the end of the log, assigning an id and
// creation time if absent, and returns the stored message.
func (l *Log) Append(msg model.Message) model.Message {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.appendLocked(msg)
}

func (l *Log) appendLocked(msg model.Message) model.Message {
	msg = stamp(msg)
	l.messages = append(l.messages, msg)
	return msg
}

func stamp(msg model.Message) model.Message {
	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now()
	}
	return msg
}

// Get returns the message with the given id, if present.
func (l *Log) Get(id string) (model.Message, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, msg := range l.messages {
		if msg.ID == id {
			return msg, true
		}
	}
	return model.Message{}, false
}

// Update replaces the message content in place. The id, role and position
// never change. A nil image leaves the existing payload untouched.
func (l *Log) Update(id, content string, imageBase64 *string) (model.Message, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.messages {
		if l.messages[i].ID == id {
			l.messages[i].Content = content
			if imageBase64 != nil {
				l.messages[i].ImageBase64 = *imageBase64
			}
			return l.messages[i], nil
		}
	}
	return model.Message{}, ErrNotFound
}

// Delete removes the message if present and reports whether a removal
// occurred. It does not cascade to paired messages.
func (l *Log) Delete(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.messages {
		if l.messages[i].ID == id {
			l.messages = append(l.messages[:i], l.messages[i+1:]...)
			return true
		}
	}
	return false
}

// Snapshot returns a copy of the ordered log.
func (l *Log) Snapshot() []model.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]model.Message, len(l.messages))
	copy(out, l.messages)
	return out
}

// IndexOf returns the position of the message in the log, or -1.
func (l *Log) IndexOf(id string) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	for i := range l.messages {
		if l.messages[i].ID == id {
			return i
		}
	}
	return -1
}

// Len returns the number of messages in the log.
func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.messages)
}

// Clear empties the log.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.messages = nil
}

// Replace swaps the whole log for the imported messages, reassigning ids
// so imported documents can never collide with live ones.
func (l *Log) Replace(msgs []model.Message) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.messages = nil
	for _, msg := range msgs {
		msg.ID = ""
		l.appendLocked(msg)
	}
}

// ContainsUserContent reports whether any USER message in the log carries
// exactly this content. Used to drop duplicate streaming submits.
func (l *Log) ContainsUserContent(content string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	for _, msg := range l.messages {
		if msg.Role == model.RoleUser && msg.Content == content {
			return true
		}
	}
	return false
}

// Window returns the last min(len, 2*maxTurns) messages of msgs. With
// history disabled the window is empty: only the prompt itself is sent.
func Window(msgs []model.Message, cfg model.GenerationConfig) []model.Message {
	if !cfg.HistoryEnabled {
		return nil
	}
	start := len(msgs) - cfg.MaxHistoryTurns*2
	if start < 0 {
		start = 0
	}
	return msgs[start:]
}
