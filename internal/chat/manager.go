// Package chat keeps each user's conversation with the assistant and bounds
// how much of it is sent to the language model.
package chat

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ayush/finance-advisor/internal/apperror"
	"github.com/ayush/finance-advisor/internal/metrics"
	"github.com/ayush/finance-advisor/internal/models"
)

// DefaultContextTurns is how many trailing messages accompany each new question.
const DefaultContextTurns = 10

// Store persists transcripts. Append must be atomic per call.
type Store interface {
	Append(ctx context.Context, sessionID string, msgs ...models.Message) error
	Recent(ctx context.Context, sessionID string, n int) ([]models.Message, error)
	History(ctx context.Context, sessionID string) ([]models.Message, error)
	DropOldest(ctx context.Context, sessionID string, n int) (bool, error)
}

// Generator produces the assistant's reply to a conversation.
type Generator interface {
	Complete(ctx context.Context, msgs []models.Message) (string, error)
}

// Archiver saves a transcript before it is cleared.
type Archiver interface {
	Archive(ctx context.Context, sessionID string, msgs []models.Message) (string, error)
}

// Manager appends turns and builds the context window. A session is keyed by user id.
type Manager struct {
	store   Store
	gen     Generator
	archive Archiver
	logger  *slog.Logger
	turns   int
}

// NewManager wires a Manager. archive may be nil, in which case Reset only clears.
func NewManager(store Store, gen Generator, archive Archiver, logger *slog.Logger) *Manager {
	return &Manager{store: store, gen: gen, archive: archive, logger: logger, turns: DefaultContextTurns}
}

func (m *Manager) AppendUserTurn(ctx context.Context, sessionID, text string) error {
	return m.appendTurn(ctx, sessionID, models.RoleUser, text)
}

func (m *Manager) AppendAssistantTurn(ctx context.Context, sessionID, text string) error {
	return m.appendTurn(ctx, sessionID, models.RoleAssistant, text)
}

func (m *Manager) appendTurn(ctx context.Context, sessionID string, role models.Role, text string) error {
	if strings.TrimSpace(text) == "" {
		return apperror.ValidationFailed("message", "Message is required")
	}
	return m.store.Append(ctx, sessionID, models.Message{Role: role, Content: text})
}

// ContextWindow returns the last maxTurns messages in conversation order.
func (m *Manager) ContextWindow(ctx context.Context, sessionID string, maxTurns int) ([]models.Message, error) {
	if maxTurns <= 0 {
		return []models.Message{}, nil
	}
	msgs, err := m.store.Recent(ctx, sessionID, maxTurns)
	if err != nil {
		return nil, err
	}
	return Window(msgs, maxTurns), nil
}

// History returns the full transcript; empty (not nil) when there is none.
func (m *Manager) History(ctx context.Context, sessionID string) ([]models.Message, error) {
	return m.store.History(ctx, sessionID)
}

// Reply records text as a user turn, asks the generator for an answer using
// the context window, and records the answer. When generation fails the user
// turn stays in the transcript and no assistant turn is written.
func (m *Manager) Reply(ctx context.Context, sessionID, text string) (string, error) {
	if err := m.AppendUserTurn(ctx, sessionID, text); err != nil {
		return "", err
	}

	window, err := m.ContextWindow(ctx, sessionID, m.turns)
	if err != nil {
		return "", err
	}

	answer, err := m.gen.Complete(ctx, window)
	metrics.ObserveGeneration("chat", err)
	if err != nil {
		return "", err
	}

	if err := m.AppendAssistantTurn(ctx, sessionID, answer); err != nil {
		return "", err
	}
	return answer, nil
}

// Reset archives the transcript (when an Archiver is configured) and removes the
// archived turns. Turns appended while archiving survive the reset. It returns
// the archive key, or "" when nothing was archived.
func (m *Manager) Reset(ctx context.Context, sessionID string) (string, error) {
	msgs, err := m.store.History(ctx, sessionID)
	if err != nil {
		return "", err
	}
	if len(msgs) == 0 {
		return "", nil
	}

	var key string
	if m.archive != nil {
		key, err = m.archive.Archive(ctx, sessionID, msgs)
		if err != nil {
			return "", fmt.Errorf("archive transcript: %w", err)
		}
	}

	if _, err := m.store.DropOldest(ctx, sessionID, len(msgs)); err != nil {
		return "", err
	}
	m.logger.Info("chat reset",
		slog.String("user_id", sessionID),
		slog.Int("messages", len(msgs)),
		slog.String("archive_key", key),
	)
	return key, nil
}

// Window returns the last n messages of msgs as a new slice, preserving order.
func Window(msgs []models.Message, n int) []models.Message {
	if n <= 0 {
		return []models.Message{}
	}
	if len(msgs) > n {
		msgs = msgs[len(msgs)-n:]
	}
	out := make([]models.Message, len(msgs))
	copy(out, msgs)
	return out
}
