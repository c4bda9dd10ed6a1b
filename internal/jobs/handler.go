package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"

	"github.com/briangreenhill/moviefinder/internal/db"
	"github.com/briangreenhill/moviefinder/internal/email"
)

type ContactStore interface {
	GetContactMessage(ctx context.Context, id uuid.UUID) (db.ContactMessage, error)
}

// Handler processes mail tasks.
type Handler struct {
	Store      ContactStore
	Sender     email.Sender
	AdminInbox string
	Log        zerolog.Logger
}

func (h *Handler) Register(mux *asynq.ServeMux) {
	mux.HandleFunc(TaskContactNotify, h.HandleContactNotify)
	mux.HandleFunc(TaskPasswordReset, h.HandlePasswordReset)
}

func (h *Handler) HandleContactNotify(ctx context.Context, t *asynq.Task) error {
	var p ContactNotifyPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("bad payload: %v: %w", err, asynq.SkipRetry)
	}
	id, err := uuid.Parse(p.MessageID)
	if err != nil {
		return fmt.Errorf("bad message id %q: %w", p.MessageID, asynq.SkipRetry)
	}

	msg, err := h.Store.GetContactMessage(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		h.Log.Warn().Str("message_id", p.MessageID).Msg("contact message gone, dropping notification")
		return nil
	}
	if err != nil {
		return fmt.Errorf("get contact message: %w", err)
	}

	body, err := email.ContactHTML(msg.Name, msg.Email, msg.Message)
	if err != nil {
		return fmt.Errorf("render contact mail: %v: %w", err, asynq.SkipRetry)
	}
	start := time.Now()
	if err := h.Sender.Send(h.AdminInbox, email.SubjectContact+" from "+msg.Name, body); err != nil {
		return fmt.Errorf("send contact mail: %w", err)
	}
	h.Log.Info().Str("message_id", p.MessageID).Dur("took", time.Since(start)).Msg("contact notification sent")
	return nil
}

func (h *Handler) HandlePasswordReset(ctx context.Context, t *asynq.Task) error {
	var p PasswordResetPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("bad payload: %v: %w", err, asynq.SkipRetry)
	}
	if p.Email == "" || p.URL == "" {
		return fmt.Errorf("incomplete reset payload: %w", asynq.SkipRetry)
	}
	expires := p.TTL
	if expires == "" {
		expires = "1 hour"
	}

	body, err := email.PasswordResetHTML(p.URL, expires)
	if err != nil {
		return fmt.Errorf("render reset mail: %v: %w", err, asynq.SkipRetry)
	}
	if err := h.Sender.Send(p.Email, email.SubjectPasswordReset, body); err != nil {
		return fmt.Errorf("send reset mail: %w", err)
	}
	h.Log.Info().Str("to", p.Email).Msg("password reset mail sent")
	return nil
}
