package jobs

import (
	"context"
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	TaskContactNotify = "contact:notify"
	TaskPasswordReset = "email:password_reset"
)

// QueueMail carries every outgoing mail task.
const QueueMail = "mail"

type ContactNotifyPayload struct {
	MessageID string `json:"message_id"`
}

type PasswordResetPayload struct {
	Email string `json:"email"`
	URL   string `json:"url"`
	TTL   string `json:"ttl,omitempty"`
}

// Enqueuer is satisfied by *asynq.Client.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

func NewContactNotifyTask(messageID string) (*asynq.Task, error) {
	b, err := json.Marshal(ContactNotifyPayload{MessageID: messageID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskContactNotify, b,
		asynq.Queue(QueueMail),
		asynq.MaxRetry(5),
		asynq.Timeout(time.Minute),
	), nil
}

func NewPasswordResetTask(p PasswordResetPayload) (*asynq.Task, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskPasswordReset, b,
		asynq.Queue(QueueMail),
		asynq.MaxRetry(3),
		asynq.Timeout(time.Minute),
	), nil
}
