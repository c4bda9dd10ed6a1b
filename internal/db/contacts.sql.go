// source: contacts.sql

package db

import (
	"context"

	"github.com/google/uuid"
)

const createContactMessage = `-- name: CreateContactMessage :one
INSERT INTO contact_messages (user_id, name, email, message)
VALUES ($1, $2, $3, $4)
RETURNING id, user_id, name, email, message, created_at
`

type CreateContactMessageParams struct {
	UserID  uuid.NullUUID `json:"user_id"`
	Name    string        `json:"name"`
	Email   string        `json:"email"`
	Message string        `json:"message"`
}

func (q *Queries) CreateContactMessage(ctx context.Context, arg CreateContactMessageParams) (ContactMessage, error) {
	row := q.db.QueryRow(ctx, createContactMessage,
		arg.UserID,
		arg.Name,
		arg.Email,
		arg.Message,
	)
	var i ContactMessage
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Name,
		&i.Email,
		&i.Message,
		&i.CreatedAt,
	)
	return i, err
}

const getContactMessage = `-- name: GetContactMessage :one
SELECT id, user_id, name, email, message, created_at
FROM contact_messages
WHERE id = $1
`

func (q *Queries) GetContactMessage(ctx context.Context, id uuid.UUID) (ContactMessage, error) {
	row := q.db.QueryRow(ctx, getContactMessage, id)
	var i ContactMessage
	err := row.Scan(
		&i.ID,
		&i.UserID,
		&i.Name,
		&i.Email,
		&i.Message,
		&i.CreatedAt,
	)
	return i, err
}

const listContactMessagesByEmail = `-- name: ListContactMessagesByEmail :many
SELECT id, user_id, name, email, message, created_at
FROM contact_messages
WHERE lower(email) = lower($1)
ORDER BY created_at DESC
`

func (q *Queries) ListContactMessagesByEmail(ctx context.Context, email string) ([]ContactMessage, error) {
	rows, err := q.db.Query(ctx, listContactMessagesByEmail, email)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ContactMessage
	for rows.Next() {
		var i ContactMessage
		if err := rows.Scan(
			&i.ID,
			&i.UserID,
			&i.Name,
			&i.Email,
			&i.Message,
			&i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}
