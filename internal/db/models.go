package db

import (
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

type ContactMessage struct {
	ID        uuid.UUID          `json:"id"`
	UserID    uuid.NullUUID      `json:"user_id"`
	Name      string             `json:"name"`
	Email     string             `json:"email"`
	Message   string             `json:"message"`
	CreatedAt pgtype.Timestamptz `json:"created_at"`
}

type User struct {
	ID           uuid.UUID          `json:"id"`
	Name         string             `json:"name"`
	Email        string             `json:"email"`
	Age          pgtype.Int4        `json:"age"`
	PasswordHash string             `json:"-"`
	IsAdmin      bool               `json:"is_admin"`
	Provider     string             `json:"provider"`
	CreatedAt    pgtype.Timestamptz `json:"created_at"`
	UpdatedAt    pgtype.Timestamptz `json:"updated_at"`
}
