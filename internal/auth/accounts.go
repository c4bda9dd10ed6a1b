package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/briangreenhill/moviefinder/internal/db"
)

var (
	ErrEmailTaken         = errors.New("auth: email already registered")
	ErrInvalidCredentials = errors.New("auth: invalid email or password")
	ErrUserNotFound       = errors.New("auth: user not found")
	ErrStaleReset         = errors.New("auth: reset link already used")
)

const (
	ProviderCredentials = "credentials"
	ProviderGoogle      = "google"
)

// UserStore is the slice of db.Queries the account service needs.
type UserStore interface {
	CreateUser(ctx context.Context, arg db.CreateUserParams) (db.User, error)
	GetUserByEmail(ctx context.Context, email string) (db.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (db.User, error)
	UpdateUserPassword(ctx context.Context, arg db.UpdateUserPasswordParams) (int64, error)
}

type RegisterInput struct {
	Name     string `json:"name" validate:"required,min=2,max=50"`
	Email    string `json:"email" validate:"required,email"`
	Age      *int   `json:"age" validate:"omitempty,min=0,max=120"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

// ValidationError maps json field names to a readable problem.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Fields))
	for f, msg := range e.Fields {
		parts = append(parts, f+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Accounts registers and authenticates users.
type Accounts struct {
	store    UserStore
	validate *validator.Validate
}

func NewAccounts(store UserStore) *Accounts {
	return &Accounts{store: store, validate: NewValidator()}
}

// NewValidator returns a validator that reports json field names.
func NewValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	return v
}

// Validate runs struct validation and converts failures to *ValidationError.
func Validate(v *validator.Validate, s any) error {
	err := v.Struct(s)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if !errors.As(err, &ves) {
		return err
	}
	out := &ValidationError{Fields: make(map[string]string, len(ves))}
	for _, fe := range ves {
		out.Fields[fe.Field()] = describe(fe)
	}
	return out
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at least %s characters", fe.Param())
		}
		return "must be at least " + fe.Param()
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("must be at most %s characters", fe.Param())
		}
		return "must be at most " + fe.Param()
	default:
		return "is invalid"
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *Accounts) Register(ctx context.Context, in RegisterInput) (db.User, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = normalizeEmail(in.Email)
	if err := Validate(a.validate, in); err != nil {
		return db.User{}, err
	}

	if _, err := a.store.GetUserByEmail(ctx, in.Email); err == nil {
		return db.User{}, ErrEmailTaken
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return db.User{}, fmt.Errorf("lookup user: %w", err)
	}

	hash, err := HashPassword(in.Password)
	if err != nil {
		return db.User{}, fmt.Errorf("hash password: %w", err)
	}
	var age pgtype.Int4
	if in.Age != nil {
		age = pgtype.Int4{Int32: int32(*in.Age), Valid: true}
	}
	u, err := a.store.CreateUser(ctx, db.CreateUserParams{
		Name:         in.Name,
		Email:        in.Email,
		Age:          age,
		PasswordHash: hash,
		Provider:     ProviderCredentials,
	})
	if isUniqueViolation(err) {
		return db.User{}, ErrEmailTaken
	}
	if err != nil {
		return db.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// Authenticate checks credentials. Unknown email and wrong password look the
// same to the caller.
func (a *Accounts) Authenticate(ctx context.Context, email, password string) (db.User, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return db.User{}, ErrInvalidCredentials
	}
	u, err := a.store.GetUserByEmail(ctx, email)
	if errors.Is(err, pgx.ErrNoRows) {
		return db.User{}, ErrInvalidCredentials
	}
	if err != nil {
		return db.User{}, fmt.Errorf("lookup user: %w", err)
	}
	if !CheckPassword(u.PasswordHash, password) {
		return db.User{}, ErrInvalidCredentials
	}
	return u, nil
}

// FindOrCreateOAuthUser returns the user for a verified external identity,
// creating one with an unusable random password on first sign-in.
func (a *Accounts) FindOrCreateOAuthUser(ctx context.Context, email, name string) (db.User, error) {
	email = normalizeEmail(email)
	if email == "" {
		return db.User{}, errors.New("oauth profile has no email")
	}
	u, err := a.store.GetUserByEmail(ctx, email)
	if err == nil {
		return u, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return db.User{}, fmt.Errorf("lookup user: %w", err)
	}

	name = strings.TrimSpace(name)
	if len(name) < 2 {
		name = strings.SplitN(email, "@", 2)[0]
	}
	if r := []rune(name); len(r) > 50 {
		name = string(r[:50])
	}
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return db.User{}, err
	}
	hash, err := HashPassword(hex.EncodeToString(b))
	if err != nil {
		return db.User{}, fmt.Errorf("hash password: %w", err)
	}

	u, err = a.store.CreateUser(ctx, db.CreateUserParams{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Provider:     ProviderGoogle,
	})
	if isUniqueViolation(err) {
		// lost a race with a concurrent first sign-in
		return a.store.GetUserByEmail(ctx, email)
	}
	if err != nil {
		return db.User{}, fmt.Errorf("create user: %w", err)
	}
	return u, nil
}

// ResetPassword replaces the password of email, provided stamp still matches
// the current one. A link that was already used carries a stale stamp.
func (a *Accounts) ResetPassword(ctx context.Context, email, stamp, password string) error {
	if err := a.validate.Var(password, "required,min=6,max=72"); err != nil {
		return &ValidationError{Fields: map[string]string{"password": "must be between 6 and 72 characters"}}
	}
	current, err := a.ResetStamp(ctx, email)
	if err != nil {
		return err
	}
	if subtle.ConstantTimeCompare([]byte(current), []byte(stamp)) != 1 {
		return ErrStaleReset
	}
	hash, err := HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	n, err := a.store.UpdateUserPassword(ctx, db.UpdateUserPasswordParams{
		Email:        normalizeEmail(email),
		PasswordHash: hash,
	})
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n == 0 {
		return ErrUserNotFound
	}
	return nil
}

func (a *Accounts) User(ctx context.Context, id uuid.UUID) (db.User, error) {
	u, err := a.store.GetUserByID(ctx, id)
	if errors.Is(err, pgx.ErrNoRows) {
		return db.User{}, ErrUserNotFound
	}
	return u, err
}

// ResetStamp returns the PasswordStamp of the account registered under email.
func (a *Accounts) ResetStamp(ctx context.Context, email string) (string, error) {
	u, err := a.store.GetUserByEmail(ctx, normalizeEmail(email))
	if errors.Is(err, pgx.ErrNoRows) {
		return "", ErrUserNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get user: %w", err)
	}
	return PasswordStamp(u.PasswordHash), nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
