package routes

import (
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/hlog"

	"github.com/briangreenhill/moviefinder/internal/auth"
	"github.com/briangreenhill/moviefinder/internal/db"
	appmw "github.com/briangreenhill/moviefinder/internal/http/middleware"
	"github.com/briangreenhill/moviefinder/internal/jobs"
)

const resetTTL = time.Hour

type userView struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func viewOf(u db.User) userView {
	return userView{ID: u.ID.String(), Name: u.Name, Email: u.Email}
}

// signIn rotates the session token and stores the user in it.
func (s *Server) signIn(r *http.Request, u db.User) error {
	if err := s.Sess.RenewToken(r.Context()); err != nil {
		return err
	}
	s.Sess.Put(r.Context(), sessUserID, u.ID.String())
	s.Sess.Put(r.Context(), sessUserEmail, u.Email)
	s.Sess.Put(r.Context(), sessUserName, u.Name)
	return nil
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var in auth.RegisterInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeMessage(w, http.StatusBadRequest, "All fields are required")
		return
	}

	u, err := s.Accounts.Register(r.Context(), in)
	var ve *auth.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"message": "Validation failed",
			"errors":  ve.Fields,
			"success": false,
		})
		return
	case errors.Is(err, auth.ErrEmailTaken):
		writeMessage(w, http.StatusBadRequest, "User already exists")
		return
	case err != nil:
		hlog.FromRequest(r).Error().Err(err).Msg("register failed")
		writeMessage(w, http.StatusInternalServerError, "An error occurred")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message": "User created successfully",
		"success": true,
		"user":    viewOf(u),
	})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Email and password are required")
		return
	}
	u, err := s.Accounts.Authenticate(r.Context(), req.Email, req.Password)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		writeMessage(w, http.StatusUnauthorized, "Invalid email or password.")
		return
	}
	if err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("login failed")
		writeMessage(w, http.StatusInternalServerError, "An error occurred")
		return
	}
	if err := s.signIn(r, u); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("renew session failed")
		writeMessage(w, http.StatusInternalServerError, "An error occurred")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Login successful",
		"success": true,
		"user":    viewOf(u),
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	if id := s.Sess.GetString(r.Context(), sessSearchID); id != "" {
		s.Searches.Drop(id)
	}
	if err := s.Sess.Destroy(r.Context()); err != nil {
		hlog.FromRequest(r).Error().Err(err).Msg("destroy session failed")
		writeMessage(w, http.StatusInternalServerError, "An error occurred")
		return
	}
	writeMessage(w, http.StatusOK, "Signed out")
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, userView{
		ID:    appmw.UserID(r),
		Name:  s.Sess.GetString(r.Context(), sessUserName),
		Email: s.Sess.GetString(r.Context(), sessUserEmail),
	})
}

type forgotRequest struct {
	Email string `json:"email"`
}

// handleForgotPassword always answers the same way so it does not reveal
// which emails are registered.
func (s *Server) handleForgotPassword(w http.ResponseWriter, r *http.Request) {
	const reply = "If that account exists, a reset link is on its way."

	var req forgotRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Email == "" {
		writeMessage(w, http.StatusBadRequest, "Email is required")
		return
	}

	log := hlog.FromRequest(r)
	stamp, err := s.Accounts.ResetStamp(r.Context(), req.Email)
	if err != nil && !errors.Is(err, auth.ErrUserNotFound) {
		log.Error().Err(err).Msg("reset lookup failed")
	}
	if err == nil && s.Jobs != nil {
		task, err := jobs.NewPasswordResetTask(jobs.PasswordResetPayload{
			Email: req.Email,
			URL:   s.Reset.URL(req.Email, stamp, resetTTL),
			TTL:   "1 hour",
		})
		if err == nil {
			_, err = s.Jobs.EnqueueContext(r.Context(), task)
		}
		if err != nil {
			log.Error().Err(err).Msg("enqueue reset mail failed")
		}
	}
	writeMessage(w, http.StatusOK, reply)
}

type resetRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (s *Server) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req resetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "Token and password are required")
		return
	}
	email, stamp, err := s.Reset.Verify(req.Token)
	if err != nil {
		writeMessage(w, http.StatusBadRequest, "Invalid or expired token")
		return
	}

	err = s.Accounts.ResetPassword(r.Context(), email, stamp, req.Password)
	var ve *auth.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, map[string]any{"message": "Validation failed", "errors": ve.Fields, "success": false})
	case errors.Is(err, auth.ErrUserNotFound), errors.Is(err, auth.ErrStaleReset):
		writeMessage(w, http.StatusBadRequest, "Invalid or expired token")
	case err != nil:
		hlog.FromRequest(r).Error().Err(err).Msg("reset password failed")
		writeMessage(w, http.StatusInternalServerError, "An error occurred")
	default:
		writeMessage(w, http.StatusOK, "Password updated")
	}
}

type contactRequest struct {
	Name    string `json:"Name" validate:"required,max=100"`
	Email   string `json:"Email" validate:"required,email"`
	Message string `json:"Message" validate:"required,max=5000"`
}

func (s *Server) handleContact(w http.ResponseWriter, r *http.Request) {
	var req contactRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, http.StatusBadRequest, "All fields are required")
		return
	}
	if err := auth.Validate(s.validate, req); err != nil {
		var ve *auth.ValidationError
		if errors.As(err, &ve) {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": "All fields are required", "errors": ve.Fields, "success": false})
			return
		}
		writeMessage(w, http.StatusBadRequest, "All fields are required")
		return
	}

	var userID uuid.NullUUID
	if id, err := uuid.Parse(appmw.UserID(r)); err == nil {
		userID = uuid.NullUUID{UUID: id, Valid: true}
	}
	log := hlog.FromRequest(r)
	msg, err := s.Contacts.CreateContactMessage(r.Context(), db.CreateContactMessageParams{
		UserID:  userID,
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
	})
	if err != nil {
		log.Error().Err(err).Msg("save contact message failed")
		writeMessage(w, http.StatusInternalServerError, "Something went wrong, please try again later")
		return
	}

	if s.Jobs != nil {
		task, err := jobs.NewContactNotifyTask(msg.ID.String())
		if err == nil {
			_, err = s.Jobs.EnqueueContext(r.Context(), task)
		}
		if err != nil {
			// the message is stored; only the notification is lost
			log.Warn().Err(err).Str("message_id", msg.ID.String()).Msg("enqueue contact notification failed")
		}
	}
	writeMessage(w, http.StatusOK, "Message sent successfully")
}
