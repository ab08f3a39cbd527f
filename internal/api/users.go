package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/controlportero/portero-core/internal/auth"
)

// minPasswordLength is the minimum accepted password length for
// account creation and password changes.
const minPasswordLength = 8

type createUserRequest struct {
	Username    string `json:"username"`
	Password    string `json:"password"`
	DisplayName string `json:"display_name"`
	Role        string `json:"role"`
}

type updateUserRequest struct {
	DisplayName *string `json:"display_name"`
	Role        *string `json:"role"`
	IsActive    *bool   `json:"is_active"`
	Password    *string `json:"password"`
}

// handleListUsers returns every user account.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.users.List(r.Context())
	if err != nil {
		s.logger.Error("listing users failed", "error", err)
		writeInternalError(w)
		return
	}
	writeJSON(w, http.StatusOK, users)
}

// handleCreateUser creates a new user account.
func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	if !auth.IsValidUsername(req.Username) {
		writeBadRequest(w, "username must be 1-64 characters: letters, digits, dots, hyphens, underscores")
		return
	}
	if len(req.Password) < minPasswordLength {
		writeBadRequest(w, "password must be at least 8 characters")
		return
	}
	role := auth.Role(req.Role)
	if !auth.IsValidRole(role) {
		writeBadRequest(w, "role must be operator or admin")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		s.logger.Error("password hashing failed", "error", err)
		writeInternalError(w)
		return
	}

	user := &auth.User{
		Username:     req.Username,
		DisplayName:  req.DisplayName,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.users.Create(r.Context(), user); err != nil {
		if errors.Is(err, auth.ErrUsernameExists) {
			writeError(w, http.StatusConflict, ErrCodeBadRequest, "username already exists")
			return
		}
		s.logger.Error("creating user failed", "error", err)
		writeInternalError(w)
		return
	}

	if claims := claimsFrom(r); claims != nil && s.recorder != nil {
		s.recorder.Info(claims.Subject, "created user "+user.Username)
	}

	writeJSON(w, http.StatusCreated, user)
}

// handleGetUser returns a single user account by id.
func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("fetching user failed", "error", err)
		writeInternalError(w)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// handleUpdateUser applies a partial update to a user account.
// Omitted fields are left unchanged.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	user, err := s.users.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("fetching user failed", "error", err)
		writeInternalError(w)
		return
	}

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}

	if req.DisplayName != nil {
		user.DisplayName = *req.DisplayName
	}
	if req.Role != nil {
		role := auth.Role(*req.Role)
		if !auth.IsValidRole(role) {
			writeBadRequest(w, "role must be operator or admin")
			return
		}
		user.Role = role
	}
	if req.IsActive != nil {
		user.IsActive = *req.IsActive
	}

	if err := s.users.Update(r.Context(), user); err != nil {
		s.logger.Error("updating user failed", "error", err)
		writeInternalError(w)
		return
	}

	if req.Password != nil {
		if len(*req.Password) < minPasswordLength {
			writeBadRequest(w, "password must be at least 8 characters")
			return
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			s.logger.Error("password hashing failed", "error", err)
			writeInternalError(w)
			return
		}
		if err := s.users.UpdatePassword(r.Context(), user.ID, hash); err != nil {
			s.logger.Error("updating password failed", "error", err)
			writeInternalError(w)
			return
		}
	}

	if claims := claimsFrom(r); claims != nil && s.recorder != nil {
		s.recorder.Info(claims.Subject, "updated user "+user.Username)
	}

	writeJSON(w, http.StatusOK, user)
}

// handleDeleteUser removes a user account. Admins cannot delete their
// own account through this endpoint.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	claims := claimsFrom(r)
	if claims != nil && claims.Subject == id {
		writeBadRequest(w, "cannot delete your own account")
		return
	}

	if err := s.users.Delete(r.Context(), id); err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeNotFound(w, "user not found")
			return
		}
		s.logger.Error("deleting user failed", "error", err)
		writeInternalError(w)
		return
	}

	if claims != nil && s.recorder != nil {
		s.recorder.Info(claims.Subject, "deleted user "+id)
	}

	w.WriteHeader(http.StatusNoContent)
}
