package api

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/controlportero/portero-core/internal/audit"
	"github.com/controlportero/portero-core/internal/auth"
)

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// loginResponse carries the token under both the legacy key and the
// structured fields. The deployed frontend reads "token"; newer clients
// read "access_token" with its metadata.
type loginResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// handleLogin authenticates a username/password pair and issues a JWT.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return
	}
	if req.Username == "" || req.Password == "" {
		writeBadRequest(w, "username and password are required")
		return
	}

	user, err := auth.Authenticate(r.Context(), s.users, req.Username, req.Password)
	if err != nil {
		switch {
		case errors.Is(err, auth.ErrUserInactive):
			s.audit(audit.LevelWarning, "", "rejected login for disabled account "+req.Username)
			writeError(w, http.StatusForbidden, ErrCodeForbidden, "account is disabled")
		case errors.Is(err, auth.ErrInvalidCredentials):
			s.audit(audit.LevelWarning, "", "failed login attempt for "+req.Username)
			writeUnauthorized(w, "invalid credentials")
		default:
			s.logger.Error("login failed", "error", err)
			writeInternalError(w)
		}
		return
	}

	ttl := s.security.JWT.AccessTokenTTL
	token, err := auth.GenerateAccessToken(user, s.security.JWT.Secret, ttl)
	if err != nil {
		s.logger.Error("token generation failed", "error", err)
		writeInternalError(w)
		return
	}

	if s.recorder != nil {
		s.recorder.Info(user.ID, "logged in")
	}

	writeJSON(w, http.StatusOK, loginResponse{
		Token:       token,
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   ttl * 60,
	})
}

// audit records an entry when a recorder is wired.
func (s *Server) audit(level, userID, action string) {
	if s.recorder == nil {
		return
	}
	switch level {
	case audit.LevelWarning:
		s.recorder.Warning(userID, action)
	default:
		s.recorder.Info(userID, action)
	}
}

// handleMe returns the authenticated user's own profile.
func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	if claims == nil {
		writeUnauthorized(w, "authentication required")
		return
	}

	user, err := s.users.GetByID(r.Context(), claims.Subject)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			writeUnauthorized(w, "account no longer exists")
			return
		}
		s.logger.Error("profile lookup failed", "error", err)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, user)
}

// WebSocket tickets. Browsers cannot set an Authorization header on a
// WebSocket handshake, so authenticated clients exchange their bearer
// token for a short-lived single-use ticket and pass it as a query
// parameter instead.
const (
	ticketTTL           = 60 * time.Second
	ticketCleanInterval = 30 * time.Second
)

type ticketEntry struct {
	userID  string
	role    string
	expires time.Time
}

type ticketStore struct {
	mu      sync.Mutex
	tickets map[string]ticketEntry
}

func newTicketStore() *ticketStore {
	return &ticketStore{tickets: make(map[string]ticketEntry)}
}

// issue creates a new single-use ticket bound to the given identity.
func (ts *ticketStore) issue(userID, role string) (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating ticket: %w", err)
	}
	ticket := hex.EncodeToString(b)

	ts.mu.Lock()
	ts.tickets[ticket] = ticketEntry{
		userID:  userID,
		role:    role,
		expires: time.Now().Add(ticketTTL),
	}
	ts.mu.Unlock()
	return ticket, nil
}

// redeem consumes a ticket, returning the bound identity. Each ticket
// is valid exactly once.
func (ts *ticketStore) redeem(ticket string) (ticketEntry, bool) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	entry, ok := ts.tickets[ticket]
	if !ok {
		return ticketEntry{}, false
	}
	delete(ts.tickets, ticket)
	if time.Now().After(entry.expires) {
		return ticketEntry{}, false
	}
	return entry, true
}

// cleanLoop drops expired tickets that were never redeemed.
func (ts *ticketStore) cleanLoop(ctx context.Context) {
	ticker := time.NewTicker(ticketCleanInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			ts.mu.Lock()
			for ticket, entry := range ts.tickets {
				if now.After(entry.expires) {
					delete(ts.tickets, ticket)
				}
			}
			ts.mu.Unlock()
		}
	}
}

// handleWSTicket issues a single-use WebSocket connection ticket.
func (s *Server) handleWSTicket(w http.ResponseWriter, r *http.Request) {
	claims := claimsFrom(r)
	if claims == nil {
		writeUnauthorized(w, "authentication required")
		return
	}

	ticket, err := s.tickets.issue(claims.Subject, string(claims.Role))
	if err != nil {
		s.logger.Error("ticket generation failed", "error", err)
		writeInternalError(w)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"ticket":     ticket,
		"expires_in": int(ticketTTL.Seconds()),
	})
}
