package crmfake

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/dojotv/api"
	"github.com/jrsteele09/dojotv/internal/utils"
)

type contextKey string

const (
	contextKeyUserID contextKey = "user_id"
	contextKeyToken  contextKey = "token"
)

// Gate holds login requests until released, so tests can act while a login is in flight.
type Gate struct {
	entered chan struct{}
	release chan struct{}
	once    sync.Once
}

// Entered receives once per login request that reached the gate.
func (g *Gate) Entered() <-chan struct{} {
	return g.entered
}

func (g *Gate) Release() {
	g.once.Do(func() { close(g.release) })
}

// GateLogin makes subsequent login requests wait for the returned gate to be released.
func (s *Server) GateLogin() *Gate {
	g := &Gate{
		entered: make(chan struct{}, 16),
		release: make(chan struct{}),
	}
	s.mu.Lock()
	s.gate = g
	s.mu.Unlock()
	return g
}

type loginBody struct {
	UserName       string `json:"userName"`
	Email          string `json:"email"`
	Password       string `json:"password"`
	RememberMe     bool   `json:"rememberMe"`
	RememberMeDays int    `json:"rememberMeDays"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	gate := s.gate
	override := s.loginOverride
	s.mu.Unlock()

	if gate != nil {
		select {
		case gate.entered <- struct{}{}:
		default:
		}
		select {
		case <-gate.release:
		case <-r.Context().Done():
			return
		}
	}

	if override != nil {
		writeJSON(w, override.status, override.body)
		return
	}

	var body loginBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	acct, ok := s.accounts[strings.ToLower(strings.TrimSpace(body.UserName))]
	if !ok || acct.Password != body.Password {
		writeFailure(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	accessToken, err := s.issueLocked(acct.User)
	if err != nil {
		writeFailure(w, http.StatusInternalServerError, "Unable to issue token")
		return
	}
	writeData(w, map[string]any{
		"accessToken":  accessToken,
		"refreshToken": uuid.NewString(),
		"user":         acct.User,
		"userRole":     acct.UserRole,
	})
}

func (s *Server) handleSendResetEmail(w http.ResponseWriter, r *http.Request) {
	var body struct {
		UserName string `json:"userName"`
		Email    string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.UserName == "" {
		writeFailure(w, http.StatusBadRequest, "Username is required")
		return
	}

	s.mu.Lock()
	_, ok := s.accounts[strings.ToLower(body.UserName)]
	if ok {
		s.passwordResets = append(s.passwordResets, body.UserName)
	}
	s.mu.Unlock()

	if !ok {
		writeFailure(w, http.StatusNotFound, "User not found")
		return
	}
	writeJSON(w, http.StatusOK, api.Envelope[any]{Success: true, Message: utils.Ptr("Password reset email sent")})
}

// requireAuth accepts the token raw or with a Bearer prefix, like the real CRM.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := strings.TrimSpace(r.Header.Get("Authorization"))
		if i := strings.IndexByte(raw, ' '); i > 0 && strings.EqualFold(raw[:i], "bearer") {
			raw = strings.TrimSpace(raw[i+1:])
		}
		if raw == "" {
			writeFailure(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		_, err := jwtlib.Parse(raw, func(*jwtlib.Token) (any, error) {
			return s.secret, nil
		}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Alg()}), jwtlib.WithIssuer(issuer))
		if err != nil {
			writeFailure(w, http.StatusUnauthorized, "Session expired")
			return
		}

		s.mu.Lock()
		userID, ok := s.issued[raw]
		s.mu.Unlock()
		if !ok {
			writeFailure(w, http.StatusUnauthorized, "Session expired")
			return
		}

		ctx := context.WithValue(r.Context(), contextKeyUserID, userID)
		ctx = context.WithValue(ctx, contextKeyToken, raw)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) handleLogout(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	status := s.logoutStatus
	if status == 0 {
		if tok, ok := r.Context().Value(contextKeyToken).(string); ok {
			delete(s.issued, tok)
		}
	}
	s.mu.Unlock()

	if status != 0 {
		writeFailure(w, status, "Logout failed")
		return
	}
	writeData(w, nil)
}

func (s *Server) handleCurrentUser(w http.ResponseWriter, r *http.Request) {
	userID, _ := r.Context().Value(contextKeyUserID).(string)

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, acct := range s.accounts {
		if acct.User.ID == userID {
			writeData(w, map[string]any{
				"user":     acct.User,
				"userRole": acct.UserRole,
			})
			return
		}
	}
	writeFailure(w, http.StatusNotFound, "User not found")
}
