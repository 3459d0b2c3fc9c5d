// Package crmfake is an in-process stand-in for the dojo CRM API, used by tests and local
// runs of the CLI.
package crmfake

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/jrsteele09/dojotv/api"
	"github.com/jrsteele09/dojotv/internal/utils"
	"github.com/jrsteele09/dojotv/users"
	"github.com/pkg/errors"
)

const (
	BasePath        = "/api/v1"
	defaultTokenTTL = 24 * time.Hour
	issuer          = "crmfake"
)

// Account is a user that can log in.
type Account struct {
	UserName string
	Password string
	User     users.User
	UserRole *users.UserRole
}

// Server is a fake CRM. The zero value is not usable; call New.
type Server struct {
	httpServer *httptest.Server
	secret     []byte
	tokenTTL   time.Duration
	catalog    *Catalog

	mu             sync.Mutex
	accounts       map[string]Account
	issued         map[string]string // access token -> user id
	calls          map[string]int
	passwordResets []string
	logoutStatus   int
	loginOverride  *cannedResponse
	gate           *Gate
}

type cannedResponse struct {
	status int
	body   any
}

// Option configures a Server.
type Option func(*Server)

func WithAccount(a Account) Option {
	return func(s *Server) {
		s.accounts[strings.ToLower(a.UserName)] = a
	}
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Server) {
		s.tokenTTL = ttl
	}
}

// WithCatalog replaces the default study content fixtures.
func WithCatalog(c *Catalog) Option {
	return func(s *Server) {
		s.catalog = c
	}
}

// New starts a fake CRM on a loopback port.
func New(options ...Option) *Server {
	s := &Server{
		secret:   []byte(uuid.NewString()),
		tokenTTL: defaultTokenTTL,
		catalog:  DefaultCatalog(),
		accounts: map[string]Account{},
		issued:   map[string]string{},
		calls:    map[string]int{},
	}
	for _, opt := range options {
		opt(s)
	}
	s.httpServer = httptest.NewServer(s.routes())
	return s
}

// URL is the API base URL, including the /api/v1 prefix.
func (s *Server) URL() string {
	return s.httpServer.URL + BasePath
}

func (s *Server) Close() {
	s.httpServer.Close()
}

func (s *Server) routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.countCalls)

	r.Route(BasePath, func(r chi.Router) {
		r.Post(api.EndpointLogin, s.handleLogin)
		r.Post(api.EndpointSendEmailToResetPassword, s.handleSendResetEmail)

		r.Group(func(r chi.Router) {
			r.Use(s.requireAuth)
			r.Get(api.EndpointLogout, s.handleLogout)
			r.Get(api.EndpointCurrentUser, s.handleCurrentUser)
			r.Get(api.EndpointPrograms, s.handlePrograms)
			r.Get(api.EndpointStudyContentForContact, s.handleStudyForContact)
			r.Get(api.EndpointStudyContent+"{contentID}", s.handleStudyContentByID)
			r.Get(api.EndpointStudyCategory, s.handleCategories)
			r.Get(api.EndpointSubCategoryByCategoryID+"{categoryID}", s.handleSubCategories)
			r.Get(api.EndpointNoticeBoardForContact, s.handleNoticeBoard)
		})
	})
	return r
}

// AddAccount registers a user after the server has started.
func (s *Server) AddAccount(a Account) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.accounts[strings.ToLower(a.UserName)] = a
}

// Calls returns how many requests reached path, relative to the base path.
func (s *Server) Calls(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

// PasswordResets lists the user names a reset email was requested for.
func (s *Server) PasswordResets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.passwordResets...)
}

// FailLogout makes the logout endpoint answer with status. Zero restores normal behaviour.
func (s *Server) FailLogout(status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.logoutStatus = status
}

// SetLoginResponse replaces the login handler's answer with a fixed status and JSON body.
func (s *Server) SetLoginResponse(status int, body any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loginOverride = &cannedResponse{status: status, body: body}
}

// ActiveTokens counts issued tokens that have not been logged out or expired.
func (s *Server) ActiveTokens() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.issued)
}

// ExpireTokens invalidates every token issued so far, as a server-side session expiry would.
func (s *Server) ExpireTokens() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.issued = map[string]string{}
}

// IssueToken mints a valid access token for a registered user without a login call.
func (s *Server) IssueToken(userName string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acct, ok := s.accounts[strings.ToLower(userName)]
	if !ok {
		return "", errors.Errorf("[Server.IssueToken] unknown user %q", userName)
	}
	return s.issueLocked(acct.User)
}

func (s *Server) issueLocked(u users.User) (string, error) {
	now := time.Now()
	claims := jwtlib.MapClaims{
		"iss":   issuer,
		"sub":   u.ID,
		"email": u.Email,
		"iat":   now.Unix(),
		"exp":   now.Add(s.tokenTTL).Unix(),
		"jti":   uuid.NewString(),
	}
	signed, err := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", errors.Wrap(err, "[Server.issueLocked] SignedString")
	}
	s.issued[signed] = u.ID
	return signed, nil
}

func (s *Server) countCalls(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := strings.TrimPrefix(r.URL.Path, BasePath)
		s.mu.Lock()
		s.calls[path]++
		s.mu.Unlock()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, api.Envelope[any]{Success: true, Data: data})
}

func writeFailure(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, api.Envelope[any]{Error: true, Message: utils.Ptr(message)})
}

// StudentAccount is a ready-made student login.
func StudentAccount() Account {
	return Account{
		UserName: "student@example.com",
		Password: "kiai-2024",
		User: users.User{
			ID:        "user-student-1",
			FirstName: "Daniel",
			LastName:  "LaRusso",
			Email:     "student@example.com",
			Country:   "US",
		},
		UserRole: &users.UserRole{
			ID:   "userrole-1",
			Role: users.Role{ID: "role-student", Name: "student"},
		},
	}
}
