package sessions

import (
	"context"
	"sync"
	"time"

	"github.com/jrsteele09/dojotv/api"
	"github.com/jrsteele09/dojotv/auth"
	"github.com/jrsteele09/dojotv/credentials"
	"github.com/jrsteele09/dojotv/internal/utils"
	"github.com/jrsteele09/dojotv/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
)

const (
	defaultLogoutTimeout = 5 * time.Second
	loginFailedMessage   = "Login failed. Please check your connection and credentials."
)

var _ api.SessionResetter = (*Store)(nil)

// Authenticator is the remote side of the session.
type Authenticator interface {
	Login(ctx context.Context, req auth.LoginRequest) (*auth.LoginResult, error)
	Logout(ctx context.Context) error
	CurrentUser(ctx context.Context) (*users.CurrentUser, error)
}

// Store owns the session state. All mutation goes through its methods; the mutex is never
// held across a network call and listeners run outside it.
type Store struct {
	creds         credentials.Store
	authn         Authenticator
	validator     *auth.Validator
	logoutTimeout time.Duration

	lock      sync.Mutex
	state     State
	seq       uint64
	listeners map[int]func(State)
	nextID    int

	// credLock orders login credential writes against purges.
	credLock sync.Mutex
	pending  sync.WaitGroup

	bootstrapOnce sync.Once
	initOnce      sync.Once
	initialized   chan struct{}
}

type StoreOption func(*Store)

// WithLogoutTimeout bounds the remote logout call.
func WithLogoutTimeout(d time.Duration) StoreOption {
	return func(s *Store) {
		if d > 0 {
			s.logoutTimeout = d
		}
	}
}

func NewStore(creds credentials.Store, authn Authenticator, options ...StoreOption) *Store {
	s := &Store{
		creds:         creds,
		authn:         authn,
		validator:     auth.NewValidator(),
		logoutTimeout: defaultLogoutTimeout,
		state:         State{Status: StatusUninitialized},
		listeners:     map[int]func(State){},
		initialized:   make(chan struct{}),
	}
	for _, opt := range options {
		opt(s)
	}
	return s
}

// State returns a copy of the current session.
func (s *Store) State() State {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.state.clone()
}

// Subscribe registers fn to receive every state change. The returned func unsubscribes.
func (s *Store) Subscribe(fn func(State)) (cancel func()) {
	s.lock.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.lock.Unlock()

	return func() {
		s.lock.Lock()
		delete(s.listeners, id)
		s.lock.Unlock()
	}
}

// Initialized is closed once bootstrap or a reset has completed.
func (s *Store) Initialized() <-chan struct{} {
	return s.initialized
}

func (s *Store) WaitInitialized(ctx context.Context) error {
	select {
	case <-s.initialized:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Bootstrap restores a persisted session. Only the first call has any effect; it reads the
// credential store and never touches the network. Read failures and corrupt data leave the
// session unauthenticated.
func (s *Store) Bootstrap(ctx context.Context) State {
	s.bootstrapOnce.Do(func() {
		s.bootstrap(ctx)
	})
	return s.State()
}

func (s *Store) bootstrap(ctx context.Context) {
	s.lock.Lock()
	if s.state.Status != StatusUninitialized {
		s.lock.Unlock()
		s.markInitialized()
		return
	}
	s.state.Status = StatusRestoring
	snap := s.state.clone()
	s.lock.Unlock()
	s.notify(snap)

	user, role := s.restore(ctx)

	s.lock.Lock()
	if s.state.Status == StatusRestoring {
		s.state.Role = role
		if user != nil {
			s.state.Status = StatusAuthenticated
			s.state.User = user
		} else {
			s.state.Status = StatusUnauthenticated
			s.state.User = nil
		}
	}
	s.state.Initialized = true
	snap = s.state.clone()
	s.lock.Unlock()

	s.markInitialized()
	s.notify(snap)
	log.Info().Str("status", snap.Status.String()).Msg("session restored")
}

func (s *Store) restore(ctx context.Context) (*users.CurrentUser, users.RoleType) {
	token := s.read(ctx, credentials.SlotAccessToken)
	data := s.read(ctx, credentials.SlotUserData)

	var role users.RoleType
	if raw := s.read(ctx, credentials.SlotSelectedRole); raw != "" {
		r, err := users.ParseRole(raw)
		if err != nil {
			log.Warn().Err(err).Msg("ignoring stored role")
		}
		role = r
	}

	if token == "" || data == "" {
		return nil, role
	}
	profile, err := users.UnmarshalProfile(data)
	if err != nil {
		log.Warn().Err(err).Msg("stored user data is unreadable, starting signed out")
		return nil, role
	}
	return &users.CurrentUser{User: profile.User(), AccessToken: token}, role
}

// read treats a storage failure as absence.
func (s *Store) read(ctx context.Context, slot credentials.Slot) string {
	v, found, err := s.creds.Get(ctx, slot)
	if err != nil {
		log.Warn().Err(err).Str("slot", slot.String()).Msg("credential read failed")
		return ""
	}
	if !found {
		return ""
	}
	return v
}

// Login authenticates against the CRM and persists the credentials. Input is validated before
// any state change. A second login while one is pending is rejected without a network call.
func (s *Store) Login(ctx context.Context, userName, password string) (*users.CurrentUser, error) {
	req := auth.NewLoginRequest(userName, password)
	if err := s.validator.ValidateLogin(req); err != nil {
		return nil, err
	}

	s.lock.Lock()
	if s.state.Status == StatusAuthenticating {
		s.lock.Unlock()
		return nil, ErrLoginInProgress
	}
	s.seq++
	seq := s.seq
	s.state.Status = StatusAuthenticating
	s.state.User = nil
	s.state.LastError = ""
	snap := s.state.clone()
	s.lock.Unlock()
	s.notify(snap)

	result, err := s.authn.Login(ctx, req)
	if err != nil {
		return nil, s.loginFailed(ctx, seq, err)
	}

	s.credLock.Lock()
	defer s.credLock.Unlock()

	if s.stale(seq) {
		log.Info().Msg("discarding login result after logout or reset")
		return nil, ErrLoginSuperseded
	}
	s.persist(ctx, result)

	s.lock.Lock()
	if s.seq != seq {
		s.lock.Unlock()
		return nil, ErrLoginSuperseded
	}
	user := result.User
	s.state.Status = StatusAuthenticated
	s.state.User = &user
	s.state.LastError = ""
	snap = s.state.clone()
	s.lock.Unlock()

	s.notify(snap)
	return snap.User, nil
}

// loginFailed drops any session left from an earlier login so that neither later requests nor
// the next start pick it up. The selected role survives.
func (s *Store) loginFailed(ctx context.Context, seq uint64, err error) error {
	s.credLock.Lock()
	defer s.credLock.Unlock()

	if s.stale(seq) {
		return ErrLoginSuperseded
	}
	for _, slot := range []credentials.Slot{
		credentials.SlotAccessToken,
		credentials.SlotRefreshToken,
		credentials.SlotUserData,
	} {
		if derr := s.creds.Delete(ctx, slot); derr != nil {
			log.Err(derr).Str("slot", slot.String()).Msg("failed to drop stored session")
		}
	}

	s.lock.Lock()
	if s.seq != seq {
		s.lock.Unlock()
		return ErrLoginSuperseded
	}
	s.state.Status = StatusUnauthenticated
	s.state.User = nil
	s.state.LastError = api.Message(err, loginFailedMessage)
	snap := s.state.clone()
	s.lock.Unlock()

	s.notify(snap)
	log.Info().Str("reason", snap.LastError).Msg("login failed")
	return err
}

// persist writes the token pair and the minimal profile. Failures are logged only: the user
// stays signed in for this run and is asked to log in again next start.
func (s *Store) persist(ctx context.Context, result *auth.LoginResult) {
	if err := credentials.SaveToken(ctx, s.creds, result.Token); err != nil {
		log.Err(err).Msg("failed to persist access token")
	}

	data, err := users.MarshalProfile(result.User.User.Profile())
	if err != nil {
		log.Err(err).Msg("failed to encode user data")
		return
	}
	if err := s.creds.Set(ctx, credentials.SlotUserData, data); err != nil {
		log.Err(err).Msg("failed to persist user data")
	}
}

func (s *Store) stale(seq uint64) bool {
	s.lock.Lock()
	defer s.lock.Unlock()
	return s.seq != seq
}

// Logout ends the session. Local state is cleared before Logout returns; the remote call runs
// in the background with the token it was issued for, bounded by the logout timeout. Only a
// failure to purge the credential store is returned.
func (s *Store) Logout(ctx context.Context) error {
	s.lock.Lock()
	s.seq++
	s.lock.Unlock()

	if token := s.read(ctx, credentials.SlotAccessToken); token != "" {
		s.pending.Add(1)
		go func() {
			defer s.pending.Done()
			remoteCtx, cancel := context.WithTimeout(
				api.WithAccessToken(context.WithoutCancel(ctx), token), s.logoutTimeout)
			defer cancel()
			if err := s.authn.Logout(remoteCtx); err != nil {
				log.Warn().Err(err).Msg("remote logout failed")
			}
		}()
	}

	return s.clear(ctx)
}

// Drain waits for background remote logouts to finish.
func (s *Store) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.pending.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogoutTimeout is the bound on a single remote logout.
func (s *Store) LogoutTimeout() time.Duration {
	return s.logoutTimeout
}

// Reset drops the session without contacting the server. It is what the API client calls on
// a 401 and is safe in any state.
func (s *Store) Reset(ctx context.Context) error {
	return s.clear(ctx)
}

func (s *Store) clear(ctx context.Context) error {
	s.credLock.Lock()
	defer s.credLock.Unlock()

	s.lock.Lock()
	s.seq++
	s.state = State{Status: StatusUnauthenticated, Initialized: true}
	snap := s.state.clone()
	s.lock.Unlock()

	err := s.creds.ClearAll(ctx)
	if err != nil {
		log.Err(err).Msg("failed to clear credentials")
	}

	s.markInitialized()
	s.notify(snap)
	return err
}

// SetRole records which screen set the user picked. It never changes the auth status.
func (s *Store) SetRole(ctx context.Context, role users.RoleType) error {
	if !role.Valid() {
		return errors.Wrapf(ErrInvalidRole, "%q", role)
	}
	if err := s.creds.Set(ctx, credentials.SlotSelectedRole, role.String()); err != nil {
		return errors.Wrap(err, "[Store.SetRole] creds.Set")
	}

	s.lock.Lock()
	s.state.Role = role
	snap := s.state.clone()
	s.lock.Unlock()

	s.notify(snap)
	return nil
}

// Validate asks the CRM who the stored token belongs to and refreshes the in-memory user.
// A rejected token resets the session through the API client before the error returns here.
func (s *Store) Validate(ctx context.Context) (*users.CurrentUser, error) {
	s.lock.Lock()
	if s.state.Status != StatusAuthenticated {
		s.lock.Unlock()
		return nil, ErrNotAuthenticated
	}
	seq := s.seq
	s.lock.Unlock()

	cu, err := s.authn.CurrentUser(ctx)
	if err != nil {
		return nil, err
	}

	s.lock.Lock()
	if s.seq != seq || s.state.Status != StatusAuthenticated {
		s.lock.Unlock()
		return nil, ErrNotAuthenticated
	}
	fresh := *cu
	fresh.AccessToken = utils.FirstNonEmpty(fresh.AccessToken, s.state.User.AccessToken)
	fresh.RefreshToken = utils.FirstNonEmpty(fresh.RefreshToken, s.state.User.RefreshToken)
	s.state.User = &fresh
	snap := s.state.clone()
	s.lock.Unlock()

	if data, err := users.MarshalProfile(fresh.User.Profile()); err == nil {
		if err := s.creds.Set(ctx, credentials.SlotUserData, data); err != nil {
			log.Err(err).Msg("failed to persist refreshed user data")
		}
	}

	s.notify(snap)
	return snap.User, nil
}

// ClearError dismisses the last login failure.
func (s *Store) ClearError() {
	s.lock.Lock()
	if s.state.LastError == "" {
		s.lock.Unlock()
		return
	}
	s.state.LastError = ""
	snap := s.state.clone()
	s.lock.Unlock()
	s.notify(snap)
}

func (s *Store) markInitialized() {
	s.initOnce.Do(func() {
		close(s.initialized)
	})
}

func (s *Store) notify(snap State) {
	s.lock.Lock()
	fns := make([]func(State), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.lock.Unlock()

	for _, fn := range fns {
		fn(snap.clone())
	}
}
