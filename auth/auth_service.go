package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/jrsteele09/dojotv/api"
	"github.com/jrsteele09/dojotv/internal/utils"
	"github.com/jrsteele09/dojotv/token"
	"github.com/jrsteele09/dojotv/users"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	loginFailedMessage         = "Login failed. Please check your credentials."
	loginNoDataMessage         = "Login failed - no data received"
	loginNoTokenMessage        = "Login failed - no access token received"
	currentUserFailedMessage   = "Failed to fetch user data."
	passwordResetFailedMessage = "Failed to send password reset email."
	logoutFailedMessage        = "Logout failed."
)

// LoginResult is a successful login: the token pair and the user it belongs to.
type LoginResult struct {
	Token *oauth2.Token
	User  users.CurrentUser
}

// Service performs the CRM's auth calls. It holds no session state.
type Service struct {
	client    *api.Client
	validator *Validator
}

func NewService(client *api.Client) *Service {
	return &Service{
		client:    client,
		validator: NewValidator(),
	}
}

// Validator exposes the input checks so callers can reject a form before any state change.
func (s *Service) Validator() *Validator {
	return s.validator
}

type loginData struct {
	AccessToken  string          `json:"accessToken"`
	Token        string          `json:"token"`
	RefreshToken string          `json:"refreshToken"`
	User         *users.User     `json:"user"`
	UserRole     *users.UserRole `json:"userRole"`
}

// loginEnvelope allows for the token arriving beside data instead of inside it.
type loginEnvelope struct {
	api.Envelope[json.RawMessage]
	Token string `json:"token"`
}

// Login exchanges the user's credentials for an access token. A 401 here is a bad password,
// so the request is flagged to leave the session alone.
func (s *Service) Login(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	if err := s.validator.ValidateLogin(req); err != nil {
		return nil, err
	}
	if req.Email == "" {
		req.Email = req.UserName
	}

	resp, err := s.client.Do(ctx, api.Request{
		Method:           http.MethodPost,
		Path:             api.EndpointLogin,
		Body:             req,
		FallbackMessage:  loginFailedMessage,
		SkipSessionReset: true,
	})
	if err != nil {
		return nil, err
	}

	var env loginEnvelope
	if err := api.Decode(resp, loginFailedMessage, &env); err != nil {
		return nil, err
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return nil, &api.Error{
			Kind:       api.KindServer,
			StatusCode: resp.StatusCode,
			Message:    utils.FirstNonEmpty(utils.Value(env.Message), loginNoDataMessage),
			RawBody:    resp.Body,
		}
	}

	var data loginData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return nil, &api.Error{
			Kind:       api.KindDecode,
			StatusCode: resp.StatusCode,
			Message:    loginFailedMessage,
			RawBody:    resp.Body,
			Err:        err,
		}
	}

	accessToken := utils.FirstNonEmpty(data.AccessToken, data.Token, env.Token)
	if accessToken == "" {
		return nil, &api.Error{
			Kind:       api.KindServer,
			StatusCode: resp.StatusCode,
			Message:    loginNoTokenMessage,
			RawBody:    resp.Body,
		}
	}

	user := data.User
	if user == nil {
		// Some deployments return the user record as data itself.
		user = &users.User{}
		if err := json.Unmarshal(env.Data, user); err != nil {
			return nil, errors.Wrap(err, "[Service.Login] json.Unmarshal user")
		}
	}

	result := &LoginResult{
		Token: &oauth2.Token{AccessToken: accessToken, RefreshToken: data.RefreshToken},
		User: users.CurrentUser{
			User:         *user,
			UserRole:     data.UserRole,
			AccessToken:  accessToken,
			RefreshToken: data.RefreshToken,
		},
	}
	fillFromClaims(result)

	log.Info().Str("userID", result.User.User.ID).Msg("login succeeded")
	return result, nil
}

// fillFromClaims completes a sparse user record from the token's claims.
func fillFromClaims(result *LoginResult) {
	claims, err := token.Inspect(result.Token.AccessToken)
	if err != nil {
		return
	}
	u := &result.User.User
	u.ID = utils.FirstNonEmpty(u.ID, claims.Subject)
	u.Email = utils.FirstNonEmpty(u.Email, claims.Email)
	if claims.Expired(time.Now()) {
		log.Warn().Time("expiresAt", claims.ExpiresAt).Msg("login returned an access token that has already expired")
	}
	if !claims.ExpiresAt.IsZero() {
		result.Token.Expiry = claims.ExpiresAt
		log.Debug().Str("token", utils.Redact(result.Token.AccessToken)).Time("expiresAt", claims.ExpiresAt).Dur("validFor", time.Until(claims.ExpiresAt).Round(time.Second)).Msg("access token expiry")
	}
}

// Logout tells the CRM to end the session. The caller clears local state itself, so a 401
// here does not reset the session.
func (s *Service) Logout(ctx context.Context) error {
	_, err := s.client.Do(ctx, api.Request{
		Method:           http.MethodGet,
		Path:             api.EndpointLogout,
		FallbackMessage:  logoutFailedMessage,
		SkipSessionReset: true,
	})
	return err
}

// CurrentUser fetches the user the stored token belongs to.
func (s *Service) CurrentUser(ctx context.Context) (*users.CurrentUser, error) {
	cu, err := api.Call[*users.CurrentUser](ctx, s.client, api.Request{
		Method:          http.MethodGet,
		Path:            api.EndpointCurrentUser,
		FallbackMessage: currentUserFailedMessage,
	})
	if err != nil {
		return nil, err
	}
	if cu == nil {
		return nil, &api.Error{Kind: api.KindServer, Message: currentUserFailedMessage}
	}
	return cu, nil
}

// SendPasswordResetEmail asks the CRM to email a reset link for the user name.
func (s *Service) SendPasswordResetEmail(ctx context.Context, req ForgotPasswordRequest) error {
	if err := s.validator.ValidateForgotPassword(req); err != nil {
		return err
	}
	req.Email = ""

	_, err := api.Call[json.RawMessage](ctx, s.client, api.Request{
		Method:          http.MethodPost,
		Path:            api.EndpointSendEmailToResetPassword,
		Body:            req,
		FallbackMessage: passwordResetFailedMessage,
	})
	return err
}
