package credentials

import (
	"context"

	apperrors "github.com/jrsteele09/dojotv/internal/errors"
	"golang.org/x/oauth2"
)

// ErrNoToken is returned by a store token source when no access token is persisted.
var ErrNoToken = apperrors.ErrNoToken

type storeTokenSource struct {
	ctx    context.Context
	store  Store
	scheme string
}

// TokenSource exposes the persisted access and refresh tokens as an oauth2.TokenSource.
// The token is read from the store on every call; scheme becomes the token type.
func TokenSource(ctx context.Context, store Store, scheme string) oauth2.TokenSource {
	return &storeTokenSource{ctx: ctx, store: store, scheme: scheme}
}

func (s *storeTokenSource) Token() (*oauth2.Token, error) {
	access, found, err := s.store.Get(s.ctx, SlotAccessToken)
	if err != nil {
		return nil, err
	}
	if !found || access == "" {
		return nil, ErrNoToken
	}

	tok := &oauth2.Token{AccessToken: access, TokenType: s.scheme}
	if refresh, ok, err := s.store.Get(s.ctx, SlotRefreshToken); err == nil && ok {
		tok.RefreshToken = refresh
	}
	return tok, nil
}

// SaveToken writes the token pair into the access and refresh slots. An empty refresh token
// removes any refresh token left by an earlier login.
func SaveToken(ctx context.Context, store Store, tok *oauth2.Token) error {
	if tok == nil || tok.AccessToken == "" {
		return ErrNoToken
	}
	if err := store.Set(ctx, SlotAccessToken, tok.AccessToken); err != nil {
		return err
	}
	if tok.RefreshToken == "" {
		return store.Delete(ctx, SlotRefreshToken)
	}
	return store.Set(ctx, SlotRefreshToken, tok.RefreshToken)
}
