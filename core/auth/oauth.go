package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/irsalhamdi/school-of-presence/api/web"
	"github.com/irsalhamdi/school-of-presence/api/weberr"
	"github.com/irsalhamdi/school-of-presence/core/claims"
	"github.com/irsalhamdi/school-of-presence/core/user"
	"github.com/irsalhamdi/school-of-presence/database"
	"github.com/irsalhamdi/school-of-presence/random"
	"github.com/jmoiron/sqlx"
	"golang.org/x/oauth2"
)

type ProviderConfig struct {
	Name        string
	Client      string
	Secret      string
	URL         string
	RedirectURL string
}

type Provider struct {
	oauth2.Config
	verifier *oidc.IDTokenVerifier
}

// MakeProviders discovers every configured OpenID provider. Providers without
// a client id are skipped so that the login stays optional.
func MakeProviders(ctx context.Context, cfgs []ProviderConfig) (map[string]Provider, error) {
	provs := make(map[string]Provider, len(cfgs))

	for _, cfg := range cfgs {
		if cfg.Client == "" {
			continue
		}

		p, err := oidc.NewProvider(ctx, cfg.URL)
		if err != nil {
			return nil, fmt.Errorf("discovering provider %s: %w", cfg.Name, err)
		}

		provs[cfg.Name] = Provider{
			Config: oauth2.Config{
				ClientID:     cfg.Client,
				ClientSecret: cfg.Secret,
				RedirectURL:  cfg.RedirectURL,
				Endpoint:     p.Endpoint(),
				Scopes:       []string{oidc.ScopeOpenID, "email", "profile"},
			},
			verifier: p.Verifier(&oidc.Config{ClientID: cfg.Client}),
		}
	}

	return provs, nil
}

func HandleOauthLogin(sm *scs.SessionManager, provs map[string]Provider) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		name := web.Param(r, "provider")
		prov, ok := provs[name]
		if !ok {
			return weberr.NotFound(fmt.Errorf("oauth provider %q not configured", name))
		}

		state, err := random.StringSecure(32)
		if err != nil {
			return fmt.Errorf("generating oauth state: %w", err)
		}
		sm.Put(ctx, keyOauthState, state)

		return web.Redirect(w, r, prov.AuthCodeURL(state), nil)
	}
}

func HandleOauthCallback(db *sqlx.DB, sm *scs.SessionManager, provs map[string]Provider, redirectURL string) web.Handler {
	return func(ctx context.Context, w http.ResponseWriter, r *http.Request) error {
		name := web.Param(r, "provider")
		prov, ok := provs[name]
		if !ok {
			return weberr.NotFound(fmt.Errorf("oauth provider %q not configured", name))
		}

		state := sm.PopString(ctx, keyOauthState)
		if state == "" || state != web.Query(r, "state") {
			return weberr.BadRequest(errors.New("oauth state mismatch"))
		}

		tok, err := prov.Exchange(ctx, web.Query(r, "code"))
		if err != nil {
			return weberr.NotAuthorized(fmt.Errorf("exchanging oauth code: %w", err))
		}

		raw, ok := tok.Extra("id_token").(string)
		if !ok {
			return weberr.NotAuthorized(errors.New("no id_token in oauth response"))
		}

		idt, err := prov.verifier.Verify(ctx, raw)
		if err != nil {
			return weberr.NotAuthorized(fmt.Errorf("verifying id token: %w", err))
		}

		var info struct {
			Email    string `json:"email"`
			Verified bool   `json:"email_verified"`
			Name     string `json:"name"`
		}
		if err := idt.Claims(&info); err != nil {
			return fmt.Errorf("decoding id token claims: %w", err)
		}
		if info.Email == "" || !info.Verified {
			return weberr.NotAuthorized(fmt.Errorf("unverified email from %s", name))
		}

		u, err := user.FetchByEmail(ctx, db, info.Email)
		switch {
		case errors.Is(err, database.ErrDBNotFound):
			u, err = register(ctx, db, info.Email, info.Name, nil)
			if err != nil {
				return err
			}
		case err != nil:
			return fmt.Errorf("fetching user: %w", err)
		}

		if err := login(ctx, sm, claims.Claims{UserID: u.ID, Email: u.Email, Role: u.Role}); err != nil {
			return err
		}

		return web.Redirect(w, r, redirectURL, nil)
	}
}
