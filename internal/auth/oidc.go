package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"golang.org/x/oauth2"
	"gorm.io/gorm"

	config "github.com/DaniDevGS/triven-shop/configs"
	"github.com/DaniDevGS/triven-shop/internal/db"
	"github.com/DaniDevGS/triven-shop/internal/models"
)

type oidcClient struct {
	verifier *oidc.IDTokenVerifier
	oauth2   *oauth2.Config
}

type oidcClaims struct {
	Sub               string `json:"sub"`
	PreferredUsername string `json:"preferred_username"`
	Email             string `json:"email"`
}

// EnableOIDC turns on federated login against the configured issuer.
func (s *Service) EnableOIDC(ctx context.Context, cfg config.OIDCConfig) error {
	provider, err := oidc.NewProvider(ctx, cfg.Issuer)
	if err != nil {
		return fmt.Errorf("OIDC provider init error: %w", err)
	}

	s.oidc = &oidcClient{
		verifier: provider.Verifier(&oidc.Config{ClientID: cfg.ClientID}),
		oauth2: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint:     provider.Endpoint(),
			Scopes:       []string{oidc.ScopeOpenID, "profile", "email"},
		},
	}
	return nil
}

func (s *Service) OIDCEnabled() bool {
	return s.oidc != nil
}

func (s *Service) authCodeURL(state string) string {
	return s.oidc.oauth2.AuthCodeURL(state)
}

// exchange trades the authorization code for a verified identity.
func (s *Service) exchange(ctx context.Context, code string) (oidcClaims, error) {
	var claims oidcClaims

	token, err := s.oidc.oauth2.Exchange(ctx, code)
	if err != nil {
		return claims, fmt.Errorf("token exchange failed: %w", err)
	}
	rawIDToken, ok := token.Extra("id_token").(string)
	if !ok {
		return claims, errors.New("no id_token in token response")
	}
	idToken, err := s.oidc.verifier.Verify(ctx, rawIDToken)
	if err != nil {
		return claims, fmt.Errorf("token verification failed: %w", err)
	}
	if err := idToken.Claims(&claims); err != nil {
		return claims, fmt.Errorf("claims parse error: %w", err)
	}
	return claims, nil
}

// upsertFederated returns the account bound to the OIDC subject, creating it
// on first login.
func (s *Service) upsertFederated(ctx context.Context, claims oidcClaims) (*models.User, error) {
	conn := s.db.WithContext(ctx)

	var user models.User
	err := conn.Where("oidc_id = ?", claims.Sub).First(&user).Error
	if err == nil {
		return &user, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	sub := claims.Sub
	user = models.User{Username: federatedUsername(claims), OIDCID: &sub}
	if claims.Email != "" {
		email := claims.Email
		user.Email = &email
	}

	err = conn.Create(&user).Error
	if db.IsDuplicateKey(err) {
		// Username or email already taken by a local account.
		user.ID = 0
		user.Username = "oidc-" + sub
		user.Email = nil
		err = conn.Create(&user).Error
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

func federatedUsername(c oidcClaims) string {
	if c.PreferredUsername != "" {
		return c.PreferredUsername
	}
	if at := strings.Index(c.Email, "@"); at > 0 {
		return c.Email[:at]
	}
	return "oidc-" + c.Sub
}
