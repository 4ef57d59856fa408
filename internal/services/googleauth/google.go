package googleauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// Client wraps the OAuth2 authorization-code flow against Google.
type Client struct {
	config *oauth2.Config
}

// NewClient creates an OAuth2 client for Google sign-in. redirectURL must
// match one of the redirect URIs registered for the client ID.
func NewClient(clientID, clientSecret, redirectURL string) *Client {
	config := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  redirectURL,
		Scopes:       []string{"openid", "email", "profile"},
		Endpoint:     google.Endpoint,
	}

	return &Client{config: config}
}

// AuthCodeURL returns the authorization URL for the given state nonce.
func (c *Client) AuthCodeURL(state string) string {
	return c.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// ExchangeCode exchanges an authorization code for tokens.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return c.config.Exchange(ctx, code)
}

// IDToken pulls the raw ID token out of an exchanged token response.
func IDToken(token *oauth2.Token) (string, error) {
	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return "", fmt.Errorf("token response missing id_token")
	}
	return raw, nil
}

// NewState generates a random state nonce for the authorization request.
func NewState() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return hex.EncodeToString(buf), nil
}
