package credentials

import (
	"encoding/json"
	"time"

	"golang.org/x/oauth2"

	"github.com/desertthunder/homeboard/internal/storage"
)

// Provider names an OAuth provider with a persisted token.
type Provider string

const (
	Google  Provider = "google"
	Spotify Provider = "spotify"
)

// Providers lists every OAuth provider in display order.
var Providers = []Provider{Google, Spotify}

// ParseProvider validates a provider name from a URL or CLI argument.
func ParseProvider(s string) (Provider, bool) {
	for _, p := range Providers {
		if string(p) == s {
			return p, true
		}
	}
	return "", false
}

// StorageKey returns the [storage.Store] key the provider's token lives under.
func (p Provider) StorageKey() string {
	switch p {
	case Spotify:
		return storage.KeySpotifyToken
	default:
		return storage.KeyGoogleToken
	}
}

// Token is a persisted OAuth token.
//
// ExpiresAt is Unix milliseconds and is always populated before a token is saved.
type Token struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	Scope        string `json:"scope,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
	ExpiresAt    int64  `json:"expires_at"`
}

// UnmarshalJSON also accepts Google client library files that carry "expiry_date" instead of "expires_at".
func (t *Token) UnmarshalJSON(data []byte) error {
	type plain Token
	var aux struct {
		plain
		ExpiryDate int64 `json:"expiry_date"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*t = Token(aux.plain)
	if t.ExpiresAt == 0 && aux.ExpiryDate > 0 {
		t.ExpiresAt = aux.ExpiryDate
	}
	return nil
}

// Expiry returns ExpiresAt as a [time.Time]; the zero time when unknown.
func (t *Token) Expiry() time.Time {
	if t.ExpiresAt == 0 {
		return time.Time{}
	}
	return time.UnixMilli(t.ExpiresAt)
}

// Expiring reports whether now is within margin of expiry.
// A token with an unknown expiry is treated as expiring.
func (t *Token) Expiring(now time.Time, margin time.Duration) bool {
	if t.ExpiresAt == 0 {
		return true
	}
	return !now.Before(t.Expiry().Add(-margin))
}

// CanRefresh reports whether the token carries a refresh token.
func (t *Token) CanRefresh() bool {
	return t.RefreshToken != ""
}

// normalize fills ExpiresAt from ExpiresIn when only the relative lifetime is known.
func (t *Token) normalize(now time.Time) {
	if t.ExpiresAt == 0 && t.ExpiresIn > 0 {
		t.ExpiresAt = now.Add(time.Duration(t.ExpiresIn) * time.Second).UnixMilli()
	}
}

// fromOAuth2 converts an [oauth2.Token] returned by an exchange or refresh.
func fromOAuth2(tok *oauth2.Token, now time.Time) *Token {
	t := &Token{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.TokenType,
		ExpiresIn:    tok.ExpiresIn,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		t.Scope = scope
	}
	if !tok.Expiry.IsZero() {
		t.ExpiresAt = tok.Expiry.UnixMilli()
	}
	t.normalize(now)
	return t
}
