// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package sec provides the cryptographic primitives used to authenticate
realtime event-bus subscribers.

The admin API itself is gated by a single shared secret (see
[internal/platform/middleware.APIKeyAuth]), but the event bus is a
separate, long-lived connection that outlives any single admin request.
Instead of handing subscribers the admin secret, the core mints a
short-lived, channel-scoped JWT that the event bus can verify without
ever seeing the admin secret itself.

Architecture:

  - HMAC-SHA256 signing: symmetric, single-key, no PEM management.
  - Channel scoping: a token is valid for exactly one channel, or the
    wildcard channel for administrative subscribers.
  - Short TTL: tokens expire quickly; subscribers must re-mint.
*/
package sec

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// WildcardChannel grants a minted token access to every event channel.
const WildcardChannel = "*"

// CapabilityClaims is the payload embedded inside an event-bus capability token.
type CapabilityClaims struct {
	jwt.RegisteredClaims

	// Channel is the single event-bus channel this token authorizes, or
	// [WildcardChannel].
	Channel string `json:"chan"`
}

// TokenService mints and verifies event-bus capability tokens.
type TokenService struct {
	secret []byte
	issuer string
}

// NewTokenService constructs a [TokenService] from the configured event-bus
// signing key.
func NewTokenService(signingKey, issuer string) (*TokenService, error) {
	if signingKey == "" {
		return nil, fmt.Errorf("sec: event-bus signing key must not be empty")
	}
	return &TokenService{secret: []byte(signingKey), issuer: issuer}, nil
}

// MintCapabilityToken issues a token scoped to channel, valid for ttl.
func (service *TokenService) MintCapabilityToken(channel string, ttl time.Duration) (string, error) {
	now := time.Now()

	claims := CapabilityClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    service.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Channel: channel,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(service.secret)
	if err != nil {
		return "", fmt.Errorf("sec: failed to sign capability token: %w", err)
	}
	return signed, nil
}

// VerifyCapabilityToken validates a token and reports which channel it grants
// access to.
func (service *TokenService) VerifyCapabilityToken(tokenString string) (*CapabilityClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &CapabilityClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("sec: unexpected signing method: %v", token.Header["alg"])
		}
		return service.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("sec: invalid capability token: %w", err)
	}

	claims, ok := token.Claims.(*CapabilityClaims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("sec: invalid capability token claims")
	}
	return claims, nil
}

// AuthorizesChannel reports whether this token grants access to channel.
func (claims *CapabilityClaims) AuthorizesChannel(channel string) bool {
	return claims.Channel == WildcardChannel || claims.Channel == channel
}
