// Package auth issues and validates the short-lived join tokens a
// websocket connection presents to prove which userId/roomId it belongs
// to across a reconnect. There are no accounts, no passwords, and no
// login flow — a token is minted the moment a userId is minted, at
// room.create or room.join, and its only job is letting the registry
// reassociate a reconnecting socket with its seat.
package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken covers every way ValidateJoinToken can fail: expired,
// malformed, wrong signature, or claims that don't parse.
var ErrInvalidToken = errors.New("auth: invalid or expired join token")

const defaultTTL = 24 * time.Hour

// JoinClaims binds a token to exactly one user in exactly one room.
type JoinClaims struct {
	UserID string `json:"userId"`
	RoomID string `json:"roomId"`
	jwt.RegisteredClaims
}

// Issuer mints and validates JoinClaims tokens under one HMAC secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer builds an Issuer around secret. An empty secret is a
// configuration error the caller must catch before serving traffic.
func NewIssuer(secret []byte) *Issuer {
	return &Issuer{secret: secret, ttl: defaultTTL}
}

// Issue mints a join token for userID/roomID.
func (i *Issuer) Issue(userID, roomID string) (string, error) {
	claims := &JoinClaims{
		UserID: userID,
		RoomID: roomID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(i.ttl)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Validate parses and verifies a join token, returning its claims.
func (i *Issuer) Validate(tokenString string) (*JoinClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JoinClaims{}, func(*jwt.Token) (interface{}, error) {
		return i.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*JoinClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
