package models

import (
	"crypto/rand"
	"fmt"
)

// roomCodeAlphabet excludes visually-ambiguous I, O, 1, 0.
const roomCodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const roomCodeLength = 6

// MaxRoomCodeCollisionRetries bounds GenerateRoomCode's caller-driven retry
// loop.
const MaxRoomCodeCollisionRetries = 20

// GenerateRoomCode returns a random 6-character code drawn from the
// 32-symbol alphabet. Collision handling against existing codes is the
// caller's responsibility (the store knows which codes are taken; this
// function does not).
func GenerateRoomCode() (string, error) {
	buf := make([]byte, roomCodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("models: generate room code: %w", err)
	}
	out := make([]byte, roomCodeLength)
	for i, b := range buf {
		out[i] = roomCodeAlphabet[int(b)%len(roomCodeAlphabet)]
	}
	return string(out), nil
}
