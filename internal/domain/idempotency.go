package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// IdempotencyRecord stores the outcome of a mutating call under its
// caller-supplied key. It is written in the same transaction as the mutation.
type IdempotencyRecord struct {
	Scope       string
	Key         string
	RequestHash string
	Result      []byte
	CreatedAt   time.Time
}

// RequestHash fingerprints a request payload so a reused key with a
// different payload can be told apart from a replay.
func RequestHash(request any) (string, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(payload)
	return hex.EncodeToString(sum[:]), nil
}
