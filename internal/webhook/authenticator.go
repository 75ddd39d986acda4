// Package webhook authenticates provider callbacks before they may change
// transaction state.
package webhook

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"
)

var ErrInvalidSignature = errors.New("invalid webhook signature")

// Payload is the callback body sent by the provider.
type Payload struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	Message       string `json:"message,omitempty"`
	Signature     string `json:"signature"`
}

// signedFields fixes the field order of the signed representation and leaves
// the signature itself out.
type signedFields struct {
	TransactionID string `json:"transaction_id"`
	Status        string `json:"status"`
	Timestamp     string `json:"timestamp"`
	Message       string `json:"message,omitempty"`
}

// CanonicalPayload returns the bytes the provider signs for p.
func CanonicalPayload(p Payload) []byte {
	b, _ := json.Marshal(signedFields{
		TransactionID: p.TransactionID,
		Status:        p.Status,
		Timestamp:     p.Timestamp,
		Message:       p.Message,
	})
	return b
}

type Authenticator struct {
	secret    []byte
	tolerance time.Duration
	now       func() time.Time
}

// NewAuthenticator builds an authenticator for secret. A positive tolerance
// rejects payloads whose timestamp is further than tolerance from now.
func NewAuthenticator(secret string, tolerance time.Duration) *Authenticator {
	return &Authenticator{secret: []byte(secret), tolerance: tolerance, now: time.Now}
}

func (a *Authenticator) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, a.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether signature is the hex HMAC-SHA256 of payload.
func (a *Authenticator) Verify(payload []byte, signature string) bool {
	if len(a.secret) == 0 || signature == "" {
		return false
	}
	provided, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, a.secret)
	mac.Write(payload)
	return hmac.Equal(mac.Sum(nil), provided)
}

// Authenticate decodes a raw callback body and checks its signature and
// freshness. Every failure is reported as ErrInvalidSignature.
func (a *Authenticator) Authenticate(body []byte) (*Payload, error) {
	var p Payload
	dec := json.NewDecoder(bytes.NewReader(body))
	if err := dec.Decode(&p); err != nil {
		return nil, ErrInvalidSignature
	}
	if p.TransactionID == "" || p.Status == "" {
		return nil, ErrInvalidSignature
	}
	if !a.Verify(CanonicalPayload(p), p.Signature) {
		return nil, ErrInvalidSignature
	}
	if a.tolerance > 0 && !a.fresh(p.Timestamp) {
		return nil, ErrInvalidSignature
	}
	return &p, nil
}

func (a *Authenticator) fresh(timestamp string) bool {
	ts, err := time.Parse(time.RFC3339, timestamp)
	if err != nil {
		return false
	}
	skew := a.now().Sub(ts)
	if skew < 0 {
		skew = -skew
	}
	return skew <= a.tolerance
}
