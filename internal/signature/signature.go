package signature

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/go-github/v58/github"
)

const sha256Prefix = "sha256="

var (
	ErrMissingSignature   = errors.New("missing webhook signature")
	ErrMalformedSignature = errors.New("malformed webhook signature")
	ErrSignatureMismatch  = errors.New("webhook signature mismatch")
)

// Verifier checks that a webhook payload was produced by the configured provider.
type Verifier interface {
	// Enabled is false when no secret is configured; callers skip verification entirely.
	Enabled() bool
	Verify(body []byte, header string) error
}

// HMACVerifier validates GitHub-style "sha256=<hex>" signatures.
type HMACVerifier struct {
	secret []byte
}

func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

func (v *HMACVerifier) Enabled() bool {
	return len(v.secret) > 0
}

// Verify accepts only "sha256=<64 hex>" headers and delegates the constant-time
// HMAC-SHA256 comparison to go-github.
func (v *HMACVerifier) Verify(body []byte, header string) error {
	header = strings.TrimSpace(header)
	if header == "" {
		return ErrMissingSignature
	}
	if !strings.HasPrefix(header, sha256Prefix) {
		return ErrMalformedSignature
	}

	provided, err := hex.DecodeString(strings.TrimPrefix(header, sha256Prefix))
	if err != nil || len(provided) != sha256.Size {
		return ErrMalformedSignature
	}

	if err := github.ValidateSignature(header, body, v.secret); err != nil {
		return fmt.Errorf("%w: %v", ErrSignatureMismatch, err)
	}
	return nil
}

// Sign returns the raw HMAC-SHA256 digest of body.
func Sign(secret, body []byte) []byte {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return mac.Sum(nil)
}

// SignatureHeader renders the value GitHub sends in X-Hub-Signature-256.
func SignatureHeader(secret string, body []byte) string {
	return sha256Prefix + hex.EncodeToString(Sign([]byte(secret), body))
}

// TokenVerifier validates GitLab's shared-secret X-Gitlab-Token header.
type TokenVerifier struct {
	token []byte
}

func NewTokenVerifier(token string) *TokenVerifier {
	return &TokenVerifier{token: []byte(token)}
}

func (v *TokenVerifier) Enabled() bool {
	return len(v.token) > 0
}

func (v *TokenVerifier) Verify(_ []byte, header string) error {
	if header == "" {
		return ErrMissingSignature
	}
	if subtle.ConstantTimeCompare([]byte(header), v.token) != 1 {
		return ErrSignatureMismatch
	}
	return nil
}
