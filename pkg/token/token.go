// Package token builds and signs the short-lived ES256 bearer token carried
// on each request.
//
// The header and payload are serialized from ordered structs, not maps, so
// the emitted bytes always follow the declared field order. Signing backends
// disagree on nothing else as easily as on claim ordering.
package token

import (
	"crypto/ecdsa"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	// Issuer is the fixed iss claim expected by the platform.
	Issuer = "coinbase-cloud"
	// Validity is the token lifetime: exp is always nbf + Validity.
	Validity = 120 * time.Second

	nonceBytes = 16
)

// Header is the JWT header. Field order is part of the wire contract.
type Header struct {
	Alg   string `json:"alg"`
	Typ   string `json:"typ"`
	Kid   string `json:"kid"`
	Nonce string `json:"nonce"`
}

// Claims is the JWT payload. Field order is part of the wire contract.
type Claims struct {
	Sub string   `json:"sub"`
	Iss string   `json:"iss"`
	Nbf int64    `json:"nbf"`
	Exp int64    `json:"exp"`
	Aud []string `json:"aud"`
	URI string   `json:"uri"`
}

// SignError reports a failed signing operation. The pipeline never emits a
// partially formed token: on error the token string is empty.
type SignError struct {
	Reason string
	Err    error
}

func (e *SignError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("signing failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("signing failed: %s", e.Reason)
}

func (e *SignError) Unwrap() error { return e.Err }

// Builder assembles signing inputs. The clock and nonce sources are
// injectable so tests can pin them; production builders use time.Now and
// crypto/rand.
type Builder struct {
	now   func() time.Time
	nonce func() (string, error)
}

// NewBuilder returns a Builder with the production clock and nonce source.
func NewBuilder() *Builder {
	return &Builder{
		now:   time.Now,
		nonce: randomNonce,
	}
}

// NewBuilderAt returns a Builder with pinned clock and nonce values.
func NewBuilderAt(now time.Time, nonce string) *Builder {
	return &Builder{
		now:   func() time.Time { return now },
		nonce: func() (string, error) { return nonce, nil },
	}
}

// SigningInput produces base64url(header) + "." + base64url(payload) for a
// request described by method, host and path. The uri claim joins host and
// path without a separator; the path is expected to start with "/".
func (b *Builder) SigningInput(kid, method, host, path string) (string, error) {
	nonce, err := b.nonce()
	if err != nil {
		return "", &SignError{Reason: "nonce generation failed", Err: err}
	}

	nbf := b.now().Unix()
	header := Header{
		Alg:   "ES256",
		Typ:   "JWT",
		Kid:   kid,
		Nonce: nonce,
	}
	claims := Claims{
		Sub: kid,
		Iss: Issuer,
		Nbf: nbf,
		Exp: nbf + int64(Validity.Seconds()),
		Aud: []string{host},
		URI: method + " " + host + path,
	}

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return "", &SignError{Reason: "header serialization failed", Err: err}
	}
	claimsJSON, err := json.Marshal(claims)
	if err != nil {
		return "", &SignError{Reason: "payload serialization failed", Err: err}
	}

	return base64.RawURLEncoding.EncodeToString(headerJSON) + "." +
		base64.RawURLEncoding.EncodeToString(claimsJSON), nil
}

// Sign computes the ES256 signature (SHA-256 digest, ECDSA over P-256) of the
// signing input and returns it base64url-encoded.
func Sign(signingInput string, key *ecdsa.PrivateKey) (string, error) {
	if key == nil {
		return "", &SignError{Reason: "no private key"}
	}
	sig, err := jwt.SigningMethodES256.Sign(signingInput, key)
	if err != nil {
		return "", &SignError{Reason: "ES256 backend rejected the key", Err: err}
	}
	return base64.RawURLEncoding.EncodeToString(sig), nil
}

// Assemble concatenates the signing input and the encoded signature into the
// final compact token.
func Assemble(signingInput, signature string) string {
	return signingInput + "." + signature
}

// Token builds, signs, and assembles a complete bearer token in one call.
func (b *Builder) Token(key *ecdsa.PrivateKey, kid, method, host, path string) (string, error) {
	signingInput, err := b.SigningInput(kid, method, host, path)
	if err != nil {
		return "", err
	}
	signature, err := Sign(signingInput, key)
	if err != nil {
		return "", err
	}
	return Assemble(signingInput, signature), nil
}

func randomNonce() (string, error) {
	var buf [nonceBytes]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf[:]), nil
}
