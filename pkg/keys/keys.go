// Package keys normalizes the configured key secret into a usable ECDSA
// P-256 private key. The secret is either raw PEM or base64-wrapped PEM.
package keys

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"strings"
)

const pemMarker = "-----BEGIN"

// DecodeError reports undecodable or malformed key material. Messages
// describe the failure mode and never include the secret bytes.
type DecodeError struct {
	Reason string
	Err    error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid key material: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid key material: %s", e.Reason)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// NormalizePEM returns the PEM text for an opaque key secret. A secret
// containing a PEM boundary is used verbatim; anything else is assumed to be
// base64-wrapped PEM.
func NormalizePEM(secret string) (string, error) {
	if strings.Contains(secret, pemMarker) {
		return secret, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(secret))
	if err != nil {
		return "", &DecodeError{Reason: "key secret is neither PEM nor valid base64", Err: err}
	}
	return string(raw), nil
}

// ParsePrivateKey parses PEM text into an ECDSA private key on P-256.
// Both SEC1 ("EC PRIVATE KEY") and PKCS#8 ("PRIVATE KEY") encodings are
// accepted.
func ParsePrivateKey(pemText string) (*ecdsa.PrivateKey, error) {
	block, _ := pem.Decode([]byte(pemText))
	if block == nil {
		return nil, &DecodeError{Reason: "no PEM block found in key material"}
	}

	key, sec1Err := x509.ParseECPrivateKey(block.Bytes)
	if sec1Err != nil {
		parsed, pkcs8Err := x509.ParsePKCS8PrivateKey(block.Bytes)
		if pkcs8Err != nil {
			return nil, &DecodeError{Reason: "PEM block does not contain an EC private key", Err: sec1Err}
		}
		ec, ok := parsed.(*ecdsa.PrivateKey)
		if !ok {
			return nil, &DecodeError{Reason: fmt.Sprintf("PKCS#8 key is %T, not an ECDSA key", parsed)}
		}
		key = ec
	}

	if key.Curve != elliptic.P256() {
		return nil, &DecodeError{Reason: fmt.Sprintf("private key uses curve %s, want P-256", key.Curve.Params().Name)}
	}
	return key, nil
}

// Decode resolves a key secret all the way to a P-256 private key.
func Decode(secret string) (*ecdsa.PrivateKey, error) {
	pemText, err := NormalizePEM(secret)
	if err != nil {
		return nil, err
	}
	return ParsePrivateKey(pemText)
}
