package token

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	jose "github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
)

const (
	testKid  = "0a1b2c3d-4e5f-6071-8293-a4b5c6d7e8f9"
	testHost = "api.cdp.coinbase.com"
	testPath = "/platform/v2/evm/networks"
)

func generateKey(t *testing.T) *ecdsa.PrivateKey {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate P-256 key: %v", err)
	}
	return key
}

// verifyToken parses and verifies a token against the corresponding public
// key, returning the claims.
func verifyToken(t *testing.T, tok string, key *ecdsa.PrivateKey) jwt.MapClaims {
	t.Helper()
	parsed, err := jwt.Parse(tok, func(token *jwt.Token) (any, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"ES256"}), jwt.WithIssuer(Issuer))
	if err != nil {
		t.Fatalf("Token failed verification: %v", err)
	}
	claims, ok := parsed.Claims.(jwt.MapClaims)
	if !ok {
		t.Fatalf("Unexpected claims type %T", parsed.Claims)
	}
	return claims
}

func TestTokenShape(t *testing.T) {
	key := generateKey(t)
	tok, err := NewBuilder().Token(key, testKid, "GET", testHost, testPath)
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("Expected 3 segments, got %d", len(parts))
	}
	for i, part := range parts {
		if strings.ContainsAny(part, "=+/") {
			t.Fatalf("Segment %d contains non-base64url characters: %q", i, part)
		}
		if part == "" {
			t.Fatalf("Segment %d is empty", i)
		}
	}
}

func TestClaimsValidityWindow(t *testing.T) {
	key := generateKey(t)
	tok, err := NewBuilder().Token(key, testKid, "GET", testHost, testPath)
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	var claims Claims
	payload, err := base64.RawURLEncoding.DecodeString(strings.Split(tok, ".")[1])
	if err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	if err := json.Unmarshal(payload, &claims); err != nil {
		t.Fatalf("Failed to unmarshal payload: %v", err)
	}
	if claims.Exp-claims.Nbf != 120 {
		t.Fatalf("Expected exp-nbf == 120, got %d", claims.Exp-claims.Nbf)
	}
}

func TestURIClaim(t *testing.T) {
	key := generateKey(t)
	tok, err := NewBuilder().Token(key, testKid, "GET", testHost, testPath)
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	claims := verifyToken(t, tok, key)
	want := "GET api.cdp.coinbase.com/platform/v2/evm/networks"
	if claims["uri"] != want {
		t.Fatalf("Expected uri %q, got %q", want, claims["uri"])
	}
	if claims["sub"] != testKid {
		t.Fatalf("Expected sub %q, got %q", testKid, claims["sub"])
	}
}

func TestHeaderBytesAreOrdered(t *testing.T) {
	nonce := "000102030405060708090a0b0c0d0e0f"
	b := NewBuilderAt(time.Unix(1700000000, 0), nonce)
	input, err := b.SigningInput(testKid, "GET", testHost, testPath)
	if err != nil {
		t.Fatalf("SigningInput failed: %v", err)
	}
	headerJSON, err := base64.RawURLEncoding.DecodeString(strings.Split(input, ".")[0])
	if err != nil {
		t.Fatalf("Failed to decode header: %v", err)
	}
	want := fmt.Sprintf(`{"alg":"ES256","typ":"JWT","kid":%q,"nonce":%q}`, testKid, nonce)
	if string(headerJSON) != want {
		t.Fatalf("Header bytes out of order:\n got %s\nwant %s", headerJSON, want)
	}
}

func TestPayloadBytesAreOrdered(t *testing.T) {
	b := NewBuilderAt(time.Unix(1700000000, 0), "000102030405060708090a0b0c0d0e0f")
	input, err := b.SigningInput(testKid, "GET", testHost, testPath)
	if err != nil {
		t.Fatalf("SigningInput failed: %v", err)
	}
	payloadJSON, err := base64.RawURLEncoding.DecodeString(strings.Split(input, ".")[1])
	if err != nil {
		t.Fatalf("Failed to decode payload: %v", err)
	}
	want := fmt.Sprintf(`{"sub":%q,"iss":"coinbase-cloud","nbf":1700000000,"exp":1700000120,"aud":[%q],"uri":"GET %s%s"}`,
		testKid, testHost, testHost, testPath)
	if string(payloadJSON) != want {
		t.Fatalf("Payload bytes out of order:\n got %s\nwant %s", payloadJSON, want)
	}
}

func TestSigningInputReproducible(t *testing.T) {
	now := time.Unix(1700000000, 0)
	nonce := "ffeeddccbbaa99887766554433221100"
	a, err := NewBuilderAt(now, nonce).SigningInput(testKid, "GET", testHost, testPath)
	if err != nil {
		t.Fatalf("SigningInput failed: %v", err)
	}
	b, err := NewBuilderAt(now, nonce).SigningInput(testKid, "GET", testHost, testPath)
	if err != nil {
		t.Fatalf("SigningInput failed: %v", err)
	}
	if a != b {
		t.Fatalf("Pinned clock and nonce should reproduce identical signing input")
	}
}

func TestNonceVariesTokens(t *testing.T) {
	key := generateKey(t)
	first, err := NewBuilder().Token(key, testKid, "GET", testHost, testPath)
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	second, err := NewBuilder().Token(key, testKid, "GET", testHost, testPath)
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	if first == second {
		t.Fatalf("Two tokens from identical inputs should differ via the nonce")
	}
	verifyToken(t, first, key)
	verifyToken(t, second, key)
}

// Assembled tokens must also verify under an independent JOSE implementation.
func TestTokenVerifiesUnderGoJose(t *testing.T) {
	key := generateKey(t)
	tok, err := NewBuilder().Token(key, testKid, "GET", testHost, testPath)
	if err != nil {
		t.Fatalf("Token failed: %v", err)
	}
	jws, err := jose.ParseSigned(tok, []jose.SignatureAlgorithm{jose.ES256})
	if err != nil {
		t.Fatalf("go-jose failed to parse token: %v", err)
	}
	payload, err := jws.Verify(&key.PublicKey)
	if err != nil {
		t.Fatalf("go-jose signature verification failed: %v", err)
	}
	var claims Claims
	if err := json.Unmarshal(payload, &claims); err != nil {
		t.Fatalf("Failed to unmarshal verified payload: %v", err)
	}
	if claims.Iss != Issuer {
		t.Fatalf("Expected iss %q, got %q", Issuer, claims.Iss)
	}
}

func TestSignNilKey(t *testing.T) {
	_, err := Sign("a.b", nil)
	var signErr *SignError
	if !errors.As(err, &signErr) {
		t.Fatalf("Expected SignError, got %v", err)
	}
}

func TestSignWrongCurve(t *testing.T) {
	p384, err := ecdsa.GenerateKey(elliptic.P384(), rand.Reader)
	if err != nil {
		t.Fatalf("Failed to generate P-384 key: %v", err)
	}
	input, err := NewBuilder().SigningInput(testKid, "GET", testHost, testPath)
	if err != nil {
		t.Fatalf("SigningInput failed: %v", err)
	}
	_, err = Sign(input, p384)
	var signErr *SignError
	if !errors.As(err, &signErr) {
		t.Fatalf("Expected SignError for wrong curve, got %v", err)
	}
}
