package jwtx

import (
	"context"
	"crypto"
	"crypto/ecdsa"
	"crypto/ed25519"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Signature validation failure modes, one per step. A failed verification
// is terminal for that token; nothing here is retried.
var (
	ErrInvalidJWS           = errors.New("jwtx: malformed JWS")
	ErrNoKeyID              = errors.New("jwtx: missing kid header")
	ErrUnspecifiedAlgorithm = errors.New("jwtx: missing alg header")
	ErrUnsupportedKeyType   = errors.New("jwtx: key incompatible with algorithm")
	ErrInvalidSignature     = errors.New("jwtx: invalid signature")
)

type joseHeader struct {
	Alg string `json:"alg"`
	Kid string `json:"kid"`
}

// VerifySignature validates a compact-serialized JWS against the key set
// and returns the raw payload bytes on success. The checks run in a fixed
// order, each with its own failure mode: compact parse, kid header, alg
// header, key resolution, key/algorithm compatibility, signature.
func VerifySignature(ctx context.Context, compact string, keys KeyProvider) ([]byte, error) {
	parts := strings.Split(compact, ".")
	if len(parts) != 3 {
		return nil, ErrInvalidJWS
	}

	headerJSON, err := base64.RawURLEncoding.DecodeString(parts[0])
	if err != nil {
		return nil, ErrInvalidJWS
	}

	var header joseHeader
	if err := json.Unmarshal(headerJSON, &header); err != nil {
		return nil, ErrInvalidJWS
	}

	if header.Kid == "" {
		return nil, ErrNoKeyID
	}
	if header.Alg == "" {
		return nil, ErrUnspecifiedAlgorithm
	}

	key, err := keys.Key(ctx, header.Kid)
	if err != nil {
		if errors.Is(err, ErrUnknownKeyID) {
			return nil, ErrUnknownKeyID
		}
		return nil, fmt.Errorf("jwtx: key lookup failed: %w", err)
	}

	if err := checkKeyCompatibility(header.Alg, key); err != nil {
		return nil, err
	}

	sig, err := base64.RawURLEncoding.DecodeString(parts[2])
	if err != nil {
		return nil, ErrInvalidJWS
	}

	method := jwt.GetSigningMethod(header.Alg)
	if method == nil {
		return nil, ErrUnsupportedKeyType
	}

	if err := method.Verify(parts[0]+"."+parts[1], sig, key); err != nil {
		return nil, ErrInvalidSignature
	}

	payload, err := base64.RawURLEncoding.DecodeString(parts[1])
	if err != nil {
		return nil, ErrInvalidJWS
	}

	return payload, nil
}

// checkKeyCompatibility confirms the resolved key's type matches what the
// declared algorithm needs, so a key can't be coerced across algorithms.
func checkKeyCompatibility(alg string, key crypto.PublicKey) error {
	switch alg {
	case "RS256", "RS384", "RS512":
		if _, ok := key.(*rsa.PublicKey); !ok {
			return ErrUnsupportedKeyType
		}
	case "ES256", "ES384", "ES512":
		if _, ok := key.(*ecdsa.PublicKey); !ok {
			return ErrUnsupportedKeyType
		}
	case "EdDSA":
		if _, ok := key.(ed25519.PublicKey); !ok {
			return ErrUnsupportedKeyType
		}
	default:
		return ErrUnsupportedKeyType
	}
	return nil
}
