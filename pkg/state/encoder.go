// Package state round-trips composite editor values through untrusted
// clients, such as a hidden field in a rendered form. Tokens are msgpack
// payloads that are either signed (readable, tamper-evident) or sealed with
// AES-256-GCM (opaque).
package state

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/vmihailenco/msgpack/v5"
)

var (
	// ErrInvalidSignature reports a token whose signature does not match.
	ErrInvalidSignature = errors.New("state: invalid signature")
	// ErrMalformedToken reports a token that cannot be parsed.
	ErrMalformedToken = errors.New("state: malformed token")
	// ErrEmptyKey is returned by NewEncoder for an empty key.
	ErrEmptyKey = errors.New("state: key is required")
)

const signatureBytes = 16

// Encoder signs and seals value maps.
type Encoder struct {
	key []byte
	gcm cipher.AEAD
}

// NewEncoder derives a 32 byte key from shorter secrets.
func NewEncoder(key []byte) (*Encoder, error) {
	if len(key) == 0 {
		return nil, ErrEmptyKey
	}
	if len(key) != 32 {
		sum := sha256.Sum256(key)
		key = sum[:]
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("state: cipher: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("state: gcm: %w", err)
	}
	return &Encoder{key: append([]byte(nil), key...), gcm: gcm}, nil
}

// Encode packs value and returns "payload.signature".
func (e *Encoder) Encode(value map[string]any) (string, error) {
	packed, err := msgpack.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("state: pack: %w", err)
	}
	payload := base64.RawURLEncoding.EncodeToString(packed)
	sig := base64.RawURLEncoding.EncodeToString(e.sign(packed))
	return payload + "." + sig, nil
}

// Decode verifies a token produced by Encode.
func (e *Encoder) Decode(token string) (map[string]any, error) {
	payload, sig, ok := strings.Cut(strings.TrimSpace(token), ".")
	if !ok {
		return nil, fmt.Errorf("%w: missing signature", ErrMalformedToken)
	}
	packed, err := base64.RawURLEncoding.DecodeString(payload)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	got, err := base64.RawURLEncoding.DecodeString(sig)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if !hmac.Equal(got, e.sign(packed)) {
		return nil, ErrInvalidSignature
	}
	return unpack(packed)
}

// Seal encrypts value so the client cannot read it.
func (e *Encoder) Seal(value map[string]any) (string, error) {
	packed, err := msgpack.Marshal(value)
	if err != nil {
		return "", fmt.Errorf("state: pack: %w", err)
	}
	nonce := make([]byte, e.gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("state: nonce: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(e.gcm.Seal(nonce, nonce, packed, nil)), nil
}

// Open decrypts a token produced by Seal. Authentication failures report
// ErrInvalidSignature.
func (e *Encoder) Open(token string) (map[string]any, error) {
	sealed, err := base64.RawURLEncoding.DecodeString(strings.TrimSpace(token))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	size := e.gcm.NonceSize()
	if len(sealed) < size {
		return nil, fmt.Errorf("%w: too short", ErrMalformedToken)
	}
	packed, err := e.gcm.Open(nil, sealed[:size], sealed[size:], nil)
	if err != nil {
		return nil, ErrInvalidSignature
	}
	return unpack(packed)
}

func (e *Encoder) sign(data []byte) []byte {
	mac := hmac.New(sha256.New, e.key)
	mac.Write(data)
	return mac.Sum(nil)[:signatureBytes]
}

func unpack(packed []byte) (map[string]any, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(packed))
	dec.UseLooseInterfaceDecoding(true)
	var value map[string]any
	if err := dec.Decode(&value); err != nil {
		return nil, fmt.Errorf("state: unpack: %w", err)
	}
	return normalize(value).(map[string]any), nil
}

// normalize maps msgpack integers onto int so decoded values compare equal
// to what the number editors produce.
func normalize(value any) any {
	switch v := value.(type) {
	case map[string]any:
		if v == nil {
			return map[string]any{}
		}
		for key, item := range v {
			v[key] = normalize(item)
		}
		return v
	case []any:
		for i, item := range v {
			v[i] = normalize(item)
		}
		return v
	case int64:
		return int(v)
	case uint64:
		return int(v)
	default:
		return v
	}
}
