// Package vault seals and opens supplier credentials at rest. Platform rows
// carry only ciphertext; the dispatcher opens them just before an adapter
// call and a failed open is a skip-and-continue, never a supplier failure.
package vault

import (
	"crypto/rand"
	"encoding/base64"
	"errors"

	"golang.org/x/crypto/nacl/secretbox"
)

var (
	ErrBadKey        = errors.New("vault: master key must be 32 bytes")
	ErrBadCiphertext = errors.New("vault: malformed or tampered ciphertext")
)

type Vault struct {
	key [32]byte
}

// New expects a base64-encoded 32-byte master key.
func New(masterKey string) (*Vault, error) {
	raw, err := base64.StdEncoding.DecodeString(masterKey)
	if err != nil || len(raw) != 32 {
		return nil, ErrBadKey
	}
	var v Vault
	copy(v.key[:], raw)
	return &v, nil
}

// Seal encrypts a credential for storage. The nonce is prepended to the box.
func (v *Vault) Seal(plaintext string) (string, error) {
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return "", err
	}
	box := secretbox.Seal(nonce[:], []byte(plaintext), &nonce, &v.key)
	return base64.StdEncoding.EncodeToString(box), nil
}

// Open decrypts stored auth material. Empty input and tampered input both
// return ErrBadCiphertext.
func (v *Vault) Open(ciphertext string) (string, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil || len(raw) < 25 {
		return "", ErrBadCiphertext
	}
	var nonce [24]byte
	copy(nonce[:], raw[:24])
	plain, ok := secretbox.Open(nil, raw[24:], &nonce, &v.key)
	if !ok {
		return "", ErrBadCiphertext
	}
	return string(plain), nil
}
